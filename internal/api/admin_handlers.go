// Handlers for the maintenance-job endpoints.

package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleGetJobsStatus(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.JobManager().GetStatus())
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
		RespondWithError(w, http.StatusBadRequest, "A 'job_id' is required")
		return
	}

	if err := s.app.JobManager().RunJob(req.JobID, s.app); err != nil {
		RespondWithError(w, http.StatusConflict, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Job '" + req.JobID + "' started."})
}
