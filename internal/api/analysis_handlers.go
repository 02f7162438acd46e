// Handlers for launching analysis runs and reading their results and
// live progress.

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/junwei-lu/litscan/internal/store"
)

// analysisResponse is the API shape of a stored analysis, with the
// JSON-text columns decoded.
type analysisResponse struct {
	ID          int64          `json:"id"`
	DocumentID  int64          `json:"document_id"`
	Title       string         `json:"title"`
	Authors     []string       `json:"authors"`
	Publication string         `json:"publication"`
	Year        string         `json:"year"`
	Abstract    string         `json:"abstract"`
	Keywords    []string       `json:"keywords"`
	Content     map[string]any `json:"content"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// handleAnalyze launches background analysis for a document. A run
// already in flight is left alone; use reanalyze to supersede it.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	if s.app.Supervisor().Running(id) {
		RespondWithJSON(w, http.StatusConflict, map[string]any{
			"message":     "Document is already being analyzed",
			"document_id": id,
		})
		return
	}

	s.startAnalysis(w, id)
}

// handleReanalyze relaunches analysis unconditionally, superseding any
// run still in flight for the document.
func (s *Server) handleReanalyze(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}
	s.startAnalysis(w, id)
}

func (s *Server) startAnalysis(w http.ResponseWriter, id int64) {
	if err := s.app.Supervisor().Start(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Document not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to start analysis")
		return
	}

	RespondWithJSON(w, http.StatusAccepted, map[string]any{
		"message":     "Analysis started",
		"document_id": id,
	})
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}

	analysis, err := s.store.GetAnalysisByDocument(id)
	if errors.Is(err, store.ErrNotFound) {
		RespondWithError(w, http.StatusNotFound, "No analysis result for this document")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load analysis")
		return
	}

	RespondWithJSON(w, http.StatusOK, analysisResponse{
		ID:          analysis.ID,
		DocumentID:  analysis.DocumentID,
		Title:       analysis.Title,
		Authors:     analysis.AuthorList(),
		Publication: analysis.Publication,
		Year:        analysis.Year,
		Abstract:    analysis.Abstract,
		Keywords:    analysis.KeywordList(),
		Content:     analysis.ContentMap(),
		CreatedAt:   analysis.CreatedAt,
		UpdatedAt:   analysis.UpdatedAt,
	})
}

// handleGetProgress returns the tracker's current record for a document.
// This is the polling fallback for clients not holding a WebSocket open.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}
	RespondWithJSON(w, http.StatusOK, s.app.Tracker().Get(id))
}
