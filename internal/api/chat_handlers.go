// Handler for the free-form chat endpoint, a thin passthrough to the
// LLM transport.

package api

import (
	"encoding/json"
	"net/http"

	"github.com/junwei-lu/litscan/internal/analyzer"
)

const chatSystemPrompt = "You are a professional chemistry literature analysis assistant"

type chatRequest struct {
	Message string             `json:"message"`
	History []analyzer.Message `json:"history"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		RespondWithError(w, http.StatusBadRequest, "A non-empty 'message' is required")
		return
	}

	messages := make([]analyzer.Message, 0, len(req.History)+2)
	messages = append(messages, analyzer.Message{Role: "system", Content: chatSystemPrompt})
	for _, m := range req.History {
		if m.Role == "user" || m.Role == "assistant" {
			messages = append(messages, m)
		}
	}
	messages = append(messages, analyzer.Message{Role: "user", Content: req.Message})

	reply, err := s.app.LLMClient().Complete(r.Context(), messages)
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, "Chat service unavailable: "+err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]string{"response": reply})
}
