// Handlers for the cross-document visualization endpoints, aggregating
// stored analysis results.

package api

import (
	"net/http"

	"github.com/junwei-lu/litscan/internal/analyzer"
)

type documentActivity struct {
	DocumentID    int64  `json:"document_id"`
	Title         string `json:"title"`
	ActivityData  []any  `json:"activity_data"`
	ActivityTable string `json:"activity_table,omitempty"`
}

type documentMethods struct {
	DocumentID int64  `json:"document_id"`
	Title      string `json:"title"`
	Methods    any    `json:"methods"`
}

// handleActivityData collects every document's extracted activity data
// into one response. Documents whose analysis yielded no activity data
// are omitted.
func (s *Server) handleActivityData(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.store.ListAnalyses()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load analyses")
		return
	}

	results := make([]documentActivity, 0)
	for _, a := range analyses {
		content := a.ContentMap()
		items, _ := content[analyzer.FieldActivityData].([]any)
		if len(items) == 0 {
			continue
		}
		table, _ := content[analyzer.FieldActivityTable].(string)
		results = append(results, documentActivity{
			DocumentID:    a.DocumentID,
			Title:         a.Title,
			ActivityData:  items,
			ActivityTable: table,
		})
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"documents": len(results),
		"results":   results,
	})
}

// handleCatalystMethods collects the catalyst preparation methods
// extracted across all analyzed documents.
func (s *Server) handleCatalystMethods(w http.ResponseWriter, r *http.Request) {
	analyses, err := s.store.ListAnalyses()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load analyses")
		return
	}

	results := make([]documentMethods, 0)
	for _, a := range analyses {
		methods, ok := a.ContentMap()["催化剂制备方法"]
		if !ok || methods == nil {
			continue
		}
		if s, isString := methods.(string); isString && s == "" {
			continue
		}
		results = append(results, documentMethods{
			DocumentID: a.DocumentID,
			Title:      a.Title,
			Methods:    methods,
		})
	}

	RespondWithJSON(w, http.StatusOK, map[string]any{
		"documents": len(results),
		"results":   results,
	})
}
