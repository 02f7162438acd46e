// The API server: route setup with chi, linking endpoints to their
// handler functions.

package api

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/junwei-lu/litscan/internal/core"
	"github.com/junwei-lu/litscan/internal/store"
)

// Server holds the dependencies for our API.
type Server struct {
	app   *core.App
	db    *sql.DB
	store *store.Store
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{
		app:   app,
		db:    app.DB(),
		store: app.Store(),
	}
}

// Store returns the store instance.
func (s *Server) Store() *store.Store {
	return s.store
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics

	r.Route("/api", func(r chi.Router) {
		// The WebSocket route lives outside this group, so a request
		// deadline here cannot cut a live progress stream.
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/upload", s.handleUpload)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{documentID}", s.handleGetDocument)
		r.Delete("/documents/{documentID}", s.handleDeleteDocument)
		r.Post("/documents/{documentID}/reanalyze", s.handleReanalyze)
		r.Get("/download/{documentID}", s.handleDownloadDocument)

		r.Post("/analyze/{documentID}", s.handleAnalyze)
		r.Get("/analysis/{documentID}", s.handleGetAnalysis)
		r.Get("/analysis/progress/{documentID}", s.handleGetProgress)

		r.Get("/visualization/activity-data", s.handleActivityData)
		r.Get("/visualization/catalyst-methods", s.handleCatalystMethods)

		r.Post("/chat", s.handleChat)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/jobs/status", s.handleGetJobsStatus)
			r.Post("/jobs/run", s.handleRunJob)
		})

		r.Get("/version", s.handleGetVersion)
		r.Get("/health", s.handleHealth)
	})

	// WebSocket route: one stream of progress snapshots per document.
	r.Get("/ws/analysis/{documentID}", s.handleAnalysisWs)

	return r
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"version": s.app.Version()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(); err != nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Database connection failed")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// documentIDParam parses the {documentID} URL parameter.
func documentIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "documentID"), 10, 64)
}
