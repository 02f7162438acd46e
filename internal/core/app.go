package core

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/junwei-lu/litscan/internal/analyzer"
	"github.com/junwei-lu/litscan/internal/config"
	"github.com/junwei-lu/litscan/internal/db"
	"github.com/junwei-lu/litscan/internal/extract"
	"github.com/junwei-lu/litscan/internal/jobs"
	"github.com/junwei-lu/litscan/internal/orchestrator"
	"github.com/junwei-lu/litscan/internal/progress"
	"github.com/junwei-lu/litscan/internal/store"
	"github.com/junwei-lu/litscan/internal/websocket"
)

const appVersion = "1.0.0"

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	cfg        *config.Config
	db         *sql.DB
	store      *store.Store
	tracker    *progress.Tracker
	hub        *websocket.Hub
	textCache  *extract.Cache
	llm        analyzer.Client
	analyzer   *analyzer.Analyzer
	supervisor *orchestrator.Supervisor
	jobManager *jobs.JobManager
}

// New sets up and returns a new App instance. It loads the configuration,
// initializes the database, runs migrations and assembles the services.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	llm := analyzer.NewClaudeClient(analyzer.ClaudeOptions{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})

	app, err := Build(cfg, database, llm)
	if err != nil {
		database.Close()
		return nil, err
	}

	log.Println("Core application setup complete.")
	return app, nil
}

// Build assembles the application services on an already migrated
// database. The LLM transport is injected so tests can substitute a fake.
func Build(cfg *config.Config, database *sql.DB, llm analyzer.Client) (*App, error) {
	if err := os.MkdirAll(cfg.Uploads.Path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}

	textCache, err := extract.NewCache(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}

	st := store.New(database)
	tracker := progress.NewTracker()

	hub := websocket.NewHub(tracker)
	hub.SetTimeouts(cfg.WebSocket.HeartbeatInterval, cfg.WebSocket.DeadmanTimeout)

	an := analyzer.New(llm)
	supervisor := orchestrator.NewSupervisor(orchestrator.Options{
		Store:          st,
		Analyzer:       an,
		Tracker:        tracker,
		Hub:            hub,
		TextCache:      textCache,
		OverallTimeout: cfg.Analysis.OverallTimeout,
		ItemDelay:      cfg.Analysis.ItemDelay,
	})
	hub.SetRestarter(supervisor)

	app := &App{
		cfg:        cfg,
		db:         database,
		store:      st,
		tracker:    tracker,
		hub:        hub,
		textCache:  textCache,
		llm:        llm,
		analyzer:   an,
		supervisor: supervisor,
		jobManager: jobs.NewManager(),
	}
	jobs.RegisterAll(app)
	return app, nil
}

// Close gracefully shuts down the application's resources: running
// analysis tasks first, then the database connection.
func (a *App) Close() {
	if a.supervisor != nil {
		a.supervisor.Shutdown()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func (a *App) Config() *config.Config               { return a.cfg }
func (a *App) DB() *sql.DB                          { return a.db }
func (a *App) Store() *store.Store                  { return a.store }
func (a *App) Tracker() *progress.Tracker           { return a.tracker }
func (a *App) Hub() *websocket.Hub                  { return a.hub }
func (a *App) TextCache() *extract.Cache            { return a.textCache }
func (a *App) LLMClient() analyzer.Client           { return a.llm }
func (a *App) Analyzer() *analyzer.Analyzer         { return a.analyzer }
func (a *App) Supervisor() *orchestrator.Supervisor { return a.supervisor }
func (a *App) JobManager() *jobs.JobManager         { return a.jobManager }
func (a *App) Version() string                      { return appVersion }
