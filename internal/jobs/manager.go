package jobs

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/junwei-lu/litscan/internal/config"
	"github.com/junwei-lu/litscan/internal/extract"
)

// JobContext is an interface that provides the dependencies a background
// job needs. The core.App struct implements it.
type JobContext interface {
	DB() *sql.DB
	Config() *config.Config
	TextCache() *extract.Cache
	JobManager() *JobManager
}

type jobTask func(ctx JobContext)

type JobStatus struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "idle", "running", "success", "failed"
	Message   string    `json:"message"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// JobManager serializes background maintenance jobs: only one runs at a
// time, whether triggered by the scheduler or by hand.
type JobManager struct {
	mu      sync.Mutex
	jobs    map[string]jobTask
	status  map[string]*JobStatus
	running bool
}

func NewManager() *JobManager {
	return &JobManager{
		jobs:   make(map[string]jobTask),
		status: make(map[string]*JobStatus),
	}
}

func (jm *JobManager) Register(name string, task jobTask) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.jobs[name] = task
	jm.status[name] = &JobStatus{Name: name, Status: "idle"}
}

// RunJob launches a registered job in the background. It refuses to start
// while another job is still running.
func (jm *JobManager) RunJob(name string, ctx JobContext) error {
	jm.mu.Lock()
	if jm.running {
		jm.mu.Unlock()
		return fmt.Errorf("a job is already running")
	}

	task, ok := jm.jobs[name]
	if !ok {
		jm.mu.Unlock()
		return fmt.Errorf("job '%s' not found", name)
	}

	jm.running = true
	status := jm.status[name]
	status.Status = "running"
	status.StartTime = time.Now()
	status.Message = "Job started..."
	jm.mu.Unlock()

	log.Printf("Starting job: %s", name)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Job '%s' panicked: %v", name, r)
				status.Status = "failed"
				status.Message = fmt.Sprintf("Job panicked: %v", r)
			}

			jm.mu.Lock()
			status.EndTime = time.Now()
			if status.Status == "running" {
				status.Status = "success"
				status.Message = "Job completed successfully."
			}
			jm.running = false
			jm.mu.Unlock()
			log.Printf("Finished job: %s", name)
		}()

		task(ctx)
	}()
	return nil
}

func (jm *JobManager) GetStatus() []*JobStatus {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	var statuses []*JobStatus
	for _, s := range jm.status {
		statuses = append(statuses, s)
	}
	return statuses
}
