// Package orchestrator owns the background analysis tasks. One task per
// document at a time: starting a new run cancels and supersedes any run
// still in flight for the same document.

package orchestrator

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/junwei-lu/litscan/internal/analyzer"
	"github.com/junwei-lu/litscan/internal/extract"
	"github.com/junwei-lu/litscan/internal/models"
	"github.com/junwei-lu/litscan/internal/progress"
	"github.com/junwei-lu/litscan/internal/store"
)

// Broadcaster is the hub surface the supervisor needs: push one snapshot
// to a document's subscribers.
type Broadcaster interface {
	Publish(documentID int64, snap *models.ProgressSnapshot)
}

const supersedeGrace = 1 * time.Second

// ErrTimeoutExceeded marks a run that blew its overall time budget.
var ErrTimeoutExceeded = errors.New("analysis timed out")

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor launches, supersedes and cancels analysis runs.
type Supervisor struct {
	store     *store.Store
	analyzer  *analyzer.Analyzer
	tracker   *progress.Tracker
	hub       Broadcaster
	textCache *extract.Cache

	overallTimeout time.Duration
	itemDelay      time.Duration

	mu    sync.Mutex
	tasks map[int64]*task
}

// Options configures a Supervisor. Zero timings fall back to the
// production defaults.
type Options struct {
	Store          *store.Store
	Analyzer       *analyzer.Analyzer
	Tracker        *progress.Tracker
	Hub            Broadcaster
	TextCache      *extract.Cache
	OverallTimeout time.Duration
	ItemDelay      time.Duration
}

// NewSupervisor creates a Supervisor with no running tasks.
func NewSupervisor(opts Options) *Supervisor {
	if opts.OverallTimeout <= 0 {
		opts.OverallTimeout = 600 * time.Second
	}
	if opts.ItemDelay < 0 {
		opts.ItemDelay = 0
	} else if opts.ItemDelay == 0 {
		opts.ItemDelay = 500 * time.Millisecond
	}
	return &Supervisor{
		store:          opts.Store,
		analyzer:       opts.Analyzer,
		tracker:        opts.Tracker,
		hub:            opts.Hub,
		textCache:      opts.TextCache,
		overallTimeout: opts.OverallTimeout,
		itemDelay:      opts.ItemDelay,
		tasks:          make(map[int64]*task),
	}
}

// Start launches an analysis run for the document, superseding any run
// already in flight for it. It returns an error only when the document
// cannot be loaded; the run itself reports failures through the tracker.
func (s *Supervisor) Start(documentID int64) error {
	doc, err := s.store.GetDocument(documentID)
	if err != nil {
		return err
	}

	s.supersede(documentID)

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.tasks[documentID] = t
	s.mu.Unlock()

	go func() {
		defer s.finish(documentID, t)
		s.run(ctx, doc)
	}()
	return nil
}

// Restart relaunches analysis for a document. It satisfies the hub's
// Restarter contract.
func (s *Supervisor) Restart(documentID int64) error {
	return s.Start(documentID)
}

// Cancel stops the document's running task, if any. Reports whether a
// task was actually cancelled.
func (s *Supervisor) Cancel(documentID int64) bool {
	s.mu.Lock()
	t, ok := s.tasks[documentID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	t.cancel()
	<-t.done
	return true
}

// Running reports whether a task is in flight for the document.
func (s *Supervisor) Running(documentID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[documentID]
	return ok
}

// Shutdown cancels every running task and waits for them to unwind.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	tasks := make([]*task, 0, len(s.tasks))
	for _, t := range s.tasks {
		t.cancel()
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		<-t.done
	}
}

// supersede cancels any running task for the document and gives it a
// short grace period to unwind before the replacement starts.
func (s *Supervisor) supersede(documentID int64) {
	s.mu.Lock()
	prev, ok := s.tasks[documentID]
	if ok {
		delete(s.tasks, documentID)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	prev.cancel()
	select {
	case <-prev.done:
	case <-time.After(supersedeGrace):
		log.Printf("Previous analysis task for document %d did not stop within %s, proceeding", documentID, supersedeGrace)
	}
}

// finish removes the task entry, unless it has already been superseded
// by a newer task for the same document.
func (s *Supervisor) finish(documentID int64, t *task) {
	close(t.done)
	s.mu.Lock()
	if s.tasks[documentID] == t {
		delete(s.tasks, documentID)
	}
	s.mu.Unlock()
}
