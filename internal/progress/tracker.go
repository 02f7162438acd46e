// Process-wide analysis progress tracking. One record per document,
// advanced through a fixed checklist of extraction items and fanned out
// to WebSocket subscribers by the hub.

package progress

import (
	"log"
	"sync"

	"github.com/junwei-lu/litscan/internal/models"
)

// Checklist is the fixed, ordered list of analysis items tracked for
// every document. The orchestrator resolves each one as completed or
// skipped, in this order.
var Checklist = []string{
	"文献标题",
	"作者列表",
	"发表期刊/会议",
	"发表年份",
	"摘要",
	"关键词",
	"催化反应类型",
	"活性数据",
	"催化剂制备方法",
	"表征手段及结论",
	"主要founded发现",
	"结论",
	"实验价值与启示",
}

// Outcome is how a checklist item was resolved.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
)

// Tracker owns the document-id to progress-record map. All mutation
// happens under its lock; callers only ever see deep copies.
type Tracker struct {
	mu      sync.Mutex
	records map[int64]*models.ProgressSnapshot
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{records: make(map[int64]*models.ProgressSnapshot)}
}

// Init creates a fresh record for the document, discarding any prior
// progress. This is a reset, not a merge; it is safe to call repeatedly.
func (t *Tracker) Init(documentID int64) *models.ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.initLocked(documentID).Clone()
}

func (t *Tracker) initLocked(documentID int64) *models.ProgressSnapshot {
	first := Checklist[0]
	rec := &models.ProgressSnapshot{
		DocumentID:       documentID,
		CurrentItem:      &first,
		CurrentItemIndex: 0,
		TotalItems:       len(Checklist),
		CompletedItems:   []string{},
		SkippedItems:     []string{},
		OverallProgress:  0,
		Status:           models.ProgressProcessing,
	}
	t.records[documentID] = rec
	return rec
}

// Get returns the current record for a document, initializing one on
// first access so a progress query never fails with "not found".
func (t *Tracker) Get(documentID int64) *models.ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[documentID]
	if !ok {
		rec = t.initLocked(documentID)
	}
	return rec.Clone()
}

// Advance resolves one checklist item as completed or skipped, recomputes
// the overall percentage and moves the cursor. Callers are trusted to
// advance in checklist order; a mismatched item name is logged but still
// appended, preserving the lenient contract callers rely on.
func (t *Tracker) Advance(documentID int64, item string, outcome Outcome) *models.ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[documentID]
	if !ok {
		rec = t.initLocked(documentID)
	}

	if rec.CurrentItemIndex < len(Checklist) && Checklist[rec.CurrentItemIndex] != item {
		log.Printf("Progress advance out of order for document %d: got %q, cursor at %q",
			documentID, item, Checklist[rec.CurrentItemIndex])
	}

	switch outcome {
	case OutcomeSkipped:
		rec.SkippedItems = append(rec.SkippedItems, item)
	default:
		rec.CompletedItems = append(rec.CompletedItems, item)
	}

	resolved := len(rec.CompletedItems) + len(rec.SkippedItems)
	rec.OverallProgress = resolved * 100 / rec.TotalItems

	if rec.CurrentItemIndex < len(Checklist) {
		rec.CurrentItemIndex++
	}
	if rec.CurrentItemIndex >= len(Checklist) {
		rec.CurrentItem = nil
		rec.Status = models.ProgressCompleted
	} else {
		next := Checklist[rec.CurrentItemIndex]
		rec.CurrentItem = &next
	}

	return rec.Clone()
}

// SetError marks the document's record as failed with a human-readable
// message. Completed and skipped lists are left as they were.
func (t *Tracker) SetError(documentID int64, message string) *models.ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[documentID]
	if !ok {
		rec = t.initLocked(documentID)
	}
	rec.Status = models.ProgressError
	rec.ErrorMessage = message
	return rec.Clone()
}
