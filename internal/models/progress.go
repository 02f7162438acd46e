package models

// Analysis progress statuses for a single document run.
const (
	ProgressProcessing = "processing"
	ProgressCompleted  = "completed"
	ProgressError      = "error"
)

// ProgressSnapshot is a complete copy of a document's analysis progress at
// one point in time. It is what subscribers receive over the WebSocket and
// what the progress query endpoint returns.
type ProgressSnapshot struct {
	DocumentID       int64    `json:"document_id"`
	CurrentItem      *string  `json:"current_item"` // nil once every item is resolved
	CurrentItemIndex int      `json:"current_item_index"`
	TotalItems       int      `json:"total_items"`
	CompletedItems   []string `json:"completed_items"`
	SkippedItems     []string `json:"skipped_items"`
	OverallProgress  int      `json:"overall_progress"`
	Status           string   `json:"status"`
	ErrorMessage     string   `json:"error_message,omitempty"`
}

// Clone returns a deep copy so callers can never mutate tracker state
// through a snapshot they were handed.
func (p *ProgressSnapshot) Clone() *ProgressSnapshot {
	cp := *p
	if p.CurrentItem != nil {
		item := *p.CurrentItem
		cp.CurrentItem = &item
	}
	cp.CompletedItems = append([]string(nil), p.CompletedItems...)
	cp.SkippedItems = append([]string(nil), p.SkippedItems...)
	return &cp
}
