// This file defines the core data structures (models) for the application:
// uploaded documents and the analysis records produced for them.

package models

import (
	"encoding/json"
	"time"
)

// Document statuses, in lifecycle order. A document moves
// uploaded -> processing -> analyzed, or to error at any point.
const (
	DocStatusUploaded   = "uploaded"
	DocStatusProcessing = "processing"
	DocStatusAnalyzed   = "analyzed"
	DocStatusError      = "error"
)

// Document represents a single uploaded literature file.
type Document struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"` // "PDF" or "Word"
	Path       string    `json:"path"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	UploadTime time.Time `json:"upload_time"`
}

// Analysis holds the structured extraction result for one document.
// Authors, Keywords and Content are stored as JSON text in the database;
// the typed accessors decode them for API responses.
type Analysis struct {
	ID          int64     `json:"id"`
	DocumentID  int64     `json:"document_id"`
	Title       string    `json:"title"`
	Authors     string    `json:"-"`
	Publication string    `json:"publication"`
	Year        string    `json:"year"`
	Abstract    string    `json:"abstract"`
	Keywords    string    `json:"-"`
	Content     string    `json:"-"`
	RawResponse string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuthorList decodes the stored authors JSON, returning an empty slice
// when the column is empty or malformed.
func (a *Analysis) AuthorList() []string {
	return decodeStringList(a.Authors)
}

// KeywordList decodes the stored keywords JSON.
func (a *Analysis) KeywordList() []string {
	return decodeStringList(a.Keywords)
}

// ContentMap decodes the full merged analysis result.
func (a *Analysis) ContentMap() map[string]any {
	if a.Content == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(a.Content), &m); err != nil {
		return map[string]any{}
	}
	return m
}

func decodeStringList(s string) []string {
	if s == "" {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return []string{}
	}
	return list
}
