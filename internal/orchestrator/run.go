// The analysis pipeline executed by each supervisor task: extract text,
// run the two analyzer calls, walk the checklist publishing progress,
// then persist the result.

package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/junwei-lu/litscan/internal/analyzer"
	"github.com/junwei-lu/litscan/internal/extract"
	"github.com/junwei-lu/litscan/internal/models"
	"github.com/junwei-lu/litscan/internal/progress"
)

// extractionProgress is the fixed percentage broadcast once text
// extraction succeeds, before any checklist item resolves. It is a
// transient display value and never lands in the tracker.
const extractionProgress = 20

func (s *Supervisor) run(ctx context.Context, doc *models.Document) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Analysis task for document %d panicked: %v", doc.ID, r)
			s.fail(doc.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	start := time.Now()
	snap := s.tracker.Init(doc.ID)
	s.hub.Publish(doc.ID, snap)

	if err := s.store.UpdateDocumentStatus(doc.ID, models.DocStatusProcessing); err != nil {
		log.Printf("Could not mark document %d as processing: %v", doc.ID, err)
	}

	// One time budget for the whole run, extraction included.
	runCtx, cancel := context.WithDeadline(ctx, start.Add(s.overallTimeout))
	defer cancel()

	text, err := s.documentText(doc)
	if err != nil {
		s.fail(doc.ID, "text extraction failed: "+err.Error())
		return
	}

	// Extraction milestone. Published as a one-off display value; the
	// tracker's own record still reads zero until items resolve.
	marker := s.tracker.Get(doc.ID)
	marker.OverallProgress = extractionProgress
	s.hub.Publish(doc.ID, marker)

	// Budget checkpoint: a run that spent everything on extraction fails
	// here rather than issuing doomed LLM calls.
	if runCtx.Err() != nil {
		if ctx.Err() != nil {
			log.Printf("Analysis of document %d superseded or cancelled", doc.ID)
			return
		}
		s.fail(doc.ID, fmt.Sprintf("%v after %s", ErrTimeoutExceeded, s.overallTimeout))
		return
	}

	record, err := s.analyzer.Analyze(runCtx, text)
	if err != nil {
		if ctx.Err() != nil {
			log.Printf("Analysis of document %d superseded or cancelled", doc.ID)
			return
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			s.fail(doc.ID, fmt.Sprintf("%v after %s", ErrTimeoutExceeded, s.overallTimeout))
			return
		}
		s.fail(doc.ID, err.Error())
		return
	}

	if err := s.walkChecklist(ctx, doc.ID, record); err != nil {
		if ctx.Err() != nil {
			log.Printf("Analysis of document %d superseded or cancelled", doc.ID)
			return
		}
		s.fail(doc.ID, err.Error())
		return
	}

	if time.Since(start) > s.overallTimeout {
		s.fail(doc.ID, fmt.Sprintf("%v after %s", ErrTimeoutExceeded, s.overallTimeout))
		return
	}

	if err := s.persist(doc.ID, record); err != nil {
		s.fail(doc.ID, "could not save analysis result: "+err.Error())
		return
	}
	if err := s.store.UpdateDocumentStatus(doc.ID, models.DocStatusAnalyzed); err != nil {
		log.Printf("Could not mark document %d as analyzed: %v", doc.ID, err)
	}

	s.hub.Publish(doc.ID, s.tracker.Get(doc.ID))
	log.Printf("Analysis of document %d finished in %s", doc.ID, time.Since(start).Round(time.Millisecond))
}

// walkChecklist resolves each checklist item against the analyzer record,
// pacing updates so subscribers see progress advance rather than jump.
func (s *Supervisor) walkChecklist(ctx context.Context, documentID int64, record *analyzer.Record) error {
	for _, item := range progress.Checklist {
		if s.itemDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.itemDelay):
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}

		outcome := progress.OutcomeSkipped
		if v, ok := record.Field(item); ok && fieldPresent(v) {
			outcome = progress.OutcomeCompleted
		}
		snap := s.tracker.Advance(documentID, item, outcome)
		s.hub.Publish(documentID, snap)
	}
	return nil
}

// fieldPresent decides whether a returned value counts as extracted.
// Only a missing key or an explicit null is an absence; empty strings
// and empty collections are still recorded as extracted values.
func fieldPresent(v any) bool {
	return v != nil
}

// documentText returns the extracted text for the document, consulting
// the on-disk cache first. Cache write failures are logged and ignored.
func (s *Supervisor) documentText(doc *models.Document) (string, error) {
	if s.textCache != nil {
		if text, ok := s.textCache.Get(doc.ID); ok {
			log.Printf("Using cached extracted text for document %d", doc.ID)
			return text, nil
		}
	}

	text, err := extract.Text(doc.Path)
	if err != nil {
		return "", err
	}
	if s.textCache != nil {
		if err := s.textCache.Put(doc.ID, doc.Path, text); err != nil {
			log.Printf("Could not cache extracted text for document %d: %v", doc.ID, err)
		}
	}
	return text, nil
}

// persist maps the analyzer record onto the analyses row.
func (s *Supervisor) persist(documentID int64, record *analyzer.Record) error {
	a := &models.Analysis{
		DocumentID:  documentID,
		Title:       stringField(record.General, "文献标题"),
		Publication: stringField(record.General, "发表期刊/会议"),
		Year:        stringField(record.General, "发表年份"),
		Abstract:    stringField(record.General, "摘要"),
		Authors:     jsonField(record.General, "作者列表"),
		Keywords:    jsonField(record.General, "关键词"),
		RawResponse: record.RawGeneral + "\n\n" + record.RawActivity,
	}
	content, err := json.Marshal(record.Merged())
	if err != nil {
		return err
	}
	a.Content = string(content)
	return s.store.SaveAnalysis(a)
}

// fail records the error on the tracker, broadcasts it, and flips the
// document status. Every failure path funnels through here.
func (s *Supervisor) fail(documentID int64, message string) {
	log.Printf("Analysis of document %d failed: %s", documentID, message)
	snap := s.tracker.SetError(documentID, message)
	s.hub.Publish(documentID, snap)
	if err := s.store.UpdateDocumentStatus(documentID, models.DocStatusError); err != nil {
		log.Printf("Could not mark document %d as errored: %v", documentID, err)
	}
}

// stringField renders a model-returned value as display text. Numbers
// arrive as float64 from JSON decoding; years should not print as "2023.0".
func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}

// jsonField re-encodes a value for JSON-text columns, normalizing a bare
// string into a single-element list.
func jsonField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return "[]"
	}
	if s, isString := v.(string); isString {
		v = []string{s}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}
