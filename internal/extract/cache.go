package extract

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Cache stores extracted text on disk, keyed by document ID. Entries are
// JSON files named "<id>_<timestamp>.json"; the newest file for an ID wins.
type Cache struct {
	dir string
}

type cacheEntry struct {
	DocumentID    int64     `json:"document_id"`
	OriginalPath  string    `json:"original_path"`
	ProcessedText string    `json:"processed_text"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Get returns the cached text for a document ID, or ("", false) on a miss.
func (c *Cache) Get(documentID int64) (string, bool) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return "", false
	}

	prefix := fmt.Sprintf("%d_", documentID)
	var matches []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".json") {
			matches = append(matches, e.Name())
		}
	}
	if len(matches) == 0 {
		return "", false
	}
	sort.Strings(matches)

	data, err := os.ReadFile(filepath.Join(c.dir, matches[len(matches)-1]))
	if err != nil {
		return "", false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Printf("Ignoring corrupt cache file %s: %v", matches[len(matches)-1], err)
		return "", false
	}
	return entry.ProcessedText, true
}

// Put saves the extracted text for a document. A failed write is logged by
// callers and otherwise harmless; the text is re-extracted next time.
func (c *Cache) Put(documentID int64, sourcePath, text string) error {
	entry := cacheEntry{
		DocumentID:    documentID,
		OriginalPath:  sourcePath,
		ProcessedText: text,
		CreatedAt:     time.Now(),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%d_%s.json", documentID, entry.CreatedAt.Format("20060102_150405"))
	return os.WriteFile(filepath.Join(c.dir, name), data, 0o644)
}

// ClearOld deletes cache files older than maxAge and returns how many
// were removed.
func (c *Cache) ClearOld(maxAge time.Duration) int {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		log.Printf("Cache cleanup could not read %s: %v", c.dir, err)
		return 0
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				log.Printf("Could not remove expired cache file %s: %v", e.Name(), err)
				continue
			}
			removed++
		}
	}
	return removed
}
