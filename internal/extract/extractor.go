// This package converts uploaded documents into plain text. Extraction is
// dispatched by file extension; results are kept in an on-disk cache so a
// re-analysis never re-parses the same document.

package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned for file types no extractor handles.
var ErrUnsupportedType = errors.New("unsupported file type")

// Extractor converts one document file into plain text.
type Extractor interface {
	Extract(path string) (string, error)
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(path string) (string, error)

func (f ExtractorFunc) Extract(path string) (string, error) { return f(path) }

var registry = map[string]Extractor{
	".pdf":  ExtractorFunc(extractPDF),
	".docx": ExtractorFunc(extractDOCX),
	".doc":  ExtractorFunc(extractDOCX),
}

// Register replaces the extractor for an extension. Tests use this to
// substitute fakes for the cgo-backed PDF extractor.
func Register(ext string, e Extractor) {
	registry[strings.ToLower(ext)] = e
}

// ForFile returns the extractor responsible for the given path.
func ForFile(path string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := registry[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	return e, nil
}

// Text extracts the plain text of the document at path.
func Text(path string) (string, error) {
	e, err := ForFile(path)
	if err != nil {
		return "", err
	}
	return e.Extract(path)
}
