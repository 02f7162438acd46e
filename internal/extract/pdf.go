package extract

import (
	"fmt"
	"log"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// extractPDF pulls the text of every page from a PDF using MuPDF.
func extractPDF(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			// A single unreadable page should not sink the whole document.
			log.Printf("Could not extract text from page %d of %s: %v", i+1, path, err)
			continue
		}
		pages = append(pages, text)
	}

	result := strings.Join(pages, "\n")
	if strings.TrimSpace(result) == "" {
		return "", fmt.Errorf("no extractable text in PDF %s", path)
	}
	return result, nil
}
