// A store file for analysis result persistence and the aggregation
// queries backing the visualization endpoints.

package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/junwei-lu/litscan/internal/models"
)

// SaveAnalysis inserts the analysis for a document, replacing any previous
// result for the same document (a re-run overwrites, it does not append).
func (s *Store) SaveAnalysis(a *models.Analysis) error {
	now := time.Now()
	query := `
        INSERT INTO analyses (document_id, title, authors, publication, year, abstract, keywords, content, raw_response, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(document_id) DO UPDATE SET
            title = excluded.title,
            authors = excluded.authors,
            publication = excluded.publication,
            year = excluded.year,
            abstract = excluded.abstract,
            keywords = excluded.keywords,
            content = excluded.content,
            raw_response = excluded.raw_response,
            updated_at = excluded.updated_at;
    `
	res, err := s.db.Exec(query,
		a.DocumentID, a.Title, a.Authors, a.Publication, a.Year, a.Abstract,
		a.Keywords, a.Content, a.RawResponse, now, now,
	)
	if err != nil {
		return err
	}
	a.ID, _ = res.LastInsertId()
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// GetAnalysisByDocument retrieves the analysis for a document, or ErrNotFound.
func (s *Store) GetAnalysisByDocument(documentID int64) (*models.Analysis, error) {
	var a models.Analysis
	var title, authors, publication, year, abstract, keywords, content, raw sql.NullString
	err := s.db.QueryRow(`
        SELECT id, document_id, title, authors, publication, year, abstract, keywords, content, raw_response, created_at, updated_at
        FROM analyses WHERE document_id = ?`, documentID,
	).Scan(&a.ID, &a.DocumentID, &title, &authors, &publication, &year, &abstract, &keywords, &content, &raw, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Title = title.String
	a.Authors = authors.String
	a.Publication = publication.String
	a.Year = year.String
	a.Abstract = abstract.String
	a.Keywords = keywords.String
	a.Content = content.String
	a.RawResponse = raw.String
	return &a, nil
}

// ListAnalyses returns every stored analysis, used by the visualization
// endpoints to aggregate across documents.
func (s *Store) ListAnalyses() ([]*models.Analysis, error) {
	rows, err := s.db.Query(`
        SELECT id, document_id, title, authors, publication, year, abstract, keywords, content, raw_response, created_at, updated_at
        FROM analyses ORDER BY document_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	analyses := make([]*models.Analysis, 0)
	for rows.Next() {
		var a models.Analysis
		var title, authors, publication, year, abstract, keywords, content, raw sql.NullString
		if err := rows.Scan(&a.ID, &a.DocumentID, &title, &authors, &publication, &year, &abstract, &keywords, &content, &raw, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		a.Title = title.String
		a.Authors = authors.String
		a.Publication = publication.String
		a.Year = year.String
		a.Abstract = abstract.String
		a.Keywords = keywords.String
		a.Content = content.String
		a.RawResponse = raw.String
		analyses = append(analyses, &a)
	}
	return analyses, rows.Err()
}
