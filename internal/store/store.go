// To handle all database interactions. This is our
// data access layer, keeping SQL queries separate from business logic.

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/junwei-lu/litscan/internal/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateDocument inserts a new document record and fills in its ID.
func (s *Store) CreateDocument(doc *models.Document) error {
	if doc.UploadTime.IsZero() {
		doc.UploadTime = time.Now()
	}
	res, err := s.db.Exec(
		"INSERT INTO documents (name, type, path, category, status, upload_time) VALUES (?, ?, ?, ?, ?, ?)",
		doc.Name, doc.Type, doc.Path, doc.Category, doc.Status, doc.UploadTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	doc.ID, err = res.LastInsertId()
	return err
}

// GetDocument retrieves a single document by ID. Returns ErrNotFound if
// no such document exists.
func (s *Store) GetDocument(id int64) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(
		"SELECT id, name, type, path, category, status, upload_time FROM documents WHERE id = ?", id,
	).Scan(&doc.ID, &doc.Name, &doc.Type, &doc.Path, &doc.Category, &doc.Status, &doc.UploadTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments() ([]*models.Document, error) {
	rows, err := s.db.Query(
		"SELECT id, name, type, path, category, status, upload_time FROM documents ORDER BY upload_time DESC, id DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Type, &doc.Path, &doc.Category, &doc.Status, &doc.UploadTime); err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// UpdateDocumentStatus changes a document's lifecycle status.
func (s *Store) UpdateDocumentStatus(id int64, status string) error {
	res, err := s.db.Exec("UPDATE documents SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document. The analyses row, if any, is removed
// by the ON DELETE CASCADE constraint.
func (s *Store) DeleteDocument(id int64) error {
	res, err := s.db.Exec("DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
