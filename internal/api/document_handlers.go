// Handlers for the document lifecycle: upload, listing, download and
// deletion.

package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/junwei-lu/litscan/internal/models"
	"github.com/junwei-lu/litscan/internal/store"
	"github.com/junwei-lu/litscan/internal/util"
)

// documentType maps an upload extension onto the stored document type.
// Unlisted extensions are rejected.
var documentType = map[string]string{
	".pdf":  "PDF",
	".docx": "Word",
	".doc":  "Word",
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.app.Config().Uploads.MaxSizeMB << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "A 'file' form field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	docType, ok := documentType[ext]
	if !ok {
		RespondWithError(w, http.StatusBadRequest, "Only PDF and Word documents are supported")
		return
	}

	// Stored under a random name; the original name only lives in the DB.
	destName := util.RandomFileName(ext)
	destPath := filepath.Join(s.app.Config().Uploads.Path, destName)
	dest, err := os.Create(destPath)
	if err != nil {
		log.Printf("Could not create upload file %s: %v", destPath, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}
	if _, err := io.Copy(dest, file); err != nil {
		dest.Close()
		os.Remove(destPath)
		RespondWithError(w, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}
	dest.Close()

	category := r.FormValue("category")
	if category == "" {
		category = "未分类"
	}

	doc := &models.Document{
		Name:     util.SanitizeFilename(header.Filename),
		Type:     docType,
		Path:     destPath,
		Category: category,
		Status:   models.DocStatusUploaded,
	}
	if err := s.store.CreateDocument(doc); err != nil {
		os.Remove(destPath)
		log.Printf("Could not record uploaded document: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to save document record")
		return
	}

	// Analysis begins immediately; the client can follow along over the
	// WebSocket or the progress endpoint.
	if err := s.app.Supervisor().Start(doc.ID); err != nil {
		log.Printf("Could not start analysis for document %d: %v", doc.ID, err)
	} else {
		doc.Status = models.DocStatusProcessing
	}

	RespondWithJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}
	RespondWithJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}
	doc, err := s.store.GetDocument(id)
	if errors.Is(err, store.ErrNotFound) {
		RespondWithError(w, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load document")
		return
	}
	RespondWithJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDownloadDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}
	doc, err := s.store.GetDocument(id)
	if errors.Is(err, store.ErrNotFound) {
		RespondWithError(w, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load document")
		return
	}
	if _, err := os.Stat(doc.Path); err != nil {
		RespondWithError(w, http.StatusNotFound, "Document file is missing from storage")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+doc.Name+`"`)
	http.ServeFile(w, r, doc.Path)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid document ID")
		return
	}
	doc, err := s.store.GetDocument(id)
	if errors.Is(err, store.ErrNotFound) {
		RespondWithError(w, http.StatusNotFound, "Document not found")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to load document")
		return
	}

	// Stop any running analysis before the row and file disappear.
	s.app.Supervisor().Cancel(id)

	if err := s.store.DeleteDocument(id); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}
	if err := os.Remove(doc.Path); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not remove file for deleted document %d: %v", id, err)
	}

	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Document deleted"})
}
