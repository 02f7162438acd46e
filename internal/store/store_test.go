package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junwei-lu/litscan/internal/models"
	"github.com/junwei-lu/litscan/internal/store"
	"github.com/junwei-lu/litscan/internal/testutil"
)

func newDocument(name string) *models.Document {
	return &models.Document{
		Name:     name,
		Type:     "PDF",
		Path:     "/uploads/" + name,
		Category: "未分类",
		Status:   models.DocStatusUploaded,
	}
}

func TestCreateAndGetDocument(t *testing.T) {
	st := testutil.SetupTestStore(t)

	doc := newDocument("paper.pdf")
	require.NoError(t, st.CreateDocument(doc))
	require.NotZero(t, doc.ID)
	assert.False(t, doc.UploadTime.IsZero())

	got, err := st.GetDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Name, got.Name)
	assert.Equal(t, doc.Path, got.Path)
	assert.Equal(t, models.DocStatusUploaded, got.Status)
}

func TestGetDocumentNotFound(t *testing.T) {
	st := testutil.SetupTestStore(t)
	_, err := st.GetDocument(42)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListDocumentsNewestFirst(t *testing.T) {
	st := testutil.SetupTestStore(t)

	older := newDocument("older.pdf")
	older.UploadTime = time.Now().Add(-time.Hour)
	require.NoError(t, st.CreateDocument(older))
	newer := newDocument("newer.pdf")
	require.NoError(t, st.CreateDocument(newer))

	docs, err := st.ListDocuments()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "newer.pdf", docs[0].Name)
	assert.Equal(t, "older.pdf", docs[1].Name)
}

func TestUpdateDocumentStatus(t *testing.T) {
	st := testutil.SetupTestStore(t)

	doc := newDocument("paper.pdf")
	require.NoError(t, st.CreateDocument(doc))
	require.NoError(t, st.UpdateDocumentStatus(doc.ID, models.DocStatusAnalyzed))

	got, err := st.GetDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusAnalyzed, got.Status)

	assert.ErrorIs(t, st.UpdateDocumentStatus(9999, models.DocStatusError), store.ErrNotFound)
}

func TestDeleteDocumentCascadesToAnalysis(t *testing.T) {
	st := testutil.SetupTestStore(t)

	doc := newDocument("paper.pdf")
	require.NoError(t, st.CreateDocument(doc))
	require.NoError(t, st.SaveAnalysis(&models.Analysis{DocumentID: doc.ID, Title: "T"}))

	require.NoError(t, st.DeleteDocument(doc.ID))
	_, err := st.GetDocument(doc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.GetAnalysisByDocument(doc.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, st.DeleteDocument(doc.ID), store.ErrNotFound)
}

func TestSaveAnalysisUpsertsPerDocument(t *testing.T) {
	st := testutil.SetupTestStore(t)

	doc := newDocument("paper.pdf")
	require.NoError(t, st.CreateDocument(doc))

	first := &models.Analysis{
		DocumentID: doc.ID,
		Title:      "First Title",
		Authors:    `["A", "B"]`,
		Keywords:   `["x"]`,
		Content:    `{"文献标题": "First Title"}`,
	}
	require.NoError(t, st.SaveAnalysis(first))

	second := &models.Analysis{DocumentID: doc.ID, Title: "Second Title"}
	require.NoError(t, st.SaveAnalysis(second))

	got, err := st.GetAnalysisByDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Second Title", got.Title)

	all, err := st.ListAnalyses()
	require.NoError(t, err)
	assert.Len(t, all, 1, "a re-run overwrites, it does not append")
}

func TestAnalysisDecodedAccessors(t *testing.T) {
	st := testutil.SetupTestStore(t)

	doc := newDocument("paper.pdf")
	require.NoError(t, st.CreateDocument(doc))
	require.NoError(t, st.SaveAnalysis(&models.Analysis{
		DocumentID: doc.ID,
		Authors:    `["Zhang", "Li"]`,
		Keywords:   `["catalysis", "CO2"]`,
		Content:    `{"活性数据": [{"催化剂名称": "Ni"}]}`,
	}))

	got, err := st.GetAnalysisByDocument(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Zhang", "Li"}, got.AuthorList())
	assert.Equal(t, []string{"catalysis", "CO2"}, got.KeywordList())
	assert.Len(t, got.ContentMap()["活性数据"], 1)
}
