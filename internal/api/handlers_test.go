package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junwei-lu/litscan/internal/analyzer"
	"github.com/junwei-lu/litscan/internal/api"
	"github.com/junwei-lu/litscan/internal/config"
	"github.com/junwei-lu/litscan/internal/core"
	"github.com/junwei-lu/litscan/internal/extract"
	"github.com/junwei-lu/litscan/internal/models"
	"github.com/junwei-lu/litscan/internal/testutil"
)

// Uploads auto-start analysis, so every test needs extractors that do
// not require the cgo MuPDF bindings. The fakes read the stored bytes
// back as plain text.
func init() {
	readBack := extract.ExtractorFunc(func(path string) (string, error) {
		data, err := os.ReadFile(path)
		return string(data), err
	})
	extract.Register(".pdf", readBack)
	extract.Register(".docx", readBack)
}

// scriptedLLM replays canned responses; with none configured it echoes
// the last user message.
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	calls     int
}

func (c *scriptedLLM) Complete(ctx context.Context, messages []analyzer.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.responses) == 0 {
		return "echo: " + messages[len(messages)-1].Content, nil
	}
	resp := c.responses[c.calls%len(c.responses)]
	c.calls++
	return resp, nil
}

func setupTestServer(t *testing.T, llm analyzer.Client) (*httptest.Server, *core.App) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Uploads.Path = t.TempDir()
	cfg.Uploads.MaxSizeMB = 10
	cfg.Cache.Path = t.TempDir()
	cfg.Analysis.OverallTimeout = 10 * time.Second
	cfg.Analysis.ItemDelay = time.Millisecond

	app, err := core.Build(cfg, testutil.SetupTestDB(t), llm)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	srv := httptest.NewServer(api.NewServer(app).Router())
	t.Cleanup(srv.Close)
	return srv, app
}

func uploadFile(t *testing.T, srv *httptest.Server, filename, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/api/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestUploadAndListDocuments(t *testing.T) {
	srv, app := setupTestServer(t, &scriptedLLM{})

	resp := uploadFile(t, srv, "catalysis study.pdf", "%PDF-1.4 fake content")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var doc models.Document
	decodeBody(t, resp, &doc)
	assert.NotZero(t, doc.ID)
	assert.Equal(t, "catalysis study.pdf", doc.Name)
	assert.Equal(t, "PDF", doc.Type)
	assert.Equal(t, "未分类", doc.Category)
	// Analysis starts in the background as soon as the upload lands.
	assert.Equal(t, models.DocStatusProcessing, doc.Status)

	// The stored file lives under the uploads directory with a random name.
	stored, err := app.Store().GetDocument(doc.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Path, app.Config().Uploads.Path))
	_, err = os.Stat(stored.Path)
	assert.NoError(t, err)

	listResp, err := http.Get(srv.URL + "/api/documents")
	require.NoError(t, err)
	var docs []models.Document
	decodeBody(t, listResp, &docs)
	require.Len(t, docs, 1)
	assert.Equal(t, doc.ID, docs[0].ID)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	srv, _ := setupTestServer(t, &scriptedLLM{})
	resp := uploadFile(t, srv, "notes.txt", "plain text")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadRequiresFileField(t *testing.T) {
	srv, _ := setupTestServer(t, &scriptedLLM{})
	resp, err := http.Post(srv.URL+"/api/upload", "multipart/form-data; boundary=x", strings.NewReader("--x--"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetDocumentNotFound(t *testing.T) {
	srv, _ := setupTestServer(t, &scriptedLLM{})
	resp, err := http.Get(srv.URL + "/api/documents/999")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDownloadDocument(t *testing.T) {
	srv, _ := setupTestServer(t, &scriptedLLM{})

	resp := uploadFile(t, srv, "paper.pdf", "pdf bytes here")
	var doc models.Document
	decodeBody(t, resp, &doc)

	dl, err := http.Get(fmt.Sprintf("%s/api/download/%d", srv.URL, doc.ID))
	require.NoError(t, err)
	defer dl.Body.Close()
	require.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Contains(t, dl.Header.Get("Content-Disposition"), "paper.pdf")
	body, _ := io.ReadAll(dl.Body)
	assert.Equal(t, "pdf bytes here", string(body))
}

func TestDeleteDocumentRemovesRowAndFile(t *testing.T) {
	srv, app := setupTestServer(t, &scriptedLLM{})

	resp := uploadFile(t, srv, "paper.pdf", "content")
	var doc models.Document
	decodeBody(t, resp, &doc)
	stored, err := app.Store().GetDocument(doc.ID)
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/documents/%d", srv.URL, doc.ID), nil)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close()
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	_, err = app.Store().GetDocument(doc.ID)
	assert.Error(t, err)
	_, err = os.Stat(stored.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestAnalyzeUnknownDocument(t *testing.T) {
	srv, _ := setupTestServer(t, &scriptedLLM{})
	resp, err := http.Post(srv.URL+"/api/analyze/424242", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalysisResultNotFound(t *testing.T) {
	srv, _ := setupTestServer(t, &scriptedLLM{})
	resp, err := http.Get(srv.URL + "/api/analysis/5")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProgressEndpointAlwaysResponds(t *testing.T) {
	srv, _ := setupTestServer(t, &scriptedLLM{})
	resp, err := http.Get(srv.URL + "/api/analysis/progress/8")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap models.ProgressSnapshot
	decodeBody(t, resp, &snap)
	assert.Equal(t, int64(8), snap.DocumentID)
	assert.Equal(t, models.ProgressProcessing, snap.Status)
	assert.Equal(t, 0, snap.OverallProgress)
}

// waitForCompletion polls the progress endpoint until the document's
// run reports completed.
func waitForCompletion(t *testing.T, srv *httptest.Server, documentID int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		r, err := http.Get(fmt.Sprintf("%s/api/analysis/progress/%d", srv.URL, documentID))
		if err != nil {
			return false
		}
		var snap models.ProgressSnapshot
		json.NewDecoder(r.Body).Decode(&snap)
		r.Body.Close()
		return snap.Status == models.ProgressCompleted
	}, 5*time.Second, 20*time.Millisecond)
}

func TestAnalyzeEndToEnd(t *testing.T) {
	llm := &scriptedLLM{responses: []string{
		`{"文献标题": "End to End", "关键词": ["catalysis"], "发表年份": "2022"}`,
		"```json\n{\"活性数据\": [{\"催化剂名称\": \"Ru\"}]}\n```\n| 催化剂名称 |\n|---|\n| Ru |",
	}}
	srv, _ := setupTestServer(t, llm)

	resp := uploadFile(t, srv, "paper.pdf", "the full text of the paper")
	var doc models.Document
	decodeBody(t, resp, &doc)
	require.Equal(t, models.DocStatusProcessing, doc.Status)

	waitForCompletion(t, srv, doc.ID)

	result, err := http.Get(fmt.Sprintf("%s/api/analysis/%d", srv.URL, doc.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, result.StatusCode)

	var payload struct {
		Title    string         `json:"title"`
		Year     string         `json:"year"`
		Keywords []string       `json:"keywords"`
		Content  map[string]any `json:"content"`
	}
	decodeBody(t, result, &payload)
	assert.Equal(t, "End to End", payload.Title)
	assert.Equal(t, "2022", payload.Year)
	assert.Equal(t, []string{"catalysis"}, payload.Keywords)
	assert.Len(t, payload.Content["活性数据"], 1)

	// The visualization endpoint now sees the analyzed document.
	viz, err := http.Get(srv.URL + "/api/visualization/activity-data")
	require.NoError(t, err)
	var vizPayload struct {
		Documents int `json:"documents"`
	}
	decodeBody(t, viz, &vizPayload)
	assert.Equal(t, 1, vizPayload.Documents)

	// Reanalyze always relaunches, superseding whatever came before.
	reResp, err := http.Post(fmt.Sprintf("%s/api/documents/%d/reanalyze", srv.URL, doc.ID), "application/json", nil)
	require.NoError(t, err)
	reResp.Body.Close()
	require.Equal(t, http.StatusAccepted, reResp.StatusCode)
	waitForCompletion(t, srv, doc.ID)
}

// blockedLLM parks every call until released, or until the run's
// context is cancelled.
type blockedLLM struct {
	release chan struct{}
}

func (c *blockedLLM) Complete(ctx context.Context, messages []analyzer.Message) (string, error) {
	select {
	case <-c.release:
		return "{}", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestAnalyzeGuardsRunningDocument(t *testing.T) {
	llm := &blockedLLM{release: make(chan struct{})}
	srv, app := setupTestServer(t, llm)

	resp := uploadFile(t, srv, "paper.pdf", "text")
	var doc models.Document
	decodeBody(t, resp, &doc)

	require.Eventually(t, func() bool {
		return app.Supervisor().Running(doc.ID)
	}, 2*time.Second, 10*time.Millisecond)

	anResp, err := http.Post(fmt.Sprintf("%s/api/analyze/%d", srv.URL, doc.ID), "application/json", nil)
	require.NoError(t, err)
	anResp.Body.Close()
	assert.Equal(t, http.StatusConflict, anResp.StatusCode)

	close(llm.release)
	waitForCompletion(t, srv, doc.ID)
}

func TestChatEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t, &scriptedLLM{})

	body := `{"message": "什么是催化剂?", "history": [{"role": "user", "content": "hi"}, {"role": "assistant", "content": "hello"}]}`
	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload map[string]string
	decodeBody(t, resp, &payload)
	assert.Equal(t, "echo: 什么是催化剂?", payload["response"])
}

func TestChatRequiresMessage(t *testing.T) {
	srv, _ := setupTestServer(t, &scriptedLLM{})
	resp, err := http.Post(srv.URL+"/api/chat", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVersionAndHealth(t *testing.T) {
	srv, app := setupTestServer(t, &scriptedLLM{})

	vResp, err := http.Get(srv.URL + "/api/version")
	require.NoError(t, err)
	var version map[string]string
	decodeBody(t, vResp, &version)
	assert.Equal(t, app.Version(), version["version"])

	hResp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	var health map[string]string
	decodeBody(t, hResp, &health)
	assert.Equal(t, "ok", health["status"])
}

func TestJobEndpoints(t *testing.T) {
	srv, _ := setupTestServer(t, &scriptedLLM{})

	stResp, err := http.Get(srv.URL + "/api/admin/jobs/status")
	require.NoError(t, err)
	var statuses []map[string]any
	decodeBody(t, stResp, &statuses)
	require.Len(t, statuses, 1)
	assert.Equal(t, "cache-cleanup", statuses[0]["name"])

	runResp, err := http.Post(srv.URL+"/api/admin/jobs/run", "application/json",
		strings.NewReader(`{"job_id": "cache-cleanup"}`))
	require.NoError(t, err)
	runResp.Body.Close()
	assert.Equal(t, http.StatusAccepted, runResp.StatusCode)

	badResp, err := http.Post(srv.URL+"/api/admin/jobs/run", "application/json",
		strings.NewReader(`{"job_id": "no-such-job"}`))
	require.NoError(t, err)
	badResp.Body.Close()
	assert.Equal(t, http.StatusConflict, badResp.StatusCode)
}
