package api_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisWsUnknownDocumentClosesWithAppCode(t *testing.T) {
	srv, _ := setupTestServer(t, &scriptedLLM{})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/analysis/999"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err, "the handshake itself should succeed")
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, 4001, closeErr.Code)
	assert.Equal(t, "Document not found", closeErr.Text)
}

func TestAnalysisWsStreamsForExistingDocument(t *testing.T) {
	srv, _ := setupTestServer(t, &scriptedLLM{})

	resp := uploadFile(t, srv, "paper.pdf", "content")
	var doc struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, resp, &doc)

	url := fmt.Sprintf("ws%s/ws/analysis/%d", strings.TrimPrefix(srv.URL, "http"), doc.ID)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "connection_established", msg["type"])
	assert.Equal(t, float64(doc.ID), msg["document_id"])
}
