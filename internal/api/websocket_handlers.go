// Handler for the per-document progress WebSocket.

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junwei-lu/litscan/internal/store"
)

// closeNoSuchDocument is the application close code sent when a client
// subscribes to a document that does not exist.
const closeNoSuchDocument = 4001

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleAnalysisWs(w http.ResponseWriter, r *http.Request) {
	id, err := documentIDParam(r)
	if err != nil {
		http.Error(w, "Invalid document ID", http.StatusBadRequest)
		return
	}

	if _, err := s.store.GetDocument(id); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Failed to load document", http.StatusInternalServerError)
			return
		}
		// The handshake still completes so the client receives a proper
		// close frame instead of an opaque HTTP failure.
		conn, upgradeErr := wsUpgrader.Upgrade(w, r, nil)
		if upgradeErr != nil {
			return
		}
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeNoSuchDocument, "Document not found"), deadline)
		conn.Close()
		return
	}

	s.app.Hub().ServeWs(w, r, id)
}
