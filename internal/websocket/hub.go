// The broadcast hub: per-document subscriber sets over persistent
// WebSocket connections. The hub caches the last published snapshot per
// document so late subscribers get immediate state, and fans every
// publish out to all live subscribers of that document.

package websocket

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junwei-lu/litscan/internal/models"
	"github.com/junwei-lu/litscan/internal/progress"
)

// Restarter is what the hub asks to relaunch analysis for a document.
// The orchestrator supervisor implements it; the hub itself never owns
// task identity or cancellation.
type Restarter interface {
	Restart(documentID int64) error
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is served same-origin in production and from test harnesses
	// in development, so cross-origin upgrades are accepted.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains the set of active subscribers per document and pushes
// progress snapshots to them.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int64]map[*Client]bool
	latest      map[int64]*models.ProgressSnapshot

	tracker   *progress.Tracker
	restarter Restarter

	heartbeatInterval time.Duration
	deadmanTimeout    time.Duration
}

// NewHub creates a hub bound to the given progress tracker.
func NewHub(tracker *progress.Tracker) *Hub {
	return &Hub{
		subscribers:       make(map[int64]map[*Client]bool),
		latest:            make(map[int64]*models.ProgressSnapshot),
		tracker:           tracker,
		heartbeatInterval: 30 * time.Second,
		deadmanTimeout:    180 * time.Second,
	}
}

// SetRestarter wires in the component that owns analysis tasks. Done
// after construction to avoid a circular dependency between the hub and
// the orchestrator.
func (h *Hub) SetRestarter(r Restarter) {
	h.restarter = r
}

// SetTimeouts overrides the heartbeat receive interval and the dead-man
// timeout. The timeout should be much larger than the interval.
func (h *Hub) SetTimeouts(heartbeatInterval, deadmanTimeout time.Duration) {
	if heartbeatInterval > 0 {
		h.heartbeatInterval = heartbeatInterval
	}
	if deadmanTimeout > 0 {
		h.deadmanTimeout = deadmanTimeout
	}
}

// ServeWs upgrades an HTTP request to a WebSocket connection subscribed
// to one document's progress stream.
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request, documentID int64) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed for document %d: %v", documentID, err)
		return
	}

	client := newClient(h, conn, documentID)
	h.subscribe(client)

	go client.writePump()
	go client.readPump()
}

// subscribe registers the client and immediately queues the connection
// acknowledgement plus the latest known snapshot, so every subscriber
// sees consistent state even if no further update ever arrives.
func (h *Hub) subscribe(c *Client) {
	h.mu.Lock()
	set, ok := h.subscribers[c.documentID]
	if !ok {
		set = make(map[*Client]bool)
		h.subscribers[c.documentID] = set
	}
	set[c] = true
	snap := h.latest[c.documentID]
	h.mu.Unlock()

	log.Printf("WebSocket subscribed to document %d (%d active)", c.documentID, h.SubscriberCount(c.documentID))

	c.enqueueJSON(map[string]any{"type": "connection_established", "document_id": c.documentID})

	if snap == nil {
		// No publish yet for this document; fail open with a fresh record.
		snap = h.tracker.Get(c.documentID)
	}
	c.enqueueJSON(snap)
}

// unsubscribe removes the client; the last departure deletes the empty
// subscriber set. The cached snapshot persists for later subscribers.
func (h *Hub) unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[c.documentID]
	if !ok {
		return
	}
	if _, present := set[c]; !present {
		return
	}
	delete(set, c)
	c.shutdown()
	if len(set) == 0 {
		delete(h.subscribers, c.documentID)
	}
	log.Printf("WebSocket unsubscribed from document %d (%d remaining)", c.documentID, len(set))
}

// Publish caches the snapshot as the latest state for the document and
// delivers it to every current subscriber. Delivery is best-effort per
// connection: a subscriber whose send buffer is full is dropped, and the
// remaining subscribers are unaffected.
func (h *Hub) Publish(documentID int64, snap *models.ProgressSnapshot) {
	payload, err := marshalMessage(snap)
	if err != nil {
		log.Printf("Could not marshal progress snapshot for document %d: %v", documentID, err)
		return
	}

	h.mu.Lock()
	h.latest[documentID] = snap.Clone()
	var stalled []*Client
	for c := range h.subscribers[documentID] {
		select {
		case c.send <- payload:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stalled {
		log.Printf("Dropping stalled subscriber of document %d", documentID)
		h.unsubscribe(c)
		c.conn.Close()
	}
}

// Latest returns the most recently published snapshot for a document,
// or nil if nothing has been published since process start.
func (h *Hub) Latest(documentID int64) *models.ProgressSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snap := h.latest[documentID]
	if snap == nil {
		return nil
	}
	return snap.Clone()
}

// SubscriberCount reports how many connections are subscribed to a
// document.
func (h *Hub) SubscriberCount(documentID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[documentID])
}

// restartAnalysis handles a subscriber's restart request: reset progress,
// broadcast the fresh snapshot to everyone, then ask the supervisor to
// relaunch the task. Returns the outcome for the restart_response reply.
func (h *Hub) restartAnalysis(documentID int64) (bool, string) {
	snap := h.tracker.Init(documentID)
	h.Publish(documentID, snap)

	if h.restarter == nil {
		return false, "analysis restart is not available"
	}
	if err := h.restarter.Restart(documentID); err != nil {
		log.Printf("Restart of analysis for document %d failed: %v", documentID, err)
		errSnap := h.tracker.SetError(documentID, err.Error())
		h.Publish(documentID, errSnap)
		return false, "failed to restart analysis: " + err.Error()
	}
	return true, "analysis restarted"
}
