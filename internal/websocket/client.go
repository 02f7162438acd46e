package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Inbound control messages carry a type discriminator and nothing the
// server needs beyond it.
type inboundMessage struct {
	Type string `json:"type"`
}

type heartbeatResponse struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type restartResponse struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func marshalMessage(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Client is one WebSocket subscriber of a document's progress stream.
// Writes go through the buffered send channel so the hub never blocks
// on a slow connection.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	documentID int64
	send       chan []byte

	once sync.Once
	done chan struct{}
}

func newClient(hub *Hub, conn *websocket.Conn, documentID int64) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		documentID: documentID,
		send:       make(chan []byte, 32),
		done:       make(chan struct{}),
	}
}

// shutdown signals the write pump to drain and exit. Safe to call from
// any goroutine, any number of times.
func (c *Client) shutdown() {
	c.once.Do(func() { close(c.done) })
}

// enqueueJSON marshals v and queues it for delivery to this client only.
func (c *Client) enqueueJSON(v any) {
	payload, err := marshalMessage(v)
	if err != nil {
		log.Printf("Could not marshal message for document %d subscriber: %v", c.documentID, err)
		return
	}
	select {
	case c.send <- payload:
	default:
		log.Printf("Send buffer full for document %d subscriber, dropping message", c.documentID)
	}
}

// readPump consumes inbound control messages until the connection dies.
// Every inbound message extends the read deadline; a client silent for
// longer than the dead-man timeout fails the next read and is torn down.
func (c *Client) readPump() {
	defer func() {
		c.hub.unsubscribe(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.deadmanTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.deadmanTimeout))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error for document %d: %v", c.documentID, err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.hub.deadmanTimeout))
		c.handleMessage(raw)
	}
}

// handleMessage dispatches one inbound control message. Unknown or
// malformed messages are ignored; they still count as liveness.
func (c *Client) handleMessage(raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Printf("Ignoring malformed WebSocket message for document %d: %v", c.documentID, err)
		return
	}

	switch msg.Type {
	case "heartbeat":
		c.enqueueJSON(heartbeatResponse{
			Type:      "heartbeat_response",
			Timestamp: time.Now().Format(time.RFC3339),
		})
	case "restart_analysis":
		ok, reason := c.hub.restartAnalysis(c.documentID)
		c.enqueueJSON(restartResponse{
			Type:    "restart_response",
			Success: ok,
			Message: reason,
		})
	default:
		log.Printf("Ignoring WebSocket message of type %q for document %d", msg.Type, c.documentID)
	}
}

// writePump drains the send channel onto the wire and pings the peer on
// the heartbeat cadence. It exits when the hub shuts the client down,
// sending a close frame on the way out.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.heartbeatInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			// Flush anything already queued before closing.
			for {
				select {
				case payload := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					c.conn.WriteMessage(websocket.TextMessage, payload)
					continue
				default:
				}
				break
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
