package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/sonogest/internal/control"
	"github.com/ayusman/sonogest/internal/log"
)

const (
	writeWait      = 2 * time.Second
	clientSendSize = 32
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Event is the envelope for every message sent on /ws/state.
type Event struct {
	Type  string            `json:"type"`
	State *control.Snapshot `json:"state,omitempty"`
	Hz    float64           `json:"hz,omitempty"`
}

// Hub broadcasts state snapshots and frequency changes to websocket clients.
type Hub struct {
	current func() control.Snapshot
	clients map[*client]struct{}
	mu      sync.RWMutex
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub. current supplies the snapshot sent to new clients.
func NewHub(current func() control.Snapshot) *Hub {
	return &Hub{
		current: current,
		clients: make(map[*client]struct{}),
	}
}

// Publish broadcasts a snapshot. It has the control.Listener signature.
func (h *Hub) Publish(snap control.Snapshot) {
	h.broadcast(Event{Type: "state", State: &snap})
}

// SetFrequency broadcasts a synth frequency change.
func (h *Hub) SetFrequency(hz float64) {
	h.broadcast(Event{Type: "frequency", Hz: hz})
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	c := &client{conn: conn, send: make(chan []byte, clientSendSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	// Registered before the snapshot is taken, so no broadcast is missed.
	if h.current != nil {
		snap := h.current()
		if msg, err := json.Marshal(Event{Type: "state", State: &snap}); err == nil {
			h.enqueue(c, msg)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(c)
	<-done
}

// enqueue sends msg to c unless c was removed or its buffer is full.
func (h *Hub) enqueue(c *client, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(ev)
	if err != nil {
		log.Warn("failed to encode event", "type", ev.Type, "error", err)
		return
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow client, drop this event.
		}
	}
}

func (c *client) writePump() {
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			// Unblock the read loop so ServeHTTP can unregister.
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.conn.Close()
}
