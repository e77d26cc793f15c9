// Package events broadcasts fire-and-forget recorder events to whoever is
// listening: log output, websocket clients and in-process subscribers.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/mrsingh-rishi/meeting-transcriber/logging"
	"github.com/mrsingh-rishi/meeting-transcriber/queue"
)

// TypeError is the type of error events.
const TypeError = "error"

// Event is the wire form of a broadcast event.
type Event struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Emitter is what the recorder needs to raise events.
type Emitter interface {
	Emit(Event)
}

// Hub fans events out to registered clients. Slow clients lose events rather
// than block the emitter.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	recent  *queue.Queue[Event]
}

// NewHub returns a hub remembering the last backlog events.
func NewHub(backlog int) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		recent:  queue.NewBounded[Event](backlog),
	}
}

// Error emits an error event with message.
func (h *Hub) Error(message string) {
	h.Emit(Event{Type: TypeError, Message: message})
}

// Emit broadcasts ev to every client without blocking.
func (h *Hub) Emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	h.recent.Enqueue(ev)

	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error(logging.CategoryEvents, "encode event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.Send <- data:
		default:
			logging.Warning(logging.CategoryEvents, "client %s send buffer full, dropping event", c.ID)
		}
	}
}

// Recent returns the remembered events, oldest first.
func (h *Hub) Recent() []Event {
	return h.recent.Snapshot()
}

// Register adds c to the broadcast set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	logging.Debug(logging.CategoryEvents, "client %s registered", c.ID)
}

// Unregister removes c and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.Send)
		logging.Debug(logging.CategoryEvents, "client %s unregistered", c.ID)
	}
}

// Len returns the number of registered clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
