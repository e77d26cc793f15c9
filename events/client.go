package events

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/mrsingh-rishi/meeting-transcriber/logging"
)

// Conn is the part of a websocket connection a client writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one event listener.
type Client struct {
	ID   string
	Send chan []byte
}

// NewClient returns a client with a buffered send channel.
func NewClient() *Client {
	return &Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
}

// WritePump forwards queued events to conn until ctx is done, the hub
// unregisters the client, or a write fails.
func (c *Client) WritePump(ctx context.Context, conn Conn) {
	defer conn.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-c.Send:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logging.Warning(logging.CategoryEvents, "client %s write error: %v", c.ID, err)
				return
			}
		}
	}
}
