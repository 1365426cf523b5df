// internal/connections/connection.go
package connections

import (
	"context"
	"sync"
)

// Message is the envelope exchanged with clients: {"type": ..., "data": ...}.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Session is anything the registry can deliver messages to.
type Session interface {
	// Write queues msg without blocking and reports whether it was accepted.
	Write(msg Message) bool
	IsOpen() bool
}

// Connection wraps one player's live WebSocket. A write pump drains OutChan;
// Close stops the pump through Cancel.
type Connection struct {
	PlayerID string
	Cancel   context.CancelFunc
	OutChan  chan Message

	done      chan struct{}
	closeOnce sync.Once
}

func NewConnection(playerID string, buffer int, cancel context.CancelFunc) *Connection {
	return &Connection{
		PlayerID: playerID,
		Cancel:   cancel,
		OutChan:  make(chan Message, buffer),
		done:     make(chan struct{}),
	}
}

// Write pushes msg onto OutChan. It drops the message if the buffer is full
// or the connection is closed.
func (c *Connection) Write(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.OutChan <- msg:
		return true
	default:
		return false
	}
}

func (c *Connection) IsOpen() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Close marks the connection closed and cancels its pumps. Safe to call twice.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.Cancel != nil {
			c.Cancel()
		}
	})
}
