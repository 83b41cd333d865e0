// Package testutil holds fakes shared by package tests.
package testutil

import (
	"sync"

	"github.com/mossy-p/realtime-signaling/internal/models"
)

// Conn records every event sent to it
type Conn struct {
	id     string
	mu     sync.Mutex
	events []models.Event
	closed bool
}

// NewConn creates a recording connection
func NewConn(id string) *Conn {
	return &Conn{id: id}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(event models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.events = append(c.events, event)
	return true
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Events returns a copy of the recorded events
func (c *Conn) Events() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Event, len(c.events))
	copy(out, c.events)
	return out
}

// OfType returns the recorded events of type t
func (c *Conn) OfType(t models.EventType) []models.Event {
	var out []models.Event
	for _, e := range c.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops the recorded events
func (c *Conn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
