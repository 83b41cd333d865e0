package registry

import (
	"sort"
	"sync"

	"github.com/mossy-p/realtime-signaling/internal/models"
)

// Conn is a handle to one live client connection
type Conn interface {
	ID() string
	// Send enqueues an event without blocking and reports whether it was accepted
	Send(event models.Event) bool
	Close()
}

// Registry maps user IDs to their single live connection.
// A second Register for the same user replaces the first (last writer wins).
type Registry struct {
	conns map[string]Conn
	mu    sync.RWMutex
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		conns: make(map[string]Conn),
	}
}

// Register maps userID to conn and returns the handle it replaced, if any
func (r *Registry) Register(userID string, conn Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	previous := r.conns[userID]
	r.conns[userID] = conn
	if previous == conn {
		return nil
	}
	return previous
}

// Unregister removes the mapping for userID if present
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, userID)
}

// Release removes the mapping only while it still points at conn.
// A superseded connection that closes late must not evict its successor.
func (r *Registry) Release(userID string, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.conns[userID]
	if !ok || current != conn {
		return false
	}
	delete(r.conns, userID)
	return true
}

// Lookup returns the live connection for userID
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[userID]
	return conn, ok
}

// Snapshot returns the sorted set of online user IDs
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Conns returns every live connection
func (r *Registry) Conns() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// Len returns the number of online users
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
