// Package registry tracks which recipients are currently reachable over a
// live push connection. It is the single source of truth for reachability
// and the only state shared between connection handlers and the poller.
package registry

import (
	"sync"
)

// Conn is an open push-capable connection handle. The registry owns only
// the recipient-to-handle mapping, not the transport lifetime.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Registry is a mutex-guarded map from recipient id to connection handle.
// At most one entry exists per recipient at any instant.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register inserts or replaces the entry for recipientID (last-writer-wins)
// and returns the displaced handle, if any, so the caller can close it.
func (r *Registry) Register(recipientID string, conn Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[recipientID]
	r.conns[recipientID] = conn

	return prev
}

// Unregister removes the entry for recipientID, but only while it still maps
// to conn. A replaced connection's dying read loop therefore cannot evict
// its successor.
func (r *Registry) Unregister(recipientID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns[recipientID] == conn {
		delete(r.conns, recipientID)
	}
}

// Lookup returns the connection handle for recipientID, if present.
func (r *Registry) Lookup(recipientID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[recipientID]
	return conn, ok
}

// Snapshot returns the recipient ids currently registered, taken at a
// single instant under the lock.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}

	return ids
}

// Len returns the number of registered recipients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.conns)
}

// CloseAll closes every registered connection and empties the registry.
// Used during graceful shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, conn := range r.conns {
		_ = conn.Close()
		delete(r.conns, id)
	}
}
