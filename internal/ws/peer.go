// Package ws wraps the websocket transport: the wire envelopes and a
// write-serialized peer handle stored in the connection registry.
package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Peer is a registered websocket connection. gorilla/websocket permits at
// most one concurrent writer per connection, so all writes go through a
// mutex: the dispatcher and the handshake greeting may race otherwise.
type Peer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewPeer wraps an upgraded websocket connection.
func NewPeer(conn *websocket.Conn) *Peer {
	return &Peer{conn: conn}
}

// WriteJSON sends v as a single JSON text frame.
func (p *Peer) WriteJSON(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.conn.WriteJSON(v)
}

// Close closes the underlying connection. Pending reads fail immediately.
func (p *Peer) Close() error {
	return p.conn.Close()
}

// ReadMessage blocks until the next inbound frame. Only the connection
// handler's read loop may call it.
func (p *Peer) ReadMessage() (int, []byte, error) {
	return p.conn.ReadMessage()
}
