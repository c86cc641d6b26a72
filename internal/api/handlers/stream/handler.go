// Package stream implements the websocket boundary of the delivery engine:
// handshake, registration, the welcome push, and the inbound read loop.
package stream

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/igronus/notify/internal/registry"
	"github.com/igronus/notify/internal/ws"
)

const closeGracePeriod = time.Second

// Handler upgrades connection requests and keeps the registry in sync with
// connection lifecycles.
type Handler struct {
	registry *registry.Registry
	upgrader websocket.Upgrader
	welcome  string
}

// NewHandler creates a new stream Handler.
func NewHandler(r *registry.Registry, welcome string) *Handler {
	return &Handler{
		registry: r,
		upgrader: websocket.Upgrader{
			// The authoring API already allows any origin; the stream
			// endpoint matches it.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		welcome: welcome,
	}
}

// Serve handles a connection request on the stream endpoint.
//
// The recipient identifier is mandatory and arrives as the clientId query
// parameter. A request without it is answered with a policy-violation close
// and never reaches the registry.
func (h *Handler) Serve(c *ginext.Context) {
	clientID := c.Query("clientId")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zlog.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	if clientID == "" {
		zlog.Logger.Warn().Msg("connection attempt without clientId rejected")
		h.reject(conn, "clientId query parameter is required")
		return
	}

	peer := ws.NewPeer(conn)

	// Last-writer-wins: a fresh connection for an already-registered
	// recipient displaces the old one, which is closed here.
	if prev := h.registry.Register(clientID, peer); prev != nil {
		zlog.Logger.Info().Str("recipient", clientID).Msg("replacing existing connection")
		_ = prev.Close()
	}

	zlog.Logger.Info().Str("recipient", clientID).Int("connected", h.registry.Len()).Msg("recipient connected")

	if err := peer.WriteJSON(ws.NewWelcome(h.welcome)); err != nil {
		zlog.Logger.Warn().Err(err).Str("recipient", clientID).Msg("failed to push welcome message")
	}

	h.readLoop(clientID, peer)

	h.registry.Unregister(clientID, peer)
	_ = peer.Close()

	zlog.Logger.Info().Str("recipient", clientID).Int("connected", h.registry.Len()).Msg("recipient disconnected")
}

// readLoop drains inbound frames until the connection dies. Inbound
// messages trigger no state change; they are logged and kept for future use.
func (h *Handler) readLoop(clientID string, peer *ws.Peer) {
	for {
		_, data, err := peer.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				zlog.Logger.Warn().Err(err).Str("recipient", clientID).Msg("connection closed uncleanly")
			}
			return
		}

		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			zlog.Logger.Warn().Str("recipient", clientID).Str("raw", string(data)).Msg("ignoring malformed inbound message")
			continue
		}

		zlog.Logger.Info().Str("recipient", clientID).Interface("message", payload).Msg("inbound message")
	}
}

// reject closes a connection with a 1008 policy-violation frame before the
// peer is ever registered.
func (h *Handler) reject(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	_ = conn.Close()
}
