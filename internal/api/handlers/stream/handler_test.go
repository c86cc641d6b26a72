package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igronus/notify/internal/registry"
	"github.com/igronus/notify/internal/ws"
)

func newTestServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	gin.SetMode(gin.TestMode)

	reg := registry.New()
	h := NewHandler(reg, "welcome aboard")

	e := gin.New()
	e.GET("/notifications", h.Serve)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return srv, reg
}

func wsURL(srv *httptest.Server, query string) string {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/notifications"
	if query != "" {
		u += "?" + query
	}
	return u
}

func TestServe_MissingClientIDRejectedWithPolicyViolation(t *testing.T) {
	srv, reg := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.ClosePolicyViolation, closeErr.Code)

	// The registry was never touched.
	assert.Equal(t, 0, reg.Len())
}

func TestServe_RegistersAndPushesWelcome(t *testing.T) {
	srv, reg := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "clientId=client_1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var welcome ws.WelcomeMessage
	require.NoError(t, json.Unmarshal(data, &welcome))
	assert.Equal(t, ws.TypeWelcome, welcome.Type)
	assert.Equal(t, "welcome aboard", welcome.Message)

	require.Eventually(t, func() bool {
		_, ok := reg.Lookup("client_1")
		return ok
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"client_1"}, reg.Snapshot())
}

func TestServe_UnregistersOnDisconnect(t *testing.T) {
	srv, reg := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "clientId=client_1"), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestServe_ReplacementDisplacesPriorConnection(t *testing.T) {
	srv, reg := newTestServer(t)

	first, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "clientId=client_1"), nil)
	require.NoError(t, err)
	defer first.Close()

	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, 5*time.Millisecond)

	second, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "clientId=client_1"), nil)
	require.NoError(t, err)
	defer second.Close()

	// The first connection is closed by the server; its read fails.
	_ = first.SetReadDeadline(time.Now().Add(time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			break
		}
	}

	// Exactly one live entry remains and the replacement still works: it
	// receives pushes written through the registry's current handle.
	assert.Equal(t, 1, reg.Len())

	handle, ok := reg.Lookup("client_1")
	require.True(t, ok)
	require.NoError(t, handle.WriteJSON(ws.NewWelcome("still here")))

	_ = second.SetReadDeadline(time.Now().Add(time.Second))
	for {
		_, data, err := second.ReadMessage()
		require.NoError(t, err)

		var msg ws.WelcomeMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Message == "still here" {
			break
		}
	}
}

func TestServe_MalformedInboundIsIgnored(t *testing.T) {
	srv, reg := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "clientId=client_1"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return reg.Len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("definitely not json")))

	// The connection stays open and registered.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, reg.Len())
}
