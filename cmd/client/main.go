// Reference websocket client for manual testing: connects as a recipient
// and prints everything the server pushes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wb-go/wbf/zlog"
)

func main() {
	var (
		server   = flag.String("server", "ws://localhost:3000/notifications", "stream endpoint URL")
		clientID = flag.String("client-id", "", "recipient identifier (required)")
	)
	flag.Parse()

	zlog.Init()

	if *clientID == "" {
		zlog.Logger.Fatal().Msg("no client id specified, run with -client-id <id>")
	}

	u, err := url.Parse(*server)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("invalid server URL")
	}

	q := u.Query()
	q.Set("clientId", *clientID)
	u.RawQuery = q.Encode()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Logger.Info().Str("url", u.String()).Msg("connecting")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect")
	}

	go func() {
		<-ctx.Done()
		zlog.Logger.Info().Msg("shutting down")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			zlog.Logger.Fatal().Err(err).Msg("connection lost")
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			zlog.Logger.Error().Err(err).Str("raw", string(data)).Msg("failed to parse message")
			continue
		}

		switch msg.Type {
		case "notification":
			zlog.Logger.Info().Str("client", *clientID).RawJSON("data", msg.Data).Msg("received notification")
		default:
			zlog.Logger.Info().Str("raw", string(data)).Msg("received message")
		}
	}
}
