// Package delivery implements the delivery engine: the due-notification
// poller and the dispatcher that pushes records to reachable recipients.
package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/igronus/notify/internal/model"
	"github.com/igronus/notify/internal/registry"
	"github.com/igronus/notify/internal/ws"
)

type connLookup interface {
	Lookup(recipientID string) (registry.Conn, bool)
}

type sentMarker interface {
	MarkSent(ctx context.Context, strategy retry.Strategy, id string, deliveredAt time.Time) error
}

type deliveryCounter interface {
	Inc()
}

// Dispatcher pushes a notification over its recipient's live connection and
// advances the record to SENT through the marker, which keeps the cached
// status in step with the store.
type Dispatcher struct {
	registry connLookup
	marker   sentMarker
	stats    deliveryCounter
	strategy retry.Strategy
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(r connLookup, marker sentMarker, stats deliveryCounter, strategy retry.Strategy) *Dispatcher {
	return &Dispatcher{registry: r, marker: marker, stats: stats, strategy: strategy}
}

// Deliver pushes the record to its recipient if a connection is registered,
// then marks it SENT. A recipient that disconnected since the poll cycle's
// snapshot is skipped: the record stays PENDING for a later cycle. Push and
// status update are not atomic; a failure between the two leaves the record
// PENDING and it may be delivered again.
func (d *Dispatcher) Deliver(ctx context.Context, n model.Notification) error {
	conn, ok := d.registry.Lookup(n.RecipientID)
	if !ok {
		return nil
	}

	if err := conn.WriteJSON(ws.NewNotification(n)); err != nil {
		zlog.Logger.Warn().Err(err).
			Str("id", n.ID).
			Str("recipient", n.RecipientID).
			Msg("failed to push notification, leaving pending")
		return fmt.Errorf("push notification %s: %w", n.ID, err)
	}

	if err := d.marker.MarkSent(ctx, d.strategy, n.ID, time.Now()); err != nil {
		zlog.Logger.Error().Err(err).
			Str("id", n.ID).
			Msg("pushed notification but failed to mark it sent")
		return fmt.Errorf("mark notification %s sent: %w", n.ID, err)
	}

	d.stats.Inc()

	return nil
}
