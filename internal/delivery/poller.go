package delivery

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/igronus/notify/internal/model"
)

type dueFinder interface {
	FindDue(ctx context.Context, now int64, recipients []string, limit int64) ([]model.Notification, error)
}

type reachableSet interface {
	Snapshot() []string
}

type dispatcher interface {
	Deliver(ctx context.Context, n model.Notification) error
}

// Poller runs the recurring due-notification scan. Each cycle samples the
// registry membership once, queries the store for due records addressed to
// that set, and hands them to the dispatcher strictly sequentially.
type Poller struct {
	repo       dueFinder
	registry   reachableSet
	dispatcher dispatcher

	interval time.Duration
	limit    int64

	// inFlight is owned exclusively by the poller's own tick; it is armed
	// before any cycle work begins and cleared in a defer, so a slow store
	// query makes subsequent ticks no-ops instead of overlapping cycles.
	inFlight atomic.Bool
}

// NewPoller creates a new Poller.
func NewPoller(repo dueFinder, r reachableSet, d dispatcher, interval time.Duration, limit int64) *Poller {
	return &Poller{
		repo:       repo,
		registry:   r,
		dispatcher: d,
		interval:   interval,
		limit:      limit,
	}
}

// Run drives poll cycles on the configured cadence until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	zlog.Logger.Info().
		Dur("interval", p.interval).
		Int64("batch_limit", p.limit).
		Msg("poller started")

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs a single poll cycle. It returns immediately when a previous
// cycle is still in flight.
func (p *Poller) tick(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer p.inFlight.Store(false)

	reachable := p.registry.Snapshot()
	if len(reachable) == 0 {
		return
	}

	now := time.Now().UnixMilli()

	due, err := p.repo.FindDue(ctx, now, reachable, p.limit)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to query due notifications")
		return
	}

	for _, n := range due {
		// Dispatch failures leave the record PENDING; the cycle carries on
		// with the rest of the batch.
		_ = p.dispatcher.Deliver(ctx, n)
	}
}
