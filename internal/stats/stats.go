// Package stats accumulates delivery statistics for the engine. The counter
// is an explicitly owned object handed to the dispatcher and the reporting
// loop; it resets with the process and is never persisted.
package stats

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/wb-go/wbf/zlog"
)

// Stats counts successfully dispatched notifications since process start.
type Stats struct {
	start     time.Time
	delivered atomic.Int64
}

// New creates a Stats anchored at the current time.
func New() *Stats {
	return &Stats{start: time.Now()}
}

// Inc records one successful push-and-mark.
func (s *Stats) Inc() {
	s.delivered.Add(1)
}

// Report is a point-in-time view of delivery throughput.
type Report struct {
	Delivered  int64         `json:"delivered"`
	Uptime     time.Duration `json:"uptime"`
	PerSecond  float64       `json:"perSecond"`
	ReportedAt time.Time     `json:"reportedAt"`
}

// Report computes the current totals and mean throughput since start.
func (s *Stats) Report() Report {
	now := time.Now()
	delivered := s.delivered.Load()
	uptime := now.Sub(s.start)

	var perSecond float64
	if secs := uptime.Seconds(); secs > 0 {
		perSecond = float64(delivered) / secs
	}

	return Report{
		Delivered:  delivered,
		Uptime:     uptime,
		PerSecond:  perSecond,
		ReportedAt: now,
	}
}

// Run logs a report on the given cadence until ctx is cancelled.
func (s *Stats) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Log()
		}
	}
}

// Log writes the current report to the service log.
func (s *Stats) Log() {
	r := s.Report()
	zlog.Logger.Info().
		Int64("delivered", r.Delivered).
		Dur("uptime", r.Uptime).
		Float64("per_second", r.PerSecond).
		Msg("delivery stats")
}
