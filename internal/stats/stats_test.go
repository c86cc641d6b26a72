package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStats_CountIsExact(t *testing.T) {
	s := New()

	const workers = 8
	const perWorker = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				s.Inc()
			}
		}()
	}
	wg.Wait()

	r := s.Report()
	assert.Equal(t, int64(workers*perWorker), r.Delivered)
}

func TestStats_Throughput(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		s.Inc()
	}

	time.Sleep(20 * time.Millisecond)

	r := s.Report()
	assert.Equal(t, int64(10), r.Delivered)
	assert.Greater(t, r.Uptime, time.Duration(0))
	assert.InDelta(t, float64(r.Delivered)/r.Uptime.Seconds(), r.PerSecond, 1e-6)
}

func TestStats_ReportIsMonotonic(t *testing.T) {
	s := New()

	first := s.Report()
	s.Inc()
	second := s.Report()

	assert.Equal(t, int64(0), first.Delivered)
	assert.Equal(t, int64(1), second.Delivered)
	assert.GreaterOrEqual(t, second.Uptime, first.Uptime)
}
