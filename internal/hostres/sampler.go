// Package hostres samples host CPU usage as an advisory signal for the
// streaming producer's adaptive batching. It is deliberately the "measured"
// half of the capacity story; the authoritative, configured half stays in
// queue.MemoryAccountant / queue.BackoffController. Grounded on
// adred-codev-ws_poc/src/capacity.go's DynamicCapacityManager and
// resource_guard.go's 100ms-sample rationale.
package hostres

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
)

// Reading is a point-in-time host resource sample.
type Reading struct {
	CPUPercent float64
	SampledAt  time.Time
}

// Sampler periodically measures host CPU usage on a background goroutine and
// exposes the latest reading without blocking callers. A zero-value Sampler
// (not constructed via New) is unsafe to use; callers that don't want host
// monitoring should simply not construct one and treat nil as "unavailable".
type Sampler struct {
	logger zerolog.Logger
	period time.Duration

	mu      sync.RWMutex
	latest  Reading
}

// New constructs a Sampler. period is the gap between CPU samples (each
// sample itself blocks for 100ms, matching resource_guard.go's rationale for
// avoiding both cpu.Percent(0,...)'s invalid first reading and
// cpu.Percent(1s,...)'s longer block).
func New(period time.Duration, logger zerolog.Logger) *Sampler {
	if period <= 0 {
		period = 5 * time.Second
	}
	return &Sampler{logger: logger.With().Str("component", "hostres.Sampler").Logger(), period: period}
}

// Run samples CPU usage on a ticker until ctx is canceled. Intended to run
// in its own goroutine.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	s.sampleOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce()
		}
	}
}

func (s *Sampler) sampleOnce() {
	pcts, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil || len(pcts) == 0 {
		s.logger.Warn().Err(err).Msg("cpu sample failed")
		return
	}
	s.mu.Lock()
	s.latest = Reading{CPUPercent: pcts[0], SampledAt: time.Now()}
	s.mu.Unlock()
}

// Latest returns the most recent reading. Before the first sample completes
// it is the zero value (CPUPercent 0).
func (s *Sampler) Latest() Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// UnderPressure reports whether the latest CPU reading exceeds thresholdPct.
// A nil Sampler (host monitoring disabled) always reports false.
func (s *Sampler) UnderPressure(thresholdPct float64) bool {
	if s == nil {
		return false
	}
	return s.Latest().CPUPercent > thresholdPct
}
