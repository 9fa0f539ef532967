package queue

import (
	"sync"
	"sync/atomic"
)

// PressureConfig configures the throttle/drop thresholds and the factors
// applied above them. Grounded on spec.md §4.3 and, for the throttle-factor
// idea of shrinking batch size under load, on
// adred-codev-ws_poc/src/resource_guard.go's ShouldPauseNATS/rate-limiter
// pairing.
type PressureConfig struct {
	ThrottleThresholdPercent float64
	DropThresholdPercent     float64
	ThrottleFactor           float64 // e.g. 0.5 halves the producer's batch size
	RecoveryFactor           float64 // throttling clears below ThrottleThresholdPercent*RecoveryFactor
}

// DefaultPressureConfig returns conservative defaults: throttle at 75%,
// drop at 90%, halve batches while throttling, recover at 90% of the
// throttle threshold.
func DefaultPressureConfig() PressureConfig {
	return PressureConfig{
		ThrottleThresholdPercent: 75,
		DropThresholdPercent:     90,
		ThrottleFactor:           0.5,
		RecoveryFactor:           0.9,
	}
}

// PressureResponder applies the queue's throttle/drop policy above the
// configured thresholds (spec.md §4.3). It is cheap to call from the
// enqueue hot path: a briefly held mutex around the throttling flag plus an
// atomic drop counter.
type PressureResponder struct {
	cfg PressureConfig

	mu           sync.Mutex
	isThrottling bool

	dropCount atomic.Uint64
}

// NewPressureResponder builds a responder from the given config.
func NewPressureResponder(cfg PressureConfig) *PressureResponder {
	return &PressureResponder{cfg: cfg}
}

// Evaluate updates throttling state from the current usage percent and
// reports whether an enqueue at this usage level should be dropped.
func (p *PressureResponder) Evaluate(usagePercent float64) (shouldDrop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case usagePercent >= p.cfg.DropThresholdPercent:
		p.isThrottling = true
		p.dropCount.Add(1)
		return true
	case usagePercent >= p.cfg.ThrottleThresholdPercent:
		p.isThrottling = true
		return false
	case usagePercent < p.cfg.ThrottleThresholdPercent*p.cfg.RecoveryFactor:
		p.isThrottling = false
		return false
	default:
		// Between recovery point and throttle threshold: leave state as-is.
		return false
	}
}

// IsThrottling reports the current throttling state.
func (p *PressureResponder) IsThrottling() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isThrottling
}

// ThrottledBatchSize applies ThrottleFactor to a batch size while
// throttling, rounding down but never below 1.
func (p *PressureResponder) ThrottledBatchSize(base int) int {
	if !p.IsThrottling() || base <= 1 {
		return base
	}
	reduced := int(float64(base) * p.cfg.ThrottleFactor)
	if reduced < 1 {
		reduced = 1
	}
	return reduced
}

// DropCount returns the number of enqueues rejected via MessageDropped.
func (p *PressureResponder) DropCount() uint64 {
	return p.dropCount.Load()
}
