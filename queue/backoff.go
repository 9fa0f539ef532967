package queue

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// BackoffStrategyKind selects which delay formula the controller applies.
type BackoffStrategyKind int

const (
	BackoffExponential BackoffStrategyKind = iota
	BackoffLinear
	BackoffAdaptive
)

// BackoffConfig configures a BackoffController. Grounded on
// original_source/src/queue/backoff.rs (BackoffConfig/BackoffStrategy),
// fields renamed to Go convention.
type BackoffConfig struct {
	Strategy                    BackoffStrategyKind
	InitialDelay                time.Duration
	MaxDelay                    time.Duration
	Multiplier                  float64 // exponential
	IncrementDelay              time.Duration // linear
	MaxRetries                  uint32
	MemoryPressureThresholdPct  float64
	SuccessFactor               float64 // adaptive, < 1
	FailureFactor                float64 // adaptive, > 1
	MemoryRecoveryFactor        float64 // adaptive, < 1
}

// Validate rejects the configurations spec.md §4.2 calls out: zero initial
// delay, max < initial, multiplier <= 1, zero max retries, threshold outside
// [0,100].
func (c BackoffConfig) Validate() error {
	if c.InitialDelay <= 0 {
		return fmt.Errorf("backoff: initial delay must be > 0")
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("backoff: max delay must be >= initial delay")
	}
	if c.Multiplier <= 1 {
		return fmt.Errorf("backoff: multiplier must be > 1")
	}
	if c.MaxRetries == 0 {
		return fmt.Errorf("backoff: max retries must be > 0")
	}
	if c.MemoryPressureThresholdPct < 0 || c.MemoryPressureThresholdPct > 100 {
		return fmt.Errorf("backoff: memory pressure threshold must be in [0,100]")
	}
	return nil
}

// ConservativeBackoff is a preset with longer delays and more retries.
func ConservativeBackoff() BackoffConfig {
	return BackoffConfig{
		Strategy: BackoffExponential, InitialDelay: 50 * time.Millisecond,
		MaxDelay: 10 * time.Second, Multiplier: 2.5, MaxRetries: 15,
		MemoryPressureThresholdPct: 70, SuccessFactor: 0.7, FailureFactor: 1.5,
		MemoryRecoveryFactor: 0.8,
	}
}

// BalancedBackoff is a preset with moderate settings.
func BalancedBackoff() BackoffConfig {
	return BackoffConfig{
		Strategy: BackoffExponential, InitialDelay: 20 * time.Millisecond,
		MaxDelay: 3 * time.Second, Multiplier: 2.0, MaxRetries: 8,
		MemoryPressureThresholdPct: 75, SuccessFactor: 0.75, FailureFactor: 1.4,
		MemoryRecoveryFactor: 0.85,
	}
}

// AggressiveBackoff is a preset with shorter delays and fewer retries.
func AggressiveBackoff() BackoffConfig {
	return BackoffConfig{
		Strategy: BackoffExponential, InitialDelay: 5 * time.Millisecond,
		MaxDelay: time.Second, Multiplier: 1.5, MaxRetries: 5,
		MemoryPressureThresholdPct: 90, SuccessFactor: 0.8, FailureFactor: 1.3,
		MemoryRecoveryFactor: 0.9,
	}
}

// BackoffController computes producer delay from pressure and the active
// strategy; it never itself sleeps (the caller/producer performs the
// cooperative wait), matching spec.md §4.2.
type BackoffController struct {
	cfg BackoffConfig

	currentLevel  atomic.Uint32
	totalEvents   atomic.Uint64
	totalDelay    atomic.Int64 // nanoseconds

	mu             sync.Mutex
	lastSuccessAt  time.Time
	haveSuccess    bool
}

// NewBackoffController builds a controller from a validated config. Callers
// should check Validate() first; an invalid config is not rejected here to
// keep construction infallible, but its behavior is undefined.
func NewBackoffController(cfg BackoffConfig) *BackoffController {
	return &BackoffController{cfg: cfg}
}

// ShouldTrigger reports whether the given pressure level should trigger a
// backoff delay at all, before computing one.
func (b *BackoffController) ShouldTrigger(pressure PressureLevel, usagePercent float64) bool {
	switch pressure {
	case PressureNormal:
		return false
	case PressureModerate:
		return usagePercent > b.cfg.MemoryPressureThresholdPct
	default: // High, Critical
		return true
	}
}

// Delay computes the delay for the current state and pressure reading,
// advancing the backoff level on trigger and resetting it (recording a
// success) otherwise. It never sleeps.
func (b *BackoffController) Delay(pressure PressureLevel, usagePercent float64) time.Duration {
	if !b.ShouldTrigger(pressure, usagePercent) {
		b.reset()
		return 0
	}

	level := b.currentLevel.Load()
	delay := b.calculate(level, usagePercent)

	b.totalEvents.Add(1)
	b.totalDelay.Add(int64(delay))

	if level < b.cfg.MaxRetries {
		b.currentLevel.Store(level + 1)
	}

	return delay
}

func (b *BackoffController) calculate(level uint32, usagePercent float64) time.Duration {
	var delay time.Duration

	switch b.cfg.Strategy {
	case BackoffLinear:
		delay = b.cfg.InitialDelay + time.Duration(level)*b.cfg.IncrementDelay
	case BackoffAdaptive:
		delay = b.cfg.InitialDelay
		b.mu.Lock()
		recent := b.haveSuccess && time.Since(b.lastSuccessAt) < time.Second
		b.mu.Unlock()
		if recent {
			delay = time.Duration(float64(delay) * b.cfg.SuccessFactor)
		} else {
			delay = time.Duration(float64(delay) * b.cfg.FailureFactor)
		}
		if usagePercent > 0 && usagePercent < b.cfg.MemoryPressureThresholdPct {
			delay = time.Duration(float64(delay) * b.cfg.MemoryRecoveryFactor)
		}
	default: // Exponential
		mult := 1.0
		for i := uint32(0); i < level; i++ {
			mult *= b.cfg.Multiplier
		}
		delay = time.Duration(float64(b.cfg.InitialDelay) * mult)
	}

	if delay > b.cfg.MaxDelay {
		delay = b.cfg.MaxDelay
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

func (b *BackoffController) reset() {
	b.currentLevel.Store(0)
	b.mu.Lock()
	b.lastSuccessAt = time.Now()
	b.haveSuccess = true
	b.mu.Unlock()
}

// BackoffMetrics is a point-in-time snapshot of controller counters.
type BackoffMetrics struct {
	TotalEvents  uint64
	TotalDelay   time.Duration
	CurrentLevel uint32
}

// Metrics returns the current event count, cumulative delay, and level.
func (b *BackoffController) Metrics() BackoffMetrics {
	return BackoffMetrics{
		TotalEvents:  b.totalEvents.Load(),
		TotalDelay:   time.Duration(b.totalDelay.Load()),
		CurrentLevel: b.currentLevel.Load(),
	}
}
