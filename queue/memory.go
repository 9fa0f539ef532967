package queue

import (
	"sync"
	"sync/atomic"
	"time"
)

// PressureLevel discretizes memory utilization for use by the backoff
// controller and pressure responder. Thresholds are configurable on
// MemoryAccountant; the defaults match spec.md §3: Normal < 60%, Moderate
// 60-75%, High 75-90%, Critical >= 90%.
type PressureLevel int

const (
	PressureNormal PressureLevel = iota
	PressureModerate
	PressureHigh
	PressureCritical
)

func (p PressureLevel) String() string {
	switch p {
	case PressureNormal:
		return "normal"
	case PressureModerate:
		return "moderate"
	case PressureHigh:
		return "high"
	case PressureCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// PressureThresholds holds the percentage boundaries between levels.
type PressureThresholds struct {
	ModeratePercent float64
	HighPercent     float64
	CriticalPercent float64
}

// DefaultPressureThresholds returns the spec.md §3 defaults.
func DefaultPressureThresholds() PressureThresholds {
	return PressureThresholds{ModeratePercent: 60, HighPercent: 75, CriticalPercent: 90}
}

type memorySample struct {
	at        time.Time
	allocated int64
}

// MemoryAccountant tracks allocated bytes against a limit using atomics on
// the hot path, with an optional bounded history ring guarded by a short
// mutex; the leak heuristic reads the atomic alloc/dealloc counters. Grounded on
// original_source/src/queue/memory.rs (QueueMemoryStats) generalized to the
// allocate/deallocate/pressure contract spec.md §4.1 specifies, and on the
// atomic-counter style of adred-codev-ws_poc/src/resource_guard.go.
type MemoryAccountant struct {
	limit      int64
	thresholds PressureThresholds

	allocated  atomic.Int64
	peak       atomic.Int64
	allocCount atomic.Uint64
	deallocCount atomic.Uint64

	historyMu   sync.Mutex
	history     []memorySample
	historyCap  int

	leakThreshold float64 // alloc_count / max(dealloc_count,1) above this is "concerning"
}

// NewMemoryAccountant creates an accountant with the given byte limit and
// default pressure thresholds. historyCap of 0 disables history recording.
func NewMemoryAccountant(limit int64, historyCap int) *MemoryAccountant {
	return &MemoryAccountant{
		limit:         limit,
		thresholds:    DefaultPressureThresholds(),
		historyCap:    historyCap,
		history:       make([]memorySample, 0, historyCap),
		leakThreshold: 10.0,
	}
}

// WithThresholds overrides the pressure level boundaries.
func (m *MemoryAccountant) WithThresholds(t PressureThresholds) *MemoryAccountant {
	m.thresholds = t
	return m
}

// Allocate attempts to charge n bytes against the limit. It succeeds (and
// returns true) iff the resulting total does not exceed the limit. No
// operation here blocks longer than a CAS loop plus, at most, a bounded
// slice append under historyMu.
func (m *MemoryAccountant) Allocate(n int64) bool {
	for {
		cur := m.allocated.Load()
		next := cur + n
		if next > m.limit {
			return false
		}
		if m.allocated.CompareAndSwap(cur, next) {
			m.allocCount.Add(1)
			for {
				peak := m.peak.Load()
				if next <= peak || m.peak.CompareAndSwap(peak, next) {
					break
				}
			}
			m.recordHistory(next)
			return true
		}
	}
}

// Deallocate releases n bytes, saturating at zero.
func (m *MemoryAccountant) Deallocate(n int64) {
	for {
		cur := m.allocated.Load()
		next := cur - n
		if next < 0 {
			next = 0
		}
		if m.allocated.CompareAndSwap(cur, next) {
			m.deallocCount.Add(1)
			m.recordHistory(next)
			return
		}
	}
}

func (m *MemoryAccountant) recordHistory(allocated int64) {
	if m.historyCap <= 0 {
		return
	}
	m.historyMu.Lock()
	defer m.historyMu.Unlock()
	m.history = append(m.history, memorySample{at: time.Now(), allocated: allocated})
	if len(m.history) > m.historyCap {
		m.history = m.history[len(m.history)-m.historyCap:]
	}
}

// Allocated returns the current charged byte count.
func (m *MemoryAccountant) Allocated() int64 { return m.allocated.Load() }

// Peak returns the highest allocated value observed.
func (m *MemoryAccountant) Peak() int64 { return m.peak.Load() }

// Limit returns the configured byte limit.
func (m *MemoryAccountant) Limit() int64 { return m.limit }

// UsagePercent returns allocated/limit as a percentage.
func (m *MemoryAccountant) UsagePercent() float64 {
	if m.limit <= 0 {
		return 0
	}
	return float64(m.allocated.Load()) / float64(m.limit) * 100
}

// Exceeds reports whether current usage exceeds thresholdPercent.
func (m *MemoryAccountant) Exceeds(thresholdPercent float64) bool {
	return m.UsagePercent() > thresholdPercent
}

// PressureLevelNow derives the current discretized pressure level.
func (m *MemoryAccountant) PressureLevelNow() PressureLevel {
	pct := m.UsagePercent()
	switch {
	case pct >= m.thresholds.CriticalPercent:
		return PressureCritical
	case pct >= m.thresholds.HighPercent:
		return PressureHigh
	case pct >= m.thresholds.ModeratePercent:
		return PressureModerate
	default:
		return PressureNormal
	}
}

// FragmentationRatio returns 1 - allocated/peak when peak > 0, else 0.
func (m *MemoryAccountant) FragmentationRatio() float64 {
	peak := m.peak.Load()
	if peak <= 0 {
		return 0
	}
	return 1 - float64(m.allocated.Load())/float64(peak)
}

// LeakSuspected reports whether alloc_count/max(dealloc_count,1) exceeds the
// configured leak heuristic threshold.
func (m *MemoryAccountant) LeakSuspected() bool {
	dealloc := m.deallocCount.Load()
	if dealloc == 0 {
		dealloc = 1
	}
	return float64(m.allocCount.Load())/float64(dealloc) > m.leakThreshold
}

// Report is a point-in-time diagnostic snapshot.
type Report struct {
	Allocated           int64
	Peak                int64
	Limit               int64
	AllocCount          uint64
	DeallocCount        uint64
	UsagePercent        float64
	Pressure            PressureLevel
	FragmentationRatio  float64
	LeakSuspected       bool
}

// DetailedReport returns a full diagnostic snapshot.
func (m *MemoryAccountant) DetailedReport() Report {
	return Report{
		Allocated:          m.Allocated(),
		Peak:               m.Peak(),
		Limit:              m.Limit(),
		AllocCount:         m.allocCount.Load(),
		DeallocCount:       m.deallocCount.Load(),
		UsagePercent:       m.UsagePercent(),
		Pressure:           m.PressureLevelNow(),
		FragmentationRatio: m.FragmentationRatio(),
		LeakSuspected:      m.LeakSuspected(),
	}
}
