package queue

import "time"

// MultiConsumerConfig configures a MultiConsumerQueue. Field defaults mirror
// spec.md §6 and original_source/src/queue/multi_consumer.rs's
// QueueConfig::default().
type MultiConsumerConfig struct {
	MaxQueueSize        int
	MemoryThresholdBytes int64
	GCInterval          time.Duration
	ConsumerTimeout     time.Duration
	AutoGC              bool
	GCBatchSize         int

	Backoff  BackoffConfig
	Pressure PressureConfig
}

// DefaultMultiConsumerConfig returns the baseline configuration: a
// 100,000-message cap, a 512MiB memory ceiling, GC every 30s, consumers
// considered stale after 5 minutes, auto-GC enabled, 1000 messages per GC
// pass.
func DefaultMultiConsumerConfig() MultiConsumerConfig {
	return MultiConsumerConfig{
		MaxQueueSize:         100_000,
		MemoryThresholdBytes: 512 * 1024 * 1024,
		GCInterval:           30 * time.Second,
		ConsumerTimeout:      300 * time.Second,
		AutoGC:               true,
		GCBatchSize:          1000,
		Backoff:              BalancedBackoff(),
		Pressure:             DefaultPressureConfig(),
	}
}

// DevelopmentConfig favors fast feedback over throughput: a small queue, a
// short GC interval, and aggressive backoff so misbehavior surfaces quickly
// in local runs.
func DevelopmentConfig() MultiConsumerConfig {
	c := DefaultMultiConsumerConfig()
	c.MaxQueueSize = 1_000
	c.MemoryThresholdBytes = 64 * 1024 * 1024
	c.GCInterval = 5 * time.Second
	c.ConsumerTimeout = 60 * time.Second
	c.GCBatchSize = 100
	c.Backoff = AggressiveBackoff()
	return c
}

// BalancedConfig is an alias for the package default, named to match the
// preset family spec.md §6 describes.
func BalancedConfig() MultiConsumerConfig {
	return DefaultMultiConsumerConfig()
}

// HighThroughputConfig favors sustained ingestion rate: a large queue, a
// generous memory ceiling, infrequent GC, and conservative backoff so
// producers rarely stall.
func HighThroughputConfig() MultiConsumerConfig {
	c := DefaultMultiConsumerConfig()
	c.MaxQueueSize = 1_000_000
	c.MemoryThresholdBytes = 2 * 1024 * 1024 * 1024
	c.GCInterval = 60 * time.Second
	c.ConsumerTimeout = 600 * time.Second
	c.GCBatchSize = 5000
	c.Backoff = ConservativeBackoff()
	return c
}

// LowMemoryConfig favors a tight memory footprint over throughput: a small
// queue, a low memory ceiling, frequent GC, and aggressive backoff/pressure
// thresholds so the queue sheds load early.
func LowMemoryConfig() MultiConsumerConfig {
	c := DefaultMultiConsumerConfig()
	c.MaxQueueSize = 5_000
	c.MemoryThresholdBytes = 32 * 1024 * 1024
	c.GCInterval = 10 * time.Second
	c.ConsumerTimeout = 120 * time.Second
	c.GCBatchSize = 250
	c.Backoff = AggressiveBackoff()
	c.Pressure = PressureConfig{
		ThrottleThresholdPercent: 60,
		DropThresholdPercent:     80,
		ThrottleFactor:           0.4,
		RecoveryFactor:           0.85,
	}
	return c
}

// Validate rejects obviously-broken configurations before a queue is built
// from them.
func (c MultiConsumerConfig) Validate() error {
	if c.MaxQueueSize <= 0 {
		return errOperationFailed("max queue size must be > 0", nil)
	}
	if c.MemoryThresholdBytes <= 0 {
		return errOperationFailed("memory threshold must be > 0", nil)
	}
	if c.GCBatchSize <= 0 {
		return errOperationFailed("gc batch size must be > 0", nil)
	}
	if c.GCInterval <= 0 {
		return errOperationFailed("gc interval must be > 0", nil)
	}
	return c.Backoff.Validate()
}
