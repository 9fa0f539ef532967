package metrics

import (
	"github.com/repostream/queuecore/queue"
)

// Observer copies point-in-time queue snapshots into a QueueMetrics'
// gauges/counters. Counters are monotonic totals, so Observe adds only the
// delta since the last call; callers must invoke it periodically (e.g. from
// a ticker) rather than on every enqueue.
type Observer struct {
	m *QueueMetrics

	lastGCRuns      uint64
	lastGCCollected uint64
	lastBackoffEvts uint64
	lastBackoffSecs float64
	lastDrops       uint64
}

// NewObserver wraps m for incremental counter updates.
func NewObserver(m *QueueMetrics) *Observer { return &Observer{m: m} }

// Observe updates every gauge to the latest snapshot and advances the
// counters by their delta since the previous call.
func (o *Observer) Observe(stats queue.Statistics, mem queue.MemoryStats, backoff queue.BackoffMetrics, lags map[string]uint64, drops uint64) {
	o.m.QueueSize.Set(float64(stats.QueueSize))
	o.m.MemoryBytes.Set(float64(mem.Allocated))
	o.m.MemoryPeak.Set(float64(mem.Peak))
	o.m.MemoryLimit.Set(float64(mem.Limit))
	o.m.PressureLevel.Set(float64(mem.Pressure))
	o.m.BackoffLevel.Set(float64(backoff.CurrentLevel))

	for id, lag := range lags {
		o.m.ConsumerLag.WithLabelValues(id).Set(float64(lag))
	}

	if backoff.TotalEvents > o.lastBackoffEvts {
		o.m.BackoffEvents.Add(float64(backoff.TotalEvents - o.lastBackoffEvts))
		o.lastBackoffEvts = backoff.TotalEvents
	}
	if secs := backoff.TotalDelay.Seconds(); secs > o.lastBackoffSecs {
		o.m.BackoffDelaySeconds.Add(secs - o.lastBackoffSecs)
		o.lastBackoffSecs = secs
	}
	if drops > o.lastDrops {
		o.m.DropsTotal.Add(float64(drops - o.lastDrops))
		o.lastDrops = drops
	}
}

// ObserveProducerBatch records one streaming-producer flush: the chunk size
// actually handed to queue.Enqueue and the reason the batch flushed (e.g.
// "size", "interval", "shutdown"). Unlike Observe/ObserveGC this is a
// per-event call, not a periodic snapshot, since batch size and flush reason
// have no meaningful running total to diff against.
func (o *Observer) ObserveProducerBatch(size int, reason string) {
	o.m.ProducerBatchSize.Observe(float64(size))
	o.m.ProducerFlushReason.WithLabelValues(reason).Inc()
}

// ObserveGC advances the GC counters by their delta since the previous call.
func (o *Observer) ObserveGC(runs, collected uint64) {
	if runs > o.lastGCRuns {
		o.m.GCRuns.Add(float64(runs - o.lastGCRuns))
		o.lastGCRuns = runs
	}
	if collected > o.lastGCCollected {
		o.m.MessagesCollected.Add(float64(collected - o.lastGCCollected))
		o.lastGCCollected = collected
	}
}
