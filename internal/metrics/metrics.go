// Package metrics exposes the queue system's Prometheus instrumentation.
// Grounded on adred-codev-ws_poc/src/metrics.go's gauge/counter/histogram
// catalog, with one deliberate change: metrics are fields on a struct
// registered against a caller-supplied prometheus.Registry instead of
// package-level global vars. The teacher only ever ran one server per
// process; a queuecore library must support several independent queue
// instances (and therefore several metric sets) in one process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// QueueMetrics is the Prometheus instrumentation for one
// queue.MultiConsumerQueue instance plus its producer.
type QueueMetrics struct {
	QueueSize   prometheus.Gauge
	MemoryBytes prometheus.Gauge
	MemoryPeak  prometheus.Gauge
	MemoryLimit prometheus.Gauge
	PressureLevel prometheus.Gauge

	GCRuns             prometheus.Counter
	MessagesCollected  prometheus.Counter

	BackoffLevel prometheus.Gauge
	BackoffDelaySeconds prometheus.Counter
	BackoffEvents       prometheus.Counter

	DropsTotal prometheus.Counter

	ConsumerLag *prometheus.GaugeVec

	ProducerBatchSize   prometheus.Histogram
	ProducerFlushReason *prometheus.CounterVec
}

// NewQueueMetrics constructs and registers a metric set, labeled by scanID so
// multiple queues can coexist on one registry. It panics only if the same
// scanID is registered twice against the same registry (a caller bug), per
// prometheus.Registry.MustRegister's documented behavior.
func NewQueueMetrics(reg *prometheus.Registry, scanID string) *QueueMetrics {
	constLabels := prometheus.Labels{"scan_id": scanID}

	m := &QueueMetrics{
		QueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repostream_queue_size", Help: "Current number of messages in the queue.", ConstLabels: constLabels,
		}),
		MemoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repostream_queue_memory_bytes", Help: "Current bytes charged against the memory accountant.", ConstLabels: constLabels,
		}),
		MemoryPeak: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repostream_queue_memory_peak_bytes", Help: "Peak bytes charged against the memory accountant.", ConstLabels: constLabels,
		}),
		MemoryLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repostream_queue_memory_limit_bytes", Help: "Configured memory limit.", ConstLabels: constLabels,
		}),
		PressureLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repostream_queue_pressure_level", Help: "Current pressure level (0=normal,1=moderate,2=high,3=critical).", ConstLabels: constLabels,
		}),
		GCRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repostream_queue_gc_runs_total", Help: "Total garbage collection passes.", ConstLabels: constLabels,
		}),
		MessagesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repostream_queue_gc_messages_collected_total", Help: "Total messages removed by garbage collection.", ConstLabels: constLabels,
		}),
		BackoffLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repostream_backoff_level", Help: "Current backoff controller level.", ConstLabels: constLabels,
		}),
		BackoffDelaySeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repostream_backoff_delay_seconds_total", Help: "Cumulative seconds spent waiting on backoff.", ConstLabels: constLabels,
		}),
		BackoffEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repostream_backoff_events_total", Help: "Total triggered backoff events.", ConstLabels: constLabels,
		}),
		DropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repostream_queue_drops_total", Help: "Total messages dropped under extreme pressure.", ConstLabels: constLabels,
		}),
		ConsumerLag: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "repostream_consumer_lag", Help: "Current lag per consumer.", ConstLabels: constLabels,
		}, []string{"consumer_id"}),
		ProducerBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "repostream_producer_batch_size", Help: "Distribution of enqueue chunk sizes the streaming producer applies.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128, 256, 512}, ConstLabels: constLabels,
		}),
		ProducerFlushReason: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repostream_producer_flush_total", Help: "Total batch flushes by trigger reason.", ConstLabels: constLabels,
		}, []string{"reason"}),
	}

	reg.MustRegister(
		m.QueueSize, m.MemoryBytes, m.MemoryPeak, m.MemoryLimit, m.PressureLevel,
		m.GCRuns, m.MessagesCollected,
		m.BackoffLevel, m.BackoffDelaySeconds, m.BackoffEvents,
		m.DropsTotal, m.ConsumerLag,
		m.ProducerBatchSize, m.ProducerFlushReason,
	)

	return m
}
