package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/repostream/queuecore/queue"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("write gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestNewQueueMetricsRegistersUnderScanIDLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueueMetrics(reg, "scan-a")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "repostream_queue_size" {
			found = true
			if len(f.Metric) != 1 {
				t.Fatalf("expected exactly one time series, got %d", len(f.Metric))
			}
			labels := f.Metric[0].GetLabel()
			if len(labels) != 1 || labels[0].GetName() != "scan_id" || labels[0].GetValue() != "scan-a" {
				t.Fatalf("expected scan_id=scan-a label, got %v", labels)
			}
		}
	}
	if !found {
		t.Fatal("expected repostream_queue_size to be registered")
	}
	_ = m
}

func TestTwoQueueMetricsCoexistOnOneRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewQueueMetrics(reg, "scan-a")
	NewQueueMetrics(reg, "scan-b") // must not panic despite sharing metric names

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "repostream_queue_size" && len(f.Metric) != 2 {
			t.Fatalf("expected two distinct scan_id series, got %d", len(f.Metric))
		}
	}
}

func TestObserverAppliesGaugesAndDeltaCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueueMetrics(reg, "scan-a")
	obs := NewObserver(m)

	stats := queue.Statistics{QueueSize: 5, TotalMessages: 5}
	mem := queue.MemoryStats{Allocated: 100, Peak: 200, Limit: 1000, Pressure: queue.PressureModerate}
	backoff := queue.BackoffMetrics{TotalEvents: 3, CurrentLevel: 1}
	lags := map[string]uint64{"c1": 2}

	obs.Observe(stats, mem, backoff, lags, 1)
	if v := gaugeValue(t, m.QueueSize); v != 5 {
		t.Errorf("QueueSize = %v, want 5", v)
	}
	if v := gaugeValue(t, m.MemoryBytes); v != 100 {
		t.Errorf("MemoryBytes = %v, want 100", v)
	}
	if v := counterValue(t, m.BackoffEvents); v != 3 {
		t.Errorf("BackoffEvents = %v, want 3 after first observe", v)
	}
	if v := counterValue(t, m.DropsTotal); v != 1 {
		t.Errorf("DropsTotal = %v, want 1", v)
	}

	// A second observe with the same totals must not double-count.
	obs.Observe(stats, mem, backoff, lags, 1)
	if v := counterValue(t, m.BackoffEvents); v != 3 {
		t.Errorf("BackoffEvents = %v, want unchanged 3 on repeated observe", v)
	}

	backoff.TotalEvents = 5
	obs.Observe(stats, mem, backoff, lags, 1)
	if v := counterValue(t, m.BackoffEvents); v != 5 {
		t.Errorf("BackoffEvents = %v, want 5 after delta of 2 more events", v)
	}
}

func TestObserverGCDeltas(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewQueueMetrics(reg, "scan-a")
	obs := NewObserver(m)

	obs.ObserveGC(2, 20)
	if v := counterValue(t, m.GCRuns); v != 2 {
		t.Errorf("GCRuns = %v, want 2", v)
	}
	obs.ObserveGC(2, 20)
	if v := counterValue(t, m.GCRuns); v != 2 {
		t.Errorf("GCRuns = %v, want unchanged 2", v)
	}
	obs.ObserveGC(5, 50)
	if v := counterValue(t, m.GCRuns); v != 5 {
		t.Errorf("GCRuns = %v, want 5", v)
	}
	if v := counterValue(t, m.MessagesCollected); v != 50 {
		t.Errorf("MessagesCollected = %v, want 50", v)
	}
}
