package queue

import "testing"

func TestMemoryAccountantAllocateWithinLimit(t *testing.T) {
	m := NewMemoryAccountant(1000, 0)
	if !m.Allocate(500) {
		t.Fatal("expected allocation within limit to succeed")
	}
	if m.Allocated() != 500 {
		t.Fatalf("expected allocated=500, got %d", m.Allocated())
	}
	if !m.Allocate(500) {
		t.Fatal("expected allocation up to exactly the limit to succeed")
	}
	if m.Allocate(1) {
		t.Fatal("expected allocation over the limit to fail")
	}
}

func TestMemoryAccountantDeallocateSaturatesAtZero(t *testing.T) {
	m := NewMemoryAccountant(1000, 0)
	m.Allocate(100)
	m.Deallocate(500)
	if m.Allocated() != 0 {
		t.Fatalf("expected allocated to saturate at 0, got %d", m.Allocated())
	}
}

func TestMemoryAccountantPeakTracksMaximum(t *testing.T) {
	m := NewMemoryAccountant(1000, 0)
	m.Allocate(800)
	m.Deallocate(600)
	m.Allocate(100)
	if m.Peak() != 800 {
		t.Fatalf("expected peak=800, got %d", m.Peak())
	}
	if m.Allocated() != 300 {
		t.Fatalf("expected allocated=300, got %d", m.Allocated())
	}
}

func TestMemoryAccountantPressureLevels(t *testing.T) {
	m := NewMemoryAccountant(1000, 0)
	cases := []struct {
		alloc int64
		want  PressureLevel
	}{
		{100, PressureNormal},
		{600 - 100, PressureModerate}, // cumulative 600 = 60%
		{150, PressureHigh},           // cumulative 750 = 75%
		{150, PressureCritical},       // cumulative 900 = 90%
	}
	var cumulative int64
	for _, tc := range cases {
		m.Allocate(tc.alloc)
		cumulative += tc.alloc
		if got := m.PressureLevelNow(); got != tc.want {
			t.Errorf("at %d/1000 allocated, pressure = %v, want %v", cumulative, got, tc.want)
		}
	}
}

func TestMemoryAccountantUsagePercentZeroLimit(t *testing.T) {
	m := NewMemoryAccountant(0, 0)
	if pct := m.UsagePercent(); pct != 0 {
		t.Fatalf("expected 0%% usage with a zero limit, got %v", pct)
	}
}

func TestMemoryAccountantLeakSuspected(t *testing.T) {
	m := NewMemoryAccountant(10_000, 0)
	for i := 0; i < 50; i++ {
		m.Allocate(10)
	}
	if !m.LeakSuspected() {
		t.Fatal("expected leak heuristic to trip after many allocations with no deallocations")
	}
	for i := 0; i < 10; i++ {
		m.Deallocate(10)
	}
	if m.LeakSuspected() {
		t.Fatal("expected leak heuristic to clear after deallocations bring the ratio down")
	}
}

func TestMemoryAccountantDetailedReport(t *testing.T) {
	m := NewMemoryAccountant(1000, 4)
	m.Allocate(500)
	m.Deallocate(100)
	r := m.DetailedReport()
	if r.Allocated != 400 {
		t.Errorf("Allocated = %d, want 400", r.Allocated)
	}
	if r.Peak != 500 {
		t.Errorf("Peak = %d, want 500", r.Peak)
	}
	if r.AllocCount != 1 || r.DeallocCount != 1 {
		t.Errorf("AllocCount/DeallocCount = %d/%d, want 1/1", r.AllocCount, r.DeallocCount)
	}
}
