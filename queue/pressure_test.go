package queue

import "testing"

func TestPressureResponderThrottleAndDrop(t *testing.T) {
	p := NewPressureResponder(DefaultPressureConfig())

	if drop := p.Evaluate(50); drop {
		t.Fatal("usage below throttle threshold must not drop")
	}
	if p.IsThrottling() {
		t.Fatal("should not be throttling below the throttle threshold")
	}

	if drop := p.Evaluate(80); drop {
		t.Fatal("usage between throttle and drop thresholds must throttle, not drop")
	}
	if !p.IsThrottling() {
		t.Fatal("expected throttling to be active at 80%")
	}

	if drop := p.Evaluate(95); !drop {
		t.Fatal("usage at/above the drop threshold must drop")
	}
	if p.DropCount() != 1 {
		t.Fatalf("expected drop count 1, got %d", p.DropCount())
	}
}

func TestPressureResponderHysteresisRecovery(t *testing.T) {
	cfg := PressureConfig{ThrottleThresholdPercent: 80, DropThresholdPercent: 95, ThrottleFactor: 0.5, RecoveryFactor: 0.8}
	p := NewPressureResponder(cfg)

	p.Evaluate(85) // enters throttling
	if !p.IsThrottling() {
		t.Fatal("expected throttling after crossing the throttle threshold")
	}

	// Dropping back to just under the throttle threshold (but above the
	// recovery point, 80*0.8=64) must NOT clear throttling yet.
	p.Evaluate(70)
	if !p.IsThrottling() {
		t.Fatal("expected throttling to persist above the recovery point (hysteresis)")
	}

	// Dropping below the recovery point clears it.
	p.Evaluate(60)
	if p.IsThrottling() {
		t.Fatal("expected throttling to clear below the recovery point")
	}
}

func TestPressureResponderThrottledBatchSize(t *testing.T) {
	cfg := PressureConfig{ThrottleThresholdPercent: 50, DropThresholdPercent: 90, ThrottleFactor: 0.25, RecoveryFactor: 0.9}
	p := NewPressureResponder(cfg)

	if got := p.ThrottledBatchSize(100); got != 100 {
		t.Fatalf("expected unthrottled batch size unchanged, got %d", got)
	}

	p.Evaluate(60)
	if got := p.ThrottledBatchSize(100); got != 25 {
		t.Fatalf("expected throttled batch size 25, got %d", got)
	}
	if got := p.ThrottledBatchSize(1); got != 1 {
		t.Fatalf("expected batch size of 1 to never shrink below 1, got %d", got)
	}
}
