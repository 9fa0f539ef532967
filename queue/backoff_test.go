package queue

import (
	"testing"
	"time"
)

func TestBackoffConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     BackoffConfig
		wantErr bool
	}{
		{"valid exponential", BalancedBackoff(), false},
		{"zero initial delay", BackoffConfig{Strategy: BackoffExponential, InitialDelay: 0, MaxDelay: time.Second, Multiplier: 2, MaxRetries: 1}, true},
		{"max less than initial", BackoffConfig{Strategy: BackoffExponential, InitialDelay: time.Second, MaxDelay: time.Millisecond, Multiplier: 2, MaxRetries: 1}, true},
		{"multiplier too small", BackoffConfig{Strategy: BackoffExponential, InitialDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 1, MaxRetries: 1}, true},
		{"zero max retries", BackoffConfig{Strategy: BackoffExponential, InitialDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 2, MaxRetries: 0}, true},
		{"threshold out of range", BackoffConfig{Strategy: BackoffExponential, InitialDelay: time.Millisecond, MaxDelay: time.Second, Multiplier: 2, MaxRetries: 1, MemoryPressureThresholdPct: 150}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestBackoffControllerNormalPressureNoDelay(t *testing.T) {
	b := NewBackoffController(BalancedBackoff())
	if d := b.Delay(PressureNormal, 10); d != 0 {
		t.Fatalf("expected zero delay at normal pressure, got %v", d)
	}
	if m := b.Metrics(); m.TotalEvents != 0 {
		t.Fatalf("expected no backoff events at normal pressure, got %d", m.TotalEvents)
	}
}

func TestBackoffControllerEscalatesExponentially(t *testing.T) {
	cfg := BackoffConfig{
		Strategy: BackoffExponential, InitialDelay: 10 * time.Millisecond,
		MaxDelay: time.Second, Multiplier: 2, MaxRetries: 10,
		MemoryPressureThresholdPct: 50,
	}
	b := NewBackoffController(cfg)

	var prev time.Duration
	for i := 0; i < 4; i++ {
		d := b.Delay(PressureHigh, 95)
		if d <= prev && i > 0 {
			t.Fatalf("expected delay to strictly increase, got %v after %v", d, prev)
		}
		prev = d
	}
}

func TestBackoffControllerCapsAtMaxDelay(t *testing.T) {
	cfg := BackoffConfig{
		Strategy: BackoffExponential, InitialDelay: time.Second, MaxDelay: 2 * time.Second,
		Multiplier: 10, MaxRetries: 20, MemoryPressureThresholdPct: 50,
	}
	b := NewBackoffController(cfg)
	for i := 0; i < 10; i++ {
		if d := b.Delay(PressureCritical, 99); d > cfg.MaxDelay {
			t.Fatalf("delay %v exceeded MaxDelay %v", d, cfg.MaxDelay)
		}
	}
}

func TestBackoffControllerResetsOnNormalPressure(t *testing.T) {
	cfg := BalancedBackoff()
	b := NewBackoffController(cfg)
	b.Delay(PressureCritical, 99)
	b.Delay(PressureCritical, 99)
	if lvl := b.Metrics().CurrentLevel; lvl == 0 {
		t.Fatal("expected backoff level to have advanced")
	}
	b.Delay(PressureNormal, 10)
	if lvl := b.Metrics().CurrentLevel; lvl != 0 {
		t.Fatalf("expected backoff level to reset to 0 at normal pressure, got %d", lvl)
	}
}

func TestBackoffModerateThresholdGating(t *testing.T) {
	cfg := BalancedBackoff()
	cfg.MemoryPressureThresholdPct = 70
	b := NewBackoffController(cfg)

	if b.ShouldTrigger(PressureModerate, 50) {
		t.Error("moderate pressure below threshold should not trigger")
	}
	if !b.ShouldTrigger(PressureModerate, 80) {
		t.Error("moderate pressure above threshold should trigger")
	}
}
