package hostres

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger { return zerolog.New(io.Discard) }

func TestNilSamplerUnderPressureIsFalse(t *testing.T) {
	var s *Sampler
	if s.UnderPressure(0) {
		t.Fatal("expected a nil Sampler to never report pressure")
	}
}

func TestSamplerDefaultsPeriod(t *testing.T) {
	s := New(0, testLogger())
	if s.period != 5*time.Second {
		t.Fatalf("expected default period of 5s, got %v", s.period)
	}
}

func TestSamplerLatestPopulatesAfterRun(t *testing.T) {
	s := New(50*time.Millisecond, testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	go s.Run(ctx)
	<-ctx.Done()

	reading := s.Latest()
	if reading.SampledAt.IsZero() {
		t.Fatal("expected at least one sample to have completed")
	}
	if reading.CPUPercent < 0 {
		t.Fatalf("expected a non-negative CPU percent, got %v", reading.CPUPercent)
	}
}

func TestSamplerUnderPressureThreshold(t *testing.T) {
	s := New(time.Hour, testLogger())
	s.mu.Lock()
	s.latest = Reading{CPUPercent: 95, SampledAt: time.Now()}
	s.mu.Unlock()

	if !s.UnderPressure(90) {
		t.Fatal("expected UnderPressure(90) to be true at 95% CPU")
	}
	if s.UnderPressure(99) {
		t.Fatal("expected UnderPressure(99) to be false at 95% CPU")
	}
}
