package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewDefaultsServiceName(t *testing.T) {
	logger := New(Config{Level: LevelInfo, Format: FormatJSON})
	var buf bytes.Buffer
	logger = logger.Output(&buf)
	logger.Info().Msg("hello")

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON output: %v", err)
	}
	if decoded["service"] != "repostream" {
		t.Fatalf("expected default service name, got %v", decoded["service"])
	}
}

func TestNewHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Format: FormatJSON}).Output(&buf)
	logger.Info().Msg("should be filtered")
	if buf.Len() != 0 {
		t.Fatalf("expected info-level message to be filtered at warn level, got %q", buf.String())
	}
	logger.Warn().Msg("should appear")
	if buf.Len() == 0 {
		t.Fatal("expected warn-level message to be written")
	}
}

func TestErrorLogsErrAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	Error(logger, errors.New("boom"), "operation failed", map[string]any{"attempt": 3})

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON: %v", err)
	}
	if decoded["error"] != "boom" {
		t.Errorf("expected error field, got %v", decoded["error"])
	}
	if decoded["attempt"] != float64(3) {
		t.Errorf("expected attempt field 3, got %v", decoded["attempt"])
	}
}

func TestPanicDoesNotTerminateProcess(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	// Panic uses .Error(), not .Fatal() — this call must return normally.
	Panic(logger, "recovered value", "worker panicked", nil)

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected valid JSON: %v", err)
	}
	if decoded["panic_value"] != "recovered value" {
		t.Errorf("expected panic_value field, got %v", decoded["panic_value"])
	}
	if _, ok := decoded["stack_trace"]; !ok {
		t.Error("expected a stack_trace field")
	}
}
