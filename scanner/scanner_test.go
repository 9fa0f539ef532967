package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/repostream/queuecore/queue"
)

func writeFile(t *testing.T, dir, name string, size int) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644); err != nil {
		t.Fatalf("write fixture file: %v", err)
	}
}

func TestWalkEmitsFileInfoThenSummary(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", 120)
	writeFile(t, dir, "b.go", 80)

	ch := Walk(context.Background(), "scan-1", dir)

	var gotFiles int
	var gotSummary bool
	for r := range ch {
		if r.Err != nil {
			t.Fatalf("unexpected error result: %v", r.Err)
		}
		switch r.Message.Payload.Kind {
		case queue.PayloadFileInfo:
			gotFiles++
			if r.Message.Header.ScanID != "scan-1" {
				t.Errorf("expected scan id to propagate, got %q", r.Message.Header.ScanID)
			}
		case queue.PayloadRepositoryStatistics:
			gotSummary = true
			if r.Message.Payload.RepositoryStats.TotalFiles != 2 {
				t.Errorf("expected TotalFiles=2, got %d", r.Message.Payload.RepositoryStats.TotalFiles)
			}
		default:
			t.Errorf("unexpected payload kind %v", r.Message.Payload.Kind)
		}
	}
	if gotFiles != 2 {
		t.Fatalf("expected 2 file messages, got %d", gotFiles)
	}
	if !gotSummary {
		t.Fatal("expected a trailing RepositoryStatistics summary")
	}
}

func TestWalkStopsOnContextCancellation(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, dir, fmt.Sprintf("file-%d.go", i), 40)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch := Walk(ctx, "scan-1", dir)

	select {
	case <-ch:
		cancel()
	case <-time.After(time.Second):
		t.Fatal("expected at least one result before canceling")
	}

	// The channel must still close promptly after cancellation, rather than
	// blocking forever on a send nobody is receiving.
	drainDeadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-drainDeadline:
			t.Fatal("Walk did not close its output channel after cancellation")
		}
	}
}

func TestEstimateLines(t *testing.T) {
	if got := estimateLines(400); got != 10 {
		t.Fatalf("estimateLines(400) = %d, want 10", got)
	}
	if got := estimateLines(0); got != 0 {
		t.Fatalf("estimateLines(0) = %d, want 0", got)
	}
}
