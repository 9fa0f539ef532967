package plugin

import (
	"context"
	"testing"

	"github.com/repostream/queuecore/queue"
)

func sharedFileInfo(path string) queue.SharedMessage {
	q, _ := testQueueForSharing()
	seq, err := q.Enqueue(context.Background(), queue.NewMessage("s", queue.Payload{Kind: queue.PayloadFileInfo, FileInfo: queue.FileInfo{Path: path}}))
	if err != nil {
		panic(err)
	}
	sm, _ := q.GetBySeq(seq)
	return sm
}

func TestCounterTracksTotalsAndKinds(t *testing.T) {
	c := NewCounter("demo")
	sm1 := sharedFileInfo("a.go")
	sm2 := sharedFileInfo("b.go")

	if err := c.Accept(context.Background(), &sm1); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := c.Accept(context.Background(), &sm2); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if c.Total() != 2 {
		t.Fatalf("expected total 2, got %d", c.Total())
	}
	if got := c.CountOf(queue.PayloadFileInfo); got != 2 {
		t.Fatalf("expected 2 FileInfo messages, got %d", got)
	}
	if got := c.CountOf(queue.PayloadCommitInfo); got != 0 {
		t.Fatalf("expected 0 CommitInfo messages, got %d", got)
	}
}

func TestCounterIgnoresInvalidMessage(t *testing.T) {
	c := NewCounter("demo")
	var zero queue.SharedMessage
	if err := c.Accept(context.Background(), &zero); err != nil {
		t.Fatalf("accept of invalid message should not error: %v", err)
	}
	if c.Total() != 0 {
		t.Fatalf("expected total to remain 0 for an invalid message, got %d", c.Total())
	}
}

func TestCounterName(t *testing.T) {
	c := NewCounter("my-plugin")
	if c.Name() != "my-plugin" {
		t.Fatalf("Name() = %q, want %q", c.Name(), "my-plugin")
	}
}
