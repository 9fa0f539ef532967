package plugin

import (
	"context"
	"sync/atomic"

	"github.com/repostream/queuecore/queue"
)

// Counter is a reference Plugin that counts accepted messages per payload
// kind, grounded on the teacher's export-to-stdout summarization idiom in
// main.go.
type Counter struct {
	name string

	total atomic.Uint64
	byKind [queue.PayloadFileChange + 1]atomic.Uint64
}

// NewCounter constructs a Counter plugin registered under name.
func NewCounter(name string) *Counter {
	return &Counter{name: name}
}

func (c *Counter) Name() string { return c.name }

func (c *Counter) Accept(ctx context.Context, msg *queue.SharedMessage) error {
	if !msg.Valid() {
		return nil
	}
	c.total.Add(1)
	kind := msg.Message().Payload.Kind
	if int(kind) >= 0 && int(kind) < len(c.byKind) {
		c.byKind[kind].Add(1)
	}
	return nil
}

func (c *Counter) Complete(ctx context.Context, stats queue.Statistics) error {
	return nil
}

// Total returns the number of messages accepted so far.
func (c *Counter) Total() uint64 { return c.total.Load() }

// CountOf returns the number of messages accepted with the given payload
// kind.
func (c *Counter) CountOf(kind queue.PayloadKind) uint64 {
	if int(kind) < 0 || int(kind) >= len(c.byKind) {
		return 0
	}
	return c.byKind[kind].Load()
}
