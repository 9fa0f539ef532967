package plugin

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/repostream/queuecore/notify"
	"github.com/repostream/queuecore/queue"
)

// testQueueForSharing builds a minimal started queue, used only so tests can
// obtain a real queue.SharedMessage (which has no public constructor outside
// the queue package) to feed into a Plugin's Accept method.
func testQueueForSharing() (*queue.MultiConsumerQueue, *notify.Bus) {
	bus := notify.NewBus(zerolog.New(io.Discard))
	q := queue.NewMultiConsumerQueue("plugin-test", bus, queue.DefaultMultiConsumerConfig(), zerolog.New(io.Discard))
	q.Start()
	return q, bus
}

var _ Plugin = (*Counter)(nil)
var _ Plugin = (*JSONLSink)(nil)
