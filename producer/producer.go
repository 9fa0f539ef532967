// Package producer implements the streaming producer: it adapts a finite
// upstream sequence of scanner-produced messages into batched,
// pressure-aware enqueues against a queue.MultiConsumerQueue. Grounded on
// original_source/src/scanner/async_engine/streaming_producer.rs for the
// flush-trigger semantics (spec.md §4.8) and on
// github.com/joeycumines/go-microbatch for the batching primitive itself,
// in place of hand-rolling a timer+counter loop.
package producer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-microbatch"
	"github.com/rs/zerolog"

	"github.com/repostream/queuecore/internal/hostres"
	"github.com/repostream/queuecore/internal/metrics"
	"github.com/repostream/queuecore/queue"
)

// Config tunes the streaming producer, matching the tunable set spec.md §6
// lists for "Streaming producer".
type Config struct {
	BatchSize            int
	BufferSize           int
	BatchTimeout         time.Duration
	AdaptiveBatching     bool
	MaxAdaptiveBatchSize int
}

// DefaultConfig returns a moderate batching configuration with adaptive
// batching enabled.
func DefaultConfig() Config {
	return Config{
		BatchSize:            64,
		BufferSize:           256,
		BatchTimeout:         100 * time.Millisecond,
		AdaptiveBatching:     true,
		MaxAdaptiveBatchSize: 256,
	}
}

// Result is one item from the upstream scanner sequence: either a message to
// enqueue, or a terminal error. Grounded on
// streaming_producer.rs's Result<ScanMessage, Error> upstream item type.
type Result struct {
	Message queue.Message
	Err     error
}

// Producer batches an upstream Result stream into a target queue.
type Producer struct {
	q       *queue.MultiConsumerQueue
	cfg     Config
	logger  zerolog.Logger
	hostres *hostres.Sampler
	obs     *metrics.Observer

	batcher     *microbatch.Batcher[queue.Message]
	maxBatchLen int

	dropped      atomic.Uint64
	enqueued     atomic.Uint64
	shuttingDown atomic.Bool
}

// New constructs a producer targeting q. hostSampler may be nil to disable
// the host-CPU advisory signal (spec.md §4.1's memory accountant remains the
// primary pressure signal regardless). obs may be nil to disable producer
// batch-size/flush-reason metrics (spec.md §4.11).
func New(q *queue.MultiConsumerQueue, cfg Config, hostSampler *hostres.Sampler, obs *metrics.Observer, logger zerolog.Logger) *Producer {
	maxSize := cfg.BatchSize
	if cfg.AdaptiveBatching && cfg.MaxAdaptiveBatchSize > maxSize {
		maxSize = cfg.MaxAdaptiveBatchSize
	}

	p := &Producer{
		q:           q,
		cfg:         cfg,
		logger:      logger.With().Str("component", "producer.Producer").Logger(),
		hostres:     hostSampler,
		obs:         obs,
		maxBatchLen: maxSize,
	}

	p.batcher = microbatch.NewBatcher[queue.Message](&microbatch.BatcherConfig{
		MaxSize:        maxSize,
		FlushInterval:  cfg.BatchTimeout,
		MaxConcurrency: 1,
	}, p.processBatch)

	return p
}

// Run drains upstream until it closes or yields a terminal error, submitting
// each message to the internal batcher. On return (any reason) the batcher
// is shut down, which flushes any messages already buffered — upstream
// errors are surfaced only after that flush completes, per spec.md §4.8.
func (p *Producer) Run(ctx context.Context, upstream <-chan Result) error {
	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break loop
		case r, ok := <-upstream:
			if !ok {
				break loop
			}
			if r.Err != nil {
				runErr = r.Err
				break loop
			}
			if _, err := p.batcher.Submit(ctx, r.Message); err != nil {
				runErr = err
				break loop
			}
		}
	}

	p.shuttingDown.Store(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.batcher.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// processBatch is the microbatch.BatchProcessor: it applies the adaptive
// pressure policy to decide how many messages to hand to queue.Enqueue per
// iteration, then enqueues the batch in chunks of that size. MessageDropped
// is recorded and skipped; any other enqueue error propagates immediately
// (spec.md §4.8's failure-handling rules).
func (p *Producer) processBatch(ctx context.Context, msgs []queue.Message) error {
	if p.obs != nil {
		p.obs.ObserveProducerBatch(len(msgs), p.flushReason(len(msgs)))
	}

	chunk := len(msgs)
	if p.cfg.AdaptiveBatching {
		chunk = p.adaptiveChunkSize(len(msgs))
	}
	if chunk < 1 {
		chunk = 1
	}

	for i := 0; i < len(msgs); i += chunk {
		end := i + chunk
		if end > len(msgs) {
			end = len(msgs)
		}
		for _, msg := range msgs[i:end] {
			if _, err := p.q.Enqueue(ctx, msg); err != nil {
				if errors.Is(err, queue.ErrMessageDropped) {
					p.dropped.Add(1)
					p.logger.Warn().Msg("message dropped under memory pressure")
					continue
				}
				return err
			}
			p.enqueued.Add(1)
		}
	}
	return nil
}

// flushReason classifies why the batcher handed processBatch this batch,
// mirroring streaming_producer.rs's three ProducerCommand flush triggers:
// the batch filled to MaxSize, the flush interval ticked with a partial
// batch pending, or Run is draining the batcher on shutdown.
func (p *Producer) flushReason(size int) string {
	switch {
	case p.shuttingDown.Load():
		return "shutdown"
	case p.maxBatchLen > 0 && size >= p.maxBatchLen:
		return "size"
	default:
		return "interval"
	}
}

// adaptiveChunkSize implements spec.md §4.8's adaptive policy: Normal waits
// for the largest batch for efficiency, Moderate flushes in half-size
// chunks, High/Critical enqueues one message at a time. A host CPU reading
// above 90%, if a sampler is configured, forces the same single-message
// behavior as an additional advisory signal (spec.md §4.12).
func (p *Producer) adaptiveChunkSize(pending int) int {
	if p.hostres.UnderPressure(90) {
		return 1
	}
	switch p.q.GetMemoryStats().Pressure {
	case queue.PressureNormal:
		if p.cfg.MaxAdaptiveBatchSize > 0 {
			return p.cfg.MaxAdaptiveBatchSize
		}
		return pending
	case queue.PressureModerate:
		half := p.cfg.BatchSize / 2
		if half < 1 {
			half = 1
		}
		return half
	default: // High, Critical
		return 1
	}
}

// DroppedCount returns the number of messages dropped under pressure.
func (p *Producer) DroppedCount() uint64 { return p.dropped.Load() }

// EnqueuedCount returns the number of messages successfully enqueued.
func (p *Producer) EnqueuedCount() uint64 { return p.enqueued.Load() }
