package queue

import (
	"sync"
	"time"
)

// ConsumerProgress is the per-consumer bookkeeping the registry tracks.
// Grounded on original_source/src/queue/multi_consumer.rs's ConsumerProgress
// and consumer_registry.rs.
type ConsumerProgress struct {
	ConsumerID        string
	PluginName        string
	Priority          int
	CursorSeq         uint64
	LastAckSeq        uint64
	MessagesProcessed uint64
	CreatedAt         time.Time
	LastUpdateAt      time.Time
	ProcessingRate    float64 // messages/second
}

// consumerRegistry tracks active consumers and their progress under its own
// lock, separate from the storage+tracker lock (see the global lock order
// note on MultiConsumerQueue).
type consumerRegistry struct {
	mu        sync.RWMutex
	consumers map[string]*ConsumerProgress
}

func newConsumerRegistry() *consumerRegistry {
	return &consumerRegistry{consumers: make(map[string]*ConsumerProgress)}
}

func (r *consumerRegistry) register(id, plugin string, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.consumers[id]; exists {
		return errConsumer("consumer already registered", map[string]any{"consumer_id": id})
	}
	now := time.Now()
	r.consumers[id] = &ConsumerProgress{
		ConsumerID: id,
		PluginName: plugin,
		Priority:   priority,
		CreatedAt:  now,
		LastUpdateAt: now,
	}
	return nil
}

func (r *consumerRegistry) deregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.consumers[id]; !exists {
		return errConsumer("consumer not found", map[string]any{"consumer_id": id})
	}
	delete(r.consumers, id)
	return nil
}

// updateCursor advances a consumer's read cursor; it does not affect
// last_ack_seq or processed counts, which updateProgress handles.
func (r *consumerRegistry) updateCursor(id string, cursor uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.consumers[id]; ok {
		p.CursorSeq = cursor
	}
}

// updateProgress records an acknowledgement: last_ack_seq, processed count,
// last_update_at, and the recomputed processing rate.
func (r *consumerRegistry) updateProgress(id string, ackSeq uint64, processedDelta uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.consumers[id]
	if !ok {
		return errConsumer("consumer not found", map[string]any{"consumer_id": id})
	}
	if ackSeq > p.LastAckSeq || p.MessagesProcessed == 0 {
		p.LastAckSeq = maxU64(p.LastAckSeq, ackSeq)
	}
	p.MessagesProcessed += processedDelta
	p.LastUpdateAt = time.Now()
	if elapsed := p.LastUpdateAt.Sub(p.CreatedAt).Seconds(); elapsed > 0 {
		p.ProcessingRate = float64(p.MessagesProcessed) / elapsed
	}
	return nil
}

func (r *consumerRegistry) get(id string) (ConsumerProgress, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.consumers[id]
	if !ok {
		return ConsumerProgress{}, false
	}
	return *p, true
}

func (r *consumerRegistry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.consumers)
}

func (r *consumerRegistry) all() []ConsumerProgress {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ConsumerProgress, 0, len(r.consumers))
	for _, p := range r.consumers {
		out = append(out, *p)
	}
	return out
}

// minAckSeq is the low-water mark GC uses. With no registered consumers it
// is defined as maxSeq (anything may be collected), per spec.md §4.5.
func (r *consumerRegistry) minAckSeq(maxSeq uint64) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.consumers) == 0 {
		return maxSeq
	}
	min := uint64(1<<64 - 1)
	for _, p := range r.consumers {
		if p.LastAckSeq < min {
			min = p.LastAckSeq
		}
	}
	return min
}

// stale returns consumer ids whose last update is older than timeout.
func (r *consumerRegistry) stale(timeout time.Duration) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	now := time.Now()
	var ids []string
	for id, p := range r.consumers {
		if now.Sub(p.LastUpdateAt) > timeout {
			ids = append(ids, id)
		}
	}
	return ids
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
