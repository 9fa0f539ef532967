package queue

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

func newConsumerID(pluginName string, seq uint64) string {
	return fmt.Sprintf("%s-%d", pluginName, seq)
}

// ConsumerHandle is a consumer's private read cursor over a
// MultiConsumerQueue. The handle owns its cursor; the queue's registry owns
// the acknowledged position. Grounded on
// original_source/src/queue/queue_consumer.rs's QueueConsumer.
type ConsumerHandle struct {
	q          *MultiConsumerQueue
	id         string
	pluginName string

	mu     sync.Mutex
	cursor uint64

	active atomic.Bool
}

func newConsumerHandle(q *MultiConsumerQueue, id, pluginName string) *ConsumerHandle {
	h := &ConsumerHandle{q: q, id: id, pluginName: pluginName}
	h.active.Store(true)
	return h
}

// ID returns the consumer's registry id.
func (h *ConsumerHandle) ID() string { return h.id }

// ReadNext returns the message at the current cursor, advancing the cursor
// on a hit. A miss (no such message yet, or beyond the window) returns
// ok=false, never an error.
func (h *ConsumerHandle) ReadNext() (SharedMessage, bool) {
	if !h.active.Load() {
		return SharedMessage{}, false
	}
	h.mu.Lock()
	cursor := h.cursor
	h.mu.Unlock()

	sm, ok := h.q.GetBySeq(cursor)
	if !ok {
		return SharedMessage{}, false
	}
	h.mu.Lock()
	if h.cursor == cursor {
		h.cursor++
	}
	newCursor := h.cursor
	h.mu.Unlock()
	h.q.registry.updateCursor(h.id, newCursor)
	return sm, true
}

// ReadBatch reads up to max consecutive messages starting at the cursor,
// advancing the cursor by the number actually read. Empty if the first read
// misses.
func (h *ConsumerHandle) ReadBatch(max int) []SharedMessage {
	if !h.active.Load() || max <= 0 {
		return nil
	}
	out := make([]SharedMessage, 0, max)
	for len(out) < max {
		sm, ok := h.ReadNext()
		if !ok {
			break
		}
		out = append(out, sm)
	}
	return out
}

// ReadFrom reads up to max consecutive messages starting at start without
// moving the cursor. It errors if start is already below the retention
// window's minimum.
func (h *ConsumerHandle) ReadFrom(start uint64, max int) ([]SharedMessage, error) {
	return h.q.GetRange(start, max)
}

// Acknowledge records that every message up to and including s has been
// processed. Idempotent: acknowledging any s <= the current last-ack is a
// no-op that still succeeds.
func (h *ConsumerHandle) Acknowledge(s uint64) error {
	if !h.active.Load() {
		return errConsumer("consumer is not active", map[string]any{"consumer_id": h.id})
	}
	p, ok := h.q.registry.get(h.id)
	if !ok {
		return errConsumer("consumer not found", map[string]any{"consumer_id": h.id})
	}
	ack := s
	if p.LastAckSeq > ack {
		ack = p.LastAckSeq
	}
	delta := uint64(0)
	if s > p.LastAckSeq {
		delta = s - p.LastAckSeq
	}
	return h.q.registry.updateProgress(h.id, ack, delta)
}

// AcknowledgeBatch acknowledges the maximum sequence in seqs; equivalent to
// one Acknowledge call at that maximum.
func (h *ConsumerHandle) AcknowledgeBatch(seqs []uint64) error {
	if len(seqs) == 0 {
		return nil
	}
	max := seqs[0]
	for _, s := range seqs[1:] {
		if s > max {
			max = s
		}
	}
	return h.Acknowledge(max)
}

// Seek validates min_seq <= s <= max_seq+1 and repositions the cursor.
func (h *ConsumerHandle) Seek(s uint64) error {
	min, max := h.q.GetSequenceRange()
	if s < min || s > max+1 {
		return errOperationFailed("seek target outside retention window", map[string]any{"seek": s, "min_seq": min, "max_seq": max})
	}
	h.mu.Lock()
	h.cursor = s
	h.mu.Unlock()
	h.q.registry.updateCursor(h.id, s)
	return nil
}

// CurrentSequence returns the cursor's current position.
func (h *ConsumerHandle) CurrentSequence() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cursor
}

// LastAcknowledgedSequence returns the registry's view of this consumer's
// last acknowledged sequence.
func (h *ConsumerHandle) LastAcknowledgedSequence() uint64 {
	p, _ := h.q.registry.get(h.id)
	return p.LastAckSeq
}

// Lag returns max_seq - last_ack_seq, saturating at zero.
func (h *ConsumerHandle) Lag() uint64 {
	lag, _ := h.q.GetConsumerLag(h.id)
	return lag
}

// HasMessagesAvailable reports whether the message at the current cursor
// exists.
func (h *ConsumerHandle) HasMessagesAvailable() bool {
	h.mu.Lock()
	cursor := h.cursor
	h.mu.Unlock()
	_, ok := h.q.GetBySeq(cursor)
	return ok
}

// WaitForMessages cooperatively polls for new messages at the cursor,
// sleeping in bounded intervals rather than busy-spinning. It returns true
// as soon as a message becomes available, or false once timeout elapses.
func (h *ConsumerHandle) WaitForMessages(timeout time.Duration) bool {
	const pollInterval = 10 * time.Millisecond
	deadline := time.Now().Add(timeout)
	for {
		if h.HasMessagesAvailable() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		sleep := pollInterval
		if remaining := time.Until(deadline); remaining < sleep {
			sleep = remaining
		}
		if sleep > 0 {
			time.Sleep(sleep)
		}
	}
}

// SetActive toggles whether this handle reads/acknowledges at all. An
// inactive handle's ReadNext/ReadBatch return no results and Acknowledge
// errors.
func (h *ConsumerHandle) SetActive(v bool) { h.setActive(v) }

func (h *ConsumerHandle) setActive(v bool) { h.active.Store(v) }

// IsActive reports the handle's current active state.
func (h *ConsumerHandle) IsActive() bool { return h.active.Load() }
