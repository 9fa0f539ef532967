// Package notify implements the queue's typed lifecycle event bus: a
// publish/subscribe mechanism that broadcasts ScanStarted, MessageAdded,
// ScanComplete, QueueDrained, and MemoryWarning events to any number of
// subscribers without blocking the publisher on a slow or dead one.
//
// Grounded on original_source/src/queue/notifications.rs's QueueEvent enum,
// reshaped from a broadcast-channel/clone model into per-subscriber buffered
// Go channels, matching spec.md §4.9 and §9's
// "notification bus is process-wide in the source; design it as an explicit
// constructor argument" note.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventKind discriminates the Event union.
type EventKind int

const (
	ScanStarted EventKind = iota
	MessageAdded
	ScanComplete
	QueueDrained
	MemoryWarning
)

func (k EventKind) String() string {
	switch k {
	case ScanStarted:
		return "scan_started"
	case MessageAdded:
		return "message_added"
	case ScanComplete:
		return "scan_complete"
	case QueueDrained:
		return "queue_drained"
	case MemoryWarning:
		return "memory_warning"
	default:
		return "unknown"
	}
}

// Event is a cloneable value type carrying one of the five lifecycle event
// kinds; only the fields relevant to Kind are meaningful.
type Event struct {
	Kind      EventKind
	ScanID    string
	Count     int
	QueueSize int
	Total     uint64
	Current   int64
	Threshold int64
	TimestampMS int64
}

func now() int64 { return time.Now().UnixMilli() }

// NewScanStarted builds a ScanStarted event stamped with the current time.
func NewScanStarted(scanID string) Event {
	return Event{Kind: ScanStarted, ScanID: scanID, TimestampMS: now()}
}

// NewMessageAdded builds a MessageAdded event.
func NewMessageAdded(scanID string, count, queueSize int) Event {
	return Event{Kind: MessageAdded, ScanID: scanID, Count: count, QueueSize: queueSize, TimestampMS: now()}
}

// NewScanComplete builds a ScanComplete event.
func NewScanComplete(scanID string, total uint64) Event {
	return Event{Kind: ScanComplete, ScanID: scanID, Total: total, TimestampMS: now()}
}

// NewQueueDrained builds a QueueDrained event.
func NewQueueDrained(scanID string) Event {
	return Event{Kind: QueueDrained, ScanID: scanID, TimestampMS: now()}
}

// NewMemoryWarning builds a MemoryWarning event.
func NewMemoryWarning(scanID string, current, threshold int64) Event {
	return Event{Kind: MemoryWarning, ScanID: scanID, Current: current, Threshold: threshold, TimestampMS: now()}
}

// Subscriber receives events on Events() and is identified by ID for
// targeted delivery and deterministic teardown (Unsubscribe).
type Subscriber struct {
	id     string
	events chan Event
}

// ID returns this subscriber's registration id.
func (s *Subscriber) ID() string { return s.id }

// Events returns the channel new events arrive on. The channel is closed on
// Unsubscribe.
func (s *Subscriber) Events() <-chan Event { return s.events }

// Bus is the queue's typed lifecycle event notifier. Publish never blocks on
// a slow subscriber: each subscriber has its own bounded buffer, and a full
// buffer drops the event for that subscriber only, logging the failure
// rather than aborting the publish (spec.md §4.9).
type Bus struct {
	logger zerolog.Logger

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
}

// NewBus constructs an empty bus. logger is used only to report delivery
// failures to individual subscribers; it is never a package-level global,
// per spec.md §9's "no implicit ambient state" note.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger.With().Str("component", "notify.Bus").Logger(), subscribers: make(map[string]*Subscriber)}
}

// Subscribe registers a new subscriber with the given buffer depth and
// returns its handle. Callers should range over Events() in their own
// goroutine.
func (b *Bus) Subscribe(id string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &Subscriber{id: id, events: make(chan Event, buffer)}
	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call more
// than once.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
	if ok {
		close(sub.events)
	}
}

// Publish broadcasts ev to every subscriber. Delivery to any one subscriber
// never blocks the publisher beyond a non-blocking channel send: a full
// buffer counts as a delivery failure for that subscriber and is logged, but
// does not affect delivery to the others or return an error to the caller.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, sub := range b.subscribers {
		select {
		case sub.events <- ev:
		default:
			b.logger.Warn().Str("subscriber_id", id).Str("event", ev.Kind.String()).Msg("dropped event: subscriber buffer full")
		}
	}
}

// PublishTo delivers ev to exactly one subscriber by id, for targeted
// control events. It reports whether the subscriber was found and the send
// succeeded.
func (b *Bus) PublishTo(id string, ev Event) bool {
	b.mu.RLock()
	sub, ok := b.subscribers[id]
	b.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case sub.events <- ev:
		return true
	default:
		b.logger.Warn().Str("subscriber_id", id).Str("event", ev.Kind.String()).Msg("dropped targeted event: subscriber buffer full")
		return false
	}
}

// SubscriberCount reports the number of currently registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
