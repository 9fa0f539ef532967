package queue

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/repostream/queuecore/notify"
)

// Statistics is the summary introspection view spec.md §6 names.
type Statistics struct {
	QueueSize       int
	MemoryUsage     int64
	ActiveConsumers int
	TotalMessages   uint64
}

// MemoryStats is an alias for the Memory Accountant's diagnostic report,
// exposed at the queue's introspection surface.
type MemoryStats = Report

// MultiConsumerQueue is the core component: a bounded, memory-accounted,
// sequence-indexed, multi-consumer queue of shared messages. Grounded on
// original_source/src/queue/multi_consumer.rs's MultiConsumerQueue, with the
// VecDeque<Arc<ScanMessage>> storage reshaped into a Go slice of
// SharedMessage (GC-backed sharing, see message.go) under a single
// sync.RWMutex guarding storage+tracker together, matching the lock-order
// rule in spec.md §5 ("notification bus < registry < (storage + tracker) <
// memory-accountant-history").
type MultiConsumerQueue struct {
	scanID string
	cfg    MultiConsumerConfig
	bus    *notify.Bus
	logger zerolog.Logger

	accountant *MemoryAccountant
	backoff    *BackoffController
	pressure   *PressureResponder
	registry   *consumerRegistry

	mu      sync.RWMutex
	tracker *sequenceTracker
	storage []SharedMessage

	active atomic.Bool

	gcInProgress   atomic.Bool
	lastLowWater   atomic.Uint64
	lastGC         atomic.Int64 // unix nanos
	gcRuns         atomic.Uint64
	messagesGCed   atomic.Uint64

	consumerSeq atomic.Uint64

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewMultiConsumerQueue constructs a queue in the inactive state. Start must
// be called before Enqueue succeeds.
func NewMultiConsumerQueue(scanID string, bus *notify.Bus, cfg MultiConsumerConfig, logger zerolog.Logger) *MultiConsumerQueue {
	q := &MultiConsumerQueue{
		scanID:     scanID,
		cfg:        cfg,
		bus:        bus,
		logger:     logger.With().Str("component", "queue.MultiConsumerQueue").Str("scan_id", scanID).Logger(),
		accountant: NewMemoryAccountant(cfg.MemoryThresholdBytes, 256),
		backoff:    NewBackoffController(cfg.Backoff),
		pressure:   NewPressureResponder(cfg.Pressure),
		registry:   newConsumerRegistry(),
		tracker:    newSequenceTracker(),
		stopCh:     make(chan struct{}),
	}
	q.lastGC.Store(time.Now().UnixNano())
	return q
}

// Start flips the queue active and, if auto-GC is enabled, launches the
// periodic GC loop. Safe to call once; a second call is a no-op.
func (q *MultiConsumerQueue) Start() {
	if !q.active.CompareAndSwap(false, true) {
		return
	}
	q.bus.Publish(notify.NewScanStarted(q.scanID))
	if q.cfg.AutoGC {
		go q.gcLoop()
	}
}

// Stop flips the queue inactive, refusing new enqueues while still allowing
// reads. It is optional — spec.md §4.6 does not require it — but idiomatic
// Go services need a way to quiesce a background GC loop on shutdown.
func (q *MultiConsumerQueue) Stop() {
	q.active.Store(false)
	q.stopOnce.Do(func() { close(q.stopCh) })
}

func (q *MultiConsumerQueue) gcLoop() {
	ticker := time.NewTicker(q.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			q.maybeRunGC()
		}
	}
}

// Enqueue applies the eight-step contract from spec.md §4.6: capacity and
// activity checks, pressure-responder drop, cooperative backoff wait,
// sequence assignment, memory charge (with sequence holes permitted on
// rejection, per spec.md §7/§9), shared-wrap and push, MessageAdded
// notification, and a conditional GC trigger. ctx governs the cooperative
// backoff wait only; every other step is non-blocking.
func (q *MultiConsumerQueue) Enqueue(ctx context.Context, msg Message) (uint64, error) {
	if !q.active.Load() {
		return 0, errScanNotStarted(nil)
	}

	q.mu.RLock()
	full := len(q.storage) >= q.cfg.MaxQueueSize
	q.mu.RUnlock()
	if full {
		return 0, errQueueFull(map[string]any{"max_queue_size": q.cfg.MaxQueueSize})
	}

	usagePct := q.accountant.UsagePercent()
	if q.pressure.Evaluate(usagePct) {
		return 0, errMessageDropped(map[string]any{"usage_percent": usagePct})
	}

	level := q.accountant.PressureLevelNow()
	if delay := q.backoff.Delay(level, usagePct); delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return 0, ctx.Err()
		}
	}

	footprint := int64(msg.EstimateFootprint())

	q.mu.Lock()
	seq := q.tracker.allocate()
	msg.Header.Sequence = seq
	if !q.accountant.Allocate(footprint) {
		q.mu.Unlock()
		// The sequence is already consumed; this is the permitted hole
		// described in spec.md §7/§9 — the slot simply never appears in
		// storage.
		return seq, errMemoryLimitExceeded(map[string]any{"sequence": seq, "footprint": footprint})
	}
	q.storage = append(q.storage, newSharedMessage(msg))
	queueSize := len(q.storage)
	q.mu.Unlock()

	q.bus.Publish(notify.NewMessageAdded(q.scanID, 1, queueSize))

	if q.accountant.PressureLevelNow() >= PressureHigh {
		q.bus.Publish(notify.NewMemoryWarning(q.scanID, q.accountant.Allocated(), q.cfg.MemoryThresholdBytes))
	}

	q.maybeRunGC()

	return seq, nil
}

// shouldRunGC reports whether the GC preconditions from spec.md §4.6 hold,
// without yet taking the low-water-mark snapshot.
func (q *MultiConsumerQueue) shouldRunGC() bool {
	if !q.cfg.AutoGC || q.gcInProgress.Load() {
		return false
	}
	q.mu.RLock()
	size := len(q.storage)
	q.mu.RUnlock()
	elapsed := time.Since(time.Unix(0, q.lastGC.Load())) >= q.cfg.GCInterval
	return elapsed || size >= q.cfg.MaxQueueSize/2 || q.accountant.Allocated() > q.cfg.MemoryThresholdBytes
}

// maybeRunGC runs one GC pass if the preconditions hold and the low-water
// mark has advanced since the last pass. Grounded directly on
// original_source/src/queue/multi_consumer.rs's trigger_garbage_collection.
func (q *MultiConsumerQueue) maybeRunGC() {
	if !q.shouldRunGC() {
		return
	}

	q.mu.RLock()
	_, maxSeq := q.tracker.rangeSnapshot()
	q.mu.RUnlock()
	lowWater := q.registry.minAckSeq(maxSeq)

	if lowWater <= q.lastLowWater.Load() {
		return
	}
	if !q.gcInProgress.CompareAndSwap(false, true) {
		return
	}
	defer q.gcInProgress.Store(false)

	q.mu.Lock()
	popped := 0
	var freed int64
	for popped < q.cfg.GCBatchSize && len(q.storage) > 0 {
		front := q.storage[0]
		if front.Header().Sequence >= lowWater {
			break
		}
		freed += int64(front.Message().EstimateFootprint())
		q.storage = q.storage[1:]
		popped++
	}
	if popped > 0 {
		newMin := lowWater
		if len(q.storage) > 0 {
			if frontSeq := q.storage[0].Header().Sequence; frontSeq < newMin {
				newMin = frontSeq
			}
		}
		q.tracker.setMin(newMin)
	}
	drained := len(q.storage) == 0
	q.mu.Unlock()

	if freed > 0 {
		q.accountant.Deallocate(freed)
	}
	q.lastLowWater.Store(lowWater)
	q.lastGC.Store(time.Now().UnixNano())
	q.gcRuns.Add(1)
	q.messagesGCed.Add(uint64(popped))

	if drained && popped > 0 {
		q.bus.Publish(notify.NewQueueDrained(q.scanID))
	}
}

// GetBySeq returns the shared message at sequence s, or false if s falls
// outside the current retention window. This is never an error: an
// out-of-window or not-yet-enqueued sequence is a normal miss.
func (q *MultiConsumerQueue) GetBySeq(s uint64) (SharedMessage, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.tracker.isValid(s) {
		return SharedMessage{}, false
	}
	min, _ := q.tracker.rangeSnapshot()
	idx := s - min
	if idx < uint64(len(q.storage)) && q.storage[idx].Header().Sequence == s {
		return q.storage[idx], true
	}
	// A sequence hole left by a rejected allocation shifts every later
	// message towards the front of storage; storage stays sorted by
	// sequence, so search for s instead.
	i := sort.Search(len(q.storage), func(i int) bool { return q.storage[i].Header().Sequence >= s })
	if i < len(q.storage) && q.storage[i].Header().Sequence == s {
		return q.storage[i], true
	}
	return SharedMessage{}, false
}

// GetRange reads up to count consecutive messages starting at from, stopping
// at the first miss or max_seq. It errors only when from is already below
// min_seq, the one case the caller cannot recover from without a seek.
func (q *MultiConsumerQueue) GetRange(from uint64, count int) ([]SharedMessage, error) {
	q.mu.RLock()
	min, _ := q.tracker.rangeSnapshot()
	q.mu.RUnlock()
	if from < min {
		return nil, errOperationFailed("read_from below retention window", map[string]any{"from": from, "min_seq": min})
	}
	out := make([]SharedMessage, 0, count)
	for i := 0; i < count; i++ {
		sm, ok := q.GetBySeq(from + uint64(i))
		if !ok {
			break
		}
		out = append(out, sm)
	}
	return out, nil
}

// RegisterConsumer creates a new independent consumer handle. Priority is
// advisory bookkeeping only; it does not currently affect scheduling.
func (q *MultiConsumerQueue) RegisterConsumer(pluginName string, priority int) (*ConsumerHandle, error) {
	id := newConsumerID(pluginName, q.consumerSeq.Add(1))
	if err := q.registry.register(id, pluginName, priority); err != nil {
		return nil, err
	}
	return newConsumerHandle(q, id, pluginName), nil
}

// DeregisterConsumer removes a consumer's registry entry. Per spec.md §9's
// open-question resolution, this does not by itself recompute or unblock
// the GC low-water mark.
func (q *MultiConsumerQueue) DeregisterConsumer(h *ConsumerHandle) error {
	h.setActive(false)
	return q.registry.deregister(h.id)
}

// GetStatistics returns the queue's summary introspection view.
func (q *MultiConsumerQueue) GetStatistics() Statistics {
	q.mu.RLock()
	size := len(q.storage)
	q.mu.RUnlock()
	return Statistics{
		QueueSize:       size,
		MemoryUsage:     q.accountant.Allocated(),
		ActiveConsumers: q.registry.count(),
		TotalMessages:   q.totalEnqueued(),
	}
}

func (q *MultiConsumerQueue) totalEnqueued() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.tracker.totalEnqueued
}

// GetMemoryStats returns the memory accountant's detailed diagnostic report.
func (q *MultiConsumerQueue) GetMemoryStats() MemoryStats {
	return q.accountant.DetailedReport()
}

// GetBackoffMetrics returns the backoff controller's event/delay/level
// snapshot.
func (q *MultiConsumerQueue) GetBackoffMetrics() BackoffMetrics {
	return q.backoff.Metrics()
}

// GetGCStats returns the cumulative number of GC passes and messages
// collected over the queue's lifetime.
func (q *MultiConsumerQueue) GetGCStats() (runs, messagesCollected uint64) {
	return q.gcRuns.Load(), q.messagesGCed.Load()
}

// GetDropCount returns the number of enqueues rejected as MessageDropped.
func (q *MultiConsumerQueue) GetDropCount() uint64 {
	return q.pressure.DropCount()
}

// GetConsumerLag returns max_seq - last_ack_seq for the named consumer.
func (q *MultiConsumerQueue) GetConsumerLag(id string) (uint64, error) {
	p, ok := q.registry.get(id)
	if !ok {
		return 0, errConsumer("consumer not found", map[string]any{"consumer_id": id})
	}
	q.mu.RLock()
	_, maxSeq := q.tracker.rangeSnapshot()
	q.mu.RUnlock()
	return saturatingSub(maxSeq, p.LastAckSeq), nil
}

// GetAllConsumerLags returns every registered consumer's lag, keyed by id.
func (q *MultiConsumerQueue) GetAllConsumerLags() map[string]uint64 {
	q.mu.RLock()
	_, maxSeq := q.tracker.rangeSnapshot()
	q.mu.RUnlock()
	out := make(map[string]uint64)
	for _, p := range q.registry.all() {
		out[p.ConsumerID] = saturatingSub(maxSeq, p.LastAckSeq)
	}
	return out
}

// GetSlowestConsumer returns the id and lag of the consumer with the
// largest lag, or ok=false if there are no consumers.
func (q *MultiConsumerQueue) GetSlowestConsumer() (id string, lag uint64, ok bool) {
	lags := q.GetAllConsumerLags()
	var maxLag uint64
	found := false
	for cid, l := range lags {
		if !found || l > maxLag {
			maxLag = l
			id = cid
			found = true
		}
	}
	return id, maxLag, found
}

// GetLaggingConsumers returns the ids of consumers whose lag meets or
// exceeds threshold.
func (q *MultiConsumerQueue) GetLaggingConsumers(threshold uint64) []string {
	var out []string
	for cid, l := range q.GetAllConsumerLags() {
		if l >= threshold {
			out = append(out, cid)
		}
	}
	return out
}

// GetSequenceRange returns the current [min, max] retention window.
func (q *MultiConsumerQueue) GetSequenceRange() (min, max uint64) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.tracker.rangeSnapshot()
}

// IsValidSequence reports whether s falls within the current retention
// window.
func (q *MultiConsumerQueue) IsValidSequence(seq uint64) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.tracker.isValid(seq)
}

// GetNextSequence returns the sequence that will be assigned to the next
// enqueue.
func (q *MultiConsumerQueue) GetNextSequence() uint64 {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.tracker.nextSeq
}

func saturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}
