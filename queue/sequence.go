package queue

// sequenceTracker allocates monotonic sequence numbers and tracks the
// [minSeq, maxSeq] retention window. It is single-writer: only the queue's
// enqueue and GC paths mutate it, always under the storage+tracker lock
// (see the lock-order note on MultiConsumerQueue).
//
// Invariants: minSeq <= maxSeq+1; nextSeq == maxSeq+1 once non-empty;
// totalEnqueued is monotonic. next/min/max start at 0 with the first
// enqueued message assigned sequence 0, matching original_source's
// SequenceTracker (sequences are not 1-based here).
type sequenceTracker struct {
	nextSeq       uint64
	minSeq        uint64
	maxSeq        uint64
	totalEnqueued uint64
	empty         bool
}

func newSequenceTracker() *sequenceTracker {
	return &sequenceTracker{empty: true}
}

// allocate assigns and returns the next sequence number, advancing maxSeq
// and the enqueue counter.
func (t *sequenceTracker) allocate() uint64 {
	seq := t.nextSeq
	t.nextSeq++
	t.maxSeq = seq
	t.totalEnqueued++
	t.empty = false
	return seq
}

// setMin advances the retention window's low end after a GC pass.
func (t *sequenceTracker) setMin(newMin uint64) {
	t.minSeq = newMin
}

// rangeSnapshot returns (min, max) under whatever lock the caller is
// already holding.
func (t *sequenceTracker) rangeSnapshot() (uint64, uint64) {
	return t.minSeq, t.maxSeq
}

// isValid reports whether seq falls within the current retention window.
// Before the first message is ever enqueued, the window is considered
// empty and nothing is valid.
func (t *sequenceTracker) isValid(seq uint64) bool {
	if t.empty {
		return false
	}
	return seq >= t.minSeq && seq <= t.maxSeq
}
