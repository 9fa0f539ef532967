package queue

import (
	"time"
)

// PayloadKind tags the variable part of a Message.
type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadFileInfo
	PayloadCommitInfo
	PayloadChangeFrequencyInfo
	PayloadMetricInfo
	PayloadDependencyInfo
	PayloadSecurityInfo
	PayloadPerformanceInfo
	PayloadRepositoryStatistics
	PayloadFileChange
)

// Header carries the fixed-size metadata every message has regardless of
// payload kind. Sequence is assigned by the queue at enqueue time; any value
// set by the caller is overwritten.
type Header struct {
	Sequence    uint64
	TimestampMS int64
	ScanID      string
}

// FileChangeData is a single file's delta within a commit.
type FileChangeData struct {
	Path         string
	LinesAdded   int
	LinesRemoved int
}

// FileInfo describes a scanned file.
type FileInfo struct {
	Path  string
	Size  uint64
	Lines uint32
}

// CommitInfo describes a scanned commit and its per-file deltas.
type CommitInfo struct {
	Hash         string
	Author       string
	Message      string
	Timestamp    int64
	ChangedFiles []FileChangeData
}

// ChangeFrequencyInfo carries change-frequency analysis for one file.
// Recovered from original_source/src/scanner/messages.rs; dropped by the
// distillation but not excluded by any Non-goal.
type ChangeFrequencyInfo struct {
	FilePath       string
	ChangeCount    uint32
	AuthorCount    uint32
	LastChanged    int64
	FirstChanged   int64
	FrequencyScore float64
	RecencyWeight  float64
	Authors        []string
}

// MetricInfo carries aggregate code metrics.
type MetricInfo struct {
	FileCount  uint32
	LineCount  uint64
	Complexity float64
}

// DependencyInfo describes one resolved dependency.
type DependencyInfo struct {
	Name    string
	Version string
	License string // empty means unknown
}

// SecurityInfo describes one flagged vulnerability.
type SecurityInfo struct {
	Vulnerability string
	Severity      string
	Location      string
}

// PerformanceInfo describes one profiled hotspot.
type PerformanceInfo struct {
	Function      string
	ExecutionTime float64
	MemoryUsage   uint64
}

// RepositoryStatistics is a whole-repository rollup, typically emitted once
// near the end of a scan.
type RepositoryStatistics struct {
	TotalCommits      uint64
	TotalFiles        uint64
	TotalAuthors      uint64
	RepositorySize    uint64
	AgeDays           uint64
	AvgCommitsPerDay  float64
}

// FileChange is a single file's change event within a commit, including
// binary/rename handling. Recovered from original_source (GS-76 equivalent).
type FileChange struct {
	Path            string
	ChangeType      string // "added" | "modified" | "deleted" | "renamed"
	OldPath         string
	Insertions      int
	Deletions       int
	IsBinary        bool
	BinarySize      uint64
	LineCount       int
	CommitHash      string
	CommitTimestamp int64
	CheckoutPath    string
}

// Payload is the tagged union of variable-width message data. Only the field
// matching Kind is populated; the rest are zero values.
type Payload struct {
	Kind                PayloadKind
	FileInfo            FileInfo
	CommitInfo          CommitInfo
	ChangeFrequencyInfo ChangeFrequencyInfo
	MetricInfo          MetricInfo
	DependencyInfo      DependencyInfo
	SecurityInfo        SecurityInfo
	PerformanceInfo     PerformanceInfo
	RepositoryStats     RepositoryStatistics
	FileChange          FileChange
}

// Message is the unit of queue traffic: a fixed header plus a tagged
// payload. Messages are immutable after enqueue.
type Message struct {
	Header  Header
	Payload Payload
}

// NewMessage builds a message with the given scan id and payload; the
// sequence is filled in by the queue at enqueue time, while the timestamp is
// stamped here so producers can measure end-to-end latency even for messages
// that are later dropped.
func NewMessage(scanID string, payload Payload) Message {
	return Message{
		Header: Header{
			ScanID:      scanID,
			TimestampMS: time.Now().UnixMilli(),
		},
		Payload: payload,
	}
}

const fixedHeaderBytes = 8 /* sequence */ + 8 /* timestamp */

// EstimateFootprint returns the estimated memory footprint of the message in
// bytes: fixed header size plus the summed byte lengths of the payload's
// variable-width string/slice fields. This is an estimate, not an exact
// accounting of Go's internal representation.
func (m Message) EstimateFootprint() int {
	n := fixedHeaderBytes + len(m.Header.ScanID)

	switch m.Payload.Kind {
	case PayloadFileInfo:
		n += len(m.Payload.FileInfo.Path)
	case PayloadCommitInfo:
		c := m.Payload.CommitInfo
		n += len(c.Hash) + len(c.Author) + len(c.Message)
		for _, f := range c.ChangedFiles {
			n += len(f.Path) + 16
		}
	case PayloadChangeFrequencyInfo:
		c := m.Payload.ChangeFrequencyInfo
		n += len(c.FilePath)
		for _, a := range c.Authors {
			n += len(a)
		}
	case PayloadMetricInfo:
		// fixed-width fields only
	case PayloadDependencyInfo:
		d := m.Payload.DependencyInfo
		n += len(d.Name) + len(d.Version) + len(d.License)
	case PayloadSecurityInfo:
		s := m.Payload.SecurityInfo
		n += len(s.Vulnerability) + len(s.Severity) + len(s.Location)
	case PayloadPerformanceInfo:
		n += len(m.Payload.PerformanceInfo.Function)
	case PayloadRepositoryStatistics:
		// fixed-width fields only
	case PayloadFileChange:
		fc := m.Payload.FileChange
		n += len(fc.Path) + len(fc.OldPath) + len(fc.ChangeType) + len(fc.CommitHash) + len(fc.CheckoutPath)
	case PayloadNone:
	}

	return n
}

// SharedMessage is the shared-reference wrapper handed out by the queue to
// producers and consumers alike. Its lifetime is independent of the queue's
// backing storage: a consumer holding a SharedMessage still sees a valid
// value after the queue has garbage-collected the slot it came from, because
// Go's garbage collector keeps the underlying *Message alive as long as any
// SharedMessage references it. There is no manual refcount to get wrong;
// the "shared ownership" primitive the design notes call for is simply a
// pointer plus the runtime GC.
type SharedMessage struct {
	msg *Message
}

func newSharedMessage(m Message) SharedMessage {
	return SharedMessage{msg: &m}
}

// Message returns the underlying message value.
func (s SharedMessage) Message() Message {
	return *s.msg
}

// Header is a convenience accessor for the message header.
func (s SharedMessage) Header() Header {
	return s.msg.Header
}

// Valid reports whether this SharedMessage wraps an actual message (as
// opposed to the zero value).
func (s SharedMessage) Valid() bool {
	return s.msg != nil
}
