package plugin

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/repostream/queuecore/queue"
)

// JSONLSink is a reference Plugin that writes each accepted message as one
// JSON line to an io.Writer, grounded on the teacher's stdout-export idiom
// in main.go.
type JSONLSink struct {
	name string
	mu   sync.Mutex
	w    io.Writer
	enc  *json.Encoder
}

// NewJSONLSink constructs a JSONLSink plugin writing to w.
func NewJSONLSink(name string, w io.Writer) *JSONLSink {
	return &JSONLSink{name: name, w: w, enc: json.NewEncoder(w)}
}

func (s *JSONLSink) Name() string { return s.name }

func (s *JSONLSink) Accept(ctx context.Context, msg *queue.SharedMessage) error {
	if !msg.Valid() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(msg.Message())
}

func (s *JSONLSink) Complete(ctx context.Context, stats queue.Statistics) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(stats)
}
