// Package plugin defines the narrow capability set consumer plugins
// implement, resolving spec.md §9's "Dynamic dispatch" design note as an
// interface rather than an open, reflection-based registry.
package plugin

import (
	"context"

	"github.com/repostream/queuecore/queue"
)

// Plugin is the capability set a consumer plugin implements: it accepts
// messages and reports completion. Implementations must be safe for
// concurrent use only to the extent the caller documents — the reference
// implementations in this package are safe for concurrent use (Counter uses
// atomic counters, JSONLSink serializes writes with a mutex).
type Plugin interface {
	Name() string
	Accept(ctx context.Context, msg *queue.SharedMessage) error
	Complete(ctx context.Context, stats queue.Statistics) error
}
