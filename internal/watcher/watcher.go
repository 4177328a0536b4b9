// Package watcher provides the three redundant file-change detection
// sources of a comparison session: a push watcher over the modality
// roots and their parents, a finer-grained push watcher on the leaf
// directories with an existence re-check, and a timer-driven re-stat
// sweep. Any source may be unavailable on a given filesystem; they
// overlap on purpose and the consumer deduplicates.
package watcher

import (
	"context"
	"time"
)

// Operation represents a file system operation type.
type Operation int

const (
	// OpCreate indicates a new file appeared.
	OpCreate Operation = iota
	// OpModify indicates an existing file changed.
	OpModify
	// OpDelete indicates a file or a modality directory disappeared.
	OpDelete
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one raw change notification. Paths are absolute. The
// same real-world change may surface as several events from different
// sources.
type FileEvent struct {
	Path      string
	Operation Operation
	Source    string
	Timestamp time.Time
}

// Source is one detection mechanism. Run blocks until ctx is cancelled
// or the source fails; raw events go to out. A Run error after startup
// means this source degraded, not that the session is broken.
type Source interface {
	// Name identifies the source in logs ("tree", "leaf", "poll").
	Name() string
	Run(ctx context.Context, out chan<- FileEvent) error
}

// Options configures the detection sources.
type Options struct {
	// Roots are the absolute modality directories to track.
	Roots []string

	// Filter limits file events to interesting paths (image files).
	// Directory-level events bypass the filter. Nil accepts all.
	Filter func(path string) bool

	// PollInterval is the re-stat sweep period. Default: 2s.
	PollInterval time.Duration

	// RecheckDelay is how long the leaf watcher waits before
	// re-statting a path to tell a rename from an unlink. Default: 10ms.
	RecheckDelay time.Duration
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		PollInterval: 2 * time.Second,
		RecheckDelay: 10 * time.Millisecond,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.RecheckDelay == 0 {
		o.RecheckDelay = defaults.RecheckDelay
	}
	return o
}

func (o Options) accepts(path string) bool {
	return o.Filter == nil || o.Filter(path)
}

// emit delivers an event unless the context is already cancelled.
func emit(ctx context.Context, out chan<- FileEvent, ev FileEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
