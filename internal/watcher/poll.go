package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"
)

// PollSweeper is the timer-driven fallback source. Every interval it
// re-stats the tracked modality directories and diffs against the
// previous snapshot. It is the only source guaranteed to work on
// filesystems where push notifications silently never fire.
type PollSweeper struct {
	opts  Options
	state map[string]pollSnapshot
}

type pollSnapshot struct {
	modTime time.Time
	size    int64
}

// NewPollSweeper creates the polling source.
func NewPollSweeper(opts Options) *PollSweeper {
	return &PollSweeper{
		opts:  opts.WithDefaults(),
		state: make(map[string]pollSnapshot),
	}
}

// Name implements Source.
func (p *PollSweeper) Name() string { return "poll" }

// Run implements Source. The first sweep establishes a baseline and
// emits nothing.
func (p *PollSweeper) Run(ctx context.Context, out chan<- FileEvent) error {
	p.state = p.snapshot()

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.sweep(ctx, out)
		}
	}
}

// snapshot stats every image file in every tracked root. Roots that
// fail to list are recorded as absent; the diff turns that into delete
// events for their files and the root itself.
func (p *PollSweeper) snapshot() map[string]pollSnapshot {
	current := make(map[string]pollSnapshot)
	for _, root := range p.opts.Roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		current[root] = pollSnapshot{}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			path := filepath.Join(root, e.Name())
			if !p.opts.accepts(path) {
				continue
			}
			info, err := e.Info()
			if err != nil {
				// Vanished between list and stat: a benign
				// race, the next sweep sees the delete.
				continue
			}
			current[path] = pollSnapshot{modTime: info.ModTime(), size: info.Size()}
		}
	}
	return current
}

func (p *PollSweeper) sweep(ctx context.Context, out chan<- FileEvent) {
	current := p.snapshot()
	now := time.Now()

	for path, snap := range current {
		prev, existed := p.state[path]
		if !existed {
			if !isRootKey(p.opts.Roots, path) {
				emit(ctx, out, FileEvent{Path: path, Operation: OpCreate, Source: p.Name(), Timestamp: now})
			}
			continue
		}
		if snap != prev {
			emit(ctx, out, FileEvent{Path: path, Operation: OpModify, Source: p.Name(), Timestamp: now})
		}
	}

	for path := range p.state {
		if _, still := current[path]; !still {
			emit(ctx, out, FileEvent{Path: path, Operation: OpDelete, Source: p.Name(), Timestamp: now})
		}
	}

	p.state = current
}

func isRootKey(roots []string, path string) bool {
	for _, r := range roots {
		if r == path {
			return true
		}
	}
	return false
}
