package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"context"

	"github.com/fsnotify/fsnotify"
)

// TreeWatcher is the host-level push source. It watches every modality
// root for file events and every root's parent so removal or rename of
// a whole modality directory is seen too.
type TreeWatcher struct {
	opts  Options
	roots map[string]bool
}

// NewTreeWatcher creates the tree source.
func NewTreeWatcher(opts Options) *TreeWatcher {
	opts = opts.WithDefaults()
	roots := make(map[string]bool, len(opts.Roots))
	for _, r := range opts.Roots {
		roots[r] = true
	}
	return &TreeWatcher{opts: opts, roots: roots}
}

// Name implements Source.
func (w *TreeWatcher) Name() string { return "tree" }

// Run implements Source.
func (w *TreeWatcher) Run(ctx context.Context, out chan<- FileEvent) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	parents := make(map[string]bool)
	for root := range w.roots {
		if err := fsw.Add(root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		parents[filepath.Dir(root)] = true
	}
	for parent := range parents {
		if err := fsw.Add(parent); err != nil {
			// Parent coverage is best-effort; root file events
			// still flow and the poll sweep catches dir removal.
			slog.Warn("tree watcher cannot cover parent directory",
				slog.String("parent", parent),
				slog.String("error", err.Error()))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, out, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("tree watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *TreeWatcher) handle(ctx context.Context, out chan<- FileEvent, event fsnotify.Event) {
	path := event.Name
	isRoot := w.roots[path]
	if !isRoot && (filepath.Dir(path) == path || !w.roots[filepath.Dir(path)]) {
		// Unrelated entry in a shared parent directory.
		return
	}
	if !isRoot && !w.opts.accepts(path) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		if isRoot {
			return
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return
		}
		emit(ctx, out, FileEvent{Path: path, Operation: OpCreate, Source: w.Name(), Timestamp: time.Now()})
	case event.Op&fsnotify.Write != 0:
		if isRoot {
			return
		}
		emit(ctx, out, FileEvent{Path: path, Operation: OpModify, Source: w.Name(), Timestamp: time.Now()})
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		// Rename delivers the old path; the new path arrives as a
		// separate Create. Either way the old path is gone.
		if _, err := os.Stat(path); err == nil {
			return
		}
		emit(ctx, out, FileEvent{Path: path, Operation: OpDelete, Source: w.Name(), Timestamp: time.Now()})
	}
}
