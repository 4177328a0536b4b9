package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// LeafWatcher is the second, finer-grained push source: an independent
// fsnotify instance on the leaf modality directories only. Rename and
// unlink events are ambiguous at the OS level, so each is disambiguated
// by a short existence re-check before a delete is reported.
type LeafWatcher struct {
	opts  Options
	roots map[string]bool
}

// NewLeafWatcher creates the leaf source.
func NewLeafWatcher(opts Options) *LeafWatcher {
	opts = opts.WithDefaults()
	roots := make(map[string]bool, len(opts.Roots))
	for _, r := range opts.Roots {
		roots[r] = true
	}
	return &LeafWatcher{opts: opts, roots: roots}
}

// Name implements Source.
func (w *LeafWatcher) Name() string { return "leaf" }

// Run implements Source.
func (w *LeafWatcher) Run(ctx context.Context, out chan<- FileEvent) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	for root := range w.roots {
		if err := fsw.Add(root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
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
			slog.Warn("leaf watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *LeafWatcher) handle(ctx context.Context, out chan<- FileEvent, event fsnotify.Event) {
	path := event.Name
	if !w.roots[filepath.Dir(path)] || !w.opts.accepts(path) {
		return
	}

	switch {
	case event.Op&fsnotify.Create != 0:
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return
		}
		emit(ctx, out, FileEvent{Path: path, Operation: OpCreate, Source: w.Name(), Timestamp: time.Now()})
	case event.Op&fsnotify.Write != 0:
		emit(ctx, out, FileEvent{Path: path, Operation: OpModify, Source: w.Name(), Timestamp: time.Now()})
	case event.Op&fsnotify.Remove != 0, event.Op&fsnotify.Rename != 0:
		// Give an in-flight rename a moment to complete, then
		// re-stat: still present means the event was a rename
		// source whose target landed on the same path.
		select {
		case <-time.After(w.opts.RecheckDelay):
		case <-ctx.Done():
			return
		}
		if _, err := os.Stat(path); err == nil {
			return
		}
		emit(ctx, out, FileEvent{Path: path, Operation: OpDelete, Source: w.Name(), Timestamp: time.Now()})
	}
}
