// Package engine reconciles raw file-change notifications with the
// session model. Events arrive concurrently from redundant detection
// sources; a single run loop applies them one at a time, because index
// renumbering is not commutative. Deletes pass through a grace window
// so a matching create can resolve them as a rename instead of a real
// removal.
package engine

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/toshas/imagecompare/internal/matcher"
	"github.com/toshas/imagecompare/internal/model"
	"github.com/toshas/imagecompare/internal/watcher"
)

// Options configures the engine's timing behavior.
type Options struct {
	// GraceWindow is how long a deleted slot waits for a matching
	// create before the delete is finalized. Default: 500ms.
	GraceWindow time.Duration

	// DeletedTTL caps the age of recently-deleted entries regardless
	// of resolution. Default: 2s.
	DeletedTTL time.Duration

	// SweepInterval is how often the TTL sweep runs. Default: 1s.
	SweepInterval time.Duration

	// QueueSize is the intake channel buffer. Default: 256.
	QueueSize int
}

// DefaultOptions returns the default engine options.
func DefaultOptions() Options {
	return Options{
		GraceWindow:   500 * time.Millisecond,
		DeletedTTL:    2 * time.Second,
		SweepInterval: time.Second,
		QueueSize:     256,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.GraceWindow == 0 {
		o.GraceWindow = defaults.GraceWindow
	}
	if o.DeletedTTL == 0 {
		o.DeletedTTL = defaults.DeletedTTL
	}
	if o.SweepInterval == 0 {
		o.SweepInterval = defaults.SweepInterval
	}
	if o.QueueSize == 0 {
		o.QueueSize = defaults.QueueSize
	}
	return o
}

// Engine owns the serialized apply step of one session.
type Engine struct {
	m    *model.Model
	opts Options

	// dirToName maps absolute modality directory to modality name.
	dirToName map[string]string

	// matched mode (more than one modality) enables the cross-modality
	// sibling rename heuristic.
	matched bool

	// view returns the currently-viewed tuple index; brand-new tuples
	// are inserted right after it so arrivals surface near the user.
	view func() int

	intake chan watcher.FileEvent
	tasks  chan func()
	done   chan struct{}

	// timers holds pending grace-window finalizers keyed by deleted
	// path, the stable identity of a pending slot. Only the run loop
	// touches this map.
	timers map[string]*time.Timer
}

// New creates an engine over the model. dirToName maps every tracked
// modality directory (absolute path) to its modality name; view
// provides the currently-viewed tuple index.
func New(m *model.Model, dirToName map[string]string, view func() int, opts Options) *Engine {
	opts = opts.WithDefaults()
	if view == nil {
		view = func() int { return 0 }
	}
	return &Engine{
		m:         m,
		opts:      opts,
		dirToName: dirToName,
		matched:   len(dirToName) > 1,
		view:      view,
		intake:    make(chan watcher.FileEvent, opts.QueueSize),
		tasks:     make(chan func(), opts.QueueSize),
		done:      make(chan struct{}),
		timers:    make(map[string]*time.Timer),
	}
}

// Intake returns the channel detection sources feed raw events into.
func (e *Engine) Intake() chan<- watcher.FileEvent { return e.intake }

// Do runs fn inside the serialized apply step and waits for it to
// complete. Use it for every model access that does not originate from
// a file event, e.g. winner changes driven by the UI. Must not be
// called from inside another Do or a delta listener.
func (e *Engine) Do(ctx context.Context, fn func(m *model.Model)) error {
	ran := make(chan struct{})
	select {
	case e.tasks <- func() { fn(e.m); close(ran) }:
	case <-e.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-e.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes events until ctx is cancelled. It is the only goroutine
// that mutates the model.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.done)
	defer e.stopTimers()

	sweep := time.NewTicker(e.opts.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.intake:
			e.handleEvent(ev)
		case fn := <-e.tasks:
			fn()
		case <-sweep.C:
			e.sweepDeleted()
		}
	}
}

func (e *Engine) handleEvent(ev watcher.FileEvent) {
	slog.Debug("apply event",
		slog.String("op", ev.Operation.String()),
		slog.String("path", ev.Path),
		slog.String("source", ev.Source))

	switch ev.Operation {
	case watcher.OpCreate:
		e.onCreated(ev.Path)
	case watcher.OpDelete:
		e.onDeleted(ev.Path, ev.Timestamp)
	case watcher.OpModify:
		e.onModified(ev.Path)
	}
}

// onDeleted records a pending delete and schedules its finalize check.
// Structure is not mutated yet; only caches are evicted so stale pixels
// never show.
func (e *Engine) onDeleted(path string, at time.Time) {
	if e.m.HasDeleted(path) {
		// Duplicate report from another source.
		return
	}

	if name, ok := e.dirToName[path]; ok {
		e.removeModalityDir(name)
		return
	}

	slot, ok := e.m.FindPath(path)
	if !ok {
		// Stale or never-tracked file.
		return
	}
	if at.IsZero() {
		at = time.Now()
	}

	e.m.RecordDeleted(path, slot, at)
	e.m.EvictSlot(slot)
	e.scheduleFinalize(path)
}

// onCreated resolves a create as a restore, a rename, or a genuinely
// new file, in that order.
func (e *Engine) onCreated(path string) {
	dir := filepath.Dir(path)
	name, known := e.dirToName[dir]
	if !known {
		// A file outside every tracked modality directory is not a
		// new modality source.
		return
	}

	// Restore of the identical file instance: the slot still holds
	// this exact path during the grace window or after a benign
	// duplicate create.
	if slot, ok := e.m.FindPath(path); ok {
		if _, pending := e.m.TakeDeleted(path); pending {
			e.cancelFinalize(path)
		}
		e.m.RefreshSlot(slot)
		return
	}

	// Rename heuristics: a pending delete in the same directory is a
	// same-modality rename; in matched mode a pending delete of an
	// identically-named file in a sibling modality directory is one
	// step of a cross-modality batch rename.
	entry, ok := e.m.TakeDeletedInDir(dir)
	if !ok && e.matched {
		entry, ok = e.m.TakeDeletedSibling(filepath.Dir(dir), filepath.Base(path))
	}
	if ok {
		e.cancelFinalize(entry.Path)
		e.m.UpdateSlotPath(
			model.SlotKey{Tuple: entry.Tuple, Modality: entry.Modality},
			path, filepath.Base(path))
		return
	}

	e.attachNew(path, name)
}

// onModified evicts the owning slot's caches so the pixels regenerate;
// no structural change.
func (e *Engine) onModified(path string) {
	slot, ok := e.m.FindPath(path)
	if !ok {
		return
	}
	e.m.RefreshSlot(slot)
}

// removeModalityDir handles deletion of a whole modality directory.
func (e *Engine) removeModalityDir(name string) {
	idx, ok := e.m.ModalityIndex(name)
	if !ok {
		return
	}
	slog.Info("modality directory removed", slog.String("modality", name))
	e.m.RemoveModality(idx)
	// Pending deletes in that modality were dropped with it; their
	// timers fire into no-ops.
}

// attachNew places a genuinely new file: most specific match wins, and
// an occupied best slot forces a fresh tuple rather than a fall back to
// a worse match.
func (e *Engine) attachNew(path, modalityName string) {
	mi, ok := e.m.ModalityIndex(modalityName)
	if !ok {
		mi = e.m.InsertModality(modalityName)
	}

	base := filepath.Base(path)
	stripped := matcher.StripExt(base)
	ref := &model.ImageRef{Path: path, DisplayName: base, Modality: modalityName}

	best, bestScore, bestFree := -1, 0, false
	for ti := 0; ti < e.m.TupleCount(); ti++ {
		t := e.m.TupleAt(ti)
		score := 0
		if t.Name != "" && strings.Contains(stripped, t.Name) {
			score = len(t.Name)
		}
		for _, img := range t.Images {
			if img != nil && matcher.StripExt(img.DisplayName) == stripped && len(stripped) > score {
				score = len(stripped)
			}
		}
		if score == 0 {
			continue
		}
		free := mi < len(t.Images) && t.Images[mi] == nil
		// Strictly better score wins; equal score prefers a free
		// slot; remaining ties keep the lowest tuple index.
		if score > bestScore || (score == bestScore && free && !bestFree) {
			best, bestScore, bestFree = ti, score, free
		}
	}

	if best >= 0 && bestFree {
		e.m.AttachImage(best, mi, ref)
		return
	}

	images := make([]*model.ImageRef, e.m.ModalityCount())
	images[mi] = ref
	pos := e.view() + 1
	if pos < 0 {
		pos = 0
	}
	if pos > e.m.TupleCount() {
		pos = e.m.TupleCount()
	}
	e.m.InsertTuple(pos, &model.Tuple{Name: stripped, Images: images})
}

// scheduleFinalize arms the grace-window timer for a pending delete.
// The timer never mutates the model itself; it injects the finalize
// into the serialized task queue.
func (e *Engine) scheduleFinalize(path string) {
	if old, ok := e.timers[path]; ok {
		old.Stop()
	}
	e.timers[path] = time.AfterFunc(e.opts.GraceWindow, func() {
		select {
		case e.tasks <- func() { e.finalizeDelete(path) }:
		case <-e.done:
		}
	})
}

func (e *Engine) cancelFinalize(path string) {
	if t, ok := e.timers[path]; ok {
		t.Stop()
		delete(e.timers, path)
	}
}

// finalizeDelete turns an unresolved pending delete into a real detach.
// If the entry was already resolved as a rename or swept, nothing
// happens.
func (e *Engine) finalizeDelete(path string) {
	delete(e.timers, path)
	entry, ok := e.m.TakeDeleted(path)
	if !ok {
		return
	}
	e.m.DetachImage(entry.Tuple, entry.Modality)
}

func (e *Engine) sweepDeleted() {
	cutoff := time.Now().Add(-e.opts.DeletedTTL)
	if dropped := e.m.SweepDeleted(cutoff); dropped > 0 {
		slog.Debug("swept stale pending deletes", slog.Int("count", dropped))
	}
}

func (e *Engine) stopTimers() {
	for path, t := range e.timers {
		t.Stop()
		delete(e.timers, path)
	}
}
