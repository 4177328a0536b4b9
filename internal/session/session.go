// Package session ties the pieces together. Opening a session scans the
// modality directories, matches files into tuples, builds the model, and
// acquires an exclusive lock so two processes never watch the same roots.
// Running it keeps the model synchronized with the filesystem until the
// context is cancelled.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/toshas/imagecompare/internal/config"
	"github.com/toshas/imagecompare/internal/engine"
	apperr "github.com/toshas/imagecompare/internal/errors"
	"github.com/toshas/imagecompare/internal/matcher"
	"github.com/toshas/imagecompare/internal/model"
	"github.com/toshas/imagecompare/internal/naming"
	"github.com/toshas/imagecompare/internal/scanner"
	"github.com/toshas/imagecompare/internal/watcher"
)

const lockFileName = ".imagecompare.lock"

// Session is an open comparison session over one or more modality
// directories. All model access goes through the engine's apply loop.
type Session struct {
	dirs  []string
	names []string // disambiguated modality display names, same order as dirs
	cfg   *config.Config

	m       *model.Model
	eng     *engine.Engine
	sources []watcher.Source
	lock    *flock.Flock

	view atomic.Int64

	mu          sync.Mutex
	winnerNames map[string]string // tuple name -> winning modality name
	winnersPath string
}

// Open builds a session over dirs. It scans and matches the initial
// contents, restores persisted winners, and locks the first directory.
// The session does not observe filesystem changes until Run is called.
func Open(ctx context.Context, dirs []string, cfg *config.Config) (*Session, error) {
	if len(dirs) == 0 {
		return nil, apperr.New(apperr.ErrCodeInvalidInput, "at least one directory is required")
	}

	abs := make([]string, len(dirs))
	for i, d := range dirs {
		a, err := filepath.Abs(d)
		if err != nil {
			return nil, apperr.Wrapf(apperr.ErrCodeInvalidPath, err, "resolving %s", d)
		}
		info, err := os.Stat(a)
		if err != nil {
			return nil, apperr.Wrapf(apperr.ErrCodeDirNotFound, err, "directory %s", d)
		}
		if !info.IsDir() {
			return nil, apperr.Newf(apperr.ErrCodeInvalidPath, "%s is not a directory", d)
		}
		abs[i] = a
	}

	lock := flock.New(filepath.Join(abs[0], lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeFilePermission, "acquiring session lock", err)
	}
	if !locked {
		return nil, apperr.Newf(apperr.ErrCodeSessionLocked,
			"another session is already open on %s", abs[0])
	}

	s, err := build(ctx, abs, cfg)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	s.lock = lock
	return s, nil
}

func build(ctx context.Context, dirs []string, cfg *config.Config) (*Session, error) {
	names := naming.DisambiguateDirs(dirs)

	sc := scanner.New(scanner.Options{Extensions: cfg.Extensions})
	listings, err := sc.ScanAll(ctx, dirs)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeDirNotFound, "scanning modality directories", err)
	}

	lists := make([]matcher.ModalityFiles, len(listings))
	for i, l := range listings {
		lists[i] = matcher.ModalityFiles{Modality: names[i], Files: l.Files}
	}
	groups := matcher.Match(lists)

	m, err := model.New(model.Options{
		ImageCacheSize: cfg.Cache.Images,
		ThumbCacheSize: cfg.Cache.Thumbs,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInternal, "creating model", err)
	}
	for _, name := range names {
		m.InsertModality(name)
	}
	for _, g := range groups {
		m.InsertTuple(m.TupleCount(), tupleFromGroup(m, g))
	}

	s := &Session{
		dirs:        dirs,
		names:       names,
		cfg:         cfg,
		m:           m,
		winnersPath: filepath.Join(dirs[0], winnersFileName),
	}

	s.winnerNames, err = loadWinners(s.winnersPath)
	if err != nil {
		// A corrupt winners file never blocks opening; start fresh.
		slog.Warn("ignoring unreadable winners file",
			slog.String("path", s.winnersPath), slog.Any("error", err))
		s.winnerNames = make(map[string]string)
	}
	s.applyWinners()

	dirToName := make(map[string]string, len(dirs))
	for i, d := range dirs {
		dirToName[d] = names[i]
	}
	s.eng = engine.New(m, dirToName, func() int { return int(s.view.Load()) }, engine.Options{
		GraceWindow: cfg.Sync.GraceWindow,
		DeletedTTL:  cfg.Sync.DeletedTTL,
	})

	wopts := watcher.Options{
		Roots:        dirs,
		Filter:       sc.IsImagePath,
		PollInterval: cfg.Sync.PollInterval,
	}
	s.sources = []watcher.Source{
		watcher.NewTreeWatcher(wopts),
		watcher.NewLeafWatcher(wopts),
		watcher.NewPollSweeper(wopts),
	}

	return s, nil
}

// tupleFromGroup converts a matched file group into a model tuple.
// Stripped names are collected in modality index order so name derivation
// sees the same input order on every run; tuple names key the winners file
// and must not drift between restarts.
func tupleFromGroup(m *model.Model, g matcher.Group) *model.Tuple {
	stripped := make([]string, 0, len(g.Files))
	t := &model.Tuple{
		Images: make([]*model.ImageRef, m.ModalityCount()),
	}
	for idx := 0; idx < m.ModalityCount(); idx++ {
		modName := m.ModalityName(idx)
		fe, ok := g.Files[modName]
		if !ok {
			continue
		}
		stripped = append(stripped, matcher.StripExt(fe.Name))
		t.Images[idx] = &model.ImageRef{
			Path:        fe.Path,
			DisplayName: fe.Name,
			Modality:    modName,
		}
	}
	t.Name = naming.TupleName(stripped, g.RefName)
	return t
}

// applyWinners restores persisted winner choices onto matching tuples.
// Entries naming unknown tuples are kept; their files may reappear.
func (s *Session) applyWinners() {
	for i := 0; i < s.m.TupleCount(); i++ {
		t := s.m.TupleAt(i)
		modName, ok := s.winnerNames[t.Name]
		if !ok {
			continue
		}
		mi, ok := s.m.ModalityIndex(modName)
		if !ok || t.Images[mi] == nil {
			continue
		}
		s.m.SetWinner(i, mi)
	}
}

// Run starts the engine and the three change-detection sources and
// blocks until ctx is cancelled. A failing source degrades detection
// but never tears down the session; the poll sweeper alone keeps the
// model converging.
func (s *Session) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.eng.Run(gctx)
	})
	for _, src := range s.sources {
		src := src
		g.Go(func() error {
			err := src.Run(gctx, s.eng.Intake())
			if err != nil && gctx.Err() == nil {
				werr := apperr.Wrapf(apperr.ErrCodeWatcherFailed, err,
					"change detection source %s stopped", src.Name())
				slog.Warn(werr.Message, slog.String("code", werr.Code), slog.Any("error", err))
			}
			return nil
		})
	}
	return g.Wait()
}

// Modalities returns the display names in model (case-insensitive) order.
func (s *Session) Modalities() []string {
	return s.m.Modalities()
}

// Dirs returns the absolute modality directories in input order.
func (s *Session) Dirs() []string {
	out := make([]string, len(s.dirs))
	copy(out, s.dirs)
	return out
}

// CurrentView returns the tuple index the user is looking at.
func (s *Session) CurrentView() int {
	return int(s.view.Load())
}

// SetView records the tuple index the user is looking at. New tuples
// discovered by the sync engine are inserted just after this position.
func (s *Session) SetView(i int) {
	if i < 0 {
		i = 0
	}
	s.view.Store(int64(i))
}

// SetWinner marks modality as the winner of tuple and persists the
// choice. Indices refer to the current model ordering.
func (s *Session) SetWinner(ctx context.Context, tuple, modality int) error {
	var tupleName, modName string
	err := s.eng.Do(ctx, func(m *model.Model) {
		t := m.TupleAt(tuple)
		if t == nil || modality < 0 || modality >= m.ModalityCount() {
			return
		}
		m.SetWinner(tuple, modality)
		tupleName = t.Name
		modName = m.ModalityName(modality)
	})
	if err != nil {
		return err
	}
	if tupleName == "" {
		return apperr.Newf(apperr.ErrCodeInvalidInput, "no such tuple or modality: %d/%d", tuple, modality)
	}

	s.mu.Lock()
	s.winnerNames[tupleName] = modName
	s.mu.Unlock()
	return s.persistWinners()
}

// ClearWinner removes the winner of tuple and persists the change.
func (s *Session) ClearWinner(ctx context.Context, tuple int) error {
	var tupleName string
	err := s.eng.Do(ctx, func(m *model.Model) {
		t := m.TupleAt(tuple)
		if t == nil {
			return
		}
		m.ClearWinner(tuple)
		tupleName = t.Name
	})
	if err != nil {
		return err
	}
	if tupleName == "" {
		return apperr.Newf(apperr.ErrCodeInvalidInput, "no such tuple: %d", tuple)
	}

	s.mu.Lock()
	delete(s.winnerNames, tupleName)
	s.mu.Unlock()
	return s.persistWinners()
}

// Subscribe registers fn for model change notifications. It must be
// called before Run; fn runs on the engine goroutine and must not block.
func (s *Session) Subscribe(fn func(model.Delta)) {
	s.m.Subscribe(fn)
}

// Do runs fn on the engine goroutine with exclusive model access.
func (s *Session) Do(ctx context.Context, fn func(m *model.Model)) error {
	return s.eng.Do(ctx, fn)
}

// TupleView is a read-only snapshot of one tuple.
type TupleView struct {
	Name   string
	Images []string // display names indexed by modality, "" when absent
	Winner string   // winning modality name, "" when none
}

// View is a read-only snapshot of the whole model.
type View struct {
	Modalities []string
	Tuples     []TupleView
}

// Snapshot captures the current model state for display. The engine
// must be running; use StaticView before Run.
func (s *Session) Snapshot(ctx context.Context) (View, error) {
	var v View
	err := s.eng.Do(ctx, func(m *model.Model) {
		v = viewOf(m)
	})
	return v, err
}

// StaticView reads the model directly. It is only safe while the
// engine is not running, as after Open and before Run.
func (s *Session) StaticView() View {
	return viewOf(s.m)
}

func viewOf(m *model.Model) View {
	v := View{
		Modalities: m.Modalities(),
		Tuples:     make([]TupleView, m.TupleCount()),
	}
	for i := range v.Tuples {
		t := m.TupleAt(i)
		tv := TupleView{Name: t.Name, Images: make([]string, len(t.Images))}
		for j, ref := range t.Images {
			if ref != nil {
				tv.Images[j] = ref.DisplayName
			}
		}
		if w, ok := m.Winner(i); ok {
			tv.Winner = m.ModalityName(w)
		}
		v.Tuples[i] = tv
	}
	return v
}

// Close persists winners and releases the session lock.
func (s *Session) Close() error {
	perr := s.persistWinners()
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			return fmt.Errorf("releasing session lock: %w", err)
		}
	}
	return perr
}

func (s *Session) persistWinners() error {
	s.mu.Lock()
	snapshot := make(map[string]string, len(s.winnerNames))
	for k, v := range s.winnerNames {
		snapshot[k] = v
	}
	s.mu.Unlock()
	return saveWinners(s.winnersPath, snapshot)
}
