package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(ch chan FileEvent) []FileEvent {
	var out []FileEvent
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func isImage(path string) bool {
	return filepath.Ext(path) == ".png"
}

func TestPollSweeper_DetectsCreateModifyDelete(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "a.png")
	require.NoError(t, os.WriteFile(existing, []byte("v1"), 0o644))

	p := NewPollSweeper(Options{Roots: []string{root}, Filter: isImage})
	p.state = p.snapshot()

	// Create, modify, and delete between sweeps.
	created := filepath.Join(root, "b.png")
	require.NoError(t, os.WriteFile(created, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(existing, []byte("v2-longer"), 0o644))
	ignored := filepath.Join(root, "notes.txt")
	require.NoError(t, os.WriteFile(ignored, []byte("x"), 0o644))

	out := make(chan FileEvent, 16)
	p.sweep(context.Background(), out)
	events := collect(out)

	ops := map[string]Operation{}
	for _, ev := range events {
		ops[ev.Path] = ev.Operation
	}
	assert.Equal(t, OpCreate, ops[created])
	assert.Equal(t, OpModify, ops[existing])
	_, sawIgnored := ops[ignored]
	assert.False(t, sawIgnored, "non-image files are filtered")

	require.NoError(t, os.Remove(created))
	p.sweep(context.Background(), out)
	events = collect(out)
	require.Len(t, events, 1)
	assert.Equal(t, OpDelete, events[0].Operation)
	assert.Equal(t, created, events[0].Path)
}

func TestPollSweeper_RootRemovalEmitsDirDelete(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "gt")
	require.NoError(t, os.Mkdir(root, 0o755))
	file := filepath.Join(root, "a.png")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	p := NewPollSweeper(Options{Roots: []string{root}, Filter: isImage})
	p.state = p.snapshot()

	require.NoError(t, os.RemoveAll(root))

	out := make(chan FileEvent, 16)
	p.sweep(context.Background(), out)
	events := collect(out)

	paths := map[string]Operation{}
	for _, ev := range events {
		paths[ev.Path] = ev.Operation
	}
	assert.Equal(t, OpDelete, paths[root], "root directory delete must be reported")
	assert.Equal(t, OpDelete, paths[file])
}

func TestPollSweeper_BaselineSweepIsQuiet(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.png"), []byte("x"), 0o644))

	p := NewPollSweeper(Options{Roots: []string{root}, Filter: isImage})
	p.state = p.snapshot()

	out := make(chan FileEvent, 16)
	p.sweep(context.Background(), out)
	assert.Empty(t, collect(out))
}

func TestPollSweeper_RunRespectsContext(t *testing.T) {
	root := t.TempDir()
	p := NewPollSweeper(Options{Roots: []string{root}, PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	out := make(chan FileEvent, 16)
	go func() { done <- p.Run(ctx, out) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poll sweeper did not stop on cancellation")
	}
}
