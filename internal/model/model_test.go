package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, modalities []string, tupleNames ...string) *Model {
	t.Helper()
	m, err := New(Options{})
	require.NoError(t, err)
	for _, name := range modalities {
		m.InsertModality(name)
	}
	for i, tn := range tupleNames {
		tuple := &Tuple{Name: tn, Images: make([]*ImageRef, len(modalities))}
		// Give every tuple one present image so the invariant holds.
		tuple.Images[0] = &ImageRef{
			Path:        "/data/" + modalities[0] + "/" + tn + ".png",
			DisplayName: tn + ".png",
			Modality:    modalities[0],
		}
		m.InsertTuple(i, tuple)
	}
	return m
}

func TestInsertModality_CaseInsensitiveOrder(t *testing.T) {
	m, err := New(Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, m.InsertModality("pred"))
	assert.Equal(t, 0, m.InsertModality("GT"))
	assert.Equal(t, 1, m.InsertModality("Other"))
	assert.Equal(t, []string{"GT", "Other", "pred"}, m.Modalities())
}

func TestInsertModality_ShiftsWinnersAndGrowsTuples(t *testing.T) {
	m := newTestModel(t, []string{"b", "d"}, "t0")
	m.SetWinner(0, 1) // winner = "d"

	pos := m.InsertModality("c")
	assert.Equal(t, 1, pos)

	w, ok := m.Winner(0)
	require.True(t, ok)
	assert.Equal(t, 2, w, "winner must follow the shifted index of d")
	assert.Len(t, m.TupleAt(0).Images, 3)
	assert.Nil(t, m.TupleAt(0).Images[1])
}

func TestInsertModality_PurgesCaches(t *testing.T) {
	m := newTestModel(t, []string{"a", "b"}, "t0")
	m.CacheImage(SlotKey{0, 0}, []byte{1})
	m.SetThumbKey(SlotKey{0, 0}, "thumb-0-0")

	m.InsertModality("c")

	_, ok := m.CachedImage(SlotKey{0, 0})
	assert.False(t, ok)
	_, ok = m.ThumbKey(SlotKey{0, 0})
	assert.False(t, ok)
}

func TestInsertRemoveTuple_RoundTrip(t *testing.T) {
	m := newTestModel(t, []string{"gt", "pred"}, "a", "b", "c")
	m.SetWinner(1, 0)
	m.SetWinner(2, 0)
	m.CacheImage(SlotKey{1, 0}, []byte{1})
	m.CacheImage(SlotKey{2, 0}, []byte{2})
	m.SetThumbKey(SlotKey{2, 1}, "thumb-2-1")
	m.RecordDeleted("/x", SlotKey{2, 1}, time.Now())

	before := m.Winners()

	extra := &Tuple{Name: "x", Images: []*ImageRef{{Path: "/p", DisplayName: "p", Modality: "gt"}, nil}}
	m.InsertTuple(1, extra)

	// Everything at or above index 1 moved up.
	w, _ := m.Winner(2)
	assert.Equal(t, 0, w)
	_, ok := m.CachedImage(SlotKey{1, 0})
	assert.False(t, ok)
	_, ok = m.CachedImage(SlotKey{2, 0})
	assert.True(t, ok)
	_, ok = m.ThumbKey(SlotKey{3, 1})
	assert.True(t, ok)
	assert.Equal(t, 3, m.PendingDeletes()[0].Tuple)

	m.RemoveTuple(1)

	// Pre-insertion state restored for every keyed collection.
	assert.Equal(t, before, m.Winners())
	_, ok = m.CachedImage(SlotKey{1, 0})
	assert.True(t, ok)
	_, ok = m.CachedImage(SlotKey{2, 0})
	assert.True(t, ok)
	_, ok = m.ThumbKey(SlotKey{2, 1})
	assert.True(t, ok)
	assert.Equal(t, 2, m.PendingDeletes()[0].Tuple)
	assert.Equal(t, "b", m.TupleAt(1).Name)
}

func TestInsertTuple_CacheKeepsRecencyOrder(t *testing.T) {
	m, err := New(Options{ImageCacheSize: 2})
	require.NoError(t, err)
	m.InsertModality("gt")
	for i, tn := range []string{"a", "b", "c"} {
		m.InsertTuple(i, &Tuple{Name: tn, Images: []*ImageRef{{
			Path: "/data/gt/" + tn + ".png", DisplayName: tn + ".png", Modality: "gt",
		}}})
	}

	// "b" cached before "a", so "b" is the least recently used entry.
	m.CacheImage(SlotKey{1, 0}, []byte{1})
	m.CacheImage(SlotKey{0, 0}, []byte{2})

	extra := &Tuple{Name: "x", Images: []*ImageRef{{Path: "/data/gt/x.png", DisplayName: "x.png", Modality: "gt"}}}
	m.InsertTuple(1, extra)

	// Renumbering moved "b" to index 2; it must still be the eviction
	// candidate when the cache fills.
	m.CacheImage(SlotKey{3, 0}, []byte{3})

	_, ok := m.CachedImage(SlotKey{2, 0})
	assert.False(t, ok, "least recently used entry should have been evicted")
	_, ok = m.CachedImage(SlotKey{0, 0})
	assert.True(t, ok)
	_, ok = m.CachedImage(SlotKey{3, 0})
	assert.True(t, ok)
}

func TestRemoveTuple_DropsExactRefs(t *testing.T) {
	m := newTestModel(t, []string{"gt"}, "a", "b", "c")
	m.SetWinner(1, 0)
	m.CacheImage(SlotKey{1, 0}, []byte{1})
	m.RecordDeleted("/gone", SlotKey{1, 0}, time.Now())

	m.RemoveTuple(1)

	assert.Empty(t, m.Winners())
	_, ok := m.CachedImage(SlotKey{1, 0})
	assert.False(t, ok)
	assert.Empty(t, m.PendingDeletes())
	assert.Equal(t, 2, m.TupleCount())
	assert.Equal(t, "c", m.TupleAt(1).Name)
}

func TestDetachImage_LastSlotRemovesTuple(t *testing.T) {
	m := newTestModel(t, []string{"gt", "pred"}, "a", "b")

	var deltas []Delta
	m.Subscribe(func(d Delta) { deltas = append(deltas, d) })

	m.DetachImage(0, 0)

	assert.Equal(t, 1, m.TupleCount())
	assert.Equal(t, "b", m.TupleAt(0).Name)
	require.NotEmpty(t, deltas)
	assert.Equal(t, DeltaTupleRemoved, deltas[len(deltas)-1].Kind)
}

func TestDetachImage_ClearsWinnerOnThatSlot(t *testing.T) {
	m := newTestModel(t, []string{"gt", "pred"}, "a")
	m.AttachImage(0, 1, &ImageRef{Path: "/data/pred/a.png", DisplayName: "a.png", Modality: "pred"})
	m.SetWinner(0, 1)

	m.DetachImage(0, 1)

	_, ok := m.Winner(0)
	assert.False(t, ok)
	assert.Equal(t, 1, m.TupleCount(), "tuple still has the gt image")
}

func TestRemoveModality_EmptiesAndRenumbers(t *testing.T) {
	m := newTestModel(t, []string{"gt", "pred"}, "a", "b")
	// "b" also has a pred image, "a" only gt.
	m.AttachImage(1, 1, &ImageRef{Path: "/data/pred/b.png", DisplayName: "b.png", Modality: "pred"})
	m.SetWinner(0, 0)
	m.SetWinner(1, 1)

	m.RemoveModality(0) // whole gt directory removed

	assert.Equal(t, []string{"pred"}, m.Modalities())
	// "a" lost its only image and is gone; "b" survives with pred.
	require.Equal(t, 1, m.TupleCount())
	assert.Equal(t, "b", m.TupleAt(0).Name)
	assert.Len(t, m.TupleAt(0).Images, 1)

	// Winner on gt dropped, winner on pred shifted to index 0.
	w, ok := m.Winner(0)
	require.True(t, ok)
	assert.Equal(t, 0, w)
}

func TestRemoveModality_DropsWinnersPointingAtIt(t *testing.T) {
	m := newTestModel(t, []string{"gt", "pred"}, "a")
	m.AttachImage(0, 1, &ImageRef{Path: "/data/pred/a.png", DisplayName: "a.png", Modality: "pred"})
	m.SetWinner(0, 1)

	m.RemoveModality(1)

	_, ok := m.Winner(0)
	assert.False(t, ok)
	assert.Equal(t, 1, m.TupleCount())
}

func TestFindPath(t *testing.T) {
	m := newTestModel(t, []string{"gt", "pred"}, "a", "b")

	slot, ok := m.FindPath("/data/gt/b.png")
	require.True(t, ok)
	assert.Equal(t, SlotKey{Tuple: 1, Modality: 0}, slot)

	_, ok = m.FindPath("/data/gt/zzz.png")
	assert.False(t, ok)
}

func TestUpdateSlotPath(t *testing.T) {
	m := newTestModel(t, []string{"gt"}, "a")
	m.CacheImage(SlotKey{0, 0}, []byte{1})

	m.UpdateSlotPath(SlotKey{0, 0}, "/data/gt/renamed.png", "renamed.png")

	img := m.TupleAt(0).Images[0]
	assert.Equal(t, "/data/gt/renamed.png", img.Path)
	assert.Equal(t, "renamed.png", img.DisplayName)
	_, ok := m.CachedImage(SlotKey{0, 0})
	assert.False(t, ok, "stale pixels must not survive a rename")
}

func TestRecentlyDeleted_Lifecycle(t *testing.T) {
	m := newTestModel(t, []string{"gt"}, "a")
	at := time.Now()

	m.RecordDeleted("/data/gt/a.png", SlotKey{0, 0}, at)
	assert.True(t, m.HasDeleted("/data/gt/a.png"))

	// Duplicate records are ignored.
	m.RecordDeleted("/data/gt/a.png", SlotKey{0, 0}, at)
	assert.Len(t, m.PendingDeletes(), 1)

	e, ok := m.TakeDeleted("/data/gt/a.png")
	require.True(t, ok)
	assert.Equal(t, SlotKey{0, 0}, SlotKey{e.Tuple, e.Modality})
	assert.False(t, m.HasDeleted("/data/gt/a.png"))
}

func TestRecentlyDeleted_DirAndSiblingLookup(t *testing.T) {
	m := newTestModel(t, []string{"gt", "pred"}, "a")
	at := time.Now()
	m.RecordDeleted("/data/gt/a.png", SlotKey{0, 0}, at)

	_, ok := m.TakeDeletedInDir("/data/pred")
	assert.False(t, ok)

	e, ok := m.TakeDeletedSibling("/data", "a.png")
	require.True(t, ok)
	assert.Equal(t, "/data/gt/a.png", e.Path)

	// Entry was consumed.
	_, ok = m.TakeDeletedInDir("/data/gt")
	assert.False(t, ok)
}

func TestSweepDeleted(t *testing.T) {
	m := newTestModel(t, []string{"gt"}, "a", "b")
	old := time.Now().Add(-3 * time.Second)
	fresh := time.Now()
	m.RecordDeleted("/data/gt/a.png", SlotKey{0, 0}, old)
	m.RecordDeleted("/data/gt/b.png", SlotKey{1, 0}, fresh)

	dropped := m.SweepDeleted(time.Now().Add(-2 * time.Second))

	assert.Equal(t, 1, dropped)
	require.Len(t, m.PendingDeletes(), 1)
	assert.Equal(t, "/data/gt/b.png", m.PendingDeletes()[0].Path)
}

func TestOutOfRange_NoOpWhenNotStrict(t *testing.T) {
	m := newTestModel(t, []string{"gt"}, "a")

	m.RemoveTuple(5)
	m.DetachImage(0, 9)
	m.SetWinner(-1, 0)

	assert.Equal(t, 1, m.TupleCount())
}

func TestOutOfRange_PanicsWhenStrict(t *testing.T) {
	m := newTestModel(t, []string{"gt"}, "a")
	Strict = true
	defer func() { Strict = false }()

	assert.Panics(t, func() { m.RemoveTuple(5) })
}
