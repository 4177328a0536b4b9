package model

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Strict makes out-of-range index access panic instead of degrading to
// a logged no-op. Enabled in tests and debug builds; release callers
// get the defensive clamp the UI contract expects.
var Strict = false

// Options configures the model's bounded caches.
type Options struct {
	// ImageCacheSize bounds the loaded-full-image cache (entries).
	ImageCacheSize int
	// ThumbCacheSize bounds the thumbnail cache-key set (entries).
	ThumbCacheSize int
}

// DefaultOptions returns the default model options.
func DefaultOptions() Options {
	return Options{
		ImageCacheSize: 64,
		ThumbCacheSize: 1024,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.ImageCacheSize <= 0 {
		o.ImageCacheSize = defaults.ImageCacheSize
	}
	if o.ThumbCacheSize <= 0 {
		o.ThumbCacheSize = defaults.ThumbCacheSize
	}
	return o
}

// Model owns the tuple list, the modality list, both slot-keyed caches,
// the winners map and the recently-deleted list. All mutating methods
// renumber every keyed collection atomically with the list change.
type Model struct {
	tuples     []*Tuple
	modalities []string

	// winners maps tuple index to the winning global modality index.
	winners map[int]int

	// deleted tracks delete notifications awaiting rename resolution.
	deleted []DeletedEntry

	images *lru.Cache[SlotKey, []byte]
	thumbs *lru.Cache[SlotKey, string]

	subs []func(Delta)
}

// New creates an empty model.
func New(opts Options) (*Model, error) {
	opts = opts.WithDefaults()

	images, err := lru.New[SlotKey, []byte](opts.ImageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create image cache: %w", err)
	}
	thumbs, err := lru.New[SlotKey, string](opts.ThumbCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create thumbnail key cache: %w", err)
	}

	return &Model{
		winners: make(map[int]int),
		images:  images,
		thumbs:  thumbs,
	}, nil
}

// Subscribe registers a delta listener. Listeners are invoked
// synchronously inside the mutation and must not re-enter the model.
func (m *Model) Subscribe(fn func(Delta)) {
	m.subs = append(m.subs, fn)
}

func (m *Model) notify(d Delta) {
	for _, fn := range m.subs {
		fn(d)
	}
}

// TupleCount returns the number of tuples.
func (m *Model) TupleCount() int { return len(m.tuples) }

// ModalityCount returns the number of modalities.
func (m *Model) ModalityCount() int { return len(m.modalities) }

// TupleAt returns the tuple at index i, or nil when out of range.
func (m *Model) TupleAt(i int) *Tuple {
	if !m.validTuple(i, "TupleAt") {
		return nil
	}
	return m.tuples[i]
}

// Modalities returns a copy of the modality name list in index order.
func (m *Model) Modalities() []string {
	out := make([]string, len(m.modalities))
	copy(out, m.modalities)
	return out
}

// ModalityName returns the name of modality i, or "" when out of range.
func (m *Model) ModalityName(i int) string {
	if i < 0 || i >= len(m.modalities) {
		return ""
	}
	return m.modalities[i]
}

// ModalityIndex returns the index of the named modality.
func (m *Model) ModalityIndex(name string) (int, bool) {
	for i, n := range m.modalities {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// FindPath locates the slot currently holding path.
func (m *Model) FindPath(path string) (SlotKey, bool) {
	for ti, t := range m.tuples {
		for mi, img := range t.Images {
			if img != nil && img.Path == path {
				return SlotKey{Tuple: ti, Modality: mi}, true
			}
		}
	}
	return SlotKey{}, false
}

// InsertTuple inserts t at position pos, shifting tuple indices at or
// above pos up by one across winners, recently-deleted entries and both
// caches. Positions outside [0, len] are clamped.
func (m *Model) InsertTuple(pos int, t *Tuple) {
	if pos < 0 || pos > len(m.tuples) {
		m.indexFault("InsertTuple", pos)
		if pos < 0 {
			pos = 0
		} else {
			pos = len(m.tuples)
		}
	}
	if len(t.Images) < len(m.modalities) {
		grown := make([]*ImageRef, len(m.modalities))
		copy(grown, t.Images)
		t.Images = grown
	}

	m.tuples = append(m.tuples, nil)
	copy(m.tuples[pos+1:], m.tuples[pos:])
	m.tuples[pos] = t

	m.shiftTupleRefs(pos, +1)
	m.notify(Delta{Kind: DeltaTupleAdded, Tuple: pos, Modality: -1, Name: t.Name})
}

// RemoveTuple removes the tuple at index, discarding winner, cache and
// recently-deleted entries pointing exactly at it and shifting higher
// tuple indices down by one everywhere.
func (m *Model) RemoveTuple(index int) {
	if !m.validTuple(index, "RemoveTuple") {
		return
	}
	name := m.tuples[index].Name
	m.tuples = append(m.tuples[:index], m.tuples[index+1:]...)

	m.dropTupleRefs(index)
	m.shiftTupleRefs(index+1, -1)
	m.notify(Delta{Kind: DeltaTupleRemoved, Tuple: index, Modality: -1, Name: name})
}

// InsertModality adds a modality, placed in case-insensitive sorted
// order among the existing names, and returns its index. Every tuple
// gains an empty slot at that index; winners shift their modality
// component and both caches are invalidated entirely, because the index
// meaning changed for every tuple at once.
func (m *Model) InsertModality(name string) int {
	pos := sort.Search(len(m.modalities), func(i int) bool {
		return strings.ToLower(m.modalities[i]) >= strings.ToLower(name)
	})

	m.modalities = append(m.modalities, "")
	copy(m.modalities[pos+1:], m.modalities[pos:])
	m.modalities[pos] = name

	for _, t := range m.tuples {
		t.Images = append(t.Images, nil)
		copy(t.Images[pos+1:], t.Images[pos:])
		t.Images[pos] = nil
	}

	for ti, mi := range m.winners {
		if mi >= pos {
			m.winners[ti] = mi + 1
		}
	}
	for i := range m.deleted {
		if m.deleted[i].Modality >= pos {
			m.deleted[i].Modality++
		}
	}

	m.images.Purge()
	m.thumbs.Purge()

	m.notify(Delta{Kind: DeltaModalityAdded, Tuple: -1, Modality: pos, Name: name})
	return pos
}

// RemoveModality removes modality index: the slot disappears from every
// tuple, winners pointing at it are dropped, higher modality indices
// shift down and both caches are invalidated. Tuples left with zero
// present images are removed in the same step, keeping the no-empty-
// tuple invariant.
func (m *Model) RemoveModality(index int) {
	if index < 0 || index >= len(m.modalities) {
		m.indexFault("RemoveModality", index)
		return
	}
	name := m.modalities[index]
	m.modalities = append(m.modalities[:index], m.modalities[index+1:]...)

	for _, t := range m.tuples {
		if index < len(t.Images) {
			t.Images = append(t.Images[:index], t.Images[index+1:]...)
		}
	}

	for ti, mi := range m.winners {
		switch {
		case mi == index:
			delete(m.winners, ti)
		case mi > index:
			m.winners[ti] = mi - 1
		}
	}

	kept := m.deleted[:0]
	for _, e := range m.deleted {
		if e.Modality == index {
			continue
		}
		if e.Modality > index {
			e.Modality--
		}
		kept = append(kept, e)
	}
	m.deleted = kept

	m.images.Purge()
	m.thumbs.Purge()

	m.notify(Delta{Kind: DeltaModalityRemoved, Tuple: -1, Modality: index, Name: name})

	// Remove emptied tuples back to front so indices stay valid.
	for ti := len(m.tuples) - 1; ti >= 0; ti-- {
		if m.tuples[ti].PresentCount() == 0 {
			m.RemoveTuple(ti)
		}
	}
}

// AttachImage sets the slot (tupleIndex, modalityIndex) to ref.
func (m *Model) AttachImage(tupleIndex, modalityIndex int, ref *ImageRef) {
	slot := SlotKey{Tuple: tupleIndex, Modality: modalityIndex}
	if !m.validSlot(slot, "AttachImage") {
		return
	}
	t := m.tuples[tupleIndex]
	if t.Images[modalityIndex] != nil {
		slog.Warn("attach over occupied slot",
			slog.Int("tuple", tupleIndex),
			slog.Int("modality", modalityIndex),
			slog.String("path", ref.Path))
	}
	t.Images[modalityIndex] = ref
	m.EvictSlot(slot)
	m.notify(Delta{Kind: DeltaSlotAttached, Tuple: tupleIndex, Modality: modalityIndex, Name: t.Name})
}

// DetachImage clears the slot. Detaching the last present image of a
// tuple removes the whole tuple instead, emitting tuple-removed rather
// than slot-detached. Winners pointing at the slot are cleared.
func (m *Model) DetachImage(tupleIndex, modalityIndex int) {
	slot := SlotKey{Tuple: tupleIndex, Modality: modalityIndex}
	if !m.validSlot(slot, "DetachImage") {
		return
	}
	t := m.tuples[tupleIndex]
	if t.Images[modalityIndex] == nil {
		return
	}
	t.Images[modalityIndex] = nil
	m.EvictSlot(slot)

	if w, ok := m.winners[tupleIndex]; ok && w == modalityIndex {
		delete(m.winners, tupleIndex)
		m.notify(Delta{Kind: DeltaWinnerChanged, Tuple: tupleIndex, Modality: -1, Name: t.Name})
	}

	if t.PresentCount() == 0 {
		m.RemoveTuple(tupleIndex)
		return
	}
	m.notify(Delta{Kind: DeltaSlotDetached, Tuple: tupleIndex, Modality: modalityIndex, Name: t.Name})
}

// UpdateSlotPath rewrites the stored path of a present slot in place,
// as happens when a delete resolves as a rename. Indices do not change;
// cached pixels for the slot are evicted.
func (m *Model) UpdateSlotPath(slot SlotKey, newPath, displayName string) {
	if !m.validSlot(slot, "UpdateSlotPath") {
		return
	}
	img := m.tuples[slot.Tuple].Images[slot.Modality]
	if img == nil {
		m.indexFault("UpdateSlotPath", slot.Modality)
		return
	}
	img.Path = newPath
	img.DisplayName = displayName
	m.EvictSlot(slot)
	m.notify(Delta{Kind: DeltaSlotRefreshed, Tuple: slot.Tuple, Modality: slot.Modality, Name: m.tuples[slot.Tuple].Name})
}

// RefreshSlot evicts the slot's cached data and notifies collaborators
// that its pixels need regeneration. Structure is untouched.
func (m *Model) RefreshSlot(slot SlotKey) {
	if !m.validSlot(slot, "RefreshSlot") {
		return
	}
	m.EvictSlot(slot)
	m.notify(Delta{Kind: DeltaSlotRefreshed, Tuple: slot.Tuple, Modality: slot.Modality, Name: m.tuples[slot.Tuple].Name})
}

// SetWinner records the winning modality for a tuple.
func (m *Model) SetWinner(tupleIndex, modalityIndex int) {
	slot := SlotKey{Tuple: tupleIndex, Modality: modalityIndex}
	if !m.validSlot(slot, "SetWinner") {
		return
	}
	m.winners[tupleIndex] = modalityIndex
	m.notify(Delta{Kind: DeltaWinnerChanged, Tuple: tupleIndex, Modality: modalityIndex, Name: m.tuples[tupleIndex].Name})
}

// ClearWinner removes the winner of a tuple, if any.
func (m *Model) ClearWinner(tupleIndex int) {
	if !m.validTuple(tupleIndex, "ClearWinner") {
		return
	}
	if _, ok := m.winners[tupleIndex]; !ok {
		return
	}
	delete(m.winners, tupleIndex)
	m.notify(Delta{Kind: DeltaWinnerChanged, Tuple: tupleIndex, Modality: -1, Name: m.tuples[tupleIndex].Name})
}

// Winner returns the winning modality index of a tuple.
func (m *Model) Winner(tupleIndex int) (int, bool) {
	w, ok := m.winners[tupleIndex]
	return w, ok
}

// Winners returns a copy of the winners map keyed by tuple index.
func (m *Model) Winners() map[int]int {
	out := make(map[int]int, len(m.winners))
	for k, v := range m.winners {
		out[k] = v
	}
	return out
}

// shiftTupleRefs renumbers the tuple component of winners, recently-
// deleted entries and both caches for indices >= from by delta.
func (m *Model) shiftTupleRefs(from, delta int) {
	shifted := make(map[int]int, len(m.winners))
	for ti, mi := range m.winners {
		if ti >= from {
			ti += delta
		}
		shifted[ti] = mi
	}
	m.winners = shifted

	for i := range m.deleted {
		if m.deleted[i].Tuple >= from {
			m.deleted[i].Tuple += delta
		}
	}

	m.renumberCacheTuples(from, delta)
}

// dropTupleRefs discards winner, cache and recently-deleted entries
// pointing exactly at a removed tuple index.
func (m *Model) dropTupleRefs(index int) {
	delete(m.winners, index)

	kept := m.deleted[:0]
	for _, e := range m.deleted {
		if e.Tuple != index {
			kept = append(kept, e)
		}
	}
	m.deleted = kept

	for _, key := range m.images.Keys() {
		if key.Tuple == index {
			m.images.Remove(key)
		}
	}
	for _, key := range m.thumbs.Keys() {
		if key.Tuple == index {
			m.thumbs.Remove(key)
		}
	}
}

// renumberCacheTuples rewrites cache keys whose tuple component is at
// or above from. Both caches are rebuilt in full recency order (Keys
// returns oldest first) so a renumber never promotes shifted entries
// over untouched ones; entry counts are unchanged, so the rebuild
// cannot evict.
func (m *Model) renumberCacheTuples(from, delta int) {
	type imgEntry struct {
		key SlotKey
		val []byte
	}
	var imgs []imgEntry
	for _, key := range m.images.Keys() {
		if val, ok := m.images.Peek(key); ok {
			imgs = append(imgs, imgEntry{key, val})
		}
	}
	m.images.Purge()
	for _, e := range imgs {
		if e.key.Tuple >= from {
			e.key.Tuple += delta
		}
		m.images.Add(e.key, e.val)
	}

	type thumbEntry struct {
		key SlotKey
		val string
	}
	var ths []thumbEntry
	for _, key := range m.thumbs.Keys() {
		if val, ok := m.thumbs.Peek(key); ok {
			ths = append(ths, thumbEntry{key, val})
		}
	}
	m.thumbs.Purge()
	for _, e := range ths {
		if e.key.Tuple >= from {
			e.key.Tuple += delta
		}
		m.thumbs.Add(e.key, e.val)
	}
}

// validTuple reports whether i is a live tuple index. Out-of-range
// access is a programmer error: panic under Strict, logged no-op
// otherwise.
func (m *Model) validTuple(i int, op string) bool {
	if i >= 0 && i < len(m.tuples) {
		return true
	}
	m.indexFault(op, i)
	return false
}

func (m *Model) validSlot(slot SlotKey, op string) bool {
	if !m.validTuple(slot.Tuple, op) {
		return false
	}
	if slot.Modality < 0 || slot.Modality >= len(m.modalities) {
		m.indexFault(op, slot.Modality)
		return false
	}
	return true
}

func (m *Model) indexFault(op string, index int) {
	if Strict {
		panic(fmt.Sprintf("model: %s index %d out of range (tuples=%d modalities=%d)",
			op, index, len(m.tuples), len(m.modalities)))
	}
	slog.Error("index out of range",
		slog.String("op", op),
		slog.Int("index", index),
		slog.Int("tuples", len(m.tuples)),
		slog.Int("modalities", len(m.modalities)))
}
