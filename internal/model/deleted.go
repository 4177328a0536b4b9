package model

import (
	"path/filepath"
	"time"
)

// RecordDeleted adds a pending delete for a slot. Callers check
// HasDeleted first; a duplicate path is ignored here as well, since
// redundant detection sources may race past the caller's check.
func (m *Model) RecordDeleted(path string, slot SlotKey, at time.Time) {
	if m.HasDeleted(path) {
		return
	}
	m.deleted = append(m.deleted, DeletedEntry{
		Path:     path,
		Tuple:    slot.Tuple,
		Modality: slot.Modality,
		At:       at,
	})
}

// HasDeleted reports whether path has a pending delete entry.
func (m *Model) HasDeleted(path string) bool {
	for _, e := range m.deleted {
		if e.Path == path {
			return true
		}
	}
	return false
}

// TakeDeleted removes and returns the pending delete for the exact
// path.
func (m *Model) TakeDeleted(path string) (DeletedEntry, bool) {
	return m.takeDeleted(func(e DeletedEntry) bool {
		return e.Path == path
	})
}

// TakeDeletedInDir removes and returns the oldest pending delete whose
// path sits directly in dir. Used for same-modality rename detection.
func (m *Model) TakeDeletedInDir(dir string) (DeletedEntry, bool) {
	return m.takeDeleted(func(e DeletedEntry) bool {
		return filepath.Dir(e.Path) == dir
	})
}

// TakeDeletedSibling removes and returns the oldest pending delete in a
// sibling directory under parent whose base filename equals base. Used
// for cross-modality batch rename detection.
func (m *Model) TakeDeletedSibling(parent, base string) (DeletedEntry, bool) {
	return m.takeDeleted(func(e DeletedEntry) bool {
		dir := filepath.Dir(e.Path)
		return filepath.Dir(dir) == parent && filepath.Base(e.Path) == base
	})
}

func (m *Model) takeDeleted(match func(DeletedEntry) bool) (DeletedEntry, bool) {
	for i, e := range m.deleted {
		if match(e) {
			m.deleted = append(m.deleted[:i], m.deleted[i+1:]...)
			return e, true
		}
	}
	return DeletedEntry{}, false
}

// SweepDeleted drops entries recorded before cutoff, the memory-leak
// guard for deletes that never finalized, and returns how many were
// dropped.
func (m *Model) SweepDeleted(cutoff time.Time) int {
	kept := m.deleted[:0]
	dropped := 0
	for _, e := range m.deleted {
		if e.At.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	m.deleted = kept
	return dropped
}

// PendingDeletes returns a copy of the recently-deleted list.
func (m *Model) PendingDeletes() []DeletedEntry {
	out := make([]DeletedEntry, len(m.deleted))
	copy(out, m.deleted)
	return out
}
