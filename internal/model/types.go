// Package model holds the mutable, index-addressed state of one open
// comparison session: modalities, tuples, per-slot caches, winners and
// recently-deleted tracking. Tuple and modality indices are dense
// 0..len-1 ranges; every insertion or removal renumbers all keyed
// collections in the same step. The model is not safe for concurrent
// use — callers serialize mutations (see the engine package).
package model

import (
	"time"
)

// SlotKey addresses a single image reference inside the model.
type SlotKey struct {
	Tuple    int
	Modality int
}

// ImageRef is one file held by a tuple. It is owned exclusively by that
// tuple; Path mutates in place when a rename is detected.
type ImageRef struct {
	Path        string
	DisplayName string
	Modality    string
}

// Tuple is a matched group of at most one file per modality. Images is
// indexed by global modality index; nil entries are empty slots. A
// tuple always holds at least one present image.
type Tuple struct {
	Name   string
	Images []*ImageRef
}

// PresentCount returns the number of non-empty slots.
func (t *Tuple) PresentCount() int {
	n := 0
	for _, img := range t.Images {
		if img != nil {
			n++
		}
	}
	return n
}

// DeletedEntry records a delete notification that may still resolve as
// a rename within the grace window.
type DeletedEntry struct {
	Path     string
	Tuple    int
	Modality int
	At       time.Time
}

// DeltaKind enumerates the mutation notifications emitted to
// UI/persistence collaborators.
type DeltaKind int

const (
	DeltaTupleAdded DeltaKind = iota
	DeltaTupleRemoved
	DeltaModalityAdded
	DeltaModalityRemoved
	DeltaSlotAttached
	DeltaSlotDetached
	DeltaSlotRefreshed
	DeltaWinnerChanged
)

// String returns a human-readable delta kind.
func (k DeltaKind) String() string {
	switch k {
	case DeltaTupleAdded:
		return "tuple-added"
	case DeltaTupleRemoved:
		return "tuple-removed"
	case DeltaModalityAdded:
		return "modality-added"
	case DeltaModalityRemoved:
		return "modality-removed"
	case DeltaSlotAttached:
		return "slot-attached"
	case DeltaSlotDetached:
		return "slot-detached"
	case DeltaSlotRefreshed:
		return "slot-refreshed"
	case DeltaWinnerChanged:
		return "winner-changed"
	default:
		return "unknown"
	}
}

// Delta is a single mutation notification. Tuple and Modality are -1
// when not applicable; for winner-changed, Modality is -1 when the
// winner was cleared.
type Delta struct {
	Kind     DeltaKind
	Tuple    int
	Modality int
	Name     string
}
