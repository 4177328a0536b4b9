// Package matcher groups image files across modalities into tuples.
// Matching is pure string work on filenames: an exact pass on
// extension-stripped names, then a fuzzy pass driven by a prefix trie
// with crop-aware tie-breaking. No I/O happens here.
package matcher

import (
	"path/filepath"
	"regexp"
	"strings"
)

// FileEntry is a single image file discovered in a modality directory.
type FileEntry struct {
	// Name is the base filename including extension.
	Name string
	// Path is the absolute path to the file.
	Path string
}

// ModalityFiles is the unordered file list of one modality.
// Slice order of modalities encodes first-seen order, which breaks
// ties when selecting the reference modality.
type ModalityFiles struct {
	Modality string
	Files    []FileEntry
}

// Group is one matched tuple: at most one file per modality.
type Group struct {
	// RefName is the extension-stripped reference filename the group
	// formed around. Groups are emitted sorted by this name.
	RefName string
	// Files maps modality name to the file chosen for this group.
	Files map[string]FileEntry
}

// cropPattern matches derived-crop filenames such as "img_crop01".
// Crop files are near-duplicates of their originals and must never
// win a fuzzy match against the original's reference.
var cropPattern = regexp.MustCompile(`_crop[0-9]+$`)

// StripExt returns the filename without its extension.
func StripExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// IsCropName reports whether an extension-stripped filename looks like
// a derived crop of another file.
func IsCropName(stripped string) bool {
	return cropPattern.MatchString(stripped)
}
