package matcher

import (
	"log/slog"
	"sort"
)

// Match groups per-modality file lists into tuples.
//
// The modality with the most files becomes the reference set (first-seen
// order breaks ties). Non-reference files attach to reference files via
// an exact pass on stripped names, then a fuzzy longest-common-prefix
// pass over a trie of reference names. Files that match nothing are
// dropped with a diagnostic. Every reference file yields a group, even
// if no other modality matched it (a partial tuple).
func Match(lists []ModalityFiles) []Group {
	if len(lists) == 0 {
		return nil
	}

	refIdx := referenceIndex(lists)
	ref := lists[refIdx]
	if len(ref.Files) == 0 {
		return nil
	}

	stripped := make([]string, len(ref.Files))
	for i, f := range ref.Files {
		stripped[i] = StripExt(f.Name)
	}

	// Exact lookup and trie share the same index space.
	exact := make(map[string]int, len(ref.Files))
	trie := newTrieNode()
	for i, name := range stripped {
		if _, dup := exact[name]; !dup {
			exact[name] = i
		}
		trie.insert(name, i)
	}

	groups := make([]map[string]FileEntry, len(ref.Files))
	for i, f := range ref.Files {
		groups[i] = map[string]FileEntry{ref.Modality: f}
	}

	// Exact pass: identical stripped names claim their reference
	// outright and remove it from fuzzy candidacy.
	claimed := make(map[int]bool)
	type pending struct {
		modality string
		file     FileEntry
		query    string
	}
	var fuzzy []pending
	for li, ml := range lists {
		if li == refIdx {
			continue
		}
		for _, f := range ml.Files {
			q := StripExt(f.Name)
			if ri, ok := exact[q]; ok {
				attach(groups, ri, ml.Modality, f)
				claimed[ri] = true
				continue
			}
			fuzzy = append(fuzzy, pending{ml.Modality, f, q})
		}
	}

	// Fuzzy pass: longest-common-prefix candidates minus exactly
	// claimed references, then crop/length/LCS tie-breaking.
	for _, p := range fuzzy {
		candidates := trie.longestPrefixIndices(p.query)
		best := -1
		for _, ci := range candidates {
			if claimed[ci] {
				continue
			}
			if best < 0 || better(stripped, ci, best, p.query) {
				best = ci
			}
		}
		if best < 0 {
			slog.Debug("no reference match for file",
				slog.String("modality", p.modality),
				slog.String("file", p.file.Name))
			continue
		}
		attach(groups, best, p.modality, p.file)
	}

	out := make([]Group, 0, len(groups))
	for i, files := range groups {
		out = append(out, Group{RefName: stripped[i], Files: files})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return NaturalLess(out[i].RefName, out[j].RefName)
	})
	return out
}

// referenceIndex picks the modality with the most files, earliest wins
// on ties.
func referenceIndex(lists []ModalityFiles) int {
	best := 0
	for i := 1; i < len(lists); i++ {
		if len(lists[i].Files) > len(lists[best].Files) {
			best = i
		}
	}
	return best
}

// attach adds file to the group unless that modality slot is already
// taken; a second claimant is dropped to keep groups one-per-modality.
func attach(groups []map[string]FileEntry, ri int, modality string, f FileEntry) {
	if prior, taken := groups[ri][modality]; taken {
		slog.Debug("modality slot already claimed in group",
			slog.String("modality", modality),
			slog.String("kept", prior.Name),
			slog.String("dropped", f.Name))
		return
	}
	groups[ri][modality] = f
}

// better reports whether candidate a beats candidate b for the query.
// Ordering: non-crop beats crop, then smaller stripped-length
// difference, then larger LCS with the query, then lower index for
// determinism. Crop deprioritization comes first because crop files
// are textually near their originals and would otherwise steal the
// original's best match.
func better(stripped []string, a, b int, query string) bool {
	cropA, cropB := IsCropName(stripped[a]), IsCropName(stripped[b])
	if cropA != cropB {
		return !cropA
	}
	diffA := absDiff(len(stripped[a]), len(query))
	diffB := absDiff(len(stripped[b]), len(query))
	if diffA != diffB {
		return diffA < diffB
	}
	lcsA := LCSLength(stripped[a], query)
	lcsB := LCSLength(stripped[b], query)
	if lcsA != lcsB {
		return lcsA > lcsB
	}
	return a < b
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
