package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries(names ...string) []FileEntry {
	out := make([]FileEntry, len(names))
	for i, n := range names {
		out[i] = FileEntry{Name: n, Path: "/data/" + n}
	}
	return out
}

func TestMatch_ExactNamesLandTogether(t *testing.T) {
	groups := Match([]ModalityFiles{
		{Modality: "GT", Files: entries("a_gt.png", "a_crop01.png")},
		{Modality: "pred", Files: entries("a_pred.png", "a_crop01.png")},
	})

	require.Len(t, groups, 2)

	// Natural order: a_crop01 before a_gt.
	assert.Equal(t, "a_crop01", groups[0].RefName)
	assert.Equal(t, "a_crop01.png", groups[0].Files["GT"].Name)
	assert.Equal(t, "a_crop01.png", groups[0].Files["pred"].Name)

	assert.Equal(t, "a_gt", groups[1].RefName)
	assert.Equal(t, "a_gt.png", groups[1].Files["GT"].Name)
	assert.Equal(t, "a_pred.png", groups[1].Files["pred"].Name)
}

func TestMatch_CropDeprioritizationBeatsLengthTieBreak(t *testing.T) {
	// "x_pred" is closer to "x_crop01" by length difference, but the
	// crop reference must lose to the non-crop one.
	groups := Match([]ModalityFiles{
		{Modality: "GT", Files: entries("x_gt.png", "x_crop01.png")},
		{Modality: "pred", Files: entries("x_pred.png")},
	})

	require.Len(t, groups, 2)
	byRef := map[string]Group{}
	for _, g := range groups {
		byRef[g.RefName] = g
	}

	gt := byRef["x_gt"]
	assert.Equal(t, "x_pred.png", gt.Files["pred"].Name)
	crop := byRef["x_crop01"]
	_, hasPred := crop.Files["pred"]
	assert.False(t, hasPred, "crop reference must not steal the probe")
}

func TestMatch_SingleModality(t *testing.T) {
	groups := Match([]ModalityFiles{
		{Modality: "only", Files: entries("b.png", "a.png")},
	})

	require.Len(t, groups, 2)
	assert.Equal(t, "a", groups[0].RefName)
	assert.Equal(t, "b", groups[1].RefName)
	for _, g := range groups {
		assert.Len(t, g.Files, 1)
	}
}

func TestMatch_EmptyInputs(t *testing.T) {
	assert.Nil(t, Match(nil))
	assert.Nil(t, Match([]ModalityFiles{{Modality: "empty"}}))
}

func TestMatch_PartialTupleEmitted(t *testing.T) {
	groups := Match([]ModalityFiles{
		{Modality: "GT", Files: entries("scene1.png", "scene2.png")},
		{Modality: "pred", Files: entries("scene1_out.png")},
	})

	require.Len(t, groups, 2)
	byRef := map[string]Group{}
	for _, g := range groups {
		byRef[g.RefName] = g
	}
	assert.Len(t, byRef["scene1"].Files, 2)
	assert.Len(t, byRef["scene2"].Files, 1)
}

func TestMatch_NoDuplicateFilesAcrossGroups(t *testing.T) {
	groups := Match([]ModalityFiles{
		{Modality: "GT", Files: entries("a.png", "ab.png", "abc.png")},
		{Modality: "pred", Files: entries("a_p.png", "ab_p.png", "abc_p.png")},
	})

	seen := map[string]bool{}
	for _, g := range groups {
		assert.LessOrEqual(t, len(g.Files), 2)
		for _, f := range g.Files {
			assert.False(t, seen[f.Path], "file %s appears twice", f.Path)
			seen[f.Path] = true
		}
	}
}

func TestMatch_ReferenceHasMostFiles(t *testing.T) {
	// "pred" has more files so it becomes the reference set: every
	// pred file yields a group.
	groups := Match([]ModalityFiles{
		{Modality: "GT", Files: entries("a.png")},
		{Modality: "pred", Files: entries("a.png", "b.png", "c.png")},
	})
	require.Len(t, groups, 3)
}

func TestMatch_UnmatchedFileDropped(t *testing.T) {
	// All references are exactly claimed, so the stranger has an empty
	// candidate set after subtraction and is dropped.
	groups := Match([]ModalityFiles{
		{Modality: "GT", Files: entries("a.png")},
		{Modality: "pred", Files: entries("a.png", "zzz.png")},
	})

	// pred has more files and is the reference, zzz gets its own group
	// as a reference member. Flip it around instead:
	groups = Match([]ModalityFiles{
		{Modality: "GT", Files: entries("a.png", "b.png")},
		{Modality: "pred", Files: entries("a.png", "b.png")},
		{Modality: "aux", Files: entries("b.png")},
	})
	for _, g := range groups {
		for m, f := range g.Files {
			assert.Equal(t, StripExt(f.Name), g.RefName, "modality %s", m)
		}
	}
}

func TestIsCropName(t *testing.T) {
	assert.True(t, IsCropName("img_crop01"))
	assert.True(t, IsCropName("a_crop2"))
	assert.False(t, IsCropName("img_crop"))
	assert.False(t, IsCropName("img_crop01_more"))
	assert.False(t, IsCropName("cropped"))
}

func TestStripExt(t *testing.T) {
	assert.Equal(t, "a_gt", StripExt("a_gt.png"))
	assert.Equal(t, "noext", StripExt("noext"))
	assert.Equal(t, "a.b", StripExt("a.b.png"))
}

func TestLCSLength(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 0},
		{"abc", "abc", 3},
		{"abc", "acb", 2},
		{"x_gt", "x_pred", 2},
		{"abcdef", "zabxcyf", 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LCSLength(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"img2", "img10", true},
		{"img10", "img2", false},
		{"a", "b", true},
		{"img2", "img2", false},
		{"img02", "img2", false},
		{"img2", "img02", true},
		{"img2a", "img2b", true},
		{"", "a", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NaturalLess(tt.a, tt.b), "%q < %q", tt.a, tt.b)
	}
}

func TestTrie_LongestPrefixIndices(t *testing.T) {
	trie := newTrieNode()
	trie.insert("x_gt", 0)
	trie.insert("x_crop01", 1)
	trie.insert("other", 2)

	// Deepest shared node for "x_pred" is "x_", holding both x names.
	got := trie.longestPrefixIndices("x_pred")
	assert.ElementsMatch(t, []int{0, 1}, got)

	// No shared prefix at all falls back to the root set.
	got = trie.longestPrefixIndices("zzz")
	assert.ElementsMatch(t, []int{0, 1, 2}, got)
}
