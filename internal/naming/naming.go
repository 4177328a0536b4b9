// Package naming derives human-readable names: tuple display names from
// the filenames of a matched group, and unique modality names from
// source directory paths.
package naming

import (
	"strings"
)

// separatorCutset holds the characters trimmed from the edges of a
// computed tuple name.
const separatorCutset = "_- \t"

// TupleName computes the display name of a matched group: the longest
// common substring of all included extension-stripped filenames,
// trimmed of separator characters. Falls back to the reference name
// when nothing common survives trimming.
func TupleName(strippedNames []string, refName string) string {
	common := LongestCommonSubstring(strippedNames)
	common = strings.Trim(common, separatorCutset)
	if common == "" {
		return refName
	}
	return common
}

// LongestCommonSubstring returns the longest contiguous substring
// present in every input string. With several candidates of equal
// length the earliest occurrence in the shortest input wins. Returns
// "" for empty input.
func LongestCommonSubstring(names []string) string {
	if len(names) == 0 {
		return ""
	}
	if len(names) == 1 {
		return names[0]
	}

	shortest := names[0]
	for _, n := range names[1:] {
		if len(n) < len(shortest) {
			shortest = n
		}
	}

	for length := len(shortest); length > 0; length-- {
		for start := 0; start+length <= len(shortest); start++ {
			candidate := shortest[start : start+length]
			if containedInAll(candidate, names) {
				return candidate
			}
		}
	}
	return ""
}

func containedInAll(sub string, names []string) bool {
	for _, n := range names {
		if !strings.Contains(n, sub) {
			return false
		}
	}
	return true
}
