package naming

import (
	"path/filepath"
	"strings"
)

// DisambiguateDirs derives a unique modality name per source directory.
// It starts with the last path segment of each directory; whenever
// several names collide, every colliding name gains one more parent
// segment in lock-step until all names are unique or a path runs out of
// segments. Returned names align with the input order.
func DisambiguateDirs(dirs []string) []string {
	segs := make([][]string, len(dirs))
	for i, d := range dirs {
		segs[i] = splitSegments(d)
	}

	// depth[i] is how many trailing segments name i currently uses.
	depth := make([]int, len(dirs))
	for i := range depth {
		depth[i] = 1
	}

	names := make([]string, len(dirs))
	for {
		for i := range dirs {
			names[i] = joinTail(segs[i], depth[i])
		}

		colliding := collisions(names)
		if len(colliding) == 0 {
			return names
		}

		grew := false
		for _, i := range colliding {
			if depth[i] < len(segs[i]) {
				depth[i]++
				grew = true
			}
		}
		if !grew {
			// Segments exhausted; identical paths stay identical.
			return names
		}
	}
}

// splitSegments breaks a cleaned path into its segments.
func splitSegments(dir string) []string {
	clean := filepath.Clean(dir)
	clean = strings.TrimPrefix(clean, string(filepath.Separator))
	if clean == "" || clean == "." {
		return []string{clean}
	}
	return strings.Split(clean, string(filepath.Separator))
}

// joinTail joins the last n segments with "/".
func joinTail(segs []string, n int) string {
	if n > len(segs) {
		n = len(segs)
	}
	return strings.Join(segs[len(segs)-n:], "/")
}

// collisions returns the indices of every name that appears more than
// once.
func collisions(names []string) []int {
	count := make(map[string]int, len(names))
	for _, n := range names {
		count[n]++
	}
	var out []int
	for i, n := range names {
		if count[n] > 1 {
			out = append(out, i)
		}
	}
	return out
}
