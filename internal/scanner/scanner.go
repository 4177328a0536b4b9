// Package scanner enumerates the image files of modality directories.
// It lists immediate children only; nested directories belong to other
// sessions or to nobody.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/toshas/imagecompare/internal/matcher"
)

// DefaultExtensions are the image extensions recognized out of the box.
var DefaultExtensions = []string{
	".png", ".jpg", ".jpeg", ".bmp", ".gif", ".webp", ".tif", ".tiff",
}

// Options configures the scanner.
type Options struct {
	// Extensions overrides the recognized image extensions. Entries
	// are matched case-insensitively and must include the dot.
	Extensions []string
}

// Scanner filters directory listings down to image files.
type Scanner struct {
	exts map[string]struct{}
}

// New creates a scanner. Empty options use DefaultExtensions.
func New(opts Options) *Scanner {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = struct{}{}
	}
	return &Scanner{exts: set}
}

// IsImagePath reports whether path has a recognized image extension.
func (s *Scanner) IsImagePath(path string) bool {
	_, ok := s.exts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Listing is the image-file inventory of one modality directory.
type Listing struct {
	Dir   string
	Files []matcher.FileEntry
}

// ListDir returns the image files directly inside dir, sorted by name.
func (s *Scanner) ListDir(dir string) ([]matcher.FileEntry, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve absolute path: %w", err)
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("list modality directory: %w", err)
	}

	var files []matcher.FileEntry
	for _, e := range entries {
		if e.IsDir() || !s.IsImagePath(e.Name()) {
			continue
		}
		files = append(files, matcher.FileEntry{
			Name: e.Name(),
			Path: filepath.Join(absDir, e.Name()),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// ScanAll lists every modality directory. Listings come back in input
// order so callers keep first-seen modality order for matching.
func (s *Scanner) ScanAll(ctx context.Context, dirs []string) ([]Listing, error) {
	out := make([]Listing, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := s.ListDir(dir)
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve absolute path: %w", err)
		}
		out = append(out, Listing{Dir: abs, Files: files})
	}
	return out, nil
}
