// Package discovery finds the input images for a run.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions is the allow-list used when none is configured.
var DefaultExtensions = []string{".jpg", ".png", ".bmp", ".tiff"}

// Find lists dir (non-recursively) and returns the paths of regular files (or symlinks to them) whose
// extension is in exts, compared case-insensitively. Results are sorted by name.
// An empty slice with a nil error means the directory holds no matching images.
func Find(dir string, exts []string) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	allowed := make(map[string]bool, len(exts))
	for _, e := range NormalizeExtensions(exts) {
		allowed[e] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if !allowed[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if isFile(entry, path) {
			paths = append(paths, path)
		}
	}
	// os.ReadDir already sorts, but the order is part of the contract.
	sort.Strings(paths)
	return paths, nil
}

// isFile reports whether entry is a regular file, following symlinks.
// Dangling links and links to directories are skipped.
func isFile(entry os.DirEntry, path string) bool {
	if entry.Type()&os.ModeSymlink == 0 {
		return entry.Type().IsRegular()
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// NormalizeExtensions lowercases each extension and adds the leading dot
// where missing. Blank entries are dropped.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
