// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// HasExtension reports whether path ends with one of the extensions,
// ignoring case.
func HasExtension(path string, extensions ...string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// IsGlob reports whether path contains glob meta characters.
func IsGlob(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

// FindFiles recursively searches root for files ending with one of the
// extensions and returns their paths in lexical order. When root is a file
// it is returned as-is if its extension matches. When root is a glob pattern
// ("flows/**/*.hcl") every matching file with a known extension is returned.
func FindFiles(root string, extensions ...string) ([]string, error) {
	if len(extensions) == 0 {
		panic("at least one extension is required")
	}
	if IsGlob(root) {
		return globFiles(root, extensions)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", root, err)
	}
	if !info.IsDir() {
		if !HasExtension(root, extensions...) {
			return nil, fmt.Errorf("unsupported file type %q, expected one of %s", root, strings.Join(extensions, ", "))
		}
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && HasExtension(d.Name(), extensions...) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func globFiles(pattern string, extensions []string) ([]string, error) {
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern %q", pattern)
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("searching files with pattern '%s': %w", pattern, err)
	}
	files := matches[:0]
	for _, m := range matches {
		if HasExtension(m, extensions...) {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}
