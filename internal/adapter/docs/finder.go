package docs

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Finder locates candidate documents by glob pattern and validates
// document names against the configured accept patterns.
type Finder struct {
	includes []string
}

// NewFinder creates a finder. includes are doublestar patterns matched
// against base names and relative paths (e.g. "**/*.pdf").
func NewFinder(includes []string) *Finder {
	if len(includes) == 0 {
		includes = []string{"**/*.pdf"}
	}
	return &Finder{includes: includes}
}

// Accepted reports whether name matches one of the accept patterns. Only
// the base name is considered, so upload filenames cannot smuggle paths.
func (f *Finder) Accepted(name string) bool {
	base := filepath.Base(name)
	for _, pattern := range f.includes {
		// Match against the pattern's final segment for bare file names.
		matched, err := doublestar.Match(filepath.Base(pattern), base)
		if err == nil && matched {
			return true
		}
	}
	return false
}

// Resolve expands arg into document paths. A literal path to an existing
// file resolves to itself; otherwise arg is treated as a doublestar
// pattern. Only files matching the accept patterns are returned.
func (f *Finder) Resolve(arg string) ([]string, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		if !f.Accepted(arg) {
			return nil, fmt.Errorf("unsupported document type: %s", arg)
		}
		return []string{arg}, nil
	}

	matches, err := doublestar.FilepathGlob(arg)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
	}

	var paths []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if f.Accepted(m) {
			paths = append(paths, m)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no documents match %q", arg)
	}
	return paths, nil
}

// ResolveOne expands arg and requires exactly one document; the index
// holds a single document at a time, so an ambiguous pattern is an error
// rather than a silent pick.
func (f *Finder) ResolveOne(arg string) (string, error) {
	paths, err := f.Resolve(arg)
	if err != nil {
		return "", err
	}
	if len(paths) > 1 {
		return "", fmt.Errorf("pattern %q matches %d documents; the index holds one document at a time", arg, len(paths))
	}
	return paths[0], nil
}
