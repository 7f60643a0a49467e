// Package source models hierarchy levels and the filesystem collaborator
// the merge engine reads them through.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Entry is one level of the configuration hierarchy. Rank 0 is the lowest
// priority; higher ranks override lower ones.
type Entry struct {
	Name string
	Rank int
	Root string
}

// File is a file discovered under a source root.
type File struct {
	Path   string // slash-separated, relative to the source root
	Source string
}

// BaseExcludes are always excluded from discovery. Patterns are matched
// against every path segment with path.Match semantics.
var BaseExcludes = []string{
	".git",
	".gitignore",
	"__pycache__",
	"*.pyc",
	".DS_Store",
	"README.md",
	"LICENSE",
	".venv",
	"venv",
	"env",
	"node_modules",
	".pytest_cache",
	".ruff_cache",
	"*.egg-info",
}

// FS lists and reads files under source roots.
type FS interface {
	// List returns the slash-separated relative paths of all regular files
	// under root, minus any path with a segment matching an exclude
	// pattern. Order is not significant to callers.
	List(root string, exclude []string) ([]string, error)

	// ReadText returns the content of rel under root.
	ReadText(root, rel string) (string, error)
}

// DiscoveryError reports a source whose root could not be listed. The
// source is skipped; remaining sources are still merged.
type DiscoveryError struct {
	Source string
	Root   string
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("source %q: cannot list %s: %v", e.Source, e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// ReadError reports a file that was listed but could not be read.
type ReadError struct {
	Source string
	Path   string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("source %q: read %s: %v", e.Source, e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Compile-time check.
var _ FS = (*DirFS)(nil)

// DirFS implements FS on top of an afero filesystem.
type DirFS struct {
	fs afero.Fs
}

// NewDirFS returns a DirFS reading through fsys. A nil fsys means the
// operating system filesystem.
func NewDirFS(fsys afero.Fs) *DirFS {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &DirFS{fs: fsys}
}

// List walks root and returns every regular file not excluded. Directories
// matching an exclude pattern are pruned. The result is sorted.
func (d *DirFS) List(root string, exclude []string) ([]string, error) {
	info, err := d.fs.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var files []string
	err = afero.Walk(d.fs, root, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if Excluded(fi.Name(), exclude) {
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// ReadText reads rel (slash-separated) under root.
func (d *DirFS) ReadText(root, rel string) (string, error) {
	data, err := afero.ReadFile(d.fs, filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Excluded reports whether name matches any of the patterns. Malformed
// patterns never match.
func Excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// ExcludedPath reports whether any segment of the slash path rel matches
// one of the patterns.
func ExcludedPath(rel string, patterns []string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if Excluded(seg, patterns) {
			return true
		}
	}
	return false
}

// Excludes returns BaseExcludes followed by extra, without duplicates.
func Excludes(extra []string) []string {
	seen := make(map[string]bool, len(BaseExcludes)+len(extra))
	out := make([]string, 0, len(BaseExcludes)+len(extra))
	for _, list := range [][]string{BaseExcludes, extra} {
		for _, p := range list {
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// ValidatePatterns returns an error naming the first malformed pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("exclude pattern %q: %w", p, err)
		}
	}
	return nil
}

// IsNotExist reports whether err means the source root is missing.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
