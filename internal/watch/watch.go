// Package watch re-runs a merge when files under the source roots change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dusk-indust/stratum/internal/logging"
	"github.com/dusk-indust/stratum/internal/source"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 300 * time.Millisecond

// Change is a batch of settled changes. Paths are absolute and sorted.
type Change struct {
	Paths []string
}

// Handler reacts to a batch of changes. An error is logged and the watcher
// keeps running.
type Handler func(ctx context.Context, c Change) error

// Watcher watches source roots recursively.
type Watcher struct {
	roots    []string
	excludes []string
	handler  Handler
	debounce time.Duration
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
	ready    chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets the debounce duration.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExcludes skips directories and files matching the patterns, in
// addition to source.BaseExcludes.
func WithExcludes(patterns []string) Option {
	return func(w *Watcher) { w.excludes = source.Excludes(patterns) }
}

// New returns a watcher for the roots of entries.
func New(entries []source.Entry, h Handler, opts ...Option) *Watcher {
	w := &Watcher{
		handler:  h,
		debounce: DefaultDebounce,
		excludes: source.Excludes(nil),
		ready:    make(chan struct{}),
	}
	for _, e := range entries {
		w.roots = append(w.roots, e.Root)
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.Discard()
	}
	return w
}

// Ready is closed once every root is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is done. Missing roots are skipped; if no root
// can be watched Run fails. Run may be called once.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer fsw.Close()
	w.fsw = fsw

	watched := 0
	for _, root := range w.roots {
		if _, err := w.addTree(root); err != nil {
			w.logger.Warn("source not watched", "root", root, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		return errors.New("watch: no source root could be watched")
	}
	w.logger.Info("watching sources", "roots", len(w.roots), "debounce", w.debounce)
	close(w.ready)

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("source changed", "file", event.Name, "op", event.Op.String())
			pending[event.Name] = true
			if event.Has(fsnotify.Create) {
				// A new directory may already hold files created before it
				// was watched.
				if files, err := w.addTree(event.Name); err == nil {
					for _, f := range files {
						pending[f] = true
					}
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-fire:
			fire = nil
			c := Change{Paths: make([]string, 0, len(pending))}
			for p := range pending {
				c.Paths = append(c.Paths, p)
			}
			sort.Strings(c.Paths)
			clear(pending)
			if err := w.handler(ctx, c); err != nil {
				w.logger.Error("re-merge failed", "error", err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, event.Name)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		return !source.ExcludedPath(filepath.ToSlash(rel), w.excludes)
	}
	return false
}

// addTree watches dir and every non-excluded directory beneath it and
// returns the regular files found. A non-directory yields nothing.
func (w *Watcher) addTree(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}
	var files []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != dir && source.Excluded(d.Name(), w.excludes) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			files = append(files, p)
			return nil
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watch: add %s: %w", p, err)
		}
		return nil
	})
	return files, err
}
