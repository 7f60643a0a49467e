// Package writer materializes a merge result under a target directory and
// records what it wrote in a manifest.
package writer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/dusk-indust/stratum/internal/logging"
	"github.com/dusk-indust/stratum/internal/orchestrator"
	"github.com/dusk-indust/stratum/internal/source"
)

// Action is what the writer did with one output path.
type Action string

const (
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
)

// Written describes one output file.
type Written struct {
	Path         string   `json:"path"`
	Action       Action   `json:"action"`
	Contributors []string `json:"contributors"`
}

// Line renders w the way the CLI reports it.
func (w Written) Line() string {
	if w.Action == ActionUnchanged {
		return fmt.Sprintf("unchanged %s", w.Path)
	}
	noun := "sources"
	if len(w.Contributors) == 1 {
		noun = "source"
	}
	return fmt.Sprintf("wrote %s (from %d %s: %s)", w.Path, len(w.Contributors), noun, strings.Join(w.Contributors, ", "))
}

// Report is the outcome of a Write.
type Report struct {
	Target  string    `json:"target"`
	DryRun  bool      `json:"dryRun"`
	Written []Written `json:"written"`
}

// Counts returns how many files were created, updated and left alone.
func (r *Report) Counts() (created, updated, unchanged int) {
	for _, w := range r.Written {
		switch w.Action {
		case ActionCreated:
			created++
		case ActionUpdated:
			updated++
		case ActionUnchanged:
			unchanged++
		}
	}
	return created, updated, unchanged
}

// Writer writes merged files beneath a target directory.
type Writer struct {
	fs     afero.Fs
	target string
	dryRun bool
	logger *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithFS sets the filesystem. Defaults to the OS filesystem.
func WithFS(fsys afero.Fs) Option {
	return func(w *Writer) { w.fs = fsys }
}

// WithDryRun reports what would be written without touching the target.
func WithDryRun(dry bool) Option {
	return func(w *Writer) { w.dryRun = dry }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) { w.logger = l }
}

// New returns a Writer for target.
func New(target string, opts ...Option) *Writer {
	w := &Writer{target: target}
	for _, opt := range opts {
		opt(w)
	}
	if w.fs == nil {
		w.fs = afero.NewOsFs()
	}
	if w.logger == nil {
		w.logger = logging.Discard()
	}
	return w
}

// Target returns the directory the writer writes under.
func (w *Writer) Target() string {
	return w.target
}

// Write writes every merged file of res, skipping files whose content on
// disk already matches, then writes the manifest. Failed files are left
// untouched. An aborted result is refused.
func (w *Writer) Write(res *orchestrator.Result, entries []source.Entry) (*Report, error) {
	if res.Aborted {
		return nil, errors.New("writer: refusing to write an aborted run")
	}
	report := &Report{Target: w.target, DryRun: w.dryRun}
	for _, p := range res.Paths() {
		f := res.Files[p]
		if p == ManifestName {
			w.logger.Warn("skipping source file that collides with the manifest", "path", p)
			continue
		}
		action, err := w.writeFile(f)
		if err != nil {
			return report, err
		}
		report.Written = append(report.Written, Written{
			Path:         p,
			Action:       action,
			Contributors: append([]string(nil), f.Contributors...),
		})
		w.logger.Debug("output file", "path", p, "action", action)
	}
	if w.dryRun {
		return report, nil
	}
	if err := w.WriteManifest(NewManifest(res, entries)); err != nil {
		return report, err
	}
	return report, nil
}

func (w *Writer) writeFile(f *orchestrator.FileResult) (Action, error) {
	dst := w.abs(f.Path)
	action := ActionCreated
	existing, err := afero.ReadFile(w.fs, dst)
	switch {
	case err == nil:
		if orchestrator.Digest(string(existing)) == f.Digest {
			return ActionUnchanged, nil
		}
		action = ActionUpdated
	case errors.Is(err, fs.ErrNotExist):
	default:
		return "", fmt.Errorf("writer: read %s: %w", dst, err)
	}
	if w.dryRun {
		return action, nil
	}
	if err := w.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("writer: create directory for %s: %w", f.Path, err)
	}
	if err := afero.WriteFile(w.fs, dst, []byte(f.Content), 0o644); err != nil {
		return "", fmt.Errorf("writer: write %s: %w", f.Path, err)
	}
	return action, nil
}

func (w *Writer) abs(rel string) string {
	return join(w.target, rel)
}

// join maps a slash-separated relative path under target to a host path.
func join(target, rel string) string {
	return filepath.Join(target, filepath.FromSlash(path.Clean(rel)))
}
