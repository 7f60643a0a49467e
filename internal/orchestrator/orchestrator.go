// Package orchestrator drives a merge run: it walks the hierarchy from the
// lowest to the highest priority source, folds every file into a per-path
// accumulator through the resolved merger, and runs hooks around the fold.
package orchestrator

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/dusk-indust/stratum/internal/hook"
	"github.com/dusk-indust/stratum/internal/logging"
	"github.com/dusk-indust/stratum/internal/merger"
	"github.com/dusk-indust/stratum/internal/source"
)

// Resolver picks the merger for an output path. *merger.Registry is the
// usual implementation.
type Resolver interface {
	Resolve(path string) merger.Merger
}

var _ Resolver = (*merger.Registry)(nil)

// DefaultReadConcurrency bounds parallel reads within one source.
const DefaultReadConcurrency = 8

// Orchestrator runs merges. Its registry and hooks must not be changed
// while a run is in progress; separate runs share no state.
type Orchestrator struct {
	fs              source.FS
	resolver        Resolver
	hooks           *hook.Pipeline
	settings        map[string]merger.Settings
	logger          *slog.Logger
	progress        *ProgressReporter
	readConcurrency int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFS sets the filesystem collaborator. Default: the OS filesystem.
func WithFS(fs source.FS) Option {
	return func(o *Orchestrator) { o.fs = fs }
}

// WithResolver sets the merger resolver. Default: merger.NewDefaultRegistry().
func WithResolver(r Resolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithHooks sets the hook pipeline. Default: no hooks.
func WithHooks(p *hook.Pipeline) Option {
	return func(o *Orchestrator) { o.hooks = p }
}

// WithSettings sets per-merger settings keyed by merger name.
func WithSettings(s map[string]merger.Settings) Option {
	return func(o *Orchestrator) { o.settings = s }
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithProgress makes the orchestrator emit progress events on pr.
func WithProgress(pr *ProgressReporter) Option {
	return func(o *Orchestrator) { o.progress = pr }
}

// WithReadConcurrency bounds parallel reads within one source. n < 1
// means 1.
func WithReadConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n < 1 {
			n = 1
		}
		o.readConcurrency = n
	}
}

// New creates an Orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{readConcurrency: DefaultReadConcurrency}
	for _, opt := range opts {
		opt(o)
	}
	if o.fs == nil {
		o.fs = source.NewDirFS(nil)
	}
	if o.resolver == nil {
		o.resolver = merger.NewDefaultRegistry()
	}
	if o.hooks == nil {
		o.hooks = hook.NewPipeline()
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	return o
}

// FileResult is the merged state of one output path.
type FileResult struct {
	Path         string   `json:"path"`
	Content      string   `json:"-"`
	Contributors []string `json:"contributors"`
	Merger       string   `json:"merger"`
	Digest       string   `json:"digest"`
}

// Failure records a file that could not be merged. The file is absent
// from Result.Files.
type Failure struct {
	Path   string
	Source string // source being folded when it failed; empty for post hooks
	Err    error
}

func (f Failure) Error() string {
	return f.Err.Error()
}

// ResolutionError reports a resolver that returned no merger.
type ResolutionError struct {
	Path string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("orchestrator: no merger resolved for %s", e.Path)
}

func (e *ResolutionError) Unwrap() error { return merger.ErrNoMerger }

// Result is the outcome of a run.
type Result struct {
	RunID    string
	Files    map[string]*FileResult
	Failures []Failure
	Skipped  []*source.DiscoveryError
	Notices  []merger.Notice

	// Aborted is set when the run's context ended before every source was
	// folded. Files then reflect the sources folded so far and post hooks
	// have not run.
	Aborted bool
}

// Paths returns the merged output paths, sorted.
func (r *Result) Paths() []string {
	paths := make([]string, 0, len(r.Files))
	for p := range r.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// FailureFor returns the failure recorded for path, if any.
func (r *Result) FailureFor(path string) (Failure, bool) {
	for _, f := range r.Failures {
		if f.Path == path {
			return f, true
		}
	}
	return Failure{}, false
}
