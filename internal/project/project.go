// Package project wires a loaded configuration into a runnable merge: the
// source entries, merger registry, hook pipeline, orchestrator, writer and
// provenance store.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"github.com/dusk-indust/stratum/internal/config"
	"github.com/dusk-indust/stratum/internal/logging"
	"github.com/dusk-indust/stratum/internal/merger"
	"github.com/dusk-indust/stratum/internal/orchestrator"
	"github.com/dusk-indust/stratum/internal/provenance"
	"github.com/dusk-indust/stratum/internal/source"
	"github.com/dusk-indust/stratum/internal/status"
	"github.com/dusk-indust/stratum/internal/writer"
)

// ErrNoTarget is returned by operations that need an output directory when
// none is configured.
var ErrNoTarget = errors.New("project: target is not set")

// Project is everything a run needs.
type Project struct {
	Entries      []source.Entry
	Excludes     []string
	Target       string
	FS           afero.Fs
	Registry     *merger.Registry
	Orchestrator *orchestrator.Orchestrator
	Store        provenance.Store
	Logger       *slog.Logger
}

// Option adjusts a project built by FromConfig.
type Option func(*options)

type options struct {
	fs       afero.Fs
	progress *orchestrator.ProgressReporter
}

// WithFS sets the filesystem sources are read from and outputs written to.
func WithFS(fsys afero.Fs) Option {
	return func(o *options) { o.fs = fsys }
}

// WithProgress attaches a progress reporter to the orchestrator.
func WithProgress(pr *orchestrator.ProgressReporter) Option {
	return func(o *options) { o.progress = pr }
}

// FromConfig validates cfg and builds a project from it. The caller must
// Close the project.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Project, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	entries, err := cfg.Entries()
	if err != nil {
		return nil, err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	hooks, err := cfg.Pipeline()
	if err != nil {
		return nil, err
	}
	var target string
	if cfg.Target != "" {
		if target, err = cfg.TargetDir(); err != nil {
			return nil, err
		}
	}
	storeDir, err := cfg.ProvenanceDir()
	if err != nil {
		return nil, err
	}
	store, err := provenance.Open(ctx, storeDir)
	if err != nil {
		return nil, fmt.Errorf("project: open provenance: %w", err)
	}

	orchOpts := []orchestrator.Option{
		orchestrator.WithFS(source.NewDirFS(o.fs)),
		orchestrator.WithResolver(reg),
		orchestrator.WithHooks(hooks),
		orchestrator.WithSettings(cfg.Settings()),
		orchestrator.WithLogger(logger),
		orchestrator.WithProgress(o.progress),
	}
	if cfg.ReadConcurrency > 0 {
		orchOpts = append(orchOpts, orchestrator.WithReadConcurrency(cfg.ReadConcurrency))
	}

	return &Project{
		Entries:      entries,
		Excludes:     cfg.Exclude,
		Target:       target,
		FS:           o.fs,
		Registry:     reg,
		Orchestrator: orchestrator.New(orchOpts...),
		Store:        store,
		Logger:       logger,
	}, nil
}

// Merge runs the orchestrator over the hierarchy and, for a complete run,
// records its provenance.
func (p *Project) Merge(ctx context.Context) (*orchestrator.Result, error) {
	res, err := p.Orchestrator.Merge(ctx, p.Entries, p.Excludes)
	if err != nil {
		return nil, err
	}
	if p.Store != nil && !res.Aborted {
		if err := provenance.Record(ctx, p.Store, p.Entries, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Provenance returns the store, merging first when it holds no files.
func (p *Project) Provenance(ctx context.Context) (provenance.Store, error) {
	stats, err := p.Store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if stats.FileCount == 0 {
		if _, err := p.Merge(ctx); err != nil {
			return nil, err
		}
	}
	return p.Store, nil
}

// Writer returns a writer for the target.
func (p *Project) Writer(dryRun bool) (*writer.Writer, error) {
	if p.Target == "" {
		return nil, ErrNoTarget
	}
	return writer.New(p.Target, writer.WithFS(p.FS), writer.WithDryRun(dryRun), writer.WithLogger(p.Logger)), nil
}

// Apply merges and writes the result.
func (p *Project) Apply(ctx context.Context, dryRun bool) (*orchestrator.Result, *writer.Report, error) {
	w, err := p.Writer(dryRun)
	if err != nil {
		return nil, nil, err
	}
	res, err := p.Merge(ctx)
	if err != nil {
		return nil, nil, err
	}
	report, err := w.Write(res, p.Entries)
	return res, report, err
}

// Status compares the target with its manifest and a fresh merge.
func (p *Project) Status(ctx context.Context) (*status.Report, error) {
	if p.Target == "" {
		return nil, ErrNoTarget
	}
	m, err := writer.ReadManifest(p.FS, p.Target)
	if err != nil {
		return nil, err
	}
	fresh, err := p.Orchestrator.Merge(ctx, p.Entries, p.Excludes)
	if err != nil {
		return nil, err
	}
	return status.Check(p.FS, p.Target, m, fresh)
}

// Close releases the provenance store.
func (p *Project) Close() error {
	if p.Store == nil {
		return nil
	}
	return p.Store.Close()
}
