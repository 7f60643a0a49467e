package orchestrator

import (
	"context"
	"encoding/hex"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/dusk-indust/stratum/internal/merger"
	"github.com/dusk-indust/stratum/internal/source"
)

// accumulator is the merge state of one output path. It is only updated
// after a contribution fully succeeds.
type accumulator struct {
	content      string
	contributors []string
	merger       string
	failed       bool
}

// run holds the state of a single Merge call.
type run struct {
	o      *Orchestrator
	accs   map[string]*accumulator
	result *Result

	// resolved caches validated settings per merger name. Problems with a
	// merger's settings are reported once per run, on its first use.
	resolved map[string]merger.Settings
}

// Merge folds the files of every source in hierarchy into one result per
// output path. Sources are folded in ascending rank; files within a source
// in path order. File-scoped failures are collected in the result and do
// not stop the run. Merge returns an error only for an invalid hierarchy
// or when ctx ends; in the latter case the partial result is returned too.
func (o *Orchestrator) Merge(ctx context.Context, hierarchy []source.Entry, excludes []string) (*Result, error) {
	levels, err := source.Ordered(hierarchy)
	if err != nil {
		return nil, err
	}
	if err := source.ValidatePatterns(excludes); err != nil {
		return nil, err
	}
	patterns := source.Excludes(excludes)

	r := &run{
		o:        o,
		accs:     make(map[string]*accumulator),
		resolved: make(map[string]merger.Settings),
		result: &Result{
			RunID: uuid.NewString(),
			Files: make(map[string]*FileResult),
		},
	}
	log := o.logger.With("run", r.result.RunID)
	log.Info("merge started", "sources", len(levels))

	for _, entry := range levels {
		if err := ctx.Err(); err != nil {
			return r.abort(err), err
		}
		o.progress.Emit(ProgressEvent{Source: entry.Name, Status: ProgressWorking})

		files, err := o.fs.List(entry.Root, patterns)
		if err != nil {
			derr := &source.DiscoveryError{Source: entry.Name, Root: entry.Root, Err: err}
			r.result.Skipped = append(r.result.Skipped, derr)
			log.Warn("source skipped", "source", entry.Name, "root", entry.Root, "err", err)
			o.progress.Emit(ProgressEvent{Source: entry.Name, Status: ProgressSkipped, Message: err.Error()})
			continue
		}
		sort.Strings(files)

		reads, err := o.readLevel(ctx, entry, files)
		if err != nil {
			return r.abort(err), err
		}
		for _, rd := range reads {
			if err := ctx.Err(); err != nil {
				return r.abort(err), err
			}
			r.fold(entry, rd)
		}
		log.Debug("source folded", "source", entry.Name, "files", len(files))
		o.progress.Emit(ProgressEvent{Source: entry.Name, Status: ProgressComplete})
	}

	paths := make([]string, 0, len(r.accs))
	for p, acc := range r.accs {
		if !acc.failed {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return r.abort(err), err
		}
		r.finish(p)
	}

	log.Info("merge finished",
		"files", len(r.result.Files),
		"failures", len(r.result.Failures),
		"skipped", len(r.result.Skipped))
	return r.result, nil
}

// fold applies one source's version of a file to its accumulator.
func (r *run) fold(entry source.Entry, rd readResult) {
	acc := r.accs[rd.Path]
	if acc != nil && acc.failed {
		return
	}
	if rd.Err != nil {
		r.fail(rd.Path, entry.Name, rd.Err)
		return
	}

	content, err := r.o.hooks.RunPre(rd.Content, entry, rd.Path)
	if err != nil {
		r.fail(rd.Path, entry.Name, err)
		return
	}

	m := r.o.resolver.Resolve(rd.Path)
	if m == nil {
		r.fail(rd.Path, entry.Name, &ResolutionError{Path: rd.Path})
		return
	}
	settings := r.settingsFor(m)

	if acc == nil {
		r.accs[rd.Path] = &accumulator{
			content:      content,
			contributors: []string{entry.Name},
			merger:       m.Name(),
		}
		r.o.progress.Emit(ProgressEvent{Source: entry.Name, Path: rd.Path, Status: ProgressComplete})
		return
	}

	res, err := m.Merge(merger.Request{
		Path:         rd.Path,
		Base:         acc.content,
		Incoming:     content,
		Source:       entry.Name,
		Contributors: append([]string(nil), acc.contributors...),
		Settings:     settings,
	})
	r.notice(res.Notices)
	if err != nil {
		r.fail(rd.Path, entry.Name, err)
		return
	}
	acc.content = res.Content
	acc.contributors = append(acc.contributors, entry.Name)
	acc.merger = m.Name()
	r.o.progress.Emit(ProgressEvent{Source: entry.Name, Path: rd.Path, Status: ProgressComplete})
}

// finish runs post hooks on a settled accumulator and publishes it.
func (r *run) finish(path string) {
	acc := r.accs[path]
	content, err := r.o.hooks.RunPost(acc.content, path, append([]string(nil), acc.contributors...))
	if err != nil {
		r.fail(path, "", err)
		return
	}
	r.result.Files[path] = &FileResult{
		Path:         path,
		Content:      content,
		Contributors: acc.contributors,
		Merger:       acc.merger,
		Digest:       Digest(content),
	}
}

// abort publishes the accumulators settled so far, without post hooks.
func (r *run) abort(cause error) *Result {
	r.result.Aborted = true
	for path, acc := range r.accs {
		if acc.failed {
			continue
		}
		if _, done := r.result.Files[path]; done {
			continue
		}
		r.result.Files[path] = &FileResult{
			Path:         path,
			Content:      acc.content,
			Contributors: acc.contributors,
			Merger:       acc.merger,
			Digest:       Digest(acc.content),
		}
	}
	r.o.logger.Warn("merge aborted", "run", r.result.RunID, "err", cause)
	return r.result
}

func (r *run) fail(path, sourceName string, err error) {
	r.accs[path] = &accumulator{failed: true}
	r.result.Failures = append(r.result.Failures, Failure{Path: path, Source: sourceName, Err: err})

	var pe *merger.ParseError
	switch {
	case errors.As(err, &pe):
		r.o.logger.Error("parse failed", "path", path, "source", sourceName, "line", pe.Line, "err", err)
	default:
		r.o.logger.Error("file failed", "path", path, "source", sourceName, "err", err)
	}
	r.o.progress.Emit(ProgressEvent{Source: sourceName, Path: path, Status: ProgressFailed, Message: err.Error()})
}

func (r *run) settingsFor(m merger.Merger) merger.Settings {
	if s, ok := r.resolved[m.Name()]; ok {
		return s
	}
	s, notices := merger.ResolveSettings(m.Name(), m.Preferences(), r.o.settings[m.Name()])
	r.notice(notices)
	r.resolved[m.Name()] = s
	return s
}

func (r *run) notice(notices []merger.Notice) {
	for _, n := range notices {
		r.result.Notices = append(r.result.Notices, n)
		attrs := []any{"merger", n.Merger, "path", n.Path, "source", n.Source}
		if n.Level == merger.LevelWarning {
			r.o.logger.Warn(n.Message, attrs...)
		} else {
			r.o.logger.Info(n.Message, attrs...)
		}
	}
}

// Digest returns the hex BLAKE3-256 digest of content.
func Digest(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
