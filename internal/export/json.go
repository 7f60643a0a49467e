package export

import (
	"errors"
	"time"

	"github.com/dusk-indust/stratum/internal/hook"
	"github.com/dusk-indust/stratum/internal/merger"
	"github.com/dusk-indust/stratum/internal/orchestrator"
	"github.com/dusk-indust/stratum/internal/source"
)

// RunExport is the top-level JSON export structure.
type RunExport struct {
	RunID      string          `json:"runId"`
	ExportedAt string          `json:"exportedAt"`
	Aborted    bool            `json:"aborted,omitempty"`
	Sources    []SourceExport  `json:"sources"`
	Files      []FileExport    `json:"files"`
	Failures   []FailureExport `json:"failures,omitempty"`
	Skipped    []SkippedExport `json:"skipped,omitempty"`
	Notices    []merger.Notice `json:"notices,omitempty"`
}

// SourceExport describes one hierarchy level.
type SourceExport struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
	Root string `json:"root"`
}

// FileExport describes one merged file.
type FileExport struct {
	Path         string   `json:"path"`
	Merger       string   `json:"merger"`
	Digest       string   `json:"digest"`
	Contributors []string `json:"contributors"`
}

// FailureExport describes a file that could not be merged.
type FailureExport struct {
	Path   string `json:"path"`
	Source string `json:"source,omitempty"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// SkippedExport describes a source that could not be listed.
type SkippedExport struct {
	Source string `json:"source"`
	Root   string `json:"root"`
	Error  string `json:"error"`
}

// ExportRun builds a RunExport from a merge result.
func ExportRun(entries []source.Entry, res *orchestrator.Result) *RunExport {
	out := &RunExport{
		RunID:      res.RunID,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Aborted:    res.Aborted,
		Sources:    make([]SourceExport, 0, len(entries)),
		Files:      make([]FileExport, 0, len(res.Files)),
		Notices:    res.Notices,
	}
	for _, e := range entries {
		out.Sources = append(out.Sources, SourceExport{Name: e.Name, Rank: e.Rank, Root: e.Root})
	}
	for _, p := range res.Paths() {
		f := res.Files[p]
		out.Files = append(out.Files, FileExport{
			Path:         f.Path,
			Merger:       f.Merger,
			Digest:       f.Digest,
			Contributors: f.Contributors,
		})
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, exportFailure(f))
	}
	for _, s := range res.Skipped {
		out.Skipped = append(out.Skipped, SkippedExport{Source: s.Source, Root: s.Root, Error: s.Err.Error()})
	}
	return out
}

func exportFailure(f orchestrator.Failure) FailureExport {
	fe := FailureExport{Path: f.Path, Source: f.Source, Kind: "error", Error: f.Err.Error()}
	var (
		pe  *merger.ParseError
		he  *hook.Error
		re  *source.ReadError
		res *orchestrator.ResolutionError
	)
	switch {
	case errors.As(f.Err, &pe):
		fe.Kind = "parse"
		fe.Line, fe.Column = pe.Line, pe.Column
	case errors.As(f.Err, &he):
		fe.Kind = "hook"
	case errors.As(f.Err, &re):
		fe.Kind = "read"
	case errors.As(f.Err, &res):
		fe.Kind = "resolution"
	}
	return fe
}
