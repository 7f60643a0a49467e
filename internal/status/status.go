// Package status compares a target directory against the manifest of the
// last merge and against what a fresh merge would produce.
package status

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/dusk-indust/stratum/internal/orchestrator"
	"github.com/dusk-indust/stratum/internal/writer"
)

// State is the condition of one output path.
type State string

const (
	// StateClean means the file on disk matches the manifest and the sources.
	StateClean State = "clean"
	// StateModified means the file was edited after it was written.
	StateModified State = "modified"
	// StateMissing means the file was deleted after it was written.
	StateMissing State = "missing"
	// StateStale means the sources now merge to different content.
	StateStale State = "stale"
	// StateNew means the sources produce a file the last merge did not write.
	StateNew State = "new"
	// StateOrphaned means no source produces the file anymore.
	StateOrphaned State = "orphaned"
)

// FileStatus is the state of one path.
type FileStatus struct {
	Path         string   `json:"path"`
	State        State    `json:"state"`
	Contributors []string `json:"contributors,omitempty"`
}

// Report is the status of a whole target.
type Report struct {
	Target string       `json:"target"`
	RunID  string       `json:"runId"`
	Files  []FileStatus `json:"files"`
}

// Clean reports whether every path is clean.
func (r *Report) Clean() bool {
	for _, f := range r.Files {
		if f.State != StateClean {
			return false
		}
	}
	return true
}

// Count returns how many paths are in state s.
func (r *Report) Count(s State) int {
	n := 0
	for _, f := range r.Files {
		if f.State == s {
			n++
		}
	}
	return n
}

// Check compares the files under target with m. When fresh is non-nil,
// clean files are further checked against it and paths it adds or drops
// are reported as new or orphaned. Local edits take precedence over
// staleness.
func Check(fsys afero.Fs, target string, m *writer.Manifest, fresh *orchestrator.Result) (*Report, error) {
	report := &Report{Target: target, RunID: m.RunID}
	seen := make(map[string]bool, len(m.Files))
	for _, mf := range m.Files {
		seen[mf.Path] = true
		st, err := diskState(fsys, target, mf)
		if err != nil {
			return nil, err
		}
		contributors := mf.Contributors
		if fresh != nil {
			if f, ok := fresh.Files[mf.Path]; ok {
				contributors = f.Contributors
				if st == StateClean && f.Digest != mf.Digest {
					st = StateStale
				}
			} else if _, failed := fresh.FailureFor(mf.Path); !failed {
				st = StateOrphaned
			}
		}
		report.Files = append(report.Files, FileStatus{Path: mf.Path, State: st, Contributors: contributors})
	}
	if fresh != nil {
		for _, p := range fresh.Paths() {
			if seen[p] || p == writer.ManifestName {
				continue
			}
			report.Files = append(report.Files, FileStatus{Path: p, State: StateNew, Contributors: fresh.Files[p].Contributors})
		}
	}
	sort.Slice(report.Files, func(i, j int) bool { return report.Files[i].Path < report.Files[j].Path })
	return report, nil
}

func diskState(fsys afero.Fs, target string, mf writer.ManifestFile) (State, error) {
	data, err := afero.ReadFile(fsys, filepath.Join(target, filepath.FromSlash(path.Clean(mf.Path))))
	if errors.Is(err, fs.ErrNotExist) {
		return StateMissing, nil
	}
	if err != nil {
		return "", fmt.Errorf("status: read %s: %w", mf.Path, err)
	}
	if orchestrator.Digest(string(data)) != mf.Digest {
		return StateModified, nil
	}
	return StateClean, nil
}
