package writer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/afero"

	"github.com/dusk-indust/stratum/internal/orchestrator"
	"github.com/dusk-indust/stratum/internal/source"
)

// ManifestName is the manifest's file name under the target.
const ManifestName = ".stratum-manifest.json"

// ManifestVersion is bumped on incompatible manifest changes.
const ManifestVersion = 1

// Manifest records the files a run wrote.
type Manifest struct {
	Version     int              `json:"version"`
	RunID       string           `json:"runId"`
	GeneratedAt string           `json:"generatedAt"`
	Sources     []ManifestSource `json:"sources"`
	Files       []ManifestFile   `json:"files"`
}

// ManifestSource is one hierarchy level of the run.
type ManifestSource struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
	Root string `json:"root"`
}

// ManifestFile is one written file.
type ManifestFile struct {
	Path         string   `json:"path"`
	Merger       string   `json:"merger"`
	Digest       string   `json:"digest"`
	Contributors []string `json:"contributors"`
}

// NewManifest builds the manifest for res. Files are sorted by path.
func NewManifest(res *orchestrator.Result, entries []source.Entry) *Manifest {
	m := &Manifest{
		Version:     ManifestVersion,
		RunID:       res.RunID,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
	for _, e := range entries {
		m.Sources = append(m.Sources, ManifestSource{Name: e.Name, Rank: e.Rank, Root: e.Root})
	}
	for _, p := range res.Paths() {
		if p == ManifestName {
			continue
		}
		f := res.Files[p]
		m.Files = append(m.Files, ManifestFile{
			Path:         f.Path,
			Merger:       f.Merger,
			Digest:       f.Digest,
			Contributors: append([]string(nil), f.Contributors...),
		})
	}
	return m
}

// File returns the manifest entry for path.
func (m *Manifest) File(path string) (ManifestFile, bool) {
	for _, f := range m.Files {
		if f.Path == path {
			return f, true
		}
	}
	return ManifestFile{}, false
}

// WriteManifest writes m to the target.
func (w *Writer) WriteManifest(m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("writer: marshal manifest: %w", err)
	}
	if err := w.fs.MkdirAll(w.target, 0o755); err != nil {
		return fmt.Errorf("writer: create target: %w", err)
	}
	if err := afero.WriteFile(w.fs, w.abs(ManifestName), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writer: write manifest: %w", err)
	}
	return nil
}

// ErrNoManifest is returned by ReadManifest when the target has none.
var ErrNoManifest = errors.New("writer: no manifest found")

// ReadManifest loads the manifest under target.
func ReadManifest(fsys afero.Fs, target string) (*Manifest, error) {
	data, err := afero.ReadFile(fsys, join(target, ManifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoManifest
	}
	if err != nil {
		return nil, fmt.Errorf("writer: read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("writer: parse manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("writer: unsupported manifest version %d", m.Version)
	}
	return &m, nil
}
