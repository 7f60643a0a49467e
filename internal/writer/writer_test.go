package writer

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/stratum/internal/orchestrator"
	"github.com/dusk-indust/stratum/internal/source"
)

var testEntries = source.Ranked(
	[2]string{"org", "/org"},
	[2]string{"team", "/team"},
)

func fileResult(path, content string, contributors ...string) *orchestrator.FileResult {
	return &orchestrator.FileResult{
		Path:         path,
		Content:      content,
		Contributors: contributors,
		Merger:       "text",
		Digest:       orchestrator.Digest(content),
	}
}

func sampleResult() *orchestrator.Result {
	return &orchestrator.Result{
		RunID: "run-1",
		Files: map[string]*orchestrator.FileResult{
			"AGENTS.md":          fileResult("AGENTS.md", "# a\n", "org", "team"),
			"agents/reviewer.md": fileResult("agents/reviewer.md", "review\n", "team"),
		},
	}
}

func TestWrite_CreatesFilesAndParents(t *testing.T) {
	fsys := afero.NewMemMapFs()
	w := New("/out", WithFS(fsys))

	report, err := w.Write(sampleResult(), testEntries)
	require.NoError(t, err)

	data, err := afero.ReadFile(fsys, "/out/agents/reviewer.md")
	require.NoError(t, err)
	assert.Equal(t, "review\n", string(data))

	require.Len(t, report.Written, 2)
	assert.Equal(t, "wrote AGENTS.md (from 2 sources: org, team)", report.Written[0].Line())
	assert.Equal(t, "wrote agents/reviewer.md (from 1 source: team)", report.Written[1].Line())
	created, updated, unchanged := report.Counts()
	assert.Equal(t, []int{2, 0, 0}, []int{created, updated, unchanged})
}

func TestWrite_SkipsUnchangedAndUpdatesChanged(t *testing.T) {
	fsys := afero.NewMemMapFs()
	w := New("/out", WithFS(fsys))
	_, err := w.Write(sampleResult(), testEntries)
	require.NoError(t, err)

	res := sampleResult()
	res.Files["AGENTS.md"] = fileResult("AGENTS.md", "# b\n", "org", "team")
	report, err := w.Write(res, testEntries)
	require.NoError(t, err)

	assert.Equal(t, ActionUpdated, report.Written[0].Action)
	assert.Equal(t, ActionUnchanged, report.Written[1].Action)
	assert.Equal(t, "unchanged agents/reviewer.md", report.Written[1].Line())
}

func TestWrite_DryRunTouchesNothing(t *testing.T) {
	fsys := afero.NewMemMapFs()
	w := New("/out", WithFS(fsys), WithDryRun(true))

	report, err := w.Write(sampleResult(), testEntries)
	require.NoError(t, err)
	assert.True(t, report.DryRun)
	require.Len(t, report.Written, 2)
	assert.Equal(t, ActionCreated, report.Written[0].Action)

	exists, err := afero.Exists(fsys, "/out")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWrite_RefusesAbortedRun(t *testing.T) {
	res := sampleResult()
	res.Aborted = true
	_, err := New("/out", WithFS(afero.NewMemMapFs())).Write(res, testEntries)
	assert.Error(t, err)
}

func TestWrite_SkipsManifestCollision(t *testing.T) {
	fsys := afero.NewMemMapFs()
	res := sampleResult()
	res.Files[ManifestName] = fileResult(ManifestName, "not json", "org")

	report, err := New("/out", WithFS(fsys)).Write(res, testEntries)
	require.NoError(t, err)
	assert.Len(t, report.Written, 2)

	m, err := ReadManifest(fsys, "/out")
	require.NoError(t, err)
	assert.Len(t, m.Files, 2)
}

func TestManifest_RoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()
	_, err := New("/out", WithFS(fsys)).Write(sampleResult(), testEntries)
	require.NoError(t, err)

	m, err := ReadManifest(fsys, "/out")
	require.NoError(t, err)
	assert.Equal(t, "run-1", m.RunID)
	assert.Equal(t, ManifestVersion, m.Version)
	assert.Equal(t, []ManifestSource{{Name: "org", Rank: 0, Root: "/org"}, {Name: "team", Rank: 1, Root: "/team"}}, m.Sources)

	f, ok := m.File("AGENTS.md")
	require.True(t, ok)
	assert.Equal(t, []string{"org", "team"}, f.Contributors)
	assert.Equal(t, orchestrator.Digest("# a\n"), f.Digest)

	_, ok = m.File("missing")
	assert.False(t, ok)
}

func TestReadManifest_Errors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	_, err := ReadManifest(fsys, "/out")
	assert.ErrorIs(t, err, ErrNoManifest)

	require.NoError(t, afero.WriteFile(fsys, "/out/"+ManifestName, []byte("{"), 0o644))
	_, err = ReadManifest(fsys, "/out")
	assert.ErrorContains(t, err, "parse manifest")

	require.NoError(t, afero.WriteFile(fsys, "/out/"+ManifestName, []byte(`{"version": 99}`), 0o644))
	_, err = ReadManifest(fsys, "/out")
	assert.ErrorContains(t, err, "unsupported manifest version 99")
}
