package provenance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/stratum/internal/orchestrator"
	"github.com/dusk-indust/stratum/internal/source"
)

func sampleRun() ([]source.Entry, *orchestrator.Result) {
	entries := source.Ranked(
		[2]string{"org", "/org"},
		[2]string{"team", "/team"},
		[2]string{"personal", "/personal"},
	)
	res := &orchestrator.Result{
		RunID: "run-1",
		Files: map[string]*orchestrator.FileResult{
			"settings.json": {
				Path:         "settings.json",
				Contributors: []string{"org", "team", "personal"},
				Merger:       "json",
				Digest:       "d1",
			},
			"AGENTS.md": {
				Path:         "AGENTS.md",
				Contributors: []string{"team"},
				Merger:       "markdown",
				Digest:       "d2",
			},
		},
	}
	return entries, res
}

// exerciseStore runs the shared behavioural checks against any Store.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	entries, res := sampleRun()
	require.NoError(t, Record(ctx, s, entries, res))

	f, err := s.GetFile(ctx, "settings.json")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, FileNode{Path: "settings.json", Merger: "json", Digest: "d1", RunID: "run-1"}, *f)

	missing, err := s.GetFile(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	contributors, err := s.Contributors(ctx, "settings.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"org", "team", "personal"}, contributors)

	files, err := s.FilesFrom(ctx, "team")
	require.NoError(t, err)
	assert.Equal(t, []string{"AGENTS.md", "settings.json"}, files)

	sources, err := s.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, SourceNode{Name: "org", Rank: 0, Root: "/org"}, sources[0])
	assert.Equal(t, "personal", sources[2].Name)

	edges, err := s.Contributions(ctx)
	require.NoError(t, err)
	require.Len(t, edges, 4)
	assert.Equal(t, Contribution{Source: "team", Path: "AGENTS.md", Position: 0}, edges[0])

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{SourceCount: 3, FileCount: 2, ContributionCount: 4}, stats)

	// A second run replaces the first.
	res.Files = map[string]*orchestrator.FileResult{
		"a.txt": {Path: "a.txt", Contributors: []string{"org"}, Merger: "text"},
	}
	res.RunID = "run-2"
	require.NoError(t, Record(ctx, s, entries, res))
	stats, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{SourceCount: 3, FileCount: 1, ContributionCount: 1}, stats)
	f, err = s.GetFile(ctx, "settings.json")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestMemStore_Record(t *testing.T) {
	exerciseStore(t, NewMemStore())
}

func TestMemStore_EmptyQueries(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	files, err := s.FilesFrom(ctx, "org")
	require.NoError(t, err)
	assert.Empty(t, files)

	contributors, err := s.Contributors(ctx, "x")
	require.NoError(t, err)
	assert.Empty(t, contributors)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{}, stats)
}

func TestRecord_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entries, res := sampleRun()
	err := Record(ctx, NewMemStore(), entries, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpen_EmptyDirIsMemory(t *testing.T) {
	s, err := Open(context.Background(), "")
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &MemStore{}, s)
}
