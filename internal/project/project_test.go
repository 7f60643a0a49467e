package project

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/stratum/internal/config"
	"github.com/dusk-indust/stratum/internal/status"
	"github.com/dusk-indust/stratum/internal/writer"
)

func testProject(t *testing.T) (*Project, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	files := map[string]string{
		"/org/settings.json":      `{"a": 1, "keep": true}`,
		"/team/settings.json":     `{"a": 2}`,
		"/personal/settings.json": `{"a": 3}`,
		"/team/AGENTS.md":         "# Team\n",
	}
	for p, c := range files {
		require.NoError(t, afero.WriteFile(fsys, p, []byte(c), 0o644))
	}
	cfg := &config.Config{
		Target: "/out",
		Hierarchy: []config.Level{
			{Name: "org", Path: "/org"},
			{Name: "team", Path: "/team"},
			{Name: "personal", Path: "/personal"},
		},
		Mergers: map[string]map[string]any{"json": {"indent": 4}},
	}
	p, err := FromConfig(context.Background(), cfg, nil, WithFS(fsys))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, fsys
}

func TestFromConfig_InvalidConfig(t *testing.T) {
	_, err := FromConfig(context.Background(), &config.Config{}, nil)
	assert.Error(t, err)
}

func TestProject_ApplyWritesAndRecords(t *testing.T) {
	p, fsys := testProject(t)
	ctx := context.Background()

	res, report, err := p.Apply(ctx, false)
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	require.Len(t, report.Written, 2)

	data, err := afero.ReadFile(fsys, "/out/settings.json")
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"a\": 3,\n    \"keep\": true\n}\n", string(data))

	contributors, err := p.Store.Contributors(ctx, "settings.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"org", "team", "personal"}, contributors)

	_, err = writer.ReadManifest(fsys, "/out")
	assert.NoError(t, err)
}

func TestProject_Status(t *testing.T) {
	p, fsys := testProject(t)
	ctx := context.Background()

	_, err := p.Status(ctx)
	assert.ErrorIs(t, err, writer.ErrNoManifest)

	_, _, err = p.Apply(ctx, false)
	require.NoError(t, err)

	r, err := p.Status(ctx)
	require.NoError(t, err)
	assert.True(t, r.Clean())

	require.NoError(t, afero.WriteFile(fsys, "/personal/settings.json", []byte(`{"a": 4}`), 0o644))
	r, err = p.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Count(status.StateStale))
}

func TestProject_NoTarget(t *testing.T) {
	p, _ := testProject(t)
	p.Target = ""
	_, _, err := p.Apply(context.Background(), false)
	assert.ErrorIs(t, err, ErrNoTarget)
}

func TestProject_ProvenanceMergesWhenEmpty(t *testing.T) {
	p, _ := testProject(t)
	ctx := context.Background()

	store, err := p.Provenance(ctx)
	require.NoError(t, err)
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FileCount)
	assert.Equal(t, 3, stats.SourceCount)
}
