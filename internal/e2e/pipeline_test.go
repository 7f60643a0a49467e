//go:build e2e

package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/stratum/internal/config"
	"github.com/dusk-indust/stratum/internal/status"
	"github.com/dusk-indust/stratum/internal/writer"
)

func TestMerge_E2E_Structure(t *testing.T) {
	p, target := mergeFixture(t, nil)

	// Single-source files are copied verbatim, directories included.
	got, err := os.ReadFile(filepath.Join(target, "agents", "reviewer.md"))
	require.NoError(t, err)
	assert.Equal(t, "You review Go code.\n", string(got))
	assert.FileExists(t, filepath.Join(target, "hooks", "lint.sh"))

	// Base excludes keep READMEs out of the target.
	assert.NoFileExists(t, filepath.Join(target, "README.md"))

	// TOML tables merge key by key.
	toml, err := os.ReadFile(filepath.Join(target, "config.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(toml), "theme = 'dark'")
	assert.Contains(t, string(toml), "font = 'mono'")

	m, err := writer.ReadManifest(p.FS, target)
	require.NoError(t, err)
	f, ok := m.File("settings.json")
	require.True(t, ok)
	assert.Equal(t, []string{"org", "team", "personal"}, f.Contributors)
	assert.Equal(t, "json", f.Merger)

	ctx := context.Background()
	contributors, err := p.Store.Contributors(ctx, "CLAUDE.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"org", "team", "personal"}, contributors)
}

func TestMerge_E2E_StatusAfterLocalEdit(t *testing.T) {
	p, target := mergeFixture(t, nil)
	ctx := context.Background()

	r, err := p.Status(ctx)
	require.NoError(t, err)
	assert.True(t, r.Clean())

	require.NoError(t, os.WriteFile(filepath.Join(target, "notes.txt"), []byte("edited\n"), 0o644))
	r, err = p.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Count(status.StateModified))
}

func TestMerge_E2E_HooksAndSettings(t *testing.T) {
	cfg := &config.Config{
		Mergers: map[string]map[string]any{
			"json":     {"sort_keys": true, "indent": 4},
			"markdown": {"separator_style": "heading", "note": ""},
		},
		Hooks: []config.HookSpec{
			{Builtin: "provenance-banner", Pattern: "*.md", Phase: "post"},
		},
	}
	_, target := mergeFixture(t, cfg)

	settings, err := os.ReadFile(filepath.Join(target, "settings.json"))
	require.NoError(t, err)
	assert.Contains(t, string(settings), "{\n    \"env\": {")

	claude, err := os.ReadFile(filepath.Join(target, "CLAUDE.md"))
	require.NoError(t, err)
	assert.Contains(t, string(claude), "<!-- merged by stratum from: org, team, personal -->")
	assert.Contains(t, string(claude), "\n\n## Configuration from: team\n\n# Team")
	assert.NotContains(t, string(claude), "Note to AI Agent")
}
