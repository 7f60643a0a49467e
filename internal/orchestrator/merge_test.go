package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/stratum/internal/hook"
	"github.com/dusk-indust/stratum/internal/merger"
	"github.com/dusk-indust/stratum/internal/source"
)

var orgTeamPersonal = source.Ranked(
	[2]string{"org", "/org"},
	[2]string{"team", "/team"},
	[2]string{"personal", "/personal"},
)

func newTestOrchestrator(t *testing.T, files map[string]string, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithFS(source.NewDirFS(memFS(t, files)))}, opts...)
	return New(opts...)
}

func TestMerge_SingleSourcePassThrough(t *testing.T) {
	files := map[string]string{
		"/org/settings.json": "{\"b\":1,   \"a\": [1,2]}",
		"/org/AGENTS.md":     "# Rules\n",
		"/org/notes.txt":     "plain",
		"/org/tool.bin":      "\x00\x01",
		"/org/cfg.yaml":      "# comment\nkey:   value\n",
	}
	o := newTestOrchestrator(t, files)

	res, err := o.Merge(context.Background(), source.Ranked([2]string{"org", "/org"}), nil)
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	for p, content := range files {
		rel := strings.TrimPrefix(p, "/org/")
		require.Contains(t, res.Files, rel)
		assert.Equal(t, content, res.Files[rel].Content, rel)
		assert.Equal(t, []string{"org"}, res.Files[rel].Contributors)
	}
}

func TestMerge_HighestPriorityWinsAndContributorsOrdered(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"/org/settings.json":      `{"a": 1, "nested": {"keep": true}}`,
		"/team/settings.json":     `{"a": 2}`,
		"/personal/settings.json": `{"a": 3}`,
	})

	res, err := o.Merge(context.Background(), orgTeamPersonal, nil)
	require.NoError(t, err)
	f := res.Files["settings.json"]
	require.NotNil(t, f)
	assert.JSONEq(t, `{"a": 3, "nested": {"keep": true}}`, f.Content)
	assert.Equal(t, []string{"org", "team", "personal"}, f.Contributors)
	assert.Equal(t, "json", f.Merger)
	assert.Equal(t, Digest(f.Content), f.Digest)
	assert.Len(t, f.Digest, 64)
}

func TestMerge_RankOrderNotInputOrder(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"/low/x.txt":  "low",
		"/high/x.txt": "high",
	})
	hierarchy := []source.Entry{
		{Name: "high", Rank: 5, Root: "/high"},
		{Name: "low", Rank: 1, Root: "/low"},
	}

	res, err := o.Merge(context.Background(), hierarchy, nil)
	require.NoError(t, err)
	assert.Equal(t, "low\n\nhigh", res.Files["x.txt"].Content)
	assert.Equal(t, []string{"low", "high"}, res.Files["x.txt"].Contributors)
}

func TestMerge_UnregisteredExtensionCopiesHighest(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"/org/logo.svg":  "<svg>org</svg>",
		"/team/logo.svg": "<svg>team</svg>",
	})

	res, err := o.Merge(context.Background(), orgTeamPersonal[:2], nil)
	require.NoError(t, err)
	assert.Equal(t, "<svg>team</svg>", res.Files["logo.svg"].Content)
	assert.Equal(t, "copy", res.Files["logo.svg"].Merger)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, "logo.svg", res.Notices[0].Path)
}

func TestMerge_SettingsProblemsReportedOncePerRun(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"/org/a.json":      `{"a": 1}`,
		"/team/a.json":     `{"a": 2}`,
		"/personal/a.json": `{"a": 3}`,
		"/org/b.json":      `{"b": 1}`,
		"/personal/c.json": `{"c": 1}`,
	}, WithSettings(map[string]merger.Settings{
		"json": {"bogus": true, "indent": 4},
	}))

	res, err := o.Merge(context.Background(), orgTeamPersonal, nil)
	require.NoError(t, err)
	require.Empty(t, res.Failures)
	require.Len(t, res.Notices, 1)
	assert.Equal(t, merger.LevelWarning, res.Notices[0].Level)
	assert.Equal(t, "json", res.Notices[0].Merger)
	assert.Contains(t, res.Notices[0].Message, `"bogus"`)
	assert.Equal(t, "{\n    \"a\": 3\n}\n", res.Files["a.json"].Content)
}

func TestMerge_SettingsProblemReportedForSingleSourceFile(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"/org/only.json": `{"a": 1}`,
	}, WithSettings(map[string]merger.Settings{
		"json": {"indent": 99},
	}))

	res, err := o.Merge(context.Background(), orgTeamPersonal, nil)
	require.NoError(t, err)
	require.Len(t, res.Notices, 1)
	assert.Contains(t, res.Notices[0].Message, "indent")
}

func TestMerge_ParseErrorIsolatesFile(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"/org/a.json":      `{"a": 1}`,
		"/org/b.json":      `{"b": 1}`,
		"/org/c.json":      `{"c": 1}`,
		"/team/a.json":     `{"a": 2}`,
		"/team/b.json":     `{"b": `,
		"/team/c.json":     `{"c": 2}`,
		"/personal/b.json": `{"b": 3}`,
	})

	res, err := o.Merge(context.Background(), orgTeamPersonal, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 2}`, res.Files["a.json"].Content)
	assert.JSONEq(t, `{"c": 2}`, res.Files["c.json"].Content)
	assert.NotContains(t, res.Files, "b.json")

	require.Len(t, res.Failures, 1)
	f, ok := res.FailureFor("b.json")
	require.True(t, ok)
	assert.Equal(t, "team", f.Source)
	var pe *merger.ParseError
	require.ErrorAs(t, f.Err, &pe)
	assert.Equal(t, "team", pe.Source)
	assert.Equal(t, "b.json", pe.Path)
}

func TestMerge_EqualTierPreHooksCompose(t *testing.T) {
	hooks := hook.NewPipeline()
	var observed []string
	require.NoError(t, hooks.Register(hook.Hook{
		Name: "upper", Pattern: "*.txt", Phase: hook.Pre,
		Func: func(c string, _ hook.Input) (string, error) { return strings.ToUpper(c), nil },
	}))
	require.NoError(t, hooks.Register(hook.Hook{
		Name: "observe", Pattern: "*.txt", Phase: hook.Pre,
		Func: func(c string, in hook.Input) (string, error) {
			observed = append(observed, in.Source.Name+"="+c)
			return c + "!", nil
		},
	}))
	o := newTestOrchestrator(t, map[string]string{
		"/org/n.txt":  "one",
		"/team/n.txt": "two",
	}, WithHooks(hooks))

	res, err := o.Merge(context.Background(), orgTeamPersonal[:2], nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"org=ONE", "team=TWO"}, observed)
	assert.Equal(t, "ONE!\n\nTWO!", res.Files["n.txt"].Content)
}

func TestMerge_PostHookRunsOnceWithContributors(t *testing.T) {
	hooks := hook.NewPipeline()
	calls := 0
	require.NoError(t, hooks.Register(hook.Hook{
		Name: "count", Pattern: "*", Phase: hook.Post,
		Func: func(c string, in hook.Input) (string, error) {
			calls++
			assert.Nil(t, in.Source)
			return c + "|" + strings.Join(in.Contributors, ","), nil
		},
	}))
	o := newTestOrchestrator(t, map[string]string{
		"/org/n.txt":      "a",
		"/team/n.txt":     "b",
		"/personal/n.txt": "c",
	}, WithHooks(hooks))

	res, err := o.Merge(context.Background(), orgTeamPersonal, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "a\n\nb\n\nc|org,team,personal", res.Files["n.txt"].Content)
}

func TestMerge_HookErrorIsolatesFile(t *testing.T) {
	hooks := hook.NewPipeline()
	require.NoError(t, hooks.Register(hook.Hook{
		Name: "reject", Pattern: "secret.txt", Phase: hook.Pre,
		Func: func(c string, in hook.Input) (string, error) {
			if in.Source.Name == "team" {
				return "", errors.New("contains a token")
			}
			return c, nil
		},
	}))
	o := newTestOrchestrator(t, map[string]string{
		"/org/secret.txt":      "ok",
		"/team/secret.txt":     "token",
		"/personal/secret.txt": "later",
		"/team/other.txt":      "fine",
	}, WithHooks(hooks))

	res, err := o.Merge(context.Background(), orgTeamPersonal, nil)
	require.NoError(t, err)
	assert.NotContains(t, res.Files, "secret.txt")
	assert.Equal(t, "fine", res.Files["other.txt"].Content)

	f, ok := res.FailureFor("secret.txt")
	require.True(t, ok)
	var herr *hook.Error
	require.ErrorAs(t, f.Err, &herr)
	assert.Equal(t, "reject", herr.Hook)
	assert.Equal(t, "team", herr.Source)
	assert.Len(t, res.Failures, 1)
}

func TestMerge_MissingSourceSkippedAndReported(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"/org/a.txt":      "org",
		"/personal/a.txt": "personal",
	})

	res, err := o.Merge(context.Background(), orgTeamPersonal, nil)
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "team", res.Skipped[0].Source)
	assert.Equal(t, []string{"org", "personal"}, res.Files["a.txt"].Contributors)
}

func TestMerge_ExcludesBaseAndExtra(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"/org/README.md":         "readme",
		"/org/.git/config":       "git",
		"/org/keep.md":           "keep",
		"/org/drafts/wip.md":     "wip",
		"/org/node_modules/x.js": "x",
	})

	res, err := o.Merge(context.Background(), orgTeamPersonal[:1], []string{"drafts"})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.md"}, res.Paths())
}

func TestMerge_InvalidInput(t *testing.T) {
	o := New()
	_, err := o.Merge(context.Background(), []source.Entry{{Name: "a"}, {Name: "a"}}, nil)
	assert.Error(t, err)
	_, err = o.Merge(context.Background(), orgTeamPersonal, []string{"["})
	assert.Error(t, err)
}

func TestMerge_SettingsByMergerName(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"/org/l.yaml":  "items: [a, b]\n",
		"/team/l.yaml": "items: [b, c]\n",
	}, WithSettings(map[string]merger.Settings{"yaml": {"strategy": "extend"}}))

	res, err := o.Merge(context.Background(), orgTeamPersonal[:2], nil)
	require.NoError(t, err)
	assert.Equal(t, "items:\n  - a\n  - b\n  - c\n", res.Files["l.yaml"].Content)
}

type nilResolver struct{}

func (nilResolver) Resolve(string) merger.Merger { return nil }

func TestMerge_ResolutionError(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{"/org/a.txt": "a"}, WithResolver(nilResolver{}))

	res, err := o.Merge(context.Background(), orgTeamPersonal[:1], nil)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, merger.ErrNoMerger)
}

func TestMerge_CanceledReturnsPartialWithoutPostHooks(t *testing.T) {
	hooks := hook.NewPipeline()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hooks.Register(hook.Hook{
		Name: "cancel-after-team", Pattern: "*", Phase: hook.Pre,
		Func: func(c string, in hook.Input) (string, error) {
			if in.Source.Name == "team" {
				cancel()
			}
			return c, nil
		},
	}))
	require.NoError(t, hooks.Register(hook.Hook{
		Name: "post", Pattern: "*", Phase: hook.Post,
		Func: func(c string, _ hook.Input) (string, error) { return c + "[post]", nil },
	}))
	o := newTestOrchestrator(t, map[string]string{
		"/org/a.txt":      "org",
		"/team/a.txt":     "team",
		"/personal/a.txt": "personal",
	}, WithHooks(hooks))

	res, err := o.Merge(ctx, orgTeamPersonal, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.True(t, res.Aborted)
	assert.Equal(t, "org\n\nteam", res.Files["a.txt"].Content)
	assert.Equal(t, []string{"org", "team"}, res.Files["a.txt"].Contributors)
}

func TestMerge_RunsAreIndependent(t *testing.T) {
	o := newTestOrchestrator(t, map[string]string{
		"/org/a.txt":  "org",
		"/team/a.txt": "team",
	})
	first, err := o.Merge(context.Background(), orgTeamPersonal[:2], nil)
	require.NoError(t, err)
	second, err := o.Merge(context.Background(), orgTeamPersonal[:2], nil)
	require.NoError(t, err)

	assert.Equal(t, first.Files["a.txt"].Content, second.Files["a.txt"].Content)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestMerge_EmitsProgress(t *testing.T) {
	pr := NewProgressReporter()
	o := newTestOrchestrator(t, map[string]string{"/org/a.txt": "a"}, WithProgress(pr))

	_, err := o.Merge(context.Background(), orgTeamPersonal, nil)
	require.NoError(t, err)
	pr.Close()

	var statuses []ProgressStatus
	for ev := range pr.Subscribe() {
		statuses = append(statuses, ev.Status)
	}
	assert.Contains(t, statuses, ProgressWorking)
	assert.Contains(t, statuses, ProgressComplete)
	assert.Contains(t, statuses, ProgressSkipped)
}
