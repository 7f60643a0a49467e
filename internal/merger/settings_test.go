package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSettings_DefaultsApplied(t *testing.T) {
	got, notices := ResolveSettings("json", JSONCodec{}.Preferences(), nil)
	assert.Empty(t, notices)
	assert.Equal(t, 2, got.Int("indent"))
	assert.False(t, got.Bool("sort_keys"))
}

func TestResolveSettings_AcceptsNumericKinds(t *testing.T) {
	for _, raw := range []any{4, int64(4), float64(4)} {
		got, notices := ResolveSettings("json", JSONCodec{}.Preferences(), Settings{"indent": raw})
		assert.Empty(t, notices, "value %#v", raw)
		assert.Equal(t, 4, got.Int("indent"))
	}
}

func TestResolveSettings_InvalidValuesWarnAndFallBack(t *testing.T) {
	tests := []struct {
		name  string
		prefs []Preference
		raw   Settings
		key   string
		want  any
		msg   string
	}{
		{"below min", JSONCodec{}.Preferences(), Settings{"indent": -1}, "indent", 2, "below minimum"},
		{"above max", JSONCodec{}.Preferences(), Settings{"indent": 99}, "indent", 2, "above maximum"},
		{"fractional", JSONCodec{}.Preferences(), Settings{"indent": 2.5}, "indent", 2, "expected int"},
		{"wrong type", JSONCodec{}.Preferences(), Settings{"sort_keys": "yes"}, "sort_keys", false, "expected bool"},
		{"bad choice", Prose{}.Preferences(), Settings{"separator_style": "stars"}, "separator_style", SeparatorRule, "not one of"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, notices := ResolveSettings("m", tt.prefs, tt.raw)
			require.Len(t, notices, 1)
			assert.Equal(t, LevelWarning, notices[0].Level)
			assert.Contains(t, notices[0].Message, tt.msg)
			assert.Equal(t, tt.want, got[tt.key])
		})
	}
}

func TestResolveSettings_UnknownKeysWarnSorted(t *testing.T) {
	_, notices := ResolveSettings("text", Text{}.Preferences(), Settings{"zeta": 1, "alpha": true})
	require.Len(t, notices, 2)
	assert.Contains(t, notices[0].Message, `"alpha"`)
	assert.Contains(t, notices[1].Message, `"zeta"`)
	assert.Contains(t, notices[0].Message, "source_markers")
}

func TestNotice_String(t *testing.T) {
	n := Notice{Level: LevelWarning, Merger: "copy", Path: "a.bin", Message: "replaced"}
	assert.Equal(t, "warning: copy: a.bin: replaced", n.String())
	n.Path = ""
	assert.Equal(t, "warning: copy: replaced", n.String())
}
