package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapOf builds a *Map from alternating key/value arguments.
func mapOf(kv ...any) *Map {
	m := NewMap()
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i].(string), kv[i+1])
	}
	return m
}

func TestDefault_ScalarConflict_HighestWins(t *testing.T) {
	var got any = mapOf("a", 1)
	got = Combine(Default{}, got, mapOf("a", 2), "")
	got = Combine(Default{}, got, mapOf("a", 3), "")

	m, ok := got.(*Map)
	require.True(t, ok)
	v, _ := m.Get("a")
	assert.Equal(t, 3, v)
}

func TestDefault_NestedKeySurvives(t *testing.T) {
	base := mapOf("server", mapOf("host", "org.example", "port", 80))
	incoming := mapOf("server", mapOf("port", 8080))

	got := Default{}.MergeMapping(base, incoming, "")

	server, _ := got.Get("server")
	sm := server.(*Map)
	host, ok := sm.Get("host")
	require.True(t, ok, "lower-priority nested key should survive")
	assert.Equal(t, "org.example", host)
	port, _ := sm.Get("port")
	assert.Equal(t, 8080, port)
}

func TestSequences_DefaultReplaces_ExtendUnions(t *testing.T) {
	base := []any{"x", "y"}
	incoming := []any{"y", "z"}

	assert.Equal(t, []any{"y", "z"}, Combine(Default{}, base, incoming, ""))
	assert.Equal(t, []any{"x", "y", "z"}, Combine(Extend{}, base, incoming, ""))
}

func TestExtend_NestedSequencesUseExtendRule(t *testing.T) {
	base := mapOf("permissions", mapOf("allow", []any{"Bash(ls)"}))
	incoming := mapOf("permissions", mapOf("allow", []any{"Bash(ls)", "Read"}))

	got := Extend{}.MergeMapping(base, incoming, "")

	perms, _ := got.Get("permissions")
	allow, _ := perms.(*Map).Get("allow")
	assert.Equal(t, []any{"Bash(ls)", "Read"}, allow)
}

func TestExtend_DeduplicatesMappingElements(t *testing.T) {
	base := []any{mapOf("name", "a", "cmd", "x")}
	incoming := []any{mapOf("cmd", "x", "name", "a"), mapOf("name", "b")}

	got := Extend{}.MergeSequence(base, incoming, "")
	require.Len(t, got, 2, "equal mappings with different key order are the same element")
}

func TestReplace_DropsBaseMapping(t *testing.T) {
	base := mapOf("a", 1, "b", mapOf("c", 2))
	incoming := mapOf("b", mapOf("d", 3))

	got := Replace{}.MergeMapping(base, incoming, "")

	assert.Equal(t, []string{"b"}, got.Keys())
	_, ok := got.Get("a")
	assert.False(t, ok)
}

func TestCombine_KindMismatch_IncomingReplaces(t *testing.T) {
	tests := []struct {
		name     string
		base     any
		incoming any
	}{
		{"mapping over scalar", "flat", mapOf("k", "v")},
		{"scalar over mapping", mapOf("k", "v"), "flat"},
		{"sequence over mapping", mapOf("k", "v"), []any{1, 2}},
		{"mapping over sequence", []any{1}, mapOf("k", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range []Strategy{Default{}, Extend{}, Replace{}} {
				assert.Equal(t, tt.incoming, Combine(s, tt.base, tt.incoming, ""))
			}
		})
	}
}

func TestDeepMerge_PreservesBaseOrderAndAppendsNewKeys(t *testing.T) {
	base := mapOf("z", 1, "a", 2)
	incoming := mapOf("m", 3, "z", 4)

	got := DeepMerge(Default{}, base, incoming, "")

	assert.Equal(t, []string{"z", "a", "m"}, got.Keys())
	assert.Equal(t, []string{"z", "a"}, base.Keys(), "base must not be mutated")
}

// pathScalars is a custom strategy used to check that DeepMerge recurses
// through the strategy it is given.
type pathScalars struct{ Default }

func (pathScalars) MergeMapping(base, incoming *Map, path string) *Map {
	return DeepMerge(pathScalars{}, base, incoming, path)
}

func (pathScalars) MergeScalar(base, incoming any, path string) any {
	return path
}

func TestDeepMerge_CustomStrategyReceivesPaths(t *testing.T) {
	base := mapOf("outer", mapOf("inner", "x"))
	incoming := mapOf("outer", mapOf("inner", "y"))

	got := pathScalars{}.MergeMapping(base, incoming, "")

	outer, _ := got.Get("outer")
	inner, _ := outer.(*Map).Get("inner")
	assert.Equal(t, "outer.inner", inner)
}

func TestLookup(t *testing.T) {
	for _, name := range []string{NameDefault, NameExtend, NameReplace} {
		s, ok := Lookup(name)
		require.True(t, ok, name)
		assert.NotNil(t, s)
	}
	_, ok := Lookup("union")
	assert.False(t, ok)
	assert.Equal(t, []string{"default", "extend", "replace"}, Names())
}

func TestMap_DeleteAndPlain(t *testing.T) {
	m := mapOf("a", 1, "b", mapOf("c", []any{mapOf("d", 2)}), "e", 3)
	m.Delete("a")
	m.Delete("missing")

	assert.Equal(t, []string{"b", "e"}, m.Keys())
	assert.Equal(t, map[string]any{
		"b": map[string]any{"c": []any{map[string]any{"d": 2}}},
		"e": 3,
	}, m.Plain())
}
