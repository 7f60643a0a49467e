// Package strategy holds the combine rules used by structured-document
// mergers. A Strategy decides how a higher-priority value folds into a
// lower-priority one for each of the three value kinds a decoded document
// can contain: mappings, sequences and scalars.
package strategy

import (
	"fmt"
	"reflect"
	"sort"
)

// Strategy combines a lower-priority base value with a higher-priority
// incoming value. Implementations must be pure and deterministic.
type Strategy interface {
	// MergeMapping combines two mappings.
	MergeMapping(base, incoming *Map, path string) *Map

	// MergeSequence combines two sequences.
	MergeSequence(base, incoming []any, path string) []any

	// MergeScalar combines two scalar values (strings, numbers, booleans,
	// nulls, timestamps).
	MergeScalar(base, incoming any, path string) any
}

// Names of the built-in strategies.
const (
	NameDefault = "default"
	NameExtend  = "extend"
	NameReplace = "replace"
)

// Compile-time checks.
var (
	_ Strategy = Default{}
	_ Strategy = Extend{}
	_ Strategy = Replace{}
)

// Combine dispatches base and incoming to the rule of s matching their
// kind. When the kinds differ the incoming value replaces base without any
// coercion.
func Combine(s Strategy, base, incoming any, path string) any {
	switch in := incoming.(type) {
	case *Map:
		if b, ok := base.(*Map); ok {
			return s.MergeMapping(b, in, path)
		}
		return incoming
	case []any:
		if b, ok := base.([]any); ok {
			return s.MergeSequence(b, in, path)
		}
		return incoming
	default:
		if isComposite(base) {
			return incoming
		}
		return s.MergeScalar(base, incoming, path)
	}
}

// DeepMerge unions the keys of base and incoming. Keys present on both
// sides are combined through Combine with s, so nested mappings recurse and
// sequences follow the sequence rule of s. Neither input is modified.
func DeepMerge(s Strategy, base, incoming *Map, path string) *Map {
	merged := base.Clone()
	for _, key := range incoming.Keys() {
		value, _ := incoming.Get(key)
		existing, ok := merged.Get(key)
		if !ok {
			merged.Set(key, value)
			continue
		}
		merged.Set(key, Combine(s, existing, value, joinPath(path, key)))
	}
	return merged
}

// Default deep-merges mappings and replaces sequences and scalars.
type Default struct{}

func (Default) MergeMapping(base, incoming *Map, path string) *Map {
	return DeepMerge(Default{}, base, incoming, path)
}

func (Default) MergeSequence(_, incoming []any, _ string) []any {
	return incoming
}

func (Default) MergeScalar(_, incoming any, _ string) any {
	return incoming
}

// Extend deep-merges mappings and concatenates sequences: base elements
// keep their order and incoming elements not already present are appended.
type Extend struct{}

func (Extend) MergeMapping(base, incoming *Map, path string) *Map {
	return DeepMerge(Extend{}, base, incoming, path)
}

func (Extend) MergeSequence(base, incoming []any, _ string) []any {
	out := make([]any, len(base), len(base)+len(incoming))
	copy(out, base)
	for _, item := range incoming {
		if !containsValue(out, item) {
			out = append(out, item)
		}
	}
	return out
}

func (Extend) MergeScalar(_, incoming any, _ string) any {
	return incoming
}

// Replace never recurses: the incoming value always wins.
type Replace struct{}

func (Replace) MergeMapping(_, incoming *Map, _ string) *Map {
	return incoming
}

func (Replace) MergeSequence(_, incoming []any, _ string) []any {
	return incoming
}

func (Replace) MergeScalar(_, incoming any, _ string) any {
	return incoming
}

var builtins = map[string]Strategy{
	NameDefault: Default{},
	NameExtend:  Extend{},
	NameReplace: Replace{},
}

// Lookup returns the built-in strategy registered under name.
func Lookup(name string) (Strategy, bool) {
	s, ok := builtins[name]
	return s, ok
}

// Names returns the built-in strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isComposite(v any) bool {
	switch v.(type) {
	case *Map, []any:
		return true
	}
	return false
}

func containsValue(list []any, v any) bool {
	for _, e := range list {
		if equalValues(e, v) {
			return true
		}
	}
	return false
}

// equalValues compares decoded values. *Map values are compared through
// their plain form so that key order does not affect equality.
func equalValues(a, b any) bool {
	return reflect.DeepEqual(Plain(a), Plain(b))
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return fmt.Sprintf("%s.%s", path, key)
}
