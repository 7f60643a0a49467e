package strategy

// Map is an insertion-ordered mapping from string keys to decoded values.
// Codecs produce *Map for every mapping node so that merged output keeps
// the key order of the lowest-priority document, with new keys appended in
// the order they were first seen.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order. The slice is a copy.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key. An existing key keeps its position.
func (m *Map) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key if present.
func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Clone returns a shallow copy: the key order and top-level values are
// copied, nested values are shared.
func (m *Map) Clone() *Map {
	out := &Map{
		keys:   make([]string, len(m.keys)),
		values: make(map[string]any, len(m.values)),
	}
	copy(out.keys, m.keys)
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// Plain converts m and every nested *Map into map[string]any, for
// encoders that do not understand ordered mappings.
func (m *Map) Plain() map[string]any {
	out := make(map[string]any, len(m.keys))
	for _, k := range m.keys {
		out[k] = Plain(m.values[k])
	}
	return out
}

// Plain converts any *Map found in v (recursively, including inside
// sequences) into map[string]any. Other values are returned unchanged.
func Plain(v any) any {
	switch t := v.(type) {
	case *Map:
		return t.Plain()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Plain(e)
		}
		return out
	default:
		return v
	}
}

// FromPlain converts map[string]any values (recursively) into *Map with
// keys in the order produced by order. A nil order keeps Go map iteration
// order, which is only acceptable when the caller sorts afterwards.
func FromPlain(v any, order func(keys []string)) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		if order != nil {
			order(keys)
		}
		m := NewMap()
		for _, k := range keys {
			m.Set(k, FromPlain(t[k], order))
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = FromPlain(e, order)
		}
		return out
	default:
		return v
	}
}
