package merger

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Settings is the free-form settings map handed to a merger. Values come
// from configuration files, so numbers may arrive as int, int64 or float64.
type Settings map[string]any

// PrefType is the value type of a Preference.
type PrefType string

const (
	PrefInt    PrefType = "int"
	PrefString PrefType = "string"
	PrefBool   PrefType = "bool"
)

// Preference describes one setting a merger accepts.
type Preference struct {
	Name        string   `json:"name"`
	Type        PrefType `json:"type"`
	Default     any      `json:"default"`
	Description string   `json:"description"`
	Min         *int     `json:"min,omitempty"`
	Max         *int     `json:"max,omitempty"`
	Choices     []string `json:"choices,omitempty"`
}

func intPtr(v int) *int { return &v }

// ResolveSettings validates raw against prefs and returns a complete
// settings map with every preference set. Unknown keys, values of the wrong
// type, out-of-range numbers and invalid choices produce warning notices and
// fall back to the preference default. It never fails.
func ResolveSettings(merger string, prefs []Preference, raw Settings) (Settings, []Notice) {
	var notices []Notice
	warn := func(format string, args ...any) {
		notices = append(notices, Notice{
			Level:   LevelWarning,
			Merger:  merger,
			Message: fmt.Sprintf(format, args...),
		})
	}

	known := make(map[string]Preference, len(prefs))
	for _, p := range prefs {
		known[p.Name] = p
	}

	unknown := make([]string, 0)
	for key := range raw {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		warn("ignoring unknown setting %q (valid settings: %s)", key, validNames(prefs))
	}

	out := make(Settings, len(prefs))
	for _, p := range prefs {
		out[p.Name] = p.Default
		value, ok := raw[p.Name]
		if !ok {
			continue
		}
		v, err := coerce(p, value)
		if err != nil {
			warn("setting %q: %v; using default %v", p.Name, err, p.Default)
			continue
		}
		out[p.Name] = v
	}
	return out, notices
}

func coerce(p Preference, value any) (any, error) {
	switch p.Type {
	case PrefInt:
		n, ok := toInt(value)
		if !ok {
			return nil, fmt.Errorf("expected int, got %T", value)
		}
		if p.Min != nil && n < *p.Min {
			return nil, fmt.Errorf("%d is below minimum %d", n, *p.Min)
		}
		if p.Max != nil && n > *p.Max {
			return nil, fmt.Errorf("%d is above maximum %d", n, *p.Max)
		}
		return n, nil
	case PrefBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", value)
		}
		return b, nil
	case PrefString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		if len(p.Choices) > 0 && !contains(p.Choices, s) {
			return nil, fmt.Errorf("%q is not one of %s", s, strings.Join(p.Choices, ", "))
		}
		return s, nil
	default:
		return value, nil
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func validNames(prefs []Preference) string {
	if len(prefs) == 0 {
		return "none"
	}
	names := make([]string, len(prefs))
	for i, p := range prefs {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

// Int returns the int setting key, or 0.
func (s Settings) Int(key string) int {
	n, _ := toInt(s[key])
	return n
}

// Bool returns the bool setting key, or false.
func (s Settings) Bool(key string) bool {
	b, _ := s[key].(bool)
	return b
}

// String returns the string setting key, or "".
func (s Settings) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// withContext stamps path and source on notices produced before they were
// known.
func withContext(notices []Notice, path, source string) []Notice {
	for i := range notices {
		if notices[i].Path == "" {
			notices[i].Path = path
		}
		if notices[i].Source == "" {
			notices[i].Source = source
		}
	}
	return notices
}
