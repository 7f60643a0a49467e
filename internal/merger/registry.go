package merger

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// MatchKind records which rule resolved a merger.
type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchExtension MatchKind = "extension"
	MatchDefault   MatchKind = "default"
)

// Registry maps file names and extensions to mergers. Resolution order is
// exact name, then the longest registered extension, then the default.
// Registration is meant to happen before a run; the registry is safe for
// concurrent use either way.
type Registry struct {
	mu    sync.RWMutex
	exact map[string]Merger
	ext   map[string]Merger
	def   Merger
}

// NewRegistry creates an empty Registry. Its default is Copy until
// SetDefault says otherwise.
func NewRegistry() *Registry {
	return &Registry{
		exact: make(map[string]Merger),
		ext:   make(map[string]Merger),
	}
}

// NewDefaultRegistry creates a Registry pre-registered with the built-in
// format mergers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterExtension(".json", NewJSON())
	r.RegisterExtension(".yaml", NewYAML())
	r.RegisterExtension(".yml", NewYAML())
	r.RegisterExtension(".toml", NewTOML())
	r.RegisterExtension(".md", NewProse())
	r.RegisterExtension(".markdown", NewProse())
	r.RegisterExtension(".txt", NewText())
	return r
}

// RegisterExact binds m to a file name. The name matches either the full
// slash-separated output path or its base name. Re-registering replaces.
func (r *Registry) RegisterExact(name string, m Merger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exact[path.Clean(name)] = m
}

// RegisterExtension binds m to an extension such as ".json" or
// "tar.gz". Matching is case-insensitive. Re-registering replaces.
func (r *Registry) RegisterExtension(ext string, m Merger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ext[NormalizeExt(ext)] = m
}

// SetDefault replaces the fallback merger. A nil m restores Copy.
func (r *Registry) SetDefault(m Merger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.def = m
}

// Resolve returns the merger for a slash-separated output path. It always
// returns a merger.
func (r *Registry) Resolve(p string) Merger {
	m, _ := r.ResolveKind(p)
	return m
}

// ResolveKind is Resolve that also reports which rule matched.
func (r *Registry) ResolveKind(p string) (Merger, MatchKind) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p = path.Clean(p)
	if m, ok := r.exact[p]; ok {
		return m, MatchExact
	}
	base := path.Base(p)
	if m, ok := r.exact[base]; ok {
		return m, MatchExact
	}

	lower := strings.ToLower(base)
	best := ""
	for ext := range r.ext {
		if len(ext) > len(best) && len(lower) > len(ext) && strings.HasSuffix(lower, ext) {
			best = ext
		}
	}
	if best != "" {
		return r.ext[best], MatchExtension
	}

	if r.def != nil {
		return r.def, MatchDefault
	}
	return Copy{}, MatchDefault
}

// Binding is one registration, as reported by Describe.
type Binding struct {
	Kind   MatchKind `json:"kind"`
	Key    string    `json:"key"`
	Merger string    `json:"merger"`
}

// Describe lists the registrations, exact names first, each group sorted.
func (r *Registry) Describe() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Binding
	for _, k := range sortedKeys(r.exact) {
		out = append(out, Binding{Kind: MatchExact, Key: k, Merger: r.exact[k].Name()})
	}
	for _, k := range sortedKeys(r.ext) {
		out = append(out, Binding{Kind: MatchExtension, Key: k, Merger: r.ext[k].Name()})
	}
	def := r.def
	if def == nil {
		def = Copy{}
	}
	return append(out, Binding{Kind: MatchDefault, Key: "*", Merger: def.Name()})
}

// NormalizeExt lowercases ext and gives it exactly one leading dot, the
// form extensions are registered under.
func NormalizeExt(ext string) string {
	return "." + strings.TrimLeft(strings.ToLower(ext), ".")
}

func sortedKeys(m map[string]Merger) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// builtins constructs the built-in mergers by name.
var builtins = map[string]func() Merger{
	"json":     func() Merger { return NewJSON() },
	"yaml":     func() Merger { return NewYAML() },
	"toml":     func() Merger { return NewTOML() },
	"markdown": func() Merger { return NewProse() },
	"text":     func() Merger { return NewText() },
	"copy":     func() Merger { return NewCopy() },
}

// Builtin returns a new built-in merger by name.
func Builtin(name string) (Merger, error) {
	factory, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("merger: unknown merger %q (known: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return factory(), nil
}

// BuiltinNames returns the names of the built-in mergers, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
