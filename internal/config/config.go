// Package config loads stratum.yaml: the hierarchy of sources, the output
// target, merger settings and overrides, and hooks.
//
// Values are read from the file first and then from STRATUM_* environment
// variables, which win.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dusk-indust/stratum/internal/hook"
	"github.com/dusk-indust/stratum/internal/logging"
	"github.com/dusk-indust/stratum/internal/merger"
	"github.com/dusk-indust/stratum/internal/source"
)

// FileNames are the names Load looks for, in order.
var FileNames = []string{"stratum.yaml", "stratum.yml"}

// EnvPrefix prefixes environment overrides: STRATUM_LOG_LEVEL sets
// log.level.
const EnvPrefix = "STRATUM_"

// delim separates nested keys inside koanf. Dots and slashes appear in
// file names used as map keys, so neither can be the delimiter.
const delim = "::"

// Config is the parsed stratum.yaml.
type Config struct {
	Target          string                    `koanf:"target"`
	Subdir          string                    `koanf:"subdir"`
	Hierarchy       []Level                   `koanf:"hierarchy"`
	Exclude         []string                  `koanf:"exclude"`
	Mergers         map[string]map[string]any `koanf:"mergers"`
	Files           map[string]string         `koanf:"files"`
	Extensions      map[string]string         `koanf:"extensions"`
	Hooks           []HookSpec                `koanf:"hooks"`
	Provenance      string                    `koanf:"provenance"`
	ReadConcurrency int                       `koanf:"read_concurrency"`
	Log             Log                       `koanf:"log"`

	// Dir is the directory relative paths are resolved against: the
	// directory holding the config file, or the directory passed to Load.
	Dir string `koanf:"-"`
	// Path is the config file that was loaded, if any.
	Path string `koanf:"-"`
}

// Level is one hierarchy entry, listed lowest priority first.
type Level struct {
	Name string `koanf:"name"`
	Path string `koanf:"path"`
}

// HookSpec binds a built-in hook to a pattern and phase.
type HookSpec struct {
	Name    string `koanf:"name"`
	Builtin string `koanf:"builtin"`
	Pattern string `koanf:"pattern"`
	Phase   string `koanf:"phase"`
}

// Log configures logging.
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load reads stratum.yaml or stratum.yml from dir. It returns a config
// with only Dir set (not an error) if neither exists.
func Load(dir string) (*Config, error) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}
	k := koanf.New(delim)
	if err := loadEnv(k); err != nil {
		return nil, err
	}
	cfg, err := unmarshal(k)
	if err != nil {
		return nil, err
	}
	cfg.Dir = dir
	return cfg, nil
}

// LoadFile reads the config file at path, then applies environment
// overrides.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(delim)
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	if err := loadEnv(k); err != nil {
		return nil, err
	}
	cfg, err := unmarshal(k)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Path = path
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

func loadEnv(k *koanf.Koanf) error {
	transform := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "_", delim)
	}
	if err := k.Load(env.Provider(EnvPrefix, delim, transform), nil); err != nil {
		return fmt.Errorf("config: load env: %w", err)
	}
	return nil
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &cfg, nil
}

// Validate checks the parts of the config a run depends on.
func (c *Config) Validate() error {
	if len(c.Hierarchy) == 0 {
		return fmt.Errorf("config: hierarchy is empty")
	}
	seen := make(map[string]bool, len(c.Hierarchy))
	for i, l := range c.Hierarchy {
		if l.Name == "" {
			return fmt.Errorf("config: hierarchy[%d]: name is required", i)
		}
		if l.Path == "" {
			return fmt.Errorf("config: hierarchy[%d] (%s): path is required", i, l.Name)
		}
		if seen[l.Name] {
			return fmt.Errorf("config: hierarchy: duplicate name %q", l.Name)
		}
		seen[l.Name] = true
	}
	if err := source.ValidatePatterns(c.Exclude); err != nil {
		return fmt.Errorf("config: exclude: %w", err)
	}
	byExt := make(map[string]string, len(c.Extensions))
	for _, ext := range sortedKeys(c.Extensions) {
		name := c.Extensions[ext]
		if _, err := merger.Builtin(name); err != nil {
			return fmt.Errorf("config: extensions[%s]: %w", ext, err)
		}
		norm := merger.NormalizeExt(ext)
		if prev, ok := byExt[norm]; ok && c.Extensions[prev] != name {
			return fmt.Errorf("config: extensions: %q and %q both name %s but map to %s and %s",
				prev, ext, norm, c.Extensions[prev], name)
		}
		byExt[norm] = ext
	}
	for _, f := range sortedKeys(c.Files) {
		if _, err := merger.Builtin(c.Files[f]); err != nil {
			return fmt.Errorf("config: files[%s]: %w", f, err)
		}
	}
	for i, h := range c.Hooks {
		if _, err := hook.Builtin(h.Builtin); err != nil {
			return fmt.Errorf("config: hooks[%d]: %w", i, err)
		}
		if _, err := hook.ParsePhase(h.Phase); err != nil {
			return fmt.Errorf("config: hooks[%d]: %w", i, err)
		}
	}
	return nil
}

// Entries returns the hierarchy as ranked source entries. Relative paths
// are resolved against c.Dir, "~" against the home directory, and Subdir
// is appended to every root.
func (c *Config) Entries() ([]source.Entry, error) {
	entries := make([]source.Entry, 0, len(c.Hierarchy))
	for i, l := range c.Hierarchy {
		root, err := c.resolve(l.Path)
		if err != nil {
			return nil, fmt.Errorf("config: hierarchy %s: %w", l.Name, err)
		}
		if c.Subdir != "" {
			root = filepath.Join(root, c.Subdir)
		}
		entries = append(entries, source.Entry{Name: l.Name, Rank: i, Root: root})
	}
	return source.Ordered(entries)
}

// TargetDir returns the resolved output directory.
func (c *Config) TargetDir() (string, error) {
	if c.Target == "" {
		return "", fmt.Errorf("config: target is not set")
	}
	return c.resolve(c.Target)
}

// ProvenanceDir returns the resolved provenance database directory, or ""
// when provenance is not configured.
func (c *Config) ProvenanceDir() (string, error) {
	if c.Provenance == "" {
		return "", nil
	}
	return c.resolve(c.Provenance)
}

func (c *Config) resolve(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	if !filepath.IsAbs(p) && c.Dir != "" {
		p = filepath.Join(c.Dir, p)
	}
	return filepath.Clean(p), nil
}

// Registry builds the merger registry: the built-ins plus the extension
// and file-name overrides.
func (c *Config) Registry() (*merger.Registry, error) {
	reg := merger.NewDefaultRegistry()
	for _, ext := range sortedKeys(c.Extensions) {
		m, err := merger.Builtin(c.Extensions[ext])
		if err != nil {
			return nil, fmt.Errorf("config: extensions[%s]: %w", ext, err)
		}
		reg.RegisterExtension(ext, m)
	}
	for _, f := range sortedKeys(c.Files) {
		m, err := merger.Builtin(c.Files[f])
		if err != nil {
			return nil, fmt.Errorf("config: files[%s]: %w", f, err)
		}
		reg.RegisterExact(f, m)
	}
	return reg, nil
}

// Pipeline builds the hook pipeline in the order hooks are listed.
func (c *Config) Pipeline() (*hook.Pipeline, error) {
	p := hook.NewPipeline()
	for i, spec := range c.Hooks {
		fn, err := hook.Builtin(spec.Builtin)
		if err != nil {
			return nil, fmt.Errorf("config: hooks[%d]: %w", i, err)
		}
		phase, err := hook.ParsePhase(spec.Phase)
		if err != nil {
			return nil, fmt.Errorf("config: hooks[%d]: %w", i, err)
		}
		name := spec.Name
		if name == "" {
			name = spec.Builtin
		}
		if err := p.Register(hook.Hook{Name: name, Pattern: spec.Pattern, Phase: phase, Func: fn}); err != nil {
			return nil, fmt.Errorf("config: hooks[%d]: %w", i, err)
		}
	}
	return p, nil
}

// Settings returns the per-merger settings keyed by merger name.
func (c *Config) Settings() map[string]merger.Settings {
	out := make(map[string]merger.Settings, len(c.Mergers))
	for name, s := range c.Mergers {
		out[name] = merger.Settings(s)
	}
	return out
}

// Logger builds the logger described by c.Log, writing to out.
func (c *Config) Logger(out io.Writer) (*slog.Logger, error) {
	return logging.New(logging.Config{Level: c.Log.Level, Format: c.Log.Format, Output: out})
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
