// Package hook runs pattern-matched content transforms before a source's
// file is folded (pre) and once on each merged file (post).
package hook

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/dusk-indust/stratum/internal/source"
)

// Phase is the point in a run at which a hook fires.
type Phase string

const (
	// Pre hooks run on each source's raw content before it is folded.
	Pre Phase = "pre"
	// Post hooks run once on each merged file after every level.
	Post Phase = "post"
)

// ParsePhase converts a configuration string to a Phase.
func ParsePhase(s string) (Phase, error) {
	switch Phase(strings.ToLower(strings.TrimSpace(s))) {
	case Pre:
		return Pre, nil
	case Post:
		return Post, nil
	default:
		return "", fmt.Errorf("hook: unknown phase %q (want pre or post)", s)
	}
}

// Input is the context handed to a hook.
type Input struct {
	Phase        Phase
	Path         string        // output path, slash-separated
	Source       *source.Entry // contributing source; nil for post hooks
	Contributors []string      // contributing sources; post hooks only
}

// Func transforms content. Returning an error fails the file.
type Func func(content string, in Input) (string, error)

// Hook is a named transform bound to a file pattern and a phase.
type Hook struct {
	Name    string
	Pattern string
	Phase   Phase
	Func    Func
}

// Error reports a failing hook. It is scoped to one output file.
type Error struct {
	Hook   string
	Phase  Phase
	Source string // empty for post hooks
	Path   string
	Err    error
}

func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("hook %q (%s) failed on %s from %q: %v", e.Hook, e.Phase, e.Path, e.Source, e.Err)
	}
	return fmt.Sprintf("hook %q (%s) failed on %s: %v", e.Hook, e.Phase, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Specificity tiers, highest wins.
const (
	tierNone      = 0
	tierUniversal = 1
	tierGlob      = 2
	tierExact     = 3
)

// Pipeline holds registered hooks. Only the hooks of the most specific
// tier matching a file run, all of them, in registration order, each
// consuming the previous one's output.
type Pipeline struct {
	mu    sync.RWMutex
	hooks []Hook
}

// NewPipeline returns an empty Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Register adds h after every hook registered so far.
func (p *Pipeline) Register(h Hook) error {
	if h.Name == "" {
		return fmt.Errorf("hook: name is required")
	}
	if h.Func == nil {
		return fmt.Errorf("hook: %q has no function", h.Name)
	}
	if h.Phase != Pre && h.Phase != Post {
		return fmt.Errorf("hook: %q has invalid phase %q", h.Name, h.Phase)
	}
	if h.Pattern == "" {
		h.Pattern = "*"
	}
	if _, err := path.Match(h.Pattern, ""); err != nil {
		return fmt.Errorf("hook: %q has invalid pattern %q: %w", h.Name, h.Pattern, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, h)
	return nil
}

// Len returns the number of registered hooks.
func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.hooks)
}

// Hooks returns a copy of the registered hooks in registration order.
func (p *Pipeline) Hooks() []Hook {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Hook(nil), p.hooks...)
}

// Matching returns the hooks of phase that would run on relPath.
func (p *Pipeline) Matching(phase Phase, relPath string) []Hook {
	p.mu.RLock()
	defer p.mu.RUnlock()

	best := tierNone
	var selected []Hook
	for _, h := range p.hooks {
		if h.Phase != phase {
			continue
		}
		tier := specificity(h.Pattern, relPath)
		switch {
		case tier == tierNone || tier < best:
			continue
		case tier > best:
			best = tier
			selected = selected[:0]
		}
		selected = append(selected, h)
	}
	return selected
}

// RunPre runs the pre hooks matching relPath on content from entry.
func (p *Pipeline) RunPre(content string, entry source.Entry, relPath string) (string, error) {
	return p.run(content, Input{Phase: Pre, Path: relPath, Source: &entry})
}

// RunPost runs the post hooks matching relPath on merged content.
func (p *Pipeline) RunPost(content, relPath string, contributors []string) (string, error) {
	return p.run(content, Input{Phase: Post, Path: relPath, Contributors: contributors})
}

func (p *Pipeline) run(content string, in Input) (string, error) {
	for _, h := range p.Matching(in.Phase, in.Path) {
		out, err := call(h, content, in)
		if err != nil {
			herr := &Error{Hook: h.Name, Phase: in.Phase, Path: in.Path, Err: err}
			if in.Source != nil {
				herr.Source = in.Source.Name
			}
			return "", herr
		}
		content = out
	}
	return content, nil
}

func call(h Hook, content string, in Input) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Func(content, in)
}

// specificity scores how precisely pattern names relPath. Patterns without
// a slash are matched against the base name, others against the full path.
func specificity(pattern, relPath string) int {
	if pattern == "*" || pattern == "**" {
		return tierUniversal
	}
	target := relPath
	if !strings.Contains(pattern, "/") {
		target = path.Base(relPath)
	}
	if !strings.ContainsAny(pattern, `*?[\`) {
		if pattern == target {
			return tierExact
		}
		return tierNone
	}
	if ok, _ := path.Match(pattern, target); ok {
		return tierGlob
	}
	return tierNone
}
