// Package merger implements the per-format mergers that fold one source's
// file content into the content accumulated from lower-priority sources,
// and the registry that picks a merger for a given file.
package merger

import (
	"errors"
	"fmt"
)

// ErrNoMerger is returned when no merger could be resolved for a file. A
// registry always has a default, so this only surfaces from a broken
// custom resolver.
var ErrNoMerger = errors.New("merger: no merger resolved")

// Merger folds incoming content into base content.
type Merger interface {
	// Name identifies the merger. Settings are keyed by this name.
	Name() string

	// Preferences documents the settings the merger understands.
	Preferences() []Preference

	// Merge combines req.Base (content accumulated so far) with
	// req.Incoming (content from req.Source).
	Merge(req Request) (Result, error)
}

// Request carries everything a merger needs for one fold step.
type Request struct {
	Path         string   // output path, slash-separated
	Base         string   // content accumulated so far
	Incoming     string   // content from Source
	Source       string   // source contributing Incoming
	Contributors []string // sources that produced Base, lowest priority first
	Settings     Settings
}

// Result is the outcome of a fold step.
type Result struct {
	Content string
	Notices []Notice
}

// Level grades a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notice is a non-fatal message produced while merging. Notices are
// returned to the caller; mergers never print.
type Notice struct {
	Level   Level  `json:"level"`
	Merger  string `json:"merger"`
	Path    string `json:"path,omitempty"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message"`
}

func (n Notice) String() string {
	if n.Path == "" {
		return fmt.Sprintf("%s: %s: %s", n.Level, n.Merger, n.Message)
	}
	return fmt.Sprintf("%s: %s: %s: %s", n.Level, n.Merger, n.Path, n.Message)
}

// lastContributor returns the most recent source in contributors, or "".
func lastContributor(contributors []string) string {
	if len(contributors) == 0 {
		return ""
	}
	return contributors[len(contributors)-1]
}
