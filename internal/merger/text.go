package merger

import (
	"fmt"
	"strings"
)

// Text merges plain text by appending the incoming text after a blank
// line, optionally preceded by a marker naming the source.
type Text struct{}

var _ Merger = Text{}

// NewText returns the plain-text merger.
func NewText() Text { return Text{} }

func (Text) Name() string { return "text" }

func (Text) Preferences() []Preference {
	return []Preference{{
		Name:        "source_markers",
		Type:        PrefBool,
		Default:     false,
		Description: "Precede each appended block with a '# --- From: <source> ---' line.",
	}}
}

// Merge appends incoming to base. Every contribution is appended, even
// when base already ends with the same text.
func (t Text) Merge(req Request) (Result, error) {
	settings, notices := ResolveSettings(t.Name(), t.Preferences(), req.Settings)
	notices = withContext(notices, req.Path, req.Source)

	if strings.TrimSpace(req.Incoming) == "" {
		return Result{Content: req.Base, Notices: notices}, nil
	}
	if strings.TrimSpace(req.Base) == "" {
		return Result{Content: req.Incoming, Notices: notices}, nil
	}

	section := "\n\n" + req.Incoming
	if settings.Bool("source_markers") {
		section = fmt.Sprintf("\n\n# --- From: %s ---\n\n%s", req.Source, req.Incoming)
	}
	return Result{Content: strings.TrimRight(req.Base, "\n") + section, Notices: notices}, nil
}
