package merger

import (
	"fmt"
	"strings"
)

// Separator styles for Prose.
const (
	SeparatorRule    = "horizontal_rule"
	SeparatorHeading = "heading"
	SeparatorComment = "comment"
)

// DefaultOverrideNote is the note placed before each appended section.
// "{source}" is replaced with the contributing source name.
const DefaultOverrideNote = "**Note to AI Agent:** Given all of the previous information, " +
	"the following from '{source}' overrides anything you already know."

// Prose merges Markdown documents by appending each higher-priority
// document after a visible separator and an override note.
type Prose struct{}

var _ Merger = Prose{}

// NewProse returns the Markdown merger.
func NewProse() Prose { return Prose{} }

func (Prose) Name() string { return "markdown" }

func (Prose) Preferences() []Preference {
	return []Preference{
		{
			Name:        "separator_style",
			Type:        PrefString,
			Default:     SeparatorRule,
			Description: "How appended sections are introduced.",
			Choices:     []string{SeparatorRule, SeparatorHeading, SeparatorComment},
		},
		{
			Name:        "note",
			Type:        PrefString,
			Default:     DefaultOverrideNote,
			Description: "Override note placed before each appended section; {source} names the source.",
		},
	}
}

// Merge appends the incoming document to base. Applying the same incoming
// content twice leaves base unchanged.
func (p Prose) Merge(req Request) (Result, error) {
	settings, notices := ResolveSettings(p.Name(), p.Preferences(), req.Settings)
	notices = withContext(notices, req.Path, req.Source)

	if strings.TrimSpace(req.Incoming) == "" {
		return Result{Content: req.Base, Notices: notices}, nil
	}
	if strings.TrimSpace(req.Base) == "" {
		return Result{Content: req.Incoming, Notices: notices}, nil
	}

	var b strings.Builder
	switch settings.String("separator_style") {
	case SeparatorHeading:
		fmt.Fprintf(&b, "\n\n## Configuration from: %s\n\n", req.Source)
	case SeparatorComment:
		fmt.Fprintf(&b, "\n\n<!-- Configuration from: %s -->\n\n", req.Source)
	default:
		b.WriteString("\n\n---\n\n")
	}
	if note := settings.String("note"); note != "" {
		b.WriteString(strings.ReplaceAll(note, "{source}", req.Source))
		b.WriteString("\n\n---\n\n")
	}
	b.WriteString(req.Incoming)
	section := b.String()

	if strings.HasSuffix(req.Base, section) {
		return Result{Content: req.Base, Notices: notices}, nil
	}
	return Result{Content: strings.TrimRight(req.Base, "\n") + section, Notices: notices}, nil
}
