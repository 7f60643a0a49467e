package hook

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Built-in hook names.
const (
	BuiltinTrimTrailingWhitespace = "trim-trailing-whitespace"
	BuiltinEnsureFinalNewline     = "ensure-final-newline"
	BuiltinMarkdownTOC            = "markdown-toc"
	BuiltinProvenanceBanner       = "provenance-banner"
)

var builtins = map[string]Func{
	BuiltinTrimTrailingWhitespace: trimTrailingWhitespace,
	BuiltinEnsureFinalNewline:     ensureFinalNewline,
	BuiltinMarkdownTOC:            markdownTOC,
	BuiltinProvenanceBanner:       provenanceBanner,
}

// Builtin returns the function of a built-in hook.
func Builtin(name string) (Func, error) {
	fn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("hook: unknown builtin %q (known: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return fn, nil
}

// BuiltinNames returns the built-in hook names, sorted.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func trimTrailingWhitespace(content string, _ Input) (string, error) {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRightFunc(l, unicode.IsSpace)
	}
	return strings.Join(lines, "\n"), nil
}

func ensureFinalNewline(content string, _ Input) (string, error) {
	if content == "" || strings.HasSuffix(content, "\n") {
		return content, nil
	}
	return content + "\n", nil
}

const (
	tocStart = "<!-- toc -->"
	tocEnd   = "<!-- /toc -->"
)

var markdown = goldmark.New()

// markdownTOC fills the region between "<!-- toc -->" and "<!-- /toc -->"
// with a bullet list linking the document's level 2 and 3 headings.
// Documents without the start marker are returned unchanged.
func markdownTOC(content string, _ Input) (string, error) {
	start := strings.Index(content, tocStart)
	if start < 0 {
		return content, nil
	}
	bodyStart := start + len(tocStart)
	end := strings.Index(content[bodyStart:], tocEnd)
	tail := ""
	if end < 0 {
		tail = content[bodyStart:]
	} else {
		tail = content[bodyStart+end+len(tocEnd):]
	}

	src := []byte(content[:start] + tail)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var b strings.Builder
	seen := make(map[string]int)
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Level < 2 || h.Level > 3 {
			return ast.WalkSkipChildren, nil
		}
		title := headingText(h, src)
		anchor := slug(title)
		if c := seen[anchor]; c > 0 {
			seen[anchor] = c + 1
			anchor = fmt.Sprintf("%s-%d", anchor, c)
		} else {
			seen[anchor] = 1
		}
		fmt.Fprintf(&b, "%s- [%s](#%s)\n", strings.Repeat("  ", h.Level-2), title, anchor)
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return "", err
	}

	return content[:start] + tocStart + "\n" + b.String() + tocEnd + tail, nil
}

func headingText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// slug derives a GitHub-style heading anchor.
func slug(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('-')
		}
	}
	return b.String()
}

const bannerPrefix = "merged by stratum from: "

// provenanceBanner prepends a comment listing the contributing sources,
// in the comment syntax of the file's format. Formats without comments
// (JSON) are left alone. An existing banner is replaced.
func provenanceBanner(content string, in Input) (string, error) {
	if len(in.Contributors) == 0 {
		return content, nil
	}
	prefix, suffix := commentSyntax(in.Path)
	if prefix == "" {
		return content, nil
	}
	banner := prefix + bannerPrefix + strings.Join(in.Contributors, ", ") + suffix

	first, rest, found := strings.Cut(content, "\n")
	if strings.HasPrefix(first, prefix+bannerPrefix) {
		if !found {
			rest = ""
		}
		content = rest
	}
	return banner + "\n" + content, nil
}

func commentSyntax(p string) (string, string) {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".markdown", ".html", ".xml":
		return "<!-- ", " -->"
	case ".yaml", ".yml", ".toml", ".txt", ".sh", ".conf", ".ini", ".env":
		return "# ", ""
	default:
		return "", ""
	}
}
