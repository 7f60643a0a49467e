package merger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dusk-indust/stratum/internal/strategy"
)

// Codec translates between text and the value model the strategies work on:
// *strategy.Map for mappings, []any for sequences, and plain scalars.
type Codec interface {
	// Format names the text format, e.g. "json".
	Format() string

	// Decode parses text. A document without content returns
	// ErrEmptyDocument; an explicit null decodes to a nil value.
	// Failures are reported as *ParseError without Source set.
	Decode(text string) (any, error)

	// Encode renders v using settings resolved against Preferences.
	Encode(v any, settings Settings) (string, error)

	// Preferences documents the formatting settings of the codec.
	Preferences() []Preference
}

// ErrEmptyDocument is returned by a Codec for text that holds no document,
// such as only comments.
var ErrEmptyDocument = errors.New("merger: empty document")

// ParseError reports content that could not be decoded. It names the
// contributing source and, where the parser provides one, a position.
type ParseError struct {
	Format     string
	Source     string
	Path       string
	Line       int
	Column     int
	Diagnostic string
	Err        error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "merger: parse %s", e.Format)
	if e.Path != "" {
		fmt.Fprintf(&b, " %s", e.Path)
	}
	if e.Source != "" {
		fmt.Fprintf(&b, " from %q", e.Source)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&b, ", column %d", e.Column)
		}
	}
	fmt.Fprintf(&b, ": %s", e.Diagnostic)
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// settingStrategy is the setting that overrides the merge strategy of a
// structured merger.
const settingStrategy = "strategy"

// Structured merges documents of a structured format: both sides are
// decoded with a Codec, combined with a Strategy and re-encoded.
type Structured struct {
	name     string
	codec    Codec
	strategy strategy.Strategy
}

var _ Merger = (*Structured)(nil)

// NewStructured returns a structured merger. A nil strategy means
// strategy.Default.
func NewStructured(name string, codec Codec, s strategy.Strategy) *Structured {
	if s == nil {
		s = strategy.Default{}
	}
	return &Structured{name: name, codec: codec, strategy: s}
}

// NewJSON returns the JSON merger (JSON with comments accepted on input).
func NewJSON() *Structured { return NewStructured("json", JSONCodec{}, nil) }

// NewYAML returns the YAML merger.
func NewYAML() *Structured { return NewStructured("yaml", YAMLCodec{}, nil) }

// NewTOML returns the TOML merger.
func NewTOML() *Structured { return NewStructured("toml", TOMLCodec{}, nil) }

func (s *Structured) Name() string { return s.name }

// Codec returns the codec s decodes and encodes with.
func (s *Structured) Codec() Codec { return s.codec }

// Strategy returns the strategy s was built with.
func (s *Structured) Strategy() strategy.Strategy { return s.strategy }

func (s *Structured) Preferences() []Preference {
	prefs := append([]Preference(nil), s.codec.Preferences()...)
	return append(prefs, Preference{
		Name:        settingStrategy,
		Type:        PrefString,
		Default:     "",
		Description: "Merge strategy overriding the merger's own (empty keeps it).",
		Choices:     strategy.Names(),
	})
}

// Merge decodes both sides, combines them and re-encodes the result. An
// incoming document that is empty leaves base untouched. A base that is
// empty yields the incoming value.
func (s *Structured) Merge(req Request) (Result, error) {
	settings, notices := ResolveSettings(s.name, s.Preferences(), req.Settings)
	notices = withContext(notices, req.Path, req.Source)

	strat := s.strategy
	if name := settings.String(settingStrategy); name != "" {
		if named, ok := strategy.Lookup(name); ok {
			strat = named
		}
	}

	baseValue, hasBase, err := s.decode(req.Base, lastContributor(req.Contributors), req.Path)
	if err != nil {
		return Result{Notices: notices}, err
	}
	incomingValue, hasIncoming, err := s.decode(req.Incoming, req.Source, req.Path)
	if err != nil {
		return Result{Notices: notices}, err
	}

	if !hasIncoming {
		return Result{Content: req.Base, Notices: notices}, nil
	}
	merged := incomingValue
	if hasBase {
		merged = strategy.Combine(strat, baseValue, incomingValue, "")
	}

	content, err := s.codec.Encode(merged, settings)
	if err != nil {
		return Result{Notices: notices}, fmt.Errorf("merger: encode %s %s: %w", s.codec.Format(), req.Path, err)
	}
	return Result{Content: content, Notices: notices}, nil
}

// Decode parses text with the codec of s and attributes failures to
// source. An empty document decodes to nil.
func (s *Structured) Decode(text, source, path string) (any, error) {
	v, _, err := s.decode(text, source, path)
	return v, err
}

// decode reports whether text held a document at all, so an explicit null
// is told apart from no content.
func (s *Structured) decode(text, source, path string) (any, bool, error) {
	if strings.TrimSpace(text) == "" {
		return nil, false, nil
	}
	v, err := s.codec.Decode(text)
	if errors.Is(err, ErrEmptyDocument) {
		return nil, false, nil
	}
	if err != nil {
		pe, ok := err.(*ParseError)
		if !ok {
			pe = &ParseError{Format: s.codec.Format(), Diagnostic: err.Error(), Err: err}
		}
		pe.Source = source
		pe.Path = path
		return nil, false, pe
	}
	return v, true, nil
}

// lineColumn converts a byte offset in text into 1-based line and column.
func lineColumn(text string, offset int64) (int, int) {
	if offset < 0 {
		return 0, 0
	}
	if offset > int64(len(text)) {
		offset = int64(len(text))
	}
	line, col := 1, 1
	for _, r := range text[:offset] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
