package merger

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/dusk-indust/stratum/internal/strategy"
)

// TOMLCodec reads and writes TOML. TOML decoding does not report key
// order, so tables are written with keys sorted.
type TOMLCodec struct{}

var _ Codec = TOMLCodec{}

func (TOMLCodec) Format() string { return "toml" }

func (TOMLCodec) Preferences() []Preference {
	return []Preference{{
		Name:        "indent_tables",
		Type:        PrefBool,
		Default:     false,
		Description: "Indent the contents of nested tables.",
	}}
}

func (TOMLCodec) Decode(text string) (any, error) {
	var doc map[string]any
	if err := toml.Unmarshal([]byte(text), &doc); err != nil {
		pe := &ParseError{Format: "toml", Diagnostic: err.Error(), Err: err}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			pe.Line, pe.Column = derr.Position()
		}
		return nil, pe
	}
	if len(doc) == 0 {
		return nil, ErrEmptyDocument
	}
	return strategy.FromPlain(doc, sort.Strings), nil
}

func (TOMLCodec) Encode(v any, settings Settings) (string, error) {
	table, ok := strategy.Plain(v).(map[string]any)
	if !ok {
		return "", fmt.Errorf("toml: top-level value must be a table, got %T", v)
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(settings.Bool("indent_tables"))
	if err := enc.Encode(table); err != nil {
		return "", err
	}
	return buf.String(), nil
}
