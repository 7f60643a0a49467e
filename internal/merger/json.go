package merger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/dusk-indust/stratum/internal/strategy"
)

// JSONCodec reads JSON (comments and trailing commas allowed) into ordered
// mappings and writes it back with configurable indentation.
type JSONCodec struct{}

var _ Codec = JSONCodec{}

func (JSONCodec) Format() string { return "json" }

func (JSONCodec) Preferences() []Preference {
	return []Preference{
		{
			Name:        "indent",
			Type:        PrefInt,
			Default:     2,
			Description: "Spaces per indentation level.",
			Min:         intPtr(0),
			Max:         intPtr(8),
		},
		{
			Name:        "sort_keys",
			Type:        PrefBool,
			Default:     false,
			Description: "Sort object keys alphabetically instead of keeping source order.",
		},
	}
}

// Decode parses text, keeping object keys in document order. Numbers are
// kept as json.Number so integers and floats round-trip unchanged.
func (JSONCodec) Decode(text string) (any, error) {
	// jsonc blanks comments in place, so offsets still match text.
	stripped := jsonc.ToJSON([]byte(text))
	if len(bytes.TrimSpace(stripped)) == 0 {
		return nil, ErrEmptyDocument
	}

	dec := json.NewDecoder(bytes.NewReader(stripped))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err == nil {
		if _, trailing := dec.Token(); trailing != io.EOF {
			err = errors.New("unexpected data after top-level value")
		}
	}
	if err != nil {
		offset := dec.InputOffset()
		var syntax *json.SyntaxError
		if errors.As(err, &syntax) {
			offset = syntax.Offset
		}
		line, col := lineColumn(text, offset)
		return nil, &ParseError{Format: "json", Line: line, Column: col, Diagnostic: err.Error(), Err: err}
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		m := strategy.NewMap()
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, fmt.Errorf("object key must be a string, got %v", kt)
			}
			value, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			m.Set(key, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		list := make([]any, 0)
		for dec.More() {
			value, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected %q", delim)
	}
}

// Encode renders v one element per line. The output ends with a newline.
func (JSONCodec) Encode(v any, settings Settings) (string, error) {
	w := jsonWriter{
		indent:   strings.Repeat(" ", settings.Int("indent")),
		sortKeys: settings.Bool("sort_keys"),
	}
	if err := w.write(v, 0); err != nil {
		return "", err
	}
	w.buf.WriteByte('\n')
	return w.buf.String(), nil
}

type jsonWriter struct {
	buf      bytes.Buffer
	indent   string
	sortKeys bool
}

func (w *jsonWriter) newline(depth int) {
	w.buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		w.buf.WriteString(w.indent)
	}
}

func (w *jsonWriter) write(v any, depth int) error {
	switch t := v.(type) {
	case *strategy.Map:
		keys := t.Keys()
		if len(keys) == 0 {
			w.buf.WriteString("{}")
			return nil
		}
		if w.sortKeys {
			sort.Strings(keys)
		}
		w.buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.newline(depth + 1)
			if err := w.scalar(k); err != nil {
				return err
			}
			w.buf.WriteString(": ")
			value, _ := t.Get(k)
			if err := w.write(value, depth+1); err != nil {
				return err
			}
		}
		w.newline(depth)
		w.buf.WriteByte('}')
	case []any:
		if len(t) == 0 {
			w.buf.WriteString("[]")
			return nil
		}
		w.buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			w.newline(depth + 1)
			if err := w.write(e, depth+1); err != nil {
				return err
			}
		}
		w.newline(depth)
		w.buf.WriteByte(']')
	case map[string]any:
		return w.write(strategy.FromPlain(t, sort.Strings), depth)
	default:
		return w.scalar(t)
	}
	return nil
}

func (w *jsonWriter) scalar(v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	w.buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
