package merger

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/stratum/internal/strategy"
)

// YAMLCodec reads YAML into ordered mappings, resolving anchors, aliases
// and merge keys, and writes block-style YAML. Comments are not preserved.
type YAMLCodec struct{}

var _ Codec = YAMLCodec{}

func (YAMLCodec) Format() string { return "yaml" }

func (YAMLCodec) Preferences() []Preference {
	return []Preference{{
		Name:        "indent",
		Type:        PrefInt,
		Default:     2,
		Description: "Spaces per indentation level.",
		Min:         intPtr(2),
		Max:         intPtr(8),
	}}
}

var yamlLineRe = regexp.MustCompile(`line (\d+)`)

// Decode reads a single YAML document. A stream holding further documents
// with content is rejected rather than truncated.
func (YAMLCodec) Decode(text string) (any, error) {
	dec := yaml.NewDecoder(strings.NewReader(text))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, yamlParseError(err)
	}
	for {
		var extra yaml.Node
		err := dec.Decode(&extra)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, yamlParseError(err)
		}
		if n := yamlDocumentBody(&extra); n != nil {
			return nil, &ParseError{
				Format:     "yaml",
				Line:       n.Line,
				Column:     n.Column,
				Diagnostic: "multiple documents are not supported",
			}
		}
	}

	body := yamlDocumentBody(&doc)
	if body == nil {
		return nil, ErrEmptyDocument
	}
	v, err := fromYAMLNode(body)
	if err != nil {
		return nil, &ParseError{Format: "yaml", Diagnostic: err.Error(), Err: err}
	}
	return v, nil
}

func yamlParseError(err error) *ParseError {
	pe := &ParseError{Format: "yaml", Diagnostic: err.Error(), Err: err}
	if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
	}
	return pe
}

// yamlDocumentBody returns the root node of doc, or nil when the document
// has no content, as left by a bare "---" separator. An explicit null is
// content.
func yamlDocumentBody(doc *yaml.Node) *yaml.Node {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	n := doc.Content[0]
	if n.Kind == yaml.ScalarNode && n.Tag == "!!null" && n.Value == "" {
		return nil
	}
	return n
}

func fromYAMLNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAMLNode(n.Content[0])
	case yaml.AliasNode:
		return fromYAMLNode(n.Alias)
	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAMLNode(c)
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return list, nil
	case yaml.MappingNode:
		return fromYAMLMapping(n)
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %d", n.Line, n.Kind)
	}
}

// fromYAMLMapping converts a mapping node. Keys from "<<" merge entries
// fill in only keys the mapping does not set explicitly.
func fromYAMLMapping(n *yaml.Node) (*strategy.Map, error) {
	m := strategy.NewMap()
	var inherited []*strategy.Map
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if key.Tag == "!!merge" {
			sources, err := yamlMergeSources(value)
			if err != nil {
				return nil, err
			}
			inherited = append(inherited, sources...)
			continue
		}
		v, err := fromYAMLNode(value)
		if err != nil {
			return nil, err
		}
		m.Set(key.Value, v)
	}
	for _, src := range inherited {
		for _, k := range src.Keys() {
			if _, ok := m.Get(k); ok {
				continue
			}
			v, _ := src.Get(k)
			m.Set(k, v)
		}
	}
	return m, nil
}

func yamlMergeSources(n *yaml.Node) ([]*strategy.Map, error) {
	if n.Kind == yaml.SequenceNode {
		var out []*strategy.Map
		for _, c := range n.Content {
			sources, err := yamlMergeSources(c)
			if err != nil {
				return nil, err
			}
			out = append(out, sources...)
		}
		return out, nil
	}
	v, err := fromYAMLNode(n)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*strategy.Map)
	if !ok {
		return nil, fmt.Errorf("line %d: merge key value is not a mapping", n.Line)
	}
	return []*strategy.Map{m}, nil
}

func (YAMLCodec) Encode(v any, settings Settings) (string, error) {
	node, err := toYAMLNode(v)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(settings.Int("indent"))
	if err := enc.Encode(node); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toYAMLNode(v any) (*yaml.Node, error) {
	switch t := v.(type) {
	case *strategy.Map:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range t.Keys() {
			value, _ := t.Get(k)
			vn, err := toYAMLNode(value)
			if err != nil {
				return nil, err
			}
			// Keys are strings; the !!str tag makes the emitter quote keys
			// such as "true" or "123" that would otherwise read back as
			// another type.
			n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, vn)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range t {
			en, err := toYAMLNode(e)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, en)
		}
		return n, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(t); err != nil {
			return nil, err
		}
		if n.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("yaml: unexpected composite value of type %T", t)
		}
		return n, nil
	}
}
