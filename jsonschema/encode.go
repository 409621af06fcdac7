package jsonschema

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// MarshalYAML renders s as a yaml mapping node.
func (s *Schema) MarshalYAML() (any, error) { return s.node(), nil }

// MarshalJSON renders s as JSON preserving property order.
func (s *Schema) MarshalJSON() ([]byte, error) { return nodeJSON(s.node()) }

func (s *Schema) node() *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if s == nil {
		return m
	}
	put := func(key string, v *yaml.Node) { m.Content = append(m.Content, stringNode(key), v) }
	putString := func(key, v string) {
		if v != "" {
			put(key, stringNode(v))
		}
	}
	putString("$ref", s.Ref)
	putString("title", s.Title)
	putString("description", s.Description)
	putString("type", s.Type)
	putString("format", s.Format)
	if s.Nullable {
		put("nullable", anyNode(true))
	}
	if s.Discriminator != nil {
		put("discriminator", s.Discriminator.node())
	}
	if s.Properties != nil {
		put("properties", tableNode(s.Properties))
	}
	if len(s.Required) > 0 {
		put("required", anyNode(s.Required))
	}
	if s.AdditionalProperties != nil {
		put("additionalProperties", s.AdditionalProperties.node())
	} else if s.AdditionalAllowed != nil {
		put("additionalProperties", anyNode(*s.AdditionalAllowed))
	}
	if s.Items != nil {
		put("items", s.Items.node())
	}
	putPtr(put, "minItems", s.MinItems)
	putPtr(put, "maxItems", s.MaxItems)
	putPtr(put, "minLength", s.MinLength)
	putPtr(put, "maxLength", s.MaxLength)
	putPtr(put, "minimum", s.Minimum)
	putPtr(put, "maximum", s.Maximum)
	putPtr(put, "multipleOf", s.MultipleOf)
	putString("pattern", s.Pattern)
	for _, c := range []struct {
		key  string
		list []*Schema
	}{{"allOf", s.AllOf}, {"oneOf", s.OneOf}, {"anyOf", s.AnyOf}} {
		if len(c.list) == 0 {
			continue
		}
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, b := range c.list {
			seq.Content = append(seq.Content, b.node())
		}
		put(c.key, seq)
	}
	if len(s.Enum) > 0 {
		put("enum", anyNode(s.Enum))
	}
	if s.Const != nil {
		put("const", anyNode(s.Const))
	}
	if s.Defs != nil {
		key := s.DefsKey
		if key == "" {
			key = "$defs"
		}
		put(key, tableNode(s.Defs))
	}
	if s.Extra != nil {
		for k, v := range s.Extra.All() {
			put(k, v)
		}
	}
	return m
}

func tableNode(t *Properties) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for name, s := range t.All() {
		m.Content = append(m.Content, stringNode(name), s.node())
	}
	return m
}

func (d *Discriminator) node() *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	m.Content = append(m.Content, stringNode("propertyName"), stringNode(d.PropertyName))
	if d.Mapping != nil && d.Mapping.Len() > 0 {
		mm := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for k, v := range d.Mapping.All() {
			mm.Content = append(mm.Content, stringNode(k), stringNode(v))
		}
		m.Content = append(m.Content, stringNode("mapping"), mm)
	}
	return m
}

func putPtr[T int64 | float64](put func(string, *yaml.Node), key string, v *T) {
	if v != nil {
		put(key, anyNode(*v))
	}
}

func stringNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func anyNode(v any) *yaml.Node {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return stringNode(fmt.Sprint(v))
	}
	return &n
}

func cloneYAML(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	cp := *n
	if len(n.Content) > 0 {
		cp.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			cp.Content[i] = cloneYAML(c)
		}
	}
	return &cp
}

// nodeJSON renders a yaml tree as JSON. Mapping order is kept, which a
// round-trip through map[string]any would lose.
func nodeJSON(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeJSON(buf, n.Content[0])
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}
