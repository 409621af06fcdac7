package jsonschema

import (
	"fmt"

	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"
)

// decoder turns yaml nodes into Schemas. YAML anchors/aliases map to the same
// *Schema so that aliasing in the source survives decoding.
type decoder struct {
	memo map[*yaml.Node]*Schema
}

func newDecoder() *decoder { return &decoder{memo: make(map[*yaml.Node]*Schema)} }

// DecodeSchema decodes a single schema node.
func DecodeSchema(n *yaml.Node) (*Schema, error) {
	return newDecoder().schema(n, "#")
}

// ParseSchema decodes a single schema from YAML or JSON bytes.
func ParseSchema(data []byte) (*Schema, error) {
	var top yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("jsonschema: invalid schema: %w", err)
	}
	n := &top
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}
	return DecodeSchema(n)
}

func (d *decoder) schema(n *yaml.Node, at Pointer) (*Schema, error) {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if s, ok := d.memo[n]; ok {
		return s, nil
	}
	if n.Kind == yaml.ScalarNode && n.Tag == "!!bool" {
		// boolean schemas: true accepts anything
		if n.Value == "true" {
			s := &Schema{}
			d.memo[n] = s
			return s, nil
		}
		return nil, fmt.Errorf("jsonschema: %s: boolean schema false is not supported", at)
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("jsonschema: %s: schema must be a mapping, got %s", at, kindName(n.Kind))
	}
	s := &Schema{}
	d.memo[n] = s
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, v := n.Content[i].Value, n.Content[i+1]
		if err := d.field(s, key, v, at); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (d *decoder) field(s *Schema, key string, v *yaml.Node, at Pointer) error {
	var err error
	switch key {
	case "$ref":
		err = v.Decode(&s.Ref)
	case "type":
		err = decodeType(s, v)
	case "nullable":
		err = v.Decode(&s.Nullable)
	case "format":
		err = v.Decode(&s.Format)
	case "title":
		err = v.Decode(&s.Title)
	case "description":
		err = v.Decode(&s.Description)
	case "pattern":
		err = v.Decode(&s.Pattern)
	case "properties":
		s.Properties, err = d.table(v, at.Child(key))
	case "$defs", "definitions":
		s.DefsKey = key
		s.Defs, err = d.table(v, at.Child(key))
	case "required":
		err = v.Decode(&s.Required)
	case "additionalProperties":
		if v.Kind == yaml.ScalarNode {
			var b bool
			if err = v.Decode(&b); err == nil {
				s.AdditionalAllowed = &b
			}
			break
		}
		s.AdditionalProperties, err = d.schema(v, at.Child(key))
	case "items":
		s.Items, err = d.schema(v, at.Child(key))
	case "minItems":
		s.MinItems, err = decodePtr[int64](v)
	case "maxItems":
		s.MaxItems, err = decodePtr[int64](v)
	case "minLength":
		s.MinLength, err = decodePtr[int64](v)
	case "maxLength":
		s.MaxLength, err = decodePtr[int64](v)
	case "minimum":
		s.Minimum, err = decodePtr[float64](v)
	case "maximum":
		s.Maximum, err = decodePtr[float64](v)
	case "multipleOf":
		s.MultipleOf, err = decodePtr[float64](v)
	case "allOf":
		s.AllOf, err = d.list(v, at.Child(key))
	case "oneOf":
		s.OneOf, err = d.list(v, at.Child(key))
	case "anyOf":
		s.AnyOf, err = d.list(v, at.Child(key))
	case "discriminator":
		s.Discriminator, err = decodeDiscriminator(v)
	case "enum":
		err = v.Decode(&s.Enum)
	case "const":
		err = v.Decode(&s.Const)
	default:
		if s.Extra == nil {
			s.Extra = sequencedmap.New[string, *yaml.Node]()
		}
		s.Extra.Set(key, v)
	}
	if err != nil {
		return fmt.Errorf("jsonschema: %s: %s: %w", at, key, err)
	}
	return nil
}

// table decodes a name -> schema mapping (properties, $defs).
func (d *decoder) table(v *yaml.Node, at Pointer) (*Properties, error) {
	if v.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("must be a mapping, got %s", kindName(v.Kind))
	}
	out := NewProperties()
	for i := 0; i+1 < len(v.Content); i += 2 {
		name := v.Content[i].Value
		ps, err := d.schema(v.Content[i+1], at.Child(name))
		if err != nil {
			return nil, err
		}
		out.Set(name, ps)
	}
	return out, nil
}

func (d *decoder) list(v *yaml.Node, at Pointer) ([]*Schema, error) {
	if v.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("must be a sequence, got %s", kindName(v.Kind))
	}
	out := make([]*Schema, 0, len(v.Content))
	for i, item := range v.Content {
		s, err := d.schema(item, at.Child(fmt.Sprint(i)))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// decodeType accepts "type: string" and the 3.1 form "type: [string, 'null']".
func decodeType(s *Schema, v *yaml.Node) error {
	if v.Kind == yaml.ScalarNode {
		return v.Decode(&s.Type)
	}
	var types []string
	if err := v.Decode(&types); err != nil {
		return err
	}
	for _, t := range types {
		if t == TypeNull {
			s.Nullable = true
			continue
		}
		if s.Type != "" {
			return fmt.Errorf("multiple non-null types %v are not supported", types)
		}
		s.Type = t
	}
	return nil
}

func decodeDiscriminator(v *yaml.Node) (*Discriminator, error) {
	if v.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("must be a mapping, got %s", kindName(v.Kind))
	}
	disc := &Discriminator{}
	for i := 0; i+1 < len(v.Content); i += 2 {
		key, val := v.Content[i].Value, v.Content[i+1]
		switch key {
		case "propertyName":
			if err := val.Decode(&disc.PropertyName); err != nil {
				return nil, err
			}
		case "mapping":
			if val.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("mapping must be a mapping, got %s", kindName(val.Kind))
			}
			disc.Mapping = sequencedmap.New[string, string]()
			for j := 0; j+1 < len(val.Content); j += 2 {
				disc.Mapping.Set(val.Content[j].Value, val.Content[j+1].Value)
			}
		}
	}
	return disc, nil
}

func decodePtr[T any](v *yaml.Node) (*T, error) {
	var out T
	if err := v.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
