package jsonschema

import (
	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"
)

// Clone returns a deep copy of the document. Nodes shared by several parents
// in d stay shared (as one copy) in the result.
//
// Raw yaml nodes held in Schema.Extra and the non-schema part of the document
// are shared: no pass mutates them.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := newCloner()
	out := &Document{
		Schemas:     sequencedmap.New[string, *Schema](),
		SchemasPath: append([]string(nil), d.SchemasPath...),
		root:        d.root,
	}
	for name, s := range d.Schemas.All() {
		out.Schemas.Set(name, c.schema(s))
	}
	return out
}

// Clone returns a deep copy of s, preserving internal aliasing.
func (s *Schema) Clone() *Schema { return newCloner().schema(s) }

// ShallowCopy copies s's fields; nested schemas are shared with s.
func (s *Schema) ShallowCopy() *Schema {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Required = append([]string(nil), s.Required...)
	cp.AllOf = append([]*Schema(nil), s.AllOf...)
	cp.OneOf = append([]*Schema(nil), s.OneOf...)
	cp.AnyOf = append([]*Schema(nil), s.AnyOf...)
	cp.Enum = append([]any(nil), s.Enum...)
	cp.Properties = copyTable(s.Properties)
	cp.Defs = copyTable(s.Defs)
	cp.Extra = cloneExtra(s.Extra)
	cp.Discriminator = s.Discriminator.clone()
	return &cp
}

type cloner struct {
	memo map[*Schema]*Schema
}

func newCloner() *cloner { return &cloner{memo: make(map[*Schema]*Schema)} }

func (c *cloner) schema(s *Schema) *Schema {
	if s == nil {
		return nil
	}
	if cp, ok := c.memo[s]; ok {
		return cp
	}
	cp := s.ShallowCopy()
	c.memo[s] = cp
	for _, t := range []*Properties{cp.Properties, cp.Defs} {
		if t == nil {
			continue
		}
		for k, v := range t.All() {
			t.Set(k, c.schema(v))
		}
	}
	cp.AdditionalProperties = c.schema(s.AdditionalProperties)
	cp.Items = c.schema(s.Items)
	cp.AllOf = c.list(s.AllOf)
	cp.OneOf = c.list(s.OneOf)
	cp.AnyOf = c.list(s.AnyOf)
	cp.AdditionalAllowed = clonePtr(s.AdditionalAllowed)
	cp.MinItems = clonePtr(s.MinItems)
	cp.MaxItems = clonePtr(s.MaxItems)
	cp.MinLength = clonePtr(s.MinLength)
	cp.MaxLength = clonePtr(s.MaxLength)
	cp.Minimum = clonePtr(s.Minimum)
	cp.Maximum = clonePtr(s.Maximum)
	cp.MultipleOf = clonePtr(s.MultipleOf)
	return cp
}

func (c *cloner) list(in []*Schema) []*Schema {
	if in == nil {
		return nil
	}
	out := make([]*Schema, len(in))
	for i, s := range in {
		out[i] = c.schema(s)
	}
	return out
}

func copyTable(t *Properties) *Properties {
	if t == nil {
		return nil
	}
	out := NewProperties()
	for k, v := range t.All() {
		out.Set(k, v)
	}
	return out
}

func (d *Discriminator) clone() *Discriminator {
	if d == nil {
		return nil
	}
	cp := &Discriminator{PropertyName: d.PropertyName}
	if d.Mapping != nil {
		cp.Mapping = sequencedmap.New[string, string]()
		for k, v := range d.Mapping.All() {
			cp.Mapping.Set(k, v)
		}
	}
	return cp
}

func cloneExtra(m *sequencedmap.Map[string, *yaml.Node]) *sequencedmap.Map[string, *yaml.Node] {
	if m == nil {
		return nil
	}
	out := sequencedmap.New[string, *yaml.Node]()
	for k, v := range m.All() {
		out.Set(k, v)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
