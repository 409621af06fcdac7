package ir

import (
	json "github.com/goccy/go-json"
)

// Node is the JSON shape of a dumped IR node. Named schemas nested inside
// another node are emitted as {"ref": name} so cycles terminate.
type Node struct {
	Name          string             `json:"name,omitempty" yaml:"name,omitempty"`
	ID            string             `json:"id,omitempty" yaml:"id,omitempty"`
	Ref           string             `json:"ref,omitempty" yaml:"ref,omitempty"`
	Kind          string             `json:"kind,omitempty" yaml:"kind,omitempty"`
	Circular      bool               `json:"circular,omitempty" yaml:"circular,omitempty"`
	Type          string             `json:"type,omitempty" yaml:"type,omitempty"`
	Format        string             `json:"format,omitempty" yaml:"format,omitempty"`
	Nullable      bool               `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Values        []any              `json:"values,omitempty" yaml:"values,omitempty"`
	Items         *Node              `json:"items,omitempty" yaml:"items,omitempty"`
	Parent        string             `json:"parent,omitempty" yaml:"parent,omitempty"`
	Mixins        []string           `json:"mixins,omitempty" yaml:"mixins,omitempty"`
	Fields        []NodeField        `json:"fields,omitempty" yaml:"fields,omitempty"`
	Additional    *Node              `json:"additional,omitempty" yaml:"additional,omitempty"`
	Schemas       []*Node            `json:"schemas,omitempty" yaml:"schemas,omitempty"`
	Discriminator *NodeDiscriminator `json:"discriminator,omitempty" yaml:"discriminator,omitempty"`
}

// NodeField is a dumped object field.
type NodeField struct {
	Name     string `json:"name" yaml:"name"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
	Schema   *Node  `json:"schema" yaml:"schema"`
}

// NodeDiscriminator is a dumped union discriminator.
type NodeDiscriminator struct {
	Name     string            `json:"name" yaml:"name"`
	Mappings map[string]string `json:"mappings,omitempty" yaml:"mappings,omitempty"`
}

// Dump converts top-level schemas to their JSON shape, in order.
func Dump(schemas []Schema) []*Node {
	out := make([]*Node, 0, len(schemas))
	for _, s := range schemas {
		d := dumper{path: make(map[Schema]struct{})}
		out = append(out, d.dump(s, true))
	}
	return out
}

// MarshalJSON renders schemas as indented JSON.
func MarshalJSON(schemas []Schema) ([]byte, error) {
	return json.MarshalIndent(Dump(schemas), "", "  ")
}

type dumper struct {
	// path holds the inline nodes being dumped, to cut inline cycles.
	path map[Schema]struct{}
}

func (d dumper) dump(s Schema, top bool) *Node {
	if s == nil {
		return nil
	}
	m := s.Info()
	if _, loop := d.path[s]; loop || (!top && m.Component.IsNamed()) {
		return &Node{Ref: Name(s)}
	}
	d.path[s] = struct{}{}
	defer delete(d.path, s)
	n := &Node{Name: Name(s), Kind: s.Kind().String(), Circular: m.Circular}
	if m.Component.IsNamed() {
		n.ID = string(m.Component.ID)
	}
	switch v := s.(type) {
	case *Object:
		if v.Parent != nil {
			n.Parent = Name(v.Parent)
		}
		for _, mx := range v.Mixins {
			n.Mixins = append(n.Mixins, Name(mx))
		}
		for _, f := range v.Fields {
			n.Fields = append(n.Fields, NodeField{Name: f.Name, Required: f.Required, Schema: d.dump(f.Schema, false)})
		}
		n.Additional = d.dump(v.Additional, false)
	case *Union:
		for _, member := range v.Schemas {
			n.Schemas = append(n.Schemas, d.dump(member, false))
		}
		if v.Discriminator != nil {
			nd := &NodeDiscriminator{Name: v.Discriminator.Name, Mappings: make(map[string]string)}
			for _, mp := range v.Discriminator.Mappings {
				nd.Mappings[mp.Value] = Name(mp.Schema)
			}
			n.Discriminator = nd
		}
	case *Primitive:
		n.Type, n.Format, n.Nullable = v.Type, v.Format, v.Nullable
	case *Enum:
		n.Type, n.Values = v.Type, v.Values
	case *Array:
		n.Items = d.dump(v.Items, false)
	case *Discriminator:
		n.Type = "string"
		for _, e := range v.Enum {
			n.Values = append(n.Values, e)
		}
	}
	return n
}
