// Package ir defines the canonical intermediate representation produced by
// the transpiler and consumed by code generators.
//
// IR nodes are created once per distinct source schema and shared by every
// referrer; consumers must treat them as read-only.
package ir

import "github.com/reoring/schemair/jsonschema"

// Kind identifies an IR node type.
type Kind int

const (
	KindObject Kind = iota
	KindUnion
	KindPrimitive
	KindEnum
	KindArray
	KindDiscriminator
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindUnion:
		return "union"
	case KindPrimitive:
		return "primitive"
	case KindEnum:
		return "enum"
	case KindArray:
		return "array"
	case KindDiscriminator:
		return "discriminator"
	}
	return "unknown"
}

// ComponentKind tells named components from synthesized inline schemas.
type ComponentKind int

const (
	// Named schemas live in the component table and are addressed by ID.
	Named ComponentKind = iota
	// Inline schemas get a synthesized name such as "Pet_tags_item".
	Inline
)

// Component identifies where an IR node came from.
type Component struct {
	Kind ComponentKind
	ID   jsonschema.Pointer // Named only
	Name string
}

// IsNamed reports whether c names a component.
func (c Component) IsNamed() bool { return c.Kind == Named }

func (c Component) String() string {
	if c.Name != "" {
		return c.Name
	}
	return c.ID.Last()
}

// Schema is the root IR node interface.
type Schema interface {
	Kind() Kind
	Info() *Meta
}

// Meta holds the fields common to every node.
type Meta struct {
	Component Component
	// Raw is the source node, for constraint inspection during codegen.
	Raw *jsonschema.Schema
	// Circular is set on named nodes that lie on a reference cycle.
	Circular bool
}

// Info returns m; it lets embedding types satisfy Schema.
func (m *Meta) Info() *Meta { return m }

// Object is a record type.
type Object struct {
	Meta
	Fields []Field
	// Parent is the named component this object extends.
	Parent *Object
	// Mixins are further named parents when allOf carried several.
	Mixins []*Object
	// Additional is the value type of additionalProperties, if any.
	Additional Schema
}

func (*Object) Kind() Kind { return KindObject }

// Field returns the field called name.
func (o *Object) Field(name string) (*Field, bool) {
	for i := range o.Fields {
		if o.Fields[i].Name == name {
			return &o.Fields[i], true
		}
	}
	return nil, false
}

// Field is one object property. Required lives here, not on the shared
// schema, since the same schema can be optional in one place and required in
// another.
type Field struct {
	Name     string
	Schema   Schema
	Required bool
}

// Union is a oneOf.
type Union struct {
	Meta
	Schemas       []Schema
	Discriminator *UnionDiscriminator
}

func (*Union) Kind() Kind { return KindUnion }

// UnionDiscriminator names the tag property and which member each value selects.
type UnionDiscriminator struct {
	Name     string
	Mappings []Mapping
}

// Mapping pairs a discriminator value with the member it selects.
type Mapping struct {
	Schema Schema
	Value  string
}

// Primitive is string, number, integer or boolean.
type Primitive struct {
	Meta
	Type     string
	Format   string
	Nullable bool
}

func (*Primitive) Kind() Kind { return KindPrimitive }

// Enum is a primitive restricted to literal values.
type Enum struct {
	Meta
	Type   string
	Values []any
}

func (*Enum) Kind() Kind { return KindEnum }

// Array is a list of Items.
type Array struct {
	Meta
	Items Schema
}

func (*Array) Kind() Kind { return KindArray }

// Discriminator is an object property that selects a union member. It is
// not a standalone type: it only appears as an Object field.
type Discriminator struct {
	Meta
	// Enum only ever grows; see Add.
	Enum []string
	// EntityRef is the union that requires this property.
	EntityRef *Union
}

func (*Discriminator) Kind() Kind { return KindDiscriminator }

// Add appends the values not yet accepted.
func (d *Discriminator) Add(values ...string) {
	for _, v := range values {
		if !d.Accepts(v) {
			d.Enum = append(d.Enum, v)
		}
	}
}

// Accepts reports whether v is one of the accepted values.
func (d *Discriminator) Accepts(v string) bool {
	for _, e := range d.Enum {
		if e == v {
			return true
		}
	}
	return false
}

// Name returns the component name of s, or "" for nil.
func Name(s Schema) string {
	if s == nil {
		return ""
	}
	return s.Info().Component.String()
}

// IsCircular reports whether s is a named node on a reference cycle.
func IsCircular(s Schema) bool { return s != nil && s.Info().Circular }
