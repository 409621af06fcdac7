package jsonschema

import (
	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"
)

// Primitive JSON Schema type names.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeObject  = "object"
	TypeArray   = "array"
	TypeNull    = "null"
)

// Properties is an ordered property table (declaration order is significant).
type Properties = sequencedmap.Map[string, *Schema]

// NewProperties returns an empty ordered property table.
func NewProperties() *Properties { return sequencedmap.New[string, *Schema]() }

// Schema is a JSON-Schema shaped node of a bundled document.
//
// Nodes are aliased by reference: two places that point at the same named
// type resolve to the same *Schema. Keys that are not modeled explicitly are
// kept verbatim in Extra so that a processed document re-serializes losslessly.
type Schema struct {
	// Ref is the internal pointer of a reference object ("$ref").
	Ref string

	// Core
	Type        string
	Nullable    bool
	Format      string
	Title       string
	Description string

	// Object
	Properties           *Properties
	Required             []string
	AdditionalProperties *Schema
	// AdditionalAllowed records a boolean additionalProperties; nil when absent
	// or when AdditionalProperties holds a schema.
	AdditionalAllowed *bool

	// Array
	Items    *Schema
	MinItems *int64
	MaxItems *int64

	// Numeric / string constraints
	Minimum    *float64
	Maximum    *float64
	MultipleOf *float64
	MinLength  *int64
	MaxLength  *int64
	Pattern    string

	// Composition
	AllOf         []*Schema
	OneOf         []*Schema
	AnyOf         []*Schema
	Discriminator *Discriminator

	// Literals
	Enum  []any
	Const any

	// Defs holds nested definitions, in declaration order. DefsKey records
	// whether they were written as "$defs" or "definitions".
	Defs    *Properties
	DefsKey string

	// Extra holds every key not modeled above (x-*, default, example, ...).
	Extra *sequencedmap.Map[string, *yaml.Node]

	origin Pointer
}

// Discriminator is the OpenAPI discriminator object.
type Discriminator struct {
	PropertyName string
	Mapping      *sequencedmap.Map[string, string]
}

// Walk calls f on every direct subschema of s: properties, additionalProperties,
// items, allOf, oneOf, anyOf and nested definitions.
func (s *Schema) Walk(f func(*Schema)) {
	if s == nil {
		return
	}
	if s.Properties != nil {
		for _, p := range s.Properties.All() {
			f(p)
		}
	}
	if s.AdditionalProperties != nil {
		f(s.AdditionalProperties)
	}
	if s.Items != nil {
		f(s.Items)
	}
	for _, list := range [][]*Schema{s.AllOf, s.OneOf, s.AnyOf} {
		for _, br := range list {
			f(br)
		}
	}
	if s.Defs != nil {
		for _, d := range s.Defs.All() {
			f(d)
		}
	}
}

// Def returns the nested definition called name.
func (s *Schema) Def(name string) (*Schema, bool) {
	if s == nil || s.Defs == nil {
		return nil, false
	}
	return s.Defs.Get(name)
}

// IsRef reports whether s is a reference object.
func (s *Schema) IsRef() bool { return s != nil && s.Ref != "" }

// Origin returns the pointer the node was last resolved from, or "".
func (s *Schema) Origin() Pointer {
	if s == nil {
		return ""
	}
	return s.origin
}

// SetOrigin tags s with the pointer it was reached through.
func (s *Schema) SetOrigin(p Pointer) {
	if s != nil {
		s.origin = p
	}
}

// Property returns the named property, if declared.
func (s *Schema) Property(name string) (*Schema, bool) {
	if s == nil || s.Properties == nil {
		return nil, false
	}
	return s.Properties.Get(name)
}

// SetProperty declares (or replaces) a property, allocating the table when needed.
func (s *Schema) SetProperty(name string, v *Schema) {
	if s.Properties == nil {
		s.Properties = NewProperties()
	}
	s.Properties.Set(name, v)
}

// PropertyCount returns the number of declared properties.
func (s *Schema) PropertyCount() int {
	if s == nil || s.Properties == nil {
		return 0
	}
	return s.Properties.Len()
}

// IsRequired reports whether name is listed under required.
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// AddRequired appends name to required unless already present.
func (s *Schema) AddRequired(name string) {
	if !s.IsRequired(name) {
		s.Required = append(s.Required, name)
	}
}

// IsPrimitiveType reports whether t is string/number/integer/boolean.
func IsPrimitiveType(t string) bool {
	switch t {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean:
		return true
	}
	return false
}

// IsObjectShaped reports whether s declares an object (type object or properties).
func (s *Schema) IsObjectShaped() bool {
	if s == nil {
		return false
	}
	return s.Type == TypeObject || s.Properties != nil || s.AdditionalProperties != nil
}

// Literals returns the literal values s is restricted to (enum, or const as a
// single literal). ok is false when s is not literal-restricted.
func (s *Schema) Literals() (vals []any, ok bool) {
	if s == nil {
		return nil, false
	}
	if len(s.Enum) > 0 {
		return s.Enum, true
	}
	if s.Const != nil {
		return []any{s.Const}, true
	}
	return nil, false
}

// IsEmpty reports whether s carries no keys at all ({}).
func (s *Schema) IsEmpty() bool {
	if s == nil {
		return true
	}
	return s.Ref == "" && s.Type == "" && !s.Nullable && s.Format == "" && s.Title == "" &&
		s.Description == "" && s.Properties == nil && len(s.Required) == 0 &&
		s.AdditionalProperties == nil && s.AdditionalAllowed == nil && s.Items == nil &&
		s.MinItems == nil && s.MaxItems == nil && s.Minimum == nil && s.Maximum == nil &&
		s.MultipleOf == nil && s.MinLength == nil && s.MaxLength == nil && s.Pattern == "" &&
		len(s.AllOf) == 0 && len(s.OneOf) == 0 && len(s.AnyOf) == 0 && s.Discriminator == nil &&
		len(s.Enum) == 0 && s.Const == nil && s.Defs == nil && (s.Extra == nil || s.Extra.Len() == 0)
}

// MappingEntry is one discriminator mapping pair.
type MappingEntry struct {
	Key     string
	Pointer Pointer
}

// Entries returns the explicit mapping in declaration order.
func (d *Discriminator) Entries() []MappingEntry {
	if d == nil || d.Mapping == nil {
		return nil
	}
	out := make([]MappingEntry, 0, d.Mapping.Len())
	for k, v := range d.Mapping.All() {
		out = append(out, MappingEntry{Key: k, Pointer: Pointer(v)})
	}
	return out
}
