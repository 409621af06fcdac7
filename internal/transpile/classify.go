package transpile

import "github.com/reoring/schemair/jsonschema"

// Shape is the single variant a raw node is classified into before it is
// transpiled. Call sites switch on it instead of re-testing node keys.
type Shape int

const (
	ShapeUnknown Shape = iota
	ShapeEnum
	ShapeUnion
	ShapePrimitive
	ShapeArray
	ShapeInherit
	ShapeObject
)

func (s Shape) String() string {
	switch s {
	case ShapeEnum:
		return "enum"
	case ShapeUnion:
		return "union"
	case ShapePrimitive:
		return "primitive"
	case ShapeArray:
		return "array"
	case ShapeInherit:
		return "allOf"
	case ShapeObject:
		return "object"
	}
	return "unknown"
}

// Classify returns the shape of a resolved (non-$ref) node. The first
// matching rule wins:
//
//	enum or const with a primitive or absent type  -> ShapeEnum
//	oneOf                                          -> ShapeUnion
//	primitive type                                 -> ShapePrimitive
//	items (type array or untyped)                  -> ShapeArray
//	allOf                                          -> ShapeInherit
//	type object, properties or additionalProperties -> ShapeObject
func Classify(s *jsonschema.Schema) Shape {
	if s == nil {
		return ShapeUnknown
	}
	if _, lit := s.Literals(); lit && (s.Type == "" || jsonschema.IsPrimitiveType(s.Type)) {
		return ShapeEnum
	}
	switch {
	case len(s.OneOf) > 0:
		return ShapeUnion
	case jsonschema.IsPrimitiveType(s.Type):
		return ShapePrimitive
	case s.Items != nil && (s.Type == jsonschema.TypeArray || s.Type == ""):
		return ShapeArray
	case len(s.AllOf) > 0:
		return ShapeInherit
	case s.IsObjectShaped():
		return ShapeObject
	}
	return ShapeUnknown
}
