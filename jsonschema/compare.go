package jsonschema

import "bytes"

// Equal reports whether a and b render to the same canonical form. References
// are compared by pointer text, not by target.
func Equal(a, b *Schema) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	ja, err := nodeJSON(a.node())
	if err != nil {
		return false
	}
	jb, err := nodeJSON(b.node())
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
