// Package resolve dereferences internal "$ref" pointers against a bundled
// document. Resolution never copies: the returned node is the very object
// stored in the document, so callers may rely on pointer identity.
package resolve

import (
	"strconv"

	"github.com/reoring/schemair/diag"
	"github.com/reoring/schemair/jsonschema"
)

// maxChain bounds "$ref to $ref" alias chains.
const maxChain = 64

// Resolver resolves references against one document.
type Resolver struct {
	doc *jsonschema.Document
}

// New returns a Resolver over doc.
func New(doc *jsonschema.Document) *Resolver { return &Resolver{doc: doc} }

// Document returns the document being resolved against.
func (r *Resolver) Document() *jsonschema.Document { return r.doc }

// Resolve returns s unchanged unless it is a reference object, in which case
// the target node is returned, tagged with the pointer it was found at.
// Alias chains ($ref to a node that is itself a $ref) are followed.
func (r *Resolver) Resolve(s *jsonschema.Schema) (*jsonschema.Schema, error) {
	if !s.IsRef() {
		return s, nil
	}
	cur := s
	seen := make(map[string]struct{})
	for cur.IsRef() {
		ref := cur.Ref
		if _, loop := seen[ref]; loop || len(seen) >= maxChain {
			return nil, diag.Resolutionf(diag.Opts(diag.At(ref), diag.Schema(s)), "reference chain loops back to %s", ref)
		}
		seen[ref] = struct{}{}
		next, err := r.Lookup(jsonschema.Pointer(ref))
		if err != nil {
			return nil, err
		}
		next.SetOrigin(jsonschema.Pointer(ref))
		cur = next
	}
	return cur, nil
}

// ResolveConsume resolves s and then deletes its "$ref" so that the caller can
// replace the reference with merged content in place.
func (r *Resolver) ResolveConsume(s *jsonschema.Schema) (*jsonschema.Schema, error) {
	out, err := r.Resolve(s)
	if err != nil {
		return nil, err
	}
	if s != nil {
		s.Ref = ""
	}
	return out, nil
}

// Lookup walks p from the document root and returns the node it names.
// Intermediate reference objects are dereferenced along the way.
func (r *Resolver) Lookup(p jsonschema.Pointer) (*jsonschema.Schema, error) {
	segs, err := p.Segments()
	if err != nil {
		return nil, diag.Resolutionf(diag.Opts(diag.At(string(p)), diag.Cause(err)), "malformed pointer")
	}
	base := r.doc.SchemasPath
	if len(segs) <= len(base) {
		return nil, diag.Resolutionf(diag.Opts(diag.At(string(p))), "pointer does not name a schema under #/%s", joinSegs(base))
	}
	for i, s := range base {
		if segs[i] != s {
			return nil, diag.Resolutionf(diag.Opts(diag.At(string(p))),
				"segment %q does not match schema table #/%s", segs[i], joinSegs(base))
		}
	}
	name := segs[len(base)]
	cur, ok := r.doc.Component(name)
	if !ok {
		return nil, diag.Resolutionf(diag.Opts(diag.At(string(p))), "component %q is not declared", name)
	}
	walked := r.doc.ComponentPointer(name)
	rest := segs[len(base)+1:]
	for i := 0; i < len(rest); i++ {
		if cur.IsRef() {
			if cur, err = r.Resolve(cur); err != nil {
				return nil, err
			}
		}
		seg := rest[i]
		fail := func(format string, a ...any) error {
			opts := diag.Opts(diag.At(string(p)), diag.Schema(cur))
			return diag.Resolutionf(opts, "at %s: "+format, append([]any{walked}, a...)...)
		}
		switch seg {
		case "items":
			if cur.Items == nil {
				return nil, fail("no items")
			}
			cur = cur.Items
		case "additionalProperties":
			if cur.AdditionalProperties == nil {
				return nil, fail("no additionalProperties schema")
			}
			cur = cur.AdditionalProperties
		case "properties":
			if i+1 >= len(rest) {
				return nil, fail("missing property name after \"properties\"")
			}
			i++
			prop, ok := cur.Property(rest[i])
			if !ok {
				return nil, fail("property %q not declared", rest[i])
			}
			cur = prop
			walked = walked.Child(seg)
			seg = rest[i]
		case "$defs", "definitions":
			if i+1 >= len(rest) {
				return nil, fail("missing definition name after %q", seg)
			}
			i++
			def, ok := cur.Def(rest[i])
			if !ok {
				return nil, fail("definition %q not declared", rest[i])
			}
			cur = def
			walked = walked.Child(seg)
			seg = rest[i]
		case "allOf", "oneOf", "anyOf":
			if i+1 >= len(rest) {
				return nil, fail("missing index after %q", seg)
			}
			i++
			idx, err := strconv.Atoi(rest[i])
			if err != nil {
				return nil, fail("index %q after %q is not a number", rest[i], seg)
			}
			list := branches(cur, seg)
			if idx < 0 || idx >= len(list) {
				return nil, fail("%s[%d] out of range (len %d)", seg, idx, len(list))
			}
			cur = list[idx]
			walked = walked.Child(seg)
			seg = rest[i]
		default:
			return nil, fail("unsupported segment %q", seg)
		}
		walked = walked.Child(seg)
	}
	return cur, nil
}

func branches(s *jsonschema.Schema, key string) []*jsonschema.Schema {
	switch key {
	case "allOf":
		return s.AllOf
	case "oneOf":
		return s.OneOf
	default:
		return s.AnyOf
	}
}

func joinSegs(segs []string) string {
	out := ""
	for i, s := range segs {
		if i > 0 {
			out += "/"
		}
		out += jsonschema.EscapeSegment(s)
	}
	return out
}
