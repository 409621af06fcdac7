package transpile

import (
	"fmt"
	"strings"

	"github.com/reoring/schemair/diag"
	"github.com/reoring/schemair/ir"
	"github.com/reoring/schemair/jsonschema"
)

func (c *Context) union(key, node *jsonschema.Schema, meta ir.Meta) (ir.Schema, error) {
	out := &ir.Union{Meta: meta}
	c.cache[key] = out
	name := ir.Name(out)

	seen := make(map[ir.Schema]struct{})
	for i, br := range node.OneOf {
		s, err := c.Transpile(fmt.Sprintf("%s_sub_%d", name, i), br)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out.Schemas = append(out.Schemas, s)
	}
	if node.Discriminator == nil {
		return out, nil
	}

	at := c.pointer(meta)
	prop := node.Discriminator.PropertyName
	if prop == "" {
		return nil, diag.Compositionf(diag.Opts(diag.At(at), diag.Schema(node)), "discriminator has no propertyName")
	}
	out.Discriminator = &ir.UnionDiscriminator{Name: prop}
	for _, en := range c.mapping(node) {
		target, err := c.res.Resolve(&jsonschema.Schema{Ref: string(en.Pointer)})
		if err != nil {
			return nil, diag.Compositionf(diag.Opts(diag.At(at), diag.Schema(node), diag.Cause(err)),
				"discriminator mapping %q -> %s cannot be resolved", en.Key, en.Pointer)
		}
		member, ok := c.cache[target]
		if _, isMember := seen[member]; !ok || !isMember {
			return nil, diag.Compositionf(diag.Opts(diag.At(at), diag.Schema(node)),
				"discriminator mapping %q -> %s is not a oneOf member", en.Key, en.Pointer)
		}
		if err := c.propagate(member, prop, en.Key, out, make(map[ir.Schema]struct{})); err != nil {
			return nil, err
		}
		out.Discriminator.Mappings = append(out.Discriminator.Mappings, ir.Mapping{Schema: member, Value: en.Key})
	}
	return out, nil
}

// mapping returns the explicit mapping, or the one implied by the oneOf
// component references.
func (c *Context) mapping(node *jsonschema.Schema) []jsonschema.MappingEntry {
	entries := node.Discriminator.Entries()
	if len(entries) == 0 && c.opts.ImplicitMapping {
		for _, br := range node.OneOf {
			if !br.IsRef() {
				continue
			}
			if name, ok := c.doc.ComponentName(jsonschema.Pointer(br.Ref)); ok {
				entries = append(entries, jsonschema.MappingEntry{Key: name, Pointer: jsonschema.Pointer(br.Ref)})
			}
		}
	}
	for i, en := range entries {
		if !strings.HasPrefix(string(en.Pointer), "#") {
			entries[i].Pointer = c.doc.ComponentPointer(string(en.Pointer))
		}
	}
	return entries
}

// propagate makes s carry the discriminator property prop accepting value.
// Objects get (or grow) a Discriminator field; unions forward to every member.
func (c *Context) propagate(s ir.Schema, prop, value string, u *ir.Union, seen map[ir.Schema]struct{}) error {
	if _, ok := seen[s]; ok {
		return nil
	}
	seen[s] = struct{}{}
	switch v := s.(type) {
	case *ir.Object:
		f, ok := v.Field(prop)
		if !ok {
			d := c.discriminator(v, prop, nil, u)
			d.Add(value)
			v.Fields = append(v.Fields, ir.Field{Name: prop, Schema: d, Required: true})
			return nil
		}
		if d, isDisc := f.Schema.(*ir.Discriminator); isDisc {
			d.Add(value)
			f.Required = true
			return nil
		}
		switch prev := f.Schema.(type) {
		case *ir.Enum, *ir.Primitive:
			if t := typeOf(prev); t != "" && t != jsonschema.TypeString {
				return diag.Compositionf(diag.Opts(diag.At(c.pointer(*v.Info())), diag.Schema(f.Schema.Info().Raw)),
					"discriminator property %q must be a string, got %s", prop, t)
			}
		default:
			return diag.Compositionf(diag.Opts(diag.At(c.pointer(*v.Info())), diag.Schema(f.Schema.Info().Raw)),
				"discriminator property %q must be a string, got %s", prop, f.Schema.Kind())
		}
		d := c.discriminator(v, prop, f.Schema, u)
		d.Add(literalStrings(f.Schema)...)
		d.Add(value)
		f.Schema = d
		f.Required = true
		return nil

	case *ir.Union:
		for _, m := range v.Schemas {
			if err := c.propagate(m, prop, value, u, seen); err != nil {
				return err
			}
		}
		return nil
	}
	return diag.Compositionf(diag.Opts(diag.At(c.pointer(*s.Info())), diag.Schema(s.Info().Raw)),
		"discriminated member %q is a %s, not an object", ir.Name(s), s.Kind())
}

func (c *Context) discriminator(owner *ir.Object, prop string, prev ir.Schema, u *ir.Union) *ir.Discriminator {
	meta := ir.Meta{Component: ir.Component{Kind: ir.Inline, Name: ir.Name(owner) + "_" + prop}}
	if prev != nil {
		meta.Raw = prev.Info().Raw
	}
	return &ir.Discriminator{Meta: meta, EntityRef: u}
}

func typeOf(s ir.Schema) string {
	switch v := s.(type) {
	case *ir.Enum:
		return v.Type
	case *ir.Primitive:
		return v.Type
	}
	return ""
}
