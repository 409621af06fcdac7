// Package transpile converts merged, discriminator-ensured schema nodes into
// the canonical IR.
package transpile

import (
	"github.com/reoring/schemair/diag"
	"github.com/reoring/schemair/internal/graph"
	"github.com/reoring/schemair/internal/resolve"
	"github.com/reoring/schemair/ir"
	"github.com/reoring/schemair/jsonschema"
)

// Options tunes a Context.
type Options struct {
	// ImplicitMapping derives discriminator mappings from oneOf $ref names
	// when a discriminator has none.
	ImplicitMapping bool
}

// Context carries the state of one transpile run: a resolver, the schema
// graph and a cache from source node identity to IR. A Context must not be
// shared between concurrent runs.
type Context struct {
	doc   *jsonschema.Document
	res   *resolve.Resolver
	graph *graph.Graph
	opts  Options

	// names maps component nodes to their component name.
	names map[*jsonschema.Schema]string
	cache map[*jsonschema.Schema]ir.Schema
	// pending holds nodes whose IR is under construction and has no
	// placeholder in cache (enum, primitive, allOf before its child exists).
	pending map[*jsonschema.Schema]struct{}
}

// NewContext returns a Context over doc. g supplies the circular flags and
// may be nil.
func NewContext(doc *jsonschema.Document, g *graph.Graph, opts Options) *Context {
	c := &Context{
		doc:     doc,
		res:     resolve.New(doc),
		graph:   g,
		opts:    opts,
		names:   make(map[*jsonschema.Schema]string),
		cache:   make(map[*jsonschema.Schema]ir.Schema),
		pending: make(map[*jsonschema.Schema]struct{}),
	}
	for name, s := range doc.Schemas.All() {
		if _, dup := c.names[s]; !dup {
			c.names[s] = name
		}
	}
	return c
}

// Component transpiles the named component.
func (c *Context) Component(name string) (ir.Schema, error) {
	s, ok := c.doc.Component(name)
	if !ok {
		return nil, diag.Resolutionf(diag.Opts(diag.At(string(c.doc.ComponentPointer(name)))), "component %q is not declared", name)
	}
	return c.Transpile(name, s)
}

// Transpile returns the IR for node. Nodes reached through a $ref, or that
// are themselves components, carry the component identity; others are
// inline and named name.
func (c *Context) Transpile(name string, node *jsonschema.Schema) (ir.Schema, error) {
	key, meta, err := c.identify(name, node)
	if err != nil {
		return nil, err
	}
	if s, ok := c.cache[key]; ok {
		return s, nil
	}
	if _, busy := c.pending[key]; busy {
		return nil, diag.Transpilef(diag.Opts(diag.At(c.pointer(meta)), diag.Schema(key)),
			"schema refers to itself without an object, array or union in between")
	}
	return c.build(key, key, meta)
}

// identify resolves node and computes the identity of its IR.
func (c *Context) identify(name string, node *jsonschema.Schema) (*jsonschema.Schema, ir.Meta, error) {
	comp := ir.Component{Kind: ir.Inline, Name: name}
	if node.IsRef() {
		target, err := c.res.Resolve(node)
		if err != nil {
			return nil, ir.Meta{}, err
		}
		node = target
	}
	if cname, ok := c.names[node]; ok {
		comp = ir.Component{Kind: ir.Named, ID: c.doc.ComponentPointer(cname), Name: cname}
	}
	meta := ir.Meta{Component: comp, Raw: node}
	if comp.IsNamed() {
		meta.Circular = c.graph.IsCircular(comp.ID)
	}
	return node, meta, nil
}

// build constructs the IR of node under meta and caches it under key. key
// differs from node when an allOf child or a promoted branch takes the
// identity of the outer node.
func (c *Context) build(key, node *jsonschema.Schema, meta ir.Meta) (ir.Schema, error) {
	name := meta.Component.String()
	switch Classify(node) {
	case ShapeEnum:
		vals, _ := node.Literals()
		out := &ir.Enum{Meta: meta, Type: node.Type, Values: append([]any(nil), vals...)}
		c.cache[key] = out
		return out, nil

	case ShapePrimitive:
		out := &ir.Primitive{Meta: meta, Type: node.Type, Format: node.Format, Nullable: node.Nullable}
		c.cache[key] = out
		return out, nil

	case ShapeArray:
		out := &ir.Array{Meta: meta}
		c.cache[key] = out
		items, err := c.Transpile(name+"_item", node.Items)
		if err != nil {
			return nil, err
		}
		out.Items = items
		return out, nil

	case ShapeUnion:
		return c.union(key, node, meta)

	case ShapeInherit:
		return c.inherit(key, node, meta)

	case ShapeObject:
		return c.object(key, node, meta)
	}
	return nil, diag.Transpilef(diag.Opts(diag.At(c.pointer(meta)), diag.Schema(node)),
		"schema %q matches no object, union, array, primitive or enum shape", name)
}

func (c *Context) object(key, node *jsonschema.Schema, meta ir.Meta) (ir.Schema, error) {
	out := &ir.Object{Meta: meta}
	c.cache[key] = out
	name := ir.Name(out)
	if node.Properties != nil {
		for prop, ps := range node.Properties.All() {
			fs, err := c.Transpile(name+"_"+prop, ps)
			if err != nil {
				return nil, err
			}
			required := node.IsRequired(prop)
			// a union reached through this object may already have put its
			// discriminator here
			if f, ok := out.Field(prop); ok {
				if d, isDisc := f.Schema.(*ir.Discriminator); isDisc {
					d.Add(literalStrings(fs)...)
					f.Required = f.Required || required
					continue
				}
			}
			out.Fields = append(out.Fields, ir.Field{Name: prop, Schema: fs, Required: required})
		}
	}
	if node.AdditionalProperties != nil {
		add, err := c.Transpile(name+"_additional", node.AdditionalProperties)
		if err != nil {
			return nil, err
		}
		out.Additional = add
	}
	return out, nil
}

// inherit handles a (merged) allOf of at most two branches.
func (c *Context) inherit(key, node *jsonschema.Schema, meta ir.Meta) (ir.Schema, error) {
	at := c.pointer(meta)
	if len(node.AllOf) > 2 {
		return nil, diag.Compositionf(diag.Opts(diag.At(at), diag.Schema(node)),
			"allOf has %d branches after merging; at most 2 are supported", len(node.AllOf))
	}
	var branches []*jsonschema.Schema
	for _, br := range node.AllOf {
		if !br.IsEmpty() {
			branches = append(branches, br)
		}
	}
	switch len(branches) {
	case 0:
		return nil, diag.Transpilef(diag.Opts(diag.At(at), diag.Schema(node)), "allOf has no non-empty branch")
	case 1:
		// promote the branch but keep the outer identity
		inner, err := c.resolve(branches[0])
		if err != nil {
			return nil, err
		}
		return c.guarded(key, func() (ir.Schema, error) { return c.build(key, inner, meta) })
	}

	childNode, err := c.resolve(branches[1])
	if err != nil {
		return nil, err
	}
	built, err := c.guarded(key, func() (ir.Schema, error) { return c.build(key, childNode, meta) })
	if err != nil {
		return nil, err
	}
	child, ok := built.(*ir.Object)
	if !ok {
		return nil, diag.Transpilef(diag.Opts(diag.At(at), diag.Schema(node)),
			"allOf child must be an object, got %s", built.Kind())
	}

	ps, err := c.Transpile(ir.Name(child)+"_parent", branches[0])
	if err != nil {
		return nil, err
	}
	parent, ok := ps.(*ir.Object)
	if !ok || !parent.Component.IsNamed() {
		return nil, diag.Compositionf(diag.Opts(diag.At(at), diag.Schema(node)),
			"allOf parent must be a named object component, got %s %q", ps.Kind(), ir.Name(ps))
	}
	if child.Parent != nil {
		child.Mixins = append([]*ir.Object{child.Parent}, child.Mixins...)
	}
	child.Parent = parent
	return child, nil
}

// guarded runs f with key marked pending, so that a cycle reaching key before
// f has cached anything fails instead of recursing forever.
func (c *Context) guarded(key *jsonschema.Schema, f func() (ir.Schema, error)) (ir.Schema, error) {
	c.pending[key] = struct{}{}
	defer delete(c.pending, key)
	return f()
}

func (c *Context) resolve(s *jsonschema.Schema) (*jsonschema.Schema, error) {
	return c.res.Resolve(s)
}

func (c *Context) pointer(meta ir.Meta) string {
	if meta.Component.IsNamed() {
		return string(meta.Component.ID)
	}
	if o := meta.Raw.Origin(); o != "" {
		return string(o)
	}
	return meta.Component.Name
}

// literalStrings returns the string literals an Enum or Discriminator accepts.
func literalStrings(s ir.Schema) []string {
	var out []string
	switch v := s.(type) {
	case *ir.Enum:
		for _, x := range v.Values {
			if str, ok := x.(string); ok {
				out = append(out, str)
			}
		}
	case *ir.Discriminator:
		out = append(out, v.Enum...)
	}
	return out
}
