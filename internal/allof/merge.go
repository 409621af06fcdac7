// Package allof collapses allOf composition into either one flat schema or an
// explicit parent/child inheritance pair.
package allof

import (
	"strconv"

	"github.com/reoring/schemair/diag"
	"github.com/reoring/schemair/internal/resolve"
	"github.com/reoring/schemair/jsonschema"
)

// Stats counts what a Merge did.
type Stats struct {
	// Flattened is the number of allOf nodes replaced by one merged schema.
	Flattened int
	// Inherited is the number of allOf nodes rewritten to [parent, child] form.
	Inherited int
}

// Merge returns a copy of doc in which every allOf has been reduced:
//
//	parents  plain  result
//	0        0      untouched (warning)
//	0        >=1    plain branches deep-merged into the node itself
//	1        1      untouched when already [parentRef, child]
//	1        >=0    allOf: [parentRef, merged]
//	>=2      any    allOf: [P1, {allOf: [P2, ... merged]}]
//
// A parent is a $ref branch whose target declares a discriminator in doc, so
// the outcome does not depend on the order components are reduced in. A
// node's own discriminator stays on the node. doc itself is never modified.
func Merge(doc *jsonschema.Document, d *diag.Collector) (*jsonschema.Document, Stats, error) {
	out := doc.Clone()
	m := &merger{
		doc:     out,
		res:     resolve.New(out),
		diag:    d,
		parents: declared(out),
		done:    make(map[*jsonschema.Schema]struct{}),
		active:  make(map[*jsonschema.Schema]struct{}),
	}
	for _, name := range out.ComponentNames() {
		s, _ := out.Component(name)
		if err := m.visit(s, out.ComponentPointer(name)); err != nil {
			return nil, Stats{}, err
		}
	}
	return out, m.stats, nil
}

type merger struct {
	doc   *jsonschema.Document
	res   *resolve.Resolver
	diag  *diag.Collector
	stats Stats
	// parents holds the nodes that declared a discriminator before any
	// reduction; replace keeps node identity, so membership stays valid.
	parents map[*jsonschema.Schema]struct{}
	// done holds nodes already visited; aliased nodes are reduced once.
	done map[*jsonschema.Schema]struct{}
	// active holds nodes whose allOf is being flattened.
	active map[*jsonschema.Schema]struct{}
}

type branch struct {
	orig   *jsonschema.Schema // as written; a $ref for parents
	node   *jsonschema.Schema // resolved
	parent bool
}

func (m *merger) visit(s *jsonschema.Schema, at jsonschema.Pointer) error {
	if s == nil || s.IsRef() {
		return nil
	}
	if _, ok := m.done[s]; ok {
		return nil
	}
	m.done[s] = struct{}{}
	if len(s.AllOf) > 0 {
		if err := m.reduce(s, at); err != nil {
			return err
		}
	}
	if s.Properties != nil {
		for name, ps := range s.Properties.All() {
			if err := m.visit(ps, at.Child("properties", name)); err != nil {
				return err
			}
		}
	}
	if err := m.visit(s.AdditionalProperties, at.Child("additionalProperties")); err != nil {
		return err
	}
	if err := m.visit(s.Items, at.Child("items")); err != nil {
		return err
	}
	for _, c := range []struct {
		key  string
		list []*jsonschema.Schema
	}{{"allOf", s.AllOf}, {"oneOf", s.OneOf}, {"anyOf", s.AnyOf}} {
		for i, br := range c.list {
			if err := m.visit(br, at.Child(c.key, strconv.Itoa(i))); err != nil {
				return err
			}
		}
	}
	if s.Defs != nil {
		for name, ds := range s.Defs.All() {
			if err := m.visit(ds, at.Child(s.DefsKey, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

// reduce rewrites s in place; its identity is kept so aliases see the result.
func (m *merger) reduce(s *jsonschema.Schema, at jsonschema.Pointer) error {
	var branches []branch
	own := s.Discriminator
	m.active[s] = struct{}{}
	err := m.flatten(s, at, true, &branches)
	delete(m.active, s)
	if err != nil {
		return err
	}

	var parents, plain []branch
	for _, b := range branches {
		if b.parent {
			parents = append(parents, b)
		} else {
			plain = append(plain, b)
		}
	}

	switch {
	case len(parents) == 0 && len(plain) == 0:
		m.diag.Warnf("%s: allOf has no usable branch; left untouched", at)
		return nil
	case len(parents) == 0:
		merged, err := m.mergeAll(plain, at)
		if err != nil {
			return err
		}
		if own != nil {
			merged.Discriminator = own
		}
		replace(s, merged)
		m.stats.Flattened++
		return nil
	case len(parents) == 1 && len(plain) == 1 && len(s.AllOf) == 2 &&
		s.AllOf[0] == parents[0].orig && s.AllOf[1] == plain[0].orig:
		// already a parent ref followed by one child, possibly a $ref
		m.stats.Inherited++
		return nil
	}

	merged, err := m.mergeAll(plain, at)
	if err != nil {
		return err
	}
	var child *jsonschema.Schema
	switch {
	case !merged.IsEmpty():
		child = merged
	case len(parents) >= 2:
		child = &jsonschema.Schema{Type: jsonschema.TypeObject}
	}
	// right-associative: [P1, {allOf: [P2, ... [Pn, merged]]}]
	for i := len(parents) - 1; i >= 1; i-- {
		child = &jsonschema.Schema{AllOf: pair(parents[i], child)}
	}
	replace(s, &jsonschema.Schema{AllOf: pair(parents[0], child), Discriminator: own})
	m.stats.Inherited++
	return nil
}

func pair(parent branch, child *jsonschema.Schema) []*jsonschema.Schema {
	out := []*jsonschema.Schema{{Ref: parent.orig.Ref}}
	if child != nil {
		out = append(out, child)
	}
	return out
}

// flatten collects the branches of s.allOf, inlining nested allOf lists and
// the keys declared next to allOf (the "dangling" part) as a last branch.
// The discriminator of the node being reduced (top) is not part of it.
func (m *merger) flatten(s *jsonschema.Schema, at jsonschema.Pointer, top bool, out *[]branch) error {
	for i, br := range s.AllOf {
		brAt := at.Child("allOf", strconv.Itoa(i))
		node := br
		if br.IsRef() {
			target, err := m.res.Resolve(br)
			if err != nil {
				return err
			}
			if _, ok := m.parents[target]; ok {
				*out = append(*out, branch{orig: br, node: target, parent: true})
				continue
			}
			node = target
			brAt = jsonschema.Pointer(br.Ref)
		}
		if len(node.AllOf) > 0 {
			if _, loop := m.active[node]; loop {
				return diag.Compositionf(diag.Opts(diag.At(string(brAt)), diag.Schema(node)), "allOf chain refers back to itself")
			}
			m.active[node] = struct{}{}
			err := m.flatten(node, brAt, false, out)
			delete(m.active, node)
			if err != nil {
				return err
			}
			continue
		}
		if err := checkUnion(node, brAt); err != nil {
			return err
		}
		if node.IsEmpty() {
			continue
		}
		*out = append(*out, branch{orig: br, node: node})
	}
	rest := dangling(s)
	if top {
		rest.Discriminator = nil
	}
	if !rest.IsEmpty() {
		if err := checkUnion(rest, at); err != nil {
			return err
		}
		*out = append(*out, branch{orig: rest, node: rest})
	}
	return nil
}

func checkUnion(s *jsonschema.Schema, at jsonschema.Pointer) error {
	if len(s.OneOf) > 0 || len(s.AnyOf) > 0 {
		return diag.Compositionf(diag.Opts(diag.At(string(at)), diag.Schema(s)),
			"allOf over a oneOf/anyOf branch is not supported")
	}
	return nil
}

// dangling returns the keys of s other than allOf.
func dangling(s *jsonschema.Schema) *jsonschema.Schema {
	rest := s.ShallowCopy()
	rest.AllOf = nil
	rest.SetOrigin("")
	return rest
}

// replace overwrites s with v, keeping s's identity and origin.
func replace(s, v *jsonschema.Schema) {
	origin := s.Origin()
	*s = *v
	s.SetOrigin(origin)
}

// declared returns every node of doc that carries a discriminator.
func declared(doc *jsonschema.Document) map[*jsonschema.Schema]struct{} {
	out := make(map[*jsonschema.Schema]struct{})
	seen := make(map[*jsonschema.Schema]struct{})
	var walk func(*jsonschema.Schema)
	walk = func(s *jsonschema.Schema) {
		if s == nil {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		if s.Discriminator != nil {
			out[s] = struct{}{}
		}
		s.Walk(walk)
	}
	for _, name := range doc.ComponentNames() {
		s, _ := doc.Component(name)
		walk(s)
	}
	return out
}
