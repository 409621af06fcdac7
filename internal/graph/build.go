package graph

import (
	"github.com/reoring/schemair/internal/resolve"
	"github.com/reoring/schemair/jsonschema"
)

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

type inlineKey struct {
	owner  jsonschema.Pointer
	target *jsonschema.Schema
}

type builder struct {
	g   *Graph
	doc *jsonschema.Document
	res *resolve.Resolver
	// states marks components on the current path (visiting) or finished (done).
	states map[jsonschema.Pointer]visitState
	// inline tracks non-component $ref targets already walked for an owner.
	inline map[inlineKey]struct{}
}

// Build walks the document depth-first from every declared component, in
// declaration order, and returns the dependency graph.
func Build(doc *jsonschema.Document) (*Graph, error) {
	b := &builder{
		g: &Graph{
			nodes:    make(map[jsonschema.Pointer]*Node),
			circular: make(map[jsonschema.Pointer]struct{}),
		},
		doc:    doc,
		res:    resolve.New(doc),
		states: make(map[jsonschema.Pointer]visitState),
		inline: make(map[inlineKey]struct{}),
	}
	for _, name := range doc.ComponentNames() {
		if err := b.component(name); err != nil {
			return nil, err
		}
	}
	return b.g, nil
}

// component enters a named component. A component met again while still on
// the path stack closes a cycle: it is marked circular and not descended.
func (b *builder) component(name string) error {
	id := b.doc.ComponentPointer(name)
	switch b.states[id] {
	case stateVisiting:
		b.g.markCircular(id)
		return nil
	case stateDone:
		return nil
	}
	b.g.register(id, name)
	b.states[id] = stateVisiting
	s, _ := b.doc.Component(name)
	if err := b.walk(id, s); err != nil {
		return err
	}
	b.states[id] = stateDone
	return nil
}

// walk descends an (inline) schema owned by component owner.
func (b *builder) walk(owner jsonschema.Pointer, s *jsonschema.Schema) error {
	if s == nil {
		return nil
	}
	if s.IsRef() {
		return b.ref(owner, s)
	}
	for _, list := range [][]*jsonschema.Schema{s.OneOf, s.AllOf, s.AnyOf} {
		for _, br := range list {
			if err := b.walk(owner, br); err != nil {
				return err
			}
		}
	}
	if s.Properties != nil {
		for _, ps := range s.Properties.All() {
			if err := b.walk(owner, ps); err != nil {
				return err
			}
		}
	}
	if err := b.walk(owner, s.AdditionalProperties); err != nil {
		return err
	}
	return b.walk(owner, s.Items)
}

func (b *builder) ref(owner jsonschema.Pointer, s *jsonschema.Schema) error {
	if name, ok := b.doc.ComponentName(jsonschema.Pointer(s.Ref)); ok {
		child := b.doc.ComponentPointer(name)
		if b.states[child] == stateVisiting {
			b.g.markCircular(child)
		}
		b.g.link(owner, child)
		return b.component(name)
	}
	// a pointer into a component (or an alias chain): walk the target inline
	target, err := b.res.Resolve(s)
	if err != nil {
		return err
	}
	key := inlineKey{owner: owner, target: target}
	if _, seen := b.inline[key]; seen {
		return nil
	}
	b.inline[key] = struct{}{}
	return b.walk(owner, target)
}
