// Package toposort orders IR schemas so that every schema comes after the
// schemas it references.
package toposort

import (
	"strings"

	"github.com/reoring/schemair/diag"
	"github.com/reoring/schemair/ir"
)

// Sort returns schemas ordered dependencies-first. Ties keep input order.
//
// Edges follow array items, union members, object fields (discriminator
// fields excluded), additionalProperties and parents. An edge into a circular
// schema is dropped unless it is a parent edge. Schemas outside the input are
// walked through, not emitted. When two instances share a name, the last one
// in the input is kept and d gets a warning.
func Sort(schemas []ir.Schema, d *diag.Collector) ([]ir.Schema, error) {
	in := dedupe(schemas, d)
	s := &sorter{
		member: make(map[ir.Schema]struct{}, len(in)),
		deps:   make(map[ir.Schema][]ir.Schema, len(in)),
		state:  make(map[ir.Schema]int, len(in)),
	}
	for _, sc := range in {
		s.member[sc] = struct{}{}
	}
	for _, sc := range in {
		s.deps[sc] = s.collect(sc)
	}

	var out []ir.Schema
	var path []string
	var visit func(ir.Schema) error
	visit = func(n ir.Schema) error {
		switch s.state[n] {
		case visiting:
			return diag.Graphf(diag.Opts(diag.At(ir.Name(n))), "dependency cycle: %s -> %s",
				strings.Join(path, " -> "), ir.Name(n))
		case done:
			return nil
		}
		s.state[n] = visiting
		path = append(path, ir.Name(n))
		for _, dep := range s.deps[n] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		s.state[n] = done
		out = append(out, n)
		return nil
	}
	for _, sc := range in {
		if err := visit(sc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const (
	visiting = iota + 1
	done
)

type sorter struct {
	member map[ir.Schema]struct{}
	deps   map[ir.Schema][]ir.Schema
	state  map[ir.Schema]int
}

// collect returns the input schemas n depends on, in child order.
func (s *sorter) collect(n ir.Schema) []ir.Schema {
	var out []ir.Schema
	added := make(map[ir.Schema]struct{})
	walked := map[ir.Schema]struct{}{n: {}}
	var walk func(ir.Schema)
	walk = func(cur ir.Schema) {
		for _, e := range children(cur) {
			if e.schema == nil || (!e.parent && ir.IsCircular(e.schema)) {
				continue
			}
			if _, ok := s.member[e.schema]; ok {
				if _, dup := added[e.schema]; !dup && e.schema != n {
					added[e.schema] = struct{}{}
					out = append(out, e.schema)
				}
				continue
			}
			if _, ok := walked[e.schema]; ok {
				continue
			}
			walked[e.schema] = struct{}{}
			walk(e.schema)
		}
	}
	walk(n)
	return out
}

type edge struct {
	schema ir.Schema
	parent bool
}

func children(n ir.Schema) []edge {
	var out []edge
	switch v := n.(type) {
	case *ir.Array:
		out = append(out, edge{schema: v.Items})
	case *ir.Union:
		for _, m := range v.Schemas {
			out = append(out, edge{schema: m})
		}
	case *ir.Object:
		if v.Parent != nil {
			out = append(out, edge{schema: v.Parent, parent: true})
		}
		for _, m := range v.Mixins {
			out = append(out, edge{schema: m, parent: true})
		}
		for _, f := range v.Fields {
			if f.Schema == nil || f.Schema.Kind() == ir.KindDiscriminator {
				continue
			}
			out = append(out, edge{schema: f.Schema})
		}
		if v.Additional != nil {
			out = append(out, edge{schema: v.Additional})
		}
	}
	return out
}

// dedupe keeps one instance per name: the last in input order.
func dedupe(schemas []ir.Schema, d *diag.Collector) []ir.Schema {
	byName := make(map[string]ir.Schema, len(schemas))
	keep := make([]bool, len(schemas))
	for i := len(schemas) - 1; i >= 0; i-- {
		sc := schemas[i]
		if sc == nil {
			continue
		}
		name := ir.Name(sc)
		if prev, ok := byName[name]; ok {
			if prev != sc {
				d.Warnf("schema %q appears as two distinct IR nodes; keeping the last", name)
			}
			continue
		}
		byName[name] = sc
		keep[i] = true
	}
	out := make([]ir.Schema, 0, len(byName))
	for i, sc := range schemas {
		if keep[i] {
			out = append(out, sc)
		}
	}
	return out
}
