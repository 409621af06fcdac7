// Package graph builds the component-to-component dependency graph of a
// bundled document and determines which components lie on a reference cycle.
package graph

import "github.com/reoring/schemair/jsonschema"

// Node is a named component and the components it depends on.
type Node struct {
	ID   jsonschema.Pointer
	Name string
	// Children are the non-circular components this node references, in
	// document traversal order.
	Children []jsonschema.Pointer

	childSet map[jsonschema.Pointer]struct{}
	// refs includes circular children, whose edges are omitted.
	refs map[jsonschema.Pointer]struct{}
}

// Edge is a directed dependency parent -> child.
type Edge struct {
	From jsonschema.Pointer
	To   jsonschema.Pointer
}

// Graph is the result of Build. It is immutable once built.
type Graph struct {
	nodes    map[jsonschema.Pointer]*Node
	order    []jsonschema.Pointer
	circular map[jsonschema.Pointer]struct{}
	cycOrder []jsonschema.Pointer
}

// IsCircular reports whether ref was revisited while on the traversal path.
func (g *Graph) IsCircular(ref jsonschema.Pointer) bool {
	if g == nil {
		return false
	}
	_, ok := g.circular[ref]
	return ok
}

// IsOrHasCircular reports whether ref, or any component it references
// directly, is circular.
func (g *Graph) IsOrHasCircular(ref jsonschema.Pointer) bool {
	if g.IsCircular(ref) {
		return true
	}
	n := g.nodes[ref]
	if n == nil {
		return false
	}
	for c := range n.refs {
		if g.IsCircular(c) {
			return true
		}
	}
	return false
}

// Children returns the recorded (non-circular) dependencies of ref.
func (g *Graph) Children(ref jsonschema.Pointer) []jsonschema.Pointer {
	n := g.nodes[ref]
	if n == nil {
		return nil
	}
	return append([]jsonschema.Pointer(nil), n.Children...)
}

// Node returns the node registered for ref.
func (g *Graph) Node(ref jsonschema.Pointer) (*Node, bool) {
	n, ok := g.nodes[ref]
	return n, ok
}

// Nodes returns nodes in registration (pre-order traversal) order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns every edge, grouped by parent in node registration order and
// by child in traversal order.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, id := range g.order {
		for _, c := range g.nodes[id].Children {
			out = append(out, Edge{From: id, To: c})
		}
	}
	return out
}

// Circular returns the circular set in discovery order.
func (g *Graph) Circular() []jsonschema.Pointer {
	return append([]jsonschema.Pointer(nil), g.cycOrder...)
}

func (g *Graph) register(id jsonschema.Pointer, name string) *Node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &Node{
		ID:       id,
		Name:     name,
		childSet: make(map[jsonschema.Pointer]struct{}),
		refs:     make(map[jsonschema.Pointer]struct{}),
	}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n
}

func (g *Graph) markCircular(id jsonschema.Pointer) {
	if _, ok := g.circular[id]; ok {
		return
	}
	g.circular[id] = struct{}{}
	g.cycOrder = append(g.cycOrder, id)
}

// link records that parent references child; the edge itself is omitted
// when child is already known to be circular.
func (g *Graph) link(parent, child jsonschema.Pointer) {
	n := g.nodes[parent]
	n.refs[child] = struct{}{}
	if g.IsCircular(child) {
		return
	}
	if _, dup := n.childSet[child]; dup {
		return
	}
	n.childSet[child] = struct{}{}
	n.Children = append(n.Children, child)
}
