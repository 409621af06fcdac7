package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/schemair/diag"
	"github.com/reoring/schemair/internal/graph"
	"github.com/reoring/schemair/jsonschema"
)

func mustParse(t *testing.T, src string) *jsonschema.Document {
	t.Helper()
	doc, err := jsonschema.Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

func ptr(name string) jsonschema.Pointer {
	return jsonschema.Pointer("#/components/schemas/" + name)
}

func edgeNames(g *graph.Graph) [][2]string {
	var out [][2]string
	for _, e := range g.Edges() {
		out = append(out, [2]string{e.From.Last(), e.To.Last()})
	}
	return out
}

func TestBuild_SelfReference(t *testing.T) {
	doc := mustParse(t, `
components:
  schemas:
    Node:
      type: object
      properties:
        parent:
          $ref: '#/components/schemas/Node'
        children:
          type: array
          items:
            $ref: '#/components/schemas/Node'
`)
	g, err := graph.Build(doc)
	require.NoError(t, err)

	assert.Equal(t, []jsonschema.Pointer{ptr("Node")}, g.Circular())
	require.Len(t, g.Nodes(), 1)
	assert.Equal(t, "Node", g.Nodes()[0].Name)
	assert.Empty(t, g.Edges(), "no self edge")
	assert.True(t, g.IsCircular(ptr("Node")))
}

func TestBuild_ThreeLevelChain(t *testing.T) {
	doc := mustParse(t, `
components:
  schemas:
    Node:
      type: object
      properties:
        child:
          $ref: '#/components/schemas/Child'
    Child:
      oneOf:
        - $ref: '#/components/schemas/A'
        - $ref: '#/components/schemas/B'
        - $ref: '#/components/schemas/Node'
    A:
      allOf:
        - $ref: '#/components/schemas/Base'
        - type: object
          properties:
            node:
              $ref: '#/components/schemas/Node'
    B:
      allOf:
        - $ref: '#/components/schemas/Base'
        - type: object
          properties:
            node:
              $ref: '#/components/schemas/Node'
    Base:
      type: object
      properties:
        id:
          type: string
`)
	g, err := graph.Build(doc)
	require.NoError(t, err)

	assert.Equal(t, []jsonschema.Pointer{ptr("Node")}, g.Circular())
	assert.Equal(t, [][2]string{
		{"Node", "Child"},
		{"Child", "A"},
		{"Child", "B"},
		{"A", "Base"},
		{"B", "Base"},
	}, edgeNames(g))

	assert.False(t, g.IsCircular(ptr("Child")))
	assert.True(t, g.IsOrHasCircular(ptr("Child")), "Child references circular Node")
	assert.True(t, g.IsOrHasCircular(ptr("A")))
	assert.False(t, g.IsOrHasCircular(ptr("Base")))
	assert.Equal(t, []jsonschema.Pointer{ptr("A"), ptr("B")}, g.Children(ptr("Child")))
}

func TestBuild_MutualRecursionDropsBackEdge(t *testing.T) {
	doc := mustParse(t, `
components:
  schemas:
    A:
      type: object
      properties:
        b: {$ref: '#/components/schemas/B'}
    B:
      type: object
      properties:
        a: {$ref: '#/components/schemas/A'}
`)
	g, err := graph.Build(doc)
	require.NoError(t, err)
	assert.Equal(t, []jsonschema.Pointer{ptr("A")}, g.Circular())
	assert.Equal(t, [][2]string{{"A", "B"}}, edgeNames(g))
}

func TestBuild_SharedLeafVisitedOnce(t *testing.T) {
	doc := mustParse(t, `
components:
  schemas:
    Leaf: {type: string}
    X:
      type: object
      properties:
        a: {$ref: '#/components/schemas/Leaf'}
        b: {$ref: '#/components/schemas/Leaf'}
    Y:
      type: array
      items: {$ref: '#/components/schemas/Leaf'}
`)
	g, err := graph.Build(doc)
	require.NoError(t, err)
	assert.Empty(t, g.Circular())
	assert.Equal(t, [][2]string{{"X", "Leaf"}, {"Y", "Leaf"}}, edgeNames(g))
	var names []string
	for _, n := range g.Nodes() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"Leaf", "X", "Y"}, names)
}

func TestBuild_PointerIntoComponentIsWalkedInline(t *testing.T) {
	doc := mustParse(t, `
components:
  schemas:
    Owner:
      type: object
      properties:
        pet: {$ref: '#/components/schemas/Pet'}
    Pet:
      type: object
      properties:
        tag:
          type: object
          properties:
            owner: {$ref: '#/components/schemas/Owner'}
    Other:
      type: object
      properties:
        tag: {$ref: '#/components/schemas/Pet/properties/tag'}
`)
	g, err := graph.Build(doc)
	require.NoError(t, err)
	// Other reaches Owner through Pet's inline tag; Owner is circular so the
	// edge is dropped but the reference is still recorded.
	assert.Equal(t, [][2]string{{"Owner", "Pet"}}, edgeNames(g))
	assert.True(t, g.IsCircular(ptr("Owner")))
	assert.True(t, g.IsOrHasCircular(ptr("Other")))
}

func TestBuild_DanglingPointerFails(t *testing.T) {
	doc := mustParse(t, `
components:
  schemas:
    A:
      type: object
      properties:
        b: {$ref: '#/components/schemas/Missing'}
`)
	_, err := graph.Build(doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, diag.ErrResolution)
	assert.Contains(t, err.Error(), "#/components/schemas/Missing")
}
