package jsonschema_test

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/schemair/jsonschema"
)

const petstore = `
openapi: 3.0.3
info:
  title: pets
  version: "1"
paths: {}
components:
  schemas:
    Pet:
      type: object
      required: [id]
      x-go-name: PetModel
      properties:
        id: {type: integer, format: int64}
        name: {type: string, minLength: 1}
        tag:
          type: [string, "null"]
        owner:
          $ref: '#/components/schemas/Owner'
    Owner:
      type: object
      additionalProperties:
        type: string
    Kind:
      type: string
      enum: [a, b]
`

func TestParse_ComponentsInDeclarationOrder(t *testing.T) {
	doc, err := jsonschema.Parse([]byte(petstore))
	require.NoError(t, err)
	assert.Equal(t, []string{"Pet", "Owner", "Kind"}, doc.ComponentNames())

	pet, ok := doc.Component("Pet")
	require.True(t, ok)
	assert.Equal(t, jsonschema.TypeObject, pet.Type)
	assert.True(t, pet.IsRequired("id"))

	var names []string
	for k := range pet.Properties.All() {
		names = append(names, k)
	}
	assert.Equal(t, []string{"id", "name", "tag", "owner"}, names)

	tag, _ := pet.Property("tag")
	assert.Equal(t, jsonschema.TypeString, tag.Type)
	assert.True(t, tag.Nullable, "null in type array maps to nullable")

	owner, _ := pet.Property("owner")
	assert.True(t, owner.IsRef())

	o, _ := doc.Component("Owner")
	require.NotNil(t, o.AdditionalProperties)
	assert.Equal(t, jsonschema.TypeString, o.AdditionalProperties.Type)

	k, _ := doc.Component("Kind")
	lits, ok := k.Literals()
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, lits)
}

func TestParse_DefsTable(t *testing.T) {
	doc, err := jsonschema.Parse([]byte(`
$defs:
  A: {type: string}
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"$defs"}, doc.SchemasPath)
	assert.Equal(t, jsonschema.Pointer("#/$defs/A"), doc.ComponentPointer("A"))
	name, ok := doc.ComponentName("#/$defs/A")
	assert.True(t, ok)
	assert.Equal(t, "A", name)
	_, ok = doc.ComponentName("#/$defs/A/items")
	assert.False(t, ok)
}

func TestParse_Rejects(t *testing.T) {
	for _, src := range []string{
		"",
		"- a\n- b\n",
		"components:\n  schemas:\n    A: false\n",
		"components:\n  schemas:\n    A: {type: [string, integer]}\n",
	} {
		if _, err := jsonschema.Parse([]byte(src)); err == nil {
			t.Fatalf("expected error for %q", src)
		}
	}
}

func TestParse_YAMLAnchorsShareIdentity(t *testing.T) {
	doc, err := jsonschema.Parse([]byte(`
components:
  schemas:
    A:
      type: object
      properties:
        x: &shared {type: string, format: uuid}
        y: *shared
`))
	require.NoError(t, err)
	a, _ := doc.Component("A")
	x, _ := a.Property("x")
	y, _ := a.Property("y")
	if x != y {
		t.Fatalf("aliased yaml nodes must decode to one *Schema")
	}
}

func TestDocument_EncodeKeepsNonSchemaKeys(t *testing.T) {
	doc, err := jsonschema.Parse([]byte(petstore))
	require.NoError(t, err)
	out, err := doc.EncodeYAML()
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "openapi: 3.0.3")
	assert.Contains(t, s, "x-go-name: PetModel")
	assert.Less(t, strings.Index(s, "Pet:"), strings.Index(s, "Owner:"))

	again, err := jsonschema.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, doc.ComponentNames(), again.ComponentNames())
}

func TestDocument_MarshalJSON(t *testing.T) {
	doc, err := jsonschema.Parse([]byte(petstore))
	require.NoError(t, err)
	b, err := json.Marshal(doc)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(b, &generic))
	schemas := generic["components"].(map[string]any)["schemas"].(map[string]any)
	assert.Len(t, schemas, 3)
	assert.True(t, strings.Index(string(b), `"Pet"`) < strings.Index(string(b), `"Owner"`))
}

func TestClone_IsDeepAndKeepsAliasing(t *testing.T) {
	doc, err := jsonschema.Parse([]byte(`
components:
  schemas:
    A:
      type: object
      properties:
        x: &shared {type: string}
        y: *shared
`))
	require.NoError(t, err)
	cp := doc.Clone()

	a, _ := doc.Component("A")
	ca, _ := cp.Component("A")
	require.NotSame(t, a, ca)

	cx, _ := ca.Property("x")
	cy, _ := ca.Property("y")
	require.Same(t, cx, cy)

	cx.Title = "changed"
	ca.AddRequired("x")
	x, _ := a.Property("x")
	assert.Empty(t, x.Title, "original untouched")
	assert.Empty(t, a.Required)
}

func TestSchema_IsEmpty(t *testing.T) {
	s, err := jsonschema.ParseSchema([]byte(`{}`))
	require.NoError(t, err)
	assert.True(t, s.IsEmpty())
	s, err = jsonschema.ParseSchema([]byte(`{x-foo: 1}`))
	require.NoError(t, err)
	assert.False(t, s.IsEmpty())
}

func TestParse_NestedDefinitions(t *testing.T) {
	doc, err := jsonschema.Parse([]byte(`
components:
  schemas:
    Envelope:
      type: object
      properties:
        body: {$ref: '#/components/schemas/Envelope/definitions/Body'}
      definitions:
        Body: {type: string}
`))
	require.NoError(t, err)
	env, _ := doc.Component("Envelope")
	body, ok := env.Def("Body")
	require.True(t, ok)
	assert.Equal(t, "definitions", env.DefsKey)
	assert.Equal(t, jsonschema.TypeString, body.Type)

	var walked []*jsonschema.Schema
	env.Walk(func(s *jsonschema.Schema) { walked = append(walked, s) })
	assert.Contains(t, walked, body)

	cp := env.Clone()
	cpBody, _ := cp.Def("Body")
	assert.NotSame(t, body, cpBody)

	out, err := doc.EncodeYAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "definitions:")
	assert.NotContains(t, string(out), "$defs")
}
