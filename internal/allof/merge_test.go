package allof_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/schemair/diag"
	"github.com/reoring/schemair/internal/allof"
	"github.com/reoring/schemair/jsonschema"
)

func parse(t *testing.T, src string) *jsonschema.Document {
	t.Helper()
	doc, err := jsonschema.Parse([]byte(src))
	require.NoError(t, err)
	return doc
}

func merge(t *testing.T, doc *jsonschema.Document) (*jsonschema.Document, *diag.Collector) {
	t.Helper()
	d := &diag.Collector{}
	out, _, err := allof.Merge(doc, d)
	require.NoError(t, err)
	return out, d
}

func component(t *testing.T, doc *jsonschema.Document, name string) *jsonschema.Schema {
	t.Helper()
	s, ok := doc.Component(name)
	require.True(t, ok, name)
	return s
}

func propNames(s *jsonschema.Schema) []string {
	var out []string
	if s.Properties == nil {
		return out
	}
	for k := range s.Properties.All() {
		out = append(out, k)
	}
	return out
}

func TestMerge_LastWinsOnScalars(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    T:
      allOf:
        - title: a
        - title: b
`)
	out, _ := merge(t, doc)
	s := component(t, out, "T")
	assert.Equal(t, "b", s.Title)
	assert.Empty(t, s.AllOf)

	// caller's document untouched
	orig := component(t, doc, "T")
	assert.Len(t, orig.AllOf, 2)
	assert.Empty(t, orig.Title)
}

func TestMerge_FlattensPlainRefsAndDangling(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    Base:
      type: object
      required: [id]
      properties:
        id: {type: string}
    Audit:
      allOf:
        - type: object
          required: [createdAt]
          properties:
            createdAt: {type: string, format: date-time}
    Pet:
      description: a pet
      required: [name]
      properties:
        name: {type: string}
      allOf:
        - $ref: '#/components/schemas/Base'
        - $ref: '#/components/schemas/Audit'
`)
	out, _ := merge(t, doc)
	pet := component(t, out, "Pet")
	assert.Empty(t, pet.AllOf)
	assert.Equal(t, jsonschema.TypeObject, pet.Type)
	assert.Equal(t, "a pet", pet.Description)
	assert.Equal(t, []string{"id", "createdAt", "name"}, propNames(pet))
	assert.Equal(t, []string{"id", "createdAt", "name"}, pet.Required)

	// Base is copied, not shared
	base := component(t, out, "Base")
	id, _ := pet.Property("id")
	baseID, _ := base.Property("id")
	assert.NotSame(t, baseID, id)
}

func TestMerge_SingleDiscriminatorParent(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    Pet:
      type: object
      discriminator:
        propertyName: kind
      properties:
        kind: {type: string}
    Mixin:
      type: object
      properties:
        tag: {type: string}
    Dog:
      allOf:
        - $ref: '#/components/schemas/Pet'
        - $ref: '#/components/schemas/Mixin'
        - type: object
          properties:
            bark: {type: boolean}
`)
	out, _ := merge(t, doc)
	dog := component(t, out, "Dog")
	require.Len(t, dog.AllOf, 2)
	assert.Equal(t, "#/components/schemas/Pet", dog.AllOf[0].Ref)
	child := dog.AllOf[1]
	assert.False(t, child.IsRef())
	assert.Equal(t, []string{"tag", "bark"}, propNames(child))
}

func TestMerge_OneParentOneChildStaysPair(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    Pet:
      type: object
      discriminator: {propertyName: kind}
    Cat:
      allOf:
        - $ref: '#/components/schemas/Pet'
        - type: object
          properties:
            lives: {type: integer}
`)
	out, _ := merge(t, doc)
	cat := component(t, out, "Cat")
	require.Len(t, cat.AllOf, 2)
	assert.Equal(t, "#/components/schemas/Pet", cat.AllOf[0].Ref)
	assert.Equal(t, []string{"lives"}, propNames(cat.AllOf[1]))
}

func TestMerge_TwoParentsNestRightAssociative(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    A:
      type: object
      discriminator: {propertyName: a}
    B:
      type: object
      discriminator: {propertyName: b}
    C:
      allOf:
        - $ref: '#/components/schemas/A'
        - $ref: '#/components/schemas/B'
        - type: object
          properties:
            x: {type: string}
`)
	out, _ := merge(t, doc)
	c := component(t, out, "C")
	require.Len(t, c.AllOf, 2)
	assert.Equal(t, "#/components/schemas/A", c.AllOf[0].Ref)
	inner := c.AllOf[1]
	require.Len(t, inner.AllOf, 2)
	assert.Equal(t, "#/components/schemas/B", inner.AllOf[0].Ref)
	assert.Equal(t, []string{"x"}, propNames(inner.AllOf[1]))
}

func TestMerge_InheritsParentThroughPlainRef(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    Pet:
      type: object
      discriminator: {propertyName: kind}
    Dog:
      allOf:
        - $ref: '#/components/schemas/Pet'
        - type: object
          properties:
            bark: {type: boolean}
    Puppy:
      allOf:
        - $ref: '#/components/schemas/Dog'
        - type: object
          properties:
            age: {type: integer}
`)
	out, _ := merge(t, doc)
	puppy := component(t, out, "Puppy")
	require.Len(t, puppy.AllOf, 2)
	assert.Equal(t, "#/components/schemas/Pet", puppy.AllOf[0].Ref)
	assert.Equal(t, []string{"bark", "age"}, propNames(puppy.AllOf[1]))
}

func TestMerge_PropertyRefKeptWhenInlineIdentical(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    Name: {type: string, maxLength: 10}
    T:
      allOf:
        - properties:
            n: {$ref: '#/components/schemas/Name'}
            m: {$ref: '#/components/schemas/Name'}
        - properties:
            n: {type: string, maxLength: 10}
            m: {type: string, title: override}
`)
	out, _ := merge(t, doc)
	tt := component(t, out, "T")
	n, _ := tt.Property("n")
	assert.Equal(t, "#/components/schemas/Name", n.Ref)

	m, _ := tt.Property("m")
	assert.False(t, m.IsRef())
	assert.Equal(t, "override", m.Title)
	require.NotNil(t, m.MaxLength)
	assert.EqualValues(t, 10, *m.MaxLength)

	name := component(t, out, "Name")
	assert.Empty(t, name.Title, "ref target not mutated")
}

func TestMerge_RejectsUnionBranches(t *testing.T) {
	for _, src := range []string{`
components:
  schemas:
    T:
      allOf:
        - oneOf: [{type: string}, {type: integer}]
`, `
components:
  schemas:
    U:
      anyOf: [{type: string}]
    T:
      allOf:
        - $ref: '#/components/schemas/U'
`} {
		_, _, err := allof.Merge(parse(t, src), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, diag.ErrComposition)
	}
}

func TestMerge_SelfReferentialAllOfFails(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    A:
      allOf:
        - $ref: '#/components/schemas/B'
    B:
      allOf:
        - $ref: '#/components/schemas/A'
`)
	_, _, err := allof.Merge(doc, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, diag.ErrComposition)
}

func TestMerge_DegenerateAllOfWarns(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    T:
      allOf:
        - {}
`)
	out, d := merge(t, doc)
	assert.Len(t, component(t, out, "T").AllOf, 1)
	assert.True(t, d.HasWarnings())
}

func TestMerge_NestedAllOfInsideProperties(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    T:
      type: object
      properties:
        inner:
          allOf:
            - properties: {a: {type: string}}
            - properties: {b: {type: string}}
`)
	out, _ := merge(t, doc)
	inner, _ := component(t, out, "T").Property("inner")
	assert.Empty(t, inner.AllOf)
	assert.Equal(t, []string{"a", "b"}, propNames(inner))
}

func TestMerge_IdempotentWithoutAllOf(t *testing.T) {
	doc := parse(t, `
openapi: 3.0.0
components:
  schemas:
    Pet:
      type: object
      properties:
        id: {type: integer}
        owner: {$ref: '#/components/schemas/Owner'}
    Owner:
      oneOf:
        - {type: string}
        - {type: integer}
`)
	once, _ := merge(t, doc)
	twice, _ := merge(t, once)
	a, err := once.EncodeYAML()
	require.NoError(t, err)
	b, err := twice.EncodeYAML()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	orig, err := doc.EncodeYAML()
	require.NoError(t, err)
	assert.Equal(t, string(orig), string(a))
}

func TestMerge_IdempotentOnInheritance(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    Pet:
      type: object
      discriminator: {propertyName: kind}
    Dog:
      allOf:
        - $ref: '#/components/schemas/Pet'
        - properties: {a: {type: string}}
        - properties: {b: {type: string}}
`)
	once, _ := merge(t, doc)
	twice, _ := merge(t, once)
	a, _ := once.EncodeYAML()
	b, _ := twice.EncodeYAML()
	assert.Equal(t, string(a), string(b))
}

func TestMerge_MidLevelParentIndependentOfOrder(t *testing.T) {
	const (
		pet = `
    Pet:
      type: object
      discriminator: {propertyName: petType}
      properties:
        petType: {type: string}
`
		dog = `
    Dog:
      discriminator: {propertyName: breed}
      allOf:
        - $ref: '#/components/schemas/Pet'
        - type: object
          properties:
            breed: {type: string}
`
		puppy = `
    Puppy:
      allOf:
        - $ref: '#/components/schemas/Dog'
        - type: object
          properties:
            age: {type: integer}
`
	)
	for name, body := range map[string]string{
		"dog first":   pet + dog + puppy,
		"puppy first": pet + puppy + dog,
	} {
		t.Run(name, func(t *testing.T) {
			doc := parse(t, "components:\n  schemas:"+body)
			out, _ := merge(t, doc)

			puppy := component(t, out, "Puppy")
			require.Len(t, puppy.AllOf, 2)
			assert.Equal(t, "#/components/schemas/Dog", puppy.AllOf[0].Ref)
			assert.Equal(t, []string{"age"}, propNames(puppy.AllOf[1]))

			dog := component(t, out, "Dog")
			require.NotNil(t, dog.Discriminator)
			assert.Equal(t, "breed", dog.Discriminator.PropertyName)
			require.Len(t, dog.AllOf, 2)
			assert.Equal(t, "#/components/schemas/Pet", dog.AllOf[0].Ref)
			assert.Nil(t, dog.AllOf[1].Discriminator)

			twice, _ := merge(t, out)
			a, _ := out.EncodeYAML()
			b, _ := twice.EncodeYAML()
			assert.Equal(t, string(a), string(b))
		})
	}
}

func TestMerge_OneParentOneRefChildUntouched(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    Pet:
      type: object
      discriminator: {propertyName: petType}
    DogFields:
      type: object
      properties:
        bark: {type: boolean}
    Dog:
      allOf:
        - $ref: '#/components/schemas/Pet'
        - $ref: '#/components/schemas/DogFields'
`)
	out, _, err := allof.Merge(doc, &diag.Collector{})
	require.NoError(t, err)
	dog := component(t, out, "Dog")
	require.Len(t, dog.AllOf, 2)
	assert.Equal(t, "#/components/schemas/Pet", dog.AllOf[0].Ref)
	assert.Equal(t, "#/components/schemas/DogFields", dog.AllOf[1].Ref)
}

func TestMerge_ConflictingRefPropertyIsInlined(t *testing.T) {
	doc := parse(t, `
components:
  schemas:
    Name: {type: string, maxLength: 10}
    T:
      allOf:
        - properties:
            n: {$ref: '#/components/schemas/Name'}
        - properties:
            n: {type: string, title: mine}
`)
	out, _ := merge(t, doc)
	n, _ := component(t, out, "T").Property("n")
	assert.False(t, n.IsRef())
	assert.Empty(t, n.Origin(), "inlined copy carries no origin")

	orig, _ := component(t, doc, "T").AllOf[0].Property("n")
	assert.Equal(t, "#/components/schemas/Name", orig.Ref, "source branch keeps its $ref")
}
