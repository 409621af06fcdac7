package allof

import (
	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"

	"github.com/reoring/schemair/jsonschema"
)

// mergeAll deep-merges plain branches left to right into a fresh schema.
// Branch content is cloned first so no source node is ever modified.
func (m *merger) mergeAll(plain []branch, at jsonschema.Pointer) (*jsonschema.Schema, error) {
	out := &jsonschema.Schema{}
	for _, b := range plain {
		if err := m.into(out, b.node.Clone(), at); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// into merges src into dst. Scalars: last wins. Properties: merged by name.
// Required: union in first-seen order.
func (m *merger) into(dst, src *jsonschema.Schema, at jsonschema.Pointer) error {
	if src.Type != "" {
		dst.Type = src.Type
	}
	dst.Nullable = dst.Nullable || src.Nullable
	lastString(&dst.Format, src.Format)
	lastString(&dst.Title, src.Title)
	lastString(&dst.Description, src.Description)
	lastString(&dst.Pattern, src.Pattern)
	lastPtr(&dst.AdditionalAllowed, src.AdditionalAllowed)
	lastPtr(&dst.MinItems, src.MinItems)
	lastPtr(&dst.MaxItems, src.MaxItems)
	lastPtr(&dst.MinLength, src.MinLength)
	lastPtr(&dst.MaxLength, src.MaxLength)
	lastPtr(&dst.Minimum, src.Minimum)
	lastPtr(&dst.Maximum, src.Maximum)
	lastPtr(&dst.MultipleOf, src.MultipleOf)
	if len(src.Enum) > 0 {
		dst.Enum = src.Enum
	}
	if src.Const != nil {
		dst.Const = src.Const
	}
	if src.Discriminator != nil {
		dst.Discriminator = src.Discriminator
	}
	for _, r := range src.Required {
		dst.AddRequired(r)
	}
	if src.Properties != nil {
		for name, sp := range src.Properties.All() {
			dp, ok := dst.Property(name)
			if !ok {
				dst.SetProperty(name, sp)
				continue
			}
			merged, err := m.property(dp, sp, at.Child("properties", name))
			if err != nil {
				return err
			}
			dst.SetProperty(name, merged)
		}
	}
	var err error
	if dst.AdditionalProperties, err = m.optional(dst.AdditionalProperties, src.AdditionalProperties, at.Child("additionalProperties")); err != nil {
		return err
	}
	if dst.AdditionalProperties != nil {
		dst.AdditionalAllowed = nil
	}
	if dst.Items, err = m.optional(dst.Items, src.Items, at.Child("items")); err != nil {
		return err
	}
	// nested allOf/oneOf inside branches are reduced on their own visit
	dst.AllOf = append(dst.AllOf, src.AllOf...)
	dst.OneOf = append(dst.OneOf, src.OneOf...)
	dst.AnyOf = append(dst.AnyOf, src.AnyOf...)
	if src.Defs != nil {
		if dst.Defs == nil {
			dst.Defs = jsonschema.NewProperties()
		}
		for name, d := range src.Defs.All() {
			dst.Defs.Set(name, d)
		}
		lastString(&dst.DefsKey, src.DefsKey)
	}
	if src.Extra != nil {
		for k, v := range src.Extra.All() {
			if dst.Extra == nil {
				dst.Extra = sequencedmap.New[string, *yaml.Node]()
			}
			dst.Extra.Set(k, v)
		}
	}
	return nil
}

func (m *merger) optional(dst, src *jsonschema.Schema, at jsonschema.Pointer) (*jsonschema.Schema, error) {
	switch {
	case src == nil:
		return dst, nil
	case dst == nil:
		return src, nil
	}
	return m.property(dst, src, at)
}

// property merges two declarations of the same property. A $ref survives only
// when the other side is structurally identical to its target; otherwise both
// are deep-merged and the $ref is dropped.
func (m *merger) property(a, b *jsonschema.Schema, at jsonschema.Pointer) (*jsonschema.Schema, error) {
	switch {
	case a.IsRef() && b.IsRef():
		if a.Ref == b.Ref {
			return a, nil
		}
	case a.IsRef() || b.IsRef():
		ref, inline := a, b
		if b.IsRef() {
			ref, inline = b, a
		}
		target, err := m.res.Resolve(ref)
		if err != nil {
			return nil, err
		}
		if jsonschema.Equal(inline, target) {
			return &jsonschema.Schema{Ref: ref.Ref}, nil
		}
	default:
		if err := m.into(a, b, at); err != nil {
			return nil, err
		}
		return a, nil
	}
	left, err := m.content(a)
	if err != nil {
		return nil, err
	}
	right, err := m.content(b)
	if err != nil {
		return nil, err
	}
	if err := m.into(left, right, at); err != nil {
		return nil, err
	}
	return left, nil
}

// content returns an owned, inline copy of s's content. s belongs to a cloned
// branch and is being replaced, so its $ref is consumed.
func (m *merger) content(s *jsonschema.Schema) (*jsonschema.Schema, error) {
	if !s.IsRef() {
		return s, nil
	}
	target, err := m.res.ResolveConsume(s)
	if err != nil {
		return nil, err
	}
	cp := target.Clone()
	cp.SetOrigin("")
	return cp, nil
}

func lastString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func lastPtr[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}
