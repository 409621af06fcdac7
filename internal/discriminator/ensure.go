// Package discriminator makes every subtype named by a discriminator mapping
// declare the discriminator property with a literal type.
package discriminator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/reoring/schemair/diag"
	"github.com/reoring/schemair/internal/resolve"
	"github.com/reoring/schemair/jsonschema"
)

// Options tunes Ensure.
type Options struct {
	// ImplicitMapping derives "ComponentName -> pointer" entries from the oneOf
	// $ref branches when a discriminator has no explicit mapping.
	ImplicitMapping bool
	Diag            *diag.Collector
}

// Stats counts what Ensure did.
type Stats struct {
	Discriminators int
	Entries        int
	Synthesized    int
}

// Ensure rewrites doc in place. Running it twice is a no-op the second time.
func Ensure(doc *jsonschema.Document, opts Options) (Stats, error) {
	e := &ensurer{
		doc:  doc,
		res:  resolve.New(doc),
		opts: opts,
		seen: make(map[*jsonschema.Schema]struct{}),
	}
	for _, name := range doc.ComponentNames() {
		s, _ := doc.Component(name)
		if err := e.walk(s, doc.ComponentPointer(name)); err != nil {
			return Stats{}, err
		}
	}
	return e.stats, nil
}

type ensurer struct {
	doc   *jsonschema.Document
	res   *resolve.Resolver
	opts  Options
	stats Stats
	seen  map[*jsonschema.Schema]struct{}
}

func (e *ensurer) walk(s *jsonschema.Schema, at jsonschema.Pointer) error {
	if s == nil || s.IsRef() {
		return nil
	}
	if _, ok := e.seen[s]; ok {
		return nil
	}
	e.seen[s] = struct{}{}
	if s.Discriminator != nil {
		if err := e.union(s, at); err != nil {
			return err
		}
	}
	if s.Properties != nil {
		for name, ps := range s.Properties.All() {
			if err := e.walk(ps, at.Child("properties", name)); err != nil {
				return err
			}
		}
	}
	if err := e.walk(s.AdditionalProperties, at.Child("additionalProperties")); err != nil {
		return err
	}
	if err := e.walk(s.Items, at.Child("items")); err != nil {
		return err
	}
	for _, c := range []struct {
		key  string
		list []*jsonschema.Schema
	}{{"allOf", s.AllOf}, {"oneOf", s.OneOf}, {"anyOf", s.AnyOf}} {
		for i, br := range c.list {
			if err := e.walk(br, at.Child(c.key, strconv.Itoa(i))); err != nil {
				return err
			}
		}
	}
	if s.Defs != nil {
		for name, ds := range s.Defs.All() {
			if err := e.walk(ds, at.Child(s.DefsKey, name)); err != nil {
				return err
			}
		}
	}
	return nil
}

type entry struct {
	key     string
	pointer jsonschema.Pointer
	target  *jsonschema.Schema
}

// union handles one schema carrying a discriminator.
func (e *ensurer) union(s *jsonschema.Schema, at jsonschema.Pointer) error {
	prop := s.Discriminator.PropertyName
	if prop == "" {
		return diag.Compositionf(diag.Opts(diag.At(string(at)), diag.Schema(s)), "discriminator has no propertyName")
	}
	entries, err := e.entries(s, at)
	if err != nil || len(entries) == 0 {
		return err
	}
	e.stats.Discriminators++

	shared := e.sharedAncestors(entries)
	for _, en := range entries {
		if err := e.subtype(en.target, prop, en.key, shared, en.pointer); err != nil {
			return err
		}
		e.stats.Entries++
	}
	return nil
}

// entries resolves the mapping, or derives one from the oneOf references.
func (e *ensurer) entries(s *jsonschema.Schema, at jsonschema.Pointer) ([]entry, error) {
	var out []entry
	explicit := s.Discriminator.Entries()
	if len(explicit) == 0 && e.opts.ImplicitMapping {
		for _, br := range s.OneOf {
			if !br.IsRef() {
				continue
			}
			name, ok := e.doc.ComponentName(jsonschema.Pointer(br.Ref))
			if !ok {
				continue
			}
			explicit = append(explicit, jsonschema.MappingEntry{Key: name, Pointer: jsonschema.Pointer(br.Ref)})
		}
		if len(explicit) > 0 {
			e.opts.Diag.Warnf("%s: discriminator %q has no mapping; derived %d entries from oneOf", at, s.Discriminator.PropertyName, len(explicit))
		}
	}
	for _, m := range explicit {
		p := m.Pointer
		if !strings.HasPrefix(string(p), "#") {
			// bare component name
			p = e.doc.ComponentPointer(string(p))
		}
		target, err := e.res.Resolve(&jsonschema.Schema{Ref: string(p)})
		if err != nil {
			return nil, diag.Compositionf(diag.Opts(diag.At(string(at)), diag.Schema(s), diag.Cause(err)),
				"discriminator mapping %q -> %s cannot be resolved", m.Key, p)
		}
		out = append(out, entry{key: m.Key, pointer: p, target: target})
	}
	return out, nil
}

// sharedAncestors returns the components reached through allOf references by
// two or more distinct mapped subtypes.
func (e *ensurer) sharedAncestors(entries []entry) map[*jsonschema.Schema]struct{} {
	counts := make(map[*jsonschema.Schema]int)
	distinct := make(map[*jsonschema.Schema]struct{})
	for _, en := range entries {
		if _, dup := distinct[en.target]; dup {
			continue
		}
		distinct[en.target] = struct{}{}
		anc := make(map[*jsonschema.Schema]struct{})
		e.ancestors(en.target, anc)
		for a := range anc {
			counts[a]++
		}
	}
	out := make(map[*jsonschema.Schema]struct{})
	for a, n := range counts {
		if n >= 2 {
			out[a] = struct{}{}
		}
	}
	return out
}

func (e *ensurer) ancestors(s *jsonschema.Schema, into map[*jsonschema.Schema]struct{}) {
	for _, br := range s.AllOf {
		node := br
		if br.IsRef() {
			target, err := e.res.Resolve(br)
			if err != nil {
				continue
			}
			if _, ok := into[target]; ok {
				continue
			}
			into[target] = struct{}{}
			node = target
		}
		e.ancestors(node, into)
	}
}

// subtype makes s (a resolved mapping target) declare prop with key.
func (e *ensurer) subtype(s *jsonschema.Schema, prop, key string, shared map[*jsonschema.Schema]struct{}, at jsonschema.Pointer) error {
	if err := e.widenAncestors(s, prop, shared, at, make(map[*jsonschema.Schema]struct{})); err != nil {
		return err
	}
	if owner := findInline(s, prop); owner != nil {
		return e.narrow(owner, prop, key, at)
	}
	if len(s.OneOf) > 0 && len(s.AllOf) == 0 {
		for i, br := range s.OneOf {
			target, err := e.res.Resolve(br)
			if err != nil {
				return err
			}
			if err := e.subtype(target, prop, key, shared, at.Child("oneOf", strconv.Itoa(i))); err != nil {
				return err
			}
		}
		return nil
	}
	host, err := e.hostFor(s, at)
	if err != nil {
		return err
	}
	host.SetProperty(prop, literal(key))
	host.AddRequired(prop)
	e.stats.Synthesized++
	return nil
}

// widenAncestors checks the property on every allOf-referenced ancestor and
// relaxes it to plain string on ancestors shared by several subtypes.
func (e *ensurer) widenAncestors(s *jsonschema.Schema, prop string, shared map[*jsonschema.Schema]struct{}, at jsonschema.Pointer, seen map[*jsonschema.Schema]struct{}) error {
	for _, br := range s.AllOf {
		node := br
		if br.IsRef() {
			target, err := e.res.Resolve(br)
			if err != nil {
				return err
			}
			if _, ok := seen[target]; ok {
				continue
			}
			seen[target] = struct{}{}
			node = target
			if owner := findInline(target, prop); owner != nil {
				p, _ := owner.Property(prop)
				declared, err := e.res.Resolve(p)
				if err != nil {
					return err
				}
				if err := checkString(declared, jsonschema.Pointer(br.Ref)); err != nil {
					return err
				}
				if _, ok := shared[target]; ok && !isPlainString(declared) {
					if p, err = e.own(owner, prop, p); err != nil {
						return err
					}
					p.Type = jsonschema.TypeString
					p.Enum = nil
					p.Const = nil
				}
			}
		}
		if err := e.widenAncestors(node, prop, shared, at, seen); err != nil {
			return err
		}
	}
	return nil
}

// narrow restricts owner.properties[prop] so that it accepts key.
func (e *ensurer) narrow(owner *jsonschema.Schema, prop, key string, at jsonschema.Pointer) error {
	p, _ := owner.Property(prop)
	p, err := e.own(owner, prop, p)
	if err != nil {
		return err
	}
	if err := checkString(p, at); err != nil {
		return err
	}
	if p.Type == "" {
		p.Type = jsonschema.TypeString
	}
	vals, ok := p.Literals()
	switch {
	case !ok:
		p.Enum = []any{key}
	case contains(vals, key):
	default:
		p.Enum = append(append([]any(nil), vals...), key)
		p.Const = nil
	}
	return nil
}

// own replaces a $ref'd property by an inline copy of its target so the
// (possibly shared) target is never modified.
func (e *ensurer) own(owner *jsonschema.Schema, prop string, p *jsonschema.Schema) (*jsonschema.Schema, error) {
	if !p.IsRef() {
		return p, nil
	}
	target, err := e.res.Resolve(p)
	if err != nil {
		return nil, err
	}
	cp := target.Clone()
	cp.SetOrigin("")
	owner.SetProperty(prop, cp)
	return cp, nil
}

// findInline returns the schema declaring prop among s's own properties and
// its inline allOf branches, newest first. Referenced components are skipped.
func findInline(s *jsonschema.Schema, prop string) *jsonschema.Schema {
	if _, ok := s.Property(prop); ok {
		return s
	}
	for i := len(s.AllOf) - 1; i >= 0; i-- {
		br := s.AllOf[i]
		if br.IsRef() {
			continue
		}
		if owner := findInline(br, prop); owner != nil {
			return owner
		}
	}
	return nil
}

// hostFor picks where a missing discriminator property is declared: s itself
// when it has no allOf, else the newest inline allOf branch. When every branch
// is a reference, the last non-parent one is replaced by an owned copy of its
// target.
func (e *ensurer) hostFor(s *jsonschema.Schema, at jsonschema.Pointer) (*jsonschema.Schema, error) {
	if len(s.AllOf) == 0 {
		if len(s.OneOf) > 0 || len(s.AnyOf) > 0 || (s.Type != "" && s.Type != jsonschema.TypeObject) {
			return nil, diag.Compositionf(diag.Opts(diag.At(string(at)), diag.Schema(s)),
				"subtype has no properties, allOf or oneOf to host the discriminator")
		}
		return s, nil
	}
	for i := len(s.AllOf) - 1; i >= 0; i-- {
		if br := s.AllOf[i]; !br.IsRef() {
			return e.hostFor(br, at.Child("allOf", strconv.Itoa(i)))
		}
	}
	if len(s.AllOf) < 2 {
		br := &jsonschema.Schema{Type: jsonschema.TypeObject}
		s.AllOf = append(s.AllOf, br)
		return br, nil
	}
	last := len(s.AllOf) - 1
	target, err := e.res.Resolve(s.AllOf[last])
	if err != nil {
		return nil, err
	}
	if target.Discriminator != nil {
		return nil, diag.Compositionf(diag.Opts(diag.At(string(at)), diag.Schema(s)),
			"subtype allOf has only parent references; no branch to host the discriminator")
	}
	owned := target.Clone()
	owned.SetOrigin("")
	s.AllOf[last] = owned
	return e.hostFor(owned, at.Child("allOf", strconv.Itoa(last)))
}

func checkString(p *jsonschema.Schema, at jsonschema.Pointer) error {
	if p.Type != "" && p.Type != jsonschema.TypeString {
		return diag.Compositionf(diag.Opts(diag.At(string(at)), diag.Schema(p)),
			"discriminator property must be a string, got %s", p.Type)
	}
	return nil
}

func isPlainString(p *jsonschema.Schema) bool {
	_, lit := p.Literals()
	return p.Type == jsonschema.TypeString && !lit
}

func literal(key string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: jsonschema.TypeString, Enum: []any{key}}
}

func contains(vals []any, key string) bool {
	for _, v := range vals {
		if fmt.Sprint(v) == key {
			return true
		}
	}
	return false
}
