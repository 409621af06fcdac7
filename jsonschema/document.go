package jsonschema

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/speakeasy-api/openapi/sequencedmap"
	"gopkg.in/yaml.v3"
)

// Document is a bundled schema document: every cross-file reference has been
// merged into internal pointers by an upstream bundler.
//
// Only the component schema table is modeled. Everything else (paths, info,
// servers, ...) is kept as raw YAML so that the document re-serializes.
type Document struct {
	// Schemas holds the named components in declaration order.
	Schemas *sequencedmap.Map[string, *Schema]
	// SchemasPath locates the component table from the root, e.g.
	// ["components", "schemas"] for OpenAPI or ["$defs"] for a plain schema.
	SchemasPath []string

	root *yaml.Node
}

// DefaultSchemasPath is the OpenAPI component table location.
var DefaultSchemasPath = []string{"components", "schemas"}

// NewDocument returns an empty OpenAPI-shaped document.
func NewDocument() *Document {
	return &Document{
		Schemas:     sequencedmap.New[string, *Schema](),
		SchemasPath: append([]string(nil), DefaultSchemasPath...),
	}
}

// ComponentPointer returns the pointer naming component name.
func (d *Document) ComponentPointer(name string) Pointer {
	return JoinPointer(append(append([]string(nil), d.SchemasPath...), name)...)
}

// ComponentName returns the component a pointer names directly. Pointers into
// a component (e.g. ".../Pet/properties/id") are not component pointers.
func (d *Document) ComponentName(p Pointer) (string, bool) {
	segs, err := p.Segments()
	if err != nil || len(segs) != len(d.SchemasPath)+1 {
		return "", false
	}
	for i, s := range d.SchemasPath {
		if segs[i] != s {
			return "", false
		}
	}
	name := segs[len(segs)-1]
	if _, ok := d.Schemas.Get(name); !ok {
		return "", false
	}
	return name, true
}

// Component returns the named component schema.
func (d *Document) Component(name string) (*Schema, bool) {
	if d == nil || d.Schemas == nil {
		return nil, false
	}
	return d.Schemas.Get(name)
}

// SetComponent declares (or replaces) a component.
func (d *Document) SetComponent(name string, s *Schema) {
	if d.Schemas == nil {
		d.Schemas = sequencedmap.New[string, *Schema]()
	}
	d.Schemas.Set(name, s)
}

// ComponentNames returns component names in declaration order.
func (d *Document) ComponentNames() []string {
	if d == nil || d.Schemas == nil {
		return nil
	}
	out := make([]string, 0, d.Schemas.Len())
	for name := range d.Schemas.All() {
		out = append(out, name)
	}
	return out
}

// Parse decodes a bundled YAML or JSON document.
func Parse(data []byte) (*Document, error) {
	var top yaml.Node
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("jsonschema: invalid document: %w", err)
	}
	if top.Kind == 0 {
		return nil, errors.New("jsonschema: empty document")
	}
	root := &top
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("jsonschema: document root must be a mapping, got %s", kindName(root.Kind))
	}
	doc := NewDocument()
	doc.root = root

	path, table := locateSchemas(root)
	if table == nil {
		return doc, nil
	}
	doc.SchemasPath = path
	dec := newDecoder()
	for i := 0; i+1 < len(table.Content); i += 2 {
		name := table.Content[i].Value
		s, err := dec.schema(table.Content[i+1], doc.ComponentPointer(name))
		if err != nil {
			return nil, err
		}
		doc.Schemas.Set(name, s)
	}
	return doc, nil
}

// locateSchemas finds the component table: components.schemas, then $defs,
// then definitions.
func locateSchemas(root *yaml.Node) ([]string, *yaml.Node) {
	for _, path := range [][]string{DefaultSchemasPath, {"$defs"}, {"definitions"}} {
		n := root
		for _, seg := range path {
			n = mappingValue(n, seg)
			if n == nil {
				break
			}
		}
		if n != nil && n.Kind == yaml.MappingNode {
			return append([]string(nil), path...), n
		}
	}
	return nil, nil
}

// MarshalYAML renders the document, substituting the (possibly processed)
// component table into the original tree.
func (d *Document) MarshalYAML() (any, error) {
	table := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for name, s := range d.Schemas.All() {
		table.Content = append(table.Content, stringNode(name), s.node())
	}
	var root *yaml.Node
	if d.root != nil {
		root = cloneYAML(d.root)
	} else {
		root = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	}
	setPath(root, d.SchemasPath, table)
	return root, nil
}

// EncodeYAML renders the document as YAML.
func (d *Document) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("jsonschema: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON renders the document as JSON preserving key order.
func (d *Document) MarshalJSON() ([]byte, error) {
	v, err := d.MarshalYAML()
	if err != nil {
		return nil, err
	}
	return nodeJSON(v.(*yaml.Node))
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func setPath(root *yaml.Node, path []string, v *yaml.Node) {
	n := root
	for i, seg := range path {
		if i == len(path)-1 {
			if existing := mappingValue(n, seg); existing != nil {
				*existing = *v
				return
			}
			n.Content = append(n.Content, stringNode(seg), v)
			return
		}
		next := mappingValue(n, seg)
		if next == nil || next.Kind != yaml.MappingNode {
			next = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			n.Content = append(n.Content, stringNode(seg), next)
		}
		n = next
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
