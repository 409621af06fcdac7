package ir_test

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/reoring/schemair/ir"
	"github.com/reoring/schemair/jsonschema"
)

func named(name string) ir.Meta {
	return ir.Meta{Component: ir.Component{Kind: ir.Named, ID: jsonschema.JoinPointer("components", "schemas", name), Name: name}}
}

func TestDiscriminator_AddOnlyGrows(t *testing.T) {
	d := &ir.Discriminator{}
	d.Add("a", "b")
	d.Add("b", "c")
	if got := strings.Join(d.Enum, ","); got != "a,b,c" {
		t.Fatalf("enum = %s", got)
	}
	if !d.Accepts("c") || d.Accepts("z") {
		t.Fatalf("accepts mismatch: %v", d.Enum)
	}
}

func TestName(t *testing.T) {
	if ir.Name(nil) != "" {
		t.Fatalf("nil schema has a name")
	}
	anon := &ir.Object{Meta: ir.Meta{Component: ir.Component{Kind: ir.Named, ID: "#/components/schemas/Pet"}}}
	if got := ir.Name(anon); got != "Pet" {
		t.Fatalf("name from ID = %q", got)
	}
	if ir.IsCircular(nil) {
		t.Fatalf("nil is circular")
	}
}

func TestDump_NamedChildrenBecomeRefs(t *testing.T) {
	node := &ir.Object{Meta: named("Node")}
	node.Circular = true
	node.Fields = []ir.Field{
		{Name: "next", Schema: node},
		{Name: "tags", Required: true, Schema: &ir.Array{
			Meta:  ir.Meta{Component: ir.Component{Kind: ir.Inline, Name: "Node_tags"}},
			Items: &ir.Primitive{Meta: ir.Meta{Component: ir.Component{Kind: ir.Inline, Name: "Node_tags_item"}}, Type: "string"},
		}},
	}
	u := &ir.Union{Meta: named("Any"), Schemas: []ir.Schema{node}}
	u.Discriminator = &ir.UnionDiscriminator{Name: "kind", Mappings: []ir.Mapping{{Schema: node, Value: "node"}}}

	out := ir.Dump([]ir.Schema{node, u})
	if len(out) != 2 {
		t.Fatalf("len = %d", len(out))
	}
	n := out[0]
	if n.Kind != "object" || !n.Circular || n.ID != "#/components/schemas/Node" {
		t.Fatalf("node header = %+v", n)
	}
	if n.Fields[0].Schema.Ref != "Node" {
		t.Fatalf("self field not a ref: %+v", n.Fields[0].Schema)
	}
	if got := n.Fields[1].Schema.Items.Type; got != "string" || !n.Fields[1].Required {
		t.Fatalf("inline array not expanded: %+v", n.Fields[1])
	}
	if out[1].Schemas[0].Ref != "Node" || out[1].Discriminator.Mappings["node"] != "Node" {
		t.Fatalf("union dump = %+v", out[1])
	}

	b, err := ir.MarshalJSON([]ir.Schema{u})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back []map[string]any
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[0]["kind"] != "union" {
		t.Fatalf("json = %s", b)
	}
}

func TestDump_InlineCycleTerminates(t *testing.T) {
	inner := &ir.Object{Meta: ir.Meta{Component: ir.Component{Kind: ir.Inline, Name: "Loop"}}}
	inner.Fields = []ir.Field{{Name: "self", Schema: inner}}
	out := ir.Dump([]ir.Schema{inner})
	if out[0].Fields[0].Schema.Ref != "Loop" {
		t.Fatalf("inline cycle not cut: %+v", out[0].Fields[0].Schema)
	}
}
