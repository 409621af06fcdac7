package jsonschema_test

import (
	"reflect"
	"testing"

	"github.com/reoring/schemair/jsonschema"
)

func TestParsePointer(t *testing.T) {
	cases := []struct {
		in   string
		want []string
		err  bool
	}{
		{in: "#", want: nil},
		{in: "#/components/schemas/Pet", want: []string{"components", "schemas", "Pet"}},
		{in: "#/a~1b/c~0d", want: []string{"a/b", "c~d"}},
		{in: "#/a~01", want: []string{"a~1"}},
		{in: "#/paths/%7Bid%7D", want: []string{"paths", "{id}"}},
		{in: "other.yaml#/x", err: true},
		{in: "#x", err: true},
		{in: "#/bad%zz", err: true},
	}
	for _, tc := range cases {
		got, err := jsonschema.ParsePointer(tc.in)
		if tc.err {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("%q: got %#v want %#v", tc.in, got, tc.want)
		}
	}
}

func TestJoinPointer_RoundTrip(t *testing.T) {
	p := jsonschema.JoinPointer("components", "schemas", "a/b~c")
	if p != "#/components/schemas/a~1b~0c" {
		t.Fatalf("join: %s", p)
	}
	if p.Last() != "a/b~c" {
		t.Fatalf("last: %q", p.Last())
	}
	if got := p.Child("properties", "x").String(); got != "#/components/schemas/a~1b~0c/properties/x" {
		t.Fatalf("child: %s", got)
	}
	if jsonschema.JoinPointer() != "#" {
		t.Fatalf("empty join must be root")
	}
}
