package schemair

import (
	"io"
	"log/slog"

	"github.com/reoring/schemair/internal/graph"
	"github.com/reoring/schemair/ir"
	"github.com/reoring/schemair/jsonschema"
)

// Options controls Compile.
type Options struct {
	// Logger receives per-pass Debug records and warnings at Warn. Nil discards.
	Logger *slog.Logger
	// Components restricts which components are transpiled and emitted.
	// Empty means all, in declaration order. Dependencies outside the list
	// are still referenced by the emitted IR but are not emitted themselves.
	Components []string
	// ImplicitMapping derives "ComponentName -> pointer" discriminator
	// entries from oneOf $ref branches when a discriminator has no mapping.
	ImplicitMapping bool
	// SkipEnsure disables the discriminator pass.
	SkipEnsure bool
}

// DefaultOptions returns the options Compile is usually run with.
func DefaultOptions() Options {
	return Options{ImplicitMapping: true}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Result is the output of Compile.
type Result struct {
	// Document is the merged and ensured copy the IR was built from.
	Document *jsonschema.Document
	// Graph is the component dependency graph of Document.
	Graph *graph.Graph
	// Schemas are ordered so that every schema follows the schemas it
	// references, except across circular edges.
	Schemas []ir.Schema
	// Warnings are the non-fatal findings of every pass.
	Warnings []string
	Stats    Stats
}

// Stats summarizes what the passes did.
type Stats struct {
	Flattened      int // allOf nodes collapsed into one schema
	Inherited      int // allOf nodes kept as a parent/child pair
	Discriminators int
	Synthesized    int // discriminator properties added to subtypes
	Circular       int
}

// Load decodes a YAML or JSON document.
func Load(data []byte) (*jsonschema.Document, error) {
	return jsonschema.Parse(data)
}
