package schemair

import (
	"context"
	"errors"
	"fmt"

	"github.com/reoring/schemair/diag"
	"github.com/reoring/schemair/internal/allof"
	"github.com/reoring/schemair/internal/discriminator"
	"github.com/reoring/schemair/internal/graph"
	"github.com/reoring/schemair/internal/toposort"
	"github.com/reoring/schemair/internal/transpile"
	"github.com/reoring/schemair/ir"
	"github.com/reoring/schemair/jsonschema"
)

// Compile runs every pass over a copy of doc. The first error aborts the run.
func Compile(ctx context.Context, doc *jsonschema.Document, opts Options) (*Result, error) {
	if doc == nil {
		return nil, errors.New("schemair: nil document")
	}
	log := opts.logger()
	d := &diag.Collector{}
	res := &Result{}

	merged, ms, err := allof.Merge(doc, d)
	if err != nil {
		return nil, fmt.Errorf("allOf merge: %w", err)
	}
	res.Document = merged
	res.Stats.Flattened, res.Stats.Inherited = ms.Flattened, ms.Inherited
	log.Debug("allOf merge", "flattened", ms.Flattened, "inherited", ms.Inherited)

	if !opts.SkipEnsure {
		es, err := discriminator.Ensure(merged, discriminator.Options{ImplicitMapping: opts.ImplicitMapping, Diag: d})
		if err != nil {
			return nil, fmt.Errorf("discriminator ensure: %w", err)
		}
		res.Stats.Discriminators, res.Stats.Synthesized = es.Discriminators, es.Synthesized
		log.Debug("discriminator ensure", "discriminators", es.Discriminators, "entries", es.Entries, "synthesized", es.Synthesized)
	}

	g, err := graph.Build(merged)
	if err != nil {
		return nil, fmt.Errorf("schema graph: %w", err)
	}
	res.Graph = g
	res.Stats.Circular = len(g.Circular())
	log.Debug("schema graph", "components", len(g.Nodes()), "edges", len(g.Edges()), "circular", res.Stats.Circular)

	names := opts.Components
	if len(names) == 0 {
		names = merged.ComponentNames()
	}
	tc := transpile.NewContext(merged, g, transpile.Options{ImplicitMapping: opts.ImplicitMapping})
	schemas := make([]ir.Schema, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s, err := tc.Component(name)
		if err != nil {
			return nil, fmt.Errorf("transpile %s: %w", name, err)
		}
		schemas = append(schemas, s)
	}
	log.Debug("transpile", "components", len(schemas))

	res.Schemas, err = toposort.Sort(schemas, d)
	if err != nil {
		return nil, fmt.Errorf("sort: %w", err)
	}
	log.Debug("sort", "schemas", len(res.Schemas))

	res.Warnings = d.Warnings()
	for _, w := range res.Warnings {
		log.Warn(w)
	}
	return res, nil
}

// Merge returns a copy of doc with every allOf collapsed.
func Merge(doc *jsonschema.Document) (*jsonschema.Document, []string, error) {
	d := &diag.Collector{}
	out, _, err := allof.Merge(doc, d)
	if err != nil {
		return nil, nil, err
	}
	return out, d.Warnings(), nil
}

// Normalize returns a copy of doc after the allOf and discriminator passes:
// the document the IR is built from.
func Normalize(doc *jsonschema.Document, opts Options) (*jsonschema.Document, []string, error) {
	d := &diag.Collector{}
	out, _, err := allof.Merge(doc, d)
	if err != nil {
		return nil, nil, fmt.Errorf("allOf merge: %w", err)
	}
	if !opts.SkipEnsure {
		if _, err := discriminator.Ensure(out, discriminator.Options{ImplicitMapping: opts.ImplicitMapping, Diag: d}); err != nil {
			return nil, nil, fmt.Errorf("discriminator ensure: %w", err)
		}
	}
	return out, d.Warnings(), nil
}
