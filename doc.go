// Package schemair turns a bundled OpenAPI / JSON-Schema document into a
// canonical, cycle-safe, dependency-ordered intermediate representation for
// code generators.
//
// Compile runs the passes in order:
//
//   - allOf merge: flatten composition chains, keep discriminator parents as
//     explicit inheritance pairs
//   - discriminator ensure: every mapped subtype declares the tag property
//     with a literal type
//   - graph: component dependencies and the circular set
//   - transpile: raw nodes to ir.Schema, one IR node per source identity
//   - sort: dependencies before dependents
//
// The caller's document is never modified; Compile works on a deep copy.
//
// Typical usage:
//
//	doc, err := schemair.Load(data)
//	res, err := schemair.Compile(ctx, doc, schemair.DefaultOptions())
//	for _, s := range res.Schemas {
//		// render s
//	}
//
// Errors carry a Kind; test for it with errors.Is(err, schemair.ErrComposition)
// and friends, or extract the details with AsError.
package schemair
