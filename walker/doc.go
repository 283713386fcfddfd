// Package walker provides traversal and structural transformation of untyped
// FHIR JSON documents.
//
// Resources arrive as decoded JSON (map[string]any / []any / scalars) and stay
// untyped end to end. The walker visits every node with full path context,
// which is what the reference scanner and rewriter build on:
//
//	tw := walker.New()
//	err := tw.Walk(ctx, resource, func(wctx *walker.WalkContext) error {
//	    if wctx.Key == "reference" {
//	        // wctx.Path is e.g. "Patient.generalPractitioner[0].reference"
//	    }
//	    return nil
//	})
//
// Walk never mutates the document. Transform produces a structurally
// identical copy with scalar values mapped through a TransformFunc, leaving
// every unvisited field byte-for-byte intact.
package walker
