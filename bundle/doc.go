// Package bundle provides accessors and reference parsing for untyped FHIR
// Bundle documents.
//
// Bundles stay as decoded JSON (map[string]any) throughout the loader; this
// package is the one place that knows their shape. Malformed entries are
// skipped by the accessors, never rejected.
package bundle
