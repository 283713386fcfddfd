// Package fhirloader loads machine-generated FHIR bundles into a
// transaction-constrained FHIR service.
//
// The hard part of the job is not the upload but making arbitrary,
// internally-cross-referencing bundles safe to submit: the store accepts only
// direct identity references, caps the number of operations per transaction,
// and commits entries in the order given. The loader therefore scans each
// bundle for conditional references, synthesizes deterministic stub resources
// for the ones nothing in the bundle satisfies, rewrites every reference to
// its direct form, orders entries so dependencies precede dependents, and
// splits oversized bundles into an ordered sequence of sub-bundles that stay
// under the store's entry ceiling.
//
// # Quick Start
//
//	import (
//	    fl "github.com/gofhir/loader"
//	    "github.com/gofhir/loader/engine"
//	)
//
//	proc := engine.New(source, client,
//	    engine.WithOptions(
//	        fl.WithBatchSize(50),
//	        fl.WithEntryCeiling(400),
//	    ),
//	)
//
//	report, err := proc.Run(ctx)
//
// # Pipeline Phases
//
// Each bundle moves through a fixed sequence of phases, every one of which is
// total: a malformed subtree or an unresolvable reference produces a
// data-quality Issue, never an error:
//
//   - Inject: synthesize stub resources for unmatched conditional references
//   - RefMap: build the conditional-to-direct reference map from identifiers
//   - Rewrite: normalize urn:uuid ids and substitute conditional references
//   - Reorder: sort entries by kind precedence (dependencies first)
//   - Split: partition into sub-bundles under the submission ceiling
//
// Only the submission call itself can fail; a failed bundle is logged,
// counted, and the stream continues.
//
// # Determinism
//
// Stub identities are a pure function of the reference content, so re-running
// the loader over the same input produces byte-identical stub ids and is a
// no-op against a store with insert-or-replace semantics.
package fhirloader
