// Package resolve turns machine-generated FHIR bundles into submittable
// transactions.
//
// The stages are pure functions over untyped bundle documents and run in a
// fixed order: Scan finds conditional references, Synthesize builds stub
// resources for the ones no entry satisfies, BuildRefMap derives the
// conditional-to-direct mapping from declared identifiers, Rewrite
// substitutes references and stamps insert-or-replace requests, Reorder
// sorts entries so dependencies precede dependents, and Split partitions
// oversized bundles under the store's entry ceiling.
//
// Every stage is total. Malformed subtrees and unresolvable references are
// reported, never fatal.
package resolve
