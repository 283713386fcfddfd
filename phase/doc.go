// Package phase implements the standard bundle preparation phases.
//
// Each phase wraps one resolver stage and advances the pipeline context's
// state tag: Inject prepends stub resources, RefMap builds the
// conditional-to-direct reference map, Rewrite substitutes references and
// stamps requests, Reorder sorts entries by kind precedence, and Split
// partitions the bundle under the entry ceiling. Phases report data-quality
// issues; none of them fails.
package phase
