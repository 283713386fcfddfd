// Package worker runs bundle processing jobs across a bounded set of
// goroutines.
//
// Parallelism is across bundles only. Everything belonging to one bundle,
// including the ordered submission of its sub-bundles, happens inside a
// single job, so no ordering guarantee is lost by adding workers. Results
// come back in submission order regardless of completion order.
package worker
