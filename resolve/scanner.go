package resolve

import (
	"context"
	"sort"

	"github.com/gofhir/loader/bundle"
	"github.com/gofhir/loader/walker"
)

// Scan walks every entry resource and returns the distinct conditional
// reference strings found, sorted for deterministic downstream processing.
// The bundle is never mutated.
func Scan(ctx context.Context, doc map[string]any) ([]string, error) {
	seen := make(map[string]bool)
	tw := walker.New()

	for _, entry := range bundle.Entries(doc) {
		resource := entry.Resource()
		if resource == nil {
			continue
		}

		err := tw.Walk(ctx, resource, func(wctx *walker.WalkContext) error {
			if wctx.Key != "reference" {
				return nil
			}
			ref, ok := wctx.Scalar()
			if !ok {
				return nil
			}
			if bundle.IsConditional(ref) {
				seen[ref] = true
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		tw.Reset()
	}

	refs := make([]string, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs, nil
}

// HasConditional reports whether any reference in the resource tree is
// conditional.
func HasConditional(ctx context.Context, resource map[string]any) (bool, error) {
	found := false

	err := walker.WalkWithCallback(ctx, resource, func(wctx *walker.WalkContext) error {
		if wctx.Key != "reference" {
			return nil
		}
		if ref, ok := wctx.Scalar(); ok && bundle.IsConditional(ref) {
			found = true
			return errStopWalk
		}
		return nil
	})
	if err != nil && err != errStopWalk {
		return false, err
	}
	return found, nil
}

// errStopWalk terminates a walk early once the answer is known.
var errStopWalk = stopWalk{}

type stopWalk struct{}

func (stopWalk) Error() string { return "stop walk" }
