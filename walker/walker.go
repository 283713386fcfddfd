package walker

import (
	"context"

	"github.com/gofhir/loader/pool"
)

// VisitorFunc is called for each node during tree walking.
// Return an error to stop walking with that error.
// Return nil to continue walking.
type VisitorFunc func(wctx *WalkContext) error

// TreeWalker traverses an untyped FHIR document, maintaining the path and
// enclosing resource type at each node. A walker is not safe for concurrent
// use; each goroutine should own its own.
type TreeWalker struct {
	// contexts is a stack of reusable contexts
	contexts []*WalkContext
	ctxIdx   int
}

// New creates a new TreeWalker.
func New() *TreeWalker {
	return &TreeWalker{
		contexts: make([]*WalkContext, 0, 32),
	}
}

// Walk traverses the document tree, calling visitor for each node.
// The document is never mutated. Visiting order within an object is
// unspecified; array order is preserved.
func (tw *TreeWalker) Walk(ctx context.Context, resource map[string]any, visitor VisitorFunc) error {
	if resource == nil || visitor == nil {
		return nil
	}

	resourceType, _ := resource["resourceType"].(string)
	rootPath := resourceType
	if rootPath == "" {
		rootPath = "$"
	}

	rootCtx := tw.acquireContext()
	rootCtx.Node = resource
	rootCtx.Path = rootPath
	rootCtx.ResourceType = resourceType
	rootCtx.Depth = 0

	if err := visitor(rootCtx); err != nil {
		tw.releaseContext(rootCtx)
		return err
	}

	err := tw.walkObject(ctx, rootCtx, resource, visitor)
	tw.releaseContext(rootCtx)
	return err
}

// walkObject walks the children of an object node.
func (tw *TreeWalker) walkObject(ctx context.Context, parent *WalkContext, obj map[string]any, visitor VisitorFunc) error {
	for key, value := range obj {
		if parent.Depth == 0 && key == "resourceType" {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		childCtx := tw.acquireContext()
		childCtx.Node = value
		childCtx.Key = key
		childCtx.Path = parent.Path + "." + key
		childCtx.ResourceType = parent.ResourceType
		childCtx.Parent = parent
		childCtx.Depth = parent.Depth + 1

		// Entering a nested resource switches the enclosing type
		if obj, ok := value.(map[string]any); ok {
			if rt, ok := obj["resourceType"].(string); ok && rt != "" {
				childCtx.ResourceType = rt
			}
		}

		if err := visitor(childCtx); err != nil {
			tw.releaseContext(childCtx)
			return err
		}

		if err := tw.walkValue(ctx, childCtx, value, visitor); err != nil {
			tw.releaseContext(childCtx)
			return err
		}

		tw.releaseContext(childCtx)
	}

	return nil
}

// walkValue walks a value which may be a scalar, object, or array.
func (tw *TreeWalker) walkValue(ctx context.Context, parent *WalkContext, value any, visitor VisitorFunc) error {
	switch v := value.(type) {
	case map[string]any:
		return tw.walkObject(ctx, parent, v, visitor)

	case []any:
		return tw.walkArray(ctx, parent, v, visitor)

	default:
		// Scalar - already visited
		return nil
	}
}

// walkArray walks the items of an array.
func (tw *TreeWalker) walkArray(ctx context.Context, parent *WalkContext, arr []any, visitor VisitorFunc) error {
	for i, item := range arr {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		childCtx := tw.acquireContext()
		childCtx.Node = item
		childCtx.Key = parent.Key
		childCtx.Path = pool.AppendArrayIndex(parent.Path, i)
		childCtx.ResourceType = parent.ResourceType
		childCtx.Parent = parent
		childCtx.IsArrayItem = true
		childCtx.ArrayIndex = i
		childCtx.Depth = parent.Depth + 1

		if obj, ok := item.(map[string]any); ok {
			if rt, ok := obj["resourceType"].(string); ok && rt != "" {
				childCtx.ResourceType = rt
			}
		}

		if err := visitor(childCtx); err != nil {
			tw.releaseContext(childCtx)
			return err
		}

		if err := tw.walkValue(ctx, childCtx, item, visitor); err != nil {
			tw.releaseContext(childCtx)
			return err
		}

		tw.releaseContext(childCtx)
	}

	return nil
}

// acquireContext gets a context from the internal pool.
func (tw *TreeWalker) acquireContext() *WalkContext {
	if tw.ctxIdx < len(tw.contexts) {
		ctx := tw.contexts[tw.ctxIdx]
		ctx.Reset()
		tw.ctxIdx++
		return ctx
	}

	ctx := &WalkContext{}
	tw.contexts = append(tw.contexts, ctx)
	tw.ctxIdx++
	return ctx
}

// releaseContext returns a context to the internal pool.
func (tw *TreeWalker) releaseContext(ctx *WalkContext) {
	if ctx == nil {
		return
	}
	if tw.ctxIdx > 0 {
		tw.ctxIdx--
	}
}

// Reset resets the walker for reuse.
func (tw *TreeWalker) Reset() {
	tw.ctxIdx = 0
}

// WalkWithCallback is a convenience function that walks a document with a
// one-shot walker.
func WalkWithCallback(ctx context.Context, resource map[string]any, callback VisitorFunc) error {
	tw := New()
	return tw.Walk(ctx, resource, callback)
}

// CollectStrings walks a document and returns the path and value of every
// string scalar reached through the given field name.
func CollectStrings(ctx context.Context, resource map[string]any, key string) (map[string]string, error) {
	found := make(map[string]string)

	err := WalkWithCallback(ctx, resource, func(wctx *WalkContext) error {
		if wctx.Key != key {
			return nil
		}
		if s, ok := wctx.Scalar(); ok {
			found[wctx.Path] = s
		}
		return nil
	})

	return found, err
}
