// Package pipeline provides the bundle preparation pipeline infrastructure.
package pipeline

import (
	"sync"

	fl "github.com/gofhir/loader"
	"github.com/gofhir/loader/resolve"
)

// State marks how far through preparation a bundle has progressed.
type State string

// Bundle preparation states, in order.
const (
	StateReceived     State = "received"
	StateStubInjected State = "stub-injected"
	StateMapped       State = "mapped"
	StateRewritten    State = "rewritten"
	StateReordered    State = "reordered"
	StateSplit        State = "split"
	StateSubmitted    State = "submitted"
)

// Context holds all state needed while preparing a single bundle.
// It is passed through all pipeline phases.
//
// Context instances are pooled for efficiency. Use AcquireContext() and
// Release() to manage them properly.
type Context struct {
	// Name identifies the source object the bundle came from
	Name string

	// Bundle is the document being prepared, mutated in place by phases
	Bundle map[string]any

	// RefMap is the conditional-to-direct mapping, set by the refmap phase
	RefMap resolve.RefMap

	// SubBundles holds the split output in submission order
	SubBundles []map[string]any

	// State is the bundle's current preparation state
	State State

	// Result accumulates counters and data-quality issues
	Result *fl.Result

	// EntryCeiling is the per-transaction entry limit for splitting
	EntryCeiling int

	// mu protects metadata access
	mu sync.RWMutex

	// Metadata for cross-phase values that have no dedicated field
	metadata map[string]any
}

// contextPool holds reusable Context instances.
var contextPool = sync.Pool{
	New: func() any {
		return &Context{
			SubBundles: make([]map[string]any, 0, 4),
			metadata:   make(map[string]any, 8),
		}
	},
}

// AcquireContext gets a Context from the pool.
// Call Release() when done to return it to the pool.
func AcquireContext() *Context {
	ctx := contextPool.Get().(*Context)
	ctx.Reset()
	return ctx
}

// Release returns the Context to the pool.
// After calling Release, the Context should not be used.
func (c *Context) Release() {
	if c == nil {
		return
	}
	contextPool.Put(c)
}

// Reset clears the context for reuse.
func (c *Context) Reset() {
	c.Name = ""
	c.Bundle = nil
	c.RefMap = nil
	c.SubBundles = c.SubBundles[:0]
	c.State = StateReceived
	c.Result = nil
	c.EntryCeiling = 0

	for k := range c.metadata {
		delete(c.metadata, k)
	}
}

// SetMetadata stores a value in the context metadata.
func (c *Context) SetMetadata(key string, value any) {
	c.mu.Lock()
	c.metadata[key] = value
	c.mu.Unlock()
}

// GetMetadata retrieves a value from the context metadata.
func (c *Context) GetMetadata(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.metadata[key]
	c.mu.RUnlock()
	return v, ok
}

// AddIssue adds a data-quality issue to the result.
func (c *Context) AddIssue(issue fl.Issue) {
	if c.Result != nil {
		c.Result.AddIssue(issue)
	}
}

// EntryCount returns the current number of entries in the bundle.
func (c *Context) EntryCount() int {
	if c.Bundle == nil {
		return 0
	}
	arr, _ := c.Bundle["entry"].([]any)
	return len(arr)
}

// GetNestedField returns a nested field value from the bundle using dot
// notation, e.g. GetNestedField("meta.lastUpdated").
func (c *Context) GetNestedField(path string) (any, bool) {
	if c.Bundle == nil {
		return nil, false
	}

	current := any(c.Bundle)
	start := 0

	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '.' {
			if i > start {
				key := path[start:i]
				switch m := current.(type) {
				case map[string]any:
					var ok bool
					current, ok = m[key]
					if !ok {
						return nil, false
					}
				default:
					return nil, false
				}
			}
			start = i + 1
		}
	}

	return current, true
}

// NewContext creates a new Context (non-pooled).
// Prefer AcquireContext() for better performance.
func NewContext() *Context {
	return &Context{
		SubBundles: make([]map[string]any, 0, 4),
		metadata:   make(map[string]any, 8),
		State:      StateReceived,
	}
}

// ReleaseContext returns a Context to the pool.
// This is a convenience function equivalent to ctx.Release().
func ReleaseContext(ctx *Context) {
	if ctx != nil {
		ctx.Release()
	}
}
