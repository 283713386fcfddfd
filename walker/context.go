package walker

// WalkContext carries the position of one node during a walk.
// Contexts are pooled by the walker; clone before keeping one past the visit.
type WalkContext struct {
	// Node is the value at this position (map, slice, or scalar)
	Node any

	// Key is the field name this node was reached through.
	// Array items keep the key of the containing field.
	Key string

	// Path is the full navigation path, e.g. "Patient.name[0].given[1]"
	Path string

	// ResourceType is the resourceType of the enclosing resource.
	// Entering a nested resource (a contained or bundle entry resource)
	// switches it.
	ResourceType string

	// Parent is the context of the containing node (nil at the root)
	Parent *WalkContext

	// Depth is the nesting depth (0 at the root)
	Depth int

	// IsArrayItem is true when this node is an element of a JSON array
	IsArrayItem bool

	// ArrayIndex is the element index when IsArrayItem is true
	ArrayIndex int
}

// Reset clears the context for reuse.
func (wc *WalkContext) Reset() {
	wc.Node = nil
	wc.Key = ""
	wc.Path = ""
	wc.ResourceType = ""
	wc.Parent = nil
	wc.Depth = 0
	wc.IsArrayItem = false
	wc.ArrayIndex = 0
}

// Clone returns a copy safe to keep after the walk.
// The parent chain is not cloned.
func (wc *WalkContext) Clone() *WalkContext {
	clone := *wc
	clone.Parent = nil
	return &clone
}

// Scalar returns the node as a string when it is a JSON string scalar.
func (wc *WalkContext) Scalar() (string, bool) {
	s, ok := wc.Node.(string)
	return s, ok
}
