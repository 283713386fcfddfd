package bundle

import (
	"fmt"
)

// Entry is a view onto a single bundle entry.
type Entry struct {
	// Index is the entry's position in the source bundle
	Index int

	// Raw is the entry object itself
	Raw map[string]any
}

// Entries returns views onto every well-formed entry in the bundle.
// Entries that are not JSON objects are skipped.
func Entries(bundle map[string]any) []Entry {
	arr, ok := bundle["entry"].([]any)
	if !ok {
		return nil
	}

	out := make([]Entry, 0, len(arr))
	for i, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Entry{Index: i, Raw: m})
	}
	return out
}

// EntryCount returns the number of elements in the bundle's entry array,
// well-formed or not.
func EntryCount(bundle map[string]any) int {
	arr, ok := bundle["entry"].([]any)
	if !ok {
		return 0
	}
	return len(arr)
}

// Resource returns the entry's resource object, or nil.
func (e Entry) Resource() map[string]any {
	r, _ := e.Raw["resource"].(map[string]any)
	return r
}

// ResourceType returns the resourceType of the entry's resource.
func (e Entry) ResourceType() string {
	r := e.Resource()
	if r == nil {
		return ""
	}
	rt, _ := r["resourceType"].(string)
	return rt
}

// FullURL returns the entry's fullUrl field.
func (e Entry) FullURL() string {
	u, _ := e.Raw["fullUrl"].(string)
	return u
}

// ResourceID returns the id of the entry's resource.
func (e Entry) ResourceID() string {
	r := e.Resource()
	if r == nil {
		return ""
	}
	id, _ := r["id"].(string)
	return id
}

// Path returns the entry's position for diagnostics, e.g. "entry[3]".
func (e Entry) Path() string {
	return fmt.Sprintf("entry[%d]", e.Index)
}

// Identifier is one system|value pair declared by a resource.
type Identifier struct {
	System string
	Value  string
}

// Identifiers returns every identifier the resource declares.
// Entries without a value are skipped; a missing system yields an
// Identifier with an empty System.
func Identifiers(resource map[string]any) []Identifier {
	arr, ok := resource["identifier"].([]any)
	if !ok {
		return nil
	}

	out := make([]Identifier, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		value, _ := m["value"].(string)
		if value == "" {
			continue
		}
		system, _ := m["system"].(string)
		out = append(out, Identifier{System: system, Value: value})
	}
	return out
}

// ResourceType returns the bundle's own resourceType field.
func ResourceType(doc map[string]any) string {
	rt, _ := doc["resourceType"].(string)
	return rt
}

// IsBundle reports whether the document is a FHIR Bundle.
func IsBundle(doc map[string]any) bool {
	return ResourceType(doc) == "Bundle"
}

// SetRequest sets the entry's transaction request to an insert-or-replace
// of the given resource, e.g. PUT Patient/123.
func (e Entry) SetRequest(method, url string) {
	e.Raw["request"] = map[string]any{
		"method": method,
		"url":    url,
	}
}

// NewTransaction builds a transaction bundle from entry views.
func NewTransaction(entries []Entry) map[string]any {
	arr := make([]any, len(entries))
	for i, e := range entries {
		arr[i] = e.Raw
	}
	return map[string]any{
		"resourceType": "Bundle",
		"type":         "transaction",
		"entry":        arr,
	}
}

// AsTransaction flips the bundle's type to transaction in place.
func AsTransaction(doc map[string]any) {
	doc["type"] = "transaction"
}
