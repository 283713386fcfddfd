package resolve

import (
	"sort"

	"github.com/gofhir/loader/bundle"
)

// otherPrecedence is the rank of every kind outside the precedence table.
const otherPrecedence = 99

// kindPrecedence ranks foundational kinds ahead of everything else so a
// transaction commits dependencies before dependents.
var kindPrecedence = map[string]int{
	"Organization":     0,
	"Practitioner":     1,
	"PractitionerRole": 2,
	"Location":         3,
	"Patient":          4,
}

// Precedence returns the ordering rank of a resource kind.
func Precedence(kind string) int {
	if p, ok := kindPrecedence[kind]; ok {
		return p
	}
	return otherPrecedence
}

// IsFoundational reports whether a kind belongs to the foundational set
// that must lead the first sub-bundle of a split.
func IsFoundational(kind string) bool {
	return Precedence(kind) < otherPrecedence
}

// Reorder stable-sorts the bundle's entries by kind precedence in place.
// Entries of equal rank, including every non-foundational entry, keep
// their relative order.
func Reorder(doc map[string]any) {
	arr, ok := doc["entry"].([]any)
	if !ok || len(arr) < 2 {
		return
	}

	rank := func(e any) int {
		m, ok := e.(map[string]any)
		if !ok {
			return otherPrecedence
		}
		r, _ := m["resource"].(map[string]any)
		if r == nil {
			return otherPrecedence
		}
		kind, _ := r["resourceType"].(string)
		return Precedence(kind)
	}

	sort.SliceStable(arr, func(i, j int) bool {
		return rank(arr[i]) < rank(arr[j])
	})
}

// entryKind returns the resource kind of a raw entry value.
func entryKind(e any) string {
	m, ok := e.(map[string]any)
	if !ok {
		return ""
	}
	return bundle.Entry{Raw: m}.ResourceType()
}
