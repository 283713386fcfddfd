package resolve

import (
	fl "github.com/gofhir/loader"
	"github.com/gofhir/loader/bundle"
	"github.com/gofhir/loader/walker"
)

// RewriteResult reports what Rewrite did to a bundle.
type RewriteResult struct {
	// Rewritten is the number of reference values changed
	Rewritten int

	// Unresolved is the number of conditional references left verbatim
	Unresolved int

	// Issues holds one warning per unresolved reference
	Issues []fl.Issue
}

// Rewrite makes every entry directly submittable: the resource id is pinned
// to the entry's final identity, urn:uuid reference prefixes are stripped,
// conditional references are substituted through the map, and each entry is
// stamped with an insert-or-replace request. Conditional references with no
// mapping stay verbatim and are reported. Fields unrelated to references
// pass through untouched.
func Rewrite(doc map[string]any, refMap RefMap) RewriteResult {
	var res RewriteResult

	for _, entry := range bundle.Entries(doc) {
		resource := entry.Resource()
		if resource == nil {
			continue
		}
		kind := entry.ResourceType()

		finalID := bundle.FinalID(entry)
		if finalID != "" {
			resource["id"] = finalID
		}

		transformed := walker.Transform(resource, func(key, path, value string) string {
			if key != "reference" {
				return value
			}

			out := bundle.NormalizeLocal(value)
			if bundle.IsConditional(out) {
				if direct, ok := refMap.Resolve(out); ok {
					res.Rewritten++
					return direct
				}
				res.Unresolved++
				res.Issues = append(res.Issues, fl.Warning(fl.IssueTypeUnresolvedReference).
					Diagnostics("no identifier match for "+out).
					At(entry.Path()+"."+path).
					Build())
				return out
			}
			if out != value {
				res.Rewritten++
			}
			return out
		})
		entry.Raw["resource"] = transformed

		url := kind
		if finalID != "" {
			url = kind + "/" + finalID
		}
		entry.SetRequest("PUT", url)
	}

	bundle.AsTransaction(doc)
	return res
}
