package resolve

import (
	fl "github.com/gofhir/loader"
	"github.com/gofhir/loader/bundle"
)

// RefMap maps canonical conditional-reference keys to direct references,
// e.g. "Practitioner?identifier=http://hl7.org/fhir/sid/us-npi|999" to
// "Practitioner/abc-123".
type RefMap map[string]string

// BuildRefMap derives the conditional-to-direct mapping from every
// identifier declared by every entry. The direct reference targets the
// identity the resource will have once loaded (fullUrl first, resource.id
// as fallback). When two entries claim the same key the later entry wins
// and a duplicate-identifier warning is reported.
func BuildRefMap(doc map[string]any) (RefMap, []fl.Issue) {
	refMap := make(RefMap)
	var issues []fl.Issue

	for _, entry := range bundle.Entries(doc) {
		resource := entry.Resource()
		if resource == nil {
			continue
		}
		kind := entry.ResourceType()
		if kind == "" {
			continue
		}

		finalID := bundle.FinalID(entry)
		if finalID == "" {
			continue
		}
		direct := kind + "/" + finalID

		for _, ident := range bundle.Identifiers(resource) {
			if ident.System == "" {
				continue
			}
			key := bundle.ConditionalKey(kind, ident.System, ident.Value)
			if prev, exists := refMap[key]; exists && prev != direct {
				issues = append(issues, fl.Warning(fl.IssueTypeDuplicateIdentifier).
					Diagnostics("identifier "+key+" claimed by "+prev+" and "+direct+"; using "+direct).
					At(entry.Path()).
					Build())
			}
			refMap[key] = direct
		}
	}

	return refMap, issues
}

// Resolve looks up the direct reference for a conditional reference string.
func (m RefMap) Resolve(ref string) (string, bool) {
	cond, ok := bundle.ParseConditional(ref)
	if !ok {
		return "", false
	}
	direct, ok := m[cond.Key()]
	return direct, ok
}
