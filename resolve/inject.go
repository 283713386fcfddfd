package resolve

import (
	"context"

	fl "github.com/gofhir/loader"
	"github.com/gofhir/loader/bundle"
)

// InjectResult reports what Inject did to a bundle.
type InjectResult struct {
	// Stubs is the number of placeholder entries prepended
	Stubs int

	// Issues holds findings for references that could not be satisfied
	Issues []fl.Issue
}

// Inject scans the bundle for conditional references and prepends stub
// entries for the ones no existing entry can satisfy. Stubs are added in
// kind precedence order (Organizations, then Practitioners, then Locations)
// so later stages keep dependencies ahead of dependents. Conditional
// references whose kind has no synthesizer produce a warning issue and are
// left for the rewriter to report if still unresolved.
func Inject(ctx context.Context, doc map[string]any) (InjectResult, error) {
	var res InjectResult

	refs, err := Scan(ctx, doc)
	if err != nil {
		return res, err
	}
	if len(refs) == 0 {
		return res, nil
	}

	// Keys already satisfiable from entries present in the bundle
	satisfied := make(map[string]bool)
	for _, entry := range bundle.Entries(doc) {
		resource := entry.Resource()
		if resource == nil {
			continue
		}
		kind := entry.ResourceType()
		for _, ident := range bundle.Identifiers(resource) {
			if ident.System == "" {
				continue
			}
			satisfied[bundle.ConditionalKey(kind, ident.System, ident.Value)] = true
		}
	}

	// Group stubs by kind so injection order matches entry precedence
	byKind := map[string][]map[string]any{}
	for _, raw := range refs {
		cond, ok := bundle.ParseConditional(raw)
		if !ok {
			res.Issues = append(res.Issues, fl.Warning(fl.IssueTypeStructure).
				Diagnostics("malformed conditional reference: "+raw).
				Build())
			continue
		}
		if satisfied[cond.Key()] {
			continue
		}

		stub, ok := Synthesize(cond)
		if !ok {
			res.Issues = append(res.Issues, fl.Warning(fl.IssueTypeNotSupported).
				Diagnostics("no stub synthesizer for "+raw).
				Build())
			continue
		}
		byKind[cond.Kind] = append(byKind[cond.Kind], stub)
		satisfied[cond.Key()] = true
	}

	var newEntries []any
	for _, kind := range []string{"Organization", "Practitioner", "Location"} {
		for _, stub := range byKind[kind] {
			newEntries = append(newEntries, StubEntry(stub))
		}
	}
	if len(newEntries) == 0 {
		return res, nil
	}

	existing, _ := doc["entry"].([]any)
	doc["entry"] = append(newEntries, existing...)
	res.Stubs = len(newEntries)
	return res, nil
}
