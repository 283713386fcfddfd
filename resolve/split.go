package resolve

import (
	fl "github.com/gofhir/loader"
)

// SplitResult carries the ordered sub-bundles of one source bundle.
type SplitResult struct {
	// Bundles holds the sub-bundles in submission order
	Bundles []map[string]any

	// Issues holds findings such as a foundational set exceeding the ceiling
	Issues []fl.Issue
}

// Split partitions a bundle whose entry count exceeds the ceiling into an
// ordered sequence of sub-bundles. The first sub-bundle carries every
// foundational entry plus the leading non-foundational entries that fit;
// later sub-bundles carry non-foundational entries only, in their original
// relative order. A bundle at or under the ceiling comes back unchanged as
// the only element. When the foundational entries alone exceed the ceiling
// the first sub-bundle exceeds it too, with a warning, because splitting
// the foundational set would break dependency ordering.
func Split(doc map[string]any, ceiling int) SplitResult {
	var res SplitResult

	arr, ok := doc["entry"].([]any)
	if !ok || ceiling <= 0 || len(arr) <= ceiling {
		res.Bundles = []map[string]any{doc}
		return res
	}

	bundleType, _ := doc["type"].(string)
	if bundleType == "" {
		bundleType = "transaction"
	}

	var foundational, others []any
	for _, e := range arr {
		if IsFoundational(entryKind(e)) {
			foundational = append(foundational, e)
		} else {
			others = append(others, e)
		}
	}

	chunkSize := ceiling - len(foundational)
	if chunkSize < 1 {
		res.Issues = append(res.Issues, fl.Warning(fl.IssueTypeLimit).
			Diagnostics("foundational entries alone exceed the entry ceiling; first sub-bundle oversized").
			Build())
		chunkSize = 1
	}

	newBundle := func(entries []any) map[string]any {
		return map[string]any{
			"resourceType": "Bundle",
			"type":         bundleType,
			"entry":        entries,
		}
	}

	if len(others) == 0 {
		res.Bundles = []map[string]any{newBundle(foundational)}
		return res
	}

	for i := 0; i < len(others); i += chunkSize {
		end := i + chunkSize
		if end > len(others) {
			end = len(others)
		}
		chunk := others[i:end]
		if i == 0 {
			entries := make([]any, 0, len(foundational)+len(chunk))
			entries = append(entries, foundational...)
			entries = append(entries, chunk...)
			res.Bundles = append(res.Bundles, newBundle(entries))
		} else {
			res.Bundles = append(res.Bundles, newBundle(chunk))
		}
	}

	return res
}
