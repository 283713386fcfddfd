package resolve

import (
	"testing"

	fl "github.com/gofhir/loader"
)

func rewriteBundle() map[string]any {
	return map[string]any{
		"resourceType": "Bundle",
		"type":         "collection",
		"entry": []any{
			map[string]any{
				"fullUrl": "urn:uuid:pat-1",
				"resource": map[string]any{
					"resourceType": "Patient",
					"id":           "stale-id",
					"generalPractitioner": []any{
						map[string]any{"reference": "Practitioner?identifier=" + NPISystem + "|111"},
					},
				},
			},
			map[string]any{
				"fullUrl": "urn:uuid:enc-1",
				"resource": map[string]any{
					"resourceType": "Encounter",
					"subject":      map[string]any{"reference": "urn:uuid:pat-1"},
					"serviceProvider": map[string]any{
						"reference": "Organization?identifier=http://example.org/org|UNKNOWN",
					},
					"status": "finished",
				},
			},
		},
	}
}

func TestRewrite(t *testing.T) {
	doc := rewriteBundle()
	refMap := RefMap{
		"Practitioner?identifier=" + NPISystem + "|111": "Practitioner/prac-1",
	}

	res := Rewrite(doc, refMap)

	if doc["type"] != "transaction" {
		t.Errorf("bundle type = %v, want transaction", doc["type"])
	}

	entries := doc["entry"].([]any)
	patEntry := entries[0].(map[string]any)
	patient := patEntry["resource"].(map[string]any)

	// Identity pinned to the fullUrl-derived id
	if patient["id"] != "pat-1" {
		t.Errorf("patient id = %v, want pat-1", patient["id"])
	}
	req := patEntry["request"].(map[string]any)
	if req["method"] != "PUT" || req["url"] != "Patient/pat-1" {
		t.Errorf("request = %v", req)
	}

	// Conditional substituted
	gp := patient["generalPractitioner"].([]any)[0].(map[string]any)
	if gp["reference"] != "Practitioner/prac-1" {
		t.Errorf("practitioner reference = %v", gp["reference"])
	}

	encEntry := entries[1].(map[string]any)
	enc := encEntry["resource"].(map[string]any)

	// urn:uuid prefix stripped
	subject := enc["subject"].(map[string]any)
	if subject["reference"] != "pat-1" {
		t.Errorf("subject reference = %v, want pat-1", subject["reference"])
	}

	// Unmapped conditional left verbatim
	sp := enc["serviceProvider"].(map[string]any)
	if sp["reference"] != "Organization?identifier=http://example.org/org|UNKNOWN" {
		t.Errorf("unresolved reference changed: %v", sp["reference"])
	}

	// Unrelated fields untouched
	if enc["status"] != "finished" {
		t.Errorf("status = %v", enc["status"])
	}

	if res.Rewritten != 2 {
		t.Errorf("Rewritten = %d, want 2 (one substitution, one urn strip)", res.Rewritten)
	}
	if res.Unresolved != 1 {
		t.Errorf("Unresolved = %d, want 1", res.Unresolved)
	}
	if len(res.Issues) != 1 || res.Issues[0].Code != fl.IssueTypeUnresolvedReference {
		t.Errorf("issues = %v", res.Issues)
	}
}

func TestRewriteNoIDFallsBackToTypeURL(t *testing.T) {
	doc := map[string]any{
		"resourceType": "Bundle",
		"entry": []any{
			map[string]any{
				"resource": map[string]any{
					"resourceType": "Observation",
					"status":       "final",
				},
			},
		},
	}

	Rewrite(doc, RefMap{})

	entry := doc["entry"].([]any)[0].(map[string]any)
	req := entry["request"].(map[string]any)
	if req["url"] != "Observation" {
		t.Errorf("url = %v, want bare type when no id is derivable", req["url"])
	}
	if _, hasID := entry["resource"].(map[string]any)["id"]; hasID {
		t.Error("no id should be invented")
	}
}

func TestRewriteIsIdempotent(t *testing.T) {
	doc := rewriteBundle()
	refMap := RefMap{
		"Practitioner?identifier=" + NPISystem + "|111": "Practitioner/prac-1",
	}

	Rewrite(doc, refMap)
	res := Rewrite(doc, refMap)

	if res.Rewritten != 0 {
		t.Errorf("second rewrite changed %d references, want 0", res.Rewritten)
	}

	patient := doc["entry"].([]any)[0].(map[string]any)["resource"].(map[string]any)
	gp := patient["generalPractitioner"].([]any)[0].(map[string]any)
	if gp["reference"] != "Practitioner/prac-1" {
		t.Errorf("reference changed on second pass: %v", gp["reference"])
	}
}
