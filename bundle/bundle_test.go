package bundle

import (
	"testing"
)

func testBundle() map[string]any {
	return map[string]any{
		"resourceType": "Bundle",
		"type":         "collection",
		"entry": []any{
			map[string]any{
				"fullUrl": "urn:uuid:aaa-111",
				"resource": map[string]any{
					"resourceType": "Patient",
					"id":           "ignored",
					"identifier": []any{
						map[string]any{"system": "http://example.org/mrn", "value": "MRN-1"},
						map[string]any{"value": "systemless-9"},
						map[string]any{"system": "http://example.org/empty"},
					},
				},
			},
			"not-an-object",
			map[string]any{
				"resource": map[string]any{
					"resourceType": "Observation",
					"id":           "obs-1",
				},
			},
		},
	}
}

func TestEntriesSkipsMalformed(t *testing.T) {
	entries := Entries(testBundle())
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Index != 0 || entries[1].Index != 2 {
		t.Errorf("indexes = %d,%d, want 0,2", entries[0].Index, entries[1].Index)
	}
	if entries[0].ResourceType() != "Patient" {
		t.Errorf("first entry type = %q", entries[0].ResourceType())
	}
	if entries[1].Path() != "entry[2]" {
		t.Errorf("Path() = %q", entries[1].Path())
	}
}

func TestEntryCount(t *testing.T) {
	if got := EntryCount(testBundle()); got != 3 {
		t.Errorf("EntryCount = %d, want 3", got)
	}
	if got := EntryCount(map[string]any{"resourceType": "Bundle"}); got != 0 {
		t.Errorf("EntryCount on empty = %d, want 0", got)
	}
}

func TestIdentifiers(t *testing.T) {
	entries := Entries(testBundle())
	ids := Identifiers(entries[0].Resource())

	if len(ids) != 2 {
		t.Fatalf("got %d identifiers, want 2 (valueless skipped)", len(ids))
	}
	if ids[0].System != "http://example.org/mrn" || ids[0].Value != "MRN-1" {
		t.Errorf("first identifier = %+v", ids[0])
	}
	if ids[1].System != "" || ids[1].Value != "systemless-9" {
		t.Errorf("systemless identifier = %+v", ids[1])
	}
}

func TestIsBundle(t *testing.T) {
	if !IsBundle(testBundle()) {
		t.Error("testBundle should be a Bundle")
	}
	if IsBundle(map[string]any{"resourceType": "Patient"}) {
		t.Error("Patient is not a Bundle")
	}
}

func TestSetRequestAndNewTransaction(t *testing.T) {
	entries := Entries(testBundle())
	entries[1].SetRequest("PUT", "Observation/obs-1")

	tx := NewTransaction(entries)
	if tx["type"] != "transaction" {
		t.Errorf("type = %v, want transaction", tx["type"])
	}
	arr := tx["entry"].([]any)
	if len(arr) != 2 {
		t.Fatalf("transaction has %d entries, want 2", len(arr))
	}
	req := arr[1].(map[string]any)["request"].(map[string]any)
	if req["method"] != "PUT" || req["url"] != "Observation/obs-1" {
		t.Errorf("request = %v", req)
	}
}
