package bundle

import (
	"testing"
)

func TestIsConditional(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"Practitioner?identifier=http://hl7.org/fhir/sid/us-npi|1234567890", true},
		{"Patient/abc", false},
		{"urn:uuid:aaa-111", false},
		{"Location?identifier=x", true},
	}
	for _, tt := range tests {
		if got := IsConditional(tt.ref); got != tt.want {
			t.Errorf("IsConditional(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}

func TestParseConditional(t *testing.T) {
	tests := []struct {
		name   string
		ref    string
		ok     bool
		kind   string
		system string
		value  string
	}{
		{
			name:   "npi practitioner",
			ref:    "Practitioner?identifier=http://hl7.org/fhir/sid/us-npi|1234567890",
			ok:     true,
			kind:   "Practitioner",
			system: "http://hl7.org/fhir/sid/us-npi",
			value:  "1234567890",
		},
		{
			name:   "systemless value",
			ref:    "Organization?identifier=ACME-1",
			ok:     true,
			kind:   "Organization",
			system: "",
			value:  "ACME-1",
		},
		{
			name: "direct reference",
			ref:  "Patient/abc",
			ok:   false,
		},
		{
			name: "empty query",
			ref:  "Patient?",
			ok:   false,
		},
		{
			name: "no parameter value",
			ref:  "Patient?identifier=",
			ok:   false,
		},
		{
			name: "empty value after system",
			ref:  "Patient?identifier=sys|",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseConditional(tt.ref)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if got.Kind != tt.kind || got.System != tt.system || got.Value != tt.value {
				t.Errorf("parsed = %+v", got)
			}
			if got.Raw != tt.ref {
				t.Errorf("Raw = %q, want %q", got.Raw, tt.ref)
			}
		})
	}
}

func TestConditionalKeyCanonical(t *testing.T) {
	ref, ok := ParseConditional("Practitioner?identifier=http://hl7.org/fhir/sid/us-npi|999")
	if !ok {
		t.Fatal("parse failed")
	}
	want := ConditionalKey("Practitioner", "http://hl7.org/fhir/sid/us-npi", "999")
	if ref.Key() != want {
		t.Errorf("Key() = %q, want %q", ref.Key(), want)
	}
}

func TestNormalizeLocal(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"urn:uuid:aaa-111", "aaa-111"},
		{"Patient/abc", "Patient/abc"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeLocal(tt.ref); got != tt.want {
			t.Errorf("NormalizeLocal(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestFinalID(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{
			name: "urn fullUrl stripped",
			entry: Entry{Raw: map[string]any{
				"fullUrl":  "urn:uuid:aaa-111",
				"resource": map[string]any{"id": "other"},
			}},
			want: "aaa-111",
		},
		{
			name: "url fullUrl last segment",
			entry: Entry{Raw: map[string]any{
				"fullUrl":  "http://example.org/fhir/Patient/p-42",
				"resource": map[string]any{"id": "other"},
			}},
			want: "p-42",
		},
		{
			name: "falls back to resource id",
			entry: Entry{Raw: map[string]any{
				"resource": map[string]any{"id": "p-77"},
			}},
			want: "p-77",
		},
		{
			name:  "nothing available",
			entry: Entry{Raw: map[string]any{}},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FinalID(tt.entry); got != tt.want {
				t.Errorf("FinalID() = %q, want %q", got, tt.want)
			}
		})
	}
}
