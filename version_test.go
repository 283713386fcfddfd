package fhirloader

import "testing"

func TestFHIRVersionIsValid(t *testing.T) {
	tests := []struct {
		version FHIRVersion
		want    bool
	}{
		{R4, true},
		{R4B, true},
		{R5, true},
		{FHIRVersion("DSTU2"), false},
		{FHIRVersion(""), false},
	}
	for _, tt := range tests {
		if got := tt.version.IsValid(); got != tt.want {
			t.Errorf("IsValid(%q) = %v, want %v", tt.version, got, tt.want)
		}
	}
}

func TestFHIRVersionMIMEType(t *testing.T) {
	for _, v := range []FHIRVersion{R4, R4B, R5} {
		if got := v.MIMEType(); got != "application/fhir+json" {
			t.Errorf("MIMEType(%s) = %q", v, got)
		}
	}
}

func TestFHIRVersionString(t *testing.T) {
	if R4.String() != "R4" {
		t.Errorf("String() = %q", R4.String())
	}
}
