package pool

import (
	"fmt"
	"testing"
)

func TestAppendArrayIndex(t *testing.T) {
	tests := []struct {
		base  string
		index int
		want  string
	}{
		{"Bundle.entry", 0, "Bundle.entry[0]"},
		{"Bundle.entry", 7, "Bundle.entry[7]"},
		{"Patient.name", 12, "Patient.name[12]"},
		{"Patient.name", 400, "Patient.name[400]"},
		{"", 3, "[3]"},
	}
	for _, tt := range tests {
		if got := AppendArrayIndex(tt.base, tt.index); got != tt.want {
			t.Errorf("AppendArrayIndex(%q, %d) = %q, want %q", tt.base, tt.index, got, tt.want)
		}
	}
}

func TestPathBuilderReuse(t *testing.T) {
	pb := AcquirePathBuilder()
	pb.WriteString("Patient.contact")
	pb.AppendIndex(2)
	got := pb.String()
	pb.Release()

	if got != "Patient.contact[2]" {
		t.Errorf("built %q", got)
	}

	// A reacquired builder starts empty even if the same instance comes back
	pb2 := AcquirePathBuilder()
	defer pb2.Release()
	if pb2.String() != "" {
		t.Errorf("reacquired builder holds %q", pb2.String())
	}
}

func BenchmarkAppendArrayIndex(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = AppendArrayIndex("Bundle.entry", i%500)
	}
}

func BenchmarkSprintfIndex(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = fmt.Sprintf("%s[%d]", "Bundle.entry", i%500)
	}
}
