package fhirloader

import (
	"sync"
	"testing"
)

func TestResultPooling(t *testing.T) {
	r := AcquireResult()
	if len(r.Issues) != 0 {
		t.Errorf("acquired result should have no issues, got %d", len(r.Issues))
	}

	r.BundleName = "patient-batch-0001.json"
	r.Entries = 42
	r.AddWarning(IssueTypeDuplicateIdentifier, "duplicate key", "entry[1]")
	r.Release()

	r2 := AcquireResult()
	defer r2.Release()
	if len(r2.Issues) != 0 {
		t.Errorf("reused result should be reset, got %d issues", len(r2.Issues))
	}
	if r2.BundleName != "" || r2.Entries != 0 {
		t.Errorf("reused result carried stale fields: %q %d", r2.BundleName, r2.Entries)
	}
}

func TestResultCounts(t *testing.T) {
	r := NewResult()
	r.AddError(IssueTypeProcessing, "transaction rejected", "")
	r.AddWarning(IssueTypeUnresolvedReference, "left verbatim", "entry[2].resource.subject.reference")
	r.AddWarning(IssueTypeDuplicateIdentifier, "last write wins", "entry[5]")

	if !r.HasErrors() {
		t.Error("expected HasErrors")
	}
	if !r.HasWarnings() {
		t.Error("expected HasWarnings")
	}
	if got := r.WarningCount(); got != 2 {
		t.Errorf("WarningCount() = %d, want 2", got)
	}
	if got := len(r.Warnings()); got != 2 {
		t.Errorf("len(Warnings()) = %d, want 2", got)
	}
}

func TestResultConcurrentAddIssue(t *testing.T) {
	r := NewResult()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.AddIssue(Warning(IssueTypeStructure).Build())
		}()
	}
	wg.Wait()

	if got := len(r.Issues); got != 50 {
		t.Errorf("expected 50 issues, got %d", got)
	}
}

func TestResultClone(t *testing.T) {
	r := NewResult()
	r.Submitted = 1
	r.Stubs = 3
	r.SubBundles = 2
	r.AddWarning(IssueTypeUnresolvedReference, "x", "y")

	clone := r.Clone()
	clone.AddWarning(IssueTypeStructure, "only in clone", "")

	if len(r.Issues) != 1 {
		t.Errorf("clone mutation leaked into original: %d issues", len(r.Issues))
	}
	if clone.Submitted != 1 || clone.Stubs != 3 || clone.SubBundles != 2 {
		t.Error("clone did not copy scalar fields")
	}
}

func TestResultOutcomeCounters(t *testing.T) {
	// Submitted and Skipped are counters so batch aggregation can sum
	// them straight across results.
	results := []*Result{NewResult(), NewResult(), NewResult()}
	results[0].Submitted = 1
	results[1].Skipped = 1
	results[2].Submitted = 1

	submitted, skipped := 0, 0
	for _, r := range results {
		submitted += r.Submitted
		skipped += r.Skipped
	}
	if submitted != 2 || skipped != 1 {
		t.Errorf("submitted = %d, skipped = %d, want 2 and 1", submitted, skipped)
	}

	results[1].Reset()
	if results[1].Skipped != 0 {
		t.Error("Reset left the skipped counter set")
	}
}
