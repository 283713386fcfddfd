package fhirloader

import (
	"sync"
)

// Result contains the outcome of preparing and submitting one source bundle.
// Use Release() to return it to the pool when done for better performance.
type Result struct {
	// Submitted counts bundles whose sub-bundles were all accepted by
	// the store
	Submitted int `json:"submitted"`

	// Skipped counts bundles skipped before submission (for example by
	// an eligibility gate)
	Skipped int `json:"skipped,omitempty"`

	// Issues contains all data-quality issues found
	Issues []Issue `json:"issues,omitempty"`

	// BundleName identifies the source object the bundle came from
	BundleName string `json:"bundleName,omitempty"`

	// JobID correlates results when bundles run through a worker pool
	JobID string `json:"jobId,omitempty"`

	// Entries is the number of entries in the source bundle
	Entries int `json:"entries"`

	// Stubs is the number of placeholder resources synthesized
	Stubs int `json:"stubs"`

	// Rewritten is the number of references substituted or normalized
	Rewritten int `json:"rewritten"`

	// Unresolved is the number of conditional references left verbatim
	Unresolved int `json:"unresolved"`

	// SubBundles is the number of sub-bundles the bundle was split into
	SubBundles int `json:"subBundles"`

	// mu protects concurrent access to Issues
	mu sync.Mutex
}

// resultPool holds reusable Result instances.
var resultPool = sync.Pool{
	New: func() any {
		return &Result{
			Issues: make([]Issue, 0, 16),
		}
	},
}

// AcquireResult gets a Result from the pool.
// The result starts clean with no issues.
func AcquireResult() *Result {
	r := resultPool.Get().(*Result)
	r.Reset()
	return r
}

// Release returns the Result to the pool.
// After calling Release, the Result should not be used.
func (r *Result) Release() {
	if r == nil {
		return
	}
	// Don't return results with oversized issue slices
	if cap(r.Issues) <= 1024 {
		resultPool.Put(r)
	}
}

// Reset clears the result for reuse.
func (r *Result) Reset() {
	r.Submitted = 0
	r.Skipped = 0
	r.Issues = r.Issues[:0]
	r.BundleName = ""
	r.JobID = ""
	r.Entries = 0
	r.Stubs = 0
	r.Rewritten = 0
	r.Unresolved = 0
	r.SubBundles = 0
}

// AddIssue adds a data-quality issue to the result.
// This method is thread-safe.
func (r *Result) AddIssue(issue Issue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Issues = append(r.Issues, issue)
}

// AddIssues adds multiple issues to the result.
// This method is thread-safe.
func (r *Result) AddIssues(issues []Issue) {
	if len(issues) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Issues = append(r.Issues, issues...)
}

// AddWarning is a convenience method to add a warning issue.
func (r *Result) AddWarning(code IssueType, diagnostics, path string) {
	r.AddIssue(Issue{
		Severity:    SeverityWarning,
		Code:        code,
		Diagnostics: diagnostics,
		Expression:  []string{path},
	})
}

// AddError is a convenience method to add an error issue.
func (r *Result) AddError(code IssueType, diagnostics, path string) {
	r.AddIssue(Issue{
		Severity:    SeverityError,
		Code:        code,
		Diagnostics: diagnostics,
		Expression:  []string{path},
	})
}

// HasErrors returns true if there are any error issues.
func (r *Result) HasErrors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, issue := range r.Issues {
		if issue.IsError() {
			return true
		}
	}
	return false
}

// HasWarnings returns true if there are any warning issues.
func (r *Result) HasWarnings() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, issue := range r.Issues {
		if issue.IsWarning() {
			return true
		}
	}
	return false
}

// WarningCount returns the number of warning issues.
func (r *Result) WarningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, issue := range r.Issues {
		if issue.IsWarning() {
			count++
		}
	}
	return count
}

// Warnings returns all warning issues.
func (r *Result) Warnings() []Issue {
	r.mu.Lock()
	defer r.mu.Unlock()

	var warnings []Issue
	for _, issue := range r.Issues {
		if issue.IsWarning() {
			warnings = append(warnings, issue)
		}
	}
	return warnings
}

// Clone creates a copy of the result (not pooled).
func (r *Result) Clone() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	clone := &Result{
		Submitted:  r.Submitted,
		Skipped:    r.Skipped,
		Issues:     make([]Issue, len(r.Issues)),
		BundleName: r.BundleName,
		JobID:      r.JobID,
		Entries:    r.Entries,
		Stubs:      r.Stubs,
		Rewritten:  r.Rewritten,
		Unresolved: r.Unresolved,
		SubBundles: r.SubBundles,
	}
	copy(clone.Issues, r.Issues)
	return clone
}

// NewResult creates a new (non-pooled) result.
// Prefer AcquireResult() for better performance.
func NewResult() *Result {
	return &Result{
		Issues: make([]Issue, 0, 8),
	}
}
