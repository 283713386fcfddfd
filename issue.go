package fhirloader

// IssueSeverity represents the severity of a data-quality issue.
// Maps to OperationOutcome.issue.severity in FHIR.
type IssueSeverity string

const (
	// SeverityError indicates the bundle could not be submitted.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates degraded output that should be reviewed.
	SeverityWarning IssueSeverity = "warning"
	// SeverityInformation indicates informational feedback.
	SeverityInformation IssueSeverity = "information"
)

// IssueType represents the type of data-quality issue.
// Maps to OperationOutcome.issue.code in FHIR.
type IssueType string

const (
	// IssueTypeStructure indicates a malformed or absent expected field;
	// the offending subtree was skipped.
	IssueTypeStructure IssueType = "structure"
	// IssueTypeUnresolvedReference indicates a conditional reference that
	// could not be mapped to a direct reference and was left verbatim.
	IssueTypeUnresolvedReference IssueType = "unresolved-reference"
	// IssueTypeDuplicateIdentifier indicates two entries claimed the same
	// conditional-reference key; the later entry won.
	IssueTypeDuplicateIdentifier IssueType = "duplicate-identifier"
	// IssueTypeNotSupported indicates a conditional reference whose target
	// kind has no stub synthesizer.
	IssueTypeNotSupported IssueType = "not-supported"
	// IssueTypeBusinessRule indicates an eligibility rule decision
	// (for example, a non-pediatric patient skipped by the network gate).
	IssueTypeBusinessRule IssueType = "business-rule"
	// IssueTypeProcessing indicates a processing error, such as a failed
	// submission surfaced from the store.
	IssueTypeProcessing IssueType = "processing"
	// IssueTypeLimit indicates a size constraint, such as a first
	// sub-bundle whose foundational entries alone exceed the ceiling.
	IssueTypeLimit IssueType = "limit"
)

// Issue represents a single data-quality finding made while preparing or
// submitting a bundle. It maps to OperationOutcome.issue in FHIR.
type Issue struct {
	// Severity of the issue (error, warning, information)
	Severity IssueSeverity `json:"severity"`

	// Code identifying the type of issue
	Code IssueType `json:"code"`

	// Diagnostics contains human-readable details about the issue
	Diagnostics string `json:"diagnostics,omitempty"`

	// Expression contains path(s) to the element(s) concerned
	Expression []string `json:"expression,omitempty"`

	// Phase is the pipeline phase that generated this issue
	Phase string `json:"phase,omitempty"`
}

// IsError returns true if this is an error issue.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError
}

// IsWarning returns true if this is a warning.
func (i Issue) IsWarning() bool {
	return i.Severity == SeverityWarning
}

// String returns a human-readable representation of the issue.
func (i Issue) String() string {
	path := ""
	if len(i.Expression) > 0 {
		path = " at " + i.Expression[0]
	}
	return string(i.Severity) + ": " + i.Diagnostics + path
}

// IssueBuilder provides a fluent API for building issues.
type IssueBuilder struct {
	issue Issue
}

// NewIssue creates a new IssueBuilder.
func NewIssue(severity IssueSeverity, code IssueType) *IssueBuilder {
	return &IssueBuilder{
		issue: Issue{
			Severity: severity,
			Code:     code,
		},
	}
}

// Error creates an error issue.
func Error(code IssueType) *IssueBuilder {
	return NewIssue(SeverityError, code)
}

// Warning creates a warning issue.
func Warning(code IssueType) *IssueBuilder {
	return NewIssue(SeverityWarning, code)
}

// Info creates an informational issue.
func Info(code IssueType) *IssueBuilder {
	return NewIssue(SeverityInformation, code)
}

// Diagnostics sets the diagnostic message.
func (b *IssueBuilder) Diagnostics(msg string) *IssueBuilder {
	b.issue.Diagnostics = msg
	return b
}

// At sets the expression path.
func (b *IssueBuilder) At(path string) *IssueBuilder {
	b.issue.Expression = []string{path}
	return b
}

// Phase sets the pipeline phase.
func (b *IssueBuilder) Phase(phase string) *IssueBuilder {
	b.issue.Phase = phase
	return b
}

// Build returns the constructed issue.
func (b *IssueBuilder) Build() Issue {
	return b.issue
}
