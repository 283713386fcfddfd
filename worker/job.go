package worker

import (
	fl "github.com/gofhir/loader"
)

// Job is one bundle to process.
type Job struct {
	// Name identifies the source object the bundle came from.
	Name string

	// Doc is the decoded bundle document.
	Doc map[string]any
}

// JobResult is the outcome of one job.
type JobResult struct {
	// Name matches the Job.Name that produced this result.
	Name string

	// Result carries the bundle's counters and issues.
	Result *fl.Result

	// Err is set when the job failed outright, e.g. submission exhausted
	// its retries. Data-quality findings go into Result.Issues instead.
	Err error

	// Duration is the processing time in nanoseconds.
	Duration int64
}

// BatchResult aggregates the results of one batch, in submission order.
type BatchResult struct {
	Results       []*JobResult
	TotalJobs     int
	CompletedJobs int
	FailedJobs    int
	TotalDuration int64
}

// HasFailures reports whether any job failed outright.
func (br *BatchResult) HasFailures() bool {
	return br.FailedJobs > 0
}

// ErrorCount totals the error-severity issues across all results.
func (br *BatchResult) ErrorCount() int {
	count := 0
	for _, r := range br.Results {
		if r != nil && r.Result != nil && r.Result.HasErrors() {
			for _, issue := range r.Result.Issues {
				if issue.IsError() {
					count++
				}
			}
		}
	}
	return count
}
