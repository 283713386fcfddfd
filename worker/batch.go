package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	fl "github.com/gofhir/loader"
)

// ProcessFunc handles one bundle end to end.
type ProcessFunc func(ctx context.Context, job Job) (*fl.Result, error)

// BatchProcessor runs jobs with bounded parallelism.
type BatchProcessor struct {
	process ProcessFunc
	workers int

	// Cumulative across batches
	jobsSubmitted atomic.Uint64
	jobsCompleted atomic.Uint64
	totalDuration atomic.Uint64
}

// NewBatchProcessor creates a processor with the given worker count.
// If workers <= 0, it defaults to runtime.NumCPU().
func NewBatchProcessor(process ProcessFunc, workers int) *BatchProcessor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &BatchProcessor{process: process, workers: workers}
}

// ProcessBatch runs all jobs and returns their results in submission
// order.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []Job) *BatchResult {
	if len(jobs) == 0 {
		return &BatchResult{Results: make([]*JobResult, 0)}
	}

	// Parallelism has nothing to win on tiny batches
	if bp.workers == 1 || len(jobs) <= 2 {
		return bp.processSequential(ctx, jobs)
	}
	return bp.processParallel(ctx, jobs)
}

// Stats returns cumulative processing statistics.
func (bp *BatchProcessor) Stats() Stats {
	return Stats{
		Workers:       bp.workers,
		JobsSubmitted: bp.jobsSubmitted.Load(),
		JobsCompleted: bp.jobsCompleted.Load(),
		AvgDuration:   bp.averageDuration(),
	}
}

// Stats contains processor statistics.
type Stats struct {
	Workers       int
	JobsSubmitted uint64
	JobsCompleted uint64
	AvgDuration   time.Duration
}

func (bp *BatchProcessor) runJob(ctx context.Context, job Job) *JobResult {
	start := time.Now()
	result, err := bp.process(ctx, job)
	duration := time.Since(start).Nanoseconds()

	bp.jobsCompleted.Add(1)
	bp.totalDuration.Add(uint64(duration)) //nolint:gosec // Durations are non-negative

	return &JobResult{Name: job.Name, Result: result, Err: err, Duration: duration}
}

func (bp *BatchProcessor) processSequential(ctx context.Context, jobs []Job) *BatchResult {
	br := &BatchResult{
		Results:   make([]*JobResult, 0, len(jobs)),
		TotalJobs: len(jobs),
	}

	for _, job := range jobs {
		if ctx.Err() != nil {
			return br
		}
		bp.jobsSubmitted.Add(1)

		jr := bp.runJob(ctx, job)
		br.Results = append(br.Results, jr)
		br.CompletedJobs++
		br.TotalDuration += jr.Duration
		if jr.Err != nil {
			br.FailedJobs++
		}
	}
	return br
}

func (bp *BatchProcessor) processParallel(ctx context.Context, jobs []Job) *BatchResult {
	workers := bp.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	type indexedJob struct {
		index int
		job   Job
	}

	jobsChan := make(chan indexedJob, len(jobs))
	results := make([]*JobResult, len(jobs))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for ij := range jobsChan {
				if ctx.Err() != nil {
					return
				}
				results[ij.index] = bp.runJob(ctx, ij.job)
			}
		}()
	}

	for i, job := range jobs {
		bp.jobsSubmitted.Add(1)
		jobsChan <- indexedJob{index: i, job: job}
	}
	close(jobsChan)
	wg.Wait()

	br := &BatchResult{
		Results:   results,
		TotalJobs: len(jobs),
	}
	for _, jr := range results {
		if jr == nil {
			continue
		}
		br.CompletedJobs++
		br.TotalDuration += jr.Duration
		if jr.Err != nil {
			br.FailedJobs++
		}
	}
	return br
}

func (bp *BatchProcessor) averageDuration() time.Duration {
	completed := bp.jobsCompleted.Load()
	if completed == 0 {
		return 0
	}
	return time.Duration(bp.totalDuration.Load() / completed) //nolint:gosec // Average of bounded durations
}
