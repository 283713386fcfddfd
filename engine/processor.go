// Package engine orchestrates a full load: provider upload, device
// provisioning, bundle streaming through the resolver pipeline, ordered
// sub-bundle submission, qualifying patient capture, device association,
// and the end-of-run summary.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	fl "github.com/gofhir/loader"
	"github.com/gofhir/loader/device"
	"github.com/gofhir/loader/eligibility"
	"github.com/gofhir/loader/phase"
	"github.com/gofhir/loader/pipeline"
	"github.com/gofhir/loader/registry"
	"github.com/gofhir/loader/stream"
	"github.com/gofhir/loader/worker"
)

// SummaryResourceTypes are counted from the store at the end of a run.
var SummaryResourceTypes = []string{
	"Patient", "Organization", "Practitioner", "Encounter",
	"Condition", "Observation", "Device", "Basic",
}

// FHIRClient is the slice of the submission client the engine needs.
type FHIRClient interface {
	SubmitBundle(ctx context.Context, bundle map[string]any) error
	PutResource(ctx context.Context, resourceType, id string, resource map[string]any) error
	Count(ctx context.Context, resourceType string) (int, error)
}

// QualifyingPatient is one patient captured for device monitoring.
type QualifyingPatient struct {
	ID        string
	Name      string
	BirthDate string
	Pediatric bool
	Condition string
}

// RunReport summarizes a completed run.
type RunReport struct {
	RunID         string
	Processed     int
	Uploaded      int
	Skipped       int
	Failed        int
	Split         int
	SourceSkipped int
	Qualifying    []QualifyingPatient
	Counts        map[string]int
}

// Processor drives the load end to end.
type Processor struct {
	source     *stream.Source
	client     FHIRClient
	devices    *registry.DeviceRegistry
	providers  *registry.ProviderDirectory
	classifier *eligibility.Classifier
	pipe       *pipeline.Pipeline
	metrics    *fl.Metrics
	options    *fl.Options
	log        zerolog.Logger

	mu         sync.Mutex
	qualifying []QualifyingPatient
	perBundle  map[string]QualifyingPatient
}

// ProcessorOption configures the Processor beyond the engine options.
type ProcessorOption func(*Processor)

// WithLogger sets the processor logger.
func WithLogger(log zerolog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.log = log
	}
}

// WithDeviceRegistry sets the device inventory and qualifying codes.
func WithDeviceRegistry(reg *registry.DeviceRegistry) ProcessorOption {
	return func(p *Processor) {
		p.devices = reg
	}
}

// WithProviderDirectory sets the affiliated provider directory.
func WithProviderDirectory(dir *registry.ProviderDirectory) ProcessorOption {
	return func(p *Processor) {
		p.providers = dir
	}
}

// WithOptions applies engine options.
func WithOptions(opts ...fl.Option) ProcessorOption {
	return func(p *Processor) {
		for _, opt := range opts {
			opt(p.options)
		}
	}
}

// New creates a processor reading bundles from source and writing to
// client.
func New(source *stream.Source, client FHIRClient, opts ...ProcessorOption) *Processor {
	p := &Processor{
		source:    source,
		client:    client,
		options:   fl.DefaultOptions(),
		metrics:   fl.NewMetrics(),
		log:       zerolog.Nop(),
		perBundle: make(map[string]QualifyingPatient),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.devices == nil {
		p.devices = registry.DefaultDeviceRegistry(p.options.DeviceCount)
	}
	if p.providers == nil {
		p.providers = registry.EmptyProviderDirectory()
	}
	p.classifier = eligibility.NewClassifier(p.devices)
	p.pipe = phase.BuildStandard(nil)
	p.pipe.SetMetrics(p.metrics)
	return p
}

// Metrics exposes the run metrics.
func (p *Processor) Metrics() *fl.Metrics {
	return p.metrics
}

// Run executes the full load. Individual bundle failures are counted and
// skipped; only infrastructure failures (listing the source) abort the
// run.
func (p *Processor) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{RunID: uuid.NewString(), Counts: make(map[string]int)}
	p.log.Info().Str("run_id", report.RunID).Bool("dry_run", p.options.DryRun).
		Msg("starting load")

	p.uploadProviders(ctx)
	p.provisionDevices(ctx)

	bp := worker.NewBatchProcessor(p.processBundle, p.options.WorkerCount)

	for batch := range p.source.Stream(ctx) {
		if batch.Err != nil {
			return report, fmt.Errorf("streaming source: %w", batch.Err)
		}

		jobs := make([]worker.Job, 0, len(batch.Bundles))
		for _, sb := range batch.Bundles {
			jobs = append(jobs, worker.Job{Name: sb.Name, Doc: sb.Doc})
		}

		br := bp.ProcessBatch(ctx, jobs)
		p.collectBatch(br, report)
	}
	report.SourceSkipped = p.source.Skipped()

	p.associate(ctx, report)
	p.summarize(ctx, report)

	p.log.Info().
		Int("processed", report.Processed).
		Int("uploaded", report.Uploaded).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("split", report.Split).
		Int("qualifying", len(report.Qualifying)).
		Msg("load complete")
	return report, nil
}

// uploadProviders PUTs every organization in the provider directory.
// Per-resource failures are logged, not fatal.
func (p *Processor) uploadProviders(ctx context.Context) {
	orgs := p.providers.Organizations()
	if len(orgs) == 0 {
		return
	}
	p.log.Info().Int("organizations", len(orgs)).Msg("uploading provider organizations")

	for _, org := range orgs {
		id, _ := org["id"].(string)
		if id == "" {
			continue
		}
		if err := p.client.PutResource(ctx, "Organization", id, org); err != nil {
			p.log.Error().Err(err).Str("organization", id).Msg("provider upload failed")
		}
	}
}

func (p *Processor) provisionDevices(ctx context.Context) {
	if p.options.DeviceCount <= 0 {
		return
	}
	a := device.NewAssociator(p.devices.Devices(-1), p.client, p.log)
	a.Provision(ctx, p.options.DeviceCount)
}

// processBundle handles one source bundle: gate, classify, resolve,
// submit.
func (p *Processor) processBundle(ctx context.Context, job worker.Job) (*fl.Result, error) {
	result := fl.NewResult()
	result.BundleName = job.Name

	patient := eligibility.Patient(job.Doc)
	if patient == nil {
		result.Skipped = 1
		result.AddWarning(fl.IssueTypeBusinessRule, "bundle has no Patient resource", "Bundle")
		return result, nil
	}

	now := time.Now()
	if !eligibility.Gate(job.Doc, p.providers, now) {
		result.Skipped = 1
		result.AddIssue(fl.Issue{
			Severity:    fl.SeverityInformation,
			Code:        fl.IssueTypeBusinessRule,
			Diagnostics: "non-pediatric patient managed by a pediatric-network organization",
			Expression:  []string{"Bundle"},
		})
		return result, nil
	}

	// Classification reads the bundle as generated, before stubs and
	// rewrites touch it.
	qualified, condition := p.classifier.Classify(job.Doc)

	pctx := pipeline.AcquireContext()
	defer pipeline.ReleaseContext(pctx)
	pctx.Name = job.Name
	pctx.Bundle = job.Doc
	pctx.EntryCeiling = p.options.EntryCeiling
	pctx.Result = result

	p.pipe.Execute(ctx, pctx)
	if result.HasErrors() {
		return result, fmt.Errorf("preparing %s failed", job.Name)
	}

	if !p.options.DryRun {
		// Sub-bundles go out strictly in order; the first carries the
		// foundational entries the rest depend on.
		for i, sub := range pctx.SubBundles {
			if err := p.client.SubmitBundle(ctx, sub); err != nil {
				p.metrics.RecordFailed()
				return result, fmt.Errorf("submitting %s sub-bundle %d/%d: %w",
					job.Name, i+1, len(pctx.SubBundles), err)
			}
			p.metrics.RecordSubmission()
			result.SubBundles = i + 1
		}
	}
	result.Submitted = 1

	if qualified {
		p.recordQualifying(job.Name, patient, condition, now)
	}
	return result, nil
}

// recordQualifying stashes the patient keyed by bundle name; collectBatch
// admits them in stream order up to the cap.
func (p *Processor) recordQualifying(name string, patient map[string]any, condition string, now time.Time) {
	qp := QualifyingPatient{
		Name:      displayName(patient),
		BirthDate: birthDate(patient),
		Pediatric: eligibility.IsPediatric(patient, now),
		Condition: condition,
	}
	if id, _ := patient["id"].(string); id != "" {
		qp.ID = id
	}

	p.mu.Lock()
	p.perBundle[name] = qp
	p.mu.Unlock()
}

// collectBatch folds one batch's results into the report, preserving
// stream order for the qualifying capture even under parallel workers.
func (p *Processor) collectBatch(br *worker.BatchResult, report *RunReport) {
	for _, jr := range br.Results {
		if jr == nil {
			continue
		}
		report.Processed++

		// The pipeline already records per-bundle and per-issue metrics
		// during Execute; only the outcomes it cannot see are added here.
		switch {
		case jr.Err != nil:
			report.Failed++
			p.log.Error().Err(jr.Err).Str("bundle", jr.Name).Msg("bundle failed")
		case jr.Result != nil && jr.Result.Skipped > 0:
			report.Skipped++
			p.metrics.RecordSkipped()
		default:
			report.Uploaded++
			if jr.Result != nil && jr.Result.SubBundles > 1 {
				report.Split++
				p.metrics.RecordSplit()
			}
		}

		p.mu.Lock()
		if qp, ok := p.perBundle[jr.Name]; ok {
			delete(p.perBundle, jr.Name)
			if jr.Err == nil && len(p.qualifying) < p.options.MaxQualifying {
				p.qualifying = append(p.qualifying, qp)
			}
		}
		p.mu.Unlock()

		if jr.Result != nil {
			p.metrics.RecordStubs(jr.Result.Stubs)
			p.metrics.RecordRewritten(jr.Result.Rewritten)
			p.metrics.RecordUnresolved(jr.Result.Unresolved)
			jr.Result.Release()
		}
	}
	report.Qualifying = p.qualifying
}

// associate links inventory devices to the captured patients in order.
func (p *Processor) associate(ctx context.Context, report *RunReport) {
	if len(report.Qualifying) == 0 || p.options.DryRun {
		return
	}
	links := make([]device.Link, 0, len(report.Qualifying))
	for _, qp := range report.Qualifying {
		links = append(links, device.Link{PatientID: qp.ID, PatientName: qp.Name})
	}
	a := device.NewAssociator(p.devices.Devices(-1), p.client, p.log)
	a.Associate(ctx, links)
}

// summarize fetches per-resource-type counts from the store.
func (p *Processor) summarize(ctx context.Context, report *RunReport) {
	for _, rt := range SummaryResourceTypes {
		count, err := p.client.Count(ctx, rt)
		if err != nil {
			p.log.Warn().Err(err).Str("resource_type", rt).Msg("summary count failed")
			continue
		}
		report.Counts[rt] = count
		p.log.Info().Str("resource_type", rt).Int("count", count).Msg("store total")
	}
}

func displayName(patient map[string]any) string {
	names, _ := patient["name"].([]any)
	if len(names) == 0 {
		return ""
	}
	name, _ := names[0].(map[string]any)

	var parts []string
	if given, ok := name["given"].([]any); ok {
		for _, g := range given {
			if s, ok := g.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
	}
	if family, ok := name["family"].(string); ok && family != "" {
		parts = append(parts, family)
	}
	return strings.Join(parts, " ")
}

func birthDate(patient map[string]any) string {
	bd, _ := patient["birthDate"].(string)
	return bd
}
