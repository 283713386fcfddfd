package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	fl "github.com/gofhir/loader"
)

// Pipeline orchestrates the execution of preparation phases.
// Phases run strictly in priority order; each stage's output is the next
// stage's input, so there is no parallel execution within a bundle.
type Pipeline struct {
	// registry holds all registered phases
	registry *PhaseRegistry

	// ordered holds enabled phases sorted by priority
	ordered []*PhaseConfig

	// metrics tracks execution metrics
	metrics *fl.Metrics

	// options holds pipeline configuration
	options *PipelineOptions

	// mu protects concurrent access
	mu sync.RWMutex
}

// PipelineOptions configures pipeline behavior.
type PipelineOptions struct {
	// PhaseTimeout is the maximum time for a single phase
	PhaseTimeout time.Duration

	// CollectMetrics enables performance metric collection
	CollectMetrics bool
}

// DefaultPipelineOptions returns sensible defaults.
func DefaultPipelineOptions() *PipelineOptions {
	return &PipelineOptions{
		PhaseTimeout:   0, // no timeout
		CollectMetrics: true,
	}
}

// NewPipeline creates a new preparation pipeline.
func NewPipeline(opts *PipelineOptions) *Pipeline {
	if opts == nil {
		opts = DefaultPipelineOptions()
	}

	return &Pipeline{
		registry: NewPhaseRegistry(),
		ordered:  make([]*PhaseConfig, 0, 8),
		metrics:  fl.NewMetrics(),
		options:  opts,
	}
}

// Register adds a phase to the pipeline.
func (p *Pipeline) Register(id PhaseID, phase Phase, opts ...PhaseOption) {
	config := &PhaseConfig{
		Phase:    phase,
		Priority: PriorityRewrite,
		Required: false,
		Enabled:  true,
	}

	for _, opt := range opts {
		opt(config)
	}

	p.mu.Lock()
	p.registry.Register(id, config)
	p.mu.Unlock()

	p.rebuildOrder()
}

// PhaseOption configures a phase registration.
type PhaseOption func(*PhaseConfig)

// WithPriority sets the phase priority.
func WithPriority(priority PhasePriority) PhaseOption {
	return func(c *PhaseConfig) {
		c.Priority = priority
	}
}

// WithRequired marks the phase as required.
func WithRequired(required bool) PhaseOption {
	return func(c *PhaseConfig) {
		c.Required = required
	}
}

// Enable enables a phase by ID.
func (p *Pipeline) Enable(id PhaseID) {
	p.mu.Lock()
	p.registry.Enable(id)
	p.mu.Unlock()
	p.rebuildOrder()
}

// Disable disables a phase by ID.
func (p *Pipeline) Disable(id PhaseID) {
	p.mu.Lock()
	p.registry.Disable(id)
	p.mu.Unlock()
	p.rebuildOrder()
}

// rebuildOrder sorts enabled phases by priority.
func (p *Pipeline) rebuildOrder() {
	p.mu.Lock()
	defer p.mu.Unlock()

	enabled := p.registry.GetEnabled()
	sort.Slice(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})
	p.ordered = enabled
}

// Execute runs every enabled phase against the bundle in priority order.
// Phase issues accumulate on the context's Result; a cancelled context
// stops the run with a processing warning.
func (p *Pipeline) Execute(ctx context.Context, pctx *Context) *fl.Result {
	start := time.Now()

	if pctx.Result == nil {
		pctx.Result = fl.AcquireResult()
	}

	p.mu.RLock()
	ordered := p.ordered
	p.mu.RUnlock()

	for _, cfg := range ordered {
		select {
		case <-ctx.Done():
			pctx.Result.AddIssue(fl.Warning(fl.IssueTypeProcessing).
				Diagnostics("preparation cancelled: " + ctx.Err().Error()).
				Build())
			return pctx.Result
		default:
		}

		p.executePhase(ctx, pctx, cfg)
	}

	if p.options.CollectMetrics && p.metrics != nil {
		p.metrics.RecordBundle(time.Since(start), !pctx.Result.HasErrors())
	}

	return pctx.Result
}

// executePhase runs a single phase with timing.
func (p *Pipeline) executePhase(ctx context.Context, pctx *Context, cfg *PhaseConfig) {
	phaseCtx := ctx
	var cancel context.CancelFunc
	if p.options.PhaseTimeout > 0 {
		phaseCtx, cancel = context.WithTimeout(ctx, p.options.PhaseTimeout)
		defer cancel()
	}

	start := time.Now()
	issues := cfg.Phase.Run(phaseCtx, pctx)
	duration := time.Since(start)

	if p.options.CollectMetrics && p.metrics != nil {
		p.metrics.RecordPhase(cfg.Phase.Name(), duration, len(issues))
		for _, issue := range issues {
			p.metrics.RecordIssue(issue.Severity)
		}
	}

	pctx.Result.AddIssues(issues)
}

// Metrics returns the pipeline metrics.
func (p *Pipeline) Metrics() *fl.Metrics {
	return p.metrics
}

// SetMetrics sets the metrics collector.
func (p *Pipeline) SetMetrics(m *fl.Metrics) {
	p.metrics = m
}

// Registry returns the phase registry.
func (p *Pipeline) Registry() *PhaseRegistry {
	return p.registry
}

// PhaseCount returns the number of enabled phases.
func (p *Pipeline) PhaseCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.ordered)
}
