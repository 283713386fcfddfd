package pipeline

import (
	"context"

	fl "github.com/gofhir/loader"
)

// Phase represents a single preparation phase in the pipeline.
//
// Phases should be:
// - Stateless: all per-bundle state lives in the Context
// - Total: report data-quality issues instead of failing
// - Fast-failing: return early if ctx is cancelled
type Phase interface {
	// Name returns the unique identifier for this phase.
	Name() string

	// Run executes the phase against the bundle held by the pipeline
	// Context and returns any data-quality issues found.
	Run(ctx context.Context, pctx *Context) []fl.Issue
}

// PhaseFunc is a function type that implements Phase.
// Useful for simple phases that don't need a full struct.
type PhaseFunc struct {
	name string
	fn   func(ctx context.Context, pctx *Context) []fl.Issue
}

// NewPhaseFunc creates a Phase from a function.
func NewPhaseFunc(name string, fn func(ctx context.Context, pctx *Context) []fl.Issue) Phase {
	return &PhaseFunc{name: name, fn: fn}
}

// Name returns the phase name.
func (p *PhaseFunc) Name() string {
	return p.name
}

// Run calls the wrapped function.
func (p *PhaseFunc) Run(ctx context.Context, pctx *Context) []fl.Issue {
	return p.fn(ctx, pctx)
}

// PhaseID uniquely identifies a preparation phase.
type PhaseID string

// Standard phase identifiers.
const (
	PhaseIDInject  PhaseID = "inject"
	PhaseIDRefMap  PhaseID = "refmap"
	PhaseIDRewrite PhaseID = "rewrite"
	PhaseIDReorder PhaseID = "reorder"
	PhaseIDSplit   PhaseID = "split"
)

// PhasePriority defines the order in which phases run.
// Lower values run first. The resolver stages are data-dependent, so every
// standard phase gets its own priority.
type PhasePriority int

const (
	// PriorityInject runs first so later stages see the stub entries
	PriorityInject PhasePriority = 100

	// PriorityRefMap runs after injection so stubs contribute mappings
	PriorityRefMap PhasePriority = 200

	// PriorityRewrite consumes the reference map
	PriorityRewrite PhasePriority = 300

	// PriorityReorder runs on the rewritten entries
	PriorityReorder PhasePriority = 400

	// PrioritySplit runs last, producing the submission sequence
	PrioritySplit PhasePriority = 500
)

// PhaseConfig holds configuration for a phase in the pipeline.
type PhaseConfig struct {
	// Phase is the phase implementation
	Phase Phase

	// Priority determines execution order (lower runs first)
	Priority PhasePriority

	// Required indicates if this phase must run (cannot be disabled)
	Required bool

	// Enabled indicates if this phase is currently enabled
	Enabled bool
}

// PhaseRegistry manages available preparation phases.
type PhaseRegistry struct {
	phases map[PhaseID]*PhaseConfig
}

// NewPhaseRegistry creates a new empty registry.
func NewPhaseRegistry() *PhaseRegistry {
	return &PhaseRegistry{
		phases: make(map[PhaseID]*PhaseConfig),
	}
}

// Register adds a phase to the registry.
func (r *PhaseRegistry) Register(id PhaseID, config *PhaseConfig) {
	r.phases[id] = config
}

// Get returns a phase configuration by ID.
func (r *PhaseRegistry) Get(id PhaseID) (*PhaseConfig, bool) {
	cfg, ok := r.phases[id]
	return cfg, ok
}

// GetEnabled returns all enabled phases.
func (r *PhaseRegistry) GetEnabled() []*PhaseConfig {
	var enabled []*PhaseConfig
	for _, cfg := range r.phases {
		if cfg.Enabled {
			enabled = append(enabled, cfg)
		}
	}
	return enabled
}

// Enable enables a phase by ID.
func (r *PhaseRegistry) Enable(id PhaseID) {
	if cfg, ok := r.phases[id]; ok {
		cfg.Enabled = true
	}
}

// Disable disables a phase by ID (unless required).
func (r *PhaseRegistry) Disable(id PhaseID) {
	if cfg, ok := r.phases[id]; ok && !cfg.Required {
		cfg.Enabled = false
	}
}

// All returns all registered phases.
func (r *PhaseRegistry) All() map[PhaseID]*PhaseConfig {
	return r.phases
}

// ConditionalPhase wraps a phase with a condition for execution.
type ConditionalPhase struct {
	phase     Phase
	condition func(*Context) bool
}

// NewConditionalPhase creates a phase that only runs when a condition is met.
func NewConditionalPhase(phase Phase, condition func(*Context) bool) Phase {
	return &ConditionalPhase{
		phase:     phase,
		condition: condition,
	}
}

// Name returns the wrapped phase name.
func (p *ConditionalPhase) Name() string {
	return p.phase.Name()
}

// Run runs the phase if the condition is met.
func (p *ConditionalPhase) Run(ctx context.Context, pctx *Context) []fl.Issue {
	if p.condition != nil && !p.condition(pctx) {
		return nil
	}
	return p.phase.Run(ctx, pctx)
}

// CompositePhase combines multiple phases into one.
type CompositePhase struct {
	name   string
	phases []Phase
}

// NewCompositePhase creates a phase that runs multiple sub-phases sequentially.
func NewCompositePhase(name string, phases ...Phase) Phase {
	return &CompositePhase{
		name:   name,
		phases: phases,
	}
}

// Name returns the composite phase name.
func (p *CompositePhase) Name() string {
	return p.name
}

// Run runs all sub-phases sequentially.
func (p *CompositePhase) Run(ctx context.Context, pctx *Context) []fl.Issue {
	var allIssues []fl.Issue

	for _, phase := range p.phases {
		select {
		case <-ctx.Done():
			return allIssues
		default:
		}

		issues := phase.Run(ctx, pctx)
		allIssues = append(allIssues, issues...)
	}

	return allIssues
}
