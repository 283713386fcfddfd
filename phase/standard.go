package phase

import (
	"github.com/gofhir/loader/pipeline"
)

// BuildStandard assembles a pipeline with the five standard phases at
// their standard priorities. All are required except Inject, which a
// caller may disable when inputs are known to be self-contained.
func BuildStandard(opts *pipeline.PipelineOptions) *pipeline.Pipeline {
	p := pipeline.NewPipeline(opts)

	p.Register(pipeline.PhaseIDInject, NewInjectPhase(),
		pipeline.WithPriority(pipeline.PriorityInject))
	p.Register(pipeline.PhaseIDRefMap, NewRefMapPhase(),
		pipeline.WithPriority(pipeline.PriorityRefMap),
		pipeline.WithRequired(true))
	p.Register(pipeline.PhaseIDRewrite, NewRewritePhase(),
		pipeline.WithPriority(pipeline.PriorityRewrite),
		pipeline.WithRequired(true))
	p.Register(pipeline.PhaseIDReorder, NewReorderPhase(),
		pipeline.WithPriority(pipeline.PriorityReorder),
		pipeline.WithRequired(true))
	p.Register(pipeline.PhaseIDSplit, NewSplitPhase(),
		pipeline.WithPriority(pipeline.PrioritySplit),
		pipeline.WithRequired(true))

	return p
}
