package phase

import (
	"context"

	fl "github.com/gofhir/loader"
	"github.com/gofhir/loader/pipeline"
	"github.com/gofhir/loader/resolve"
)

// InjectPhase prepends stub resources for conditional references that no
// entry in the bundle satisfies.
type InjectPhase struct{}

// NewInjectPhase creates the stub injection phase.
func NewInjectPhase() *InjectPhase {
	return &InjectPhase{}
}

// Name returns the phase name.
func (p *InjectPhase) Name() string {
	return string(pipeline.PhaseIDInject)
}

// Run scans for conditional references and injects stubs.
func (p *InjectPhase) Run(ctx context.Context, pctx *pipeline.Context) []fl.Issue {
	if pctx.Bundle == nil {
		return nil
	}

	res, err := resolve.Inject(ctx, pctx.Bundle)
	if err != nil {
		return []fl.Issue{fl.Warning(fl.IssueTypeProcessing).
			Diagnostics("stub injection aborted: " + err.Error()).
			Phase(p.Name()).
			Build()}
	}

	if pctx.Result != nil {
		pctx.Result.Stubs += res.Stubs
	}
	pctx.State = pipeline.StateStubInjected
	return res.Issues
}
