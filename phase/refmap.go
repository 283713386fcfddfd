package phase

import (
	"context"

	fl "github.com/gofhir/loader"
	"github.com/gofhir/loader/pipeline"
	"github.com/gofhir/loader/resolve"
)

// RefMapPhase derives the conditional-to-direct reference map from the
// identifiers declared by the bundle's entries, stubs included.
type RefMapPhase struct{}

// NewRefMapPhase creates the reference map phase.
func NewRefMapPhase() *RefMapPhase {
	return &RefMapPhase{}
}

// Name returns the phase name.
func (p *RefMapPhase) Name() string {
	return string(pipeline.PhaseIDRefMap)
}

// Run builds the reference map onto the context.
func (p *RefMapPhase) Run(ctx context.Context, pctx *pipeline.Context) []fl.Issue {
	if pctx.Bundle == nil {
		return nil
	}

	refMap, issues := resolve.BuildRefMap(pctx.Bundle)
	pctx.RefMap = refMap
	pctx.State = pipeline.StateMapped
	return issues
}
