package phase

import (
	"context"

	fl "github.com/gofhir/loader"
	"github.com/gofhir/loader/pipeline"
	"github.com/gofhir/loader/resolve"
)

// ReorderPhase stable-sorts entries so dependencies commit before their
// dependents.
type ReorderPhase struct{}

// NewReorderPhase creates the entry ordering phase.
func NewReorderPhase() *ReorderPhase {
	return &ReorderPhase{}
}

// Name returns the phase name.
func (p *ReorderPhase) Name() string {
	return string(pipeline.PhaseIDReorder)
}

// Run reorders the bundle's entries in place.
func (p *ReorderPhase) Run(ctx context.Context, pctx *pipeline.Context) []fl.Issue {
	if pctx.Bundle == nil {
		return nil
	}

	resolve.Reorder(pctx.Bundle)
	pctx.State = pipeline.StateReordered
	return nil
}
