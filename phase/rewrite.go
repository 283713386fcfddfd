package phase

import (
	"context"

	fl "github.com/gofhir/loader"
	"github.com/gofhir/loader/pipeline"
	"github.com/gofhir/loader/resolve"
)

// RewritePhase pins entry identities, normalizes bundle-local references,
// substitutes conditional references, and stamps insert-or-replace
// requests, turning the bundle into a transaction.
type RewritePhase struct{}

// NewRewritePhase creates the reference rewrite phase.
func NewRewritePhase() *RewritePhase {
	return &RewritePhase{}
}

// Name returns the phase name.
func (p *RewritePhase) Name() string {
	return string(pipeline.PhaseIDRewrite)
}

// Run rewrites the bundle using the context's reference map.
func (p *RewritePhase) Run(ctx context.Context, pctx *pipeline.Context) []fl.Issue {
	if pctx.Bundle == nil {
		return nil
	}

	res := resolve.Rewrite(pctx.Bundle, pctx.RefMap)

	if pctx.Result != nil {
		pctx.Result.Rewritten += res.Rewritten
		pctx.Result.Unresolved += res.Unresolved
	}
	pctx.State = pipeline.StateRewritten

	issues := res.Issues
	for i := range issues {
		issues[i].Phase = p.Name()
	}
	return issues
}
