package phase

import (
	"context"

	fl "github.com/gofhir/loader"
	"github.com/gofhir/loader/pipeline"
	"github.com/gofhir/loader/resolve"
)

// SplitPhase partitions the prepared bundle into sub-bundles that fit
// under the submission ceiling.
type SplitPhase struct{}

// NewSplitPhase creates the transactional split phase.
func NewSplitPhase() *SplitPhase {
	return &SplitPhase{}
}

// Name returns the phase name.
func (p *SplitPhase) Name() string {
	return string(pipeline.PhaseIDSplit)
}

// Run splits the bundle and stores the submission sequence on the context.
func (p *SplitPhase) Run(ctx context.Context, pctx *pipeline.Context) []fl.Issue {
	if pctx.Bundle == nil {
		return nil
	}

	ceiling := pctx.EntryCeiling
	if ceiling <= 0 {
		ceiling = fl.DefaultOptions().EntryCeiling
	}

	res := resolve.Split(pctx.Bundle, ceiling)
	pctx.SubBundles = res.Bundles
	if pctx.Result != nil {
		pctx.Result.SubBundles = len(res.Bundles)
	}
	pctx.State = pipeline.StateSplit

	issues := res.Issues
	for i := range issues {
		issues[i].Phase = p.Name()
	}
	return issues
}
