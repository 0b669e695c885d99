package etl

import (
	"context"

	"github.com/momacs/localedb/internal/core"
)

// step is one load of a multi-dataset run.
type step struct {
	dataset core.Dataset
	// prerequisite marks a load later steps depend on.
	prerequisite bool
	run          func(ctx context.Context) core.LoadResult
}

// RunAll loads the locale reference table, COVID-19 dynamics and NPIs, in
// that order.
func (o *Orchestrator) RunAll(ctx context.Context) []core.LoadResult {
	return runSteps(ctx, []step{
		{core.DatasetLocale, true, o.LoadLocales},
		{core.DatasetDisease, false, func(ctx context.Context) core.LoadResult {
			return o.LoadDisease(ctx, DiseaseCOVID19)
		}},
		{core.DatasetNPI, false, func(ctx context.Context) core.LoadResult {
			return o.LoadNPI(ctx, DiseaseCOVID19)
		}},
	})
}

// runSteps runs steps in order. A failed step does not stop the run unless
// it is a prerequisite; the steps after a failed prerequisite fail with a
// PrerequisiteError without running. A cancelled context stops the run.
func runSteps(ctx context.Context, steps []step) []core.LoadResult {
	results := make([]core.LoadResult, 0, len(steps))
	var missing core.Dataset
	for _, s := range steps {
		if ctx.Err() != nil {
			results = append(results, core.LoadResult{Dataset: s.dataset, State: core.StateFailed, Err: ctx.Err()})
			continue
		}
		if missing != "" {
			results = append(results, core.LoadResult{
				Dataset: s.dataset,
				State:   core.StateFailed,
				Err:     &core.PrerequisiteError{Dataset: s.dataset, Requires: missing, Hint: hintFor(missing)},
			})
			continue
		}
		r := s.run(ctx)
		results = append(results, r)
		if s.prerequisite && !r.Succeeded() {
			missing = s.dataset
		}
	}
	return results
}

func hintFor(ds core.Dataset) string {
	if ds == core.DatasetLocale {
		return LocaleHint
	}
	return "load " + string(ds) + " first"
}
