package etl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momacs/localedb/internal/core"
)

func result(ds core.Dataset, err error) core.LoadResult {
	if err != nil {
		return core.LoadResult{Dataset: ds, State: core.StateFailed, Err: err}
	}
	return core.LoadResult{Dataset: ds, State: core.StateDone}
}

func TestRunSteps_PrerequisiteFailureBlocksDependents(t *testing.T) {
	var ran []core.Dataset
	stepFor := func(ds core.Dataset, prereq bool, err error) step {
		return step{ds, prereq, func(context.Context) core.LoadResult {
			ran = append(ran, ds)
			return result(ds, err)
		}}
	}

	results := runSteps(context.Background(), []step{
		stepFor(core.DatasetLocale, true, errors.New("lookup unavailable")),
		stepFor(core.DatasetDisease, false, nil),
		stepFor(core.DatasetNPI, false, nil),
	})

	assert.Equal(t, []core.Dataset{core.DatasetLocale}, ran)
	require.Len(t, results, 3)
	for _, r := range results[1:] {
		var pe *core.PrerequisiteError
		require.ErrorAs(t, r.Err, &pe)
		assert.Equal(t, core.DatasetLocale, pe.Requires)
		assert.Equal(t, LocaleHint, pe.Hint)
		assert.Equal(t, core.StateFailed, r.State)
	}
}

func TestRunSteps_OrdinaryFailureDoesNotStopRun(t *testing.T) {
	var ran []core.Dataset
	stepFor := func(ds core.Dataset, prereq bool, err error) step {
		return step{ds, prereq, func(context.Context) core.LoadResult {
			ran = append(ran, ds)
			return result(ds, err)
		}}
	}

	results := runSteps(context.Background(), []step{
		stepFor(core.DatasetLocale, true, nil),
		stepFor(core.DatasetDisease, false, errors.New("fetch failed")),
		stepFor(core.DatasetNPI, false, nil),
	})

	assert.Equal(t, []core.Dataset{core.DatasetLocale, core.DatasetDisease, core.DatasetNPI}, ran)
	assert.True(t, results[0].Succeeded())
	assert.False(t, results[1].Succeeded())
	assert.True(t, results[2].Succeeded())
}

func TestRunSteps_AlreadyLoadedPrerequisiteCounts(t *testing.T) {
	results := runSteps(context.Background(), []step{
		{core.DatasetLocale, true, func(context.Context) core.LoadResult {
			return core.LoadResult{Dataset: core.DatasetLocale, State: core.StateDone, Already: true}
		}},
		{core.DatasetDisease, false, func(context.Context) core.LoadResult { return result(core.DatasetDisease, nil) }},
	})
	assert.True(t, results[1].Succeeded())
}

func TestRunSteps_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	results := runSteps(ctx, []step{
		{core.DatasetLocale, true, func(context.Context) core.LoadResult {
			cancel()
			return result(core.DatasetLocale, nil)
		}},
		{core.DatasetDisease, false, func(context.Context) core.LoadResult {
			t.Fatal("must not run after cancel")
			return core.LoadResult{}
		}},
	})
	require.Len(t, results, 2)
	assert.ErrorIs(t, results[1].Err, context.Canceled)
}
