package etl

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/momacs/localedb/internal/core"
)

// stateOrder is the forward path of a load. A load may skip states it has
// no work for (a reference load resolves nothing, an already loaded batch
// is not vacuumed) but never moves backwards.
var stateOrder = []core.LoadState{
	core.StatePending,
	core.StateExtracting,
	core.StateTransforming,
	core.StateResolving,
	core.StateLoading,
	core.StateVacuuming,
	core.StateDone,
}

// tracker walks one LoadResult through the load states.
type tracker struct {
	res *core.LoadResult
	log *slog.Logger
}

func newTracker(res *core.LoadResult, log *slog.Logger) *tracker {
	res.State = core.StatePending
	return &tracker{res: res, log: log}
}

// to moves the load forward to s.
func (t *tracker) to(s core.LoadState) error {
	from := t.res.State
	if from.Terminal() {
		return fmt.Errorf("load is %s, cannot move to %s", from, s)
	}
	if s == core.StateFailed {
		return fmt.Errorf("use fail to move to %s", s)
	}
	if slices.Index(stateOrder, s) <= slices.Index(stateOrder, from) {
		return fmt.Errorf("cannot move from %s back to %s", from, s)
	}
	t.res.State = s
	t.log.Debug("load state", "from", from, "to", s)
	return nil
}

// fail ends the load with err. A load that already ended keeps its outcome.
func (t *tracker) fail(err error) {
	if t.res.State.Terminal() {
		return
	}
	t.log.Debug("load state", "from", t.res.State, "to", core.StateFailed)
	t.res.State = core.StateFailed
	t.res.Err = err
}
