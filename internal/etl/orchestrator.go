// Package etl sequences LocaleDB dataset loads.
//
// Every load follows the same path: check prerequisites, extract the
// sources, transform them into rows, then resolve locales and write the
// rows inside one unit of work, and finally vacuum the touched tables. The
// Orchestrator exposes one method per dataset; each returns a
// core.LoadResult rather than an error so multi-dataset runs can report
// every outcome.
package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"github.com/momacs/localedb/internal/config"
	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/fetch"
	"github.com/momacs/localedb/internal/load"
	"github.com/momacs/localedb/internal/locale"
	"github.com/momacs/localedb/internal/logging"
	"github.com/momacs/localedb/internal/observability"
	"github.com/momacs/localedb/internal/transform"
)

// LocaleHint is the remedy reported when a load finds main.locale empty.
const LocaleHint = "load main reference data first"

// Fetcher retrieves source files. Satisfied by *fetch.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, src string) ([]byte, error)
	FetchAll(ctx context.Context, srcs ...string) ([][]byte, error)
}

// Orchestrator runs dataset loads against one database.
type Orchestrator struct {
	pool     core.Pool
	registry *load.Registry
	loader   *load.Loader
	unit     *load.Unit
	fetcher  Fetcher
	metrics  *observability.Metrics
	clock    clockwork.Clock
	sources  config.SourcesConfig

	vacuum    bool
	timeout   time.Duration
	cacheSize int

	// newResolver builds the resolver a load uses inside its transaction.
	newResolver func(db core.DBTX) locale.Resolver
}

// New creates an Orchestrator from configuration. metrics may be nil.
func New(cfg *config.Config, pool core.Pool, metrics *observability.Metrics) (*Orchestrator, error) {
	reg, err := load.DefaultRegistry(cfg.Load.DescriptorsFile)
	if err != nil {
		return nil, fmt.Errorf("load descriptors: %w", err)
	}
	o := &Orchestrator{
		pool:      pool,
		registry:  reg,
		loader:    load.NewLoader(cfg.Load.PageSize, metrics),
		unit:      load.NewUnit(pool, cfg.Load.LockKey),
		fetcher:   fetch.FromConfig(cfg.Fetch, metrics),
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
		sources:   cfg.Sources,
		vacuum:    cfg.Load.Vacuum,
		timeout:   cfg.Load.Timeout,
		cacheSize: cfg.Load.ResolverCacheSize,
	}
	o.newResolver = func(db core.DBTX) locale.Resolver {
		return locale.NewCachedResolver(locale.NewStore(db), o.cacheSize, o.metrics)
	}
	return o, nil
}

// Registry returns the table descriptors the orchestrator loads with.
func (o *Orchestrator) Registry() *load.Registry {
	return o.registry
}

// job is one dataset load. extract and transform run before the
// transaction starts; write runs inside it.
type job struct {
	dataset core.Dataset
	target  string
	lock    load.LockMode

	// needsLocale makes the load fail fast when main.locale is empty.
	needsLocale bool

	// tables are vacuumed after a successful commit.
	tables []string

	extract   func(ctx context.Context) error
	transform func(ctx context.Context) (transform.Stats, error)
	write     func(ctx context.Context, s *session) error
}

// session is what write sees of the unit of work.
type session struct {
	tx       pgx.Tx
	resolver locale.Resolver
	st       *tracker
	res      *core.LoadResult
}

// loading marks the end of resolution.
func (s *session) loading() error {
	return s.st.to(core.StateLoading)
}

// apply accounts for a loader result and passes err through, so that
// ErrAlreadyLoaded still reports the skipped rows.
func (s *session) apply(r load.Result, err error) error {
	s.res.Loaded += r.Inserted + r.Updated
	s.res.Skipped += r.Skipped
	return err
}

func (o *Orchestrator) run(ctx context.Context, j job) (res core.LoadResult) {
	loadID := uuid.NewString()
	ctx = logging.WithLoad(ctx, loadID, string(j.dataset))
	log := logging.FromContext(ctx)
	if j.target != "" {
		log = log.With("target", j.target)
	}

	res = core.LoadResult{LoadID: loadID, Dataset: j.dataset, Target: j.target}
	st := newTracker(&res, log)
	start := o.clock.Now()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	if o.metrics != nil {
		o.metrics.LoadRunning.Inc()
		defer o.metrics.LoadRunning.Dec()
	}
	defer func() {
		res.Duration = o.clock.Since(start)
		o.observe(res)
		switch {
		case res.Err != nil:
			log.Error("load failed", "state", res.State, "error", res.Err,
				"unresolved", core.IsResolutionFailure(res.Err), "duration", res.Duration)
		case res.Already:
			log.Info("already loaded", "skipped", res.Skipped, "duration", res.Duration)
		default:
			log.Info("load complete", "extracted", res.Extracted, "dropped", res.Dropped,
				"loaded", res.Loaded, "skipped", res.Skipped, "duration", res.Duration)
		}
	}()

	step := func(s core.LoadState) bool {
		if err := st.to(s); err != nil {
			st.fail(err)
			return false
		}
		return true
	}

	if j.needsLocale {
		if err := o.requireLocale(ctx, j.dataset); err != nil {
			st.fail(err)
			return res
		}
	}

	if !step(core.StateExtracting) {
		return res
	}
	if err := j.extract(ctx); err != nil {
		st.fail(err)
		return res
	}

	if !step(core.StateTransforming) {
		return res
	}
	if j.transform != nil {
		stats, err := j.transform(ctx)
		res.Extracted = stats.In
		res.Dropped = stats.Dropped + stats.Duplicates
		if err != nil {
			st.fail(err)
			return res
		}
		if stats.Corrected > 0 {
			log.Info("applied corrections", "rows", stats.Corrected)
		}
	}

	err := o.unit.Run(ctx, j.lock, func(ctx context.Context, tx pgx.Tx) error {
		if err := st.to(core.StateResolving); err != nil {
			return err
		}
		s := &session{tx: tx, resolver: o.newResolver(tx), st: st, res: &res}
		return j.write(ctx, s)
	})
	switch {
	case errors.Is(err, core.ErrAlreadyLoaded):
		res.Already = true
		step(core.StateDone)
		return res
	case err != nil:
		st.fail(err)
		return res
	}

	if o.vacuum && len(j.tables) > 0 {
		if !step(core.StateVacuuming) {
			return res
		}
		ds := make([]load.Descriptor, 0, len(j.tables))
		for _, t := range j.tables {
			ds = append(ds, o.registry.MustGet(t))
		}
		if err := load.Vacuum(ctx, o.pool, ds...); err != nil {
			st.fail(err)
			return res
		}
	}
	step(core.StateDone)
	return res
}

// requireLocale fails with a PrerequisiteError when main.locale is empty.
func (o *Orchestrator) requireLocale(ctx context.Context, ds core.Dataset) error {
	n, err := locale.NewStore(o.pool).Count(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return &core.PrerequisiteError{Dataset: ds, Requires: core.DatasetLocale, Hint: LocaleHint}
	}
	return nil
}

func (o *Orchestrator) observe(r core.LoadResult) {
	if o.metrics == nil {
		return
	}
	ds := string(r.Dataset)
	outcome := "done"
	switch {
	case r.Err != nil && core.IsResolutionFailure(r.Err):
		outcome = "unresolved"
	case r.Err != nil:
		outcome = "failed"
	case r.Already:
		outcome = "already_loaded"
	}
	o.metrics.Loads.WithLabelValues(ds, outcome).Inc()
	o.metrics.LoadDuration.WithLabelValues(ds).Observe(r.Duration.Seconds())
	o.metrics.RowsExtracted.WithLabelValues(ds).Add(float64(r.Extracted))
	o.metrics.RowsDropped.WithLabelValues(ds).Add(float64(r.Dropped))
}

// rowError attaches the source row ordinal to a resolution failure while
// keeping it matchable with errors.As.
func rowError(ds core.Dataset, ordinal int, err error) error {
	return fmt.Errorf("%s row %d: %w", ds, ordinal, err)
}
