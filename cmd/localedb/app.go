package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/momacs/localedb/internal/config"
	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/etl"
	"github.com/momacs/localedb/internal/load"
	"github.com/momacs/localedb/internal/observability"
	"github.com/momacs/localedb/internal/schema"
)

const shutdownTimeout = 5 * time.Second

var errLoadFailed = errors.New("load failed")

// app owns the resources a command needs. The database is opened on first
// use so usage errors never touch the network.
type app struct {
	cfg *config.Config
	out io.Writer

	pool    *pgxpool.Pool
	metrics *observability.Metrics
	server  *observability.Server
	orch    *etl.Orchestrator
}

func newApp(cfg *config.Config, out io.Writer) *app {
	return &app{cfg: cfg, out: out}
}

// open connects the pool, builds the orchestrator and starts the metrics
// server when METRICS_ADDR is set.
func (a *app) open(ctx context.Context) error {
	if a.pool != nil {
		return nil
	}
	if err := a.cfg.RequireDatabase(); err != nil {
		return err
	}

	poolConfig, err := pgxpool.ParseConfig(a.cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(a.cfg.Database.MaxConns)
	poolConfig.MinConns = int32(a.cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = a.cfg.Database.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	slog.Info("connected to database", "name", a.cfg.Database.DatabaseName())

	metrics := observability.NewMetrics()
	orch, err := etl.New(a.cfg, pool, metrics)
	if err != nil {
		pool.Close()
		return err
	}
	a.pool, a.metrics, a.orch = pool, metrics, orch

	if addr := a.cfg.Metrics.Addr; addr != "" {
		a.server = observability.NewServer(addr, observability.ReadinessFunc(pool.Ping), slog.Default())
		go func() {
			if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}
	return nil
}

// close stops the metrics server, pushes the run's metrics when
// METRICS_PUSH_URL is set, and closes the pool.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("metrics server shutdown", "error", err)
		}
	}
	if a.metrics != nil && a.cfg.Metrics.PushURL != "" {
		if err := observability.Push(ctx, a.cfg.Metrics.PushURL, a.cfg.Metrics.Job, prometheus.DefaultGatherer); err != nil {
			slog.Warn("metrics push failed", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// createSchema applies the DDL in one transaction.
func (a *app) createSchema(ctx context.Context) error {
	if err := a.open(ctx); err != nil {
		return err
	}
	err := pgx.BeginFunc(ctx, a.pool, func(tx pgx.Tx) error {
		return schema.Create(ctx, tx)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "schema: created %d steps\n", len(schema.Steps))
	return nil
}

// listTables prints the load policy of every target table by schema. It
// reads the descriptors only and never connects.
func (a *app) listTables() error {
	reg, err := load.DefaultRegistry(a.cfg.Load.DescriptorsFile)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, name := range reg.Schemas() {
		fmt.Fprintln(tw, name)
		for _, d := range reg.BySchema(name) {
			if d.Scope == "" {
				fmt.Fprintf(tw, "  %s\t%s\n", d.Table, d.Policy)
				continue
			}
			fmt.Fprintf(tw, "  %s\t%s\tby %s\n", d.Table, d.Policy, d.Scope)
		}
	}
	return tw.Flush()
}

// load opens the database, runs fn and reports its results.
func (a *app) load(ctx context.Context, fn func(context.Context, *etl.Orchestrator) []core.LoadResult) error {
	if err := a.open(ctx); err != nil {
		return err
	}
	return a.report(fn(ctx, a.orch))
}

// report prints one line per result and fails when any load did.
func (a *app) report(results []core.LoadResult) error {
	failed := 0
	for _, r := range results {
		fmt.Fprintln(a.out, formatResult(r))
		if !r.Succeeded() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errLoadFailed, failed, len(results))
	}
	return nil
}

func formatResult(r core.LoadResult) string {
	name := string(r.Dataset)
	if r.Target != "" {
		name += " " + r.Target
	}
	took := r.Duration.Round(time.Millisecond)

	switch {
	case r.Already:
		return fmt.Sprintf("%s: already loaded, nothing changed (%s)", name, took)
	case r.Succeeded():
		return fmt.Sprintf("%s: loaded %d, skipped %d, dropped %d of %d extracted (%s)",
			name, r.Loaded, r.Skipped, r.Dropped, r.Extracted, took)
	case r.Err == nil:
		return fmt.Sprintf("%s: stopped in state %s", name, r.State)
	default:
		return fmt.Sprintf("%s: failed: %s", name, describeError(r.Err))
	}
}

// describeError renders a known failure as its operator message followed by
// the technical cause. Anything else is printed as is.
func describeError(err error) string {
	if !core.IsUserFacing(err) {
		return err.Error()
	}
	ue := core.NewUserError(err)
	return fmt.Sprintf("%s (Code: %s). %s: %v", ue.User.Message, ue.User.Code, ue.User.Action, ue.Technical)
}

func one(r core.LoadResult) []core.LoadResult {
	return []core.LoadResult{r}
}
