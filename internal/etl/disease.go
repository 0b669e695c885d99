package etl

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/fetch"
	"github.com/momacs/localedb/internal/load"
	"github.com/momacs/localedb/internal/logging"
	"github.com/momacs/localedb/internal/source"
	"github.com/momacs/localedb/internal/transform"
)

// DiseaseCOVID19 is the only disease with a time series source.
const DiseaseCOVID19 = "c19"

// dynFile is one JHU time series file and the dyn column it contributes.
type dynFile struct {
	name   string
	column string
}

// c19Files are merged in this order; later passes only fill their own
// column.
var c19Files = []dynFile{
	{"time_series_covid19_confirmed_global.csv", transform.ColConfirmed},
	{"time_series_covid19_deaths_global.csv", transform.ColDead},
	{"time_series_covid19_recovered_global.csv", transform.ColRecovered},
	{"time_series_covid19_confirmed_US.csv", transform.ColConfirmed},
	{"time_series_covid19_deaths_US.csv", transform.ColDead},
}

// dynFlushRows bounds the rows built before a merge call.
const dynFlushRows = 50_000

// LoadDisease loads the case dynamics of a disease. The passes merge into a
// staging copy of dis.dyn, which then replaces the disease's rows, so
// readers never see a partially merged series.
func (o *Orchestrator) LoadDisease(ctx context.Context, name string) core.LoadResult {
	var (
		series []*source.TimeSeries
		passes []*transform.DynPass
	)
	return o.run(ctx, job{
		dataset:     core.DatasetDisease,
		target:      name,
		lock:        load.LockShared,
		needsLocale: true,
		tables:      []string{"dis.dyn"},
		extract: func(ctx context.Context) error {
			if name != DiseaseCOVID19 {
				return fmt.Errorf("unknown disease %q", name)
			}
			srcs := make([]string, len(c19Files))
			for i, f := range c19Files {
				srcs[i] = fetch.Join(o.sources.JHUBase, f.name)
			}
			files, err := o.fetcher.FetchAll(ctx, srcs...)
			if err != nil {
				return err
			}
			for i, data := range files {
				ts, err := source.ReadTimeSeries(bytes.NewReader(data))
				if err != nil {
					return fmt.Errorf("%s: %w", c19Files[i].name, err)
				}
				series = append(series, ts)
			}
			return nil
		},
		transform: func(context.Context) (transform.Stats, error) {
			var total transform.Stats
			for i, ts := range series {
				p, st := transform.Dyn(ts, c19Files[i].column)
				passes = append(passes, p)
				total.In += st.In
				total.Dropped += st.Dropped
				total.Duplicates += st.Duplicates
				total.Corrected += st.Corrected
			}
			return total, nil
		},
		write: func(ctx context.Context, s *session) error {
			diseaseID, err := o.diseaseID(ctx, s, name)
			if err != nil {
				return err
			}

			ids := make([][]int64, len(passes))
			for i, p := range passes {
				if ids[i], err = resolveSeries(ctx, s.resolver, p); err != nil {
					return err
				}
			}

			if err := s.loading(); err != nil {
				return err
			}
			dyn := o.registry.MustGet("dis.dyn")
			stage, err := o.loader.Stage(ctx, s.tx, dyn)
			if err != nil {
				return err
			}
			for i, p := range passes {
				logging.FromContext(ctx).Info("merging pass", "file", c19Files[i].name, "locations", len(p.Series), "days", len(p.Days))
				if err := o.mergePass(ctx, s.tx, stage, diseaseID, p, ids[i]); err != nil {
					return fmt.Errorf("%s: %w", c19Files[i].name, err)
				}
			}
			return s.apply(o.loader.ReplaceFromStage(ctx, s.tx, dyn, stage, diseaseID))
		},
	})
}

// diseaseID finds or inserts the disease and returns its id.
func (o *Orchestrator) diseaseID(ctx context.Context, s *session, name string) (int32, error) {
	if _, err := o.loader.Merge(ctx, s.tx, o.registry.MustGet("dis.disease"), []string{"name"}, [][]any{{name}}); err != nil {
		return 0, err
	}
	var id int32
	if err := s.tx.QueryRow(ctx, "SELECT id FROM dis.disease WHERE name = $1", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("disease %q: %w", name, err)
	}
	return id, nil
}

// mergePass merges one column of a pass into the staging table.
func (o *Orchestrator) mergePass(ctx context.Context, tx pgx.Tx, stage load.Descriptor, diseaseID int32, p *transform.DynPass, ids []int64) error {
	cols := []string{"disease_id", "locale_id", "day", "day_i", p.Column}
	rows := make([][]any, 0, dynFlushRows)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		_, err := o.loader.Merge(ctx, tx, stage, cols, rows)
		rows = rows[:0]
		return err
	}
	for i, s := range p.Series {
		for j, day := range p.Days {
			rows = append(rows, []any{diseaseID, ids[i], pgtype.Date{Time: day, Valid: true}, p.DayIndex(j), s.Values[j]})
		}
		if len(rows) >= dynFlushRows {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
