package etl

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/fetch"
	"github.com/momacs/localedb/internal/load"
	"github.com/momacs/localedb/internal/source"
	"github.com/momacs/localedb/internal/transform"
)

// The fact loads below are append-only: a batch whose keys all exist
// finishes as already loaded.

// LoadVax loads CDC FluVaxView coverage estimates from src.
func (o *Orchestrator) LoadVax(ctx context.Context, src string) core.LoadResult {
	var (
		recs []source.VaxRecord
		rows []transform.VaxRow
	)
	return o.run(ctx, job{
		dataset:     core.DatasetVaccine,
		target:      src,
		lock:        load.LockShared,
		needsLocale: true,
		tables:      []string{"vax.vax"},
		extract: func(ctx context.Context) error {
			data, err := o.fetcher.Fetch(ctx, src)
			if err != nil {
				return err
			}
			recs, err = source.ReadVax(bytes.NewReader(data))
			return err
		},
		transform: func(context.Context) (transform.Stats, error) {
			var st transform.Stats
			rows, st = transform.Vax(recs)
			return st, nil
		},
		write: func(ctx context.Context, s *session) error {
			vals := make([][]any, len(rows))
			for i, r := range rows {
				id, err := resolveFIPS(ctx, s.resolver, core.DatasetVaccine, r.Ordinal, r.FIPS)
				if err != nil {
					return err
				}
				vals[i] = []any{id, r.Vaccine, r.Season, r.Month, r.DimType, r.Dim,
					r.Coverage, r.CILow, r.CIHigh, r.SampleSize}
			}
			if err := s.loading(); err != nil {
				return err
			}
			return s.apply(o.loader.InsertIfAbsent(ctx, s.tx, o.registry.MustGet("vax.vax"), vals))
		},
	})
}

// LoadHealth loads one year of County Health Rankings from src.
func (o *Orchestrator) LoadHealth(ctx context.Context, src string, year int) core.LoadResult {
	var (
		h    *source.Health
		rows []transform.HealthRow
	)
	return o.run(ctx, job{
		dataset:     core.DatasetHealth,
		target:      fmt.Sprintf("%d %s", year, src),
		lock:        load.LockShared,
		needsLocale: true,
		tables:      []string{"health.measure", "health.health"},
		extract: func(ctx context.Context) error {
			data, err := o.fetcher.Fetch(ctx, src)
			if err != nil {
				return err
			}
			h, err = source.ReadHealth(bytes.NewReader(data))
			return err
		},
		transform: func(context.Context) (transform.Stats, error) {
			var st transform.Stats
			rows, st = transform.Health(h)
			return st, nil
		},
		write: func(ctx context.Context, s *session) error {
			vals := make([][]any, len(rows))
			for i, r := range rows {
				id, err := resolveFIPS(ctx, s.resolver, core.DatasetHealth, r.Ordinal, r.FIPS)
				if err != nil {
					return err
				}
				vals[i] = []any{id, int16(year), r.Measure, r.Value}
			}
			if err := s.loading(); err != nil {
				return err
			}
			if err := s.apply(o.loader.Merge(ctx, s.tx, o.registry.MustGet("health.measure"), []string{"code", "name"}, transform.Measures(h))); err != nil {
				return err
			}
			return s.apply(o.loader.InsertIfAbsent(ctx, s.tx, o.registry.MustGet("health.health"), vals))
		},
	})
}

// LoadWeather loads NOAA nClimDiv county observations for years in
// [from, to]. The four element files are downloaded concurrently.
func (o *Orchestrator) LoadWeather(ctx context.Context, from, to int) core.LoadResult {
	var (
		recs []source.WeatherRecord
		rows []transform.WeatherRow
	)
	return o.run(ctx, job{
		dataset:     core.DatasetWeather,
		target:      fmt.Sprintf("%d-%d", from, to),
		lock:        load.LockShared,
		needsLocale: true,
		tables:      []string{"weather.weather"},
		extract: func(ctx context.Context) error {
			if from > to {
				return fmt.Errorf("year range %d-%d is empty", from, to)
			}
			elements := make([]string, 0, len(source.ClimDivFiles))
			for e := range source.ClimDivFiles {
				elements = append(elements, e)
			}
			sort.Strings(elements)
			srcs := make([]string, len(elements))
			for i, e := range elements {
				srcs[i] = fetch.Join(o.sources.ClimDivBase, source.ClimDivFiles[e]+"-"+o.sources.ClimDivVersion)
			}
			files, err := o.fetcher.FetchAll(ctx, srcs...)
			if err != nil {
				return err
			}
			for i, data := range files {
				r, err := source.ReadClimDiv(bytes.NewReader(data), from, to)
				if err != nil {
					return fmt.Errorf("%s: %w", srcs[i], err)
				}
				recs = append(recs, r...)
			}
			return nil
		},
		transform: func(context.Context) (transform.Stats, error) {
			var st transform.Stats
			rows, st = transform.Weather(recs)
			return st, nil
		},
		write: func(ctx context.Context, s *session) error {
			vals := make([][]any, len(rows))
			for i, r := range rows {
				id, err := resolveFIPS(ctx, s.resolver, core.DatasetWeather, r.Ordinal, r.FIPS)
				if err != nil {
					return err
				}
				vals[i] = []any{id, r.Year, r.Month, r.Element, r.Value}
			}
			if err := s.loading(); err != nil {
				return err
			}
			return s.apply(o.loader.InsertIfAbsent(ctx, s.tx, o.registry.MustGet("weather.weather"), vals))
		},
	})
}

// LoadMobility loads the US part of the Google mobility report from src,
// or from SOURCE_MOBILITY when src is empty.
func (o *Orchestrator) LoadMobility(ctx context.Context, src string) core.LoadResult {
	if src == "" {
		src = o.sources.Mobility
	}
	var (
		recs []source.MobilityRecord
		rows []transform.MobilityRow
	)
	return o.run(ctx, job{
		dataset:     core.DatasetMobility,
		target:      src,
		lock:        load.LockShared,
		needsLocale: true,
		tables:      []string{"mobility.mobility"},
		extract: func(ctx context.Context) error {
			data, err := o.fetcher.Fetch(ctx, src)
			if err != nil {
				return err
			}
			recs, err = source.ReadMobility(bytes.NewReader(data))
			return err
		},
		transform: func(context.Context) (transform.Stats, error) {
			var st transform.Stats
			rows, st = transform.Mobility(recs)
			return st, nil
		},
		write: func(ctx context.Context, s *session) error {
			vals := make([][]any, len(rows))
			for i, r := range rows {
				id, err := resolveFIPS(ctx, s.resolver, core.DatasetMobility, r.Ordinal, r.FIPS)
				if err != nil {
					return err
				}
				vals[i] = []any{id, r.Day, int2(r.Retail), int2(r.Grocery), int2(r.Parks),
					int2(r.Transit), int2(r.Workplaces), int2(r.Residential)}
			}
			if err := s.loading(); err != nil {
				return err
			}
			return s.apply(o.loader.InsertIfAbsent(ctx, s.tx, o.registry.MustGet("mobility.mobility"), vals))
		},
	})
}

// int2 narrows a percent change to the SMALLINT columns of mobility.
func int2(v pgtype.Int4) pgtype.Int2 {
	return pgtype.Int2{Int16: int16(v.Int32), Valid: v.Valid}
}

// ParseYear parses a four-digit year argument.
func ParseYear(s string) (int, error) {
	y, err := strconv.Atoi(s)
	if err != nil || y < 1800 || y > 2200 {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	return y, nil
}
