package etl

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/load"
	"github.com/momacs/localedb/internal/logging"
	"github.com/momacs/localedb/internal/source"
	"github.com/momacs/localedb/internal/transform"
)

// LoadPopState loads one state's synthetic population from dir, by default
// LOCALEDB_DATA_DIR/<st_fips>. Rows already present are skipped one by
// one, so an interrupted state can be loaded again.
func (o *Orchestrator) LoadPopState(ctx context.Context, stFIPS, dir string) core.LoadResult {
	var (
		batches []*source.PopBatch
		rows    [][]transform.PopRow
	)
	tables := make([]string, len(source.PopFiles))
	for i, f := range source.PopFiles {
		tables[i] = "pop." + f.Table
	}

	return o.run(ctx, job{
		dataset:     core.DatasetPopulation,
		target:      stFIPS,
		lock:        load.LockShared,
		needsLocale: true,
		tables:      tables,
		extract: func(ctx context.Context) error {
			st, err := transform.NormalizeFIPS(stFIPS, transform.StateFIPSLen)
			if err != nil || st == "" {
				return fmt.Errorf("invalid state FIPS %q", stFIPS)
			}
			if _, ok := transform.LookupState(st); !ok {
				return fmt.Errorf("unknown state FIPS %q", stFIPS)
			}
			stFIPS = st
			if dir == "" {
				dir = filepath.Join(o.sources.DataDir, stFIPS)
			}

			files := 0
			for _, f := range source.PopFiles {
				b, err := source.ReadPopBatch(dir, f)
				if err != nil {
					return err
				}
				files += len(b.Paths)
				batches = append(batches, b)
			}
			if files == 0 {
				return fmt.Errorf("no population files under %s", dir)
			}
			logging.FromContext(ctx).Info("read population files", "dir", dir, "files", files)
			return nil
		},
		transform: func(context.Context) (transform.Stats, error) {
			var total transform.Stats
			for _, b := range batches {
				r, st, err := transform.Population(b, stFIPS)
				if err != nil {
					return total, err
				}
				rows = append(rows, r)
				total.In += st.In
				total.Dropped += st.Dropped
				total.Duplicates += st.Duplicates
			}
			return total, nil
		},
		write: func(ctx context.Context, s *session) error {
			vals := make([][][]any, len(batches))
			for i, b := range batches {
				geo := transform.HasGeoKey(b.File)
				vals[i] = make([][]any, len(rows[i]))
				for j, r := range rows[i] {
					v := r.Values
					if geo {
						stID, coID, err := popLocales(ctx, s.resolver, r)
						if err != nil {
							return err
						}
						v = append(v, stID, coID)
					}
					vals[i][j] = v
				}
			}

			if err := s.loading(); err != nil {
				return err
			}
			for i, b := range batches {
				d := o.registry.MustGet("pop." + b.File.Table)
				if err := s.apply(o.loader.InsertIfAbsent(ctx, s.tx, d, vals[i])); err != nil {
					return err
				}
			}
			return nil
		},
	})
}
