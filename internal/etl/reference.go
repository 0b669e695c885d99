package etl

import (
	"bytes"
	"context"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/load"
	"github.com/momacs/localedb/internal/source"
	"github.com/momacs/localedb/internal/transform"
)

// LoadLocales replaces main.locale with the JHU lookup table. It holds the
// exclusive lock, so no resolving load sees a half-swapped table.
func (o *Orchestrator) LoadLocales(ctx context.Context) core.LoadResult {
	var (
		recs []source.LookupRecord
		rows []transform.LocaleRow
	)
	return o.run(ctx, job{
		dataset: core.DatasetLocale,
		lock:    load.LockExclusive,
		tables:  []string{"main.locale"},
		extract: func(ctx context.Context) error {
			data, err := o.fetcher.Fetch(ctx, o.sources.LocaleLookup)
			if err != nil {
				return err
			}
			recs, err = source.ReadLookup(bytes.NewReader(data))
			return err
		},
		transform: func(context.Context) (transform.Stats, error) {
			var (
				st  transform.Stats
				err error
			)
			rows, st, err = transform.Locales(recs)
			return st, err
		},
		write: func(ctx context.Context, s *session) error {
			if err := s.loading(); err != nil {
				return err
			}
			vals := make([][]any, len(rows))
			for i, r := range rows {
				vals[i] = r.Values()
			}
			return s.apply(o.loader.Replace(ctx, s.tx, o.registry.MustGet("main.locale"), nil, vals))
		},
	})
}
