package etl

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/fetch"
	"github.com/momacs/localedb/internal/load"
	"github.com/momacs/localedb/internal/logging"
	"github.com/momacs/localedb/internal/source"
	"github.com/momacs/localedb/internal/transform"
)

// Enrichment tables under SOURCE_AIR_LOOKUP_BASE.
const (
	airStateNames     = "abv_to_state.txt"
	airAirportCounty  = "airportFD.txt"
	airCountyFIPS     = "county_to_fips.csv"
	airWorldCityAdmin = "worldcities.csv"
)

// AirTrafficRequest selects the T-100 files and filters of a load.
type AirTrafficRequest struct {
	Year          int
	Domestic      string // path or URL of the domestic market file
	International string // path or URL of the international market file
	DestState     string
	MinPassengers float64
}

// LoadAirTraffic loads monthly passenger totals between airports, then
// links each endpoint to the most specific locale it names.
func (o *Orchestrator) LoadAirTraffic(ctx context.Context, req AirTrafficRequest) core.LoadResult {
	var (
		recs []source.T100Record
		lk   source.AirLookups
		rows []transform.AirRow
	)
	return o.run(ctx, job{
		dataset:     core.DatasetAirTraffic,
		target:      fmt.Sprint(req.Year),
		lock:        load.LockShared,
		needsLocale: true,
		tables:      []string{"mobility.airtraffic"},
		extract: func(ctx context.Context) error {
			base := o.sources.AirLookupBase
			files, err := o.fetcher.FetchAll(ctx,
				fetch.Join(base, airStateNames),
				fetch.Join(base, airAirportCounty),
				fetch.Join(base, airCountyFIPS),
				fetch.Join(base, airWorldCityAdmin),
				req.Domestic,
				req.International,
			)
			if err != nil {
				return err
			}
			if lk.StateNames, err = source.ReadStateNames(bytes.NewReader(files[0])); err != nil {
				return fmt.Errorf("%s: %w", airStateNames, err)
			}
			if lk.AirportCounty, err = source.ReadAirportCounties(bytes.NewReader(files[1])); err != nil {
				return fmt.Errorf("%s: %w", airAirportCounty, err)
			}
			if lk.CountyFIPS, err = source.ReadCountyFIPS(bytes.NewReader(files[2])); err != nil {
				return fmt.Errorf("%s: %w", airCountyFIPS, err)
			}
			if lk.CityAdmin1, err = source.ReadWorldCities(bytes.NewReader(files[3])); err != nil {
				return fmt.Errorf("%s: %w", airWorldCityAdmin, err)
			}
			for i, src := range []string{req.Domestic, req.International} {
				r, err := source.ReadT100(files[4+i])
				if err != nil {
					return fmt.Errorf("%s: %w", src, err)
				}
				recs = append(recs, r...)
			}
			return nil
		},
		transform: func(context.Context) (transform.Stats, error) {
			var (
				st  transform.Stats
				err error
			)
			rows, st, err = transform.AirTraffic(recs, lk, transform.AirOptions{
				Year:          req.Year,
				MinPassengers: req.MinPassengers,
				DestState:     req.DestState,
			})
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
			if err := s.apply(o.loader.InsertIfAbsent(ctx, s.tx, o.registry.MustGet("mobility.airtraffic"), vals)); err != nil {
				return err
			}
			return linkAirTraffic(ctx, s.tx, req.Year)
		},
	})
}

// linkAirTraffic sets origin_locale and dest_locale for the rows of year.
// Each endpoint tries its county FIPS, then its state, then its country;
// a later step only fills what an earlier one left NULL.
func linkAirTraffic(ctx context.Context, tx pgx.Tx, year int) error {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	log := logging.FromContext(ctx)
	for _, end := range []string{"origin", "dest"} {
		for _, step := range linkSteps {
			tag, err := tx.Exec(ctx, linkSQL(end, step.match), from, to)
			if err != nil {
				return fmt.Errorf("link %s locale by %s: %w", end, step.name, err)
			}
			log.Debug("linked air traffic", "endpoint", end, "by", step.name, "rows", tag.RowsAffected())
		}
	}
	return nil
}

// linkSteps match an endpoint (columns prefixed with %[1]s) to locale l.
// The lookups name the United States in full; main.locale uses "US".
var linkSteps = []struct {
	name  string
	match string
}{
	{"fips", `a.%[1]s_fips IS NOT NULL AND l.admin0 = 'US' AND l.fips = a.%[1]s_fips`},
	{"admin1", `a.%[1]s_admin1 IS NOT NULL AND l.admin0 = ` + admin0Expr + ` AND l.admin1 = a.%[1]s_admin1 AND l.admin2 IS NULL`},
	{"admin0", `a.%[1]s_admin0 IS NOT NULL AND l.admin0 = ` + admin0Expr + ` AND l.admin1 IS NULL AND l.admin2 IS NULL`},
}

const admin0Expr = `CASE WHEN a.%[1]s_admin0 = 'United States' THEN 'US' ELSE a.%[1]s_admin0 END`

func linkSQL(end, match string) string {
	return fmt.Sprintf(`UPDATE mobility.airtraffic a SET %[1]s_locale = l.id FROM main.locale l
WHERE a.%[1]s_locale IS NULL AND a.ts >= $1 AND a.ts < $2 AND `+match, end)
}
