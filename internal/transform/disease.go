package transform

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/source"
)

// Dyn columns a time series pass can contribute.
const (
	ColConfirmed = "n_conf"
	ColDead      = "n_dead"
	ColRecovered = "n_rec"
)

// DynSeries is one location of a time series pass with its locale key.
type DynSeries struct {
	Ordinal int
	Key     core.LocaleKey
	Values  []pgtype.Int4
}

// DynPass is a transformed JHU time series file contributing one column.
type DynPass struct {
	Column string
	Days   []time.Time
	Series []DynSeries
}

// DayIndex is the 1-based day_i of Days[j].
func (p *DynPass) DayIndex(j int) int32 {
	return int32(j + 1)
}

// Dyn converts a JHU time series into a pass for column. Global files key
// rows by (country, province); US files by (US, state, county). Rows without
// a country are dropped; repeated locations keep their first row.
func Dyn(ts *source.TimeSeries, column string) (*DynPass, Stats) {
	st := Stats{In: len(ts.Rows)}
	p := &DynPass{Column: column, Days: ts.Days}
	for _, row := range ts.Rows {
		country := strings.TrimSpace(row.Country)
		if country == "" {
			st.Dropped++
			continue
		}
		key := core.LocaleKey{Admin0: country, Admin1: Null(row.State)}
		if ts.US {
			key.Admin2 = Null(row.County)
			if key.Admin2 != nil {
				if fips, err := NormalizeFIPS(row.FIPS, CountyFIPSLen); err == nil && fips != "" {
					if fixed := CountyNameCorrections.Apply(fips, "county", *key.Admin2); fixed != *key.Admin2 {
						key.Admin2 = &fixed
						st.Corrected++
					}
				}
			}
		}
		vals := make([]pgtype.Int4, len(row.Values))
		for j, v := range row.Values {
			vals[j] = ToPgInt4(v)
		}
		p.Series = append(p.Series, DynSeries{Ordinal: row.Ordinal, Key: key, Values: vals})
	}
	var dups int
	p.Series, dups = Dedupe(p.Series, func(s DynSeries) string {
		return NameKey(s.Key.Admin0, s.Key.Admin1, s.Key.Admin2)
	})
	st.Duplicates = dups
	return p, st
}
