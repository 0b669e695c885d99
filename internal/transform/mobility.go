package transform

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/momacs/localedb/internal/source"
)

// MobilityRow is one day of Google mobility for a US locale.
type MobilityRow struct {
	Ordinal     int
	FIPS        string
	Level       Level
	Day         pgtype.Date
	Retail      pgtype.Int4
	Grocery     pgtype.Int4
	Parks       pgtype.Int4
	Transit     pgtype.Int4
	Workplaces  pgtype.Int4
	Residential pgtype.Int4
}

// Mobility transforms US mobility records. The level follows from the
// filled sub-regions: none is the nation, sub_region_1 a state and a census
// FIPS code a county. Metro-area rows have no locale and are dropped.
func Mobility(recs []source.MobilityRecord) ([]MobilityRow, Stats) {
	st := Stats{In: len(recs)}
	rows := make([]MobilityRow, 0, len(recs))
	for _, r := range recs {
		day := ToPgDate(r.Date)
		fips, level, ok := mobilityFIPS(r)
		if !ok || !day.Valid {
			st.Dropped++
			continue
		}
		rows = append(rows, MobilityRow{
			Ordinal:     r.Ordinal,
			FIPS:        fips,
			Level:       level,
			Day:         day,
			Retail:      ToPgInt4(r.Retail),
			Grocery:     ToPgInt4(r.Grocery),
			Parks:       ToPgInt4(r.Parks),
			Transit:     ToPgInt4(r.Transit),
			Workplaces:  ToPgInt4(r.Workplaces),
			Residential: ToPgInt4(r.Residential),
		})
	}
	var dups int
	rows, dups = Dedupe(rows, func(r MobilityRow) string {
		return Key(r.FIPS, r.Day.Time.Format("2006-01-02"))
	})
	st.Duplicates = dups
	return rows, st
}

func mobilityFIPS(r source.MobilityRecord) (string, Level, bool) {
	switch {
	case strings.TrimSpace(r.MetroArea) != "":
		return "", 0, false
	case strings.TrimSpace(r.CensusFIPS) != "":
		f, err := NormalizeFIPS(r.CensusFIPS, CountyFIPSLen)
		if err != nil {
			return "", 0, false
		}
		return f, LevelCounty, true
	case strings.TrimSpace(r.SubRegion2) != "":
		return "", 0, false
	case strings.TrimSpace(r.SubRegion1) != "":
		s, ok := LookupState(r.SubRegion1)
		if !ok {
			return "", 0, false
		}
		return s.FIPS, LevelState, true
	default:
		return USFIPS, LevelCountry, true
	}
}
