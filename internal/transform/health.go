package transform

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/momacs/localedb/internal/source"
)

// HealthRow is one County Health Rankings value.
type HealthRow struct {
	Ordinal int
	RawFIPS string
	FIPS    string
	Level   Level
	Measure string
	Value   pgtype.Numeric
}

// Health transforms a rankings file. 00000 is the nation and xx000 a state;
// values that are not numbers are dropped.
func Health(h *source.Health) ([]HealthRow, Stats) {
	st := Stats{In: len(h.Values)}
	rows := make([]HealthRow, 0, len(h.Values))
	for _, v := range h.Values {
		val := ToPgNumeric(v.Value)
		if !val.Valid || v.FIPS == "" {
			st.Dropped++
			continue
		}
		fips, level := FIPSLevel(v.FIPS)
		rows = append(rows, HealthRow{
			Ordinal: v.Ordinal,
			RawFIPS: v.FIPS,
			FIPS:    fips,
			Level:   level,
			Measure: v.Measure,
			Value:   val,
		})
	}
	var dups int
	rows, dups = Dedupe(rows, func(r HealthRow) string { return Key(r.FIPS, r.Measure) })
	st.Duplicates = dups
	return rows, st
}

// Measures returns the health.measure rows.
func Measures(h *source.Health) [][]any {
	rows := make([][]any, len(h.Measures))
	for i, m := range h.Measures {
		rows[i] = []any{m.Code, m.Name}
	}
	return rows
}
