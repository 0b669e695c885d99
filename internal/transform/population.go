package transform

import (
	"fmt"

	"github.com/momacs/localedb/internal/source"
)

// Widths of the population geo keys: county (stco) and block group
// (stcotrbg).
const (
	stcoLen     = 5
	stcotrbgLen = 12
)

// PopRow is one population record ready for loading. Values starts with
// st_fips followed by the file columns; GeoKey is the padded stco or
// stcotrbg code, empty for tables without one.
type PopRow struct {
	File   string
	Line   int
	ID     int64
	GeoKey string
	Values []any
}

// Population prepares one state's batch of a population file. Geo keys
// lose leading zeros in the extracts and are padded back before their FIPS
// prefixes are taken. Records repeating an id keep the first.
func Population(b *source.PopBatch, stFIPS string) ([]PopRow, Stats, error) {
	st := Stats{In: len(b.Rows) + b.Dropped, Dropped: b.Dropped}
	geoCol, width := -1, 0
	for i, c := range b.File.Columns {
		switch c {
		case "stco":
			geoCol, width = i, stcoLen
		case "stcotrbg":
			geoCol, width = i, stcotrbgLen
		}
	}

	rows := make([]PopRow, 0, len(b.Rows))
	for _, r := range b.Rows {
		id, ok := r.Values[0].(int64)
		if !ok {
			return nil, st, fmt.Errorf("%s line %d: id is not an integer", r.File, r.Line)
		}
		vals := make([]any, 0, len(r.Values)+1)
		vals = append(vals, stFIPS)
		vals = append(vals, r.Values...)

		row := PopRow{File: r.File, Line: r.Line, ID: id}
		if geoCol >= 0 {
			if s, ok := r.Values[geoCol].(string); ok {
				row.GeoKey = Pad(s, width)
				vals[geoCol+1] = row.GeoKey
			}
		}
		row.Values = vals
		rows = append(rows, row)
	}
	var dups int
	rows, dups = Dedupe(rows, func(r PopRow) string { return fmt.Sprint(r.ID) })
	st.Duplicates = dups
	return rows, st, nil
}

// HasGeoKey reports whether rows of f carry a geo key and so get st_id and
// co_id columns.
func HasGeoKey(f source.PopFile) bool {
	for _, c := range f.Columns {
		if c == "stco" || c == "stcotrbg" {
			return true
		}
	}
	return false
}
