package transform

import (
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/momacs/localedb/internal/source"
)

// ElementNames are the weather.weather element values.
var ElementNames = map[string]string{
	source.ElementPrecip:  "pcpn",
	source.ElementTempAvg: "tavg",
	source.ElementTempMax: "tmax",
	source.ElementTempMin: "tmin",
}

// WeatherRow is one county-month observation.
type WeatherRow struct {
	Ordinal int
	FIPS    string
	Year    int32
	Month   int32
	Element string
	Value   pgtype.Numeric
}

// Weather unpivots nClimDiv county lines into monthly rows. NOAA state
// numbers are mapped to FIPS; missing-value sentinels (-9.99 for
// precipitation, -99.90 for temperatures) are dropped.
func Weather(recs []source.WeatherRecord) ([]WeatherRow, Stats) {
	st := Stats{In: len(recs) * 12}
	rows := make([]WeatherRow, 0, len(recs)*12)
	for _, r := range recs {
		state, ok := NOAAStateFIPS(r.StateCode)
		elem, known := ElementNames[r.Element]
		if !ok || !known {
			st.Dropped += 12
			continue
		}
		fips := CountyFIPS(state, r.County)
		for m, raw := range r.Values {
			if missingClimDiv(r.Element, raw) {
				st.Dropped++
				continue
			}
			rows = append(rows, WeatherRow{
				Ordinal: r.Ordinal,
				FIPS:    fips,
				Year:    int32(r.Year),
				Month:   int32(m + 1),
				Element: elem,
				Value:   ToPgNumeric(raw),
			})
		}
	}
	var dups int
	rows, dups = Dedupe(rows, func(r WeatherRow) string {
		return Key(r.FIPS, strconv.Itoa(int(r.Year)), strconv.Itoa(int(r.Month)), r.Element)
	})
	st.Duplicates = dups
	return rows, st
}

func missingClimDiv(element, raw string) bool {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return true
	}
	if element == source.ElementPrecip {
		return v < 0
	}
	return v <= -99
}
