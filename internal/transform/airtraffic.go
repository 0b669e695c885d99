package transform

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/momacs/localedb/internal/source"
)

// unassignedState is the BTS state code for trust territories; those rows
// map to no locale.
const unassignedState = "TT"

// Endpoint is one end of a flight segment, enriched from the lookups.
type Endpoint struct {
	Code     string
	City     pgtype.Text
	StateAbr pgtype.Text
	Admin2   pgtype.Text
	FIPS     pgtype.Text
	Admin1   pgtype.Text
	Admin0   pgtype.Text
	ISO2     pgtype.Text
}

// AirRow is the passenger total between two airports in one month.
type AirRow struct {
	TS         time.Time
	Origin     Endpoint
	Dest       Endpoint
	Distance   pgtype.Float8
	Passengers float64
}

// Values returns the row in mobility.airtraffic column order, leaving the
// locale columns to the post-load link.
func (r AirRow) Values() []any {
	vals := []any{pgtype.Date{Time: r.TS, Valid: true}}
	for _, e := range []Endpoint{r.Origin, r.Dest} {
		vals = append(vals, e.Code, e.City, e.StateAbr, e.Admin2, e.FIPS, e.Admin1, e.Admin0, e.ISO2)
	}
	return append(vals, r.Distance, r.Passengers)
}

// AirOptions filter an air traffic load.
type AirOptions struct {
	Year          int
	MinPassengers float64 // rows with fewer passengers are dropped; zero-passenger rows always are
	DestState     string  // when set, only flights into this state are kept
}

// AirTraffic enriches and aggregates T-100 market records. Passengers are
// summed per (origin, dest, month); the first distance seen is kept.
func AirTraffic(recs []source.T100Record, lk source.AirLookups, opt AirOptions) ([]AirRow, Stats, error) {
	st := Stats{In: len(recs)}
	byKey := make(map[string]*AirRow)
	var order []string
	for _, r := range recs {
		pax, err := strconv.ParseFloat(strings.TrimSpace(r.Passengers), 64)
		if err != nil || pax <= 0 || pax < opt.MinPassengers {
			st.Dropped++
			continue
		}
		if r.OriginStateAbr == unassignedState || r.DestStateAbr == unassignedState {
			st.Dropped++
			continue
		}
		if opt.DestState != "" && !strings.EqualFold(r.DestStateAbr, opt.DestState) {
			st.Dropped++
			continue
		}
		month, err := strconv.Atoi(strings.TrimSpace(r.Month))
		if err != nil || month < 1 || month > 12 {
			return nil, st, fmt.Errorf("row %d: month %q", r.Ordinal, r.Month)
		}
		ts := time.Date(opt.Year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)

		k := Key(r.Origin, r.Dest, ts.Format("2006-01"))
		if row, ok := byKey[k]; ok {
			row.Passengers += pax
			st.Duplicates++
			continue
		}
		byKey[k] = &AirRow{
			TS:         ts,
			Origin:     endpoint(lk, r.Origin, r.OriginCityName, r.OriginStateAbr, r.OriginCountry, r.OriginCountryName),
			Dest:       endpoint(lk, r.Dest, r.DestCityName, r.DestStateAbr, r.DestCountry, r.DestCountryName),
			Distance:   ToPgFloat8(r.Distance),
			Passengers: pax,
		}
		order = append(order, k)
	}

	sort.Strings(order)
	rows := make([]AirRow, len(order))
	for i, k := range order {
		rows[i] = *byKey[k]
	}
	return rows, st, nil
}

func endpoint(lk source.AirLookups, code, cityName, stateAbr, iso2, country string) Endpoint {
	e := Endpoint{Code: strings.TrimSpace(code), StateAbr: ToPgText(stateAbr), ISO2: ToPgText(iso2)}
	city, _, _ := strings.Cut(cityName, ",")
	city = strings.TrimSpace(city)
	e.City = ToPgText(city)

	// Domestic files carry no country columns.
	if iso2 == "" || iso2 == "US" {
		e.ISO2 = ToPgText("US")
		e.Admin0 = ToPgText("United States")
		if name, ok := lk.StateNames[stateAbr]; ok {
			e.Admin1 = ToPgText(name)
		}
		if county, ok := lk.AirportCounty[e.Code]; ok {
			e.Admin2 = ToPgText(TitleCounty(county))
			e.FIPS = ToPgText(lookupCountyFIPS(lk, stateAbr, county))
		}
		return e
	}

	e.Admin0 = ToPgText(country)
	if admin1, ok := lk.CityAdmin1[country][city]; ok {
		e.Admin1 = ToPgText(admin1)
	}
	return e
}

func lookupCountyFIPS(lk source.AirLookups, stateAbr, county string) string {
	counties := lk.CountyFIPS[stateAbr]
	if counties == nil {
		return ""
	}
	up := strings.ToUpper(strings.TrimSpace(county))
	for _, name := range []string{up, up + " COUNTY", strings.TrimSuffix(up, " COUNTY")} {
		for k, v := range counties {
			if strings.ToUpper(k) == name {
				if f, err := NormalizeFIPS(v, CountyFIPSLen); err == nil {
					return f
				}
			}
		}
	}
	return ""
}

// TitleCounty title-cases a county name written in capitals, treating each
// hyphenated part as a word: MIAMI-DADE becomes Miami-Dade.
func TitleCounty(s string) string {
	c := cases.Title(language.English)
	parts := strings.Split(strings.TrimSpace(s), "-")
	for i, p := range parts {
		parts[i] = c.String(strings.ToLower(p))
	}
	return strings.Join(parts, "-")
}
