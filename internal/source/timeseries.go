package source

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// DayLayout is the date format of JHU time series headers, e.g. 1/22/20.
const DayLayout = "1/2/06"

// TimeSeriesRow is one location of a JHU CSSE time series file.
type TimeSeriesRow struct {
	Ordinal int
	Country string
	State   string
	County  string
	FIPS    string
	Values  []string // one per TimeSeries.Days entry; "" when the row is short
}

// TimeSeries is a parsed wide time series file.
type TimeSeries struct {
	US   bool        // US file: rows carry FIPS and county
	Days []time.Time // dates of the value columns, in file order
	Rows []TimeSeriesRow
}

// ReadTimeSeries parses a global or US JHU CSSE time series file. The first
// value column is the first header that parses as a date; everything before
// it is location metadata located by name.
func ReadTimeSeries(r io.Reader) (*TimeSeries, error) {
	cr := newCSVReader(r, ',')
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	first := -1
	var days []time.Time
	for i, h := range header {
		d, err := time.Parse(DayLayout, h)
		if err != nil {
			if first >= 0 {
				return nil, fmt.Errorf("column %d %q: not a date after the first date column", i+1, h)
			}
			continue
		}
		if first < 0 {
			first = i
		}
		days = append(days, d)
	}
	if first < 0 {
		return nil, fmt.Errorf("no date columns in header")
	}

	idx := columnIndex(header[:first])
	ts := &TimeSeries{Days: days}
	var country, state, county, fips int
	if i, ok := idx["Country_Region"]; ok {
		ts.US = true
		country, state = i, indexOr(idx, "Province_State")
		county, fips = indexOr(idx, "Admin2"), indexOr(idx, "FIPS")
	} else {
		ci, ok := idx["Country/Region"]
		if !ok {
			return nil, fmt.Errorf("no country column in header")
		}
		country, state = ci, indexOr(idx, "Province/State")
		county, fips = -1, -1
	}

	for ordinal := 1; ; ordinal++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", ordinal, err)
		}
		row := TimeSeriesRow{
			Ordinal: ordinal,
			Country: field(rec, country),
			State:   field(rec, state),
			County:  field(rec, county),
			FIPS:    field(rec, fips),
			Values:  make([]string, len(days)),
		}
		for j := range days {
			row.Values[j] = field(rec, first+j)
		}
		ts.Rows = append(ts.Rows, row)
	}
	return ts, nil
}

func indexOr(idx map[string]int, name string) int {
	if i, ok := idx[name]; ok {
		return i
	}
	return -1
}
