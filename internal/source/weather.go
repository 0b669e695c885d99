package source

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ClimDiv element codes of the county files.
const (
	ElementPrecip  = "01"
	ElementTempAvg = "02"
	ElementTempMax = "27"
	ElementTempMin = "28"
)

// ClimDivFiles maps each loaded element to its nClimDiv county file stem.
var ClimDivFiles = map[string]string{
	ElementPrecip:  "climdiv-pcpncy",
	ElementTempAvg: "climdiv-tmpccy",
	ElementTempMax: "climdiv-tmaxcy",
	ElementTempMin: "climdiv-tmincy",
}

const (
	climDivIDLen    = 11
	climDivValueLen = 7
)

// WeatherRecord is one county-year line of an nClimDiv county file.
type WeatherRecord struct {
	Ordinal   int
	StateCode string // NOAA state numbering, not FIPS
	County    string // 3-digit county FIPS
	Element   string
	Year      int
	Values    [12]string // January..December as printed
}

// ReadClimDiv parses an nClimDiv fixed-width county file, keeping years in
// [from, to]. Layout per line: state(2) county(3) element(2) year(4), then
// twelve 7-character monthly values.
func ReadClimDiv(r io.Reader, from, to int) ([]WeatherRecord, error) {
	sc := bufio.NewScanner(Clean(r))
	var out []WeatherRecord
	for ordinal := 1; sc.Scan(); ordinal++ {
		line := strings.TrimRight(sc.Text(), "\r ")
		if line == "" {
			continue
		}
		if len(line) < climDivIDLen+climDivValueLen {
			return nil, fmt.Errorf("line %d: %d characters is too short", ordinal, len(line))
		}
		year, err := strconv.Atoi(line[7:11])
		if err != nil {
			return nil, fmt.Errorf("line %d: year %q: %w", ordinal, line[7:11], err)
		}
		if year < from || year > to {
			continue
		}
		rec := WeatherRecord{
			Ordinal:   ordinal,
			StateCode: line[0:2],
			County:    line[2:5],
			Element:   line[5:7],
			Year:      year,
		}
		for m := 0; m < 12; m++ {
			start := climDivIDLen + m*climDivValueLen
			if start >= len(line) {
				break
			}
			end := min(start+climDivValueLen, len(line))
			rec.Values[m] = strings.TrimSpace(line[start:end])
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read climdiv: %w", err)
	}
	return out, nil
}
