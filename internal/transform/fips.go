package transform

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// USFIPS is the fips value of the country-level United States locale.
const USFIPS = "840"

// Code lengths of state and county FIPS codes.
const (
	StateFIPSLen  = 2
	CountyFIPSLen = 5
)

// NormalizeFIPS turns a FIPS code as published (often a float such as
// "39049.0", sometimes with its leading zero lost) into a zero-padded
// string of width digits. Blank input returns "" and no error.
func NormalizeFIPS(raw string, width int) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("invalid fips %q", raw)
	}
	return Pad(strconv.FormatInt(int64(math.Round(f)), 10), width), nil
}

// Pad left-pads a digit string with zeros to width.
func Pad(code string, width int) string {
	if len(code) >= width {
		return code
	}
	return strings.Repeat("0", width-len(code)) + code
}

// CountyFIPS builds a 5-digit county code from its state and county parts.
func CountyFIPS(state, county string) string {
	return Pad(state, StateFIPSLen) + Pad(county, CountyFIPSLen-StateFIPSLen)
}

// FIPSLevel classifies a 5-digit code from a nationwide file: "00000" is
// the country, "xx000" a state, anything else a county. It returns the fips
// value of the matching locale row.
func FIPSLevel(code string) (fips string, level Level) {
	code = Pad(code, CountyFIPSLen)
	switch {
	case code == "00000":
		return USFIPS, LevelCountry
	case strings.HasSuffix(code, "000"):
		return code[:StateFIPSLen], LevelState
	default:
		return code, LevelCounty
	}
}

// Level is the administrative level of a locale.
type Level int

const (
	LevelCountry Level = iota
	LevelState
	LevelCounty
)

func (l Level) String() string {
	switch l {
	case LevelCountry:
		return "country"
	case LevelState:
		return "state"
	case LevelCounty:
		return "county"
	}
	return "unknown"
}
