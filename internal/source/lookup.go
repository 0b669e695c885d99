package source

import "io"

// LookupRecord is one row of the JHU CSSE UID/ISO/FIPS lookup table, the
// authoritative source of main.locale.
type LookupRecord struct {
	Ordinal       int    `csv:"-"`
	UID           string `csv:"UID"`
	ISO2          string `csv:"iso2"`
	ISO3          string `csv:"iso3"`
	Code3         string `csv:"code3"`
	FIPS          string `csv:"FIPS"`
	Admin2        string `csv:"Admin2"`
	ProvinceState string `csv:"Province_State"`
	CountryRegion string `csv:"Country_Region"`
	Lat           string `csv:"Lat"`
	Long          string `csv:"Long_"`
	CombinedKey   string `csv:"Combined_Key"`
	Population    string `csv:"Population"`
}

// ReadLookup parses the locale lookup table.
func ReadLookup(r io.Reader) ([]LookupRecord, error) {
	return decodeAll(r, nil, func(rec *LookupRecord, n int) { rec.Ordinal = n })
}
