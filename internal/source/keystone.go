package source

import "io"

// keystoneHeader names the Keystone NPI columns by position. The upstream
// header has changed spelling across releases; positions have not.
var keystoneHeader = []string{
	"fips", "county", "state", "npi", "start_date", "end_date",
	"citation", "note", "end_note", "end_citation",
}

// NPIRecord is one intervention from the Keystone Strategy NPI dataset.
type NPIRecord struct {
	Ordinal     int    `csv:"-"`
	FIPS        string `csv:"fips"`
	County      string `csv:"county"`
	State       string `csv:"state"`
	Type        string `csv:"npi"`
	StartDate   string `csv:"start_date"`
	EndDate     string `csv:"end_date"`
	Citation    string `csv:"citation"`
	Note        string `csv:"note"`
	EndNote     string `csv:"end_note"`
	EndCitation string `csv:"end_citation"`
}

// ReadKeystone parses the Keystone NPI file.
func ReadKeystone(r io.Reader) ([]NPIRecord, error) {
	return decodeWithHeader(r, keystoneHeader, nil, func(rec *NPIRecord, n int) { rec.Ordinal = n })
}
