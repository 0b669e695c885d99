package source

import (
	"io"
	"strings"
)

// VaxRecord is one row of the CDC FluVaxView coverage export.
type VaxRecord struct {
	Ordinal       int    `csv:"-"`
	Vaccine       string `csv:"Vaccine"`
	GeographyType string `csv:"Geography Type"`
	Geography     string `csv:"Geography"`
	Season        string `csv:"Season/Survey Year"`
	Month         string `csv:"Month"`
	DimensionType string `csv:"Dimension Type"`
	Dimension     string `csv:"Dimension"`
	Estimate      string `csv:"Estimate (%)"`
	CI            string `csv:"95% CI (%)"`
	SampleSize    string `csv:"Sample Size"`
}

// ReadVax parses a FluVaxView export. HHS region rows are skipped; they have
// no locale.
func ReadVax(r io.Reader) ([]VaxRecord, error) {
	return decodeAll(r,
		func(rec *VaxRecord) bool { return !strings.HasPrefix(rec.GeographyType, "HHS") },
		func(rec *VaxRecord, n int) { rec.Ordinal = n })
}
