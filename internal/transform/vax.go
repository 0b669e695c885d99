package transform

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/momacs/localedb/internal/source"
)

// VaxRow is one FluVaxView coverage estimate.
type VaxRow struct {
	Ordinal    int
	Geography  string
	FIPS       string // 840 for the nation, 2 digits for states
	Vaccine    string
	Season     string
	Month      int32 // 0 for season totals
	DimType    string
	Dim        string
	Coverage   pgtype.Numeric
	CILow      pgtype.Numeric
	CIHigh     pgtype.Numeric
	SampleSize pgtype.Int4
}

// Vax transforms FluVaxView records. Geographies that are neither the nation
// nor a state (local areas, territories grouped with regions) are dropped.
// Estimates such as "NR *" become NULL. A month that is present but not 1
// through 12 drops the row rather than landing in the season total.
func Vax(recs []source.VaxRecord) ([]VaxRow, Stats) {
	st := Stats{In: len(recs)}
	rows := make([]VaxRow, 0, len(recs))
	for _, r := range recs {
		fips, ok := vaxFIPS(r.Geography)
		if !ok || strings.TrimSpace(r.Vaccine) == "" || strings.TrimSpace(r.Season) == "" ||
			strings.TrimSpace(r.DimensionType) == "" || strings.TrimSpace(r.Dimension) == "" {
			st.Dropped++
			continue
		}
		month, ok := vaxMonth(r.Month)
		if !ok {
			st.Dropped++
			continue
		}
		low, high := splitCI(r.CI)
		rows = append(rows, VaxRow{
			Ordinal:    r.Ordinal,
			Geography:  strings.TrimSpace(r.Geography),
			FIPS:       fips,
			Vaccine:    strings.TrimSpace(r.Vaccine),
			Season:     strings.TrimSpace(r.Season),
			Month:      month,
			DimType:    strings.TrimSpace(r.DimensionType),
			Dim:        strings.TrimSpace(r.Dimension),
			Coverage:   ToPgNumeric(r.Estimate),
			CILow:      ToPgNumeric(low),
			CIHigh:     ToPgNumeric(high),
			SampleSize: ToPgInt4(r.SampleSize),
		})
	}
	var dups int
	rows, dups = Dedupe(rows, func(r VaxRow) string {
		return Key(r.FIPS, r.Vaccine, r.Season, strconv.Itoa(int(r.Month)), r.DimType, r.Dim)
	})
	st.Duplicates = dups
	return rows, st
}

func vaxFIPS(geo string) (string, bool) {
	geo = strings.TrimSpace(geo)
	if strings.EqualFold(geo, "United States") {
		return USFIPS, true
	}
	s, ok := LookupState(geo)
	if !ok {
		return "", false
	}
	return s.FIPS, true
}

// vaxMonth parses the month column. Blank means the season total, 0.
func vaxMonth(s string) (int32, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	m, err := strconv.Atoi(s)
	if err != nil || m < 1 || m > 12 {
		return 0, false
	}
	return int32(m), true
}

// splitCI splits "43.1 to 47.3" into its bounds.
func splitCI(ci string) (string, string) {
	low, high, ok := strings.Cut(ci, " to ")
	if !ok {
		return "", ""
	}
	return strings.TrimSpace(low), strings.TrimSpace(high)
}
