package transform

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/source"
)

// LocaleRow is one main.locale row.
type LocaleRow struct {
	Ordinal int
	ID      int64
	ISO2    pgtype.Text
	ISO3    pgtype.Text
	ISONum  pgtype.Int4
	FIPS    pgtype.Text
	Admin0  string
	Admin1  *string
	Admin2  *string
	Lat     pgtype.Float8
	Long    pgtype.Float8
	Pop     pgtype.Int8
}

// Values returns the row in main.locale column order.
func (r LocaleRow) Values() []any {
	return []any{r.ID, r.ISO2, r.ISO3, r.ISONum, r.FIPS, r.Admin0, r.Admin1, r.Admin2, r.Lat, r.Long, r.Pop}
}

// Stats counts what a transform removed.
type Stats struct {
	In         int
	Dropped    int // failed a required-field predicate or could not be mapped
	Duplicates int
	Corrected  int
}

// Out is the number of rows kept.
func (s Stats) Out() int {
	return s.In - s.Dropped - s.Duplicates
}

// Locales converts the JHU lookup table into locale rows. The UID becomes
// the locale id, so reloading the same file reproduces the same ids.
//
// FIPS codes are normalized by level: 5 digits for counties, 2 for states
// and 840 for the United States itself.
func Locales(recs []source.LookupRecord) ([]LocaleRow, Stats, error) {
	st := Stats{In: len(recs)}
	rows := make([]LocaleRow, 0, len(recs))
	for _, rec := range recs {
		admin0 := strings.TrimSpace(rec.CountryRegion)
		if admin0 == "" || strings.TrimSpace(rec.UID) == "" {
			st.Dropped++
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rec.UID), 10, 64)
		if err != nil {
			return nil, st, fmt.Errorf("row %d: uid %q: %w", rec.Ordinal, rec.UID, err)
		}

		r := LocaleRow{
			Ordinal: rec.Ordinal,
			ID:      id,
			ISO2:    ToPgText(rec.ISO2),
			ISO3:    ToPgText(rec.ISO3),
			ISONum:  ToPgInt4(rec.Code3),
			Admin0:  admin0,
			Admin1:  Null(rec.ProvinceState),
			Admin2:  Null(rec.Admin2),
			Lat:     ToPgFloat8(rec.Lat),
			Long:    ToPgFloat8(rec.Long),
			Pop:     ToPgInt8(rec.Population),
		}

		fips, err := localeFIPS(r, rec.FIPS)
		if err != nil {
			return nil, st, fmt.Errorf("row %d: %w", rec.Ordinal, err)
		}
		r.FIPS = ToPgText(fips)

		if r.Admin2 != nil && fips != "" {
			if fixed := CountyNameCorrections.Apply(fips, "county", *r.Admin2); fixed != *r.Admin2 {
				r.Admin2 = &fixed
				st.Corrected++
			}
		}
		rows = append(rows, r)
	}

	rows, dups, err := dedupeLocales(rows)
	if err != nil {
		return nil, st, err
	}
	st.Duplicates = dups
	return rows, st, nil
}

// dedupeLocales drops rows identical to an earlier one. Two rows sharing a
// name triple or a UID but differing anywhere else are corrupt reference
// data and fail the load.
func dedupeLocales(rows []LocaleRow) ([]LocaleRow, int, error) {
	byName := make(map[string]LocaleRow, len(rows))
	byID := make(map[int64]LocaleRow, len(rows))
	out := rows[:0:0]
	for _, r := range rows {
		content := r.content()
		name := NameKey(r.Admin0, r.Admin1, r.Admin2)
		if prior, ok := byName[name]; ok {
			if prior.content() == content {
				continue
			}
			return nil, 0, localeConflict(r, prior, "name")
		}
		if prior, ok := byID[r.ID]; ok {
			return nil, 0, localeConflict(r, prior, "uid")
		}
		byName[name] = r
		byID[r.ID] = r
		out = append(out, r)
	}
	return out, len(rows) - len(out), nil
}

func localeConflict(r, prior LocaleRow, what string) error {
	return &core.ETLError{
		Dataset: core.DatasetLocale,
		Ordinal: r.Ordinal,
		Fields:  r.Fields(),
		Reason:  fmt.Sprintf("%s already used by row %d with different data", what, prior.Ordinal),
		Err:     &core.LocaleIntegrityError{Key: r.Key(), Matches: 2},
	}
}

// Key is the descriptor the row is resolved by.
func (r LocaleRow) Key() core.LocaleKey {
	return core.LocaleKey{Admin0: r.Admin0, Admin1: r.Admin1, Admin2: r.Admin2, FIPS: r.FIPS.String}
}

// Fields returns the raw key fields for error reports.
func (r LocaleRow) Fields() map[string]string {
	return map[string]string{
		"uid":    strconv.FormatInt(r.ID, 10),
		"admin0": r.Admin0,
		"admin1": Deref(r.Admin1),
		"admin2": Deref(r.Admin2),
		"fips":   r.FIPS.String,
	}
}

// content keys every column; NULL keys differently from empty text.
func (r LocaleRow) content() string {
	vals := r.Values()
	parts := make([]string, len(vals))
	for i, v := range vals {
		if dv, ok := v.(driver.Valuer); ok {
			v, _ = dv.Value()
		}
		switch v := v.(type) {
		case nil:
			parts[i] = "\x00"
		case *string:
			if v == nil {
				parts[i] = "\x00"
			} else {
				parts[i] = *v
			}
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return Key(parts...)
}

func localeFIPS(r LocaleRow, raw string) (string, error) {
	if r.Admin0 != "US" {
		return NormalizeFIPS(raw, 0)
	}
	switch {
	case r.Admin1 == nil && r.Admin2 == nil:
		return USFIPS, nil
	case r.Admin2 == nil:
		return NormalizeFIPS(raw, StateFIPSLen)
	default:
		return NormalizeFIPS(raw, CountyFIPSLen)
	}
}

// NameKey is a NULL-aware dedupe key for an (admin0, admin1, admin2) triple.
func NameKey(admin0 string, admin1, admin2 *string) string {
	opt := func(p *string) string {
		if p == nil {
			return "\x00"
		}
		return *p
	}
	return Key(admin0, opt(admin1), opt(admin2))
}
