package transform

import (
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/momacs/localedb/internal/source"
)

// NPIRow is one intervention with its type encoded.
type NPIRow struct {
	Ordinal       int
	FIPS          string
	State         *string
	County        *string
	TypeID        int32
	Begin         pgtype.Date
	End           pgtype.Date
	BeginCitation pgtype.Text
	BeginNote     pgtype.Text
	EndCitation   pgtype.Text
	EndNote       pgtype.Text
}

// NPIBatch is a transformed Keystone file. Types holds the npi.type lookup;
// its ids are reassigned on every load.
type NPIBatch struct {
	Rows  []NPIRow
	Types *Codes
}

// NPIs transforms Keystone records. Rows without a start date are dropped,
// underscores in type names become spaces, and the note and citation
// columns lose the boolean literals the export leaks into them. County
// corrections apply to the raw record; exact duplicates of a normalized row
// are removed afterwards.
func NPIs(recs []source.NPIRecord) (*NPIBatch, Stats) {
	st := Stats{In: len(recs)}
	kept, dropped := Require(recs, func(r source.NPIRecord) bool {
		return strings.TrimSpace(r.StartDate) != "" && strings.TrimSpace(r.Type) != ""
	})
	st.Dropped = dropped
	for i := range kept {
		if correctNPICounty(&kept[i]) {
			st.Corrected++
		}
	}

	typeName := func(r source.NPIRecord) string {
		return strings.ReplaceAll(strings.TrimSpace(r.Type), "_", " ")
	}
	enc := NewEncoder()
	for _, r := range kept {
		enc.Add(typeName(r))
	}
	codes := enc.Build(1)

	rows := make([]NPIRow, 0, len(kept))
	for _, r := range kept {
		county := Null(r.County)
		width := StateFIPSLen
		if county != nil {
			width = CountyFIPSLen
		}
		fips := strings.TrimSpace(r.FIPS)
		if f, err := NormalizeFIPS(fips, width); err == nil {
			fips = f
		}
		id, _ := codes.ID(typeName(r))
		rows = append(rows, NPIRow{
			Ordinal:       r.Ordinal,
			FIPS:          fips,
			State:         Null(r.State),
			County:        county,
			TypeID:        id,
			Begin:         ToPgDate(r.StartDate),
			End:           ToPgDate(r.EndDate),
			BeginCitation: ToPgNote(r.Citation),
			BeginNote:     ToPgNote(r.Note),
			EndCitation:   ToPgNote(r.EndCitation),
			EndNote:       ToPgNote(r.EndNote),
		})
	}

	var dups int
	rows, dups = Dedupe(rows, NPIRow.key)
	st.Duplicates = dups
	return &NPIBatch{Types: codes, Rows: rows}, st
}

// correctNPICounty rewrites a known misspelled county name in place.
func correctNPICounty(r *source.NPIRecord) bool {
	county := strings.TrimSpace(r.County)
	if county == "" {
		return false
	}
	fips, err := NormalizeFIPS(r.FIPS, CountyFIPSLen)
	if err != nil || fips == "" {
		return false
	}
	fixed := CountyNameCorrections.Apply(fips, "county", county)
	if fixed == county {
		return false
	}
	r.County = fixed
	return true
}

// key covers every loaded column. NULL and empty text key differently.
func (r NPIRow) key() string {
	text := func(t pgtype.Text) string {
		if !t.Valid {
			return "\x00"
		}
		return t.String
	}
	date := func(d pgtype.Date) string {
		if !d.Valid {
			return "\x00"
		}
		return d.Time.Format(time.DateOnly)
	}
	return Key(
		NameKey(r.FIPS, r.State, r.County),
		strconv.Itoa(int(r.TypeID)),
		date(r.Begin), date(r.End),
		text(r.BeginCitation), text(r.BeginNote),
		text(r.EndCitation), text(r.EndNote),
	)
}

// Fields returns the raw key fields for error reports.
func (r NPIRow) Fields() map[string]string {
	return map[string]string{
		"fips":   r.FIPS,
		"state":  Deref(r.State),
		"county": Deref(r.County),
	}
}
