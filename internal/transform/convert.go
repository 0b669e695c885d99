// Package transform turns raw source records into typed rows ready for
// locale resolution and loading.
//
// The same rules apply to every dataset: blank text is NULL, stray boolean
// literals in free-text columns are NULL, category labels are encoded only
// after the whole input has been scanned, known single-record defects are
// corrected before anything else, exact duplicates are dropped and rows
// failing a required-field predicate never reach the resolver.
package transform

// convert.go provides the conversions from source strings to pgtype values.
// Every ToPg* function returns Valid=false for blank or unparsable input so
// the column is written as NULL.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates a cleaned numeric string: integers, decimals and
// scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// dateLayouts are tried in order. JHU headers use 1/2/06; everything else
// publishes ISO dates.
var dateLayouts = []string{
	"2006-01-02", "1/2/06", "1/2/2006", "2006/01/02", "20060102",
}

// ToPgText converts a string to pgtype.Text. Blank input is NULL.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgNote is ToPgText for free-text columns where upstream exports leak
// boolean literals (t, f, true, false) into the text. Those become NULL.
func ToPgNote(s string) pgtype.Text {
	if IsBoolish(s) {
		return pgtype.Text{Valid: false}
	}
	return ToPgText(s)
}

// ToPgDate converts a string to pgtype.Date using dateLayouts.
func ToPgDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}
	return pgtype.Date{Valid: false}
}

// ToPgNumeric converts a string to pgtype.Numeric.
// Thousands separators, a trailing percent sign and accounting-style
// parentheses for negatives are accepted.
func ToPgNumeric(s string) pgtype.Numeric {
	s = cleanNumber(s)
	if s == "" || !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}
	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// ToPgFloat8 converts a string to pgtype.Float8.
func ToPgFloat8(s string) pgtype.Float8 {
	s = cleanNumber(s)
	if s == "" {
		return pgtype.Float8{Valid: false}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// ToPgInt8 converts a string to pgtype.Int8. Values written as floats
// ("1316756.0") are rounded; JHU files mix both.
func ToPgInt8(s string) pgtype.Int8 {
	s = cleanNumber(s)
	if s == "" {
		return pgtype.Int8{Valid: false}
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return pgtype.Int8{Int64: i, Valid: true}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt64 {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: int64(math.Round(f)), Valid: true}
}

// ToPgInt4 converts a string to pgtype.Int4, rejecting out-of-range values.
func ToPgInt4(s string) pgtype.Int4 {
	v := ToPgInt8(s)
	if !v.Valid || v.Int64 > math.MaxInt32 || v.Int64 < math.MinInt32 {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(v.Int64), Valid: true}
}

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	if neg && s != "" {
		s = "-" + s
	}
	return s
}
