// Package source parses the external datasets LocaleDB loads into named-field
// records. Readers take an io.Reader and never touch the network; fetching is
// internal/fetch's job. Fields stay raw strings here: null handling, typing
// and corrections belong to internal/transform.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
)

// newCSVReader returns a lenient reader: ragged rows and stray quotes are
// common in public datasets.
func newCSVReader(r io.Reader, comma rune) *csv.Reader {
	cr := csv.NewReader(Clean(r))
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// decodeAll decodes every data row of a header CSV into T using csvutil tags.
// Short rows decode with their missing fields empty and extra fields are
// ignored; transforms drop what fails their predicates. keep filters rows as
// they stream; nil keeps all. Each kept value gets its 1-based data row
// ordinal through setOrdinal.
func decodeAll[T any](r io.Reader, keep func(*T) bool, setOrdinal func(*T, int)) ([]T, error) {
	dec, err := csvutil.NewDecoder(newCSVReader(r, ','))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	dec.AlignRecord = true
	return decodeRows(dec, keep, setOrdinal)
}

// decodeWithHeader is decodeAll for files whose header names are unreliable:
// the file's own header row is skipped and header is used instead.
func decodeWithHeader[T any](r io.Reader, header []string, keep func(*T) bool, setOrdinal func(*T, int)) ([]T, error) {
	cr := newCSVReader(r, ',')
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	dec, err := csvutil.NewDecoder(cr, header...)
	if err != nil {
		return nil, fmt.Errorf("init decoder: %w", err)
	}
	dec.AlignRecord = true
	return decodeRows(dec, keep, setOrdinal)
}

func decodeRows[T any](dec *csvutil.Decoder, keep func(*T) bool, setOrdinal func(*T, int)) ([]T, error) {
	var out []T
	for ordinal := 1; ; ordinal++ {
		var v T
		if err := dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("row %d: %w", ordinal, err)
		}
		if keep != nil && !keep(&v) {
			continue
		}
		if setOrdinal != nil {
			setOrdinal(&v, ordinal)
		}
		out = append(out, v)
	}
}

// columnIndex maps trimmed header names to positions; the first occurrence wins.
func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, ok := idx[h]; !ok {
			idx[h] = i
		}
	}
	return idx
}

// field returns rec[i] trimmed, or "" when the row is short.
func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
