package source

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

const rawValueSuffix = "_rawvalue"

// HealthMeasure is one County Health Rankings measure.
type HealthMeasure struct {
	Code string // e.g. v001
	Name string // e.g. Premature death; the code when the file has no label row
}

// HealthValue is one measure value of one county, state or the nation.
type HealthValue struct {
	Ordinal int
	FIPS    string // as in the file: 5 digits, xx000 for states, 00000 for the US
	Measure string
	Value   string
}

// Health is a County Health Rankings analytic file in long form.
type Health struct {
	Measures []HealthMeasure
	Values   []HealthValue
}

// ReadHealth parses a County Health Rankings analytic CSV. The published
// files carry a human-readable label row above the variable-name row; both
// layouts are accepted. Only *_rawvalue columns are kept.
func ReadHealth(r io.Reader) (*Health, error) {
	cr := newCSVReader(r, ',')
	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	header, labels := first, []string(nil)
	if _, ok := columnIndex(first)["fipscode"]; !ok {
		labels = first
		if header, err = cr.Read(); err != nil {
			return nil, fmt.Errorf("read variable row: %w", err)
		}
	}
	fipsCol, ok := columnIndex(header)["fipscode"]
	if !ok {
		return nil, fmt.Errorf("no fipscode column")
	}

	h := &Health{}
	var cols []int
	for i, name := range header {
		name = strings.TrimSpace(name)
		if !strings.HasSuffix(name, rawValueSuffix) {
			continue
		}
		code := strings.TrimSuffix(name, rawValueSuffix)
		label := strings.TrimSuffix(field(labels, i), " raw value")
		if label == "" {
			label = code
		}
		cols = append(cols, i)
		h.Measures = append(h.Measures, HealthMeasure{Code: code, Name: label})
	}

	for ordinal := 1; ; ordinal++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", ordinal, err)
		}
		fips := field(rec, fipsCol)
		for j, c := range cols {
			v := field(rec, c)
			if v == "" {
				continue
			}
			h.Values = append(h.Values, HealthValue{
				Ordinal: ordinal,
				FIPS:    fips,
				Measure: h.Measures[j].Code,
				Value:   v,
			})
		}
	}
	return h, nil
}
