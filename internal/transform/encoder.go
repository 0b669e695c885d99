package transform

import (
	"sort"
)

// Encoder collects free-text category labels during a scan. Codes are only
// available from the Codes value Build returns, so no row can be encoded
// against a partial mapping.
type Encoder struct {
	seen map[string]struct{}
}

// NewEncoder creates an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{seen: make(map[string]struct{})}
}

// Add records label. Blank labels are ignored.
func (e *Encoder) Add(label string) {
	if label == "" {
		return
	}
	e.seen[label] = struct{}{}
}

// Build assigns dense ids in sorted label order, starting at first.
func (e *Encoder) Build(first int32) *Codes {
	labels := make([]string, 0, len(e.seen))
	for l := range e.seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	ids := make(map[string]int32, len(labels))
	for i, l := range labels {
		ids[l] = first + int32(i)
	}
	return &Codes{first: first, labels: labels, ids: ids}
}

// Codes is a frozen label to id mapping.
type Codes struct {
	first  int32
	labels []string
	ids    map[string]int32
}

// ID returns the code for label.
func (c *Codes) ID(label string) (int32, bool) {
	id, ok := c.ids[label]
	return id, ok
}

// Len returns the number of distinct labels.
func (c *Codes) Len() int {
	return len(c.labels)
}

// Rows returns the lookup table as (id, label) rows in id order.
func (c *Codes) Rows() [][]any {
	rows := make([][]any, len(c.labels))
	for i, l := range c.labels {
		rows[i] = []any{c.first + int32(i), l}
	}
	return rows
}
