package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrAlreadyLoaded marks an append-only batch whose natural keys all exist.
// Loaders return it wrapped; the orchestrator treats it as a successful no-op.
var ErrAlreadyLoaded = errors.New("dataset already loaded")

// LocaleKey is the raw geographic descriptor a resolution was attempted with.
type LocaleKey struct {
	Admin0 string
	Admin1 *string
	Admin2 *string
	FIPS   string
}

// String renders the key the way operators type it back into a query.
func (k LocaleKey) String() string {
	if k.FIPS != "" && k.Admin0 == "" {
		return "fips=" + k.FIPS
	}
	parts := []string{"admin0=" + quoteOrNull(&k.Admin0)}
	parts = append(parts, "admin1="+quoteOrNull(k.Admin1), "admin2="+quoteOrNull(k.Admin2))
	if k.FIPS != "" {
		parts = append(parts, "fips="+k.FIPS)
	}
	return strings.Join(parts, " ")
}

func quoteOrNull(s *string) string {
	if s == nil {
		return "NULL"
	}
	return fmt.Sprintf("%q", *s)
}

// LocaleNotFoundError is returned when a key matches no locale row.
type LocaleNotFoundError struct {
	Key LocaleKey
}

func (e *LocaleNotFoundError) Error() string {
	return "locale not found: " + e.Key.String()
}

// LocaleIntegrityError is returned when a key expected to be unique matches
// more than one locale row. It indicates corrupted reference data.
type LocaleIntegrityError struct {
	Key     LocaleKey
	Matches int
}

func (e *LocaleIntegrityError) Error() string {
	return fmt.Sprintf("locale integrity violated: %d rows match %s", e.Matches, e.Key)
}

// ETLError is a transform-stage invariant violation tied to one source row.
type ETLError struct {
	Dataset Dataset
	Ordinal int               // 1-based data row number in the source
	Fields  map[string]string // raw key fields as read
	Reason  string
	Err     error
}

func (e *ETLError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "etl error in %s row %d: %s", e.Dataset, e.Ordinal, e.Reason)
	if len(e.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(formatFields(e.Fields))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ETLError) Unwrap() error {
	return e.Err
}

// PrerequisiteError is returned when a dataset depends on reference data
// that has not been loaded.
type PrerequisiteError struct {
	Dataset  Dataset
	Requires Dataset
	Hint     string
}

func (e *PrerequisiteError) Error() string {
	msg := fmt.Sprintf("prerequisite not loaded: %s requires %s", e.Dataset, e.Requires)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

// FetchError is returned when a source could not be downloaded.
type FetchError struct {
	URL       string
	Attempts  int
	Permanent bool
	Err       error
}

func (e *FetchError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: gave up after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsResolutionFailure reports whether err came from locale resolution.
func IsResolutionFailure(err error) bool {
	var nf *LocaleNotFoundError
	var ie *LocaleIntegrityError
	var ee *ETLError
	return errors.As(err, &nf) || errors.As(err, &ie) || errors.As(err, &ee)
}

// formatFields renders fields sorted by key for stable messages.
func formatFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, fields[k])
	}
	return strings.Join(parts, " ")
}
