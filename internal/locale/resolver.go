// Package locale resolves geographic descriptors from source rows to the
// surrogate id of exactly one row of main.locale.
//
// Administrative levels are sparse: a country row has NULL admin1 and admin2,
// a state row has NULL admin2. Name matching therefore uses NULL-aware
// equality, so resolving ("US", "Ohio", nil) finds the state row and never a
// county row of Ohio.
package locale

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/momacs/localedb/internal/core"
)

// Country is admin0 of every US locale row.
const Country = "US"

// Resolver maps a geographic key to a locale id or fails explicitly.
type Resolver interface {
	// ResolveByName matches admin0, admin1, admin2 exactly with NULL-aware equality.
	ResolveByName(ctx context.Context, admin0 string, admin1, admin2 *string) (int64, error)

	// ResolveByFIPS matches fips exactly within the US.
	ResolveByFIPS(ctx context.Context, fips string) (int64, error)

	// ResolveAdmin1Partial returns every candidate whose admin1 matches
	// case-insensitively and whose admin2 matches after name normalization.
	// The caller decides what to do unless there is exactly one.
	ResolveAdmin1Partial(ctx context.Context, country, admin1 string, admin2 *string) ([]int64, error)

	// ResolveFIPSPrefix resolves the enclosing locale of a longer geo code,
	// using its first prefixLen digits (2 = state, 5 = county).
	ResolveFIPSPrefix(ctx context.Context, code string, prefixLen int) (int64, error)
}

const (
	sqlByName = `SELECT id FROM main.locale
WHERE admin0 = $1 AND admin1 IS NOT DISTINCT FROM $2 AND admin2 IS NOT DISTINCT FROM $3
LIMIT 2`

	sqlByFIPS = `SELECT id FROM main.locale WHERE admin0 = $1 AND fips = $2 LIMIT 2`

	sqlPartialState = `SELECT id, admin2 FROM main.locale
WHERE admin0 = $1 AND lower(admin1) = lower($2) AND admin2 IS NULL`

	sqlPartialCounty = `SELECT id, admin2 FROM main.locale
WHERE admin0 = $1 AND lower(admin1) = lower($2) AND admin2 IS NOT NULL`

	sqlCount = `SELECT count(*) FROM main.locale`
)

// Store resolves against main.locale through any DBTX, usually the
// transaction of the load in progress.
type Store struct {
	db core.DBTX
}

// NewStore creates a Store.
func NewStore(db core.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) ResolveByName(ctx context.Context, admin0 string, admin1, admin2 *string) (int64, error) {
	key := core.LocaleKey{Admin0: admin0, Admin1: admin1, Admin2: admin2}
	ids, err := s.ids(ctx, sqlByName, admin0, admin1, admin2)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", key, err)
	}
	return pickOne(ids, key)
}

func (s *Store) ResolveByFIPS(ctx context.Context, fips string) (int64, error) {
	key := core.LocaleKey{FIPS: fips}
	ids, err := s.ids(ctx, sqlByFIPS, Country, fips)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", key, err)
	}
	return pickOne(ids, key)
}

func (s *Store) ResolveAdmin1Partial(ctx context.Context, country, admin1 string, admin2 *string) ([]int64, error) {
	query := sqlPartialState
	if admin2 != nil {
		query = sqlPartialCounty
	}

	rows, err := s.db.Query(ctx, query, country, admin1)
	if err != nil {
		return nil, fmt.Errorf("partial resolve %q/%q: %w", country, admin1, err)
	}
	type candidate struct {
		ID     int64
		Admin2 *string
	}
	cands, err := pgx.CollectRows(rows, pgx.RowToStructByPos[candidate])
	if err != nil {
		return nil, fmt.Errorf("partial resolve %q/%q: %w", country, admin1, err)
	}

	if admin2 == nil {
		ids := make([]int64, 0, len(cands))
		for _, c := range cands {
			ids = append(ids, c.ID)
		}
		return ids, nil
	}

	want := NormalizeName(*admin2)
	var ids []int64
	for _, c := range cands {
		if c.Admin2 != nil && NormalizeName(*c.Admin2) == want {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (s *Store) ResolveFIPSPrefix(ctx context.Context, code string, prefixLen int) (int64, error) {
	prefix, ok := FIPSPrefix(code, prefixLen)
	if !ok {
		return 0, &core.LocaleNotFoundError{Key: core.LocaleKey{FIPS: code}}
	}
	return s.ResolveByFIPS(ctx, prefix)
}

// Count returns the number of locale rows. Zero means the reference data
// has not been loaded.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, sqlCount).Scan(&n); err != nil {
		return 0, fmt.Errorf("count locales: %w", err)
	}
	return n, nil
}

func (s *Store) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// pickOne enforces exactly one match. Several matches are an integrity
// failure of the reference data, never resolved by taking the first.
func pickOne(ids []int64, key core.LocaleKey) (int64, error) {
	switch len(ids) {
	case 0:
		return 0, &core.LocaleNotFoundError{Key: key}
	case 1:
		return ids[0], nil
	default:
		return 0, &core.LocaleIntegrityError{Key: key, Matches: len(ids)}
	}
}

// FIPSPrefix returns the first n digits of code. Codes shorter than n, or
// containing non-digits in the prefix, yield false.
func FIPSPrefix(code string, n int) (string, bool) {
	if n <= 0 || len(code) < n {
		return "", false
	}
	for i := 0; i < n; i++ {
		if code[i] < '0' || code[i] > '9' {
			return "", false
		}
	}
	return code[:n], true
}
