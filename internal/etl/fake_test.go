package etl

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/transform"
)

// fakeResolver answers from maps keyed like the real lookups.
type fakeResolver struct {
	names    map[string]int64   // transform.NameKey
	fips     map[string]int64
	partials map[string][]int64 // admin1|admin2
	calls    int
}

func (f *fakeResolver) ResolveByName(_ context.Context, admin0 string, admin1, admin2 *string) (int64, error) {
	f.calls++
	if id, ok := f.names[transform.NameKey(admin0, admin1, admin2)]; ok {
		return id, nil
	}
	return 0, &core.LocaleNotFoundError{Key: core.LocaleKey{Admin0: admin0, Admin1: admin1, Admin2: admin2}}
}

func (f *fakeResolver) ResolveByFIPS(_ context.Context, fips string) (int64, error) {
	f.calls++
	if id, ok := f.fips[fips]; ok {
		return id, nil
	}
	return 0, &core.LocaleNotFoundError{Key: core.LocaleKey{FIPS: fips}}
}

func (f *fakeResolver) ResolveAdmin1Partial(_ context.Context, _ string, admin1 string, admin2 *string) ([]int64, error) {
	f.calls++
	return f.partials[admin1+"|"+transform.Deref(admin2)], nil
}

func (f *fakeResolver) ResolveFIPSPrefix(ctx context.Context, code string, n int) (int64, error) {
	if len(code) < n {
		return 0, &core.LocaleNotFoundError{Key: core.LocaleKey{FIPS: code}}
	}
	return f.ResolveByFIPS(ctx, code[:n])
}

// fakePool serves the locale count and hands out one fakeTx.
type fakePool struct {
	localeCount int64
	countErr    error
	execs       []string
	tx          *fakeTx
}

func newFakePool(localeCount int64) *fakePool {
	return &fakePool{localeCount: localeCount, tx: &fakeTx{}}
}

func (p *fakePool) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, sql)
	return pgconn.NewCommandTag("VACUUM"), nil
}

func (p *fakePool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (p *fakePool) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	if strings.Contains(sql, "count(*) FROM main.locale") {
		return countRow{n: p.localeCount, err: p.countErr}
	}
	return countRow{err: errors.New("unexpected query: " + sql)}
}

func (p *fakePool) Begin(context.Context) (pgx.Tx, error) {
	return p.tx, nil
}

type countRow struct {
	n   int64
	err error
}

func (r countRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.n
	return nil
}

// fakeTx records statements; unimplemented methods panic through the
// embedded nil interface.
type fakeTx struct {
	pgx.Tx
	execs      []string
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	return pgconn.NewCommandTag("OK"), nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

func strPtr(s string) *string { return &s }
