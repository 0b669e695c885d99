package load

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeTx records statements. Embedding pgx.Tx satisfies the interface; any
// method not overridden here panics if called.
type fakeTx struct {
	pgx.Tx

	execs      []string
	execArgs   [][]any
	tags       map[string]string // statement prefix -> command tag
	failOn     string
	copies     map[string][][]any
	batches    []*pgx.Batch
	fresh      func(args []any) bool
	committed  bool
	rolledBack bool
	commitErr  error
}

func newFakeTx() *fakeTx {
	return &fakeTx{tags: map[string]string{}, copies: map[string][][]any{}}
}

func (f *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	f.execArgs = append(f.execArgs, args)
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return pgconn.CommandTag{}, errors.New("exec failed")
	}
	for prefix, tag := range f.tags {
		if strings.HasPrefix(sql, prefix) {
			return pgconn.NewCommandTag(tag), nil
		}
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (f *fakeTx) CopyFrom(_ context.Context, table pgx.Identifier, _ []string, src pgx.CopyFromSource) (int64, error) {
	var rows [][]any
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		rows = append(rows, vals)
	}
	f.copies[table.Sanitize()] = rows
	return int64(len(rows)), nil
}

func (f *fakeTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batches = append(f.batches, b)
	return &fakeBatchResults{batch: b, fresh: f.fresh}
}

func (f *fakeTx) Commit(context.Context) error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if f.committed {
		return pgx.ErrTxClosed
	}
	f.rolledBack = true
	return nil
}

type fakeBatchResults struct {
	batch *pgx.Batch
	fresh func(args []any) bool
	next  int
}

func (r *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	r.next++
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (r *fakeBatchResults) Query() (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeBatchResults) QueryRow() pgx.Row {
	q := r.batch.QueuedQueries[r.next]
	r.next++
	fresh := true
	if r.fresh != nil {
		fresh = r.fresh(q.Arguments)
	}
	return boolRow(fresh)
}

func (r *fakeBatchResults) Close() error { return nil }

type boolRow bool

func (b boolRow) Scan(dest ...any) error {
	*(dest[0].(*bool)) = bool(b)
	return nil
}

type fakeBeginner struct {
	tx  *fakeTx
	err error
}

func (b *fakeBeginner) Begin(context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}
