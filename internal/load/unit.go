package load

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/momacs/localedb/internal/core"
)

// LockMode selects the advisory lock a unit of work holds.
type LockMode int

const (
	// LockShared lets loads run side by side; they only read main.locale.
	LockShared LockMode = iota
	// LockExclusive is held by the locale reference load, which rewrites
	// main.locale and must not interleave with any resolving load.
	LockExclusive
)

func (m LockMode) String() string {
	if m == LockExclusive {
		return "exclusive"
	}
	return "shared"
}

// Unit runs functions inside a transaction with a transaction-scoped
// advisory lock.
type Unit struct {
	db  core.Beginner
	key int64
}

// NewUnit creates a Unit locking on key.
func NewUnit(db core.Beginner, key int64) *Unit {
	return &Unit{db: db, key: key}
}

// Run begins a transaction, takes the advisory lock, defers deferrable
// constraints to commit and runs fn. The transaction commits only when fn
// returns nil; an error or a panic leaving fn rolls it back.
func (u *Unit) Run(ctx context.Context, mode LockMode, fn func(ctx context.Context, tx pgx.Tx) error) (err error) {
	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// Rollback must still reach the server when ctx is already cancelled.
		rbErr := tx.Rollback(context.WithoutCancel(ctx))
		if p := recover(); p != nil {
			panic(p)
		}
		if rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) && err != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	lockSQL := "SELECT pg_advisory_xact_lock_shared($1)"
	if mode == LockExclusive {
		lockSQL = "SELECT pg_advisory_xact_lock($1)"
	}
	if _, err = tx.Exec(ctx, lockSQL, u.key); err != nil {
		return fmt.Errorf("acquire %s lock: %w", mode, err)
	}
	if _, err = tx.Exec(ctx, "SET CONSTRAINTS ALL DEFERRED"); err != nil {
		return fmt.Errorf("defer constraints: %w", err)
	}

	if err = fn(ctx, tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
