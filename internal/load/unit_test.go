package load

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLockKey = 42

func TestUnit_Commit(t *testing.T) {
	tx := newFakeTx()
	u := NewUnit(&fakeBeginner{tx: tx}, testLockKey)

	ran := false
	err := u.Run(context.Background(), LockShared, func(ctx context.Context, got pgx.Tx) error {
		ran = true
		_, err := got.Exec(ctx, "SELECT 1")
		return err
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	assert.Equal(t, []string{"SELECT pg_advisory_xact_lock_shared($1)", "SET CONSTRAINTS ALL DEFERRED", "SELECT 1"}, tx.execs)
	assert.Equal(t, []any{int64(testLockKey)}, tx.execArgs[0])
}

func TestUnit_ExclusiveLock(t *testing.T) {
	tx := newFakeTx()
	err := NewUnit(&fakeBeginner{tx: tx}, testLockKey).Run(context.Background(), LockExclusive,
		func(context.Context, pgx.Tx) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "SELECT pg_advisory_xact_lock($1)", tx.execs[0])
}

func TestUnit_RollbackOnError(t *testing.T) {
	tx := newFakeTx()
	boom := errors.New("boom")
	err := NewUnit(&fakeBeginner{tx: tx}, testLockKey).Run(context.Background(), LockShared,
		func(context.Context, pgx.Tx) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

func TestUnit_RollbackOnPanic(t *testing.T) {
	tx := newFakeTx()
	u := NewUnit(&fakeBeginner{tx: tx}, testLockKey)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = u.Run(context.Background(), LockShared, func(context.Context, pgx.Tx) error { panic("kaboom") })
	})
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestUnit_RollbackOnCancelledContext(t *testing.T) {
	tx := newFakeTx()
	ctx, cancel := context.WithCancel(context.Background())
	err := NewUnit(&fakeBeginner{tx: tx}, testLockKey).Run(ctx, LockShared, func(context.Context, pgx.Tx) error {
		cancel()
		return context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, tx.rolledBack)
}

func TestUnit_LockFailure(t *testing.T) {
	tx := newFakeTx()
	tx.failOn = "pg_advisory"
	called := false
	err := NewUnit(&fakeBeginner{tx: tx}, testLockKey).Run(context.Background(), LockExclusive,
		func(context.Context, pgx.Tx) error { called = true; return nil })

	assert.ErrorContains(t, err, "acquire exclusive lock")
	assert.False(t, called)
	assert.True(t, tx.rolledBack)
}

func TestUnit_CommitFailure(t *testing.T) {
	tx := newFakeTx()
	tx.commitErr = errors.New("serialization failure")
	err := NewUnit(&fakeBeginner{tx: tx}, testLockKey).Run(context.Background(), LockShared,
		func(context.Context, pgx.Tx) error { return nil })
	assert.ErrorContains(t, err, "commit")
	assert.True(t, tx.rolledBack)
}

func TestUnit_BeginFailure(t *testing.T) {
	err := NewUnit(&fakeBeginner{err: errors.New("no conn")}, testLockKey).Run(context.Background(), LockShared,
		func(context.Context, pgx.Tx) error { return nil })
	assert.ErrorContains(t, err, "begin transaction")
}
