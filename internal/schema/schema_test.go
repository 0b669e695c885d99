package schema

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDB records executed statements and fails on demand.
type recordingDB struct {
	execs  []string
	failOn string
}

func (d *recordingDB) Exec(_ context.Context, sql string, _ ...interface{}) (pgconn.CommandTag, error) {
	d.execs = append(d.execs, sql)
	if d.failOn != "" && strings.Contains(sql, d.failOn) {
		return pgconn.CommandTag{}, errors.New("boom")
	}
	return pgconn.CommandTag{}, nil
}

func (d *recordingDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (d *recordingDB) QueryRow(context.Context, string, ...interface{}) pgx.Row {
	return nil
}

func TestCreate_Order(t *testing.T) {
	db := &recordingDB{}
	require.NoError(t, Create(context.Background(), db))
	require.Len(t, db.execs, len(Steps))
	assert.Contains(t, db.execs[0], "postgis")
	assert.Contains(t, db.execs[1], "main.locale")
}

func TestCreate_StopsOnError(t *testing.T) {
	db := &recordingDB{failOn: "CREATE SCHEMA IF NOT EXISTS npi"}
	err := Create(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create schema npi")
	assert.Len(t, db.execs, 5)
}

func TestSchemas_Idempotent(t *testing.T) {
	for _, s := range Steps {
		for _, stmt := range strings.Split(s.SQL, ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			assert.Contains(t, stmt, "IF NOT EXISTS", "%s: %s", s.Name, stmt)
		}
	}
}

func TestLocaleUniqueness_NullsNotDistinct(t *testing.T) {
	assert.Contains(t, mainSQL, "UNIQUE NULLS NOT DISTINCT (admin0, admin1, admin2)")
}
