package load

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/observability"
)

func registry(t *testing.T) *Registry {
	t.Helper()
	r, err := DefaultRegistry("")
	require.NoError(t, err)
	return r
}

func TestMergeSQL(t *testing.T) {
	dyn := registry(t).MustGet("dis.dyn")
	sql, err := mergeSQL(dyn, []string{"disease_id", "locale_id", "day", "day_i", "n_dead"})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "dis"."dyn" AS t ("disease_id", "locale_id", "day", "day_i", "n_dead") VALUES ($1, $2, $3, $4, $5) `+
			`ON CONFLICT ("disease_id", "locale_id", "day") DO UPDATE SET "day_i" = EXCLUDED."day_i", `+
			`"n_dead" = COALESCE(EXCLUDED."n_dead", t."n_dead") RETURNING (xmax = 0)`,
		sql)
}

func TestMergeSQL_KeyOnly(t *testing.T) {
	sql, err := mergeSQL(registry(t).MustGet("dis.disease"), []string{"name"})
	require.NoError(t, err)
	assert.Contains(t, sql, `ON CONFLICT ("name") DO UPDATE SET "name" = EXCLUDED."name" RETURNING`)
}

func TestMergeSQL_Errors(t *testing.T) {
	dyn := registry(t).MustGet("dis.dyn")
	_, err := mergeSQL(dyn, []string{"locale_id", "day", "n_conf"})
	assert.ErrorContains(t, err, "lack key column disease_id")

	_, err = mergeSQL(dyn, []string{"disease_id", "locale_id", "day", "bogus"})
	assert.ErrorContains(t, err, "bogus is not a column")
}

func TestInsertSelectSQL_Geometry(t *testing.T) {
	sql := insertSelectSQL(registry(t).MustGet("pop.workplace"), "stage_workplace")
	assert.Equal(t,
		`INSERT INTO "pop"."workplace" ("st_fips", "id", "lat", "long", "coords") `+
			`SELECT "st_fips", "id", "lat", "long", CASE WHEN "lat" IS NOT NULL AND "long" IS NOT NULL AND ("lat" <> 0 OR "long" <> 0) `+
			`THEN ST_Transform(ST_SetSRID(ST_MakePoint("long", "lat"), 4326), 4269) END `+
			`FROM "stage_workplace" ON CONFLICT DO NOTHING`,
		sql)
}

func TestVacuumSQL(t *testing.T) {
	r := registry(t)
	assert.Equal(t, `VACUUM (FULL, ANALYZE) "main"."locale"`, vacuumSQL(r.MustGet("main.locale")))
	assert.Equal(t, `VACUUM ANALYZE "pop"."school"`, vacuumSQL(r.MustGet("pop.school")))
	assert.Equal(t, "", vacuumSQL(r.MustGet("dis.disease")))
}

func TestLoader_Replace(t *testing.T) {
	tx := newFakeTx()
	tx.tags["DELETE"] = "DELETE 3"
	m := observability.NewMetricsForTesting()
	l := NewLoader(0, m)

	rows := [][]any{{int32(1), "school closure"}, {int32(2), "stay at home"}}
	res, err := l.Replace(context.Background(), tx, registry(t).MustGet("npi.type"), nil, rows)
	require.NoError(t, err)

	assert.Equal(t, Result{Table: "npi.type", Deleted: 3, Inserted: 2}, res)
	assert.Equal(t, []string{`DELETE FROM "npi"."type"`}, tx.execs)
	assert.Equal(t, rows, tx.copies[`"npi"."type"`])
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsLoaded.WithLabelValues("npi.type")))
}

func TestLoader_ReplaceScoped(t *testing.T) {
	tx := newFakeTx()
	d := Descriptor{Table: "dis.dyn", Columns: []string{"disease_id", "x"}, Scope: "disease_id", Policy: PolicyReplace}
	_, err := NewLoader(10, nil).Replace(context.Background(), tx, d, int32(7), nil)
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "dis"."dyn" WHERE "disease_id" = $1`, tx.execs[0])
	assert.Equal(t, []any{int32(7)}, tx.execArgs[0])
}

func TestLoader_ReplaceRejectsOtherPolicies(t *testing.T) {
	_, err := NewLoader(10, nil).Replace(context.Background(), newFakeTx(), registry(t).MustGet("vax.vax"), nil, nil)
	assert.ErrorContains(t, err, "does not allow")
}

func TestLoader_MergePages(t *testing.T) {
	tx := newFakeTx()
	// Odd locale ids already exist.
	tx.fresh = func(args []any) bool { return args[1].(int64)%2 == 0 }

	var rows [][]any
	for i := int64(1); i <= 5; i++ {
		rows = append(rows, []any{int32(1), i, "2020-01-22", int32(1), int32(10)})
	}
	l := NewLoader(2, nil)
	res, err := l.Merge(context.Background(), tx, registry(t).MustGet("dis.dyn"),
		[]string{"disease_id", "locale_id", "day", "day_i", "n_conf"}, rows)
	require.NoError(t, err)

	assert.Len(t, tx.batches, 3, "5 rows in pages of 2")
	assert.Equal(t, int64(2), res.Inserted)
	assert.Equal(t, int64(3), res.Updated)
}

func TestLoader_InsertIfAbsent(t *testing.T) {
	tx := newFakeTx()
	tx.tags["INSERT"] = "INSERT 0 2"
	m := observability.NewMetricsForTesting()

	rows := [][]any{{int64(1)}, {int64(2)}, {int64(3)}}
	res, err := NewLoader(10, m).InsertIfAbsent(context.Background(), tx, registry(t).MustGet("vax.vax"), rows)
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Inserted)
	assert.Equal(t, int64(1), res.Skipped)
	require.Len(t, tx.execs, 3)
	assert.Equal(t, `DROP TABLE IF EXISTS "stage_vax"`, tx.execs[0])
	assert.Contains(t, tx.execs[1], `CREATE TEMP TABLE "stage_vax" ON COMMIT DROP AS SELECT`)
	assert.Contains(t, tx.execs[2], `ON CONFLICT DO NOTHING`)
	assert.Len(t, tx.copies[`"stage_vax"`], 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowsSkipped.WithLabelValues("vax.vax")))
}

func TestLoader_InsertIfAbsent_AlreadyLoaded(t *testing.T) {
	tx := newFakeTx()
	tx.tags["INSERT"] = "INSERT 0 0"

	res, err := NewLoader(10, nil).InsertIfAbsent(context.Background(), tx, registry(t).MustGet("vax.vax"), [][]any{{1}, {2}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrAlreadyLoaded))
	assert.Equal(t, int64(2), res.Skipped)
}

func TestLoader_InsertIfAbsent_PerRowSkips(t *testing.T) {
	tx := newFakeTx()
	tx.tags["INSERT"] = "INSERT 0 0"

	res, err := NewLoader(10, nil).InsertIfAbsent(context.Background(), tx, registry(t).MustGet("pop.person"), [][]any{{1}, {2}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Skipped)
}

func TestLoader_InsertIfAbsent_Empty(t *testing.T) {
	tx := newFakeTx()
	res, err := NewLoader(10, nil).InsertIfAbsent(context.Background(), tx, registry(t).MustGet("vax.vax"), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Inserted)
	assert.Empty(t, tx.execs)
}

func TestLoader_StageAndReplace(t *testing.T) {
	tx := newFakeTx()
	tx.tags["DELETE"] = "DELETE 10"
	tx.tags["INSERT"] = "INSERT 0 12"
	l := NewLoader(10, nil)
	dyn := registry(t).MustGet("dis.dyn")

	stage, err := l.Stage(context.Background(), tx, dyn)
	require.NoError(t, err)
	assert.Equal(t, "stage_dyn", stage.Table)
	assert.Contains(t, tx.execs[0], `(LIKE "dis"."dyn" INCLUDING DEFAULTS INCLUDING CONSTRAINTS INCLUDING INDEXES) ON COMMIT DROP`)

	res, err := l.ReplaceFromStage(context.Background(), tx, dyn, stage, int32(1))
	require.NoError(t, err)
	assert.Equal(t, Result{Table: "dis.dyn", Deleted: 10, Inserted: 12}, res)
	assert.Contains(t, tx.execs[2], `FROM "stage_dyn"`)
}

func TestResultAdd(t *testing.T) {
	r := Result{Inserted: 1}
	r.Add(Result{Inserted: 2, Skipped: 3, Updated: 4, Deleted: 5})
	assert.Equal(t, Result{Inserted: 3, Skipped: 3, Updated: 4, Deleted: 5}, r)
}
