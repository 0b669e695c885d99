package load

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/momacs/localedb/internal/core"
	"github.com/momacs/localedb/internal/logging"
	"github.com/momacs/localedb/internal/observability"
)

// DefaultPageSize is the number of rows per merge round-trip.
const DefaultPageSize = 1000

// Result counts what one policy application did.
type Result struct {
	Table    string
	Deleted  int64
	Inserted int64
	Updated  int64
	Skipped  int64
}

// Add accumulates o into r.
func (r *Result) Add(o Result) {
	r.Deleted += o.Deleted
	r.Inserted += o.Inserted
	r.Updated += o.Updated
	r.Skipped += o.Skipped
}

// Loader applies descriptor policies inside a transaction.
type Loader struct {
	pageSize int
	metrics  *observability.Metrics
}

// NewLoader creates a Loader. A non-positive pageSize uses DefaultPageSize;
// metrics may be nil.
func NewLoader(pageSize int, metrics *observability.Metrics) *Loader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Loader{pageSize: pageSize, metrics: metrics}
}

// Replace deletes the rows of d inside scope (every row when d has no scope
// column or scope is nil) and bulk inserts rows with COPY.
func (l *Loader) Replace(ctx context.Context, tx pgx.Tx, d Descriptor, scope any, rows [][]any) (Result, error) {
	if err := expectPolicy(d, PolicyReplace); err != nil {
		return Result{}, err
	}
	res := Result{Table: d.Table}
	table := quoteTable(d.Table)

	var (
		sql  = "DELETE FROM " + table
		args []any
	)
	if d.Scope != "" && scope != nil {
		sql += " WHERE " + quoteIdent(d.Scope) + " = $1"
		args = append(args, scope)
	}
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return res, fmt.Errorf("%s: delete scope: %w", d.Table, err)
	}
	res.Deleted = tag.RowsAffected()

	n, err := tx.CopyFrom(ctx, identifier(d.Table), d.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return res, fmt.Errorf("%s: copy: %w", d.Table, err)
	}
	res.Inserted = n
	l.observe(res)
	logging.FromContext(ctx).Debug("replaced", "table", d.Table, "deleted", res.Deleted, "inserted", res.Inserted)
	return res, nil
}

// Merge upserts rows whose values line up with cols. cols must contain the
// key; every other column in cols is updated on conflict, optional ones
// with COALESCE so a NULL in the batch keeps the stored value. Rows are
// sent in pages of one pipelined batch each.
func (l *Loader) Merge(ctx context.Context, tx pgx.Tx, d Descriptor, cols []string, rows [][]any) (Result, error) {
	if err := expectPolicy(d, PolicyMerge); err != nil {
		return Result{}, err
	}
	sql, err := mergeSQL(d, cols)
	if err != nil {
		return Result{}, err
	}

	res := Result{Table: d.Table}
	for start := 0; start < len(rows); start += l.pageSize {
		page := rows[start:min(start+l.pageSize, len(rows))]
		ins, upd, err := l.mergePage(ctx, tx, sql, page)
		res.Inserted += ins
		res.Updated += upd
		if err != nil {
			return res, fmt.Errorf("%s: merge rows %d-%d: %w", d.Table, start+1, start+len(page), err)
		}
	}
	l.observe(res)
	logging.FromContext(ctx).Debug("merged", "table", d.Table, "columns", cols, "inserted", res.Inserted, "updated", res.Updated)
	return res, nil
}

func (l *Loader) mergePage(ctx context.Context, tx pgx.Tx, sql string, page [][]any) (inserted, updated int64, err error) {
	batch := &pgx.Batch{}
	for _, r := range page {
		batch.Queue(sql, r...)
	}
	br := tx.SendBatch(ctx, batch)
	defer func() {
		if cerr := br.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for range page {
		var fresh bool
		if err := br.QueryRow().Scan(&fresh); err != nil {
			return inserted, updated, err
		}
		if fresh {
			inserted++
		} else {
			updated++
		}
	}
	return inserted, updated, nil
}

// mergeSQL builds the upsert. xmax is 0 only for a freshly inserted tuple,
// which tells inserts from updates.
func mergeSQL(d Descriptor, cols []string) (string, error) {
	for _, k := range d.Key {
		if !slices.Contains(cols, k) {
			return "", fmt.Errorf("%s: merge columns %v lack key column %s", d.Table, cols, k)
		}
	}
	var sets []string
	for _, c := range cols {
		if !slices.Contains(d.Columns, c) {
			return "", fmt.Errorf("%s: %s is not a column", d.Table, c)
		}
		if slices.Contains(d.Key, c) {
			continue
		}
		q := quoteIdent(c)
		if d.IsOptional(c) {
			sets = append(sets, fmt.Sprintf("%s = COALESCE(EXCLUDED.%s, t.%s)", q, q, q))
		} else {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
		}
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s AS t (%s) VALUES (%s) ON CONFLICT (%s) ",
		quoteTable(d.Table), quoteList(cols), strings.Join(placeholders, ", "), quoteList(d.Key))
	if len(sets) == 0 {
		// Key-only merge: touch the row so RETURNING still yields it.
		k := quoteIdent(d.Key[0])
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", k, k))
	}
	b.WriteString("DO UPDATE SET ")
	b.WriteString(strings.Join(sets, ", "))
	b.WriteString(" RETURNING (xmax = 0)")
	return b.String(), nil
}

// InsertIfAbsent stages rows with COPY and inserts those whose key is not
// yet present. Unless d is per-row, a non-empty batch of which nothing was
// inserted returns core.ErrAlreadyLoaded.
func (l *Loader) InsertIfAbsent(ctx context.Context, tx pgx.Tx, d Descriptor, rows [][]any) (Result, error) {
	if err := expectPolicy(d, PolicyInsertIfAbsent); err != nil {
		return Result{}, err
	}
	res := Result{Table: d.Table}
	if len(rows) == 0 {
		return res, nil
	}

	stage := stageName(d.Table)
	if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+quoteIdent(stage)); err != nil {
		return res, fmt.Errorf("%s: drop stage: %w", d.Table, err)
	}
	create := fmt.Sprintf("CREATE TEMP TABLE %s ON COMMIT DROP AS SELECT %s FROM %s WITH NO DATA",
		quoteIdent(stage), quoteList(d.Columns), quoteTable(d.Table))
	if _, err := tx.Exec(ctx, create); err != nil {
		return res, fmt.Errorf("%s: create stage: %w", d.Table, err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, d.Columns, pgx.CopyFromRows(rows)); err != nil {
		return res, fmt.Errorf("%s: copy to stage: %w", d.Table, err)
	}

	tag, err := tx.Exec(ctx, insertSelectSQL(d, stage))
	if err != nil {
		return res, fmt.Errorf("%s: insert from stage: %w", d.Table, err)
	}
	res.Inserted = tag.RowsAffected()
	res.Skipped = int64(len(rows)) - res.Inserted
	l.observe(res)

	if res.Inserted == 0 && !d.PerRow {
		return res, fmt.Errorf("%s: %w", d.Table, core.ErrAlreadyLoaded)
	}
	logging.FromContext(ctx).Debug("inserted", "table", d.Table, "inserted", res.Inserted, "skipped", res.Skipped)
	return res, nil
}

func insertSelectSQL(d Descriptor, stage string) string {
	cols := quoteList(d.Columns)
	selectList := cols
	targetList := cols
	if g := d.Geometry; g != nil {
		lat, long := quoteIdent(g.Lat), quoteIdent(g.Long)
		targetList += ", " + quoteIdent(g.Column)
		selectList += fmt.Sprintf(", CASE WHEN %s IS NOT NULL AND %s IS NOT NULL AND (%s <> 0 OR %s <> 0) "+
			"THEN ST_Transform(ST_SetSRID(ST_MakePoint(%s, %s), %d), %d) END",
			lat, long, lat, long, long, lat, g.From, g.To)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT DO NOTHING",
		quoteTable(d.Table), targetList, selectList, quoteIdent(stage))
}

// Stage creates an empty temp copy of d's table, constraints and indexes
// included, for multi-pass merges. The returned descriptor targets it.
func (l *Loader) Stage(ctx context.Context, tx pgx.Tx, d Descriptor) (Descriptor, error) {
	stage := stageName(d.Table)
	sql := fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS INCLUDING CONSTRAINTS INCLUDING INDEXES) ON COMMIT DROP",
		quoteIdent(stage), quoteTable(d.Table))
	if _, err := tx.Exec(ctx, sql); err != nil {
		return Descriptor{}, fmt.Errorf("%s: create stage: %w", d.Table, err)
	}
	s := d
	s.Table = stage
	return s, nil
}

// ReplaceFromStage swaps d's scope for the content of stage.
func (l *Loader) ReplaceFromStage(ctx context.Context, tx pgx.Tx, d, stage Descriptor, scope any) (Result, error) {
	res := Result{Table: d.Table}
	table := quoteTable(d.Table)
	var (
		sql  = "DELETE FROM " + table
		args []any
	)
	if d.Scope != "" && scope != nil {
		sql += " WHERE " + quoteIdent(d.Scope) + " = $1"
		args = append(args, scope)
	}
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return res, fmt.Errorf("%s: delete scope: %w", d.Table, err)
	}
	res.Deleted = tag.RowsAffected()

	cols := quoteList(d.Columns)
	tag, err = tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s", table, cols, cols, quoteTable(stage.Table)))
	if err != nil {
		return res, fmt.Errorf("%s: insert from stage: %w", d.Table, err)
	}
	res.Inserted = tag.RowsAffected()
	l.observe(res)
	return res, nil
}

func (l *Loader) observe(r Result) {
	if l.metrics == nil {
		return
	}
	l.metrics.RowsLoaded.WithLabelValues(r.Table).Add(float64(r.Inserted + r.Updated))
	if r.Skipped > 0 {
		l.metrics.RowsSkipped.WithLabelValues(r.Table).Add(float64(r.Skipped))
	}
}

func expectPolicy(d Descriptor, allowed ...Policy) error {
	if slices.Contains(allowed, d.Policy) {
		return nil
	}
	return fmt.Errorf("%s: policy %s does not allow this operation", d.Table, d.Policy)
}

func stageName(table string) string {
	_, name, ok := strings.Cut(table, ".")
	if !ok {
		name = table
	}
	return "stage_" + name
}

func identifier(table string) pgx.Identifier {
	return pgx.Identifier(strings.Split(table, "."))
}

func quoteTable(table string) string {
	return identifier(table).Sanitize()
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func quoteList(cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = quoteIdent(c)
	}
	return strings.Join(q, ", ")
}
