// Package sqlite is the embedded local backend used for development, demos
// and tests. It runs the same queries the hosted service accepts against a
// SQLite file migrated by internal/db.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/backend/sqlbuild"
	"github.com/evcraddock/smartrent/internal/db"
)

// Backend implements backend.Client on a SQLite database.
type Backend struct {
	db  *sql.DB
	hub *hub
	now func() time.Time

	mu     sync.Mutex
	tables map[string]map[string]string // table -> column -> declared type
}

// Open opens (or creates) the database at path and returns a backend on it.
// An empty path opens the default database under the home directory.
func Open(path string) (*Backend, error) {
	d, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	return New(d), nil
}

// New wraps an already migrated database.
func New(d *sql.DB) *Backend {
	return &Backend{
		db:     d,
		hub:    newHub(),
		now:    time.Now,
		tables: make(map[string]map[string]string),
	}
}

// DB returns the underlying database handle.
func (b *Backend) DB() *sql.DB {
	return b.db
}

// Close stops every subscription and closes the database.
func (b *Backend) Close() error {
	b.hub.closeAll()
	return b.db.Close()
}

// Select returns the rows matching q.
func (b *Backend) Select(ctx context.Context, q *backend.Query) ([]backend.Row, error) {
	stmt, args, err := sqlbuild.Select(sqlbuild.SQLite, q)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	rows, err := b.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	defer closeRows(rows)

	out, err := b.scanRows(q.Table, rows)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	return out, nil
}

// Count returns the number of rows matching q.
func (b *Backend) Count(ctx context.Context, q *backend.Query) (int, error) {
	stmt, args, err := sqlbuild.Count(sqlbuild.SQLite, q)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Table, err)
	}
	var n int
	if err := b.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Table, err)
	}
	return n, nil
}

// Insert stores row, filling id and timestamps the way the hosted
// service's column defaults do, and publishes it to subscribers.
func (b *Backend) Insert(ctx context.Context, table string, row backend.Row) (backend.Row, error) {
	cols, err := b.columns(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}

	values := make(backend.Row, len(row)+3)
	for k, v := range row {
		values[k] = v
	}
	if _, ok := values["id"]; !ok && strings.EqualFold(cols["id"], "TEXT") {
		values["id"] = uuid.NewString()
	}
	now := b.now().UTC()
	for _, c := range []string{"created_at", "updated_at"} {
		if _, ok := cols[c]; !ok {
			continue
		}
		if v, ok := values[c]; !ok || v == nil {
			values[c] = now
		}
	}

	stmt, args, err := sqlbuild.Insert(sqlbuild.SQLite, table, values)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	rows, err := b.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	defer closeRows(rows)

	stored, err := b.scanRows(table, rows)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	if len(stored) == 0 {
		return nil, fmt.Errorf("insert %s: no row returned", table)
	}

	b.hub.publish(table, stored[0])
	return stored[0], nil
}

// Update sets values on the rows matching q.
func (b *Backend) Update(ctx context.Context, q *backend.Query, values backend.Row) (int, error) {
	stmt, args, err := sqlbuild.Update(sqlbuild.SQLite, q, values)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", q.Table, err)
	}
	return b.exec(ctx, "update", q.Table, stmt, args)
}

// Delete removes the rows matching q.
func (b *Backend) Delete(ctx context.Context, q *backend.Query) (int, error) {
	stmt, args, err := sqlbuild.Delete(sqlbuild.SQLite, q)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", q.Table, err)
	}
	return b.exec(ctx, "delete", q.Table, stmt, args)
}

func (b *Backend) exec(ctx context.Context, verb, table, stmt string, args []any) (int, error) {
	res, err := b.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", verb, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", verb, table, err)
	}
	return int(n), nil
}

// Subscribe registers fn for rows inserted through this backend that match w.
func (b *Backend) Subscribe(ctx context.Context, w backend.Watch, fn func(backend.Row)) (backend.Subscription, error) {
	if !backend.ValidIdent(w.Table) {
		return nil, fmt.Errorf("subscribe: invalid table %q", w.Table)
	}
	return b.hub.subscribe(ctx, w, fn), nil
}

// columns returns the declared column types of table, cached per backend.
func (b *Backend) columns(ctx context.Context, table string) (map[string]string, error) {
	if !backend.ValidIdent(table) {
		return nil, fmt.Errorf("invalid table %q", table)
	}

	b.mu.Lock()
	cols, ok := b.tables[table]
	b.mu.Unlock()
	if ok {
		return cols, nil
	}

	rows, err := b.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table info: %w", err)
	}
	defer closeRows(rows)

	cols = make(map[string]string)
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dflt any
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scanning table info: %w", err)
		}
		cols[name] = strings.ToUpper(colType)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating table info: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("no such table %q", table)
	}

	b.mu.Lock()
	b.tables[table] = cols
	b.mu.Unlock()
	return cols, nil
}

func (b *Backend) scanRows(table string, rows *sql.Rows) ([]backend.Row, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	// RETURNING does not always carry declared types, so fall back to the
	// table schema.
	decl, err := b.columns(context.Background(), table)
	if err != nil {
		return nil, err
	}

	out := []backend.Row{}
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(backend.Row, len(names))
		for i, name := range names {
			row[name] = convert(decl[name], vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// convert normalizes a scanned value by its declared column type.
func convert(declType string, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil
	}

	switch declType {
	case "JSON":
		if s, ok := v.(string); ok && json.Valid([]byte(s)) {
			return json.RawMessage(s)
		}
	case "BOOLEAN":
		switch n := v.(type) {
		case int64:
			return n != 0
		case string:
			return n == "1" || n == "true"
		}
	case "DATETIME":
		if s, ok := v.(string); ok {
			if t, ok := backend.ParseTime(s); ok {
				return t
			}
		}
		if t, ok := v.(time.Time); ok {
			return t.UTC()
		}
	}
	return v
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		slog.Warn("closing rows", "error", err)
	}
}
