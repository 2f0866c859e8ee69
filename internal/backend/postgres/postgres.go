// Package postgres talks to the hosted service's Postgres database directly
// through a pgx connection pool. Column defaults (ids, timestamps) are left
// to the server; inserts are seen through a polling change feed.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/backend/sqlbuild"
)

// Config holds the connection settings.
type Config struct {
	// DatabaseURL is a postgres:// connection string.
	DatabaseURL  string
	MaxConns     int32
	PollInterval time.Duration
}

// Querier is the subset of *pgxpool.Pool the backend uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Backend implements backend.Client on Postgres.
type Backend struct {
	q    Querier
	pool *pgxpool.Pool
	*backend.Poller
}

// Connect creates the pool and verifies the connection.
func Connect(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	b := New(pool, cfg.PollInterval)
	b.pool = pool
	return b, nil
}

// New returns a backend over an existing querier.
func New(q Querier, pollInterval time.Duration) *Backend {
	b := &Backend{q: q}
	b.Poller = backend.NewPoller(b, pollInterval)
	return b
}

// Close releases the pool when the backend owns it.
func (b *Backend) Close() error {
	if b.pool != nil {
		b.pool.Close()
	}
	return nil
}

// Select returns the rows matching q.
func (b *Backend) Select(ctx context.Context, q *backend.Query) ([]backend.Row, error) {
	stmt, args, err := sqlbuild.Select(sqlbuild.Postgres, q)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	rows, err := b.q.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	return out, nil
}

// Count returns the number of rows matching q.
func (b *Backend) Count(ctx context.Context, q *backend.Query) (int, error) {
	stmt, args, err := sqlbuild.Count(sqlbuild.Postgres, q)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Table, err)
	}
	var n int64
	if err := b.q.QueryRow(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Table, err)
	}
	return int(n), nil
}

// Insert stores row and returns it with server defaults applied.
func (b *Backend) Insert(ctx context.Context, table string, row backend.Row) (backend.Row, error) {
	stmt, args, err := sqlbuild.Insert(sqlbuild.Postgres, table, row)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	rows, err := b.q.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("insert %s: no row returned", table)
	}
	return out[0], nil
}

// Update sets values on the rows matching q.
func (b *Backend) Update(ctx context.Context, q *backend.Query, values backend.Row) (int, error) {
	stmt, args, err := sqlbuild.Update(sqlbuild.Postgres, q, values)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", q.Table, err)
	}
	tag, err := b.q.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("update %s: %w", q.Table, err)
	}
	return int(tag.RowsAffected()), nil
}

// Delete removes the rows matching q.
func (b *Backend) Delete(ctx context.Context, q *backend.Query) (int, error) {
	stmt, args, err := sqlbuild.Delete(sqlbuild.Postgres, q)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", q.Table, err)
	}
	tag, err := b.q.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", q.Table, err)
	}
	return int(tag.RowsAffected()), nil
}

func collect(rows pgx.Rows) ([]backend.Row, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	out := []backend.Row{}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		row := make(backend.Row, len(fields))
		for i, f := range fields {
			row[f.Name] = normalize(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// normalize converts pgx's native values into the plain types the rest of
// the client expects: uuids as strings, numerics as float64, times in UTC.
func normalize(v any) any {
	switch t := v.(type) {
	case [16]byte:
		return uuid.UUID(t).String()
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case time.Time:
		return t.UTC()
	case int32:
		return int64(t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = normalize(x)
		}
		return out
	}
	return v
}
