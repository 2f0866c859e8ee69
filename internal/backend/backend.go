// Package backend describes the hosted data service the client talks to:
// table queries, inserts and updates, and a change feed of row inserts.
//
// Services depend on the Backend and Feed interfaces only; the concrete
// drivers live in the rest, postgres and sqlite subpackages.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Row is a single table row keyed by column name.
type Row map[string]any

// String returns the column value as a string, or "" when absent or nil.
func (r Row) String(col string) string {
	v, ok := r[col]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	}
	return fmt.Sprint(v)
}

// Float returns a numeric column value as float64.
func (r Row) Float(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f
		}
	}
	return 0
}

// Time returns a timestamp column value. Drivers hand back either
// time.Time or an RFC 3339 string.
func (r Row) Time(col string) (time.Time, bool) {
	return ParseTime(r[col])
}

// ParseTime converts a driver timestamp value to time.Time in UTC.
func ParseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	case string:
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Backend is the table API of the hosted service.
type Backend interface {
	// Select returns the rows matching q.
	Select(ctx context.Context, q *Query) ([]Row, error)
	// Count returns the exact number of rows matching q without fetching them.
	Count(ctx context.Context, q *Query) (int, error)
	// Insert stores row in table and returns it as stored, with
	// server-assigned columns filled in.
	Insert(ctx context.Context, table string, row Row) (Row, error)
	// Update sets values on every row matching q and returns how many changed.
	Update(ctx context.Context, q *Query, values Row) (int, error)
	// Delete removes every row matching q and returns how many were removed.
	Delete(ctx context.Context, q *Query) (int, error)
}

// Watch selects the insert events a subscription receives:
// rows inserted into Table whose Column equals Value.
type Watch struct {
	Table  string
	Column string
	Value  any
}

// Matches reports whether a row inserted into table satisfies w.
func (w Watch) Matches(table string, row Row) bool {
	if table != w.Table {
		return false
	}
	if w.Column == "" {
		return true
	}
	return row.String(w.Column) == fmt.Sprint(w.Value)
}

// Subscription is a live change-feed registration.
type Subscription interface {
	Close() error
}

// Feed delivers row-insert events. Handlers run on one goroutine per
// subscription, in order, and must not block.
type Feed interface {
	Subscribe(ctx context.Context, w Watch, fn func(Row)) (Subscription, error)
}

// Client is a backend with a change feed, which is what every driver offers.
type Client interface {
	Backend
	Feed
	Close() error
}

// One returns the first row matching q, or ErrNotFound.
func One(ctx context.Context, b Backend, q *Query) (Row, error) {
	rows, err := b.Select(ctx, q.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", q.Table, ErrNotFound)
	}
	return rows[0], nil
}

// Decode converts rows into dst, which must be a pointer to a slice of
// structs with json tags matching the column names.
func Decode(rows []Row, dst any) error {
	if rows == nil {
		rows = []Row{}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encoding rows: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decoding rows: %w", err)
	}
	return nil
}

// DecodeRow converts a single row into dst.
func DecodeRow(row Row, dst any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encoding row: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decoding row: %w", err)
	}
	return nil
}

// IDs collects the distinct non-empty values of col across rows,
// in first-seen order.
func IDs(rows []Row, cols ...string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range rows {
		for _, col := range cols {
			id := r.String(col)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
