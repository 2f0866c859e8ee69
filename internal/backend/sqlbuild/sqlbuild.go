// Package sqlbuild translates backend queries into SQL for the drivers that
// talk to a database directly.
package sqlbuild

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/smartrent/internal/backend"
)

// Dialect holds the differences between the supported SQL engines.
type Dialect struct {
	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder func(n int) string
	// ILike is the case-insensitive LIKE operator.
	ILike string
	// Contains renders an array containment predicate for one column.
	Contains func(col string, values []string, bind func(any) string) string
	// Value converts a Go value into something the driver can bind.
	Value func(v any) any
}

// SQLite stores arrays as JSON text and has no ILIKE; LIKE is already
// case-insensitive for ASCII.
var SQLite = Dialect{
	Placeholder: func(int) string { return "?" },
	ILike:       "LIKE",
	Contains: func(col string, values []string, bind func(any) string) string {
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE value = %s)", col, bind(v))
		}
		return strings.Join(parts, " AND ")
	},
	Value: func(v any) any {
		switch t := v.(type) {
		case time.Time:
			return t.UTC()
		case *time.Time:
			if t == nil {
				return nil
			}
			return t.UTC()
		case []string, []any, map[string]any:
			data, err := json.Marshal(t)
			if err != nil {
				return nil
			}
			return string(data)
		case json.RawMessage:
			return string(t)
		}
		return v
	},
}

// Postgres uses numbered placeholders and native arrays.
var Postgres = Dialect{
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	ILike:       "ILIKE",
	Contains: func(col string, values []string, bind func(any) string) string {
		return fmt.Sprintf("%s @> %s", col, bind(values))
	},
	Value: func(v any) any {
		switch t := v.(type) {
		case time.Time:
			return t.UTC()
		case map[string]any:
			data, err := json.Marshal(t)
			if err != nil {
				return nil
			}
			return string(data)
		}
		return v
	},
}

type builder struct {
	d    Dialect
	args []any
}

func (b *builder) bind(v any) string {
	b.args = append(b.args, b.d.Value(v))
	return b.d.Placeholder(len(b.args))
}

// Select renders a SELECT statement for q.
func Select(d Dialect, q *backend.Query) (string, []any, error) {
	if err := checkIdent(q.Table); err != nil {
		return "", nil, err
	}
	cols := "*"
	if len(q.Columns) > 0 {
		for _, c := range q.Columns {
			if err := checkIdent(c); err != nil {
				return "", nil, err
			}
		}
		cols = strings.Join(q.Columns, ", ")
	}

	b := &builder{d: d}
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", cols, q.Table)

	where, err := b.where(q)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(where)

	if len(q.Orders) > 0 {
		keys := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			if err := checkIdent(o.Column); err != nil {
				return "", nil, err
			}
			dir := "DESC"
			if o.Ascending {
				dir = "ASC"
			}
			keys[i] = o.Column + " " + dir
		}
		sb.WriteString(" ORDER BY " + strings.Join(keys, ", "))
	}
	if q.Max > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Max)
	}
	return sb.String(), b.args, nil
}

// Count renders a SELECT COUNT(*) statement for q.
func Count(d Dialect, q *backend.Query) (string, []any, error) {
	if err := checkIdent(q.Table); err != nil {
		return "", nil, err
	}
	b := &builder{d: d}
	where, err := b.where(q)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + q.Table + where, b.args, nil
}

// Insert renders an INSERT ... RETURNING * statement. Columns are emitted in
// sorted order so the output is deterministic.
func Insert(d Dialect, table string, row backend.Row) (string, []any, error) {
	if err := checkIdent(table); err != nil {
		return "", nil, err
	}
	if len(row) == 0 {
		return "", nil, fmt.Errorf("insert into %s: no columns", table)
	}
	cols := sortedKeys(row)
	b := &builder{d: d}
	marks := make([]string, len(cols))
	for i, c := range cols {
		if err := checkIdent(c); err != nil {
			return "", nil, err
		}
		marks[i] = b.bind(row[c])
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	return stmt, b.args, nil
}

// Update renders an UPDATE statement setting values on the rows matching q.
func Update(d Dialect, q *backend.Query, values backend.Row) (string, []any, error) {
	if err := checkIdent(q.Table); err != nil {
		return "", nil, err
	}
	if len(values) == 0 {
		return "", nil, fmt.Errorf("update %s: no columns", q.Table)
	}
	b := &builder{d: d}
	cols := sortedKeys(values)
	sets := make([]string, len(cols))
	for i, c := range cols {
		if err := checkIdent(c); err != nil {
			return "", nil, err
		}
		sets[i] = c + " = " + b.bind(values[c])
	}
	where, err := b.where(q)
	if err != nil {
		return "", nil, err
	}
	return "UPDATE " + q.Table + " SET " + strings.Join(sets, ", ") + where, b.args, nil
}

// Delete renders a DELETE statement for the rows matching q.
func Delete(d Dialect, q *backend.Query) (string, []any, error) {
	if err := checkIdent(q.Table); err != nil {
		return "", nil, err
	}
	b := &builder{d: d}
	where, err := b.where(q)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + q.Table + where, b.args, nil
}

func (b *builder) where(q *backend.Query) (string, error) {
	var parts []string
	for _, f := range q.Filters {
		c, err := b.cond(f)
		if err != nil {
			return "", err
		}
		parts = append(parts, c)
	}

	if len(q.Any) > 0 {
		groups := make([]string, 0, len(q.Any))
		for _, g := range q.Any {
			conds := make([]string, 0, len(g))
			for _, f := range g {
				c, err := b.cond(f)
				if err != nil {
					return "", err
				}
				conds = append(conds, c)
			}
			if len(conds) > 0 {
				groups = append(groups, "("+strings.Join(conds, " AND ")+")")
			}
		}
		if len(groups) > 0 {
			parts = append(parts, "("+strings.Join(groups, " OR ")+")")
		}
	}

	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

var comparisons = map[backend.Op]string{
	backend.OpEq:  "=",
	backend.OpNeq: "<>",
	backend.OpGt:  ">",
	backend.OpGte: ">=",
	backend.OpLt:  "<",
	backend.OpLte: "<=",
}

func (b *builder) cond(f backend.Filter) (string, error) {
	if err := checkIdent(f.Column); err != nil {
		return "", err
	}
	col := f.Column

	switch f.Op {
	case backend.OpEq, backend.OpNeq, backend.OpGt, backend.OpGte, backend.OpLt, backend.OpLte:
		if f.Value == nil && f.Op == backend.OpEq {
			return col + " IS NULL", nil
		}
		if f.Value == nil && f.Op == backend.OpNeq {
			return col + " IS NOT NULL", nil
		}
		return col + " " + comparisons[f.Op] + " " + b.bind(f.Value), nil

	case backend.OpIn:
		values := stringList(f.Value)
		if len(values) == 0 {
			return "1 = 0", nil
		}
		marks := make([]string, len(values))
		for i, v := range values {
			marks[i] = b.bind(v)
		}
		return col + " IN (" + strings.Join(marks, ", ") + ")", nil

	case backend.OpILike:
		return col + " " + b.d.ILike + " " + b.bind(f.Value), nil

	case backend.OpIs:
		switch v := f.Value.(type) {
		case nil:
			return col + " IS NULL", nil
		case bool:
			if v {
				return col + " IS TRUE", nil
			}
			return col + " IS FALSE", nil
		}
		return "", fmt.Errorf("filter %s: is supports only null and booleans", col)

	case backend.OpContains:
		values := stringList(f.Value)
		if len(values) == 0 {
			return "1 = 1", nil
		}
		return b.d.Contains(col, values, b.bind), nil
	}
	return "", fmt.Errorf("filter %s: unsupported operator %q", col, f.Op)
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, len(t))
		for i, x := range t {
			out[i] = fmt.Sprint(x)
		}
		return out
	case string:
		return []string{t}
	}
	return nil
}

func sortedKeys(r backend.Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func checkIdent(s string) error {
	if !backend.ValidIdent(s) {
		return fmt.Errorf("invalid identifier %q", s)
	}
	return nil
}
