// Package rest is the backend driver for the hosted service's REST table
// API (/rest/v1/<table>, PostgREST filter syntax).
package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/client"
)

const tablePrefix = "/rest/v1/"

// Backend implements backend.Client over HTTP. The change feed polls.
type Backend struct {
	c *client.Client
	*backend.Poller
}

// New returns a backend sending requests through c.
func New(c *client.Client, pollInterval time.Duration) *Backend {
	b := &Backend{c: c}
	b.Poller = backend.NewPoller(b, pollInterval)
	return b
}

// Close is a no-op; the HTTP client holds no resources to release.
func (b *Backend) Close() error {
	return nil
}

// Select returns the rows matching q.
func (b *Backend) Select(ctx context.Context, q *backend.Query) ([]backend.Row, error) {
	params, err := Params(q)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	var rows []backend.Row
	if err := b.c.Get(ctx, tablePrefix+q.Table, params, &rows); err != nil {
		return nil, fmt.Errorf("select %s: %w", q.Table, err)
	}
	if rows == nil {
		rows = []backend.Row{}
	}
	return rows, nil
}

// Count asks for an exact count without fetching rows.
func (b *Backend) Count(ctx context.Context, q *backend.Query) (int, error) {
	params, err := filterParams(q)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Table, err)
	}
	h, err := b.c.Do(ctx, client.Request{
		Method: http.MethodHead,
		Path:   tablePrefix + q.Table,
		Query:  params,
		Header: http.Header{"Prefer": {"count=exact"}},
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Table, err)
	}
	n, err := parseContentRange(h.Get("Content-Range"))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", q.Table, err)
	}
	return n, nil
}

// Insert stores row and returns the stored representation.
func (b *Backend) Insert(ctx context.Context, table string, row backend.Row) (backend.Row, error) {
	if !backend.ValidIdent(table) {
		return nil, fmt.Errorf("insert: invalid table %q", table)
	}
	var rows []backend.Row
	if _, err := b.c.Do(ctx, client.Request{
		Method: http.MethodPost,
		Path:   tablePrefix + table,
		Header: http.Header{"Prefer": {"return=representation"}},
		Body:   row,
	}, &rows); err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s: no row returned", table)
	}
	return rows[0], nil
}

// Update sets values on the rows matching q.
func (b *Backend) Update(ctx context.Context, q *backend.Query, values backend.Row) (int, error) {
	return b.mutate(ctx, http.MethodPatch, q, values)
}

// Delete removes the rows matching q.
func (b *Backend) Delete(ctx context.Context, q *backend.Query) (int, error) {
	return b.mutate(ctx, http.MethodDelete, q, nil)
}

func (b *Backend) mutate(ctx context.Context, method string, q *backend.Query, body backend.Row) (int, error) {
	verb := strings.ToLower(method)
	params, err := filterParams(q)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", verb, q.Table, err)
	}
	req := client.Request{
		Method: method,
		Path:   tablePrefix + q.Table,
		Query:  params,
		Header: http.Header{"Prefer": {"return=representation"}},
	}
	if body != nil {
		req.Body = body
	}
	var rows []backend.Row
	if _, err := b.c.Do(ctx, req, &rows); err != nil {
		return 0, fmt.Errorf("%s %s: %w", verb, q.Table, err)
	}
	return len(rows), nil
}

// Params renders q as table API query parameters.
func Params(q *backend.Query) (url.Values, error) {
	params, err := filterParams(q)
	if err != nil {
		return nil, err
	}

	sel := "*"
	if len(q.Columns) > 0 {
		for _, c := range q.Columns {
			if !backend.ValidIdent(c) {
				return nil, fmt.Errorf("invalid column %q", c)
			}
		}
		sel = strings.Join(q.Columns, ",")
	}
	params.Set("select", sel)

	if len(q.Orders) > 0 {
		keys := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			if !backend.ValidIdent(o.Column) {
				return nil, fmt.Errorf("invalid order column %q", o.Column)
			}
			dir := "desc"
			if o.Ascending {
				dir = "asc"
			}
			keys[i] = o.Column + "." + dir
		}
		params.Set("order", strings.Join(keys, ","))
	}
	if q.Max > 0 {
		params.Set("limit", strconv.Itoa(q.Max))
	}
	return params, nil
}

func filterParams(q *backend.Query) (url.Values, error) {
	if !backend.ValidIdent(q.Table) {
		return nil, fmt.Errorf("invalid table %q", q.Table)
	}
	params := url.Values{}
	for _, f := range q.Filters {
		if !backend.ValidIdent(f.Column) {
			return nil, fmt.Errorf("invalid column %q", f.Column)
		}
		expr, err := operand(f, false)
		if err != nil {
			return nil, err
		}
		params.Add(f.Column, expr)
	}

	if len(q.Any) > 0 {
		groups := make([]string, 0, len(q.Any))
		for _, g := range q.Any {
			conds := make([]string, 0, len(g))
			for _, f := range g {
				if !backend.ValidIdent(f.Column) {
					return nil, fmt.Errorf("invalid column %q", f.Column)
				}
				expr, err := operand(f, true)
				if err != nil {
					return nil, err
				}
				conds = append(conds, f.Column+"."+expr)
			}
			switch len(conds) {
			case 0:
			case 1:
				groups = append(groups, conds[0])
			default:
				groups = append(groups, "and("+strings.Join(conds, ",")+")")
			}
		}
		if len(groups) > 0 {
			params.Set("or", "("+strings.Join(groups, ",")+")")
		}
	}
	return params, nil
}

// operand renders "<op>.<value>" for one filter. Inside a logical group
// scalar values containing reserved characters must be quoted.
func operand(f backend.Filter, nested bool) (string, error) {
	switch f.Op {
	case backend.OpEq, backend.OpNeq, backend.OpGt, backend.OpGte, backend.OpLt, backend.OpLte:
		if f.Value == nil {
			if f.Op == backend.OpNeq {
				return "not.is.null", nil
			}
			return "is.null", nil
		}
		v := scalar(f.Value)
		if nested {
			v = quote(v)
		}
		return string(f.Op) + "." + v, nil

	case backend.OpILike:
		v := strings.ReplaceAll(scalar(f.Value), "%", "*")
		if nested {
			v = quote(v)
		}
		return "ilike." + v, nil

	case backend.OpIs:
		switch v := f.Value.(type) {
		case nil:
			return "is.null", nil
		case bool:
			return "is." + strconv.FormatBool(v), nil
		}
		return "", fmt.Errorf("filter %s: is supports only null and booleans", f.Column)

	case backend.OpIn:
		return "in.(" + list(f.Value) + ")", nil

	case backend.OpContains:
		return "cs.{" + list(f.Value) + "}", nil
	}
	return "", fmt.Errorf("filter %s: unsupported operator %q", f.Column, f.Op)
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func list(v any) string {
	var items []string
	switch t := v.(type) {
	case []string:
		items = t
	case []any:
		for _, x := range t {
			items = append(items, scalar(x))
		}
	default:
		items = []string{scalar(v)}
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = quote(s)
	}
	return strings.Join(quoted, ",")
}

func quote(s string) string {
	if !strings.ContainsAny(s, ",.:()\"{} \\") {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// parseContentRange reads the total from "0-9/42" or "*/42".
func parseContentRange(h string) (int, error) {
	i := strings.LastIndex(h, "/")
	if i < 0 || h[i+1:] == "*" {
		return 0, fmt.Errorf("missing count in content-range %q", h)
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil {
		return 0, fmt.Errorf("parsing content-range %q: %w", h, err)
	}
	return n, nil
}
