package backend

import "regexp"

// Op is a filter comparison operator. The names follow the hosted REST
// filter syntax so they pass through unchanged.
type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpIn       Op = "in"
	OpILike    Op = "ilike"
	OpIs       Op = "is"
	OpContains Op = "cs"
)

// Filter is a single column predicate.
type Filter struct {
	Column string
	Op     Op
	Value  any
}

// Eq builds a column = value filter.
func Eq(col string, v any) Filter { return Filter{Column: col, Op: OpEq, Value: v} }

// Neq builds a column <> value filter.
func Neq(col string, v any) Filter { return Filter{Column: col, Op: OpNeq, Value: v} }

// Gt builds a column > value filter.
func Gt(col string, v any) Filter { return Filter{Column: col, Op: OpGt, Value: v} }

// Gte builds a column >= value filter.
func Gte(col string, v any) Filter { return Filter{Column: col, Op: OpGte, Value: v} }

// Lte builds a column <= value filter.
func Lte(col string, v any) Filter { return Filter{Column: col, Op: OpLte, Value: v} }

// In builds a column IN (values) filter. An empty list matches nothing.
func In(col string, values []string) Filter { return Filter{Column: col, Op: OpIn, Value: values} }

// ILike builds a case-insensitive pattern filter; % is the wildcard.
func ILike(col, pattern string) Filter { return Filter{Column: col, Op: OpILike, Value: pattern} }

// IsNull builds a column IS NULL filter.
func IsNull(col string) Filter { return Filter{Column: col, Op: OpIs, Value: nil} }

// Contains builds a filter matching array columns holding every value.
func Contains(col string, values []string) Filter {
	return Filter{Column: col, Op: OpContains, Value: values}
}

// And groups filters for use as one branch of Query.Or.
func And(f ...Filter) []Filter { return f }

// Order is a sort key.
type Order struct {
	Column    string
	Ascending bool
}

// Query selects rows from one table. Filters are AND-ed; Any, when set,
// adds one disjunction whose branches are AND-ed filter groups.
type Query struct {
	Table   string
	Columns []string
	Filters []Filter
	Any     [][]Filter
	Orders  []Order
	Max     int
}

// From starts a query on table.
func From(table string) *Query {
	return &Query{Table: table}
}

// Select limits the returned columns; the default is every column.
func (q *Query) Select(cols ...string) *Query {
	q.Columns = append(q.Columns, cols...)
	return q
}

// Where adds AND-ed filters.
func (q *Query) Where(f ...Filter) *Query {
	q.Filters = append(q.Filters, f...)
	return q
}

// Eq adds a column = value filter.
func (q *Query) Eq(col string, v any) *Query { return q.Where(Eq(col, v)) }

// Gte adds a column >= value filter.
func (q *Query) Gte(col string, v any) *Query { return q.Where(Gte(col, v)) }

// In adds a column IN (values) filter.
func (q *Query) In(col string, values []string) *Query { return q.Where(In(col, values)) }

// Or sets the disjunction: a row matches when any group matches in full.
func (q *Query) Or(groups ...[]Filter) *Query {
	q.Any = groups
	return q
}

// Order appends a sort key.
func (q *Query) Order(col string, ascending bool) *Query {
	q.Orders = append(q.Orders, Order{Column: col, Ascending: ascending})
	return q
}

// Limit caps the number of rows returned; zero means no limit.
func (q *Query) Limit(n int) *Query {
	q.Max = n
	return q
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidIdent reports whether s is safe to use as a table or column name.
func ValidIdent(s string) bool {
	return identRe.MatchString(s)
}
