// Package analytics turns timestamped rows into totals and per-day series
// for charting. All bucketing happens client-side in a single pass.
package analytics

import (
	"slices"
	"strings"
	"time"

	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/profile"
)

// Periods accepted by Cutoff.
const (
	Week    = "7d"
	Month   = "30d"
	Quarter = "90d"
	Year    = "1y"

	DefaultPeriod = Month
)

// Point is one day of a series. Date is the ISO date in UTC.
type Point struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Cutoff returns the lower bound for period counted back from now.
// Unknown periods fall back to DefaultPeriod.
func Cutoff(period string, now time.Time) time.Time {
	now = now.UTC()
	switch period {
	case Week:
		return now.AddDate(0, 0, -7)
	case Quarter:
		return now.AddDate(0, 0, -90)
	case Year:
		return now.AddDate(-1, 0, 0)
	default:
		return now.AddDate(0, 0, -30)
	}
}

// ValidPeriod reports whether p is one of the known periods.
func ValidPeriod(p string) bool {
	switch p {
	case Week, Month, Quarter, Year:
		return true
	}
	return false
}

// GroupByDate buckets rows by the calendar day of dateField. Each row adds
// 1 to its bucket, or the value of valueField when one is named. Rows
// without a readable date are skipped. Buckets come back oldest first
// with no gap filling.
func GroupByDate(rows []backend.Row, dateField, valueField string) []Point {
	sums := make(map[string]float64)
	for _, r := range rows {
		t, ok := r.Time(dateField)
		if !ok {
			continue
		}
		day := t.UTC().Format(time.DateOnly)
		if valueField == "" {
			sums[day]++
		} else {
			sums[day] += r.Float(valueField)
		}
	}

	out := make([]Point, 0, len(sums))
	for day, v := range sums {
		out = append(out, Point{Date: day, Value: v})
	}
	slices.SortFunc(out, func(a, b Point) int { return strings.Compare(a.Date, b.Date) })
	return out
}

// GroupByRole counts profiles per role.
func GroupByRole(profiles []profile.Profile) map[string]int {
	out := make(map[string]int)
	for _, p := range profiles {
		out[p.Role]++
	}
	return out
}

// Total sums the values of a series.
func Total(points []Point) float64 {
	var sum float64
	for _, p := range points {
		sum += p.Value
	}
	return sum
}

func sum(rows []backend.Row, col string) float64 {
	var total float64
	for _, r := range rows {
		total += r.Float(col)
	}
	return total
}
