// Package format renders money, dates and text for display.
package format

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var symbols = map[string]string{
	"NGN": "₦",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// Currency formats amount with the currency symbol, thousands separators
// and at most two decimals, dropping trailing zeros: ₦1,500,000 or ₦99.5.
func Currency(amount float64, currency string) string {
	sym, ok := symbols[strings.ToUpper(currency)]
	if !ok {
		sym = strings.ToUpper(currency) + " "
	}

	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	amount = math.Round(amount*100) / 100

	whole := math.Floor(amount)
	cents := int(math.Round((amount - whole) * 100))
	s := group(strconv.FormatFloat(whole, 'f', 0, 64))
	if cents > 0 {
		frac := strings.TrimRight(strconv.Itoa(100 + cents)[1:], "0")
		s += "." + frac
	}
	return sign + sym + s
}

// Naira formats an amount in Nigerian naira.
func Naira(amount float64) string {
	return Currency(amount, "NGN")
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Date renders t as "Jan 2, 2006".
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

// DateTime renders t as "Jan 2, 2006, 03:04 PM".
func DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006, 03:04 PM")
}

// ShortDate renders t as "Jan 2", the chart axis label.
func ShortDate(t time.Time) string {
	return t.Format("Jan 2")
}

// Ago renders the time since t in the largest whole unit.
func Ago(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	}
	return Date(t)
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

// Title upper-cases the first letter: "apartment" → "Apartment".
func Title(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + s[size:]
}
