// Package format holds the numeric and date helpers shared by the
// aggregation engine and the sync service. Sheet cells arrive as
// Indonesian-locale strings ("1.250,50"), so all numeric coercion
// funnels through ToNumber.
package format

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format used everywhere: sheet cells,
// order IDs, and bucket keys. Dates are compared as strings, never
// converted between timezones.
const DateLayout = "2006-01-02"

// ToNumber coerces a sheet cell to a float64. Indonesian locale rules:
// "." is a thousands separator and is stripped, "," is the decimal
// separator. Anything unparsable coerces to 0, never an error.
func ToNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		s := strings.ReplaceAll(x, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// ToInt coerces a sheet cell to an int via ToNumber, truncating any
// decimal part.
func ToInt(v any) int {
	return int(ToNumber(v))
}

// ToString coerces a sheet cell to its string form. Numbers keep their
// shortest representation; nil becomes "".
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// FormatRupiah renders an amount as "Rp 1.250.000". The amount is
// rounded to whole Rupiah first; there are no minor units.
func FormatRupiah(n float64) string {
	d := decimal.NewFromFloat(n).Round(0)
	neg := d.IsNegative()
	s := d.Abs().String()

	var parts []string
	for i := len(s); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		parts = append([]string{s[start:i]}, parts...)
	}

	out := "Rp " + strings.Join(parts, ".")
	if neg {
		out = "Rp -" + strings.Join(parts, ".")
	}
	return out
}

// ISODate formats a time as a local YYYY-MM-DD string.
func ISODate(t time.Time) string {
	return t.Format(DateLayout)
}

// ISOToday returns today's local date as YYYY-MM-DD.
func ISOToday() string {
	return ISODate(time.Now())
}
