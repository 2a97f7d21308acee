package core

// convert.go turns cleaned text into typed values and typed values into
// pgtype parameters for the loader.
//
// Number parsing tolerates the usual spreadsheet noise: currency symbols,
// thousands separators and accounting negatives "(12.50)". All ToPg*
// functions return Valid=false for empty input so the store receives NULL.

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearCutoff is the last two-digit year placed in the 2000s; later
// ones land in the 1900s. It matches the "06" layout rule of package time so
// both date paths agree.
const TwoDigitYearCutoff = 68

// fallbackDateLayouts are tried when a date does not fit the
// separator-and-three-parts scheme of ParseFlexibleDate.
var fallbackDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"2006.01.02",
	"02.01.2006",
	"20060102",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// parseDateLayouts tries each fallback layout and truncates the result to a
// UTC calendar date.
func parseDateLayouts(s string) (time.Time, bool) {
	for _, layout := range fallbackDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// ParseDecimal parses a money or quantity cell. ok is false for empty or
// non-numeric input.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, sym := range []string{"$", "€", "£", "₹", ","} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)
	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

var (
	minCount = decimal.NewFromInt(math.MinInt32)
	maxCount = decimal.NewFromInt(math.MaxInt32)
)

// ParseCount parses an integer count such as quantity or stock. Fractional
// values are truncated toward zero, so "2.9" is 2. Values that do not fit a
// PostgreSQL INTEGER are not ok.
func ParseCount(s string) (int, bool) {
	d, ok := ParseDecimal(s)
	if !ok {
		return 0, false
	}
	d = d.Truncate(0)
	if d.LessThan(minCount) || d.GreaterThan(maxCount) {
		return 0, false
	}
	return int(d.IntPart()), true
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgDate converts a calendar date to pgtype.Date. The zero time is NULL.
func ToPgDate(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

// ToPgNumeric converts a decimal to a two-place pgtype.Numeric.
func ToPgNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	if err := n.Scan(RoundFixedPoint2(d).StringFixed(2)); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// ToPgInt4 converts an int to pgtype.Int4.
func ToPgInt4(i int) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(i), Valid: true}
}
