package core

// normalize.go holds the field-level normalizers. Each works on a single
// scalar and never fails: unusable input yields an empty value or ok=false.

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/fleximart/internal/config"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultCountryCode is the calling code stripped from and prefixed to phones.
const DefaultCountryCode = "91"

// CanonicalCategories maps lowercased category text to its canonical label.
var CanonicalCategories = map[string]string{
	"electronics": "Electronics",
	"fashion":     "Fashion",
	"groceries":   "Groceries",
}

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	nonDigitRegex   = regexp.MustCompile(`\D+`)
	isoDateRegex    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Normalizer carries the tunable parts of field normalization.
// The zero value is not usable; use NewNormalizer.
type Normalizer struct {
	countryCode string
	categories  map[string]string
}

// NewNormalizer builds a Normalizer from cleaning config. Categories from the
// config extend (and may override) CanonicalCategories.
func NewNormalizer(cfg config.CleaningConfig) *Normalizer {
	cats := make(map[string]string, len(CanonicalCategories)+len(cfg.Categories))
	for k, v := range CanonicalCategories {
		cats[k] = v
	}
	for k, v := range cfg.Categories {
		cats[strings.ToLower(NormalizeSpaces(k))] = NormalizeSpaces(v)
	}

	cc := cfg.PhoneCountryCode
	if cc == "" {
		cc = DefaultCountryCode
	}

	return &Normalizer{countryCode: cc, categories: cats}
}

var defaultNormalizer = NewNormalizer(config.CleaningConfig{})

// NormalizeSpaces collapses every whitespace run to one space and trims the ends.
func NormalizeSpaces(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// TitleCase upper-cases the first letter of each word and lower-cases the rest.
func TitleCase(s string) string {
	if s == "" {
		return ""
	}
	// Casers hold state; one per call keeps this safe for concurrent use.
	return cases.Title(language.Und).String(s)
}

// NormalizeCity trims, collapses spaces and title-cases a city name.
func NormalizeCity(s string) string {
	return TitleCase(NormalizeSpaces(s))
}

// NormalizeCategory maps a category to its canonical label using the built-in table.
func NormalizeCategory(s string) string {
	return defaultNormalizer.Category(s)
}

// NormalizePhone canonicalizes an Indian phone number to +91-XXXXXXXXXX.
func NormalizePhone(s string) (string, bool) {
	return defaultNormalizer.Phone(s)
}

// Category maps s against the canonical table. Unknown values fall back to
// title case of the trimmed input.
func (n *Normalizer) Category(s string) string {
	key := strings.ToLower(NormalizeSpaces(s))
	if key == "" {
		return ""
	}
	if label, ok := n.categories[key]; ok {
		return label
	}
	return TitleCase(key)
}

// Phone keeps only digits, strips the country code or a trunk "0", and keeps
// the last ten digits. Anything that does not end up as exactly ten digits
// is rejected.
func (n *Normalizer) Phone(s string) (string, bool) {
	digits := nonDigitRegex.ReplaceAllString(s, "")

	switch {
	case len(digits) == 10+len(n.countryCode) && strings.HasPrefix(digits, n.countryCode):
		digits = digits[len(n.countryCode):]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	case len(digits) > 10:
		digits = digits[len(digits)-10:]
	}

	if len(digits) != 10 {
		return "", false
	}
	return "+" + n.countryCode + "-" + digits, true
}

// ParseFlexibleDate resolves a date whose layout is not known up front.
//
// Precedence:
//  1. YYYY-MM-DD exactly: year-month-day.
//  2. Separator is "/" if present, else "-". With neither, a generic layout
//     parse is attempted.
//  3. The text must split into three parts. A four-character first part
//     means year first (generic layout parse if that fails).
//  4. Otherwise: second part > 12 means month/day/year; else first part > 12
//     means day/month/year; else month/day/year.
//
// Step 4's last branch is a fixed convention. 03-04-2024 is always 4 March.
func ParseFlexibleDate(s string) (time.Time, bool) {
	s = NormalizeSpaces(s)
	if s == "" {
		return time.Time{}, false
	}

	if isoDateRegex.MatchString(s) {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}

	var sep string
	switch {
	case strings.Contains(s, "/"):
		sep = "/"
	case strings.Contains(s, "-"):
		sep = "-"
	default:
		return parseDateLayouts(s)
	}

	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return time.Time{}, false
	}

	if len(parts[0]) == 4 {
		if t, ok := civilDate(parts[0], parts[1], parts[2]); ok {
			return t, true
		}
		return parseDateLayouts(s)
	}

	first, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, false
	}
	second, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, false
	}

	switch {
	case second > 12:
		return civilDate(parts[2], parts[0], parts[1])
	case first > 12:
		return civilDate(parts[2], parts[1], parts[0])
	default:
		return civilDate(parts[2], parts[0], parts[1])
	}
}

// civilDate builds a UTC midnight date from textual parts, rejecting
// out-of-range months and days instead of normalizing them.
func civilDate(year, month, day string) (time.Time, bool) {
	year, month, day = strings.TrimSpace(year), strings.TrimSpace(month), strings.TrimSpace(day)

	y, err := strconv.Atoi(year)
	if err != nil || y < 0 {
		return time.Time{}, false
	}
	switch len(year) {
	case 4:
	case 2:
		y = expandTwoDigitYear(y)
	default:
		return time.Time{}, false
	}

	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 {
		return time.Time{}, false
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != time.Month(m) {
		return time.Time{}, false
	}
	return t, true
}

// expandTwoDigitYear maps 00-68 to 2000-2068 and 69-99 to 1969-1999.
func expandTwoDigitYear(yy int) int {
	if yy > TwoDigitYearCutoff {
		return 1900 + yy
	}
	return 2000 + yy
}

// RoundFixedPoint2 rounds to two fractional digits, half away from zero.
func RoundFixedPoint2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
