package core

// validation.go checks raw file headers before any row is read.
//
// Every column of the three raw files is required; a file missing any of
// them aborts the run before transformation begins.

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumns is returned when a raw file lacks required header columns.
var ErrMissingColumns = errors.New("missing required columns")

// FieldSpec describes one column of a raw input file.
type FieldSpec struct {
	Name     string // Column header name, matched case-insensitively
	Required bool   // Column must exist in the header
}

// HeaderIndex maps column names (lowercase) to their position in the CSV row.
type HeaderIndex map[string]int

// Get returns the cell for column name, or "" when the row is short.
func (h HeaderIndex) Get(row []string, name string) string {
	pos, ok := h[strings.ToLower(name)]
	if !ok || pos >= len(row) {
		return ""
	}
	return row[pos]
}

var (
	customerFields = []FieldSpec{
		{Name: "customer_id", Required: true},
		{Name: "first_name", Required: true},
		{Name: "last_name", Required: true},
		{Name: "email", Required: true},
		{Name: "phone", Required: true},
		{Name: "city", Required: true},
		{Name: "registration_date", Required: true},
	}
	productFields = []FieldSpec{
		{Name: "product_id", Required: true},
		{Name: "product_name", Required: true},
		{Name: "category", Required: true},
		{Name: "price", Required: true},
		{Name: "stock_quantity", Required: true},
	}
	salesFields = []FieldSpec{
		{Name: "transaction_id", Required: true},
		{Name: "customer_id", Required: true},
		{Name: "product_id", Required: true},
		{Name: "quantity", Required: true},
		{Name: "unit_price", Required: true},
		{Name: "transaction_date", Required: true},
		{Name: "status", Required: true},
	}
)

// ValidateHeaders validates that all required columns exist in the CSV headers.
// Returns a mapping from column name to index, or an error listing missing columns.
func ValidateHeaders(headers []string, specs []FieldSpec) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, field := range specs {
		if field.Required {
			if _, ok := idx[strings.ToLower(field.Name)]; !ok {
				missing = append(missing, field.Name)
			}
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return idx, nil
}

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching. The first occurrence of
// a repeated header wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(CleanCell(h))
		if _, seen := idx[key]; !seen {
			idx[key] = i
		}
	}
	return idx
}

// CleanCell removes spreadsheet artifacts from a header cell:
// surrounding whitespace, an Excel formula prefix (="...") and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
