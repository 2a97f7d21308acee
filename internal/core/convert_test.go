package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// ----------------------------------------------------------------------------
// ParseDecimal Tests
// ----------------------------------------------------------------------------

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantValue string
	}{
		{name: "integer", input: "123", wantValid: true, wantValue: "123"},
		{name: "decimal", input: "123.45", wantValid: true, wantValue: "123.45"},
		{name: "leading decimal point", input: ".99", wantValid: true, wantValue: "0.99"},
		{name: "negative", input: "-456", wantValid: true, wantValue: "-456"},
		{name: "dollar with thousands", input: "$1,299.50", wantValid: true, wantValue: "1299.5"},
		{name: "rupee with space", input: "₹ 450", wantValid: true, wantValue: "450"},
		{name: "euro", input: "€12", wantValid: true, wantValue: "12"},
		{name: "accounting negative", input: "(12.50)", wantValid: true, wantValue: "-12.5"},
		{name: "scientific", input: "1e3", wantValid: true, wantValue: "1000"},
		{name: "padded", input: "  42  ", wantValid: true, wantValue: "42"},
		{name: "empty", input: "", wantValid: false},
		{name: "text", input: "abc", wantValid: false},
		{name: "two points", input: "1.2.3", wantValid: false},
		{name: "only symbol", input: "$", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDecimal(tt.input)
			if ok != tt.wantValid {
				t.Fatalf("ParseDecimal(%q) ok = %v, want %v", tt.input, ok, tt.wantValid)
			}
			if ok && !got.Equal(decimal.RequireFromString(tt.wantValue)) {
				t.Errorf("ParseDecimal(%q) = %s, want %s", tt.input, got, tt.wantValue)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		input     string
		want      int
		wantValid bool
	}{
		{"3", 3, true},
		{"2.9", 2, true},
		{"-1", -1, true},
		{"0", 0, true},
		{"", 0, false},
		{"three", 0, false},
		{"2147483647", 2147483647, true},
		{"-2147483648", -2147483648, true},
		{"2147483648", 0, false},
		{"4294967297", 0, false},
		{"-3000000000", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCount(tt.input)
		if got != tt.want || ok != tt.wantValid {
			t.Errorf("ParseCount(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.wantValid)
		}
	}
}

// ----------------------------------------------------------------------------
// ToPg* Tests
// ----------------------------------------------------------------------------

func TestToPgNumeric(t *testing.T) {
	tests := []struct {
		input   string
		wantInt int64
		wantExp int32
	}{
		{"12.345", 1235, -2},
		{"50", 5000, -2},
		{"0.005", 1, -2},
	}
	for _, tt := range tests {
		n := ToPgNumeric(decimal.RequireFromString(tt.input))
		if !n.Valid {
			t.Fatalf("ToPgNumeric(%s) invalid", tt.input)
		}
		if n.Int.Int64() != tt.wantInt || n.Exp != tt.wantExp {
			t.Errorf("ToPgNumeric(%s) = %se%d, want %de%d", tt.input, n.Int, n.Exp, tt.wantInt, tt.wantExp)
		}
	}
}

func TestToPgDate(t *testing.T) {
	if ToPgDate(time.Time{}).Valid {
		t.Error("zero time should be NULL")
	}

	d := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	got := ToPgDate(d)
	if !got.Valid || !got.Time.Equal(d) {
		t.Errorf("ToPgDate(%v) = %+v", d, got)
	}
}

func TestToPgText(t *testing.T) {
	tests := []struct {
		input     string
		wantValid bool
		wantValue string
	}{
		{"Mumbai", true, "Mumbai"},
		{"  Pune ", true, "Pune"},
		{"", false, ""},
		{"   ", false, ""},
	}
	for _, tt := range tests {
		got := ToPgText(tt.input)
		if got.Valid != tt.wantValid || got.String != tt.wantValue {
			t.Errorf("ToPgText(%q) = %+v, want valid=%v value=%q", tt.input, got, tt.wantValid, tt.wantValue)
		}
	}
}

func TestToPgInt4(t *testing.T) {
	got := ToPgInt4(0)
	if !got.Valid || got.Int32 != 0 {
		t.Errorf("ToPgInt4(0) = %+v, zero stock must stay a value", got)
	}
}
