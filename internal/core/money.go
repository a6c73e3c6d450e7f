// Package core provides money parsing and handling utilities.
//
// Amounts are whole-currency numbers held in decimal.Decimal so storage and
// aggregation share one exact representation.
package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ValidateAmount rejects negative amounts. Zero is a valid amount.
func ValidateAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative (got %s)", ErrInvalidAmount, field, d.String())
	}
	return nil
}

// ParseAmount parses an es-AR formatted amount such as "1.234.567,89".
//
// Dots are thousands separators and a comma is the decimal separator. A leading
// "$" and surrounding spaces are ignored. Negative values are rejected.
//
// Examples:
//
//	ParseAmount("1.234")    -> 1234
//	ParseAmount("1.234,50") -> 1234.5
//	ParseAmount("$ 80000")  -> 80000
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return decimal.Zero, fmt.Errorf("%w: sign not allowed in %q", ErrInvalidAmount, s)
	}
	normalized := strings.ReplaceAll(s, ".", "")
	if strings.Count(normalized, ",") > 1 {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	normalized = strings.Replace(normalized, ",", ".", 1)
	for _, r := range normalized {
		if !unicode.IsDigit(r) && r != '.' {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	if normalized == "." {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// FormatARS renders an amount for display, e.g. "$ 1.234,50" or "-$ 80.000,00".
func FormatARS(d decimal.Decimal) string {
	d = d.Round(2)
	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(2)

	intPart, frac := fixed, "00"
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, frac = fixed[:i], fixed[i+1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := "$ " + b.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}

// Sum adds amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
