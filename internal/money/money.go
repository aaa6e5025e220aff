// Package money provides a fixed-point currency amount stored as integer cents.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in integer cents. Negative values are debits
// (money out), positive values are credits (money in). Arithmetic on
// Money is exact; there is no floating point anywhere in the type.
type Money int64

// Zero is the zero amount.
const Zero Money = 0

// FromCents wraps a raw cent count.
func FromCents(cents int64) Money {
	return Money(cents)
}

// Cents returns the raw cent count.
func (m Money) Cents() int64 {
	return int64(m)
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return m + other
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return m - other
}

// Neg returns the amount with its sign flipped.
func (m Money) Neg() Money {
	return -m
}

// IsZero reports whether the amount is exactly zero cents.
func (m Money) IsZero() bool {
	return m == 0
}

// String renders the amount as a plain decimal string with two fraction
// digits, e.g. -1234 cents -> "-12.34". This is the export format:
// decimal strings, never cents.
func (m Money) String() string {
	return decimal.New(int64(m), -2).StringFixed(2)
}

// currencySymbols are stripped before numeric parsing. Thousands
// separators are handled separately because "," is ambiguous with
// European decimal commas; bank CSV exports in scope use "." decimals.
var currencySymbols = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "", " ", "")

// Parse converts a bank-statement amount string to cents. It tolerates
// currency symbols, thousands separators, surrounding whitespace, a
// leading or trailing sign, and accountant parentheses for negatives.
// Fractions beyond two digits are rounded to the nearest cent, half
// away from zero.
func Parse(s string) (Money, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, fmt.Errorf("amount cannot be empty")
	}

	// Parentheses convention: "(12.34)" means -12.34.
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	// Trailing minus, used by some exports: "12.34-".
	if strings.HasSuffix(cleaned, "-") {
		negative = true
		cleaned = strings.TrimSuffix(cleaned, "-")
	}

	cleaned = strings.TrimSpace(currencySymbols.Replace(cleaned))
	if cleaned == "" || cleaned == "-" || cleaned == "+" {
		return 0, fmt.Errorf("amount %q has no digits", s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if negative {
		d = d.Neg()
	}

	// Shift into cents and round half away from zero.
	cents := d.Shift(2).Round(0)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("invalid amount %q: not representable in cents", s)
	}

	return Money(cents.IntPart()), nil
}

// Sum totals a slice of amounts.
func Sum(amounts []Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}
