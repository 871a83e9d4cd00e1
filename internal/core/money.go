// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals so that sums of entries such as 12.50 and 5.00
// never drift the way binary floats do.
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern admits plain decimal text with bounded digits. Exponent
// notation is refused.
var amountPattern = regexp.MustCompile(`^(\d{1,15}(\.\d{0,8})?|\.\d{1,8})$`)

// Money is a decimal currency quantity. The currency itself is implied by the
// display symbol and never stored.
type Money struct {
	decimal.Decimal
}

// NewMoney builds a Money from a decimal literal and panics on malformed
// input. Intended for constants and tests.
func NewMoney(s string) Money {
	return Money{Decimal: decimal.RequireFromString(s)}
}

// ParseAmount converts user text to a positive Money.
//
// Surrounding whitespace is ignored and a single decimal comma is accepted in
// place of a dot. Non-numeric text, exponent notation, more than 15 integer
// or 8 fractional digits, zero and negative values are rejected with
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.50") -> 12.50, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("0")     -> ErrInvalidAmount
//	ParseAmount("abc")   -> ErrInvalidAmount
//	ParseAmount("1e3")   -> ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	if !amountPattern.MatchString(s) {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	s = strings.TrimSuffix(s, ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	m := Money{Decimal: d}
	if !m.IsPositive() {
		return Money{}, ErrInvalidAmount
	}
	return m, nil
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Decimal: m.Decimal.Add(other.Decimal)}
}

func (m Money) Equal(other Money) bool {
	return m.Decimal.Equal(other.Decimal)
}

// Format renders the amount with the given currency symbol and exactly two
// decimals, e.g. "₹12.50".
func (m Money) Format(symbol string) string {
	if m.IsNegative() {
		return "-" + symbol + m.Neg().StringFixed(2)
	}
	return symbol + m.StringFixed(2)
}

// MarshalJSON writes the amount as a bare JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	if err := m.Decimal.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	return nil
}
