// Package core provides money parsing and handling utilities.
//
// Amounts are stored as signed milliunits (1/1000 of the currency unit).
// Decimal strings coming from imports are parsed with shopspring/decimal and
// rounded half away from zero to the nearest milliunit.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed amount in milliunits. Negative values are expenses.
type Money int64

const milliunitsPerUnit = 1000

var milliunitScale = decimal.NewFromInt(milliunitsPerUnit)

// MoneyFromDecimal converts a decimal amount in currency units to milliunits.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	scaled := d.Mul(milliunitScale).Round(0)
	if !scaled.IsInteger() || scaled.Abs().GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return Money(scaled.IntPart()), nil
}

// ParseMoney parses a decimal string such as "-12.34" or "1e3".
//
// Examples:
//
//	ParseMoney("12.34")  -> 12340, nil
//	ParseMoney("-0.5")   -> -500, nil
//	ParseMoney("1.2345") -> 1235, nil (half away from zero)
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d)
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -3)
}

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// IsExpense reports whether m counts as an expense.
func (m Money) IsExpense() bool { return m < 0 }

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
