// Package money holds the presentation-boundary helpers for monetary values.
//
// Engine arithmetic stays in full-precision decimals. Rounding happens exactly once,
// when a value is rendered for output: money to 2 places and percentages to 1 place,
// both half-up (half away from zero).
package money

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Parse converts a major-unit amount string ("1500.00") to a decimal.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// FromFloat converts a float major-unit amount, e.g. from a JSON number.
// NaN and infinities are rejected.
func FromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("amount %v is not a finite number", f)
	}
	return decimal.NewFromFloat(f), nil
}

// Round2 rounds to whole cents. Halves round away from zero, so -0.005 becomes -0.01.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Format renders a money value fixed to 2 decimals, rounding like Round2.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatNullable renders a nullable money value; a null value renders as nil.
func FormatNullable(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := Format(d.Decimal)
	return &s
}

// ToMinorUnits converts a major-unit amount to integer minor units (cents, paise).
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts integer minor units back to a major-unit amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FormatPercent renders a fraction (0–1) as a 0–100 percentage rounded to 1 decimal.
func FormatPercent(fraction decimal.Decimal) float64 {
	f, _ := fraction.Mul(hundred).Round(1).Float64()
	return f
}

// FormatScore renders a 0–100 score rounded to 1 decimal.
func FormatScore(score decimal.Decimal) float64 {
	f, _ := score.Round(1).Float64()
	return f
}
