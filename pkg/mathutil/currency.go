// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/iwvelando/cashout-forecast/pkg/constants"
	"github.com/shopspring/decimal"
)

// Round rounds a value to two decimals, i.e. to represent real currency.
// Non-finite values round to 0.
func Round(val float64) float64 {
	return RoundTo(val, constants.DecimalPlaces)
}

// RoundTo rounds the exact binary value of val half away from zero to the
// given number of decimals, so 1.005 rounds to 1.00 and 2.675 to 2.67.
func RoundTo(val float64, places int32) float64 {
	if !IsFinite(val) {
		return 0
	}
	return decimal.NewFromFloatWithExponent(val, -places).InexactFloat64()
}

// Money clamps a value to be non-negative and rounds it to two decimals.
// Every amount written to a timeline row or amortization entry goes through
// Money.
func Money(val float64) float64 {
	return Round(NonNegative(val))
}

// Factor rounds a correction factor to eight decimals, falling back to 1 for
// non-finite input.
func Factor(val float64) float64 {
	if !IsFinite(val) {
		return 1
	}
	return RoundTo(val, constants.FactorDecimalPlaces)
}

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// NonNegative returns val, or 0 when val is negative or non-finite.
func NonNegative(val float64) float64 {
	if !IsFinite(val) || val < 0 {
		return 0
	}
	return val
}

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}
