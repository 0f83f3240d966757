// Package money holds the rounding rules shared by every monetary
// computation in the booking flow.  Amounts are carried as
// decimal.Decimal and rounded to two places, half away from zero, after
// each intermediate step so that a recomputed price is identical to the
// quoted one.
package money

import "github.com/shopspring/decimal"

// Places is the number of fractional digits kept for currency amounts.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Round2 rounds d to two decimal places using round-half-away-from-zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Sum adds the given amounts and rounds the result.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return Round2(total)
}

// Percent returns value% of base, unrounded.  Callers round at the point
// the figure is persisted or compared.
func Percent(base, value decimal.Decimal) decimal.Decimal {
	return base.Mul(value).Div(hundred)
}

// Min returns the smaller of a and b.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// FromString parses s as a decimal value.  It is used by configuration
// where an invalid value must be reported instead of silently zeroed.
func FromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return d, nil
}
