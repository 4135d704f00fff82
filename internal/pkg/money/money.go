// internal/pkg/money/money.go
package money

import (
	"github.com/shopspring/decimal"
)

// Places is the number of decimals kept at the currency boundary.
const Places = 2

// Round rounds half away from zero to two decimals (0.125 -> 0.13, -0.125 -> -0.13).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// FromString parses a price, rounding it to the currency boundary.
func FromString(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	return Round(d), nil
}

// Format renders d with exactly two decimals.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
