// Package money converts between USD and the local currency and formats
// amounts for display. Amounts are never rounded internally.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cajadual/backend/internal/domain"
)

// Epsilon is the reconciliation tolerance used by every money comparison.
var Epsilon = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

func ToLocal(usd decimal.Decimal, rate decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateRate(rate); err != nil {
		return decimal.Zero, err
	}
	return usd.Mul(rate), nil
}

func ToUSD(local decimal.Decimal, rate decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateRate(rate); err != nil {
		return decimal.Zero, err
	}
	return local.Div(rate), nil
}

func ValidateRate(rate decimal.Decimal) error {
	if !rate.IsPositive() {
		return fmt.Errorf("%w: rate must be greater than zero, got %s", domain.ErrInvalidRate, rate.String())
	}
	return nil
}

// Within reports whether a and b differ by at most Epsilon.
func Within(a decimal.Decimal, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Epsilon)
}

// Material reports whether v exceeds Epsilon.
func Material(v decimal.Decimal) bool {
	return v.GreaterThan(Epsilon)
}

func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

func Percent(part decimal.Decimal, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred)
}

func Max(a decimal.Decimal, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

func Min(a decimal.Decimal, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}
