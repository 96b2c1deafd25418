// Package types holds the money type and the arithmetic rules applied to
// prices, discounts, tax and cash counts.
package types

import (
	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. It encodes to JSON as a quoted string
// and to PostgreSQL as NUMERIC(14,2).
type Money = decimal.Decimal

// MoneyPlaces is the persisted scale of every amount.
const MoneyPlaces int32 = 2

var (
	hundred = decimal.NewFromInt(100)
	oneCent = decimal.New(1, -MoneyPlaces)
)

func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney is for literals in code and tests.
func MustMoney(s string) Money {
	return decimal.RequireFromString(s)
}

func FromInt(n int64) Money { return decimal.NewFromInt(n) }

func Zero() Money { return decimal.Zero }

// Round rounds half away from zero to cents.
func Round(m Money) Money {
	return m.Round(MoneyPlaces)
}

// ApplyDiscount returns amount reduced by percent, unrounded.
func ApplyDiscount(amount, percent Money) Money {
	return amount.Sub(amount.Mul(percent).Div(hundred))
}

// IsNegligible reports whether |m| is under one cent, the threshold at
// which a counted drawer is considered balanced.
func IsNegligible(m Money) bool {
	return m.Abs().LessThan(oneCent)
}

// ValidPercent reports whether p is within [0, 100].
func ValidPercent(p Money) bool {
	return !p.IsNegative() && p.LessThanOrEqual(hundred)
}
