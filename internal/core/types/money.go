// Package types holds the numeric value types of the ledger: exact money
// amounts and fixed-point stock quantities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. Costs, prices and journal lines never
// pass through float64.
type Money = decimal.Decimal

// ParseMoney parses a decimal string such as "12.40".
func ParseMoney(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney is ParseMoney for literals; it panics on malformed input.
func MustMoney(s string) Money {
	return decimal.RequireFromString(s)
}

// Zero returns 0.
func Zero() Money {
	return decimal.Zero
}
