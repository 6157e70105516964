package types

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity counts stock units with four fixed decimal places (1 unit = 10000).
// It is stored as BIGINT and travels in JSON as a plain number.
type Quantity int64

// QuantityScale is the number of Quantity steps per whole unit.
const QuantityScale int64 = 10_000

const quantityExp = -4

// NewQuantity returns a whole number of units.
func NewQuantity(units int64) Quantity { return Quantity(units * QuantityScale) }

// ParseQuantity reads a decimal such as "12.5". Digits past the fourth
// decimal place are truncated.
func ParseQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return Quantity(d.Shift(-quantityExp).Truncate(0).IntPart()), nil
}

// MinQuantity returns the smaller of a and b.
func MinQuantity(a, b Quantity) Quantity {
	return min(a, b)
}

// Decimal returns the exact decimal value in units.
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(int64(q), quantityExp) }

// Cost returns q × unit, exact.
func (q Quantity) Cost(unit Money) Money { return q.Decimal().Mul(unit) }

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Abs() Quantity {
	if q < 0 {
		return -q
	}
	return q
}

// String formats q with exactly four decimals.
func (q Quantity) String() string {
	return q.Decimal().StringFixed(-quantityExp)
}

// MarshalJSON writes q as a JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts a number, a numeric string or null.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	parsed, err := ParseQuantity(raw)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
