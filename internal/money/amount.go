// Package money provides the exact decimal amount used for every balance and
// transaction value in the ledger. Floating point never appears in arithmetic.
package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is an exact decimal monetary value in major units (e.g. 1234.50).
// The zero value is 0.
type Amount struct {
	value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// New returns an Amount for the given integer major units.
func New(units int64) Amount {
	return Amount{value: decimal.NewFromInt(units)}
}

// FromDecimal wraps a decimal value.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount{value: d}
}

// Parse parses a decimal string such as "3000" or "-12.75".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Zero, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return Amount{value: d}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromRat converts a BigQuery NUMERIC value, which carries at most nine
// fractional digits. It panics if the rational cannot be read back as a
// decimal.
func FromRat(r *big.Rat) Amount {
	if r == nil {
		return Zero
	}
	d, err := decimal.NewFromString(r.FloatString(9))
	if err != nil {
		panic(fmt.Sprintf("money: converting %s: %v", r, err))
	}
	return Amount{value: d}
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return Amount{value: a.value.Add(b.value)} }

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount { return Amount{value: a.value.Sub(b.value)} }

// Neg returns -a.
func (a Amount) Neg() Amount { return Amount{value: a.value.Neg()} }

// IsZero reports whether a == 0.
func (a Amount) IsZero() bool { return a.value.IsZero() }

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool { return a.value.IsPositive() }

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool { return a.value.IsNegative() }

// Equal compares values, so "10.50" equals "10.5".
func (a Amount) Equal(b Amount) bool { return a.value.Equal(b.value) }

// Cmp returns -1, 0 or +1 as a is less than, equal to or greater than b.
func (a Amount) Cmp(b Amount) int { return a.value.Cmp(b.value) }

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal { return a.value }

// Rat returns the value as a big.Rat, the representation BigQuery uses for NUMERIC.
func (a Amount) Rat() *big.Rat { return a.value.Rat() }

// String renders the amount without trailing zeros ("3000", "12.5").
func (a Amount) String() string { return a.value.String() }

// Sum adds all amounts.
func Sum(amounts ...Amount) Amount {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// MarshalJSON encodes the amount as a JSON string to keep full precision.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.value.String())
}

// UnmarshalJSON accepts both JSON strings and JSON numbers.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*a = Zero
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer. Amounts are stored as TEXT so SQLite never
// rounds them through REAL.
func (a Amount) Value() (driver.Value, error) {
	return a.value.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	var d decimal.Decimal
	if err := d.Scan(src); err != nil {
		return fmt.Errorf("money: scan: %w", err)
	}
	a.value = d
	return nil
}
