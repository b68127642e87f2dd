// Package money - fixed-scale decimal amounts for wallet balances.
//
// All value-affecting arithmetic is performed on shopspring/decimal values,
// never on binary floating point. Amounts are held at scale 2; intermediate
// computation may run at scale 10 and is rounded back to scale 2 with
// banker's rounding (round half to even).
package money

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

const (
	// Scale is the number of fractional digits carried by every amount.
	Scale = 2

	// InternalScale is the working precision for intermediate computation.
	InternalScale = 10
)

// amountPattern is the canonical wire format: optional sign, integer part,
// at most two fractional digits.
var amountPattern = regexp.MustCompile(`^-?\d+(\.\d{1,2})?$`)

// Money is an immutable fixed-scale decimal amount. The zero value is "0.00".
type Money struct {
	d decimal.Decimal
}

// Parse converts a canonical decimal string (e.g. "100.50") into Money.
// Inputs that are not plain decimals with at most two fractional digits are
// rejected, which also excludes NaN/Inf spellings.
func Parse(s string) (Money, error) {
	if !amountPattern.MatchString(s) {
		return Money{}, fmt.Errorf("invalid amount %q: must match %s", s, amountPattern.String())
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	return FromDecimal(d), nil
}

// MustParse is Parse for literals in tests and seeds; panics on bad input.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal normalizes an arbitrary decimal to scale 2 using banker's
// rounding. Scale-2 inputs pass through exactly.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d.RoundBank(Scale)}
}

// FromInt converts whole units (e.g. 5 -> "5.00").
func FromInt(n int64) Money {
	return Money{d: decimal.NewFromInt(n)}
}

// Zero returns "0.00".
func Zero() Money {
	return Money{}
}

// Add returns m + o. Addition at scale 2 is exact; the result is
// re-normalized defensively.
func (m Money) Add(o Money) Money {
	return FromDecimal(m.d.Add(o.d))
}

// Sub returns m - o. The result may be negative; callers enforcing the
// non-negative balance invariant must check before applying it.
func (m Money) Sub(o Money) Money {
	return FromDecimal(m.d.Sub(o.d))
}

// Mul multiplies by an arbitrary decimal factor at InternalScale and rounds
// the result back to scale 2 with banker's rounding.
func (m Money) Mul(factor decimal.Decimal) Money {
	product := m.d.Mul(factor).Round(InternalScale)
	return FromDecimal(product)
}

// Cmp compares two amounts: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// Equal reports exact equality of the two amounts.
func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

// LessThan reports m < o.
func (m Money) LessThan(o Money) bool {
	return m.d.LessThan(o.d)
}

// IsPositive reports m > 0.
func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

// IsNegative reports m < 0.
func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

// IsZero reports m == 0.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// String renders the canonical two-decimal form, e.g. "900.00".
func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// MarshalJSON encodes the amount as a canonical string, never a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted canonical amount.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("money: expected quoted amount, got %s", s)
	}

	parsed, err := Parse(s[1 : len(s)-1])
	if err != nil {
		return err
	}

	*m = parsed
	return nil
}
