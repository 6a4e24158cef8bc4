package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// scale is the number of fractional digits every materialised value carries.
const scale = 2

// ratioPrecision is the number of fractional digits used for intermediate
// ratios before the final value is re-rounded to scale.
const ratioPrecision = 12

// Money is a signed fixed-point monetary value with two fractional digits.
// Every arithmetic operation returns a value already rounded half-up to
// that scale; intermediate ratios stay wider and are rounded exactly once,
// when a Money is materialised.
type Money struct {
	d decimal.Decimal
}

// Zero is the additive identity.
var Zero = Money{}

// New builds a Money from major units and cents, e.g. New(10, 50) is 10.50.
func New(units int64, cents int64) Money {
	v := decimal.NewFromInt(units).Mul(decimal.NewFromInt(100))
	if units < 0 {
		v = v.Sub(decimal.NewFromInt(cents))
	} else {
		v = v.Add(decimal.NewFromInt(cents))
	}
	return Money{d: v.Shift(-scale)}
}

// FromDecimal materialises a Money from an arbitrary-precision decimal,
// rounding half-up to two digits.
func FromDecimal(d decimal.Decimal) Money {
	return Money{d: d.Round(scale)}
}

// Parse converts a string such as "19.99" into Money.
func Parse(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Zero, fmt.Errorf("parse money %q: %w", value, err)
	}
	return FromDecimal(d), nil
}

// MustParse is Parse that panics on malformed input. Test helper.
func MustParse(value string) Money {
	m, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d).Round(scale)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d).Round(scale)}
}

// MulQty scales the value by an integer quantity.
func (m Money) MulQty(qty int32) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(int64(qty))).Round(scale)}
}

// MulRatio multiplies by an arbitrary-precision ratio and rounds once.
func (m Money) MulRatio(ratio decimal.Decimal) Money {
	return Money{d: m.d.Mul(ratio).Round(scale)}
}

// PercentBps returns the given fraction of m expressed in basis points,
// so PercentBps(1000) is 10% of the value.
func (m Money) PercentBps(bps int32) Money {
	return Money{d: m.d.Mul(decimal.NewFromInt(int64(bps))).Shift(-4).Round(scale)}
}

// RatioOf computes m / base at ratioPrecision digits for use as an
// apportionment factor. A zero base yields a zero ratio rather than an
// error so callers always obtain a well-defined scaling factor.
func (m Money) RatioOf(base Money) decimal.Decimal {
	if base.d.IsZero() {
		return decimal.Zero
	}
	return m.d.DivRound(base.d, ratioPrecision)
}

// Cmp compares two values: -1 if m < o, 0 if equal, +1 if m > o.
func (m Money) Cmp(o Money) int {
	return m.d.Cmp(o.d)
}

// IsZero reports whether the value is exactly zero.
func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// IsPositive reports whether the value is strictly greater than zero.
func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

// ClampZero returns m when non-negative, otherwise zero.
func (m Money) ClampZero() Money {
	if m.d.IsNegative() {
		return Zero
	}
	return m
}

// Decimal exposes the underlying decimal for wider-precision arithmetic.
func (m Money) Decimal() decimal.Decimal {
	return m.d
}

// String renders the value with exactly two fractional digits.
func (m Money) String() string {
	return m.d.StringFixed(scale)
}

// MarshalJSON encodes the value as a fixed two-digit decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON number or a decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if s == "" || s == "null" {
		*m = Zero
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
