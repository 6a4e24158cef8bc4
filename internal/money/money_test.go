package money_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/money"
)

func TestParseAndString(t *testing.T) {
	m, err := money.Parse("19.995")
	require.NoError(t, err)
	require.Equal(t, "20.00", m.String())

	m, err = money.Parse("10.004")
	require.NoError(t, err)
	require.Equal(t, "10.00", m.String())

	_, err = money.Parse("not-a-number")
	require.Error(t, err)
}

func TestHalfUpRounding(t *testing.T) {
	base := money.MustParse("10.01")
	half := base.PercentBps(5000)
	require.Equal(t, "5.01", half.String(), "10.01 / 2 = 5.005 rounds up")
}

func TestArithmetic(t *testing.T) {
	a := money.MustParse("10.00")
	b := money.MustParse("9.50")

	require.Equal(t, "19.50", a.Add(b).String())
	require.Equal(t, "0.50", a.Sub(b).String())
	require.Equal(t, "20.00", a.MulQty(2).String())
	require.Equal(t, "1.00", a.PercentBps(1000).String())
	require.Equal(t, 1, a.Cmp(b))
	require.Equal(t, 0, a.Cmp(money.New(10, 0)))
}

func TestClampZero(t *testing.T) {
	neg := money.MustParse("3.00").Sub(money.MustParse("5.00"))
	require.Equal(t, "0.00", neg.ClampZero().String())
	require.Equal(t, "3.00", money.MustParse("3.00").ClampZero().String())
}

func TestRatioRoundsOnce(t *testing.T) {
	final := money.MustParse("19.00")
	subtotal := money.MustParse("20.00")
	taxable := money.MustParse("19.00")

	ratio := final.RatioOf(subtotal)
	require.Equal(t, "18.05", taxable.MulRatio(ratio).String())
}

func TestRatioOfZeroBase(t *testing.T) {
	ratio := money.MustParse("5.00").RatioOf(money.Zero)
	require.True(t, ratio.Equal(decimal.Zero))
}

func TestJSONRoundTrip(t *testing.T) {
	encoded, err := json.Marshal(money.MustParse("8.25"))
	require.NoError(t, err)
	require.Equal(t, `"8.25"`, string(encoded))

	var decoded money.Money
	require.NoError(t, json.Unmarshal([]byte(`"12.345"`), &decoded))
	require.Equal(t, "12.35", decoded.String())

	require.NoError(t, json.Unmarshal([]byte(`7.5`), &decoded))
	require.Equal(t, "7.50", decoded.String())
}
