package math

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestToInt(t *testing.T) {
	v := decimal.NewFromBigInt(big.NewInt(77777000000000000), -14)
	require.Equal(t, "777", ToInt(&v).String())

	v = decimal.NewFromBigInt(big.NewInt(100), -10)
	require.Equal(t, "0", ToInt(&v).String())

	v = decimal.NewFromBigInt(big.NewInt(123), 3)
	require.Equal(t, "123000", ToInt(&v).String())
}

func TestPerbillFromDecimal(t *testing.T) {
	require.Equal(t, Perbill(0), PerbillFromDecimal(decimal.NewFromInt(-1)))
	require.Equal(t, Perbill(PerbillOne), PerbillFromDecimal(decimal.NewFromFloat(1.5)))
	require.Equal(t, Perbill(500_000_000), PerbillFromDecimal(decimal.RequireFromString("0.5")))
	require.Equal(t, Perbill(500_000_000), PerbillFromDecimal(decimal.RequireFromString("0.5000000009")))
	require.Equal(t, Perbill(500_000_001), PerbillFromDecimal(decimal.RequireFromString("0.500000001")))

	third := PerbillFromDecimal(decimal.NewFromInt(1).Div(decimal.NewFromInt(3)))
	require.Equal(t, Perbill(333_333_333), third)
	require.True(t, third.RationalAtLeast(big.NewInt(1), big.NewInt(3)))
}

func TestPerbillFromRational(t *testing.T) {
	require.Equal(t, Perbill(0), PerbillFromRational(big.NewInt(1), big.NewInt(0)))
	require.Equal(t, Perbill(PerbillOne), PerbillFromRational(big.NewInt(7), big.NewInt(7)))
	require.Equal(t, Perbill(333_333_333), PerbillFromRational(big.NewInt(1), big.NewInt(3)))
}

func TestPerbill_RationalAtLeast(t *testing.T) {
	half := Perbill(500_000_000)
	require.True(t, half.RationalAtLeast(big.NewInt(1), big.NewInt(2)))
	require.True(t, half.RationalAtLeast(big.NewInt(3), big.NewInt(6)))
	require.False(t, (half+1).RationalAtLeast(big.NewInt(3), big.NewInt(6)))
	require.True(t, (half+1).RationalAtLeast(big.NewInt(4), big.NewInt(7)))
	require.False(t, half.RationalAtLeast(big.NewInt(0), big.NewInt(0)))
	require.Equal(t, "0.5", half.Decimal().String())
}
