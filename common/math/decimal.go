package math

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PerbillOne is the parts-per-billion representation of 1.
const PerbillOne = 1_000_000_000

var (
	bigPerbillOne = big.NewInt(PerbillOne)
	decPerbillOne = decimal.NewFromInt(PerbillOne)
)

// Perbill is a fixed point ratio in [0, 1] with a 1e-9 resolution.
type Perbill uint32

func abs(n int64) int64 {
	y := n >> 63
	return (n ^ y) - y
}

// ToInt truncates value towards zero.
func ToInt(value *decimal.Decimal) *big.Int {
	m := value.Coefficient()
	exp := value.Exponent()

	if exp == 0 {
		return m
	}

	coef := big.NewInt(1)

	for i := int64(0); i < abs(int64(exp)); i++ {
		coef.Mul(coef, big.NewInt(10))
	}

	if exp < 0 {
		m.Quo(m, coef)
	} else {
		m.Mul(m, coef)
	}
	return m
}

// PerbillFromDecimal clamps value into [0, 1] and rounds it down to a billionth.
func PerbillFromDecimal(value decimal.Decimal) Perbill {
	if value.Sign() <= 0 {
		return 0
	}
	if value.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return PerbillOne
	}
	scaled := value.Mul(decPerbillOne).Floor()
	return Perbill(ToInt(&scaled).Uint64())
}

// PerbillFromRational returns floor(num / denum) in parts per billion. A zero denominator yields zero.
func PerbillFromRational(num, denum *big.Int) Perbill {
	if denum.Sign() <= 0 || num.Sign() <= 0 {
		return 0
	}
	if num.Cmp(denum) >= 0 {
		return PerbillOne
	}
	v := new(big.Int).Mul(num, bigPerbillOne)
	v.Quo(v, denum)
	return Perbill(v.Uint64())
}

func (p Perbill) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -9)
}

// RationalAtLeast reports whether num/denum >= p without rounding the ratio.
func (p Perbill) RationalAtLeast(num, denum *big.Int) bool {
	if denum.Sign() <= 0 {
		return false
	}
	lhs := new(big.Int).Mul(num, bigPerbillOne)
	rhs := new(big.Int).Mul(big.NewInt(int64(p)), denum)
	return lhs.Cmp(rhs) >= 0
}
