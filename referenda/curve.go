package referenda

import (
	"github.com/idena-network/idena-communities/common/math"
	"github.com/idena-network/idena-communities/config"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	one = decimal.NewFromInt(1)
)

// Curve maps the elapsed fraction x of the decision period, in [0, 1], to a threshold.
type Curve interface {
	Threshold(x decimal.Decimal) decimal.Decimal
}

// LinearDecreasing falls from Ceil at x=0 to Floor at x=Length and stays there.
type LinearDecreasing struct {
	Length decimal.Decimal
	Floor  decimal.Decimal
	Ceil   decimal.Decimal
}

func (c LinearDecreasing) Threshold(x decimal.Decimal) decimal.Decimal {
	if c.Length.Sign() <= 0 {
		return c.Floor
	}
	x = decimal.Min(x, c.Length)
	return c.Ceil.Sub(c.Ceil.Sub(c.Floor).Mul(x).Div(c.Length))
}

// SteppedDecreasing starts at Begin and drops by Step every Period, never going below End.
type SteppedDecreasing struct {
	Begin  decimal.Decimal
	End    decimal.Decimal
	Step   decimal.Decimal
	Period decimal.Decimal
}

func (c SteppedDecreasing) Threshold(x decimal.Decimal) decimal.Decimal {
	if c.Period.Sign() <= 0 {
		return c.End
	}
	steps := x.Div(c.Period).Floor()
	return decimal.Max(c.Begin.Sub(c.Step.Mul(steps)), c.End)
}

// Reciprocal is Factor / (x + XOffset) + YOffset.
type Reciprocal struct {
	Factor  decimal.Decimal
	XOffset decimal.Decimal
	YOffset decimal.Decimal
}

func (c Reciprocal) Threshold(x decimal.Decimal) decimal.Decimal {
	denom := x.Add(c.XOffset)
	if denom.Sign() <= 0 {
		return one
	}
	return c.Factor.Div(denom).Add(c.YOffset)
}

func CurveFromConfig(cfg config.CurveConfig) (Curve, error) {
	switch cfg.Kind {
	case config.LinearDecreasing:
		return LinearDecreasing{Length: cfg.Length, Floor: cfg.Floor, Ceil: cfg.Ceil}, nil
	case config.SteppedDecreasing:
		return SteppedDecreasing{Begin: cfg.Begin, End: cfg.End, Step: cfg.Step, Period: cfg.Period}, nil
	case config.Reciprocal:
		return Reciprocal{Factor: cfg.Factor, XOffset: cfg.XOffset, YOffset: cfg.YOffset}, nil
	}
	return nil, errors.Errorf("unknown curve kind %q", cfg.Kind)
}

// ThresholdAt evaluates the curve and rounds the result down to a Perbill, so a ratio
// equal to the curve value satisfies it.
func ThresholdAt(c Curve, x decimal.Decimal) math.Perbill {
	x = decimal.Max(decimal.Min(x, one), decimal.Zero)
	return math.PerbillFromDecimal(c.Threshold(x))
}
