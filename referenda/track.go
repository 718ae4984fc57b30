package referenda

import (
	"github.com/idena-network/idena-communities/config"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Track struct {
	Id                uint16
	Name              string
	MaxDeciding       uint32
	PreparePeriod     uint64
	DecisionPeriod    uint64
	ConfirmPeriod     uint64
	UndecidingTimeout uint64
	MinApproval       Curve
	MinSupport        Curve
}

func NewTrack(cfg config.TrackConfig) (*Track, error) {
	approval, err := CurveFromConfig(cfg.MinApproval)
	if err != nil {
		return nil, errors.Wrapf(err, "track %d approval", cfg.Id)
	}
	support, err := CurveFromConfig(cfg.MinSupport)
	if err != nil {
		return nil, errors.Wrapf(err, "track %d support", cfg.Id)
	}
	return &Track{
		Id:                cfg.Id,
		Name:              cfg.Name,
		MaxDeciding:       cfg.MaxDeciding,
		PreparePeriod:     cfg.PreparePeriod,
		DecisionPeriod:    cfg.DecisionPeriod,
		ConfirmPeriod:     cfg.ConfirmPeriod,
		UndecidingTimeout: cfg.UndecidingTimeout,
		MinApproval:       approval,
		MinSupport:        support,
	}, nil
}

// Elapsed returns the fraction of the decision period passed since decidingSince.
func (t *Track) Elapsed(decidingSince, now uint64) decimal.Decimal {
	if now <= decidingSince {
		return decimal.Zero
	}
	if t.DecisionPeriod == 0 || now-decidingSince >= t.DecisionPeriod {
		return one
	}
	return decimal.NewFromInt(int64(now - decidingSince)).Div(decimal.NewFromInt(int64(t.DecisionPeriod)))
}
