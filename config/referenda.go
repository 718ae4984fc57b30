package config

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type CurveKind string

const (
	LinearDecreasing  CurveKind = "linear"
	SteppedDecreasing CurveKind = "stepped"
	Reciprocal        CurveKind = "reciprocal"
)

// CurveConfig describes a threshold over the elapsed fraction x of the decision period.
// Linear uses Length/Floor/Ceil, stepped uses Begin/End/Step/Period and reciprocal
// uses Factor/XOffset/YOffset.
type CurveConfig struct {
	Kind    CurveKind       `json:"kind" yaml:"kind"`
	Length  decimal.Decimal `json:"length" yaml:"length"`
	Floor   decimal.Decimal `json:"floor" yaml:"floor"`
	Ceil    decimal.Decimal `json:"ceil" yaml:"ceil"`
	Begin   decimal.Decimal `json:"begin" yaml:"begin"`
	End     decimal.Decimal `json:"end" yaml:"end"`
	Step    decimal.Decimal `json:"step" yaml:"step"`
	Period  decimal.Decimal `json:"period" yaml:"period"`
	Factor  decimal.Decimal `json:"factor" yaml:"factor"`
	XOffset decimal.Decimal `json:"xOffset" yaml:"xOffset"`
	YOffset decimal.Decimal `json:"yOffset" yaml:"yOffset"`
}

type TrackConfig struct {
	Id                uint16      `json:"id" yaml:"id"`
	Name              string      `json:"name" yaml:"name"`
	MaxDeciding       uint32      `json:"maxDeciding" yaml:"maxDeciding"`
	PreparePeriod     uint64      `json:"preparePeriod" yaml:"preparePeriod"`
	DecisionPeriod    uint64      `json:"decisionPeriod" yaml:"decisionPeriod"`
	ConfirmPeriod     uint64      `json:"confirmPeriod" yaml:"confirmPeriod"`
	UndecidingTimeout uint64      `json:"undecidingTimeout" yaml:"undecidingTimeout"`
	MinApproval       CurveConfig `json:"minApproval" yaml:"minApproval"`
	MinSupport        CurveConfig `json:"minSupport" yaml:"minSupport"`
}

type ReferendaConfig struct {
	Tracks            []TrackConfig `json:"tracks" yaml:"tracks" ignored:"true"`
	AdminTrack        uint16        `json:"adminTrack" yaml:"adminTrack"`
	MemberCountTrack  uint16        `json:"memberCountTrack" yaml:"memberCountTrack"`
	AssetWeighedTrack uint16        `json:"assetWeighedTrack" yaml:"assetWeighedTrack"`
	RankWeighedTrack  uint16        `json:"rankWeighedTrack" yaml:"rankWeighedTrack"`
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// strictMajority is the smallest representable ratio above one half.
var strictMajority = d("0.500000001")

func GetDefaultReferendaConfig() *ReferendaConfig {
	return &ReferendaConfig{
		Tracks: []TrackConfig{
			{
				Id:          0,
				Name:        "admin",
				MaxDeciding: 100,
				MinApproval: CurveConfig{Kind: LinearDecreasing, Length: d("1"), Floor: d("0"), Ceil: d("0")},
				MinSupport:  CurveConfig{Kind: LinearDecreasing, Length: d("1"), Floor: d("0"), Ceil: d("0")},
			},
			{
				Id:                1,
				Name:              "member-count",
				MaxDeciding:       10,
				PreparePeriod:     1,
				DecisionPeriod:    20,
				ConfirmPeriod:     2,
				UndecidingTimeout: 40,
				MinApproval:       CurveConfig{Kind: LinearDecreasing, Length: d("1"), Floor: strictMajority, Ceil: d("1")},
				MinSupport:        CurveConfig{Kind: LinearDecreasing, Length: d("1"), Floor: d("0"), Ceil: d("0.5")},
			},
			{
				Id:                2,
				Name:              "asset-weighed",
				MaxDeciding:       10,
				PreparePeriod:     1,
				DecisionPeriod:    40,
				ConfirmPeriod:     4,
				UndecidingTimeout: 80,
				MinApproval:       CurveConfig{Kind: Reciprocal, Factor: d("0.222222224"), XOffset: d("0.333333335"), YOffset: d("0.333333332")},
				MinSupport:        CurveConfig{Kind: LinearDecreasing, Length: d("1"), Floor: d("0"), Ceil: d("0.5")},
			},
			{
				Id:                3,
				Name:              "rank-weighed",
				MaxDeciding:       10,
				PreparePeriod:     1,
				DecisionPeriod:    20,
				ConfirmPeriod:     2,
				UndecidingTimeout: 40,
				MinApproval:       CurveConfig{Kind: SteppedDecreasing, Begin: d("1"), End: strictMajority, Step: d("0.1"), Period: d("0.1")},
				MinSupport:        CurveConfig{Kind: LinearDecreasing, Length: d("1"), Floor: d("0"), Ceil: d("0.5")},
			},
		},
		AdminTrack:        0,
		MemberCountTrack:  1,
		AssetWeighedTrack: 2,
		RankWeighedTrack:  3,
	}
}

func (c *ReferendaConfig) Track(id uint16) (*TrackConfig, bool) {
	for i := range c.Tracks {
		if c.Tracks[i].Id == id {
			return &c.Tracks[i], true
		}
	}
	return nil, false
}

func (c *ReferendaConfig) Validate() error {
	seen := make(map[uint16]struct{})
	for _, t := range c.Tracks {
		if _, ok := seen[t.Id]; ok {
			return errors.Errorf("duplicate track %d", t.Id)
		}
		seen[t.Id] = struct{}{}
		if t.MaxDeciding == 0 {
			return errors.Errorf("track %d: MaxDeciding must be positive", t.Id)
		}
	}
	for _, id := range []uint16{c.AdminTrack, c.MemberCountTrack, c.AssetWeighedTrack, c.RankWeighedTrack} {
		if _, ok := seen[id]; !ok {
			return errors.Errorf("unknown track %d", id)
		}
	}
	return nil
}
