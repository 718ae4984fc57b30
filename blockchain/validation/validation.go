package validation

import (
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/appstate"
	"github.com/pkg/errors"
)

const MaxCallSize = 64 * 1024

var (
	EmptyCall        = errors.New("call can't be empty")
	InvalidCall      = errors.New("call is too large")
	UnsignedOrigin   = errors.New("extrinsic must carry an origin")
	CommunityOrigin  = errors.New("community origins are only produced by referenda")
	InvalidSponsor   = errors.New("only signed extrinsics can be sponsored")
	NotSponsorMember = errors.New("signer is not a member of the sponsoring community")
	Overweight       = errors.New("call weight exceeds the extrinsic ceiling")
)

// ValidateExtrinsic runs the stateless checks and the weight check of an extrinsic and
// returns its declared weight.
func ValidateExtrinsic(appState *appstate.AppState, ext *types.Extrinsic, cfg *config.BlockchainConfig) (types.Weight, error) {
	if len(ext.Call) == 0 {
		return 0, EmptyCall
	}
	if len(ext.Call) > MaxCallSize {
		return 0, InvalidCall
	}
	switch ext.Origin.Kind {
	case types.OriginNone:
		return 0, UnsignedOrigin
	case types.OriginCommunity:
		return 0, CommunityOrigin
	}
	if ext.Sponsor.Enabled {
		who, ok := ext.Origin.AsSigned()
		if !ok {
			return 0, InvalidSponsor
		}
		if !appState.Communities.IsMember(ext.Sponsor.Community, who) {
			return 0, NotSponsorMember
		}
	}
	weight, err := appState.Runtime.CallWeight(ext.Call)
	if err != nil {
		return 0, err
	}
	if uint64(weight) > cfg.ExtrinsicWeightCeiling() {
		return 0, errors.Wrapf(Overweight, "%d > %d", weight, cfg.ExtrinsicWeightCeiling())
	}
	return weight, nil
}
