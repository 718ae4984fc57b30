package communities

import (
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/events"
	"github.com/pkg/errors"
)

// Strategy is one of AdminBased, MemberCountPoll, AssetWeighedPoll or RankWeighedPoll.
type Strategy interface {
	BodyPart() types.BodyPart
	String() string
	isStrategy()
}

type AdminBased struct {
	Admin common.AccountId
}

type MemberCountPoll struct {
	MinMembers uint32
}

type AssetWeighedPoll struct {
	Asset       types.AssetId
	MinApproval types.Fraction
}

type RankWeighedPoll struct {
	MinApproval types.Fraction
}

func (AdminBased) isStrategy()       {}
func (MemberCountPoll) isStrategy()  {}
func (AssetWeighedPoll) isStrategy() {}
func (RankWeighedPoll) isStrategy()  {}

func (s AdminBased) BodyPart() types.BodyPart      { return types.Voice() }
func (s MemberCountPoll) BodyPart() types.BodyPart { return types.Members(s.MinMembers) }
func (s AssetWeighedPoll) BodyPart() types.BodyPart {
	return types.BodyPart{Kind: types.BodyFraction, Fraction: s.MinApproval}
}
func (s RankWeighedPoll) BodyPart() types.BodyPart {
	return types.BodyPart{Kind: types.BodyFraction, Fraction: s.MinApproval}
}

func (s AdminBased) String() string { return "AdminBased(" + s.Admin.String() + ")" }
func (s MemberCountPoll) String() string {
	return fmt.Sprintf("MemberCountPoll{%d}", s.MinMembers)
}
func (s AssetWeighedPoll) String() string {
	return fmt.Sprintf("AssetWeighedPoll{%d, %s}", s.Asset, s.MinApproval)
}
func (s RankWeighedPoll) String() string {
	return fmt.Sprintf("RankWeighedPoll{%s}", s.MinApproval)
}

const (
	adminBasedKind byte = iota
	memberCountPollKind
	assetWeighedPollKind
	rankWeighedPollKind
)

// GovernanceStrategy is the SCALE form of a Strategy.
type GovernanceStrategy struct {
	Strategy
}

func (g GovernanceStrategy) Encode(encoder scale.Encoder) error {
	switch s := g.Strategy.(type) {
	case AdminBased:
		if err := encoder.PushByte(adminBasedKind); err != nil {
			return err
		}
		return encoder.Encode(s.Admin)
	case MemberCountPoll:
		if err := encoder.PushByte(memberCountPollKind); err != nil {
			return err
		}
		return encoder.Encode(s.MinMembers)
	case AssetWeighedPoll:
		if err := encoder.PushByte(assetWeighedPollKind); err != nil {
			return err
		}
		if err := encoder.Encode(s.Asset); err != nil {
			return err
		}
		return encoder.Encode(s.MinApproval)
	case RankWeighedPoll:
		if err := encoder.PushByte(rankWeighedPollKind); err != nil {
			return err
		}
		return encoder.Encode(s.MinApproval)
	}
	return errors.New("empty governance strategy")
}

func (g *GovernanceStrategy) Decode(decoder scale.Decoder) error {
	kind, err := decoder.ReadOneByte()
	if err != nil {
		return err
	}
	switch kind {
	case adminBasedKind:
		var s AdminBased
		err = decoder.Decode(&s.Admin)
		g.Strategy = s
	case memberCountPollKind:
		var s MemberCountPoll
		err = decoder.Decode(&s.MinMembers)
		g.Strategy = s
	case assetWeighedPollKind:
		var s AssetWeighedPoll
		if err = decoder.Decode(&s.Asset); err == nil {
			err = decoder.Decode(&s.MinApproval)
		}
		g.Strategy = s
	case rankWeighedPollKind:
		var s RankWeighedPoll
		err = decoder.Decode(&s.MinApproval)
		g.Strategy = s
	default:
		return errors.Errorf("unknown governance strategy %d", kind)
	}
	return err
}

func validateStrategy(strategy Strategy) error {
	switch s := strategy.(type) {
	case AdminBased:
		return nil
	case MemberCountPoll:
		return nil
	case AssetWeighedPoll:
		if !s.MinApproval.Valid() {
			return ErrInvalidFraction
		}
		return nil
	case RankWeighedPoll:
		if !s.MinApproval.Valid() {
			return ErrInvalidFraction
		}
		return nil
	}
	return errors.New("empty governance strategy")
}

// Strategy returns the community's governance strategy.
func (c *Communities) Strategy(cid types.CommunityId) (Strategy, bool) {
	g, ok := c.strategies.Get(c.state, cid.Bytes())
	if !ok || g.Strategy == nil {
		return nil, false
	}
	return g.Strategy, true
}

func (c *Communities) SetGovernanceStrategy(origin types.Origin, cid types.CommunityId, strategy Strategy) error {
	if err := c.ensureAdmin(origin, cid); err != nil {
		return err
	}
	if err := validateStrategy(strategy); err != nil {
		return err
	}
	if s, ok := strategy.(AssetWeighedPoll); ok && !c.ledger.AssetExists(s.Asset) {
		return ErrUnknownAsset
	}
	if err := c.strategies.Put(c.state, cid.Bytes(), GovernanceStrategy{strategy}); err != nil {
		return err
	}
	c.state.AddEvent(&events.StrategySetEvent{Community: cid, Strategy: strategy.String()})
	c.log.Debug("Governance strategy set", "community", cid, "strategy", strategy.String())
	return nil
}

// TrackFor picks the referenda track a community's polls are decided on.
func (c *Communities) TrackFor(strategy Strategy) uint16 {
	switch strategy.(type) {
	case MemberCountPoll:
		return c.tracks.MemberCountTrack
	case AssetWeighedPoll:
		return c.tracks.AssetWeighedTrack
	case RankWeighedPoll:
		return c.tracks.RankWeighedTrack
	}
	return c.tracks.AdminTrack
}
