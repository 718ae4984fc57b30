package communities

import (
	"encoding/binary"
	"math/big"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/events"
	"github.com/idena-network/idena-communities/ledger"
	"github.com/idena-network/idena-communities/referenda"
)

func assetKey(asset types.AssetId) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(asset))
	return b
}

// voteWeight is one per member for head-count polls, the rank for rank-weighed polls and
// the locked amount for asset-weighed polls.
func (c *Communities) voteWeight(strategy Strategy, member MembershipInfo, amount *big.Int) (*big.Int, error) {
	switch s := strategy.(type) {
	case AdminBased:
		return big.NewInt(1), nil
	case MemberCountPoll:
		return big.NewInt(1), nil
	case RankWeighedPoll:
		return big.NewInt(int64(member.Rank)), nil
	case AssetWeighedPoll:
		if amount == nil || amount.Sign() <= 0 {
			return nil, ErrInvalidWeight
		}
		if amount.Cmp(c.ledger.AssetBalance(s.Asset, member.Owner)) > 0 {
			return nil, ledger.ErrInsufficientBalance
		}
		return new(big.Int).Set(amount), nil
	}
	return nil, ErrCommunityDoesNotExist
}

// Vote records the caller's vote on a community poll, replacing the previous one.
func (c *Communities) Vote(origin types.Origin, poll types.PollIndex, aye bool, amount *big.Int) error {
	who, ok := origin.AsSigned()
	if !ok {
		return ErrBadOrigin
	}
	info, ok := c.referenda.Info(poll)
	if !ok {
		return referenda.ErrUnknownPoll
	}
	if !info.IsOngoing() {
		return referenda.ErrPollNotOngoing
	}
	cid := info.Class
	if err := c.ensureGoverning(cid, func() bool { return c.polledThaw(cid, poll) }); err != nil {
		return err
	}
	member, ok := c.MembershipOf(cid, who)
	if !ok || member.Expired(info.Submitted) {
		return ErrNotMember
	}
	strategy, _ := c.Strategy(cid)
	weight, err := c.voteWeight(strategy, member, amount)
	if err != nil {
		return err
	}
	if _, _, err := c.referenda.Vote(who, poll, referenda.Vote{Aye: aye, Weight: types.NewBalance(weight)}); err != nil {
		return err
	}
	if s, ok := strategy.(AssetWeighedPoll); ok {
		if err := c.lock(s.Asset, who, poll, weight); err != nil {
			return err
		}
	}
	c.state.AddEvent(&events.VoteCastEvent{Community: cid, Poll: poll, Who: who, Aye: aye, Weight: weight})
	return nil
}

// RemoveVote drops the caller's vote. Any asset lock stays until it expires.
func (c *Communities) RemoveVote(origin types.Origin, poll types.PollIndex) error {
	who, ok := origin.AsSigned()
	if !ok {
		return ErrBadOrigin
	}
	_, existed, err := c.referenda.RemoveVote(who, poll)
	if err != nil || !existed {
		return err
	}
	info, _ := c.referenda.Info(poll)
	c.state.AddEvent(&events.VoteRemovedEvent{Community: info.Class, Poll: poll, Who: who})
	return nil
}

func (c *Communities) VoteLocks(asset types.AssetId, who common.AccountId) []VoteLock {
	locks, _ := c.voteLocks.Get(c.state, who.Bytes(), assetKey(asset))
	return locks
}

func (c *Communities) lock(asset types.AssetId, who common.AccountId, poll types.PollIndex, amount *big.Int) error {
	locks := c.VoteLocks(asset, who)
	replaced := false
	for i := range locks {
		if locks[i].Poll == poll {
			locks[i].Amount = types.NewBalance(amount)
			replaced = true
		}
	}
	if !replaced {
		locks = append(locks, VoteLock{Poll: poll, Amount: types.NewBalance(amount)})
	}
	return c.putLocks(asset, who, locks)
}

func (c *Communities) putLocks(asset types.AssetId, who common.AccountId, locks []VoteLock) error {
	if len(locks) == 0 {
		c.voteLocks.Remove(c.state, who.Bytes(), assetKey(asset))
		c.ledger.ThawAsset(asset, who, voteLockFreezeId)
		return nil
	}
	if err := c.voteLocks.Put(c.state, who.Bytes(), assetKey(asset), locks); err != nil {
		return err
	}
	return c.ledger.SetAssetFreeze(asset, who, voteLockFreezeId, lockedAmount(locks))
}

func lockedAmount(locks []VoteLock) *big.Int {
	result := new(big.Int)
	for _, l := range locks {
		if l.Amount.Big().Cmp(result) > 0 {
			result = l.Amount.Big()
		}
	}
	return result
}

// Unlock drops the locks of who on asset whose polls ended at least the lock period ago.
// Locks of polls that no longer exist are dropped as well.
func (c *Communities) Unlock(origin types.Origin, asset types.AssetId, who common.AccountId, now uint64) error {
	if _, ok := origin.AsSigned(); !ok {
		return ErrBadOrigin
	}
	locks := c.VoteLocks(asset, who)
	kept := locks[:0]
	for _, l := range locks {
		info, ok := c.referenda.Info(l.Poll)
		if !ok {
			continue
		}
		if info.IsOngoing() || now < info.Concluded+c.cfg.VoteLockPeriod {
			kept = append(kept, l)
		}
	}
	if !c.ledger.AssetExists(asset) {
		c.voteLocks.Remove(c.state, who.Bytes(), assetKey(asset))
		return nil
	}
	if err := c.putLocks(asset, who, kept); err != nil {
		return err
	}
	c.state.AddEvent(&events.UnlockedEvent{Asset: asset, Who: who, Locked: lockedAmount(kept)})
	return nil
}

// MaxAyes is the aye weight a poll of community cid could reach.
func (c *Communities) MaxAyes(cid types.CommunityId) *big.Int {
	strategy, ok := c.Strategy(cid)
	if !ok {
		return new(big.Int)
	}
	switch s := strategy.(type) {
	case AdminBased:
		return new(big.Int)
	case MemberCountPoll:
		return new(big.Int).SetUint64(uint64(c.MemberCount(cid)))
	case AssetWeighedPoll:
		return c.ledger.AssetTotalIssuance(s.Asset)
	case RankWeighedPoll:
		return new(big.Int).SetUint64(uint64(c.RankSum(cid)))
	}
	return new(big.Int)
}

// MeetsRequirement checks the tally against the body part the community acts with.
func (c *Communities) MeetsRequirement(cid types.CommunityId, tally referenda.Tally) bool {
	origin, err := c.GetOrigin(cid)
	if err != nil {
		return false
	}
	switch origin.BodyPart.Kind {
	case types.BodyVoice:
		return false
	case types.BodyMembers:
		return tally.BareAyes >= origin.BodyPart.Members
	case types.BodyFraction:
		maxAyes := c.MaxAyes(cid)
		if maxAyes.Sign() <= 0 {
			return false
		}
		f := origin.BodyPart.Fraction
		lhs := new(big.Int).Mul(tally.Ayes.Big(), big.NewInt(int64(f.Denum)))
		rhs := new(big.Int).Mul(maxAyes, big.NewInt(int64(f.Num)))
		return lhs.Cmp(rhs) >= 0
	}
	return false
}
