package communities

import (
	"encoding/binary"
	"sort"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/events"
)

func indexKey(index uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, index)
	return b
}

func (c *Communities) MembershipOf(cid types.CommunityId, who common.AccountId) (MembershipInfo, bool) {
	id, ok := c.members.Get(c.state, cid.Bytes(), who.Bytes())
	if !ok {
		return MembershipInfo{}, false
	}
	return c.membershipInfo.Get(c.state, cid.Bytes(), indexKey(id.Index))
}

func (c *Communities) IsMember(cid types.CommunityId, who common.AccountId) bool {
	return c.members.Contains(c.state, cid.Bytes(), who.Bytes())
}

func (c *Communities) RankOf(cid types.CommunityId, who common.AccountId) (types.Rank, bool) {
	info, ok := c.MembershipOf(cid, who)
	if !ok {
		return 0, false
	}
	return info.Rank, true
}

// MembersOf lists members in storage key order, which only changes when membership does.
func (c *Communities) MembersOf(cid types.CommunityId) []common.AccountId {
	var result []common.AccountId
	c.members.IteratePrefix(c.state, cid.Bytes(), func(key2 []byte, value types.MembershipId) bool {
		result = append(result, common.BytesToAccountId(key2))
		return false
	})
	return result
}

// MembershipIds lists the issued memberships of a community ordered by index.
func (c *Communities) MembershipIds(cid types.CommunityId) []types.MembershipId {
	var result []types.MembershipId
	c.members.IteratePrefix(c.state, cid.Bytes(), func(key2 []byte, value types.MembershipId) bool {
		result = append(result, value)
		return false
	})
	sort.Slice(result, func(i, j int) bool {
		return result[i].Index < result[j].Index
	})
	return result
}

func (c *Communities) MemberCount(cid types.CommunityId) uint32 {
	v, _ := c.memberCount.Get(c.state, cid.Bytes())
	return v
}

func (c *Communities) RankSum(cid types.CommunityId) uint32 {
	v, _ := c.rankSum.Get(c.state, cid.Bytes())
	return v
}

func (c *Communities) NextMembershipIndex(cid types.CommunityId) uint32 {
	v, _ := c.nextMembership.Get(c.state, cid.Bytes())
	return v
}

func (c *Communities) updateRankSum(cid types.CommunityId, remove, add types.Rank) {
	sum := c.RankSum(cid) + uint32(add)
	if sum >= uint32(remove) {
		sum -= uint32(remove)
	} else {
		sum = 0
	}
	c.rankSum.Put(c.state, cid.Bytes(), sum)
}

func (c *Communities) AddMember(origin types.Origin, cid types.CommunityId, who common.AccountId) error {
	if err := c.ensureAdmin(origin, cid); err != nil {
		return err
	}
	if c.IsMember(cid, who) {
		return ErrAlreadyMember
	}
	id := types.MembershipId{Community: cid, Index: c.NextMembershipIndex(cid)}
	if err := c.nextMembership.Put(c.state, cid.Bytes(), id.Index+1); err != nil {
		return err
	}
	if err := c.members.Put(c.state, cid.Bytes(), who.Bytes(), id); err != nil {
		return err
	}
	if err := c.membershipInfo.Put(c.state, cid.Bytes(), indexKey(id.Index), MembershipInfo{Id: id, Owner: who}); err != nil {
		return err
	}
	if err := c.memberCount.Put(c.state, cid.Bytes(), c.MemberCount(cid)+1); err != nil {
		return err
	}
	c.state.AddEvent(&events.MemberAddedEvent{Community: cid, Who: who, Membership: id})
	c.log.Debug("Member added", "community", cid, "who", who.String(), "membership", id.String())
	return nil
}

func (c *Communities) RemoveMember(origin types.Origin, cid types.CommunityId, who common.AccountId) error {
	if err := c.ensureAdmin(origin, cid); err != nil {
		return err
	}
	info, ok := c.MembershipOf(cid, who)
	if !ok {
		return ErrNotMember
	}
	c.members.Remove(c.state, cid.Bytes(), who.Bytes())
	c.membershipInfo.Remove(c.state, cid.Bytes(), indexKey(info.Id.Index))
	c.gasUsage.Remove(c.state, cid.Bytes(), who.Bytes())
	if count := c.MemberCount(cid); count > 0 {
		c.memberCount.Put(c.state, cid.Bytes(), count-1)
	}
	c.updateRankSum(cid, info.Rank, 0)
	c.state.AddEvent(&events.MemberRemovedEvent{Community: cid, Who: who})
	c.log.Debug("Member removed", "community", cid, "who", who.String())
	return nil
}

func (c *Communities) Promote(origin types.Origin, cid types.CommunityId, who common.AccountId) error {
	return c.changeRank(origin, cid, who, types.Rank.Promote)
}

func (c *Communities) Demote(origin types.Origin, cid types.CommunityId, who common.AccountId) error {
	return c.changeRank(origin, cid, who, types.Rank.Demote)
}

// changeRank applies f to the member's rank. Reaching a bound again succeeds without changes.
func (c *Communities) changeRank(origin types.Origin, cid types.CommunityId, who common.AccountId, f func(types.Rank) types.Rank) error {
	if err := c.ensureAdmin(origin, cid); err != nil {
		return err
	}
	info, ok := c.MembershipOf(cid, who)
	if !ok {
		return ErrNotMember
	}
	rank := f(info.Rank)
	if rank == info.Rank {
		return nil
	}
	c.updateRankSum(cid, info.Rank, rank)
	info.Rank = rank
	if err := c.membershipInfo.Put(c.state, cid.Bytes(), indexKey(info.Id.Index), info); err != nil {
		return err
	}
	c.state.AddEvent(&events.RankChangedEvent{Community: cid, Who: who, Rank: rank})
	return nil
}
