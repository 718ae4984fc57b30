package communities

import (
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/events"
)

func (c *Communities) SetGasTank(origin types.Origin, cid types.CommunityId, who common.AccountId, tank GasTank) error {
	if err := c.ensureAdmin(origin, cid); err != nil {
		return err
	}
	info, ok := c.MembershipOf(cid, who)
	if !ok {
		return ErrNotMember
	}
	info.HasGasTank = tank.Capacity > 0
	info.GasTank = tank
	if err := c.membershipInfo.Put(c.state, cid.Bytes(), indexKey(info.Id.Index), info); err != nil {
		return err
	}
	c.gasUsage.Remove(c.state, cid.Bytes(), who.Bytes())
	c.state.AddEvent(&events.GasTankSetEvent{Community: cid, Who: who, Capacity: tank.Capacity, Periodicity: tank.Periodicity})
	return nil
}

// GasUsage returns the sponsored weight used in the current period.
func (c *Communities) GasUsage(cid types.CommunityId, who common.AccountId) GasUsage {
	usage, _ := c.gasUsage.Get(c.state, cid.Bytes(), who.Bytes())
	return usage
}

// ChargeSponsored takes weight from the member's gas tank, refilling it once a period has passed.
func (c *Communities) ChargeSponsored(cid types.CommunityId, who common.AccountId, weight types.Weight, now uint64) error {
	if err := c.EnsureActive(cid); err != nil {
		return err
	}
	info, ok := c.MembershipOf(cid, who)
	if !ok || info.Expired(now) {
		return ErrNotMember
	}
	if !info.HasGasTank {
		return ErrSponsorshipExhausted
	}
	usage, ok := c.gasUsage.Get(c.state, cid.Bytes(), who.Bytes())
	if !ok || now >= usage.Since+info.GasTank.Periodicity {
		usage = GasUsage{Since: now}
	}
	if weight > info.GasTank.Capacity || usage.Used > info.GasTank.Capacity-weight {
		return ErrSponsorshipExhausted
	}
	usage.Used += weight
	return c.gasUsage.Put(c.state, cid.Bytes(), who.Bytes(), usage)
}
