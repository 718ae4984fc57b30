package communities

import (
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/events"
	"github.com/idena-network/idena-communities/referenda"
	"github.com/pkg/errors"
)

// OnConcluded settles the proposal decided by poll: the deposit is returned (or slashed on kill),
// the proposal leaves the queue and, if approved, its call is scheduled for the next block
// under the origin the proposal asked for.
func (c *Communities) OnConcluded(poll types.PollIndex, info referenda.ReferendumInfo) error {
	cid := info.Class
	current, ok := c.ProposalPoll(cid)
	if !ok || current != poll {
		return nil
	}
	proposal, err := c.Dequeue(cid)
	if err != nil {
		return err
	}
	reason := depositReason(cid, proposal.Index)
	if info.Status == referenda.StatusKilled {
		c.ledger.Slash(reason, proposal.Proposer)
	} else {
		c.ledger.Release(reason, proposal.Proposer)
	}
	if info.Status != referenda.StatusApproved {
		c.calls.Drop(proposal.Call)
		return nil
	}
	return c.dispatch(cid, poll, proposal, info.Concluded)
}

func (c *Communities) dispatch(cid types.CommunityId, poll types.PollIndex, proposal Proposal, now uint64) error {
	expected, err := c.GetOrigin(cid)
	if err != nil || proposal.Origin != expected {
		c.calls.Drop(proposal.Call)
		c.log.Warn("proposal origin no longer matches the community strategy", "community", cid, "poll", poll)
		return ErrBadOrigin
	}
	when := now + 1
	if _, err := c.scheduler.Schedule(when, types.CommunityOrigin(proposal.Origin), proposal.Call); err != nil {
		c.calls.Drop(proposal.Call)
		return errors.Wrap(ErrCannotEnqueueDispatch, err.Error())
	}
	c.state.AddEvent(&events.DispatchScheduledEvent{Community: cid, Poll: poll, When: when})
	c.log.Info("Proposal scheduled", "community", cid, "poll", poll, "when", when)
	return nil
}

// Cancel ends an ongoing poll and returns the proposal deposit.
func (c *Communities) Cancel(origin types.Origin, poll types.PollIndex, now uint64) error {
	if !origin.IsRoot() {
		return ErrBadOrigin
	}
	return c.referenda.Cancel(poll, now)
}

// Kill ends an ongoing poll and slashes the proposal deposit.
func (c *Communities) Kill(origin types.Origin, poll types.PollIndex, now uint64) error {
	if !origin.IsRoot() {
		return ErrBadOrigin
	}
	return c.referenda.Kill(poll, now)
}
