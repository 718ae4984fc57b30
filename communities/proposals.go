package communities

import (
	"math/big"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/events"
	"github.com/pkg/errors"
)

func depositReason(cid types.CommunityId, index uint32) []byte {
	return append(append(append([]byte{}, depositHoldPrefix...), cid.Bytes()...), indexKey(index)...)
}

func (c *Communities) Proposals(cid types.CommunityId) []Proposal {
	queue, _ := c.proposals.Get(c.state, cid.Bytes())
	return queue
}

// ProposalPoll returns the referendum deciding the front of the community's queue.
func (c *Communities) ProposalPoll(cid types.CommunityId) (types.PollIndex, bool) {
	return c.proposalPoll.Get(c.state, cid.Bytes())
}

func (c *Communities) putQueue(cid types.CommunityId, queue []Proposal) error {
	if len(queue) == 0 {
		c.proposals.Remove(c.state, cid.Bytes())
		return nil
	}
	return c.proposals.Put(c.state, cid.Bytes(), queue)
}

// ThawMatcher reports whether an encoded call thaws community cid.
type ThawMatcher func(call []byte, cid types.CommunityId) bool

// SetThawMatcher lets the call decoder tell thaw proposals apart, so a frozen community
// can still govern its own thaw.
func (c *Communities) SetThawMatcher(m ThawMatcher) {
	c.isThaw = m
}

func (c *Communities) thaws(cid types.CommunityId, call []byte) bool {
	return c.isThaw != nil && c.isThaw(call, cid)
}

func (c *Communities) boundThaws(cid types.CommunityId, call types.BoundedCall) bool {
	data, err := c.calls.Peek(call)
	return err == nil && c.thaws(cid, data)
}

// ensureGoverning admits an active community, or a frozen one when thaw holds.
func (c *Communities) ensureGoverning(cid types.CommunityId, thaw func() bool) error {
	info, err := c.community(cid)
	if err != nil {
		return err
	}
	if info.State == Active || info.State == Frozen && thaw() {
		return nil
	}
	return ErrCommunityNotActive
}

// polledThaw reports whether poll decides a thaw proposal of cid.
func (c *Communities) polledThaw(cid types.CommunityId, poll types.PollIndex) bool {
	current, ok := c.ProposalPoll(cid)
	if !ok || current != poll {
		return false
	}
	queue := c.Proposals(cid)
	return len(queue) > 0 && c.boundThaws(cid, queue[0].Call)
}

func (c *Communities) canPropose(cid types.CommunityId, who common.AccountId) bool {
	if c.IsMember(cid, who) {
		return true
	}
	strategy, _ := c.Strategy(cid)
	admin, ok := strategy.(AdminBased)
	return ok && admin.Admin == who
}

// Propose enqueues call to be dispatched with callOrigin once a referendum approves it.
// A frozen community may only propose its own thaw, which goes ahead of every unpolled proposal.
func (c *Communities) Propose(origin types.Origin, cid types.CommunityId, callOrigin types.RawOrigin, call []byte) error {
	frozen := false
	if err := c.ensureGoverning(cid, func() bool {
		frozen = c.thaws(cid, call)
		return frozen
	}); err != nil {
		return err
	}
	proposer, ok := origin.AsSigned()
	if !ok {
		return ErrBadOrigin
	}
	if !c.canPropose(cid, proposer) {
		return ErrNotMember
	}
	expected, err := c.GetOrigin(cid)
	if err != nil {
		return err
	}
	if callOrigin != expected {
		return ErrBadOrigin
	}
	queue := c.Proposals(cid)
	if uint32(len(queue)) >= c.cfg.MaxProposals {
		return ErrExceededMaxProposals
	}
	bound, err := c.calls.Bind(call)
	if err != nil {
		return errors.Wrap(ErrCannotEncodeCall, err.Error())
	}
	index, _ := c.nextProposal.Get(c.state, cid.Bytes())
	if c.cfg.ProposalDeposit > 0 {
		deposit := new(big.Int).SetUint64(c.cfg.ProposalDeposit)
		if err := c.ledger.Hold(depositReason(cid, index), proposer, deposit); err != nil {
			c.calls.Drop(bound)
			return errors.Wrap(err, "hold proposal deposit")
		}
	}
	if err := c.nextProposal.Put(c.state, cid.Bytes(), index+1); err != nil {
		return err
	}
	proposal := Proposal{
		Index:    index,
		Proposer: proposer,
		Call:     bound,
		Origin:   callOrigin,
	}
	if frozen {
		queue = insertProposal(queue, c.unpolledFront(cid), proposal)
	} else {
		queue = append(queue, proposal)
	}
	if err := c.putQueue(cid, queue); err != nil {
		return err
	}
	c.state.AddEvent(&events.ProposalEnqueuedEvent{Community: cid, Index: index})
	c.log.Debug("Proposal enqueued", "community", cid, "index", index, "proposer", proposer.String())
	return nil
}

// unpolledFront is the first queue position no referendum decides yet.
func (c *Communities) unpolledFront(cid types.CommunityId) int {
	if _, polled := c.ProposalPoll(cid); polled {
		return 1
	}
	return 0
}

func insertProposal(queue []Proposal, at int, p Proposal) []Proposal {
	if at > len(queue) {
		at = len(queue)
	}
	result := make([]Proposal, 0, len(queue)+1)
	result = append(result, queue[:at]...)
	result = append(result, p)
	return append(result, queue[at:]...)
}

// Dequeue removes the front proposal of the community's queue.
func (c *Communities) Dequeue(cid types.CommunityId) (Proposal, error) {
	queue := c.Proposals(cid)
	if len(queue) == 0 {
		return Proposal{}, ErrCannotDequeueProposal
	}
	front := queue[0]
	if err := c.putQueue(cid, queue[1:]); err != nil {
		return Proposal{}, err
	}
	c.proposalPoll.Remove(c.state, cid.Bytes())
	return front, nil
}

// ServiceQueues opens a referendum for every active community whose queue front is not polled yet,
// and for a frozen community whose front is its thaw. Admin-based communities approve it at once.
func (c *Communities) ServiceQueues(now uint64) {
	var pending []types.CommunityId
	c.proposals.Iterate(c.state, func(key []byte, queue []Proposal) bool {
		if len(key) == 2 && len(queue) > 0 {
			pending = append(pending, types.CommunityId(uint16(key[0])|uint16(key[1])<<8))
		}
		return false
	})
	for _, cid := range pending {
		if _, polled := c.ProposalPoll(cid); polled {
			continue
		}
		if c.ensureGoverning(cid, func() bool { return c.boundThaws(cid, c.Proposals(cid)[0].Call) }) != nil {
			continue
		}
		if err := c.submitFront(cid, now); err != nil {
			c.log.Warn("cannot submit proposal", "community", cid, "err", err)
		}
	}
}

func (c *Communities) submitFront(cid types.CommunityId, now uint64) error {
	strategy, ok := c.Strategy(cid)
	if !ok {
		return ErrCommunityDoesNotExist
	}
	front := c.Proposals(cid)[0]
	c.state.BeginTx()
	poll, err := c.referenda.Submit(cid, c.TrackFor(strategy), front.Index, now)
	if err != nil {
		c.state.RollbackTx()
		return err
	}
	if err := c.proposalPoll.Put(c.state, cid.Bytes(), poll); err != nil {
		c.state.RollbackTx()
		return err
	}
	if err := c.state.CommitTx(); err != nil {
		return err
	}
	if _, admin := strategy.(AdminBased); admin {
		return c.referenda.Approve(poll, now)
	}
	return nil
}
