package communities

import (
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/events"
)

func (c *Communities) registrar(origin types.Origin) (common.AccountId, error) {
	who, ok := origin.AsSigned()
	if !ok || !c.IsRegistrar(who) {
		return common.AccountId{}, ErrBadOrigin
	}
	return who, nil
}

// HasChallenge reports whether any registrar challenges the community.
func (c *Communities) HasChallenge(cid types.CommunityId) bool {
	found := false
	c.challenges.IteratePrefix(c.state, cid.Bytes(), func(key2 []byte, value bool) bool {
		found = true
		return true
	})
	return found
}

// RegisterChallenge asks an awaiting community to prove its contribution.
func (c *Communities) RegisterChallenge(origin types.Origin, cid types.CommunityId) error {
	registrar, err := c.registrar(origin)
	if err != nil {
		return err
	}
	info, err := c.community(cid)
	if err != nil {
		return err
	}
	if info.State != Awaiting {
		return ErrInvalidStateTransition
	}
	if c.HasChallenge(cid) {
		return ErrChallengeAlreadyActiveForEntity
	}
	if err := c.challenges.Put(c.state, cid.Bytes(), registrar.Bytes(), true); err != nil {
		return err
	}
	c.state.AddEvent(&events.ChallengeRegisteredEvent{Community: cid, Registrar: registrar})
	return nil
}

// ValidateChallenge closes the registrar's challenge on an awaiting community: a pass activates it,
// a failure moves it to FailedChallenge.
func (c *Communities) ValidateChallenge(origin types.Origin, cid types.CommunityId, passed bool) error {
	registrar, err := c.registrar(origin)
	if err != nil {
		return err
	}
	info, err := c.community(cid)
	if err != nil {
		return err
	}
	if info.State != Awaiting {
		return ErrInvalidStateTransition
	}
	if !c.challenges.Contains(c.state, cid.Bytes(), registrar.Bytes()) {
		return ErrNoActiveChallenge
	}
	c.challenges.Remove(c.state, cid.Bytes(), registrar.Bytes())
	c.state.AddEvent(&events.ChallengeValidatedEvent{Community: cid, Registrar: registrar, Passed: passed})
	if passed {
		c.setState(cid, info, Active)
		return nil
	}
	c.setState(cid, info, FailedChallenge)
	c.state.AddEvent(&events.ChallengeFailedEvent{Community: cid})
	return nil
}
