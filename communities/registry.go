package communities

import (
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/events"
	"github.com/idena-network/idena-communities/ledger"
	"github.com/pkg/errors"
)

var accountPrefix = []byte("modl")

// CommunityAccount derives the treasury account of a community:
// "modl" ++ pallet id ++ SCALE(cid), zero padded to the account length.
func (c *Communities) CommunityAccount(cid types.CommunityId) common.AccountId {
	var id common.AccountId
	seed := append(append(append([]byte{}, accountPrefix...), c.palletId...), cid.Bytes()...)
	copy(id[:], seed)
	return id
}

func (c *Communities) Info(cid types.CommunityId) (Community, bool) {
	return c.info.Get(c.state, cid.Bytes())
}

func (c *Communities) Exists(cid types.CommunityId) bool {
	return c.info.Contains(c.state, cid.Bytes())
}

func (c *Communities) Metadata(cid types.CommunityId) (Metadata, bool) {
	return c.metadata.Get(c.state, cid.Bytes())
}

func (c *Communities) community(cid types.CommunityId) (Community, error) {
	info, ok := c.Info(cid)
	if !ok {
		return info, ErrCommunityDoesNotExist
	}
	return info, nil
}

func (c *Communities) EnsureActive(cid types.CommunityId) error {
	info, err := c.community(cid)
	if err != nil {
		return err
	}
	if info.State != Active {
		return ErrCommunityNotActive
	}
	return nil
}

// Create registers community cid administered by admin. Root endows the community account,
// a signed caller pays the minimum balance into it.
func (c *Communities) Create(origin types.Origin, admin common.AccountId, cid types.CommunityId) error {
	if c.Exists(cid) {
		return ErrCommunityAlreadyExists
	}
	account := c.CommunityAccount(cid)
	deposit := c.ledger.MinimumBalance()
	switch origin.Kind {
	case types.OriginRoot:
		if err := c.ledger.Mint(account, deposit); err != nil {
			return errors.Wrap(err, "endow community account")
		}
	case types.OriginSigned:
		if err := c.ledger.Transfer(origin.Signer, account, deposit, ledger.Expendable); err != nil {
			return errors.Wrap(err, "pay community deposit")
		}
	default:
		return ErrBadOrigin
	}
	if err := c.ledger.SetFreeze(communityFreezeId, account, deposit); err != nil {
		return err
	}
	if err := c.info.Put(c.state, cid.Bytes(), Community{State: Awaiting}); err != nil {
		return err
	}
	if err := c.strategies.Put(c.state, cid.Bytes(), GovernanceStrategy{AdminBased{Admin: admin}}); err != nil {
		return err
	}
	c.state.AddEvent(&events.CommunityCreatedEvent{Community: cid, Origin: origin})
	c.log.Info("Community created", "community", cid, "origin", origin.String(), "admin", admin.String())
	return nil
}

func (c *Communities) SetMetadata(origin types.Origin, cid types.CommunityId, metadata Metadata) error {
	if err := c.ensureAdmin(origin, cid); err != nil {
		return err
	}
	if err := metadata.Validate(); err != nil {
		return err
	}
	if err := c.metadata.Put(c.state, cid.Bytes(), metadata); err != nil {
		return err
	}
	c.state.AddEvent(&events.MetadataSetEvent{Community: cid})
	return nil
}

func (c *Communities) setState(cid types.CommunityId, info Community, newState State) {
	info.State = newState
	c.info.Put(c.state, cid.Bytes(), info)
	c.state.AddEvent(&events.CommunityStateChangedEvent{Community: cid, State: newState.String()})
	c.log.Info("Community state changed", "community", cid, "state", newState.String())
}

func (c *Communities) transition(cid types.CommunityId, from, to State) error {
	info, err := c.community(cid)
	if err != nil {
		return err
	}
	if info.State != from {
		return ErrInvalidStateTransition
	}
	c.setState(cid, info, to)
	return nil
}

// Activate moves an awaiting community to active without a challenge.
func (c *Communities) Activate(origin types.Origin, cid types.CommunityId) error {
	if !origin.IsRoot() {
		return ErrBadOrigin
	}
	return c.transition(cid, Awaiting, Active)
}

// Freeze suspends an active community on behalf of its own governance.
func (c *Communities) Freeze(origin types.Origin, cid types.CommunityId) error {
	if err := c.ensureCommunityOrigin(origin, cid); err != nil {
		return err
	}
	return c.transition(cid, Active, Frozen)
}

func (c *Communities) Thaw(origin types.Origin, cid types.CommunityId) error {
	if !origin.IsRoot() {
		if err := c.ensureCommunityOrigin(origin, cid); err != nil {
			return err
		}
	}
	return c.transition(cid, Frozen, Active)
}

func (c *Communities) Block(origin types.Origin, cid types.CommunityId) error {
	if !origin.IsRoot() {
		return ErrBadOrigin
	}
	info, err := c.community(cid)
	if err != nil {
		return err
	}
	if info.State == Blocked {
		return ErrInvalidStateTransition
	}
	c.setState(cid, info, Blocked)
	return nil
}

// Unblock lets root reinstate a blocked community or one that failed its challenge.
func (c *Communities) Unblock(origin types.Origin, cid types.CommunityId) error {
	if !origin.IsRoot() {
		return ErrBadOrigin
	}
	info, err := c.community(cid)
	if err != nil {
		return err
	}
	if info.State != Blocked && info.State != FailedChallenge {
		return ErrInvalidStateTransition
	}
	c.setState(cid, info, Active)
	return nil
}

// SetSufficientAsset elects the asset members may pay fees with.
func (c *Communities) SetSufficientAsset(origin types.Origin, cid types.CommunityId, asset types.AssetId) error {
	if err := c.ensureTreasuryOrigin(origin, cid); err != nil {
		return err
	}
	if !c.ledger.AssetExists(asset) {
		return ErrUnknownAsset
	}
	info, _ := c.Info(cid)
	info.HasSufficientAsset = true
	info.SufficientAsset = asset
	if err := c.info.Put(c.state, cid.Bytes(), info); err != nil {
		return err
	}
	c.state.AddEvent(&events.SufficientAssetSetEvent{Community: cid, Asset: asset})
	return nil
}
