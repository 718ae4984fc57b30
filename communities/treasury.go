package communities

import (
	"math/big"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/events"
	"github.com/idena-network/idena-communities/ledger"
)

// BalanceTransfer pays native balance out of the community account, keeping it alive.
func (c *Communities) BalanceTransfer(origin types.Origin, cid types.CommunityId, dest common.AccountId, amount *big.Int) error {
	if err := c.ensureTreasuryOrigin(origin, cid); err != nil {
		return err
	}
	if err := c.ledger.Transfer(c.CommunityAccount(cid), dest, amount, ledger.Preserve); err != nil {
		return err
	}
	c.state.AddEvent(&events.TreasuryTransferEvent{Community: cid, Dest: dest, Amount: new(big.Int).Set(amount)})
	return nil
}

// AssetsTransfer pays a community-held asset out of the community account, keeping it alive.
func (c *Communities) AssetsTransfer(origin types.Origin, cid types.CommunityId, asset types.AssetId, dest common.AccountId, amount *big.Int) error {
	if err := c.ensureTreasuryOrigin(origin, cid); err != nil {
		return err
	}
	if !c.ledger.AssetExists(asset) {
		return ErrUnknownAsset
	}
	if err := c.ledger.TransferAsset(asset, c.CommunityAccount(cid), dest, amount, ledger.Preserve); err != nil {
		return err
	}
	id := asset
	c.state.AddEvent(&events.TreasuryTransferEvent{Community: cid, Asset: &id, Dest: dest, Amount: new(big.Int).Set(amount)})
	return nil
}

// CreateAsset issues a new asset owned by the community account.
func (c *Communities) CreateAsset(origin types.Origin, cid types.CommunityId, asset types.AssetId, minBalance *big.Int, isSufficient bool) error {
	if err := c.ensureTreasuryOrigin(origin, cid); err != nil {
		return err
	}
	if err := c.ledger.CreateAsset(asset, c.CommunityAccount(cid), isSufficient, minBalance); err != nil {
		return err
	}
	c.state.AddEvent(&events.AssetCreatedEvent{Community: cid, Asset: asset})
	c.log.Debug("Community asset created", "community", cid, "asset", asset)
	return nil
}

// MintAsset issues amount of a community-owned asset to who.
func (c *Communities) MintAsset(origin types.Origin, cid types.CommunityId, asset types.AssetId, who common.AccountId, amount *big.Int) error {
	if err := c.ensureTreasuryOrigin(origin, cid); err != nil {
		return err
	}
	details, ok := c.ledger.AssetDetails(asset)
	if !ok {
		return ErrUnknownAsset
	}
	if details.Owner != c.CommunityAccount(cid) {
		return ErrBadOrigin
	}
	return c.ledger.MintAsset(asset, who, amount)
}

// controller is the account an origin acts for when handling assets.
func (c *Communities) controller(origin types.Origin) (common.AccountId, bool) {
	switch origin.Kind {
	case types.OriginSigned:
		return origin.Signer, true
	case types.OriginCommunity:
		if c.ensureCommunityOrigin(origin, origin.Community.Community) != nil {
			return common.AccountId{}, false
		}
		return c.CommunityAccount(origin.Community.Community), true
	}
	return common.AccountId{}, false
}

// MaxDestroyItems bounds the accounts and approvals one DestroyAsset call removes.
const MaxDestroyItems = 1_000

// DestroyAsset destroys an asset owned by the caller's community. One call removes at most
// MaxDestroyItems accounts and approvals. While any remain the asset stays in the destroying
// status and the call may be repeated.
func (c *Communities) DestroyAsset(origin types.Origin, asset types.AssetId) error {
	details, ok := c.ledger.AssetDetails(asset)
	if !ok {
		return ErrUnknownAsset
	}
	account, ok := c.controller(origin)
	if !ok {
		return ErrBadOrigin
	}
	if details.Owner != account {
		return ErrCannotDestroyUncontrolledAsset
	}
	if err := c.ledger.StartDestroy(asset); err != nil {
		return err
	}
	var cid types.CommunityId
	if origin.Kind == types.OriginCommunity {
		cid = origin.Community.Community
	}
	limit := c.destroyLimit
	removed, err := c.ledger.DestroyAccounts(asset, limit)
	if err != nil {
		return err
	}
	limit -= removed
	if _, err := c.ledger.DestroyApprovals(asset, limit); err != nil {
		return err
	}
	details, _ = c.ledger.AssetDetails(asset)
	if details.Accounts > 0 || details.Approvals > 0 {
		c.state.AddEvent(&events.AssetDestroyProgressEvent{
			Community: cid,
			Asset:     asset,
			Accounts:  details.Accounts,
			Approvals: details.Approvals,
		})
		c.log.Debug("Community asset destroy continues", "asset", asset, "accounts", details.Accounts, "approvals", details.Approvals)
		return nil
	}
	if err := c.ledger.FinishDestroy(asset); err != nil {
		return err
	}
	c.state.AddEvent(&events.AssetDestroyedEvent{Community: cid, Asset: asset})
	c.log.Debug("Community asset destroyed", "asset", asset)
	return nil
}
