package communities

import (
	"github.com/idena-network/idena-communities/blockchain/types"
)

// GetOrigin returns the origin the community's strategy acts with.
func (c *Communities) GetOrigin(cid types.CommunityId) (types.RawOrigin, error) {
	strategy, ok := c.Strategy(cid)
	if !ok {
		return types.RawOrigin{}, ErrCommunityDoesNotExist
	}
	return types.RawOrigin{Community: cid, BodyPart: strategy.BodyPart()}, nil
}

// Authorize checks that origin may act for community cid with the required body part.
// Voice is held by the admin of an admin-based community and by the community account.
// Members and Fraction are held only by origins produced from approved referenda.
func (c *Communities) Authorize(origin types.Origin, cid types.CommunityId, required types.BodyPart) error {
	if !c.Exists(cid) {
		return ErrCommunityDoesNotExist
	}
	switch origin.Kind {
	case types.OriginSigned:
		if origin.Signer == c.CommunityAccount(cid) {
			return nil
		}
		if required.Kind != types.BodyVoice {
			return ErrBadOrigin
		}
		if strategy, ok := c.Strategy(cid); ok {
			if admin, ok := strategy.(AdminBased); ok && admin.Admin == origin.Signer {
				return nil
			}
		}
		return ErrBadOrigin
	case types.OriginCommunity:
		raw := origin.Community
		if raw.Community == cid && raw.BodyPart.Satisfies(required) {
			return nil
		}
		return ErrBadOrigin
	case types.OriginRoot, types.OriginNone:
		return ErrBadOrigin
	}
	return ErrBadOrigin
}

func (c *Communities) ensureCommunityOrigin(origin types.Origin, cid types.CommunityId) error {
	required, err := c.GetOrigin(cid)
	if err != nil {
		return err
	}
	return c.Authorize(origin, cid, required.BodyPart)
}

// ensureAdmin admits root or a qualifying origin of an active community.
func (c *Communities) ensureAdmin(origin types.Origin, cid types.CommunityId) error {
	if _, err := c.community(cid); err != nil {
		return err
	}
	if origin.IsRoot() {
		return nil
	}
	if err := c.ensureCommunityOrigin(origin, cid); err != nil {
		return err
	}
	return c.EnsureActive(cid)
}

// ensureTreasuryOrigin admits the community origin or the community account itself, never root.
func (c *Communities) ensureTreasuryOrigin(origin types.Origin, cid types.CommunityId) error {
	if _, err := c.community(cid); err != nil {
		return err
	}
	switch origin.Kind {
	case types.OriginCommunity:
		if err := c.ensureCommunityOrigin(origin, cid); err != nil {
			return err
		}
	case types.OriginSigned:
		if origin.Signer != c.CommunityAccount(cid) {
			return ErrBadOrigin
		}
	default:
		return ErrBadOrigin
	}
	return c.EnsureActive(cid)
}
