package runtime

import (
	"github.com/idena-network/idena-communities/blockchain/attachments"
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/communities"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/ledger"
	"github.com/idena-network/idena-communities/log"
	"github.com/idena-network/idena-communities/referenda"
	"github.com/idena-network/idena-communities/scheduler"
	"github.com/pkg/errors"
)

var (
	ErrUnknownCall = errors.New("unknown call")
	ErrBadOrigin   = errors.New("origin cannot sign this call")
)

// Runtime decodes calls and routes them to the modules. It is the executor of scheduled calls.
type Runtime struct {
	ledger      *ledger.Ledger
	communities *communities.Communities
	referenda   *referenda.Referenda
	scheduler   *scheduler.Scheduler
	cfg         *config.BlockchainConfig
	height      uint64
	log         log.Logger
}

func New(l *ledger.Ledger, c *communities.Communities, sched *scheduler.Scheduler, cfg *config.BlockchainConfig) *Runtime {
	c.SetThawMatcher(isThawCall)
	return &Runtime{
		ledger:      l,
		communities: c,
		referenda:   c.Referenda(),
		scheduler:   sched,
		cfg:         cfg,
		log:         log.New("component", "runtime"),
	}
}

func (r *Runtime) Communities() *communities.Communities {
	return r.communities
}

func (r *Runtime) Height() uint64 {
	return r.height
}

// OnInitialize starts block now: due scheduled calls run first, then referenda advance.
func (r *Runtime) OnInitialize(now uint64) types.Weight {
	r.height = now
	used := r.scheduler.ServiceAgenda(now, types.Weight(r.cfg.OnInitializeBudget), r)
	r.referenda.Nudge(now)
	return used
}

// OnFinalize opens referenda for proposals enqueued during the block.
func (r *Runtime) OnFinalize(now uint64) {
	r.communities.ServiceQueues(now)
}

// CallWeight returns the static weight of an encoded call.
func (r *Runtime) CallWeight(call []byte) (types.Weight, error) {
	id, args, err := attachments.SplitCall(call)
	if err != nil {
		return 0, err
	}
	weight, ok := callWeight(id, args)
	if !ok {
		return 0, errors.Wrap(ErrUnknownCall, id.String())
	}
	return weight, nil
}

// ChargeSponsored bills the weight of a sponsored call to the signer's gas tank.
func (r *Runtime) ChargeSponsored(origin types.Origin, sponsor types.Sponsorship, weight types.Weight) error {
	who, ok := origin.AsSigned()
	if !ok {
		return ErrBadOrigin
	}
	return r.communities.ChargeSponsored(sponsor.Community, who, weight, r.height)
}

// account resolves the account a balance call is paid from. A community origin pays from
// the community account.
func (r *Runtime) account(origin types.Origin) (common.AccountId, error) {
	if who, ok := origin.AsSigned(); ok {
		return who, nil
	}
	if raw, ok := origin.AsCommunity(); ok {
		if err := r.communities.Authorize(origin, raw.Community, raw.BodyPart); err != nil {
			return common.AccountId{}, err
		}
		return r.communities.CommunityAccount(raw.Community), nil
	}
	return common.AccountId{}, ErrBadOrigin
}

// Dispatch executes an encoded call under origin.
func (r *Runtime) Dispatch(origin types.Origin, call []byte) error {
	id, args, err := attachments.SplitCall(call)
	if err != nil {
		return err
	}
	if !attachments.IsKnown(id) {
		return errors.Wrap(ErrUnknownCall, id.String())
	}
	r.log.Trace("Dispatching call", "call", id.String(), "origin", origin.String())
	switch id.Module {
	case attachments.BalancesModule:
		return r.dispatchBalances(origin, id, args)
	case attachments.CommunitiesModule:
		return r.dispatchCommunities(origin, id, args)
	}
	return errors.Wrap(ErrUnknownCall, id.String())
}

func (r *Runtime) dispatchBalances(origin types.Origin, id attachments.CallId, args []byte) error {
	attachment, err := attachments.Parse[attachments.TransferAttachment](args)
	if err != nil {
		return err
	}
	from, err := r.account(origin)
	if err != nil {
		return err
	}
	preservation := ledger.Expendable
	if id == attachments.BalancesTransferKeepAlive {
		preservation = ledger.Preserve
	}
	return r.ledger.Transfer(from, attachment.Dest, attachment.Amount.Big(), preservation)
}

func (r *Runtime) dispatchCommunities(origin types.Origin, id attachments.CallId, args []byte) error {
	c := r.communities
	switch id {
	case attachments.Create:
		a, err := attachments.Parse[attachments.CreateAttachment](args)
		if err != nil {
			return err
		}
		return c.Create(origin, a.Admin, a.Community)
	case attachments.SetMetadata:
		a, err := attachments.Parse[attachments.SetMetadataAttachment](args)
		if err != nil {
			return err
		}
		return c.SetMetadata(origin, a.Community, a.Metadata)
	case attachments.SetStrategy:
		a, err := attachments.Parse[attachments.SetStrategyAttachment](args)
		if err != nil {
			return err
		}
		return c.SetGovernanceStrategy(origin, a.Community, a.Strategy.Strategy)
	case attachments.AddMember, attachments.RemoveMember, attachments.Promote, attachments.Demote:
		a, err := attachments.Parse[attachments.MemberAttachment](args)
		if err != nil {
			return err
		}
		switch id {
		case attachments.AddMember:
			return c.AddMember(origin, a.Community, a.Who)
		case attachments.RemoveMember:
			return c.RemoveMember(origin, a.Community, a.Who)
		case attachments.Promote:
			return c.Promote(origin, a.Community, a.Who)
		default:
			return c.Demote(origin, a.Community, a.Who)
		}
	case attachments.Propose:
		a, err := attachments.Parse[attachments.ProposeAttachment](args)
		if err != nil {
			return err
		}
		return c.Propose(origin, a.Community, a.Origin, a.Call)
	case attachments.Vote:
		a, err := attachments.Parse[attachments.VoteAttachment](args)
		if err != nil {
			return err
		}
		amount := a.Amount.Big()
		if amount.Sign() == 0 {
			amount = nil
		}
		return c.Vote(origin, a.Poll, a.Aye, amount)
	case attachments.RemoveVote, attachments.CancelReferendum, attachments.KillReferendum:
		a, err := attachments.Parse[attachments.PollAttachment](args)
		if err != nil {
			return err
		}
		switch id {
		case attachments.RemoveVote:
			return c.RemoveVote(origin, a.Poll)
		case attachments.CancelReferendum:
			return c.Cancel(origin, a.Poll, r.height)
		default:
			return c.Kill(origin, a.Poll, r.height)
		}
	case attachments.Unlock:
		a, err := attachments.Parse[attachments.UnlockAttachment](args)
		if err != nil {
			return err
		}
		return c.Unlock(origin, a.Asset, a.Who, r.height)
	case attachments.AssetsTransfer:
		a, err := attachments.Parse[attachments.AssetsTransferAttachment](args)
		if err != nil {
			return err
		}
		return c.AssetsTransfer(origin, a.Community, a.Asset, a.Dest, a.Amount.Big())
	case attachments.BalanceTransfer:
		a, err := attachments.Parse[attachments.BalanceTransferAttachment](args)
		if err != nil {
			return err
		}
		return c.BalanceTransfer(origin, a.Community, a.Dest, a.Amount.Big())
	case attachments.Freeze, attachments.Thaw, attachments.Block, attachments.Unblock,
		attachments.Activate, attachments.RegisterChallenge:
		a, err := attachments.Parse[attachments.CommunityAttachment](args)
		if err != nil {
			return err
		}
		return r.communityAction(origin, id, a.Community)
	case attachments.SetGasTank:
		a, err := attachments.Parse[attachments.SetGasTankAttachment](args)
		if err != nil {
			return err
		}
		return c.SetGasTank(origin, a.Community, a.Who, a.Tank)
	case attachments.CreateAsset:
		a, err := attachments.Parse[attachments.CreateAssetAttachment](args)
		if err != nil {
			return err
		}
		return c.CreateAsset(origin, a.Community, a.Asset, a.MinBalance.Big(), a.IsSufficient)
	case attachments.MintAsset:
		a, err := attachments.Parse[attachments.MintAssetAttachment](args)
		if err != nil {
			return err
		}
		return c.MintAsset(origin, a.Community, a.Asset, a.Who, a.Amount.Big())
	case attachments.DestroyAsset:
		a, err := attachments.Parse[attachments.DestroyAssetAttachment](args)
		if err != nil {
			return err
		}
		return c.DestroyAsset(origin, a.Asset)
	case attachments.SetSufficientAsset:
		a, err := attachments.Parse[attachments.SufficientAssetAttachment](args)
		if err != nil {
			return err
		}
		return c.SetSufficientAsset(origin, a.Community, a.Asset)
	case attachments.ValidateChallenge:
		a, err := attachments.Parse[attachments.ValidateChallengeAttachment](args)
		if err != nil {
			return err
		}
		return c.ValidateChallenge(origin, a.Community, a.Passed)
	}
	return errors.Wrap(ErrUnknownCall, id.String())
}

// isThawCall matches an encoded communities.thaw of cid.
func isThawCall(call []byte, cid types.CommunityId) bool {
	id, args, err := attachments.SplitCall(call)
	if err != nil || id != attachments.Thaw {
		return false
	}
	a, err := attachments.Parse[attachments.CommunityAttachment](args)
	return err == nil && a.Community == cid
}

func (r *Runtime) communityAction(origin types.Origin, id attachments.CallId, cid types.CommunityId) error {
	c := r.communities
	switch id {
	case attachments.Freeze:
		return c.Freeze(origin, cid)
	case attachments.Thaw:
		return c.Thaw(origin, cid)
	case attachments.Block:
		return c.Block(origin, cid)
	case attachments.Unblock:
		return c.Unblock(origin, cid)
	case attachments.Activate:
		return c.Activate(origin, cid)
	case attachments.RegisterChallenge:
		return c.RegisterChallenge(origin, cid)
	}
	return errors.Wrap(ErrUnknownCall, id.String())
}
