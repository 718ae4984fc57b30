package attachments

import (
	"fmt"
	"math/big"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/communities"
	"github.com/pkg/errors"
)

var ErrShortCall = errors.New("call is shorter than its header")

// CallId is the two-byte header of an encoded call: module index, call index.
type CallId struct {
	Module byte
	Index  byte
}

func (id CallId) String() string {
	if name, ok := callNames[id]; ok {
		return name
	}
	return fmt.Sprintf("%d.%d", id.Module, id.Index)
}

const (
	BalancesModule    byte = 0
	CommunitiesModule byte = 1
)

var (
	BalancesTransfer          = CallId{BalancesModule, 0}
	BalancesTransferKeepAlive = CallId{BalancesModule, 1}

	Create             = CallId{CommunitiesModule, 0}
	SetMetadata        = CallId{CommunitiesModule, 1}
	SetStrategy        = CallId{CommunitiesModule, 2}
	AddMember          = CallId{CommunitiesModule, 3}
	RemoveMember       = CallId{CommunitiesModule, 4}
	Promote            = CallId{CommunitiesModule, 5}
	Demote             = CallId{CommunitiesModule, 6}
	Propose            = CallId{CommunitiesModule, 7}
	Vote               = CallId{CommunitiesModule, 8}
	RemoveVote         = CallId{CommunitiesModule, 9}
	Unlock             = CallId{CommunitiesModule, 10}
	AssetsTransfer     = CallId{CommunitiesModule, 11}
	BalanceTransfer    = CallId{CommunitiesModule, 12}
	Freeze             = CallId{CommunitiesModule, 13}
	Thaw               = CallId{CommunitiesModule, 14}
	Block              = CallId{CommunitiesModule, 15}
	Unblock            = CallId{CommunitiesModule, 16}
	Activate           = CallId{CommunitiesModule, 17}
	SetGasTank         = CallId{CommunitiesModule, 18}
	CreateAsset        = CallId{CommunitiesModule, 19}
	MintAsset          = CallId{CommunitiesModule, 20}
	DestroyAsset       = CallId{CommunitiesModule, 21}
	SetSufficientAsset = CallId{CommunitiesModule, 22}
	RegisterChallenge  = CallId{CommunitiesModule, 23}
	ValidateChallenge  = CallId{CommunitiesModule, 24}
	CancelReferendum   = CallId{CommunitiesModule, 25}
	KillReferendum     = CallId{CommunitiesModule, 26}
)

var callNames = map[CallId]string{
	BalancesTransfer:          "balances.transfer",
	BalancesTransferKeepAlive: "balances.transfer_keep_alive",
	Create:                    "communities.create",
	SetMetadata:               "communities.set_metadata",
	SetStrategy:               "communities.set_governance_strategy",
	AddMember:                 "communities.add_member",
	RemoveMember:              "communities.remove_member",
	Promote:                   "communities.promote",
	Demote:                    "communities.demote",
	Propose:                   "communities.propose",
	Vote:                      "communities.vote",
	RemoveVote:                "communities.remove_vote",
	Unlock:                    "communities.unlock",
	AssetsTransfer:            "communities.assets_transfer",
	BalanceTransfer:           "communities.balance_transfer",
	Freeze:                    "communities.freeze",
	Thaw:                      "communities.thaw",
	Block:                     "communities.block",
	Unblock:                   "communities.unblock",
	Activate:                  "communities.activate",
	SetGasTank:                "communities.set_gas_tank",
	CreateAsset:               "communities.create_asset",
	MintAsset:                 "communities.mint_asset",
	DestroyAsset:              "communities.destroy_asset",
	SetSufficientAsset:        "communities.set_sufficient_asset",
	RegisterChallenge:         "communities.register_challenge",
	ValidateChallenge:         "communities.validate_challenge",
	CancelReferendum:          "communities.cancel",
	KillReferendum:            "communities.kill",
}

// AllCalls lists every call the runtime routes.
func AllCalls() []CallId {
	result := make([]CallId, 0, len(callNames))
	for id := range callNames {
		result = append(result, id)
	}
	return result
}

func IsKnown(id CallId) bool {
	_, ok := callNames[id]
	return ok
}

// SplitCall separates the call header from its SCALE-encoded arguments.
func SplitCall(call []byte) (CallId, []byte, error) {
	if len(call) < 2 {
		return CallId{}, nil, ErrShortCall
	}
	return CallId{Module: call[0], Index: call[1]}, call[2:], nil
}

// Parse decodes the arguments of a call into a fresh T.
func Parse[T any](args []byte) (*T, error) {
	var attachment T
	if err := types.Decode(args, &attachment); err != nil {
		return nil, errors.Wrap(err, "cannot decode call arguments")
	}
	return &attachment, nil
}

func encodeCall(id CallId, attachment interface{}) []byte {
	payload, _ := types.Encode(attachment)
	return append([]byte{id.Module, id.Index}, payload...)
}

type TransferAttachment struct {
	Dest   common.AccountId
	Amount types.Balance
}

func CreateTransferCall(dest common.AccountId, amount *big.Int) []byte {
	return encodeCall(BalancesTransfer, TransferAttachment{Dest: dest, Amount: types.NewBalance(amount)})
}

func CreateTransferKeepAliveCall(dest common.AccountId, amount *big.Int) []byte {
	return encodeCall(BalancesTransferKeepAlive, TransferAttachment{Dest: dest, Amount: types.NewBalance(amount)})
}

type CreateAttachment struct {
	Admin     common.AccountId
	Community types.CommunityId
}

func CreateCommunityCall(admin common.AccountId, cid types.CommunityId) []byte {
	return encodeCall(Create, CreateAttachment{Admin: admin, Community: cid})
}

// CommunityAttachment carries the arguments of calls that only name a community.
type CommunityAttachment struct {
	Community types.CommunityId
}

// CreateCommunityActionCall builds freeze, thaw, block, unblock, activate and register_challenge calls.
func CreateCommunityActionCall(id CallId, cid types.CommunityId) []byte {
	return encodeCall(id, CommunityAttachment{Community: cid})
}

type SetMetadataAttachment struct {
	Community types.CommunityId
	Metadata  communities.Metadata
}

func CreateSetMetadataCall(cid types.CommunityId, metadata communities.Metadata) []byte {
	return encodeCall(SetMetadata, SetMetadataAttachment{Community: cid, Metadata: metadata})
}

type SetStrategyAttachment struct {
	Community types.CommunityId
	Strategy  communities.GovernanceStrategy
}

func CreateSetStrategyCall(cid types.CommunityId, strategy communities.Strategy) []byte {
	return encodeCall(SetStrategy, SetStrategyAttachment{Community: cid, Strategy: communities.GovernanceStrategy{Strategy: strategy}})
}

// MemberAttachment carries the arguments of add_member, remove_member, promote and demote.
type MemberAttachment struct {
	Community types.CommunityId
	Who       common.AccountId
}

func CreateMemberCall(id CallId, cid types.CommunityId, who common.AccountId) []byte {
	return encodeCall(id, MemberAttachment{Community: cid, Who: who})
}

type ProposeAttachment struct {
	Community types.CommunityId
	Origin    types.RawOrigin
	Call      []byte
}

func CreateProposeCall(cid types.CommunityId, origin types.RawOrigin, call []byte) []byte {
	return encodeCall(Propose, ProposeAttachment{Community: cid, Origin: origin, Call: call})
}

// VoteAttachment carries a vote. Amount is only read by asset-weighed polls.
type VoteAttachment struct {
	Poll   types.PollIndex
	Aye    bool
	Amount types.Balance
}

func CreateVoteCall(poll types.PollIndex, aye bool, amount *big.Int) []byte {
	return encodeCall(Vote, VoteAttachment{Poll: poll, Aye: aye, Amount: types.NewBalance(amount)})
}

// PollAttachment carries the arguments of remove_vote, cancel and kill.
type PollAttachment struct {
	Poll types.PollIndex
}

func CreatePollCall(id CallId, poll types.PollIndex) []byte {
	return encodeCall(id, PollAttachment{Poll: poll})
}

type UnlockAttachment struct {
	Asset types.AssetId
	Who   common.AccountId
}

func CreateUnlockCall(asset types.AssetId, who common.AccountId) []byte {
	return encodeCall(Unlock, UnlockAttachment{Asset: asset, Who: who})
}

type AssetsTransferAttachment struct {
	Community types.CommunityId
	Asset     types.AssetId
	Dest      common.AccountId
	Amount    types.Balance
}

func CreateAssetsTransferCall(cid types.CommunityId, asset types.AssetId, dest common.AccountId, amount *big.Int) []byte {
	return encodeCall(AssetsTransfer, AssetsTransferAttachment{Community: cid, Asset: asset, Dest: dest, Amount: types.NewBalance(amount)})
}

type BalanceTransferAttachment struct {
	Community types.CommunityId
	Dest      common.AccountId
	Amount    types.Balance
}

func CreateBalanceTransferCall(cid types.CommunityId, dest common.AccountId, amount *big.Int) []byte {
	return encodeCall(BalanceTransfer, BalanceTransferAttachment{Community: cid, Dest: dest, Amount: types.NewBalance(amount)})
}

type SetGasTankAttachment struct {
	Community types.CommunityId
	Who       common.AccountId
	Tank      communities.GasTank
}

func CreateSetGasTankCall(cid types.CommunityId, who common.AccountId, tank communities.GasTank) []byte {
	return encodeCall(SetGasTank, SetGasTankAttachment{Community: cid, Who: who, Tank: tank})
}

type CreateAssetAttachment struct {
	Community    types.CommunityId
	Asset        types.AssetId
	MinBalance   types.Balance
	IsSufficient bool
}

func CreateCreateAssetCall(cid types.CommunityId, asset types.AssetId, minBalance *big.Int, isSufficient bool) []byte {
	return encodeCall(CreateAsset, CreateAssetAttachment{Community: cid, Asset: asset, MinBalance: types.NewBalance(minBalance), IsSufficient: isSufficient})
}

type MintAssetAttachment struct {
	Community types.CommunityId
	Asset     types.AssetId
	Who       common.AccountId
	Amount    types.Balance
}

func CreateMintAssetCall(cid types.CommunityId, asset types.AssetId, who common.AccountId, amount *big.Int) []byte {
	return encodeCall(MintAsset, MintAssetAttachment{Community: cid, Asset: asset, Who: who, Amount: types.NewBalance(amount)})
}

type DestroyAssetAttachment struct {
	Asset types.AssetId
}

func CreateDestroyAssetCall(asset types.AssetId) []byte {
	return encodeCall(DestroyAsset, DestroyAssetAttachment{Asset: asset})
}

type SufficientAssetAttachment struct {
	Community types.CommunityId
	Asset     types.AssetId
}

func CreateSetSufficientAssetCall(cid types.CommunityId, asset types.AssetId) []byte {
	return encodeCall(SetSufficientAsset, SufficientAssetAttachment{Community: cid, Asset: asset})
}

type ValidateChallengeAttachment struct {
	Community types.CommunityId
	Passed    bool
}

func CreateValidateChallengeCall(cid types.CommunityId, passed bool) []byte {
	return encodeCall(ValidateChallenge, ValidateChallengeAttachment{Community: cid, Passed: passed})
}
