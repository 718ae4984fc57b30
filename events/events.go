package events

import (
	"math/big"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/common/eventbus"
)

const (
	AddBlockEventID         = eventbus.EventID("block-add")
	ExtrinsicAppliedEventID = eventbus.EventID("extrinsic-applied")
	BlockchainResetEventID  = eventbus.EventID("chain-reset")

	TransferEventID         = eventbus.EventID("balances-transfer")
	MintedEventID           = eventbus.EventID("balances-minted")
	BurnedEventID           = eventbus.EventID("balances-burned")
	SlashedEventID          = eventbus.EventID("balances-slashed")
	AssetIssuedEventID      = eventbus.EventID("assets-issued")
	AssetBurnedEventID      = eventbus.EventID("assets-burned")
	AssetTransferredEventID = eventbus.EventID("assets-transferred")

	CommunityCreatedEventID      = eventbus.EventID("community-created")
	CommunityStateChangedEventID = eventbus.EventID("community-state-changed")
	MetadataSetEventID           = eventbus.EventID("community-metadata-set")
	StrategySetEventID           = eventbus.EventID("community-strategy-set")
	SufficientAssetSetEventID    = eventbus.EventID("community-sufficient-asset-set")
	MemberAddedEventID           = eventbus.EventID("member-added")
	MemberRemovedEventID         = eventbus.EventID("member-removed")
	RankChangedEventID           = eventbus.EventID("member-rank-changed")
	GasTankSetEventID            = eventbus.EventID("member-gas-tank-set")
	ProposalEnqueuedEventID      = eventbus.EventID("proposal-enqueued")
	VoteCastEventID              = eventbus.EventID("vote-cast")
	VoteRemovedEventID           = eventbus.EventID("vote-removed")
	UnlockedEventID              = eventbus.EventID("vote-unlocked")
	TreasuryTransferEventID      = eventbus.EventID("treasury-transfer")
	AssetCreatedEventID          = eventbus.EventID("community-asset-created")
	AssetDestroyedEventID        = eventbus.EventID("community-asset-destroyed")
	AssetDestroyProgressEventID  = eventbus.EventID("community-asset-destroy-progress")
	ChallengeRegisteredEventID   = eventbus.EventID("challenge-registered")
	ChallengeValidatedEventID    = eventbus.EventID("challenge-validated")
	ChallengeFailedEventID       = eventbus.EventID("challenge-failed")
	DispatchScheduledEventID     = eventbus.EventID("dispatch-scheduled")

	ReferendumSubmittedEventID = eventbus.EventID("referendum-submitted")
	DecisionStartedEventID     = eventbus.EventID("referendum-decision-started")
	ConfirmStartedEventID      = eventbus.EventID("referendum-confirm-started")
	ConfirmAbortedEventID      = eventbus.EventID("referendum-confirm-aborted")
	ReferendumApprovedEventID  = eventbus.EventID("referendum-approved")
	ReferendumRejectedEventID  = eventbus.EventID("referendum-rejected")
	ReferendumTimedOutEventID  = eventbus.EventID("referendum-timed-out")
	ReferendumCancelledEventID = eventbus.EventID("referendum-cancelled")
	ReferendumKilledEventID    = eventbus.EventID("referendum-killed")

	TaskScheduledEventID  = eventbus.EventID("scheduler-scheduled")
	DispatchedEventID     = eventbus.EventID("scheduler-dispatched")
	DispatchFailedEventID = eventbus.EventID("scheduler-dispatch-failed")
	TaskPostponedEventID  = eventbus.EventID("scheduler-postponed")
)

// CommunityEvent is implemented by events that belong to a single community.
type CommunityEvent interface {
	eventbus.Event
	CommunityID() types.CommunityId
}

type NewBlockEvent struct {
	Block  *types.Block
	Events []eventbus.Event
}

func (e *NewBlockEvent) EventID() eventbus.EventID {
	return AddBlockEventID
}

type ExtrinsicAppliedEvent struct {
	Height  uint64
	Index   int
	Hash    common.Hash
	Success bool
	Error   string
}

func (e *ExtrinsicAppliedEvent) EventID() eventbus.EventID {
	return ExtrinsicAppliedEventID
}

type BlockchainResetEvent struct {
	Header *types.Header
}

func (e *BlockchainResetEvent) EventID() eventbus.EventID {
	return BlockchainResetEventID
}

type TransferEvent struct {
	From   common.AccountId
	To     common.AccountId
	Amount *big.Int
}

func (e *TransferEvent) EventID() eventbus.EventID {
	return TransferEventID
}

type MintedEvent struct {
	Who    common.AccountId
	Amount *big.Int
}

func (e *MintedEvent) EventID() eventbus.EventID {
	return MintedEventID
}

type BurnedEvent struct {
	Who    common.AccountId
	Amount *big.Int
}

func (e *BurnedEvent) EventID() eventbus.EventID {
	return BurnedEventID
}

type SlashedEvent struct {
	Who    common.AccountId
	Reason string
	Amount *big.Int
}

func (e *SlashedEvent) EventID() eventbus.EventID {
	return SlashedEventID
}

type AssetIssuedEvent struct {
	Asset  types.AssetId
	Who    common.AccountId
	Amount *big.Int
}

func (e *AssetIssuedEvent) EventID() eventbus.EventID {
	return AssetIssuedEventID
}

type AssetBurnedEvent struct {
	Asset  types.AssetId
	Who    common.AccountId
	Amount *big.Int
}

func (e *AssetBurnedEvent) EventID() eventbus.EventID {
	return AssetBurnedEventID
}

type AssetTransferredEvent struct {
	Asset  types.AssetId
	From   common.AccountId
	To     common.AccountId
	Amount *big.Int
}

func (e *AssetTransferredEvent) EventID() eventbus.EventID {
	return AssetTransferredEventID
}

type CommunityCreatedEvent struct {
	Community types.CommunityId
	Origin    types.Origin
}

func (e *CommunityCreatedEvent) EventID() eventbus.EventID {
	return CommunityCreatedEventID
}

func (e *CommunityCreatedEvent) CommunityID() types.CommunityId {
	return e.Community
}

type CommunityStateChangedEvent struct {
	Community types.CommunityId
	State     string
}

func (e *CommunityStateChangedEvent) EventID() eventbus.EventID {
	return CommunityStateChangedEventID
}

func (e *CommunityStateChangedEvent) CommunityID() types.CommunityId {
	return e.Community
}

type MetadataSetEvent struct {
	Community types.CommunityId
}

func (e *MetadataSetEvent) EventID() eventbus.EventID {
	return MetadataSetEventID
}

func (e *MetadataSetEvent) CommunityID() types.CommunityId {
	return e.Community
}

type StrategySetEvent struct {
	Community types.CommunityId
	Strategy  string
}

func (e *StrategySetEvent) EventID() eventbus.EventID {
	return StrategySetEventID
}

func (e *StrategySetEvent) CommunityID() types.CommunityId {
	return e.Community
}

type SufficientAssetSetEvent struct {
	Community types.CommunityId
	Asset     types.AssetId
}

func (e *SufficientAssetSetEvent) EventID() eventbus.EventID {
	return SufficientAssetSetEventID
}

func (e *SufficientAssetSetEvent) CommunityID() types.CommunityId {
	return e.Community
}

type MemberAddedEvent struct {
	Community  types.CommunityId
	Who        common.AccountId
	Membership types.MembershipId
}

func (e *MemberAddedEvent) EventID() eventbus.EventID {
	return MemberAddedEventID
}

func (e *MemberAddedEvent) CommunityID() types.CommunityId {
	return e.Community
}

type MemberRemovedEvent struct {
	Community types.CommunityId
	Who       common.AccountId
}

func (e *MemberRemovedEvent) EventID() eventbus.EventID {
	return MemberRemovedEventID
}

func (e *MemberRemovedEvent) CommunityID() types.CommunityId {
	return e.Community
}

type RankChangedEvent struct {
	Community types.CommunityId
	Who       common.AccountId
	Rank      types.Rank
}

func (e *RankChangedEvent) EventID() eventbus.EventID {
	return RankChangedEventID
}

func (e *RankChangedEvent) CommunityID() types.CommunityId {
	return e.Community
}

type GasTankSetEvent struct {
	Community   types.CommunityId
	Who         common.AccountId
	Capacity    types.Weight
	Periodicity uint64
}

func (e *GasTankSetEvent) EventID() eventbus.EventID {
	return GasTankSetEventID
}

func (e *GasTankSetEvent) CommunityID() types.CommunityId {
	return e.Community
}

type ProposalEnqueuedEvent struct {
	Community types.CommunityId
	Index     uint32
}

func (e *ProposalEnqueuedEvent) EventID() eventbus.EventID {
	return ProposalEnqueuedEventID
}

func (e *ProposalEnqueuedEvent) CommunityID() types.CommunityId {
	return e.Community
}

type VoteCastEvent struct {
	Community types.CommunityId
	Poll      types.PollIndex
	Who       common.AccountId
	Aye       bool
	Weight    *big.Int
}

func (e *VoteCastEvent) EventID() eventbus.EventID {
	return VoteCastEventID
}

func (e *VoteCastEvent) CommunityID() types.CommunityId {
	return e.Community
}

type VoteRemovedEvent struct {
	Community types.CommunityId
	Poll      types.PollIndex
	Who       common.AccountId
}

func (e *VoteRemovedEvent) EventID() eventbus.EventID {
	return VoteRemovedEventID
}

func (e *VoteRemovedEvent) CommunityID() types.CommunityId {
	return e.Community
}

type UnlockedEvent struct {
	Asset  types.AssetId
	Who    common.AccountId
	Locked *big.Int
}

func (e *UnlockedEvent) EventID() eventbus.EventID {
	return UnlockedEventID
}

type TreasuryTransferEvent struct {
	Community types.CommunityId
	Asset     *types.AssetId
	Dest      common.AccountId
	Amount    *big.Int
}

func (e *TreasuryTransferEvent) EventID() eventbus.EventID {
	return TreasuryTransferEventID
}

func (e *TreasuryTransferEvent) CommunityID() types.CommunityId {
	return e.Community
}

type AssetCreatedEvent struct {
	Community types.CommunityId
	Asset     types.AssetId
}

func (e *AssetCreatedEvent) EventID() eventbus.EventID {
	return AssetCreatedEventID
}

func (e *AssetCreatedEvent) CommunityID() types.CommunityId {
	return e.Community
}

type AssetDestroyedEvent struct {
	Community types.CommunityId
	Asset     types.AssetId
}

func (e *AssetDestroyedEvent) EventID() eventbus.EventID {
	return AssetDestroyedEventID
}

func (e *AssetDestroyedEvent) CommunityID() types.CommunityId {
	return e.Community
}

// AssetDestroyProgressEvent reports the accounts and approvals a partial destroy left behind.
type AssetDestroyProgressEvent struct {
	Community types.CommunityId
	Asset     types.AssetId
	Accounts  uint32
	Approvals uint32
}

func (e *AssetDestroyProgressEvent) EventID() eventbus.EventID {
	return AssetDestroyProgressEventID
}

func (e *AssetDestroyProgressEvent) CommunityID() types.CommunityId {
	return e.Community
}

type ChallengeRegisteredEvent struct {
	Community types.CommunityId
	Registrar common.AccountId
}

func (e *ChallengeRegisteredEvent) EventID() eventbus.EventID {
	return ChallengeRegisteredEventID
}

func (e *ChallengeRegisteredEvent) CommunityID() types.CommunityId {
	return e.Community
}

type ChallengeValidatedEvent struct {
	Community types.CommunityId
	Registrar common.AccountId
	Passed    bool
}

func (e *ChallengeValidatedEvent) EventID() eventbus.EventID {
	return ChallengeValidatedEventID
}

func (e *ChallengeValidatedEvent) CommunityID() types.CommunityId {
	return e.Community
}

type ChallengeFailedEvent struct {
	Community types.CommunityId
}

func (e *ChallengeFailedEvent) EventID() eventbus.EventID {
	return ChallengeFailedEventID
}

func (e *ChallengeFailedEvent) CommunityID() types.CommunityId {
	return e.Community
}

type DispatchScheduledEvent struct {
	Community types.CommunityId
	Poll      types.PollIndex
	When      uint64
}

func (e *DispatchScheduledEvent) EventID() eventbus.EventID {
	return DispatchScheduledEventID
}

func (e *DispatchScheduledEvent) CommunityID() types.CommunityId {
	return e.Community
}

// ReferendumEvent carries the fields shared by every referendum lifecycle event.
type ReferendumEvent struct {
	Community types.CommunityId
	Poll      types.PollIndex
	Height    uint64
}

func (e *ReferendumEvent) CommunityID() types.CommunityId {
	return e.Community
}

type ReferendumSubmittedEvent struct {
	ReferendumEvent
	Track    uint16
	Proposal uint32
}

func (e *ReferendumSubmittedEvent) EventID() eventbus.EventID {
	return ReferendumSubmittedEventID
}

type DecisionStartedEvent struct {
	ReferendumEvent
}

func (e *DecisionStartedEvent) EventID() eventbus.EventID {
	return DecisionStartedEventID
}

type ConfirmStartedEvent struct {
	ReferendumEvent
}

func (e *ConfirmStartedEvent) EventID() eventbus.EventID {
	return ConfirmStartedEventID
}

type ConfirmAbortedEvent struct {
	ReferendumEvent
}

func (e *ConfirmAbortedEvent) EventID() eventbus.EventID {
	return ConfirmAbortedEventID
}

type ReferendumApprovedEvent struct {
	ReferendumEvent
}

func (e *ReferendumApprovedEvent) EventID() eventbus.EventID {
	return ReferendumApprovedEventID
}

type ReferendumRejectedEvent struct {
	ReferendumEvent
	DispatchFailed bool
}

func (e *ReferendumRejectedEvent) EventID() eventbus.EventID {
	return ReferendumRejectedEventID
}

type ReferendumTimedOutEvent struct {
	ReferendumEvent
}

func (e *ReferendumTimedOutEvent) EventID() eventbus.EventID {
	return ReferendumTimedOutEventID
}

type ReferendumCancelledEvent struct {
	ReferendumEvent
}

func (e *ReferendumCancelledEvent) EventID() eventbus.EventID {
	return ReferendumCancelledEventID
}

type ReferendumKilledEvent struct {
	ReferendumEvent
}

func (e *ReferendumKilledEvent) EventID() eventbus.EventID {
	return ReferendumKilledEventID
}

type TaskScheduledEvent struct {
	When   uint64
	Index  uint32
	Origin types.Origin
}

func (e *TaskScheduledEvent) EventID() eventbus.EventID {
	return TaskScheduledEventID
}

type DispatchedEvent struct {
	When   uint64
	Index  uint32
	Origin types.Origin
}

func (e *DispatchedEvent) EventID() eventbus.EventID {
	return DispatchedEventID
}

type DispatchFailedEvent struct {
	When   uint64
	Index  uint32
	Origin types.Origin
	Error  string
}

func (e *DispatchFailedEvent) EventID() eventbus.EventID {
	return DispatchFailedEventID
}

type TaskPostponedEvent struct {
	From  uint64
	To    uint64
	Index uint32
}

func (e *TaskPostponedEvent) EventID() eventbus.EventID {
	return TaskPostponedEventID
}
