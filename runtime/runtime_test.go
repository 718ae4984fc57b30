package runtime

import (
	"math/big"
	"testing"

	"github.com/idena-network/idena-communities/blockchain/attachments"
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/callstore"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/communities"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/state"
	"github.com/idena-network/idena-communities/ledger"
	"github.com/idena-network/idena-communities/referenda"
	"github.com/idena-network/idena-communities/scheduler"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"
)

var (
	alice = common.AccountId{0xA1}
	bob   = common.AccountId{0xB0}
	dave  = common.AccountId{0xD0}
)

func newTestRuntime(t *testing.T) (*Runtime, *ledger.Ledger, *scheduler.Scheduler) {
	s, err := state.NewLazy(dbm.NewMemDB())
	require.NoError(t, err)
	cfg := config.GetDefaultConfig()
	l := ledger.New(s, &config.LedgerConfig{ExistentialDeposit: 10})
	calls := callstore.New(s, cfg.Communities)
	sched := scheduler.New(s, calls, cfg.Scheduler)
	ref, err := referenda.New(s, cfg.Referenda)
	require.NoError(t, err)
	c, err := communities.New(s, l, calls, sched, ref, cfg.Communities, cfg.Referenda)
	require.NoError(t, err)
	return New(l, c, sched, cfg.Blockchain), l, sched
}

func TestCallWeights_FitExtrinsicCeiling(t *testing.T) {
	r, _, _ := newTestRuntime(t)
	ceiling := types.Weight(config.GetDefaultBlockchainConfig().ExtrinsicWeightCeiling())
	maxCall := make([]byte, config.GetDefaultCommunitiesConfig().MaxCallLen)

	calls := attachments.AllCalls()
	require.Len(t, calls, len(callWeights))
	for _, id := range calls {
		call := append([]byte{id.Module, id.Index}, maxCall...)
		weight, err := r.CallWeight(call)
		require.NoError(t, err, id.String())
		require.True(t, weight > 0, id.String())
		require.True(t, weight <= ceiling, "%v weighs %d over %d", id, weight, ceiling)
	}
}

func TestDispatch_Errors(t *testing.T) {
	r, _, _ := newTestRuntime(t)

	require.Equal(t, attachments.ErrShortCall, r.Dispatch(types.RootOrigin(), []byte{1}))

	err := r.Dispatch(types.RootOrigin(), []byte{9, 9})
	require.Equal(t, ErrUnknownCall, errors.Cause(err))
	_, err = r.CallWeight([]byte{1, 200})
	require.Equal(t, ErrUnknownCall, errors.Cause(err))

	err = r.Dispatch(types.RootOrigin(), attachments.CreateTransferCall(bob, big.NewInt(1)))
	require.Equal(t, ErrBadOrigin, err)

	require.Error(t, r.Dispatch(types.RootOrigin(), []byte{attachments.CommunitiesModule, attachments.Create.Index, 1}))
}

func TestDispatch_CommunityCalls(t *testing.T) {
	r, l, _ := newTestRuntime(t)
	root := types.RootOrigin()

	require.NoError(t, r.Dispatch(root, attachments.CreateCommunityCall(bob, 1)))
	require.NoError(t, r.Dispatch(root, attachments.CreateCommunityActionCall(attachments.Activate, 1)))
	require.NoError(t, r.Dispatch(types.SignedOrigin(bob), attachments.CreateMemberCall(attachments.AddMember, 1, alice)))
	require.NoError(t, r.Dispatch(types.SignedOrigin(bob), attachments.CreateMemberCall(attachments.Promote, 1, alice)))
	require.NoError(t, r.Dispatch(types.SignedOrigin(bob), attachments.CreateSetMetadataCall(1, communities.Metadata{
		Name:      []byte("Riverside"),
		Locations: []uint32{7, 9},
	})))

	c := r.Communities()
	rank, ok := c.RankOf(1, alice)
	require.True(t, ok)
	require.Equal(t, types.Rank(1), rank)
	metadata, ok := c.Metadata(1)
	require.True(t, ok)
	require.Equal(t, []byte("Riverside"), metadata.Name)
	require.Equal(t, []uint32{7, 9}, metadata.Locations)

	require.NoError(t, r.Dispatch(root, attachments.CreateSetStrategyCall(1, communities.RankWeighedPoll{MinApproval: types.NewFraction(2, 3)})))
	strategy, ok := c.Strategy(1)
	require.True(t, ok)
	require.Equal(t, communities.RankWeighedPoll{MinApproval: types.NewFraction(2, 3)}, strategy)

	require.NoError(t, l.Mint(alice, big.NewInt(50)))
	require.NoError(t, r.Dispatch(types.SignedOrigin(alice), attachments.CreateTransferCall(dave, big.NewInt(20))))
	require.Equal(t, int64(20), l.FreeBalance(dave).Int64())
	err := r.Dispatch(types.SignedOrigin(alice), attachments.CreateTransferKeepAliveCall(dave, big.NewInt(25)))
	require.Equal(t, ledger.ErrWouldKill, errors.Cause(err))
}

func TestScheduledBalanceCallPaysFromCommunityAccount(t *testing.T) {
	r, l, sched := newTestRuntime(t)
	root := types.RootOrigin()
	require.NoError(t, r.Dispatch(root, attachments.CreateCommunityCall(bob, 1)))
	require.NoError(t, r.Dispatch(root, attachments.CreateCommunityActionCall(attachments.Activate, 1)))
	account := r.Communities().CommunityAccount(1)
	require.NoError(t, l.Mint(account, big.NewInt(100)))

	voice := types.RawOrigin{Community: 1, BodyPart: types.Voice()}
	payout := attachments.CreateTransferKeepAliveCall(dave, big.NewInt(30))
	require.NoError(t, r.Dispatch(types.SignedOrigin(bob), attachments.CreateProposeCall(1, voice, payout)))

	r.OnInitialize(1)
	r.OnFinalize(1)
	require.Len(t, sched.Agenda(2), 1)

	used := r.OnInitialize(2)
	require.True(t, used > 0)
	require.Empty(t, sched.Agenda(2))
	require.Equal(t, int64(30), l.FreeBalance(dave).Int64())
	require.Equal(t, int64(80), l.FreeBalance(account).Int64())
}

func TestChargeSponsored(t *testing.T) {
	r, _, _ := newTestRuntime(t)
	root := types.RootOrigin()
	require.NoError(t, r.Dispatch(root, attachments.CreateCommunityCall(bob, 1)))
	require.NoError(t, r.Dispatch(root, attachments.CreateCommunityActionCall(attachments.Activate, 1)))
	require.NoError(t, r.Dispatch(root, attachments.CreateMemberCall(attachments.AddMember, 1, alice)))
	require.NoError(t, r.Dispatch(root, attachments.CreateSetGasTankCall(1, alice, communities.GasTank{Capacity: 100, Periodicity: 5})))

	sponsor := types.Sponsorship{Enabled: true, Community: 1}
	r.OnInitialize(3)
	require.NoError(t, r.ChargeSponsored(types.SignedOrigin(alice), sponsor, 60))
	require.Equal(t, communities.ErrSponsorshipExhausted, r.ChargeSponsored(types.SignedOrigin(alice), sponsor, 60))
	require.Equal(t, communities.ErrNotMember, r.ChargeSponsored(types.SignedOrigin(dave), sponsor, 1))
	require.Equal(t, ErrBadOrigin, r.ChargeSponsored(root, sponsor, 1))

	r.OnInitialize(8)
	require.NoError(t, r.ChargeSponsored(types.SignedOrigin(alice), sponsor, 60))
}

func TestFrozenCommunityThawsByReferendum(t *testing.T) {
	r, _, sched := newTestRuntime(t)
	root := types.RootOrigin()
	require.NoError(t, r.Dispatch(root, attachments.CreateCommunityCall(bob, 1)))
	require.NoError(t, r.Dispatch(root, attachments.CreateCommunityActionCall(attachments.Activate, 1)))
	voters := []common.AccountId{alice, dave}
	for _, who := range voters {
		require.NoError(t, r.Dispatch(root, attachments.CreateMemberCall(attachments.AddMember, 1, who)))
	}
	require.NoError(t, r.Dispatch(root, attachments.CreateSetStrategyCall(1, communities.MemberCountPoll{MinMembers: 1})))
	c := r.Communities()
	origin, err := c.GetOrigin(1)
	require.NoError(t, err)

	height := uint64(1)
	enact := func(call []byte) {
		require.NoError(t, r.Dispatch(types.SignedOrigin(alice), attachments.CreateProposeCall(1, origin, call)))
		r.OnFinalize(height)
		poll, ok := c.ProposalPoll(1)
		require.True(t, ok)
		for _, who := range voters {
			require.NoError(t, r.Dispatch(types.SignedOrigin(who), attachments.CreateVoteCall(poll, true, nil)))
		}
		for i := 0; i < 4; i++ {
			height++
			r.OnInitialize(height)
		}
		require.Empty(t, sched.Agenda(height))
	}

	enact(attachments.CreateCommunityActionCall(attachments.Freeze, 1))
	info, _ := c.Info(1)
	require.Equal(t, communities.Frozen, info.State)

	payout := attachments.CreateTransferCall(bob, big.NewInt(1))
	err = r.Dispatch(types.SignedOrigin(alice), attachments.CreateProposeCall(1, origin, payout))
	require.Equal(t, communities.ErrCommunityNotActive, err)
	err = r.Dispatch(types.SignedOrigin(alice), attachments.CreateProposeCall(1, origin, attachments.CreateCommunityActionCall(attachments.Thaw, 2)))
	require.Equal(t, communities.ErrCommunityNotActive, err)

	enact(attachments.CreateCommunityActionCall(attachments.Thaw, 1))
	info, _ = c.Info(1)
	require.Equal(t, communities.Active, info.State)
	require.Empty(t, c.Proposals(1))
}

func TestIsThawCall(t *testing.T) {
	require.True(t, isThawCall(attachments.CreateCommunityActionCall(attachments.Thaw, 3), 3))
	require.False(t, isThawCall(attachments.CreateCommunityActionCall(attachments.Thaw, 3), 4))
	require.False(t, isThawCall(attachments.CreateCommunityActionCall(attachments.Freeze, 3), 3))
	require.False(t, isThawCall([]byte{attachments.CommunitiesModule}, 3))
	require.False(t, isThawCall([]byte{attachments.CommunitiesModule, attachments.Thaw.Index}, 3))
}
