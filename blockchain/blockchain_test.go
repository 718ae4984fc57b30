package blockchain

import (
	"math/big"
	"testing"

	"github.com/idena-network/idena-communities/blockchain/attachments"
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/common/eventbus"
	"github.com/idena-network/idena-communities/communities"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/appstate"
	"github.com/idena-network/idena-communities/events"
	"github.com/idena-network/idena-communities/referenda"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/tendermint/tm-db"
)

var (
	alice = common.AccountId{0xA1}
	bob   = common.AccountId{0xB0}
	carol = common.AccountId{0xC0}
	dave  = common.AccountId{0xD0}
)

func testGenesis() *config.GenesisConf {
	return &config.GenesisConf{
		Alloc: []config.GenesisAllocation{
			{Account: alice.String(), Balance: 1000},
			{Account: bob.String(), Balance: 100},
			{Account: carol.String(), Balance: 20},
		},
		Communities: []config.GenesisCommunity{
			{Id: 1, Admin: bob.String(), Active: true},
			{Id: 2, Admin: carol.String()},
		},
	}
}

func signed(who common.AccountId, call []byte) *types.Extrinsic {
	return types.NewExtrinsic(types.SignedOrigin(who), call)
}

func rootExt(call []byte) *types.Extrinsic {
	return types.NewExtrinsic(types.RootOrigin(), call)
}

func balance(appState *appstate.AppState, who common.AccountId) int64 {
	return appState.Ledger.FreeBalance(who).Int64()
}

// checkInvariants asserts the properties every committed block must keep.
func checkInvariants(t *testing.T, appState *appstate.AppState, cids ...types.CommunityId) {
	c := appState.Communities
	cfg := config.GetDefaultCommunitiesConfig()
	for _, cid := range cids {
		if !c.Exists(cid) {
			continue
		}
		require.True(t, appState.Ledger.FreeBalance(c.CommunityAccount(cid)).Cmp(appState.Ledger.MinimumBalance()) >= 0)

		seen := make(map[types.MembershipId]struct{})
		for _, id := range c.MembershipIds(cid) {
			_, dup := seen[id]
			require.False(t, dup)
			seen[id] = struct{}{}
			require.True(t, id.Index < c.NextMembershipIndex(cid))
		}
		for _, who := range c.MembersOf(cid) {
			rank, ok := c.RankOf(cid, who)
			require.True(t, ok)
			require.True(t, rank <= types.Rank(100))
		}
		require.True(t, len(c.Proposals(cid)) <= int(cfg.MaxProposals))
	}
}

func TestBlockchain_Genesis(t *testing.T) {
	chain, appState, _, _ := NewTestBlockchain(testGenesis())

	require.Equal(t, GenesisHeight, chain.Head.Height)
	require.Equal(t, appState.State.Root(), chain.Head.StateRoot)
	genesis := chain.GetBlockByHeight(GenesisHeight)
	require.NotNil(t, genesis)
	require.Equal(t, chain.Head.Hash(), genesis.Hash())
	require.True(t, genesis.IsEmpty())

	require.Equal(t, int64(1000), balance(appState, alice))
	require.Equal(t, int64(20), balance(appState, carol))

	info, ok := appState.Communities.Info(1)
	require.True(t, ok)
	require.Equal(t, communities.Active, info.State)
	info, ok = appState.Communities.Info(2)
	require.True(t, ok)
	require.Equal(t, communities.Awaiting, info.State)
	strategy, _ := appState.Communities.Strategy(2)
	require.Equal(t, communities.AdminBased{Admin: carol}, strategy)

	checkInvariants(t, appState, 1, 2)
}

func TestBlockchain_InvalidGenesis(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.GenesisConf = &config.GenesisConf{
		Communities: []config.GenesisCommunity{{Id: 1, Admin: "0xzz"}},
	}
	appState, err := appstate.NewAppState(db.NewMemDB(), cfg)
	require.NoError(t, err)
	chain := NewBlockchain(cfg, db.NewMemDB(), nil, appState, eventbus.New())
	require.Error(t, chain.InitializeChain())
}

func TestBlockchain_AdminProposalDispatchedNextBlock(t *testing.T) {
	chain, appState, _, bus := NewTestBlockchain(testGenesis())
	account := appState.Communities.CommunityAccount(1)

	var enqueued []*events.ProposalEnqueuedEvent
	require.NoError(t, bus.Subscribe(events.ProposalEnqueuedEventID, func(e eventbus.Event) {
		enqueued = append(enqueued, e.(*events.ProposalEnqueuedEvent))
	}))

	voice := types.RawOrigin{Community: 1, BodyPart: types.Voice()}
	block, err := chain.GenerateBlock([]*types.Extrinsic{
		signed(alice, attachments.CreateTransferCall(account, big.NewInt(50))),
		signed(bob, attachments.CreateProposeCall(1, voice, attachments.CreateTransferCall(carol, big.NewInt(1)))),
	})
	require.NoError(t, err)
	require.Len(t, block.Extrinsics, 2)
	require.Len(t, enqueued, 1)
	require.Equal(t, types.CommunityId(1), enqueued[0].Community)

	agenda := appState.Scheduler.Agenda(3)
	require.Len(t, agenda, 1)
	require.Equal(t, types.CommunityOrigin(voice), agenda[0].Origin)
	require.Equal(t, int64(20), balance(appState, carol))

	chain.GenerateEmptyBlocks(1)
	require.Equal(t, int64(21), balance(appState, carol))
	require.Equal(t, int64(59), balance(appState, account))
	require.Empty(t, appState.Scheduler.Agenda(3))
	checkInvariants(t, appState, 1, 2)
}

func TestBlockchain_MemberCountPoll(t *testing.T) {
	chain, appState, _, _ := NewTestBlockchain(testGenesis())
	c := appState.Communities
	account := c.CommunityAccount(1)
	members := []common.AccountId{{1}, {2}, {3}, {4}, {5}}

	setup := []*types.Extrinsic{signed(alice, attachments.CreateTransferCall(account, big.NewInt(50)))}
	for _, who := range members {
		setup = append(setup, rootExt(attachments.CreateMemberCall(attachments.AddMember, 1, who)))
	}
	setup = append(setup, rootExt(attachments.CreateSetStrategyCall(1, communities.MemberCountPoll{MinMembers: 3})))
	chain.GenerateBlocks(1, setup...)
	require.Equal(t, uint32(5), c.MemberCount(1))

	origin := types.RawOrigin{Community: 1, BodyPart: types.Members(3)}
	payout := attachments.CreateTransferCall(carol, big.NewInt(1))
	chain.GenerateBlocks(1, signed(members[0], attachments.CreateProposeCall(1, origin, payout)))
	poll, ok := c.ProposalPoll(1)
	require.True(t, ok)

	var votes []*types.Extrinsic
	for _, who := range members[:3] {
		votes = append(votes, signed(who, attachments.CreateVoteCall(poll, true, nil)))
	}
	chain.GenerateBlocks(1, votes...)
	require.Equal(t, uint32(3), appState.Referenda.TallyOf(poll).BareAyes)

	chain.MineUntil(chain.Head.Height + 10)
	info, _ := appState.Referenda.Info(poll)
	require.Equal(t, referenda.StatusApproved, info.Status)
	require.Equal(t, int64(21), balance(appState, carol))

	chain.GenerateBlocks(1, signed(members[1], attachments.CreateProposeCall(1, origin, payout)))
	second, ok := c.ProposalPoll(1)
	require.True(t, ok)
	require.NotEqual(t, poll, second)
	chain.GenerateBlocks(1,
		signed(members[0], attachments.CreateVoteCall(second, true, nil)),
		signed(members[1], attachments.CreateVoteCall(second, true, nil)),
	)
	chain.MineUntil(chain.Head.Height + 40)
	info, _ = appState.Referenda.Info(second)
	require.Equal(t, referenda.StatusRejected, info.Status)
	require.Equal(t, int64(21), balance(appState, carol))
	checkInvariants(t, appState, 1, 2)
}

func TestBlockchain_FailedAndInvalidExtrinsics(t *testing.T) {
	chain, appState, _, bus := NewTestBlockchain(testGenesis())

	var receipts []*events.ExtrinsicAppliedEvent
	require.NoError(t, bus.Subscribe(events.ExtrinsicAppliedEventID, func(e eventbus.Event) {
		receipts = append(receipts, e.(*events.ExtrinsicAppliedEvent))
	}))
	var blockEvents []eventbus.Event
	require.NoError(t, bus.Subscribe(events.AddBlockEventID, func(e eventbus.Event) {
		blockEvents = e.(*events.NewBlockEvent).Events
	}))

	failing := signed(dave, attachments.CreateMemberCall(attachments.AddMember, 1, carol))
	unsigned := types.NewExtrinsic(types.NoneOrigin(), attachments.CreateTransferCall(dave, big.NewInt(1)))
	transfer := signed(alice, attachments.CreateTransferCall(dave, big.NewInt(30)))

	block, err := chain.GenerateBlock([]*types.Extrinsic{failing, unsigned, transfer})
	require.NoError(t, err)
	require.Equal(t, types.Extrinsics{failing, transfer}, block.Extrinsics)
	require.Equal(t, types.DeriveSha(block.Extrinsics), block.Header.ExtrinsicsRoot)

	require.Len(t, receipts, 2)
	require.False(t, receipts[0].Success)
	require.Equal(t, communities.ErrBadOrigin.Error(), receipts[0].Error)
	require.True(t, receipts[1].Success)
	require.Equal(t, 1, receipts[1].Index)

	index := chain.GetExtrinsicIndex(failing.Hash())
	require.NotNil(t, index)
	require.False(t, index.Success)
	require.Equal(t, block.Hash(), index.BlockHash)
	require.True(t, chain.GetExtrinsicIndex(transfer.Hash()).Success)
	require.Nil(t, chain.GetExtrinsicIndex(unsigned.Hash()))

	require.False(t, appState.Communities.IsMember(1, carol))
	require.Equal(t, int64(30), balance(appState, dave))
	for _, e := range blockEvents {
		_, added := e.(*events.MemberAddedEvent)
		require.False(t, added)
	}

	stored := chain.GetBlockByHeight(block.Height())
	require.Equal(t, block.Hash(), stored.Hash())
	require.Len(t, stored.Extrinsics, 2)
	require.Equal(t, transfer.Hash(), stored.Extrinsics[1].Hash())
}

func TestBlockchain_SponsoredExtrinsics(t *testing.T) {
	chain, appState, _, _ := NewTestBlockchain(testGenesis())
	cfg := chain.Config().Blockchain

	// both payments reach the existential deposit so the unfunded dest is created
	pay := attachments.CreateTransferCall(dave, big.NewInt(10))
	weight, err := appState.Runtime.CallWeight(pay)
	require.NoError(t, err)
	charge := weight + types.Weight(cfg.BaseExtrinsic)

	chain.GenerateBlocks(1,
		rootExt(attachments.CreateMemberCall(attachments.AddMember, 1, alice)),
		rootExt(attachments.CreateSetGasTankCall(1, alice, communities.GasTank{Capacity: charge + charge/2, Periodicity: 10})),
	)

	first := types.NewSponsoredExtrinsic(types.SignedOrigin(alice), pay, 1)
	second := types.NewSponsoredExtrinsic(types.SignedOrigin(alice), attachments.CreateTransferCall(dave, big.NewInt(12)), 1)
	block, err := chain.GenerateBlock([]*types.Extrinsic{first, second})
	require.NoError(t, err)
	require.Equal(t, types.Extrinsics{first}, block.Extrinsics)
	require.Equal(t, communities.GasUsage{Used: charge, Since: block.Height()}, appState.Communities.GasUsage(1, alice))
	require.Equal(t, int64(10), balance(appState, dave))
	require.Equal(t, int64(990), balance(appState, alice))

	chain.MineUntil(block.Height() + 9)
	block, err = chain.GenerateBlock([]*types.Extrinsic{second})
	require.NoError(t, err)
	require.Len(t, block.Extrinsics, 1)
	require.Equal(t, int64(22), balance(appState, dave))
	require.Equal(t, int64(978), balance(appState, alice))
}

func TestBlockchain_AddBlockReplaysDeterministically(t *testing.T) {
	producer, _, _, _ := NewTestBlockchain(testGenesis())
	follower, followerState, _, _ := NewTestBlockchain(testGenesis())
	require.Equal(t, producer.Head.Hash(), follower.Head.Hash())

	account := followerState.Communities.CommunityAccount(1)
	voice := types.RawOrigin{Community: 1, BodyPart: types.Voice()}
	second, err := producer.GenerateBlock([]*types.Extrinsic{
		signed(alice, attachments.CreateTransferCall(account, big.NewInt(50))),
		signed(bob, attachments.CreateProposeCall(1, voice, attachments.CreateTransferCall(carol, big.NewInt(1)))),
		signed(dave, attachments.CreateTransferCall(alice, big.NewInt(1))),
	})
	require.NoError(t, err)
	third, err := producer.GenerateEmptyBlock()
	require.NoError(t, err)

	header := *second.Header
	header.StateRoot = common.Hash{0x1}
	tampered := &types.Block{Header: &header, Extrinsics: second.Extrinsics}
	require.Equal(t, InvalidStateRoot, errors.Cause(follower.AddBlock(tampered)))
	require.Equal(t, GenesisHeight, follower.Head.Height)

	require.Equal(t, ParentHashIsInvalid, follower.AddBlock(third))
	header = *second.Header
	header.ExtrinsicsRoot = common.Hash{}
	require.Equal(t, InvalidExtrinsicsRoot, follower.AddBlock(&types.Block{Header: &header, Extrinsics: second.Extrinsics}))

	require.NoError(t, follower.AddBlock(second))
	require.NoError(t, follower.AddBlock(third))
	require.Equal(t, producer.Head.Hash(), follower.Head.Hash())
	require.Equal(t, int64(21), balance(followerState, carol))
	require.False(t, follower.GetExtrinsicIndex(second.Extrinsics[2].Hash()).Success)
}

func TestBlockchain_AddBlockRejectsInvalidExtrinsic(t *testing.T) {
	producer, _, _, _ := NewTestBlockchain(testGenesis())
	follower, _, _, _ := NewTestBlockchain(testGenesis())

	block, err := producer.GenerateEmptyBlock()
	require.NoError(t, err)
	unsigned := types.NewExtrinsic(types.NoneOrigin(), attachments.CreateTransferCall(dave, big.NewInt(1)))
	header := *block.Header
	header.ExtrinsicsRoot = types.DeriveSha(types.Extrinsics{unsigned})
	require.Error(t, follower.AddBlock(&types.Block{Header: &header, Extrinsics: types.Extrinsics{unsigned}}))
	require.Equal(t, GenesisHeight, follower.Head.Height)

	require.NoError(t, follower.AddBlock(block))
}

func TestBlockchain_ResetAndReopen(t *testing.T) {
	chain, appState, _, bus := NewTestBlockchain(testGenesis())
	var reset *events.BlockchainResetEvent
	require.NoError(t, bus.Subscribe(events.BlockchainResetEventID, func(e eventbus.Event) {
		reset = e.(*events.BlockchainResetEvent)
	}))

	chain.GenerateBlocks(1, signed(alice, attachments.CreateTransferCall(dave, big.NewInt(100))))
	second := chain.Head
	transfer := signed(alice, attachments.CreateTransferCall(dave, big.NewInt(200)))
	chain.GenerateBlocks(1, transfer)
	chain.GenerateEmptyBlocks(2)
	require.Equal(t, uint64(5), chain.Head.Height)
	require.Equal(t, int64(300), balance(appState, dave))

	copied, copiedState := chain.Copy()
	require.Equal(t, chain.Head.Hash(), copied.Head.Hash())
	require.Equal(t, int64(300), balance(copiedState, dave))

	require.Equal(t, InvalidHeight, chain.ResetTo(7))
	require.NoError(t, chain.ResetTo(2))
	require.Equal(t, second.Hash(), chain.Head.Hash())
	require.NotNil(t, reset)
	require.Equal(t, second.Hash(), reset.Header.Hash())
	require.Equal(t, int64(100), balance(appState, dave))
	require.Nil(t, chain.GetBlockByHeight(3))
	require.Nil(t, chain.GetExtrinsicIndex(transfer.Hash()))

	block, err := chain.GenerateEmptyBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(3), block.Height())

	reopened, reopenedState, _, _ := NewTestBlockchainWithConfig(chain.Config(), chain.db)
	require.Equal(t, block.Hash(), reopened.Head.Hash())
	require.Equal(t, int64(100), balance(reopenedState, dave))
	reopened.GenerateEmptyBlocks(1)
	require.Equal(t, uint64(4), reopened.Head.Height)
}

func TestBlockchain_PoolIntegration(t *testing.T) {
	chain, _, pool, _ := NewTestBlockchain(testGenesis())
	transfer := signed(alice, attachments.CreateTransferCall(dave, big.NewInt(5)))
	require.NoError(t, pool.Add(transfer))

	limit := types.Weight(chain.Config().Blockchain.NormalDispatchLimit())
	block, err := chain.GenerateBlock(pool.BuildBlockExtrinsics(limit))
	require.NoError(t, err)
	require.Len(t, block.Extrinsics, 1)
	require.Zero(t, pool.Len())
}
