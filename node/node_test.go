package node

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/idena-network/idena-communities/blockchain/attachments"
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/common/eventbus"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/events"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"
	"go.uber.org/goleak"
)

var (
	alice = common.AccountId{0xA1}
	bob   = common.AccountId{0xB0}
)

func ignoredGoroutines() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreAnyFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
		goleak.IgnoreAnyFunction("github.com/rcrowley/go-metrics.(*meterArbiter).tick"),
	}
}

func testConfig() *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Blockchain.BlockInterval = 10 * time.Millisecond
	cfg.Indexer.Enabled = true
	cfg.GenesisConf = &config.GenesisConf{
		Alloc: []config.GenesisAllocation{
			{Account: alice.String(), Balance: 1000},
		},
		Communities: []config.GenesisCommunity{
			{Id: 1, Admin: bob.String(), Active: true},
		},
	}
	return cfg
}

func TestNode_ProducesBlocks(t *testing.T) {
	defer goleak.VerifyNone(t, ignoredGoroutines()...)

	node, err := NewNodeWithDb(testConfig(), dbm.NewMemDB())
	require.NoError(t, err)

	heights := make(chan uint64, 64)
	require.NoError(t, node.Bus().Subscribe(events.AddBlockEventID, func(e eventbus.Event) {
		select {
		case heights <- e.(*events.NewBlockEvent).Block.Height():
		default:
		}
	}))

	require.NoError(t, node.Start(context.Background()))
	require.NoError(t, node.SubmitExtrinsic(types.NewExtrinsic(types.SignedOrigin(alice), attachments.CreateTransferCall(bob, big.NewInt(30)))))
	require.Error(t, node.SubmitExtrinsic(types.NewExtrinsic(types.NoneOrigin(), attachments.CreateTransferCall(bob, big.NewInt(30)))))

	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case height := <-heights:
			done = height >= 4
		case <-timeout:
			t.Fatal("no blocks produced")
		}
	}
	require.NoError(t, node.Stop())

	require.True(t, node.Blockchain().GetHead().Height >= 4)
	require.Equal(t, int64(30), node.AppState().Ledger.FreeBalance(bob).Int64())
	require.Equal(t, int64(970), node.AppState().Ledger.FreeBalance(alice).Int64())
}

func TestNode_StopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t, ignoredGoroutines()...)

	cfg := testConfig()
	cfg.Indexer.Enabled = false
	node, err := NewNodeWithDb(cfg, dbm.NewMemDB())
	require.NoError(t, err)
	require.Nil(t, node.Indexer())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, node.Start(ctx))
	cancel()
	node.Wait()
	require.NoError(t, node.Stop())
}

func TestNode_IndexesGenesis(t *testing.T) {
	defer goleak.VerifyNone(t, ignoredGoroutines()...)

	cfg := testConfig()
	cfg.Blockchain.BlockInterval = time.Hour
	node, err := NewNodeWithDb(cfg, dbm.NewMemDB())
	require.NoError(t, err)
	require.NoError(t, node.Start(context.Background()))

	count, err := node.Indexer().CountEvents(1, events.CommunityCreatedEventID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	height, err := node.Indexer().LastHeight()
	require.NoError(t, err)
	require.Equal(t, uint64(1), height)

	require.NoError(t, node.Stop())
}
