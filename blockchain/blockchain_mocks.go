package blockchain

import (
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/common/eventbus"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/appstate"
	"github.com/idena-network/idena-communities/core/mempool"
	"github.com/tendermint/tm-db"
)

func NewTestBlockchainWithConfig(cfg *config.Config, db db.DB) (*TestBlockchain, *appstate.AppState, *mempool.ExtrinsicPool, eventbus.Bus) {
	bus := eventbus.New()
	appState, err := appstate.NewAppState(db, cfg)
	if err != nil {
		panic(err)
	}
	pool := mempool.NewExtrinsicPool(appState, cfg.Blockchain)
	chain := NewBlockchain(cfg, db, pool, appState, bus)
	if err := chain.InitializeChain(); err != nil {
		panic(err)
	}
	return &TestBlockchain{db, chain}, appState, pool, bus
}

func NewTestBlockchain(genesis *config.GenesisConf) (*TestBlockchain, *appstate.AppState, *mempool.ExtrinsicPool, eventbus.Bus) {
	cfg := config.GetDefaultConfig()
	if genesis != nil {
		cfg.GenesisConf = genesis
	}
	return NewTestBlockchainWithConfig(cfg, db.NewMemDB())
}

type TestBlockchain struct {
	db db.DB
	*Blockchain
}

// Copy opens a second chain over a snapshot of the database.
func (chain *TestBlockchain) Copy() (*TestBlockchain, *appstate.AppState) {
	copyDb := db.NewMemDB()
	if err := common.CopyDb(chain.db, copyDb); err != nil {
		panic(err)
	}
	result, appState, _, _ := NewTestBlockchainWithConfig(chain.config, copyDb)
	return result, appState
}

func (chain *TestBlockchain) GenerateBlocks(count int, exts ...*types.Extrinsic) *TestBlockchain {
	for i := 0; i < count; i++ {
		var blockExts []*types.Extrinsic
		if i == 0 {
			blockExts = exts
		}
		if _, err := chain.GenerateBlock(blockExts); err != nil {
			panic(err)
		}
	}
	return chain
}

func (chain *TestBlockchain) GenerateEmptyBlocks(count int) *TestBlockchain {
	return chain.GenerateBlocks(count)
}

// MineUntil produces empty blocks until the head reaches height.
func (chain *TestBlockchain) MineUntil(height uint64) *TestBlockchain {
	for chain.Head.Height < height {
		chain.GenerateEmptyBlocks(1)
	}
	return chain
}
