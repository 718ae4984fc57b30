package node

import (
	"context"
	"sync"
	"time"

	"github.com/idena-network/idena-communities/blockchain"
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common/eventbus"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/appstate"
	"github.com/idena-network/idena-communities/core/mempool"
	"github.com/idena-network/idena-communities/indexer"
	"github.com/idena-network/idena-communities/log"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	dbm "github.com/tendermint/tm-db"
)

const metricsLogInterval = time.Minute

type Node struct {
	config     *config.Config
	db         dbm.DB
	bus        eventbus.Bus
	appState   *appstate.AppState
	txpool     *mempool.ExtrinsicPool
	blockchain *blockchain.Blockchain
	indexer    *indexer.Indexer
	log        log.Logger

	// serializes pool admission with block production, both read the head state
	stateMutex sync.Mutex
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewNode opens the chain database under cfg.DataDir.
func NewNode(cfg *config.Config) (*Node, error) {
	db, err := OpenChainDatabase(cfg.DataDir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open chain database")
	}
	node, err := NewNodeWithDb(cfg, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return node, nil
}

func NewNodeWithDb(cfg *config.Config, db dbm.DB) (*Node, error) {
	bus := eventbus.New()
	appState, err := appstate.NewAppState(db, cfg)
	if err != nil {
		return nil, err
	}
	txpool := mempool.NewExtrinsicPool(appState, cfg.Blockchain)
	chain := blockchain.NewBlockchain(cfg, db, txpool, appState, bus)

	var idx *indexer.Indexer
	if cfg.Indexer.Enabled {
		if idx, err = indexer.Open(cfg.Indexer); err != nil {
			return nil, err
		}
		// subscribed before the chain initializes so the genesis block is indexed
		if err := idx.Subscribe(bus); err != nil {
			idx.Close()
			return nil, err
		}
	}
	return &Node{
		config:     cfg,
		db:         db,
		bus:        bus,
		appState:   appState,
		txpool:     txpool,
		blockchain: chain,
		indexer:    idx,
		log:        log.New("component", "node"),
	}, nil
}

// Start initializes the chain and launches block production. The node runs until ctx is done or Stop is called.
func (node *Node) Start(ctx context.Context) error {
	if err := node.blockchain.InitializeChain(); err != nil {
		return errors.Wrap(err, "failed to initialize chain")
	}
	if err := node.syncIndexer(); err != nil {
		return err
	}
	ctx, node.cancel = context.WithCancel(ctx)

	node.wg.Add(2)
	go node.produceBlocks(ctx)
	go node.logMetrics(ctx)

	head := node.blockchain.GetHead()
	node.log.Info("Node started", "height", head.Height, "root", head.StateRoot.Hex(), "interval", node.config.Blockchain.BlockInterval)
	return nil
}

// syncIndexer drops index rows a previous run wrote above the persisted head.
func (node *Node) syncIndexer() error {
	if node.indexer == nil {
		return nil
	}
	last, err := node.indexer.LastHeight()
	if err != nil {
		return err
	}
	head := node.blockchain.GetHead().Height
	if last > head {
		return node.indexer.Prune(head)
	}
	if last < head {
		node.log.Warn("Index is behind the chain", "indexed", last, "head", head)
	}
	return nil
}

func (node *Node) produceBlocks(ctx context.Context) {
	defer node.wg.Done()
	ticker := time.NewTicker(node.config.Blockchain.BlockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			node.produceBlock()
		}
	}
}

func (node *Node) produceBlock() {
	node.stateMutex.Lock()
	defer node.stateMutex.Unlock()
	exts := node.txpool.BuildBlockExtrinsics(types.Weight(node.config.Blockchain.NormalDispatchLimit()))
	if _, err := node.blockchain.GenerateBlock(exts); err != nil {
		node.log.Error("Failed to produce block", "err", err)
	}
}

func (node *Node) logMetrics(ctx context.Context) {
	defer node.wg.Done()
	ticker := time.NewTicker(metricsLogInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.DefaultRegistry.Each(func(name string, i interface{}) {
				switch m := i.(type) {
				case metrics.Counter:
					node.log.Debug("Metric", "name", name, "count", m.Count())
				case metrics.Gauge:
					node.log.Debug("Metric", "name", name, "value", m.Value())
				case metrics.Timer:
					t := m.Snapshot()
					node.log.Debug("Metric", "name", name, "count", t.Count(), "mean", time.Duration(t.Mean()), "p95", time.Duration(t.Percentile(0.95)))
				}
			})
		}
	}
}

// SubmitExtrinsic validates ext against the head state and queues it for the next block.
func (node *Node) SubmitExtrinsic(ext *types.Extrinsic) error {
	node.stateMutex.Lock()
	defer node.stateMutex.Unlock()
	return node.txpool.Add(ext)
}

func (node *Node) Blockchain() *blockchain.Blockchain {
	return node.blockchain
}

func (node *Node) AppState() *appstate.AppState {
	return node.appState
}

func (node *Node) Bus() eventbus.Bus {
	return node.bus
}

// Indexer is nil unless indexing is enabled.
func (node *Node) Indexer() *indexer.Indexer {
	return node.indexer
}

// Wait blocks until the node goroutines exit.
func (node *Node) Wait() {
	node.wg.Wait()
}

// Stop halts block production and closes the databases.
func (node *Node) Stop() error {
	if node.cancel != nil {
		node.cancel()
	}
	node.wg.Wait()
	var result error
	if node.indexer != nil {
		if err := node.indexer.Close(); err != nil {
			result = err
		}
	}
	if err := node.db.Close(); err != nil && result == nil {
		result = err
	}
	node.log.Info("Node stopped")
	return result
}
