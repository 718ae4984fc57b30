package blockchain

import (
	"math/big"
	"sync"
	"time"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/blockchain/validation"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/common/eventbus"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/appstate"
	"github.com/idena-network/idena-communities/core/mempool"
	"github.com/idena-network/idena-communities/database"
	"github.com/idena-network/idena-communities/events"
	"github.com/idena-network/idena-communities/log"
	"github.com/pkg/errors"
	"github.com/rcrowley/go-metrics"
	dbm "github.com/tendermint/tm-db"
)

const GenesisHeight = uint64(1)

var (
	ParentHashIsInvalid   = errors.New("parentHash is invalid")
	InvalidHeight         = errors.New("block height is invalid")
	InvalidExtrinsicsRoot = errors.New("extrinsics root is invalid")
	InvalidStateRoot      = errors.New("state root is invalid")
	BlockOverweight       = errors.New("extrinsic does not fit into the block")
	BlockInsertionErr     = errors.New("can't insert block")
)

type blockResult struct {
	exts     types.Extrinsics
	dropped  []*types.Extrinsic
	receipts []*events.ExtrinsicAppliedEvent
	events   []eventbus.Event
	weight   types.Weight

	applied  int
	failed   int
	excluded int
}

type Blockchain struct {
	repo     *database.Repo
	db       dbm.DB
	Head     *types.Header
	config   *config.Config
	appState *appstate.AppState
	txpool   *mempool.ExtrinsicPool
	bus      eventbus.Bus
	metrics  *blockMetrics
	lock     sync.Mutex
	log      log.Logger
}

func NewBlockchain(config *config.Config, db dbm.DB, txpool *mempool.ExtrinsicPool, appState *appstate.AppState, bus eventbus.Bus) *Blockchain {
	return &Blockchain{
		repo:     database.NewRepo(db),
		db:       db,
		config:   config,
		appState: appState,
		txpool:   txpool,
		bus:      bus,
		metrics:  newBlockMetrics(metrics.DefaultRegistry),
		log:      log.New("component", "chain"),
	}
}

func (chain *Blockchain) Config() *config.Config {
	return chain.config
}

func (chain *Blockchain) AppState() *appstate.AppState {
	return chain.appState
}

func (chain *Blockchain) GetHead() *types.Header {
	return chain.repo.ReadHead()
}

// InitializeChain loads the stored head or builds the genesis block on an empty database.
func (chain *Blockchain) InitializeChain() error {
	head := chain.GetHead()
	if head != nil {
		chain.setCurrentHead(head)
		if err := chain.appState.Initialize(head.Height); err != nil {
			return errors.Wrap(err, "failed to load state, try to resync from scratch")
		}
		if err := chain.appState.ResetTo(head.Height); err != nil {
			return errors.Wrap(err, "failed to drop states above the head")
		}
		if chain.appState.State.Root() != head.StateRoot {
			return errors.Errorf("state root %v doesn't match head %v", chain.appState.State.Root().Hex(), head.StateRoot.Hex())
		}
	} else {
		if _, err := chain.GenerateGenesis(); err != nil {
			return err
		}
	}
	chain.log.Info("Chain initialized", "block", chain.Head.Hash().Hex(), "height", chain.Head.Height)
	return nil
}

func (chain *Blockchain) setCurrentHead(head *types.Header) {
	chain.Head = head
}

func (chain *Blockchain) generateGenesis() (*types.Block, *blockResult, error) {
	genesis := chain.config.GenesisConf
	if genesis == nil {
		genesis = &config.GenesisConf{}
	}
	for _, alloc := range genesis.Alloc {
		addr, err := common.AccountIdFromString(alloc.Account)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "invalid genesis account %v", alloc.Account)
		}
		if alloc.Balance == 0 {
			continue
		}
		if err := chain.appState.Ledger.Mint(addr, new(big.Int).SetUint64(alloc.Balance)); err != nil {
			return nil, nil, errors.Wrapf(err, "genesis allocation %v", alloc.Account)
		}
	}
	root := types.RootOrigin()
	for _, community := range genesis.Communities {
		admin, err := common.AccountIdFromString(community.Admin)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "invalid admin of genesis community %d", community.Id)
		}
		cid := types.CommunityId(community.Id)
		if err := chain.appState.Communities.Create(root, admin, cid); err != nil {
			return nil, nil, errors.Wrapf(err, "genesis community %d", community.Id)
		}
		if community.Active {
			if err := chain.appState.Communities.Activate(root, cid); err != nil {
				return nil, nil, errors.Wrapf(err, "genesis community %d", community.Id)
			}
		}
	}
	result := &blockResult{events: chain.appState.State.TakeEvents()}
	stateRoot, err := chain.appState.Commit(GenesisHeight)
	if err != nil {
		return nil, nil, err
	}
	return &types.Block{Header: &types.Header{
		Height:    GenesisHeight,
		StateRoot: stateRoot,
	}}, result, nil
}

func (chain *Blockchain) GenerateGenesis() (*types.Block, error) {
	block, result, err := chain.generateGenesis()
	if err != nil {
		chain.appState.Reset()
		return nil, err
	}
	if err := chain.insertBlock(block, nil); err != nil {
		return nil, err
	}
	chain.publish(block, result)
	return block, nil
}

// GenerateBlock executes exts on top of the head and appends the resulting block. Extrinsics that
// fail validation are left out of the block, extrinsics whose dispatch fails are kept with a
// failed receipt.
func (chain *Blockchain) GenerateBlock(exts []*types.Extrinsic) (*types.Block, error) {
	block, result, err := chain.generateBlock(exts)
	if err != nil {
		return nil, err
	}
	chain.publish(block, result)
	return block, nil
}

func (chain *Blockchain) GenerateEmptyBlock() (*types.Block, error) {
	return chain.GenerateBlock(nil)
}

func (chain *Blockchain) generateBlock(exts []*types.Extrinsic) (*types.Block, *blockResult, error) {
	chain.lock.Lock()
	defer chain.lock.Unlock()

	started := time.Now()
	height := chain.Head.Height + 1
	result, err := chain.applyBlockOnState(height, exts, false)
	if err != nil {
		chain.appState.Reset()
		return nil, nil, err
	}
	root, err := chain.appState.Commit(height)
	if err != nil {
		chain.appState.Reset()
		return nil, nil, err
	}
	block := &types.Block{
		Header: &types.Header{
			ParentHash:     chain.Head.Hash(),
			Height:         height,
			StateRoot:      root,
			ExtrinsicsRoot: types.DeriveSha(result.exts),
		},
		Extrinsics: result.exts,
	}
	if err := chain.afterBlock(block, result, started); err != nil {
		return nil, nil, err
	}
	return block, result, nil
}

// AddBlock re-executes a block built elsewhere and appends it when every extrinsic is valid and
// the resulting state root matches the header.
func (chain *Blockchain) AddBlock(block *types.Block) error {
	result, err := chain.addBlock(block)
	if err != nil {
		return err
	}
	chain.publish(block, result)
	return nil
}

func (chain *Blockchain) addBlock(block *types.Block) (*blockResult, error) {
	chain.lock.Lock()
	defer chain.lock.Unlock()

	started := time.Now()
	if err := chain.validateBlockHeader(block.Header, chain.Head); err != nil {
		return nil, err
	}
	if root := types.DeriveSha(block.Extrinsics); root != block.Header.ExtrinsicsRoot {
		return nil, InvalidExtrinsicsRoot
	}
	result, err := chain.applyBlockOnState(block.Height(), block.Extrinsics, true)
	if err != nil {
		chain.appState.Reset()
		return nil, err
	}
	if _, err := chain.appState.State.Precommit(); err != nil {
		chain.appState.Reset()
		return nil, err
	}
	if root := chain.appState.State.WorkingRoot(); root != block.Header.StateRoot {
		chain.appState.Reset()
		return nil, errors.Wrapf(InvalidStateRoot, "expected %v, actual %v", block.Header.StateRoot.Hex(), root.Hex())
	}
	if _, err := chain.appState.Commit(block.Height()); err != nil {
		chain.appState.Reset()
		return nil, err
	}
	if err := chain.afterBlock(block, result, started); err != nil {
		return nil, err
	}
	return result, nil
}

func (chain *Blockchain) validateBlockHeader(header *types.Header, prevBlock *types.Header) error {
	if header.ParentHash != prevBlock.Hash() {
		return ParentHashIsInvalid
	}
	if header.Height != prevBlock.Height+1 {
		return InvalidHeight
	}
	return nil
}

// applyBlockOnState runs the block pipeline: scheduled calls and referenda first, then the
// extrinsics, then the proposal queues. In strict mode any invalid extrinsic fails the block.
func (chain *Blockchain) applyBlockOnState(height uint64, exts []*types.Extrinsic, strict bool) (*blockResult, error) {
	rt := chain.appState.Runtime
	result := &blockResult{}
	result.weight = rt.OnInitialize(height)

	limit := types.Weight(chain.config.Blockchain.NormalDispatchLimit())
	base := types.Weight(chain.config.Blockchain.BaseExtrinsic)
	var normal types.Weight
	for _, ext := range exts {
		weight, err := chain.admitExtrinsic(ext, normal, limit, base)
		if err != nil {
			if strict {
				return nil, errors.Wrapf(err, "extrinsic %v", ext.Hash().Hex())
			}
			chain.log.Debug("Extrinsic excluded", "hash", ext.Hash().Hex(), "err", err)
			result.dropped = append(result.dropped, ext)
			result.excluded++
			continue
		}
		normal += weight + base

		receipt := &events.ExtrinsicAppliedEvent{
			Height:  height,
			Index:   len(result.exts),
			Hash:    ext.Hash(),
			Success: true,
		}
		if err := chain.ApplyExtrinsic(ext); err != nil {
			receipt.Success = false
			receipt.Error = err.Error()
			result.failed++
			chain.log.Debug("Extrinsic failed", "hash", ext.Hash().Hex(), "err", err)
		} else {
			result.applied++
		}
		result.exts = append(result.exts, ext)
		result.receipts = append(result.receipts, receipt)
	}
	result.weight += normal

	rt.OnFinalize(height)
	result.events = chain.appState.State.TakeEvents()
	return result, nil
}

// admitExtrinsic validates ext against the remaining block weight and charges a sponsored
// extrinsic to the member's gas tank.
func (chain *Blockchain) admitExtrinsic(ext *types.Extrinsic, used, limit, base types.Weight) (types.Weight, error) {
	weight, err := validation.ValidateExtrinsic(chain.appState, ext, chain.config.Blockchain)
	if err != nil {
		return 0, err
	}
	if used+weight+base > limit {
		return 0, BlockOverweight
	}
	if !ext.Sponsor.Enabled {
		return weight, nil
	}
	s := chain.appState.State
	s.BeginTx()
	if err := chain.appState.Runtime.ChargeSponsored(ext.Origin, ext.Sponsor, weight+base); err != nil {
		if rbErr := s.RollbackTx(); rbErr != nil {
			chain.log.Error("Failed to roll back sponsorship", "err", rbErr)
		}
		return 0, err
	}
	return weight, s.CommitTx()
}

// ApplyExtrinsic dispatches the call of ext in its own transaction; a failed dispatch leaves no
// writes and no events behind.
func (chain *Blockchain) ApplyExtrinsic(ext *types.Extrinsic) error {
	s := chain.appState.State
	s.BeginTx()
	if err := chain.appState.Runtime.Dispatch(ext.Origin, ext.Call); err != nil {
		if rbErr := s.RollbackTx(); rbErr != nil {
			chain.log.Error("Failed to roll back extrinsic", "err", rbErr)
		}
		return err
	}
	return s.CommitTx()
}

func (chain *Blockchain) afterBlock(block *types.Block, result *blockResult, started time.Time) error {
	if err := chain.insertBlock(block, result.receipts); err != nil {
		return err
	}
	if chain.txpool != nil {
		chain.txpool.ResetTo(block)
		for _, ext := range result.dropped {
			chain.txpool.Remove(ext)
		}
	}
	chain.metrics.blockApplied(started, result)
	chain.log.Info("Block applied", "height", block.Height(), "hash", block.Hash().Hex(),
		"extrinsics", len(block.Extrinsics), "failed", result.failed, "excluded", result.excluded, "weight", result.weight)
	return nil
}

func (chain *Blockchain) insertBlock(block *types.Block, receipts []*events.ExtrinsicAppliedEvent) error {
	batch := chain.db.NewBatch()
	defer batch.Close()

	hash := block.Hash()
	chain.repo.WriteBlockHeader(batch, block.Header)
	chain.repo.WriteBody(batch, hash, block.Extrinsics)
	chain.repo.WriteCanonicalHash(batch, block.Height(), hash)
	for _, receipt := range receipts {
		chain.repo.WriteExtrinsicIndex(batch, receipt.Hash, &database.ExtrinsicIndex{
			BlockHash: hash,
			Height:    block.Height(),
			Index:     uint32(receipt.Index),
			Success:   receipt.Success,
		})
	}
	chain.repo.WriteHead(batch, block.Header)
	if err := batch.WriteSync(); err != nil {
		return errors.Wrap(BlockInsertionErr, err.Error())
	}
	chain.setCurrentHead(block.Header)
	return nil
}

func (chain *Blockchain) publish(block *types.Block, result *blockResult) {
	for _, e := range result.events {
		chain.bus.Publish(e)
	}
	for _, receipt := range result.receipts {
		chain.bus.Publish(receipt)
	}
	chain.bus.Publish(&events.NewBlockEvent{
		Block:  block,
		Events: result.events,
	})
}

func (chain *Blockchain) GetBlock(hash common.Hash) *types.Block {
	header := chain.repo.ReadBlockHeader(hash)
	if header == nil {
		return nil
	}
	return &types.Block{
		Header:     header,
		Extrinsics: chain.repo.ReadBody(hash),
	}
}

func (chain *Blockchain) GetBlockByHeight(height uint64) *types.Block {
	hash := chain.repo.ReadCanonicalHash(height)
	if hash == (common.Hash{}) {
		return nil
	}
	return chain.GetBlock(hash)
}

func (chain *Blockchain) GetBlockHeaderByHeight(height uint64) *types.Header {
	hash := chain.repo.ReadCanonicalHash(height)
	if hash == (common.Hash{}) {
		return nil
	}
	return chain.repo.ReadBlockHeader(hash)
}

func (chain *Blockchain) GetExtrinsicIndex(hash common.Hash) *database.ExtrinsicIndex {
	return chain.repo.ReadExtrinsicIndex(hash)
}

// ResetTo rolls the chain and its state back to height.
func (chain *Blockchain) ResetTo(height uint64) error {
	chain.lock.Lock()
	defer chain.lock.Unlock()

	if height < GenesisHeight || height > chain.Head.Height {
		return InvalidHeight
	}
	prevHead := chain.Head.Height
	if err := chain.appState.ResetTo(height); err != nil {
		return errors.WithMessage(err, "state is corrupted, try to resync from scratch")
	}

	batch := chain.db.NewBatch()
	defer batch.Close()
	for h := height + 1; h <= prevHead; h++ {
		hash := chain.repo.ReadCanonicalHash(h)
		if hash == (common.Hash{}) {
			continue
		}
		for _, ext := range chain.repo.ReadBody(hash) {
			chain.repo.RemoveExtrinsicIndex(batch, ext.Hash())
		}
		chain.repo.RemoveBody(batch, hash)
		chain.repo.RemoveHeader(batch, hash)
		chain.repo.RemoveCanonicalHash(batch, h)
	}
	chain.repo.SetHead(batch, height)
	if err := batch.WriteSync(); err != nil {
		return err
	}
	chain.setCurrentHead(chain.GetHead())
	chain.bus.Publish(&events.BlockchainResetEvent{Header: chain.Head})
	chain.log.Warn("Blockchain was reset", "new head", chain.Head.Height)
	return nil
}
