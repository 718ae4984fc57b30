package mempool

import (
	"sync"
	"time"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/blockchain/validation"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/appstate"
	"github.com/idena-network/idena-communities/log"
	"github.com/pkg/errors"
)

const DefaultTotalLimit = 5000

var (
	ErrDuplicate = errors.New("extrinsic is already in the pool")
	ErrPoolFull  = errors.New("extrinsic pool is full")
)

type pendingExtrinsic struct {
	ext    *types.Extrinsic
	weight types.Weight
}

// ExtrinsicPool keeps validated extrinsics in arrival order until a block includes them.
type ExtrinsicPool struct {
	pending    map[common.Hash]*pendingExtrinsic
	order      []common.Hash
	appState   *appstate.AppState
	cfg        *config.BlockchainConfig
	totalLimit int
	mutex      sync.Mutex
	log        log.ThrottlingLogger
}

func NewExtrinsicPool(appState *appstate.AppState, cfg *config.BlockchainConfig) *ExtrinsicPool {
	return &ExtrinsicPool{
		pending:    make(map[common.Hash]*pendingExtrinsic),
		appState:   appState,
		cfg:        cfg,
		totalLimit: DefaultTotalLimit,
		log:        log.NewThrottlingLogger(log.New("component", "mempool"), time.Minute),
	}
}

func (pool *ExtrinsicPool) Add(ext *types.Extrinsic) error {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()

	hash := ext.Hash()
	if _, ok := pool.pending[hash]; ok {
		return ErrDuplicate
	}
	if len(pool.pending) >= pool.totalLimit {
		return ErrPoolFull
	}
	weight, err := validation.ValidateExtrinsic(pool.appState, ext, pool.cfg)
	if err != nil {
		pool.log.Warn("Extrinsic is not valid", "err", err, "hash", hash.Hex())
		return err
	}
	pool.pending[hash] = &pendingExtrinsic{ext: ext, weight: weight}
	pool.order = append(pool.order, hash)
	return nil
}

func (pool *ExtrinsicPool) Has(hash common.Hash) bool {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()
	_, ok := pool.pending[hash]
	return ok
}

func (pool *ExtrinsicPool) Len() int {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()
	return len(pool.pending)
}

func (pool *ExtrinsicPool) GetPendingExtrinsics() []*types.Extrinsic {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()
	list := make([]*types.Extrinsic, 0, len(pool.order))
	for _, hash := range pool.order {
		list = append(list, pool.pending[hash].ext)
	}
	return list
}

// BuildBlockExtrinsics picks pending extrinsics in arrival order while their declared weight
// fits into limit.
func (pool *ExtrinsicPool) BuildBlockExtrinsics(limit types.Weight) []*types.Extrinsic {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()
	var (
		result []*types.Extrinsic
		used   types.Weight
	)
	for _, hash := range pool.order {
		p := pool.pending[hash]
		if used+p.weight > limit {
			continue
		}
		used += p.weight
		result = append(result, p.ext)
	}
	return result
}

func (pool *ExtrinsicPool) Remove(ext *types.Extrinsic) {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()
	pool.remove(ext.Hash())
}

func (pool *ExtrinsicPool) remove(hash common.Hash) {
	if _, ok := pool.pending[hash]; !ok {
		return
	}
	delete(pool.pending, hash)
	for i, h := range pool.order {
		if h == hash {
			pool.order = append(pool.order[:i], pool.order[i+1:]...)
			break
		}
	}
}

// ResetTo drops the extrinsics included into block.
func (pool *ExtrinsicPool) ResetTo(block *types.Block) {
	pool.mutex.Lock()
	defer pool.mutex.Unlock()
	for _, ext := range block.Extrinsics {
		pool.remove(ext.Hash())
	}
}
