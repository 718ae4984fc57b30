package appstate

import (
	"github.com/idena-network/idena-communities/callstore"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/communities"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/state"
	"github.com/idena-network/idena-communities/ledger"
	"github.com/idena-network/idena-communities/referenda"
	"github.com/idena-network/idena-communities/runtime"
	"github.com/idena-network/idena-communities/scheduler"
	"github.com/pkg/errors"
	dbm "github.com/tendermint/tm-db"
	"sync"
)

// AppState wires every module over one state database.
type AppState struct {
	State       *state.StateDB
	Ledger      *ledger.Ledger
	Calls       *callstore.Store
	Scheduler   *scheduler.Scheduler
	Referenda   *referenda.Referenda
	Communities *communities.Communities
	Runtime     *runtime.Runtime

	cfg *config.Config

	readonlyStateCache map[uint64]*AppState
	readonlyStateMutex sync.RWMutex
}

func NewAppState(db dbm.DB, cfg *config.Config) (*AppState, error) {
	stateDb, err := state.NewLazy(db)
	if err != nil {
		return nil, err
	}
	stateDb.SetSavedStatesCount(cfg.Blockchain.SavedStatesCount)
	return newAppState(stateDb, cfg)
}

func newAppState(stateDb *state.StateDB, cfg *config.Config) (*AppState, error) {
	l := ledger.New(stateDb, cfg.Ledger)
	calls := callstore.New(stateDb, cfg.Communities)
	sched := scheduler.New(stateDb, calls, cfg.Scheduler)
	ref, err := referenda.New(stateDb, cfg.Referenda)
	if err != nil {
		return nil, errors.Wrap(err, "referenda")
	}
	c, err := communities.New(stateDb, l, calls, sched, ref, cfg.Communities, cfg.Referenda)
	if err != nil {
		return nil, errors.Wrap(err, "communities")
	}
	return &AppState{
		State:       stateDb,
		Ledger:      l,
		Calls:       calls,
		Scheduler:   sched,
		Referenda:   ref,
		Communities: c,
		Runtime:     runtime.New(l, c, sched, cfg.Blockchain),
		cfg:         cfg,
	}, nil
}

// Readonly opens the modules over a committed height. The last opened view is cached.
func (s *AppState) Readonly(height uint64) (*AppState, error) {
	s.readonlyStateMutex.RLock()
	if cached, ok := s.readonlyStateCache[height]; ok {
		s.readonlyStateMutex.RUnlock()
		return cached, nil
	}
	s.readonlyStateMutex.RUnlock()

	s.readonlyStateMutex.Lock()
	defer s.readonlyStateMutex.Unlock()

	if cached, ok := s.readonlyStateCache[height]; ok {
		return cached, nil
	}
	st, err := s.State.Readonly(height)
	if err != nil {
		return nil, err
	}
	view, err := newAppState(st, s.cfg)
	if err != nil {
		return nil, err
	}
	s.readonlyStateCache = map[uint64]*AppState{height: view}
	return view, nil
}

func (s *AppState) Initialize(height uint64) error {
	return s.State.Load(height)
}

// Commit persists the block state as version height.
func (s *AppState) Commit(height uint64) (common.Hash, error) {
	return s.State.Commit(height)
}

func (s *AppState) Reset() {
	s.State.Reset()
}

func (s *AppState) ResetTo(height uint64) error {
	if !s.State.HasVersion(height) {
		return errors.New("target tree version doesn't exist")
	}
	s.readonlyStateMutex.Lock()
	s.readonlyStateCache = nil
	s.readonlyStateMutex.Unlock()
	return s.State.ResetTo(height)
}
