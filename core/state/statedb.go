// Copyright 2014 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package state

import (
	"bytes"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/common/eventbus"
	"github.com/idena-network/idena-communities/log"
	"github.com/pkg/errors"
	dbm "github.com/tendermint/tm-db"
)

const (
	DefaultSavedStatesCount = 100
)

var (
	ErrNoTransaction     = errors.New("no open storage transaction")
	ErrOpenTransaction   = errors.New("storage transaction is still open")
	ErrVersionNotChanged = errors.New("state version is already committed")
)

type storeValue struct {
	value   []byte
	removed bool
}

// txLayer holds the writes and events of one storage transaction.
type txLayer struct {
	values map[string]*storeValue
	events []eventbus.Event
	err    error
}

func newTxLayer() *txLayer {
	return &txLayer{values: make(map[string]*storeValue)}
}

// StateDB is a key-value view over the versioned tree. Writes are buffered in a
// stack of transaction layers; the bottom layer is the block cache flushed on Commit.
type StateDB struct {
	original dbm.DB
	db       dbm.DB
	tree     Tree

	layers           []*txLayer
	savedStatesCount int64

	log  log.Logger
	lock sync.RWMutex
}

func NewLazy(db dbm.DB) (*StateDB, error) {
	prefix, err := StateDbKeys.LoadDbPrefix(db)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load db prefix")
	}
	pdb := dbm.NewPrefixDB(db, prefix)
	tree, err := NewMutableTree(pdb)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open state tree")
	}
	return &StateDB{
		original:         db,
		db:               pdb,
		tree:             tree,
		layers:           []*txLayer{newTxLayer()},
		savedStatesCount: DefaultSavedStatesCount,
		log:              log.New("component", "state"),
	}, nil
}

func (s *StateDB) SetSavedStatesCount(count int64) {
	if count > 0 {
		s.savedStatesCount = count
	}
}

// Readonly opens a separate view of a committed version.
func (s *StateDB) Readonly(height uint64) (*StateDB, error) {
	tree, err := NewMutableTree(s.db)
	if err != nil {
		return nil, err
	}
	if _, err := tree.LoadVersion(int64(height)); err != nil {
		return nil, err
	}
	return &StateDB{
		original:         s.original,
		db:               s.db,
		tree:             tree,
		layers:           []*txLayer{newTxLayer()},
		savedStatesCount: s.savedStatesCount,
		log:              s.log,
	}, nil
}

func (s *StateDB) Load(height uint64) error {
	_, err := s.tree.LoadVersion(int64(height))
	return err
}

func (s *StateDB) Version() int64 {
	return s.tree.Version()
}

func (s *StateDB) HasVersion(h uint64) bool {
	return s.tree.ExistVersion(int64(h))
}

func (s *StateDB) top() *txLayer {
	return s.layers[len(s.layers)-1]
}

func (s *StateDB) Get(key []byte) []byte {
	s.lock.RLock()
	defer s.lock.RUnlock()
	for i := len(s.layers) - 1; i >= 0; i-- {
		if v, ok := s.layers[i].values[string(key)]; ok {
			if v.removed {
				return nil
			}
			return v.value
		}
	}
	return s.tree.Get(key)
}

func (s *StateDB) Has(key []byte) bool {
	return s.Get(key) != nil
}

func (s *StateDB) Set(key []byte, value []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.top().values[string(key)] = &storeValue{value: value}
}

func (s *StateDB) Remove(key []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.top().values[string(key)] = &storeValue{removed: true}
}

type keyValue struct {
	key   []byte
	value []byte
}

// Iterate visits every live key starting with prefix in ascending key order
// until fn returns true. Pending writes shadow the committed tree.
func (s *StateDB) Iterate(prefix []byte, fn func(key []byte, value []byte) (stopped bool)) bool {
	s.lock.RLock()
	merged := make(map[string]*storeValue)
	for _, layer := range s.layers {
		for k, v := range layer.values {
			if bytes.HasPrefix([]byte(k), prefix) {
				merged[k] = v
			}
		}
	}
	s.lock.RUnlock()

	iteratedKeys := mapset.NewSet()
	var items []keyValue
	for k, v := range merged {
		iteratedKeys.Add(k)
		if !v.removed {
			items = append(items, keyValue{key: []byte(k), value: v.value})
		}
	}

	var start []byte
	if len(prefix) > 0 {
		start = prefix
	}
	s.tree.IterateRange(start, prefixEnd(prefix), func(key []byte, value []byte) bool {
		if iteratedKeys.Contains(string(key)) {
			return false
		}
		items = append(items, keyValue{key: append([]byte{}, key...), value: value})
		return false
	})

	sort.Slice(items, func(i, j int) bool {
		return bytes.Compare(items[i].key, items[j].key) < 0
	})
	for _, item := range items {
		if fn(item.key, item.value) {
			return true
		}
	}
	return false
}

// BeginTx opens a nested storage transaction.
func (s *StateDB) BeginTx() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.layers = append(s.layers, newTxLayer())
}

// CommitTx folds the innermost transaction into its parent. A failed transaction is
// discarded instead and its error returned.
func (s *StateDB) CommitTx() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.layers) < 2 {
		return ErrNoTransaction
	}
	inner := s.top()
	s.layers = s.layers[:len(s.layers)-1]
	if inner.err != nil {
		return inner.err
	}
	parent := s.top()
	for k, v := range inner.values {
		parent.values[k] = v
	}
	parent.events = append(parent.events, inner.events...)
	return nil
}

// RollbackTx discards the writes and events of the innermost transaction.
func (s *StateDB) RollbackTx() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.layers) < 2 {
		return ErrNoTransaction
	}
	s.layers = s.layers[:len(s.layers)-1]
	return nil
}

// Fail marks the innermost transaction as failed. The first error is kept.
func (s *StateDB) Fail(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if layer := s.top(); layer.err == nil {
		layer.err = err
	}
}

// Err returns the error the innermost transaction failed with.
func (s *StateDB) Err() error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.top().err
}

func (s *StateDB) TxDepth() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.layers) - 1
}

// AddEvent records an event in the innermost transaction.
func (s *StateDB) AddEvent(e eventbus.Event) {
	s.lock.Lock()
	defer s.lock.Unlock()
	layer := s.top()
	layer.events = append(layer.events, e)
}

// Events returns the events already committed to the block cache.
func (s *StateDB) Events() []eventbus.Event {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]eventbus.Event{}, s.layers[0].events...)
}

// TakeEvents drains the events of the block cache.
func (s *StateDB) TakeEvents() []eventbus.Event {
	s.lock.Lock()
	defer s.lock.Unlock()
	events := s.layers[0].events
	s.layers[0].events = nil
	return events
}

// Precommit flushes the block cache into the working tree in key order.
func (s *StateDB) Precommit() (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.layers) > 1 {
		return 0, ErrOpenTransaction
	}
	if err := s.layers[0].err; err != nil {
		return 0, err
	}
	cache := s.layers[0].values
	keys := make([]string, 0, len(cache))
	for k := range cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := cache[k]
		if v.removed {
			s.tree.Remove([]byte(k))
		} else {
			s.tree.Set([]byte(k), v.value)
		}
	}
	s.layers[0].values = make(map[string]*storeValue)
	return len(keys), nil
}

// Commit persists the pending state as the version for the given height.
func (s *StateDB) Commit(height uint64) (root common.Hash, err error) {
	if _, err = s.Precommit(); err != nil {
		return common.Hash{}, err
	}
	return s.CommitTree(int64(height))
}

func (s *StateDB) CommitTree(newVersion int64) (common.Hash, error) {
	if s.tree.Version() >= newVersion {
		return common.Hash{}, ErrVersionNotChanged
	}
	hash, version, err := s.tree.SaveVersionAt(newVersion)
	if err != nil {
		return common.Hash{}, err
	}
	if version > s.savedStatesCount {
		versions := s.tree.AvailableVersions()
		for i := 0; i < len(versions)-int(s.savedStatesCount); i++ {
			if s.tree.ExistVersion(int64(versions[i])) {
				if err := s.tree.DeleteVersion(int64(versions[i])); err != nil {
					s.log.Warn("failed to prune state version", "version", versions[i], "err", err)
				}
			}
		}
	}
	s.Clear()
	return toHash(hash), nil
}

// Clear drops every pending layer and event.
func (s *StateDB) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.layers = []*txLayer{newTxLayer()}
}

func (s *StateDB) Reset() {
	s.Clear()
	s.tree.Rollback()
}

func (s *StateDB) ResetTo(height uint64) error {
	s.Clear()
	_, err := s.tree.LoadVersionForOverwriting(int64(height))
	return err
}

// Root is the hash of the last committed version.
func (s *StateDB) Root() common.Hash {
	return s.tree.Hash()
}

// WorkingRoot includes writes already flushed by Precommit.
func (s *StateDB) WorkingRoot() common.Hash {
	return s.tree.WorkingHash()
}
