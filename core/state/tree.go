package state

import (
	"sync"

	"github.com/idena-network/idena-communities/common"
	"github.com/tendermint/iavl"
	dbm "github.com/tendermint/tm-db"
)

// Tree is the versioned authenticated store backing the runtime state.
type Tree interface {
	Get(key []byte) []byte
	Set(key, value []byte) bool
	Remove(key []byte) bool
	IterateRange(start, end []byte, fn func(key, value []byte) bool) bool
	LoadVersion(targetVersion int64) (int64, error)
	LoadVersionForOverwriting(targetVersion int64) (int64, error)
	Load() (int64, error)
	SaveVersionAt(version int64) ([]byte, int64, error)
	DeleteVersion(version int64) error
	ExistVersion(version int64) bool
	AvailableVersions() []int
	Version() int64
	Hash() common.Hash
	WorkingHash() common.Hash
	Rollback()
}

func NewMutableTree(db dbm.DB) (*MutableTree, error) {
	tree, err := iavl.NewMutableTree(db, 1024)
	if err != nil {
		return nil, err
	}
	return &MutableTree{
		tree: tree,
	}, nil
}

type MutableTree struct {
	tree *iavl.MutableTree

	lock sync.RWMutex
}

func toHash(b []byte) common.Hash {
	var result common.Hash
	copy(result[:], b)
	return result
}

func (t *MutableTree) Get(key []byte) []byte {
	t.lock.RLock()
	defer t.lock.RUnlock()
	_, value := t.tree.Get(key)
	return value
}

func (t *MutableTree) Set(key, value []byte) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.Set(key, value)
}

func (t *MutableTree) Remove(key []byte) bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	_, removed := t.tree.Remove(key)
	return removed
}

// IterateRange walks the working tree in ascending order over [start, end).
// A nil bound leaves that side open.
func (t *MutableTree) IterateRange(start, end []byte, fn func(key, value []byte) bool) bool {
	t.lock.RLock()
	immutable := t.tree.ImmutableTree
	t.lock.RUnlock()
	return immutable.IterateRange(start, end, true, fn)
}

func (t *MutableTree) LoadVersion(targetVersion int64) (int64, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.LoadVersion(targetVersion)
}

func (t *MutableTree) LoadVersionForOverwriting(targetVersion int64) (int64, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.LoadVersionForOverwriting(targetVersion)
}

func (t *MutableTree) Load() (int64, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.Load()
}

func (t *MutableTree) SaveVersionAt(version int64) ([]byte, int64, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.SaveVersionAt(version)
}

func (t *MutableTree) DeleteVersion(version int64) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.DeleteVersion(version)
}

func (t *MutableTree) ExistVersion(version int64) bool {
	return t.tree.VersionExists(version)
}

func (t *MutableTree) AvailableVersions() []int {
	return t.tree.AvailableVersions()
}

func (t *MutableTree) Version() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Version()
}

func (t *MutableTree) Hash() common.Hash {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return toHash(t.tree.Hash())
}

func (t *MutableTree) WorkingHash() common.Hash {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return toHash(t.tree.WorkingHash())
}

func (t *MutableTree) Rollback() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.tree.Rollback()
}
