package state

import (
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/log"
	"github.com/pkg/errors"
)

// Value is a single SCALE-encoded storage item.
type Value[V any] struct {
	key []byte
}

func NewValue[V any](pallet, item string) Value[V] {
	return Value[V]{key: StoragePrefix(pallet, item)}
}

func (v Value[V]) Key() []byte {
	return v.key
}

func (v Value[V]) Get(s *StateDB) (V, bool) {
	return decodeItem[V](s, v.key)
}

func (v Value[V]) Put(s *StateDB, value V) error {
	return putItem(s, v.key, value)
}

func (v Value[V]) Kill(s *StateDB) {
	s.Remove(v.key)
}

func (v Value[V]) Exists(s *StateDB) bool {
	return s.Has(v.key)
}

// Map is a storage map whose keys are transformed by a Hasher.
type Map[V any] struct {
	prefix []byte
	hasher Hasher
}

func NewMap[V any](pallet, item string, hasher Hasher) Map[V] {
	return Map[V]{prefix: StoragePrefix(pallet, item), hasher: hasher}
}

func (m Map[V]) formatKey(key []byte) []byte {
	return append(append([]byte{}, m.prefix...), m.hasher.Hash(key)...)
}

func (m Map[V]) Get(s *StateDB, key []byte) (V, bool) {
	return decodeItem[V](s, m.formatKey(key))
}

func (m Map[V]) Put(s *StateDB, key []byte, value V) error {
	return putItem(s, m.formatKey(key), value)
}

func (m Map[V]) Remove(s *StateDB, key []byte) {
	s.Remove(m.formatKey(key))
}

func (m Map[V]) Contains(s *StateDB, key []byte) bool {
	return s.Has(m.formatKey(key))
}

// Iterate yields raw keys in storage order. Entries that fail to decode are skipped.
func (m Map[V]) Iterate(s *StateDB, f func(key []byte, value V) (stopped bool)) {
	s.Iterate(m.prefix, func(key []byte, value []byte) bool {
		var v V
		if err := types.Decode(value, &v); err != nil {
			log.Error("failed to decode storage item", "key", key, "err", err)
			return false
		}
		return f(m.hasher.Strip(key[len(m.prefix):]), v)
	})
}

// DoubleMap is a storage map with a two-part key.
type DoubleMap[V any] struct {
	prefix  []byte
	hasher1 Hasher
	hasher2 Hasher
}

func NewDoubleMap[V any](pallet, item string, hasher1, hasher2 Hasher) DoubleMap[V] {
	return DoubleMap[V]{prefix: StoragePrefix(pallet, item), hasher1: hasher1, hasher2: hasher2}
}

func (m DoubleMap[V]) firstKey(key1 []byte) []byte {
	return append(append([]byte{}, m.prefix...), m.hasher1.Hash(key1)...)
}

func (m DoubleMap[V]) formatKey(key1, key2 []byte) []byte {
	return append(m.firstKey(key1), m.hasher2.Hash(key2)...)
}

func (m DoubleMap[V]) Get(s *StateDB, key1, key2 []byte) (V, bool) {
	return decodeItem[V](s, m.formatKey(key1, key2))
}

func (m DoubleMap[V]) Put(s *StateDB, key1, key2 []byte, value V) error {
	return putItem(s, m.formatKey(key1, key2), value)
}

func (m DoubleMap[V]) Remove(s *StateDB, key1, key2 []byte) {
	s.Remove(m.formatKey(key1, key2))
}

func (m DoubleMap[V]) Contains(s *StateDB, key1, key2 []byte) bool {
	return s.Has(m.formatKey(key1, key2))
}

// IteratePrefix yields the raw second keys stored under key1.
func (m DoubleMap[V]) IteratePrefix(s *StateDB, key1 []byte, f func(key2 []byte, value V) (stopped bool)) {
	first := m.firstKey(key1)
	s.Iterate(first, func(key []byte, value []byte) bool {
		var v V
		if err := types.Decode(value, &v); err != nil {
			log.Error("failed to decode storage item", "key", key, "err", err)
			return false
		}
		return f(m.hasher2.Strip(key[len(first):]), v)
	})
}

// ClearPrefix removes every entry stored under key1 and returns how many were removed.
func (m DoubleMap[V]) ClearPrefix(s *StateDB, key1 []byte) int {
	var keys [][]byte
	s.Iterate(m.firstKey(key1), func(key []byte, value []byte) bool {
		keys = append(keys, key)
		return false
	})
	for _, k := range keys {
		s.Remove(k)
	}
	return len(keys)
}

func decodeItem[V any](s *StateDB, key []byte) (V, bool) {
	var v V
	data := s.Get(key)
	if data == nil {
		return v, false
	}
	if err := types.Decode(data, &v); err != nil {
		log.Error("failed to decode storage item", "key", key, "err", err)
		return v, false
	}
	return v, true
}

// putItem writes the encoding of value under key. An item that cannot be encoded is not written
// and fails the innermost transaction, so it can only be rolled back.
func putItem(s *StateDB, key []byte, value interface{}) error {
	data, err := types.Encode(value)
	if err != nil {
		err = errors.Wrapf(err, "failed to encode storage item %x", key)
		log.Error("Failed to encode storage item", "key", key, "err", err)
		s.Fail(err)
		return err
	}
	s.Set(key, data)
	return nil
}
