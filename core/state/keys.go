package state

import (
	"encoding/binary"

	"github.com/idena-network/idena-communities/crypto"
	dbm "github.com/tendermint/tm-db"
)

var (
	currentStateDbPrefixKey = []byte{0x1}
	stateDbPrefixBytes      = []byte{0x1}
)

var StateDbKeys = &stateDbKeys{}

type stateDbKeys struct {
}

func (s *stateDbKeys) LoadDbPrefix(db dbm.DB) ([]byte, error) {
	p, err := db.Get(currentStateDbPrefixKey)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = s.BuildDbPrefix(0)
		b := db.NewBatch()
		defer b.Close()
		s.SaveDbPrefix(b, p)
		if err := b.WriteSync(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *stateDbKeys) SaveDbPrefix(b dbm.Batch, prefix []byte) {
	b.Set(currentStateDbPrefixKey, prefix)
}

func (s *stateDbKeys) BuildDbPrefix(generation uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, generation)
	return append(append([]byte{}, stateDbPrefixBytes...), b...)
}

// Hasher transforms a map key into its storage form.
type Hasher struct {
	Name    string
	hashLen int
	fn      func([]byte) []byte
}

var (
	Blake2_128Concat = Hasher{Name: "blake2_128_concat", hashLen: 16, fn: crypto.Blake2_128Concat}
	Twox64Concat     = Hasher{Name: "twox64_concat", hashLen: 8, fn: crypto.Twox64Concat}
	// Identity keeps keys as is, so iteration follows key order.
	Identity = Hasher{Name: "identity", hashLen: 0, fn: func(b []byte) []byte { return append([]byte{}, b...) }}
)

func (h Hasher) Hash(key []byte) []byte {
	return h.fn(key)
}

// Strip recovers the raw key from its hashed form.
func (h Hasher) Strip(hashed []byte) []byte {
	if len(hashed) < h.hashLen {
		return nil
	}
	return hashed[h.hashLen:]
}

// StoragePrefix is twox128(pallet) ++ twox128(item).
func StoragePrefix(pallet, item string) []byte {
	return append(crypto.Twox128([]byte(pallet)), crypto.Twox128([]byte(item))...)
}

// prefixEnd returns the smallest key greater than every key starting with prefix, or nil if none exists.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte{}, prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
