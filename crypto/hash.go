package crypto

import (
	"encoding/binary"
	"hash"
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/idena-network/idena-communities/common"
	"golang.org/x/crypto/blake2b"
)

var blake256Pool = sync.Pool{New: func() interface{} {
	h, _ := blake2b.New256(nil)
	return h
}}

// Hash returns the blake2b-256 digest of data.
func Hash(data []byte) common.Hash {
	h := blake256Pool.Get().(hash.Hash)
	defer blake256Pool.Put(h)
	h.Reset()

	var b common.Hash
	h.Write(data)
	h.Sum(b[:0])
	return b
}

func Blake2_128(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	h.Write(data)
	return h.Sum(nil)
}

// Blake2_128Concat returns blake2_128(data) followed by data itself so the key stays recoverable.
func Blake2_128Concat(data []byte) []byte {
	return append(Blake2_128(data), data...)
}

func Twox64(data []byte) []byte {
	h := xxhash.NewS64(0)
	h.Write(data)
	out := make([]byte, 8)
	binary.LittleEndian.PutUint64(out, h.Sum64())
	return out
}

func Twox64Concat(data []byte) []byte {
	return append(Twox64(data), data...)
}

func Twox128(data []byte) []byte {
	h1 := xxhash.NewS64(0)
	h1.Write(data)
	h2 := xxhash.NewS64(1)
	h2.Write(data)

	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[0:], h1.Sum64())
	binary.LittleEndian.PutUint64(out[8:], h2.Sum64())
	return out
}
