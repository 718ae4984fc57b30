package database

import (
	"encoding/binary"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/log"
	dbm "github.com/tendermint/tm-db"
)

// ExtrinsicIndex locates an applied extrinsic and records its dispatch result.
type ExtrinsicIndex struct {
	BlockHash common.Hash
	Height    uint64
	Index     uint32
	Success   bool
}

type storedExtrinsic struct {
	Origin  types.Origin
	Call    []byte
	Sponsor types.Sponsorship
}

type Repo struct {
	db dbm.DB
}

func NewRepo(db dbm.DB) *Repo {
	return &Repo{
		db: db,
	}
}

// encodeBlockNumber encodes a block number as big endian uint64
func encodeBlockNumber(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// headerKey = headerPrefix + hash
func headerKey(hash common.Hash) []byte {
	return append(append([]byte{}, headerPrefix...), hash.Bytes()...)
}

func bodyKey(hash common.Hash) []byte {
	return append(append([]byte{}, bodyPrefix...), hash.Bytes()...)
}

func headerHashKey(number uint64) []byte {
	key := append(append([]byte{}, headerPrefix...), encodeBlockNumber(number)...)
	return append(key, headerHashSuffix...)
}

func extrinsicIndexKey(hash common.Hash) []byte {
	return append(append([]byte{}, extrinsicIndexPrefix...), hash.Bytes()...)
}

func (r *Repo) get(key []byte) []byte {
	data, err := r.db.Get(key)
	if err != nil {
		log.Error("Failed to read key", "key", key, "err", err)
		return nil
	}
	return data
}

func (r *Repo) set(batch dbm.Batch, key, value []byte) {
	if batch != nil {
		batch.Set(key, value)
		return
	}
	if err := r.db.Set(key, value); err != nil {
		log.Crit("Failed to write key", "key", key, "err", err)
	}
}

func (r *Repo) delete(batch dbm.Batch, key []byte) {
	if batch != nil {
		batch.Delete(key)
		return
	}
	if err := r.db.Delete(key); err != nil {
		log.Error("Failed to delete key", "key", key, "err", err)
	}
}

func (r *Repo) ReadBlockHeader(hash common.Hash) *types.Header {
	data := r.get(headerKey(hash))
	if data == nil {
		return nil
	}
	header := new(types.Header)
	if err := types.Decode(data, header); err != nil {
		log.Error("Invalid block header", "hash", hash.Hex(), "err", err)
		return nil
	}
	return header
}

func (r *Repo) WriteBlockHeader(batch dbm.Batch, header *types.Header) {
	data, err := types.Encode(header)
	if err != nil {
		log.Crit("Failed to encode header", "err", err)
		return
	}
	r.set(batch, headerKey(header.Hash()), data)
}

func (r *Repo) RemoveHeader(batch dbm.Batch, hash common.Hash) {
	r.delete(batch, headerKey(hash))
}

func (r *Repo) ReadBody(hash common.Hash) types.Extrinsics {
	data := r.get(bodyKey(hash))
	if data == nil {
		return nil
	}
	var stored []storedExtrinsic
	if err := types.Decode(data, &stored); err != nil {
		log.Error("Invalid block body", "hash", hash.Hex(), "err", err)
		return nil
	}
	result := make(types.Extrinsics, 0, len(stored))
	for _, s := range stored {
		result = append(result, &types.Extrinsic{Origin: s.Origin, Call: s.Call, Sponsor: s.Sponsor})
	}
	return result
}

func (r *Repo) WriteBody(batch dbm.Batch, hash common.Hash, exts types.Extrinsics) {
	if len(exts) == 0 {
		return
	}
	stored := make([]storedExtrinsic, 0, len(exts))
	for _, e := range exts {
		stored = append(stored, storedExtrinsic{Origin: e.Origin, Call: e.Call, Sponsor: e.Sponsor})
	}
	data, err := types.Encode(stored)
	if err != nil {
		log.Crit("Failed to encode block body", "err", err)
		return
	}
	r.set(batch, bodyKey(hash), data)
}

func (r *Repo) RemoveBody(batch dbm.Batch, hash common.Hash) {
	r.delete(batch, bodyKey(hash))
}

func (r *Repo) ReadHead() *types.Header {
	data := r.get(headBlockKey)
	if data == nil {
		return nil
	}
	header := new(types.Header)
	if err := types.Decode(data, header); err != nil {
		log.Error("Invalid head header", "err", err)
		return nil
	}
	return header
}

func (r *Repo) WriteHead(batch dbm.Batch, header *types.Header) {
	data, err := types.Encode(header)
	if err != nil {
		log.Crit("Failed to encode header", "err", err)
		return
	}
	r.set(batch, headBlockKey, data)
}

func (r *Repo) WriteCanonicalHash(batch dbm.Batch, height uint64, hash common.Hash) {
	r.set(batch, headerHashKey(height), hash.Bytes())
}

func (r *Repo) ReadCanonicalHash(height uint64) common.Hash {
	data := r.get(headerHashKey(height))
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

func (r *Repo) RemoveCanonicalHash(batch dbm.Batch, height uint64) {
	r.delete(batch, headerHashKey(height))
}

func (r *Repo) SetHead(batch dbm.Batch, height uint64) {
	hash := r.ReadCanonicalHash(height)
	if hash != (common.Hash{}) {
		header := r.ReadBlockHeader(hash)
		if header != nil {
			r.WriteHead(batch, header)
		}
	}
}

func (r *Repo) WriteExtrinsicIndex(batch dbm.Batch, hash common.Hash, index *ExtrinsicIndex) {
	data, err := types.Encode(index)
	if err != nil {
		log.Crit("Failed to encode extrinsic index", "err", err)
		return
	}
	r.set(batch, extrinsicIndexKey(hash), data)
}

func (r *Repo) ReadExtrinsicIndex(hash common.Hash) *ExtrinsicIndex {
	data := r.get(extrinsicIndexKey(hash))
	if data == nil {
		return nil
	}
	index := new(ExtrinsicIndex)
	if err := types.Decode(data, index); err != nil {
		log.Error("Invalid extrinsic index", "err", err)
		return nil
	}
	return index
}

func (r *Repo) RemoveExtrinsicIndex(batch dbm.Batch, hash common.Hash) {
	r.delete(batch, extrinsicIndexKey(hash))
}
