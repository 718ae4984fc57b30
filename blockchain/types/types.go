package types

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/crypto"
)

// CommunityId is a 16-bit ordinal assigned once and never reused.
type CommunityId uint16

const InitialCommunityId CommunityId = 0

// Next returns id+1, or false when the id space is exhausted.
func (id CommunityId) Next() (CommunityId, bool) {
	if id == ^CommunityId(0) {
		return 0, false
	}
	return id + 1, true
}

// Bytes returns the SCALE (little-endian) encoding of the id.
func (id CommunityId) Bytes() []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(id))
	return b
}

type MembershipId struct {
	Community CommunityId
	Index     uint32
}

func (m MembershipId) String() string {
	return fmt.Sprintf("%d/%d", m.Community, m.Index)
}

type Rank uint8

const MaxRank Rank = 100

func (r Rank) Promote() Rank {
	if r >= MaxRank {
		return MaxRank
	}
	return r + 1
}

func (r Rank) Demote() Rank {
	if r == 0 {
		return 0
	}
	if r > MaxRank {
		return MaxRank - 1
	}
	return r - 1
}

type AssetId uint32

type PollIndex uint32

// Weight is the static reference-time cost of a call.
type Weight uint64

// Fraction is a rational in [0, 1].
type Fraction struct {
	Num   uint32
	Denum uint32
}

func NewFraction(num, denum uint32) Fraction {
	return Fraction{Num: num, Denum: denum}
}

func (f Fraction) Valid() bool {
	return f.Denum > 0 && f.Num <= f.Denum
}

// AtLeast compares exactly by cross multiplication.
func (f Fraction) AtLeast(other Fraction) bool {
	return uint64(f.Num)*uint64(other.Denum) >= uint64(other.Num)*uint64(f.Denum)
}

func (f Fraction) String() string {
	return fmt.Sprintf("%d/%d", f.Num, f.Denum)
}

type Sponsorship struct {
	Enabled   bool
	Community CommunityId
}

// Extrinsic is a call submitted to the chain under an already authenticated origin.
type Extrinsic struct {
	Origin  Origin
	Call    []byte
	Sponsor Sponsorship

	hash atomic.Value
}

func NewExtrinsic(origin Origin, call []byte) *Extrinsic {
	return &Extrinsic{Origin: origin, Call: call}
}

func NewSponsoredExtrinsic(origin Origin, call []byte, community CommunityId) *Extrinsic {
	return &Extrinsic{Origin: origin, Call: call, Sponsor: Sponsorship{Enabled: true, Community: community}}
}

func (e *Extrinsic) Hash() common.Hash {
	if hash := e.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}
	data, err := Encode(struct {
		Origin  Origin
		Call    []byte
		Sponsor Sponsorship
	}{e.Origin, e.Call, e.Sponsor})
	if err != nil {
		return common.Hash{}
	}
	h := crypto.Hash(data)
	e.hash.Store(h)
	return h
}

type Extrinsics []*Extrinsic

func (s Extrinsics) Len() int { return len(s) }

func (s Extrinsics) GetBytes(i int) []byte {
	h := s[i].Hash()
	return h[:]
}

type Header struct {
	ParentHash     common.Hash
	Height         uint64
	StateRoot      common.Hash
	ExtrinsicsRoot common.Hash
}

func (h *Header) Hash() common.Hash {
	data, err := Encode(h)
	if err != nil {
		return common.Hash{}
	}
	return crypto.Hash(data)
}

type Block struct {
	Header     *Header
	Extrinsics Extrinsics

	hash atomic.Value
}

func (b *Block) Hash() common.Hash {
	if hash := b.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}
	v := b.Header.Hash()
	b.hash.Store(v)
	return v
}

func (b *Block) Height() uint64 {
	return b.Header.Height
}

func (b *Block) IsEmpty() bool {
	return len(b.Extrinsics) == 0
}
