package callstore

import (
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/state"
	"github.com/idena-network/idena-communities/crypto"
	"github.com/pkg/errors"
)

const pallet = "Preimage"

var (
	ErrCallTooLong     = errors.New("call exceeds the maximum encoded length")
	ErrEmptyCall       = errors.New("call is empty")
	ErrUnknownPreimage = errors.New("preimage is not available")
)

// Preimage is a stored call body shared by every bound reference to it.
type Preimage struct {
	Data []byte
	Refs uint32
}

// Store binds opaque calls. Short calls travel inline; longer ones are stored as
// reference-counted preimages keyed by their blake2b-256 hash.
type Store struct {
	state        *state.StateDB
	maxCallLen   uint32
	maxInlineLen uint32
	preimages    state.Map[Preimage]
}

func New(s *state.StateDB, cfg *config.CommunitiesConfig) *Store {
	return &Store{
		state:        s,
		maxCallLen:   cfg.MaxCallLen,
		maxInlineLen: cfg.MaxInlineCallLen,
		preimages:    state.NewMap[Preimage](pallet, "PreimageFor", state.Identity),
	}
}

func (c *Store) Bind(call []byte) (types.BoundedCall, error) {
	if len(call) == 0 {
		return types.BoundedCall{}, ErrEmptyCall
	}
	if uint32(len(call)) > c.maxCallLen {
		return types.BoundedCall{}, errors.Wrapf(ErrCallTooLong, "len %d, max %d", len(call), c.maxCallLen)
	}
	if uint32(len(call)) <= c.maxInlineLen {
		return types.BoundedCall{Kind: types.CallInline, Data: append([]byte{}, call...)}, nil
	}
	hash := crypto.Hash(call)
	image, ok := c.preimages.Get(c.state, hash.Bytes())
	if !ok {
		image = Preimage{Data: append([]byte{}, call...)}
	}
	image.Refs++
	if err := c.preimages.Put(c.state, hash.Bytes(), image); err != nil {
		return types.BoundedCall{}, err
	}
	return types.BoundedCall{Kind: types.CallLookup, Hash: hash, Len: uint32(len(call))}, nil
}

// Peek resolves the call body without releasing it.
func (c *Store) Peek(call types.BoundedCall) ([]byte, error) {
	switch call.Kind {
	case types.CallInline:
		return call.Data, nil
	case types.CallLookup:
		image, ok := c.preimages.Get(c.state, call.Hash.Bytes())
		if !ok || uint32(len(image.Data)) != call.Len {
			return nil, ErrUnknownPreimage
		}
		return image.Data, nil
	}
	return nil, errors.Errorf("unknown call kind %d", call.Kind)
}

// Drop releases one reference to a stored preimage.
func (c *Store) Drop(call types.BoundedCall) {
	if call.Kind != types.CallLookup {
		return
	}
	image, ok := c.preimages.Get(c.state, call.Hash.Bytes())
	if !ok {
		return
	}
	if image.Refs <= 1 {
		c.preimages.Remove(c.state, call.Hash.Bytes())
		return
	}
	image.Refs--
	c.preimages.Put(c.state, call.Hash.Bytes(), image)
}

// Realize resolves the call body and releases the reference.
func (c *Store) Realize(call types.BoundedCall) ([]byte, error) {
	data, err := c.Peek(call)
	if err != nil {
		return nil, err
	}
	c.Drop(call)
	return data, nil
}

func (c *Store) HasPreimage(hash common.Hash) bool {
	return c.preimages.Contains(c.state, hash.Bytes())
}
