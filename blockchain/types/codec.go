package types

import (
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/idena-network/idena-communities/common"
	"github.com/pkg/errors"
)

// Encode returns the SCALE encoding of v.
func Encode(v interface{}) ([]byte, error) {
	return codec.Encode(v)
}

func Decode(data []byte, target interface{}) error {
	return codec.Decode(data, target)
}

// Balance is a non-negative amount stored as a SCALE compact integer.
type Balance struct {
	Int *big.Int
}

func NewBalance(v *big.Int) Balance {
	if v == nil {
		return Balance{Int: new(big.Int)}
	}
	return Balance{Int: new(big.Int).Set(v)}
}

func BalanceFromUint64(v uint64) Balance {
	return Balance{Int: new(big.Int).SetUint64(v)}
}

// Big returns a copy of the amount; a zero Balance yields 0.
func (b Balance) Big() *big.Int {
	if b.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.Int)
}

func (b Balance) IsZero() bool {
	return b.Int == nil || b.Int.Sign() == 0
}

func (b Balance) String() string {
	return b.Big().String()
}

func (b Balance) Encode(encoder scale.Encoder) error {
	v := b.Big()
	if v.Sign() < 0 {
		return errors.New("negative balance")
	}
	return encoder.EncodeUintCompact(*v)
}

func (b *Balance) Decode(decoder scale.Decoder) error {
	v, err := decoder.DecodeUintCompact()
	if err != nil {
		return err
	}
	b.Int = v
	return nil
}

type CallKind uint8

const (
	CallInline CallKind = iota
	CallLookup
)

// BoundedCall references an encoded call either inline or by its preimage hash.
type BoundedCall struct {
	Kind CallKind
	Data []byte
	Hash common.Hash
	Len  uint32
}

func (c BoundedCall) Encode(encoder scale.Encoder) error {
	if err := encoder.PushByte(byte(c.Kind)); err != nil {
		return err
	}
	switch c.Kind {
	case CallInline:
		return encoder.Encode(c.Data)
	case CallLookup:
		if err := encoder.Encode(c.Hash); err != nil {
			return err
		}
		return encoder.Encode(c.Len)
	}
	return errors.Errorf("unknown call kind %d", c.Kind)
}

func (c *BoundedCall) Decode(decoder scale.Decoder) error {
	kind, err := decoder.ReadOneByte()
	if err != nil {
		return err
	}
	*c = BoundedCall{Kind: CallKind(kind)}
	switch c.Kind {
	case CallInline:
		return decoder.Decode(&c.Data)
	case CallLookup:
		if err := decoder.Decode(&c.Hash); err != nil {
			return err
		}
		return decoder.Decode(&c.Len)
	}
	return errors.Errorf("unknown call kind %d", kind)
}
