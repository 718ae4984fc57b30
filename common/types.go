package common

import (
	"encoding/hex"
	"math/big"

	"github.com/mr-tron/base58"
)

const (
	AccountIdLength = 32
	HashLength      = 32
)

var (
	Big0 = big.NewInt(0)
	Big1 = big.NewInt(1)
)

// AccountId is a 32-byte account address.
type AccountId [AccountIdLength]byte

func BytesToAccountId(b []byte) AccountId {
	var a AccountId
	a.SetBytes(b)
	return a
}

// SetBytes sets the account to the value of b. If b is larger than len(a) it will panic.
func (a *AccountId) SetBytes(b []byte) {
	if len(b) > len(a) {
		b = b[len(b)-AccountIdLength:]
	}
	copy(a[AccountIdLength-len(b):], b)
}

func (a AccountId) Bytes() []byte { return a[:] }

func (a AccountId) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

func (a AccountId) String() string { return base58.Encode(a[:]) }

func (a AccountId) IsEmpty() bool { return a == AccountId{} }

func (a AccountId) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

func (a *AccountId) UnmarshalText(input []byte) error {
	id, err := AccountIdFromString(string(input))
	if err != nil {
		return err
	}
	*a = id
	return nil
}

func AccountIdFromString(s string) (AccountId, error) {
	if len(s) > 2 && s[:2] == "0x" {
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return AccountId{}, err
		}
		return BytesToAccountId(b), nil
	}
	b, err := base58.Decode(s)
	if err != nil {
		return AccountId{}, err
	}
	return BytesToAccountId(b), nil
}

// Hash represents the 32 byte blake2b-256 hash of arbitrary data.
type Hash [HashLength]byte

func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > len(h) {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) Hex() string { return "0x" + hex.EncodeToString(h[:]) }

func (h Hash) String() string { return h.Hex() }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.Hex()), nil }
