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

package types

import (
	"encoding/binary"

	"github.com/idena-network/idena-communities/common"
	"github.com/tendermint/iavl"
	db "github.com/tendermint/tm-db"
)

type DerivableList interface {
	Len() int
	GetBytes(i int) []byte
}

// DeriveSha builds a throwaway iavl tree keyed by position and returns its root.
func DeriveSha(list DerivableList) common.Hash {
	if list.Len() == 0 {
		return common.Hash{}
	}
	tree, err := iavl.NewMutableTree(db.NewMemDB(), 1024)
	if err != nil {
		return common.Hash{}
	}
	for i := 0; i < list.Len(); i++ {
		key := make([]byte, 4)
		binary.BigEndian.PutUint32(key, uint32(i))
		tree.Set(key, list.GetBytes(i))
	}
	hash, _, err := tree.SaveVersion()
	if err != nil {
		return common.Hash{}
	}
	return common.BytesToHash(hash)
}
