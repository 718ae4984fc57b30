package common

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	db "github.com/tendermint/tm-db"
)

func TestCopyDb(t *testing.T) {
	original := db.NewMemDB()
	db1 := db.NewPrefixDB(original, []byte{0x1})
	db2 := db.NewPrefixDB(original, []byte{0x2})

	const count = 2500
	for k := uint32(0); k < count; k++ {
		bs := make([]byte, 4)
		binary.LittleEndian.PutUint32(bs, k)
		require.NoError(t, db1.Set(bs, []byte{byte(k % 255)}))
	}

	require.NoError(t, CopyDb(db1, db2))

	for k := uint32(0); k < count; k++ {
		bs := make([]byte, 4)
		binary.LittleEndian.PutUint32(bs, k)
		value, err := db2.Get(bs)
		require.NoError(t, err)
		require.Equal(t, []byte{byte(k % 255)}, value)
	}
	require.NoError(t, CopyDb(db.NewMemDB(), db2))
}
