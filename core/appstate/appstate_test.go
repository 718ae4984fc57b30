package appstate

import (
	"math/big"
	"testing"

	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/config"
	"github.com/stretchr/testify/require"
	db2 "github.com/tendermint/tm-db"
)

func TestAppState_ReloadAndReadonly(t *testing.T) {
	db := db2.NewMemDB()
	cfg := config.GetDefaultConfig()

	appState, err := NewAppState(db, cfg)
	require.NoError(t, err)

	addr := common.AccountId{0x1}
	require.NoError(t, appState.Ledger.Mint(addr, big.NewInt(100)))
	_, err = appState.Commit(1)
	require.NoError(t, err)

	require.NoError(t, appState.Ledger.Mint(addr, big.NewInt(50)))
	root, err := appState.Commit(2)
	require.NoError(t, err)

	view, err := appState.Readonly(1)
	require.NoError(t, err)
	require.Equal(t, int64(100), view.Ledger.FreeBalance(addr).Int64())
	cached, err := appState.Readonly(1)
	require.NoError(t, err)
	require.True(t, view == cached)

	appState, err = NewAppState(db, cfg)
	require.NoError(t, err)
	require.NoError(t, appState.Initialize(2))
	require.Equal(t, root, appState.State.Root())
	require.Equal(t, int64(150), appState.Ledger.FreeBalance(addr).Int64())

	require.NoError(t, appState.ResetTo(1))
	require.Equal(t, int64(100), appState.Ledger.FreeBalance(addr).Int64())
	require.Error(t, appState.ResetTo(7))
}
