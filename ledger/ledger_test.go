package ledger

import (
	"math/big"
	"testing"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/state"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"
)

var (
	alice = common.AccountId{0x1}
	bob   = common.AccountId{0x2}
	carol = common.AccountId{0x3}
)

func newTestLedger(t *testing.T) (*Ledger, *state.StateDB) {
	s, err := state.NewLazy(dbm.NewMemDB())
	require.NoError(t, err)
	return New(s, &config.LedgerConfig{ExistentialDeposit: 10}), s
}

func TestLedger_TransferPreservation(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Mint(alice, big.NewInt(15)))
	require.Equal(t, big.NewInt(15), l.TotalIssuance())

	require.Equal(t, ErrWouldKill, l.Transfer(alice, bob, big.NewInt(10), Preserve))
	require.Equal(t, ErrInsufficientBalance, l.Transfer(alice, bob, big.NewInt(16), Expendable))
	require.Equal(t, ErrBelowMinimum, l.Transfer(alice, bob, big.NewInt(9), Expendable))

	require.NoError(t, l.Transfer(alice, bob, big.NewInt(10), Expendable))
	require.Equal(t, big.NewInt(5), l.FreeBalance(alice))
	require.Equal(t, big.NewInt(10), l.FreeBalance(bob))

	require.NoError(t, l.Transfer(alice, bob, big.NewInt(5), Expendable))
	require.False(t, l.Exists(alice))
	require.Equal(t, ErrInvalidAmount, l.Transfer(bob, alice, big.NewInt(-1), Expendable))
}

func TestLedger_FreezesUseMaximum(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Mint(alice, big.NewInt(100)))
	require.NoError(t, l.SetFreeze([]byte("a"), alice, big.NewInt(30)))
	require.NoError(t, l.SetFreeze([]byte("b"), alice, big.NewInt(50)))
	require.Equal(t, big.NewInt(50), l.Frozen(alice))
	require.Equal(t, big.NewInt(50), l.Reducible(alice, Expendable))

	require.Equal(t, ErrInsufficientBalance, l.Transfer(alice, bob, big.NewInt(51), Expendable))
	l.Thaw([]byte("b"), alice)
	require.Equal(t, big.NewInt(30), l.Frozen(alice))
	require.NoError(t, l.Transfer(alice, bob, big.NewInt(70), Expendable))
	require.Equal(t, big.NewInt(30), l.FreeBalance(alice))
}

func TestLedger_FrozenAccountStaysAlive(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Mint(alice, big.NewInt(10)))
	require.NoError(t, l.SetFreeze([]byte("ed"), alice, big.NewInt(10)))
	require.Equal(t, ErrInsufficientBalance, l.Transfer(alice, bob, big.NewInt(1), Expendable))
	require.Equal(t, 0, l.Reducible(alice, Preserve).Sign())
	require.True(t, l.Exists(alice))
}

func TestLedger_HoldReleaseSlash(t *testing.T) {
	l, _ := newTestLedger(t)
	require.NoError(t, l.Mint(alice, big.NewInt(100)))
	require.NoError(t, l.Hold([]byte("dep"), alice, big.NewInt(20)))
	require.NoError(t, l.Hold([]byte("dep"), alice, big.NewInt(5)))
	require.Equal(t, big.NewInt(25), l.Held([]byte("dep"), alice))
	require.Equal(t, big.NewInt(75), l.FreeBalance(alice))
	require.Equal(t, big.NewInt(25), l.ReservedBalance(alice))

	require.Equal(t, big.NewInt(25), l.Release([]byte("dep"), alice))
	require.Equal(t, big.NewInt(100), l.FreeBalance(alice))

	require.NoError(t, l.Hold([]byte("dep"), alice, big.NewInt(40)))
	require.Equal(t, big.NewInt(40), l.Slash([]byte("dep"), alice))
	require.Equal(t, big.NewInt(60), l.TotalIssuance())
	require.Equal(t, 0, l.Slash([]byte("dep"), alice).Sign())
}

func TestLedger_AssetLifecycle(t *testing.T) {
	l, _ := newTestLedger(t)
	const asset = types.AssetId(7)
	require.NoError(t, l.CreateAsset(asset, alice, true, big.NewInt(1)))
	require.Equal(t, ErrAlreadyExists, l.CreateAsset(asset, bob, true, big.NewInt(1)))

	require.NoError(t, l.MintAsset(asset, alice, big.NewInt(100)))
	require.NoError(t, l.TransferAsset(asset, alice, bob, big.NewInt(40), Preserve))
	require.Equal(t, big.NewInt(60), l.AssetBalance(asset, alice))
	require.Equal(t, big.NewInt(100), l.AssetTotalIssuance(asset))

	require.NoError(t, l.SetAssetFreeze(asset, bob, []byte("vote"), big.NewInt(30)))
	require.Equal(t, ErrInsufficientBalance, l.TransferAsset(asset, bob, carol, big.NewInt(11), Expendable))
	l.ThawAsset(asset, bob, []byte("vote"))
	require.NoError(t, l.TransferAsset(asset, bob, carol, big.NewInt(11), Expendable))

	require.NoError(t, l.ApproveTransfer(asset, alice, carol, big.NewInt(5)))
	require.NoError(t, l.BurnAsset(asset, alice, big.NewInt(10)))
	require.Equal(t, big.NewInt(90), l.AssetTotalIssuance(asset))

	details, ok := l.AssetDetails(asset)
	require.True(t, ok)
	require.Equal(t, uint32(3), details.Accounts)
	require.Equal(t, uint32(1), details.Approvals)
	require.Equal(t, ErrUnknownAsset, l.MintAsset(99, alice, big.NewInt(1)))
}

func TestLedger_FourPhaseDestroy(t *testing.T) {
	l, _ := newTestLedger(t)
	const asset = types.AssetId(1)
	require.NoError(t, l.CreateAsset(asset, alice, false, big.NewInt(1)))
	require.NoError(t, l.MintAsset(asset, alice, big.NewInt(10)))
	require.NoError(t, l.MintAsset(asset, bob, big.NewInt(10)))
	require.NoError(t, l.ApproveTransfer(asset, alice, bob, big.NewInt(3)))

	_, err := l.DestroyAccounts(asset, 10)
	require.Equal(t, ErrIncorrectStatus, err)
	require.Equal(t, ErrIncorrectStatus, l.FinishDestroy(asset))

	require.NoError(t, l.StartDestroy(asset))
	require.NoError(t, l.StartDestroy(asset))
	require.Equal(t, ErrAssetNotLive, l.MintAsset(asset, carol, big.NewInt(5)))
	require.Equal(t, ErrInUse, l.FinishDestroy(asset))

	removed, err := l.DestroyAccounts(asset, 1)
	require.NoError(t, err)
	require.Equal(t, uint32(1), removed)
	removed, err = l.DestroyAccounts(asset, 10)
	require.NoError(t, err)
	require.Equal(t, uint32(1), removed)
	removed, err = l.DestroyAccounts(asset, 10)
	require.NoError(t, err)
	require.Zero(t, removed)

	removed, err = l.DestroyApprovals(asset, 10)
	require.NoError(t, err)
	require.Equal(t, uint32(1), removed)

	require.NoError(t, l.FinishDestroy(asset))
	require.False(t, l.AssetExists(asset))
	require.Equal(t, ErrUnknownAsset, l.StartDestroy(asset))
}

func TestLedger_EventsFollowTransactions(t *testing.T) {
	l, s := newTestLedger(t)
	require.NoError(t, l.Mint(alice, big.NewInt(50)))
	s.BeginTx()
	require.NoError(t, l.Transfer(alice, bob, big.NewInt(20), Expendable))
	require.NoError(t, s.RollbackTx())

	require.Equal(t, big.NewInt(50), l.FreeBalance(alice))
	require.Len(t, s.TakeEvents(), 1)
}
