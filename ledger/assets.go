package ledger

import (
	"encoding/binary"
	"math/big"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/events"
)

type AssetStatus uint8

const (
	AssetLive AssetStatus = iota
	AssetDestroying
)

type AssetDetails struct {
	Owner        common.AccountId
	IsSufficient bool
	MinBalance   types.Balance
	Supply       types.Balance
	Accounts     uint32
	Approvals    uint32
	Status       AssetStatus
}

type AssetAccount struct {
	Balance types.Balance
	Freezes []IdAmount
}

func assetKey(id types.AssetId) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(id))
	return b
}

func approvalKey(owner, delegate common.AccountId) []byte {
	return append(owner.Bytes(), delegate.Bytes()...)
}

func (l *Ledger) AssetDetails(id types.AssetId) (AssetDetails, bool) {
	return l.assets.Get(l.state, assetKey(id))
}

func (l *Ledger) AssetExists(id types.AssetId) bool {
	return l.assets.Contains(l.state, assetKey(id))
}

func (l *Ledger) liveAsset(id types.AssetId) (AssetDetails, error) {
	details, ok := l.AssetDetails(id)
	if !ok {
		return details, ErrUnknownAsset
	}
	if details.Status != AssetLive {
		return details, ErrAssetNotLive
	}
	return details, nil
}

func (l *Ledger) CreateAsset(id types.AssetId, owner common.AccountId, isSufficient bool, minBalance *big.Int) error {
	if err := checkAmount(minBalance); err != nil {
		return err
	}
	if minBalance.Sign() == 0 {
		return ErrBelowMinimum
	}
	if l.AssetExists(id) {
		return ErrAlreadyExists
	}
	return l.assets.Put(l.state, assetKey(id), AssetDetails{
		Owner:        owner,
		IsSufficient: isSufficient,
		MinBalance:   types.NewBalance(minBalance),
		Supply:       types.NewBalance(nil),
		Status:       AssetLive,
	})
}

// AssetTotalIssuance is the current supply of the asset.
func (l *Ledger) AssetTotalIssuance(id types.AssetId) *big.Int {
	details, _ := l.AssetDetails(id)
	return details.Supply.Big()
}

func (l *Ledger) AssetMinimumBalance(id types.AssetId) *big.Int {
	details, _ := l.AssetDetails(id)
	return details.MinBalance.Big()
}

func (l *Ledger) assetAccount(id types.AssetId, who common.AccountId) (AssetAccount, bool) {
	return l.assetAccounts.Get(l.state, assetKey(id), who.Bytes())
}

func (l *Ledger) AssetBalance(id types.AssetId, who common.AccountId) *big.Int {
	account, _ := l.assetAccount(id, who)
	return account.Balance.Big()
}

func (l *Ledger) AssetFrozen(id types.AssetId, who common.AccountId) *big.Int {
	account, _ := l.assetAccount(id, who)
	return maxAmount(account.Freezes)
}

func (l *Ledger) AssetReducible(id types.AssetId, who common.AccountId, preservation Preservation) *big.Int {
	details, ok := l.AssetDetails(id)
	if !ok {
		return new(big.Int)
	}
	account, _ := l.assetAccount(id, who)
	balance := account.Balance.Big()
	untouchable := maxAmount(account.Freezes)
	if preservation == Preserve && untouchable.Cmp(details.MinBalance.Big()) < 0 {
		untouchable = details.MinBalance.Big()
	}
	if balance.Cmp(untouchable) <= 0 {
		return new(big.Int)
	}
	return balance.Sub(balance, untouchable)
}

// putAssetAccount stores the account, dropping it once empty, and keeps the account counter.
func (l *Ledger) putAssetAccount(id types.AssetId, details *AssetDetails, who common.AccountId, account AssetAccount, existed bool) {
	if account.Balance.IsZero() && len(account.Freezes) == 0 {
		l.assetAccounts.Remove(l.state, assetKey(id), who.Bytes())
		if existed {
			details.Accounts--
		}
		return
	}
	l.assetAccounts.Put(l.state, assetKey(id), who.Bytes(), account)
	if !existed {
		details.Accounts++
	}
}

func (l *Ledger) MintAsset(id types.AssetId, to common.AccountId, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	details, err := l.liveAsset(id)
	if err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	account, existed := l.assetAccount(id, to)
	if !existed && amount.Cmp(details.MinBalance.Big()) < 0 {
		return ErrBelowMinimum
	}
	account.Balance = types.NewBalance(new(big.Int).Add(account.Balance.Big(), amount))
	l.putAssetAccount(id, &details, to, account, existed)
	details.Supply = types.NewBalance(new(big.Int).Add(details.Supply.Big(), amount))
	l.assets.Put(l.state, assetKey(id), details)
	l.state.AddEvent(&events.AssetIssuedEvent{Asset: id, Who: to, Amount: new(big.Int).Set(amount)})
	return nil
}

func (l *Ledger) BurnAsset(id types.AssetId, from common.AccountId, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	details, err := l.liveAsset(id)
	if err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	if amount.Cmp(l.AssetReducible(id, from, Expendable)) > 0 {
		return ErrInsufficientBalance
	}
	account, existed := l.assetAccount(id, from)
	account.Balance = types.NewBalance(new(big.Int).Sub(account.Balance.Big(), amount))
	l.putAssetAccount(id, &details, from, account, existed)
	details.Supply = types.NewBalance(new(big.Int).Sub(details.Supply.Big(), amount))
	l.assets.Put(l.state, assetKey(id), details)
	l.state.AddEvent(&events.AssetBurnedEvent{Asset: id, Who: from, Amount: new(big.Int).Set(amount)})
	return nil
}

func (l *Ledger) TransferAsset(id types.AssetId, from, to common.AccountId, amount *big.Int, preservation Preservation) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	details, err := l.liveAsset(id)
	if err != nil {
		return err
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	if amount.Cmp(l.AssetReducible(id, from, Expendable)) > 0 {
		return ErrInsufficientBalance
	}
	if amount.Cmp(l.AssetReducible(id, from, preservation)) > 0 {
		return ErrWouldKill
	}
	src, srcExisted := l.assetAccount(id, from)
	remaining := new(big.Int).Sub(src.Balance.Big(), amount)
	if remaining.Sign() > 0 && remaining.Cmp(details.MinBalance.Big()) < 0 {
		return ErrWouldKill
	}
	dst, dstExisted := l.assetAccount(id, to)
	if !dstExisted && amount.Cmp(details.MinBalance.Big()) < 0 {
		return ErrBelowMinimum
	}
	src.Balance = types.NewBalance(remaining)
	l.putAssetAccount(id, &details, from, src, srcExisted)
	dst.Balance = types.NewBalance(new(big.Int).Add(dst.Balance.Big(), amount))
	l.putAssetAccount(id, &details, to, dst, dstExisted)
	l.assets.Put(l.state, assetKey(id), details)
	l.state.AddEvent(&events.AssetTransferredEvent{Asset: id, From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// SetAssetFreeze replaces the asset freeze named freezeId on who's account.
func (l *Ledger) SetAssetFreeze(id types.AssetId, who common.AccountId, freezeId []byte, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	details, ok := l.AssetDetails(id)
	if !ok {
		return ErrUnknownAsset
	}
	if amount.Sign() == 0 {
		l.ThawAsset(id, who, freezeId)
		return nil
	}
	account, existed := l.assetAccount(id, who)
	if !existed {
		return ErrInsufficientBalance
	}
	account.Freezes = setEntry(account.Freezes, freezeId, amount)
	l.putAssetAccount(id, &details, who, account, existed)
	l.assets.Put(l.state, assetKey(id), details)
	return nil
}

func (l *Ledger) ThawAsset(id types.AssetId, who common.AccountId, freezeId []byte) {
	details, ok := l.AssetDetails(id)
	if !ok {
		return
	}
	account, existed := l.assetAccount(id, who)
	if !existed {
		return
	}
	account.Freezes = removeEntry(account.Freezes, freezeId)
	l.putAssetAccount(id, &details, who, account, existed)
	l.assets.Put(l.state, assetKey(id), details)
}

func (l *Ledger) ApproveTransfer(id types.AssetId, owner, delegate common.AccountId, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	details, err := l.liveAsset(id)
	if err != nil {
		return err
	}
	key := approvalKey(owner, delegate)
	current, existed := l.approvals.Get(l.state, assetKey(id), key)
	l.approvals.Put(l.state, assetKey(id), key, types.NewBalance(new(big.Int).Add(current.Big(), amount)))
	if !existed {
		details.Approvals++
		l.assets.Put(l.state, assetKey(id), details)
	}
	return nil
}

func (l *Ledger) Allowance(id types.AssetId, owner, delegate common.AccountId) *big.Int {
	v, _ := l.approvals.Get(l.state, assetKey(id), approvalKey(owner, delegate))
	return v.Big()
}

// TransferApproved spends an allowance granted by owner to delegate.
func (l *Ledger) TransferApproved(id types.AssetId, owner, delegate, dest common.AccountId, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	allowance := l.Allowance(id, owner, delegate)
	if allowance.Cmp(amount) < 0 {
		return ErrUnapproved
	}
	if err := l.TransferAsset(id, owner, dest, amount, Expendable); err != nil {
		return err
	}
	key := approvalKey(owner, delegate)
	left := allowance.Sub(allowance, amount)
	if left.Sign() > 0 {
		l.approvals.Put(l.state, assetKey(id), key, types.NewBalance(left))
		return nil
	}
	l.approvals.Remove(l.state, assetKey(id), key)
	details, _ := l.AssetDetails(id)
	details.Approvals--
	l.assets.Put(l.state, assetKey(id), details)
	return nil
}

// StartDestroy moves a live asset into the destroying phase. Repeating it is a no-op.
func (l *Ledger) StartDestroy(id types.AssetId) error {
	details, ok := l.AssetDetails(id)
	if !ok {
		return ErrUnknownAsset
	}
	if details.Status == AssetDestroying {
		return nil
	}
	details.Status = AssetDestroying
	return l.assets.Put(l.state, assetKey(id), details)
}

func (l *Ledger) destroying(id types.AssetId) (AssetDetails, error) {
	details, ok := l.AssetDetails(id)
	if !ok {
		return details, ErrUnknownAsset
	}
	if details.Status != AssetDestroying {
		return details, ErrIncorrectStatus
	}
	return details, nil
}

// DestroyAccounts removes up to max holder accounts of a destroying asset.
func (l *Ledger) DestroyAccounts(id types.AssetId, max uint32) (uint32, error) {
	details, err := l.destroying(id)
	if err != nil || max == 0 {
		return 0, err
	}
	var holders [][]byte
	l.assetAccounts.IteratePrefix(l.state, assetKey(id), func(key2 []byte, value AssetAccount) bool {
		holders = append(holders, key2)
		details.Supply = types.NewBalance(new(big.Int).Sub(details.Supply.Big(), value.Balance.Big()))
		return uint32(len(holders)) >= max
	})
	for _, who := range holders {
		l.assetAccounts.Remove(l.state, assetKey(id), who)
		details.Accounts--
	}
	if err := l.assets.Put(l.state, assetKey(id), details); err != nil {
		return 0, err
	}
	return uint32(len(holders)), nil
}

// DestroyApprovals removes up to max approvals of a destroying asset.
func (l *Ledger) DestroyApprovals(id types.AssetId, max uint32) (uint32, error) {
	details, err := l.destroying(id)
	if err != nil || max == 0 {
		return 0, err
	}
	var keys [][]byte
	l.approvals.IteratePrefix(l.state, assetKey(id), func(key2 []byte, value types.Balance) bool {
		keys = append(keys, key2)
		return uint32(len(keys)) >= max
	})
	for _, k := range keys {
		l.approvals.Remove(l.state, assetKey(id), k)
		details.Approvals--
	}
	if err := l.assets.Put(l.state, assetKey(id), details); err != nil {
		return 0, err
	}
	return uint32(len(keys)), nil
}

// FinishDestroy drops the asset once every account and approval is gone.
func (l *Ledger) FinishDestroy(id types.AssetId) error {
	details, err := l.destroying(id)
	if err != nil {
		return err
	}
	if details.Accounts > 0 || details.Approvals > 0 {
		return ErrInUse
	}
	l.assets.Remove(l.state, assetKey(id))
	return nil
}
