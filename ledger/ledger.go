package ledger

import (
	"math/big"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/state"
	"github.com/idena-network/idena-communities/events"
	"github.com/idena-network/idena-communities/log"
	"github.com/pkg/errors"
)

const (
	balancesPallet = "Balances"
	assetsPallet   = "Assets"
)

// Preservation tells a withdrawal whether the source account must stay alive.
type Preservation uint8

const (
	Expendable Preservation = iota
	Preserve
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrWouldKill           = errors.New("account would be killed")
	ErrBelowMinimum        = errors.New("amount is below the minimum balance")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrUnknownAsset        = errors.New("unknown asset")
	ErrAlreadyExists       = errors.New("asset already exists")
	ErrInUse               = errors.New("asset is in use")
	ErrAssetNotLive        = errors.New("asset is not live")
	ErrIncorrectStatus     = errors.New("asset is in incorrect status")
	ErrUnapproved          = errors.New("no approval for the amount")
)

// IdAmount is a named freeze or hold.
type IdAmount struct {
	Id     []byte
	Amount types.Balance
}

type AccountData struct {
	Free     types.Balance
	Reserved types.Balance
}

// Ledger keeps native balances and community-issued assets.
type Ledger struct {
	state              *state.StateDB
	existentialDeposit *big.Int
	log                log.Logger

	accounts      state.Map[AccountData]
	freezes       state.Map[[]IdAmount]
	holds         state.Map[[]IdAmount]
	totalIssuance state.Value[types.Balance]

	assets        state.Map[AssetDetails]
	assetAccounts state.DoubleMap[AssetAccount]
	approvals     state.DoubleMap[types.Balance]
}

func New(s *state.StateDB, cfg *config.LedgerConfig) *Ledger {
	return &Ledger{
		state:              s,
		existentialDeposit: new(big.Int).SetUint64(cfg.ExistentialDeposit),
		log:                log.New("module", "ledger"),
		accounts:           state.NewMap[AccountData](balancesPallet, "Account", state.Blake2_128Concat),
		freezes:            state.NewMap[[]IdAmount](balancesPallet, "Freezes", state.Blake2_128Concat),
		holds:              state.NewMap[[]IdAmount](balancesPallet, "Holds", state.Blake2_128Concat),
		totalIssuance:      state.NewValue[types.Balance](balancesPallet, "TotalIssuance"),
		assets:             state.NewMap[AssetDetails](assetsPallet, "Asset", state.Blake2_128Concat),
		assetAccounts:      state.NewDoubleMap[AssetAccount](assetsPallet, "Account", state.Blake2_128Concat, state.Blake2_128Concat),
		approvals:          state.NewDoubleMap[types.Balance](assetsPallet, "Approvals", state.Blake2_128Concat, state.Blake2_128Concat),
	}
}

func (l *Ledger) MinimumBalance() *big.Int {
	return new(big.Int).Set(l.existentialDeposit)
}

func (l *Ledger) account(who common.AccountId) (AccountData, bool) {
	return l.accounts.Get(l.state, who.Bytes())
}

func (l *Ledger) Exists(who common.AccountId) bool {
	return l.accounts.Contains(l.state, who.Bytes())
}

func (l *Ledger) FreeBalance(who common.AccountId) *big.Int {
	data, _ := l.account(who)
	return data.Free.Big()
}

func (l *Ledger) ReservedBalance(who common.AccountId) *big.Int {
	data, _ := l.account(who)
	return data.Reserved.Big()
}

// Frozen is the largest freeze placed on the account.
func (l *Ledger) Frozen(who common.AccountId) *big.Int {
	list, _ := l.freezes.Get(l.state, who.Bytes())
	return maxAmount(list)
}

// Reducible is the part of the free balance that may be withdrawn.
func (l *Ledger) Reducible(who common.AccountId, preservation Preservation) *big.Int {
	free := l.FreeBalance(who)
	untouchable := l.Frozen(who)
	if preservation == Preserve && untouchable.Cmp(l.existentialDeposit) < 0 {
		untouchable = l.MinimumBalance()
	}
	if free.Cmp(untouchable) <= 0 {
		return new(big.Int)
	}
	return free.Sub(free, untouchable)
}

func (l *Ledger) TotalIssuance() *big.Int {
	v, _ := l.totalIssuance.Get(l.state)
	return v.Big()
}

func (l *Ledger) putAccount(who common.AccountId, data AccountData) {
	if data.Free.IsZero() && data.Reserved.IsZero() && !l.freezes.Contains(l.state, who.Bytes()) {
		l.accounts.Remove(l.state, who.Bytes())
		return
	}
	l.accounts.Put(l.state, who.Bytes(), data)
}

func (l *Ledger) addIssuance(delta *big.Int) {
	v := l.TotalIssuance()
	l.totalIssuance.Put(l.state, types.NewBalance(v.Add(v, delta)))
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// canWithdraw checks that amount may leave who's free balance under the preservation rule.
func (l *Ledger) canWithdraw(who common.AccountId, amount *big.Int, preservation Preservation) error {
	if amount.Cmp(l.Reducible(who, Expendable)) > 0 {
		return ErrInsufficientBalance
	}
	if amount.Cmp(l.Reducible(who, preservation)) > 0 {
		return ErrWouldKill
	}
	return nil
}

// canDeposit rejects creating an account with less than the minimum balance.
func (l *Ledger) canDeposit(who common.AccountId, amount *big.Int) error {
	if !l.Exists(who) && amount.Cmp(l.existentialDeposit) < 0 {
		return ErrBelowMinimum
	}
	return nil
}

func (l *Ledger) Transfer(from, to common.AccountId, amount *big.Int, preservation Preservation) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 || from == to {
		return nil
	}
	if err := l.canWithdraw(from, amount, preservation); err != nil {
		return err
	}
	if err := l.canDeposit(to, amount); err != nil {
		return err
	}
	src, _ := l.account(from)
	src.Free = types.NewBalance(new(big.Int).Sub(src.Free.Big(), amount))
	l.putAccount(from, src)

	dst, _ := l.account(to)
	dst.Free = types.NewBalance(new(big.Int).Add(dst.Free.Big(), amount))
	l.putAccount(to, dst)

	l.state.AddEvent(&events.TransferEvent{From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

func (l *Ledger) Mint(to common.AccountId, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	if err := l.canDeposit(to, amount); err != nil {
		return err
	}
	data, _ := l.account(to)
	data.Free = types.NewBalance(new(big.Int).Add(data.Free.Big(), amount))
	l.putAccount(to, data)
	l.addIssuance(amount)
	l.state.AddEvent(&events.MintedEvent{Who: to, Amount: new(big.Int).Set(amount)})
	return nil
}

func (l *Ledger) Burn(from common.AccountId, amount *big.Int, preservation Preservation) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	if err := l.canWithdraw(from, amount, preservation); err != nil {
		return err
	}
	data, _ := l.account(from)
	data.Free = types.NewBalance(new(big.Int).Sub(data.Free.Big(), amount))
	l.putAccount(from, data)
	l.addIssuance(new(big.Int).Neg(amount))
	l.state.AddEvent(&events.BurnedEvent{Who: from, Amount: new(big.Int).Set(amount)})
	return nil
}

// SetFreeze replaces the freeze named id. Freezes overlap: the frozen amount is their maximum.
func (l *Ledger) SetFreeze(id []byte, who common.AccountId, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		l.Thaw(id, who)
		return nil
	}
	list, _ := l.freezes.Get(l.state, who.Bytes())
	if err := l.freezes.Put(l.state, who.Bytes(), setEntry(list, id, amount)); err != nil {
		return err
	}
	if !l.Exists(who) {
		return l.accounts.Put(l.state, who.Bytes(), AccountData{Free: types.NewBalance(nil), Reserved: types.NewBalance(nil)})
	}
	return nil
}

func (l *Ledger) Thaw(id []byte, who common.AccountId) {
	list, _ := l.freezes.Get(l.state, who.Bytes())
	list = removeEntry(list, id)
	if len(list) == 0 {
		l.freezes.Remove(l.state, who.Bytes())
	} else {
		l.freezes.Put(l.state, who.Bytes(), list)
	}
	data, _ := l.account(who)
	l.putAccount(who, data)
}

func (l *Ledger) FreezeOf(id []byte, who common.AccountId) *big.Int {
	list, _ := l.freezes.Get(l.state, who.Bytes())
	return entryAmount(list, id)
}

// Hold moves amount from the free balance into the reserve named reason. Holds accumulate.
func (l *Ledger) Hold(reason []byte, who common.AccountId, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if amount.Sign() == 0 {
		return nil
	}
	if err := l.canWithdraw(who, amount, Expendable); err != nil {
		return err
	}
	data, _ := l.account(who)
	data.Free = types.NewBalance(new(big.Int).Sub(data.Free.Big(), amount))
	data.Reserved = types.NewBalance(new(big.Int).Add(data.Reserved.Big(), amount))
	l.putAccount(who, data)

	list, _ := l.holds.Get(l.state, who.Bytes())
	held := entryAmount(list, reason)
	return l.holds.Put(l.state, who.Bytes(), setEntry(list, reason, held.Add(held, amount)))
}

func (l *Ledger) Held(reason []byte, who common.AccountId) *big.Int {
	list, _ := l.holds.Get(l.state, who.Bytes())
	return entryAmount(list, reason)
}

func (l *Ledger) takeHold(reason []byte, who common.AccountId) *big.Int {
	list, _ := l.holds.Get(l.state, who.Bytes())
	held := entryAmount(list, reason)
	if held.Sign() == 0 {
		return held
	}
	list = removeEntry(list, reason)
	if len(list) == 0 {
		l.holds.Remove(l.state, who.Bytes())
	} else {
		l.holds.Put(l.state, who.Bytes(), list)
	}
	return held
}

// Release returns the whole hold named reason to the free balance.
func (l *Ledger) Release(reason []byte, who common.AccountId) *big.Int {
	held := l.takeHold(reason, who)
	if held.Sign() == 0 {
		return held
	}
	data, _ := l.account(who)
	data.Reserved = types.NewBalance(new(big.Int).Sub(data.Reserved.Big(), held))
	data.Free = types.NewBalance(new(big.Int).Add(data.Free.Big(), held))
	l.putAccount(who, data)
	return held
}

// Slash burns the whole hold named reason.
func (l *Ledger) Slash(reason []byte, who common.AccountId) *big.Int {
	held := l.takeHold(reason, who)
	if held.Sign() == 0 {
		return held
	}
	data, _ := l.account(who)
	data.Reserved = types.NewBalance(new(big.Int).Sub(data.Reserved.Big(), held))
	l.putAccount(who, data)
	l.addIssuance(new(big.Int).Neg(held))
	l.state.AddEvent(&events.SlashedEvent{Who: who, Reason: string(reason), Amount: new(big.Int).Set(held)})
	return held
}

func maxAmount(list []IdAmount) *big.Int {
	result := new(big.Int)
	for _, e := range list {
		if e.Amount.Big().Cmp(result) > 0 {
			result = e.Amount.Big()
		}
	}
	return result
}

func entryAmount(list []IdAmount, id []byte) *big.Int {
	for _, e := range list {
		if string(e.Id) == string(id) {
			return e.Amount.Big()
		}
	}
	return new(big.Int)
}

func setEntry(list []IdAmount, id []byte, amount *big.Int) []IdAmount {
	for i := range list {
		if string(list[i].Id) == string(id) {
			list[i].Amount = types.NewBalance(amount)
			return list
		}
	}
	return append(list, IdAmount{Id: append([]byte{}, id...), Amount: types.NewBalance(amount)})
}

func removeEntry(list []IdAmount, id []byte) []IdAmount {
	result := list[:0]
	for _, e := range list {
		if string(e.Id) != string(id) {
			result = append(result, e)
		}
	}
	return result
}
