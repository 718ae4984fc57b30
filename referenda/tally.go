package referenda

import (
	"math/big"

	"github.com/idena-network/idena-communities/blockchain/types"
)

// Tally accumulates the votes of one poll. BareAyes counts aye voters regardless of weight.
type Tally struct {
	Ayes     types.Balance
	Nays     types.Balance
	BareAyes uint32
	Voters   uint32
}

type Vote struct {
	Aye    bool
	Weight types.Balance
}

func (t *Tally) add(v Vote) {
	if v.Aye {
		t.Ayes = types.NewBalance(new(big.Int).Add(t.Ayes.Big(), v.Weight.Big()))
		t.BareAyes++
	} else {
		t.Nays = types.NewBalance(new(big.Int).Add(t.Nays.Big(), v.Weight.Big()))
	}
	t.Voters++
}

func (t *Tally) remove(v Vote) {
	if v.Aye {
		t.Ayes = types.NewBalance(subFloor(t.Ayes.Big(), v.Weight.Big()))
		if t.BareAyes > 0 {
			t.BareAyes--
		}
	} else {
		t.Nays = types.NewBalance(subFloor(t.Nays.Big(), v.Weight.Big()))
	}
	if t.Voters > 0 {
		t.Voters--
	}
}

// Support is ayes over the largest possible aye weight.
func (t Tally) Support(maxAyes *big.Int) (num, denum *big.Int) {
	return t.Ayes.Big(), new(big.Int).Set(maxAyes)
}

// Approval is ayes over all cast weight, with the denominator at least one.
func (t Tally) Approval() (num, denum *big.Int) {
	ayes := t.Ayes.Big()
	total := new(big.Int).Add(ayes, t.Nays.Big())
	if total.Sign() == 0 {
		total.SetInt64(1)
	}
	return ayes, total
}

func subFloor(a, b *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	if r.Sign() < 0 {
		return new(big.Int)
	}
	return r
}
