package communities

import (
	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/common"
)

type State uint8

const (
	Awaiting State = iota
	Active
	Frozen
	Blocked
	// FailedChallenge is left by a registrar whose challenge the community did not pass.
	FailedChallenge
)

func (s State) String() string {
	switch s {
	case Awaiting:
		return "Awaiting"
	case Active:
		return "Active"
	case Frozen:
		return "Frozen"
	case Blocked:
		return "Blocked"
	case FailedChallenge:
		return "FailedChallenge"
	}
	return "Unknown"
}

type Community struct {
	State              State
	HasSufficientAsset bool
	SufficientAsset    types.AssetId
}

const (
	MaxNameLen        = 64
	MaxDescriptionLen = 256
	MaxUrls           = 10
	MaxUrlLen         = 32
	MaxLocations      = 128
)

type Metadata struct {
	Name        []byte
	Description []byte
	Urls        [][]byte
	Locations   []uint32
}

func (m Metadata) Validate() error {
	if len(m.Name) > MaxNameLen {
		return ErrNameTooLong
	}
	if len(m.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if len(m.Urls) > MaxUrls {
		return ErrTooManyUrls
	}
	for _, url := range m.Urls {
		if len(url) > MaxUrlLen {
			return ErrUrlTooLong
		}
	}
	if len(m.Locations) > MaxLocations {
		return ErrTooManyLocations
	}
	return nil
}

// GasTank is the weight a membership may sponsor per Periodicity blocks.
type GasTank struct {
	Capacity    types.Weight
	Periodicity uint64
}

type GasUsage struct {
	Used  types.Weight
	Since uint64
}

type MembershipInfo struct {
	Id            types.MembershipId
	Owner         common.AccountId
	Rank          types.Rank
	HasExpiration bool
	Expiration    uint64
	HasGasTank    bool
	GasTank       GasTank
}

// Expired reports whether the membership ended before height now.
func (m MembershipInfo) Expired(now uint64) bool {
	return m.HasExpiration && now >= m.Expiration
}

type Proposal struct {
	Index    uint32
	Proposer common.AccountId
	Call     types.BoundedCall
	Origin   types.RawOrigin
}

// VoteLock keeps the asset amount a vote on Poll locked.
type VoteLock struct {
	Poll   types.PollIndex
	Amount types.Balance
}
