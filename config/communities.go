package config

import (
	"github.com/pkg/errors"
)

type LedgerConfig struct {
	ExistentialDeposit uint64 `json:"existentialDeposit" yaml:"existentialDeposit"`
}

func GetDefaultLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		ExistentialDeposit: 10,
	}
}

type CommunitiesConfig struct {
	// PalletId seeds the derived community accounts and must be exactly 8 bytes.
	PalletId         string   `json:"palletId" yaml:"palletId"`
	MaxProposals     uint32   `json:"maxProposals" yaml:"maxProposals"`
	MaxCallLen       uint32   `json:"maxCallLen" yaml:"maxCallLen"`
	MaxInlineCallLen uint32   `json:"maxInlineCallLen" yaml:"maxInlineCallLen"`
	ProposalDeposit  uint64   `json:"proposalDeposit" yaml:"proposalDeposit"`
	VoteLockPeriod   uint64   `json:"voteLockPeriod" yaml:"voteLockPeriod"`
	Registrars       []string `json:"registrars" yaml:"registrars"`
}

func GetDefaultCommunitiesConfig() *CommunitiesConfig {
	return &CommunitiesConfig{
		PalletId:         "kv/comms",
		MaxProposals:     16,
		MaxCallLen:       4096,
		MaxInlineCallLen: 128,
		ProposalDeposit:  0,
		VoteLockPeriod:   10,
	}
}

func (c *CommunitiesConfig) Validate() error {
	if len(c.PalletId) != 8 {
		return errors.Errorf("pallet id %q must be 8 bytes", c.PalletId)
	}
	if c.MaxProposals == 0 {
		return errors.New("MaxProposals must be positive")
	}
	if c.MaxInlineCallLen > c.MaxCallLen {
		return errors.New("MaxInlineCallLen exceeds MaxCallLen")
	}
	return nil
}
