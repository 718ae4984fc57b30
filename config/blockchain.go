package config

import (
	"time"
)

type BlockchainConfig struct {
	// MaxBlockRefTime is the block weight limit in picoseconds of reference time.
	MaxBlockRefTime     uint64        `json:"maxBlockRefTime" yaml:"maxBlockRefTime"`
	NormalDispatchRatio uint64        `json:"normalDispatchRatio" yaml:"normalDispatchRatio"`
	OnInitializeBudget  uint64        `json:"onInitializeBudget" yaml:"onInitializeBudget"`
	BaseExtrinsic       uint64        `json:"baseExtrinsic" yaml:"baseExtrinsic"`
	BlockInterval       time.Duration `json:"blockInterval" yaml:"blockInterval"`
	SavedStatesCount    int64         `json:"savedStatesCount" yaml:"savedStatesCount"`
}

func GetDefaultBlockchainConfig() *BlockchainConfig {
	return &BlockchainConfig{
		MaxBlockRefTime:     2_000_000_000_000,
		NormalDispatchRatio: 75,
		OnInitializeBudget:  200_000_000_000,
		BaseExtrinsic:       125_000_000,
		BlockInterval:       DefaultBlockInterval,
		SavedStatesCount:    100,
	}
}

// NormalDispatchLimit is the share of the block available to extrinsics.
func (c *BlockchainConfig) NormalDispatchLimit() uint64 {
	return c.MaxBlockRefTime / 100 * c.NormalDispatchRatio
}

// ExtrinsicWeightCeiling is the largest weight a single normal extrinsic may declare:
// max_block_ref_time * ratio - on_initialize_budget - base_extrinsic.
func (c *BlockchainConfig) ExtrinsicWeightCeiling() uint64 {
	limit := c.NormalDispatchLimit()
	reserved := c.OnInitializeBudget + c.BaseExtrinsic
	if reserved >= limit {
		return 0
	}
	return limit - reserved
}

type SchedulerConfig struct {
	MaxScheduledPerBlock uint32 `json:"maxScheduledPerBlock" yaml:"maxScheduledPerBlock"`
	MaxRetries           uint32 `json:"maxRetries" yaml:"maxRetries"`
}

func GetDefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		MaxScheduledPerBlock: 50,
		MaxRetries:           3,
	}
}

type IndexerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

func GetDefaultIndexerConfig() *IndexerConfig {
	return &IndexerConfig{}
}
