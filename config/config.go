package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/idena-network/idena-communities/log"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. COMMUNITIES_DATADIR.
const EnvPrefix = "COMMUNITIES"

type Config struct {
	DataDir     string             `json:"dataDir" yaml:"dataDir"`
	Verbosity   int                `json:"verbosity" yaml:"verbosity"`
	Ledger      *LedgerConfig      `json:"ledger" yaml:"ledger"`
	Communities *CommunitiesConfig `json:"communities" yaml:"communities"`
	Referenda   *ReferendaConfig   `json:"referenda" yaml:"referenda"`
	Scheduler   *SchedulerConfig   `json:"scheduler" yaml:"scheduler"`
	Blockchain  *BlockchainConfig  `json:"blockchain" yaml:"blockchain"`
	Indexer     *IndexerConfig     `json:"indexer" yaml:"indexer"`
	GenesisConf *GenesisConf       `json:"genesis" yaml:"genesis" ignored:"true"`
}

func (c *Config) Validate() error {
	if err := c.Communities.Validate(); err != nil {
		return errors.Wrap(err, "communities")
	}
	if err := c.Referenda.Validate(); err != nil {
		return errors.Wrap(err, "referenda")
	}
	if c.Blockchain.ExtrinsicWeightCeiling() == 0 {
		return errors.New("blockchain: extrinsic weight ceiling is zero")
	}
	if c.Scheduler.MaxScheduledPerBlock == 0 {
		return errors.New("scheduler: MaxScheduledPerBlock must be positive")
	}
	return nil
}

func GetDefaultConfig() *Config {
	return &Config{
		DataDir:     DefaultDataDir,
		Verbosity:   DefaultVerbosity,
		Ledger:      GetDefaultLedgerConfig(),
		Communities: GetDefaultCommunitiesConfig(),
		Referenda:   GetDefaultReferendaConfig(),
		Scheduler:   GetDefaultSchedulerConfig(),
		Blockchain:  GetDefaultBlockchainConfig(),
		Indexer:     GetDefaultIndexerConfig(),
		GenesisConf: &GenesisConf{},
	}
}

// MakeConfig layers defaults, the optional config file, environment overrides and CLI flags.
func MakeConfig(ctx *cli.Context) (*Config, error) {
	cfg := GetDefaultConfig()

	if file := ctx.String(CfgFileFlag.Name); file != "" {
		if err := loadConfig(file, cfg); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(err, "cannot apply environment")
	}

	applyFlags(ctx, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MakeConfigFromFile(file string) (*Config, error) {
	cfg := GetDefaultConfig()
	if err := loadConfig(file, cfg); err != nil {
		return nil, err
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, errors.Wrap(err, "cannot apply environment")
	}
	return cfg, cfg.Validate()
}

func loadConfig(configPath string, conf *Config) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrapf(err, "cannot read config file %v", configPath)
	}
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, conf)
	default:
		err = json.Unmarshal(data, conf)
	}
	if err != nil {
		return errors.Wrapf(err, "cannot parse config file %v", configPath)
	}
	log.Info("Config file loaded", "path", configPath)
	return nil
}

func applyFlags(ctx *cli.Context, cfg *Config) {
	if ctx.IsSet(DataDirFlag.Name) {
		cfg.DataDir = ctx.String(DataDirFlag.Name)
	}
	if ctx.IsSet(VerbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(VerbosityFlag.Name)
	}
	if ctx.IsSet(BlockIntervalFlag.Name) {
		cfg.Blockchain.BlockInterval = ctx.Duration(BlockIntervalFlag.Name)
	}
	if ctx.IsSet(IndexerFlag.Name) {
		cfg.Indexer.Enabled = ctx.Bool(IndexerFlag.Name)
	}
	if ctx.IsSet(IndexerPathFlag.Name) {
		cfg.Indexer.Path = ctx.String(IndexerPathFlag.Name)
	}
}
