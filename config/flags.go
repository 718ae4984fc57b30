package config

import (
	"time"

	"gopkg.in/urfave/cli.v1"
)

const (
	DefaultDataDir       = "datadir"
	DefaultVerbosity     = 3
	DefaultBlockInterval = 6 * time.Second
)

var (
	CfgFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "JSON or YAML configuration file",
	}
	DataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "datadir for chain state",
	}
	VerbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Log verbosity (0-5)",
		Value: DefaultVerbosity,
	}
	BlockIntervalFlag = cli.DurationFlag{
		Name:  "blockinterval",
		Usage: "Interval between produced blocks",
	}
	IndexerFlag = cli.BoolFlag{
		Name:  "indexer",
		Usage: "Index community events into sqlite",
	}
	IndexerPathFlag = cli.StringFlag{
		Name:  "indexerpath",
		Usage: "Path to the sqlite event index (in-memory when empty)",
	}
)
