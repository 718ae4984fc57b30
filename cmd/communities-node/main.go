package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/log"
	"github.com/idena-network/idena-communities/node"
	"gopkg.in/urfave/cli.v1"
)

func main() {
	app := cli.NewApp()
	app.Name = "communities-node"
	app.Usage = "Communities governance chain node"

	app.Flags = []cli.Flag{
		config.CfgFileFlag,
		config.DataDirFlag,
		config.VerbosityFlag,
		config.BlockIntervalFlag,
		config.IndexerFlag,
		config.IndexerPathFlag,
	}

	app.Action = func(ctx *cli.Context) error {
		cfg, err := config.MakeConfig(ctx)
		if err != nil {
			return err
		}
		log.Setup(os.Stdout, cfg.Verbosity, runtime.GOOS != "windows")
		return run(cfg)
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	n, err := node.NewNode(cfg)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := n.Start(ctx); err != nil {
		n.Stop()
		return err
	}
	<-ctx.Done()
	log.Info("Got interrupt, shutting down...")
	return n.Stop()
}
