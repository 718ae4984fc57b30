package main

import (
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/idena-network/idena-communities/blockchain/types"
	"github.com/idena-network/idena-communities/config"
	"github.com/idena-network/idena-communities/core/appstate"
	"github.com/idena-network/idena-communities/database"
	"github.com/idena-network/idena-communities/log"
	"github.com/idena-network/idena-communities/node"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"
)

type memberSnapshot struct {
	Account string `yaml:"account"`
	Rank    uint8  `yaml:"rank"`
	Index   uint32 `yaml:"index"`
}

type communitySnapshot struct {
	Id        uint16           `yaml:"id"`
	State     string           `yaml:"state"`
	Account   string           `yaml:"account"`
	Balance   string           `yaml:"balance"`
	Strategy  string           `yaml:"strategy"`
	RankSum   uint32           `yaml:"rankSum"`
	Proposals int              `yaml:"proposals"`
	Members   []memberSnapshot `yaml:"members"`
}

type snapshot struct {
	Height        uint64              `yaml:"height"`
	StateRoot     string              `yaml:"stateRoot"`
	TotalIssuance string              `yaml:"totalIssuance"`
	Communities   []communitySnapshot `yaml:"communities"`
}

var outFlag = cli.StringFlag{
	Name:  "out",
	Usage: "Snapshot output file",
	Value: "stategen.out",
}

func main() {
	app := cli.NewApp()
	app.Name = "stategen"
	app.Usage = "Dump the communities state at the chain head"

	app.Flags = []cli.Flag{
		config.CfgFileFlag,
		config.DataDirFlag,
		config.VerbosityFlag,
		outFlag,
	}

	app.Action = func(context *cli.Context) error {
		log.Setup(os.Stderr, context.Int(config.VerbosityFlag.Name), runtime.GOOS != "windows")

		if !context.IsSet(config.DataDirFlag.Name) {
			return errors.New("datadir option is required")
		}
		cfg, err := config.MakeConfig(context)
		if err != nil {
			return err
		}
		db, err := node.OpenChainDatabase(cfg.DataDir)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := database.NewRepo(db)

		head := repo.ReadHead()
		if head == nil {
			return errors.New("head is not found")
		}
		appState, err := appstate.NewAppState(db, cfg)
		if err != nil {
			return err
		}
		if err := appState.Initialize(head.Height); err != nil {
			return errors.Wrapf(err, "cannot load state at %d", head.Height)
		}

		result := collect(appState)
		result.Height = head.Height
		result.StateRoot = head.StateRoot.Hex()

		file, err := os.Create(context.String(outFlag.Name))
		if err != nil {
			return err
		}
		defer file.Close()
		encoder := yaml.NewEncoder(file)
		defer encoder.Close()
		if err := encoder.Encode(result); err != nil {
			return err
		}
		log.Info("State snapshot written", "height", head.Height, "communities", len(result.Communities), "out", file.Name())
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func collect(appState *appstate.AppState) *snapshot {
	c := appState.Communities
	result := &snapshot{
		TotalIssuance: appState.Ledger.TotalIssuance().String(),
	}
	for id := 0; id <= math.MaxUint16; id++ {
		cid := types.CommunityId(id)
		info, ok := c.Info(cid)
		if !ok {
			continue
		}
		account := c.CommunityAccount(cid)
		item := communitySnapshot{
			Id:        uint16(cid),
			State:     info.State.String(),
			Account:   account.Hex(),
			Balance:   appState.Ledger.FreeBalance(account).String(),
			RankSum:   c.RankSum(cid),
			Proposals: len(c.Proposals(cid)),
		}
		if strategy, ok := c.Strategy(cid); ok {
			item.Strategy = fmt.Sprintf("%+v", strategy)
		}
		for _, who := range c.MembersOf(cid) {
			membership, ok := c.MembershipOf(cid, who)
			if !ok {
				continue
			}
			item.Members = append(item.Members, memberSnapshot{
				Account: who.Hex(),
				Rank:    uint8(membership.Rank),
				Index:   membership.Id.Index,
			})
		}
		result.Communities = append(result.Communities, item)
	}
	return result
}
