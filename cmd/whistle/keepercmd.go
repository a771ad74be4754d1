package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/whistlenet/whistle/cmd/utils"
	"github.com/whistlenet/whistle/internal/flags"
	"github.com/whistlenet/whistle/keeper"
	"github.com/whistlenet/whistle/log"
)

var keeperCommand = &cli.Command{
	Action:    runKeeper,
	Name:      "keeper",
	Usage:     "Run the scheduled authority jobs",
	ArgsUsage: " ",
	Flags:     flags.Merge(configFlags, utils.KeeperFlags),
	Description: `
The keeper command opens the ledger and runs the bonus distribution, the
bridge reconciliation and the staker-reward checkpoint on their cron
schedules until interrupted. Commands are issued as the genesis authority.`,
}

func runKeeper(ctx *cli.Context) error {
	cfg := loadBaseConfig(ctx)
	utils.SetKeeperConfig(ctx, &cfg.Keeper)

	l := utils.MakeLedger(&cfg.Node, false)
	defer l.Close()

	k, err := keeper.New(l, cfg.Keeper)
	if err != nil {
		utils.Fatalf("Failed to create keeper: %v", err)
	}
	k.Start()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	<-sigc
	log.Info("Got interrupt, shutting down...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	k.Stop(stopCtx)
	return nil
}
