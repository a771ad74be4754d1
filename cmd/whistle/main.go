// whistle is the command line interface of the relay marketplace ledger.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/whistlenet/whistle/cmd/utils"
	"github.com/whistlenet/whistle/internal/flags"
)

const clientIdentifier = "whistle"

var (
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""
	gitDate   = ""
	// The app that holds all commands and flags.
	app = flags.NewApp(gitCommit, gitDate, "the whistle relay marketplace ledger")
)

func init() {
	app.Action = cli.ShowAppHelp
	app.Commands = []*cli.Command{
		initCommand,
		execCommand,
		dumpCommand,
		receiptsCommand,
		keeperCommand,
		dumpConfigCommand,
		versionCommand,
		licenseCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))

	app.Flags = flags.Merge(
		[]cli.Flag{configFileFlag},
		utils.NodeFlags,
		utils.LoggingFlags,
	)
	app.Before = func(ctx *cli.Context) error {
		cfg := loadBaseConfig(ctx)
		return utils.SetupLogging(&cfg.Node)
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
