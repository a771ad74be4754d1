package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/whistlenet/whistle/cmd/utils"
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/internal/flags"
	"github.com/whistlenet/whistle/ledger"
	"github.com/whistlenet/whistle/log"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/sysaction"
)

var (
	initCommand = &cli.Command{
		Action:    initGenesis,
		Name:      "init",
		Usage:     "Bootstrap and initialize a new ledger",
		ArgsUsage: "[<genesisPath>]",
		Flags:     configFlags,
		Description: `
The init command writes the genesis allocation and initializes the staking
pool, the payment vault and the bridge wallet. The genesis is read from the
given TOML file, or from the [Genesis] section of the config file.`,
	}
	execCommand = &cli.Command{
		Action:    execAction,
		Name:      "exec",
		Usage:     "Execute one system action",
		ArgsUsage: "<command.json>",
		Flags:     flags.Merge(configFlags, []cli.Flag{utils.FromFlag, utils.TimeFlag}),
		Description: `
The exec command applies a JSON encoded system action on behalf of --from,
commits it and prints the receipt. Use - to read the action from stdin.`,
	}
	dumpCommand = &cli.Command{
		Action:      dump,
		Name:        "dump",
		Usage:       "Tabulate the pool, the vault and all ledger records",
		ArgsUsage:   " ",
		Flags:       configFlags,
		Description: `The dump command prints every program-owned record.`,
	}
	receiptsCommand = &cli.Command{
		Action:      listReceipts,
		Name:        "receipts",
		Usage:       "Tabulate the transaction log",
		ArgsUsage:   " ",
		Flags:       flags.Merge(configFlags, []cli.Flag{utils.StartFlag, utils.LimitFlag}),
		Description: `The receipts command lists receipts starting at --start.`,
	}
)

// initGenesis commits the genesis into a fresh datadir or fails hard.
func initGenesis(ctx *cli.Context) error {
	cfg := loadBaseConfig(ctx)
	genesis := cfg.Genesis
	if ctx.NArg() > 0 {
		genesis = new(ledger.Genesis)
		if err := loadConfig(ctx.Args().First(), genesis); err != nil {
			utils.Fatalf("Failed to read genesis file: %v", err)
		}
	}
	if genesis == nil {
		utils.Fatalf("Must supply path to genesis file or a [Genesis] config section")
	}
	if genesis.Time == 0 {
		genesis.Time = time.Now().Unix()
	}
	db := utils.MakeLedgerDatabase(&cfg.Node, false)
	defer db.Close()

	if err := genesis.Commit(db); err != nil {
		utils.Fatalf("Failed to write genesis: %v", err)
	}
	log.Info("Successfully wrote genesis state", "datadir", cfg.Node.DataDir, "authority", genesis.Authority)
	return nil
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func execAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		utils.Fatalf("This command requires an argument.")
	}
	cfg := loadBaseConfig(ctx)
	from := utils.MakeAddress(ctx, utils.FromFlag)
	data, err := readInput(ctx.Args().First())
	if err != nil {
		utils.Fatalf("Failed to read command: %v", err)
	}
	if _, err := sysaction.Decode(data); err != nil {
		utils.Fatalf("Invalid command: %v", err)
	}

	l := utils.MakeLedger(&cfg.Node, false)
	defer l.Close()

	var receipt *types.Receipt
	if ctx.IsSet(utils.TimeFlag.Name) {
		receipt, err = l.Apply(types.NewCommand(from, ctx.Int64(utils.TimeFlag.Name), data))
	} else {
		receipt, err = l.Execute(from, data)
	}
	if err != nil {
		utils.Fatalf("Failed to execute command: %v", err)
	}
	out, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if receipt.Failed() {
		return errors.New(receipt.Err)
	}
	return nil
}

func dump(ctx *cli.Context) error {
	cfg := loadBaseConfig(ctx)
	l := utils.MakeLedger(&cfg.Node, true)
	defer l.Close()

	records, err := collectRecords(l)
	if err != nil {
		return err
	}
	writeRecords(os.Stdout, records)
	return nil
}

func listReceipts(ctx *cli.Context) error {
	cfg := loadBaseConfig(ctx)
	l := utils.MakeLedger(&cfg.Node, true)
	defer l.Close()

	writeReceipts(os.Stdout, l.Receipts(ctx.Uint64(utils.StartFlag.Name), ctx.Int(utils.LimitFlag.Name)))
	return nil
}

// ledgerRecords groups the decoded program records by kind.
type ledgerRecords struct {
	pools      map[common.Address]*types.StakingPool
	vaults     map[common.Address]*types.VaultRecord
	stakers    []*types.StakerRecord
	providers  []*types.ProviderRecord
	developers []*types.DeveloperRecord
	unknown    int
}

func collectRecords(l *ledger.Ledger) (*ledgerRecords, error) {
	out := &ledgerRecords{
		pools:  make(map[common.Address]*types.StakingPool),
		vaults: make(map[common.Address]*types.VaultRecord),
	}
	var decodeErr error
	err := l.Records(func(addr common.Address, data []byte) bool {
		var err error
		switch types.RecordKind(data) {
		case types.KindPool:
			var p *types.StakingPool
			if p, err = types.DecodeStakingPool(data); err == nil {
				out.pools[addr] = p
			}
		case types.KindVault:
			var v *types.VaultRecord
			if v, err = types.DecodeVaultRecord(data); err == nil {
				out.vaults[addr] = v
			}
		case types.KindStaker:
			var s *types.StakerRecord
			if s, err = types.DecodeStakerRecord(data); err == nil {
				out.stakers = append(out.stakers, s)
			}
		case types.KindProvider:
			var p *types.ProviderRecord
			if p, err = types.DecodeProviderRecord(data); err == nil {
				out.providers = append(out.providers, p)
			}
		case types.KindDeveloper:
			var d *types.DeveloperRecord
			if d, err = types.DecodeDeveloperRecord(data); err == nil {
				out.developers = append(out.developers, d)
			}
		default:
			out.unknown++
		}
		if err != nil {
			decodeErr = fmt.Errorf("record %s: %w", addr, err)
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, decodeErr
}

func whistle(v uint64) string { return params.FormatUnits(params.AssetWhistle, v) }
func native(v uint64) string  { return params.FormatUnits(params.AssetNative, v) }

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	return table
}

func writeRecords(w io.Writer, r *ledgerRecords) {
	for addr, p := range r.pools {
		fmt.Fprintf(w, "Staking pool %s\n", addr)
		table := newTable(w, "Field", "Value")
		table.AppendBulk([][]string{
			{"Authority", p.Authority.String()},
			{"Active", strconv.FormatBool(p.IsActive)},
			{"Total staked", whistle(p.TotalStaked)},
			{"Access tokens", u64(p.TotalAccessTokens)},
			{"Stakers", u64(p.TotalStakers)},
			{"Min stake", whistle(p.MinStakeAmount)},
			{"Tokens per WHISTLE", u64(p.TokensPerWhistle)},
			{"Rate locked", strconv.FormatBool(p.RateLocked)},
			{"Cooldown (s)", strconv.FormatInt(p.CooldownPeriod, 10)},
		})
		table.Render()
	}
	for addr, v := range r.vaults {
		fmt.Fprintf(w, "Payment vault %s\n", addr)
		table := newTable(w, "Field", "Value")
		table.AppendBulk([][]string{
			{"Authority", v.Authority.String()},
			{"Total collected", native(v.TotalCollected)},
			{"Provider pool", native(v.ProviderPool)},
			{"Bonus pool", native(v.BonusPool)},
			{"Treasury", native(v.Treasury)},
			{"Staker rewards", native(v.StakerRewardsPool)},
			{"Developer rebates", native(v.DeveloperRebatePool)},
			{"Total claimed", native(v.TotalClaimed)},
			{"Total slashed", native(v.TotalSlashed)},
		})
		table.Render()
	}
	if len(r.stakers) > 0 {
		fmt.Fprintln(w, "Stakers")
		table := newTable(w, "Owner", "Staked", "Access tokens", "Voting power", "Pending", "Node operator")
		for _, s := range r.stakers {
			table.Append([]string{s.Owner.String(), whistle(s.StakedAmount), u64(s.AccessTokens),
				u64(s.VotingPower), native(s.PendingRewards), strconv.FormatBool(s.NodeOperator)})
		}
		table.Render()
	}
	if len(r.providers) > 0 {
		fmt.Fprintln(w, "Providers")
		table := newTable(w, "Owner", "Active", "Bond", "Slashed", "Pending", "Served", "Reputation", "Endpoint")
		for _, p := range r.providers {
			table.Append([]string{p.Owner.String(), strconv.FormatBool(p.Active), whistle(p.BondAmount),
				whistle(p.SlashedAmount), native(p.PendingEarnings), u64(p.QueriesServed),
				u64(p.ReputationScore), p.Endpoint})
		}
		table.Render()
	}
	if len(r.developers) > 0 {
		fmt.Fprintln(w, "Developers")
		table := newTable(w, "Owner", "Tier", "Staked", "Rebate (bps)", "Queries", "Referral earnings", "Bonus")
		for _, d := range r.developers {
			table.Append([]string{d.Owner.String(), d.Tier.String(), whistle(d.WhistleStaked), u64(d.RebateBPS),
				u64(d.TotalQueries), native(d.ReferralEarnings), whistle(d.BonusRewards)})
		}
		table.Render()
	}
	if r.unknown > 0 {
		fmt.Fprintf(w, "%d program accounts without record data\n", r.unknown)
	}
}

func writeReceipts(w io.Writer, receipts types.Receipts) {
	table := newTable(w, "Seq", "Time", "From", "Action", "Status", "Cost", "Error")
	for _, r := range receipts {
		status := "ok"
		if r.Failed() {
			status = "failed"
		}
		table.Append([]string{
			u64(r.Seq),
			time.Unix(int64(r.Time), 0).UTC().Format(time.RFC3339),
			r.From.TerminalString(),
			r.Action,
			status,
			u64(r.Cost),
			r.Err,
		})
	}
	table.Render()
}
