// Package utils contains internal helper functions for whistle commands.
package utils

import (
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/rawdb"
	"github.com/whistlenet/whistle/internal/flags"
	"github.com/whistlenet/whistle/keeper"
	"github.com/whistlenet/whistle/ledger"
	"github.com/whistlenet/whistle/log"
)

// NodeConfig holds the local settings of a ledger instance.
type NodeConfig struct {
	DataDir   string
	Cache     int // MB, split between leveldb and the account cache
	Handles   int
	LogLevel  string
	LogFormat string
}

// DefaultDataDir is the default data directory for the ledger database.
func DefaultDataDir() string {
	if home := flags.HomeDir(); home != "" {
		return filepath.Join(home, ".whistle")
	}
	return ""
}

// DefaultNodeConfig contains reasonable default settings.
var DefaultNodeConfig = NodeConfig{
	DataDir:   DefaultDataDir(),
	Cache:     64,
	Handles:   256,
	LogLevel:  "info",
	LogFormat: "console",
}

// These are all the command line flags we support.
// If you add to this list, please remember to include the
// flag in the appropriate command definition.
var (
	DataDirFlag = &cli.StringFlag{
		Name:     "datadir",
		Usage:    "Data directory for the ledger database",
		Value:    DefaultNodeConfig.DataDir,
		Category: flags.LedgerCategory,
	}
	CacheFlag = &cli.IntFlag{
		Name:     "cache",
		Usage:    "Megabytes of memory allocated to database and account caching",
		Value:    DefaultNodeConfig.Cache,
		Category: flags.PerfCategory,
	}
	LogLevelFlag = &cli.StringFlag{
		Name:     "log.level",
		Usage:    "Log level (trace, debug, info, warn, error, crit)",
		Value:    DefaultNodeConfig.LogLevel,
		Category: flags.LoggingCategory,
	}
	LogFormatFlag = &cli.StringFlag{
		Name:     "log.format",
		Usage:    "Log encoding (console, json)",
		Value:    DefaultNodeConfig.LogFormat,
		Category: flags.LoggingCategory,
	}

	// Command execution
	FromFlag = &cli.StringFlag{
		Name:     "from",
		Usage:    "Authenticated signer of the command (hex or base58 address)",
		Category: flags.CommandCategory,
	}
	TimeFlag = &cli.Int64Flag{
		Name:     "time",
		Usage:    "Command timestamp in unix seconds (default = now)",
		Category: flags.CommandCategory,
	}
	StartFlag = &cli.Uint64Flag{
		Name:     "start",
		Usage:    "First receipt sequence number to list",
		Category: flags.CommandCategory,
	}
	LimitFlag = &cli.IntFlag{
		Name:     "limit",
		Usage:    "Maximum number of receipts to list (0 = all)",
		Value:    100,
		Category: flags.CommandCategory,
	}

	// Keeper schedules
	KeeperBonusFlag = &cli.StringFlag{
		Name:     "keeper.bonus",
		Usage:    "Cron schedule of the bonus distribution (empty = disabled)",
		Value:    keeper.DefaultConfig.BonusSpec,
		Category: flags.KeeperCategory,
	}
	KeeperBridgeFlag = &cli.StringFlag{
		Name:     "keeper.bridge",
		Usage:    "Cron schedule of the bridge reconciliation (empty = disabled)",
		Value:    keeper.DefaultConfig.BridgeSpec,
		Category: flags.KeeperCategory,
	}
	KeeperStakerFlag = &cli.StringFlag{
		Name:     "keeper.staker",
		Usage:    "Cron schedule of the staker-reward checkpoint (empty = disabled)",
		Value:    keeper.DefaultConfig.StakerSpec,
		Category: flags.KeeperCategory,
	}
	KeeperBatchFlag = &cli.IntFlag{
		Name:     "keeper.batch",
		Usage:    "Providers per bonus distribution batch",
		Value:    keeper.DefaultConfig.BatchSize,
		Category: flags.KeeperCategory,
	}
)

var (
	// NodeFlags are accepted by every command that opens the ledger.
	NodeFlags = []cli.Flag{
		DataDirFlag,
		CacheFlag,
	}
	// LoggingFlags configure the process logger.
	LoggingFlags = []cli.Flag{
		LogLevelFlag,
		LogFormatFlag,
	}
	// KeeperFlags configure the keeper schedules.
	KeeperFlags = []cli.Flag{
		KeeperBonusFlag,
		KeeperBridgeFlag,
		KeeperStakerFlag,
		KeeperBatchFlag,
	}
)

// SetNodeConfig applies node-related command line flags to the config.
func SetNodeConfig(ctx *cli.Context, cfg *NodeConfig) {
	if ctx.IsSet(DataDirFlag.Name) {
		cfg.DataDir = flags.ExpandPath(ctx.String(DataDirFlag.Name))
	}
	if ctx.IsSet(CacheFlag.Name) {
		cfg.Cache = ctx.Int(CacheFlag.Name)
	}
	if ctx.IsSet(LogLevelFlag.Name) {
		cfg.LogLevel = ctx.String(LogLevelFlag.Name)
	}
	if ctx.IsSet(LogFormatFlag.Name) {
		cfg.LogFormat = ctx.String(LogFormatFlag.Name)
	}
}

// SetKeeperConfig applies keeper-related command line flags to the config.
func SetKeeperConfig(ctx *cli.Context, cfg *keeper.Config) {
	if ctx.IsSet(KeeperBonusFlag.Name) {
		cfg.BonusSpec = ctx.String(KeeperBonusFlag.Name)
	}
	if ctx.IsSet(KeeperBridgeFlag.Name) {
		cfg.BridgeSpec = ctx.String(KeeperBridgeFlag.Name)
	}
	if ctx.IsSet(KeeperStakerFlag.Name) {
		cfg.StakerSpec = ctx.String(KeeperStakerFlag.Name)
	}
	if ctx.IsSet(KeeperBatchFlag.Name) {
		cfg.BatchSize = ctx.Int(KeeperBatchFlag.Name)
	}
}

// SetupLogging installs the process logger described by cfg.
func SetupLogging(cfg *NodeConfig) error {
	l, err := log.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	log.SetDefault(l)
	return nil
}

// MakeAddress parses an address flag value, terminating on failure.
func MakeAddress(ctx *cli.Context, flag *cli.StringFlag) common.Address {
	s := ctx.String(flag.Name)
	if s == "" {
		Fatalf("Missing --%s", flag.Name)
	}
	addr, err := common.ParseAddress(s)
	if err != nil {
		Fatalf("Invalid --%s: %v", flag.Name, err)
	}
	return addr
}

// MakeLedgerDatabase opens the LevelDB database of cfg, terminating on
// failure.
func MakeLedgerDatabase(cfg *NodeConfig, readonly bool) ethdb.KeyValueStore {
	if cfg.DataDir == "" {
		Fatalf("Cannot determine default data directory, please set manually (--datadir)")
	}
	file := filepath.Join(cfg.DataDir, "ledgerdata")
	db, err := rawdb.NewLevelDBDatabase(file, cfg.Cache/2, cfg.Handles, readonly)
	if err != nil {
		Fatalf("Could not open database: %v", err)
	}
	return db
}

// MakeLedger opens the ledger of cfg, terminating on failure.
func MakeLedger(cfg *NodeConfig, readonly bool) *ledger.Ledger {
	db := MakeLedgerDatabase(cfg, readonly)
	l, err := ledger.New(db, &ledger.Config{CacheMB: cfg.Cache / 2}, nil)
	if err != nil {
		db.Close()
		Fatalf("Could not open ledger: %v", err)
	}
	return l
}
