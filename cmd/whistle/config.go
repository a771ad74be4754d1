package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"

	"github.com/whistlenet/whistle/cmd/utils"
	"github.com/whistlenet/whistle/internal/flags"
	"github.com/whistlenet/whistle/keeper"
	"github.com/whistlenet/whistle/ledger"
)

var (
	dumpConfigCommand = &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[<file>]",
		Flags:       flags.Merge(configFlags, utils.KeeperFlags),
		Description: `The dumpconfig command shows configuration values.`,
	}

	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}

	configFlags = append([]cli.Flag{configFileFlag}, utils.NodeFlags...)
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type whistleConfig struct {
	Node    utils.NodeConfig
	Genesis *ledger.Genesis `toml:",omitempty"`
	Keeper  keeper.Config
}

func defaultConfig() whistleConfig {
	return whistleConfig{
		Node:   utils.DefaultNodeConfig,
		Keeper: keeper.DefaultConfig,
	}
}

func loadConfig(file string, cfg interface{}) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	var lineErr *toml.LineError
	if errors.As(err, &lineErr) {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// loadBaseConfig loads the config file, if any, and applies the node and
// logging flags on top.
func loadBaseConfig(ctx *cli.Context) whistleConfig {
	cfg := defaultConfig()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			utils.Fatalf("%v", err)
		}
	}
	utils.SetNodeConfig(ctx, &cfg.Node)
	return cfg
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg := loadBaseConfig(ctx)
	utils.SetKeeperConfig(ctx, &cfg.Keeper)

	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	_, err = dump.Write(out)
	return err
}
