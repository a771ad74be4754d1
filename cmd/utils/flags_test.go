package utils

import (
	"flag"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/whistlenet/whistle/keeper"
)

func newContext(t *testing.T, flags []cli.Flag, args ...string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	app.Flags = flags

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		if err := f.Apply(set); err != nil {
			t.Fatalf("apply flag: %v", err)
		}
	}
	if err := set.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cli.NewContext(app, set, nil)
}

func TestSetNodeConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want NodeConfig
	}{
		{
			"defaults kept",
			nil,
			NodeConfig{DataDir: "/data", Cache: 16, LogLevel: "info", LogFormat: "json"},
		},
		{
			"flags override",
			[]string{"--datadir=/tmp/x/../ledger", "--cache=128", "--log.level=debug"},
			NodeConfig{DataDir: "/tmp/ledger", Cache: 128, LogLevel: "debug", LogFormat: "json"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newContext(t, append(NodeFlags, LoggingFlags...), tt.args...)
			cfg := NodeConfig{DataDir: "/data", Cache: 16, LogLevel: "info", LogFormat: "json"}
			SetNodeConfig(ctx, &cfg)
			if cfg != tt.want {
				t.Fatalf("config = %+v, want %+v", cfg, tt.want)
			}
		})
	}
}

func TestSetKeeperConfig(t *testing.T) {
	ctx := newContext(t, KeeperFlags, "--keeper.bridge=", "--keeper.batch=5")
	cfg := keeper.DefaultConfig
	SetKeeperConfig(ctx, &cfg)
	if cfg.BridgeSpec != "" {
		t.Errorf("bridge spec not cleared: %q", cfg.BridgeSpec)
	}
	if cfg.BatchSize != 5 {
		t.Errorf("batch size %d", cfg.BatchSize)
	}
	if cfg.BonusSpec != keeper.DefaultConfig.BonusSpec {
		t.Errorf("bonus spec changed: %q", cfg.BonusSpec)
	}
}
