package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/ledger"
)

func TestConfigRoundTrip(t *testing.T) {
	cfg := defaultConfig()
	cfg.Node.DataDir = "/var/lib/whistle"
	cfg.Keeper.BridgeSpec = ""
	cfg.Genesis = ledger.DefaultGenesis()
	cfg.Genesis.Authority = common.Address{0xa0}
	cfg.Genesis.Alloc = []ledger.GenesisAccount{{Address: common.Address{0x01}, Whistle: 5, Native: 7}}

	out, err := tomlSettings.Marshal(&cfg)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, out, 0644))

	loaded := defaultConfig()
	require.NoError(t, loadConfig(file, &loaded))
	require.Equal(t, cfg.Node, loaded.Node)
	require.Equal(t, cfg.Keeper, loaded.Keeper)
	require.Equal(t, cfg.Genesis, loaded.Genesis)
}

func TestLoadConfigUnknownField(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, []byte("[Node]\nDataDirectory = \"/x\"\n"), 0644))

	cfg := defaultConfig()
	err := loadConfig(file, &cfg)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "DataDirectory"), err.Error())
}
