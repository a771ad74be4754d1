package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/rawdb"
	"github.com/whistlenet/whistle/ledger"
	"github.com/whistlenet/whistle/sysaction"
)

func TestDumpTables(t *testing.T) {
	g := ledger.DefaultGenesis()
	g.Authority = common.Address{0xa0}
	g.Time = 1_700_000_000
	db := rawdb.NewMemoryDatabase()
	require.NoError(t, g.Commit(db))
	l, err := ledger.New(db, nil, sysaction.NewManualClock(g.Time))
	require.NoError(t, err)

	records, err := collectRecords(l)
	require.NoError(t, err)
	require.Len(t, records.pools, 1)
	require.Len(t, records.vaults, 1)
	require.Positive(t, records.unknown) // token vault and bridge wallet

	var buf bytes.Buffer
	writeRecords(&buf, records)
	require.Contains(t, buf.String(), "Staking pool")
	require.Contains(t, buf.String(), "Payment vault")

	buf.Reset()
	writeReceipts(&buf, l.Receipts(0, 0))
	out := buf.String()
	require.Contains(t, out, string(sysaction.ActionStakingInitPool))
	require.Contains(t, out, string(sysaction.ActionBridgeInitWallet))
	require.False(t, strings.Contains(out, "failed"))
}
