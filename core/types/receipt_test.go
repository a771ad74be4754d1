package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/whistlenet/whistle/common"
)

func TestReceiptStorage(t *testing.T) {
	r := &Receipt{
		TxHash:   common.HexToHash("0x01"),
		Seq:      7,
		Time:     1_700_000_000,
		From:     common.Address{1},
		Action:   "VAULT_PROCESS_QUERY_PAYMENT",
		Accounts: []common.Address{{2}, {3}},
		Status:   ReceiptStatusSuccessful,
		Cost:     30_000,
		Logs:     []string{"vault: split payment"},
		Output:   json.RawMessage(`{"provider":70}`),
	}
	enc, err := EncodeReceipt(r)
	require.NoError(t, err)
	dec, err := DecodeReceipt(enc)
	require.NoError(t, err)
	require.Equal(t, r, dec)

	failed := &Receipt{Seq: 8, Status: ReceiptStatusFailed, Err: "staking: cooldown"}
	enc, err = EncodeReceipt(failed)
	require.NoError(t, err)
	dec, err = DecodeReceipt(enc)
	require.NoError(t, err)
	require.True(t, dec.Failed())
	require.Nil(t, dec.Output)
}

func TestCommandHashCoversTime(t *testing.T) {
	a := NewCommand(common.Address{1}, 100, []byte(`{"action":"X"}`))
	b := NewCommand(common.Address{1}, 101, []byte(`{"action":"X"}`))
	require.NotEqual(t, a.Hash(), b.Hash())
	require.Equal(t, a.Hash(), NewCommand(common.Address{1}, 100, []byte(`{"action":"X"}`)).Hash())
}
