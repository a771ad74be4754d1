package rawdb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/types"
)

func TestReceiptLog(t *testing.T) {
	db := NewMemoryDatabase()

	_, ok := ReadHeadSeq(db)
	require.False(t, ok)

	for seq := uint64(0); seq < 5; seq++ {
		WriteReceipt(db, &types.Receipt{Seq: seq, Action: "A", Status: types.ReceiptStatusSuccessful})
	}
	head, ok := ReadHeadSeq(db)
	require.True(t, ok)
	require.Equal(t, uint64(4), head)

	r := ReadReceipt(db, 3)
	require.NotNil(t, r)
	require.Equal(t, uint64(3), r.Seq)
	require.Nil(t, ReadReceipt(db, 9))

	rs := ReadReceiptRange(db, 2, 2)
	require.Len(t, rs, 2)
	require.Equal(t, uint64(2), rs[0].Seq)
	require.Equal(t, uint64(3), rs[1].Seq)

	require.Len(t, ReadReceiptRange(db, 0, 0), 5)
}

func TestIterateAccountsSkipsOtherKeys(t *testing.T) {
	db := NewMemoryDatabase()
	a1, a2 := common.Address{1}, common.Address{2}
	WriteAccountRLP(db, a2, []byte{0x02})
	WriteAccountRLP(db, a1, []byte{0x01})
	WriteAccountData(db, common.Hash{9}, []byte("blob"))
	// A stray key sharing the account prefix but not its length.
	require.NoError(t, db.Put([]byte("abc"), []byte("x")))

	var seen []common.Address
	require.NoError(t, IterateAccounts(db, func(addr common.Address, enc []byte) bool {
		seen = append(seen, addr)
		return true
	}))
	require.Equal(t, []common.Address{a1, a2}, seen)
	require.Equal(t, []byte("blob"), ReadAccountData(db, common.Hash{9}))
	require.True(t, HasAccount(db, a1))

	DeleteAccount(db, a1)
	require.False(t, HasAccount(db, a1))
}
