package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/rawdb"
	"github.com/whistlenet/whistle/params"
)

var program = common.Address{0xfe}

func newTestState() *StateDB {
	return New(NewDatabase(rawdb.NewMemoryDatabase()))
}

func TestBalanceArithmetic(t *testing.T) {
	s := newTestState()
	a := common.Address{1}

	require.NoError(t, s.AddBalance(params.AssetWhistle, a, 100))
	require.NoError(t, s.SubBalance(params.AssetWhistle, a, 40))
	require.Equal(t, uint64(60), s.GetBalance(params.AssetWhistle, a))
	require.Zero(t, s.GetBalance(params.AssetNative, a))

	err := s.SubBalance(params.AssetWhistle, a, 61)
	require.True(t, errors.Is(err, ErrInsufficientBalance), err)
	require.Equal(t, uint64(60), s.GetBalance(params.AssetWhistle, a))

	require.NoError(t, s.AddBalance(params.AssetNative, a, ^uint64(0)))
	require.True(t, errors.Is(s.AddBalance(params.AssetNative, a, 1), math.ErrOverflow))
}

func TestSnapshotRevert(t *testing.T) {
	s := newTestState()
	a, rec := common.Address{1}, common.Address{2}
	require.NoError(t, s.AddBalance(params.AssetWhistle, a, 10))

	snap := s.Snapshot()
	require.NoError(t, s.SubBalance(params.AssetWhistle, a, 10))
	require.NoError(t, s.AddBalance(params.AssetWhistle, rec, 10))
	require.NoError(t, s.CreateAccount(rec, program, 8))
	require.NoError(t, s.SetData(rec, []byte{1, 2, 3}))
	s.RevertToSnapshot(snap)

	require.Equal(t, uint64(10), s.GetBalance(params.AssetWhistle, a))
	require.False(t, s.Exist(rec))
	require.Nil(t, s.GetData(rec))
}

func TestDataSpaceReserved(t *testing.T) {
	s := newTestState()
	rec := common.Address{3}

	require.True(t, errors.Is(s.SetData(rec, []byte{1}), ErrNoAccount))
	require.NoError(t, s.CreateAccount(rec, program, 4))
	require.True(t, errors.Is(s.CreateAccount(rec, program, 4), ErrAccountInitialized))
	require.True(t, errors.Is(s.SetData(rec, []byte{1, 2, 3, 4, 5}), ErrDataTooLarge))
	require.NoError(t, s.SetData(rec, []byte{1, 2, 3, 4}))
	require.NoError(t, s.SetData(rec, []byte{9}))
	require.Equal(t, []byte{9}, s.GetData(rec))
}

func TestCommitPersists(t *testing.T) {
	disk := rawdb.NewMemoryDatabase()
	s := New(NewDatabase(disk))
	rec, wallet := common.Address{4}, common.Address{5}

	require.NoError(t, s.AddBalance(params.AssetNative, wallet, 7))
	require.NoError(t, s.CreateAccount(rec, program, 16))
	require.NoError(t, s.SetData(rec, []byte("record")))
	require.NoError(t, s.Commit())

	// A fresh cache-less view over the same disk sees the committed state.
	fresh := New(NewDatabaseWithCache(disk, 1))
	require.Equal(t, uint64(7), fresh.GetBalance(params.AssetNative, wallet))
	require.Equal(t, program, fresh.GetOwner(rec))
	require.Equal(t, uint64(16), fresh.GetSpace(rec))
	require.Equal(t, []byte("record"), fresh.GetData(rec))
	require.NoError(t, fresh.Error())
}

func TestForEachAccountMergesLiveObjects(t *testing.T) {
	s := newTestState()
	a, b, c := common.Address{1}, common.Address{2}, common.Address{3}
	require.NoError(t, s.CreateAccount(a, program, 1))
	require.NoError(t, s.CreateAccount(c, common.Address{0x01}, 1))
	require.NoError(t, s.Commit())
	require.NoError(t, s.CreateAccount(b, program, 1))

	var got []common.Address
	require.NoError(t, s.ForEachAccount(program, func(addr common.Address, _ []byte) bool {
		got = append(got, addr)
		return true
	}))
	require.Equal(t, []common.Address{a, b}, got)
}

func TestAccessedAccounts(t *testing.T) {
	s := newTestState()
	s.Prepare()
	s.GetBalance(params.AssetWhistle, common.Address{9})
	require.NoError(t, s.AddBalance(params.AssetWhistle, common.Address{3}, 1))
	require.Equal(t, []common.Address{{3}, {9}}, s.AccessedAccounts())

	s.Prepare()
	require.Empty(t, s.AccessedAccounts())
}
