package sysaction

import (
	"errors"
	"testing"

	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
)

func TestCheckAddress(t *testing.T) {
	owner := tAddr(3)
	addr := RecordAddress(params.SeedStaker, owner)
	if err := CheckAddress(addr, params.SeedStaker, owner); err != nil {
		t.Fatalf("derived address rejected: %v", err)
	}
	if err := CheckAddress(addr, params.SeedProvider, owner); !errors.Is(err, ErrAddressMismatch) {
		t.Errorf("other kind: want ErrAddressMismatch, got %v", err)
	}
	if err := CheckAddress(addr, params.SeedStaker, tAddr(4)); !errors.Is(err, ErrAddressMismatch) {
		t.Errorf("other owner: want ErrAddressMismatch, got %v", err)
	}
}

func TestLoadRecord(t *testing.T) {
	st := newTestState()
	owner := tAddr(3)
	addr := RecordAddress(params.SeedStaker, owner)

	if _, err := LoadStaker(st, addr, owner); !errors.Is(err, ErrRecordState) {
		t.Errorf("missing record: want ErrRecordState, got %v", err)
	}
	rec := &types.StakerRecord{Owner: owner, StakedAmount: 5}
	if err := CreateRecord(st, addr, types.StakerSize, rec.Encode()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := CreateRecord(st, addr, types.StakerSize, rec.Encode()); !errors.Is(err, ErrRecordState) {
		t.Errorf("second create: want ErrRecordState, got %v", err)
	}
	got, err := LoadStaker(st, addr, owner)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.StakedAmount != 5 {
		t.Errorf("staked: want 5, got %d", got.StakedAmount)
	}
	if _, err := LoadStaker(st, addr, tAddr(4)); !errors.Is(err, ErrAddressMismatch) {
		t.Errorf("wrong owner: want ErrAddressMismatch, got %v", err)
	}
	if err := StoreRecord(st, addr, make([]byte, types.StakerSize+1)); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("oversized store: want ErrCapacityExceeded, got %v", err)
	}
}

func TestLoadRecordForeignOwner(t *testing.T) {
	st := newTestState()
	owner := tAddr(3)
	addr := RecordAddress(params.SeedStaker, owner)
	rec := &types.StakerRecord{Owner: owner}
	st.CreateAccount(addr, tAddr(0xee), types.StakerSize)
	st.SetData(addr, rec.Encode())

	if _, err := LoadStaker(st, addr, owner); !errors.Is(err, ErrRecordState) {
		t.Errorf("foreign owner tag: want ErrRecordState, got %v", err)
	}
}

func TestLoadRecordUndecodable(t *testing.T) {
	st := newTestState()
	owner := tAddr(3)
	addr := RecordAddress(params.SeedProvider, owner)
	if err := CreateRecord(st, addr, 16, []byte("not a provider")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := LoadProvider(st, addr, owner); !errors.Is(err, ErrRecordState) {
		t.Errorf("garbage record: want ErrRecordState, got %v", err)
	}
}

func TestManualClock(t *testing.T) {
	c := NewManualClock(100)
	c.Advance(50)
	if c.Now() != 150 {
		t.Errorf("want 150, got %d", c.Now())
	}
	c.Set(7)
	if c.Now() != 7 {
		t.Errorf("want 7, got %d", c.Now())
	}
}
