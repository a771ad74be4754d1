package provider

import (
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/sysaction"
)

// Address returns the address of owner's provider record.
func Address(owner common.Address) common.Address {
	return sysaction.RecordAddress(params.SeedProvider, owner)
}

// endpointCapacity returns the longest endpoint that fits the space reserved
// at addr.
func endpointCapacity(db sysaction.StateDB, addr common.Address) int {
	return int(db.GetSpace(addr)) - types.ProviderSize(0)
}

// LoadActive reads owner's provider record and requires it to be active.
func LoadActive(db sysaction.StateDB, addr, owner common.Address) (*types.ProviderRecord, error) {
	rec, err := sysaction.LoadProvider(db, addr, owner)
	if err != nil {
		return nil, err
	}
	if !rec.Active {
		return nil, ErrNotActive
	}
	return rec, nil
}

// Store writes a provider record back to addr.
func Store(db sysaction.StateDB, addr common.Address, rec *types.ProviderRecord) error {
	return sysaction.StoreRecord(db, addr, rec.Encode())
}

// CreditBonus adds a bonus share to the provider's pending earnings.
func CreditBonus(rec *types.ProviderRecord, amount uint64) error {
	pending, err := math.Add(rec.PendingEarnings, amount)
	if err != nil {
		return err
	}
	rec.PendingEarnings = pending
	return nil
}
