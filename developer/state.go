package developer

import (
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/sysaction"
)

// Address returns the address of owner's developer record.
func Address(owner common.Address) common.Address {
	return sysaction.RecordAddress(params.SeedDeveloper, owner)
}

func store(db sysaction.StateDB, addr common.Address, rec *types.DeveloperRecord) error {
	return sysaction.StoreRecord(db, addr, rec.Encode())
}

// loadActive reads owner's developer record and requires it to be active.
func loadActive(db sysaction.StateDB, addr, owner common.Address) (*types.DeveloperRecord, error) {
	rec, err := sysaction.LoadDeveloper(db, addr, owner)
	if err != nil {
		return nil, err
	}
	if !rec.Active {
		return nil, ErrNotActive
	}
	return rec, nil
}
