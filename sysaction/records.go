package sysaction

import (
	"fmt"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/crypto"
	"github.com/whistlenet/whistle/params"
)

// Seeds returns the derivation seeds of a record of the given kind, keyed by
// the owners in order.
func Seeds(kind string, owners ...common.Address) [][]byte {
	seeds := make([][]byte, 0, 1+len(owners))
	seeds = append(seeds, []byte(kind))
	for i := range owners {
		seeds = append(seeds, owners[i].Bytes())
	}
	return seeds
}

// RecordAddress returns the address of the record of the given kind owned by
// owners.
func RecordAddress(kind string, owners ...common.Address) common.Address {
	return crypto.MustDeriveAddress(params.ProgramID, Seeds(kind, owners...)...)
}

// CheckAddress re-derives a record address and compares it with the one the
// caller supplied.
func CheckAddress(supplied common.Address, kind string, owners ...common.Address) error {
	if want := RecordAddress(kind, owners...); want != supplied {
		return fmt.Errorf("sysaction: %s record %s, derived %s: %w", kind, supplied, want, ErrAddressMismatch)
	}
	return nil
}

// LoadRecord returns the data of a program-owned record account. A missing
// account or one carrying another owner tag is a record state error.
func LoadRecord(db StateDB, addr common.Address) ([]byte, error) {
	if !db.Exist(addr) || db.GetSpace(addr) == 0 {
		return nil, fmt.Errorf("sysaction: record %s not initialized: %w", addr, ErrRecordState)
	}
	if owner := db.GetOwner(addr); owner != params.ProgramID {
		return nil, fmt.Errorf("sysaction: record %s owned by %s: %w", addr, owner, ErrRecordState)
	}
	return db.GetData(addr), nil
}

// Decoded wraps a record decoding failure as a record state error.
func Decoded[T any](rec *T, err error) (*T, error) {
	if err != nil {
		return nil, fmt.Errorf("sysaction: %v: %w", err, ErrRecordState)
	}
	return rec, nil
}

// RecordExists reports whether a record account has been created at addr.
func RecordExists(db StateDB, addr common.Address) bool {
	return db.Exist(addr) && db.GetSpace(addr) != 0
}

// CreateRecord reserves space bytes at addr under the program owner tag and
// stores data.
func CreateRecord(db StateDB, addr common.Address, space int, data []byte) error {
	if RecordExists(db, addr) {
		return fmt.Errorf("sysaction: record %s already initialized: %w", addr, ErrRecordState)
	}
	if err := db.CreateAccount(addr, params.ProgramID, uint64(space)); err != nil {
		return fmt.Errorf("sysaction: create %s: %v: %w", addr, err, ErrRecordState)
	}
	return StoreRecord(db, addr, data)
}

// StoreRecord overwrites the data of an existing record.
func StoreRecord(db StateDB, addr common.Address, data []byte) error {
	if err := db.SetData(addr, data); err != nil {
		return fmt.Errorf("sysaction: store %s: %v: %w", addr, err, ErrCapacityExceeded)
	}
	return nil
}

// LoadPool reads the staking pool at addr and checks that addr is the pool
// address of the stored authority.
func LoadPool(db StateDB, addr common.Address) (*types.StakingPool, error) {
	data, err := LoadRecord(db, addr)
	if err != nil {
		return nil, err
	}
	pool, err := Decoded(types.DecodeStakingPool(data))
	if err != nil {
		return nil, err
	}
	if err := CheckAddress(addr, params.SeedStakingPool, pool.Authority); err != nil {
		return nil, err
	}
	return pool, nil
}

// LoadVault reads the revenue vault at addr and checks that addr is the
// vault address of the stored authority.
func LoadVault(db StateDB, addr common.Address) (*types.VaultRecord, error) {
	data, err := LoadRecord(db, addr)
	if err != nil {
		return nil, err
	}
	vault, err := Decoded(types.DecodeVaultRecord(data))
	if err != nil {
		return nil, err
	}
	if err := CheckAddress(addr, params.SeedPaymentVault, vault.Authority); err != nil {
		return nil, err
	}
	return vault, nil
}

// LoadStaker reads the staker record of owner at addr.
func LoadStaker(db StateDB, addr, owner common.Address) (*types.StakerRecord, error) {
	if err := CheckAddress(addr, params.SeedStaker, owner); err != nil {
		return nil, err
	}
	data, err := LoadRecord(db, addr)
	if err != nil {
		return nil, err
	}
	rec, err := Decoded(types.DecodeStakerRecord(data))
	if err != nil {
		return nil, err
	}
	if rec.Owner != owner {
		return nil, fmt.Errorf("sysaction: staker record %s belongs to %s: %w", addr, rec.Owner, ErrRecordState)
	}
	return rec, nil
}

// LoadProvider reads the provider record of owner at addr.
func LoadProvider(db StateDB, addr, owner common.Address) (*types.ProviderRecord, error) {
	if err := CheckAddress(addr, params.SeedProvider, owner); err != nil {
		return nil, err
	}
	data, err := LoadRecord(db, addr)
	if err != nil {
		return nil, err
	}
	rec, err := Decoded(types.DecodeProviderRecord(data))
	if err != nil {
		return nil, err
	}
	if rec.Owner != owner {
		return nil, fmt.Errorf("sysaction: provider record %s belongs to %s: %w", addr, rec.Owner, ErrRecordState)
	}
	return rec, nil
}

// LoadDeveloper reads the developer record of owner at addr.
func LoadDeveloper(db StateDB, addr, owner common.Address) (*types.DeveloperRecord, error) {
	if err := CheckAddress(addr, params.SeedDeveloper, owner); err != nil {
		return nil, err
	}
	data, err := LoadRecord(db, addr)
	if err != nil {
		return nil, err
	}
	rec, err := Decoded(types.DecodeDeveloperRecord(data))
	if err != nil {
		return nil, err
	}
	if rec.Owner != owner {
		return nil, fmt.Errorf("sysaction: developer record %s belongs to %s: %w", addr, rec.Owner, ErrRecordState)
	}
	return rec, nil
}
