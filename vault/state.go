package vault

import (
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/sysaction"
)

// Address returns the address of the vault administered by authority.
func Address(authority common.Address) common.Address {
	return sysaction.RecordAddress(params.SeedPaymentVault, authority)
}

// Store writes the vault record back to addr.
func Store(db sysaction.StateDB, addr common.Address, v *types.VaultRecord) error {
	return sysaction.StoreRecord(db, addr, v.Encode())
}

// CheckLiquidity fails unless the vault account at addr holds at least
// amount of the settlement currency.
func CheckLiquidity(db sysaction.StateDB, addr common.Address, amount uint64) error {
	if have := db.GetBalance(params.AssetNative, addr); have < amount {
		return ErrVaultUnderfunded
	}
	return nil
}

// Pay moves amount of the settlement currency out of the vault at addr under
// its derived signing capability.
func Pay(ctx *sysaction.Context, addr common.Address, v *types.VaultRecord, to common.Address, amount uint64) error {
	return ctx.TransferSigned(params.AssetNative, addr, to, amount, sysaction.Seeds(params.SeedPaymentVault, v.Authority)...)
}

// loadAuthorityVault reads the vault at addr and checks that the signer
// administers it.
func loadAuthorityVault(ctx *sysaction.Context, addr common.Address) (*types.VaultRecord, error) {
	v, err := sysaction.LoadVault(ctx.StateDB, addr)
	if err != nil {
		return nil, err
	}
	if v.Authority != ctx.From {
		return nil, ErrNotAuthority
	}
	return v, nil
}
