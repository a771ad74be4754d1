package staking

import (
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/sysaction"
)

// PoolAddress returns the address of the pool administered by authority.
func PoolAddress(authority common.Address) common.Address {
	return sysaction.RecordAddress(params.SeedStakingPool, authority)
}

// TokenVaultAddress returns the collateral custody account of the pool
// administered by authority.
func TokenVaultAddress(authority common.Address) common.Address {
	return sysaction.RecordAddress(params.SeedTokenVault, authority)
}

// StakerAddress returns the address of owner's staker record.
func StakerAddress(owner common.Address) common.Address {
	return sysaction.RecordAddress(params.SeedStaker, owner)
}

// ReleaseCollateral pays amount of collateral out of the pool's token vault
// under the vault's derived signing capability.
func ReleaseCollateral(ctx *sysaction.Context, pool *types.StakingPool, to common.Address, amount uint64) error {
	return ctx.TransferSigned(params.AssetWhistle, pool.TokenVault, to, amount, sysaction.Seeds(params.SeedTokenVault, pool.Authority)...)
}

// ValidateMintRate checks a tokens-per-collateral rate against its bounds. The
// largest allowed stake must still mint without overflow.
func ValidateMintRate(rate uint64) error {
	if rate == 0 || rate > params.MaxTokensPerWhistle {
		return ErrInvalidMintRate
	}
	if _, overflow := math.SafeMul(params.MaxStakePerUser, rate); overflow {
		return ErrInvalidMintRate
	}
	return nil
}

// BurnAmount returns the access tokens burned when amount of staked
// collateral is withdrawn. A partial withdrawal burns the ceiling of the
// proportional share so repeated dust withdrawals cannot keep tokens.
func BurnAmount(tokens, staked, amount uint64) (uint64, error) {
	if amount == staked {
		return tokens, nil
	}
	return math.MulDivCeil(tokens, amount, staked)
}

// DelegationCap returns the most access tokens a staker with the given
// collateral may hold once delegations are included.
func DelegationCap(staked, rate uint64) (uint64, error) {
	own, err := math.Mul(staked, rate)
	if err != nil {
		return 0, err
	}
	return math.MulDiv(own, params.DelegationCapBPS, 10_000)
}

// NodeOperatorMinimum returns the stake a node operator has to keep.
func NodeOperatorMinimum(pool *types.StakingPool) (uint64, error) {
	return math.Mul(pool.MinStakeAmount, params.NodeOperatorMultiplier)
}

func writePool(db sysaction.StateDB, addr common.Address, pool *types.StakingPool) error {
	return sysaction.StoreRecord(db, addr, pool.Encode())
}

func writeStaker(db sysaction.StateDB, addr common.Address, rec *types.StakerRecord) error {
	return sysaction.StoreRecord(db, addr, rec.Encode())
}
