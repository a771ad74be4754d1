package staking

import (
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/sysaction"
)

func (h *stakingHandler) handleInitPool(ctx *sysaction.Context, p *sysaction.InitPoolPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	authority := ctx.From
	if err := sysaction.CheckAddress(p.Pool, params.SeedStakingPool, authority); err != nil {
		return err
	}
	if err := sysaction.CheckAddress(p.TokenVault, params.SeedTokenVault, authority); err != nil {
		return err
	}
	if err := ValidateMintRate(p.TokensPerWhistle); err != nil {
		return err
	}
	if p.CooldownPeriod < 0 {
		return ErrInvalidCooldown
	}
	if p.MinStakeAmount == 0 {
		return ErrInvalidMinStake
	}
	// Re-initialization would orphan every staker record.
	if sysaction.RecordExists(ctx.StateDB, p.Pool) || ctx.StateDB.GetOwner(p.TokenVault) == params.ProgramID {
		return ErrPoolInitialized
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := ctx.StateDB.CreateAccount(p.TokenVault, params.ProgramID, 0); err != nil {
		return err
	}
	pool := &types.StakingPool{
		Authority:        authority,
		TokenVault:       p.TokenVault,
		MinStakeAmount:   p.MinStakeAmount,
		TokensPerWhistle: p.TokensPerWhistle,
		MaxStakePerUser:  params.MaxStakePerUser,
		CreatedAt:        ctx.Time,
		CooldownPeriod:   p.CooldownPeriod,
		IsActive:         true,
	}
	if err := sysaction.CreateRecord(ctx.StateDB, p.Pool, types.StakingPoolSize, pool.Encode()); err != nil {
		return err
	}
	ctx.Log("Staking pool initialized", "pool", p.Pool, "min_stake", p.MinStakeAmount,
		"tokens_per_whistle", p.TokensPerWhistle, "cooldown", p.CooldownPeriod)
	return nil
}

// loadAuthorityPool reads the pool at addr and checks that the signer
// administers it.
func loadAuthorityPool(ctx *sysaction.Context, addr common.Address) (*types.StakingPool, error) {
	pool, err := sysaction.LoadPool(ctx.StateDB, addr)
	if err != nil {
		return nil, err
	}
	if pool.Authority != ctx.From {
		return nil, ErrNotAuthority
	}
	return pool, nil
}

func (h *stakingHandler) handleSetPoolStatus(ctx *sysaction.Context, p *sysaction.PoolStatusPayload) error {
	pool, err := loadAuthorityPool(ctx, p.Pool)
	if err != nil {
		return err
	}
	pool.IsActive = p.Active
	if err := writePool(ctx.StateDB, p.Pool, pool); err != nil {
		return err
	}
	ctx.Log("Pool status set", "active", p.Active)
	return nil
}

func (h *stakingHandler) handleLockRate(ctx *sysaction.Context, p *sysaction.PoolPayload) error {
	pool, err := loadAuthorityPool(ctx, p.Pool)
	if err != nil {
		return err
	}
	if pool.RateLocked {
		return ErrRateLocked
	}
	pool.RateLocked = true
	if err := writePool(ctx.StateDB, p.Pool, pool); err != nil {
		return err
	}
	ctx.Log("Mint rate locked", "tokens_per_whistle", pool.TokensPerWhistle)
	return nil
}

func (h *stakingHandler) handleSetMintRate(ctx *sysaction.Context, p *sysaction.MintRatePayload) error {
	pool, err := loadAuthorityPool(ctx, p.Pool)
	if err != nil {
		return err
	}
	if pool.RateLocked {
		return ErrRateLocked
	}
	if err := ValidateMintRate(p.TokensPerWhistle); err != nil {
		return err
	}
	prev := pool.TokensPerWhistle
	pool.TokensPerWhistle = p.TokensPerWhistle
	if err := writePool(ctx.StateDB, p.Pool, pool); err != nil {
		return err
	}
	ctx.Log("Mint rate changed", "from", prev, "to", p.TokensPerWhistle)
	return nil
}
