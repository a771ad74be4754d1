package vault

import (
	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/provider"
	"github.com/whistlenet/whistle/staking"
	"github.com/whistlenet/whistle/sysaction"
)

func (h *vaultHandler) handleStakerCheckpoint(ctx *sysaction.Context, p *sysaction.VaultPayload) error {
	v, err := sysaction.LoadVault(ctx.StateDB, p.Vault)
	if err != nil {
		return err
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	if ctx.From != v.Authority && ctx.From != pool.Authority {
		return ErrNotAuthority
	}
	v.LastDistribution = ctx.Time
	if err := Store(ctx.StateDB, p.Vault, v); err != nil {
		return err
	}
	switch {
	case v.StakerRewardsPool == 0:
		ctx.Log("No staker rewards to distribute")
	case pool.TotalStaked == 0:
		ctx.Log("No stakers to distribute to", "rewards_pool", v.StakerRewardsPool)
	default:
		ctx.Log("Staker rewards ready", "rewards_pool", v.StakerRewardsPool, "total_staked", pool.TotalStaked)
	}
	return ctx.SetOutput(&StakerCheckpoint{
		RewardsPool: v.StakerRewardsPool,
		TotalStaked: pool.TotalStaked,
		Time:        ctx.Time,
	})
}

func (h *vaultHandler) handleClaimStaker(ctx *sysaction.Context, p *sysaction.ClaimStakerPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	owner := ctx.From
	v, err := sysaction.LoadVault(ctx.StateDB, p.Vault)
	if err != nil {
		return err
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	rec, err := sysaction.LoadStaker(ctx.StateDB, p.Staker, owner)
	if err != nil {
		return err
	}
	var amount uint64
	switch {
	case rec.PendingRewards > 0:
		amount = rec.PendingRewards
	case v.StakerRewardsPool > 0:
		if pool.TotalStaked == 0 {
			return ErrNoStake
		}
		if amount, err = math.MulDiv(rec.StakedAmount, v.StakerRewardsPool, pool.TotalStaked); err != nil {
			return err
		}
	}
	if amount == 0 {
		ctx.Log("No staker rewards to claim", "staker", owner)
		return nil
	}
	if err := CheckLiquidity(ctx.StateDB, p.Vault, amount); err != nil {
		return err
	}
	rewards, err := math.Sub(v.StakerRewardsPool, amount)
	if err != nil {
		return err
	}
	claimed, err := math.Add(v.TotalClaimed, amount)
	if err != nil {
		return err
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	rec.PendingRewards = 0
	v.StakerRewardsPool, v.TotalClaimed = rewards, claimed
	if err := Pay(ctx, p.Vault, v, owner, amount); err != nil {
		return err
	}
	if err := sysaction.StoreRecord(ctx.StateDB, p.Staker, rec.Encode()); err != nil {
		return err
	}
	if err := Store(ctx.StateDB, p.Vault, v); err != nil {
		return err
	}
	ctx.Log("Staker rewards claimed", "staker", owner, "amount", amount)
	return nil
}

// QueryGrant is the output of a successful query authorization.
type QueryGrant struct {
	Tier         string `json:"tier"`
	AccessTokens uint64 `json:"access_tokens"`
}

func (h *vaultHandler) handleAuthorizeQuery(ctx *sysaction.Context, p *sysaction.AuthorizeQueryPayload) error {
	user := ctx.From
	rec, err := sysaction.LoadStaker(ctx.StateDB, p.Staker, user)
	if err != nil {
		return err
	}
	if rec.StakedAmount == 0 {
		return ErrStakerNotStaked
	}
	if rec.AccessTokens == 0 {
		return ErrStakerNoTokens
	}
	if _, err := provider.LoadActive(ctx.StateDB, p.Provider, p.ProviderOwner); err != nil {
		return err
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	if !pool.IsActive {
		return ErrPoolInactive
	}
	tier := staking.AccessTierOf(rec.AccessTokens)
	ctx.Log("Query authorized", "user", user, "provider", p.ProviderOwner, "tier", tier)
	return ctx.SetOutput(&QueryGrant{Tier: tier.String(), AccessTokens: rec.AccessTokens})
}

func (h *vaultHandler) handleRecordQuery(ctx *sysaction.Context, p *sysaction.RecordQueryPayload) error {
	rec, err := provider.LoadActive(ctx.StateDB, p.Provider, ctx.From)
	if err != nil {
		return err
	}
	served, err := math.Add(rec.QueriesServed, 1)
	if err != nil {
		return err
	}
	rec.QueriesServed = served
	if err := provider.Store(ctx.StateDB, p.Provider, rec); err != nil {
		return err
	}
	ctx.Log("Query recorded", "provider", ctx.From, "user", p.User, "served", served)
	return nil
}
