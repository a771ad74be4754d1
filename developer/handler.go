package developer

import (
	"fmt"

	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/staking"
	"github.com/whistlenet/whistle/sysaction"
	"github.com/whistlenet/whistle/vault"
)

func init() {
	sysaction.DefaultRegistry.Register(&developerHandler{})
}

// developerHandler implements sysaction.Handler for the developer rebate
// ledger.
type developerHandler struct{}

func (h *developerHandler) CanHandle(kind sysaction.ActionKind) bool {
	switch kind {
	case sysaction.ActionDeveloperRegister,
		sysaction.ActionDeveloperStake,
		sysaction.ActionDeveloperUnstake,
		sysaction.ActionDeveloperProcessQuery,
		sysaction.ActionDeveloperClaimRewards,
		sysaction.ActionDeveloperClaimReferral,
		sysaction.ActionDeveloperFundBonus:
		return true
	}
	return false
}

func (h *developerHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	switch sa.Action {
	case sysaction.ActionDeveloperRegister:
		var p sysaction.DeveloperRegisterPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("register developer: %w", err)
		}
		return h.handleRegister(ctx, &p)

	case sysaction.ActionDeveloperStake:
		var p sysaction.DeveloperStakePayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("developer stake: %w", err)
		}
		return h.handleStake(ctx, &p)

	case sysaction.ActionDeveloperUnstake:
		var p sysaction.DeveloperStakePayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("developer unstake: %w", err)
		}
		return h.handleUnstake(ctx, &p)

	case sysaction.ActionDeveloperProcessQuery:
		var p sysaction.DeveloperQueryPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("developer query: %w", err)
		}
		return h.handleProcessQuery(ctx, &p)

	case sysaction.ActionDeveloperClaimRewards:
		var p sysaction.DeveloperClaimPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("claim developer rewards: %w", err)
		}
		return h.handleClaimRewards(ctx, &p)

	case sysaction.ActionDeveloperClaimReferral:
		var p sysaction.DeveloperClaimPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("claim referral earnings: %w", err)
		}
		return h.handleClaimReferral(ctx, &p)

	case sysaction.ActionDeveloperFundBonus:
		var p sysaction.FundBonusPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("fund developer bonus: %w", err)
		}
		return h.handleFundBonus(ctx, &p)
	}
	return fmt.Errorf("developer handler: unsupported action %q", sa.Action)
}

func (h *developerHandler) handleRegister(ctx *sysaction.Context, p *sysaction.DeveloperRegisterPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	owner := ctx.From
	if p.Stake < params.MinDeveloperStake {
		return ErrStakeTooLow
	}
	if err := sysaction.CheckAddress(p.Developer, params.SeedDeveloper, owner); err != nil {
		return err
	}
	if sysaction.RecordExists(ctx.StateDB, p.Developer) {
		return ErrAlreadyRegistered
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	if ctx.StateDB.GetBalance(params.AssetWhistle, owner) < p.Stake {
		return ErrInsufficientBalance
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := ctx.Transfer(params.AssetWhistle, owner, pool.TokenVault, p.Stake); err != nil {
		return err
	}
	rec := &types.DeveloperRecord{
		Owner:          owner,
		WhistleStaked:  p.Stake,
		LastMonthReset: ctx.Time,
		ReferredBy:     p.Referrer,
		Active:         true,
	}
	retier(rec)
	if err := sysaction.CreateRecord(ctx.StateDB, p.Developer, types.DeveloperSize, rec.Encode()); err != nil {
		return err
	}
	if p.Referrer != nil {
		ctx.Log("Developer registered", "owner", owner, "stake", p.Stake, "tier", rec.Tier, "referrer", *p.Referrer)
	} else {
		ctx.Log("Developer registered", "owner", owner, "stake", p.Stake, "tier", rec.Tier)
	}
	return nil
}

func (h *developerHandler) handleStake(ctx *sysaction.Context, p *sysaction.DeveloperStakePayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	owner := ctx.From
	if p.Amount == 0 {
		return ErrZeroAmount
	}
	rec, err := loadActive(ctx.StateDB, p.Developer, owner)
	if err != nil {
		return err
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	staked, err := math.Add(rec.WhistleStaked, p.Amount)
	if err != nil {
		return err
	}
	if ctx.StateDB.GetBalance(params.AssetWhistle, owner) < p.Amount {
		return ErrInsufficientBalance
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := ctx.Transfer(params.AssetWhistle, owner, pool.TokenVault, p.Amount); err != nil {
		return err
	}
	rec.WhistleStaked = staked
	if old := retier(rec); old != rec.Tier {
		ctx.Log("Developer tier upgraded", "owner", owner, "from", old, "to", rec.Tier)
	}
	if err := store(ctx.StateDB, p.Developer, rec); err != nil {
		return err
	}
	ctx.Log("Developer staked", "owner", owner, "amount", p.Amount, "total", staked, "rebate_bps", rec.RebateBPS)
	return nil
}

func (h *developerHandler) handleUnstake(ctx *sysaction.Context, p *sysaction.DeveloperStakePayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	owner := ctx.From
	if p.Amount == 0 {
		return ErrZeroAmount
	}
	rec, err := sysaction.LoadDeveloper(ctx.StateDB, p.Developer, owner)
	if err != nil {
		return err
	}
	if p.Amount > rec.WhistleStaked {
		return ErrInsufficientStake
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := staking.ReleaseCollateral(ctx, pool, owner, p.Amount); err != nil {
		return err
	}
	rec.WhistleStaked -= p.Amount
	if old := retier(rec); old != rec.Tier {
		ctx.Log("Developer tier downgraded", "owner", owner, "from", old, "to", rec.Tier)
	}
	if err := store(ctx.StateDB, p.Developer, rec); err != nil {
		return err
	}
	ctx.Log("Developer unstaked", "owner", owner, "amount", p.Amount, "remaining", rec.WhistleStaked)
	return nil
}

func (h *developerHandler) handleClaimRewards(ctx *sysaction.Context, p *sysaction.DeveloperClaimPayload) error {
	owner := ctx.From
	rec, err := sysaction.LoadDeveloper(ctx.StateDB, p.Developer, owner)
	if err != nil {
		return err
	}
	if rec.BonusRewards == 0 {
		return ErrNoBonusRewards
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	amount := rec.BonusRewards
	if err := staking.ReleaseCollateral(ctx, pool, owner, amount); err != nil {
		return err
	}
	rec.BonusRewards = 0
	if err := store(ctx.StateDB, p.Developer, rec); err != nil {
		return err
	}
	ctx.Log("Developer bonus claimed", "owner", owner, "amount", amount)
	return nil
}

func (h *developerHandler) handleClaimReferral(ctx *sysaction.Context, p *sysaction.DeveloperClaimPayload) error {
	owner := ctx.From
	rec, err := sysaction.LoadDeveloper(ctx.StateDB, p.Developer, owner)
	if err != nil {
		return err
	}
	v, err := sysaction.LoadVault(ctx.StateDB, p.Vault)
	if err != nil {
		return err
	}
	amount := rec.ReferralEarnings
	if amount == 0 {
		return ErrNoReferralEarnings
	}
	if err := vault.CheckLiquidity(ctx.StateDB, p.Vault, amount); err != nil {
		return err
	}
	if err := vault.Pay(ctx, p.Vault, v, owner, amount); err != nil {
		return err
	}
	rec.ReferralEarnings = 0
	if err := store(ctx.StateDB, p.Developer, rec); err != nil {
		return err
	}
	ctx.Log("Referral earnings claimed", "owner", owner, "amount", amount)
	return nil
}

func (h *developerHandler) handleFundBonus(ctx *sysaction.Context, p *sysaction.FundBonusPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	if p.Amount == 0 {
		return ErrZeroAmount
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	if pool.Authority != ctx.From {
		return ErrNotAuthority
	}
	rec, err := sysaction.LoadDeveloper(ctx.StateDB, p.Developer, p.Owner)
	if err != nil {
		return err
	}
	bonus, err := math.Add(rec.BonusRewards, p.Amount)
	if err != nil {
		return err
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := ctx.Transfer(params.AssetWhistle, ctx.From, pool.TokenVault, p.Amount); err != nil {
		return err
	}
	rec.BonusRewards = bonus
	if err := store(ctx.StateDB, p.Developer, rec); err != nil {
		return err
	}
	ctx.Log("Developer bonus funded", "owner", p.Owner, "amount", p.Amount, "total", bonus)
	return nil
}
