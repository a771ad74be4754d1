package staking

import (
	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/sysaction"
)

func (h *stakingHandler) handleStake(ctx *sysaction.Context, p *sysaction.StakePayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	owner := ctx.From
	if p.Amount == 0 {
		return ErrZeroAmount
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	if !pool.IsActive {
		return ErrPoolInactive
	}
	if p.Amount < pool.MinStakeAmount {
		return ErrBelowMinimum
	}
	if err := sysaction.CheckAddress(p.Staker, params.SeedStaker, owner); err != nil {
		return err
	}
	if ctx.StateDB.GetBalance(params.AssetWhistle, owner) < p.Amount {
		return ErrInsufficientBalance
	}
	minted, err := math.Mul(p.Amount, pool.TokensPerWhistle)
	if err != nil {
		return err
	}
	if minted == 0 {
		return ErrNothingMinted
	}

	// 1. Load or create the staker record. A record zeroed by a full unstake
	//    counts as a new participant again.
	var (
		rec     *types.StakerRecord
		created bool
	)
	if sysaction.RecordExists(ctx.StateDB, p.Staker) {
		if rec, err = sysaction.LoadStaker(ctx.StateDB, p.Staker, owner); err != nil {
			return err
		}
	} else {
		rec, created = &types.StakerRecord{Owner: owner}, true
	}
	newParticipant := rec.StakedAmount == 0

	// 2. Checked totals against the per-participant cap.
	staked, err := math.Add(rec.StakedAmount, p.Amount)
	if err != nil {
		return err
	}
	if staked > pool.MaxStakePerUser {
		return ErrStakeCapExceeded
	}
	tokens, err := math.Add(rec.AccessTokens, minted)
	if err != nil {
		return err
	}
	votingPower, err := math.Add(rec.VotingPower, minted)
	if err != nil {
		return err
	}
	totalStaked, err := math.Add(pool.TotalStaked, p.Amount)
	if err != nil {
		return err
	}
	totalTokens, err := math.Add(pool.TotalAccessTokens, minted)
	if err != nil {
		return err
	}
	totalStakers := pool.TotalStakers
	if newParticipant {
		if totalStakers, err = math.Add(totalStakers, 1); err != nil {
			return err
		}
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := ctx.Transfer(params.AssetWhistle, owner, pool.TokenVault, p.Amount); err != nil {
		return err
	}
	rec.StakedAmount = staked
	rec.AccessTokens = tokens
	rec.VotingPower = votingPower
	rec.LastStakeTime = ctx.Time
	if created {
		err = sysaction.CreateRecord(ctx.StateDB, p.Staker, types.StakerSize, rec.Encode())
	} else {
		err = writeStaker(ctx.StateDB, p.Staker, rec)
	}
	if err != nil {
		return err
	}
	pool.TotalStaked = totalStaked
	pool.TotalAccessTokens = totalTokens
	pool.TotalStakers = totalStakers
	if err := writePool(ctx.StateDB, p.Pool, pool); err != nil {
		return err
	}
	ctx.Log("Staked", "owner", owner, "amount", p.Amount, "minted", minted)
	return nil
}

func (h *stakingHandler) handleUnstake(ctx *sysaction.Context, p *sysaction.StakePayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	owner := ctx.From
	if p.Amount == 0 {
		return ErrZeroAmount
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	if !pool.IsActive {
		return ErrPoolInactive
	}
	rec, err := sysaction.LoadStaker(ctx.StateDB, p.Staker, owner)
	if err != nil {
		return err
	}
	if ctx.Time-rec.LastStakeTime < pool.CooldownPeriod {
		return ErrCooldownActive
	}
	if p.Amount > rec.StakedAmount {
		return ErrInsufficientStake
	}
	burn, err := BurnAmount(rec.AccessTokens, rec.StakedAmount, p.Amount)
	if err != nil {
		return err
	}
	if burn > rec.AccessTokens {
		return ErrInsufficientTokens
	}
	totalStaked, err := math.Sub(pool.TotalStaked, p.Amount)
	if err != nil {
		return err
	}
	totalTokens, err := math.Sub(pool.TotalAccessTokens, burn)
	if err != nil {
		return err
	}
	nodeMin, err := NodeOperatorMinimum(pool)
	if err != nil {
		return err
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := ReleaseCollateral(ctx, pool, owner, p.Amount); err != nil {
		return err
	}
	rec.StakedAmount -= p.Amount
	rec.AccessTokens -= burn
	rec.VotingPower = math.SaturatingSub(rec.VotingPower, burn)
	if rec.NodeOperator && rec.StakedAmount < nodeMin {
		rec.NodeOperator = false
		ctx.Log("Node operator status revoked", "owner", owner)
	}
	if err := writeStaker(ctx.StateDB, p.Staker, rec); err != nil {
		return err
	}
	pool.TotalStaked = totalStaked
	pool.TotalAccessTokens = totalTokens
	if rec.StakedAmount == 0 {
		pool.TotalStakers = math.SaturatingSub(pool.TotalStakers, 1)
	}
	if err := writePool(ctx.StateDB, p.Pool, pool); err != nil {
		return err
	}
	ctx.Log("Unstaked", "owner", owner, "amount", p.Amount, "burned", burn)
	return nil
}

func (h *stakingHandler) handleDelegate(ctx *sysaction.Context, p *sysaction.DelegatePayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	owner := ctx.From
	if p.Amount == 0 {
		return ErrZeroAmount
	}
	if p.ToOwner == owner {
		return ErrSelfDelegation
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	if !pool.IsActive {
		return ErrPoolInactive
	}
	from, err := sysaction.LoadStaker(ctx.StateDB, p.FromRecord, owner)
	if err != nil {
		return err
	}
	to, err := sysaction.LoadStaker(ctx.StateDB, p.ToRecord, p.ToOwner)
	if err != nil {
		return err
	}
	if from.AccessTokens < p.Amount {
		return ErrInsufficientTokens
	}
	if to.StakedAmount < pool.MinStakeAmount {
		return ErrRecipientNotStaked
	}
	limit, err := DelegationCap(to.StakedAmount, pool.TokensPerWhistle)
	if err != nil {
		return err
	}
	after, err := math.Add(to.AccessTokens, p.Amount)
	if err != nil {
		return err
	}
	if after > limit {
		return ErrDelegationCap
	}
	toPower, err := math.Add(to.VotingPower, p.Amount)
	if err != nil {
		return err
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	from.AccessTokens -= p.Amount
	from.VotingPower = math.SaturatingSub(from.VotingPower, p.Amount)
	to.AccessTokens = after
	to.VotingPower = toPower
	if err := writeStaker(ctx.StateDB, p.FromRecord, from); err != nil {
		return err
	}
	if err := writeStaker(ctx.StateDB, p.ToRecord, to); err != nil {
		return err
	}
	ctx.Log("Delegated access tokens", "from", owner, "to", p.ToOwner, "amount", p.Amount)
	return nil
}

func (h *stakingHandler) handleActivateNodeOperator(ctx *sysaction.Context, p *sysaction.StakerPayload) error {
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	if !pool.IsActive {
		return ErrPoolInactive
	}
	rec, err := sysaction.LoadStaker(ctx.StateDB, p.Staker, ctx.From)
	if err != nil {
		return err
	}
	// Delegated tokens do not count, only locked collateral.
	nodeMin, err := NodeOperatorMinimum(pool)
	if err != nil {
		return err
	}
	if rec.StakedAmount < nodeMin {
		return ErrNodeOperatorStake
	}
	rec.NodeOperator = true
	if err := writeStaker(ctx.StateDB, p.Staker, rec); err != nil {
		return err
	}
	ctx.Log("Node operator activated", "owner", ctx.From)
	return nil
}

func (h *stakingHandler) handleRecordDataUsage(ctx *sysaction.Context, p *sysaction.DataUsagePayload) error {
	if p.Bytes == 0 {
		return ErrZeroAmount
	}
	rec, err := sysaction.LoadStaker(ctx.StateDB, p.Staker, ctx.From)
	if err != nil {
		return err
	}
	if !rec.NodeOperator {
		return ErrNotNodeOperator
	}
	total, err := math.Add(rec.DataEncrypted, p.Bytes)
	if err != nil {
		return err
	}
	rec.DataEncrypted = total
	if err := writeStaker(ctx.StateDB, p.Staker, rec); err != nil {
		return err
	}
	ctx.Log("Recorded encrypted data", "owner", ctx.From, "bytes", p.Bytes)
	return nil
}
