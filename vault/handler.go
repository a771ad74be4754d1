package vault

import (
	"fmt"

	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/provider"
	"github.com/whistlenet/whistle/sysaction"
)

func init() {
	sysaction.DefaultRegistry.Register(&vaultHandler{})
}

// vaultHandler implements sysaction.Handler for the revenue vault.
type vaultHandler struct{}

func (h *vaultHandler) CanHandle(kind sysaction.ActionKind) bool {
	switch kind {
	case sysaction.ActionVaultInit,
		sysaction.ActionVaultProcessQueryPayment,
		sysaction.ActionVaultClaimProviderEarnings,
		sysaction.ActionVaultDistributeBonus,
		sysaction.ActionVaultDistributeStakerRewards,
		sysaction.ActionVaultClaimStakerRewards,
		sysaction.ActionVaultAuthorizeQuery,
		sysaction.ActionVaultRecordQuery:
		return true
	}
	return false
}

func (h *vaultHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	switch sa.Action {
	case sysaction.ActionVaultInit:
		var p sysaction.VaultPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("init vault: %w", err)
		}
		return h.handleInit(ctx, &p)

	case sysaction.ActionVaultProcessQueryPayment:
		var p sysaction.QueryPaymentPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("process query payment: %w", err)
		}
		return h.handleQueryPayment(ctx, &p)

	case sysaction.ActionVaultClaimProviderEarnings:
		var p sysaction.ClaimProviderPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("claim provider earnings: %w", err)
		}
		return h.handleClaimProvider(ctx, &p)

	case sysaction.ActionVaultDistributeBonus:
		var p sysaction.DistributeBonusPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("distribute bonus: %w", err)
		}
		return h.handleDistributeBonus(ctx, &p)

	case sysaction.ActionVaultDistributeStakerRewards:
		var p sysaction.VaultPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("distribute staker rewards: %w", err)
		}
		return h.handleStakerCheckpoint(ctx, &p)

	case sysaction.ActionVaultClaimStakerRewards:
		var p sysaction.ClaimStakerPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("claim staker rewards: %w", err)
		}
		return h.handleClaimStaker(ctx, &p)

	case sysaction.ActionVaultAuthorizeQuery:
		var p sysaction.AuthorizeQueryPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("authorize query: %w", err)
		}
		return h.handleAuthorizeQuery(ctx, &p)

	case sysaction.ActionVaultRecordQuery:
		var p sysaction.RecordQueryPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("record query: %w", err)
		}
		return h.handleRecordQuery(ctx, &p)
	}
	return fmt.Errorf("vault handler: unsupported action %q", sa.Action)
}

func (h *vaultHandler) handleInit(ctx *sysaction.Context, p *sysaction.VaultPayload) error {
	authority := ctx.From
	if err := sysaction.CheckAddress(p.Vault, params.SeedPaymentVault, authority); err != nil {
		return err
	}
	if sysaction.RecordExists(ctx.StateDB, p.Vault) {
		return ErrVaultInitialized
	}
	v := &types.VaultRecord{Authority: authority, LastDistribution: ctx.Time}
	if err := sysaction.CreateRecord(ctx.StateDB, p.Vault, types.VaultSize, v.Encode()); err != nil {
		return err
	}
	ctx.Log("Payment vault initialized", "vault", p.Vault, "authority", authority)
	return nil
}

// ValidateCost checks a query cost against the accepted range.
func ValidateCost(cost uint64) error {
	if cost == 0 || cost > params.MaxQueryCost {
		return fmt.Errorf("%w: %d", ErrInvalidCost, cost)
	}
	return nil
}

func (h *vaultHandler) handleQueryPayment(ctx *sysaction.Context, p *sysaction.QueryPaymentPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	payer := ctx.From
	if err := ValidateCost(p.Cost); err != nil {
		return err
	}
	v, err := sysaction.LoadVault(ctx.StateDB, p.Vault)
	if err != nil {
		return err
	}
	rec, err := provider.LoadActive(ctx.StateDB, p.Provider, p.ProviderOwner)
	if err != nil {
		return err
	}
	if ctx.StateDB.GetBalance(params.AssetNative, payer) < p.Cost {
		return ErrInsufficientPayment
	}
	shares, err := Split(p.Cost)
	if err != nil {
		return err
	}
	if err := Credit(v, p.Cost, shares); err != nil {
		return err
	}
	if err := CreditProvider(rec, shares.Provider); err != nil {
		return err
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := ctx.Transfer(params.AssetNative, payer, p.Vault, p.Cost); err != nil {
		return err
	}
	if err := Store(ctx.StateDB, p.Vault, v); err != nil {
		return err
	}
	if err := provider.Store(ctx.StateDB, p.Provider, rec); err != nil {
		return err
	}
	ctx.Log("Query payment processed", "payer", payer, "provider", p.ProviderOwner, "cost", p.Cost,
		"provider_share", shares.Provider, "bonus", shares.Bonus, "treasury", shares.Treasury, "stakers", shares.Staker)
	return nil
}

func (h *vaultHandler) handleClaimProvider(ctx *sysaction.Context, p *sysaction.ClaimProviderPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	owner := ctx.From
	v, err := sysaction.LoadVault(ctx.StateDB, p.Vault)
	if err != nil {
		return err
	}
	rec, err := sysaction.LoadProvider(ctx.StateDB, p.Provider, owner)
	if err != nil {
		return err
	}
	amount := rec.PendingEarnings
	if amount == 0 {
		return ErrNothingToClaim
	}
	if err := CheckLiquidity(ctx.StateDB, p.Vault, amount); err != nil {
		return err
	}
	pool, err := math.Sub(v.ProviderPool, amount)
	if err != nil {
		return err
	}
	claimed, err := math.Add(v.TotalClaimed, amount)
	if err != nil {
		return err
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	rec.PendingEarnings = 0
	v.ProviderPool, v.TotalClaimed = pool, claimed
	if err := Pay(ctx, p.Vault, v, owner, amount); err != nil {
		return err
	}
	if err := provider.Store(ctx.StateDB, p.Provider, rec); err != nil {
		return err
	}
	if err := Store(ctx.StateDB, p.Vault, v); err != nil {
		return err
	}
	ctx.Log("Provider earnings claimed", "provider", owner, "amount", amount)
	return nil
}
