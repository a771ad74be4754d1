package developer

import (
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/provider"
	"github.com/whistlenet/whistle/sysaction"
	"github.com/whistlenet/whistle/vault"
)

func (h *developerHandler) handleProcessQuery(ctx *sysaction.Context, p *sysaction.DeveloperQueryPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	owner := ctx.From
	rec, err := loadActive(ctx.StateDB, p.Developer, owner)
	if err != nil {
		return err
	}
	v, err := sysaction.LoadVault(ctx.StateDB, p.Vault)
	if err != nil {
		return err
	}
	prov, err := provider.LoadActive(ctx.StateDB, p.Provider, p.ProviderOwner)
	if err != nil {
		return err
	}
	if err := vault.ValidateCost(p.Cost); err != nil {
		return err
	}
	if ctx.Time-rec.LastMonthReset > params.MonthSeconds {
		rec.FreeQueriesUsedMonth = 0
		rec.LastMonthReset = ctx.Time
	}
	rebate, err := math.BasisPoints(p.Cost, rec.RebateBPS)
	if err != nil {
		return err
	}
	net, err := math.Sub(p.Cost, rebate)
	if err != nil {
		return err
	}
	if ctx.StateDB.GetBalance(params.AssetNative, owner) < net {
		return ErrInsufficientBalance
	}
	shares, err := vault.Split(p.Cost)
	if err != nil {
		return err
	}
	if err := vault.Credit(v, p.Cost, shares); err != nil {
		return err
	}
	if v.DeveloperRebatePool, err = math.Add(v.DeveloperRebatePool, rebate); err != nil {
		return err
	}
	if err := vault.CreditProvider(prov, shares.Provider); err != nil {
		return err
	}
	if rec.TotalQueries, err = math.Add(rec.TotalQueries, 1); err != nil {
		return err
	}
	if rec.FreeQueriesUsedMonth, err = math.Add(rec.FreeQueriesUsedMonth, 1); err != nil {
		return err
	}

	receipt := &QueryReceipt{Cost: p.Cost, Rebate: rebate, Net: net, ProviderShare: shares.Provider, Outcome: ReferralNone}
	var referrer *types.DeveloperRecord
	if rec.ReferredBy != nil {
		if receipt.Referral, err = math.MulDiv(p.Cost, params.ReferralPercent, 100); err != nil {
			return err
		}
		referrer, receipt.Outcome = screenReferrer(ctx.StateDB, p, rec)
		if referrer != nil {
			if referrer.ReferralEarnings, err = math.Add(referrer.ReferralEarnings, receipt.Referral); err != nil {
				return err
			}
			if rec.TotalQueries == 1 {
				if referrer.ReferralsMade, err = math.Add(referrer.ReferralsMade, 1); err != nil {
					return err
				}
			}
		} else if v.DeveloperRebatePool, err = math.Add(v.DeveloperRebatePool, receipt.Referral); err != nil {
			return err
		}
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := ctx.Transfer(params.AssetNative, owner, p.Vault, net); err != nil {
		return err
	}
	if err := vault.Store(ctx.StateDB, p.Vault, v); err != nil {
		return err
	}
	if err := provider.Store(ctx.StateDB, p.Provider, prov); err != nil {
		return err
	}
	if referrer != nil && referrer != rec {
		if err := store(ctx.StateDB, *p.ReferrerRecord, referrer); err != nil {
			return err
		}
	}
	if err := store(ctx.StateDB, p.Developer, rec); err != nil {
		return err
	}
	switch receipt.Outcome {
	case ReferralNone:
	case ReferralCredited:
		ctx.Log("Referral credited", "referrer", *rec.ReferredBy, "amount", receipt.Referral)
	default:
		ctx.Log("Referral returned to rebate pool", "referrer", *rec.ReferredBy, "amount", receipt.Referral, "reason", receipt.Outcome)
	}
	ctx.Log("Developer query processed", "owner", owner, "cost", p.Cost, "rebate", rebate, "net", net, "provider_share", shares.Provider)
	return ctx.SetOutput(receipt)
}

// screenReferrer resolves the referrer record supplied with a developer query.
// A nil record comes with the reason the referral cannot be credited.
func screenReferrer(db sysaction.StateDB, p *sysaction.DeveloperQueryPayload, dev *types.DeveloperRecord) (*types.DeveloperRecord, ReferralOutcome) {
	want := *dev.ReferredBy
	if p.ReferrerRecord == nil {
		return nil, ReferralMissing
	}
	addr := *p.ReferrerRecord
	if !sysaction.RecordExists(db, addr) {
		return nil, ReferralMissing
	}
	if db.GetOwner(addr) != params.ProgramID {
		return nil, ReferralForeignOwner
	}
	if addr != Address(want) {
		return nil, ReferralAddress
	}
	// A developer referring itself shares one record with the referrer.
	if addr == p.Developer {
		if !dev.Active {
			return nil, ReferralInactive
		}
		return dev, ReferralCredited
	}
	rec, err := types.DecodeDeveloperRecord(db.GetData(addr))
	if err != nil {
		return nil, ReferralUndecodable
	}
	if rec.Owner != want {
		return nil, ReferralOwnerMismatch
	}
	if !rec.Active {
		return nil, ReferralInactive
	}
	return rec, ReferralCredited
}

// ReferrerRecord returns the referrer record a developer query for rec should
// carry, if the developer was referred.
func ReferrerRecord(rec *types.DeveloperRecord) *common.Address {
	if rec.ReferredBy == nil {
		return nil
	}
	addr := Address(*rec.ReferredBy)
	return &addr
}
