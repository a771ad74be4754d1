package vault

import (
	"fmt"

	mapset "github.com/deckarep/golang-set"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/provider"
	"github.com/whistlenet/whistle/sysaction"
)

type bonusEntry struct {
	index int
	rec   *types.ProviderRecord
}

func (h *vaultHandler) handleDistributeBonus(ctx *sysaction.Context, p *sysaction.DistributeBonusPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	v, err := loadAuthorityVault(ctx, p.Vault)
	if err != nil {
		return err
	}
	report := &DistributionReport{Outcomes: make([]CandidateOutcome, len(p.Candidates))}
	if v.BonusPool == 0 || len(p.Candidates) == 0 {
		ctx.Log("Bonus distribution skipped", "bonus_pool", v.BonusPool, "candidates", len(p.Candidates))
		return ctx.SetOutput(report)
	}
	if len(p.Candidates) > params.MaxBonusCandidates {
		return fmt.Errorf("%w: %d > %d", ErrTooManyCandidates, len(p.Candidates), params.MaxBonusCandidates)
	}
	seen := mapset.NewSet()
	for _, c := range p.Candidates {
		if !seen.Add(c.Owner) {
			return fmt.Errorf("%w: %s", ErrDuplicateCandidate, c.Owner)
		}
	}
	if err := ctx.Charge(uint64(len(p.Candidates)) * params.BonusItemCost); err != nil {
		return err
	}

	var (
		valid []bonusEntry
		total uint64
	)
	for i, c := range p.Candidates {
		report.Outcomes[i] = CandidateOutcome{Owner: c.Owner, Record: c.Record}
		rec, skip := screenCandidate(ctx.StateDB, c)
		if skip != SkipNone {
			report.Outcomes[i].Skip = skip
			report.Skipped++
			ctx.Log("Bonus candidate skipped", "provider", c.Owner, "reason", skip)
			continue
		}
		if total, err = math.Add(total, rec.ReputationScore); err != nil {
			return err
		}
		report.Outcomes[i].Score = rec.ReputationScore
		valid = append(valid, bonusEntry{index: i, rec: rec})
	}
	if len(valid) == 0 || total == 0 {
		ctx.Log("Bonus distribution found no eligible providers", "skipped", report.Skipped)
		return ctx.SetOutput(report)
	}

	bonus := v.BonusPool
	var distributed uint64
	for n, e := range valid {
		share := bonus - distributed
		if n < len(valid)-1 {
			if share, err = math.MulDiv(bonus, e.rec.ReputationScore, total); err != nil {
				return err
			}
		}
		if err := provider.CreditBonus(e.rec, share); err != nil {
			return err
		}
		distributed += share
		report.Outcomes[e.index].Amount = share
	}
	providerPool, err := math.Add(v.ProviderPool, distributed)
	if err != nil {
		return err
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	for _, e := range valid {
		c := p.Candidates[e.index]
		if err := provider.Store(ctx.StateDB, c.Record, e.rec); err != nil {
			return err
		}
	}
	v.BonusPool -= distributed
	v.ProviderPool = providerPool
	v.LastDistribution = ctx.Time
	if err := Store(ctx.StateDB, p.Vault, v); err != nil {
		return err
	}
	report.Distributed = len(valid)
	report.Amount = distributed
	ctx.Log("Bonus pool distributed", "amount", distributed, "providers", len(valid), "skipped", report.Skipped)
	return ctx.SetOutput(report)
}

// screenCandidate loads a bonus candidate and checks its eligibility. Any
// failure is reported as a skip reason rather than an error.
func screenCandidate(db sysaction.StateDB, c sysaction.BonusCandidate) (*types.ProviderRecord, SkipReason) {
	if !sysaction.RecordExists(db, c.Record) {
		return nil, SkipMissing
	}
	if db.GetOwner(c.Record) != params.ProgramID {
		return nil, SkipForeignOwner
	}
	rec, err := types.DecodeProviderRecord(db.GetData(c.Record))
	if err != nil {
		return nil, SkipUndecodable
	}
	if c.Record != provider.Address(c.Owner) || rec.Owner != c.Owner {
		return nil, SkipAddress
	}
	if !rec.Active {
		return nil, SkipInactive
	}
	if rec.EffectiveBond() < params.MinProviderBond {
		return nil, SkipLowBond
	}
	if rec.QueriesServed == 0 {
		return nil, SkipNoQueries
	}
	return rec, SkipNone
}

// TopCandidates returns the bonus candidates for owners in the given order.
func TopCandidates(owners []common.Address) []sysaction.BonusCandidate {
	out := make([]sysaction.BonusCandidate, len(owners))
	for i, o := range owners {
		out[i] = sysaction.BonusCandidate{Owner: o, Record: provider.Address(o)}
	}
	return out
}
