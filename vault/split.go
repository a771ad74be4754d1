package vault

import (
	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
)

// Shares is a query fee divided between the four revenue pools.
type Shares struct {
	Provider uint64
	Bonus    uint64
	Treasury uint64
	Staker   uint64
}

// Split divides cost 70/20/5 between the provider, bonus and treasury pools.
// The staker pool takes the remainder so the shares always sum to cost.
func Split(cost uint64) (Shares, error) {
	var (
		s   Shares
		err error
	)
	if s.Provider, err = percent(cost, params.ProviderSharePercent); err != nil {
		return Shares{}, err
	}
	if s.Bonus, err = percent(cost, params.BonusSharePercent); err != nil {
		return Shares{}, err
	}
	if s.Treasury, err = percent(cost, params.TreasurySharePercent); err != nil {
		return Shares{}, err
	}
	s.Staker = cost - s.Provider - s.Bonus - s.Treasury
	return s, nil
}

func percent(x, pct uint64) (uint64, error) {
	prod, err := math.Mul(x, pct)
	if err != nil {
		return 0, err
	}
	return prod / 100, nil
}

// Credit adds a collected fee and its shares to the vault.
func Credit(v *types.VaultRecord, cost uint64, s Shares) error {
	var (
		next = *v
		err  error
	)
	if next.TotalCollected, err = math.Add(v.TotalCollected, cost); err != nil {
		return err
	}
	if next.ProviderPool, err = math.Add(v.ProviderPool, s.Provider); err != nil {
		return err
	}
	if next.BonusPool, err = math.Add(v.BonusPool, s.Bonus); err != nil {
		return err
	}
	if next.Treasury, err = math.Add(v.Treasury, s.Treasury); err != nil {
		return err
	}
	if next.StakerRewardsPool, err = math.Add(v.StakerRewardsPool, s.Staker); err != nil {
		return err
	}
	*v = next
	return nil
}

// CreditProvider records a served query worth earned on the provider.
func CreditProvider(rec *types.ProviderRecord, earned uint64) error {
	pending, err := math.Add(rec.PendingEarnings, earned)
	if err != nil {
		return err
	}
	total, err := math.Add(rec.TotalEarned, earned)
	if err != nil {
		return err
	}
	served, err := math.Add(rec.QueriesServed, 1)
	if err != nil {
		return err
	}
	rec.PendingEarnings, rec.TotalEarned, rec.QueriesServed = pending, total, served
	return nil
}
