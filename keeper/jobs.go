package keeper

import (
	"sort"

	"github.com/whistlenet/whistle/bridge"
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/staking"
	"github.com/whistlenet/whistle/sysaction"
	"github.com/whistlenet/whistle/vault"
)

// BonusProviders returns the owners of the providers eligible for a bonus,
// best reputation first. Ties go to the lower address.
func BonusProviders(l Ledger) ([]common.Address, error) {
	var recs []*types.ProviderRecord
	err := l.Records(func(addr common.Address, data []byte) bool {
		if types.RecordKind(data) != types.KindProvider {
			return true
		}
		rec, err := types.DecodeProviderRecord(data)
		if err != nil {
			return true
		}
		if rec.Active && rec.QueriesServed > 0 && rec.EffectiveBond() >= params.MinProviderBond {
			recs = append(recs, rec)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].ReputationScore != recs[j].ReputationScore {
			return recs[i].ReputationScore > recs[j].ReputationScore
		}
		return recs[i].Owner.Cmp(recs[j].Owner) < 0
	})
	owners := make([]common.Address, len(recs))
	for i, rec := range recs {
		owners[i] = rec.Owner
	}
	return owners, nil
}

func (k *Keeper) bonusPool() (uint64, error) {
	var pool uint64
	err := k.ledger.View(func(db sysaction.StateDB) error {
		v, err := sysaction.LoadVault(db, vault.Address(k.ledger.Authority()))
		if err != nil {
			return err
		}
		pool = v.BonusPool
		return nil
	})
	return pool, err
}

// DistributeBonus hands the bonus pool to the eligible providers in batches
// of at most BatchSize, best reputation first. A distribution drains the
// pool, so later batches only run if an earlier one distributed nothing.
func (k *Keeper) DistributeBonus() (*Run, error) {
	run := k.newRun(JobBonus)
	defer k.finish(run)

	owners, err := BonusProviders(k.ledger)
	if err != nil {
		return run, err
	}
	if len(owners) == 0 {
		run.Note = "no eligible providers"
		return run, nil
	}
	v := vault.Address(k.ledger.Authority())
	for start := 0; start < len(owners); start += k.config.BatchSize {
		pool, err := k.bonusPool()
		if err != nil {
			return run, err
		}
		if pool == 0 {
			if len(run.Receipts) == 0 {
				run.Note = "bonus pool empty"
			}
			return run, nil
		}
		end := start + k.config.BatchSize
		if end > len(owners) {
			end = len(owners)
		}
		r, err := k.execute(run, sysaction.ActionVaultDistributeBonus, sysaction.DistributeBonusPayload{
			Vault:      v,
			Candidates: vault.TopCandidates(owners[start:end]),
		})
		if err != nil {
			return run, err
		}
		if r.Failed() {
			return run, nil
		}
	}
	return run, nil
}

// ReconcileBridge forwards the bridge wallet balance above the reserve into
// the vault, clamped to the payment bounds.
func (k *Keeper) ReconcileBridge() (*Run, error) {
	run := k.newRun(JobBridge)
	defer k.finish(run)

	wallet := bridge.WalletAddress()
	amount := bridge.Reconcilable(k.ledger.Balance(params.AssetNative, wallet))
	if amount == 0 {
		run.Note = "nothing above reserve"
		return run, nil
	}
	_, err := k.execute(run, sysaction.ActionBridgeProcessPayment, sysaction.BridgePaymentPayload{
		Vault:  vault.Address(k.ledger.Authority()),
		Wallet: wallet,
		Amount: amount,
	})
	return run, err
}

// CheckpointStakers records a staker-reward checkpoint.
func (k *Keeper) CheckpointStakers() (*Run, error) {
	run := k.newRun(JobStaker)
	defer k.finish(run)

	authority := k.ledger.Authority()
	_, err := k.execute(run, sysaction.ActionVaultDistributeStakerRewards, sysaction.VaultPayload{
		Vault: vault.Address(authority),
		Pool:  staking.PoolAddress(authority),
	})
	return run, err
}
