package developer

import "github.com/whistlenet/whistle/core/types"

// tierBracket is the lower stake bound of a rebate tier.
type tierBracket struct {
	minStake  uint64
	tier      types.DeveloperTier
	rebateBPS uint64
}

// Brackets in descending order of stake.
var brackets = []tierBracket{
	{10_000_000_000_000_000, types.TierWhale, 10_000},
	{2_500_000_000_000_000, types.TierEnterprise, 7_500},
	{500_000_000_000_000, types.TierPro, 5_000},
	{100_000_000_000_000, types.TierBuilder, 2_500},
	{10_000_000_000_000, types.TierHobbyist, 1_000},
}

// TierOf returns the tier and rebate, in basis points, unlocked by a stake.
// Stakes below the lowest bracket are hobbyists without a rebate.
func TierOf(staked uint64) (types.DeveloperTier, uint64) {
	for _, b := range brackets {
		if staked >= b.minStake {
			return b.tier, b.rebateBPS
		}
	}
	return types.TierHobbyist, 0
}

// retier recomputes the tier of rec from its current stake.
func retier(rec *types.DeveloperRecord) (old types.DeveloperTier) {
	old = rec.Tier
	rec.Tier, rec.RebateBPS = TierOf(rec.WhistleStaked)
	return old
}
