package params

const (
	ActionBaseCost   uint64 = 5_000     // Fixed processing cost of any command.
	BonusItemCost    uint64 = 25_000    // Cost of validating and crediting one bonus candidate.
	MaxOperationCost uint64 = 1_400_000 // Hard ceiling on a single command.
)

// The largest bonus batch must fit the per-operation ceiling.
const _ = MaxOperationCost - ActionBaseCost - MaxBonusCandidates*BonusItemCost
