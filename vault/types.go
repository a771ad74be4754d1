// Package vault implements the revenue vault: per-query fee collection and
// its four-way split, provider and staker claims, reputation-weighted bonus
// distribution, and query authorization.
package vault

import (
	"fmt"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/sysaction"
)

// Sentinel errors returned by system action handlers.
var (
	ErrInvalidCost         = fmt.Errorf("vault: query cost out of range: %w", sysaction.ErrPolicyViolation)
	ErrNothingToClaim      = fmt.Errorf("vault: no pending earnings: %w", sysaction.ErrPolicyViolation)
	ErrVaultUnderfunded    = fmt.Errorf("vault: balance below payout: %w", sysaction.ErrInsufficientFunds)
	ErrNotAuthority        = fmt.Errorf("vault: signer is not the vault authority: %w", sysaction.ErrAuthorization)
	ErrTooManyCandidates   = fmt.Errorf("vault: too many bonus candidates: %w", sysaction.ErrCapacityExceeded)
	ErrDuplicateCandidate  = fmt.Errorf("vault: duplicate bonus candidate: %w", sysaction.ErrPolicyViolation)
	ErrNoStake             = fmt.Errorf("vault: pool has no stake: %w", sysaction.ErrPolicyViolation)
	ErrVaultInitialized    = fmt.Errorf("vault: already initialized: %w", sysaction.ErrRecordState)
	ErrStakerNotStaked     = fmt.Errorf("vault: staker has no stake: %w", sysaction.ErrPolicyViolation)
	ErrStakerNoTokens      = fmt.Errorf("vault: staker has no access tokens: %w", sysaction.ErrPolicyViolation)
	ErrPoolInactive        = fmt.Errorf("vault: staking pool inactive: %w", sysaction.ErrPolicyViolation)
	ErrInsufficientPayment = fmt.Errorf("vault: payer balance below cost: %w", sysaction.ErrInsufficientFunds)
)

// SkipReason explains why a bonus candidate received nothing.
type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipForeignOwner SkipReason = "foreign_owner"
	SkipMissing      SkipReason = "missing"
	SkipUndecodable  SkipReason = "undecodable"
	SkipAddress      SkipReason = "address_mismatch"
	SkipInactive     SkipReason = "inactive"
	SkipLowBond      SkipReason = "low_bond"
	SkipNoQueries    SkipReason = "no_queries"
)

// CandidateOutcome is the result of one bonus candidate.
type CandidateOutcome struct {
	Owner  common.Address `json:"owner"`
	Record common.Address `json:"record"`
	Score  uint64         `json:"score,omitempty"`
	Amount uint64         `json:"amount"`
	Skip   SkipReason     `json:"skip,omitempty"`
}

// DistributionReport is the output of a bonus distribution.
type DistributionReport struct {
	Outcomes    []CandidateOutcome `json:"outcomes"`
	Distributed int                `json:"distributed"`
	Skipped     int                `json:"skipped"`
	Amount      uint64             `json:"amount"`
}

// StakerCheckpoint is the output of a staker reward checkpoint.
type StakerCheckpoint struct {
	RewardsPool uint64 `json:"rewards_pool"`
	TotalStaked uint64 `json:"total_staked"`
	Time        int64  `json:"time"`
}
