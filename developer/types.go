// Package developer implements the developer rebate ledger. Developers lock
// collateral to earn a fee rebate on the queries they pay for, and earn a
// referral share of the queries of developers they brought in.
package developer

import (
	"fmt"

	"github.com/whistlenet/whistle/sysaction"
)

// Sentinel errors returned by system action handlers.
var (
	ErrStakeTooLow         = fmt.Errorf("developer: stake below minimum: %w", sysaction.ErrPolicyViolation)
	ErrZeroAmount          = fmt.Errorf("developer: amount must be positive: %w", sysaction.ErrPolicyViolation)
	ErrAlreadyRegistered   = fmt.Errorf("developer: already registered: %w", sysaction.ErrRecordState)
	ErrNotActive           = fmt.Errorf("developer: not active: %w", sysaction.ErrPolicyViolation)
	ErrInsufficientStake   = fmt.Errorf("developer: unstake exceeds stake: %w", sysaction.ErrInsufficientFunds)
	ErrInsufficientBalance = fmt.Errorf("developer: balance below amount: %w", sysaction.ErrInsufficientFunds)
	ErrNoBonusRewards      = fmt.Errorf("developer: no bonus rewards: %w", sysaction.ErrPolicyViolation)
	ErrNoReferralEarnings  = fmt.Errorf("developer: no referral earnings: %w", sysaction.ErrPolicyViolation)
	ErrNotAuthority        = fmt.Errorf("developer: signer is not the pool authority: %w", sysaction.ErrAuthorization)
)

// ReferralOutcome names the branch a referral payment took.
type ReferralOutcome string

const (
	ReferralNone          ReferralOutcome = "none"
	ReferralCredited      ReferralOutcome = "credited"
	ReferralMissing       ReferralOutcome = "record_missing"
	ReferralForeignOwner  ReferralOutcome = "foreign_owner"
	ReferralAddress       ReferralOutcome = "address_mismatch"
	ReferralUndecodable   ReferralOutcome = "undecodable"
	ReferralOwnerMismatch ReferralOutcome = "owner_mismatch"
	ReferralInactive      ReferralOutcome = "inactive"
)

// QueryReceipt is the output of a developer query payment.
type QueryReceipt struct {
	Cost          uint64          `json:"cost"`
	Rebate        uint64          `json:"rebate"`
	Net           uint64          `json:"net"`
	ProviderShare uint64          `json:"provider_share"`
	Referral      uint64          `json:"referral"`
	Outcome       ReferralOutcome `json:"referral_outcome"`
}
