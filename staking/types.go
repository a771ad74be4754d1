// Package staking implements the stake ledger: custody of locked collateral,
// the access tokens it mints, cooldown-gated withdrawal and delegation of
// access tokens between stakers.
package staking

import (
	"fmt"

	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/sysaction"
)

// AccessTier is the privilege level granted by a staker's access tokens.
type AccessTier uint8

const (
	TierBasic AccessTier = iota
	TierPremium
	TierElite
)

func (t AccessTier) String() string {
	switch t {
	case TierBasic:
		return "basic"
	case TierPremium:
		return "premium"
	case TierElite:
		return "elite"
	}
	return fmt.Sprintf("AccessTier(%d)", uint8(t))
}

// AccessTierOf returns the tier unlocked by holding tokens access tokens.
func AccessTierOf(tokens uint64) AccessTier {
	switch {
	case tokens >= params.EliteAccessTokens:
		return TierElite
	case tokens >= params.PremiumAccessTokens:
		return TierPremium
	}
	return TierBasic
}

// Sentinel errors returned by system action handlers.
var (
	ErrZeroAmount          = fmt.Errorf("staking: amount must be positive: %w", sysaction.ErrPolicyViolation)
	ErrPoolInactive        = fmt.Errorf("staking: pool is not active: %w", sysaction.ErrPolicyViolation)
	ErrBelowMinimum        = fmt.Errorf("staking: amount below pool minimum: %w", sysaction.ErrPolicyViolation)
	ErrInvalidMintRate     = fmt.Errorf("staking: mint rate out of range: %w", sysaction.ErrPolicyViolation)
	ErrInvalidMinStake     = fmt.Errorf("staking: minimum stake must be positive: %w", sysaction.ErrPolicyViolation)
	ErrInvalidCooldown     = fmt.Errorf("staking: cooldown must not be negative: %w", sysaction.ErrPolicyViolation)
	ErrNothingMinted       = fmt.Errorf("staking: stake mints no access tokens: %w", sysaction.ErrPolicyViolation)
	ErrCooldownActive      = fmt.Errorf("staking: cooldown period not elapsed: %w", sysaction.ErrPolicyViolation)
	ErrRecipientNotStaked  = fmt.Errorf("staking: recipient stake below pool minimum: %w", sysaction.ErrPolicyViolation)
	ErrSelfDelegation      = fmt.Errorf("staking: cannot delegate to self: %w", sysaction.ErrPolicyViolation)
	ErrNotNodeOperator     = fmt.Errorf("staking: not a node operator: %w", sysaction.ErrPolicyViolation)
	ErrNodeOperatorStake   = fmt.Errorf("staking: stake below node operator minimum: %w", sysaction.ErrInsufficientFunds)
	ErrRateLocked          = fmt.Errorf("staking: mint rate is locked: %w", sysaction.ErrPolicyViolation)
	ErrInsufficientBalance = fmt.Errorf("staking: collateral balance below amount: %w", sysaction.ErrInsufficientFunds)
	ErrInsufficientStake   = fmt.Errorf("staking: amount exceeds staked collateral: %w", sysaction.ErrInsufficientFunds)
	ErrInsufficientTokens  = fmt.Errorf("staking: amount exceeds access tokens: %w", sysaction.ErrInsufficientFunds)
	ErrStakeCapExceeded    = fmt.Errorf("staking: stake above per-user maximum: %w", sysaction.ErrCapacityExceeded)
	ErrDelegationCap       = fmt.Errorf("staking: delegation above recipient cap: %w", sysaction.ErrCapacityExceeded)
	ErrPoolInitialized     = fmt.Errorf("staking: pool already initialized: %w", sysaction.ErrRecordState)
	ErrNotAuthority        = fmt.Errorf("staking: signer is not the pool authority: %w", sysaction.ErrAuthorization)
)
