// Package provider implements the provider registry: bonded relay providers,
// their liveness heartbeats, composite reputation scores and slashing.
package provider

import (
	"fmt"

	"github.com/whistlenet/whistle/sysaction"
)

// SlashReason names the violation a provider is penalized for.
type SlashReason string

const (
	LowUptime       SlashReason = "LowUptime"
	WrongData       SlashReason = "WrongData"
	SlowResponse    SlashReason = "SlowResponse"
	MissedHeartbeat SlashReason = "MissedHeartbeat"
)

// Valid reports whether r is a known slash reason.
func (r SlashReason) Valid() bool {
	switch r {
	case LowUptime, WrongData, SlowResponse, MissedHeartbeat:
		return true
	}
	return false
}

// Sentinel errors returned by system action handlers.
var (
	ErrBondTooLow          = fmt.Errorf("provider: bond below minimum: %w", sysaction.ErrPolicyViolation)
	ErrInvalidEndpoint     = fmt.Errorf("provider: invalid endpoint: %w", sysaction.ErrPolicyViolation)
	ErrEndpointTooLong     = fmt.Errorf("provider: endpoint exceeds reserved space: %w", sysaction.ErrCapacityExceeded)
	ErrAlreadyRegistered   = fmt.Errorf("provider: already registered: %w", sysaction.ErrRecordState)
	ErrNotActive           = fmt.Errorf("provider: not active: %w", sysaction.ErrPolicyViolation)
	ErrPendingEarnings     = fmt.Errorf("provider: claim earnings before deregistering: %w", sysaction.ErrPolicyViolation)
	ErrHeartbeatBackwards  = fmt.Errorf("provider: heartbeat earlier than previous: %w", sysaction.ErrPolicyViolation)
	ErrHeartbeatTooFar     = fmt.Errorf("provider: heartbeat too far ahead: %w", sysaction.ErrPolicyViolation)
	ErrHeartbeatRateLimit  = fmt.Errorf("provider: heartbeat interval too short: %w", sysaction.ErrPolicyViolation)
	ErrMetricOutOfRange    = fmt.Errorf("provider: metric out of range: %w", sysaction.ErrPolicyViolation)
	ErrInvalidSlashReason  = fmt.Errorf("provider: unknown slash reason: %w", sysaction.ErrPolicyViolation)
	ErrInsufficientBond    = fmt.Errorf("provider: penalty exceeds remaining bond: %w", sysaction.ErrInsufficientFunds)
	ErrInsufficientBalance = fmt.Errorf("provider: collateral balance below bond: %w", sysaction.ErrInsufficientFunds)
	ErrNotVaultAuthority   = fmt.Errorf("provider: signer is not the vault authority: %w", sysaction.ErrAuthorization)
)
