// Package sysaction implements the whistle command protocol.
//
// Every ledger operation is a JSON-encoded SysAction carried in a command's
// Data field. The state processor calls sysaction.Execute which dispatches
// the action to the component handler registered for its kind (staking,
// provider, vault, developer or bridge).
package sysaction

import (
	"encoding/json"

	"github.com/whistlenet/whistle/common"
)

// ActionKind identifies the type of system action.
type ActionKind string

const (
	// Stake ledger
	ActionStakingInitPool       ActionKind = "STAKING_INIT_POOL"
	ActionStakingStake          ActionKind = "STAKING_STAKE"
	ActionStakingUnstake        ActionKind = "STAKING_UNSTAKE"
	ActionStakingDelegate       ActionKind = "STAKING_DELEGATE"
	ActionStakingActivateNodeOp ActionKind = "STAKING_ACTIVATE_NODE_OPERATOR"
	ActionStakingRecordUsage    ActionKind = "STAKING_RECORD_DATA_USAGE"
	ActionStakingSetPoolStatus  ActionKind = "STAKING_SET_POOL_STATUS"
	ActionStakingLockRate       ActionKind = "STAKING_LOCK_RATE"
	ActionStakingSetMintRate    ActionKind = "STAKING_SET_MINT_RATE"

	// Provider registry
	ActionProviderRegister         ActionKind = "PROVIDER_REGISTER"
	ActionProviderDeregister       ActionKind = "PROVIDER_DEREGISTER"
	ActionProviderUpdateEndpoint   ActionKind = "PROVIDER_UPDATE_ENDPOINT"
	ActionProviderHeartbeat        ActionKind = "PROVIDER_HEARTBEAT"
	ActionProviderRecordMetrics    ActionKind = "PROVIDER_RECORD_METRICS"
	ActionProviderUpdateReputation ActionKind = "PROVIDER_UPDATE_REPUTATION"
	ActionProviderSlash            ActionKind = "PROVIDER_SLASH"

	// Revenue vault
	ActionVaultInit                    ActionKind = "VAULT_INIT"
	ActionVaultProcessQueryPayment     ActionKind = "VAULT_PROCESS_QUERY_PAYMENT"
	ActionVaultClaimProviderEarnings   ActionKind = "VAULT_CLAIM_PROVIDER_EARNINGS"
	ActionVaultDistributeBonus         ActionKind = "VAULT_DISTRIBUTE_BONUS"
	ActionVaultDistributeStakerRewards ActionKind = "VAULT_DISTRIBUTE_STAKER_REWARDS"
	ActionVaultClaimStakerRewards      ActionKind = "VAULT_CLAIM_STAKER_REWARDS"
	ActionVaultAuthorizeQuery          ActionKind = "VAULT_AUTHORIZE_QUERY"
	ActionVaultRecordQuery             ActionKind = "VAULT_RECORD_QUERY"

	// Developer rebate ledger
	ActionDeveloperRegister      ActionKind = "DEVELOPER_REGISTER"
	ActionDeveloperStake         ActionKind = "DEVELOPER_STAKE"
	ActionDeveloperUnstake       ActionKind = "DEVELOPER_UNSTAKE"
	ActionDeveloperProcessQuery  ActionKind = "DEVELOPER_PROCESS_QUERY"
	ActionDeveloperClaimRewards  ActionKind = "DEVELOPER_CLAIM_REWARDS"
	ActionDeveloperClaimReferral ActionKind = "DEVELOPER_CLAIM_REFERRAL"
	ActionDeveloperFundBonus     ActionKind = "DEVELOPER_FUND_BONUS"

	// External payment bridge
	ActionBridgeInitWallet     ActionKind = "BRIDGE_INIT_WALLET"
	ActionBridgeProcessPayment ActionKind = "BRIDGE_PROCESS_PAYMENT"
)

// SysAction is the top-level envelope stored in a command's Data.
type SysAction struct {
	Action  ActionKind      `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Record addresses in payloads are always re-derived from their owner by the
// handler; a mismatch is rejected before any state is read.

// InitPoolPayload is the payload for STAKING_INIT_POOL.
type InitPoolPayload struct {
	Pool             common.Address `json:"pool"`
	TokenVault       common.Address `json:"token_vault"`
	MinStakeAmount   uint64         `json:"min_stake"`
	TokensPerWhistle uint64         `json:"tokens_per_whistle"`
	CooldownPeriod   int64          `json:"cooldown"`
}

// StakePayload is the payload for STAKING_STAKE and STAKING_UNSTAKE.
type StakePayload struct {
	Pool   common.Address `json:"pool"`
	Staker common.Address `json:"staker"`
	Amount uint64         `json:"amount"`
}

// DelegatePayload is the payload for STAKING_DELEGATE.
type DelegatePayload struct {
	Pool       common.Address `json:"pool"`
	FromRecord common.Address `json:"from_record"`
	ToOwner    common.Address `json:"to_owner"`
	ToRecord   common.Address `json:"to_record"`
	Amount     uint64         `json:"amount"`
}

// StakerPayload is the payload for STAKING_ACTIVATE_NODE_OPERATOR.
type StakerPayload struct {
	Pool   common.Address `json:"pool"`
	Staker common.Address `json:"staker"`
}

// DataUsagePayload is the payload for STAKING_RECORD_DATA_USAGE.
type DataUsagePayload struct {
	Staker common.Address `json:"staker"`
	Bytes  uint64         `json:"bytes"`
}

// PoolStatusPayload is the payload for STAKING_SET_POOL_STATUS.
type PoolStatusPayload struct {
	Pool   common.Address `json:"pool"`
	Active bool           `json:"active"`
}

// PoolPayload is the payload for STAKING_LOCK_RATE.
type PoolPayload struct {
	Pool common.Address `json:"pool"`
}

// MintRatePayload is the payload for STAKING_SET_MINT_RATE.
type MintRatePayload struct {
	Pool             common.Address `json:"pool"`
	TokensPerWhistle uint64         `json:"tokens_per_whistle"`
}

// ProviderRegisterPayload is the payload for PROVIDER_REGISTER.
type ProviderRegisterPayload struct {
	Pool     common.Address `json:"pool"`
	Provider common.Address `json:"provider"`
	Endpoint string         `json:"endpoint"`
	Bond     uint64         `json:"bond"`
}

// ProviderDeregisterPayload is the payload for PROVIDER_DEREGISTER.
type ProviderDeregisterPayload struct {
	Pool     common.Address `json:"pool"`
	Provider common.Address `json:"provider"`
}

// EndpointPayload is the payload for PROVIDER_UPDATE_ENDPOINT.
type EndpointPayload struct {
	Provider common.Address `json:"provider"`
	Endpoint string         `json:"endpoint"`
}

// HeartbeatPayload is the payload for PROVIDER_HEARTBEAT.
type HeartbeatPayload struct {
	Provider common.Address `json:"provider"`
}

// QueryMetricsPayload is the payload for PROVIDER_RECORD_METRICS.
type QueryMetricsPayload struct {
	Vault         common.Address `json:"vault"`
	ProviderOwner common.Address `json:"provider_owner"`
	Provider      common.Address `json:"provider"`
	LatencyMs     uint64         `json:"latency_ms"`
	Success       bool           `json:"success"`
}

// ReputationPayload is the payload for PROVIDER_UPDATE_REPUTATION.
type ReputationPayload struct {
	Vault         common.Address `json:"vault"`
	ProviderOwner common.Address `json:"provider_owner"`
	Provider      common.Address `json:"provider"`
	Uptime        uint64         `json:"uptime"`
	LatencyMs     uint64         `json:"latency_ms"`
	Accuracy      uint64         `json:"accuracy"`
}

// SlashPayload is the payload for PROVIDER_SLASH.
type SlashPayload struct {
	Vault         common.Address `json:"vault"`
	ProviderOwner common.Address `json:"provider_owner"`
	Provider      common.Address `json:"provider"`
	Penalty       uint64         `json:"penalty"`
	Reason        string         `json:"reason"`
}

// VaultPayload is the payload for VAULT_INIT and
// VAULT_DISTRIBUTE_STAKER_REWARDS.
type VaultPayload struct {
	Vault common.Address `json:"vault"`
	Pool  common.Address `json:"pool"`
}

// QueryPaymentPayload is the payload for VAULT_PROCESS_QUERY_PAYMENT.
type QueryPaymentPayload struct {
	Vault         common.Address `json:"vault"`
	ProviderOwner common.Address `json:"provider_owner"`
	Provider      common.Address `json:"provider"`
	Cost          uint64         `json:"cost"`
}

// ClaimProviderPayload is the payload for VAULT_CLAIM_PROVIDER_EARNINGS.
type ClaimProviderPayload struct {
	Vault    common.Address `json:"vault"`
	Provider common.Address `json:"provider"`
}

// BonusCandidate names one provider considered by a bonus distribution.
type BonusCandidate struct {
	Owner  common.Address `json:"owner"`
	Record common.Address `json:"record"`
}

// DistributeBonusPayload is the payload for VAULT_DISTRIBUTE_BONUS.
type DistributeBonusPayload struct {
	Vault      common.Address   `json:"vault"`
	Candidates []BonusCandidate `json:"candidates"`
}

// ClaimStakerPayload is the payload for VAULT_CLAIM_STAKER_REWARDS.
type ClaimStakerPayload struct {
	Vault  common.Address `json:"vault"`
	Pool   common.Address `json:"pool"`
	Staker common.Address `json:"staker"`
}

// AuthorizeQueryPayload is the payload for VAULT_AUTHORIZE_QUERY.
type AuthorizeQueryPayload struct {
	Pool          common.Address `json:"pool"`
	Staker        common.Address `json:"staker"`
	ProviderOwner common.Address `json:"provider_owner"`
	Provider      common.Address `json:"provider"`
}

// RecordQueryPayload is the payload for VAULT_RECORD_QUERY.
type RecordQueryPayload struct {
	Provider common.Address `json:"provider"`
	User     common.Address `json:"user"`
}

// DeveloperRegisterPayload is the payload for DEVELOPER_REGISTER.
type DeveloperRegisterPayload struct {
	Pool      common.Address  `json:"pool"`
	Developer common.Address  `json:"developer"`
	Stake     uint64          `json:"stake"`
	Referrer  *common.Address `json:"referrer,omitempty"`
}

// DeveloperStakePayload is the payload for DEVELOPER_STAKE and
// DEVELOPER_UNSTAKE.
type DeveloperStakePayload struct {
	Pool      common.Address `json:"pool"`
	Developer common.Address `json:"developer"`
	Amount    uint64         `json:"amount"`
}

// DeveloperQueryPayload is the payload for DEVELOPER_PROCESS_QUERY.
type DeveloperQueryPayload struct {
	Vault          common.Address  `json:"vault"`
	Developer      common.Address  `json:"developer"`
	ProviderOwner  common.Address  `json:"provider_owner"`
	Provider       common.Address  `json:"provider"`
	Cost           uint64          `json:"cost"`
	ReferrerRecord *common.Address `json:"referrer_record,omitempty"`
}

// DeveloperClaimPayload is the payload for DEVELOPER_CLAIM_REWARDS (Pool set)
// and DEVELOPER_CLAIM_REFERRAL (Vault set).
type DeveloperClaimPayload struct {
	Pool      common.Address `json:"pool"`
	Vault     common.Address `json:"vault"`
	Developer common.Address `json:"developer"`
}

// FundBonusPayload is the payload for DEVELOPER_FUND_BONUS.
type FundBonusPayload struct {
	Pool      common.Address `json:"pool"`
	Owner     common.Address `json:"owner"`
	Developer common.Address `json:"developer"`
	Amount    uint64         `json:"amount"`
}

// BridgeWalletPayload is the payload for BRIDGE_INIT_WALLET.
type BridgeWalletPayload struct {
	Vault  common.Address `json:"vault"`
	Wallet common.Address `json:"wallet"`
}

// BridgePaymentPayload is the payload for BRIDGE_PROCESS_PAYMENT.
type BridgePaymentPayload struct {
	Vault  common.Address `json:"vault"`
	Wallet common.Address `json:"wallet"`
	Amount uint64         `json:"amount"`
}
