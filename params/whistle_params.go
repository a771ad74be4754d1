// Copyright 2025 The whistle Authors
// This file is part of the whistle library.
//
// The whistle library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The whistle library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the whistle library. If not, see <http://www.gnu.org/licenses/>.

package params

import "github.com/whistlenet/whistle/common"

// ProgramID is the owner tag carried by every record account of the ledger
// and the program identity all capability addresses are derived under.
var ProgramID = common.HexToAddress("0x0000000000000000000000000000000000000000000000000000000057485354") // "WHST"

// Record kind seeds used for capability-address derivation.
const (
	SeedStakingPool  = "staking_pool"
	SeedTokenVault   = "token_vault"
	SeedStaker       = "staker"
	SeedProvider     = "provider"
	SeedPaymentVault = "payment_vault"
	SeedDeveloper    = "developer"
	SeedBridgeWallet = "x402_payment_wallet"
)

// Stake ledger parameters.
const (
	// MaxStakePerUser caps the collateral a single staker may lock.
	MaxStakePerUser uint64 = 10_000_000_000_000_000

	// MaxTokensPerWhistle bounds the mint rate. MaxStakePerUser*rate must also
	// fit in 64 bits, which is checked when the rate is set.
	MaxTokensPerWhistle uint64 = 1_000_000

	// NodeOperatorMultiplier times the pool minimum is the stake a node
	// operator has to keep.
	NodeOperatorMultiplier uint64 = 10

	// DelegationCapBPS limits delegated access tokens to 1.5x the recipient's
	// own entitlement.
	DelegationCapBPS uint64 = 15_000

	// Access tier boundaries (inclusive lower bounds on access tokens).
	PremiumAccessTokens uint64 = 1_001
	EliteAccessTokens   uint64 = 10_001
)

// Provider registry parameters.
const (
	MinProviderBond uint64 = 1_000_000_000

	MinEndpointLength = 10
	MaxEndpointLength = 256

	// HeartbeatTimeout is the furthest a heartbeat may run ahead of the
	// previous one, on top of MinHeartbeatInterval.
	HeartbeatTimeout int64 = 300
	// MinHeartbeatInterval rate-limits heartbeats.
	MinHeartbeatInterval int64 = 30
	// FirstHeartbeatWindow bounds the first heartbeat after registration.
	FirstHeartbeatWindow int64 = 86_400

	MaxReputation         uint64 = 10_000
	InitialResponseTimeMs uint64 = 100
	ZeroLatencySpeedScore uint64 = 2_500
	UptimeWeightPercent   uint64 = 40
	SpeedWeightPercent    uint64 = 30
	AccuracyWeightPercent uint64 = 30
)

// Revenue vault parameters.
const (
	MaxQueryCost uint64 = 1_000_000_000

	ProviderSharePercent = 70
	BonusSharePercent    = 20
	TreasurySharePercent = 5

	// MaxBonusCandidates bounds a bonus distribution batch.
	MaxBonusCandidates = 40
)

// Developer rebate parameters.
const (
	MinDeveloperStake uint64 = 100_000_000_000

	// MonthSeconds is the interval after which the free-query counter resets.
	MonthSeconds int64 = 2_592_000

	ReferralPercent uint64 = 2
)

// External payment bridge parameters.
const (
	MinBridgePayment uint64 = 1_000_000
	MaxBridgePayment uint64 = 1_000_000_000_000

	BridgeStakerBPS   uint64 = 9_000
	BridgeTreasuryBPS uint64 = 1_000

	// BridgeMinReserve is the balance the bridge wallet keeps after every
	// reconciliation.
	BridgeMinReserve uint64 = 890_880
)

// The bridge split must cover the whole payment.
const _ = uint(BridgeStakerBPS+BridgeTreasuryBPS-10_000) + uint(10_000-BridgeStakerBPS-BridgeTreasuryBPS)
