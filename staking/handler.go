package staking

import (
	"fmt"

	"github.com/whistlenet/whistle/sysaction"
)

func init() {
	sysaction.DefaultRegistry.Register(&stakingHandler{})
}

// stakingHandler implements sysaction.Handler for the stake ledger actions.
type stakingHandler struct{}

func (h *stakingHandler) CanHandle(kind sysaction.ActionKind) bool {
	switch kind {
	case sysaction.ActionStakingInitPool,
		sysaction.ActionStakingStake,
		sysaction.ActionStakingUnstake,
		sysaction.ActionStakingDelegate,
		sysaction.ActionStakingActivateNodeOp,
		sysaction.ActionStakingRecordUsage,
		sysaction.ActionStakingSetPoolStatus,
		sysaction.ActionStakingLockRate,
		sysaction.ActionStakingSetMintRate:
		return true
	}
	return false
}

func (h *stakingHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	switch sa.Action {
	case sysaction.ActionStakingInitPool:
		var p sysaction.InitPoolPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("init pool: %w", err)
		}
		return h.handleInitPool(ctx, &p)

	case sysaction.ActionStakingStake:
		var p sysaction.StakePayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("stake: %w", err)
		}
		return h.handleStake(ctx, &p)

	case sysaction.ActionStakingUnstake:
		var p sysaction.StakePayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("unstake: %w", err)
		}
		return h.handleUnstake(ctx, &p)

	case sysaction.ActionStakingDelegate:
		var p sysaction.DelegatePayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("delegate: %w", err)
		}
		return h.handleDelegate(ctx, &p)

	case sysaction.ActionStakingActivateNodeOp:
		var p sysaction.StakerPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("activate node operator: %w", err)
		}
		return h.handleActivateNodeOperator(ctx, &p)

	case sysaction.ActionStakingRecordUsage:
		var p sysaction.DataUsagePayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("record data usage: %w", err)
		}
		return h.handleRecordDataUsage(ctx, &p)

	case sysaction.ActionStakingSetPoolStatus:
		var p sysaction.PoolStatusPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("set pool status: %w", err)
		}
		return h.handleSetPoolStatus(ctx, &p)

	case sysaction.ActionStakingLockRate:
		var p sysaction.PoolPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("lock rate: %w", err)
		}
		return h.handleLockRate(ctx, &p)

	case sysaction.ActionStakingSetMintRate:
		var p sysaction.MintRatePayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("set mint rate: %w", err)
		}
		return h.handleSetMintRate(ctx, &p)
	}
	return fmt.Errorf("staking handler: unsupported action %q", sa.Action)
}
