// Package bridge reconciles revenue collected by the external payment
// system. The external system pays into a program-owned wallet; the vault
// authority periodically moves the collected amount into the revenue vault,
// crediting stakers and the treasury.
package bridge

import (
	"fmt"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/sysaction"
	"github.com/whistlenet/whistle/vault"
)

// Sentinel errors returned by system action handlers.
var (
	ErrNotAuthority         = fmt.Errorf("bridge: signer is not the vault authority: %w", sysaction.ErrAuthorization)
	ErrWalletInitialized    = fmt.Errorf("bridge: wallet already initialized: %w", sysaction.ErrRecordState)
	ErrWalletNotInitialized = fmt.Errorf("bridge: wallet not initialized: %w", sysaction.ErrRecordState)
	ErrAmountOutOfRange     = fmt.Errorf("bridge: payment amount out of range: %w", sysaction.ErrPolicyViolation)
	ErrWalletUnderfunded    = fmt.Errorf("bridge: wallet balance below amount: %w", sysaction.ErrInsufficientFunds)
	ErrReserveBreached      = fmt.Errorf("bridge: payment would drain the wallet reserve: %w", sysaction.ErrInsufficientFunds)
	ErrSplitMismatch        = fmt.Errorf("bridge: split shares do not sum to amount: %w", sysaction.ErrArithmetic)
)

// WalletAddress returns the address of the bridge collection wallet.
func WalletAddress() common.Address {
	return sysaction.RecordAddress(params.SeedBridgeWallet)
}

// Split divides an external payment between the staker rewards pool and the
// treasury. It fails unless the shares cover the amount exactly.
func Split(amount uint64) (staker, treasury uint64, err error) {
	if staker, err = math.BasisPoints(amount, params.BridgeStakerBPS); err != nil {
		return 0, 0, err
	}
	if treasury, err = math.BasisPoints(amount, params.BridgeTreasuryBPS); err != nil {
		return 0, 0, err
	}
	if staker+treasury != amount {
		return 0, 0, fmt.Errorf("%w: %d+%d != %d", ErrSplitMismatch, staker, treasury, amount)
	}
	return staker, treasury, nil
}

// Reconcilable returns the largest payment the wallet can forward given its
// balance, or zero when nothing can be forwarded. The amount respects the
// reserve, the payment bounds and the split granularity.
func Reconcilable(balance uint64) uint64 {
	amount := math.SaturatingSub(balance, params.BridgeMinReserve)
	if amount > params.MaxBridgePayment {
		amount = params.MaxBridgePayment
	}
	amount -= amount % splitUnit
	if amount < params.MinBridgePayment {
		return 0
	}
	return amount
}

// splitUnit is the smallest payment the basis-point split divides exactly.
const splitUnit = 10

func init() {
	sysaction.DefaultRegistry.Register(&bridgeHandler{})
}

// bridgeHandler implements sysaction.Handler for the external payment bridge.
type bridgeHandler struct{}

func (h *bridgeHandler) CanHandle(kind sysaction.ActionKind) bool {
	return kind == sysaction.ActionBridgeInitWallet || kind == sysaction.ActionBridgeProcessPayment
}

func (h *bridgeHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	switch sa.Action {
	case sysaction.ActionBridgeInitWallet:
		var p sysaction.BridgeWalletPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("init bridge wallet: %w", err)
		}
		return h.handleInitWallet(ctx, &p)

	case sysaction.ActionBridgeProcessPayment:
		var p sysaction.BridgePaymentPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("process external payment: %w", err)
		}
		return h.handleProcessPayment(ctx, &p)
	}
	return fmt.Errorf("bridge handler: unsupported action %q", sa.Action)
}

// loadAuthorityVault reads the vault and checks that the signer administers
// it and that wallet is the bridge wallet address.
func loadAuthorityVault(ctx *sysaction.Context, vaultAddr, wallet common.Address) (*types.VaultRecord, error) {
	if err := sysaction.CheckAddress(wallet, params.SeedBridgeWallet); err != nil {
		return nil, err
	}
	v, err := sysaction.LoadVault(ctx.StateDB, vaultAddr)
	if err != nil {
		return nil, err
	}
	if v.Authority != ctx.From {
		return nil, ErrNotAuthority
	}
	return v, nil
}

func (h *bridgeHandler) handleInitWallet(ctx *sysaction.Context, p *sysaction.BridgeWalletPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	if _, err := loadAuthorityVault(ctx, p.Vault, p.Wallet); err != nil {
		return err
	}
	if ctx.StateDB.GetOwner(p.Wallet) == params.ProgramID {
		return ErrWalletInitialized
	}
	if ctx.StateDB.GetBalance(params.AssetNative, ctx.From) < params.BridgeMinReserve {
		return fmt.Errorf("bridge: authority cannot fund the wallet reserve: %w", sysaction.ErrInsufficientFunds)
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := ctx.StateDB.CreateAccount(p.Wallet, params.ProgramID, 0); err != nil {
		return fmt.Errorf("bridge: %v: %w", err, ErrWalletInitialized)
	}
	if err := ctx.Transfer(params.AssetNative, ctx.From, p.Wallet, params.BridgeMinReserve); err != nil {
		return err
	}
	ctx.Log("External payment wallet initialized", "wallet", p.Wallet, "reserve", params.BridgeMinReserve)
	return nil
}

// Payment is the output of a processed external payment.
type Payment struct {
	Amount   uint64 `json:"amount"`
	Stakers  uint64 `json:"stakers"`
	Treasury uint64 `json:"treasury"`
}

func (h *bridgeHandler) handleProcessPayment(ctx *sysaction.Context, p *sysaction.BridgePaymentPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	v, err := loadAuthorityVault(ctx, p.Vault, p.Wallet)
	if err != nil {
		return err
	}
	if ctx.StateDB.GetOwner(p.Wallet) != params.ProgramID {
		return ErrWalletNotInitialized
	}
	if p.Amount < params.MinBridgePayment || p.Amount > params.MaxBridgePayment {
		return fmt.Errorf("%w: %d", ErrAmountOutOfRange, p.Amount)
	}
	balance := ctx.StateDB.GetBalance(params.AssetNative, p.Wallet)
	if balance < p.Amount {
		return fmt.Errorf("%w: %d < %d", ErrWalletUnderfunded, balance, p.Amount)
	}
	if balance-p.Amount < params.BridgeMinReserve {
		return fmt.Errorf("%w: %d left, %d required", ErrReserveBreached, balance-p.Amount, params.BridgeMinReserve)
	}
	staker, treasury, err := Split(p.Amount)
	if err != nil {
		return err
	}
	if v.StakerRewardsPool, err = math.Add(v.StakerRewardsPool, staker); err != nil {
		return err
	}
	if v.Treasury, err = math.Add(v.Treasury, treasury); err != nil {
		return err
	}
	if v.TotalCollected, err = math.Add(v.TotalCollected, p.Amount); err != nil {
		return err
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := ctx.TransferSigned(params.AssetNative, p.Wallet, p.Vault, p.Amount, sysaction.Seeds(params.SeedBridgeWallet)...); err != nil {
		return err
	}
	if err := vault.Store(ctx.StateDB, p.Vault, v); err != nil {
		return err
	}
	ctx.Log("External payment processed", "amount", params.FormatUnits(params.AssetNative, p.Amount),
		"stakers", staker, "treasury", treasury)
	return ctx.SetOutput(&Payment{Amount: p.Amount, Stakers: staker, Treasury: treasury})
}
