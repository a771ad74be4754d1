package provider

import (
	"fmt"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/sysaction"
)

func init() {
	sysaction.DefaultRegistry.Register(&providerHandler{})
}

// providerHandler implements sysaction.Handler for the provider registry.
type providerHandler struct{}

func (h *providerHandler) CanHandle(kind sysaction.ActionKind) bool {
	switch kind {
	case sysaction.ActionProviderRegister,
		sysaction.ActionProviderDeregister,
		sysaction.ActionProviderUpdateEndpoint,
		sysaction.ActionProviderHeartbeat,
		sysaction.ActionProviderRecordMetrics,
		sysaction.ActionProviderUpdateReputation,
		sysaction.ActionProviderSlash:
		return true
	}
	return false
}

func (h *providerHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	switch sa.Action {
	case sysaction.ActionProviderRegister:
		var p sysaction.ProviderRegisterPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("register provider: %w", err)
		}
		return h.handleRegister(ctx, &p)

	case sysaction.ActionProviderDeregister:
		var p sysaction.ProviderDeregisterPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("deregister provider: %w", err)
		}
		return h.handleDeregister(ctx, &p)

	case sysaction.ActionProviderUpdateEndpoint:
		var p sysaction.EndpointPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("update endpoint: %w", err)
		}
		return h.handleUpdateEndpoint(ctx, &p)

	case sysaction.ActionProviderHeartbeat:
		var p sysaction.HeartbeatPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("heartbeat: %w", err)
		}
		return h.handleHeartbeat(ctx, &p)

	case sysaction.ActionProviderRecordMetrics:
		var p sysaction.QueryMetricsPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("record query metrics: %w", err)
		}
		return h.handleRecordMetrics(ctx, &p)

	case sysaction.ActionProviderUpdateReputation:
		var p sysaction.ReputationPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("update reputation: %w", err)
		}
		return h.handleUpdateReputation(ctx, &p)

	case sysaction.ActionProviderSlash:
		var p sysaction.SlashPayload
		if err := sysaction.DecodePayload(sa, &p); err != nil {
			return fmt.Errorf("slash provider: %w", err)
		}
		return h.handleSlash(ctx, &p)
	}
	return fmt.Errorf("provider handler: unsupported action %q", sa.Action)
}

func (h *providerHandler) handleRegister(ctx *sysaction.Context, p *sysaction.ProviderRegisterPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	owner := ctx.From
	if p.Bond < params.MinProviderBond {
		return ErrBondTooLow
	}
	if err := ValidateEndpoint(p.Endpoint); err != nil {
		return err
	}
	if err := sysaction.CheckAddress(p.Provider, params.SeedProvider, owner); err != nil {
		return err
	}
	if sysaction.RecordExists(ctx.StateDB, p.Provider) {
		return ErrAlreadyRegistered
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	if ctx.StateDB.GetBalance(params.AssetWhistle, owner) < p.Bond {
		return ErrInsufficientBalance
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := ctx.Transfer(params.AssetWhistle, owner, pool.TokenVault, p.Bond); err != nil {
		return err
	}
	rec := &types.ProviderRecord{
		Owner:           owner,
		RegisteredAt:    ctx.Time,
		Active:          true,
		BondAmount:      p.Bond,
		ReputationScore: params.MaxReputation,
		UptimePct:       params.MaxReputation,
		AvgLatencyMs:    params.InitialResponseTimeMs,
		AccuracyPct:     params.MaxReputation,
		Endpoint:        p.Endpoint,
	}
	if err := sysaction.CreateRecord(ctx.StateDB, p.Provider, types.ProviderSize(len(p.Endpoint)), rec.Encode()); err != nil {
		return err
	}
	ctx.Log("Provider registered", "owner", owner, "endpoint", p.Endpoint, "bond", p.Bond)
	return nil
}

func (h *providerHandler) handleDeregister(ctx *sysaction.Context, p *sysaction.ProviderDeregisterPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	owner := ctx.From
	rec, err := sysaction.LoadProvider(ctx.StateDB, p.Provider, owner)
	if err != nil {
		return err
	}
	pool, err := sysaction.LoadPool(ctx.StateDB, p.Pool)
	if err != nil {
		return err
	}
	if rec.PendingEarnings > 0 {
		return ErrPendingEarnings
	}
	refund := rec.EffectiveBond()

	// ── Mutation phase ───────────────────────────────────────────────────────

	if err := ctx.TransferSigned(params.AssetWhistle, pool.TokenVault, owner, refund, sysaction.Seeds(params.SeedTokenVault, pool.Authority)...); err != nil {
		return err
	}
	rec.Active = false
	rec.BondAmount = 0
	rec.SlashedAmount = 0
	if err := Store(ctx.StateDB, p.Provider, rec); err != nil {
		return err
	}
	ctx.Log("Provider deregistered", "owner", owner, "refund", refund)
	return nil
}

func (h *providerHandler) handleUpdateEndpoint(ctx *sysaction.Context, p *sysaction.EndpointPayload) error {
	rec, err := sysaction.LoadProvider(ctx.StateDB, p.Provider, ctx.From)
	if err != nil {
		return err
	}
	if err := ValidateEndpoint(p.Endpoint); err != nil {
		return err
	}
	if limit := endpointCapacity(ctx.StateDB, p.Provider); len(p.Endpoint) > limit {
		return fmt.Errorf("%w: %d > %d bytes", ErrEndpointTooLong, len(p.Endpoint), limit)
	}
	rec.Endpoint = p.Endpoint
	if err := Store(ctx.StateDB, p.Provider, rec); err != nil {
		return err
	}
	ctx.Log("Provider endpoint updated", "owner", ctx.From, "endpoint", p.Endpoint)
	return nil
}

func (h *providerHandler) handleHeartbeat(ctx *sysaction.Context, p *sysaction.HeartbeatPayload) error {
	rec, err := sysaction.LoadProvider(ctx.StateDB, p.Provider, ctx.From)
	if err != nil {
		return err
	}
	if err := CheckHeartbeat(rec, ctx.Time); err != nil {
		return err
	}
	rec.LastHeartbeat = ctx.Time
	if err := Store(ctx.StateDB, p.Provider, rec); err != nil {
		return err
	}
	ctx.Log("Provider heartbeat", "owner", ctx.From, "time", ctx.Time)
	return nil
}

// CheckHeartbeat validates a heartbeat at now against the provider's
// previous one. Heartbeats must be monotonic, rate limited and may not run
// ahead of the drift window. The first heartbeat is measured from
// registration and has a day to arrive.
func CheckHeartbeat(rec *types.ProviderRecord, now int64) error {
	if rec.LastHeartbeat == 0 {
		if now < rec.RegisteredAt {
			return ErrHeartbeatBackwards
		}
		if now > rec.RegisteredAt+params.FirstHeartbeatWindow {
			return ErrHeartbeatTooFar
		}
		return nil
	}
	if now < rec.LastHeartbeat {
		return ErrHeartbeatBackwards
	}
	if now > rec.LastHeartbeat+params.HeartbeatTimeout+params.MinHeartbeatInterval {
		return ErrHeartbeatTooFar
	}
	if now-rec.LastHeartbeat < params.MinHeartbeatInterval {
		return ErrHeartbeatRateLimit
	}
	return nil
}

// loadForAuthority reads the vault at vaultAddr and owner's provider record
// after checking that the signer administers the vault.
func loadForAuthority(ctx *sysaction.Context, vaultAddr, providerAddr, owner common.Address) (*types.VaultRecord, *types.ProviderRecord, error) {
	vault, err := sysaction.LoadVault(ctx.StateDB, vaultAddr)
	if err != nil {
		return nil, nil, err
	}
	if vault.Authority != ctx.From {
		return nil, nil, ErrNotVaultAuthority
	}
	rec, err := sysaction.LoadProvider(ctx.StateDB, providerAddr, owner)
	if err != nil {
		return nil, nil, err
	}
	return vault, rec, nil
}

func (h *providerHandler) handleRecordMetrics(ctx *sysaction.Context, p *sysaction.QueryMetricsPayload) error {
	_, rec, err := loadForAuthority(ctx, p.Vault, p.Provider, p.ProviderOwner)
	if err != nil {
		return err
	}
	if !p.Success {
		ctx.Log("Failed query recorded", "provider", p.ProviderOwner)
		return nil
	}
	// floor((avg + latency) / 2) without the intermediate sum.
	avg := rec.AvgLatencyMs/2 + p.LatencyMs/2 + (rec.AvgLatencyMs%2+p.LatencyMs%2)/2
	rec.AvgLatencyMs = avg
	if err := Store(ctx.StateDB, p.Provider, rec); err != nil {
		return err
	}
	ctx.Log("Query metrics recorded", "provider", p.ProviderOwner, "latency_ms", p.LatencyMs, "avg_latency_ms", avg)
	return nil
}

func (h *providerHandler) handleUpdateReputation(ctx *sysaction.Context, p *sysaction.ReputationPayload) error {
	if p.Uptime > params.MaxReputation || p.Accuracy > params.MaxReputation {
		return ErrMetricOutOfRange
	}
	_, rec, err := loadForAuthority(ctx, p.Vault, p.Provider, p.ProviderOwner)
	if err != nil {
		return err
	}
	if p.LatencyMs == 0 {
		ctx.Log("Zero latency reported, treating as missing measurement", "provider", p.ProviderOwner)
	}
	rec.UptimePct = p.Uptime
	rec.AvgLatencyMs = p.LatencyMs
	rec.AccuracyPct = p.Accuracy
	rec.ReputationScore = Reputation(p.Uptime, p.LatencyMs, p.Accuracy)
	if err := Store(ctx.StateDB, p.Provider, rec); err != nil {
		return err
	}
	ctx.Log("Reputation updated", "provider", p.ProviderOwner, "score", rec.ReputationScore)
	return nil
}

func (h *providerHandler) handleSlash(ctx *sysaction.Context, p *sysaction.SlashPayload) error {
	// ── Validation phase (no state writes) ───────────────────────────────────

	reason := SlashReason(p.Reason)
	if !reason.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSlashReason, p.Reason)
	}
	vault, rec, err := loadForAuthority(ctx, p.Vault, p.Provider, p.ProviderOwner)
	if err != nil {
		return err
	}
	slashed, err := math.Add(rec.SlashedAmount, p.Penalty)
	if err != nil {
		return err
	}
	if slashed > rec.BondAmount {
		return ErrInsufficientBond
	}
	penalties, err := math.Add(uint64(rec.PenaltyCount), 1)
	if err != nil || penalties > uint64(^uint32(0)) {
		return fmt.Errorf("provider: penalty count overflow: %w", sysaction.ErrArithmetic)
	}
	bonus, err := math.Add(vault.BonusPool, p.Penalty)
	if err != nil {
		return err
	}
	totalSlashed, err := math.Add(vault.TotalSlashed, p.Penalty)
	if err != nil {
		return err
	}

	// ── Mutation phase ───────────────────────────────────────────────────────

	rec.SlashedAmount = slashed
	rec.PenaltyCount = uint32(penalties)
	if rec.SlashedAmount >= rec.BondAmount {
		rec.Active = false
		ctx.Log("Provider deactivated, bond exhausted", "provider", p.ProviderOwner)
	}
	vault.BonusPool = bonus
	vault.TotalSlashed = totalSlashed
	if err := Store(ctx.StateDB, p.Provider, rec); err != nil {
		return err
	}
	if err := sysaction.StoreRecord(ctx.StateDB, p.Vault, vault.Encode()); err != nil {
		return err
	}
	ctx.Log("Provider slashed", "provider", p.ProviderOwner, "penalty", p.Penalty, "reason", reason)
	return nil
}
