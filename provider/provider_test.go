package provider

import (
	"errors"
	"strings"
	"testing"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/rawdb"
	"github.com/whistlenet/whistle/core/state"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/staking"
	"github.com/whistlenet/whistle/sysaction"
)

// newTestState creates a fresh in-memory StateDB for tests.
func newTestState() *state.StateDB {
	return state.New(state.NewDatabase(rawdb.NewMemoryDatabase()))
}

// tAddr generates a deterministic test address.
func tAddr(b byte) common.Address { return common.Address{b} }

// fund credits amount of collateral to a.
func fund(st *state.StateDB, a common.Address, amount uint64) {
	st.AddBalance(params.AssetWhistle, a, amount)
}

const (
	t0       = int64(1_700_000_000)
	endpoint = "https://relay.example.com"
)

var (
	authority = tAddr(0xa0)
	bond      = params.MinProviderBond
)

func exec(t *testing.T, st *state.StateDB, from common.Address, now int64, kind sysaction.ActionKind, payload interface{}) error {
	t.Helper()
	data, err := sysaction.MakeSysAction(kind, payload)
	if err != nil {
		t.Fatalf("encode %s: %v", kind, err)
	}
	return sysaction.ExecuteWithContext(sysaction.NewContext(from, now, st), data)
}

// setup initializes the pool and a revenue vault administered by authority.
func setup(t *testing.T) (*state.StateDB, common.Address, common.Address) {
	t.Helper()
	st := newTestState()
	pool := staking.PoolAddress(authority)
	err := exec(t, st, authority, t0, sysaction.ActionStakingInitPool, sysaction.InitPoolPayload{
		Pool: pool, TokenVault: staking.TokenVaultAddress(authority), MinStakeAmount: 1, TokensPerWhistle: 1,
	})
	if err != nil {
		t.Fatalf("init pool: %v", err)
	}
	vault := sysaction.RecordAddress(params.SeedPaymentVault, authority)
	rec := &types.VaultRecord{Authority: authority}
	if err := sysaction.CreateRecord(st, vault, types.VaultSize, rec.Encode()); err != nil {
		t.Fatalf("create vault: %v", err)
	}
	return st, pool, vault
}

func register(t *testing.T, st *state.StateDB, pool, owner common.Address, ep string, amount uint64) error {
	t.Helper()
	return exec(t, st, owner, t0, sysaction.ActionProviderRegister, sysaction.ProviderRegisterPayload{
		Pool: pool, Provider: Address(owner), Endpoint: ep, Bond: amount,
	})
}

func readProvider(t *testing.T, st *state.StateDB, owner common.Address) *types.ProviderRecord {
	t.Helper()
	rec, err := sysaction.LoadProvider(st, Address(owner), owner)
	if err != nil {
		t.Fatalf("load provider: %v", err)
	}
	return rec
}

func TestRegister(t *testing.T) {
	st, pool, _ := setup(t)
	p := tAddr(1)
	fund(st, p, 2*bond)

	if err := register(t, st, pool, p, endpoint, bond-1); !errors.Is(err, ErrBondTooLow) {
		t.Errorf("low bond: want ErrBondTooLow, got %v", err)
	}
	if err := register(t, st, pool, p, "ftp://relay.example.com", bond); !errors.Is(err, ErrInvalidEndpoint) {
		t.Errorf("bad scheme: want ErrInvalidEndpoint, got %v", err)
	}
	if err := register(t, st, pool, p, endpoint, bond); err != nil {
		t.Fatalf("register: %v", err)
	}
	rec := readProvider(t, st, p)
	if !rec.Active || rec.BondAmount != bond || rec.ReputationScore != params.MaxReputation ||
		rec.UptimePct != params.MaxReputation || rec.AccuracyPct != params.MaxReputation ||
		rec.AvgLatencyMs != params.InitialResponseTimeMs || rec.LastHeartbeat != 0 || rec.RegisteredAt != t0 {
		t.Errorf("unexpected initial record %+v", rec)
	}
	if rec.Endpoint != endpoint {
		t.Errorf("endpoint: want %q, got %q", endpoint, rec.Endpoint)
	}
	if got := st.GetBalance(params.AssetWhistle, staking.TokenVaultAddress(authority)); got != bond {
		t.Errorf("token vault: want %d, got %d", bond, got)
	}
	if err := register(t, st, pool, p, endpoint, bond); !errors.Is(err, ErrAlreadyRegistered) {
		t.Errorf("second register: want ErrAlreadyRegistered, got %v", err)
	}
	if got := st.GetBalance(params.AssetWhistle, p); got != bond {
		t.Errorf("failed register moved collateral: balance %d", got)
	}
}

func TestValidateEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		ok       bool
	}{
		{"https://relay.example.com", true},
		{"http://a.io/x", true},
		{"wss://node.whistle.net:443", true},
		{"HTTPS://RELAY.EXAMPLE.COM", true},
		{"ws://localhost", false},
		{"https://ab", false},
		{"relay.example.com/path", false},
		{"https://" + strings.Repeat("a", 250) + ".com", false},
		{"https://relay.example.com/\x00", false},
		{"https://relay.example.com/\n", false},
		{"https://relay.example.com/<script>", false},
		{"https://relay.example.com/?x=javascript:alert", false},
		{"https://relay.example.com/data:text", false},
		{"https://x.io/VBScript:run", false},
		{"https://img.example.com/ONLOAD=1", false},
		{"https://img.example.com/onerror=1", false},
	}
	for _, tt := range tests {
		err := ValidateEndpoint(tt.endpoint)
		if tt.ok && err != nil {
			t.Errorf("ValidateEndpoint(%q): unexpected %v", tt.endpoint, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidEndpoint) {
			t.Errorf("ValidateEndpoint(%q): want ErrInvalidEndpoint, got %v", tt.endpoint, err)
		}
	}
}

func TestUpdateEndpoint(t *testing.T) {
	st, pool, _ := setup(t)
	p := tAddr(1)
	fund(st, p, bond)
	register(t, st, pool, p, endpoint, bond)

	update := func(ep string) error {
		return exec(t, st, p, t0, sysaction.ActionProviderUpdateEndpoint, sysaction.EndpointPayload{Provider: Address(p), Endpoint: ep})
	}
	if err := update("https://a.example.io"); err != nil {
		t.Fatalf("shorter endpoint: %v", err)
	}
	// The reserved space still fits the original length.
	if err := update("https://b.example.com"); err != nil {
		t.Fatalf("endpoint of reserved length: %v", err)
	}
	if err := update(endpoint + "/v2"); !errors.Is(err, ErrEndpointTooLong) {
		t.Errorf("longer endpoint: want ErrEndpointTooLong, got %v", err)
	}
	if err := update("javascript:void.x"); !errors.Is(err, ErrInvalidEndpoint) {
		t.Errorf("invalid endpoint: want ErrInvalidEndpoint, got %v", err)
	}
	if got := readProvider(t, st, p).Endpoint; got != "https://b.example.com" {
		t.Errorf("endpoint: got %q", got)
	}
}

func TestHeartbeat(t *testing.T) {
	st, pool, _ := setup(t)
	p := tAddr(1)
	fund(st, p, bond)
	register(t, st, pool, p, endpoint, bond)

	beat := func(now int64) error {
		return exec(t, st, p, now, sysaction.ActionProviderHeartbeat, sysaction.HeartbeatPayload{Provider: Address(p)})
	}
	if err := beat(t0 - 1); !errors.Is(err, ErrHeartbeatBackwards) {
		t.Errorf("before registration: want ErrHeartbeatBackwards, got %v", err)
	}
	if err := beat(t0 + params.FirstHeartbeatWindow + 1); !errors.Is(err, ErrHeartbeatTooFar) {
		t.Errorf("first past window: want ErrHeartbeatTooFar, got %v", err)
	}
	// First heartbeat an hour after registration.
	first := t0 + 3600
	if err := beat(first); err != nil {
		t.Fatalf("first heartbeat: %v", err)
	}
	if err := beat(first - 1); !errors.Is(err, ErrHeartbeatBackwards) {
		t.Errorf("backwards: want ErrHeartbeatBackwards, got %v", err)
	}
	if err := beat(first + 29); !errors.Is(err, ErrHeartbeatRateLimit) {
		t.Errorf("too soon: want ErrHeartbeatRateLimit, got %v", err)
	}
	if err := beat(first + 331); !errors.Is(err, ErrHeartbeatTooFar) {
		t.Errorf("too far: want ErrHeartbeatTooFar, got %v", err)
	}
	if err := beat(first + 330); err != nil {
		t.Fatalf("heartbeat at window edge: %v", err)
	}
	if err := beat(first + 360); err != nil {
		t.Fatalf("heartbeat after interval: %v", err)
	}
	if got := readProvider(t, st, p).LastHeartbeat; got != first+360 {
		t.Errorf("last heartbeat: want %d, got %d", first+360, got)
	}
}

func TestCheckFirstHeartbeat(t *testing.T) {
	rec := &types.ProviderRecord{RegisteredAt: t0}
	if err := CheckHeartbeat(rec, t0+params.FirstHeartbeatWindow); err != nil {
		t.Errorf("first heartbeat inside window: %v", err)
	}
	if err := CheckHeartbeat(rec, t0+params.FirstHeartbeatWindow+1); !errors.Is(err, ErrHeartbeatTooFar) {
		t.Errorf("first heartbeat past window: want ErrHeartbeatTooFar, got %v", err)
	}
	if err := CheckHeartbeat(rec, t0); err != nil {
		t.Errorf("first heartbeat at registration: %v", err)
	}
}

func TestReputation(t *testing.T) {
	tests := []struct {
		uptime, latency, accuracy, want uint64
	}{
		{10_000, 1, 10_000, 9_999},
		{10_000, 0, 10_000, 9_500},
		{0, 10_000, 0, 0},
		{0, 50_000, 0, 0},
		{9_500, 150, 9_800, 3_800 + 2_955 + 2_940},
	}
	for _, tt := range tests {
		if got := Reputation(tt.uptime, tt.latency, tt.accuracy); got != tt.want {
			t.Errorf("Reputation(%d, %d, %d) = %d, want %d", tt.uptime, tt.latency, tt.accuracy, got, tt.want)
		}
	}
	for latency := uint64(0); latency <= 20_000; latency += 97 {
		for _, u := range []uint64{0, 5_000, 10_000} {
			if r := Reputation(u, latency, u); r > params.MaxReputation {
				t.Fatalf("Reputation(%d, %d, %d) = %d above maximum", u, latency, u, r)
			}
		}
	}
	if SpeedScore(0) >= SpeedScore(1) {
		t.Error("zero latency scored at least as well as 1ms")
	}
}

func TestUpdateReputation(t *testing.T) {
	st, pool, vault := setup(t)
	p := tAddr(1)
	fund(st, p, bond)
	register(t, st, pool, p, endpoint, bond)

	update := func(from common.Address, uptime, latency, accuracy uint64) error {
		return exec(t, st, from, t0, sysaction.ActionProviderUpdateReputation, sysaction.ReputationPayload{
			Vault: vault, ProviderOwner: p, Provider: Address(p), Uptime: uptime, LatencyMs: latency, Accuracy: accuracy,
		})
	}
	if err := update(p, 10_000, 100, 10_000); !errors.Is(err, ErrNotVaultAuthority) {
		t.Errorf("self-rating: want ErrNotVaultAuthority, got %v", err)
	}
	if err := update(authority, 10_001, 100, 10_000); !errors.Is(err, ErrMetricOutOfRange) {
		t.Errorf("uptime out of range: want ErrMetricOutOfRange, got %v", err)
	}
	if err := update(authority, 9_000, 200, 8_000); err != nil {
		t.Fatalf("update: %v", err)
	}
	rec := readProvider(t, st, p)
	if want := Reputation(9_000, 200, 8_000); rec.ReputationScore != want {
		t.Errorf("score: want %d, got %d", want, rec.ReputationScore)
	}
	if rec.UptimePct != 9_000 || rec.AvgLatencyMs != 200 || rec.AccuracyPct != 8_000 {
		t.Errorf("metrics not stored: %+v", rec)
	}
}

func TestRecordMetrics(t *testing.T) {
	st, pool, vault := setup(t)
	p := tAddr(1)
	fund(st, p, bond)
	register(t, st, pool, p, endpoint, bond)

	record := func(latency uint64, success bool) error {
		return exec(t, st, authority, t0, sysaction.ActionProviderRecordMetrics, sysaction.QueryMetricsPayload{
			Vault: vault, ProviderOwner: p, Provider: Address(p), LatencyMs: latency, Success: success,
		})
	}
	if err := record(301, true); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := readProvider(t, st, p).AvgLatencyMs; got != 200 {
		t.Errorf("avg latency: want 200, got %d", got)
	}
	if err := record(5_000, false); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	if got := readProvider(t, st, p).AvgLatencyMs; got != 200 {
		t.Errorf("failed query moved avg latency to %d", got)
	}
}

func TestSlash(t *testing.T) {
	st, pool, vault := setup(t)
	p := tAddr(1)
	fund(st, p, bond)
	register(t, st, pool, p, endpoint, bond)

	slash := func(from common.Address, penalty uint64, reason string) error {
		return exec(t, st, from, t0, sysaction.ActionProviderSlash, sysaction.SlashPayload{
			Vault: vault, ProviderOwner: p, Provider: Address(p), Penalty: penalty, Reason: reason,
		})
	}
	if err := slash(p, 1, "LowUptime"); !errors.Is(err, ErrNotVaultAuthority) {
		t.Errorf("non-authority: want ErrNotVaultAuthority, got %v", err)
	}
	if err := slash(authority, 1, "Rude"); !errors.Is(err, ErrInvalidSlashReason) {
		t.Errorf("bad reason: want ErrInvalidSlashReason, got %v", err)
	}
	if err := slash(authority, bond/4, "WrongData"); err != nil {
		t.Fatalf("slash: %v", err)
	}
	if err := slash(authority, bond, "SlowResponse"); !errors.Is(err, ErrInsufficientBond) {
		t.Errorf("over-slash: want ErrInsufficientBond, got %v", err)
	}
	rec := readProvider(t, st, p)
	if rec.SlashedAmount != bond/4 || rec.PenaltyCount != 1 || !rec.Active {
		t.Errorf("after partial slash: %+v", rec)
	}
	if err := slash(authority, bond-bond/4, "MissedHeartbeat"); err != nil {
		t.Fatalf("final slash: %v", err)
	}
	rec = readProvider(t, st, p)
	if rec.Active || rec.SlashedAmount != rec.BondAmount || rec.PenaltyCount != 2 {
		t.Errorf("exhausted bond should deactivate: %+v", rec)
	}
	v, err := sysaction.LoadVault(st, vault)
	if err != nil {
		t.Fatal(err)
	}
	if v.BonusPool != bond || v.TotalSlashed != bond {
		t.Errorf("vault bonus %d slashed %d, want %d", v.BonusPool, v.TotalSlashed, bond)
	}
	if v.TotalCollected+v.TotalSlashed != v.PoolSum()+v.TotalClaimed {
		t.Error("vault conservation broken by slash")
	}
}

func TestDeregister(t *testing.T) {
	st, pool, vault := setup(t)
	p := tAddr(1)
	fund(st, p, bond)
	register(t, st, pool, p, endpoint, bond)
	exec(t, st, authority, t0, sysaction.ActionProviderSlash, sysaction.SlashPayload{
		Vault: vault, ProviderOwner: p, Provider: Address(p), Penalty: 100, Reason: string(LowUptime),
	})

	deregister := func(from common.Address) error {
		return exec(t, st, from, t0, sysaction.ActionProviderDeregister, sysaction.ProviderDeregisterPayload{Pool: pool, Provider: Address(p)})
	}
	if err := deregister(tAddr(2)); !errors.Is(err, sysaction.ErrAddressMismatch) {
		t.Errorf("stranger: want ErrAddressMismatch, got %v", err)
	}
	if err := deregister(p); err != nil {
		t.Fatalf("deregister: %v", err)
	}
	if got := st.GetBalance(params.AssetWhistle, p); got != bond-100 {
		t.Errorf("refund: want %d, got %d", bond-100, got)
	}
	rec := readProvider(t, st, p)
	if rec.Active || rec.BondAmount != 0 || rec.SlashedAmount != 0 {
		t.Errorf("deregistered record: %+v", rec)
	}
}

func TestDeregisterWithPendingEarnings(t *testing.T) {
	st, pool, _ := setup(t)
	p := tAddr(1)
	fund(st, p, bond)
	register(t, st, pool, p, endpoint, bond)
	rec := readProvider(t, st, p)
	rec.PendingEarnings = 5
	if err := Store(st, Address(p), rec); err != nil {
		t.Fatal(err)
	}
	err := exec(t, st, p, t0, sysaction.ActionProviderDeregister, sysaction.ProviderDeregisterPayload{Pool: pool, Provider: Address(p)})
	if !errors.Is(err, ErrPendingEarnings) {
		t.Errorf("want ErrPendingEarnings, got %v", err)
	}
}
