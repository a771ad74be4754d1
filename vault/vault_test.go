package vault

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/rawdb"
	"github.com/whistlenet/whistle/core/state"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/provider"
	"github.com/whistlenet/whistle/staking"
	"github.com/whistlenet/whistle/sysaction"
)

// newTestState creates a fresh in-memory StateDB for tests.
func newTestState() *state.StateDB {
	return state.New(state.NewDatabase(rawdb.NewMemoryDatabase()))
}

// tAddr generates a deterministic test address.
func tAddr(b byte) common.Address { return common.Address{b} }

// fund credits amount of asset to a.
func fund(st *state.StateDB, asset params.Asset, a common.Address, amount uint64) {
	st.AddBalance(asset, a, amount)
}

const t0 = int64(1_700_000_000)

var (
	authority = tAddr(0xa0)
	payer     = tAddr(0xb0)
)

// run executes one action and returns the handler context.
func run(t *testing.T, st *state.StateDB, from common.Address, kind sysaction.ActionKind, payload interface{}) (*sysaction.Context, error) {
	t.Helper()
	data, err := sysaction.MakeSysAction(kind, payload)
	if err != nil {
		t.Fatalf("encode %s: %v", kind, err)
	}
	ctx := sysaction.NewContext(from, t0, st)
	_, err = sysaction.Execute(ctx, data)
	return ctx, err
}

func exec(t *testing.T, st *state.StateDB, from common.Address, kind sysaction.ActionKind, payload interface{}) error {
	t.Helper()
	_, err := run(t, st, from, kind, payload)
	return err
}

type env struct {
	st    *state.StateDB
	pool  common.Address
	vault common.Address
}

// setup initializes the staking pool and the vault administered by authority.
func setup(t *testing.T) *env {
	t.Helper()
	e := &env{st: newTestState(), pool: staking.PoolAddress(authority), vault: Address(authority)}
	err := exec(t, e.st, authority, sysaction.ActionStakingInitPool, sysaction.InitPoolPayload{
		Pool: e.pool, TokenVault: staking.TokenVaultAddress(authority), MinStakeAmount: 1, TokensPerWhistle: 1,
	})
	if err != nil {
		t.Fatalf("init pool: %v", err)
	}
	if err := exec(t, e.st, authority, sysaction.ActionVaultInit, sysaction.VaultPayload{Vault: e.vault}); err != nil {
		t.Fatalf("init vault: %v", err)
	}
	fund(e.st, params.AssetNative, payer, 1_000_000)
	return e
}

func (e *env) register(t *testing.T, owner common.Address) {
	t.Helper()
	fund(e.st, params.AssetWhistle, owner, params.MinProviderBond)
	err := exec(t, e.st, owner, sysaction.ActionProviderRegister, sysaction.ProviderRegisterPayload{
		Pool: e.pool, Provider: provider.Address(owner), Endpoint: "https://relay.example.com", Bond: params.MinProviderBond,
	})
	if err != nil {
		t.Fatalf("register provider: %v", err)
	}
}

func (e *env) pay(t *testing.T, owner common.Address, cost uint64) error {
	t.Helper()
	return exec(t, e.st, payer, sysaction.ActionVaultProcessQueryPayment, sysaction.QueryPaymentPayload{
		Vault: e.vault, ProviderOwner: owner, Provider: provider.Address(owner), Cost: cost,
	})
}

func (e *env) stake(t *testing.T, owner common.Address, amount uint64) {
	t.Helper()
	fund(e.st, params.AssetWhistle, owner, amount)
	err := exec(t, e.st, owner, sysaction.ActionStakingStake, sysaction.StakePayload{
		Pool: e.pool, Staker: staking.StakerAddress(owner), Amount: amount,
	})
	if err != nil {
		t.Fatalf("stake: %v", err)
	}
}

func (e *env) readVault(t *testing.T) *types.VaultRecord {
	t.Helper()
	v, err := sysaction.LoadVault(e.st, e.vault)
	if err != nil {
		t.Fatalf("load vault: %v", err)
	}
	return v
}

func (e *env) readProvider(t *testing.T, owner common.Address) *types.ProviderRecord {
	t.Helper()
	rec, err := sysaction.LoadProvider(e.st, provider.Address(owner), owner)
	if err != nil {
		t.Fatalf("load provider: %v", err)
	}
	return rec
}

// checkConservation verifies that every collected or slashed unit sits in a
// pool or has been claimed.
func checkConservation(t *testing.T, v *types.VaultRecord) {
	t.Helper()
	if v.TotalCollected+v.TotalSlashed != v.PoolSum()+v.TotalClaimed {
		t.Errorf("conservation: collected %d + slashed %d != pools %d + claimed %d",
			v.TotalCollected, v.TotalSlashed, v.PoolSum(), v.TotalClaimed)
	}
}

func TestSplit(t *testing.T) {
	s, err := Split(100)
	if err != nil {
		t.Fatal(err)
	}
	if s != (Shares{Provider: 70, Bonus: 20, Treasury: 5, Staker: 5}) {
		t.Errorf("split(100) = %+v", s)
	}
	s, _ = Split(101)
	if s != (Shares{Provider: 70, Bonus: 20, Treasury: 5, Staker: 6}) {
		t.Errorf("split(101) = %+v", s)
	}
	for _, cost := range []uint64{1, 2, 19, 99, 101, 999, 123_456_789, params.MaxQueryCost} {
		s, err := Split(cost)
		if err != nil {
			t.Fatalf("split(%d): %v", cost, err)
		}
		if sum := s.Provider + s.Bonus + s.Treasury + s.Staker; sum != cost {
			t.Errorf("split(%d) sums to %d", cost, sum)
		}
	}
}

func TestInitVault(t *testing.T) {
	e := setup(t)
	if err := exec(t, e.st, authority, sysaction.ActionVaultInit, sysaction.VaultPayload{Vault: e.vault}); !errors.Is(err, ErrVaultInitialized) {
		t.Errorf("re-init: want ErrVaultInitialized, got %v", err)
	}
	other := tAddr(0x77)
	if err := exec(t, e.st, other, sysaction.ActionVaultInit, sysaction.VaultPayload{Vault: e.vault}); !errors.Is(err, sysaction.ErrAddressMismatch) {
		t.Errorf("foreign vault address: want ErrAddressMismatch, got %v", err)
	}
	if v := e.readVault(t); v.Authority != authority || v.TotalCollected != 0 {
		t.Errorf("unexpected vault %+v", v)
	}
}

func TestQueryPaymentScenario(t *testing.T) {
	e := setup(t)
	p := tAddr(1)
	e.register(t, p)

	for i := 0; i < 3; i++ {
		if err := e.pay(t, p, 100); err != nil {
			t.Fatalf("payment %d: %v", i, err)
		}
	}
	v := e.readVault(t)
	if v.ProviderPool != 210 || v.BonusPool != 60 || v.Treasury != 15 || v.StakerRewardsPool != 15 || v.TotalCollected != 300 {
		t.Errorf("vault pools %+v", v)
	}
	checkConservation(t, v)
	if got := e.st.GetBalance(params.AssetNative, e.vault); got != 300 {
		t.Errorf("vault balance: want 300, got %d", got)
	}
	rec := e.readProvider(t, p)
	if rec.PendingEarnings != 210 || rec.TotalEarned != 210 || rec.QueriesServed != 3 {
		t.Errorf("provider earnings %d/%d served %d", rec.PendingEarnings, rec.TotalEarned, rec.QueriesServed)
	}
}

func TestQueryPaymentValidation(t *testing.T) {
	e := setup(t)
	p := tAddr(1)
	e.register(t, p)

	if err := e.pay(t, p, 0); !errors.Is(err, ErrInvalidCost) {
		t.Errorf("zero cost: want ErrInvalidCost, got %v", err)
	}
	if err := e.pay(t, p, params.MaxQueryCost+1); !errors.Is(err, sysaction.ErrPolicyViolation) {
		t.Errorf("cost above max: want policy violation, got %v", err)
	}
	if err := e.pay(t, tAddr(2), 100); !errors.Is(err, sysaction.ErrRecordState) {
		t.Errorf("unregistered provider: want ErrRecordState, got %v", err)
	}
	if err := e.pay(t, p, 2_000_000); !errors.Is(err, sysaction.ErrInsufficientFunds) {
		t.Errorf("underfunded payer: want ErrInsufficientFunds, got %v", err)
	}
	if v := e.readVault(t); v.TotalCollected != 0 {
		t.Errorf("failed payments changed the vault: %+v", v)
	}
}

func TestClaimProviderEarnings(t *testing.T) {
	e := setup(t)
	p := tAddr(1)
	e.register(t, p)
	claim := func() error {
		return exec(t, e.st, p, sysaction.ActionVaultClaimProviderEarnings, sysaction.ClaimProviderPayload{
			Vault: e.vault, Provider: provider.Address(p),
		})
	}
	if err := claim(); !errors.Is(err, ErrNothingToClaim) {
		t.Errorf("empty claim: want ErrNothingToClaim, got %v", err)
	}
	if err := e.pay(t, p, 1_000); err != nil {
		t.Fatal(err)
	}
	if err := claim(); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := e.st.GetBalance(params.AssetNative, p); got != 700 {
		t.Errorf("provider paid %d, want 700", got)
	}
	v := e.readVault(t)
	if v.ProviderPool != 0 || v.TotalClaimed != 700 {
		t.Errorf("vault after claim %+v", v)
	}
	checkConservation(t, v)
	if rec := e.readProvider(t, p); rec.PendingEarnings != 0 || rec.TotalEarned != 700 {
		t.Errorf("provider after claim %+v", rec)
	}
	if err := claim(); !errors.Is(err, ErrNothingToClaim) {
		t.Errorf("second claim: want ErrNothingToClaim, got %v", err)
	}
}

func TestClaimProviderUnderfunded(t *testing.T) {
	e := setup(t)
	p := tAddr(1)
	e.register(t, p)
	if err := e.pay(t, p, 1_000); err != nil {
		t.Fatal(err)
	}
	e.st.SubBalance(params.AssetNative, e.vault, 500)

	err := exec(t, e.st, p, sysaction.ActionVaultClaimProviderEarnings, sysaction.ClaimProviderPayload{
		Vault: e.vault, Provider: provider.Address(p),
	})
	if !errors.Is(err, ErrVaultUnderfunded) {
		t.Errorf("want ErrVaultUnderfunded, got %v", err)
	}
	if rec := e.readProvider(t, p); rec.PendingEarnings != 700 {
		t.Errorf("failed claim cleared earnings: %d", rec.PendingEarnings)
	}
}

func TestDistributeBonus(t *testing.T) {
	e := setup(t)
	a, b, c := tAddr(1), tAddr(2), tAddr(3)
	for _, p := range []common.Address{a, b, c} {
		e.register(t, p)
		if err := e.pay(t, p, 1_000); err != nil {
			t.Fatal(err)
		}
	}
	err := exec(t, e.st, authority, sysaction.ActionProviderUpdateReputation, sysaction.ReputationPayload{
		Vault: e.vault, ProviderOwner: b, Provider: provider.Address(b), Uptime: 5_000, LatencyMs: 900, Accuracy: 7_000,
	})
	if err != nil {
		t.Fatalf("update reputation: %v", err)
	}

	// Corrupted, missing and inactive candidates are skipped.
	garbage := tAddr(4)
	if err := sysaction.CreateRecord(e.st, provider.Address(garbage), 16, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	missing := tAddr(5)
	retired := tAddr(6)
	e.register(t, retired)
	if err := exec(t, e.st, retired, sysaction.ActionProviderDeregister, sysaction.ProviderDeregisterPayload{
		Pool: e.pool, Provider: provider.Address(retired),
	}); err != nil {
		t.Fatalf("deregister: %v", err)
	}

	before := e.readVault(t)
	scores := map[common.Address]uint64{}
	var total uint64
	for _, p := range []common.Address{a, b, c} {
		scores[p] = e.readProvider(t, p).ReputationScore
		total += scores[p]
	}

	candidates := TopCandidates([]common.Address{a, garbage, b, missing, retired, c})
	ctx, err := run(t, e.st, authority, sysaction.ActionVaultDistributeBonus, sysaction.DistributeBonusPayload{
		Vault: e.vault, Candidates: candidates,
	})
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	var report DistributionReport
	if err := json.Unmarshal(ctx.Output(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Distributed != 3 || report.Skipped != 3 || report.Amount != before.BonusPool {
		t.Errorf("report %d distributed %d skipped amount %d, want 3/3/%d",
			report.Distributed, report.Skipped, report.Amount, before.BonusPool)
	}
	wantSkip := []SkipReason{SkipNone, SkipUndecodable, SkipNone, SkipMissing, SkipInactive, SkipNone}
	for i, o := range report.Outcomes {
		if o.Skip != wantSkip[i] {
			t.Errorf("candidate %d: skip %q, want %q", i, o.Skip, wantSkip[i])
		}
	}
	shareA, _ := math.MulDiv(before.BonusPool, scores[a], total)
	shareB, _ := math.MulDiv(before.BonusPool, scores[b], total)
	shareC := before.BonusPool - shareA - shareB
	for p, want := range map[common.Address]uint64{a: shareA, b: shareB, c: shareC} {
		if got := e.readProvider(t, p).PendingEarnings; got != 700+want {
			t.Errorf("provider %x pending %d, want %d", p[:1], got, 700+want)
		}
	}
	v := e.readVault(t)
	if v.BonusPool != 0 || v.ProviderPool != before.ProviderPool+before.BonusPool || v.LastDistribution != t0 {
		t.Errorf("vault after distribution %+v", v)
	}
	checkConservation(t, v)
}

func TestDistributeBonusValidation(t *testing.T) {
	e := setup(t)
	a := tAddr(1)
	e.register(t, a)
	distribute := func(from common.Address, c []sysaction.BonusCandidate) error {
		return exec(t, e.st, from, sysaction.ActionVaultDistributeBonus, sysaction.DistributeBonusPayload{
			Vault: e.vault, Candidates: c,
		})
	}
	// Empty bonus pool is a no-op, even with an oversized list.
	many := make([]common.Address, params.MaxBonusCandidates+1)
	for i := range many {
		many[i] = tAddr(byte(i + 1))
	}
	if err := distribute(authority, TopCandidates(many)); err != nil {
		t.Errorf("empty pool: want no-op, got %v", err)
	}
	if err := e.pay(t, a, 1_000); err != nil {
		t.Fatal(err)
	}
	if err := distribute(tAddr(0x77), TopCandidates([]common.Address{a})); !errors.Is(err, sysaction.ErrAuthorization) {
		t.Errorf("foreign signer: want ErrAuthorization, got %v", err)
	}
	if err := distribute(authority, nil); err != nil {
		t.Errorf("empty list: want no-op, got %v", err)
	}
	if err := distribute(authority, TopCandidates(many)); !errors.Is(err, sysaction.ErrCapacityExceeded) {
		t.Errorf("oversized list: want ErrCapacityExceeded, got %v", err)
	}
	if err := distribute(authority, TopCandidates([]common.Address{a, a})); !errors.Is(err, ErrDuplicateCandidate) {
		t.Errorf("duplicate: want ErrDuplicateCandidate, got %v", err)
	}
	if v := e.readVault(t); v.BonusPool != 200 {
		t.Errorf("rejected distributions moved the bonus pool: %d", v.BonusPool)
	}
	// A full batch fits the operation cost ceiling.
	if err := distribute(authority, TopCandidates(many[:params.MaxBonusCandidates])); err != nil {
		t.Errorf("full batch: %v", err)
	}
	if v := e.readVault(t); v.BonusPool != 0 {
		t.Errorf("full batch left bonus %d", v.BonusPool)
	}
}

func TestStakerRewards(t *testing.T) {
	e := setup(t)
	p := tAddr(1)
	e.register(t, p)
	s1, s2 := tAddr(0x11), tAddr(0x12)
	e.stake(t, s1, 300)
	e.stake(t, s2, 100)
	for i := 0; i < 4; i++ {
		if err := e.pay(t, p, 1_000); err != nil {
			t.Fatal(err)
		}
	}
	if v := e.readVault(t); v.StakerRewardsPool != 200 {
		t.Fatalf("staker pool %d, want 200", v.StakerRewardsPool)
	}

	checkpoint := func(from common.Address) (*sysaction.Context, error) {
		return run(t, e.st, from, sysaction.ActionVaultDistributeStakerRewards, sysaction.VaultPayload{Vault: e.vault, Pool: e.pool})
	}
	if _, err := checkpoint(s1); !errors.Is(err, ErrNotAuthority) {
		t.Errorf("checkpoint by staker: want ErrNotAuthority, got %v", err)
	}
	ctx, err := checkpoint(authority)
	if err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	var cp StakerCheckpoint
	if err := json.Unmarshal(ctx.Output(), &cp); err != nil {
		t.Fatal(err)
	}
	if cp.RewardsPool != 200 || cp.TotalStaked != 400 {
		t.Errorf("checkpoint %+v", cp)
	}

	claim := func(owner common.Address) error {
		return exec(t, e.st, owner, sysaction.ActionVaultClaimStakerRewards, sysaction.ClaimStakerPayload{
			Vault: e.vault, Pool: e.pool, Staker: staking.StakerAddress(owner),
		})
	}
	if err := claim(s1); err != nil {
		t.Fatalf("claim s1: %v", err)
	}
	if got := e.st.GetBalance(params.AssetNative, s1); got != 150 {
		t.Errorf("s1 paid %d, want 150", got)
	}
	// The second claim is proportional to what is left.
	if err := claim(s2); err != nil {
		t.Fatalf("claim s2: %v", err)
	}
	if got := e.st.GetBalance(params.AssetNative, s2); got != 12 {
		t.Errorf("s2 paid %d, want 12", got)
	}
	v := e.readVault(t)
	if v.StakerRewardsPool != 38 || v.TotalClaimed != 162 {
		t.Errorf("vault after claims %+v", v)
	}
	checkConservation(t, v)

	if err := claim(tAddr(0x13)); !errors.Is(err, sysaction.ErrRecordState) {
		t.Errorf("claim without record: want ErrRecordState, got %v", err)
	}
}

func TestClaimStakerNothingPending(t *testing.T) {
	e := setup(t)
	s := tAddr(0x11)
	e.stake(t, s, 100)
	err := exec(t, e.st, s, sysaction.ActionVaultClaimStakerRewards, sysaction.ClaimStakerPayload{
		Vault: e.vault, Pool: e.pool, Staker: staking.StakerAddress(s),
	})
	if err != nil {
		t.Errorf("empty pool claim: want no-op, got %v", err)
	}
	if v := e.readVault(t); v.TotalClaimed != 0 {
		t.Errorf("no-op claim changed vault %+v", v)
	}
}

func TestAuthorizeQuery(t *testing.T) {
	e := setup(t)
	p := tAddr(1)
	e.register(t, p)
	u := tAddr(0x11)
	e.stake(t, u, 5_000)

	authorize := func(user common.Address) (*sysaction.Context, error) {
		return run(t, e.st, user, sysaction.ActionVaultAuthorizeQuery, sysaction.AuthorizeQueryPayload{
			Pool: e.pool, Staker: staking.StakerAddress(user), ProviderOwner: p, Provider: provider.Address(p),
		})
	}
	ctx, err := authorize(u)
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	var grant QueryGrant
	if err := json.Unmarshal(ctx.Output(), &grant); err != nil {
		t.Fatal(err)
	}
	if grant.Tier != staking.TierPremium.String() || grant.AccessTokens != 5_000 {
		t.Errorf("grant %+v", grant)
	}
	if _, err := authorize(tAddr(0x12)); !errors.Is(err, sysaction.ErrRecordState) {
		t.Errorf("non-staker: want ErrRecordState, got %v", err)
	}

	if err := exec(t, e.st, authority, sysaction.ActionStakingSetPoolStatus, sysaction.PoolStatusPayload{Pool: e.pool, Active: false}); err != nil {
		t.Fatal(err)
	}
	if _, err := authorize(u); !errors.Is(err, ErrPoolInactive) {
		t.Errorf("inactive pool: want ErrPoolInactive, got %v", err)
	}
	if err := exec(t, e.st, authority, sysaction.ActionStakingSetPoolStatus, sysaction.PoolStatusPayload{Pool: e.pool, Active: true}); err != nil {
		t.Fatal(err)
	}
	if err := exec(t, e.st, p, sysaction.ActionProviderDeregister, sysaction.ProviderDeregisterPayload{
		Pool: e.pool, Provider: provider.Address(p),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := authorize(u); !errors.Is(err, provider.ErrNotActive) {
		t.Errorf("inactive provider: want provider.ErrNotActive, got %v", err)
	}
}

func TestRecordQuery(t *testing.T) {
	e := setup(t)
	p := tAddr(1)
	e.register(t, p)
	record := func(from common.Address) error {
		return exec(t, e.st, from, sysaction.ActionVaultRecordQuery, sysaction.RecordQueryPayload{
			Provider: provider.Address(p), User: tAddr(0x11),
		})
	}
	if err := record(p); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := e.readProvider(t, p).QueriesServed; got != 1 {
		t.Errorf("queries served %d, want 1", got)
	}
	if err := record(tAddr(2)); !errors.Is(err, sysaction.ErrAddressMismatch) {
		t.Errorf("foreign signer: want ErrAddressMismatch, got %v", err)
	}
}
