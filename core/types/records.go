package types

import (
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/params"
)

var (
	poolDiscriminator      = newDiscriminator("StakingPool")
	stakerDiscriminator    = newDiscriminator("StakerAccount")
	providerDiscriminator  = newDiscriminator("ProviderAccount")
	vaultDiscriminator     = newDiscriminator("PaymentVault")
	developerDiscriminator = newDiscriminator("DeveloperAccount")
)

// Encoded sizes of the fixed-width records.
const (
	StakingPoolSize = DiscriminatorLength + 2*addressSize + 6*uint64Size + 2*int64Size + 2*boolSize
	StakerSize      = DiscriminatorLength + addressSize + 5*uint64Size + int64Size + boolSize
	VaultSize       = DiscriminatorLength + addressSize + 8*uint64Size + int64Size
	DeveloperSize   = DiscriminatorLength + addressSize + 7*uint64Size + int64Size + 1 + optAddrSize + boolSize

	providerFixedSize = DiscriminatorLength + addressSize + 2*int64Size + boolSize + 9*uint64Size + uint32Size
)

// ProviderSize returns the encoded size of a provider record whose endpoint
// is endpointLen bytes long.
func ProviderSize(endpointLen int) int {
	return providerFixedSize + strLenSize + endpointLen
}

// StakingPool is the deployment-wide collateral pool.
type StakingPool struct {
	Authority         common.Address
	TokenVault        common.Address
	TotalStaked       uint64
	TotalAccessTokens uint64
	TotalStakers      uint64
	MinStakeAmount    uint64
	TokensPerWhistle  uint64
	MaxStakePerUser   uint64
	CreatedAt         int64
	CooldownPeriod    int64
	IsActive          bool
	RateLocked        bool
}

// Encode returns the fixed-width layout of the pool.
func (p *StakingPool) Encode() []byte {
	e := newRecordEncoder(poolDiscriminator, StakingPoolSize)
	e.address(p.Authority)
	e.address(p.TokenVault)
	e.uint64(p.TotalStaked)
	e.uint64(p.TotalAccessTokens)
	e.uint64(p.TotalStakers)
	e.uint64(p.MinStakeAmount)
	e.uint64(p.TokensPerWhistle)
	e.uint64(p.MaxStakePerUser)
	e.int64(p.CreatedAt)
	e.int64(p.CooldownPeriod)
	e.bool(p.IsActive)
	e.bool(p.RateLocked)
	return e.buf
}

// DecodeStakingPool parses a pool record.
func DecodeStakingPool(data []byte) (*StakingPool, error) {
	d := newRecordDecoder(poolDiscriminator, data)
	p := &StakingPool{
		Authority:         d.address(),
		TokenVault:        d.address(),
		TotalStaked:       d.uint64(),
		TotalAccessTokens: d.uint64(),
		TotalStakers:      d.uint64(),
		MinStakeAmount:    d.uint64(),
		TokensPerWhistle:  d.uint64(),
		MaxStakePerUser:   d.uint64(),
		CreatedAt:         d.int64(),
		CooldownPeriod:    d.int64(),
		IsActive:          d.bool(),
		RateLocked:        d.bool(),
	}
	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

// StakerRecord tracks one participant's locked collateral and access tokens.
type StakerRecord struct {
	Owner          common.Address
	StakedAmount   uint64
	AccessTokens   uint64
	VotingPower    uint64
	DataEncrypted  uint64
	PendingRewards uint64
	LastStakeTime  int64
	NodeOperator   bool
}

// Encode returns the fixed-width layout of the staker record.
func (s *StakerRecord) Encode() []byte {
	e := newRecordEncoder(stakerDiscriminator, StakerSize)
	e.address(s.Owner)
	e.uint64(s.StakedAmount)
	e.uint64(s.AccessTokens)
	e.uint64(s.VotingPower)
	e.uint64(s.DataEncrypted)
	e.uint64(s.PendingRewards)
	e.int64(s.LastStakeTime)
	e.bool(s.NodeOperator)
	return e.buf
}

// DecodeStakerRecord parses a staker record.
func DecodeStakerRecord(data []byte) (*StakerRecord, error) {
	d := newRecordDecoder(stakerDiscriminator, data)
	s := &StakerRecord{
		Owner:          d.address(),
		StakedAmount:   d.uint64(),
		AccessTokens:   d.uint64(),
		VotingPower:    d.uint64(),
		DataEncrypted:  d.uint64(),
		PendingRewards: d.uint64(),
		LastStakeTime:  d.int64(),
		NodeOperator:   d.bool(),
	}
	if d.err != nil {
		return nil, d.err
	}
	return s, nil
}

// ProviderRecord is a bonded data provider.
type ProviderRecord struct {
	Owner           common.Address
	RegisteredAt    int64
	LastHeartbeat   int64
	Active          bool
	BondAmount      uint64
	SlashedAmount   uint64
	TotalEarned     uint64
	PendingEarnings uint64
	QueriesServed   uint64
	ReputationScore uint64
	UptimePct       uint64
	AvgLatencyMs    uint64
	AccuracyPct     uint64
	PenaltyCount    uint32
	Endpoint        string
}

// EffectiveBond is the bond left after slashing.
func (p *ProviderRecord) EffectiveBond() uint64 {
	if p.SlashedAmount >= p.BondAmount {
		return 0
	}
	return p.BondAmount - p.SlashedAmount
}

// Encode returns the layout of the provider record. The endpoint is the
// only variable-length field and sits last.
func (p *ProviderRecord) Encode() []byte {
	e := newRecordEncoder(providerDiscriminator, ProviderSize(len(p.Endpoint)))
	e.address(p.Owner)
	e.int64(p.RegisteredAt)
	e.int64(p.LastHeartbeat)
	e.bool(p.Active)
	e.uint64(p.BondAmount)
	e.uint64(p.SlashedAmount)
	e.uint64(p.TotalEarned)
	e.uint64(p.PendingEarnings)
	e.uint64(p.QueriesServed)
	e.uint64(p.ReputationScore)
	e.uint64(p.UptimePct)
	e.uint64(p.AvgLatencyMs)
	e.uint64(p.AccuracyPct)
	e.uint32(p.PenaltyCount)
	e.string(p.Endpoint)
	return e.buf
}

// DecodeProviderRecord parses a provider record.
func DecodeProviderRecord(data []byte) (*ProviderRecord, error) {
	d := newRecordDecoder(providerDiscriminator, data)
	p := &ProviderRecord{
		Owner:           d.address(),
		RegisteredAt:    d.int64(),
		LastHeartbeat:   d.int64(),
		Active:          d.bool(),
		BondAmount:      d.uint64(),
		SlashedAmount:   d.uint64(),
		TotalEarned:     d.uint64(),
		PendingEarnings: d.uint64(),
		QueriesServed:   d.uint64(),
		ReputationScore: d.uint64(),
		UptimePct:       d.uint64(),
		AvgLatencyMs:    d.uint64(),
		AccuracyPct:     d.uint64(),
		PenaltyCount:    d.uint32(),
		Endpoint:        d.string(params.MaxEndpointLength),
	}
	if d.err != nil {
		return nil, d.err
	}
	return p, nil
}

// VaultRecord holds the revenue pools.
type VaultRecord struct {
	Authority           common.Address
	TotalCollected      uint64
	ProviderPool        uint64
	BonusPool           uint64
	Treasury            uint64
	StakerRewardsPool   uint64
	DeveloperRebatePool uint64
	TotalClaimed        uint64
	TotalSlashed        uint64
	LastDistribution    int64
}

// PoolSum is the sum of the four revenue pools.
func (v *VaultRecord) PoolSum() uint64 {
	return v.ProviderPool + v.BonusPool + v.Treasury + v.StakerRewardsPool
}

// Encode returns the fixed-width layout of the vault.
func (v *VaultRecord) Encode() []byte {
	e := newRecordEncoder(vaultDiscriminator, VaultSize)
	e.address(v.Authority)
	e.uint64(v.TotalCollected)
	e.uint64(v.ProviderPool)
	e.uint64(v.BonusPool)
	e.uint64(v.Treasury)
	e.uint64(v.StakerRewardsPool)
	e.uint64(v.DeveloperRebatePool)
	e.uint64(v.TotalClaimed)
	e.uint64(v.TotalSlashed)
	e.int64(v.LastDistribution)
	return e.buf
}

// DecodeVaultRecord parses a vault record.
func DecodeVaultRecord(data []byte) (*VaultRecord, error) {
	d := newRecordDecoder(vaultDiscriminator, data)
	v := &VaultRecord{
		Authority:           d.address(),
		TotalCollected:      d.uint64(),
		ProviderPool:        d.uint64(),
		BonusPool:           d.uint64(),
		Treasury:            d.uint64(),
		StakerRewardsPool:   d.uint64(),
		DeveloperRebatePool: d.uint64(),
		TotalClaimed:        d.uint64(),
		TotalSlashed:        d.uint64(),
		LastDistribution:    d.int64(),
	}
	if d.err != nil {
		return nil, d.err
	}
	return v, nil
}

// DeveloperTier is the rebate bracket of a developer.
type DeveloperTier uint8

const (
	TierHobbyist DeveloperTier = iota
	TierBuilder
	TierPro
	TierEnterprise
	TierWhale
)

func (t DeveloperTier) String() string {
	switch t {
	case TierHobbyist:
		return "Hobbyist"
	case TierBuilder:
		return "Builder"
	case TierPro:
		return "Pro"
	case TierEnterprise:
		return "Enterprise"
	case TierWhale:
		return "Whale"
	}
	return "Unknown"
}

// DeveloperRecord is a developer staking for fee rebates.
type DeveloperRecord struct {
	Owner                common.Address
	WhistleStaked        uint64
	TotalQueries         uint64
	FreeQueriesUsedMonth uint64
	RebateBPS            uint64
	BonusRewards         uint64
	ReferralsMade        uint64
	ReferralEarnings     uint64
	LastMonthReset       int64
	Tier                 DeveloperTier
	ReferredBy           *common.Address
	Active               bool
}

// Encode returns the fixed-width layout of the developer record.
func (r *DeveloperRecord) Encode() []byte {
	e := newRecordEncoder(developerDiscriminator, DeveloperSize)
	e.address(r.Owner)
	e.uint64(r.WhistleStaked)
	e.uint64(r.TotalQueries)
	e.uint64(r.FreeQueriesUsedMonth)
	e.uint64(r.RebateBPS)
	e.uint64(r.BonusRewards)
	e.uint64(r.ReferralsMade)
	e.uint64(r.ReferralEarnings)
	e.int64(r.LastMonthReset)
	e.uint8(uint8(r.Tier))
	e.optAddress(r.ReferredBy)
	e.bool(r.Active)
	return e.buf
}

// DecodeDeveloperRecord parses a developer record.
func DecodeDeveloperRecord(data []byte) (*DeveloperRecord, error) {
	d := newRecordDecoder(developerDiscriminator, data)
	r := &DeveloperRecord{
		Owner:                d.address(),
		WhistleStaked:        d.uint64(),
		TotalQueries:         d.uint64(),
		FreeQueriesUsedMonth: d.uint64(),
		RebateBPS:            d.uint64(),
		BonusRewards:         d.uint64(),
		ReferralsMade:        d.uint64(),
		ReferralEarnings:     d.uint64(),
		LastMonthReset:       d.int64(),
		Tier:                 DeveloperTier(d.uint8()),
		ReferredBy:           d.optAddress(),
		Active:               d.bool(),
	}
	if d.err != nil {
		return nil, d.err
	}
	if r.Tier > TierWhale {
		return nil, ErrInvalidRecord
	}
	return r, nil
}

// Record kinds reported by RecordKind.
const (
	KindPool      = "pool"
	KindStaker    = "staker"
	KindProvider  = "provider"
	KindVault     = "vault"
	KindDeveloper = "developer"
)

// RecordKind names the record type stored in data, or "" when the prefix
// matches none.
func RecordKind(data []byte) string {
	if len(data) < DiscriminatorLength {
		return ""
	}
	var d discriminator
	copy(d[:], data)
	switch d {
	case poolDiscriminator:
		return KindPool
	case stakerDiscriminator:
		return KindStaker
	case providerDiscriminator:
		return KindProvider
	case vaultDiscriminator:
		return KindVault
	case developerDiscriminator:
		return KindDeveloper
	}
	return ""
}
