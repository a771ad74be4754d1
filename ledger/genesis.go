package ledger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/whistlenet/whistle/bridge"
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core"
	"github.com/whistlenet/whistle/core/rawdb"
	"github.com/whistlenet/whistle/core/state"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/log"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/staking"
	"github.com/whistlenet/whistle/sysaction"
	"github.com/whistlenet/whistle/vault"
)

var (
	errGenesisExists  = errors.New("ledger: database already initialized")
	errNoAuthority    = errors.New("ledger: genesis authority not set")
	errReserveTooLow  = errors.New("ledger: genesis bridge reserve below the wallet minimum")
	errDuplicateAlloc = errors.New("ledger: duplicate genesis allocation")
)

// GenesisAccount is a balance allocated before the first command.
type GenesisAccount struct {
	Address common.Address
	Whistle uint64
	Native  uint64
}

// Genesis specifies the initial state of a ledger: the balances it starts
// with and the parameters of the singleton pool, vault and bridge wallet,
// all controlled by Authority.
type Genesis struct {
	Authority        common.Address
	Time             int64
	MinStake         uint64
	TokensPerWhistle uint64
	CooldownPeriod   int64
	BridgeReserve    uint64
	Alloc            []GenesisAccount
}

// DefaultGenesis returns a genesis with the protocol defaults and no
// authority. The authority has to be filled in before use.
func DefaultGenesis() *Genesis {
	return &Genesis{
		MinStake:         100_000_000, // 100 WHISTLE
		TokensPerWhistle: 1,
		CooldownPeriod:   7 * 24 * 3600,
		BridgeReserve:    params.BridgeMinReserve,
	}
}

// Validate checks the genesis for settings that could never initialize.
// Pool parameters are left to the pool handler.
func (g *Genesis) Validate() error {
	if g.Authority.IsZero() {
		return errNoAuthority
	}
	if g.BridgeReserve < params.BridgeMinReserve {
		return fmt.Errorf("%w: %d < %d", errReserveTooLow, g.BridgeReserve, params.BridgeMinReserve)
	}
	seen := make(map[common.Address]struct{}, len(g.Alloc))
	for _, acct := range g.Alloc {
		if _, ok := seen[acct.Address]; ok {
			return fmt.Errorf("%w: %s", errDuplicateAlloc, acct.Address)
		}
		seen[acct.Address] = struct{}{}
	}
	return nil
}

// commands returns the initialization commands run on top of the
// allocation, in order.
func (g *Genesis) commands() ([]*types.Command, error) {
	pool := staking.PoolAddress(g.Authority)
	actions := []struct {
		kind    sysaction.ActionKind
		payload interface{}
	}{
		{sysaction.ActionStakingInitPool, sysaction.InitPoolPayload{
			Pool:             pool,
			TokenVault:       staking.TokenVaultAddress(g.Authority),
			MinStakeAmount:   g.MinStake,
			TokensPerWhistle: g.TokensPerWhistle,
			CooldownPeriod:   g.CooldownPeriod,
		}},
		{sysaction.ActionVaultInit, sysaction.VaultPayload{
			Vault: vault.Address(g.Authority),
			Pool:  pool,
		}},
		{sysaction.ActionBridgeInitWallet, sysaction.BridgeWalletPayload{
			Vault:  vault.Address(g.Authority),
			Wallet: bridge.WalletAddress(),
		}},
	}
	cmds := make([]*types.Command, 0, len(actions))
	for _, a := range actions {
		data, err := sysaction.MakeSysAction(a.kind, a.payload)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, types.NewCommand(g.Authority, g.Time, data))
	}
	return cmds, nil
}

// Commit writes the genesis allocation and runs the initialization commands
// into an empty database. The receipts of the initialization commands open
// the transaction log.
func (g *Genesis) Commit(db ethdb.KeyValueStore) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if rawdb.ReadGenesis(db) != nil {
		return errGenesisExists
	}
	statedb := state.New(state.NewDatabase(db))
	for _, acct := range g.Alloc {
		if err := statedb.AddBalance(params.AssetWhistle, acct.Address, acct.Whistle); err != nil {
			return err
		}
		if err := statedb.AddBalance(params.AssetNative, acct.Address, acct.Native); err != nil {
			return err
		}
	}
	if err := statedb.AddBalance(params.AssetNative, g.Authority, g.BridgeReserve); err != nil {
		return err
	}

	cmds, err := g.commands()
	if err != nil {
		return err
	}
	receipts := make(types.Receipts, 0, len(cmds))
	for seq, cmd := range cmds {
		r := core.ApplyCommand(statedb, cmd, uint64(seq))
		if r.Failed() {
			return fmt.Errorf("ledger: genesis %s: %s", r.Action, r.Err)
		}
		receipts = append(receipts, r)
	}
	spec, err := json.Marshal(g)
	if err != nil {
		return err
	}
	batch := db.NewBatch()
	if err := statedb.CommitTo(batch); err != nil {
		return err
	}
	for _, r := range receipts {
		rawdb.WriteReceipt(batch, r)
	}
	rawdb.WriteGenesis(batch, spec)
	if err := batch.Write(); err != nil {
		return fmt.Errorf("ledger: write genesis: %w", err)
	}
	log.Info("Wrote genesis state", "authority", g.Authority, "accounts", len(g.Alloc), "receipts", len(receipts))
	return nil
}

// ReadGenesis loads the genesis the database was initialized with.
func ReadGenesis(db ethdb.KeyValueReader) (*Genesis, error) {
	spec := rawdb.ReadGenesis(db)
	if spec == nil {
		return nil, ErrNoGenesis
	}
	g := new(Genesis)
	if err := json.Unmarshal(spec, g); err != nil {
		return nil, fmt.Errorf("ledger: invalid stored genesis: %w", err)
	}
	return g, nil
}
