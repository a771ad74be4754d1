package types

import (
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/crypto"
	"github.com/whistlenet/whistle/params"
)

// EmptyDataHash is the known hash of empty account data.
var EmptyDataHash = crypto.Keccak256Hash(nil)

// StateAccount is the persisted representation of a ledger account. Wallets
// only carry balances; record accounts additionally carry an owner tag and a
// data blob of at most Space bytes, reserved when the account is created.
type StateAccount struct {
	Balances [params.NumAssets]uint64
	Owner    common.Address
	Space    uint64
	DataHash common.Hash
}

// NewStateAccount returns an empty account.
func NewStateAccount() StateAccount {
	return StateAccount{DataHash: EmptyDataHash}
}
