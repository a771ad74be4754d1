package types

import (
	"encoding/binary"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/crypto"
)

// Command is a signed request to run one ledger operation. Data is a JSON
// encoded system action. Signature verification happens before a command
// reaches the ledger; From is the authenticated signer.
type Command struct {
	From common.Address `json:"from"`
	Time int64          `json:"time"`
	Data []byte         `json:"data"`
}

// NewCommand creates a command issued by from at time now.
func NewCommand(from common.Address, now int64, data []byte) *Command {
	return &Command{From: from, Time: now, Data: data}
}

// Hash identifies the command in the transaction log.
func (c *Command) Hash() common.Hash {
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(c.Time))
	return crypto.Keccak256Hash(c.From[:], ts[:], c.Data)
}
