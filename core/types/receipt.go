package types

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/whistlenet/whistle/common"
)

const (
	// ReceiptStatusFailed is the status code of a command whose execution
	// aborted without changing state.
	ReceiptStatusFailed = uint64(0)

	// ReceiptStatusSuccessful is the status code of a committed command.
	ReceiptStatusSuccessful = uint64(1)
)

// Receipt is one entry of the append-only transaction log.
type Receipt struct {
	TxHash   common.Hash      `json:"txHash"`
	Seq      uint64           `json:"seq"`
	Time     uint64           `json:"time"`
	From     common.Address   `json:"from"`
	Action   string           `json:"action"`
	Accounts []common.Address `json:"accounts"`
	Status   uint64           `json:"status"`
	Cost     uint64           `json:"cost"`
	Err      string           `json:"error,omitempty"`
	Logs     []string         `json:"logs"`
	Output   json.RawMessage  `json:"output,omitempty"`
}

// Failed reports whether the command aborted.
func (r *Receipt) Failed() bool { return r.Status == ReceiptStatusFailed }

// storedReceipt is the RLP storage form of a receipt.
type storedReceipt struct {
	TxHash   common.Hash
	Seq      uint64
	Time     uint64
	From     common.Address
	Action   string
	Accounts []common.Address
	Status   uint64
	Cost     uint64
	Err      string
	Logs     []string
	Output   []byte
}

// EncodeReceipt serializes a receipt for the transaction log store.
func EncodeReceipt(r *Receipt) ([]byte, error) {
	return rlp.EncodeToBytes(&storedReceipt{
		TxHash:   r.TxHash,
		Seq:      r.Seq,
		Time:     r.Time,
		From:     r.From,
		Action:   r.Action,
		Accounts: r.Accounts,
		Status:   r.Status,
		Cost:     r.Cost,
		Err:      r.Err,
		Logs:     r.Logs,
		Output:   r.Output,
	})
}

// DecodeReceipt parses a stored receipt.
func DecodeReceipt(data []byte) (*Receipt, error) {
	var s storedReceipt
	if err := rlp.DecodeBytes(data, &s); err != nil {
		return nil, err
	}
	r := &Receipt{
		TxHash:   s.TxHash,
		Seq:      s.Seq,
		Time:     s.Time,
		From:     s.From,
		Action:   s.Action,
		Accounts: s.Accounts,
		Status:   s.Status,
		Cost:     s.Cost,
		Err:      s.Err,
		Logs:     s.Logs,
	}
	if len(s.Output) > 0 {
		r.Output = json.RawMessage(s.Output)
	}
	return r, nil
}

// Receipts is a list of receipts in execution order.
type Receipts []*Receipt
