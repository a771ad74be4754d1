// Package core applies ledger commands to state and produces the receipts
// that make up the transaction log.
package core

import (
	"github.com/whistlenet/whistle/core/state"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/log"
	"github.com/whistlenet/whistle/sysaction"

	// Components register their handlers on import.
	_ "github.com/whistlenet/whistle/bridge"
	_ "github.com/whistlenet/whistle/developer"
	_ "github.com/whistlenet/whistle/provider"
	_ "github.com/whistlenet/whistle/staking"
	_ "github.com/whistlenet/whistle/vault"
)

// ApplyCommand runs cmd against statedb and returns its receipt at log
// position seq. A failed command leaves statedb unchanged and is reported
// through the receipt status; ApplyCommand itself never fails.
func ApplyCommand(statedb *state.StateDB, cmd *types.Command, seq uint64) *types.Receipt {
	statedb.Prepare()
	ctx := sysaction.NewContext(cmd.From, cmd.Time, statedb)
	sa, err := sysaction.Execute(ctx, cmd.Data)

	receipt := &types.Receipt{
		TxHash:   cmd.Hash(),
		Seq:      seq,
		Time:     uint64(cmd.Time),
		From:     cmd.From,
		Accounts: statedb.AccessedAccounts(),
		Status:   types.ReceiptStatusSuccessful,
		Cost:     ctx.Cost(),
		Logs:     ctx.Logs(),
		Output:   ctx.Output(),
	}
	if sa != nil {
		receipt.Action = string(sa.Action)
	}
	if err != nil {
		receipt.Status = types.ReceiptStatusFailed
		receipt.Err = err.Error()
		receipt.Output = nil
		log.Debug("Command failed", "seq", seq, "from", cmd.From, "action", receipt.Action, "err", err)
	}
	return receipt
}
