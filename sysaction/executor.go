package sysaction

import (
	"encoding/json"
	"fmt"

	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/crypto"
	"github.com/whistlenet/whistle/log"
	"github.com/whistlenet/whistle/params"
)

// StateDB is the account store a handler operates on. It is satisfied by
// *state.StateDB.
type StateDB interface {
	Exist(addr common.Address) bool
	GetBalance(asset params.Asset, addr common.Address) uint64
	GetOwner(addr common.Address) common.Address
	GetSpace(addr common.Address) uint64
	GetData(addr common.Address) []byte

	AddBalance(asset params.Asset, addr common.Address, amount uint64) error
	SubBalance(asset params.Asset, addr common.Address, amount uint64) error
	CreateAccount(addr common.Address, owner common.Address, space uint64) error
	SetData(addr common.Address, data []byte) error

	Snapshot() int
	RevertToSnapshot(revid int)
}

// Context carries information available to a system-action handler.
type Context struct {
	From    common.Address // authenticated signer of the command
	Time    int64          // trusted clock reading, unix seconds
	StateDB StateDB

	cost   uint64
	logs   []string
	output json.RawMessage
}

// NewContext creates a handler context for a command signed by from.
func NewContext(from common.Address, now int64, db StateDB) *Context {
	return &Context{From: from, Time: now, StateDB: db}
}

// Log appends a line to the command's receipt log.
func (ctx *Context) Log(msg string, kv ...interface{}) {
	line := msg
	for i := 0; i+1 < len(kv); i += 2 {
		line += fmt.Sprintf(" %v=%v", kv[i], kv[i+1])
	}
	ctx.logs = append(ctx.logs, line)
	log.Debug(msg, kv...)
}

// Logs returns the receipt log lines emitted so far.
func (ctx *Context) Logs() []string { return ctx.logs }

// SetOutput records the structured result of the command.
func (ctx *Context) SetOutput(v interface{}) error {
	enc, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx.output = enc
	return nil
}

// Output returns the structured result recorded by the handler, if any.
func (ctx *Context) Output() json.RawMessage { return ctx.output }

// Cost returns the processing cost charged so far.
func (ctx *Context) Cost() uint64 { return ctx.cost }

// Charge adds n to the processing cost of the command. A command may never
// exceed params.MaxOperationCost.
func (ctx *Context) Charge(n uint64) error {
	if n > params.MaxOperationCost-ctx.cost {
		return fmt.Errorf("sysaction: operation cost %d+%d above %d: %w", ctx.cost, n, params.MaxOperationCost, ErrCapacityExceeded)
	}
	ctx.cost += n
	return nil
}

// RequireSigner fails unless addr signed the command.
func (ctx *Context) RequireSigner(addr common.Address) error {
	if ctx.From != addr {
		return fmt.Errorf("sysaction: %s is not the signer: %w", addr, ErrAuthorization)
	}
	return nil
}

// Transfer moves amount of asset from a signer-held account to to.
func (ctx *Context) Transfer(asset params.Asset, from, to common.Address, amount uint64) error {
	if err := ctx.RequireSigner(from); err != nil {
		return err
	}
	return ctx.move(asset, from, to, amount)
}

// TransferSigned moves amount of asset out of a program-owned account. The
// account must be the address derived from seeds under params.ProgramID.
func (ctx *Context) TransferSigned(asset params.Asset, from, to common.Address, amount uint64, seeds ...[]byte) error {
	signer, err := crypto.DeriveAddress(params.ProgramID, seeds...)
	if err != nil {
		return fmt.Errorf("sysaction: %v: %w", err, ErrAuthorization)
	}
	if signer != from {
		return fmt.Errorf("sysaction: seeds do not sign for %s: %w", from, ErrAuthorization)
	}
	return ctx.move(asset, from, to, amount)
}

func (ctx *Context) move(asset params.Asset, from, to common.Address, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if have := ctx.StateDB.GetBalance(asset, from); have < amount {
		return fmt.Errorf("sysaction: %s balance of %s is %d, need %d: %w", asset, from, have, amount, ErrInsufficientFunds)
	}
	if err := ctx.StateDB.SubBalance(asset, from, amount); err != nil {
		return err
	}
	return ctx.StateDB.AddBalance(asset, to, amount)
}

// Handler is implemented by the ledger components.
type Handler interface {
	CanHandle(kind ActionKind) bool
	Handle(ctx *Context, sa *SysAction) error
}

// Registry holds registered handlers.
type Registry struct{ handlers []Handler }

// DefaultRegistry is the process-wide handler registry. Components register
// from init and the registry is read-only afterwards.
var DefaultRegistry = &Registry{}

// Register adds a handler to the registry.
func (r *Registry) Register(h Handler) { r.handlers = append(r.handlers, h) }

func (r *Registry) lookup(kind ActionKind) Handler {
	for _, h := range r.handlers {
		if h.CanHandle(kind) {
			return h
		}
	}
	return nil
}

// Execute decodes data as a system action and runs it against ctx. All
// state changes made by the handler are reverted if it fails.
func Execute(ctx *Context, data []byte) (*SysAction, error) {
	sa, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return sa, ExecuteAction(ctx, sa)
}

// ExecuteAction runs an already decoded system action.
func ExecuteAction(ctx *Context, sa *SysAction) error {
	h := DefaultRegistry.lookup(sa.Action)
	if h == nil {
		return fmt.Errorf("%w: unknown system action %q", ErrInvalidSysAction, sa.Action)
	}
	snap := ctx.StateDB.Snapshot()
	err := ctx.Charge(params.ActionBaseCost)
	if err == nil {
		err = h.Handle(ctx, sa)
	}
	if err != nil {
		ctx.StateDB.RevertToSnapshot(snap)
		ctx.output = nil
		return err
	}
	return nil
}

// ExecuteWithContext dispatches using a pre-built Context (used in tests).
func ExecuteWithContext(ctx *Context, data []byte) error {
	_, err := Execute(ctx, data)
	return err
}
