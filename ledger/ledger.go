// Package ledger serializes command execution over the persistent state and
// keeps the append-only transaction log of receipts.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core"
	"github.com/whistlenet/whistle/core/rawdb"
	"github.com/whistlenet/whistle/core/state"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/log"
	"github.com/whistlenet/whistle/params"
	"github.com/whistlenet/whistle/sysaction"
)

var (
	// ErrNoGenesis is returned when opening a database that was never
	// initialized.
	ErrNoGenesis = errors.New("ledger: database has no genesis")

	// ErrTimeReversed is returned for a command stamped before the latest
	// receipt in the log.
	ErrTimeReversed = errors.New("ledger: command time before log head")

	// ErrClosed is returned by operations on a closed ledger.
	ErrClosed = errors.New("ledger: closed")

	// ErrHalted is returned once a command could not be persisted. The
	// in-memory state is ahead of the database; reopen the ledger to resume.
	ErrHalted = errors.New("ledger: halted after failed write")
)

// Config holds the tunables of an opened ledger.
type Config struct {
	CacheMB int // clean account cache size
}

// Ledger owns the state of one database. Commands run one at a time: each
// is executed, committed and appended to the log before the next starts.
type Ledger struct {
	db      ethdb.KeyValueStore
	genesis *Genesis
	clock   sysaction.Clock

	mu       sync.Mutex
	statedb  *state.StateDB
	nextSeq  uint64
	headTime int64
	closed   bool
	halted   error
}

// New opens a ledger on db, which must hold a committed genesis.
func New(db ethdb.KeyValueStore, config *Config, clock sysaction.Clock) (*Ledger, error) {
	genesis, err := ReadGenesis(db)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}
	if clock == nil {
		clock = sysaction.SystemClock{}
	}
	var sdb state.Database
	if config.CacheMB > 0 {
		sdb = state.NewDatabaseWithCache(db, config.CacheMB)
	} else {
		sdb = state.NewDatabase(db)
	}
	l := &Ledger{
		db:       db,
		genesis:  genesis,
		clock:    clock,
		statedb:  state.New(sdb),
		headTime: genesis.Time,
	}
	if head, ok := rawdb.ReadHeadSeq(db); ok {
		l.nextSeq = head + 1
		if r := rawdb.ReadReceipt(db, head); r != nil {
			l.headTime = int64(r.Time)
		}
	}
	log.Info("Opened ledger", "authority", genesis.Authority, "next", l.nextSeq)
	return l, nil
}

// Genesis returns the genesis the ledger was initialized with.
func (l *Ledger) Genesis() *Genesis { return l.genesis }

// Authority returns the key controlling the pool, vault and bridge wallet.
func (l *Ledger) Authority() common.Address { return l.genesis.Authority }

// Execute stamps data with the ledger clock and applies it on behalf of from.
func (l *Ledger) Execute(from common.Address, data []byte) (*types.Receipt, error) {
	return l.Apply(types.NewCommand(from, l.clock.Now(), data))
}

// Apply runs cmd and appends its receipt to the log. A command rejected by
// its handler still gets a failed receipt; the returned error reports only
// problems with the ledger itself.
func (l *Ledger) Apply(cmd *types.Command) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	if l.halted != nil {
		return nil, l.halted
	}
	if cmd.Time < l.headTime {
		return nil, fmt.Errorf("%w: %d < %d", ErrTimeReversed, cmd.Time, l.headTime)
	}
	receipt := core.ApplyCommand(l.statedb, cmd, l.nextSeq)

	// State, receipt and head sequence land in the same batch.
	batch := l.db.NewBatch()
	err := l.statedb.CommitTo(batch)
	if err == nil {
		rawdb.WriteReceipt(batch, receipt)
		err = batch.Write()
	}
	if err != nil {
		l.halted = fmt.Errorf("%w: seq %d: %v", ErrHalted, l.nextSeq, err)
		log.Error("Failed to persist command", "seq", l.nextSeq, "err", err)
		return nil, l.halted
	}
	l.nextSeq++
	l.headTime = cmd.Time

	if receipt.Failed() {
		log.Debug("Command rejected", "seq", receipt.Seq, "action", receipt.Action, "err", receipt.Err)
	} else {
		log.Debug("Command applied", "seq", receipt.Seq, "action", receipt.Action, "cost", receipt.Cost)
	}
	return receipt, nil
}

// Receipt returns the receipt at seq, or nil.
func (l *Ledger) Receipt(seq uint64) *types.Receipt {
	return rawdb.ReadReceipt(l.db, seq)
}

// Receipts returns up to limit receipts starting at seq from.
func (l *Ledger) Receipts(from uint64, limit int) types.Receipts {
	return rawdb.ReadReceiptRange(l.db, from, limit)
}

// Len returns the number of receipts in the log.
func (l *Ledger) Len() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextSeq
}

// Records calls fn with every program-owned record in address order until
// fn returns false.
func (l *Ledger) Records(fn func(addr common.Address, data []byte) bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statedb.ForEachAccount(params.ProgramID, fn)
}

// Balance returns the balance of addr in the given asset.
func (l *Ledger) Balance(asset params.Asset, addr common.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statedb.GetBalance(asset, addr)
}

// View runs fn with the state under the execution lock. fn must not modify
// the state.
func (l *Ledger) View(fn func(db sysaction.StateDB) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.statedb)
}

// Close releases the database.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}
