// Package state provides the journaled account store the ledger operations
// run against.
package state

import (
	"errors"
	"fmt"
	"sort"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/common/math"
	"github.com/whistlenet/whistle/core/rawdb"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/log"
	"github.com/whistlenet/whistle/params"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("state: insufficient balance")

	// ErrAccountInitialized is returned when creating an account that
	// already carries an owner or reserved space.
	ErrAccountInitialized = errors.New("state: account already initialized")

	// ErrDataTooLarge is returned when data exceeds the reserved space.
	ErrDataTooLarge = errors.New("state: data exceeds reserved space")

	// ErrNoAccount is returned when writing data to a missing account.
	ErrNoAccount = errors.New("state: account does not exist")
)

// StateDB caches accounts loaded from the Database and journals every change
// so a failed command can be rolled back to a snapshot.
type StateDB struct {
	db Database

	stateObjects      map[common.Address]*stateObject
	stateObjectsDirty map[common.Address]struct{}

	// Accounts accessed since the last Prepare, for the transaction log.
	accessed map[common.Address]struct{}

	// The first error encountered while loading state; reported on commit.
	dbErr error

	undo undoLog
}

// New creates a new state on top of the given database.
func New(db Database) *StateDB {
	return &StateDB{
		db:                db,
		stateObjects:      make(map[common.Address]*stateObject),
		stateObjectsDirty: make(map[common.Address]struct{}),
		accessed:          make(map[common.Address]struct{}),
	}
}

// Database returns the backing database.
func (s *StateDB) Database() Database { return s.db }

// Error returns the first database error encountered while loading state.
func (s *StateDB) Error() error { return s.dbErr }

func (s *StateDB) setError(err error) {
	if s.dbErr == nil {
		s.dbErr = err
	}
}

// Prepare resets the accessed-account set before executing a command.
func (s *StateDB) Prepare() {
	s.accessed = make(map[common.Address]struct{})
}

// AccessedAccounts returns the accounts read or written since Prepare, in
// address order.
func (s *StateDB) AccessedAccounts() []common.Address {
	out := make([]common.Address, 0, len(s.accessed))
	for addr := range s.accessed {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out
}

// Exist reports whether the given account exists in state.
func (s *StateDB) Exist(addr common.Address) bool {
	return s.getStateObject(addr) != nil
}

// GetBalance retrieves the asset balance of addr, zero if not found.
func (s *StateDB) GetBalance(asset params.Asset, addr common.Address) uint64 {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.data.Balances[asset]
	}
	return 0
}

// GetOwner retrieves the owner tag of addr.
func (s *StateDB) GetOwner(addr common.Address) common.Address {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.data.Owner
	}
	return common.Address{}
}

// GetSpace retrieves the data capacity reserved for addr.
func (s *StateDB) GetSpace(addr common.Address) uint64 {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.data.Space
	}
	return 0
}

// GetData returns a copy of the data stored at addr.
func (s *StateDB) GetData(addr common.Address) []byte {
	obj := s.getStateObject(addr)
	if obj == nil {
		return nil
	}
	data, err := obj.loadData()
	if err != nil {
		s.setError(err)
		return nil
	}
	return gethcommon.CopyBytes(data)
}

// AddBalance credits amount of asset to addr.
func (s *StateDB) AddBalance(asset params.Asset, addr common.Address, amount uint64) error {
	obj := s.getOrNewStateObject(addr)
	next, err := math.Add(obj.data.Balances[asset], amount)
	if err != nil {
		return err
	}
	s.setBalance(obj, asset, next)
	return nil
}

// SubBalance debits amount of asset from addr.
func (s *StateDB) SubBalance(asset params.Asset, addr common.Address, amount uint64) error {
	obj := s.getOrNewStateObject(addr)
	if obj.data.Balances[asset] < amount {
		return fmt.Errorf("%w: have %d, want %d", ErrInsufficientBalance, obj.data.Balances[asset], amount)
	}
	s.setBalance(obj, asset, obj.data.Balances[asset]-amount)
	return nil
}

func (s *StateDB) setBalance(obj *stateObject, asset params.Asset, amount uint64) {
	addr, prev := obj.address, obj.data.Balances[asset]
	s.undo.push(func(s *StateDB) {
		s.stateObjects[addr].data.Balances[asset] = prev
	})
	obj.data.Balances[asset] = amount
	s.stateObjectsDirty[obj.address] = struct{}{}
}

// CreateAccount assigns owner and reserves space bytes of data at addr. A
// pre-funded account keeps its balances; an account that already has an
// owner or space is rejected.
func (s *StateDB) CreateAccount(addr common.Address, owner common.Address, space uint64) error {
	obj := s.getOrNewStateObject(addr)
	if !obj.data.Owner.IsZero() || obj.data.Space != 0 {
		return ErrAccountInitialized
	}
	prevOwner, prevSpace := obj.data.Owner, obj.data.Space
	s.undo.push(func(s *StateDB) {
		o := s.stateObjects[addr]
		o.data.Owner, o.data.Space = prevOwner, prevSpace
	})
	obj.data.Owner = owner
	obj.data.Space = space
	s.stateObjectsDirty[addr] = struct{}{}
	return nil
}

// SetData replaces the data stored at addr. The account must exist and the
// data must fit the reserved space.
func (s *StateDB) SetData(addr common.Address, data []byte) error {
	obj := s.getStateObject(addr)
	if obj == nil {
		return ErrNoAccount
	}
	if uint64(len(data)) > obj.data.Space {
		return fmt.Errorf("%w: %d > %d", ErrDataTooLarge, len(data), obj.data.Space)
	}
	prev, err := obj.loadData()
	if err != nil {
		return err
	}
	s.undo.push(func(s *StateDB) {
		s.stateObjects[addr].setData(prev)
	})
	obj.setData(gethcommon.CopyBytes(data))
	s.stateObjectsDirty[addr] = struct{}{}
	return nil
}

// Snapshot returns a marker for the current state. Markers do not survive
// Commit.
func (s *StateDB) Snapshot() int {
	return s.undo.mark()
}

// RevertToSnapshot undoes every change made since the marker was taken.
func (s *StateDB) RevertToSnapshot(mark int) {
	if mark < 0 || mark > s.undo.mark() {
		panic(fmt.Errorf("state: snapshot %d out of range (log at %d)", mark, s.undo.mark()))
	}
	s.undo.rewind(s, mark)
}

// Commit writes all dirty accounts to the database in one batch.
func (s *StateDB) Commit() error {
	batch := s.db.DiskDB().NewBatch()
	if err := s.CommitTo(batch); err != nil {
		return err
	}
	return batch.Write()
}

// CommitTo stages all dirty accounts into batch and clears the undo log.
// The caller flushes the batch, usually together with its own writes.
func (s *StateDB) CommitTo(batch ethdb.KeyValueWriter) error {
	if s.dbErr != nil {
		return fmt.Errorf("commit aborted due to earlier error: %v", s.dbErr)
	}
	var (
		accounts = make(map[common.Address]*types.StateAccount, len(s.stateObjectsDirty))
		blobs    = make(map[common.Hash][]byte)
	)
	for addr := range s.stateObjectsDirty {
		obj, ok := s.stateObjects[addr]
		if !ok {
			continue
		}
		if hash, blob := obj.finalise(); blob != nil {
			blobs[hash] = blob
		}
		data := obj.data
		accounts[addr] = &data
	}
	if err := s.db.Commit(batch, accounts, blobs); err != nil {
		return err
	}
	log.Debug("Staged state", "accounts", len(accounts), "blobs", len(blobs))

	s.stateObjectsDirty = make(map[common.Address]struct{})
	s.undo.clear()
	return nil
}

// ForEachAccount calls fn for every account owned by owner, persisted or
// live, in address order. Iteration stops when fn returns false.
func (s *StateDB) ForEachAccount(owner common.Address, fn func(addr common.Address, data []byte) bool) error {
	seen := make(map[common.Address]struct{})
	err := rawdb.IterateAccounts(s.db.DiskDB(), func(addr common.Address, enc []byte) bool {
		seen[addr] = struct{}{}
		return true
	})
	if err != nil {
		return err
	}
	for addr := range s.stateObjects {
		seen[addr] = struct{}{}
	}
	addrs := make([]common.Address, 0, len(seen))
	for addr := range seen {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Cmp(addrs[j]) < 0 })

	for _, addr := range addrs {
		if s.GetOwner(addr) != owner {
			continue
		}
		if !fn(addr, s.GetData(addr)) {
			break
		}
	}
	return s.dbErr
}

// getStateObject retrieves a state object given by the address, returning
// nil if the object is not found.
func (s *StateDB) getStateObject(addr common.Address) *stateObject {
	s.accessed[addr] = struct{}{}
	if obj := s.stateObjects[addr]; obj != nil {
		return obj
	}
	data, err := s.db.Account(addr)
	if err != nil {
		s.setError(err)
		return nil
	}
	if data == nil {
		return nil
	}
	obj := newObject(s, addr, *data)
	s.stateObjects[addr] = obj
	return obj
}

func (s *StateDB) getOrNewStateObject(addr common.Address) *stateObject {
	if obj := s.getStateObject(addr); obj != nil {
		return obj
	}
	obj := newObject(s, addr, types.NewStateAccount())
	obj.dataLoaded = true
	s.undo.push(func(s *StateDB) {
		delete(s.stateObjects, addr)
		delete(s.stateObjectsDirty, addr)
	})
	s.stateObjects[addr] = obj
	return obj
}
