package state

import (
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/crypto"
)

// stateObject represents an account which is being modified.
type stateObject struct {
	address common.Address
	data    types.StateAccount
	db      *StateDB

	// Lazily loaded account data. dataLoaded is set once blob reflects the
	// account, either read from disk or written in memory.
	blob       []byte
	dataLoaded bool
	dataDirty  bool
}

func newObject(db *StateDB, address common.Address, data types.StateAccount) *stateObject {
	return &stateObject{
		address: address,
		data:    data,
		db:      db,
	}
}

func (s *stateObject) loadData() ([]byte, error) {
	if s.dataLoaded {
		return s.blob, nil
	}
	blob, err := s.db.db.AccountData(s.data.DataHash)
	if err != nil {
		return nil, err
	}
	s.blob, s.dataLoaded = blob, true
	return blob, nil
}

func (s *stateObject) setData(data []byte) {
	s.blob = data
	s.dataLoaded = true
	s.dataDirty = true
}

// finalise prepares the object for persisting and returns the data blob to
// write, if it changed.
func (s *stateObject) finalise() (common.Hash, []byte) {
	if !s.dataDirty {
		return common.Hash{}, nil
	}
	s.dataDirty = false
	if len(s.blob) == 0 {
		s.data.DataHash = types.EmptyDataHash
		return common.Hash{}, nil
	}
	s.data.DataHash = crypto.Keccak256Hash(s.blob)
	return s.data.DataHash, s.blob
}
