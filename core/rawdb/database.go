package rawdb

import (
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

// NewMemoryDatabase creates an ephemeral in-memory key-value database.
func NewMemoryDatabase() ethdb.KeyValueStore {
	return memorydb.New()
}

// NewLevelDBDatabase creates a persistent key-value database backed by
// LevelDB.
func NewLevelDBDatabase(file string, cache int, handles int, readonly bool) (ethdb.KeyValueStore, error) {
	db, err := openLevelStore(file, cache, handles, readonly)
	if err != nil {
		return nil, err
	}
	return db, nil
}
