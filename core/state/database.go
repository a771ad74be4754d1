package state

import (
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/core/rawdb"
	"github.com/whistlenet/whistle/core/types"
)

const (
	// Number of account data blobs to keep decoded in memory.
	dataCacheSize = 4096

	// Default size of the clean account cache in megabytes.
	defaultCleanCacheMB = 16
)

// Database wraps access to persisted accounts and their data.
type Database interface {
	// Account retrieves the account stored at addr, or nil if none.
	Account(addr common.Address) (*types.StateAccount, error)

	// AccountData retrieves the data blob with the given hash.
	AccountData(hash common.Hash) ([]byte, error)

	// Commit stages the given accounts and data blobs into batch. The caches
	// are updated on the assumption that the batch is written.
	Commit(batch ethdb.KeyValueWriter, accounts map[common.Address]*types.StateAccount, data map[common.Hash][]byte) error

	// DiskDB returns the underlying key-value disk database.
	DiskDB() ethdb.KeyValueStore
}

// NewDatabase creates a backing store for state with the default cache size.
func NewDatabase(db ethdb.KeyValueStore) Database {
	return NewDatabaseWithCache(db, defaultCleanCacheMB)
}

// NewDatabaseWithCache creates a backing store for state whose clean account
// cache holds up to cacheMB megabytes of encoded accounts.
func NewDatabaseWithCache(db ethdb.KeyValueStore, cacheMB int) Database {
	dataCache, _ := lru.New(dataCacheSize)
	return &cachingDB{
		disk:      db,
		clean:     fastcache.New(cacheMB * 1024 * 1024),
		dataCache: dataCache,
	}
}

type cachingDB struct {
	disk      ethdb.KeyValueStore
	clean     *fastcache.Cache // address -> encoded account
	dataCache *lru.Cache       // data hash -> []byte
}

func (db *cachingDB) Account(addr common.Address) (*types.StateAccount, error) {
	enc, ok := db.clean.HasGet(nil, addr[:])
	if !ok {
		enc = rawdb.ReadAccountRLP(db.disk, addr)
		if len(enc) == 0 {
			return nil, nil
		}
		db.clean.Set(addr[:], enc)
	}
	acct := new(types.StateAccount)
	if err := rlp.DecodeBytes(enc, acct); err != nil {
		return nil, fmt.Errorf("state: invalid account %v: %w", addr, err)
	}
	return acct, nil
}

func (db *cachingDB) AccountData(hash common.Hash) ([]byte, error) {
	if hash == types.EmptyDataHash {
		return nil, nil
	}
	if cached, ok := db.dataCache.Get(hash); ok {
		return cached.([]byte), nil
	}
	data := rawdb.ReadAccountData(db.disk, hash)
	if len(data) == 0 {
		return nil, fmt.Errorf("state: missing account data %v", hash)
	}
	db.dataCache.Add(hash, data)
	return data, nil
}

func (db *cachingDB) DiskDB() ethdb.KeyValueStore {
	return db.disk
}

func (db *cachingDB) Commit(batch ethdb.KeyValueWriter, accounts map[common.Address]*types.StateAccount, data map[common.Hash][]byte) error {
	encoded := make(map[common.Address][]byte, len(accounts))
	for hash, blob := range data {
		rawdb.WriteAccountData(batch, hash, blob)
	}
	for addr, acct := range accounts {
		enc, err := rlp.EncodeToBytes(acct)
		if err != nil {
			return fmt.Errorf("state: encode account %v: %w", addr, err)
		}
		rawdb.WriteAccountRLP(batch, addr, enc)
		encoded[addr] = enc
	}
	for addr, enc := range encoded {
		db.clean.Set(addr[:], enc)
	}
	for hash, blob := range data {
		db.dataCache.Add(hash, blob)
	}
	return nil
}
