package rawdb

import (
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/whistlenet/whistle/common"
	"github.com/whistlenet/whistle/log"
)

// ReadAccountRLP retrieves the encoded account stored at addr.
func ReadAccountRLP(db ethdb.KeyValueReader, addr common.Address) []byte {
	data, _ := db.Get(accountKey(addr))
	return data
}

// HasAccount checks if an account is present at addr.
func HasAccount(db ethdb.KeyValueReader, addr common.Address) bool {
	ok, _ := db.Has(accountKey(addr))
	return ok
}

// WriteAccountRLP stores an encoded account.
func WriteAccountRLP(db ethdb.KeyValueWriter, addr common.Address, enc []byte) {
	if err := db.Put(accountKey(addr), enc); err != nil {
		log.Crit("Failed to store account", "addr", addr, "err", err)
	}
}

// DeleteAccount removes the account stored at addr.
func DeleteAccount(db ethdb.KeyValueWriter, addr common.Address) {
	if err := db.Delete(accountKey(addr)); err != nil {
		log.Crit("Failed to delete account", "addr", addr, "err", err)
	}
}

// ReadAccountData retrieves the account data blob with the given hash.
func ReadAccountData(db ethdb.KeyValueReader, hash common.Hash) []byte {
	data, _ := db.Get(dataKey(hash))
	return data
}

// WriteAccountData stores an account data blob under its hash.
func WriteAccountData(db ethdb.KeyValueWriter, hash common.Hash, data []byte) {
	if err := db.Put(dataKey(hash), data); err != nil {
		log.Crit("Failed to store account data", "hash", hash, "err", err)
	}
}

// IterateAccounts calls fn for every stored account in address order. The
// iteration stops early when fn returns false.
func IterateAccounts(db ethdb.Iteratee, fn func(addr common.Address, enc []byte) bool) error {
	it := db.NewIterator(accountPrefix, nil)
	defer it.Release()

	for it.Next() {
		if len(it.Key()) != len(accountPrefix)+common.AddressLength {
			continue
		}
		addr := common.BytesToAddress(it.Key()[len(accountPrefix):])
		if !fn(addr, it.Value()) {
			break
		}
	}
	return it.Error()
}
