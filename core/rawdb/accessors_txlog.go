package rawdb

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/whistlenet/whistle/core/types"
	"github.com/whistlenet/whistle/log"
)

// ReadHeadSeq retrieves the sequence number of the latest receipt, and
// whether any receipt was written yet.
func ReadHeadSeq(db ethdb.KeyValueReader) (uint64, bool) {
	data, _ := db.Get(headSeqKey)
	if len(data) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(data), true
}

// WriteHeadSeq stores the sequence number of the latest receipt.
func WriteHeadSeq(db ethdb.KeyValueWriter, seq uint64) {
	if err := db.Put(headSeqKey, encodeSeq(seq)); err != nil {
		log.Crit("Failed to store head sequence", "err", err)
	}
}

// ReadReceipt retrieves the receipt with the given sequence number.
func ReadReceipt(db ethdb.KeyValueReader, seq uint64) *types.Receipt {
	data, _ := db.Get(receiptKey(seq))
	if len(data) == 0 {
		return nil
	}
	r, err := types.DecodeReceipt(data)
	if err != nil {
		log.Error("Invalid receipt RLP", "seq", seq, "err", err)
		return nil
	}
	return r
}

// WriteReceipt appends a receipt to the transaction log and advances the
// head sequence.
func WriteReceipt(db ethdb.KeyValueWriter, r *types.Receipt) {
	data, err := types.EncodeReceipt(r)
	if err != nil {
		log.Crit("Failed to RLP encode receipt", "err", err)
	}
	if err := db.Put(receiptKey(r.Seq), data); err != nil {
		log.Crit("Failed to store receipt", "seq", r.Seq, "err", err)
	}
	WriteHeadSeq(db, r.Seq)
}

// ReadReceiptRange returns up to limit receipts starting at seq from.
func ReadReceiptRange(db ethdb.Iteratee, from uint64, limit int) types.Receipts {
	it := db.NewIterator(receiptPrefix, encodeSeq(from))
	defer it.Release()

	var out types.Receipts
	for it.Next() && (limit <= 0 || len(out) < limit) {
		if len(it.Key()) != len(receiptPrefix)+8 {
			continue
		}
		r, err := types.DecodeReceipt(it.Value())
		if err != nil {
			log.Error("Invalid receipt RLP", "key", it.Key(), "err", err)
			continue
		}
		out = append(out, r)
	}
	return out
}

// ReadGenesis retrieves the genesis specification the database was
// initialised with.
func ReadGenesis(db ethdb.KeyValueReader) []byte {
	data, _ := db.Get(genesisKey)
	return data
}

// WriteGenesis stores the genesis specification.
func WriteGenesis(db ethdb.KeyValueWriter, spec []byte) {
	if err := db.Put(genesisKey, spec); err != nil {
		log.Crit("Failed to store genesis", "err", err)
	}
}
