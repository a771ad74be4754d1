// Package rawdb contains a collection of low level database accessors.
package rawdb

import (
	"encoding/binary"

	"github.com/whistlenet/whistle/common"
)

// The fields below define the low level database schema prefixing.
var (
	// headSeqKey tracks the sequence number of the latest receipt.
	headSeqKey = []byte("LastSeq")

	// genesisKey stores the JSON genesis specification the database was
	// initialised with.
	genesisKey = []byte("WhistleGenesis")

	accountPrefix = []byte("a") // accountPrefix + address -> account RLP
	dataPrefix    = []byte("d") // dataPrefix + data hash -> account data
	receiptPrefix = []byte("r") // receiptPrefix + num (uint64 big endian) -> receipt RLP
)

// encodeSeq encodes a sequence number as big endian uint64
func encodeSeq(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// accountKey = accountPrefix + address
func accountKey(addr common.Address) []byte {
	return append(append([]byte{}, accountPrefix...), addr.Bytes()...)
}

// dataKey = dataPrefix + hash
func dataKey(hash common.Hash) []byte {
	return append(append([]byte{}, dataPrefix...), hash.Bytes()...)
}

// receiptKey = receiptPrefix + num (uint64 big endian)
func receiptKey(seq uint64) []byte {
	return append(append([]byte{}, receiptPrefix...), encodeSeq(seq)...)
}
