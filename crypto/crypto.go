// Package crypto provides the hashing and address derivation primitives of
// the ledger.
package crypto

import (
	"github.com/whistlenet/whistle/common"
	"golang.org/x/crypto/sha3"
)

// Keccak256 returns the legacy Keccak-256 digest of the concatenated inputs.
func Keccak256(data ...[]byte) []byte {
	h := Keccak256Hash(data...)
	return h[:]
}

// Keccak256Hash is Keccak256 returned as a Hash.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	d.Sum(h[:0])
	return h
}
