package crypto

import (
	"encoding/binary"
	"errors"

	"github.com/whistlenet/whistle/common"
	"golang.org/x/crypto/sha3"
)

const (
	// MaxSeeds is the maximum number of seeds a derived address may use.
	MaxSeeds = 16
	// MaxSeedLength is the maximum length of a single seed.
	MaxSeedLength = 32
)

var derivationTag = []byte("whistle/derived-address")

var ErrInvalidSeeds = errors.New("crypto: invalid derivation seeds")

// DeriveAddress computes the deterministic address owned by program for the
// given seed tuple. Every seed is length-prefixed, so ("ab","c") and
// ("a","bc") derive different addresses.
func DeriveAddress(program common.Address, seeds ...[]byte) (common.Address, error) {
	if len(seeds) > MaxSeeds {
		return common.Address{}, ErrInvalidSeeds
	}
	d := sha3.NewLegacyKeccak256()
	d.Write(derivationTag)
	d.Write(program[:])
	var lenbuf [2]byte
	for _, s := range seeds {
		if len(s) > MaxSeedLength {
			return common.Address{}, ErrInvalidSeeds
		}
		binary.BigEndian.PutUint16(lenbuf[:], uint16(len(s)))
		d.Write(lenbuf[:])
		d.Write(s)
	}
	var addr common.Address
	d.Sum(addr[:0])
	return addr, nil
}

// MustDeriveAddress is like DeriveAddress but panics on invalid seeds. It is
// meant for seeds fixed at compile time.
func MustDeriveAddress(program common.Address, seeds ...[]byte) common.Address {
	addr, err := DeriveAddress(program, seeds...)
	if err != nil {
		panic(err)
	}
	return addr
}
