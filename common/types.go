// Package common contains the address and hash types shared by every ledger
// package.
package common

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
)

// AddressLength is the expected length of the address.
const AddressLength = 32

// HashLength is the expected length of the hash.
const HashLength = gethcommon.HashLength

var errInvalidAddress = errors.New("invalid address")

// Hash is the 32 byte Keccak256 digest identifying commands and data blobs.
type Hash = gethcommon.Hash

// BytesToHash sets b to hash, cropping from the left.
func BytesToHash(b []byte) Hash { return gethcommon.BytesToHash(b) }

// HexToHash sets byte representation of s to hash.
func HexToHash(s string) Hash { return gethcommon.HexToHash(s) }

// Address is a 32 byte account identifier. Wallets and program-derived
// record addresses share the same space.
type Address [AddressLength]byte

// BytesToAddress returns Address with value b.
// If b is larger than len(h), b will be cropped from the left.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress returns Address with byte values of s.
func HexToAddress(s string) Address { return BytesToAddress(FromHex(s)) }

// Base58ToAddress decodes the base58 text form of an address.
func Base58ToAddress(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", errInvalidAddress, err)
	}
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("%w: length %d", errInvalidAddress, len(b))
	}
	return BytesToAddress(b), nil
}

// ParseAddress accepts either the 0x-prefixed hex form or the base58 form.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if has0xPrefix(s) {
		b, err := hexutil.Decode(s)
		if err != nil || len(b) != AddressLength {
			return Address{}, fmt.Errorf("%w: %q", errInvalidAddress, s)
		}
		return BytesToAddress(b), nil
	}
	return Base58ToAddress(s)
}

// Bytes gets the string representation of the underlying address.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the 0x-prefixed hex form of the address.
func (a Address) Hex() string { return "0x" + hex.EncodeToString(a[:]) }

// String returns the base58 form of the address.
func (a Address) String() string { return base58.Encode(a[:]) }

// TerminalString returns a shortened base58 form for log output.
func (a Address) TerminalString() string {
	s := a.String()
	if len(s) <= 10 {
		return s
	}
	return s[:4] + ".." + s[len(s)-4:]
}

// SetBytes sets the address to the value of b.
// If b is larger than len(a), b will be cropped from the left.
func (a *Address) SetBytes(b []byte) {
	if len(b) > len(a) {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool { return a == Address{} }

// Cmp compares two addresses byte-wise.
func (a Address) Cmp(other Address) int { return bytes.Compare(a[:], other[:]) }

// MarshalText returns the base58 representation of a.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText parses an address in base58 or hex syntax.
func (a *Address) UnmarshalText(input []byte) error {
	addr, err := ParseAddress(string(input))
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

// FromHex returns the bytes represented by the hexadecimal string s.
// s may be prefixed with "0x".
func FromHex(s string) []byte { return gethcommon.FromHex(s) }

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
