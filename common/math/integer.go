// Package math provides checked integer arithmetic for ledger amounts.
package math

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/holiman/uint256"
)

// ErrArithmetic is the kind shared by every checked-arithmetic failure.
var ErrArithmetic = errors.New("arithmetic failure")

var (
	ErrOverflow       = fmt.Errorf("overflow: %w", ErrArithmetic)
	ErrUnderflow      = fmt.Errorf("underflow: %w", ErrArithmetic)
	ErrDivisionByZero = fmt.Errorf("division by zero: %w", ErrArithmetic)
)

// SafeSub returns x-y and checks for overflow.
func SafeSub(x, y uint64) (uint64, bool) {
	diff, borrowOut := bits.Sub64(x, y, 0)
	return diff, borrowOut != 0
}

// SafeAdd returns x+y and checks for overflow.
func SafeAdd(x, y uint64) (uint64, bool) {
	sum, carryOut := bits.Add64(x, y, 0)
	return sum, carryOut != 0
}

// SafeMul returns x*y and checks for overflow.
func SafeMul(x, y uint64) (uint64, bool) {
	hi, lo := bits.Mul64(x, y)
	return lo, hi != 0
}

// Add returns x+y or ErrOverflow.
func Add(x, y uint64) (uint64, error) {
	sum, overflow := SafeAdd(x, y)
	if overflow {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns x-y or ErrUnderflow.
func Sub(x, y uint64) (uint64, error) {
	diff, overflow := SafeSub(x, y)
	if overflow {
		return 0, ErrUnderflow
	}
	return diff, nil
}

// Mul returns x*y or ErrOverflow.
func Mul(x, y uint64) (uint64, error) {
	prod, overflow := SafeMul(x, y)
	if overflow {
		return 0, ErrOverflow
	}
	return prod, nil
}

// SaturatingSub returns x-y, or zero when y > x.
func SaturatingSub(x, y uint64) uint64 {
	if y > x {
		return 0
	}
	return x - y
}

// MulDiv returns floor(x*y/d). The product is held in 256 bits so it never
// overflows; only a quotient wider than 64 bits is an error.
func MulDiv(x, y, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivisionByZero
	}
	prod := new(uint256.Int).Mul(uint256.NewInt(x), uint256.NewInt(y))
	q := prod.Div(prod, uint256.NewInt(d))
	if !q.IsUint64() {
		return 0, ErrOverflow
	}
	return q.Uint64(), nil
}

// MulDivCeil returns ceil(x*y/d) with the same width guarantees as MulDiv.
func MulDivCeil(x, y, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivisionByZero
	}
	prod := new(uint256.Int).Mul(uint256.NewInt(x), uint256.NewInt(y))
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(prod, uint256.NewInt(d), r)
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	if !q.IsUint64() {
		return 0, ErrOverflow
	}
	return q.Uint64(), nil
}

// BasisPoints returns floor(x*bps/10000).
func BasisPoints(x, bps uint64) (uint64, error) {
	return MulDiv(x, bps, 10_000)
}
