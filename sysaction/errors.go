package sysaction

import (
	"errors"

	"github.com/whistlenet/whistle/common/math"
)

// Error kinds. Every failure returned by a handler wraps exactly one of
// these, so callers can classify it with errors.Is.
var (
	// ErrAuthorization is a missing or invalid signer.
	ErrAuthorization = errors.New("authorization failure")

	// ErrAddressMismatch is a supplied record address that does not match
	// the address derived from its owner.
	ErrAddressMismatch = errors.New("address mismatch")

	// ErrRecordState is an already-initialized, uninitialized, undecodable or
	// foreign-owned record.
	ErrRecordState = errors.New("record state error")

	// ErrArithmetic is an overflow or underflow in checked arithmetic.
	ErrArithmetic = math.ErrArithmetic

	// ErrInsufficientFunds is a balance or pool liquidity below the amount
	// required.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPolicyViolation is a request breaking a ledger rule: cooldown,
	// rate limit, bounds, malformed input or duplicate entries.
	ErrPolicyViolation = errors.New("policy violation")

	// ErrCapacityExceeded is a per-participant or per-batch cap being hit.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

var kinds = []error{
	ErrAuthorization,
	ErrAddressMismatch,
	ErrRecordState,
	ErrArithmetic,
	ErrInsufficientFunds,
	ErrPolicyViolation,
	ErrCapacityExceeded,
}

// Kind returns the error kind err wraps, or nil if it wraps none.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
