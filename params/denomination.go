package params

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Asset identifies one of the two balances every account carries.
type Asset uint8

const (
	// AssetWhistle is the collateral token locked by stakers, providers and
	// developers.
	AssetWhistle Asset = iota
	// AssetNative is the settlement currency fees and external payments are
	// paid in.
	AssetNative

	NumAssets = 2
)

// These are the decimals of the two assets.
// Example: 1 WHISTLE is 10^WhistleDecimals base units.
const (
	WhistleDecimals = 6
	NativeDecimals  = 9
)

func (a Asset) String() string {
	switch a {
	case AssetWhistle:
		return "WHISTLE"
	case AssetNative:
		return "NATIVE"
	}
	return "UNKNOWN"
}

// Decimals returns the number of fractional digits of the asset.
func (a Asset) Decimals() int32 {
	if a == AssetWhistle {
		return WhistleDecimals
	}
	return NativeDecimals
}

// FormatUnits renders a base-unit amount in whole asset units.
func FormatUnits(a Asset, amount uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -a.Decimals()).String()
}

// ParseUnits converts a decimal string of whole asset units to base units.
func ParseUnits(a Asset, s string) (uint64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	d = d.Shift(a.Decimals())
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("invalid %v amount %q", a, s)
	}
	bi := d.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("%v amount %q out of range", a, s)
	}
	return bi.Uint64(), nil
}
