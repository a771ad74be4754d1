package math

import (
	"errors"
	gomath "math"
	"testing"
)

func TestOverflow(t *testing.T) {
	for i, test := range []struct {
		x, y     uint64
		overflow bool
		op       func(x, y uint64) (uint64, bool)
	}{
		{gomath.MaxUint64, 1, true, SafeAdd},
		{gomath.MaxUint64 - 1, 1, false, SafeAdd},
		{0, 1, true, SafeSub},
		{0, 0, false, SafeSub},
		{1 << 32, 1 << 32, true, SafeMul},
		{1<<32 - 1, 1 << 32, false, SafeMul},
	} {
		if _, overflow := test.op(test.x, test.y); overflow != test.overflow {
			t.Errorf("%d failed. Expected test to be %v, got %v", i, test.overflow, overflow)
		}
	}
}

func TestCheckedErrorsAreArithmetic(t *testing.T) {
	if _, err := Add(gomath.MaxUint64, 1); !errors.Is(err, ErrArithmetic) {
		t.Fatalf("add: want ErrArithmetic, got %v", err)
	}
	if _, err := Sub(1, 2); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("sub: want ErrUnderflow, got %v", err)
	}
	if _, err := Mul(gomath.MaxUint64, 2); !errors.Is(err, ErrOverflow) {
		t.Fatalf("mul: want ErrOverflow, got %v", err)
	}
	if _, err := MulDiv(1, 1, 0); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("muldiv: want ErrDivisionByZero, got %v", err)
	}
}

func TestMulDivWideIntermediate(t *testing.T) {
	// x*y overflows 64 bits but the quotient fits.
	got, err := MulDiv(gomath.MaxUint64, gomath.MaxUint64, gomath.MaxUint64)
	if err != nil || got != gomath.MaxUint64 {
		t.Fatalf("MulDiv: got %d, %v", got, err)
	}
	if _, err := MulDiv(gomath.MaxUint64, 2, 1); !errors.Is(err, ErrOverflow) {
		t.Fatalf("wide quotient: want ErrOverflow, got %v", err)
	}
}

func TestMulDivCeil(t *testing.T) {
	for _, tt := range []struct{ x, y, d, floor, ceil uint64 }{
		{10, 3, 4, 7, 8},
		{10, 4, 4, 10, 10},
		{0, 5, 3, 0, 0},
		{1, 1, 3, 0, 1},
	} {
		f, _ := MulDiv(tt.x, tt.y, tt.d)
		c, _ := MulDivCeil(tt.x, tt.y, tt.d)
		if f != tt.floor || c != tt.ceil {
			t.Errorf("%d*%d/%d: floor %d ceil %d, want %d %d", tt.x, tt.y, tt.d, f, c, tt.floor, tt.ceil)
		}
	}
}

func TestSaturatingSub(t *testing.T) {
	if SaturatingSub(3, 5) != 0 || SaturatingSub(5, 3) != 2 {
		t.Fatal("SaturatingSub mismatch")
	}
}
