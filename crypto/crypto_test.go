package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/whistlenet/whistle/common"
)

func TestKeccak256Hash(t *testing.T) {
	msg := []byte("abc")
	exp := common.FromHex("4e03657aea45a94fc7d47ba826c8d667c0d1e6e33a64a036ec44f58fa12d6c45")
	if h := Keccak256Hash(msg); !bytes.Equal(h[:], exp) {
		t.Fatalf("hash mismatch: want %x, got %x", exp, h)
	}
	if h := Keccak256(msg); !bytes.Equal(h, exp) {
		t.Fatalf("hash mismatch: want %x, got %x", exp, h)
	}
}

func TestDeriveAddressDeterministic(t *testing.T) {
	program := common.Address{0xaa}
	owner := common.Address{0x01}

	a1 := MustDeriveAddress(program, []byte("staker"), owner[:])
	a2 := MustDeriveAddress(program, []byte("staker"), owner[:])
	if a1 != a2 {
		t.Fatalf("derivation not deterministic: %v != %v", a1, a2)
	}
	if a1 == owner || a1.IsZero() {
		t.Fatalf("derived address collides with seed input: %v", a1)
	}
	other := MustDeriveAddress(common.Address{0xbb}, []byte("staker"), owner[:])
	if other == a1 {
		t.Fatal("different programs derived the same address")
	}
}

func TestDeriveAddressSeedBoundaries(t *testing.T) {
	program := common.Address{0xaa}
	ab := MustDeriveAddress(program, []byte("ab"), []byte("c"))
	bc := MustDeriveAddress(program, []byte("a"), []byte("bc"))
	if ab == bc {
		t.Fatal("seed boundaries are not part of the derivation")
	}
	if _, err := DeriveAddress(program, make([]byte, MaxSeedLength+1)); !errors.Is(err, ErrInvalidSeeds) {
		t.Fatalf("oversized seed: want ErrInvalidSeeds, got %v", err)
	}
}
