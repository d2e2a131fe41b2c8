package solana

import (
	"testing"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const testProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

func TestDerivePDA_Deterministic(t *testing.T) {
	seeds := [][]byte{[]byte("bonding-curve"), []byte("some-mint-bytes")}

	a, err := DerivePDA(seeds, testProgramID)
	if err != nil {
		t.Fatalf("DerivePDA: %v", err)
	}
	b, err := DerivePDA(seeds, testProgramID)
	if err != nil {
		t.Fatalf("DerivePDA: %v", err)
	}
	if a != b {
		t.Errorf("derivation not deterministic: %s vs %s", a, b)
	}

	raw, err := base58.Decode(a)
	if err != nil || len(raw) != 32 {
		t.Errorf("PDA %q is not a 32-byte base58 address: %v", a, err)
	}
}

func TestDerivePDA_OffCurve(t *testing.T) {
	addr, err := DerivePDA([][]byte{[]byte("seed")}, testProgramID)
	if err != nil {
		t.Fatalf("DerivePDA: %v", err)
	}
	raw, err := base58.Decode(addr)
	if err != nil {
		t.Fatalf("decode PDA: %v", err)
	}
	if isOnCurve(raw) {
		t.Error("derived PDA lies on the ed25519 curve")
	}
}

func TestDerivePDA_DistinctSeeds(t *testing.T) {
	a, err := DerivePDA([][]byte{[]byte("seed-a")}, testProgramID)
	if err != nil {
		t.Fatalf("DerivePDA: %v", err)
	}
	b, err := DerivePDA([][]byte{[]byte("seed-b")}, testProgramID)
	if err != nil {
		t.Fatalf("DerivePDA: %v", err)
	}
	if a == b {
		t.Error("distinct seeds derived the same address")
	}
}

func TestBondingCurveAddress(t *testing.T) {
	mint := base58.Encode(make([]byte, 32))

	addr, err := BondingCurveAddress(mint, testProgramID)
	if err != nil {
		t.Fatalf("BondingCurveAddress: %v", err)
	}
	if addr == "" || addr == mint {
		t.Errorf("unexpected curve address %q", addr)
	}

	if _, err := BondingCurveAddress("not-base58-0OIl", testProgramID); err == nil {
		t.Error("expected error for invalid mint")
	}
}

func TestIsOnCurve(t *testing.T) {
	generator := edwards25519.NewGeneratorPoint().Bytes()
	if !isOnCurve(generator) {
		t.Error("ed25519 generator reported off-curve")
	}
	if isOnCurve(make([]byte, 16)) {
		t.Error("short input reported on-curve")
	}
}
