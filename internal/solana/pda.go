package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// bondingCurveSeed is the fixed seed of a bonding-curve PDA.
const bondingCurveSeed = "bonding-curve"

// DerivePDA derives a Program Derived Address from seeds and a program ID,
// searching bumps from 255 downward for the first off-curve point.
func DerivePDA(seeds [][]byte, programID string) (string, error) {
	program, err := base58.Decode(programID)
	if err != nil {
		return "", fmt.Errorf("program id base58: %w", err)
	}

	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 64)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, program...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), nil
		}
	}
	return "", fmt.Errorf("no off-curve bump for seeds")
}

// BondingCurveAddress derives the bonding-curve PDA for a mint under the
// given program.
func BondingCurveAddress(mint, programID string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("mint base58: %w", err)
	}
	return DerivePDA([][]byte{[]byte(bondingCurveSeed), mintBytes}, programID)
}

// isOnCurve reports whether a 32-byte value decodes as an ed25519 point.
// PDAs must be off the curve so no keypair can ever sign for them.
func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
