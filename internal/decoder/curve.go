package decoder

import (
	"errors"
	"math"
	"math/big"
)

// Constant-product bonding curve math. PriceImpact works on normalized UI
// amounts (mirroring how trades are stored); the implied-amount helpers work
// on raw integer reserves because they reconstruct executed amounts for the
// instruction-decoding fallback path.

var (
	// ErrZeroReserves is returned when either side of the curve is empty.
	ErrZeroReserves = errors.New("bonding curve reserve is zero")
	// ErrOverdrawsCurve is returned when a requested token amount meets or
	// exceeds the token reserve, which the curve cannot price.
	ErrOverdrawsCurve = errors.New("token amount overdraws curve reserve")
)

// PriceImpact returns the percentage move of the token/SOL reserve ratio
// caused by adding solAmount to the SOL side, rounded to 2 decimals.
func PriceImpact(solAmount, reserveSol, reserveToken float64) float64 {
	k := reserveSol * reserveToken
	newSol := reserveSol + solAmount
	newToken := k / newSol

	oldRatio := reserveToken / reserveSol
	impact := math.Abs((newToken/newSol-oldRatio)/oldRatio) * 100
	return math.Round(impact*100) / 100
}

// SolForTokens returns the SOL amount the curve exchanges for tokenAmount
// tokens leaving the token reserve: dx = x*dy / (y - dy). Errors on zero
// reserves and when tokenAmount >= reserveToken.
func SolForTokens(tokenAmount, reserveSol, reserveToken uint64) (uint64, error) {
	if reserveSol == 0 || reserveToken == 0 {
		return 0, ErrZeroReserves
	}
	if tokenAmount >= reserveToken {
		return 0, ErrOverdrawsCurve
	}

	// x*dy can exceed 64 bits with realistic virtual reserves.
	num := new(big.Int).Mul(
		new(big.Int).SetUint64(reserveSol),
		new(big.Int).SetUint64(tokenAmount),
	)
	den := new(big.Int).SetUint64(reserveToken - tokenAmount)
	return num.Div(num, den).Uint64(), nil
}

// TokensForSol returns the token amount the curve exchanges for solAmount
// SOL entering the SOL reserve: dy = y*dx / (x + dx). Errors on zero
// reserves.
func TokensForSol(solAmount, reserveSol, reserveToken uint64) (uint64, error) {
	if reserveSol == 0 || reserveToken == 0 {
		return 0, ErrZeroReserves
	}

	num := new(big.Int).Mul(
		new(big.Int).SetUint64(reserveToken),
		new(big.Int).SetUint64(solAmount),
	)
	den := new(big.Int).Add(
		new(big.Int).SetUint64(reserveSol),
		new(big.Int).SetUint64(solAmount),
	)
	return num.Div(num, den).Uint64(), nil
}
