package domain

// BondingCurveState mirrors the on-chain bonding curve account. All amounts
// are raw fixed-point integers (SOL side has 9 decimals).
type BondingCurveState struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}
