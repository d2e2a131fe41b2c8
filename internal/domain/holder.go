package domain

// HolderBalance is the tracked net position of one wallet in one mint,
// accumulated from signed trade amounts.
type HolderBalance struct {
	Mint      string
	Holder    string
	Balance   float64 // token UI units
	FirstSeen int64   // Unix seconds
}
