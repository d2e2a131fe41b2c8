package domain

// EventKind identifies a decoded program event variant.
type EventKind string

const (
	EventKindCreate   EventKind = "CREATE"
	EventKindTrade    EventKind = "TRADE"
	EventKindComplete EventKind = "COMPLETE"
)

// CreateEvent represents a token launch emitted by the tracked program.
type CreateEvent struct {
	Name         string // token name
	Symbol       string // token symbol
	URI          string // metadata URI
	Mint         string // mint address (base58)
	BondingCurve string // bonding curve account address (base58)
	Creator      string // creator wallet address (base58)
	Timestamp    int64  // creation time, Unix seconds
	Signature    string // transaction signature
	Slot         int64  // Solana slot number
}

// TradeEvent represents a buy or sell against a token's bonding curve.
// Amounts are normalized to UI units (SOL has 9 decimals, token decimals
// come from the mint account).
type TradeEvent struct {
	Mint                 string  // mint address (base58)
	SolAmount            float64 // SOL side of the trade
	TokenAmount          float64 // token side of the trade
	IsBuy                bool    // true for buy, false for sell
	Trader               string  // trader wallet address (base58)
	Timestamp            int64   // trade time, Unix seconds
	VirtualSolReserves   float64 // pre-trade virtual SOL reserves
	VirtualTokenReserves float64 // pre-trade virtual token reserves
	PriceImpact          float64 // derived impact percentage, 2 decimals
	Signature            string  // transaction signature
	Slot                 int64   // Solana slot number
}

// CompleteEvent signals that a bonding curve reached its cap and the token
// graduated off the tracked program.
type CompleteEvent struct {
	Mint         string // mint address (base58)
	BondingCurve string // bonding curve account address (base58)
	User         string // wallet that completed the curve (base58)
	Timestamp    int64  // Unix seconds
}

// Event is a tagged union of the decoded event variants. Exactly one of
// Create, Trade, Complete is non-nil, matching Kind.
type Event struct {
	Kind     EventKind
	Create   *CreateEvent
	Trade    *TradeEvent
	Complete *CompleteEvent
}
