package domain

// TradeCounts aggregates stored trades for one mint.
type TradeCounts struct {
	Buys       int64
	Sells      int64
	BuyVolume  float64 // SOL
	SellVolume float64 // SOL
}

// HolderShare is one entry of a top-holder ranking.
type HolderShare struct {
	Address    string
	Percentage float64 // share of total supply, percent
}

// TokenMetrics is the snapshot the monitoring engine evaluates each tick.
type TokenMetrics struct {
	Counts            TradeCounts
	CurrentPriceUSD   float64
	MarketCapUSD      float64
	VolumeUSD         float64
	AgeSeconds        int64
	TopHolders        []HolderShare
	TotalHolders      int64
	CreatorHoldingPct float64
	TokenName         string
	TokenSymbol       string
	Creator           string
}
