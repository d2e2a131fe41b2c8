// Package ingestion feeds decoded program events into storage and the
// monitoring engine. Two paths converge here: a live log subscription and
// batched stream delivery over webhooks.
package ingestion

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"pump-sentinel/internal/decoder"
	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/solana"
)

const (
	lamportsPerSol = 1e9

	// defaultTokenDecimals is used when the mint account cannot be read.
	defaultTokenDecimals = 9
)

// Normalizer converts raw fixed-point event amounts to UI units using each
// mint's on-chain decimals. Decimals are immutable per mint and cached.
type Normalizer struct {
	rpc solana.RPCClient

	mu       sync.Mutex
	decimals map[string]uint8
}

// NewNormalizer creates a Normalizer reading mint decimals through rpc.
func NewNormalizer(rpc solana.RPCClient) *Normalizer {
	return &Normalizer{
		rpc:      rpc,
		decimals: make(map[string]uint8),
	}
}

// Decimals returns a mint's decimals, falling back to the SPL default when
// the account cannot be read.
func (n *Normalizer) Decimals(ctx context.Context, mint string) uint8 {
	n.mu.Lock()
	d, ok := n.decimals[mint]
	n.mu.Unlock()
	if ok {
		return d
	}

	info, err := n.rpc.GetParsedAccountInfo(ctx, mint)
	if err != nil || info == nil || info.Mint == nil {
		log.Warn().Err(err).Str("mint", mint).Msg("mint decimals unavailable, using default")
		return defaultTokenDecimals
	}

	n.mu.Lock()
	n.decimals[mint] = info.Mint.Decimals
	n.mu.Unlock()
	return info.Mint.Decimals
}

// TradeEvent normalizes a raw trade and derives its price impact.
func (n *Normalizer) TradeEvent(ctx context.Context, raw *decoder.RawTrade, signature string, slot int64) *domain.TradeEvent {
	tokenScale := math.Pow10(int(n.Decimals(ctx, raw.Mint)))

	t := &domain.TradeEvent{
		Mint:                 raw.Mint,
		SolAmount:            float64(raw.SolAmount) / lamportsPerSol,
		TokenAmount:          float64(raw.TokenAmount) / tokenScale,
		IsBuy:                raw.IsBuy,
		Trader:               raw.User,
		Timestamp:            raw.Timestamp,
		VirtualSolReserves:   float64(raw.VirtualSolReserves) / lamportsPerSol,
		VirtualTokenReserves: float64(raw.VirtualTokenReserves) / tokenScale,
		Signature:            signature,
		Slot:                 slot,
	}
	t.PriceImpact = decoder.PriceImpact(t.SolAmount, t.VirtualSolReserves, t.VirtualTokenReserves)
	return t
}

// CreateEvent normalizes a raw launch event. The emitted payload carries no
// timestamp, so the caller supplies one (block time, or receipt time on the
// live path).
func CreateEvent(raw *decoder.RawCreate, signature string, slot, timestamp int64) *domain.CreateEvent {
	return &domain.CreateEvent{
		Name:         raw.Name,
		Symbol:       raw.Symbol,
		URI:          raw.URI,
		Mint:         raw.Mint,
		BondingCurve: raw.BondingCurve,
		Creator:      raw.User,
		Timestamp:    timestamp,
		Signature:    signature,
		Slot:         slot,
	}
}

// CompleteEvent normalizes a raw curve completion.
func CompleteEvent(raw *decoder.RawComplete) *domain.CompleteEvent {
	return &domain.CompleteEvent{
		Mint:         raw.Mint,
		BondingCurve: raw.BondingCurve,
		User:         raw.User,
		Timestamp:    raw.Timestamp,
	}
}
