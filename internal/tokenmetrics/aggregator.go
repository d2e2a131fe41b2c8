// Package tokenmetrics computes the per-token snapshot the monitoring
// engine evaluates on each tick: trade counts and volumes, current price,
// market cap, holder distribution, and token age.
package tokenmetrics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/solana"
	"pump-sentinel/internal/storage"
)

// Aggregator assembles TokenMetrics from the trade store, the holder store,
// the launch record, and on-chain mint state.
type Aggregator struct {
	creates storage.CreateEventStore
	trades  storage.TradeEventStore
	holders storage.HolderStore
	rpc     solana.RPCClient
	price   PriceSource

	now func() time.Time
}

// NewAggregator wires an Aggregator from its collaborators.
func NewAggregator(
	creates storage.CreateEventStore,
	trades storage.TradeEventStore,
	holders storage.HolderStore,
	rpc solana.RPCClient,
	price PriceSource,
) *Aggregator {
	return &Aggregator{
		creates: creates,
		trades:  trades,
		holders: holders,
		rpc:     rpc,
		price:   price,
		now:     time.Now,
	}
}

// TokenMetrics computes the current snapshot for a mint. It requires a
// stored launch record; storage.ErrNotFound is returned for untracked mints.
func (a *Aggregator) TokenMetrics(ctx context.Context, mint string) (*domain.TokenMetrics, error) {
	create, err := a.creates.GetByMint(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("load create event: %w", err)
	}

	counts, err := a.trades.Aggregate(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("aggregate trades: %w", err)
	}

	solUSD := a.price.SolPriceUSD(ctx)

	m := &domain.TokenMetrics{
		Counts:      *counts,
		VolumeUSD:   (counts.BuyVolume + counts.SellVolume) * solUSD,
		AgeSeconds:  a.now().Unix() - create.Timestamp,
		TokenName:   create.Name,
		TokenSymbol: create.Symbol,
		Creator:     create.Creator,
	}

	latest, err := a.trades.Latest(ctx, mint)
	switch {
	case err == nil:
		if latest.VirtualTokenReserves > 0 {
			m.CurrentPriceUSD = latest.VirtualSolReserves / latest.VirtualTokenReserves * solUSD
		}
	case errors.Is(err, storage.ErrNotFound):
		// no trades yet, price stays zero
	default:
		return nil, fmt.Errorf("load latest trade: %w", err)
	}

	supply, err := a.totalSupply(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("load mint supply: %w", err)
	}
	m.MarketCapUSD = m.CurrentPriceUSD * supply

	if err := a.fillHolders(ctx, m, mint, create.Creator, supply); err != nil {
		return nil, err
	}
	return m, nil
}

// totalSupply reads the mint account and converts the raw supply to UI units.
func (a *Aggregator) totalSupply(ctx context.Context, mint string) (float64, error) {
	info, err := a.rpc.GetParsedAccountInfo(ctx, mint)
	if err != nil {
		return 0, err
	}
	if info == nil || info.Mint == nil {
		return 0, fmt.Errorf("account %s is not a token mint", mint)
	}

	raw, err := strconv.ParseFloat(info.Mint.Supply, 64)
	if err != nil {
		return 0, fmt.Errorf("parse supply %q: %w", info.Mint.Supply, err)
	}
	return raw / math.Pow10(int(info.Mint.Decimals)), nil
}

func (a *Aggregator) fillHolders(ctx context.Context, m *domain.TokenMetrics, mint, creator string, supply float64) error {
	top, err := a.holders.TopHolders(ctx, mint, 10)
	if err != nil {
		return fmt.Errorf("top holders: %w", err)
	}
	m.TopHolders = make([]domain.HolderShare, 0, len(top))
	for _, h := range top {
		m.TopHolders = append(m.TopHolders, domain.HolderShare{
			Address:    h.Holder,
			Percentage: sharePct(h.Balance, supply),
		})
	}

	m.TotalHolders, err = a.holders.Count(ctx, mint)
	if err != nil {
		return fmt.Errorf("holder count: %w", err)
	}

	creatorBalance, err := a.holders.CreatorBalance(ctx, mint, creator)
	if err != nil {
		return fmt.Errorf("creator balance: %w", err)
	}
	m.CreatorHoldingPct = sharePct(creatorBalance, supply)
	return nil
}

func sharePct(balance, supply float64) float64 {
	if supply <= 0 {
		return 0
	}
	return balance / supply * 100
}
