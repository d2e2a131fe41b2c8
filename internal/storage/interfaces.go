package storage

import (
	"context"

	"pump-sentinel/internal/domain"
)

// CreateEventStore provides access to token launch records.
type CreateEventStore interface {
	// Insert adds a new launch. Returns ErrDuplicateKey if the mint exists.
	Insert(ctx context.Context, e *domain.CreateEvent) error

	// GetByMint retrieves the launch record for a mint. Returns ErrNotFound
	// if the mint was never seen.
	GetByMint(ctx context.Context, mint string) (*domain.CreateEvent, error)
}

// TradeEventStore provides access to trade records.
type TradeEventStore interface {
	// Insert adds a new trade.
	Insert(ctx context.Context, t *domain.TradeEvent) error

	// Latest retrieves the most recent trade for a mint by (timestamp, slot).
	// Returns ErrNotFound if the mint has no trades.
	Latest(ctx context.Context, mint string) (*domain.TradeEvent, error)

	// Aggregate returns buy/sell counts and SOL volumes across all stored
	// trades of a mint.
	Aggregate(ctx context.Context, mint string) (*domain.TradeCounts, error)

	// RecentHighImpactSells retrieves sells with price impact above
	// minImpact at or after since (Unix seconds), newest first.
	RecentHighImpactSells(ctx context.Context, mint string, minImpact float64, since int64) ([]*domain.TradeEvent, error)
}

// HolderStore tracks per-wallet net positions accumulated from trades.
type HolderStore interface {
	// UpsertBalance applies a signed token delta to a holder's position,
	// creating the row on first sight. Balances floor at zero.
	UpsertBalance(ctx context.Context, mint, holder string, delta float64, timestamp int64) error

	// TopHolders retrieves the largest positions for a mint, descending.
	TopHolders(ctx context.Context, mint string, limit int) ([]*domain.HolderBalance, error)

	// CreatorBalance retrieves one wallet's position. Returns 0 when the
	// wallet never traded the mint.
	CreatorBalance(ctx context.Context, mint, holder string) (float64, error)

	// Count returns the number of wallets with a nonzero position.
	Count(ctx context.Context, mint string) (int64, error)
}
