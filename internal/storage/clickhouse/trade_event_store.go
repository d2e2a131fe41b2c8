package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// TradeEventStore implements storage.TradeEventStore using ClickHouse.
// Trades are append-only and query-heavy, which is what MergeTree is for.
type TradeEventStore struct {
	conn *Conn
}

// NewTradeEventStore creates a new TradeEventStore.
func NewTradeEventStore(conn *Conn) *TradeEventStore {
	return &TradeEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TradeEventStore = (*TradeEventStore)(nil)

const tradeColumns = `
	mint, sol_amount, token_amount, is_buy, trader, timestamp,
	virtual_sol_reserves, virtual_token_reserves, price_impact, signature, slot
`

// Insert adds a new trade.
func (s *TradeEventStore) Insert(ctx context.Context, t *domain.TradeEvent) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := fmt.Sprintf("INSERT INTO trade_events (%s)", tradeColumns)
	batch, err := s.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	isBuy := uint8(0)
	if t.IsBuy {
		isBuy = 1
	}
	err = batch.Append(
		t.Mint, t.SolAmount, t.TokenAmount, isBuy, t.Trader, t.Timestamp,
		t.VirtualSolReserves, t.VirtualTokenReserves, t.PriceImpact, t.Signature, t.Slot,
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Latest retrieves the most recent trade for a mint by (timestamp, slot).
func (s *TradeEventStore) Latest(ctx context.Context, mint string) (*domain.TradeEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM trade_events
		WHERE mint = ?
		ORDER BY timestamp DESC, slot DESC
		LIMIT 1
	`, tradeColumns)

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query latest trade: %w", err)
	}
	defer rows.Close()

	trades, err := scanTrades(rows)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, storage.ErrNotFound
	}
	return trades[0], nil
}

// Aggregate returns buy/sell counts and SOL volumes for a mint.
func (s *TradeEventStore) Aggregate(ctx context.Context, mint string) (*domain.TradeCounts, error) {
	query := `
		SELECT
			countIf(is_buy = 1),
			countIf(is_buy = 0),
			sumIf(sol_amount, is_buy = 1),
			sumIf(sol_amount, is_buy = 0)
		FROM trade_events
		WHERE mint = ?
	`

	var (
		buys, sells           uint64
		buyVolume, sellVolume float64
	)
	row := s.conn.QueryRow(ctx, query, mint)
	if err := row.Scan(&buys, &sells, &buyVolume, &sellVolume); err != nil {
		return nil, fmt.Errorf("aggregate trades: %w", err)
	}

	return &domain.TradeCounts{
		Buys:       int64(buys),
		Sells:      int64(sells),
		BuyVolume:  buyVolume,
		SellVolume: sellVolume,
	}, nil
}

// RecentHighImpactSells retrieves sells with impact above minImpact at or
// after since, newest first.
func (s *TradeEventStore) RecentHighImpactSells(ctx context.Context, mint string, minImpact float64, since int64) ([]*domain.TradeEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM trade_events
		WHERE mint = ? AND is_buy = 0 AND price_impact > ? AND timestamp >= ?
		ORDER BY timestamp DESC, slot DESC
	`, tradeColumns)

	rows, err := s.conn.Query(ctx, query, mint, minImpact, since)
	if err != nil {
		return nil, fmt.Errorf("query high impact sells: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans multiple rows into a slice of TradeEvent.
func scanTrades(rows driver.Rows) ([]*domain.TradeEvent, error) {
	var trades []*domain.TradeEvent

	for rows.Next() {
		var (
			t     domain.TradeEvent
			isBuy uint8
		)
		err := rows.Scan(
			&t.Mint, &t.SolAmount, &t.TokenAmount, &isBuy, &t.Trader, &t.Timestamp,
			&t.VirtualSolReserves, &t.VirtualTokenReserves, &t.PriceImpact, &t.Signature, &t.Slot,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.IsBuy = isBuy == 1
		trades = append(trades, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
