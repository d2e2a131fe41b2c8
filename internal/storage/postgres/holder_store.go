package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// HolderStore implements storage.HolderStore using PostgreSQL.
type HolderStore struct {
	pool *Pool
}

// NewHolderStore creates a new HolderStore.
func NewHolderStore(pool *Pool) *HolderStore {
	return &HolderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HolderStore = (*HolderStore)(nil)

// UpsertBalance applies a signed token delta to a holder's position.
// Balances floor at zero in SQL so concurrent upserts stay consistent.
func (s *HolderStore) UpsertBalance(ctx context.Context, mint, holder string, delta float64, timestamp int64) error {
	if mint == "" || holder == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO holders (mint, holder, balance, first_seen)
		VALUES ($1, $2, GREATEST($3, 0), $4)
		ON CONFLICT (mint, holder)
		DO UPDATE SET balance = GREATEST(holders.balance + $3, 0)
	`

	if _, err := s.pool.Exec(ctx, query, mint, holder, delta, timestamp); err != nil {
		return fmt.Errorf("upsert holder balance: %w", err)
	}
	return nil
}

// TopHolders retrieves the largest positions for a mint, descending.
func (s *HolderStore) TopHolders(ctx context.Context, mint string, limit int) ([]*domain.HolderBalance, error) {
	query := `
		SELECT mint, holder, balance, first_seen
		FROM holders
		WHERE mint = $1 AND balance > 0
		ORDER BY balance DESC, holder ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, mint, limit)
	if err != nil {
		return nil, fmt.Errorf("get top holders: %w", err)
	}
	defer rows.Close()

	return scanHolders(rows)
}

// CreatorBalance retrieves one wallet's position, 0 when never traded.
func (s *HolderStore) CreatorBalance(ctx context.Context, mint, holder string) (float64, error) {
	query := `SELECT balance FROM holders WHERE mint = $1 AND holder = $2`

	var balance float64
	err := s.pool.QueryRow(ctx, query, mint, holder).Scan(&balance)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get creator balance: %w", err)
	}
	return balance, nil
}

// Count returns the number of wallets with a nonzero position.
func (s *HolderStore) Count(ctx context.Context, mint string) (int64, error) {
	query := `SELECT count(*) FROM holders WHERE mint = $1 AND balance > 0`

	var n int64
	if err := s.pool.QueryRow(ctx, query, mint).Scan(&n); err != nil {
		return 0, fmt.Errorf("count holders: %w", err)
	}
	return n, nil
}

// scanHolders scans multiple rows into a slice of HolderBalance.
func scanHolders(rows pgx.Rows) ([]*domain.HolderBalance, error) {
	var holders []*domain.HolderBalance

	for rows.Next() {
		var h domain.HolderBalance
		if err := rows.Scan(&h.Mint, &h.Holder, &h.Balance, &h.FirstSeen); err != nil {
			return nil, fmt.Errorf("scan holder row: %w", err)
		}
		holders = append(holders, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate holder rows: %w", err)
	}
	return holders, nil
}
