package postgres

import (
	"context"
	"fmt"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// CreateEventStore implements storage.CreateEventStore using PostgreSQL.
type CreateEventStore struct {
	pool *Pool
}

// NewCreateEventStore creates a new CreateEventStore.
func NewCreateEventStore(pool *Pool) *CreateEventStore {
	return &CreateEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CreateEventStore = (*CreateEventStore)(nil)

// Insert adds a new launch. Returns ErrDuplicateKey if the mint exists.
func (s *CreateEventStore) Insert(ctx context.Context, e *domain.CreateEvent) error {
	if e == nil || e.Mint == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO create_events (
			mint, name, symbol, uri, bonding_curve, creator, timestamp, signature, slot
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.pool.Exec(ctx, query,
		e.Mint,
		e.Name,
		e.Symbol,
		e.URI,
		e.BondingCurve,
		e.Creator,
		e.Timestamp,
		e.Signature,
		e.Slot,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert create event: %w", err)
	}
	return nil
}

// GetByMint retrieves the launch record for a mint.
func (s *CreateEventStore) GetByMint(ctx context.Context, mint string) (*domain.CreateEvent, error) {
	query := `
		SELECT mint, name, symbol, uri, bonding_curve, creator, timestamp, signature, slot
		FROM create_events
		WHERE mint = $1
	`

	var e domain.CreateEvent
	err := s.pool.QueryRow(ctx, query, mint).Scan(
		&e.Mint,
		&e.Name,
		&e.Symbol,
		&e.URI,
		&e.BondingCurve,
		&e.Creator,
		&e.Timestamp,
		&e.Signature,
		&e.Slot,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get create event by mint: %w", err)
	}
	return &e, nil
}
