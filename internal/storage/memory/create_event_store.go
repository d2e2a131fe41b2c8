package memory

import (
	"context"
	"sync"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// CreateEventStore is an in-memory implementation of storage.CreateEventStore.
type CreateEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.CreateEvent // keyed by mint
}

// NewCreateEventStore creates a new in-memory launch store.
func NewCreateEventStore() *CreateEventStore {
	return &CreateEventStore{
		data: make(map[string]*domain.CreateEvent),
	}
}

// Compile-time interface check.
var _ storage.CreateEventStore = (*CreateEventStore)(nil)

// Insert adds a new launch. Returns ErrDuplicateKey if the mint exists.
func (s *CreateEventStore) Insert(_ context.Context, e *domain.CreateEvent) error {
	if e == nil || e.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.Mint]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.Mint] = &copy
	return nil
}

// GetByMint retrieves the launch record for a mint.
func (s *CreateEventStore) GetByMint(_ context.Context, mint string) (*domain.CreateEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[mint]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *e
	return &copy, nil
}
