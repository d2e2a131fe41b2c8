package memory

import (
	"context"
	"sort"
	"sync"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// HolderStore is an in-memory implementation of storage.HolderStore.
type HolderStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*domain.HolderBalance // mint -> holder -> balance
}

// NewHolderStore creates a new in-memory holder store.
func NewHolderStore() *HolderStore {
	return &HolderStore{
		data: make(map[string]map[string]*domain.HolderBalance),
	}
}

// Compile-time interface check.
var _ storage.HolderStore = (*HolderStore)(nil)

// UpsertBalance applies a signed token delta to a holder's position.
// Balances floor at zero so a missed fill never produces a negative
// position.
func (s *HolderStore) UpsertBalance(_ context.Context, mint, holder string, delta float64, timestamp int64) error {
	if mint == "" || holder == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	holders, ok := s.data[mint]
	if !ok {
		holders = make(map[string]*domain.HolderBalance)
		s.data[mint] = holders
	}

	b, ok := holders[holder]
	if !ok {
		b = &domain.HolderBalance{Mint: mint, Holder: holder, FirstSeen: timestamp}
		holders[holder] = b
	}

	b.Balance += delta
	if b.Balance < 0 {
		b.Balance = 0
	}
	return nil
}

// TopHolders retrieves the largest positions for a mint, descending.
func (s *HolderStore) TopHolders(_ context.Context, mint string, limit int) ([]*domain.HolderBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.HolderBalance
	for _, b := range s.data[mint] {
		if b.Balance <= 0 {
			continue
		}
		copy := *b
		out = append(out, &copy)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Balance != out[j].Balance {
			return out[i].Balance > out[j].Balance
		}
		return out[i].Holder < out[j].Holder
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CreatorBalance retrieves one wallet's position, 0 when never traded.
func (s *HolderStore) CreatorBalance(_ context.Context, mint, holder string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, ok := s.data[mint][holder]; ok {
		return b.Balance, nil
	}
	return 0, nil
}

// Count returns the number of wallets with a nonzero position.
func (s *HolderStore) Count(_ context.Context, mint string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, b := range s.data[mint] {
		if b.Balance > 0 {
			n++
		}
	}
	return n, nil
}
