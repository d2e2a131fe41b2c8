package memory

import (
	"context"
	"sort"
	"sync"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// TradeEventStore is an in-memory implementation of storage.TradeEventStore.
type TradeEventStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.TradeEvent // keyed by mint, insertion order
}

// NewTradeEventStore creates a new in-memory trade store.
func NewTradeEventStore() *TradeEventStore {
	return &TradeEventStore{
		data: make(map[string][]*domain.TradeEvent),
	}
}

// Compile-time interface check.
var _ storage.TradeEventStore = (*TradeEventStore)(nil)

// Insert adds a new trade.
func (s *TradeEventStore) Insert(_ context.Context, t *domain.TradeEvent) error {
	if t == nil || t.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *t
	s.data[t.Mint] = append(s.data[t.Mint], &copy)
	return nil
}

// Latest retrieves the most recent trade for a mint by (timestamp, slot).
func (s *TradeEventStore) Latest(_ context.Context, mint string) (*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trades := s.data[mint]
	if len(trades) == 0 {
		return nil, storage.ErrNotFound
	}

	latest := trades[0]
	for _, t := range trades[1:] {
		if t.Timestamp > latest.Timestamp ||
			(t.Timestamp == latest.Timestamp && t.Slot > latest.Slot) {
			latest = t
		}
	}
	copy := *latest
	return &copy, nil
}

// Aggregate returns buy/sell counts and SOL volumes for a mint.
func (s *TradeEventStore) Aggregate(_ context.Context, mint string) (*domain.TradeCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := &domain.TradeCounts{}
	for _, t := range s.data[mint] {
		if t.IsBuy {
			counts.Buys++
			counts.BuyVolume += t.SolAmount
		} else {
			counts.Sells++
			counts.SellVolume += t.SolAmount
		}
	}
	return counts, nil
}

// RecentHighImpactSells retrieves sells with impact above minImpact at or
// after since, newest first.
func (s *TradeEventStore) RecentHighImpactSells(_ context.Context, mint string, minImpact float64, since int64) ([]*domain.TradeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TradeEvent
	for _, t := range s.data[mint] {
		if t.IsBuy || t.PriceImpact <= minImpact || t.Timestamp < since {
			continue
		}
		copy := *t
		out = append(out, &copy)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp > out[j].Timestamp
		}
		return out[i].Slot > out[j].Slot
	})
	return out, nil
}
