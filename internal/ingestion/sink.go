package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/storage"
)

// Monitor is the slice of the monitoring engine the pipeline drives.
type Monitor interface {
	OnCreate(ev *domain.CreateEvent) error
	OnComplete(mint string)
}

// EventSink applies decoded events: persistence plus monitoring hooks. Both
// ingestion paths funnel through it.
type EventSink struct {
	creates storage.CreateEventStore
	trades  storage.TradeEventStore
	holders storage.HolderStore
	monitor Monitor
}

// NewEventSink wires an EventSink.
func NewEventSink(
	creates storage.CreateEventStore,
	trades storage.TradeEventStore,
	holders storage.HolderStore,
	monitor Monitor,
) *EventSink {
	return &EventSink{
		creates: creates,
		trades:  trades,
		holders: holders,
		monitor: monitor,
	}
}

// ApplyCreate stores a launch and starts INITIAL monitoring. A mint seen
// before (both delivery paths can carry the same transaction) is a no-op.
func (s *EventSink) ApplyCreate(ctx context.Context, ev *domain.CreateEvent) error {
	if err := s.creates.Insert(ctx, ev); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil
		}
		return fmt.Errorf("store create event: %w", err)
	}

	log.Info().Str("mint", ev.Mint).Str("symbol", ev.Symbol).Str("creator", ev.Creator).Msg("token launched")
	if err := s.monitor.OnCreate(ev); err != nil {
		return fmt.Errorf("start monitoring %s: %w", ev.Mint, err)
	}
	return nil
}

// ApplyTrade stores a trade and adjusts the trader's holder balance by the
// signed token amount.
func (s *EventSink) ApplyTrade(ctx context.Context, t *domain.TradeEvent) error {
	if err := s.trades.Insert(ctx, t); err != nil {
		return fmt.Errorf("store trade event: %w", err)
	}

	delta := t.TokenAmount
	if !t.IsBuy {
		delta = -delta
	}
	if err := s.holders.UpsertBalance(ctx, t.Mint, t.Trader, delta, t.Timestamp); err != nil {
		return fmt.Errorf("upsert holder balance: %w", err)
	}
	return nil
}

// ApplyComplete stops monitoring a graduated token.
func (s *EventSink) ApplyComplete(_ context.Context, ev *domain.CompleteEvent) error {
	log.Info().Str("mint", ev.Mint).Msg("bonding curve completed")
	s.monitor.OnComplete(ev.Mint)
	return nil
}
