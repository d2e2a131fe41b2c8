package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/notify"
	"pump-sentinel/internal/storage/memory"
)

const engineTestMint = "MintEngineAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

type fakeMetrics struct {
	mu sync.Mutex
	m  *domain.TokenMetrics
}

func (f *fakeMetrics) TokenMetrics(context.Context, string) (*domain.TokenMetrics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := *f.m
	return &snapshot, nil
}

func (f *fakeMetrics) set(m *domain.TokenMetrics) {
	f.mu.Lock()
	f.m = m
	f.mu.Unlock()
}

func (f *fakeMetrics) setPrice(p float64) {
	f.mu.Lock()
	f.m.CurrentPriceUSD = p
	f.mu.Unlock()
}

type engineFixture struct {
	engine   *Engine
	sched    *TickerScheduler
	metrics  *fakeMetrics
	trades   *memory.TradeEventStore
	notified *notify.Memory
}

func newEngineFixture(t *testing.T, m *domain.TokenMetrics) *engineFixture {
	t.Helper()
	f := &engineFixture{
		sched:    NewTickerScheduler(),
		metrics:  &fakeMetrics{m: m},
		trades:   memory.NewTradeEventStore(),
		notified: notify.NewMemory(),
	}
	t.Cleanup(f.sched.Close)

	cfg := EngineConfig{
		TickInterval:     5 * time.Millisecond,
		InitialDuration:  150 * time.Millisecond,
		PositionDuration: 150 * time.Millisecond,
	}
	f.engine = NewEngine(
		f.metrics, f.trades, f.sched, f.notified,
		NewEntryRules(DefaultEntryConfig()),
		NewExitRules(DefaultExitConfig()),
		cfg,
	)
	return f
}

func (f *engineFixture) createEvent() *domain.CreateEvent {
	return &domain.CreateEvent{
		Mint:      engineTestMint,
		Name:      "Test Token",
		Symbol:    "TST",
		Creator:   "CreatorWallet",
		Timestamp: time.Now().Unix(),
	}
}

// idleMetrics never qualifies: too few buys.
func idleMetrics() *domain.TokenMetrics {
	m := healthyMetrics()
	m.Counts.Buys = 2
	return m
}

func TestEngine_OnCreateStartsInitial(t *testing.T) {
	f := newEngineFixture(t, idleMetrics())

	if err := f.engine.OnCreate(f.createEvent()); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}
	if !f.engine.Tracking(engineTestMint) {
		t.Fatal("mint not tracked after OnCreate")
	}

	// A second create for the same mint is a no-op.
	if err := f.engine.OnCreate(f.createEvent()); err != nil {
		t.Fatalf("repeated OnCreate: %v", err)
	}

	// The INITIAL slot is occupied by exactly one job.
	_, err := f.sched.Schedule(engineTestMint, PhaseInitial, Options{Every: time.Hour}, func(context.Context) {})
	if err != ErrJobExists {
		t.Fatalf("initial slot error = %v, want ErrJobExists", err)
	}
}

func TestEngine_QualificationWindowElapses(t *testing.T) {
	f := newEngineFixture(t, idleMetrics())

	if err := f.engine.OnCreate(f.createEvent()); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return !f.engine.Tracking(engineTestMint) })
	if sent := f.notified.Sent(); len(sent) != 0 {
		t.Errorf("notifications for a token that never qualified: %+v", sent)
	}
}

func TestEngine_QualificationEntersPosition(t *testing.T) {
	f := newEngineFixture(t, healthyMetrics())

	if err := f.engine.OnCreate(f.createEvent()); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(f.notified.ByType(notify.TypeEntrySignal)) > 0
	})

	entries := f.notified.ByType(notify.TypeEntrySignal)
	if len(entries) != 1 {
		t.Fatalf("entry signals = %d, want 1", len(entries))
	}
	p := entries[0]
	if p.MintAddress != engineTestMint {
		t.Errorf("entry signal mint = %q", p.MintAddress)
	}
	if p.Data["entryPrice"] != "0.003" {
		t.Errorf("entry price = %q, want 0.003", p.Data["entryPrice"])
	}
	if p.Data["symbol"] != "" && p.Data["symbol"] != "TST" {
		t.Errorf("entry symbol = %q", p.Data["symbol"])
	}

	// INITIAL is gone, ACTIVE holds its slot: never both at once.
	h, err := f.sched.Schedule(engineTestMint, PhaseInitial, Options{Every: time.Hour}, func(context.Context) {})
	if err != nil {
		t.Fatalf("initial slot still occupied after entry: %v", err)
	}
	f.sched.Cancel(h)

	if _, err := f.sched.Schedule(engineTestMint, PhaseActive, Options{Every: time.Hour}, func(context.Context) {}); err != ErrJobExists {
		t.Fatalf("active slot error = %v, want ErrJobExists", err)
	}
}

func TestEngine_PositionCapExit(t *testing.T) {
	f := newEngineFixture(t, healthyMetrics())

	if err := f.engine.OnCreate(f.createEvent()); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(f.notified.ByType(notify.TypeExitSignal)) > 0
	})

	exits := f.notified.ByType(notify.TypeExitSignal)
	if len(exits) != 1 {
		t.Fatalf("exit signals = %d, want 1", len(exits))
	}
	if got := exits[0].Data["reason"]; got != ExitDurationExceeded {
		t.Errorf("exit reason = %q, want %q", got, ExitDurationExceeded)
	}
	if f.engine.Tracking(engineTestMint) {
		t.Error("mint still tracked after position cap exit")
	}

	// No further ticks fire.
	time.Sleep(50 * time.Millisecond)
	if n := len(f.notified.ByType(notify.TypeExitSignal)); n != 1 {
		t.Errorf("exit signals after settle = %d, want 1", n)
	}
}

func TestEngine_StopLossExit(t *testing.T) {
	f := newEngineFixture(t, healthyMetrics())

	if err := f.engine.OnCreate(f.createEvent()); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return len(f.notified.ByType(notify.TypeEntrySignal)) > 0
	})

	// Price drops 50% below entry.
	f.metrics.setPrice(0.0015)

	waitFor(t, 2*time.Second, func() bool {
		return len(f.notified.ByType(notify.TypeExitSignal)) > 0
	})
	exit := f.notified.ByType(notify.TypeExitSignal)[0]
	if got := exit.Data["reason"]; got != ExitStopLoss {
		t.Errorf("exit reason = %q, want %q", got, ExitStopLoss)
	}
	if f.engine.Tracking(engineTestMint) {
		t.Error("mint still tracked after stop loss")
	}
}

func TestEngine_HighImpactSellExit(t *testing.T) {
	f := newEngineFixture(t, healthyMetrics())

	if err := f.engine.OnCreate(f.createEvent()); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		return len(f.notified.ByType(notify.TypeEntrySignal)) > 0
	})

	err := f.trades.Insert(context.Background(), &domain.TradeEvent{
		Mint:        engineTestMint,
		SolAmount:   3,
		TokenAmount: 90000,
		IsBuy:       false,
		Trader:      "Whale",
		Timestamp:   time.Now().Unix() + 60,
		Slot:        100,
		PriceImpact: 8.5,
	})
	if err != nil {
		t.Fatalf("insert sell: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return len(f.notified.ByType(notify.TypeExitSignal)) > 0
	})
	exit := f.notified.ByType(notify.TypeExitSignal)[0]
	if got := exit.Data["reason"]; got != ExitLargeSell {
		t.Errorf("exit reason = %q, want %q", got, ExitLargeSell)
	}
}

func TestEngine_OnComplete(t *testing.T) {
	f := newEngineFixture(t, idleMetrics())

	if err := f.engine.OnCreate(f.createEvent()); err != nil {
		t.Fatalf("OnCreate: %v", err)
	}
	f.engine.OnComplete(engineTestMint)

	if f.engine.Tracking(engineTestMint) {
		t.Fatal("mint still tracked after OnComplete")
	}

	// The slot frees up once the job goroutine winds down.
	waitFor(t, time.Second, func() bool {
		h, err := f.sched.Schedule(engineTestMint, PhaseInitial, Options{Every: time.Hour}, func(context.Context) {})
		if err != nil {
			return false
		}
		f.sched.Cancel(h)
		return true
	})
}
