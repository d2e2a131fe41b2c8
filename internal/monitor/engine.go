package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/notify"
	"pump-sentinel/internal/observability"
	"pump-sentinel/internal/storage"
)

// MetricsSource computes the current metrics snapshot for a mint.
type MetricsSource interface {
	TokenMetrics(ctx context.Context, mint string) (*domain.TokenMetrics, error)
}

// EngineConfig controls the monitoring cadence and phase durations.
type EngineConfig struct {
	TickInterval     time.Duration // cadence of both phases
	InitialDuration  time.Duration // qualification window after launch
	PositionDuration time.Duration // position cap after entry
}

// DefaultEngineConfig returns the shipped cadence: 10s ticks, 10 minute
// windows for both phases.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickInterval:     10 * time.Second,
		InitialDuration:  10 * time.Minute,
		PositionDuration: 10 * time.Minute,
	}
}

// tokenState is the engine-owned record of one monitored mint. All phase
// transitions go through the engine under its mutex.
type tokenState struct {
	phase      Phase
	handle     *Handle
	entryPrice float64
	startedAt  time.Time
	create     *domain.CreateEvent
}

// Engine drives the per-token monitoring state machine. Each tracked mint
// moves INITIAL -> ACTIVE -> done; signals fire as notifications.
type Engine struct {
	metrics  MetricsSource
	trades   storage.TradeEventStore
	sched    Scheduler
	notifier notify.Notifier
	entry    *EntryRules
	exit     *ExitRules
	cfg      EngineConfig

	mu     sync.Mutex
	tokens map[string]*tokenState

	now func() time.Time
}

// NewEngine wires an Engine from its collaborators.
func NewEngine(
	metrics MetricsSource,
	trades storage.TradeEventStore,
	sched Scheduler,
	notifier notify.Notifier,
	entry *EntryRules,
	exit *ExitRules,
	cfg EngineConfig,
) *Engine {
	return &Engine{
		metrics:  metrics,
		trades:   trades,
		sched:    sched,
		notifier: notifier,
		entry:    entry,
		exit:     exit,
		cfg:      cfg,
		tokens:   make(map[string]*tokenState),
		now:      time.Now,
	}
}

// OnCreate starts INITIAL monitoring for a newly launched token. A mint
// already being monitored is left alone.
func (e *Engine) OnCreate(ev *domain.CreateEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.tokens[ev.Mint]; ok {
		return nil
	}

	mint := ev.Mint
	handle, err := e.sched.Schedule(mint, PhaseInitial, e.jobOptions(e.cfg.InitialDuration), func(ctx context.Context) {
		e.initialTick(ctx, mint)
	})
	if err != nil {
		return fmt.Errorf("schedule initial monitoring: %w", err)
	}

	e.tokens[mint] = &tokenState{
		phase:     PhaseInitial,
		handle:    handle,
		startedAt: e.now(),
		create:    ev,
	}
	e.updateTrackedGauges()
	log.Info().Str("mint", mint).Str("symbol", ev.Symbol).Msg("initial monitoring started")
	return nil
}

// OnComplete stops monitoring a mint whose bonding curve completed.
func (e *Engine) OnComplete(mint string) {
	e.mu.Lock()
	st, ok := e.tokens[mint]
	if ok {
		delete(e.tokens, mint)
		e.updateTrackedGauges()
	}
	e.mu.Unlock()

	if ok {
		e.sched.Cancel(st.handle)
		log.Info().Str("mint", mint).Str("phase", string(st.phase)).Msg("monitoring stopped, curve completed")
	}
}

// Tracking reports whether a mint currently has an outstanding job.
func (e *Engine) Tracking(mint string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.tokens[mint]
	return ok
}

func (e *Engine) jobOptions(window time.Duration) Options {
	return Options{
		Every: e.cfg.TickInterval,
		Limit: int(window / e.cfg.TickInterval),
	}
}

func (e *Engine) initialTick(ctx context.Context, mint string) {
	st := e.state(mint, PhaseInitial)
	if st == nil {
		return
	}

	if e.now().Sub(st.startedAt) >= e.cfg.InitialDuration {
		e.drop(mint, st)
		log.Info().Str("mint", mint).Msg("qualification window elapsed, dropping token")
		return
	}

	m, err := e.metrics.TokenMetrics(ctx, mint)
	if err != nil {
		log.Warn().Err(err).Str("mint", mint).Msg("entry metrics unavailable, skipping tick")
		return
	}

	result := e.entry.Evaluate(m)
	logChecks(mint, result)
	if !result.Qualified {
		return
	}

	e.enterPosition(ctx, mint, m)
}

// enterPosition cancels the INITIAL job and replaces it with an ACTIVE one,
// capturing the current price as the entry price.
func (e *Engine) enterPosition(ctx context.Context, mint string, m *domain.TokenMetrics) {
	e.mu.Lock()
	st, ok := e.tokens[mint]
	if !ok || st.phase != PhaseInitial {
		e.mu.Unlock()
		return
	}

	e.sched.Cancel(st.handle)
	handle, err := e.sched.Schedule(mint, PhaseActive, e.jobOptions(e.cfg.PositionDuration), func(ctx context.Context) {
		e.activeTick(ctx, mint)
	})
	if err != nil {
		delete(e.tokens, mint)
		e.updateTrackedGauges()
		e.mu.Unlock()
		log.Error().Err(err).Str("mint", mint).Msg("schedule position monitoring failed")
		return
	}

	st.phase = PhaseActive
	st.handle = handle
	st.entryPrice = m.CurrentPriceUSD
	st.startedAt = e.now()
	e.updateTrackedGauges()
	e.mu.Unlock()

	observability.RecordEntrySignal()
	log.Info().Str("mint", mint).Float64("entry_price", m.CurrentPriceUSD).Msg("entry conditions met")
	e.send(ctx, notify.Payload{
		Type:        notify.TypeEntrySignal,
		MintAddress: mint,
		Timestamp:   e.now().UnixMilli(),
		Data: map[string]string{
			"message":    "Entry conditions met - Consider entering position",
			"entryPrice": fmt.Sprintf("%g", m.CurrentPriceUSD),
			"creator":    m.Creator,
			"symbol":     m.TokenSymbol,
			"name":       m.TokenName,
		},
	})
}

func (e *Engine) activeTick(ctx context.Context, mint string) {
	st := e.state(mint, PhaseActive)
	if st == nil {
		return
	}

	if e.now().Sub(st.startedAt) >= e.cfg.PositionDuration {
		e.drop(mint, st)
		observability.RecordExitSignal(ExitDurationExceeded)
		e.send(ctx, notify.Payload{
			Type:        notify.TypeExitSignal,
			MintAddress: mint,
			Timestamp:   e.now().UnixMilli(),
			Data: map[string]string{
				"message": "Position monitoring duration exceeded - Consider closing position",
				"reason":  ExitDurationExceeded,
			},
		})
		return
	}

	m, err := e.metrics.TokenMetrics(ctx, mint)
	if err != nil {
		log.Warn().Err(err).Str("mint", mint).Msg("exit metrics unavailable, skipping tick")
		return
	}

	sells, err := e.trades.RecentHighImpactSells(ctx, mint, e.exit.cfg.SellImpactPct, st.startedAt.Unix())
	if err != nil {
		log.Warn().Err(err).Str("mint", mint).Msg("high impact sell lookup failed, skipping tick")
		return
	}

	d := e.exit.Evaluate(m, st.entryPrice, len(sells) > 0)
	log.Debug().
		Str("mint", mint).
		Float64("price_change_pct", d.PriceChangePct).
		Bool("high_impact_sell", d.HighImpactSell).
		Bool("exit", d.Exit).
		Msg("exit condition check")
	if !d.Exit {
		return
	}

	e.drop(mint, st)
	observability.RecordExitSignal(d.Reason)
	e.send(ctx, notify.Payload{
		Type:        notify.TypeExitSignal,
		MintAddress: mint,
		Timestamp:   e.now().UnixMilli(),
		Data: map[string]string{
			"message":            "Exit signal triggered: " + d.Reason,
			"reason":             d.Reason,
			"exitPrice":          fmt.Sprintf("%g", m.CurrentPriceUSD),
			"priceChangePercent": fmt.Sprintf("%.2f", d.PriceChangePct),
			"symbol":             m.TokenSymbol,
			"name":               m.TokenName,
		},
	})
}

// state returns the engine record for a mint if it is in the expected phase.
func (e *Engine) state(mint string, phase Phase) *tokenState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.tokens[mint]
	if !ok || st.phase != phase {
		return nil
	}
	return st
}

// drop cancels a mint's job and forgets it.
func (e *Engine) drop(mint string, st *tokenState) {
	e.mu.Lock()
	if cur, ok := e.tokens[mint]; ok && cur == st {
		delete(e.tokens, mint)
		e.updateTrackedGauges()
	}
	e.mu.Unlock()
	e.sched.Cancel(st.handle)
}

// updateTrackedGauges refreshes the per-phase token gauges. Callers hold mu.
func (e *Engine) updateTrackedGauges() {
	var initial, active int
	for _, st := range e.tokens {
		if st.phase == PhaseInitial {
			initial++
		} else {
			active++
		}
	}
	observability.SetTokensTracked(string(PhaseInitial), initial)
	observability.SetTokensTracked(string(PhaseActive), active)
}

// send delivers a notification best-effort. Failures are logged, never
// propagated to the monitoring loop.
func (e *Engine) send(ctx context.Context, p notify.Payload) {
	if err := e.notifier.Notify(ctx, p); err != nil {
		log.Warn().Err(err).Str("type", string(p.Type)).Str("mint", p.MintAddress).Msg("notification failed")
		return
	}
	observability.RecordNotification(string(p.Type))
}

func logChecks(mint string, result EntryResult) {
	ev := log.Debug().Str("mint", mint).Bool("qualified", result.Qualified)
	for _, c := range result.Checks {
		ev = ev.Bool(c.Name, c.Pass)
	}
	ev.Msg("entry conditions check")
}
