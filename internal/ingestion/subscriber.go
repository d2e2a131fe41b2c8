package ingestion

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"pump-sentinel/internal/decoder"
	"pump-sentinel/internal/kv"
	"pump-sentinel/internal/notify"
	"pump-sentinel/internal/observability"
	"pump-sentinel/internal/pool"
	"pump-sentinel/internal/solana"
)

// StatusKey is the key-value slot mirroring the subscription state. External
// supervision reads it, and startup uses it for crash recovery.
const StatusKey = "monitoring:status"

// MonitoringStatus is the persisted subscription state.
type MonitoringStatus struct {
	IsMonitoring   bool   `json:"isMonitoring"`
	SubscriptionID *int64 `json:"subscriptionId"`
	LastUpdated    int64  `json:"lastUpdated"` // Unix milliseconds
}

// WSDialer opens a WebSocket client against one endpoint.
type WSDialer func(ctx context.Context, wsURL string) (solana.WSClient, error)

// SubscriberOptions configures a Subscriber.
type SubscriberOptions struct {
	Pool       *pool.Pool
	Dial       WSDialer
	Sink       *EventSink
	Normalizer *Normalizer
	Status     kv.Store
	Notifier   notify.Notifier
	ProgramID  string

	// LimitCheckInterval is how often the active endpoint's rate headroom
	// is probed. Default 5s.
	LimitCheckInterval time.Duration
	// MaxRestartAttempts bounds the restart-monitoring recovery path.
	// Default 5.
	MaxRestartAttempts int
	// RestartBackoff is the pause between recovery attempts. Default 2s.
	RestartBackoff time.Duration
}

// Subscriber runs the live ingestion path: one log subscription on the
// tracked program, consumed by a single worker loop. On subscription error
// or a near-exhausted endpoint it tears down, rotates to the next healthy
// endpoint, and resubscribes.
type Subscriber struct {
	pool       *pool.Pool
	dial       WSDialer
	sink       *EventSink
	normalizer *Normalizer
	status     kv.Store
	notifier   notify.Notifier
	programID  string

	limitCheckInterval time.Duration
	maxRestartAttempts int
	restartBackoff     time.Duration

	mu         sync.Mutex
	running    bool
	ws         solana.WSClient
	sub        *solana.LogsSubscription
	endpointID string
	cancel     context.CancelFunc
	wg         sync.WaitGroup

	now func() time.Time
}

// NewSubscriber creates a Subscriber.
func NewSubscriber(opts SubscriberOptions) *Subscriber {
	limitCheck := opts.LimitCheckInterval
	if limitCheck <= 0 {
		limitCheck = 5 * time.Second
	}
	attempts := opts.MaxRestartAttempts
	if attempts <= 0 {
		attempts = 5
	}
	backoff := opts.RestartBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	return &Subscriber{
		pool:               opts.Pool,
		dial:               opts.Dial,
		sink:               opts.Sink,
		normalizer:         opts.Normalizer,
		status:             opts.Status,
		notifier:           opts.Notifier,
		programID:          opts.ProgramID,
		limitCheckInterval: limitCheck,
		maxRestartAttempts: attempts,
		restartBackoff:     backoff,
		now:                time.Now,
	}
}

// Start opens the subscription and launches the worker loop. Returns false
// without error when already running.
func (s *Subscriber) Start(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false, nil
	}

	ws, sub, epID, err := s.subscribe(ctx)
	if err != nil {
		return false, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.ws = ws
	s.sub = sub
	s.endpointID = epID
	s.cancel = cancel

	s.writeStatus(ctx, true, &sub.ID)
	observability.SetSubscriptionActive(true)
	s.notifyLifecycle(ctx, notify.TypeMonitoringStarted, map[string]string{"endpoint": epID})
	log.Info().Str("endpoint", epID).Int64("subscription", sub.ID).Msg("monitoring started")

	s.wg.Add(1)
	go s.run(runCtx, ws, sub, epID)
	return true, nil
}

// Stop cancels the subscription. Returns false when there is no live
// subscription to stop, mirroring the persisted state.
func (s *Subscriber) Stop(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, found, err := s.readStatus(ctx)
	if err != nil {
		return false, err
	}
	if !found || st.SubscriptionID == nil {
		return false, nil
	}

	// Cancel the worker before touching the socket so the connection-loss
	// path cannot mistake shutdown for a failure and resubscribe.
	if s.cancel != nil {
		s.cancel()
	}
	if s.ws != nil {
		if err := s.ws.UnsubscribeLogs(ctx, *st.SubscriptionID); err != nil {
			log.Warn().Err(err).Msg("unsubscribe failed during stop")
		}
		s.ws.Close()
	}
	s.running = false
	s.ws = nil
	s.sub = nil

	s.writeStatus(ctx, false, nil)
	observability.SetSubscriptionActive(false)
	s.notifyLifecycle(ctx, notify.TypeMonitoringStopped, nil)
	log.Info().Msg("monitoring stopped")
	return true, nil
}

// notifyLifecycle emits a best-effort start/stop notification.
func (s *Subscriber) notifyLifecycle(ctx context.Context, t notify.Type, data map[string]string) {
	if err := s.notifier.Notify(ctx, notify.Payload{
		Type:        t,
		MintAddress: "SYSTEM",
		Timestamp:   s.now().UnixMilli(),
		Data:        data,
	}); err != nil {
		log.Warn().Err(err).Str("type", string(t)).Msg("lifecycle notification failed")
	}
}

// Status reports the persisted subscription state, falling back to the
// in-process flag when nothing is stored yet.
func (s *Subscriber) Status(ctx context.Context) (MonitoringStatus, error) {
	st, found, err := s.readStatus(ctx)
	if err != nil {
		return MonitoringStatus{}, err
	}
	if !found {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		return MonitoringStatus{IsMonitoring: running}, nil
	}
	return st, nil
}

// Resume inspects the persisted state on startup. A stored running flag with
// no subscription handle means the previous process died mid-subscription;
// exactly one new subscribe call recovers it.
func (s *Subscriber) Resume(ctx context.Context) (bool, error) {
	st, found, err := s.readStatus(ctx)
	if err != nil {
		return false, err
	}
	if !found || !st.IsMonitoring || st.SubscriptionID != nil {
		return false, nil
	}

	log.Info().Msg("stale monitoring state found, restarting subscription")
	return s.Start(ctx)
}

// Close stops the worker loop and waits for it to exit.
func (s *Subscriber) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.ws != nil {
		s.ws.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// subscribe picks the next healthy endpoint and opens a log subscription on
// the tracked program.
func (s *Subscriber) subscribe(ctx context.Context) (solana.WSClient, *solana.LogsSubscription, string, error) {
	ep, err := s.pool.NextHealthy()
	if err != nil {
		return nil, nil, "", err
	}
	s.pool.RecordRequest(ep.ID)

	ws, err := s.dial(ctx, ep.WSURL)
	if err != nil {
		s.pool.MarkError(ep.ID)
		return nil, nil, "", err
	}

	sub, err := ws.SubscribeLogs(ctx, solana.LogsFilter{Mentions: []string{s.programID}})
	if err != nil {
		ws.Close()
		s.pool.MarkError(ep.ID)
		return nil, nil, "", err
	}
	return ws, sub, ep.ID, nil
}

func (s *Subscriber) run(ctx context.Context, ws solana.WSClient, sub *solana.LogsSubscription, epID string) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.limitCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case notif, ok := <-sub.C:
			if !ok {
				// Connection died under us.
				s.pool.MarkError(epID)
				observability.RecordSubscriptionRestart("connection_lost")
				ws, sub, epID, ok = s.restart(ctx)
				if !ok {
					return
				}
				continue
			}
			s.handle(ctx, notif)

		case <-ws.Done():
			s.pool.MarkError(epID)
			observability.RecordSubscriptionRestart("connection_lost")
			var ok bool
			ws, sub, epID, ok = s.restart(ctx)
			if !ok {
				return
			}

		case <-ticker.C:
			if !s.pool.IsNearLimit(epID) {
				continue
			}
			// Rotate away before the endpoint hits its ceiling.
			log.Info().Str("endpoint", epID).Msg("endpoint near rate limit, rotating subscription")
			ws.UnsubscribeLogs(ctx, sub.ID)
			ws.Close()
			observability.RecordSubscriptionRestart("rate_limit")
			var ok bool
			ws, sub, epID, ok = s.restart(ctx)
			if !ok {
				return
			}
		}
	}
}

// restart is the restart-monitoring recovery path: resubscribe through the
// next healthy endpoint, retrying with backoff. Exhausting all attempts
// surfaces the failure to the status store and stops the loop.
func (s *Subscriber) restart(ctx context.Context) (solana.WSClient, *solana.LogsSubscription, string, bool) {
	for attempt := 1; attempt <= s.maxRestartAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, nil, "", false
		}
		ws, sub, epID, err := s.subscribe(ctx)
		if err == nil {
			s.mu.Lock()
			s.ws = ws
			s.sub = sub
			s.endpointID = epID
			s.mu.Unlock()

			s.writeStatus(ctx, true, &sub.ID)
			log.Info().Str("endpoint", epID).Int64("subscription", sub.ID).Int("attempt", attempt).Msg("subscription restarted")
			return ws, sub, epID, true
		}

		log.Warn().Err(err).Int("attempt", attempt).Msg("subscription restart failed")
		select {
		case <-ctx.Done():
			return nil, nil, "", false
		case <-time.After(s.restartBackoff):
		}
	}

	s.mu.Lock()
	s.running = false
	s.ws = nil
	s.sub = nil
	s.mu.Unlock()

	s.writeStatus(ctx, false, nil)
	observability.SetSubscriptionActive(false)
	if err := s.notifier.Notify(ctx, notify.Payload{
		Type:        notify.TypeMonitoringDegraded,
		MintAddress: "SYSTEM",
		Timestamp:   s.now().UnixMilli(),
		Data:        map[string]string{"message": "Subscription recovery failed, monitoring is down"},
	}); err != nil {
		log.Warn().Err(err).Msg("degraded notification failed")
	}
	log.Error().Msg("subscription recovery exhausted, monitoring stopped")
	return nil, nil, "", false
}

// handle decodes one notification and applies its event. Failed transactions
// and foreign events are skipped.
func (s *Subscriber) handle(ctx context.Context, notif solana.LogNotification) {
	if notif.Err != nil {
		return
	}

	raw, ok := decoder.EventFromLogs(notif.Logs)
	if !ok {
		return
	}

	var eventType string
	var err error
	switch {
	case raw.Create != nil:
		eventType = "create"
		err = s.sink.ApplyCreate(ctx, CreateEvent(raw.Create, notif.Signature, notif.Slot, s.now().Unix()))
	case raw.Trade != nil:
		eventType = "trade"
		err = s.sink.ApplyTrade(ctx, s.normalizer.TradeEvent(ctx, raw.Trade, notif.Signature, notif.Slot))
	case raw.Complete != nil:
		eventType = "complete"
		err = s.sink.ApplyComplete(ctx, CompleteEvent(raw.Complete))
	}
	if err != nil {
		observability.RecordEventError(eventType, "apply")
		log.Error().Err(err).Str("signature", notif.Signature).Msg("event processing failed")
		return
	}
	observability.RecordEventProcessed(eventType, "live")
}

func (s *Subscriber) readStatus(ctx context.Context) (MonitoringStatus, bool, error) {
	value, found, err := s.status.Get(ctx, StatusKey)
	if err != nil || !found {
		return MonitoringStatus{}, false, err
	}

	var st MonitoringStatus
	if err := json.Unmarshal([]byte(value), &st); err != nil {
		return MonitoringStatus{}, false, err
	}
	return st, true, nil
}

func (s *Subscriber) writeStatus(ctx context.Context, running bool, subID *int64) {
	st := MonitoringStatus{
		IsMonitoring:   running,
		SubscriptionID: subID,
		LastUpdated:    s.now().UnixMilli(),
	}
	payload, err := json.Marshal(st)
	if err == nil {
		err = s.status.Set(ctx, StatusKey, string(payload), 0)
	}
	if err != nil {
		log.Warn().Err(err).Msg("status write failed")
	}
}
