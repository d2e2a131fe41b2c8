package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pump-sentinel/internal/config"
	"pump-sentinel/internal/ingestion"
	"pump-sentinel/internal/kv"
	"pump-sentinel/internal/monitor"
	"pump-sentinel/internal/notify"
	"pump-sentinel/internal/observability"
	"pump-sentinel/internal/pool"
	"pump-sentinel/internal/solana"
	"pump-sentinel/internal/storage"
	"pump-sentinel/internal/storage/clickhouse"
	"pump-sentinel/internal/storage/memory"
	"pump-sentinel/internal/storage/migrations"
	pgstore "pump-sentinel/internal/storage/postgres"
	"pump-sentinel/internal/tokenmetrics"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration failed")
	}
	setLogLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Metrics server.
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	// Endpoint pool and RPC client.
	endpoints := pool.New(cfg.Endpoints)
	client := solana.NewPooledClient(endpoints)

	// Stores.
	creates, holders, closePG, err := openPostgresStores(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres setup failed")
	}
	defer closePG()

	trades, closeCH, err := openClickhouseStore(ctx, cfg.ClickHouseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("clickhouse setup failed")
	}
	defer closeCH()

	status, closeKV, err := openStatusStore(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis setup failed")
	}
	defer closeKV()

	var notifier notify.Notifier = notify.NewLogger()
	if cfg.SlackWebhookURL != "" {
		notifier = notify.NewSlack(cfg.SlackWebhookURL)
	}

	// Monitoring engine.
	price := tokenmetrics.NewCoingeckoPriceSource(status)
	aggregator := tokenmetrics.NewAggregator(creates, trades, holders, client, price)
	sched := monitor.NewTickerScheduler()
	defer sched.Close()
	engine := monitor.NewEngine(
		aggregator,
		trades,
		sched,
		notifier,
		monitor.NewEntryRules(cfg.Entry),
		monitor.NewExitRules(cfg.Exit),
		cfg.Engine,
	)

	// Live ingestion path.
	sink := ingestion.NewEventSink(creates, trades, holders, engine)
	normalizer := ingestion.NewNormalizer(client)
	subscriber := ingestion.NewSubscriber(ingestion.SubscriberOptions{
		Pool:       endpoints,
		Dial:       dialWS,
		Sink:       sink,
		Normalizer: normalizer,
		Status:     status,
		Notifier:   notifier,
		ProgramID:  cfg.ProgramID,
	})
	defer subscriber.Close()

	resumed, err := subscriber.Resume(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("resume failed")
	}
	if !resumed {
		if _, err := subscriber.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("subscription failed")
		}
	}

	waitForShutdown(cancel)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if _, err := subscriber.Stop(stopCtx); err != nil {
		log.Warn().Err(err).Msg("subscription stop failed")
	}
	log.Info().Msg("shutdown complete")
}

func setLogLevel(level string) {
	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// dialWS opens a WebSocket connection against one endpoint.
func dialWS(ctx context.Context, wsURL string) (solana.WSClient, error) {
	return solana.DialWS(ctx, wsURL, nil)
}

// openPostgresStores connects launch and holder storage, falling back to
// memory when no DSN is configured.
func openPostgresStores(ctx context.Context, dsn string) (storage.CreateEventStore, storage.HolderStore, func(), error) {
	if dsn == "" {
		log.Warn().Msg("no postgres dsn, launches and holders are in-memory")
		return memory.NewCreateEventStore(), memory.NewHolderStore(), func() {}, nil
	}

	pg, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pg.Pool); err != nil {
		pg.Close()
		return nil, nil, nil, err
	}
	return pgstore.NewCreateEventStore(pg), pgstore.NewHolderStore(pg), pg.Close, nil
}

// openClickhouseStore connects trade storage, falling back to memory when no
// DSN is configured.
func openClickhouseStore(ctx context.Context, dsn string) (storage.TradeEventStore, func(), error) {
	if dsn == "" {
		log.Warn().Msg("no clickhouse dsn, trades are in-memory")
		return memory.NewTradeEventStore(), func() {}, nil
	}

	conn, err := clickhouse.NewConn(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunClickhouseMigrations(ctx, conn.Conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return clickhouse.NewTradeEventStore(conn), func() { conn.Close() }, nil
}

// openStatusStore connects the key-value status store, falling back to
// memory when no Redis address is configured. Without Redis the monitoring
// status does not survive restarts.
func openStatusStore(ctx context.Context, addr, password string) (kv.Store, func(), error) {
	if addr == "" {
		log.Warn().Msg("no redis addr, monitoring status is in-memory")
		return kv.NewMemory(), func() {}, nil
	}

	r, err := kv.NewRedis(ctx, addr, password)
	if err != nil {
		return nil, nil, err
	}
	return r, func() { r.Close() }, nil
}

// waitForShutdown blocks until the first termination signal. A second signal
// forces immediate exit.
func waitForShutdown(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")
	cancel()

	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("forcing immediate shutdown")
		os.Exit(1)
	}()
}
