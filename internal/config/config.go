// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pump-sentinel/internal/monitor"
	"pump-sentinel/internal/pool"
)

// DefaultProgramID is the pump.fun bonding curve program.
const DefaultProgramID = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"

// Config is the full runtime configuration.
type Config struct {
	// Endpoints is the RPC provider pool.
	Endpoints []pool.Config
	// ProgramID is the on-chain program whose events are ingested.
	ProgramID string

	PostgresDSN   string
	ClickHouseDSN string
	RedisAddr     string
	RedisPassword string

	SlackWebhookURL string

	MetricsAddr string
	LogLevel    string

	Engine monitor.EngineConfig
	Entry  monitor.EntryConfig
	Exit   monitor.ExitConfig
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	endpoints, err := parseEndpoints(os.Getenv("RPC_ENDPOINTS"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Endpoints: endpoints,
		ProgramID: envString("PROGRAM_ID", DefaultProgramID),

		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		ClickHouseDSN: os.Getenv("CLICKHOUSE_DSN"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),

		MetricsAddr: envString("METRICS_ADDR", ":9090"),
		LogLevel:    strings.ToLower(os.Getenv("LOG_LEVEL")),

		Engine: monitor.DefaultEngineConfig(),
		Entry:  monitor.DefaultEntryConfig(),
		Exit:   monitor.DefaultExitConfig(),
	}

	if err := loadEngine(&cfg.Engine); err != nil {
		return nil, err
	}
	if err := loadEntry(&cfg.Entry); err != nil {
		return nil, err
	}
	if err := loadExit(&cfg.Exit); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseEndpoints reads a compact endpoint list:
// id|provider|httpURL|wsURL|rateLimit entries separated by commas.
func parseEndpoints(raw string) ([]pool.Config, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("RPC_ENDPOINTS is required")
	}

	var configs []pool.Config
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, "|")
		if len(fields) != 5 {
			return nil, fmt.Errorf("endpoint %q: want id|provider|httpURL|wsURL|rateLimit", entry)
		}
		rateLimit, err := strconv.Atoi(strings.TrimSpace(fields[4]))
		if err != nil || rateLimit <= 0 {
			return nil, fmt.Errorf("endpoint %q: invalid rate limit %q", entry, fields[4])
		}
		configs = append(configs, pool.Config{
			ID:        strings.TrimSpace(fields[0]),
			Provider:  strings.TrimSpace(fields[1]),
			HTTPURL:   strings.TrimSpace(fields[2]),
			WSURL:     strings.TrimSpace(fields[3]),
			RateLimit: rateLimit,
		})
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("RPC_ENDPOINTS is required")
	}
	return configs, nil
}

func loadEngine(cfg *monitor.EngineConfig) error {
	var err error
	if cfg.TickInterval, err = envDuration("MONITOR_TICK_INTERVAL", cfg.TickInterval); err != nil {
		return err
	}
	if cfg.InitialDuration, err = envDuration("MONITOR_INITIAL_DURATION", cfg.InitialDuration); err != nil {
		return err
	}
	if cfg.PositionDuration, err = envDuration("MONITOR_POSITION_DURATION", cfg.PositionDuration); err != nil {
		return err
	}
	return nil
}

func loadEntry(cfg *monitor.EntryConfig) error {
	var err error
	if cfg.MinBuys, err = envInt64("ENTRY_MIN_BUYS", cfg.MinBuys); err != nil {
		return err
	}
	if cfg.MinCountRatio, err = envFloat("ENTRY_MIN_COUNT_RATIO", cfg.MinCountRatio); err != nil {
		return err
	}
	if cfg.MinVolumeRatio, err = envFloat("ENTRY_MIN_VOLUME_RATIO", cfg.MinVolumeRatio); err != nil {
		return err
	}
	if cfg.MarketCapMinUSD, err = envFloat("ENTRY_MARKET_CAP_MIN_USD", cfg.MarketCapMinUSD); err != nil {
		return err
	}
	if cfg.MarketCapMaxUSD, err = envFloat("ENTRY_MARKET_CAP_MAX_USD", cfg.MarketCapMaxUSD); err != nil {
		return err
	}
	if cfg.MinVolumeUSD, err = envFloat("ENTRY_MIN_VOLUME_USD", cfg.MinVolumeUSD); err != nil {
		return err
	}
	if cfg.MaxAgeSeconds, err = envInt64("ENTRY_MAX_AGE_SECONDS", cfg.MaxAgeSeconds); err != nil {
		return err
	}
	if cfg.MaxTopHoldersPct, err = envFloat("ENTRY_MAX_TOP_HOLDERS_PCT", cfg.MaxTopHoldersPct); err != nil {
		return err
	}
	if gates := os.Getenv("ENTRY_GATES"); gates != "" {
		cfg.Gates = nil
		for _, g := range strings.Split(gates, ",") {
			if g = strings.TrimSpace(g); g != "" {
				cfg.Gates = append(cfg.Gates, g)
			}
		}
	}
	return nil
}

func loadExit(cfg *monitor.ExitConfig) error {
	var err error
	if cfg.ProfitTargetPct, err = envFloat("EXIT_PROFIT_TARGET_PCT", cfg.ProfitTargetPct); err != nil {
		return err
	}
	if cfg.StopLossPct, err = envFloat("EXIT_STOP_LOSS_PCT", cfg.StopLossPct); err != nil {
		return err
	}
	if cfg.SellImpactPct, err = envFloat("EXIT_SELL_IMPACT_PCT", cfg.SellImpactPct); err != nil {
		return err
	}
	if cfg.SellBuySkew, err = envFloat("EXIT_SELL_BUY_SKEW", cfg.SellBuySkew); err != nil {
		return err
	}
	if cfg.MaxCreatorPct, err = envFloat("EXIT_MAX_CREATOR_PCT", cfg.MaxCreatorPct); err != nil {
		return err
	}
	if cfg.MinVolumeUSD, err = envFloat("EXIT_MIN_VOLUME_USD", cfg.MinVolumeUSD); err != nil {
		return err
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
