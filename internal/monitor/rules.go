package monitor

import (
	"fmt"

	"pump-sentinel/internal/domain"
)

// Entry check names. Gating is configured by name so operators can tune
// which checks actually block entry without code changes.
const (
	CheckMinBuys            = "min_buys"
	CheckBuySellCountRatio  = "buy_sell_count_ratio"
	CheckBuySellVolumeRatio = "buy_sell_volume_ratio"
	CheckMarketCapBand      = "market_cap_band"
	CheckMinVolume          = "min_volume"
	CheckTokenAge           = "token_age"
	CheckHolderSpread       = "holder_concentration"
	CheckHolderPlausibility = "holder_count_plausibility"
)

// DefaultEntryGates is the shipped gate set: only buy count and buy/sell
// count ratio block entry, the rest are advisory.
var DefaultEntryGates = []string{CheckMinBuys, CheckBuySellCountRatio}

// EntryConfig holds the entry rule thresholds.
type EntryConfig struct {
	MinBuys          int64   // minimum observed buys
	MinCountRatio    float64 // buys per sell
	MinVolumeRatio   float64 // buy volume per sell volume
	MarketCapMinUSD  float64
	MarketCapMaxUSD  float64
	MinVolumeUSD     float64
	MaxAgeSeconds    int64   // token must be younger than this
	MaxTopHoldersPct float64 // combined top-holder share ceiling
	AvgPositionUSD   float64 // assumed healthy position size
	Gates            []string
}

// DefaultEntryConfig returns the shipped thresholds.
func DefaultEntryConfig() EntryConfig {
	return EntryConfig{
		MinBuys:          10,
		MinCountRatio:    3,
		MinVolumeRatio:   3,
		MarketCapMinUSD:  6000,
		MarketCapMaxUSD:  8000,
		MinVolumeUSD:     3000,
		MaxAgeSeconds:    300,
		MaxTopHoldersPct: 20,
		AvgPositionUSD:   10,
		Gates:            DefaultEntryGates,
	}
}

// Check is one evaluated entry predicate.
type Check struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
	Gated     bool // only gated checks block entry
}

// EntryResult is the outcome of one entry evaluation.
type EntryResult struct {
	Checks    []Check
	Qualified bool // all gated checks passed
}

// EntryRules evaluates launch metrics against the entry thresholds.
type EntryRules struct {
	cfg   EntryConfig
	gates map[string]bool
}

// NewEntryRules builds entry rules from config. An empty gate list falls
// back to DefaultEntryGates.
func NewEntryRules(cfg EntryConfig) *EntryRules {
	gates := cfg.Gates
	if len(gates) == 0 {
		gates = DefaultEntryGates
	}
	gateSet := make(map[string]bool, len(gates))
	for _, g := range gates {
		gateSet[g] = true
	}
	return &EntryRules{cfg: cfg, gates: gateSet}
}

// Evaluate computes all entry checks for a metrics snapshot.
func (r *EntryRules) Evaluate(m *domain.TokenMetrics) EntryResult {
	cfg := r.cfg
	checks := make([]Check, 0, 8)

	checks = append(checks, Check{
		Name:      CheckMinBuys,
		Threshold: fmt.Sprintf(">= %d", cfg.MinBuys),
		Actual:    fmt.Sprintf("%d", m.Counts.Buys),
		Pass:      m.Counts.Buys >= cfg.MinBuys,
	})

	// With zero sells the buy count stands in for the ratio.
	countRatio := float64(m.Counts.Buys)
	if m.Counts.Sells > 0 {
		countRatio = float64(m.Counts.Buys) / float64(m.Counts.Sells)
	}
	checks = append(checks, Check{
		Name:      CheckBuySellCountRatio,
		Threshold: fmt.Sprintf(">= %.1f", cfg.MinCountRatio),
		Actual:    fmt.Sprintf("%.2f", countRatio),
		Pass:      countRatio >= cfg.MinCountRatio,
	})

	volumeRatio := m.Counts.BuyVolume
	if m.Counts.SellVolume > 0 {
		volumeRatio = m.Counts.BuyVolume / m.Counts.SellVolume
	}
	checks = append(checks, Check{
		Name:      CheckBuySellVolumeRatio,
		Threshold: fmt.Sprintf(">= %.1f", cfg.MinVolumeRatio),
		Actual:    fmt.Sprintf("%.2f", volumeRatio),
		Pass:      volumeRatio >= cfg.MinVolumeRatio,
	})

	checks = append(checks, Check{
		Name:      CheckMarketCapBand,
		Threshold: fmt.Sprintf("%.0f..%.0f USD", cfg.MarketCapMinUSD, cfg.MarketCapMaxUSD),
		Actual:    fmt.Sprintf("%.2f", m.MarketCapUSD),
		Pass:      m.MarketCapUSD >= cfg.MarketCapMinUSD && m.MarketCapUSD <= cfg.MarketCapMaxUSD,
	})

	checks = append(checks, Check{
		Name:      CheckMinVolume,
		Threshold: fmt.Sprintf(">= %.0f USD", cfg.MinVolumeUSD),
		Actual:    fmt.Sprintf("%.2f", m.VolumeUSD),
		Pass:      m.VolumeUSD >= cfg.MinVolumeUSD,
	})

	checks = append(checks, Check{
		Name:      CheckTokenAge,
		Threshold: fmt.Sprintf("<= %ds", cfg.MaxAgeSeconds),
		Actual:    fmt.Sprintf("%ds", m.AgeSeconds),
		Pass:      m.AgeSeconds <= cfg.MaxAgeSeconds,
	})

	var topPct float64
	for _, h := range m.TopHolders {
		topPct += h.Percentage
	}
	checks = append(checks, Check{
		Name:      CheckHolderSpread,
		Threshold: fmt.Sprintf("<= %.0f%%", cfg.MaxTopHoldersPct),
		Actual:    fmt.Sprintf("%.2f%%", topPct),
		Pass:      topPct <= cfg.MaxTopHoldersPct,
	})

	expectedHolders := int64(0)
	if cfg.AvgPositionUSD > 0 {
		expectedHolders = int64(m.VolumeUSD / cfg.AvgPositionUSD)
	}
	checks = append(checks, Check{
		Name:      CheckHolderPlausibility,
		Threshold: fmt.Sprintf(">= %d holders", expectedHolders),
		Actual:    fmt.Sprintf("%d", m.TotalHolders),
		Pass:      m.TotalHolders >= expectedHolders,
	})

	qualified := true
	for i := range checks {
		checks[i].Gated = r.gates[checks[i].Name]
		if checks[i].Gated && !checks[i].Pass {
			qualified = false
		}
	}
	return EntryResult{Checks: checks, Qualified: qualified}
}

// Exit reasons, used to tag EXIT_SIGNAL notifications.
const (
	ExitProfitTarget     = "profit target reached"
	ExitStopLoss         = "stop loss triggered"
	ExitLargeSell        = "large sell detected"
	ExitSellPressure     = "sell count exceeds buys"
	ExitCreatorHolding   = "creator holding too high"
	ExitVolumeCollapsed  = "volume collapsed"
	ExitDurationExceeded = "duration exceeded"
)

// ExitConfig holds the exit rule thresholds.
type ExitConfig struct {
	ProfitTargetPct float64 // price change vs entry that takes profit
	StopLossPct     float64 // price change vs entry that cuts losses (negative)
	SellImpactPct   float64 // single-sell price impact that forces exit
	SellBuySkew     float64 // sells > skew * buys forces exit
	MaxCreatorPct   float64 // creator holding ceiling
	MinVolumeUSD    float64 // volume floor, below means the token is dead
}

// DefaultExitConfig returns the shipped thresholds.
func DefaultExitConfig() ExitConfig {
	return ExitConfig{
		ProfitTargetPct: 45,
		StopLossPct:     -20,
		SellImpactPct:   5,
		SellBuySkew:     1.5,
		MaxCreatorPct:   80,
		MinVolumeUSD:    0.05,
	}
}

// ExitRules evaluates position metrics against the exit thresholds.
type ExitRules struct {
	cfg ExitConfig
}

// NewExitRules builds exit rules from config.
func NewExitRules(cfg ExitConfig) *ExitRules {
	return &ExitRules{cfg: cfg}
}

// ExitDecision is the outcome of one exit evaluation. Reason is empty when
// Exit is false.
type ExitDecision struct {
	Exit           bool
	Reason         string
	PriceChangePct float64
	HighImpactSell bool
}

// Evaluate checks the exit rules in priority order. highImpactSell reports
// whether a recent sell exceeded the impact threshold, checked by the caller
// against the trade store.
func (r *ExitRules) Evaluate(m *domain.TokenMetrics, entryPrice float64, highImpactSell bool) ExitDecision {
	d := ExitDecision{HighImpactSell: highImpactSell}
	if entryPrice > 0 {
		d.PriceChangePct = (m.CurrentPriceUSD - entryPrice) / entryPrice * 100
	}

	switch {
	case entryPrice > 0 && d.PriceChangePct >= r.cfg.ProfitTargetPct:
		d.Exit, d.Reason = true, ExitProfitTarget
	case entryPrice > 0 && d.PriceChangePct <= r.cfg.StopLossPct:
		d.Exit, d.Reason = true, ExitStopLoss
	case highImpactSell:
		d.Exit, d.Reason = true, ExitLargeSell
	case float64(m.Counts.Sells) > r.cfg.SellBuySkew*float64(m.Counts.Buys):
		d.Exit, d.Reason = true, ExitSellPressure
	case m.CreatorHoldingPct > r.cfg.MaxCreatorPct:
		d.Exit, d.Reason = true, ExitCreatorHolding
	case m.VolumeUSD < r.cfg.MinVolumeUSD:
		d.Exit, d.Reason = true, ExitVolumeCollapsed
	}
	return d
}
