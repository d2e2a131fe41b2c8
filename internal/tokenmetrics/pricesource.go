package tokenmetrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"pump-sentinel/internal/kv"
)

const (
	// coingeckoURL returns the spot SOL/USD price.
	coingeckoURL = "https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"

	// solPriceKey is the cache key for the SOL/USD price.
	solPriceKey = "sol_price"

	// solPriceTTL bounds how stale a cached price may be.
	solPriceTTL = 30 * time.Minute

	// fallbackSolPrice is used when both the cache and the upstream API fail.
	fallbackSolPrice = 243.0
)

// PriceSource resolves the current SOL/USD price.
type PriceSource interface {
	SolPriceUSD(ctx context.Context) float64
}

// CoingeckoPriceSource fetches the SOL price from Coingecko and caches it in
// the key-value store. Lookups never fail: on any error the last cached value
// or the fallback constant is returned.
type CoingeckoPriceSource struct {
	cache  kv.Store
	client *http.Client
	url    string
}

// NewCoingeckoPriceSource creates a price source backed by cache.
func NewCoingeckoPriceSource(cache kv.Store) *CoingeckoPriceSource {
	return &CoingeckoPriceSource{
		cache:  cache,
		client: &http.Client{Timeout: 10 * time.Second},
		url:    coingeckoURL,
	}
}

// SolPriceUSD returns the cached SOL/USD price, refreshing from Coingecko
// when the cache is cold or expired.
func (s *CoingeckoPriceSource) SolPriceUSD(ctx context.Context) float64 {
	if cached, ok, err := s.cache.Get(ctx, solPriceKey); err == nil && ok {
		if price, err := strconv.ParseFloat(cached, 64); err == nil && price > 0 {
			return price
		}
	}

	price, err := s.fetch(ctx)
	if err != nil {
		log.Warn().Err(err).Float64("fallback", fallbackSolPrice).Msg("sol price fetch failed")
		return fallbackSolPrice
	}

	if err := s.cache.Set(ctx, solPriceKey, strconv.FormatFloat(price, 'f', -1, 64), solPriceTTL); err != nil {
		log.Warn().Err(err).Msg("sol price cache write failed")
	}
	return price
}

func (s *CoingeckoPriceSource) fetch(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var body struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode coingecko response: %w", err)
	}
	if body.Solana.USD <= 0 {
		return 0, fmt.Errorf("coingecko returned non-positive price %f", body.Solana.USD)
	}
	return body.Solana.USD, nil
}

// StaticPriceSource returns a fixed price. Used in tests and replay runs.
type StaticPriceSource float64

// SolPriceUSD implements PriceSource.
func (p StaticPriceSource) SolPriceUSD(context.Context) float64 { return float64(p) }
