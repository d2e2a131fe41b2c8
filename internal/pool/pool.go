// Package pool maintains the set of RPC provider endpoints, tracks their
// health and per-second rate budgets, and hands out the next usable endpoint
// in round-robin order. Providers differ by an order of magnitude in
// throughput, so each endpoint carries its own budget instead of sharing one.
package pool

import (
	"errors"
	"sync"
	"time"

	"pump-sentinel/internal/observability"
)

// requestWindow is the rolling window for rate accounting.
const requestWindow = time.Second

// DefaultCooldown is how long an exhausted endpoint stays out of rotation.
const DefaultCooldown = 60 * time.Second

// nearLimitFraction is the budget share beyond which callers should rotate
// proactively instead of running the window dry.
const nearLimitFraction = 0.8

// ErrNoHealthyEndpoint is returned when a full rotation finds no endpoint
// that is active and under budget. The pool never sleeps or retries itself;
// the caller decides how to back off.
var ErrNoHealthyEndpoint = errors.New("no healthy endpoints available")

// Status is the health state of one endpoint.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusCooling Status = "COOLING"
	StatusError   Status = "ERROR"
)

// Endpoint is one RPC provider connection. Rate state is owned by the pool;
// callers treat the struct as a read-only snapshot.
type Endpoint struct {
	ID       string
	Provider string
	HTTPURL  string
	WSURL    string

	RateLimit int           // requests per second
	Cooldown  time.Duration // time out of rotation after exhaustion

	status       Status
	requestCount int
	lastRequest  time.Time
}

// Status returns the endpoint's current health state.
func (e *Endpoint) Status() Status { return e.status }

// Config describes one endpoint to add to the pool.
type Config struct {
	ID        string
	Provider  string
	HTTPURL   string
	WSURL     string
	RateLimit int
	Cooldown  time.Duration
}

// Pool is a fixed set of endpoints with round-robin selection.
type Pool struct {
	mu        sync.Mutex
	endpoints []*Endpoint
	byID      map[string]*Endpoint
	current   int
	now       func() time.Time
	after     func(time.Duration, func()) // cooldown timer hook, swappable in tests
}

// New creates a pool from the given endpoint configs.
func New(configs []Config) *Pool {
	p := &Pool{
		byID:  make(map[string]*Endpoint, len(configs)),
		now:   time.Now,
		after: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
	for _, cfg := range configs {
		cooldown := cfg.Cooldown
		if cooldown <= 0 {
			cooldown = DefaultCooldown
		}
		ep := &Endpoint{
			ID:        cfg.ID,
			Provider:  cfg.Provider,
			HTTPURL:   cfg.HTTPURL,
			WSURL:     cfg.WSURL,
			RateLimit: cfg.RateLimit,
			Cooldown:  cooldown,
			status:    StatusActive,
		}
		p.endpoints = append(p.endpoints, ep)
		p.byID[ep.ID] = ep
	}
	return p
}

// Size returns the number of configured endpoints.
func (p *Pool) Size() int {
	return len(p.endpoints)
}

// NextHealthy returns the next endpoint in round-robin order whose status is
// ACTIVE and whose rolling request count is below its rate ceiling. Returns
// ErrNoHealthyEndpoint if a full rotation finds none.
func (p *Pool) NextHealthy() (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.endpoints) == 0 {
		return nil, ErrNoHealthyEndpoint
	}

	start := p.current
	for {
		ep := p.endpoints[p.current]
		p.current = (p.current + 1) % len(p.endpoints)
		if p.isHealthyLocked(ep) {
			return ep, nil
		}
		if p.current == start {
			return nil, ErrNoHealthyEndpoint
		}
	}
}

// RecordRequest attributes one request to the endpoint. If the rolling
// window elapsed since the last request the counter restarts; if the counter
// reaches the rate ceiling the endpoint transitions to COOLING and is
// re-activated (with a zeroed counter) after its cooldown.
func (p *Pool) RecordRequest(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ep, ok := p.byID[id]
	if !ok {
		return
	}

	now := p.now()
	if now.Sub(ep.lastRequest) >= requestWindow {
		ep.requestCount = 0
	}
	ep.requestCount++
	ep.lastRequest = now
	observability.RecordEndpointRequest(ep.ID)

	if ep.requestCount >= ep.RateLimit && ep.status == StatusActive {
		ep.status = StatusCooling
		observability.RecordEndpointCooldown(ep.ID)
		p.after(ep.Cooldown, func() { p.reactivate(ep.ID) })
	}
}

// IsNearLimit reports whether the endpoint's rolling count exceeds 80% of
// its rate ceiling. Unknown endpoints count as near-limit so callers rotate
// away from them.
func (p *Pool) IsNearLimit(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	ep, ok := p.byID[id]
	if !ok {
		return true
	}
	if p.now().Sub(ep.lastRequest) >= requestWindow {
		ep.requestCount = 0
		ep.lastRequest = p.now()
	}
	return float64(ep.requestCount) > float64(ep.RateLimit)*nearLimitFraction
}

// MarkError takes an endpoint out of rotation until its cooldown elapses.
// Used by callers that hit hard transport failures rather than rate limits.
func (p *Pool) MarkError(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ep, ok := p.byID[id]
	if !ok || ep.status != StatusActive {
		return
	}
	ep.status = StatusError
	observability.RecordEndpointCooldown(ep.ID)
	p.after(ep.Cooldown, func() { p.reactivate(ep.ID) })
}

func (p *Pool) reactivate(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ep, ok := p.byID[id]; ok {
		ep.status = StatusActive
		ep.requestCount = 0
	}
}

// isHealthyLocked reports whether the endpoint can take another request in
// the current window. Callers must hold p.mu.
func (p *Pool) isHealthyLocked(ep *Endpoint) bool {
	if ep.status != StatusActive {
		return false
	}
	if p.now().Sub(ep.lastRequest) >= requestWindow {
		ep.requestCount = 0
		ep.lastRequest = p.now()
	}
	return ep.requestCount < ep.RateLimit
}
