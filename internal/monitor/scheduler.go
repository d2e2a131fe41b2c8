// Package monitor implements the per-token monitoring state machine: an
// INITIAL qualification phase after launch and an ACTIVE position phase
// after entry, each driven by a recurring job.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Phase identifies a monitoring stage.
type Phase string

const (
	PhaseInitial Phase = "INITIAL"
	PhaseActive  Phase = "ACTIVE"
)

// ErrJobExists is returned by Schedule when a job for the same (mint, phase)
// is already outstanding.
var ErrJobExists = errors.New("job already scheduled for mint and phase")

// Options controls a recurring job's cadence and lifetime.
type Options struct {
	Every time.Duration // tick interval
	Limit int           // max occurrences, 0 means unbounded
}

// Handle identifies a scheduled job for cancellation.
type Handle struct {
	mint  string
	phase Phase
}

// Mint returns the mint the job monitors.
func (h *Handle) Mint() string { return h.mint }

// Phase returns the job's monitoring stage.
func (h *Handle) Phase() Phase { return h.phase }

// TickFunc runs on each job occurrence. The context is cancelled when the
// job is cancelled or the scheduler shuts down.
type TickFunc func(ctx context.Context)

// Scheduler runs recurring monitoring jobs, at most one per (mint, phase).
type Scheduler interface {
	// Schedule starts a recurring job. Returns ErrJobExists if a job for
	// the same (mint, phase) is still outstanding.
	Schedule(mint string, phase Phase, opts Options, tick TickFunc) (*Handle, error)

	// Cancel stops a job. A tick already in flight may complete once, but
	// the job never re-arms after Cancel returns. Cancelling an unknown or
	// already finished handle is a no-op.
	Cancel(h *Handle)
}

type jobKey struct {
	mint  string
	phase Phase
}

type job struct {
	cancel context.CancelFunc
}

// TickerScheduler is an in-process Scheduler backed by one goroutine and one
// time.Ticker per job.
type TickerScheduler struct {
	mu   sync.Mutex
	jobs map[jobKey]*job

	root       context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewTickerScheduler creates an empty scheduler.
func NewTickerScheduler() *TickerScheduler {
	root, cancel := context.WithCancel(context.Background())
	return &TickerScheduler{
		jobs:       make(map[jobKey]*job),
		root:       root,
		rootCancel: cancel,
	}
}

// Compile-time interface check.
var _ Scheduler = (*TickerScheduler)(nil)

// Schedule implements Scheduler.
func (s *TickerScheduler) Schedule(mint string, phase Phase, opts Options, tick TickFunc) (*Handle, error) {
	if opts.Every <= 0 {
		return nil, errors.New("tick interval must be positive")
	}

	key := jobKey{mint: mint, phase: phase}

	s.mu.Lock()
	if _, ok := s.jobs[key]; ok {
		s.mu.Unlock()
		return nil, ErrJobExists
	}
	ctx, cancel := context.WithCancel(s.root)
	j := &job{cancel: cancel}
	s.jobs[key] = j
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, key, j, opts, tick)

	return &Handle{mint: mint, phase: phase}, nil
}

// Cancel implements Scheduler.
func (s *TickerScheduler) Cancel(h *Handle) {
	if h == nil {
		return
	}
	key := jobKey{mint: h.mint, phase: h.phase}

	s.mu.Lock()
	j, ok := s.jobs[key]
	if ok {
		delete(s.jobs, key)
	}
	s.mu.Unlock()

	if ok {
		j.cancel()
	}
}

// Close cancels all jobs and waits for their goroutines to exit.
func (s *TickerScheduler) Close() {
	s.rootCancel()
	s.wg.Wait()

	s.mu.Lock()
	s.jobs = make(map[jobKey]*job)
	s.mu.Unlock()
}

func (s *TickerScheduler) run(ctx context.Context, key jobKey, j *job, opts Options, tick TickFunc) {
	defer s.wg.Done()
	defer s.remove(key, j)

	ticker := time.NewTicker(opts.Every)
	defer ticker.Stop()

	occurrences := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Cancellation wins over a pending tick.
		if ctx.Err() != nil {
			return
		}

		tick(ctx)

		occurrences++
		if opts.Limit > 0 && occurrences >= opts.Limit {
			return
		}
	}
}

// remove clears a job's slot, but only if the slot still holds that job. A
// later job scheduled under the same key after a Cancel must not be touched.
func (s *TickerScheduler) remove(key jobKey, j *job) {
	s.mu.Lock()
	if cur, ok := s.jobs[key]; ok && cur == j {
		delete(s.jobs, key)
		cur.cancel()
	}
	s.mu.Unlock()
}
