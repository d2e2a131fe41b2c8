package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestSchedule_DuplicateJob(t *testing.T) {
	s := NewTickerScheduler()
	defer s.Close()

	opts := Options{Every: time.Hour}
	h, err := s.Schedule("mintA", PhaseInitial, opts, func(context.Context) {})
	if err != nil {
		t.Fatalf("first schedule: %v", err)
	}

	if _, err := s.Schedule("mintA", PhaseInitial, opts, func(context.Context) {}); !errors.Is(err, ErrJobExists) {
		t.Fatalf("duplicate schedule error = %v, want ErrJobExists", err)
	}

	// Same mint, other phase is a distinct job.
	if _, err := s.Schedule("mintA", PhaseActive, opts, func(context.Context) {}); err != nil {
		t.Fatalf("schedule other phase: %v", err)
	}

	// After cancel the slot frees up.
	s.Cancel(h)
	waitFor(t, time.Second, func() bool {
		_, err := s.Schedule("mintA", PhaseInitial, opts, func(context.Context) {})
		return err == nil
	})
}

func TestSchedule_TicksAndOccurrenceLimit(t *testing.T) {
	s := NewTickerScheduler()
	defer s.Close()

	var ticks atomic.Int64
	_, err := s.Schedule("mintA", PhaseInitial, Options{Every: 5 * time.Millisecond, Limit: 3}, func(context.Context) {
		ticks.Add(1)
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	waitFor(t, time.Second, func() bool { return ticks.Load() == 3 })

	// The job stopped at its limit.
	time.Sleep(30 * time.Millisecond)
	if n := ticks.Load(); n != 3 {
		t.Errorf("ticks after limit = %d, want 3", n)
	}
}

func TestCancel_StopsRearming(t *testing.T) {
	s := NewTickerScheduler()
	defer s.Close()

	var ticks atomic.Int64
	h, err := s.Schedule("mintA", PhaseInitial, Options{Every: 5 * time.Millisecond}, func(context.Context) {
		ticks.Add(1)
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	waitFor(t, time.Second, func() bool { return ticks.Load() >= 2 })
	s.Cancel(h)

	// An in-flight tick may land once, then the count stays put.
	settled := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if n := ticks.Load(); n > settled+1 {
		t.Errorf("ticks kept arriving after cancel: %d -> %d", settled, n)
	}
}

func TestCancel_SelfCancelInsideTick(t *testing.T) {
	s := NewTickerScheduler()
	defer s.Close()

	var ticks atomic.Int64
	done := make(chan struct{})
	_, err := s.Schedule("mintA", PhaseActive, Options{Every: 5 * time.Millisecond}, func(context.Context) {
		if ticks.Add(1) == 1 {
			s.Cancel(&Handle{mint: "mintA", phase: PhaseActive})
			close(done)
		}
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}

	<-done
	time.Sleep(30 * time.Millisecond)
	if n := ticks.Load(); n != 1 {
		t.Errorf("ticks after self-cancel = %d, want 1", n)
	}
}

func TestClose_CancelsEverything(t *testing.T) {
	s := NewTickerScheduler()

	var ticks atomic.Int64
	for _, mint := range []string{"a", "b", "c"} {
		if _, err := s.Schedule(mint, PhaseInitial, Options{Every: 5 * time.Millisecond}, func(context.Context) {
			ticks.Add(1)
		}); err != nil {
			t.Fatalf("schedule %s: %v", mint, err)
		}
	}

	waitFor(t, time.Second, func() bool { return ticks.Load() >= 3 })
	s.Close()

	settled := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if n := ticks.Load(); n != settled {
		t.Errorf("ticks after close: %d -> %d", settled, n)
	}
}
