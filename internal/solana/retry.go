package solana

import (
	"context"
	"fmt"
)

// DefaultAttempts is how many times a chain read is tried before the caller
// gives up on it.
const DefaultAttempts = 3

// Rotator moves subsequent calls to a different endpoint. *PooledClient
// satisfies it.
type Rotator interface {
	Rotate()
}

// Retry runs fn up to attempts times, rotating to another endpoint after
// each failure. All attempts exhausted returns the last error; ctx
// cancellation aborts between attempts.
func Retry(ctx context.Context, attempts int, r Rotator, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if r != nil && attempt < attempts {
			r.Rotate()
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}
