// Package utils holds small cross-cutting helpers with no home of their own.
package utils

import (
	"context"
	"time"
)

// Stubbed in tests to avoid real sleeps.
var sleep = time.Sleep

// WaitFor sleeps for d, returning early with the context's error when the
// context is cancelled first. Used as the delay between analyzer retries.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
