package apierr

import (
	"context"
	"fmt"
	"time"
)

// Backoff bounds repeated attempts against a flaky backend. Delays between
// attempts double from Initial up to Cap.
type Backoff struct {
	// Tries is the total number of attempts, including the first.
	Tries int
	// Initial is the delay before the second attempt.
	Initial time.Duration
	// Cap limits delay growth.
	Cap time.Duration
}

// Do runs attempt until it succeeds, fails with a non-retryable error, the
// tries run out, or ctx is canceled. retryable decides which errors earn
// another attempt.
func (b Backoff) Do(ctx context.Context, retryable func(error) bool, attempt func() error) error {
	tries := max(b.Tries, 1)
	delay := b.Initial
	if delay <= 0 {
		delay = time.Millisecond
	}
	ceiling := max(b.Cap, delay)

	var lastErr error
	for try := 0; try < tries; try++ {
		if try > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
			delay = min(delay*2, ceiling)
		}

		lastErr = attempt()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", tries, lastErr)
}
