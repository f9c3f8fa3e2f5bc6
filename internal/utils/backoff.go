package utils

import (
	"context"
	"time"
)

// Backoff retries with exponentially growing pauses: base, 2*base, 4*base...
type Backoff struct {
	base       time.Duration
	maxRetries int
}

func NewBackoff(base time.Duration, maxRetries int) Backoff {
	return Backoff{base: base, maxRetries: maxRetries}
}

// Attempts is the total number of calls Do makes before giving up.
func (b Backoff) Attempts() int { return b.maxRetries + 1 }

// Do calls fn until it succeeds, the retries run out or ctx is done. i is the
// zero-based attempt number. The last error from fn is returned.
func (b Backoff) Do(ctx context.Context, fn func(i int) error) error {
	var err error
	for i := 0; i <= b.maxRetries; i++ {
		if err = fn(i); err == nil {
			return nil
		}
		if i == b.maxRetries {
			break
		}
		t := time.NewTimer(time.Duration(1<<i) * b.base)
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
	return err
}
