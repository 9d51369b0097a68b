package postgres

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxTries = 3

func newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = 250 * time.Millisecond
	return b
}

// withRetry re-runs fn on transient storage failures only. Business errors
// come back on the first attempt.
func withRetry(ctx context.Context, fn func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := fn()
		if err != nil && !IsTransient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(newBackOff()), backoff.WithMaxTries(maxTries))

	return err
}
