package worker

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	retryBase = 5 * time.Second
	retryCap  = 10 * time.Minute
)

// ExponentialBackoff is the redelivery delay before attempt+1: 5s, 10s,
// 20s... capped at ten minutes, each with ±20% jitter so a provider outage
// does not release every parked invitation at once.
func ExponentialBackoff(attempt int) time.Duration {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     retryBase,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         retryCap,
	}
	b.Reset()

	d := b.NextBackOff()
	for i := 0; i < attempt && d < retryCap; i++ {
		d = b.NextBackOff()
	}
	return d
}
