package election

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry policy for transient errors.
//
// Retries are spaced by an exponentially growing, randomized interval. Once
// MaxRetries consecutive retries have failed, the session is given up on.
type RetryPolicy struct {
	// Interval before the first retry.
	InitialInterval time.Duration

	// Upper bound of the interval between retries.
	MaxInterval time.Duration

	// Maximum number of consecutive retries.
	MaxRetries uint64
}

// Default retry policy.
//
// Gives up after ten consecutive retries, roughly six seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxRetries:      10,
	}
}

// Get a fresh back-off for a sequence of retries.
func (p RetryPolicy) backOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0

	b := backoff.WithMaxRetries(eb, p.MaxRetries)
	b.Reset()

	return b
}
