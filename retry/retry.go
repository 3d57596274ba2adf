// Package retry holds bounded retry policies for eventually consistent reads.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds how often and how patiently an operation is retried.
// MaxRetries counts retries after the first attempt.
type Policy struct {
	MaxRetries int
	Delay      func(attempt int) time.Duration
	// OnRetry is called before each wait with the failed attempt's error.
	OnRetry func(err error, attempt int, wait time.Duration)
}

// Constant retries up to retries times, waiting d between attempts.
func Constant(retries int, d time.Duration) Policy {
	return Policy{
		MaxRetries: retries,
		Delay:      func(int) time.Duration { return d },
	}
}

// Attempts is the total number of calls the policy allows.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a permanent error, the policy is
// exhausted, or ctx is done. The last error is returned on exhaustion.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	b := &policyBackOff{delay: p.Delay}
	attempt := 0
	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(p.Attempts())),
	}
	if p.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, wait time.Duration) {
			p.OnRetry(err, attempt, wait)
		}))
	}
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		return op(ctx)
	}, opts...)
}

type policyBackOff struct {
	delay   func(attempt int) time.Duration
	attempt int
}

func (b *policyBackOff) NextBackOff() time.Duration {
	b.attempt++
	if b.delay == nil {
		return 0
	}
	return b.delay(b.attempt)
}

func (b *policyBackOff) Reset() {
	b.attempt = 0
}
