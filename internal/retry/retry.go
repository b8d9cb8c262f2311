// Package retry runs an operation again after failure, waiting between
// attempts according to a github.com/teenjuna/liq/retry Policy.
package retry

import (
	"context"
	"errors"
	"time"

	liqretry "github.com/teenjuna/liq/retry"
)

// Policy decides whether another attempt may run.
type Policy = liqretry.Policy

// Fixed returns a policy allowing attempts tries, interval apart, with
// jitter disabled so attempts land exactly on the interval.
func Fixed(attempts int, interval time.Duration) *liqretry.FixedPolicy {
	return liqretry.Fixed(attempts, interval).WithJitter(0)
}

// Do calls fn until it succeeds or the policy stops granting attempts.
// attempt is 1-based. The last error is returned unchanged; when ctx ends
// the run, it is joined with ctx.Err().
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) error) error {
	p := policy.Derive()
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(lastErr, err)
		}
		if !p.Attempt(ctx) {
			if err := ctx.Err(); err != nil {
				return errors.Join(lastErr, err)
			}
			return lastErr
		}
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
	}
}
