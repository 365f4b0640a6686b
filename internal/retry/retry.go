// Package retry provides bounded retries for idempotent reads.
//
// Only upstream failures are retried. Decision outcomes (apperr kinds other than
// Unavailable and Internal) and store sentinel errors stop immediately.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
)

// Policy bounds a retry loop.
type Policy struct {
	MaxTries       uint
	MaxElapsedTime time.Duration
	InitialDelay   time.Duration
}

// DefaultPolicy is used for store and payment-provider reads.
var DefaultPolicy = Policy{
	MaxTries:       3,
	MaxElapsedTime: 2 * time.Second,
	InitialDelay:   50 * time.Millisecond,
}

// Read runs op until it succeeds, returns a permanent error, or the policy is exhausted.
// isPermanent classifies errors that must not be retried, for example not-found sentinels.
// An exhausted retry or a cancelled context is reported as Unavailable.
func Read[T any](ctx context.Context, p Policy, name string, isPermanent func(error) bool, op func(context.Context) (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay

	result, err := backoff.Retry(ctx, func() (T, error) {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if apperr.IsDecision(err) || (isPermanent != nil && isPermanent(err)) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.MaxTries),
		backoff.WithMaxElapsedTime(p.MaxElapsedTime),
		backoff.WithNotify(func(err error, next time.Duration) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("op", name).Dur("next", next).Msg("retrying read")
		}),
	)
	if err == nil {
		return result, nil
	}

	if apperr.IsDecision(err) || (isPermanent != nil && isPermanent(err)) {
		return result, err
	}

	// Cancellation, deadlines and exhausted retries all surface as a retryable upstream failure.
	return result, apperr.Wrap(apperr.KindUnavailable, name, err)
}
