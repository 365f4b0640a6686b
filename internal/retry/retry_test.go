package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
)

var errNotFound = errors.New("thing not found")

func fastPolicy() Policy {
	return Policy{MaxTries: 3, MaxElapsedTime: time.Second, InitialDelay: time.Millisecond}
}

func isNotFound(err error) bool { return errors.Is(err, errNotFound) }

func TestRead(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		v, err := Read(ctx, fastPolicy(), "test.read", isNotFound, func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("connection reset")
			}
			return "ok", nil
		})
		require.NoError(t, err)
		require.Equal(t, "ok", v)
		require.Equal(t, 3, calls)
	})

	t.Run("exhausted retries become unavailable", func(t *testing.T) {
		calls := 0
		_, err := Read(ctx, fastPolicy(), "test.read", isNotFound, func(context.Context) (int, error) {
			calls++
			return 0, errors.New("connection reset")
		})
		require.ErrorIs(t, err, apperr.ErrUnavailable)
		require.True(t, apperr.IsRetryable(err))
		require.Equal(t, 3, calls)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		calls := 0
		_, err := Read(ctx, fastPolicy(), "test.read", isNotFound, func(context.Context) (int, error) {
			calls++
			return 0, errNotFound
		})
		require.ErrorIs(t, err, errNotFound)
		require.Equal(t, 1, calls)
	})

	t.Run("decision outcomes are not retried", func(t *testing.T) {
		calls := 0
		_, err := Read(ctx, fastPolicy(), "test.read", nil, func(context.Context) (int, error) {
			calls++
			return 0, apperr.E(apperr.KindForbidden, "test", "no membership")
		})
		require.ErrorIs(t, err, apperr.ErrForbidden)
		require.Equal(t, 1, calls)
	})

	t.Run("cancelled context is unavailable", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Read(cctx, fastPolicy(), "test.read", nil, func(ctx context.Context) (int, error) {
			return 0, ctx.Err()
		})
		require.ErrorIs(t, err, apperr.ErrUnavailable)
	})
}
