package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIs(t *testing.T) {
	err := E(KindConflict, "invitation.Accept", "invitation already accepted")

	require.ErrorIs(t, err, ErrConflict)
	require.NotErrorIs(t, err, ErrGone)

	wrapped := fmt.Errorf("handler: %w", err)
	require.ErrorIs(t, wrapped, ErrConflict)
	require.Equal(t, KindConflict, KindOf(wrapped))
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "op and message",
			err:      E(KindNotFound, "orgctx.Resolve", "organization not found"),
			expected: "orgctx.Resolve: organization not found",
		},
		{
			name:     "kind used when message empty",
			err:      &Error{Kind: KindForbidden},
			expected: "forbidden",
		},
		{
			name:     "cause appended",
			err:      Wrap(KindUnavailable, "store.Get", errors.New("connection refused")),
			expected: "store.Get: unavailable: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	require.Equal(t, KindInternal, KindOf(errors.New("boom")))
	require.Equal(t, KindInternal, KindOf(nil))
	require.Equal(t, KindDataIntegrity, KindOf(Errorf(KindDataIntegrity, "billing.Aggregate", "mixed currency %s/%s", "usd", "eur")))
}

func TestIsDecisionAndRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		decision  bool
		retryable bool
	}{
		{name: "plain error", err: errors.New("boom"), decision: false, retryable: false},
		{name: "unavailable", err: Wrap(KindUnavailable, "op", errors.New("timeout")), decision: false, retryable: true},
		{name: "forbidden", err: ErrForbidden, decision: true, retryable: false},
		{name: "expired", err: E(KindExpired, "op", "expired"), decision: true, retryable: false},
		{name: "internal", err: &Error{Kind: KindInternal}, decision: false, retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.decision, IsDecision(tt.err))
			require.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}
