package helpers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unavailable", NewUpstreamError("finnhub", UpstreamUnavailable, 503, nil), true},
		{"rate limited", NewUpstreamError("polygon", UpstreamRateLimited, 429, nil), true},
		{"malformed", Malformed("yahoo", errors.New("bad json")), false},
		{"rejected", NewUpstreamError("polygon", UpstreamRejected, 404, nil), false},
		{"not configured", NotConfigured("alpaca"), false},
		{"wrapped deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), true},
		{"wrapped upstream", fmt.Errorf("chain: %w", NewUpstreamError("x", UpstreamUnavailable, 0, nil)), true},
		{"plain", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, IsRetryable(tc.err))
		})
	}
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, UpstreamRateLimited, ClassifyStatus(http.StatusTooManyRequests))
	assert.Equal(t, UpstreamUnavailable, ClassifyStatus(http.StatusBadGateway))
	assert.Equal(t, UpstreamRejected, ClassifyStatus(http.StatusForbidden))
}

func TestValidationErrorUnwrapsSentinel(t *testing.T) {
	t.Parallel()

	err := NewValidationError(ErrInvalidSymbol, "symbol \"\" is empty")

	require.True(t, IsValidation(err))
	require.ErrorIs(t, err, ErrInvalidSymbol)
	require.False(t, IsValidation(NotConfigured("finnhub")))
}

func TestIsRateLimited(t *testing.T) {
	t.Parallel()

	require.True(t, IsRateLimited(fmt.Errorf("x: %w", NewUpstreamError("p", UpstreamRateLimited, 429, nil))))
	require.False(t, IsRateLimited(NewUpstreamError("p", UpstreamUnavailable, 500, nil)))
}

func TestTypedErrors(t *testing.T) {
	t.Parallel()

	dial := errors.New("connection refused")
	lost := NewConnectionLostError("gave up after 5 attempts", dial)
	require.ErrorIs(t, lost, ErrConnectionLost)
	require.ErrorIs(t, lost, dial)
	var cl *ConnectionLostError
	require.ErrorAs(t, lost, &cl)
	assert.Contains(t, lost.Error(), "gave up after 5 attempts")

	var db *DatabaseError
	require.ErrorAs(t, fmt.Errorf("init: %w", NewDatabaseError("failed to open", dial)), &db)
	assert.False(t, IsValidation(db))

	var ce *ConfigurationError
	require.ErrorAs(t, NewConfigurationError("bad port", nil), &ce)
	assert.Equal(t, "bad port", ce.Error())
}
