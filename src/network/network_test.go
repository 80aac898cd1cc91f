package network

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"market-relay/src/helpers"
	"market-relay/src/logger"
	"market-relay/src/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/require"
)

func newTestManager(retries int) *AsyncNetworkManager {
	cfg := &models.MConfig{Network: models.MNetworkConfig{RequestTimeout: 2, MaxRetries: retries}}
	nm := NewAsyncNetworkManager(cfg, logger.NewLogger(nil, "network-test"))
	nm.NewBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }
	return nm
}

func TestGetSendsParamsAndHeaders(t *testing.T) {
	t.Parallel()

	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		require.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	// Act
	body, err := newTestManager(0).Get(t.Context(), srv.URL+"/quote", map[string]string{"symbol": "AAPL"}, map[string]string{"X-Api-Key": "secret"})

	// Assert
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(body))
}

func TestGetClassifiesStatuses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status    int
		kind      helpers.UpstreamKind
		retryable bool
	}{
		{http.StatusTooManyRequests, helpers.UpstreamRateLimited, true},
		{http.StatusServiceUnavailable, helpers.UpstreamUnavailable, true},
		{http.StatusNotFound, helpers.UpstreamRejected, false},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			_, err := newTestManager(0).Get(t.Context(), srv.URL, nil, nil)

			var upErr *helpers.UpstreamError
			require.True(t, errors.As(err, &upErr))
			require.Equal(t, tc.kind, upErr.Kind)
			require.Equal(t, tc.status, upErr.StatusCode)
			require.Equal(t, tc.retryable, helpers.IsRetryable(err))
		})
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	t.Parallel()

	// Arrange: fail twice then succeed.
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	// Act
	body, err := newTestManager(2).Get(t.Context(), srv.URL, nil, nil)

	// Assert
	require.NoError(t, err)
	require.Equal(t, "[]", string(body))
	require.EqualValues(t, 3, calls.Load())
}

func TestGetDoesNotRetryRateLimit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestManager(3).Get(t.Context(), srv.URL, nil, nil)

	require.True(t, helpers.IsRateLimited(err))
	require.EqualValues(t, 1, calls.Load())
}
