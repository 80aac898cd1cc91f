package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGateSpacesCalls(t *testing.T) {
	t.Parallel()

	// Arrange
	interval := 40 * time.Millisecond
	g := NewGate("test", interval)
	start := time.Now()

	// Act: three calls, the first passes immediately.
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Wait(t.Context()))
	}

	// Assert: two full intervals elapsed, allowing scheduler slack below.
	require.GreaterOrEqual(t, time.Since(start), 2*interval-5*time.Millisecond)
}

func TestGateWaitHonoursContext(t *testing.T) {
	t.Parallel()

	g := NewGate("slow", time.Hour)
	require.NoError(t, g.Wait(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()

	require.Error(t, g.Wait(ctx))
}

func TestZeroIntervalNeverBlocks(t *testing.T) {
	t.Parallel()

	g := NewGate("free", 0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, g.Wait(t.Context()))
	}
	g.Penalize()
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestRegistrySharesGatePerProvider(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	a := r.Gate("finnhub", time.Second)
	b := r.Gate("finnhub", time.Minute)

	require.Same(t, a, b)
	require.Equal(t, time.Second, b.Interval())
	require.NotSame(t, a, r.Gate("polygon", time.Second))
}

func TestNoopGate(t *testing.T) {
	t.Parallel()

	require.NoError(t, NoopGate{}.Wait(t.Context()))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	require.Error(t, NoopGate{}.Wait(ctx))
}
