package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"market-relay/src/helpers"
	"market-relay/src/logger"
	"market-relay/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	in     chan models.MInboundMessage
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written []models.MMessage
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan models.MInboundMessage, 8), closed: make(chan struct{})}
}

func (f *fakeConn) ReadJSON(v interface{}) error {
	select {
	case msg, ok := <-f.in:
		if !ok {
			return io.EOF
		}
		*v.(*models.MInboundMessage) = msg
		return nil
	case <-f.closed:
		return net.ErrClosed
	}
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	f.mu.Lock()
	f.written = append(f.written, v.(models.MMessage))
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) frames(msgType string) []models.MMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.MMessage
	for _, m := range f.written {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func frame(t *testing.T, msgType string, payload interface{}) models.MInboundMessage {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return models.MInboundMessage{Type: msgType, Payload: raw}
}

func immediately(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func newTestManager() *Manager {
	m := NewManager("ws://relay.test/ws", logger.NewLogger(nil, "client-test"))
	m.After = immediately
	return m
}

// -----------------------------------------------------------------------------

func TestRunGivesUpAfterCap(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	var dials atomic.Int32
	m.Dial = func(ctx context.Context, url string) (Conn, error) {
		dials.Add(1)
		return nil, errors.New("connection refused")
	}
	var lost atomic.Int32
	m.OnLost = func(error) { lost.Add(1) }

	err := m.Run(t.Context())

	require.ErrorIs(t, err, helpers.ErrConnectionLost)
	assert.True(t, IsConnectionLost(err))
	assert.EqualValues(t, 1+DefaultMaxAttempts, dials.Load())
	assert.EqualValues(t, 1, lost.Load())
	assert.Equal(t, StateFailed, m.State())
}

func TestRunReplaysSubscriptionsAndAnswersHeartbeats(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	conns := make(chan *fakeConn, 2)
	first, second := newFakeConn(), newFakeConn()
	conns <- first
	conns <- second
	m.Dial = func(ctx context.Context, url string) (Conn, error) { return <-conns, nil }

	var mu sync.Mutex
	var delivered []string
	m.OnMessage = func(msg models.MInboundMessage) {
		mu.Lock()
		delivered = append(delivered, msg.Type)
		mu.Unlock()
	}

	// Arrange: subscribed before any socket exists.
	require.NoError(t, m.Subscribe(models.ChannelCrypto, "btc-usd"))

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	// Buffered subscription is flushed on the first open.
	require.Eventually(t, func() bool { return len(first.frames(models.MsgSubscribe)) == 1 }, 2*time.Second, 5*time.Millisecond)
	first.in <- frame(t, models.MsgConnected, models.MConnectedPayload{ClientID: "abc"})
	first.in <- frame(t, models.MsgHeartbeat, struct{}{})
	require.Eventually(t, func() bool { return len(first.frames(models.MsgHeartbeat)) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "abc", m.ClientID())

	// Live subscription goes straight out.
	require.NoError(t, m.Subscribe(models.ChannelEquities, "AAPL"))
	require.Len(t, first.frames(models.MsgSubscribe), 2)

	// Act: drop the socket.
	close(first.in)

	// Assert: the second socket gets the full local state.
	require.Eventually(t, func() bool { return len(second.frames(models.MsgSubscribe)) == 2 }, 2*time.Second, 5*time.Millisecond)
	replay := second.frames(models.MsgSubscribe)
	assert.Equal(t, models.MSubscription{Channel: models.ChannelEquities, Symbols: []string{"AAPL"}}, replay[0].Payload)
	assert.Equal(t, models.MSubscription{Channel: models.ChannelCrypto, Symbols: []string{"BTC"}}, replay[1].Payload)
	require.Eventually(t, func() bool { return m.State() == StateConnected }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, m.Attempts())

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateDisconnected, m.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{models.MsgConnected}, delivered)
}

func TestRunSuccessResetsAttempts(t *testing.T) {
	t.Parallel()
	m := newTestManager()
	conn := newFakeConn()
	var dials atomic.Int32
	m.Dial = func(ctx context.Context, url string) (Conn, error) {
		if dials.Add(1) <= 3 {
			return nil, errors.New("refused")
		}
		return conn, nil
	}
	var states []State
	var mu sync.Mutex
	m.OnStateChange = func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return m.State() == StateConnected }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, m.Attempts())
	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, StateReconnecting)
	assert.NotContains(t, states, StateFailed)
}

func TestUnsubscribeWhileDisconnected(t *testing.T) {
	t.Parallel()
	m := newTestManager()

	require.NoError(t, m.Subscribe(models.ChannelEquities, "AAPL", "MSFT"))
	require.NoError(t, m.Subscribe(models.ChannelCurrencies, "EUR/USD"))
	require.NoError(t, m.Unsubscribe(models.ChannelEquities, "msft"))
	require.NoError(t, m.Unsubscribe(models.ChannelCurrencies))

	assert.Equal(t, []models.MSubscription{{Channel: models.ChannelEquities, Symbols: []string{"AAPL"}}}, m.Subscriptions())
	require.ErrorIs(t, m.Subscribe(models.ChannelEquities, ""), helpers.ErrInvalidSymbol)
}
