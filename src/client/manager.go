package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"market-relay/src/helpers"
	"market-relay/src/logger"
	"market-relay/src/models"
	"market-relay/src/symbols"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
)

const DefaultRetryDelay = 3 * time.Second

// Conn is the part of *websocket.Conn the manager needs.
type Conn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

type DialFunc func(ctx context.Context, url string) (Conn, error)

// GorillaDialer dials with websocket.DefaultDialer.
func GorillaDialer(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// -----------------------------------------------------------------------------
// Manager
// -----------------------------------------------------------------------------

// Manager keeps one data-stream connection alive. Subscriptions are held
// locally and replayed on every open; heartbeats are answered and never
// reach OnMessage.
type Manager struct {
	URL   string
	Dial  DialFunc
	After func(time.Duration) <-chan time.Time
	Delay backoff.BackOff

	OnMessage     func(models.MInboundMessage)
	OnStateChange func(State)
	OnLost        func(error)

	Logger *logger.Logger

	mu       sync.Mutex
	machine  Machine
	subs     map[models.Channel]map[string]struct{}
	conn     Conn
	clientID string
	writeMu  sync.Mutex
}

func NewManager(url string, log *logger.Logger) *Manager {
	return &Manager{
		URL:     url,
		Dial:    GorillaDialer,
		After:   time.After,
		Delay:   backoff.NewConstantBackOff(DefaultRetryDelay),
		Logger:  log,
		machine: NewMachine(DefaultMaxAttempts),
		subs:    make(map[models.Channel]map[string]struct{}),
	}
}

// WithMaxAttempts replaces the reconnect cap. Call before Run.
func (m *Manager) WithMaxAttempts(n int) *Manager {
	m.mu.Lock()
	m.machine = NewMachine(n)
	m.mu.Unlock()
	return m
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.State
}

func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Attempts
}

// ClientID is the id from the last connected frame.
func (m *Manager) ClientID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clientID
}

func (m *Manager) apply(ev Event) Action {
	m.mu.Lock()
	before := m.machine.State
	next, action := Transition(m.machine, ev)
	m.machine = next
	m.mu.Unlock()

	if next.State != before {
		m.Logger.Debug("Connection %s -> %s", before, next.State)
		if m.OnStateChange != nil {
			m.OnStateChange(next.State)
		}
	}
	return action
}

// -----------------------------------------------------------------------------
// Run
// -----------------------------------------------------------------------------

// Run drives the connection until ctx is canceled (nil) or the reconnect cap
// is exceeded (an error wrapping helpers.ErrConnectionLost).
func (m *Manager) Run(ctx context.Context) error {
	action := m.apply(EventDial)
	var lastErr error

	for {
		switch action {
		case ActionDial:
			conn, err := m.Dial(ctx, m.URL)
			if ctx.Err() != nil {
				if conn != nil {
					conn.Close()
				}
				m.apply(EventClose)
				return nil
			}
			if err != nil {
				lastErr = err
				m.Logger.Warning("Dial %s failed: %v", m.URL, err)
				action = m.apply(EventDialFailed)
				continue
			}
			m.setConn(conn)
			action = m.apply(EventOpen)

		case ActionReplay:
			m.Delay.Reset()
			err := m.serve(ctx)
			m.setConn(nil)
			if ctx.Err() != nil {
				m.apply(EventClose)
				return nil
			}
			lastErr = err
			m.Logger.Warning("Connection lost: %v", err)
			action = m.apply(EventLost)

		case ActionScheduleRetry:
			delay := m.Delay.NextBackOff()
			m.Logger.Info("Reconnecting in %s (attempt %d)", delay, m.Attempts())
			select {
			case <-ctx.Done():
				m.apply(EventClose)
				return nil
			case <-m.After(delay):
			}
			action = m.apply(EventRetryDue)

		case ActionReportLost:
			err := helpers.NewConnectionLostError(fmt.Sprintf("gave up after %d attempts", m.Attempts()), lastErr)
			m.Logger.Error("Giving up on %s: %v", m.URL, err)
			if m.OnLost != nil {
				m.OnLost(err)
			}
			return err

		default:
			return nil
		}
	}
}

func (m *Manager) setConn(conn Conn) {
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
}

// serve replays subscriptions and reads until the socket fails.
func (m *Manager) serve(ctx context.Context) error {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for _, sub := range m.Subscriptions() {
		if err := m.write(conn, models.NewMessage(models.MsgSubscribe, sub)); err != nil {
			conn.Close()
			return err
		}
	}

	for {
		var msg models.MInboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			conn.Close()
			return err
		}

		switch msg.Type {
		case models.MsgHeartbeat:
			if err := m.write(conn, models.NewMessage(models.MsgHeartbeat, nil)); err != nil {
				conn.Close()
				return err
			}
			continue
		case models.MsgConnected:
			var p models.MConnectedPayload
			if err := json.Unmarshal(msg.Payload, &p); err == nil {
				m.mu.Lock()
				m.clientID = p.ClientID
				m.mu.Unlock()
			}
		}
		if m.OnMessage != nil {
			m.OnMessage(msg)
		}
	}
}

func (m *Manager) write(conn Conn, msg models.MMessage) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

// Subscribe records symbols locally and sends them right away when connected.
// While disconnected they wait for the next replay.
func (m *Manager) Subscribe(ch models.Channel, syms ...string) error {
	norm, err := normalizeAll(syms)
	if err != nil {
		return err
	}

	m.mu.Lock()
	set, ok := m.subs[ch]
	if !ok {
		set = make(map[string]struct{})
		m.subs[ch] = set
	}
	for _, s := range norm {
		set[s] = struct{}{}
	}
	m.mu.Unlock()

	return m.sendIfConnected(models.NewMessage(models.MsgSubscribe, models.MSubscription{Channel: ch, Symbols: norm}))
}

// Unsubscribe drops symbols, or the whole channel when none are given.
func (m *Manager) Unsubscribe(ch models.Channel, syms ...string) error {
	norm, err := normalizeAll(syms)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if len(norm) == 0 {
		delete(m.subs, ch)
	} else {
		for _, s := range norm {
			delete(m.subs[ch], s)
		}
		if len(m.subs[ch]) == 0 {
			delete(m.subs, ch)
		}
	}
	m.mu.Unlock()

	return m.sendIfConnected(models.NewMessage(models.MsgUnsubscribe, models.MSubscription{Channel: ch, Symbols: norm}))
}

// Subscriptions lists the local subscription state in channel order.
func (m *Manager) Subscriptions() []models.MSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.MSubscription
	for _, ch := range models.AllChannels {
		set := m.subs[ch]
		if len(set) == 0 {
			continue
		}
		syms := make([]string, 0, len(set))
		for s := range set {
			syms = append(syms, s)
		}
		sort.Strings(syms)
		out = append(out, models.MSubscription{Channel: ch, Symbols: syms})
	}
	return out
}

func (m *Manager) sendIfConnected(msg models.MMessage) error {
	m.mu.Lock()
	conn, state := m.conn, m.machine.State
	m.mu.Unlock()

	if conn == nil || state != StateConnected {
		return nil
	}
	if err := m.write(conn, msg); err != nil {
		// The read loop sees the same failure and reconnects; the change is
		// already in local state and goes out with the replay.
		m.Logger.Debug("Deferred %s: %v", msg.Type, err)
	}
	return nil
}

func normalizeAll(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		s, err := symbols.Normalize(r)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// IsConnectionLost reports whether err is the terminal Run error.
func IsConnectionLost(err error) bool {
	return errors.Is(err, helpers.ErrConnectionLost)
}
