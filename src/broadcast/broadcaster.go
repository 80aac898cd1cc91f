package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"market-relay/src/config"
	"market-relay/src/interfaces"
	"market-relay/src/logger"
	"market-relay/src/models"
	"market-relay/src/symbols"
	"market-relay/src/utils"
)

// ChannelState is where a channel's polling loop currently is.
type ChannelState string

const (
	StateIdle       ChannelState = "idle"
	StatePolling    ChannelState = "polling"
	StatePublishing ChannelState = "publishing"
	StatePaused     ChannelState = "paused"
)

// Error codes carried by outbound error messages.
const (
	CodeInvalidMessage  = "invalid_message"
	CodeInvalidChannel  = "invalid_channel"
	CodeInvalidSymbol   = "invalid_symbol"
	CodeChannelMismatch = "channel_mismatch"
	CodeUnknownType     = "unknown_type"
)

// ChannelStatus is the externally visible state of one channel.
type ChannelStatus struct {
	State       ChannelState `json:"state"`
	LastPublish time.Time    `json:"lastPublish,omitempty"`
	Symbols     int          `json:"symbols"`
	Published   int          `json:"published"`
}

// -----------------------------------------------------------------------------

// Broadcaster owns the client registry and the per-channel polling and
// heartbeat loops. Every quote fetched on a tick goes to every client.
type Broadcaster struct {
	Clients           *ClientRegistry
	Fetchers          map[models.Channel]interfaces.IQuoteFetcher
	Store             interfaces.ISnapshotStore
	Watchlists        map[models.Channel][]string
	Intervals         map[models.Channel]time.Duration
	HeartbeatInterval time.Duration
	Scheduler         *utils.MarketScheduler
	Logger            *logger.Logger
	Now               func() time.Time

	// OnStateChange, when set, observes every channel state transition.
	OnStateChange func(ch models.Channel, state ChannelState)

	mu     sync.RWMutex
	status map[models.Channel]ChannelStatus
	tickMu map[models.Channel]*sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBroadcaster builds a broadcaster from the broadcast section of cfg.
// store may be nil.
func NewBroadcaster(cfg *config.Config, fetchers map[models.Channel]interfaces.IQuoteFetcher, store interfaces.ISnapshotStore, log *logger.Logger) *Broadcaster {
	b := &Broadcaster{
		Clients:           NewClientRegistry(),
		Fetchers:          fetchers,
		Store:             store,
		Watchlists:        make(map[models.Channel][]string),
		Intervals:         make(map[models.Channel]time.Duration),
		HeartbeatInterval: cfg.HeartbeatInterval(),
		Logger:            log,
		Now:               time.Now,
		status:            make(map[models.Channel]ChannelStatus),
		tickMu:            make(map[models.Channel]*sync.Mutex),
	}
	for _, ch := range models.AllChannels {
		b.Intervals[ch] = cfg.ChannelInterval(ch)
		b.tickMu[ch] = &sync.Mutex{}
		b.status[ch] = ChannelStatus{State: StateIdle}

		for _, raw := range cfg.Broadcast.Watchlists[ch] {
			if s, err := symbols.Normalize(raw); err == nil {
				b.Watchlists[ch] = append(b.Watchlists[ch], s)
			} else {
				log.Warning("Dropping watchlist entry %q on %s: %v", raw, ch, err)
			}
		}
	}
	if cfg.Broadcast.PauseEquitiesWhenClosed {
		b.Scheduler = utils.NewMarketScheduler(b.Watchlists[models.ChannelEquities], log)
	}
	return b
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start launches one polling loop per channel that has a fetcher, plus the
// heartbeat and sweep loops. It returns immediately.
func (b *Broadcaster) Start(ctx context.Context) {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if b.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel

	for _, ch := range models.AllChannels {
		if _, ok := b.Fetchers[ch]; !ok {
			b.Logger.Warning("No fetcher for channel %s, not polling it", ch)
			continue
		}
		b.wg.Add(1)
		go b.pollLoop(ctx, ch)
	}

	b.wg.Add(2)
	go b.every(ctx, b.HeartbeatInterval, b.PingClients)
	go b.every(ctx, b.HeartbeatInterval/4, func() { b.SweepHeartbeats() })

	b.Logger.Info("Broadcaster started (heartbeat %s)", b.HeartbeatInterval)
}

// Stop cancels every loop, waits for them and closes all clients.
func (b *Broadcaster) Stop() {
	b.runMu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	b.wg.Wait()

	for _, c := range b.Clients.Snapshot() {
		b.Disconnect(c.ID)
	}
	b.Logger.Info("Broadcaster stopped")
}

func (b *Broadcaster) pollLoop(ctx context.Context, ch models.Channel) {
	defer b.wg.Done()

	interval := b.Intervals[ch]
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.Logger.Info("Polling %s every %s", ch, interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Tick(ctx, ch)
		}
	}
}

func (b *Broadcaster) every(ctx context.Context, interval time.Duration, fn func()) {
	defer b.wg.Done()
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// -----------------------------------------------------------------------------
// Polling
// -----------------------------------------------------------------------------

// Tick runs one poll of ch and returns the number of quotes published.
// Ticks of the same channel never overlap.
func (b *Broadcaster) Tick(ctx context.Context, ch models.Channel) int {
	mu, ok := b.tickMu[ch]
	fetcher, hasFetcher := b.Fetchers[ch]
	if !ok || !hasFetcher {
		return 0
	}
	mu.Lock()
	defer mu.Unlock()

	// 1. Nobody listening
	if b.Clients.Len() == 0 {
		return 0
	}

	// 2. Fetch set
	syms := b.Clients.SymbolUnion(ch, b.Watchlists[ch])
	if len(syms) == 0 {
		return 0
	}
	if ch == models.ChannelEquities && b.Scheduler != nil {
		b.Scheduler.UpdateSymbols(syms)
		if !b.Scheduler.AnyMarketOpen() {
			b.setState(ch, StatePaused)
			b.Logger.Debug("Equity markets closed, skipping tick")
			return 0
		}
	}

	b.setState(ch, StatePolling)
	quotes := fetcher.GetQuotes(ctx, syms)

	// 3. Publish in symbol order
	b.setState(ch, StatePublishing)
	published := make([]models.MQuote, 0, len(quotes))
	for _, s := range syms {
		if q, ok := quotes[s]; ok && q.Valid() {
			published = append(published, q)
		}
	}

	msgType := models.UpdateTypeFor(ch)
	clients := b.Clients.Snapshot()
	dropped := 0
	for _, q := range published {
		msg := models.NewMessage(msgType, q)
		for _, c := range clients {
			if err := c.Transport.Send(msg); err != nil {
				dropped++
			}
		}
	}
	if dropped > 0 {
		b.Logger.Debug("Dropped %d %s frames on full client buffers", dropped, msgType)
	}

	if b.Store != nil && len(published) > 0 {
		if err := b.Store.SaveQuotes(ctx, ch, published); err != nil {
			b.Logger.Warning("Failed to save %s snapshot: %v", ch, err)
		}
	}

	b.mu.Lock()
	b.status[ch] = ChannelStatus{State: StateIdle, LastPublish: b.Now(), Symbols: len(syms), Published: len(published)}
	b.mu.Unlock()
	b.notify(ch, StateIdle)

	b.Logger.Debug("Published %d/%d %s quotes to %d clients", len(published), len(syms), ch, len(clients))
	return len(published)
}

func (b *Broadcaster) setState(ch models.Channel, state ChannelState) {
	b.mu.Lock()
	st := b.status[ch]
	st.State = state
	b.status[ch] = st
	b.mu.Unlock()
	b.notify(ch, state)
}

func (b *Broadcaster) notify(ch models.Channel, state ChannelState) {
	if b.OnStateChange != nil {
		b.OnStateChange(ch, state)
	}
}

func (b *Broadcaster) ChannelState(ch models.Channel) ChannelStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status[ch]
}

// Status returns every channel's state.
func (b *Broadcaster) Status() map[models.Channel]ChannelStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[models.Channel]ChannelStatus, len(b.status))
	for ch, st := range b.status {
		out[ch] = st
	}
	return out
}

// -----------------------------------------------------------------------------
// Heartbeats
// -----------------------------------------------------------------------------

// PingClients sends a heartbeat frame to every client.
func (b *Broadcaster) PingClients() {
	msg := models.NewMessage(models.MsgHeartbeat, nil)
	for _, c := range b.Clients.Snapshot() {
		_ = c.Transport.Send(msg)
	}
}

// SweepHeartbeats disconnects every client silent for more than twice the
// heartbeat interval and returns their IDs.
func (b *Broadcaster) SweepHeartbeats() []string {
	now := b.Now()
	limit := 2 * b.HeartbeatInterval

	var removed []string
	for _, c := range b.Clients.Snapshot() {
		if now.Sub(c.LastHeartbeat()) <= limit {
			continue
		}
		if b.Disconnect(c.ID) {
			removed = append(removed, c.ID)
			b.Logger.Info("Client %s timed out after %s of silence", c.ID, now.Sub(c.LastHeartbeat()).Round(time.Second))
		}
	}
	return removed
}

// -----------------------------------------------------------------------------
// Connections
// -----------------------------------------------------------------------------

// Connect registers transport and sends it the connected frame with the last
// published snapshot of every channel.
func (b *Broadcaster) Connect(ctx context.Context, transport interfaces.ITransport) *ClientConnection {
	c := NewClientConnection(transport, b.Now())
	b.Clients.Add(c)

	payload := models.MConnectedPayload{
		ClientID:            c.ID,
		HeartbeatIntervalMs: b.HeartbeatInterval.Milliseconds(),
		Channels:            models.AllChannels,
		Snapshot:            b.snapshot(ctx),
	}
	if err := transport.Send(models.NewMessage(models.MsgConnected, payload)); err != nil {
		b.Logger.Warning("Failed to greet client %s: %v", c.ID, err)
	}

	b.Logger.Info("Client %s connected from %s (%d total)", c.ID, transport.RemoteAddr(), b.Clients.Len())
	return c
}

func (b *Broadcaster) snapshot(ctx context.Context) map[models.Channel][]models.MQuote {
	if b.Store == nil {
		return nil
	}
	out := make(map[models.Channel][]models.MQuote)
	for _, ch := range models.AllChannels {
		quotes, err := b.Store.LoadLatest(ctx, ch)
		if err != nil {
			b.Logger.Warning("Failed to load %s snapshot: %v", ch, err)
			continue
		}
		if len(quotes) > 0 {
			out[ch] = quotes
		}
	}
	return out
}

// Disconnect removes the client and closes its transport.
func (b *Broadcaster) Disconnect(id string) bool {
	c, ok := b.Clients.Remove(id)
	if !ok {
		return false
	}
	if err := c.Transport.Close(); err != nil {
		b.Logger.Debug("Closing client %s: %v", id, err)
	}
	b.Logger.Info("Client %s disconnected (%d left)", id, b.Clients.Len())
	return true
}

// -----------------------------------------------------------------------------
// Inbound
// -----------------------------------------------------------------------------

// HandleMessage applies one inbound frame from client id. Any frame counts as
// a heartbeat acknowledgement. Bad frames are answered with an error frame and
// returned.
func (b *Broadcaster) HandleMessage(id string, data []byte) error {
	c, ok := b.Clients.Get(id)
	if !ok {
		return fmt.Errorf("unknown client %s", id)
	}
	c.Touch(b.Now())

	var msg models.MInboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return b.reject(c, CodeInvalidMessage, fmt.Sprintf("malformed frame: %v", err))
	}

	switch msg.Type {
	case models.MsgHeartbeat:
		return nil

	case models.MsgSubscribe, models.MsgUnsubscribe:
		var sub models.MSubscription
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &sub); err != nil {
				return b.reject(c, CodeInvalidMessage, fmt.Sprintf("malformed %s payload: %v", msg.Type, err))
			}
		}
		ch, ok := models.ParseChannel(string(sub.Channel))
		if !ok {
			return b.reject(c, CodeInvalidChannel, fmt.Sprintf("unknown channel %q", sub.Channel))
		}

		syms := make([]string, 0, len(sub.Symbols))
		for _, raw := range sub.Symbols {
			s, err := symbols.Normalize(raw)
			if err != nil {
				return b.reject(c, CodeInvalidSymbol, err.Error())
			}
			if want := symbols.ChannelFor(symbols.Classify(s)); want != ch {
				return b.reject(c, CodeChannelMismatch, fmt.Sprintf("%s belongs to %s, not %s", s, want, ch))
			}
			syms = append(syms, s)
		}

		if msg.Type == models.MsgSubscribe {
			n := c.Subscribe(ch, syms)
			b.Logger.Debug("Client %s subscribed to %d new %s symbols", c.ID, n, ch)
		} else {
			n := c.Unsubscribe(ch, syms)
			b.Logger.Debug("Client %s unsubscribed from %d %s symbols", c.ID, n, ch)
		}
		return nil
	}

	return b.reject(c, CodeUnknownType, fmt.Sprintf("unknown message type %q", msg.Type))
}

func (b *Broadcaster) reject(c *ClientConnection, code, message string) error {
	_ = c.Transport.Send(models.NewMessage(models.MsgError, models.MErrorPayload{Message: message, Code: code}))
	return fmt.Errorf("%s: %s", code, message)
}
