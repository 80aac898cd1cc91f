package broadcast

import (
	"sort"
	"sync"
	"time"

	"market-relay/src/interfaces"
	"market-relay/src/models"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// ClientConnection
// -----------------------------------------------------------------------------

// ClientConnection is one data-stream peer and its per-channel subscriptions.
// Subscriptions only change through Subscribe and Unsubscribe.
type ClientConnection struct {
	ID          string
	Transport   interfaces.ITransport
	ConnectedAt time.Time

	mu            sync.Mutex
	subs          map[models.Channel]map[string]struct{}
	lastHeartbeat time.Time
}

func NewClientConnection(transport interfaces.ITransport, now time.Time) *ClientConnection {
	return &ClientConnection{
		ID:            uuid.NewString(),
		Transport:     transport,
		ConnectedAt:   now,
		subs:          make(map[models.Channel]map[string]struct{}),
		lastHeartbeat: now,
	}
}

// Subscribe adds symbols to the channel set and returns how many were new.
func (c *ClientConnection) Subscribe(ch models.Channel, symbols []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	set, ok := c.subs[ch]
	if !ok {
		set = make(map[string]struct{}, len(symbols))
		c.subs[ch] = set
	}
	added := 0
	for _, s := range symbols {
		if _, dup := set[s]; !dup {
			set[s] = struct{}{}
			added++
		}
	}
	return added
}

// Unsubscribe removes symbols from the channel set. No symbols clears it.
func (c *ClientConnection) Unsubscribe(ch models.Channel, symbols []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	set := c.subs[ch]
	if len(symbols) == 0 {
		n := len(set)
		delete(c.subs, ch)
		return n
	}
	removed := 0
	for _, s := range symbols {
		if _, ok := set[s]; ok {
			delete(set, s)
			removed++
		}
	}
	if len(set) == 0 {
		delete(c.subs, ch)
	}
	return removed
}

// Symbols returns the channel set sorted.
func (c *ClientConnection) Symbols(ch models.Channel) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.subs[ch]))
	for s := range c.subs[ch] {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (c *ClientConnection) Touch(now time.Time) {
	c.mu.Lock()
	c.lastHeartbeat = now
	c.mu.Unlock()
}

func (c *ClientConnection) LastHeartbeat() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHeartbeat
}

// -----------------------------------------------------------------------------
// ClientRegistry
// -----------------------------------------------------------------------------

type ClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]*ClientConnection
}

func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]*ClientConnection)}
}

func (r *ClientRegistry) Add(c *ClientConnection) {
	r.mu.Lock()
	r.clients[c.ID] = c
	r.mu.Unlock()
}

// Remove deletes the client and returns it, if it was registered.
func (r *ClientRegistry) Remove(id string) (*ClientConnection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	return c, ok
}

func (r *ClientRegistry) Get(id string) (*ClientConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[id]
	return c, ok
}

func (r *ClientRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Snapshot copies the current client list so callers can send without the lock.
func (r *ClientRegistry) Snapshot() []*ClientConnection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ClientConnection, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// SymbolUnion returns the sorted union of every client's channel set plus extra.
func (r *ClientRegistry) SymbolUnion(ch models.Channel, extra []string) []string {
	set := make(map[string]struct{}, len(extra))
	for _, s := range extra {
		set[s] = struct{}{}
	}
	for _, c := range r.Snapshot() {
		for _, s := range c.Symbols(ch) {
			set[s] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
