package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Key identifies one cached result. Date is the UTC calendar day the entry
// was stored on, so keys roll over once per day.
type Key struct {
	Symbol   string
	Timespan string
	Limit    int
	Date     string
}

// Series is Key without the date: every day's entry for the same request.
type Series struct {
	Symbol   string
	Timespan string
	Limit    int
}

// NewKey builds the key for now's UTC date.
func NewKey(symbol, timespan string, limit int, now time.Time) Key {
	return Key{Symbol: symbol, Timespan: timespan, Limit: limit, Date: now.UTC().Format(time.DateOnly)}
}

func (k Key) Series() Series {
	return Series{Symbol: k.Symbol, Timespan: k.Timespan, Limit: k.Limit}
}

// -----------------------------------------------------------------------------

// Entry is a stored value with the time it was written and its lifetime.
type Entry[T any] struct {
	Data     T
	StoredAt time.Time
	TTL      time.Duration
}

// FreshAt is true while now - StoredAt < TTL. The boundary itself is stale.
func (e Entry[T]) FreshAt(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

// -----------------------------------------------------------------------------

// TTLCache is a mutex guarded map of entries with a per-series index of the
// most recent write, kept so expired data can still be served on failure.
// order lists keys oldest write first.
type TTLCache[T any] struct {
	mu        sync.RWMutex
	items     map[Key]Entry[T]
	latest    map[Series]Key
	order     *list.List
	pos       map[Key]*list.Element
	maxItems  int
	retention time.Duration
	now       func() time.Time
}

type Option func(*options)

type options struct {
	maxItems  int
	retention time.Duration
	now       func() time.Time
}

// WithMaxItems caps the number of entries; the oldest writes are evicted first.
func WithMaxItems(n int) Option {
	return func(o *options) { o.maxItems = n }
}

// WithRetention bounds how long any entry, stale or not, is kept.
func WithRetention(d time.Duration) Option {
	return func(o *options) { o.retention = d }
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func New[T any](opts ...Option) *TTLCache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTLCache[T]{
		items:     make(map[Key]Entry[T]),
		latest:    make(map[Series]Key),
		order:     list.New(),
		pos:       make(map[Key]*list.Element),
		maxItems:  o.maxItems,
		retention: o.retention,
		now:       o.now,
	}
}

// -----------------------------------------------------------------------------

func (c *TTLCache[T]) Now() time.Time {
	return c.now()
}

// Get returns the entry for key regardless of freshness.
func (c *TTLCache[T]) Get(key Key) (Entry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.items[key]
	return e, ok
}

// Fresh returns the data for key only while it is within its TTL.
func (c *TTLCache[T]) Fresh(key Key) (T, bool) {
	e, ok := c.Get(key)
	if !ok || !e.FreshAt(c.now()) {
		var zero T
		return zero, false
	}
	return e.Data, true
}

// Latest returns the most recently written entry of a series from any day.
func (c *TTLCache[T]) Latest(s Series) (Entry[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.latest[s]
	if !ok {
		return Entry[T]{}, false
	}
	e, ok := c.items[k]
	return e, ok
}

// -----------------------------------------------------------------------------

func (c *TTLCache[T]) Set(key Key, data T, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = Entry[T]{Data: data, StoredAt: c.now(), TTL: ttl}
	c.latest[key.Series()] = key
	if el, ok := c.pos[key]; ok {
		c.order.MoveToBack(el)
	} else {
		c.pos[key] = c.order.PushBack(key)
	}

	for c.maxItems > 0 && len(c.items) > c.maxItems {
		c.deleteLocked(c.order.Front().Value.(Key))
	}
}

// -----------------------------------------------------------------------------

func (c *TTLCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Purge drops entries older than the retention window and returns how many went.
func (c *TTLCache[T]) Purge() int {
	if c.retention <= 0 {
		return 0
	}
	cutoff := c.now().Add(-c.retention)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.items {
		if e.StoredAt.Before(cutoff) {
			c.deleteLocked(k)
			removed++
		}
	}
	return removed
}

// RunJanitor purges on every interval until ctx ends.
func (c *TTLCache[T]) RunJanitor(ctx context.Context, interval time.Duration, onPurge func(int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Purge(); n > 0 && onPurge != nil {
				onPurge(n)
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (c *TTLCache[T]) deleteLocked(k Key) {
	delete(c.items, k)
	if el, ok := c.pos[k]; ok {
		c.order.Remove(el)
		delete(c.pos, k)
	}
	if c.latest[k.Series()] == k {
		delete(c.latest, k.Series())
	}
}
