package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"market-relay/src/logger"
)

// Capability names one logical read path served by a fallback chain.
type Capability string

const (
	CapEquityQuote   Capability = "equity-quote"
	CapEquityHistory Capability = "equity-history"
	CapCryptoQuote   Capability = "crypto-quote"
	CapCryptoHistory Capability = "crypto-history"
	CapForexHistory  Capability = "forex-history"
	CapCalendar      Capability = "calendar"
)

type purger interface {
	Purge() int
}

// Registry owns the chains for every capability and the caches behind them.
type Registry struct {
	mu       sync.RWMutex
	history  map[Capability]*HistoryChain
	quotes   map[Capability]*QuoteChain
	calendar *CalendarChain
	caches   map[purger]struct{}
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		history: make(map[Capability]*HistoryChain),
		quotes:  make(map[Capability]*QuoteChain),
		caches:  make(map[purger]struct{}),
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

// AddHistoryChain registers chain under its capability.
func (r *Registry) AddHistoryChain(chain *HistoryChain) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.history[chain.Capability]; exists {
		return fmt.Errorf("chain %s already exists", chain.Capability)
	}
	r.history[chain.Capability] = chain
	for _, a := range chain.Adapters {
		r.caches[a.Cache] = struct{}{}
	}
	r.Logger.Info("Added chain %s: %v", chain.Capability, chain.Names())
	return nil
}

func (r *Registry) AddQuoteChain(chain *QuoteChain) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.quotes[chain.Capability]; exists {
		return fmt.Errorf("chain %s already exists", chain.Capability)
	}
	r.quotes[chain.Capability] = chain
	for _, a := range chain.Adapters {
		r.caches[a.Cache] = struct{}{}
	}
	r.Logger.Info("Added chain %s: %v", chain.Capability, chain.Names())
	return nil
}

func (r *Registry) SetCalendarChain(chain *CalendarChain) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calendar = chain
	for _, a := range chain.Adapters {
		r.caches[a.Cache] = struct{}{}
	}
	r.Logger.Info("Added chain %s: %v", CapCalendar, chain.Names())
}

// -----------------------------------------------------------------------------

func (r *Registry) HistoryChain(capability Capability) (*HistoryChain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, exists := r.history[capability]
	if !exists {
		return nil, fmt.Errorf("chain %s not found", capability)
	}
	return chain, nil
}

func (r *Registry) QuoteChain(capability Capability) (*QuoteChain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chain, exists := r.quotes[capability]
	if !exists {
		return nil, fmt.Errorf("chain %s not found", capability)
	}
	return chain, nil
}

func (r *Registry) CalendarChain() (*CalendarChain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.calendar == nil {
		return nil, fmt.Errorf("chain %s not found", CapCalendar)
	}
	return r.calendar, nil
}

// -----------------------------------------------------------------------------

// Describe lists the adapter order of every registered capability.
func (r *Registry) Describe() map[Capability][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Capability][]string, len(r.history)+len(r.quotes)+1)
	for c, chain := range r.history {
		out[c] = chain.Names()
	}
	for c, chain := range r.quotes {
		out[c] = chain.Names()
	}
	if r.calendar != nil {
		out[CapCalendar] = r.calendar.Names()
	}
	return out
}

// Capabilities returns the registered capability names sorted.
func (r *Registry) Capabilities() []Capability {
	desc := r.Describe()
	out := make([]Capability, 0, len(desc))
	for c := range desc {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// -----------------------------------------------------------------------------

// Purge runs retention eviction on every adapter cache once.
func (r *Registry) Purge() int {
	r.mu.RLock()
	caches := make([]purger, 0, len(r.caches))
	for c := range r.caches {
		caches = append(caches, c)
	}
	r.mu.RUnlock()

	total := 0
	for _, c := range caches {
		total += c.Purge()
	}
	return total
}

// RunJanitor purges on every interval until ctx ends.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
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
			if n := r.Purge(); n > 0 {
				r.Logger.Debug("Cache janitor purged %d entries", n)
			}
		}
	}
}
