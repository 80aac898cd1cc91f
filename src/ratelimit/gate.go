package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// IRateGate paces calls to one upstream provider.
type IRateGate interface {
	// Wait blocks until the next call is allowed or ctx ends.
	Wait(ctx context.Context) error

	// Penalize pushes the next allowed call back by one interval, used after a 429.
	Penalize()
}

// -----------------------------------------------------------------------------

// Gate enforces a minimum interval between calls with a burst of one, so the
// first call passes immediately and each later call waits its turn.
type Gate struct {
	name     string
	interval time.Duration
	limiter  *rate.Limiter
}

func NewGate(name string, interval time.Duration) *Gate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Gate{name: name, interval: interval, limiter: rate.NewLimiter(limit, 1)}
}

func (g *Gate) Name() string            { return g.name }
func (g *Gate) Interval() time.Duration { return g.interval }

func (g *Gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}

func (g *Gate) Penalize() {
	if g.interval > 0 {
		g.limiter.Reserve()
	}
}

// -----------------------------------------------------------------------------

// NoopGate never waits.
type NoopGate struct{}

func (NoopGate) Wait(ctx context.Context) error { return ctx.Err() }
func (NoopGate) Penalize()                      {}

// -----------------------------------------------------------------------------

// Registry hands out one shared gate per provider name.
type Registry struct {
	mu    sync.Mutex
	gates map[string]*Gate
}

func NewRegistry() *Registry {
	return &Registry{gates: make(map[string]*Gate)}
}

// Gate returns the gate for name, creating it with interval on first use.
func (r *Registry) Gate(name string, interval time.Duration) *Gate {
	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.gates[name]; ok {
		return g
	}
	g := NewGate(name, interval)
	r.gates[name] = g
	return g
}
