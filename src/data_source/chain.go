package datasource

import (
	"context"
	"time"

	"market-relay/src/logger"
	"market-relay/src/models"
)

// HistoryChain tries its adapters in order. When every adapter fails, the
// first stale series held by an adapter that failed retryably answers, in
// chain order; mock bars from the first adapter come last.
type HistoryChain struct {
	Capability Capability
	Adapters   []*HistoryAdapter
	Logger     *logger.Logger
}

func NewHistoryChain(capability Capability, log *logger.Logger, adapters ...*HistoryAdapter) *HistoryChain {
	return &HistoryChain{Capability: capability, Adapters: adapters, Logger: log}
}

func (c *HistoryChain) GetHistory(ctx context.Context, symbol string, timespan models.Timespan, limit int) []models.MHistoricalBar {
	if len(c.Adapters) == 0 {
		return nil
	}
	errs := make([]error, len(c.Adapters))
	for i, a := range c.Adapters {
		bars, err := a.TryHistory(ctx, symbol, timespan, limit)
		if err == nil {
			return bars
		}
		errs[i] = err
		c.Logger.Debug("%s: %s failed for %s/%s: %v", c.Capability, a.Name(), symbol, timespan, err)
	}
	for i, a := range c.Adapters {
		if bars, ok := a.Stale(symbol, timespan, limit, errs[i]); ok {
			return bars
		}
	}
	return c.Adapters[0].Fallback(symbol, timespan, limit, errs[0])
}

func (c *HistoryChain) Names() []string {
	names := make([]string, len(c.Adapters))
	for i, a := range c.Adapters {
		names[i] = a.Name()
	}
	return names
}

// -----------------------------------------------------------------------------

// QuoteChain resolves quotes symbol by symbol: each adapter is only asked for
// what the previous ones could not deliver. Unresolved symbols take stale
// quotes from any adapter before mock data.
type QuoteChain struct {
	Capability Capability
	Adapters   []*QuoteAdapter
	Logger     *logger.Logger
}

func NewQuoteChain(capability Capability, log *logger.Logger, adapters ...*QuoteAdapter) *QuoteChain {
	return &QuoteChain{Capability: capability, Adapters: adapters, Logger: log}
}

// GetQuotes returns one quote per requested symbol.
func (c *QuoteChain) GetQuotes(ctx context.Context, symbols []string) map[string]models.MQuote {
	out := make(map[string]models.MQuote, len(symbols))
	if len(c.Adapters) == 0 || len(symbols) == 0 {
		return out
	}

	remaining := symbols
	errs := make([]error, len(c.Adapters))
	for i, a := range c.Adapters {
		got, err := a.TryQuotes(ctx, remaining)
		for s, q := range got {
			out[s] = q
		}
		if err == nil {
			return out
		}
		errs[i] = err
		c.Logger.Debug("%s: %s left %d of %d symbols unresolved: %v", c.Capability, a.Name(), len(remaining)-len(got), len(remaining), err)
		remaining = unresolved(remaining, out)
		if len(remaining) == 0 {
			return out
		}
	}

	// Stale quotes from any adapter beat mock data.
	for i, a := range c.Adapters {
		for s, q := range a.Stale(remaining, errs[i]) {
			out[s] = q
		}
		remaining = unresolved(remaining, out)
		if len(remaining) == 0 {
			return out
		}
	}

	for s, q := range c.Adapters[0].Fallback(remaining, errs[0]) {
		out[s] = q
	}
	return out
}

func (c *QuoteChain) GetQuote(ctx context.Context, symbol string) models.MQuote {
	return c.GetQuotes(ctx, []string{symbol})[symbol]
}

func (c *QuoteChain) Names() []string {
	names := make([]string, len(c.Adapters))
	for i, a := range c.Adapters {
		names[i] = a.Name()
	}
	return names
}

func unresolved(symbols []string, got map[string]models.MQuote) []string {
	var rest []string
	for _, s := range symbols {
		if _, ok := got[s]; !ok {
			rest = append(rest, s)
		}
	}
	return rest
}

// -----------------------------------------------------------------------------

type CalendarChain struct {
	Adapters []*CalendarAdapter
	Logger   *logger.Logger
}

func NewCalendarChain(log *logger.Logger, adapters ...*CalendarAdapter) *CalendarChain {
	return &CalendarChain{Adapters: adapters, Logger: log}
}

func (c *CalendarChain) GetCalendar(ctx context.Context, kind models.CalendarKind, from, to time.Time) []models.MCalendarEvent {
	var firstErr error
	for i, a := range c.Adapters {
		events, err := a.TryCalendar(ctx, kind, from, to)
		if err == nil {
			return events
		}
		if i == 0 {
			firstErr = err
		}
		c.Logger.Debug("calendar: %s failed for %s: %v", a.Name(), kind, err)
	}
	if len(c.Adapters) == 0 {
		return nil
	}
	return c.Adapters[0].Fallback(kind, from, to, firstErr)
}

func (c *CalendarChain) Names() []string {
	names := make([]string, len(c.Adapters))
	for i, a := range c.Adapters {
		names[i] = a.Name()
	}
	return names
}
