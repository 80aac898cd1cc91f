package utils

import (
	"sync"
	"time"

	"market-relay/src/logger"
)

// MarketScheduler tracks the exchanges behind a symbol set and reports
// whether any of them is in session.
type MarketScheduler struct {
	Calendars map[string]*TradingCalendar
	Logger    *logger.Logger
	now       func() time.Time
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(symbols []string, l *logger.Logger) *MarketScheduler {
	ms := &MarketScheduler{
		Calendars: make(map[string]*TradingCalendar),
		Logger:    l,
		now:       time.Now,
	}
	ms.UpdateSymbols(symbols)
	return ms
}

// WithClock replaces the time source, for tests.
func (ms *MarketScheduler) WithClock(now func() time.Time) *MarketScheduler {
	ms.now = now
	return ms
}

// -----------------------------------------------------------------------------

// UpdateSymbols maps symbols to their exchange calendars, replacing the old set.
func (ms *MarketScheduler) UpdateSymbols(symbols []string) {
	byMIC := make(map[string]*TradingCalendar)
	for _, symbol := range symbols {
		cal := GetCalendar(symbol)
		byMIC[cal.MIC] = cal
	}

	ms.mu.Lock()
	ms.Calendars = byMIC
	ms.mu.Unlock()

	ms.Logger.Debug("Mapped %d symbols to %d calendars", len(symbols), len(byMIC))
}

// -----------------------------------------------------------------------------

// AnyMarketOpen checks if ANY tracked markets are currently open
func (ms *MarketScheduler) AnyMarketOpen() bool {
	now := ms.now().UTC()

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	for _, cal := range ms.Calendars {
		if cal.IsOpenOnMinute(now) {
			return true
		}
	}
	return false
}
