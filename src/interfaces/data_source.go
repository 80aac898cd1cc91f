package interfaces

import (
	"context"
	"time"

	"market-relay/src/models"
)

//go:generate mockgen -source=data_source.go -destination=../data_source/mock_sources_test.go -package=datasource_test

// -----------------------------------------------------------------------------
// Upstream provider contracts. Implementations perform exactly one upstream
// call per method invocation; caching, pacing and fallback live in adapters.
// -----------------------------------------------------------------------------

// IConfigured is implemented by sources that need credentials.
type IConfigured interface {
	Configured() bool
}

// -----------------------------------------------------------------------------

type IQuoteSource interface {
	// Name identifies the provider and its rate gate.
	Name() string

	// FetchQuote retrieves the latest quote for one normalized symbol.
	FetchQuote(ctx context.Context, symbol string) (models.MQuote, error)
}

// -----------------------------------------------------------------------------

// IBatchQuoteSource can resolve several symbols in one upstream call.
type IBatchQuoteSource interface {
	IQuoteSource

	// FetchQuotes returns quotes keyed by the requested symbol. Symbols the
	// upstream does not know are omitted.
	FetchQuotes(ctx context.Context, symbols []string) (map[string]models.MQuote, error)
}

// -----------------------------------------------------------------------------

type IHistorySource interface {
	Name() string

	// FetchHistory returns raw bars, in any order, covering at least limit bars when available.
	FetchHistory(ctx context.Context, symbol string, timespan models.Timespan, limit int) ([]models.MHistoricalBar, error)
}

// -----------------------------------------------------------------------------

type ICalendarSource interface {
	Name() string

	FetchCalendar(ctx context.Context, kind models.CalendarKind, from, to time.Time) ([]models.MCalendarEvent, error)
}
