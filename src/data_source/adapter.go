package datasource

import (
	"context"
	"slices"
	"sync"
	"time"

	"market-relay/src/cache"
	"market-relay/src/helpers"
	"market-relay/src/interfaces"
	"market-relay/src/logger"
	"market-relay/src/models"
	"market-relay/src/ratelimit"

	"golang.org/x/sync/errgroup"
)

const (
	defaultTimeout     = 8 * time.Second
	defaultConcurrency = 4
	quoteTimespan      = "quote"
)

// -----------------------------------------------------------------------------
// HistoryAdapter
// -----------------------------------------------------------------------------

// HistoryAdapter puts one history provider behind a TTL cache and a rate gate,
// with stale-or-mock fallback for failed reads.
type HistoryAdapter struct {
	Source  interfaces.IHistorySource
	Gate    ratelimit.IRateGate
	Cache   *cache.TTLCache[[]models.MHistoricalBar]
	Mock    *MockGenerator
	TTL     func(models.Timespan) time.Duration
	Timeout time.Duration
	Logger  *logger.Logger
}

func NewHistoryAdapter(source interfaces.IHistorySource, gate ratelimit.IRateGate, mock *MockGenerator, log *logger.Logger) *HistoryAdapter {
	if gate == nil {
		gate = ratelimit.NoopGate{}
	}
	return &HistoryAdapter{
		Source:  source,
		Gate:    gate,
		Cache:   cache.New[[]models.MHistoricalBar](),
		Mock:    mock,
		TTL:     func(models.Timespan) time.Duration { return time.Hour },
		Timeout: defaultTimeout,
		Logger:  log,
	}
}

func (a *HistoryAdapter) Name() string {
	return a.Source.Name()
}

// TryHistory serves a fresh cache hit or performs one paced upstream call.
// It never substitutes stale or synthetic data; see Fallback.
func (a *HistoryAdapter) TryHistory(ctx context.Context, symbol string, timespan models.Timespan, limit int) ([]models.MHistoricalBar, error) {
	now := a.Cache.Now()
	key := cache.NewKey(symbol, string(timespan), limit, now)

	if bars, ok := a.Cache.Fresh(key); ok {
		if !IsStale(bars, timespan, now) {
			return slices.Clone(bars), nil
		}
		a.Logger.Debug("%s: cached %s/%s series is stale, refetching", a.Name(), symbol, timespan)
	}

	if !isConfigured(a.Source) {
		return nil, helpers.NotConfigured(a.Name())
	}

	if err := a.Gate.Wait(ctx); err != nil {
		return nil, helpers.NewUpstreamError(a.Name(), helpers.UpstreamUnavailable, 0, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	raw, err := a.Source.FetchHistory(callCtx, symbol, timespan, limit)
	if err != nil {
		if helpers.IsRateLimited(err) {
			a.Gate.Penalize()
		}
		return nil, err
	}

	bars := NormalizeBars(raw, timespan, limit)
	if len(bars) == 0 {
		return nil, helpers.Malformed(a.Name(), helpers.ErrEmptyResult)
	}

	a.Cache.Set(key, bars, a.TTL(timespan))
	return slices.Clone(bars), nil
}

// Stale returns the last cached series when cause is retryable.
func (a *HistoryAdapter) Stale(symbol string, timespan models.Timespan, limit int, cause error) ([]models.MHistoricalBar, bool) {
	if !helpers.IsRetryable(cause) {
		return nil, false
	}
	e, ok := a.Cache.Latest(cache.Series{Symbol: symbol, Timespan: string(timespan), Limit: limit})
	if !ok {
		return nil, false
	}
	a.Logger.Warning("%s: serving stale %s/%s from %s: %v", a.Name(), symbol, timespan, e.StoredAt.Format(time.RFC3339), cause)
	return slices.Clone(e.Data), true
}

// Fallback returns the last cached series when cause is retryable, otherwise
// deterministic mock bars.
func (a *HistoryAdapter) Fallback(symbol string, timespan models.Timespan, limit int, cause error) []models.MHistoricalBar {
	if bars, ok := a.Stale(symbol, timespan, limit, cause); ok {
		return bars
	}
	a.Logger.Warning("%s: serving mock %s/%s: %v", a.Name(), symbol, timespan, cause)
	return a.Mock.History(symbol, timespan, limit)
}

// GetHistory never fails: it degrades to Fallback.
func (a *HistoryAdapter) GetHistory(ctx context.Context, symbol string, timespan models.Timespan, limit int) []models.MHistoricalBar {
	bars, err := a.TryHistory(ctx, symbol, timespan, limit)
	if err != nil {
		return a.Fallback(symbol, timespan, limit, err)
	}
	return bars
}

// -----------------------------------------------------------------------------
// QuoteAdapter
// -----------------------------------------------------------------------------

// QuoteAdapter is the quote counterpart of HistoryAdapter. Batch sources are
// called once per request; others are fanned out with at most Concurrency
// calls in flight, each behind its own gate wait.
type QuoteAdapter struct {
	Source      interfaces.IQuoteSource
	Gate        ratelimit.IRateGate
	Cache       *cache.TTLCache[models.MQuote]
	Mock        *MockGenerator
	TTL         time.Duration
	Timeout     time.Duration
	Concurrency int
	Logger      *logger.Logger
}

func NewQuoteAdapter(source interfaces.IQuoteSource, gate ratelimit.IRateGate, mock *MockGenerator, log *logger.Logger) *QuoteAdapter {
	if gate == nil {
		gate = ratelimit.NoopGate{}
	}
	return &QuoteAdapter{
		Source:      source,
		Gate:        gate,
		Cache:       cache.New[models.MQuote](),
		Mock:        mock,
		TTL:         time.Minute,
		Timeout:     defaultTimeout,
		Concurrency: defaultConcurrency,
		Logger:      log,
	}
}

func (a *QuoteAdapter) Name() string {
	return a.Source.Name()
}

func (a *QuoteAdapter) key(symbol string, now time.Time) cache.Key {
	return cache.NewKey(symbol, quoteTimespan, 0, now)
}

// TryQuotes returns every quote it could resolve. The error is non-nil when
// at least one symbol is missing and describes the last failure seen.
func (a *QuoteAdapter) TryQuotes(ctx context.Context, symbols []string) (map[string]models.MQuote, error) {
	now := a.Cache.Now()
	out := make(map[string]models.MQuote, len(symbols))

	var missing []string
	for _, s := range symbols {
		if q, ok := a.Cache.Fresh(a.key(s, now)); ok {
			out[s] = q
			continue
		}
		missing = append(missing, s)
	}
	if len(missing) == 0 {
		return out, nil
	}

	if !isConfigured(a.Source) {
		return out, helpers.NotConfigured(a.Name())
	}

	var lastErr error
	if batch, ok := a.Source.(interfaces.IBatchQuoteSource); ok {
		lastErr = a.fetchBatch(ctx, batch, missing, out)
	} else {
		lastErr = a.fetchEach(ctx, missing, out)
	}

	for _, s := range missing {
		if _, ok := out[s]; !ok {
			if lastErr == nil {
				lastErr = helpers.Malformed(a.Name(), helpers.ErrEmptyResult)
			}
			return out, lastErr
		}
	}
	return out, nil
}

func (a *QuoteAdapter) fetchBatch(ctx context.Context, batch interfaces.IBatchQuoteSource, symbols []string, out map[string]models.MQuote) error {
	if err := a.Gate.Wait(ctx); err != nil {
		return helpers.NewUpstreamError(a.Name(), helpers.UpstreamUnavailable, 0, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	quotes, err := batch.FetchQuotes(callCtx, symbols)
	if err != nil {
		if helpers.IsRateLimited(err) {
			a.Gate.Penalize()
		}
		return err
	}
	for _, s := range symbols {
		if q, ok := quotes[s]; ok {
			a.store(s, q, out)
		}
	}
	return nil
}

func (a *QuoteAdapter) fetchEach(ctx context.Context, symbols []string, out map[string]models.MQuote) error {
	var (
		mu      sync.Mutex
		lastErr error
	)
	record := func(err error) {
		mu.Lock()
		lastErr = err
		mu.Unlock()
	}

	limit := a.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	// Plain Group: one symbol failing must not cancel the others.
	var g errgroup.Group
	g.SetLimit(limit)
	for _, s := range symbols {
		g.Go(func() error {
			if err := a.Gate.Wait(ctx); err != nil {
				record(helpers.NewUpstreamError(a.Name(), helpers.UpstreamUnavailable, 0, err))
				return nil
			}

			callCtx, cancel := context.WithTimeout(ctx, a.Timeout)
			defer cancel()

			q, err := a.Source.FetchQuote(callCtx, s)
			if err != nil {
				if helpers.IsRateLimited(err) {
					a.Gate.Penalize()
				}
				a.Logger.Debug("%s: quote %s failed: %v", a.Name(), s, err)
				record(err)
				return nil
			}

			mu.Lock()
			a.store(s, q, out)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return lastErr
}

// store caches a valid quote under the requested symbol and adds it to out.
func (a *QuoteAdapter) store(symbol string, q models.MQuote, out map[string]models.MQuote) {
	q.Symbol = symbol
	if !q.Valid() {
		return
	}
	if q.Source == "" {
		q.Source = a.Name()
	}
	if q.TimestampMs == 0 {
		q.TimestampMs = a.Cache.Now().UnixMilli()
	}
	a.Cache.Set(a.key(symbol, a.Cache.Now()), q, a.TTL)
	out[symbol] = q
}

// Stale resolves what it can from the last cached quotes when cause is
// retryable. Symbols without a cached quote are omitted.
func (a *QuoteAdapter) Stale(symbols []string, cause error) map[string]models.MQuote {
	out := make(map[string]models.MQuote)
	if !helpers.IsRetryable(cause) {
		return out
	}
	for _, s := range symbols {
		if e, ok := a.Cache.Latest(cache.Series{Symbol: s, Timespan: quoteTimespan}); ok {
			out[s] = e.Data
		}
	}
	if len(out) > 0 {
		a.Logger.Warning("%s: %d stale quotes served: %v", a.Name(), len(out), cause)
	}
	return out
}

// Fallback resolves symbols from the last cached quote when cause is
// retryable, otherwise from mock data.
func (a *QuoteAdapter) Fallback(symbols []string, cause error) map[string]models.MQuote {
	out := a.Stale(symbols, cause)
	mocked := 0
	for _, s := range symbols {
		if _, ok := out[s]; ok {
			continue
		}
		out[s] = a.Mock.Quote(s)
		mocked++
	}
	if mocked > 0 {
		a.Logger.Warning("%s: %d mock quotes served: %v", a.Name(), mocked, cause)
	}
	return out
}

// GetQuotes always returns one quote per requested symbol.
func (a *QuoteAdapter) GetQuotes(ctx context.Context, symbols []string) map[string]models.MQuote {
	out, err := a.TryQuotes(ctx, symbols)
	if err == nil {
		return out
	}
	var rest []string
	for _, s := range symbols {
		if _, ok := out[s]; !ok {
			rest = append(rest, s)
		}
	}
	for s, q := range a.Fallback(rest, err) {
		out[s] = q
	}
	return out
}

func (a *QuoteAdapter) GetQuote(ctx context.Context, symbol string) models.MQuote {
	return a.GetQuotes(ctx, []string{symbol})[symbol]
}

// -----------------------------------------------------------------------------
// CalendarAdapter
// -----------------------------------------------------------------------------

// CalendarAdapter caches calendar windows by kind and date range. An empty
// window is a valid answer.
type CalendarAdapter struct {
	Source  interfaces.ICalendarSource
	Gate    ratelimit.IRateGate
	Cache   *cache.TTLCache[[]models.MCalendarEvent]
	Mock    *MockGenerator
	TTL     time.Duration
	Timeout time.Duration
	Logger  *logger.Logger
}

func NewCalendarAdapter(source interfaces.ICalendarSource, gate ratelimit.IRateGate, mock *MockGenerator, log *logger.Logger) *CalendarAdapter {
	if gate == nil {
		gate = ratelimit.NoopGate{}
	}
	return &CalendarAdapter{
		Source:  source,
		Gate:    gate,
		Cache:   cache.New[[]models.MCalendarEvent](),
		Mock:    mock,
		TTL:     6 * time.Hour,
		Timeout: defaultTimeout,
		Logger:  log,
	}
}

func (a *CalendarAdapter) Name() string {
	return a.Source.Name()
}

func calendarSeries(kind models.CalendarKind, from, to time.Time) cache.Series {
	window := from.UTC().Format(time.DateOnly) + ".." + to.UTC().Format(time.DateOnly)
	return cache.Series{Symbol: string(kind), Timespan: window}
}

func (a *CalendarAdapter) TryCalendar(ctx context.Context, kind models.CalendarKind, from, to time.Time) ([]models.MCalendarEvent, error) {
	now := a.Cache.Now()
	s := calendarSeries(kind, from, to)
	key := cache.NewKey(s.Symbol, s.Timespan, 0, now)

	if events, ok := a.Cache.Fresh(key); ok {
		return slices.Clone(events), nil
	}
	if !isConfigured(a.Source) {
		return nil, helpers.NotConfigured(a.Name())
	}
	if err := a.Gate.Wait(ctx); err != nil {
		return nil, helpers.NewUpstreamError(a.Name(), helpers.UpstreamUnavailable, 0, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	events, err := a.Source.FetchCalendar(callCtx, kind, from, to)
	if err != nil {
		if helpers.IsRateLimited(err) {
			a.Gate.Penalize()
		}
		return nil, err
	}
	if events == nil {
		events = []models.MCalendarEvent{}
	}
	a.Cache.Set(key, events, a.TTL)
	return slices.Clone(events), nil
}

func (a *CalendarAdapter) Fallback(kind models.CalendarKind, from, to time.Time, cause error) []models.MCalendarEvent {
	if helpers.IsRetryable(cause) {
		if e, ok := a.Cache.Latest(calendarSeries(kind, from, to)); ok {
			a.Logger.Warning("%s: serving stale %s calendar: %v", a.Name(), kind, cause)
			return slices.Clone(e.Data)
		}
	}
	a.Logger.Warning("%s: serving mock %s calendar: %v", a.Name(), kind, cause)
	return a.Mock.Calendar(kind, from, to)
}

func (a *CalendarAdapter) GetCalendar(ctx context.Context, kind models.CalendarKind, from, to time.Time) []models.MCalendarEvent {
	events, err := a.TryCalendar(ctx, kind, from, to)
	if err != nil {
		return a.Fallback(kind, from, to, err)
	}
	return events
}

// -----------------------------------------------------------------------------

func isConfigured(source interface{}) bool {
	c, ok := source.(interfaces.IConfigured)
	return !ok || c.Configured()
}
