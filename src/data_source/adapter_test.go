package datasource_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"market-relay/src/cache"
	datasource "market-relay/src/data_source"
	"market-relay/src/helpers"
	"market-relay/src/logger"
	"market-relay/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// -----------------------------------------------------------------------------
// Fixtures
// -----------------------------------------------------------------------------

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 18, 15, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingGate struct {
	waits     atomic.Int32
	penalties atomic.Int32
}

func (g *countingGate) Wait(ctx context.Context) error {
	g.waits.Add(1)
	return ctx.Err()
}

func (g *countingGate) Penalize() { g.penalties.Add(1) }

// configuredHistory is a history source that also reports its credentials.
type configuredHistory struct {
	*MockIHistorySource
	*MockIConfigured
}

// configuredQuote is a quote source that also reports its credentials.
type configuredQuote struct {
	*MockIQuoteSource
	*MockIConfigured
}

var testLog = logger.NewLogger(nil, "data-source-test")

func dailyBars(last time.Time, n int, base float64) []models.MHistoricalBar {
	out := make([]models.MHistoricalBar, 0, n)
	for i := n - 1; i >= 0; i-- {
		d := last.AddDate(0, 0, -i)
		px := base + float64(n-i)
		out = append(out, models.MHistoricalBar{TimeSec: d.Unix(), Open: px, High: px + 1, Low: px - 1, Close: px, Volume: 100})
	}
	return out
}

func newHistoryAdapter(t *testing.T, clk *fakeClock, name string) (*datasource.HistoryAdapter, *MockIHistorySource, *countingGate) {
	t.Helper()
	ctrl := gomock.NewController(t)
	src := NewMockIHistorySource(ctrl)
	src.EXPECT().Name().Return(name).AnyTimes()

	gate := &countingGate{}
	a := datasource.NewHistoryAdapter(src, gate, datasource.NewMockGenerator(clk.Now), testLog)
	a.Cache = cache.New[[]models.MHistoricalBar](cache.WithClock(clk.Now))
	a.TTL = func(models.Timespan) time.Duration { return time.Hour }
	return a, src, gate
}

func upstreamDown(provider string) error {
	return helpers.NewUpstreamError(provider, helpers.UpstreamUnavailable, 503, errors.New("bad status: 503"))
}

// -----------------------------------------------------------------------------
// HistoryAdapter
// -----------------------------------------------------------------------------

func TestHistoryAdapterServesFreshCache(t *testing.T) {
	clk := newFakeClock()
	a, src, gate := newHistoryAdapter(t, clk, "polygon")
	today := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)

	// Arrange: one upstream call expected for two reads.
	src.EXPECT().FetchHistory(gomock.Any(), "AAPL", models.TimespanDay, 3).
		Return(dailyBars(today, 3, 100), nil).Times(1)

	// Act
	first, err1 := a.TryHistory(t.Context(), "AAPL", models.TimespanDay, 3)
	clk.Advance(59 * time.Minute)
	second, err2 := a.TryHistory(t.Context(), "AAPL", models.TimespanDay, 3)

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
	require.Equal(t, first, second)
	require.Len(t, first, 3)
	require.EqualValues(t, 1, gate.waits.Load())
}

func TestHistoryAdapterTTLBoundaryIsExclusive(t *testing.T) {
	clk := newFakeClock()
	a, src, _ := newHistoryAdapter(t, clk, "polygon")
	today := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)

	src.EXPECT().FetchHistory(gomock.Any(), "AAPL", models.TimespanDay, 3).
		Return(dailyBars(today, 3, 100), nil).Times(2)

	_, err := a.TryHistory(t.Context(), "AAPL", models.TimespanDay, 3)
	require.NoError(t, err)

	clk.Advance(time.Hour)
	_, err = a.TryHistory(t.Context(), "AAPL", models.TimespanDay, 3)
	require.NoError(t, err)
}

func TestHistoryAdapterRefetchesStaleSeriesWithinTTL(t *testing.T) {
	clk := newFakeClock()
	a, src, _ := newHistoryAdapter(t, clk, "polygon")
	fourDaysAgo := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	// Arrange: the upstream keeps answering with a series that ends 4 days ago.
	src.EXPECT().FetchHistory(gomock.Any(), "AAPL", models.TimespanDay, 5).
		Return(dailyBars(fourDaysAgo, 5, 100), nil).Times(2)

	// Act
	_, err1 := a.TryHistory(t.Context(), "AAPL", models.TimespanDay, 5)
	clk.Advance(time.Minute)
	_, err2 := a.TryHistory(t.Context(), "AAPL", models.TimespanDay, 5)

	// Assert
	require.NoError(t, err1)
	require.NoError(t, err2)
}

func TestHistoryAdapterWeeklySeriesIgnoresStaleness(t *testing.T) {
	clk := newFakeClock()
	a, src, _ := newHistoryAdapter(t, clk, "polygon")
	lastWeek := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	bars := []models.MHistoricalBar{
		{TimeSec: lastWeek.AddDate(0, 0, -7).Unix(), Open: 1, High: 2, Low: 1, Close: 2},
		{TimeSec: lastWeek.Unix(), Open: 2, High: 3, Low: 2, Close: 3},
	}
	src.EXPECT().FetchHistory(gomock.Any(), "AAPL", models.TimespanWeek, 2).Return(bars, nil).Times(1)

	_, err := a.TryHistory(t.Context(), "AAPL", models.TimespanWeek, 2)
	require.NoError(t, err)
	_, err = a.TryHistory(t.Context(), "AAPL", models.TimespanWeek, 2)
	require.NoError(t, err)
}

func TestHistoryAdapterNormalizesPayload(t *testing.T) {
	clk := newFakeClock()
	a, src, _ := newHistoryAdapter(t, clk, "polygon")
	d := time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC)

	src.EXPECT().FetchHistory(gomock.Any(), "AAPL", models.TimespanDay, 2).Return([]models.MHistoricalBar{
		{TimeSec: d.Add(20 * time.Hour).Unix(), Close: 9},
		{TimeSec: d.Unix(), Close: 5},
		{TimeSec: d.AddDate(0, 0, -1).Unix(), Close: 4},
		{TimeSec: d.AddDate(0, 0, -2).Unix(), Close: 0},
	}, nil)

	bars, err := a.TryHistory(t.Context(), "AAPL", models.TimespanDay, 2)

	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 4.0, bars[0].Close)
	assert.Equal(t, 9.0, bars[1].Close)
}

func TestHistoryAdapterEmptyPayloadIsMalformed(t *testing.T) {
	clk := newFakeClock()
	a, src, _ := newHistoryAdapter(t, clk, "polygon")
	src.EXPECT().FetchHistory(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	_, err := a.TryHistory(t.Context(), "AAPL", models.TimespanDay, 5)

	require.ErrorIs(t, err, helpers.ErrEmptyResult)
	require.False(t, helpers.IsRetryable(err))
}

func TestHistoryAdapterNotConfiguredSkipsGateAndUpstream(t *testing.T) {
	clk := newFakeClock()
	ctrl := gomock.NewController(t)
	hist := NewMockIHistorySource(ctrl)
	hist.EXPECT().Name().Return("polygon").AnyTimes()
	conf := NewMockIConfigured(ctrl)
	conf.EXPECT().Configured().Return(false).AnyTimes()

	gate := &countingGate{}
	mock := datasource.NewMockGenerator(clk.Now)
	a := datasource.NewHistoryAdapter(configuredHistory{hist, conf}, gate, mock, testLog)

	// Act
	_, err := a.TryHistory(t.Context(), "AAPL", models.TimespanDay, 10)
	bars := a.GetHistory(t.Context(), "AAPL", models.TimespanDay, 10)

	// Assert
	require.ErrorIs(t, err, helpers.ErrNotConfigured)
	require.Zero(t, gate.waits.Load())
	require.Equal(t, mock.History("AAPL", models.TimespanDay, 10), bars)
}

func TestHistoryAdapterServesStaleCacheOnRetryableFailure(t *testing.T) {
	clk := newFakeClock()
	a, src, _ := newHistoryAdapter(t, clk, "polygon")
	today := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)
	good := dailyBars(today, 3, 100)

	gomock.InOrder(
		src.EXPECT().FetchHistory(gomock.Any(), "AAPL", models.TimespanDay, 3).Return(good, nil),
		src.EXPECT().FetchHistory(gomock.Any(), "AAPL", models.TimespanDay, 3).Return(nil, upstreamDown("polygon")),
	)

	require.Equal(t, good, a.GetHistory(t.Context(), "AAPL", models.TimespanDay, 3))

	// Expired, and on the next UTC day, so the lookup has to cross dates.
	clk.Advance(25 * time.Hour)
	got := a.GetHistory(t.Context(), "AAPL", models.TimespanDay, 3)

	require.Equal(t, good, got)
}

func TestHistoryAdapterNonRetryableFailureServesMock(t *testing.T) {
	clk := newFakeClock()
	a, src, _ := newHistoryAdapter(t, clk, "polygon")
	today := time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC)

	gomock.InOrder(
		src.EXPECT().FetchHistory(gomock.Any(), "AAPL", models.TimespanDay, 3).Return(dailyBars(today, 3, 100), nil),
		src.EXPECT().FetchHistory(gomock.Any(), "AAPL", models.TimespanDay, 3).
			Return(nil, helpers.NewUpstreamError("polygon", helpers.UpstreamRejected, 404, errors.New("bad status: 404"))),
	)

	_ = a.GetHistory(t.Context(), "AAPL", models.TimespanDay, 3)
	clk.Advance(2 * time.Hour)
	got := a.GetHistory(t.Context(), "AAPL", models.TimespanDay, 3)

	require.Equal(t, a.Mock.History("AAPL", models.TimespanDay, 3), got)
}

func TestHistoryAdapterRateLimitPenalizesGate(t *testing.T) {
	clk := newFakeClock()
	a, src, gate := newHistoryAdapter(t, clk, "polygon")
	src.EXPECT().FetchHistory(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, helpers.NewUpstreamError("polygon", helpers.UpstreamRateLimited, 429, errors.New("bad status: 429")))

	_, err := a.TryHistory(t.Context(), "AAPL", models.TimespanDay, 3)

	require.True(t, helpers.IsRateLimited(err))
	require.EqualValues(t, 1, gate.penalties.Load())
}

func TestMockHistoryIsDeterministic(t *testing.T) {
	clk := newFakeClock()
	mock := datasource.NewMockGenerator(clk.Now)

	for _, sym := range []string{"AAPL", "BTC", "EURUSD", "USDJPY"} {
		first := mock.History(sym, models.TimespanDay, 30)
		second := mock.History(sym, models.TimespanDay, 30)

		require.Equal(t, first, second, sym)
		require.Len(t, first, 30, sym)
		for i, b := range first {
			require.Positive(t, b.Close, sym)
			require.GreaterOrEqual(t, b.High, b.Low, sym)
			if i > 0 {
				require.Greater(t, b.TimeSec, first[i-1].TimeSec, sym)
			}
		}
	}
	require.NotEqual(t, mock.History("AAPL", models.TimespanDay, 5), mock.History("MSFT", models.TimespanDay, 5))
}

func TestMockEquityDailyBarsSkipWeekends(t *testing.T) {
	mock := datasource.NewMockGenerator(newFakeClock().Now)

	for _, b := range mock.History("AAPL", models.TimespanDay, 15) {
		wd := time.Unix(b.TimeSec, 0).UTC().Weekday()
		require.NotEqual(t, time.Saturday, wd)
		require.NotEqual(t, time.Sunday, wd)
	}
}

// -----------------------------------------------------------------------------
// QuoteAdapter
// -----------------------------------------------------------------------------

func TestQuoteAdapterBatchesOneCall(t *testing.T) {
	clk := newFakeClock()
	ctrl := gomock.NewController(t)
	src := NewMockIBatchQuoteSource(ctrl)
	src.EXPECT().Name().Return("coingecko").AnyTimes()
	src.EXPECT().FetchQuotes(gomock.Any(), []string{"BTC", "ETH"}).Return(map[string]models.MQuote{
		"BTC": {Symbol: "BTC", Price: 64000},
		"ETH": {Symbol: "ETH", Price: 3100},
	}, nil).Times(1)

	gate := &countingGate{}
	a := datasource.NewQuoteAdapter(src, gate, datasource.NewMockGenerator(clk.Now), testLog)
	a.Cache = cache.New[models.MQuote](cache.WithClock(clk.Now))

	// Act
	got, err := a.TryQuotes(t.Context(), []string{"BTC", "ETH"})
	again, err2 := a.TryQuotes(t.Context(), []string{"BTC", "ETH"})

	// Assert
	require.NoError(t, err)
	require.NoError(t, err2)
	require.EqualValues(t, 1, gate.waits.Load())
	require.Equal(t, 64000.0, got["BTC"].Price)
	require.Equal(t, "coingecko", got["ETH"].Source)
	require.Equal(t, got, again)
}

func TestQuoteAdapterFansOutPerSymbol(t *testing.T) {
	clk := newFakeClock()
	ctrl := gomock.NewController(t)
	src := NewMockIQuoteSource(ctrl)
	src.EXPECT().Name().Return("finnhub").AnyTimes()
	src.EXPECT().FetchQuote(gomock.Any(), "AAPL").Return(models.MQuote{Symbol: "AAPL", Price: 190}, nil)
	src.EXPECT().FetchQuote(gomock.Any(), "MSFT").Return(models.MQuote{Symbol: "MSFT", Price: 410}, nil)
	src.EXPECT().FetchQuote(gomock.Any(), "TSLA").Return(models.MQuote{}, upstreamDown("finnhub"))

	gate := &countingGate{}
	mock := datasource.NewMockGenerator(clk.Now)
	a := datasource.NewQuoteAdapter(src, gate, mock, testLog)
	a.Cache = cache.New[models.MQuote](cache.WithClock(clk.Now))

	// Act
	got := a.GetQuotes(t.Context(), []string{"AAPL", "MSFT", "TSLA"})

	// Assert
	require.EqualValues(t, 3, gate.waits.Load())
	require.Len(t, got, 3)
	require.Equal(t, 190.0, got["AAPL"].Price)
	require.Equal(t, 410.0, got["MSFT"].Price)
	require.Equal(t, mock.Quote("TSLA"), got["TSLA"])
	require.Equal(t, "mock", got["TSLA"].Source)
}

func TestQuoteAdapterDropsInvalidQuotes(t *testing.T) {
	clk := newFakeClock()
	ctrl := gomock.NewController(t)
	src := NewMockIQuoteSource(ctrl)
	src.EXPECT().Name().Return("finnhub").AnyTimes()
	src.EXPECT().FetchQuote(gomock.Any(), "ZZZZ").Return(models.MQuote{Symbol: "ZZZZ", Price: 0}, nil)

	a := datasource.NewQuoteAdapter(src, nil, datasource.NewMockGenerator(clk.Now), testLog)

	got, err := a.TryQuotes(t.Context(), []string{"ZZZZ"})

	require.ErrorIs(t, err, helpers.ErrEmptyResult)
	require.Empty(t, got)
}

func TestQuoteAdapterServesStaleQuoteOnRetryableFailure(t *testing.T) {
	clk := newFakeClock()
	ctrl := gomock.NewController(t)
	src := NewMockIQuoteSource(ctrl)
	src.EXPECT().Name().Return("finnhub").AnyTimes()
	gomock.InOrder(
		src.EXPECT().FetchQuote(gomock.Any(), "AAPL").Return(models.MQuote{Symbol: "AAPL", Price: 190}, nil),
		src.EXPECT().FetchQuote(gomock.Any(), "AAPL").Return(models.MQuote{}, upstreamDown("finnhub")),
	)

	a := datasource.NewQuoteAdapter(src, nil, datasource.NewMockGenerator(clk.Now), testLog)
	a.Cache = cache.New[models.MQuote](cache.WithClock(clk.Now))
	a.TTL = 30 * time.Second

	first := a.GetQuote(t.Context(), "AAPL")
	clk.Advance(time.Minute)
	second := a.GetQuote(t.Context(), "AAPL")

	require.Equal(t, first, second)
	require.Equal(t, "finnhub", second.Source)
}

// -----------------------------------------------------------------------------
// CalendarAdapter
// -----------------------------------------------------------------------------

func TestCalendarAdapterCachesWindow(t *testing.T) {
	clk := newFakeClock()
	ctrl := gomock.NewController(t)
	src := NewMockICalendarSource(ctrl)
	src.EXPECT().Name().Return("finnhub").AnyTimes()
	from := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 6)
	events := []models.MCalendarEvent{{Kind: models.CalendarEarnings, Date: "2026-03-17", Symbol: "ORCL"}}
	src.EXPECT().FetchCalendar(gomock.Any(), models.CalendarEarnings, from, to).Return(events, nil).Times(1)

	a := datasource.NewCalendarAdapter(src, nil, datasource.NewMockGenerator(clk.Now), testLog)
	a.Cache = cache.New[[]models.MCalendarEvent](cache.WithClock(clk.Now))

	first := a.GetCalendar(t.Context(), models.CalendarEarnings, from, to)
	second := a.GetCalendar(t.Context(), models.CalendarEarnings, from, to)

	require.Equal(t, events, first)
	require.Equal(t, events, second)
}

func TestCalendarAdapterFailureServesMock(t *testing.T) {
	clk := newFakeClock()
	ctrl := gomock.NewController(t)
	src := NewMockICalendarSource(ctrl)
	src.EXPECT().Name().Return("finnhub").AnyTimes()
	src.EXPECT().FetchCalendar(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, helpers.NewUpstreamError("finnhub", helpers.UpstreamRejected, 401, errors.New("bad status: 401")))

	mock := datasource.NewMockGenerator(clk.Now)
	a := datasource.NewCalendarAdapter(src, nil, mock, testLog)
	from := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 4)

	got := a.GetCalendar(t.Context(), models.CalendarEconomic, from, to)

	require.Len(t, got, 5)
	require.Equal(t, mock.Calendar(models.CalendarEconomic, from, to), got)
}
