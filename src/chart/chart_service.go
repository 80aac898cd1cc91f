package chart

import (
	"context"
	"fmt"
	"strings"
	"time"

	datasource "market-relay/src/data_source"
	"market-relay/src/helpers"
	"market-relay/src/logger"
	"market-relay/src/models"
	"market-relay/src/symbols"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultLimit = 30
	MaxLimit     = 5000
)

// HistoryReader is satisfied by datasource.HistoryChain.
type HistoryReader interface {
	GetHistory(ctx context.Context, symbol string, timespan models.Timespan, limit int) []models.MHistoricalBar
}

// QuoteReader is satisfied by datasource.QuoteChain and ForexQuotes.
type QuoteReader interface {
	GetQuotes(ctx context.Context, symbols []string) map[string]models.MQuote
}

// -----------------------------------------------------------------------------

// rangeSpec is the timespan and bar count behind a chart range label.
type rangeSpec struct {
	Timespan models.Timespan
	Limit    int
}

var ranges = map[string]rangeSpec{
	"1D":  {models.TimespanHour, 24},
	"1W":  {models.TimespanDay, 7},
	"1M":  {models.TimespanDay, 30},
	"3M":  {models.TimespanDay, 90},
	"6M":  {models.TimespanDay, 180},
	"1Y":  {models.TimespanDay, 365},
	"5Y":  {models.TimespanWeek, 260},
	"MAX": {models.TimespanMonth, 240},
}

var intervals = map[string]models.Timespan{
	"1m":  models.TimespanMinute,
	"1h":  models.TimespanHour,
	"1d":  models.TimespanDay,
	"1w":  models.TimespanWeek,
	"1mo": models.TimespanMonth,
}

// Ranges lists the accepted range labels.
func Ranges() []string {
	return []string{"1D", "1W", "1M", "3M", "6M", "1Y", "5Y", "MAX"}
}

// -----------------------------------------------------------------------------

// ChartService merges a quote and a bar series for one symbol. It keeps no
// cache of its own; the chains it reads from do.
type ChartService struct {
	EquityHistory HistoryReader
	CryptoHistory HistoryReader
	ForexHistory  HistoryReader
	EquityQuotes  QuoteReader
	CryptoQuotes  QuoteReader
	ForexQuotes   QuoteReader
	Logger        *logger.Logger
}

// NewChartService wires the service to the chains registered in reg.
func NewChartService(reg *datasource.Registry, log *logger.Logger) (*ChartService, error) {
	eqHist, err := reg.HistoryChain(datasource.CapEquityHistory)
	if err != nil {
		return nil, err
	}
	crHist, err := reg.HistoryChain(datasource.CapCryptoHistory)
	if err != nil {
		return nil, err
	}
	fxHist, err := reg.HistoryChain(datasource.CapForexHistory)
	if err != nil {
		return nil, err
	}
	eqQuotes, err := reg.QuoteChain(datasource.CapEquityQuote)
	if err != nil {
		return nil, err
	}
	crQuotes, err := reg.QuoteChain(datasource.CapCryptoQuote)
	if err != nil {
		return nil, err
	}

	return &ChartService{
		EquityHistory: eqHist,
		CryptoHistory: crHist,
		ForexHistory:  fxHist,
		EquityQuotes:  eqQuotes,
		CryptoQuotes:  crQuotes,
		ForexQuotes:   NewForexQuotes(fxHist, time.Now),
		Logger:        log,
	}, nil
}

// -----------------------------------------------------------------------------

func (s *ChartService) readers(class models.AssetClass) (HistoryReader, QuoteReader) {
	switch class {
	case models.AssetCrypto:
		return s.CryptoHistory, s.CryptoQuotes
	case models.AssetForex:
		return s.ForexHistory, s.ForexQuotes
	default:
		return s.EquityHistory, s.EquityQuotes
	}
}

// QuoteFetcher returns the reader behind a broadcast channel.
func (s *ChartService) QuoteFetcher(ch models.Channel) QuoteReader {
	switch ch {
	case models.ChannelCrypto:
		return s.CryptoQuotes
	case models.ChannelCurrencies:
		return s.ForexQuotes
	default:
		return s.EquityQuotes
	}
}

// -----------------------------------------------------------------------------

// GetChartData classifies the symbol and reads its quote and bars in
// parallel. Only invalid input produces an error.
func (s *ChartService) GetChartData(ctx context.Context, req models.MChartRequest) (*models.MChartData, error) {
	symbol, err := symbols.Normalize(req.Symbol)
	if err != nil {
		return nil, err
	}

	timespan := req.Timespan
	if timespan == "" {
		timespan = models.TimespanDay
	}
	if _, ok := models.ParseTimespan(string(timespan)); !ok {
		return nil, helpers.NewValidationError(helpers.ErrInvalidRange, fmt.Sprintf("unknown timespan %q", req.Timespan))
	}
	limit := req.Limit
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return nil, helpers.NewValidationError(helpers.ErrInvalidRange, fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}

	class := symbols.Classify(symbol)
	history, quotes := s.readers(class)

	var (
		bars  []models.MHistoricalBar
		quote models.MQuote
	)

	// Both reads degrade on their own and never fail, so the group only joins.
	var g errgroup.Group
	g.Go(func() error {
		bars = history.GetHistory(ctx, symbol, timespan, limit)
		return nil
	})
	g.Go(func() error {
		quote = quotes.GetQuotes(ctx, []string{symbol})[symbol]
		return nil
	})
	_ = g.Wait()

	out := &models.MChartData{
		Symbol:     symbol,
		AssetClass: class,
		Timespan:   timespan,
		Bars:       bars,
		Name:       symbols.DisplayName(symbol),
	}
	if out.Bars == nil {
		out.Bars = []models.MHistoricalBar{}
	}
	if quote.Valid() {
		out.Quote = &quote
		if quote.Name != "" {
			out.Name = quote.Name
		}
	}
	s.Logger.Debug("Chart %s %s/%d: %d bars, quote=%t", symbol, timespan, limit, len(out.Bars), out.Quote != nil)
	return out, nil
}

// GetQuote returns the current quote for one symbol from its class chain.
func (s *ChartService) GetQuote(ctx context.Context, symbol string) (models.MQuote, error) {
	sym, err := symbols.Normalize(symbol)
	if err != nil {
		return models.MQuote{}, err
	}
	_, quotes := s.readers(symbols.Classify(sym))
	q := quotes.GetQuotes(ctx, []string{sym})[sym]
	if q.Symbol == "" {
		q.Symbol = sym
	}
	return q, nil
}

// GetChartDataForRange maps a range label such as 1M or 5Y to a request.
func (s *ChartService) GetChartDataForRange(ctx context.Context, symbol, rangeLabel string) (*models.MChartData, error) {
	spec, ok := ranges[strings.ToUpper(strings.TrimSpace(rangeLabel))]
	if !ok {
		return nil, helpers.NewValidationError(helpers.ErrInvalidRange, fmt.Sprintf("unknown range %q", rangeLabel))
	}
	return s.GetChartData(ctx, models.MChartRequest{Symbol: symbol, Timespan: spec.Timespan, Limit: spec.Limit})
}

// GetForexChart is the forex entry point; it takes a bar interval (1m, 1h,
// 1d, 1w, 1mo) instead of a range and rejects anything that is not a pair.
func (s *ChartService) GetForexChart(ctx context.Context, pair, interval string, limit int) (*models.MChartData, error) {
	if interval == "" {
		interval = "1d"
	}
	timespan, ok := intervals[strings.TrimSpace(interval)]
	if !ok {
		return nil, helpers.NewValidationError(helpers.ErrInvalidRange, fmt.Sprintf("unknown interval %q", interval))
	}
	symbol, err := symbols.Normalize(pair)
	if err != nil {
		return nil, err
	}
	if symbols.Classify(symbol) != models.AssetForex {
		return nil, helpers.NewValidationError(helpers.ErrInvalidSymbol, fmt.Sprintf("%q is not a currency pair", pair))
	}
	return s.GetChartData(ctx, models.MChartRequest{Symbol: symbol, Timespan: timespan, Limit: limit})
}
