package alpaca

import (
	"context"
	"fmt"
	"time"

	datasource "market-relay/src/data_source"
	"market-relay/src/helpers"
	"market-relay/src/logger"
	"market-relay/src/models"
	"market-relay/src/symbols"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

const Name = "alpaca"

// BarsClient is the subset of *marketdata.Client used here.
type BarsClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
	GetCryptoBars(symbol string, req marketdata.GetCryptoBarsRequest) ([]marketdata.CryptoBar, error)
	GetSnapshots(symbols []string, req marketdata.GetSnapshotRequest) (map[string]*marketdata.Snapshot, error)
}

// AlpacaSource serves equity and crypto bars plus equity snapshots through the
// Alpaca market data SDK. The SDK does not take a context, so each call is
// raced against the caller's.
type AlpacaSource struct {
	Config models.MProviderConfig
	Client BarsClient
	Logger *logger.Logger
	Now    func() time.Time
}

func NewAlpacaSource(cfg models.MProviderConfig) *AlpacaSource {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	return &AlpacaSource{
		Config: cfg,
		Client: marketdata.NewClient(opts),
		Logger: logger.NewLogger(nil, "AlpacaSource"),
		Now:    time.Now,
	}
}

func (s *AlpacaSource) Name() string { return Name }

func (s *AlpacaSource) Configured() bool {
	return s.Config.APIKey != "" && s.Config.APISecret != ""
}

// -----------------------------------------------------------------------------

func timeFrame(timespan models.Timespan) marketdata.TimeFrame {
	switch timespan {
	case models.TimespanMinute:
		return marketdata.OneMin
	case models.TimespanHour:
		return marketdata.OneHour
	case models.TimespanWeek:
		return marketdata.NewTimeFrame(1, marketdata.Week)
	case models.TimespanMonth:
		return marketdata.NewTimeFrame(1, marketdata.Month)
	default:
		return marketdata.OneDay
	}
}

// cryptoPair maps BTC to Alpaca's BTC/USD notation.
func cryptoPair(symbol string) string {
	return symbol + "/USD"
}

func unavailable(err error) error {
	return helpers.NewUpstreamError(Name, helpers.UpstreamUnavailable, 0, err)
}

// -----------------------------------------------------------------------------

func (s *AlpacaSource) FetchHistory(ctx context.Context, symbol string, timespan models.Timespan, limit int) ([]models.MHistoricalBar, error) {
	end := s.Now().UTC()
	start := end.Add(-datasource.Lookback(timespan, limit))

	switch symbols.Classify(symbol) {
	case models.AssetCrypto:
		raw, err := helpers.CallWithContext(ctx, func() ([]marketdata.CryptoBar, error) {
			return s.Client.GetCryptoBars(cryptoPair(symbol), marketdata.GetCryptoBarsRequest{
				TimeFrame: timeFrame(timespan),
				Start:     start,
				End:       end,
			})
		})
		if err != nil {
			return nil, unavailable(err)
		}
		bars := make([]models.MHistoricalBar, 0, len(raw))
		for _, b := range raw {
			bars = append(bars, models.MHistoricalBar{
				TimeSec: b.Timestamp.Unix(),
				Open:    b.Open,
				High:    b.High,
				Low:     b.Low,
				Close:   b.Close,
				Volume:  b.Volume,
			})
		}
		return bars, nil

	case models.AssetEquity:
		raw, err := helpers.CallWithContext(ctx, func() ([]marketdata.Bar, error) {
			return s.Client.GetBars(symbol, marketdata.GetBarsRequest{
				TimeFrame:  timeFrame(timespan),
				Adjustment: marketdata.Split,
				Start:      start,
				End:        end,
				Feed:       marketdata.IEX,
			})
		})
		if err != nil {
			return nil, unavailable(err)
		}
		bars := make([]models.MHistoricalBar, 0, len(raw))
		for _, b := range raw {
			bars = append(bars, models.MHistoricalBar{
				TimeSec: b.Timestamp.Unix(),
				Open:    b.Open,
				High:    b.High,
				Low:     b.Low,
				Close:   b.Close,
				Volume:  float64(b.Volume),
			})
		}
		return bars, nil
	}

	return nil, helpers.NewUpstreamError(Name, helpers.UpstreamRejected, 0, fmt.Errorf("%s: forex is not offered", symbol))
}

// -----------------------------------------------------------------------------

func (s *AlpacaSource) FetchQuote(ctx context.Context, symbol string) (models.MQuote, error) {
	quotes, err := s.FetchQuotes(ctx, []string{symbol})
	if err != nil {
		return models.MQuote{}, err
	}
	q, ok := quotes[symbol]
	if !ok {
		return models.MQuote{}, helpers.Malformed(Name, helpers.ErrEmptyResult)
	}
	return q, nil
}

// FetchQuotes turns equity snapshots into quotes: the latest trade against the
// previous daily close.
func (s *AlpacaSource) FetchQuotes(ctx context.Context, syms []string) (map[string]models.MQuote, error) {
	snaps, err := helpers.CallWithContext(ctx, func() (map[string]*marketdata.Snapshot, error) {
		return s.Client.GetSnapshots(syms, marketdata.GetSnapshotRequest{Feed: marketdata.IEX})
	})
	if err != nil {
		return nil, unavailable(err)
	}

	out := make(map[string]models.MQuote, len(snaps))
	for _, sym := range syms {
		snap, ok := snaps[sym]
		if !ok || snap == nil {
			continue
		}

		q := models.MQuote{Symbol: sym, Source: Name}
		switch {
		case snap.LatestTrade != nil:
			q.Price = snap.LatestTrade.Price
			q.TimestampMs = snap.LatestTrade.Timestamp.UnixMilli()
		case snap.DailyBar != nil:
			q.Price = snap.DailyBar.Close
			q.TimestampMs = snap.DailyBar.Timestamp.UnixMilli()
		}
		if snap.DailyBar != nil {
			q.Volume = float64(snap.DailyBar.Volume)
		}
		if snap.PrevDailyBar != nil && snap.PrevDailyBar.Close > 0 {
			q.Change = q.Price - snap.PrevDailyBar.Close
			q.ChangePercent = q.Change / snap.PrevDailyBar.Close * 100
		}
		if q.Price > 0 {
			out[sym] = q
		}
	}
	return out, nil
}
