package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	datasource "market-relay/src/data_source"
	"market-relay/src/helpers"
	"market-relay/src/interfaces"
	"market-relay/src/logger"
	"market-relay/src/models"
	"market-relay/src/symbols"
)

const Name = "yahoo"

// Yahoo only serves 1m bars for the last week and 60m bars for about two years.
const (
	maxMinuteLookback = 6 * 24 * time.Hour
	maxHourLookback   = 700 * 24 * time.Hour
)

// YahooFinanceSource serves history from the v8 chart endpoint for every asset
// class and batched quotes through finance-go.
type YahooFinanceSource struct {
	Config  models.MProviderConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
	Now     func() time.Time

	// Lister resolves quotes for Yahoo tickers; replaced in tests.
	Lister QuoteLister
}

func NewYahooFinanceSource(cfg models.MProviderConfig, netMgr interfaces.INetworkManager) *YahooFinanceSource {
	return &YahooFinanceSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger(nil, "YahooFinanceSource"),
		Now:     time.Now,
		Lister:  FinanceGoLister,
	}
}

func (s *YahooFinanceSource) Name() string {
	return Name
}

// -----------------------------------------------------------------------------

// Ticker maps a normalized symbol to Yahoo's notation.
func Ticker(symbol string) string {
	switch symbols.Classify(symbol) {
	case models.AssetCrypto:
		return symbol + "-USD"
	case models.AssetForex:
		return symbol + "=X"
	default:
		return symbol
	}
}

func chartInterval(timespan models.Timespan) string {
	switch timespan {
	case models.TimespanMinute:
		return "1m"
	case models.TimespanHour:
		return "60m"
	case models.TimespanWeek:
		return "1wk"
	case models.TimespanMonth:
		return "1mo"
	default:
		return "1d"
	}
}

// -----------------------------------------------------------------------------

// FetchHistory fetches chart bars covering at least limit periods.
func (s *YahooFinanceSource) FetchHistory(ctx context.Context, symbol string, timespan models.Timespan, limit int) ([]models.MHistoricalBar, error) {
	now := s.Now().UTC()
	lookback := datasource.Lookback(timespan, limit)
	switch timespan {
	case models.TimespanMinute:
		lookback = min(lookback, maxMinuteLookback)
	case models.TimespanHour:
		lookback = min(lookback, maxHourLookback)
	}

	params := map[string]string{
		"interval":       chartInterval(timespan),
		"period1":        strconv.FormatInt(now.Add(-lookback).Unix(), 10),
		"period2":        strconv.FormatInt(now.Unix(), 10),
		"includePrePost": "false",
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", strings.TrimRight(s.Config.BaseURL, "/"), url.PathEscape(Ticker(symbol)))

	respBytes, err := s.Network.Get(ctx, endpoint, params, nil)
	if err != nil {
		return nil, fmt.Errorf("network error for %s: %w", symbol, err)
	}

	return s.parseChartResponse(symbol, respBytes)
}

// -----------------------------------------------------------------------------

type YahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Currency           string  `json:"currency"`
				Symbol             string  `json:"symbol"`
				ExchangeName       string  `json:"exchangeName"`
				InstrumentType     string  `json:"instrumentType"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				Timezone           string  `json:"timezone"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				DataGranularity    string  `json:"dataGranularity"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					High   []*float64 `json:"high"`   // Use pointers to handle null
					Low    []*float64 `json:"low"`    // Use pointers to handle null
					Open   []*float64 `json:"open"`   // Use pointers to handle null
					Close  []*float64 `json:"close"`  // Use pointers to handle null
					Volume []*float64 `json:"volume"` // Use pointers to handle null
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) parseChartResponse(symbol string, data []byte) ([]models.MHistoricalBar, error) {
	var resp YahooChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, helpers.Malformed(Name, fmt.Errorf("json unmarshal failed: %w", err))
	}

	if resp.Chart.Error != nil {
		return nil, helpers.NewUpstreamError(Name, helpers.UpstreamRejected, 0,
			fmt.Errorf("yahoo api error: %s - %s", resp.Chart.Error.Code, resp.Chart.Error.Description))
	}

	if len(resp.Chart.Result) == 0 {
		return nil, helpers.Malformed(Name, fmt.Errorf("no result in response for %s", symbol))
	}

	result := resp.Chart.Result[0]
	indicators := result.Indicators.Quote
	if len(result.Timestamp) == 0 || len(indicators) == 0 {
		return nil, helpers.Malformed(Name, fmt.Errorf("no quote data in response for %s: %w", symbol, helpers.ErrEmptyResult))
	}

	quote := indicators[0]

	// 1. Validation: alignment check
	n := len(result.Timestamp)
	if n != len(quote.Close) || n != len(quote.Open) || n != len(quote.High) || n != len(quote.Low) {
		s.Logger.Info("Data alignment error for %s: Mismatched array lengths", symbol)
		return nil, helpers.Malformed(Name, fmt.Errorf("data alignment error for %s", symbol))
	}

	// 2. Build bars, skipping incomplete points
	bars := make([]models.MHistoricalBar, 0, n)
	skipped := 0
	for i, ts := range result.Timestamp {
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			skipped++
			continue
		}

		// FX series report no volume at all.
		volume := 0.0
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}

		if *quote.Close[i] <= 0 || volume < 0 {
			skipped++
			continue
		}

		bars = append(bars, models.MHistoricalBar{
			TimeSec: ts,
			Open:    *quote.Open[i],
			High:    *quote.High[i],
			Low:     *quote.Low[i],
			Close:   *quote.Close[i],
			Volume:  volume,
		})
	}

	if len(bars) == 0 {
		return nil, helpers.Malformed(Name, fmt.Errorf("no valid data points for %s: %w", symbol, helpers.ErrEmptyResult))
	}

	s.Logger.Debug("Fetched %s: %d valid points, %d skipped [%d -> %d]", symbol, len(bars), skipped, bars[0].TimeSec, bars[len(bars)-1].TimeSec)
	return bars, nil
}
