package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
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

const Name = "coingecko"

// maxHourlyDays is the widest market_chart window that still returns hourly points.
const maxHourlyDays = 90

// CoinGeckoSource serves batched crypto quotes from /simple/price and crypto
// history from /coins/{id}/market_chart. The API key is optional.
type CoinGeckoSource struct {
	Config  models.MProviderConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

func NewCoinGeckoSource(cfg models.MProviderConfig, netMgr interfaces.INetworkManager) *CoinGeckoSource {
	return &CoinGeckoSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger(nil, "CoinGeckoSource"),
	}
}

func (s *CoinGeckoSource) Name() string { return Name }

// -----------------------------------------------------------------------------

func (s *CoinGeckoSource) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	headers := map[string]string{}
	if s.Config.APIKey != "" {
		headers["x-cg-demo-api-key"] = s.Config.APIKey
	}
	body, err := s.Network.Get(ctx, strings.TrimRight(s.Config.BaseURL, "/")+path, params, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return helpers.Malformed(Name, fmt.Errorf("json unmarshal failed: %w", err))
	}
	return nil
}

func coinID(symbol string) (string, error) {
	a, ok := symbols.Crypto(symbol)
	if !ok {
		return "", helpers.NewUpstreamError(Name, helpers.UpstreamRejected, 0, fmt.Errorf("%s: %w", symbol, helpers.ErrInvalidSymbol))
	}
	return a.CoinGeckoID, nil
}

// -----------------------------------------------------------------------------

type simplePrice struct {
	USD       float64 `json:"usd"`
	Change24h float64 `json:"usd_24h_change"`
	Vol24h    float64 `json:"usd_24h_vol"`
	UpdatedAt int64   `json:"last_updated_at"`
}

func (s *CoinGeckoSource) FetchQuote(ctx context.Context, symbol string) (models.MQuote, error) {
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

// FetchQuotes resolves every known symbol in one /simple/price call.
func (s *CoinGeckoSource) FetchQuotes(ctx context.Context, syms []string) (map[string]models.MQuote, error) {
	ids := make([]string, 0, len(syms))
	bySymbol := make(map[string]string, len(syms))
	for _, sym := range syms {
		id, err := coinID(sym)
		if err != nil {
			s.Logger.Debug("Skipping %s: not a listed asset", sym)
			continue
		}
		ids = append(ids, id)
		bySymbol[sym] = id
	}
	if len(ids) == 0 {
		return map[string]models.MQuote{}, nil
	}

	params := map[string]string{
		"ids":                     strings.Join(ids, ","),
		"vs_currencies":           "usd",
		"include_24hr_change":     "true",
		"include_24hr_vol":        "true",
		"include_last_updated_at": "true",
	}
	var resp map[string]simplePrice
	if err := s.get(ctx, "/simple/price", params, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]models.MQuote, len(bySymbol))
	for sym, id := range bySymbol {
		p, ok := resp[id]
		if !ok || p.USD <= 0 {
			continue
		}
		prev := p.USD / (1 + p.Change24h/100)
		out[sym] = models.MQuote{
			Symbol:        sym,
			Price:         p.USD,
			Change:        p.USD - prev,
			ChangePercent: p.Change24h,
			Volume:        p.Vol24h,
			TimestampMs:   p.UpdatedAt * 1000,
			Name:          symbols.DisplayName(sym),
			Source:        Name,
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

type marketChart struct {
	Prices       [][2]float64 `json:"prices"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// FetchHistory builds bars from the market_chart price series: each bar opens
// at the previous point and closes at its own. Weekly and monthly bars are
// resampled from daily ones. Minute bars are not offered.
func (s *CoinGeckoSource) FetchHistory(ctx context.Context, symbol string, timespan models.Timespan, limit int) ([]models.MHistoricalBar, error) {
	if timespan == models.TimespanMinute {
		return nil, helpers.NewUpstreamError(Name, helpers.UpstreamRejected, 0, fmt.Errorf("timespan %s not supported", timespan))
	}
	id, err := coinID(symbol)
	if err != nil {
		return nil, err
	}

	params := map[string]string{"vs_currency": "usd"}
	if timespan == models.TimespanHour {
		days := int(math.Ceil(float64(limit+1) / 24))
		params["days"] = strconv.Itoa(min(max(days, 2), maxHourlyDays))
	} else {
		params["days"] = strconv.Itoa(datasource.DailyBarsNeeded(timespan, limit) + 1)
		params["interval"] = "daily"
	}

	var resp marketChart
	if err := s.get(ctx, "/coins/"+id+"/market_chart", params, &resp); err != nil {
		return nil, err
	}

	bars := chartBars(resp, timespan)
	if timespan == models.TimespanWeek || timespan == models.TimespanMonth {
		bars = datasource.Resample(datasource.NormalizeBars(bars, models.TimespanDay, 0), timespan)
	}
	return bars, nil
}

func chartBars(resp marketChart, timespan models.Timespan) []models.MHistoricalBar {
	vols := make(map[int64]float64, len(resp.TotalVolumes))
	for _, v := range resp.TotalVolumes {
		vols[int64(v[0])] = v[1]
	}

	bucket := int64(timespan.Duration() / time.Second)
	if timespan == models.TimespanWeek || timespan == models.TimespanMonth {
		bucket = 86400
	}

	bars := make([]models.MHistoricalBar, 0, len(resp.Prices))
	for i, p := range resp.Prices {
		if i == 0 {
			continue
		}
		open := resp.Prices[i-1][1]
		closeVal := p[1]
		sec := int64(p[0]) / 1000
		bars = append(bars, models.MHistoricalBar{
			TimeSec: sec - sec%bucket,
			Open:    open,
			High:    math.Max(open, closeVal),
			Low:     math.Min(open, closeVal),
			Close:   closeVal,
			Volume:  vols[int64(p[0])],
		})
	}
	return bars
}
