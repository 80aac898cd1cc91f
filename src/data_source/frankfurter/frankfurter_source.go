package frankfurter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	datasource "market-relay/src/data_source"
	"market-relay/src/helpers"
	"market-relay/src/interfaces"
	"market-relay/src/logger"
	"market-relay/src/models"
	"market-relay/src/symbols"
)

const Name = "frankfurter"

// FrankfurterSource serves ECB reference rates. There is one fixing per
// business day, so every bar has open, high, low and close equal to the rate.
type FrankfurterSource struct {
	Config  models.MProviderConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
	Now     func() time.Time
}

func NewFrankfurterSource(cfg models.MProviderConfig, netMgr interfaces.INetworkManager) *FrankfurterSource {
	return &FrankfurterSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger(nil, "FrankfurterSource"),
		Now:     time.Now,
	}
}

func (s *FrankfurterSource) Name() string { return Name }

// -----------------------------------------------------------------------------

type timeSeriesResponse struct {
	Base  string                        `json:"base"`
	Rates map[string]map[string]float64 `json:"rates"`
}

func (s *FrankfurterSource) FetchHistory(ctx context.Context, pair string, timespan models.Timespan, limit int) ([]models.MHistoricalBar, error) {
	if timespan.Intraday() {
		return nil, helpers.NewUpstreamError(Name, helpers.UpstreamRejected, 0, fmt.Errorf("timespan %s not supported", timespan))
	}
	base, quote, ok := symbols.ForexParts(pair)
	if !ok {
		return nil, helpers.NewUpstreamError(Name, helpers.UpstreamRejected, 0, fmt.Errorf("%s: %w", pair, helpers.ErrInvalidSymbol))
	}

	now := s.Now().UTC()
	from := now.Add(-datasource.Lookback(models.TimespanDay, datasource.DailyBarsNeeded(timespan, limit)))
	endpoint := fmt.Sprintf("%s/%s..%s", strings.TrimRight(s.Config.BaseURL, "/"), from.Format(time.DateOnly), now.Format(time.DateOnly))

	body, err := s.Network.Get(ctx, endpoint, map[string]string{"from": base, "to": quote}, nil)
	if err != nil {
		return nil, err
	}

	var resp timeSeriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.Malformed(Name, fmt.Errorf("json unmarshal failed: %w", err))
	}

	bars := make([]models.MHistoricalBar, 0, len(resp.Rates))
	for date, rates := range resp.Rates {
		rate, ok := rates[quote]
		if !ok {
			continue
		}
		d, err := time.Parse(time.DateOnly, date)
		if err != nil {
			s.Logger.Debug("Skipping unparsable date %q", date)
			continue
		}
		bars = append(bars, models.MHistoricalBar{TimeSec: d.Unix(), Open: rate, High: rate, Low: rate, Close: rate})
	}

	if timespan == models.TimespanWeek || timespan == models.TimespanMonth {
		bars = datasource.Resample(datasource.NormalizeBars(bars, models.TimespanDay, 0), timespan)
	}
	return bars, nil
}
