package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	datasource "market-relay/src/data_source"
	"market-relay/src/helpers"
	"market-relay/src/interfaces"
	"market-relay/src/logger"
	"market-relay/src/models"
)

const Name = "polygon"

// PolygonSource serves equity aggregates from /v2/aggs.
type PolygonSource struct {
	Config  models.MProviderConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
	Now     func() time.Time
}

func NewPolygonSource(cfg models.MProviderConfig, netMgr interfaces.INetworkManager) *PolygonSource {
	return &PolygonSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger(nil, "PolygonSource"),
		Now:     time.Now,
	}
}

func (s *PolygonSource) Name() string { return Name }

func (s *PolygonSource) Configured() bool { return s.Config.APIKey != "" }

// -----------------------------------------------------------------------------

type aggsResponse struct {
	Status       string `json:"status"`
	ResultsCount int    `json:"resultsCount"`
	Error        string `json:"error"`
	Results      []struct {
		T int64   `json:"t"` // ms
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"results"`
}

func (s *PolygonSource) FetchHistory(ctx context.Context, symbol string, timespan models.Timespan, limit int) ([]models.MHistoricalBar, error) {
	now := s.Now().UTC()
	from := now.Add(-datasource.Lookback(timespan, limit))

	endpoint := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/%s/%s/%s",
		strings.TrimRight(s.Config.BaseURL, "/"),
		url.PathEscape(symbol),
		timespan,
		from.Format(time.DateOnly),
		now.Format(time.DateOnly),
	)
	params := map[string]string{
		"adjusted": "true",
		"sort":     "asc",
		"limit":    "50000",
	}

	body, err := s.Network.Get(ctx, endpoint, params, map[string]string{"Authorization": "Bearer " + s.Config.APIKey})
	if err != nil {
		return nil, err
	}

	var resp aggsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.Malformed(Name, fmt.Errorf("json unmarshal failed: %w", err))
	}
	if resp.Status == "ERROR" || resp.Status == "NOT_AUTHORIZED" {
		return nil, helpers.NewUpstreamError(Name, helpers.UpstreamRejected, 0, fmt.Errorf("polygon status %s: %s", resp.Status, resp.Error))
	}

	bars := make([]models.MHistoricalBar, 0, len(resp.Results))
	for _, r := range resp.Results {
		bars = append(bars, models.MHistoricalBar{
			TimeSec: r.T / 1000,
			Open:    r.O,
			High:    r.H,
			Low:     r.L,
			Close:   r.C,
			Volume:  r.V,
		})
	}
	s.Logger.Debug("Fetched %s %s: %d bars", symbol, timespan, len(bars))
	return bars, nil
}
