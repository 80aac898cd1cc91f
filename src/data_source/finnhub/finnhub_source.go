package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"market-relay/src/helpers"
	"market-relay/src/interfaces"
	"market-relay/src/logger"
	"market-relay/src/models"
	"market-relay/src/symbols"
)

const Name = "finnhub"

// FinnhubSource serves equity quotes and the economic, earnings and IPO
// calendars. Every method performs exactly one upstream call.
type FinnhubSource struct {
	Config  models.MProviderConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
	Now     func() time.Time
}

func NewFinnhubSource(cfg models.MProviderConfig, netMgr interfaces.INetworkManager) *FinnhubSource {
	return &FinnhubSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  logger.NewLogger(nil, "FinnhubSource"),
		Now:     time.Now,
	}
}

func (s *FinnhubSource) Name() string { return Name }

func (s *FinnhubSource) Configured() bool { return s.Config.APIKey != "" }

// -----------------------------------------------------------------------------

func (s *FinnhubSource) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	url := strings.TrimRight(s.Config.BaseURL, "/") + path
	body, err := s.Network.Get(ctx, url, params, map[string]string{"X-Finnhub-Token": s.Config.APIKey})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return helpers.Malformed(Name, fmt.Errorf("json unmarshal failed: %w", err))
	}
	return nil
}

// -----------------------------------------------------------------------------

type quoteResponse struct {
	Current       float64  `json:"c"`
	Change        *float64 `json:"d"`
	PercentChange *float64 `json:"dp"`
	High          float64  `json:"h"`
	Low           float64  `json:"l"`
	Open          float64  `json:"o"`
	PrevClose     float64  `json:"pc"`
	Timestamp     int64    `json:"t"`
}

func (s *FinnhubSource) FetchQuote(ctx context.Context, symbol string) (models.MQuote, error) {
	var resp quoteResponse
	if err := s.get(ctx, "/quote", map[string]string{"symbol": symbol}, &resp); err != nil {
		return models.MQuote{}, err
	}

	// Unknown symbols come back as an all-zero object.
	if resp.Current <= 0 || resp.Timestamp == 0 {
		return models.MQuote{}, helpers.Malformed(Name, fmt.Errorf("no quote for %s: %w", symbol, helpers.ErrEmptyResult))
	}

	q := models.MQuote{
		Symbol:      symbol,
		Price:       resp.Current,
		TimestampMs: resp.Timestamp * 1000,
		Name:        symbols.DisplayName(symbol),
		Source:      Name,
	}
	if resp.Change != nil {
		q.Change = *resp.Change
	} else if resp.PrevClose > 0 {
		q.Change = resp.Current - resp.PrevClose
	}
	if resp.PercentChange != nil {
		q.ChangePercent = *resp.PercentChange
	} else if resp.PrevClose > 0 {
		q.ChangePercent = q.Change / resp.PrevClose * 100
	}
	return q, nil
}

// -----------------------------------------------------------------------------

type economicResponse struct {
	EconomicCalendar []struct {
		Actual   *float64 `json:"actual"`
		Country  string   `json:"country"`
		Estimate *float64 `json:"estimate"`
		Event    string   `json:"event"`
		Impact   string   `json:"impact"`
		Prev     *float64 `json:"prev"`
		Time     string   `json:"time"`
	} `json:"economicCalendar"`
}

type earningsResponse struct {
	EarningsCalendar []struct {
		Date        string   `json:"date"`
		EpsActual   *float64 `json:"epsActual"`
		EpsEstimate *float64 `json:"epsEstimate"`
		Hour        string   `json:"hour"`
		Symbol      string   `json:"symbol"`
	} `json:"earningsCalendar"`
}

type ipoResponse struct {
	IPOCalendar []struct {
		Date     string `json:"date"`
		Exchange string `json:"exchange"`
		Name     string `json:"name"`
		Price    string `json:"price"`
		Status   string `json:"status"`
		Symbol   string `json:"symbol"`
	} `json:"ipoCalendar"`
}

func (s *FinnhubSource) FetchCalendar(ctx context.Context, kind models.CalendarKind, from, to time.Time) ([]models.MCalendarEvent, error) {
	params := map[string]string{
		"from": from.UTC().Format(time.DateOnly),
		"to":   to.UTC().Format(time.DateOnly),
	}

	switch kind {
	case models.CalendarEconomic:
		var resp economicResponse
		if err := s.get(ctx, "/calendar/economic", params, &resp); err != nil {
			return nil, err
		}
		out := make([]models.MCalendarEvent, 0, len(resp.EconomicCalendar))
		for _, e := range resp.EconomicCalendar {
			date, clock := splitTimestamp(e.Time)
			out = append(out, models.MCalendarEvent{
				Kind:     kind,
				Date:     date,
				Time:     clock,
				Name:     e.Event,
				Country:  e.Country,
				Impact:   e.Impact,
				Actual:   e.Actual,
				Estimate: e.Estimate,
				Previous: e.Prev,
			})
		}
		return out, nil

	case models.CalendarEarnings:
		var resp earningsResponse
		if err := s.get(ctx, "/calendar/earnings", params, &resp); err != nil {
			return nil, err
		}
		out := make([]models.MCalendarEvent, 0, len(resp.EarningsCalendar))
		for _, e := range resp.EarningsCalendar {
			out = append(out, models.MCalendarEvent{
				Kind:     kind,
				Date:     e.Date,
				Time:     e.Hour,
				Symbol:   e.Symbol,
				Actual:   e.EpsActual,
				Estimate: e.EpsEstimate,
			})
		}
		return out, nil

	case models.CalendarIPO:
		var resp ipoResponse
		if err := s.get(ctx, "/calendar/ipo", params, &resp); err != nil {
			return nil, err
		}
		out := make([]models.MCalendarEvent, 0, len(resp.IPOCalendar))
		for _, e := range resp.IPOCalendar {
			out = append(out, models.MCalendarEvent{
				Kind:     kind,
				Date:     e.Date,
				Symbol:   e.Symbol,
				Name:     e.Name,
				Exchange: e.Exchange,
				Price:    e.Price,
				Status:   e.Status,
			})
		}
		return out, nil
	}

	return nil, helpers.NewUpstreamError(Name, helpers.UpstreamRejected, 0, fmt.Errorf("unsupported calendar %q", kind))
}

// splitTimestamp turns "2026-03-18 12:30:00" into its date and clock parts.
func splitTimestamp(ts string) (string, string) {
	date, clock, _ := strings.Cut(ts, " ")
	return date, clock
}
