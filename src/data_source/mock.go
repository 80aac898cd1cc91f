package datasource

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"

	"market-relay/src/models"
	"market-relay/src/symbols"
	"market-relay/src/utils"

	"github.com/shopspring/decimal"
)

// MockGenerator produces deterministic synthetic data, the last resort of every
// adapter. The same symbol and timespan always yield the same prices; only the
// timestamps follow the current UTC date.
type MockGenerator struct {
	now func() time.Time
}

func NewMockGenerator(now func() time.Time) *MockGenerator {
	if now == nil {
		now = time.Now
	}
	return &MockGenerator{now: now}
}

// -----------------------------------------------------------------------------

func seedOf(parts ...string) uint64 {
	h := fnv.New64a()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}

// profile returns the base price, per-day volatility, base volume and price
// decimals for a symbol.
func profile(symbol string, class models.AssetClass) (price, vol, volume float64, places int32) {
	u := float64(seedOf(symbol)%1_000_000) / 1_000_000
	switch class {
	case models.AssetCrypto:
		// log-uniform from 0.05 to 50k
		return 0.05 * math.Pow(10, u*6), 0.035, 2e7 + u*8e8, 6
	case models.AssetForex:
		price = 0.6 + u*1.2
		if _, quote, ok := symbols.ForexParts(symbol); ok {
			switch quote {
			case "JPY", "INR", "KRW":
				price *= 100
			case "MXN", "ZAR", "TRY", "SEK", "NOK", "HKD", "CNY", "BRL":
				price *= 10
			}
		}
		return price, 0.004, 0, 5
	default:
		return 20 + u*480, 0.015, 1e6 + u*5e7, 2
	}
}

func round(v float64, places int32) float64 {
	if v < 1 && places < 6 {
		places = 6
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// -----------------------------------------------------------------------------

// barTimes returns limit ascending bar open times ending at the current period.
func (g *MockGenerator) barTimes(symbol string, class models.AssetClass, timespan models.Timespan, limit int) []int64 {
	now := g.now().UTC()
	out := make([]int64, limit)

	if timespan == models.TimespanDay && class == models.AssetEquity {
		days := utils.GetCalendar(symbol).PreviousTradingDays(now, limit)
		for i, d := range days {
			out[len(days)-1-i] = d.Unix()
		}
		return out[:len(days)]
	}

	var anchor time.Time
	switch timespan {
	case models.TimespanMinute:
		anchor = now.Truncate(time.Minute)
	case models.TimespanHour:
		anchor = now.Truncate(time.Hour)
	case models.TimespanWeek:
		anchor = periodStart(now.Unix(), models.TimespanWeek)
	case models.TimespanMonth:
		anchor = periodStart(now.Unix(), models.TimespanMonth)
	default:
		anchor = dayOf(now.Unix())
	}

	for i := 0; i < limit; i++ {
		back := limit - 1 - i
		var t time.Time
		switch timespan {
		case models.TimespanMonth:
			t = anchor.AddDate(0, -back, 0)
		case models.TimespanWeek:
			t = anchor.AddDate(0, 0, -7*back)
		default:
			t = anchor.Add(-time.Duration(back) * timespan.Duration())
		}
		out[i] = t.Unix()
	}
	return out
}

// -----------------------------------------------------------------------------

// History returns limit synthetic bars for symbol.
func (g *MockGenerator) History(symbol string, timespan models.Timespan, limit int) []models.MHistoricalBar {
	if limit <= 0 {
		limit = 30
	}
	class := symbols.Classify(symbol)
	price, vol, baseVolume, places := profile(symbol, class)
	vol *= math.Sqrt(float64(timespan.Duration()) / float64(24*time.Hour))

	rng := rand.New(rand.NewPCG(seedOf(symbol), seedOf(string(timespan))))
	times := g.barTimes(symbol, class, timespan, limit)

	bars := make([]models.MHistoricalBar, 0, len(times))
	prev := price
	for _, ts := range times {
		open := prev
		closeVal := open * (1 + rng.NormFloat64()*vol)
		if closeVal <= 0 {
			closeVal = open / 2
		}
		high := math.Max(open, closeVal) * (1 + math.Abs(rng.NormFloat64())*vol/2)
		low := math.Min(open, closeVal) * (1 - math.Abs(rng.NormFloat64())*vol/2)
		volume := 0.0
		if baseVolume > 0 {
			volume = math.Round(baseVolume * (0.5 + rng.Float64()))
		}

		bars = append(bars, models.MHistoricalBar{
			TimeSec: ts,
			Open:    round(open, places),
			High:    round(high, places),
			Low:     round(low, places),
			Close:   round(closeVal, places),
			Volume:  volume,
		})
		prev = closeVal
	}
	return bars
}

// -----------------------------------------------------------------------------

// Quote derives a quote from the last two synthetic daily bars.
func (g *MockGenerator) Quote(symbol string) models.MQuote {
	bars := g.History(symbol, models.TimespanDay, 2)
	return QuoteFromBars(symbol, bars, g.now(), "mock")
}

// QuoteFromBars builds a quote from the newest bar and the one before it.
func QuoteFromBars(symbol string, bars []models.MHistoricalBar, now time.Time, source string) models.MQuote {
	q := models.MQuote{
		Symbol:      symbol,
		TimestampMs: now.UnixMilli(),
		Name:        symbols.DisplayName(symbol),
		Source:      source,
	}
	if len(bars) == 0 {
		return q
	}
	last := bars[len(bars)-1]
	q.Price = last.Close
	q.Volume = last.Volume
	if len(bars) > 1 {
		prev := decimal.NewFromFloat(bars[len(bars)-2].Close)
		change := decimal.NewFromFloat(last.Close).Sub(prev)
		q.Change = change.Round(6).InexactFloat64()
		if !prev.IsZero() {
			q.ChangePercent = change.Div(prev).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
		}
	}
	return q
}

// -----------------------------------------------------------------------------

var (
	mockEconomicEvents = []struct{ country, event, impact string }{
		{"US", "Nonfarm Payrolls", "high"},
		{"US", "CPI YoY", "high"},
		{"US", "Initial Jobless Claims", "medium"},
		{"EU", "ECB Interest Rate Decision", "high"},
		{"GB", "GDP QoQ", "medium"},
		{"JP", "Tankan Manufacturing Index", "medium"},
		{"US", "Retail Sales MoM", "medium"},
		{"CN", "Industrial Production YoY", "low"},
	}
	mockEarningsTickers = []string{"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "TSLA", "JPM", "V", "NFLX", "ORCL", "AMD"}
	mockIPONames        = []string{"Northwind Robotics", "Blue Harbor Energy", "Quanta Bio", "Lumen Freight", "Atlas Payments"}
)

const maxMockCalendarDays = 92

// Calendar returns synthetic events for each weekday in [from, to].
func (g *MockGenerator) Calendar(kind models.CalendarKind, from, to time.Time) []models.MCalendarEvent {
	var out []models.MCalendarEvent
	d := dayOf(from.Unix())
	end := dayOf(to.Unix())
	for i := 0; !d.After(end) && i < maxMockCalendarDays; i++ {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, mockEventsFor(kind, d)...)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func mockEventsFor(kind models.CalendarKind, d time.Time) []models.MCalendarEvent {
	date := d.Format(time.DateOnly)
	rng := rand.New(rand.NewPCG(seedOf(string(kind), date), 7))
	ptr := func(v float64) *float64 { r := round(v, 2); return &r }

	switch kind {
	case models.CalendarEarnings:
		var out []models.MCalendarEvent
		for j := 0; j < 2; j++ {
			est := 0.2 + rng.Float64()*3
			out = append(out, models.MCalendarEvent{
				Kind:     kind,
				Date:     date,
				Time:     []string{"bmo", "amc"}[j],
				Symbol:   mockEarningsTickers[rng.IntN(len(mockEarningsTickers))],
				Estimate: ptr(est),
			})
		}
		return out
	case models.CalendarIPO:
		if d.Weekday() != time.Thursday {
			return nil
		}
		name := mockIPONames[rng.IntN(len(mockIPONames))]
		return []models.MCalendarEvent{{
			Kind:     kind,
			Date:     date,
			Name:     name,
			Symbol:   string([]rune(name)[:1]) + "IPO",
			Exchange: "NASDAQ",
			Price:    "18.00-21.00",
			Status:   "expected",
		}}
	default:
		ev := mockEconomicEvents[rng.IntN(len(mockEconomicEvents))]
		prev := rng.Float64() * 5
		return []models.MCalendarEvent{{
			Kind:     models.CalendarEconomic,
			Date:     date,
			Time:     "12:30:00",
			Name:     ev.event,
			Country:  ev.country,
			Impact:   ev.impact,
			Previous: ptr(prev),
			Estimate: ptr(prev + rng.NormFloat64()*0.3),
		}}
	}
}
