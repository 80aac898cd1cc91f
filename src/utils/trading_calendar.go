package utils

import (
	"strings"
	"sync"
	"time"

	"github.com/scmhub/calendar"
)

// suffix -> ISO 10383 MIC, see scmhub/calendar for the supported set
var micBySuffix = map[string]string{
	".L":  "xlon",
	".PA": "xpar",
	".DE": "xfra",
	".AS": "xams",
	".BR": "xbru",
	".MI": "xmil",
	".MC": "xmad",
	".ST": "xsto",
	".CO": "xcse",
	".HE": "xhel",
	".VI": "xwbo",
	".SW": "xswx",
	".TO": "xtse",
	".V":  "xtsx",
	".T":  "xtks",
	".HK": "xhkg",
	".AX": "xasx",
	".KS": "xkrx",
	".TW": "xtai",
	".SS": "xshg",
	".SZ": "xshe",
}

const defaultMIC = "xnys"

var (
	calendarsMu sync.Mutex
	calendars   = map[string]*TradingCalendar{}
)

// TradingCalendar answers trading-day and session questions for one exchange.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// MICForSymbol picks the exchange by ticker suffix, NYSE when none matches.
func MICForSymbol(symbol string) string {
	if i := strings.LastIndex(symbol, "."); i > 0 {
		if mic, ok := micBySuffix[strings.ToUpper(symbol[i:])]; ok {
			return mic
		}
	}
	return defaultMIC
}

// GetCalendar returns the shared calendar for the symbol's exchange.
func GetCalendar(symbol string) *TradingCalendar {
	return GetCalendarForMIC(MICForSymbol(symbol))
}

// GetCalendarForMIC builds each calendar once; construction is not cheap.
func GetCalendarForMIC(mic string) *TradingCalendar {
	calendarsMu.Lock()
	defer calendarsMu.Unlock()

	if tc, ok := calendars[mic]; ok {
		return tc
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil && mic != defaultMIC {
		cal = calendar.GetCalendar(defaultMIC)
	}

	var tc *TradingCalendar
	if cal == nil {
		// Mon-Fri 09:30-16:00 New York
		nyLoc, err := time.LoadLocation("America/New_York")
		if err != nil {
			nyLoc = time.UTC
		}
		tc = &TradingCalendar{MIC: mic, Fallback: true, Timezone: nyLoc}
	} else {
		tc = &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
	}
	calendars[mic] = tc
	return tc
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpenOnMinute checks if the market is open at a specific minute.
func (tc *TradingCalendar) IsOpenOnMinute(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}
		minutes := t.Hour()*60 + t.Minute()
		return minutes >= 9*60+30 && minutes < 16*60
	}

	return tc.Calendar.IsOpen(t)
}

// -----------------------------------------------------------------------------

// PreviousTradingDays walks back from day (inclusive) and returns n trading
// days, newest first, as UTC midnights.
func (tc *TradingCalendar) PreviousTradingDays(day time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	// bounded so a broken calendar cannot spin forever
	for guard := 0; len(out) < n && guard < n*3+30; guard++ {
		// noon keeps the date stable after conversion to the exchange zone
		if tc.IsTradingDay(d.Add(12 * time.Hour)) {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, -1)
	}
	return out
}
