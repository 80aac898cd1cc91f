package datasource

import (
	"sort"
	"time"

	"market-relay/src/models"
)

// StalenessDays is how old, in calendar days, the newest bar of a cached
// daily or intraday series may be before the series is refetched.
const StalenessDays = 3

// -----------------------------------------------------------------------------

// NormalizeBars drops unusable bars, sorts ascending, removes duplicates and
// keeps the limit most recent. Daily and longer series are deduplicated by UTC
// calendar date, intraday series by timestamp; the later bar of a pair wins.
func NormalizeBars(bars []models.MHistoricalBar, timespan models.Timespan, limit int) []models.MHistoricalBar {
	out := make([]models.MHistoricalBar, 0, len(bars))
	for _, b := range bars {
		if b.TimeSec <= 0 || b.Close <= 0 {
			continue
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].TimeSec < out[j].TimeSec })

	dedupKey := func(b models.MHistoricalBar) int64 {
		if timespan.Intraday() {
			return b.TimeSec
		}
		return dayOf(b.TimeSec).Unix()
	}

	deduped := out[:0]
	for _, b := range out {
		if n := len(deduped); n > 0 && dedupKey(deduped[n-1]) == dedupKey(b) {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}

	if limit > 0 && len(deduped) > limit {
		deduped = deduped[len(deduped)-limit:]
	}
	return deduped
}

// -----------------------------------------------------------------------------

// IsStale reports whether a daily or intraday series has fallen behind: its
// newest bar is dated more than StalenessDays calendar days before now.
// Weekly and monthly series are never stale by this rule.
func IsStale(bars []models.MHistoricalBar, timespan models.Timespan, now time.Time) bool {
	if timespan == models.TimespanWeek || timespan == models.TimespanMonth {
		return false
	}
	if len(bars) == 0 {
		return true
	}
	last := dayOf(bars[len(bars)-1].TimeSec)
	today := dayOf(now.Unix())
	return today.Sub(last) > StalenessDays*24*time.Hour
}

func dayOf(sec int64) time.Time {
	t := time.Unix(sec, 0).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// -----------------------------------------------------------------------------

// Lookback is a calendar window wide enough to hold limit bars of timespan
// once weekends, holidays and closed sessions are skipped.
func Lookback(timespan models.Timespan, limit int) time.Duration {
	day := 24 * time.Hour
	if limit <= 0 {
		limit = 1
	}
	switch timespan {
	case models.TimespanMinute:
		sessions := limit/390 + 1
		return time.Duration(sessions*7/5+3) * day
	case models.TimespanHour:
		sessions := limit/7 + 1
		return time.Duration(sessions*7/5+3) * day
	case models.TimespanWeek:
		return time.Duration(limit*7+7) * day
	case models.TimespanMonth:
		return time.Duration(limit*31+31) * day
	default:
		return time.Duration(limit*7/5+10) * day
	}
}
