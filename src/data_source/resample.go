package datasource

import (
	"time"

	"market-relay/src/models"
)

// periodStart returns the UTC start of the week (Monday) or month holding sec.
func periodStart(sec int64, timespan models.Timespan) time.Time {
	d := dayOf(sec)
	if timespan == models.TimespanMonth {
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// -----------------------------------------------------------------------------

// Resample folds ascending daily bars into weekly or monthly bars stamped at
// the period start. Any other timespan returns the input unchanged.
func Resample(daily []models.MHistoricalBar, timespan models.Timespan) []models.MHistoricalBar {
	if timespan != models.TimespanWeek && timespan != models.TimespanMonth {
		return daily
	}

	var out []models.MHistoricalBar
	var current *models.MHistoricalBar
	var currentStart int64

	for _, b := range daily {
		start := periodStart(b.TimeSec, timespan).Unix()
		if current == nil || start != currentStart {
			out = append(out, models.MHistoricalBar{
				TimeSec: start,
				Open:    b.Open,
				High:    b.High,
				Low:     b.Low,
				Close:   b.Close,
				Volume:  b.Volume,
			})
			current = &out[len(out)-1]
			currentStart = start
			continue
		}
		if b.High > current.High {
			current.High = b.High
		}
		if b.Low < current.Low {
			current.Low = b.Low
		}
		current.Close = b.Close
		current.Volume += b.Volume
	}
	return out
}

// DailyBarsNeeded is how many daily bars cover limit bars of timespan.
func DailyBarsNeeded(timespan models.Timespan, limit int) int {
	switch timespan {
	case models.TimespanWeek:
		return limit*7 + 7
	case models.TimespanMonth:
		return limit*31 + 31
	default:
		return limit
	}
}
