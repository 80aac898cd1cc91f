package datasource_test

import (
	"testing"
	"time"

	datasource "market-relay/src/data_source"
	"market-relay/src/models"

	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d, hour int) int64 {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC).Unix()
}

func TestNormalizeBarsSortsDedupsAndTruncates(t *testing.T) {
	t.Parallel()

	// Arrange: out of order, a same-date duplicate and an invalid bar.
	raw := []models.MHistoricalBar{
		{TimeSec: day(2026, 3, 12, 0), Close: 3},
		{TimeSec: day(2026, 3, 10, 0), Close: 1},
		{TimeSec: day(2026, 3, 11, 0), Close: 2},
		{TimeSec: day(2026, 3, 11, 20), Close: 22},
		{TimeSec: day(2026, 3, 13, 0), Close: 0},
	}

	// Act
	got := datasource.NormalizeBars(raw, models.TimespanDay, 2)

	// Assert: the later bar for 03-11 survived and only two newest remain.
	require.Len(t, got, 2)
	require.Equal(t, 22.0, got[0].Close)
	require.Equal(t, day(2026, 3, 11, 20), got[0].TimeSec)
	require.Equal(t, 3.0, got[1].Close)
}

func TestNormalizeBarsIntradayKeepsDistinctTimes(t *testing.T) {
	t.Parallel()

	raw := []models.MHistoricalBar{
		{TimeSec: day(2026, 3, 11, 15), Close: 2},
		{TimeSec: day(2026, 3, 11, 14), Close: 1},
		{TimeSec: day(2026, 3, 11, 15), Close: 3},
	}

	got := datasource.NormalizeBars(raw, models.TimespanHour, 0)

	require.Len(t, got, 2)
	require.Equal(t, []float64{1, 3}, []float64{got[0].Close, got[1].Close})
}

func TestIsStale(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC)
	threeDays := []models.MHistoricalBar{{TimeSec: day(2026, 3, 13, 0), Close: 1}}
	fourDays := []models.MHistoricalBar{{TimeSec: day(2026, 3, 12, 0), Close: 1}}

	require.False(t, datasource.IsStale(threeDays, models.TimespanDay, now))
	require.True(t, datasource.IsStale(fourDays, models.TimespanDay, now))
	require.True(t, datasource.IsStale(fourDays, models.TimespanMinute, now))
	require.False(t, datasource.IsStale(fourDays, models.TimespanWeek, now))
	require.True(t, datasource.IsStale(nil, models.TimespanDay, now))
}

func TestResampleWeekly(t *testing.T) {
	t.Parallel()

	// Mon 09 .. Fri 13 then Mon 16
	var daily []models.MHistoricalBar
	for i, d := range []int{9, 10, 11, 12, 13, 16} {
		daily = append(daily, models.MHistoricalBar{
			TimeSec: day(2026, 3, d, 0),
			Open:    float64(10 + i), High: float64(20 + i), Low: float64(5 + i), Close: float64(11 + i), Volume: 100,
		})
	}

	weeks := datasource.Resample(daily, models.TimespanWeek)

	require.Len(t, weeks, 2)
	require.Equal(t, day(2026, 3, 9, 0), weeks[0].TimeSec)
	require.Equal(t, 10.0, weeks[0].Open)
	require.Equal(t, 24.0, weeks[0].High)
	require.Equal(t, 5.0, weeks[0].Low)
	require.Equal(t, 15.0, weeks[0].Close)
	require.Equal(t, 500.0, weeks[0].Volume)
	require.Equal(t, day(2026, 3, 16, 0), weeks[1].TimeSec)
}

func TestResampleMonthly(t *testing.T) {
	t.Parallel()

	daily := []models.MHistoricalBar{
		{TimeSec: day(2026, 2, 27, 0), Open: 1, High: 1, Low: 1, Close: 1},
		{TimeSec: day(2026, 3, 2, 0), Open: 2, High: 3, Low: 2, Close: 2},
		{TimeSec: day(2026, 3, 3, 0), Open: 2, High: 2, Low: 1, Close: 4},
	}

	months := datasource.Resample(daily, models.TimespanMonth)

	require.Len(t, months, 2)
	require.Equal(t, day(2026, 3, 1, 0), months[1].TimeSec)
	require.Equal(t, 4.0, months[1].Close)
	require.Equal(t, 1.0, months[1].Low)
}
