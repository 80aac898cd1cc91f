package models

import "time"

// AssetClass is the classification result for a symbol.
type AssetClass string

const (
	AssetEquity AssetClass = "equity"
	AssetCrypto AssetClass = "crypto"
	AssetForex  AssetClass = "forex"
)

// -----------------------------------------------------------------------------

// Channel is a broadcast stream grouping symbols of one asset class.
type Channel string

const (
	ChannelEquities   Channel = "equities"
	ChannelCrypto     Channel = "crypto"
	ChannelCurrencies Channel = "currencies"
)

// AllChannels lists every broadcast channel in polling order.
var AllChannels = []Channel{ChannelEquities, ChannelCrypto, ChannelCurrencies}

// ParseChannel returns the channel for name and whether it is known.
func ParseChannel(name string) (Channel, bool) {
	switch Channel(name) {
	case ChannelEquities, ChannelCrypto, ChannelCurrencies:
		return Channel(name), true
	}
	return "", false
}

// -----------------------------------------------------------------------------

// Timespan is the bar granularity of a history request.
type Timespan string

const (
	TimespanMinute Timespan = "minute"
	TimespanHour   Timespan = "hour"
	TimespanDay    Timespan = "day"
	TimespanWeek   Timespan = "week"
	TimespanMonth  Timespan = "month"
)

// ParseTimespan returns the timespan for name and whether it is known.
func ParseTimespan(name string) (Timespan, bool) {
	switch Timespan(name) {
	case TimespanMinute, TimespanHour, TimespanDay, TimespanWeek, TimespanMonth:
		return Timespan(name), true
	}
	return "", false
}

// Duration is the nominal length of one bar.
func (t Timespan) Duration() time.Duration {
	switch t {
	case TimespanMinute:
		return time.Minute
	case TimespanHour:
		return time.Hour
	case TimespanWeek:
		return 7 * 24 * time.Hour
	case TimespanMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Intraday reports whether bars are shorter than one calendar day.
func (t Timespan) Intraday() bool {
	return t == TimespanMinute || t == TimespanHour
}
