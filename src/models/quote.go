package models

// MQuote is a point-in-time price snapshot for one symbol.
type MQuote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Volume        float64 `json:"volume"`
	TimestampMs   int64   `json:"timestamp"`
	Name          string  `json:"name,omitempty"`
	Source        string  `json:"source,omitempty"`
}

// Valid reports whether the quote carries a usable price.
func (q MQuote) Valid() bool {
	return q.Symbol != "" && q.Price > 0
}

// -----------------------------------------------------------------------------

// MHistoricalBar is one OHLCV bar. TimeSec is the bar open in unix seconds.
type MHistoricalBar struct {
	TimeSec int64   `json:"time"`
	Open    float64 `json:"open"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Close   float64 `json:"close"`
	Volume  float64 `json:"volume"`
}
