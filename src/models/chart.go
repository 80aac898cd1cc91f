package models

// MChartRequest selects a history window for a symbol.
type MChartRequest struct {
	Symbol   string   `json:"symbol"`
	Timespan Timespan `json:"timespan"`
	Limit    int      `json:"limit"`
}

// MChartData is the merged quote and history view served to chart consumers.
type MChartData struct {
	Symbol     string           `json:"symbol"`
	AssetClass AssetClass       `json:"assetClass"`
	Timespan   Timespan         `json:"timespan"`
	Bars       []MHistoricalBar `json:"data"`
	Name       string           `json:"name,omitempty"`
	Quote      *MQuote          `json:"quote,omitempty"`
}
