package chart

import (
	"context"
	"time"

	datasource "market-relay/src/data_source"
	"market-relay/src/models"

	"golang.org/x/sync/errgroup"
)

// ForexQuotes derives currency quotes from the last two daily bars of the
// forex history chain; none of the FX upstreams has a quote endpoint.
type ForexQuotes struct {
	History HistoryReader
	Now     func() time.Time
	Source  string
}

func NewForexQuotes(history HistoryReader, now func() time.Time) *ForexQuotes {
	if now == nil {
		now = time.Now
	}
	return &ForexQuotes{History: history, Now: now}
}

func (f *ForexQuotes) GetQuotes(ctx context.Context, pairs []string) map[string]models.MQuote {
	quotes := make([]models.MQuote, len(pairs))

	var g errgroup.Group
	g.SetLimit(4)
	for i, p := range pairs {
		g.Go(func() error {
			bars := f.History.GetHistory(ctx, p, models.TimespanDay, 2)
			quotes[i] = datasource.QuoteFromBars(p, bars, f.Now(), f.Source)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]models.MQuote, len(pairs))
	for i, p := range pairs {
		out[p] = quotes[i]
	}
	return out
}
