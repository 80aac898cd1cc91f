package yahoo

import (
	"context"

	"market-relay/src/helpers"
	"market-relay/src/models"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"
)

// QuoteLister resolves Yahoo tickers to quotes in one request.
type QuoteLister func(tickers []string) ([]*finance.Quote, error)

// FinanceGoLister drains a finance-go quote iterator.
func FinanceGoLister(tickers []string) ([]*finance.Quote, error) {
	iter := quote.List(tickers)
	var out []*finance.Quote
	for iter.Next() {
		out = append(out, iter.Quote())
	}
	return out, iter.Err()
}

// -----------------------------------------------------------------------------

func (s *YahooFinanceSource) FetchQuote(ctx context.Context, symbol string) (models.MQuote, error) {
	quotes, err := s.FetchQuotes(ctx, []string{symbol})
	if err != nil {
		return models.MQuote{}, err
	}
	q, ok := quotes[symbol]
	if !ok {
		return models.MQuote{}, helpers.Malformed(Name, helpers.ErrEmptyResult)
	}
	return q, nil
}

// FetchQuotes asks finance-go for every symbol at once. finance-go does not
// take a context, so the call is raced against ctx.
func (s *YahooFinanceSource) FetchQuotes(ctx context.Context, syms []string) (map[string]models.MQuote, error) {
	tickers := make([]string, len(syms))
	byTicker := make(map[string]string, len(syms))
	for i, sym := range syms {
		tickers[i] = Ticker(sym)
		byTicker[tickers[i]] = sym
	}

	list, err := helpers.CallWithContext(ctx, func() ([]*finance.Quote, error) {
		return s.Lister(tickers)
	})
	if err != nil {
		return nil, helpers.NewUpstreamError(Name, helpers.UpstreamUnavailable, 0, err)
	}

	out := make(map[string]models.MQuote, len(list))
	for _, fq := range list {
		if fq == nil {
			continue
		}
		sym, ok := byTicker[fq.Symbol]
		if !ok || fq.RegularMarketPrice <= 0 {
			continue
		}
		out[sym] = models.MQuote{
			Symbol:        sym,
			Price:         fq.RegularMarketPrice,
			Change:        fq.RegularMarketChange,
			ChangePercent: fq.RegularMarketChangePercent,
			Volume:        float64(fq.RegularMarketVolume),
			TimestampMs:   int64(fq.RegularMarketTime) * 1000,
			Name:          fq.ShortName,
			Source:        Name,
		}
	}
	s.Logger.Debug("YahooFinance: resolved %d/%d quotes", len(out), len(syms))
	return out, nil
}
