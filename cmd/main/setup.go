package main

import (
	"context"
	"time"

	"market-relay/src/cache"
	"market-relay/src/config"
	datasource "market-relay/src/data_source"
	"market-relay/src/data_source/alpaca"
	"market-relay/src/data_source/coingecko"
	"market-relay/src/data_source/finnhub"
	"market-relay/src/data_source/frankfurter"
	"market-relay/src/data_source/polygon"
	"market-relay/src/data_source/yahoo"
	"market-relay/src/interfaces"
	"market-relay/src/logger"
	"market-relay/src/models"
	"market-relay/src/network"
	"market-relay/src/ratelimit"
	"market-relay/src/storage"
)

// -----------------------------------------------------------------------------

// setupStorage opens and migrates the configured snapshot store
func setupStorage(ctx context.Context, conf *config.Config) (interfaces.ISnapshotStore, error) {
	storeLogger := logger.NewLogger(conf, "SnapshotStore")
	store, err := storage.NewSnapshotStore(conf, storeLogger)
	if err != nil {
		storeLogger.Critical("Failed to init %s store: %v", conf.Storage.DBType, err)
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		storeLogger.Critical("Failed to migrate %s store: %v", conf.Storage.DBType, err)
		return nil, err
	}
	return store, nil
}

// -----------------------------------------------------------------------------

// providers builds every upstream once; each adapter below shares them.
type providers struct {
	finnhub     *finnhub.FinnhubSource
	polygon     *polygon.PolygonSource
	alpaca      *alpaca.AlpacaSource
	coingecko   *coingecko.CoinGeckoSource
	yahoo       *yahoo.YahooFinanceSource
	frankfurter *frankfurter.FrankfurterSource
}

func newProviders(conf *config.Config) providers {
	netMgr := network.NewAsyncNetworkManager(conf.MConfig, logger.NewLogger(conf, "Network"))
	p := conf.Providers
	return providers{
		finnhub:     finnhub.NewFinnhubSource(p.Finnhub, netMgr),
		polygon:     polygon.NewPolygonSource(p.Polygon, netMgr),
		alpaca:      alpaca.NewAlpacaSource(p.Alpaca),
		coingecko:   coingecko.NewCoinGeckoSource(p.CoinGecko, netMgr),
		yahoo:       yahoo.NewYahooFinanceSource(p.Yahoo, netMgr),
		frankfurter: frankfurter.NewFrankfurterSource(p.Frankfurter, netMgr),
	}
}

// -----------------------------------------------------------------------------

// adapterFactory applies the cache and pacing settings shared by every adapter.
type adapterFactory struct {
	conf  *config.Config
	gates *ratelimit.Registry
	mock  *datasource.MockGenerator
	log   *logger.Logger
}

func (f adapterFactory) provider(name string) models.MProviderConfig {
	p := f.conf.Providers
	switch name {
	case finnhub.Name:
		return p.Finnhub
	case polygon.Name:
		return p.Polygon
	case alpaca.Name:
		return p.Alpaca
	case coingecko.Name:
		return p.CoinGecko
	case frankfurter.Name:
		return p.Frankfurter
	default:
		return p.Yahoo
	}
}

func (f adapterFactory) gate(name string) ratelimit.IRateGate {
	return f.gates.Gate(name, time.Duration(f.provider(name).MinIntervalMs)*time.Millisecond)
}

func (f adapterFactory) cacheOptions() []cache.Option {
	return []cache.Option{
		cache.WithMaxItems(f.conf.Cache.MaxItems),
		cache.WithRetention(time.Duration(f.conf.Cache.RetentionHours) * time.Hour),
	}
}

func (f adapterFactory) history(src interfaces.IHistorySource) *datasource.HistoryAdapter {
	a := datasource.NewHistoryAdapter(src, f.gate(src.Name()), f.mock, f.log)
	a.Cache = cache.New[[]models.MHistoricalBar](f.cacheOptions()...)
	a.TTL = f.conf.HistoryTTL
	a.Timeout = time.Duration(f.provider(src.Name()).TimeoutMs) * time.Millisecond
	return a
}

func (f adapterFactory) quotes(src interfaces.IQuoteSource, ch models.Channel) *datasource.QuoteAdapter {
	a := datasource.NewQuoteAdapter(src, f.gate(src.Name()), f.mock, f.log)
	a.Cache = cache.New[models.MQuote](f.cacheOptions()...)
	a.TTL = f.conf.QuoteTTL(ch)
	a.Timeout = time.Duration(f.provider(src.Name()).TimeoutMs) * time.Millisecond
	return a
}

func (f adapterFactory) calendar(src interfaces.ICalendarSource) *datasource.CalendarAdapter {
	a := datasource.NewCalendarAdapter(src, f.gate(src.Name()), f.mock, f.log)
	a.Cache = cache.New[[]models.MCalendarEvent](f.cacheOptions()...)
	a.TTL = time.Duration(f.conf.Cache.CalendarTTLSeconds) * time.Second
	a.Timeout = time.Duration(f.provider(src.Name()).TimeoutMs) * time.Millisecond
	return a
}

// -----------------------------------------------------------------------------

// setupDataSources registers one fallback chain per capability, primary first
func setupDataSources(conf *config.Config, appLogger *logger.Logger) (*datasource.Registry, error) {
	dsLogger := logger.NewLogger(conf, "DataSource")
	p := newProviders(conf)
	f := adapterFactory{
		conf:  conf,
		gates: ratelimit.NewRegistry(),
		mock:  datasource.NewMockGenerator(time.Now),
		log:   dsLogger,
	}

	reg := datasource.NewRegistry(dsLogger)

	histories := []*datasource.HistoryChain{
		datasource.NewHistoryChain(datasource.CapEquityHistory, dsLogger,
			f.history(p.polygon), f.history(p.alpaca), f.history(p.yahoo)),
		datasource.NewHistoryChain(datasource.CapCryptoHistory, dsLogger,
			f.history(p.coingecko), f.history(p.alpaca), f.history(p.yahoo)),
		datasource.NewHistoryChain(datasource.CapForexHistory, dsLogger,
			f.history(p.frankfurter), f.history(p.yahoo)),
	}
	for _, chain := range histories {
		if err := reg.AddHistoryChain(chain); err != nil {
			return nil, err
		}
	}

	quotes := []*datasource.QuoteChain{
		datasource.NewQuoteChain(datasource.CapEquityQuote, dsLogger,
			f.quotes(p.finnhub, models.ChannelEquities), f.quotes(p.yahoo, models.ChannelEquities), f.quotes(p.alpaca, models.ChannelEquities)),
		datasource.NewQuoteChain(datasource.CapCryptoQuote, dsLogger,
			f.quotes(p.coingecko, models.ChannelCrypto), f.quotes(p.yahoo, models.ChannelCrypto)),
	}
	for _, chain := range quotes {
		if err := reg.AddQuoteChain(chain); err != nil {
			return nil, err
		}
	}

	reg.SetCalendarChain(datasource.NewCalendarChain(dsLogger, f.calendar(p.finnhub)))

	for _, c := range reg.Capabilities() {
		appLogger.Info("Capability %s served by %v", c, reg.Describe()[c])
	}
	return reg, nil
}

// describeProviders flattens the registry description for /api/health
func describeProviders(reg *datasource.Registry) func() map[string][]string {
	return func() map[string][]string {
		out := map[string][]string{}
		for c, names := range reg.Describe() {
			out[string(c)] = names
		}
		return out
	}
}
