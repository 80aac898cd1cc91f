package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"market-relay/src/helpers"
	"market-relay/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override credentials from the YAML file.
const (
	EnvFinnhubKey   = "FINNHUB_API_KEY"
	EnvPolygonKey   = "POLYGON_API_KEY"
	EnvAlpacaKey    = "ALPACA_API_KEY"
	EnvAlpacaSecret = "ALPACA_API_SECRET"
	EnvCoinGeckoKey = "COINGECKO_API_KEY"
	EnvLogLevel     = "MARKET_RELAY_LOG_LEVEL"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file, an optional .env file and
// the process environment, in that order of precedence (last wins).
func NewConfig(configPath string, envFiles ...string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Credentials from .env and environment
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}
	config.applyEnv()
	config.ApplyDefaults()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file '%s': %w", f, err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() {
	override := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	override(&c.Providers.Finnhub.APIKey, EnvFinnhubKey)
	override(&c.Providers.Polygon.APIKey, EnvPolygonKey)
	override(&c.Providers.Alpaca.APIKey, EnvAlpacaKey)
	override(&c.Providers.Alpaca.APISecret, EnvAlpacaSecret)
	override(&c.Providers.CoinGecko.APIKey, EnvCoinGeckoKey)
	override(&c.LogLevel, EnvLogLevel)
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills every zero value that has a sensible default.
func (c *Config) ApplyDefaults() {
	setInt := func(dst *int, v int) {
		if *dst == 0 {
			*dst = v
		}
	}
	setStr := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}

	setStr(&c.Name, "market-relay")
	setStr(&c.Host, "0.0.0.0")
	setInt(&c.Port, 8080)
	setStr(&c.LogLevel, "INFO")
	setStr(&c.Storage.DBType, "memory")
	setInt(&c.Network.RequestTimeout, 10)

	p := &c.Providers
	setStr(&p.Finnhub.BaseURL, "https://finnhub.io/api/v1")
	setInt(&p.Finnhub.MinIntervalMs, 1100)
	setStr(&p.Polygon.BaseURL, "https://api.polygon.io")
	setInt(&p.Polygon.MinIntervalMs, 12500)
	setInt(&p.Alpaca.MinIntervalMs, 350)
	setStr(&p.CoinGecko.BaseURL, "https://api.coingecko.com/api/v3")
	setInt(&p.CoinGecko.MinIntervalMs, 2500)
	setStr(&p.Yahoo.BaseURL, "https://query1.finance.yahoo.com")
	setInt(&p.Yahoo.MinIntervalMs, 500)
	setStr(&p.Frankfurter.BaseURL, "https://api.frankfurter.app")
	setInt(&p.Frankfurter.MinIntervalMs, 250)
	for _, pc := range []*models.MProviderConfig{&p.Finnhub, &p.Polygon, &p.Alpaca, &p.CoinGecko, &p.Yahoo, &p.Frankfurter} {
		setInt(&pc.TimeoutMs, 8000)
	}

	if c.Cache.QuoteTTLSeconds == nil {
		c.Cache.QuoteTTLSeconds = map[models.Channel]int{}
	}
	for ch, v := range map[models.Channel]int{
		models.ChannelEquities:   60,
		models.ChannelCrypto:     30,
		models.ChannelCurrencies: 300,
	} {
		if c.Cache.QuoteTTLSeconds[ch] == 0 {
			c.Cache.QuoteTTLSeconds[ch] = v
		}
	}
	if c.Cache.HistoryTTLSeconds == nil {
		c.Cache.HistoryTTLSeconds = map[models.Timespan]int{}
	}
	for ts, v := range map[models.Timespan]int{
		models.TimespanMinute: 300,
		models.TimespanHour:   900,
		models.TimespanDay:    3600,
		models.TimespanWeek:   6 * 3600,
		models.TimespanMonth:  24 * 3600,
	} {
		if c.Cache.HistoryTTLSeconds[ts] == 0 {
			c.Cache.HistoryTTLSeconds[ts] = v
		}
	}
	setInt(&c.Cache.CalendarTTLSeconds, 6*3600)
	setInt(&c.Cache.MaxItems, 5000)
	setInt(&c.Cache.RetentionHours, 72)
	setInt(&c.Cache.JanitorIntervalSeconds, 600)

	b := &c.Broadcast
	setInt(&b.EquitiesIntervalSeconds, 300)
	setInt(&b.CryptoIntervalSeconds, 30)
	setInt(&b.CurrenciesIntervalSeconds, 1800)
	setInt(&b.HeartbeatIntervalSeconds, 30)
	setInt(&b.SendBuffer, 256)
	if b.Watchlists == nil {
		b.Watchlists = map[models.Channel][]string{}
	}
	for ch, list := range map[models.Channel][]string{
		models.ChannelEquities:   {"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "TSLA", "SPY"},
		models.ChannelCrypto:     {"BTC", "ETH", "SOL", "XRP", "DOGE"},
		models.ChannelCurrencies: {"EURUSD", "GBPUSD", "USDJPY", "AUDUSD", "USDCAD"},
	} {
		if _, ok := b.Watchlists[ch]; !ok {
			b.Watchlists[ch] = list
		}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535 || c.GrpcPort == c.Port) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "memory":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis url cannot be empty for redis")
		}
	default:
		return fmt.Errorf("unsupported database type '%s'", c.Storage.DBType)
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	// Validate Broadcast configuration
	b := c.Broadcast
	if b.EquitiesIntervalSeconds <= 0 || b.CryptoIntervalSeconds <= 0 || b.CurrenciesIntervalSeconds <= 0 {
		return fmt.Errorf("broadcast intervals must be greater than 0")
	}
	if b.HeartbeatIntervalSeconds <= 0 {
		return fmt.Errorf("heartbeat interval must be greater than 0")
	}
	if b.SendBuffer <= 0 {
		return fmt.Errorf("send buffer must be greater than 0")
	}
	for ch := range b.Watchlists {
		if _, ok := models.ParseChannel(string(ch)); !ok {
			return fmt.Errorf("unknown watchlist channel '%s'", ch)
		}
	}

	if c.Cache.MaxItems < 0 {
		return fmt.Errorf("cache max items cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0600 permissions, it may carry credentials)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------
// Derived durations
// -----------------------------------------------------------------------------

func (c *Config) ChannelInterval(ch models.Channel) time.Duration {
	switch ch {
	case models.ChannelCrypto:
		return time.Duration(c.Broadcast.CryptoIntervalSeconds) * time.Second
	case models.ChannelCurrencies:
		return time.Duration(c.Broadcast.CurrenciesIntervalSeconds) * time.Second
	default:
		return time.Duration(c.Broadcast.EquitiesIntervalSeconds) * time.Second
	}
}

func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Broadcast.HeartbeatIntervalSeconds) * time.Second
}

func (c *Config) QuoteTTL(ch models.Channel) time.Duration {
	return time.Duration(c.Cache.QuoteTTLSeconds[ch]) * time.Second
}

func (c *Config) HistoryTTL(ts models.Timespan) time.Duration {
	return time.Duration(c.Cache.HistoryTTLSeconds[ts]) * time.Second
}
