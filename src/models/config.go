package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level"`
	GrpcHost  string           `yaml:"grpc_host"`
	GrpcPort  int              `yaml:"grpc_port"`
	Storage   MStorageConfig   `yaml:"storage"`
	Network   MNetworkConfig   `yaml:"network"`
	Providers MProvidersConfig `yaml:"providers"`
	Cache     MCacheConfig     `yaml:"cache"`
	Broadcast MBroadcastConfig `yaml:"broadcast"`
}

// GetLogLevel lets the logger read the level without importing config.
func (c *MConfig) GetLogLevel() string {
	if c == nil {
		return ""
	}
	return c.LogLevel
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // memory, sqlite, postgres, redis
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RedisURL           string `yaml:"redis_url"`
}

type MNetworkConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Proxies        []string `yaml:"proxies"`
	RequestTimeout int      `yaml:"timeout"`
	MaxRetries     int      `yaml:"retries"`
	UserAgent      string   `yaml:"user_agent"`
}

// MProviderConfig holds credentials and pacing for one upstream provider.
type MProviderConfig struct {
	APIKey        string `yaml:"api_key"`
	APISecret     string `yaml:"api_secret"`
	BaseURL       string `yaml:"base_url"`
	MinIntervalMs int    `yaml:"min_interval_ms"`
	TimeoutMs     int    `yaml:"timeout_ms"`
}

type MProvidersConfig struct {
	Finnhub     MProviderConfig `yaml:"finnhub"`
	Polygon     MProviderConfig `yaml:"polygon"`
	Alpaca      MProviderConfig `yaml:"alpaca"`
	CoinGecko   MProviderConfig `yaml:"coingecko"`
	Yahoo       MProviderConfig `yaml:"yahoo"`
	Frankfurter MProviderConfig `yaml:"frankfurter"`
}

type MCacheConfig struct {
	QuoteTTLSeconds        map[Channel]int  `yaml:"quote_ttl_seconds"`
	HistoryTTLSeconds      map[Timespan]int `yaml:"history_ttl_seconds"`
	CalendarTTLSeconds     int              `yaml:"calendar_ttl_seconds"`
	MaxItems               int              `yaml:"max_items"`
	RetentionHours         int              `yaml:"retention_hours"`
	JanitorIntervalSeconds int              `yaml:"janitor_interval_seconds"`
}

type MBroadcastConfig struct {
	EquitiesIntervalSeconds   int                  `yaml:"equities_interval_seconds"`
	CryptoIntervalSeconds     int                  `yaml:"crypto_interval_seconds"`
	CurrenciesIntervalSeconds int                  `yaml:"currencies_interval_seconds"`
	HeartbeatIntervalSeconds  int                  `yaml:"heartbeat_interval_seconds"`
	SendBuffer                int                  `yaml:"send_buffer"`
	PauseEquitiesWhenClosed   bool                 `yaml:"pause_equities_when_closed"`
	Watchlists                map[Channel][]string `yaml:"watchlists"`
}
