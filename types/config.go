package types

import "time"

// Config is a struct to hold the configuration data
type Config struct {
	Logging struct {
		OutputLevel  string `yaml:"outputLevel" envconfig:"LOGGING_OUTPUT_LEVEL"`
		OutputStderr bool   `yaml:"outputStderr" envconfig:"LOGGING_OUTPUT_STDERR"`

		FilePath  string `yaml:"filePath" envconfig:"LOGGING_FILE_PATH"`
		FileLevel string `yaml:"fileLevel" envconfig:"LOGGING_FILE_LEVEL"`
	} `yaml:"logging"`

	Server struct {
		Port string `yaml:"port" envconfig:"API_SERVER_PORT"`
		Host string `yaml:"host" envconfig:"API_SERVER_HOST"`

		HttpReadTimeout  time.Duration `yaml:"httpReadTimeout" envconfig:"API_HTTP_READ_TIMEOUT"`
		HttpWriteTimeout time.Duration `yaml:"httpWriteTimeout" envconfig:"API_HTTP_WRITE_TIMEOUT"`
		HttpIdleTimeout  time.Duration `yaml:"httpIdleTimeout" envconfig:"API_HTTP_IDLE_TIMEOUT"`
	} `yaml:"server"`

	Chain struct {
		DisplayName    string `yaml:"displayName" envconfig:"CHAIN_DISPLAY_NAME"`
		TokenSymbol    string `yaml:"tokenSymbol" envconfig:"CHAIN_TOKEN_SYMBOL"`
		ChainID        uint64 `yaml:"chainId" envconfig:"CHAIN_ID"`
		FactoryAddress string `yaml:"factoryAddress" envconfig:"CHAIN_FACTORY_ADDRESS"`
		Decimals       int    `yaml:"decimals" envconfig:"CHAIN_DECIMALS"`
	} `yaml:"chain"`

	ExecutionApi struct {
		Endpoint  string           `yaml:"endpoint" envconfig:"EXECUTIONAPI_ENDPOINT"`
		Endpoints []EndpointConfig `yaml:"endpoints"`

		SchedulerMode string `yaml:"schedulerMode" envconfig:"EXECUTIONAPI_SCHEDULER_MODE"`
	} `yaml:"executionapi"`

	Curve CurveConfig `yaml:"curve"`

	Wallet struct {
		Address string `yaml:"address" envconfig:"WALLET_ADDRESS"`
		Token   string `yaml:"token" envconfig:"WALLET_TOKEN"`
	} `yaml:"wallet"`

	Metadata struct {
		Url          string            `yaml:"url" envconfig:"METADATA_URL"`
		Headers      map[string]string `yaml:"headers"`
		Timeout      time.Duration     `yaml:"timeout" envconfig:"METADATA_TIMEOUT"`
		CacheTimeout time.Duration     `yaml:"cacheTimeout" envconfig:"METADATA_CACHE_TIMEOUT"`
		CacheSize    int               `yaml:"cacheSize" envconfig:"METADATA_CACHE_SIZE"`
		RedisAddr    string            `yaml:"redisAddr" envconfig:"METADATA_REDIS_ADDR"`
		RedisPrefix  string            `yaml:"redisPrefix" envconfig:"METADATA_REDIS_PREFIX"`
	} `yaml:"metadata"`

	Api struct {
		Enabled     bool     `yaml:"enabled" envconfig:"API_ENABLED"`
		CorsOrigins []string `yaml:"corsOrigins" envconfig:"API_CORS_ORIGINS"`
	} `yaml:"api"`

	RateLimit struct {
		Enabled    bool `yaml:"enabled" envconfig:"RATELIMIT_ENABLED"`
		ProxyCount uint `yaml:"proxyCount" envconfig:"RATELIMIT_PROXY_COUNT"`
		Rate       uint `yaml:"rate" envconfig:"RATELIMIT_RATE"`
		Burst      uint `yaml:"burst" envconfig:"RATELIMIT_BURST"`
	} `yaml:"rateLimit"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" envconfig:"METRICS_ENABLED"`
		Public  bool   `yaml:"public" envconfig:"METRICS_PUBLIC"`
		Host    string `yaml:"host" envconfig:"METRICS_HOST"`
		Port    string `yaml:"port" envconfig:"METRICS_PORT"`
	} `yaml:"metrics"`
}

// CurveConfig holds the timing and threshold settings of the bonding curve state cache
type CurveConfig struct {
	SnapshotPollInterval time.Duration `yaml:"snapshotPollInterval" envconfig:"CURVE_SNAPSHOT_POLL_INTERVAL"`
	WalletPollInterval   time.Duration `yaml:"walletPollInterval" envconfig:"CURVE_WALLET_POLL_INTERVAL"`
	EventPollInterval    time.Duration `yaml:"eventPollInterval" envconfig:"CURVE_EVENT_POLL_INTERVAL"`
	LogBatchSize         uint64        `yaml:"logBatchSize" envconfig:"CURVE_LOG_BATCH_SIZE"`

	SettleDelay         time.Duration `yaml:"settleDelay" envconfig:"CURVE_SETTLE_DELAY"`
	SettleConfirmBlocks bool          `yaml:"settleConfirmBlocks" envconfig:"CURVE_SETTLE_CONFIRM_BLOCKS"`
	MaxSettleWait       time.Duration `yaml:"maxSettleWait" envconfig:"CURVE_MAX_SETTLE_WAIT"`

	EstimateCacheDuration time.Duration `yaml:"estimateCacheDuration" envconfig:"CURVE_ESTIMATE_CACHE_DURATION"`
	EstimateDebounce      time.Duration `yaml:"estimateDebounce" envconfig:"CURVE_ESTIMATE_DEBOUNCE"`
	EstimateCacheSize     int           `yaml:"estimateCacheSize" envconfig:"CURVE_ESTIMATE_CACHE_SIZE"` // in MB

	MaxInputDecimals int     `yaml:"maxInputDecimals" envconfig:"CURVE_MAX_INPUT_DECIMALS"`
	DisplayDecimals  int     `yaml:"displayDecimals" envconfig:"CURVE_DISPLAY_DECIMALS"`
	BuyGasReserve    float64 `yaml:"buyGasReserve" envconfig:"CURVE_BUY_GAS_RESERVE"`
	MaxBuyRatio      float64 `yaml:"maxBuyRatio" envconfig:"CURVE_MAX_BUY_RATIO"`

	NotifyCooldown time.Duration `yaml:"notifyCooldown" envconfig:"CURVE_NOTIFY_COOLDOWN"`
	CallTimeout    time.Duration `yaml:"callTimeout" envconfig:"CURVE_CALL_TIMEOUT"`
	RetryAttempts  uint64        `yaml:"retryAttempts" envconfig:"CURVE_RETRY_ATTEMPTS"`
}

type EndpointConfig struct {
	Url     string            `yaml:"url"`
	Name    string            `yaml:"name"`
	Headers map[string]string `yaml:"headers"`
}
