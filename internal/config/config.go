package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"valutatrade/internal/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPServer struct {
	Port string `mapstructure:"port"`
}

type Logging struct {
	Level string `mapstructure:"level"`
}

type HTTPClient struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffBaseMS    int `mapstructure:"backoff_base_ms"`
	RateLimitBaseMS  int `mapstructure:"rate_limit_base_ms"`
}

type Data struct {
	Dir            string `mapstructure:"dir"`
	RatesFile      string `mapstructure:"rates_file"`
	HistoryFile    string `mapstructure:"history_file"`
	UsersFile      string `mapstructure:"users_file"`
	PortfoliosFile string `mapstructure:"portfolios_file"`
}

func (d Data) RatesPath() string      { return filepath.Join(d.Dir, d.RatesFile) }
func (d Data) HistoryPath() string    { return filepath.Join(d.Dir, d.HistoryFile) }
func (d Data) UsersPath() string      { return filepath.Join(d.Dir, d.UsersFile) }
func (d Data) PortfoliosPath() string { return filepath.Join(d.Dir, d.PortfoliosFile) }

type Cache struct {
	TTLSeconds   int   `mapstructure:"ttl_seconds"`
	HotCacheSize int64 `mapstructure:"hot_cache_size"`
}

func (c Cache) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

type Scheduler struct {
	IntervalSeconds    int `mapstructure:"interval_seconds"`
	StopTimeoutSeconds int `mapstructure:"stop_timeout_seconds"`
}

func (s Scheduler) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

func (s Scheduler) StopTimeout() time.Duration {
	return time.Duration(s.StopTimeoutSeconds) * time.Second
}

type CoinGecko struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type ExchangeRateAPI struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type Currencies struct {
	Base string   `mapstructure:"base"`
	Fiat []string `mapstructure:"fiat"`
	// Crypto maps ticker codes to CoinGecko asset identifiers.
	Crypto map[string]string `mapstructure:"crypto"`
}

type AppConfig struct {
	Logging         Logging         `mapstructure:"logging"`
	HTTPServer      HTTPServer      `mapstructure:"http_server"`
	HTTPClient      HTTPClient      `mapstructure:"http_client"`
	Data            Data            `mapstructure:"data"`
	Cache           Cache           `mapstructure:"cache"`
	Scheduler       Scheduler       `mapstructure:"scheduler"`
	CoinGecko       CoinGecko       `mapstructure:"coingecko"`
	ExchangeRateAPI ExchangeRateAPI `mapstructure:"exchangerate_api"`
	Currencies      Currencies      `mapstructure:"currencies"`
}

func Init() (*AppConfig, error) {
	// .env is optional: secrets may come from the real environment.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile("config.yaml")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	setDefaults(v)

	_ = v.BindEnv("http_server.port", "HTTP_PORT")
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("data.dir", "DATA_DIR")
	_ = v.BindEnv("http_client.timeout_seconds", "HTTP_CLIENT_TIMEOUT_SECONDS")
	_ = v.BindEnv("http_client.max_retries", "HTTP_CLIENT_MAX_RETRIES")
	_ = v.BindEnv("scheduler.interval_seconds", "UPDATE_INTERVAL_SECONDS")
	_ = v.BindEnv("cache.ttl_seconds", "RATES_TTL_SECONDS")
	_ = v.BindEnv("coingecko.api_key", "COINGECKO_API_KEY")
	_ = v.BindEnv("exchangerate_api.api_key", "EXCHANGERATE_API_KEY")

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("http_server.port", "8080")

	v.SetDefault("http_client.timeout_seconds", 10)
	v.SetDefault("http_client.max_retries", 3)
	v.SetDefault("http_client.backoff_base_ms", 1000)
	v.SetDefault("http_client.rate_limit_base_ms", 5000)

	v.SetDefault("data.dir", "data")
	v.SetDefault("data.rates_file", "rates.json")
	v.SetDefault("data.history_file", "exchange_rates.json")
	v.SetDefault("data.users_file", "users.json")
	v.SetDefault("data.portfolios_file", "portfolios.json")

	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("cache.hot_cache_size", 1024)

	v.SetDefault("scheduler.interval_seconds", 300)
	v.SetDefault("scheduler.stop_timeout_seconds", 5)

	v.SetDefault("coingecko.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("exchangerate_api.base_url", "https://v6.exchangerate-api.com/v6")

	v.SetDefault("currencies.base", "USD")
	v.SetDefault("currencies.fiat", []string{"EUR", "GBP", "JPY", "CAD", "AUD", "CHF", "CNY", "RUB"})
	v.SetDefault("currencies.crypto", map[string]string{
		"BTC":   "bitcoin",
		"ETH":   "ethereum",
		"SOL":   "solana",
		"ADA":   "cardano",
		"DOT":   "polkadot",
		"DOGE":  "dogecoin",
		"LTC":   "litecoin",
		"XRP":   "ripple",
		"BNB":   "binancecoin",
		"MATIC": "matic-network",
	})
}

// Validate checks the parts of the config that have no workable
// defaults.
func (c *AppConfig) Validate() error {
	if c.ExchangeRateAPI.APIKey == "" {
		return &domain.ConfigError{Field: "exchangerate_api.api_key", Reason: "missing API key, set EXCHANGERATE_API_KEY"}
	}
	if c.Currencies.Base == "" {
		return &domain.ConfigError{Field: "currencies.base", Reason: "base currency is required"}
	}
	if len(c.Currencies.Fiat) == 0 {
		return &domain.ConfigError{Field: "currencies.fiat", Reason: "no supported fiat currencies"}
	}
	if len(c.Currencies.Crypto) == 0 {
		return &domain.ConfigError{Field: "currencies.crypto", Reason: "no supported crypto currencies"}
	}
	return nil
}
