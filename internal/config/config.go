// Package config loads the runtime configuration: defaults, then an optional
// YAML file, then environment overrides.
package config

import (
	"fmt"
	"os"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/alphadesk/alphadesk/pkg/logger"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host            string   `yaml:"host" env:"SERVER_HOST"`
	Port            int      `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     int      `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    int      `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout int      `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	RateLimit       int      `yaml:"rate_limit" env:"RATE_LIMIT"`
	RateBurst       int      `yaml:"rate_burst" env:"RATE_BURST"`
}

// DatabaseConfig selects the persistence backend. An empty DSN runs on the
// in-memory store.
type DatabaseConfig struct {
	DSN             string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
}

// RedisConfig selects the market data cache backend. An empty address runs on
// the in-process cache.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
}

// AuthConfig holds the token signing secret.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET"`
}

// ProvidersConfig holds the upstream market data credentials. Empty keys
// disable the provider.
type ProvidersConfig struct {
	AlphaVantageKey string `yaml:"alpha_vantage_key" env:"ALPHA_VANTAGE_API_KEY"`
	FinnhubKey      string `yaml:"finnhub_key" env:"FINNHUB_API_KEY"`
	NewsAPIKey      string `yaml:"news_api_key" env:"NEWS_API_KEY"`

	YahooBaseURL        string `yaml:"yahoo_base_url" env:"YAHOO_BASE_URL"`
	AlphaVantageBaseURL string `yaml:"alpha_vantage_base_url" env:"ALPHA_VANTAGE_BASE_URL"`
	FinnhubBaseURL      string `yaml:"finnhub_base_url" env:"FINNHUB_BASE_URL"`
	CoinGeckoBaseURL    string `yaml:"coingecko_base_url" env:"COINGECKO_BASE_URL"`
	NewsAPIBaseURL      string `yaml:"news_api_base_url" env:"NEWS_API_BASE_URL"`
}

// LLMConfig points at an OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	BaseURL string `yaml:"base_url" env:"LLM_BASE_URL"`
	APIKey  string `yaml:"api_key" env:"LLM_API_KEY"`
	Model   string `yaml:"model" env:"LLM_MODEL"`
}

// BrokerageConfig points at the paper trading brokerage API.
type BrokerageConfig struct {
	BaseURL string `yaml:"base_url" env:"BROKERAGE_BASE_URL"`
}

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Redis     RedisConfig          `yaml:"redis"`
	Auth      AuthConfig           `yaml:"auth"`
	Providers ProvidersConfig      `yaml:"providers"`
	LLM       LLMConfig            `yaml:"llm"`
	Brokerage BrokerageConfig      `yaml:"brokerage"`
	Logging   logger.LoggingConfig `yaml:"logging"`
}

// Default returns the baseline configuration before file and environment
// overrides.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
			RateLimit:       20,
			RateBurst:       40,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Redis: RedisConfig{
			Prefix: "alphadesk",
		},
		LLM: LLMConfig{
			Model: "deepseek-chat",
		},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load builds the configuration: defaults, the YAML file named by CONFIG_PATH
// (default config.yaml, missing file tolerated), then environment variables.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	return LoadFromPath(path)
}

// LoadFromPath is Load with an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults plus environment only.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := envdecode.Decode(cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is required (auth.jwt_secret or JWT_SECRET)")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return cfg, nil
}
