// Package config provides configuration management for the wallet performance tools.
// It loads configuration from environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Holdings source identifiers
const (
	HoldingsSourceRPC      = "rpc"
	HoldingsSourceSolanaFM = "solanafm"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Solana        SolanaConfig
	SolanaFM      SolanaFMConfig
	Birdeye       BirdeyeConfig
	Solscan       SolscanConfig
	Pacing        PacingConfig
	Retry         RetryConfig
	Window        WindowConfig
	Redis         RedisConfig
	Logging       LoggingConfig
	DefaultWallet string
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Port          string
	Host          string
	RequestsPerIP int // Requests per second allowed per client
}

// SolanaConfig holds Solana JSON-RPC configuration
type SolanaConfig struct {
	RPCPrimary       string
	RPCSecondary     string
	HoldingsSource   string
	IncludeNative    bool
	IncludeToken2022 bool
	Timeout          time.Duration
}

// SolanaFMConfig holds SolanaFM token list API configuration
type SolanaFMConfig struct {
	BaseURL string
	APIKey  string
}

// BirdeyeConfig holds historical price API configuration
type BirdeyeConfig struct {
	BaseURL    string
	APIKey     string
	Chain      string
	BucketType string
	BucketSpan time.Duration
}

// SolscanConfig holds token metadata API configuration
type SolscanConfig struct {
	BaseURL string
	APIKey  string
}

// PacingConfig holds the minimum spacing between consecutive collaborator calls
type PacingConfig struct {
	PriceInterval    time.Duration
	MetadataInterval time.Duration
}

// RetryConfig holds bounded retry configuration for collaborator calls
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// WindowConfig holds the performance window configuration
type WindowConfig struct {
	Lookback time.Duration
}

// RedisConfig holds Redis configuration. An empty Addr disables caching.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	PriceTTL       time.Duration // TTL of settled historical prices
	RecentPriceTTL time.Duration // TTL of prices inside the still-open bucket
	SymbolTTL      time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from .env file and environment variables
func LoadConfig() (*Config, error) {
	// .env is optional - environment variables can be set directly
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "8080"),
			Host:          getEnv("SERVER_HOST", "0.0.0.0"),
			RequestsPerIP: getEnvAsInt("SERVER_REQUESTS_PER_SECOND", 2),
		},
		Solana: SolanaConfig{
			RPCPrimary:       getEnv("SOLANA_RPC_PRIMARY", "https://api.mainnet-beta.solana.com"),
			RPCSecondary:     getEnv("SOLANA_RPC_SECONDARY", ""),
			HoldingsSource:   strings.ToLower(getEnv("HOLDINGS_SOURCE", HoldingsSourceRPC)),
			IncludeNative:    getEnvAsBool("INCLUDE_NATIVE_SOL", true),
			IncludeToken2022: getEnvAsBool("INCLUDE_TOKEN_2022", true),
			Timeout:          getEnvAsDuration("SOLANA_RPC_TIMEOUT", 30*time.Second),
		},
		SolanaFM: SolanaFMConfig{
			BaseURL: getEnv("SOLANAFM_BASE_URL", "https://api.solana.fm"),
			APIKey:  getEnv("API_KEY", ""),
		},
		Birdeye: BirdeyeConfig{
			BaseURL:    getEnv("BIRDEYE_BASE_URL", "https://public-api.birdeye.so"),
			APIKey:     getEnv("TOKEN_PRICE_API_KEY", ""),
			Chain:      getEnv("BIRDEYE_CHAIN", "solana"),
			BucketType: getEnv("BIRDEYE_BUCKET_TYPE", "1D"),
			BucketSpan: getEnvAsDuration("BIRDEYE_BUCKET_SPAN", 24*time.Hour),
		},
		Solscan: SolscanConfig{
			BaseURL: getEnv("SOLSCAN_BASE_URL", "https://public-api.solscan.io"),
			APIKey:  getEnv("SOLSCAN_API_KEY", ""),
		},
		Pacing: PacingConfig{
			PriceInterval:    getEnvAsDuration("PRICE_CALL_INTERVAL", time.Second),
			MetadataInterval: getEnvAsDuration("METADATA_CALL_INTERVAL", time.Second),
		},
		Retry: RetryConfig{
			MaxAttempts:  getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			InitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", 2*time.Second),
			MaxDelay:     getEnvAsDuration("RETRY_MAX_DELAY", 10*time.Second),
		},
		Window: WindowConfig{
			Lookback: getEnvAsDuration("WINDOW_LOOKBACK", 30*24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:           getEnv("REDIS_ADDR", ""),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             getEnvAsInt("REDIS_DB", 0),
			PriceTTL:       getEnvAsDuration("PRICE_CACHE_TTL", 7*24*time.Hour),
			RecentPriceTTL: getEnvAsDuration("RECENT_PRICE_CACHE_TTL", 5*time.Minute),
			SymbolTTL:      getEnvAsDuration("SYMBOL_CACHE_TTL", 24*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		DefaultWallet: getEnv("DEFAULT_WALLET", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration for values the services cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Pacing.PriceInterval <= 0 {
		errs = append(errs, errors.New("PRICE_CALL_INTERVAL must be positive"))
	}
	if c.Pacing.MetadataInterval < 0 {
		errs = append(errs, errors.New("METADATA_CALL_INTERVAL cannot be negative"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("RETRY_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Retry.InitialDelay > c.Retry.MaxDelay {
		errs = append(errs, errors.New("RETRY_INITIAL_DELAY cannot exceed RETRY_MAX_DELAY"))
	}
	if c.Window.Lookback <= 0 {
		errs = append(errs, errors.New("WINDOW_LOOKBACK must be positive"))
	}
	if c.Birdeye.BucketSpan <= 0 {
		errs = append(errs, errors.New("BIRDEYE_BUCKET_SPAN must be positive"))
	}
	switch c.Solana.HoldingsSource {
	case HoldingsSourceRPC:
		if c.Solana.RPCPrimary == "" {
			errs = append(errs, errors.New("SOLANA_RPC_PRIMARY is required for the rpc holdings source"))
		}
	case HoldingsSourceSolanaFM:
	default:
		errs = append(errs, fmt.Errorf("unknown HOLDINGS_SOURCE %q", c.Solana.HoldingsSource))
	}

	return errors.Join(errs...)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
