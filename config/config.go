package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingAPIKey = errors.New("API key not found. Please set OOGABOOGA_API_KEY environment variable or create a .ooga-swap.yaml config file")
	ErrMissingWallet = errors.New("wallet not configured. Please set RPC_URL and PRIVATE_KEY")
)

// Config holds the application configuration
type Config struct {
	APIKey         string
	BaseURL        string
	RPCURL         string
	PrivateKey     string
	ChainID        int64
	Slippage       float64
	HTTPTimeout    time.Duration
	MaxAttempts    int
	ReceiptTimeout time.Duration
	HistoryFile    string
}

// envBindings maps config keys to the environment variables that set them.
// OOGABOGA_API_KEY is the historical misspelling still found in .env files.
var envBindings = map[string][]string{
	"api_key":         {"OOGABOOGA_API_KEY", "OOGABOGA_API_KEY"},
	"base_url":        {"OOGABOOGA_API_URL"},
	"rpc_url":         {"RPC_URL"},
	"private_key":     {"PRIVATE_KEY"},
	"chain_id":        {"CHAIN_ID"},
	"slippage":        {"SLIPPAGE"},
	"http_timeout":    {"HTTP_TIMEOUT"},
	"max_attempts":    {"MAX_ATTEMPTS"},
	"receipt_timeout": {"RECEIPT_TIMEOUT"},
	"history_file":    {"HISTORY_FILE"},
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".ooga-swap")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	// Set default values
	v.SetDefault("base_url", "https://mainnet.api.oogabooga.io")
	v.SetDefault("chain_id", 31337)
	v.SetDefault("slippage", 0.01)
	v.SetDefault("http_timeout", 30*time.Second)
	v.SetDefault("max_attempts", 3)
	v.SetDefault("receipt_timeout", 2*time.Minute)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		APIKey:         v.GetString("api_key"),
		BaseURL:        v.GetString("base_url"),
		RPCURL:         v.GetString("rpc_url"),
		PrivateKey:     v.GetString("private_key"),
		ChainID:        v.GetInt64("chain_id"),
		Slippage:       v.GetFloat64("slippage"),
		HTTPTimeout:    v.GetDuration("http_timeout"),
		MaxAttempts:    v.GetInt("max_attempts"),
		ReceiptTimeout: v.GetDuration("receipt_timeout"),
		HistoryFile:    v.GetString("history_file"),
	}

	if cfg.ChainID < 0 {
		return nil, fmt.Errorf("invalid chain id %d", cfg.ChainID)
	}

	return cfg, nil
}

// RequireAPIKey checks that the quote API can be called
func (c *Config) RequireAPIKey() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// RequireWallet checks that everything needed to sign transactions is set
func (c *Config) RequireWallet() error {
	if c.RPCURL == "" || c.PrivateKey == "" {
		return ErrMissingWallet
	}
	return nil
}

// RequireRPC checks that an RPC endpoint is configured
func (c *Config) RequireRPC() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC endpoint not configured. Please set RPC_URL")
	}
	return nil
}
