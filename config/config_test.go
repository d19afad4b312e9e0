package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv makes sure values from the developer's shell don't leak into tests
func clearEnv(t *testing.T) {
	for _, envs := range envBindings {
		for _, env := range envs {
			t.Setenv(env, "")
		}
	}
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OOGABOOGA_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.APIKey)
	assert.NoError(t, cfg.RequireAPIKey())
	assert.Equal(t, "https://mainnet.api.oogabooga.io", cfg.BaseURL)
	assert.Equal(t, int64(31337), cfg.ChainID)
	assert.Equal(t, 0.01, cfg.Slippage)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.ReceiptTimeout)
	assert.Empty(t, cfg.HistoryFile)
	assert.ErrorIs(t, cfg.RequireWallet(), ErrMissingWallet)
	assert.Error(t, cfg.RequireRPC())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OOGABOGA_API_KEY", "legacy-key")
	t.Setenv("RPC_URL", "http://localhost:8545")
	t.Setenv("PRIVATE_KEY", "0xabc")
	t.Setenv("CHAIN_ID", "80094")
	t.Setenv("SLIPPAGE", "0.005")
	t.Setenv("RECEIPT_TIMEOUT", "45s")
	t.Setenv("HISTORY_FILE", "/tmp/swaps.json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "legacy-key", cfg.APIKey)
	assert.Equal(t, int64(80094), cfg.ChainID)
	assert.Equal(t, 0.005, cfg.Slippage)
	assert.Equal(t, 45*time.Second, cfg.ReceiptTimeout)
	assert.Equal(t, "/tmp/swaps.json", cfg.HistoryFile)
	assert.NoError(t, cfg.RequireWallet())
}

func TestLoadMissingAPIKey(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.RequireAPIKey(), ErrMissingAPIKey)
}

func TestLoadNegativeChainID(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHAIN_ID", "-1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid chain id -1")
}
