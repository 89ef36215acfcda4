package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("CHAINRAILS_API_KEY", "secret")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "SN_MAIN", cfg.Network)
	assert.Equal(t, 15*time.Second, cfg.QuoteCacheTTL)
	assert.Equal(t, 15*time.Second, cfg.QuoteFeedInterval)
	assert.Equal(t, int64(100), cfg.SlippageBps)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisURL)
}

func TestParseRequiresAPIKey(t *testing.T) {
	t.Setenv("CHAINRAILS_API_KEY", "")

	_, err := Parse()
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestParseRejectsSlippage(t *testing.T) {
	t.Setenv("CHAINRAILS_API_KEY", "secret")
	t.Setenv("SLIPPAGE_BPS", "20000")

	_, err := Parse()
	assert.Error(t, err)
}

func TestLoadConfigReadsEnvLocal(t *testing.T) {
	dir := t.TempDir()
	content := "CHAINRAILS_API_KEY=from-file\nPORT=4100\nQUOTE_CACHE_TTL=1m\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env.local"), []byte(content), 0o600))

	// godotenv never overrides variables that are already set.
	t.Setenv("CHAINRAILS_API_KEY", "")
	os.Unsetenv("CHAINRAILS_API_KEY")
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	t.Setenv("QUOTE_CACHE_TTL", "")
	os.Unsetenv("QUOTE_CACHE_TTL")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.ChainrailsAPIKey)
	assert.Equal(t, "4100", cfg.Port)
	assert.Equal(t, time.Minute, cfg.QuoteCacheTTL)
}

func TestLoadClientConfigAllowsMissingAPIKey(t *testing.T) {
	t.Setenv("CHAINRAILS_API_KEY", "")
	t.Setenv("SESSION_BASE_URL", "http://localhost:3000")

	cfg, err := LoadClientConfig(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.ChainrailsAPIKey)
	assert.Equal(t, "http://localhost:3000", cfg.SessionBaseURL)
}
