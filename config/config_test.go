package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable the loader reads so tests are hermetic.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "GMO_API_KEY", "GMO_API_SECRET", "GMO_BASE_URL", "DRY_RUN",
		"SYMBOLS", "INTERVAL", "ORDER_SIZE", "MIN_CONFIDENCE",
		"DB_PATH", "LOG_LEVEL", "LOG_PRETTY",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefaultsAreDryRunSafe(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.API.DryRun)
	assert.Equal(t, []string{"USD_JPY"}, cfg.Trading.Symbols)
	assert.Equal(t, "1hour", cfg.Trading.Interval)
	assert.InDelta(t, 0.6, cfg.Trading.MinConfidence, 1e-9)
	assert.InDelta(t, 50.0, cfg.Risk.StopLossPips, 1e-9)
	assert.Equal(t, 3, cfg.Signal.MinNewsImpact)
	assert.Equal(t, "0 * * * *", cfg.Schedule.TradeCron)
}

func TestYAMLFileOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  dry_run: true
  timeout_seconds: 10
trading:
  symbols: [USD_JPY, EUR_JPY]
  min_confidence: 0.75
  use_protective_orders: true
risk:
  stop_loss_pips: 30
  max_daily_trades: 5
signal:
  rule_version: v2.1
schedule:
  trade_cron: "30 * * * *"
  run_on_start: true
log_level: DEBUG
`), 0644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"USD_JPY", "EUR_JPY"}, cfg.Trading.Symbols)
	assert.InDelta(t, 0.75, cfg.Trading.MinConfidence, 1e-9)
	assert.True(t, cfg.Trading.UseProtectiveOrders)
	assert.InDelta(t, 30.0, cfg.Risk.StopLossPips, 1e-9)
	assert.Equal(t, 5, cfg.Risk.MaxDailyTrades)
	assert.Equal(t, "v2.1", cfg.Signal.RuleVersion)
	assert.Equal(t, "30 * * * *", cfg.Schedule.TradeCron)
	assert.True(t, cfg.Schedule.RunOnStart)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	// File-unset values keep their defaults.
	assert.Equal(t, 3, cfg.Risk.MaxConsecutiveLosses)
	assert.InDelta(t, 100.0, cfg.Risk.TakeProfitPips, 1e-9)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trading:\n  symbols: [USD_JPY]\n"), 0644))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SYMBOLS", "EUR_JPY, EUR_USD")
	t.Setenv("MIN_CONFIDENCE", "0.8")
	t.Setenv("DB_PATH", "/tmp/override.db")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"EUR_JPY", "EUR_USD"}, cfg.Trading.Symbols)
	assert.InDelta(t, 0.8, cfg.Trading.MinConfidence, 1e-9)
	assert.Equal(t, "/tmp/override.db", cfg.DBPath)
}

func TestLiveTradingRequiresCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DRY_RUN", "false")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GMO_API_KEY")
	assert.Contains(t, err.Error(), "GMO_API_SECRET")
}

func TestInvalidValuesAreCollected(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
trading:
  min_confidence: 1.5
risk:
  stop_loss_pips: -10
signal:
  min_news_impact: 9
`), 0644))
	t.Setenv("CONFIG_FILE", path)

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_confidence")
	assert.Contains(t, err.Error(), "pip distances")
	assert.Contains(t, err.Error(), "min_news_impact")
}
