// Package config loads the application configuration from an optional YAML
// parameter file plus environment variables (.env supported). Credentials
// come from the environment only; env vars override file values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// APIConfig configures the broker client.
type APIConfig struct {
	Key               string `yaml:"-"` // GMO_API_KEY
	Secret            string `yaml:"-"` // GMO_API_SECRET
	BaseURL           string `yaml:"base_url"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
	MaxRetries        int    `yaml:"max_retries"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
	DryRun            bool   `yaml:"dry_run"`
}

// TradingConfig configures the executor.
type TradingConfig struct {
	Symbols               []string `yaml:"symbols"`
	Interval              string   `yaml:"interval"`
	LookbackDays          int      `yaml:"lookback_days"`
	OrderSize             int      `yaml:"order_size"`
	MinConfidence         float64  `yaml:"min_confidence"`
	MaxPositionsPerSymbol int      `yaml:"max_positions_per_symbol"`
	MaxTotalPositions     int      `yaml:"max_total_positions"`
	UseProtectiveOrders   bool     `yaml:"use_protective_orders"`
}

// RiskConfig configures the risk gate.
type RiskConfig struct {
	StopLossPips         float64 `yaml:"stop_loss_pips"`
	TakeProfitPips       float64 `yaml:"take_profit_pips"`
	MaxDailyLoss         float64 `yaml:"max_daily_loss"`
	MaxDailyTrades       int     `yaml:"max_daily_trades"`
	MaxPositionHours     int     `yaml:"max_position_hours"`
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses"`
	MinMarginRatio       float64 `yaml:"min_margin_ratio"`
}

// SignalConfig configures the signal engine and its news feed.
type SignalConfig struct {
	RuleVersion       string `yaml:"rule_version"`
	NewsLookbackHours int    `yaml:"news_lookback_hours"`
	MinNewsImpact     int    `yaml:"min_news_impact"`
	MaxNewsItems      int    `yaml:"max_news_items"`
}

// ScheduleConfig holds the cron expressions for the two cycles.
type ScheduleConfig struct {
	TradeCron   string `yaml:"trade_cron"`
	MonitorCron string `yaml:"monitor_cron"`
	RunOnStart  bool   `yaml:"run_on_start"`
}

// Config holds all application configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Trading  TradingConfig  `yaml:"trading"`
	Risk     RiskConfig     `yaml:"risk"`
	Signal   SignalConfig   `yaml:"signal"`
	Schedule ScheduleConfig `yaml:"schedule"`

	DBPath    string `yaml:"db_path"`
	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`
}

// Timeout returns the HTTP timeout as a duration.
func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryDelay returns the base retry delay as a duration.
func (c *APIConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// NewsLookback returns the news window as a duration.
func (c *SignalConfig) NewsLookback() time.Duration {
	return time.Duration(c.NewsLookbackHours) * time.Hour
}

// LoadConfig loads the configuration. The file path comes from CONFIG_FILE
// (default ./config.yaml); a missing file is not an error, everything has
// defaults or an env var.
func LoadConfig() (*Config, error) {
	// Load .env if present; pure env vars work too.
	_ = godotenv.Load()

	cfg := defaultConfig()

	path := getEnv("CONFIG_FILE", "./config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			TimeoutSeconds:    30,
			MaxRetries:        3,
			RetryDelaySeconds: 1,
			DryRun:            true, // default to dry-run for safety
		},
		Trading: TradingConfig{
			Symbols:               []string{"USD_JPY"},
			Interval:              "1hour",
			LookbackDays:          5,
			OrderSize:             1,
			MinConfidence:         0.6,
			MaxPositionsPerSymbol: 1,
			MaxTotalPositions:     3,
		},
		Risk: RiskConfig{
			StopLossPips:         50,
			TakeProfitPips:       100,
			MaxDailyLoss:         50000,
			MaxDailyTrades:       10,
			MaxPositionHours:     24,
			MaxConsecutiveLosses: 3,
			MinMarginRatio:       100,
		},
		Signal: SignalConfig{
			RuleVersion:       "v1.0",
			NewsLookbackHours: 24,
			MinNewsImpact:     3,
			MaxNewsItems:      10,
		},
		Schedule: ScheduleConfig{
			TradeCron:   "0 * * * *",
			MonitorCron: "*/15 * * * *",
		},
		DBPath:   "./data/fx_signal_bot.db",
		LogLevel: "INFO",
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.API.Key = getEnv("GMO_API_KEY", cfg.API.Key)
	cfg.API.Secret = getEnv("GMO_API_SECRET", cfg.API.Secret)
	cfg.API.BaseURL = getEnv("GMO_BASE_URL", cfg.API.BaseURL)
	cfg.API.DryRun = getEnvAsBool("DRY_RUN", cfg.API.DryRun)

	if symbols := getEnv("SYMBOLS", ""); symbols != "" {
		cfg.Trading.Symbols = splitSymbols(symbols)
	}
	cfg.Trading.Interval = getEnv("INTERVAL", cfg.Trading.Interval)
	cfg.Trading.OrderSize = getEnvAsInt("ORDER_SIZE", cfg.Trading.OrderSize)
	cfg.Trading.MinConfidence = getEnvAsFloat("MIN_CONFIDENCE", cfg.Trading.MinConfidence)

	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = getEnvAsBool("LOG_PRETTY", cfg.LogPretty)
}

func (c *Config) validate() error {
	var errs []string

	if !c.API.DryRun {
		if c.API.Key == "" {
			errs = append(errs, "GMO_API_KEY must be set for live trading")
		}
		if c.API.Secret == "" {
			errs = append(errs, "GMO_API_SECRET must be set for live trading")
		}
	}
	if c.API.TimeoutSeconds <= 0 {
		errs = append(errs, "api.timeout_seconds must be positive")
	}
	if c.API.MaxRetries < 0 {
		errs = append(errs, "api.max_retries cannot be negative")
	}

	if len(c.Trading.Symbols) == 0 {
		errs = append(errs, "trading.symbols must not be empty")
	}
	for _, symbol := range c.Trading.Symbols {
		if symbol == "" {
			errs = append(errs, "trading.symbols must not contain empty entries")
			break
		}
	}
	if c.Trading.OrderSize <= 0 {
		errs = append(errs, "trading.order_size must be positive")
	}
	if c.Trading.MinConfidence < 0 || c.Trading.MinConfidence > 1 {
		errs = append(errs, "trading.min_confidence must be between 0 and 1")
	}
	if c.Trading.LookbackDays <= 0 {
		errs = append(errs, "trading.lookback_days must be positive")
	}
	if c.Trading.MaxPositionsPerSymbol <= 0 || c.Trading.MaxTotalPositions <= 0 {
		errs = append(errs, "trading position limits must be positive")
	}

	if c.Risk.StopLossPips <= 0 || c.Risk.TakeProfitPips <= 0 {
		errs = append(errs, "risk pip distances must be positive")
	}
	if c.Risk.MaxDailyLoss <= 0 {
		errs = append(errs, "risk.max_daily_loss must be positive")
	}
	if c.Risk.MaxDailyTrades <= 0 || c.Risk.MaxConsecutiveLosses <= 0 {
		errs = append(errs, "risk daily limits must be positive")
	}

	if c.Signal.NewsLookbackHours <= 0 {
		errs = append(errs, "signal.news_lookback_hours must be positive")
	}
	if c.Signal.MinNewsImpact < 1 || c.Signal.MinNewsImpact > 5 {
		errs = append(errs, "signal.min_news_impact must be between 1 and 5")
	}

	if c.DBPath == "" {
		errs = append(errs, "db_path must be set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func splitSymbols(raw string) []string {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			symbols = append(symbols, trimmed)
		}
	}
	return symbols
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
