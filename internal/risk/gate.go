// Package risk enforces the pre-trade limits and position exit rules.
//
// The Gate is owned by a single goroutine (the executor's cycle); it is not
// safe for concurrent use.
package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
)

// Level classifies how close the account is to its limits.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// Config holds the risk limits.
type Config struct {
	StopLossPips         float64 // default 50
	TakeProfitPips       float64 // default 100
	MaxDailyLoss         float64 // in account currency, default 50000
	MaxDailyTrades       int     // default 10
	MaxPositionHours     int     // default 24
	MaxConsecutiveLosses int     // default 3
	MinMarginRatio       float64 // percent, default 100
	Logger               ports.Logger
}

func (c *Config) setDefaults() {
	if c.StopLossPips == 0 {
		c.StopLossPips = 50
	}
	if c.TakeProfitPips == 0 {
		c.TakeProfitPips = 100
	}
	if c.MaxDailyLoss == 0 {
		c.MaxDailyLoss = 50000
	}
	if c.MaxDailyTrades == 0 {
		c.MaxDailyTrades = 10
	}
	if c.MaxPositionHours == 0 {
		c.MaxPositionHours = 24
	}
	if c.MaxConsecutiveLosses == 0 {
		c.MaxConsecutiveLosses = 3
	}
	if c.MinMarginRatio == 0 {
		c.MinMarginRatio = 100
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Logger == nil {
		errs = append(errs, errors.New("logger is required"))
	}
	if c.StopLossPips < 0 || c.TakeProfitPips < 0 {
		errs = append(errs, fmt.Errorf("pip distances must be non-negative: sl=%v tp=%v", c.StopLossPips, c.TakeProfitPips))
	}
	if c.MaxDailyLoss < 0 || c.MaxDailyTrades < 0 || c.MaxConsecutiveLosses < 0 {
		errs = append(errs, errors.New("daily limits must be non-negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ports.ErrConfigurationError, errors.Join(errs...))
	}
	return nil
}

// Details carries the counters behind a check decision.
type Details struct {
	Symbol            string
	Side              domain.OrderSide
	Size              int
	DailyLoss         float64
	DailyTrades       int
	ConsecutiveLosses int
	Balance           float64
	Margin            float64
	MarginRatio       float64
}

// Check is the outcome of a pre-trade risk evaluation.
type Check struct {
	CanTrade bool
	Reason   string
	Level    Level
	Details  Details
}

// Summary is a point-in-time snapshot of the gate's state for logging.
type Summary struct {
	DailyLoss            float64
	MaxDailyLoss         float64
	DailyLossRatio       float64
	DailyTrades          int
	MaxDailyTrades       int
	ConsecutiveLosses    int
	MaxConsecutiveLosses int
	Level                Level
	StopLossPips         float64
	TakeProfitPips       float64
	LastReset            time.Time
}

// Gate tracks daily loss, trade count and the losing streak, and answers
// go/no-go questions before each order. Daily counters reset lazily on the
// first check or record of a new calendar day; the losing streak survives the
// rollover and only a winning trade clears it.
type Gate struct {
	cfg    Config
	logger ports.Logger
	now    func() time.Time

	dailyLoss         float64
	dailyTrades       int
	consecutiveLosses int
	lastReset         time.Time // zero until the first rollover
}

// New creates a Gate, applying defaults and validating the configuration.
func New(cfg Config) (*Gate, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Gate{cfg: cfg, logger: cfg.Logger, now: time.Now}, nil
}

// CheckTradeAllowed runs the ordered limit checks for a prospective order.
// Account assets are optional; when present the margin ratio is checked too.
func (g *Gate) CheckTradeAllowed(ctx context.Context, symbol string, side domain.OrderSide, size int, assets *domain.AccountAssets) Check {
	g.rolloverIfNeeded(ctx)

	details := Details{
		Symbol:            symbol,
		Side:              side,
		Size:              size,
		DailyLoss:         g.dailyLoss,
		DailyTrades:       g.dailyTrades,
		ConsecutiveLosses: g.consecutiveLosses,
	}

	if g.consecutiveLosses >= g.cfg.MaxConsecutiveLosses {
		return Check{
			Reason: fmt.Sprintf("consecutive losses limit reached: %d/%d",
				g.consecutiveLosses, g.cfg.MaxConsecutiveLosses),
			Level:   LevelCritical,
			Details: details,
		}
	}

	// Inclusive boundary: reaching the limit exactly blocks trading.
	if g.dailyLoss >= g.cfg.MaxDailyLoss {
		return Check{
			Reason: fmt.Sprintf("daily loss limit reached: %.0f/%.0f",
				g.dailyLoss, g.cfg.MaxDailyLoss),
			Level:   LevelCritical,
			Details: details,
		}
	}

	if g.dailyTrades >= g.cfg.MaxDailyTrades {
		return Check{
			Reason: fmt.Sprintf("daily trade limit reached: %d/%d",
				g.dailyTrades, g.cfg.MaxDailyTrades),
			Level:   LevelHigh,
			Details: details,
		}
	}

	if assets != nil {
		// The broker reports margin ratio as balance/margin*100, with no open
		// margin treated as 100%.
		ratio := 100.0
		if assets.Margin != 0 {
			ratio = assets.Balance / assets.Margin * 100
		}
		details.Balance = assets.Balance
		details.Margin = assets.Margin
		details.MarginRatio = ratio
		if ratio < g.cfg.MinMarginRatio {
			return Check{
				Reason: fmt.Sprintf("margin ratio too low: %.1f%% < %.1f%%",
					ratio, g.cfg.MinMarginRatio),
				Level:   LevelCritical,
				Details: details,
			}
		}
	}

	return Check{
		CanTrade: true,
		Reason:   "trade allowed",
		Level:    g.level(),
		Details:  details,
	}
}

// RecordTradeResult feeds a realized result back into the counters.
// Every result counts as a trade; a loss grows the daily loss and the streak,
// a win (or flat result) clears the streak.
func (g *Gate) RecordTradeResult(ctx context.Context, profitLoss float64) {
	g.rolloverIfNeeded(ctx)
	g.dailyTrades++
	if profitLoss < 0 {
		g.dailyLoss += math.Abs(profitLoss)
		g.consecutiveLosses++
	} else {
		g.consecutiveLosses = 0
	}
	g.logger.Info(ctx, "Trade result recorded", map[string]interface{}{
		"profit_loss":        profitLoss,
		"daily_loss":         g.dailyLoss,
		"consecutive_losses": g.consecutiveLosses,
	})
}

// CalculateStopLoss returns the stop-loss price for an entry.
func (g *Gate) CalculateStopLoss(entryPrice float64, side domain.OrderSide, symbol string) float64 {
	distance := g.cfg.StopLossPips * domain.PipValue(symbol)
	if side == domain.Buy {
		return entryPrice - distance
	}
	return entryPrice + distance
}

// CalculateTakeProfit returns the take-profit price for an entry.
func (g *Gate) CalculateTakeProfit(entryPrice float64, side domain.OrderSide, symbol string) float64 {
	distance := g.cfg.TakeProfitPips * domain.PipValue(symbol)
	if side == domain.Buy {
		return entryPrice + distance
	}
	return entryPrice - distance
}

// ShouldClosePosition checks the exit rules in order: stop loss, take profit,
// then position age. The first rule that fires wins.
func (g *Gate) ShouldClosePosition(pos *domain.Position, currentPrice float64) (bool, string) {
	if !pos.IsValid() {
		return false, "invalid position data"
	}

	stopLoss := g.CalculateStopLoss(pos.EntryPrice, pos.Side, pos.Symbol)
	takeProfit := g.CalculateTakeProfit(pos.EntryPrice, pos.Side, pos.Symbol)

	if pos.Side == domain.Buy && currentPrice <= stopLoss {
		return true, fmt.Sprintf("stop loss triggered: %v <= %v", currentPrice, stopLoss)
	}
	if pos.Side == domain.Sell && currentPrice >= stopLoss {
		return true, fmt.Sprintf("stop loss triggered: %v >= %v", currentPrice, stopLoss)
	}

	if pos.Side == domain.Buy && currentPrice >= takeProfit {
		return true, fmt.Sprintf("take profit triggered: %v >= %v", currentPrice, takeProfit)
	}
	if pos.Side == domain.Sell && currentPrice <= takeProfit {
		return true, fmt.Sprintf("take profit triggered: %v <= %v", currentPrice, takeProfit)
	}

	if !pos.OpenedAt.IsZero() {
		ageHours := g.now().Sub(pos.OpenedAt).Hours()
		if ageHours >= float64(g.cfg.MaxPositionHours) {
			return true, fmt.Sprintf("position age exceeded: %.1fh > %dh", ageHours, g.cfg.MaxPositionHours)
		}
	}

	return false, "position OK"
}

// GetSummary returns the current counters and risk level.
func (g *Gate) GetSummary(ctx context.Context) Summary {
	g.rolloverIfNeeded(ctx)
	lossRatio := 0.0
	if g.cfg.MaxDailyLoss > 0 {
		lossRatio = g.dailyLoss / g.cfg.MaxDailyLoss
	}
	return Summary{
		DailyLoss:            g.dailyLoss,
		MaxDailyLoss:         g.cfg.MaxDailyLoss,
		DailyLossRatio:       lossRatio,
		DailyTrades:          g.dailyTrades,
		MaxDailyTrades:       g.cfg.MaxDailyTrades,
		ConsecutiveLosses:    g.consecutiveLosses,
		MaxConsecutiveLosses: g.cfg.MaxConsecutiveLosses,
		Level:                g.level(),
		StopLossPips:         g.cfg.StopLossPips,
		TakeProfitPips:       g.cfg.TakeProfitPips,
		LastReset:            g.lastReset,
	}
}

// level grades how much of each daily budget is consumed.
func (g *Gate) level() Level {
	var lossRatio, tradeRatio, streakRatio float64
	if g.cfg.MaxDailyLoss > 0 {
		lossRatio = g.dailyLoss / g.cfg.MaxDailyLoss
	}
	if g.cfg.MaxDailyTrades > 0 {
		tradeRatio = float64(g.dailyTrades) / float64(g.cfg.MaxDailyTrades)
	}
	if g.cfg.MaxConsecutiveLosses > 0 {
		streakRatio = float64(g.consecutiveLosses) / float64(g.cfg.MaxConsecutiveLosses)
	}
	maxRatio := math.Max(lossRatio, math.Max(tradeRatio, streakRatio))
	switch {
	case maxRatio >= 0.8:
		return LevelHigh
	case maxRatio >= 0.5:
		return LevelMedium
	default:
		return LevelLow
	}
}

// rolloverIfNeeded resets the daily counters on the first call of a new
// calendar day. The losing streak is deliberately left untouched.
func (g *Gate) rolloverIfNeeded(ctx context.Context) {
	today := dateOnly(g.now())
	if g.lastReset.IsZero() || !g.lastReset.Equal(today) {
		if !g.lastReset.IsZero() {
			g.logger.Info(ctx, "Resetting daily risk counters", map[string]interface{}{
				"previous_day": g.lastReset.Format("2006-01-02"),
			})
		}
		g.dailyLoss = 0
		g.dailyTrades = 0
		g.lastReset = today
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
