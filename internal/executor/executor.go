// Package executor runs the per-symbol trade cycle: signal, risk check,
// order placement, and the position exit sweep.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
	"fxSignalBot/internal/risk"
)

// Config holds the executor configuration and its collaborators.
type Config struct {
	Symbols               []string // default USD_JPY
	Interval              string   // kline interval, default 1hour
	LookbackDays          int      // kline history window, default 5
	DefaultSize           int      // order size, default 1
	MaxPositionsPerSymbol int      // default 1
	MaxTotalPositions     int      // default 3
	MinConfidence         float64  // default 0.6
	UseProtectiveOrders   bool     // place IFDOCO instead of plain market orders

	Gateway    ports.OrderGateway
	Market     ports.MarketDataSource
	Indicators ports.IndicatorEngine
	Signals    ports.SignalEngine
	Risk       *risk.Gate
	Results    ports.TradeResultRepository // optional
	Logger     ports.Logger
}

func (c *Config) setDefaults() {
	if len(c.Symbols) == 0 {
		c.Symbols = []string{"USD_JPY"}
	}
	if c.Interval == "" {
		c.Interval = "1hour"
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = 5
	}
	if c.DefaultSize == 0 {
		c.DefaultSize = 1
	}
	if c.MaxPositionsPerSymbol == 0 {
		c.MaxPositionsPerSymbol = 1
	}
	if c.MaxTotalPositions == 0 {
		c.MaxTotalPositions = 3
	}
	if c.MinConfidence == 0 {
		c.MinConfidence = 0.6
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Gateway == nil {
		errs = append(errs, errors.New("order gateway is required"))
	}
	if c.Market == nil {
		errs = append(errs, errors.New("market data source is required"))
	}
	if c.Indicators == nil {
		errs = append(errs, errors.New("indicator engine is required"))
	}
	if c.Signals == nil {
		errs = append(errs, errors.New("signal engine is required"))
	}
	if c.Risk == nil {
		errs = append(errs, errors.New("risk gate is required"))
	}
	if c.Logger == nil {
		errs = append(errs, errors.New("logger is required"))
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("min confidence must be in [0, 1], got %v", c.MinConfidence))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ports.ErrConfigurationError, errors.Join(errs...))
	}
	return nil
}

// Executor drives the trade and monitor cycles. Like the risk gate it owns,
// it is meant to be driven by a single goroutine.
type Executor struct {
	cfg    Config
	logger ports.Logger
	now    func() time.Time
}

// New creates an Executor, applying defaults and validating the configuration.
func New(cfg Config) (*Executor, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Executor{cfg: cfg, logger: cfg.Logger, now: time.Now}, nil
}

// AccountSummary combines the account snapshot with the open position totals.
type AccountSummary struct {
	Assets        *domain.AccountAssets
	Positions     []*domain.Position
	TotalSize     int
	TotalUnrealPL float64
	Risk          risk.Summary
}

// ExecuteSignals runs one full trade cycle over the configured symbols.
// A symbol failure is converted to a failed result and never stops the
// remaining symbols.
func (e *Executor) ExecuteSignals(ctx context.Context) []*domain.TradeResult {
	assets := e.fetchAssets(ctx)

	results := make([]*domain.TradeResult, 0, len(e.cfg.Symbols))
	for _, symbol := range e.cfg.Symbols {
		res, err := e.executeSymbol(ctx, symbol, assets)
		if err != nil {
			e.logger.Error(ctx, err, "Symbol cycle failed", map[string]interface{}{"symbol": symbol})
			res = &domain.TradeResult{
				Action:    domain.ActionSkip,
				Symbol:    symbol,
				Reason:    err.Error(),
				Timestamp: e.now(),
				DryRun:    e.cfg.Gateway.DryRun(),
			}
		}
		e.saveResult(ctx, res)
		results = append(results, res)
	}
	return results
}

// fetchAssets returns the account snapshot, or nil when it cannot be fetched.
// The margin check is simply skipped without it.
func (e *Executor) fetchAssets(ctx context.Context) *domain.AccountAssets {
	assets, err := e.cfg.Gateway.GetAccountAssets(ctx)
	if err != nil {
		e.logger.Warn(ctx, "Account assets unavailable, skipping margin check", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return assets
}

func (e *Executor) executeSymbol(ctx context.Context, symbol string, assets *domain.AccountAssets) (*domain.TradeResult, error) {
	series, err := e.cfg.Market.GetKlinesRange(ctx, symbol, e.cfg.Interval, e.cfg.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetching klines: %w", err)
	}
	snapshot, err := e.cfg.Indicators.Compute(ctx, symbol, e.cfg.Interval, series)
	if err != nil {
		return nil, fmt.Errorf("computing indicators: %w", err)
	}
	sig, err := e.cfg.Signals.Generate(ctx, symbol, snapshot)
	if err != nil {
		return nil, fmt.Errorf("generating signal: %w", err)
	}

	if sig.Type == domain.SignalHold {
		return e.holdResult(symbol, sig.Reason), nil
	}
	if sig.Confidence < e.cfg.MinConfidence {
		reason := fmt.Sprintf("confidence %.2f below threshold %.2f", sig.Confidence, e.cfg.MinConfidence)
		return e.holdResult(symbol, reason), nil
	}

	side := domain.Buy
	action := domain.ActionBuy
	if sig.Type == domain.SignalSell {
		side = domain.Sell
		action = domain.ActionSell
	}

	check := e.cfg.Risk.CheckTradeAllowed(ctx, symbol, side, e.cfg.DefaultSize, assets)
	if !check.CanTrade {
		e.logger.Warn(ctx, "Trade blocked by risk gate", map[string]interface{}{
			"symbol": symbol,
			"level":  string(check.Level),
			"reason": check.Reason,
		})
		return &domain.TradeResult{
			Action:    domain.ActionSkip,
			Symbol:    symbol,
			Reason:    check.Reason,
			Timestamp: e.now(),
			DryRun:    e.cfg.Gateway.DryRun(),
		}, nil
	}

	if ok, reason := e.canOpenPosition(ctx, symbol); !ok {
		return &domain.TradeResult{
			Action:    domain.ActionSkip,
			Symbol:    symbol,
			Reason:    reason,
			Timestamp: e.now(),
			DryRun:    e.cfg.Gateway.DryRun(),
		}, nil
	}

	return e.placeEntry(ctx, symbol, side, action, sig, snapshot)
}

func (e *Executor) holdResult(symbol, reason string) *domain.TradeResult {
	return &domain.TradeResult{
		Success:   true,
		Action:    domain.ActionHold,
		Symbol:    symbol,
		Reason:    reason,
		Timestamp: e.now(),
		DryRun:    e.cfg.Gateway.DryRun(),
	}
}

// canOpenPosition enforces the per-symbol and total position caps. In dry-run
// mode there is no real position state, so the check is skipped entirely.
func (e *Executor) canOpenPosition(ctx context.Context, symbol string) (bool, string) {
	if e.cfg.Gateway.DryRun() {
		return true, ""
	}
	symbolPositions, err := e.cfg.Gateway.GetPositions(ctx, symbol)
	if err != nil {
		return false, fmt.Sprintf("position query failed: %v", err)
	}
	if len(symbolPositions) >= e.cfg.MaxPositionsPerSymbol {
		return false, fmt.Sprintf("position limit reached for %s: %d/%d",
			symbol, len(symbolPositions), e.cfg.MaxPositionsPerSymbol)
	}
	allPositions, err := e.cfg.Gateway.GetPositions(ctx, "")
	if err != nil {
		return false, fmt.Sprintf("position query failed: %v", err)
	}
	if len(allPositions) >= e.cfg.MaxTotalPositions {
		return false, fmt.Sprintf("total position limit reached: %d/%d",
			len(allPositions), e.cfg.MaxTotalPositions)
	}
	return true, ""
}

func (e *Executor) placeEntry(ctx context.Context, symbol string, side domain.OrderSide, action domain.TradeAction, sig *domain.Signal, snapshot *domain.IndicatorSnapshot) (*domain.TradeResult, error) {
	var (
		orderID string
		err     error
	)
	if e.cfg.UseProtectiveOrders {
		entry := snapshot.LatestPrice
		order, placeErr := e.cfg.Gateway.PlaceIFDOCOOrder(ctx, ports.IFDOCORequest{
			Symbol:          symbol,
			Side:            side,
			Size:            e.cfg.DefaultSize,
			EntryType:       domain.ExecLimit,
			EntryPrice:      formatPrice(symbol, entry),
			TakeProfitPrice: formatPrice(symbol, e.cfg.Risk.CalculateTakeProfit(entry, side, symbol)),
			StopLossPrice:   formatPrice(symbol, e.cfg.Risk.CalculateStopLoss(entry, side, symbol)),
		})
		if placeErr != nil {
			err = placeErr
		} else {
			orderID = order.RootOrderID()
		}
	} else {
		ack, placeErr := e.cfg.Gateway.PlaceOrder(ctx, ports.OrderRequest{
			Symbol: symbol,
			Side:   side,
			Size:   e.cfg.DefaultSize,
		})
		if placeErr != nil {
			err = placeErr
		} else {
			orderID = ack.OrderID
		}
	}

	if err != nil {
		// A refused order is a final answer for this cycle; anything else
		// bubbles up as a symbol failure.
		if errors.Is(err, ports.ErrOrderRejected) || errors.Is(err, ports.ErrAuthenticationFailed) {
			e.logger.Error(ctx, err, "Order refused", map[string]interface{}{"symbol": symbol})
			return &domain.TradeResult{
				Action:    action,
				Symbol:    symbol,
				Size:      e.cfg.DefaultSize,
				Reason:    err.Error(),
				Timestamp: e.now(),
				DryRun:    e.cfg.Gateway.DryRun(),
			}, nil
		}
		return nil, fmt.Errorf("placing order: %w", err)
	}

	e.logger.Info(ctx, "Order placed", map[string]interface{}{
		"symbol":     symbol,
		"side":       string(side),
		"size":       e.cfg.DefaultSize,
		"order_id":   orderID,
		"confidence": sig.Confidence,
		"dry_run":    e.cfg.Gateway.DryRun(),
	})
	return &domain.TradeResult{
		Success:   true,
		Action:    action,
		Symbol:    symbol,
		Size:      e.cfg.DefaultSize,
		OrderID:   orderID,
		Reason:    sig.Reason,
		Timestamp: e.now(),
		DryRun:    e.cfg.Gateway.DryRun(),
	}, nil
}

// MonitorPositions sweeps open positions against the exit rules and closes
// the ones that hit a stop, a target, or the age limit. Realized results are
// fed back into the risk gate.
func (e *Executor) MonitorPositions(ctx context.Context) []*domain.TradeResult {
	var results []*domain.TradeResult
	for _, symbol := range e.cfg.Symbols {
		positions, err := e.cfg.Gateway.GetPositions(ctx, symbol)
		if err != nil {
			e.logger.Error(ctx, err, "Position query failed", map[string]interface{}{"symbol": symbol})
			continue
		}
		if len(positions) == 0 {
			continue
		}

		series, err := e.cfg.Market.GetKlinesRange(ctx, symbol, e.cfg.Interval, 1)
		if err != nil || len(series) == 0 {
			e.logger.Warn(ctx, "No current price, skipping position sweep", map[string]interface{}{
				"symbol": symbol,
			})
			continue
		}
		price := series.LatestClose()

		for _, pos := range positions {
			shouldClose, reason := e.cfg.Risk.ShouldClosePosition(pos, price)
			if !shouldClose {
				continue
			}
			res := e.closePosition(ctx, pos, reason)
			e.saveResult(ctx, res)
			results = append(results, res)
		}
	}
	return results
}

func (e *Executor) closePosition(ctx context.Context, pos *domain.Position, reason string) *domain.TradeResult {
	e.logger.Info(ctx, "Closing position", map[string]interface{}{
		"position_id": pos.PositionID,
		"symbol":      pos.Symbol,
		"reason":      reason,
	})
	res := &domain.TradeResult{
		Action:    domain.ActionClose,
		Symbol:    pos.Symbol,
		Size:      pos.Size,
		Reason:    reason,
		Timestamp: e.now(),
		DryRun:    e.cfg.Gateway.DryRun(),
	}
	ack, err := e.cfg.Gateway.ClosePosition(ctx, ports.CloseRequest{
		Symbol:     pos.Symbol,
		Side:       pos.Side.Invert(),
		Size:       pos.Size,
		PositionID: pos.PositionID,
	})
	if err != nil {
		e.logger.Error(ctx, err, "Position close failed", map[string]interface{}{
			"position_id": pos.PositionID,
		})
		res.Reason = fmt.Sprintf("%s; close failed: %v", reason, err)
		return res
	}
	res.Success = true
	res.OrderID = ack.OrderID
	e.cfg.Risk.RecordTradeResult(ctx, pos.ProfitLoss)
	return res
}

// ClosePositionsForSymbol closes every open position for one symbol, used by
// the manual close path. Both sides are bulk-closed when present.
func (e *Executor) ClosePositionsForSymbol(ctx context.Context, symbol string) ([]*domain.TradeResult, error) {
	positions, err := e.cfg.Gateway.GetPositions(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("fetching positions for %s: %w", symbol, err)
	}
	if len(positions) == 0 {
		return nil, nil
	}

	sides := map[domain.OrderSide]int{}
	for _, pos := range positions {
		sides[pos.Side] += pos.Size
	}

	var results []*domain.TradeResult
	for _, side := range []domain.OrderSide{domain.Buy, domain.Sell} {
		size, present := sides[side]
		if !present {
			continue
		}
		res := &domain.TradeResult{
			Action:    domain.ActionClose,
			Symbol:    symbol,
			Size:      size,
			Reason:    "manual close",
			Timestamp: e.now(),
			DryRun:    e.cfg.Gateway.DryRun(),
		}
		// The closing order side is opposite the position side.
		ack, err := e.cfg.Gateway.CloseAllPositions(ctx, symbol, side.Invert())
		if err != nil {
			e.logger.Error(ctx, err, "Bulk close failed", map[string]interface{}{
				"symbol": symbol,
				"side":   string(side),
			})
			res.Reason = fmt.Sprintf("manual close failed: %v", err)
		} else {
			res.Success = true
			res.OrderID = ack.OrderID
		}
		e.saveResult(ctx, res)
		results = append(results, res)
	}
	return results, nil
}

// GetAccountSummary returns the assets, open positions and risk counters.
func (e *Executor) GetAccountSummary(ctx context.Context) (*AccountSummary, error) {
	assets, err := e.cfg.Gateway.GetAccountAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching account assets: %w", err)
	}
	positions, err := e.cfg.Gateway.GetPositions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}
	summary := &AccountSummary{
		Assets:    assets,
		Positions: positions,
		Risk:      e.cfg.Risk.GetSummary(ctx),
	}
	for _, pos := range positions {
		summary.TotalSize += pos.Size
		summary.TotalUnrealPL += pos.ProfitLoss
	}
	return summary, nil
}

// saveResult persists a trade result when a repository is configured.
// Persistence failures are logged, never fatal.
func (e *Executor) saveResult(ctx context.Context, res *domain.TradeResult) {
	if e.cfg.Results == nil {
		return
	}
	if _, err := e.cfg.Results.SaveTradeResult(ctx, res); err != nil {
		e.logger.Warn(ctx, "Failed to persist trade result", map[string]interface{}{
			"symbol": res.Symbol,
			"error":  err.Error(),
		})
	}
}

// formatPrice renders a price with the broker's precision for the symbol:
// 3 decimals for JPY-quoted pairs, 5 otherwise.
func formatPrice(symbol string, price float64) string {
	if domain.PipValue(symbol) == 0.01 {
		return fmt.Sprintf("%.3f", price)
	}
	return fmt.Sprintf("%.5f", price)
}
