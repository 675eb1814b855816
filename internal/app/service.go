// Package app wires the trading service lifecycle: startup checks, the
// scheduled cycles, and graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
	"fxSignalBot/internal/scheduler"
)

// Cycles is the executor surface the service drives.
type Cycles interface {
	ExecuteSignals(ctx context.Context) []*domain.TradeResult
	MonitorPositions(ctx context.Context) []*domain.TradeResult
}

// Config holds the service dependencies.
type Config struct {
	Symbols     []string
	Interval    string // kline interval for the startup check, default 1hour
	TradeCron   string
	MonitorCron string
	RunOnStart  bool // run one trade cycle immediately after startup

	Executor Cycles
	Market   ports.MarketDataSource
	Logger   ports.Logger
}

func (c *Config) setDefaults() {
	if len(c.Symbols) == 0 {
		c.Symbols = []string{"USD_JPY"}
	}
	if c.Interval == "" {
		c.Interval = "1hour"
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Executor == nil {
		errs = append(errs, errors.New("executor is required"))
	}
	if c.Market == nil {
		errs = append(errs, errors.New("market data source is required"))
	}
	if c.Logger == nil {
		errs = append(errs, errors.New("logger is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ports.ErrConfigurationError, errors.Join(errs...))
	}
	return nil
}

// Service runs the bot: a startup connectivity check, then the cron-driven
// trade and monitor cycles until a shutdown signal arrives.
type Service struct {
	cfg    Config
	logger ports.Logger
}

// New creates the Service after validating its dependencies.
func New(cfg Config) (*Service, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, logger: cfg.Logger}, nil
}

// Start blocks until the context is cancelled or SIGINT/SIGTERM arrives.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting trading service", map[string]interface{}{
		"symbols": s.cfg.Symbols,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.connectivityCheck(ctx); err != nil {
		return err
	}

	sched, err := scheduler.New(ctx, scheduler.Config{
		TradeCron:   s.cfg.TradeCron,
		MonitorCron: s.cfg.MonitorCron,
		Executor:    s.cfg.Executor,
		Logger:      s.logger,
	})
	if err != nil {
		return err
	}

	if s.cfg.RunOnStart {
		s.logger.Info(ctx, "Running initial trade cycle")
		s.cfg.Executor.ExecuteSignals(ctx)
	}

	sched.Start()
	<-ctx.Done()
	sched.Stop()

	s.logger.Info(context.Background(), "Trading service stopped")
	return nil
}

// RunOnce executes a single trade cycle followed by a position sweep,
// for manual invocations.
func (s *Service) RunOnce(ctx context.Context) error {
	if err := s.connectivityCheck(ctx); err != nil {
		return err
	}
	results := s.cfg.Executor.ExecuteSignals(ctx)
	for _, res := range results {
		s.logger.Info(ctx, "Cycle result", map[string]interface{}{
			"symbol":  res.Symbol,
			"action":  string(res.Action),
			"success": res.Success,
			"reason":  res.Reason,
		})
	}
	s.cfg.Executor.MonitorPositions(ctx)
	return nil
}

// connectivityCheck fetches one day of bars for the first symbol so a broken
// endpoint or network fails fast instead of at the first scheduled cycle.
func (s *Service) connectivityCheck(ctx context.Context) error {
	symbol := s.cfg.Symbols[0]
	series, err := s.cfg.Market.GetKlines(ctx, symbol, s.cfg.Interval, "")
	if err != nil {
		s.logger.Error(ctx, err, "Startup connectivity check failed", map[string]interface{}{"symbol": symbol})
		return fmt.Errorf("connectivity check: %w", err)
	}
	s.logger.Info(ctx, "Connectivity check passed", map[string]interface{}{
		"symbol": symbol,
		"bars":   len(series),
	})
	return nil
}
