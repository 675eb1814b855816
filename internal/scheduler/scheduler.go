// Package scheduler runs the trade and monitor cycles on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
)

// Cycles is the executor surface the scheduler drives.
type Cycles interface {
	ExecuteSignals(ctx context.Context) []*domain.TradeResult
	MonitorPositions(ctx context.Context) []*domain.TradeResult
}

// Config holds the cron expressions for the two cycles.
type Config struct {
	TradeCron   string // default: hourly on the hour
	MonitorCron string // default: every 15 minutes
	Executor    Cycles
	Logger      ports.Logger
}

func (c *Config) setDefaults() {
	if c.TradeCron == "" {
		c.TradeCron = "0 * * * *"
	}
	if c.MonitorCron == "" {
		c.MonitorCron = "*/15 * * * *"
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Executor == nil {
		errs = append(errs, errors.New("executor is required"))
	}
	if c.Logger == nil {
		errs = append(errs, errors.New("logger is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ports.ErrConfigurationError, errors.Join(errs...))
	}
	return nil
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron     *cron.Cron
	executor Cycles
	logger   ports.Logger
	ctx      context.Context
}

// New creates a Scheduler and registers both cycles.
func New(ctx context.Context, cfg Config) (*Scheduler, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		cron:     cron.New(),
		executor: cfg.Executor,
		logger:   cfg.Logger,
		ctx:      ctx,
	}
	if _, err := s.cron.AddFunc(cfg.TradeCron, s.tradeCycle); err != nil {
		return nil, fmt.Errorf("%w: invalid trade cron %q: %w", ports.ErrConfigurationError, cfg.TradeCron, err)
	}
	if _, err := s.cron.AddFunc(cfg.MonitorCron, s.monitorCycle); err != nil {
		return nil, fmt.Errorf("%w: invalid monitor cron %q: %w", ports.ErrConfigurationError, cfg.MonitorCron, err)
	}
	s.logger.Info(ctx, "Scheduler configured", map[string]interface{}{
		"trade_cron":   cfg.TradeCron,
		"monitor_cron": cfg.MonitorCron,
	})
	return s, nil
}

// Start starts the cron runner. It returns immediately; jobs run on the
// cron goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(s.ctx, "Scheduler started")
}

// Stop stops the cron runner and waits for a running job to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.logger.Info(s.ctx, "Scheduler stopped")
}

func (s *Scheduler) tradeCycle() {
	s.logger.Info(s.ctx, "Trade cycle starting")
	results := s.executor.ExecuteSignals(s.ctx)
	s.logCycle("Trade cycle finished", results)
}

func (s *Scheduler) monitorCycle() {
	s.logger.Debug(s.ctx, "Monitor cycle starting")
	results := s.executor.MonitorPositions(s.ctx)
	s.logCycle("Monitor cycle finished", results)
}

func (s *Scheduler) logCycle(msg string, results []*domain.TradeResult) {
	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}
	s.logger.Info(s.ctx, msg, map[string]interface{}{
		"results": len(results),
		"failed":  failed,
	})
}
