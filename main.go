package main

import (
	"context"
	"flag"
	"log" // standard log only for fatal errors before the logger is ready

	"fxSignalBot/config"
	"fxSignalBot/internal/adapters/gmoclient"
	"fxSignalBot/internal/adapters/logger"
	"fxSignalBot/internal/adapters/sqlite"
	"fxSignalBot/internal/app"
	"fxSignalBot/internal/executor"
	"fxSignalBot/internal/indicator"
	"fxSignalBot/internal/risk"
	"fxSignalBot/internal/signal"
)

func main() {
	runOnce := flag.Bool("once", false, "run a single trade cycle and exit")
	flag.Parse()

	// 1. Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Logger
	appLogger := logger.New(logger.ParseLevel(cfg.LogLevel), cfg.LogPretty)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Repository (news feed + signal/result persistence)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath:       cfg.DBPath,
		MinImpact:    cfg.Signal.MinNewsImpact,
		MaxNewsItems: cfg.Signal.MaxNewsItems,
		Logger:       appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Broker client
	broker, err := gmoclient.New(gmoclient.Config{
		APIKey:     cfg.API.Key,
		APISecret:  cfg.API.Secret,
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout(),
		MaxRetries: cfg.API.MaxRetries,
		RetryDelay: cfg.API.RetryDelay(),
		DryRun:     cfg.API.DryRun,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize broker client")
		log.Fatalf("FATAL: Failed to initialize broker client: %v", err)
	}

	// 5. Engines and gate
	indicators, err := indicator.New(indicator.Config{Logger: appLogger})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize indicator engine")
		log.Fatalf("FATAL: Failed to initialize indicator engine: %v", err)
	}
	signals, err := signal.New(signal.Config{
		RuleVersion:  cfg.Signal.RuleVersion,
		NewsLookback: cfg.Signal.NewsLookback(),
		News:         repo,
		SignalRepo:   repo,
		Logger:       appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize signal engine")
		log.Fatalf("FATAL: Failed to initialize signal engine: %v", err)
	}
	gate, err := risk.New(risk.Config{
		StopLossPips:         cfg.Risk.StopLossPips,
		TakeProfitPips:       cfg.Risk.TakeProfitPips,
		MaxDailyLoss:         cfg.Risk.MaxDailyLoss,
		MaxDailyTrades:       cfg.Risk.MaxDailyTrades,
		MaxPositionHours:     cfg.Risk.MaxPositionHours,
		MaxConsecutiveLosses: cfg.Risk.MaxConsecutiveLosses,
		MinMarginRatio:       cfg.Risk.MinMarginRatio,
		Logger:               appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize risk gate")
		log.Fatalf("FATAL: Failed to initialize risk gate: %v", err)
	}

	// 6. Executor
	exec, err := executor.New(executor.Config{
		Symbols:               cfg.Trading.Symbols,
		Interval:              cfg.Trading.Interval,
		LookbackDays:          cfg.Trading.LookbackDays,
		DefaultSize:           cfg.Trading.OrderSize,
		MaxPositionsPerSymbol: cfg.Trading.MaxPositionsPerSymbol,
		MaxTotalPositions:     cfg.Trading.MaxTotalPositions,
		MinConfidence:         cfg.Trading.MinConfidence,
		UseProtectiveOrders:   cfg.Trading.UseProtectiveOrders,
		Gateway:               broker,
		Market:                broker,
		Indicators:            indicators,
		Signals:               signals,
		Risk:                  gate,
		Results:               repo,
		Logger:                appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize executor")
		log.Fatalf("FATAL: Failed to initialize executor: %v", err)
	}

	// 7. Service
	service, err := app.New(app.Config{
		Symbols:     cfg.Trading.Symbols,
		Interval:    cfg.Trading.Interval,
		TradeCron:   cfg.Schedule.TradeCron,
		MonitorCron: cfg.Schedule.MonitorCron,
		RunOnStart:  cfg.Schedule.RunOnStart,
		Executor:    exec,
		Market:      broker,
		Logger:      appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize service")
		log.Fatalf("FATAL: Failed to initialize service: %v", err)
	}

	if *runOnce {
		if err := service.RunOnce(context.Background()); err != nil {
			appLogger.Error(context.Background(), err, "Run-once cycle failed")
			log.Fatalf("FATAL: Run-once cycle failed: %v", err)
		}
		return
	}

	if err := service.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Service exited with error")
		log.Fatalf("FATAL: Service exited with error: %v", err)
	}
	appLogger.Info(context.Background(), "Application finished gracefully")
}
