// Command fetch_klines downloads historical bars from the broker's public
// kline endpoint and writes them to a CSV file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"fxSignalBot/config"
	"fxSignalBot/internal/adapters/gmoclient"
	"fxSignalBot/internal/adapters/logger"
	"fxSignalBot/internal/utils"
)

func main() {
	symbol := flag.String("symbol", "USD_JPY", "trading symbol")
	interval := flag.String("interval", "1hour", "kline interval")
	days := flag.Int("days", 30, "number of days to fetch")
	outDir := flag.String("out", "data", "output directory")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: failed to load configuration: %v", err)
	}

	appLogger := logger.New(logger.ParseLevel(cfg.LogLevel), cfg.LogPretty)

	client, err := gmoclient.New(gmoclient.Config{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout(),
		MaxRetries: cfg.API.MaxRetries,
		RetryDelay: cfg.API.RetryDelay(),
		DryRun:     true, // public data only, no credentials needed
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: failed to initialize broker client: %v", err)
	}

	ctx := context.Background()
	appLogger.Info(ctx, "Fetching klines", map[string]interface{}{
		"symbol":   *symbol,
		"interval": *interval,
		"days":     *days,
	})
	series, err := client.GetKlinesRange(ctx, *symbol, *interval, *days)
	if err != nil {
		appLogger.Error(ctx, err, "Failed to fetch klines")
		os.Exit(1)
	}
	appLogger.Info(ctx, "Fetched klines", map[string]interface{}{"count": len(series)})

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		appLogger.Error(ctx, err, "Failed to create output directory")
		os.Exit(1)
	}
	filename := filepath.Join(*outDir, fmt.Sprintf("%s_%s_%s.csv",
		*symbol, *interval, time.Now().Format("20060102")))
	if err := utils.WriteBarsToCSV(series, *symbol, *interval, filename); err != nil {
		appLogger.Error(ctx, err, "Failed to write CSV")
		os.Exit(1)
	}
	appLogger.Info(ctx, "Saved klines", map[string]interface{}{"filename": filename})
}
