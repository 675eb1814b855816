// Command replay runs the indicator and signal engines over a CSV of
// historical bars (as written by fetch_klines) and prints the signal each
// window would have produced. News scoring is disabled; the replay is
// technicals-only.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"fxSignalBot/internal/adapters/logger"
	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/indicator"
	"fxSignalBot/internal/signal"
	"fxSignalBot/internal/utils"

	"github.com/rs/zerolog"
)

// noNews satisfies the signal engine's news dependency with an empty feed.
type noNews struct{}

func (noNews) FetchRecentNews(ctx context.Context, symbol string, lookback time.Duration) ([]domain.NewsItem, error) {
	return nil, nil
}

func main() {
	file := flag.String("file", "", "CSV file of bars (required)")
	symbol := flag.String("symbol", "USD_JPY", "trading symbol")
	interval := flag.String("interval", "1hour", "kline interval")
	window := flag.Int("window", 100, "bars per evaluation window")
	step := flag.Int("step", 1, "bars to advance between evaluations")
	flag.Parse()

	if *file == "" {
		log.Fatal("FATAL: -file is required")
	}

	appLogger := logger.New(zerolog.WarnLevel, true)

	indicators, err := indicator.New(indicator.Config{Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}
	signals, err := signal.New(signal.Config{News: noNews{}, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	series, err := utils.ReadBarsFromCSV(*file)
	if err != nil {
		log.Fatalf("FATAL: reading %s: %v", *file, err)
	}
	if len(series) < *window {
		log.Fatalf("FATAL: %d bars is less than the %d-bar window", len(series), *window)
	}

	ctx := context.Background()
	counts := map[domain.SignalType]int{}
	for end := *window; end <= len(series); end += *step {
		slice := series[end-*window : end]
		snapshot, err := indicators.Compute(ctx, *symbol, *interval, slice)
		if err != nil {
			log.Fatalf("FATAL: computing indicators: %v", err)
		}
		sig, err := signals.Generate(ctx, *symbol, snapshot)
		if err != nil {
			log.Fatalf("FATAL: generating signal: %v", err)
		}
		counts[sig.Type]++
		if sig.Type != domain.SignalHold {
			fmt.Printf("%s  %-4s  conf=%.2f  price=%.3f  %s\n",
				slice[len(slice)-1].Timestamp.Format("2006-01-02 15:04"),
				sig.Type, sig.Confidence, snapshot.LatestPrice, sig.Reason)
		}
	}

	fmt.Printf("\nwindows=%d  buy=%d  sell=%d  hold=%d\n",
		counts[domain.SignalBuy]+counts[domain.SignalSell]+counts[domain.SignalHold],
		counts[domain.SignalBuy], counts[domain.SignalSell], counts[domain.SignalHold])
}
