// Package signal combines the technical snapshot with aggregated news
// sentiment into a buy/sell/hold signal with a confidence score.
package signal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
)

const (
	buyThreshold    = 4
	opposingMax     = 1
	baseConfidence  = 0.3
	scoreConfidence = 0.15
	holdConfidence  = 0.5
)

// Config holds the signal engine parameters.
type Config struct {
	RuleVersion  string        // default "v1.0"
	NewsLookback time.Duration // default 24h
	News         ports.NewsProvider
	SignalRepo   ports.SignalRepository // optional; signals are persisted when set
	Logger       ports.Logger
}

func (c *Config) setDefaults() {
	if c.RuleVersion == "" {
		c.RuleVersion = "v1.0"
	}
	if c.NewsLookback == 0 {
		c.NewsLookback = 24 * time.Hour
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.News == nil {
		errs = append(errs, errors.New("news provider is required"))
	}
	if c.Logger == nil {
		errs = append(errs, errors.New("logger is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ports.ErrConfigurationError, errors.Join(errs...))
	}
	return nil
}

// Engine generates trade signals from technicals and recent news.
type Engine struct {
	cfg    Config
	news   ports.NewsProvider
	repo   ports.SignalRepository
	logger ports.Logger
	now    func() time.Time
}

// New creates an Engine, applying defaults and validating the configuration.
func New(cfg Config) (*Engine, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		news:   cfg.News,
		repo:   cfg.SignalRepo,
		logger: cfg.Logger,
		now:    time.Now,
	}, nil
}

// Generate produces the signal for one symbol. A news fetch failure degrades
// to technicals-only scoring; a batch where every item fails validation is a
// hard error.
func (e *Engine) Generate(ctx context.Context, symbol string, tech *domain.IndicatorSnapshot) (*domain.Signal, error) {
	if tech == nil {
		return nil, fmt.Errorf("%w: technical snapshot is required", ports.ErrInvalidRequest)
	}

	items, err := e.news.FetchRecentNews(ctx, symbol, e.cfg.NewsLookback)
	if err != nil {
		e.logger.Warn(ctx, "News fetch failed, scoring on technicals only", map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		})
		items = nil
	}

	summary, err := SummarizeNews(ctx, e.logger, items, symbol)
	if err != nil {
		return nil, fmt.Errorf("summarizing news for %s: %w", symbol, err)
	}

	sigType, confidence, reason := score(tech, summary)

	sig := &domain.Signal{
		Symbol:      symbol,
		Type:        sigType,
		Confidence:  confidence,
		Reason:      reason,
		Technical:   tech,
		News:        summary,
		RuleVersion: e.cfg.RuleVersion,
		Timestamp:   e.now().UTC(),
	}

	e.logger.Info(ctx, "Signal generated", map[string]interface{}{
		"symbol":     symbol,
		"signal":     string(sigType),
		"confidence": confidence,
		"reason":     reason,
	})

	if e.repo != nil {
		if id, err := e.repo.SaveSignal(ctx, sig); err != nil {
			e.logger.Warn(ctx, "Failed to persist signal", map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			})
		} else {
			e.logger.Debug(ctx, "Signal persisted", map[string]interface{}{"id": id})
		}
	}
	return sig, nil
}

// GenerateMultiple evaluates each symbol independently; per-symbol failures
// are collected rather than aborting the batch.
func (e *Engine) GenerateMultiple(ctx context.Context, snapshots map[string]*domain.IndicatorSnapshot) (map[string]*domain.Signal, map[string]error) {
	signals := make(map[string]*domain.Signal, len(snapshots))
	failures := make(map[string]error)
	for symbol, tech := range snapshots {
		sig, err := e.Generate(ctx, symbol, tech)
		if err != nil {
			e.logger.Error(ctx, err, "Signal generation failed", map[string]interface{}{"symbol": symbol})
			failures[symbol] = err
			continue
		}
		signals[symbol] = sig
	}
	return signals, failures
}

// SummarizeNews validates and aggregates a news batch for one symbol.
// Invalid items are dropped with a warning; if the batch was non-empty and
// every item was dropped the whole batch fails with ErrValidation.
func SummarizeNews(ctx context.Context, logger ports.Logger, items []domain.NewsItem, symbol string) (domain.NewsSummary, error) {
	summary := domain.NewsSummary{Labels: map[domain.NewsLabel]int{}}
	if len(items) == 0 {
		return summary, nil
	}

	var totalSentiment, totalImpact int
	for i := range items {
		item := &items[i]
		if err := item.Validate(); err != nil {
			logger.Warn(ctx, "Dropping invalid news item", map[string]interface{}{
				"news_id": item.NewsID,
				"error":   err.Error(),
			})
			continue
		}
		summary.Count++
		totalSentiment += item.Sentiment
		totalImpact += item.ImpactFor(symbol)
		switch {
		case item.Sentiment > 0:
			summary.BullishCount++
		case item.Sentiment < 0:
			summary.BearishCount++
		default:
			summary.NeutralCount++
		}
		summary.Labels[item.Label]++
	}

	if summary.Count == 0 {
		return domain.NewsSummary{}, fmt.Errorf("%w: all %d news items in the batch were invalid",
			ports.ErrValidation, len(items))
	}
	summary.AvgSentiment = float64(totalSentiment) / float64(summary.Count)
	summary.AvgImpact = float64(totalImpact) / float64(summary.Count)
	return summary, nil
}

// score applies the additive buy/sell factor scoring and returns the signal
// type, its confidence and a human-readable reason.
func score(tech *domain.IndicatorSnapshot, news domain.NewsSummary) (domain.SignalType, float64, string) {
	var buyScore, sellScore int
	var reasons []string

	// Buy factors.
	if tech.Trend == domain.TrendUp && tech.Momentum == domain.MomentumBullish {
		buyScore += 3
		reasons = append(reasons, "technical: uptrend with bullish momentum")
	} else if tech.Trend == domain.TrendUp {
		buyScore++
		reasons = append(reasons, "technical: uptrend")
	}
	if tech.Oversold {
		buyScore += 2
		reasons = append(reasons, fmt.Sprintf("RSI oversold (%.1f)", tech.RSI))
	}
	if news.Count > 0 {
		if news.AvgSentiment > 0.5 && news.AvgImpact >= 3 {
			buyScore += 3
			reasons = append(reasons, fmt.Sprintf("news bullish (sentiment: %.1f, impact: %.1f)",
				news.AvgSentiment, news.AvgImpact))
		} else if news.AvgSentiment > 0 {
			buyScore++
			reasons = append(reasons, fmt.Sprintf("news mildly positive (sentiment: %.1f)", news.AvgSentiment))
		}
	}

	// Sell factors.
	if tech.Trend == domain.TrendDown && tech.Momentum == domain.MomentumBearish {
		sellScore += 3
		reasons = append(reasons, "technical: downtrend with bearish momentum")
	} else if tech.Trend == domain.TrendDown {
		sellScore++
		reasons = append(reasons, "technical: downtrend")
	}
	if tech.Overbought {
		sellScore += 2
		reasons = append(reasons, fmt.Sprintf("RSI overbought (%.1f)", tech.RSI))
	}
	if news.Count > 0 {
		if news.AvgSentiment < -0.5 && news.AvgImpact >= 3 {
			sellScore += 3
			reasons = append(reasons, fmt.Sprintf("news bearish (sentiment: %.1f, impact: %.1f)",
				news.AvgSentiment, news.AvgImpact))
		} else if news.AvgSentiment < 0 {
			sellScore++
			reasons = append(reasons, fmt.Sprintf("news mildly negative (sentiment: %.1f)", news.AvgSentiment))
		}
	}

	switch {
	case buyScore >= buyThreshold && sellScore <= opposingMax:
		return domain.SignalBuy, confidenceFor(buyScore), strings.Join(reasons, " | ")
	case sellScore >= buyThreshold && buyScore <= opposingMax:
		return domain.SignalSell, confidenceFor(sellScore), strings.Join(reasons, " | ")
	default:
		reason := fmt.Sprintf("buy factors (%dpt) vs sell factors (%dpt) - holding", buyScore, sellScore)
		if len(reasons) > 0 {
			if len(reasons) > 2 {
				reasons = reasons[:2]
			}
			reason += " | " + strings.Join(reasons, " | ")
		}
		return domain.SignalHold, holdConfidence, reason
	}
}

func confidenceFor(score int) float64 {
	confidence := baseConfidence + float64(score)*scoreConfidence
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}
