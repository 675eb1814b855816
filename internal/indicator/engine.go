// Package indicator computes technical indicators (SMA, RSI, MACD) and the
// derived trend/momentum classification from a bar series.
package indicator

import (
	"context"
	"errors"
	"fmt"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
)

// Config holds the indicator periods and thresholds.
type Config struct {
	ShortMAPeriod  int     // default 20
	LongMAPeriod   int     // default 50
	RSIPeriod      int     // default 14
	RSIOverbought  float64 // default 70
	RSIOversold    float64 // default 30
	MACDFastPeriod int     // default 12
	MACDSlowPeriod int     // default 26
	MACDSignalSpan int     // default 9
	MinBars        int     // default 50
	Logger         ports.Logger
}

func (c *Config) setDefaults() {
	if c.ShortMAPeriod == 0 {
		c.ShortMAPeriod = 20
	}
	if c.LongMAPeriod == 0 {
		c.LongMAPeriod = 50
	}
	if c.RSIPeriod == 0 {
		c.RSIPeriod = 14
	}
	if c.RSIOverbought == 0 {
		c.RSIOverbought = 70
	}
	if c.RSIOversold == 0 {
		c.RSIOversold = 30
	}
	if c.MACDFastPeriod == 0 {
		c.MACDFastPeriod = 12
	}
	if c.MACDSlowPeriod == 0 {
		c.MACDSlowPeriod = 26
	}
	if c.MACDSignalSpan == 0 {
		c.MACDSignalSpan = 9
	}
	if c.MinBars == 0 {
		c.MinBars = 50
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Logger == nil {
		errs = append(errs, errors.New("logger is required"))
	}
	if c.ShortMAPeriod <= 0 || c.LongMAPeriod <= 0 || c.ShortMAPeriod >= c.LongMAPeriod {
		errs = append(errs, fmt.Errorf("invalid MA periods: short=%d long=%d", c.ShortMAPeriod, c.LongMAPeriod))
	}
	if c.RSIPeriod <= 1 {
		errs = append(errs, fmt.Errorf("RSI period must be > 1, got %d", c.RSIPeriod))
	}
	if c.MACDFastPeriod <= 0 || c.MACDSlowPeriod <= 0 || c.MACDFastPeriod >= c.MACDSlowPeriod {
		errs = append(errs, fmt.Errorf("invalid MACD periods: fast=%d slow=%d", c.MACDFastPeriod, c.MACDSlowPeriod))
	}
	if c.MACDSignalSpan <= 0 {
		errs = append(errs, fmt.Errorf("MACD signal span must be > 0, got %d", c.MACDSignalSpan))
	}
	if c.MinBars < c.LongMAPeriod {
		errs = append(errs, fmt.Errorf("minimum bars %d is below the long MA period %d", c.MinBars, c.LongMAPeriod))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ports.ErrConfigurationError, errors.Join(errs...))
	}
	return nil
}

// Engine computes an IndicatorSnapshot from a bar series.
// Compute is a pure function of the input series; the engine holds no state.
type Engine struct {
	cfg    Config
	logger ports.Logger
}

// New creates an Engine, applying defaults and validating the configuration.
func New(cfg Config) (*Engine, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: cfg.Logger}, nil
}

// Compute calculates the full technical snapshot for the series.
// Returns ErrInsufficientData when fewer than MinBars bars are supplied.
func (e *Engine) Compute(ctx context.Context, symbol, interval string, series domain.Series) (*domain.IndicatorSnapshot, error) {
	if len(series) < e.cfg.MinBars {
		return nil, fmt.Errorf("%w: %d bars for %s (need at least %d)",
			ports.ErrInsufficientData, len(series), symbol, e.cfg.MinBars)
	}

	closes := series.Closes()

	ma20 := sma(closes, e.cfg.ShortMAPeriod)
	ma50 := sma(closes, e.cfg.LongMAPeriod)
	trend := domain.TrendDown
	if ma20 > ma50 {
		trend = domain.TrendUp
	}

	rsiValue := rsi(closes, e.cfg.RSIPeriod)
	overbought := rsiValue >= e.cfg.RSIOverbought
	oversold := rsiValue <= e.cfg.RSIOversold

	macdLine, signalLine, histogram := macd(closes, e.cfg.MACDFastPeriod, e.cfg.MACDSlowPeriod, e.cfg.MACDSignalSpan)
	latestMACD := macdLine[len(macdLine)-1]
	latestSignal := signalLine[len(signalLine)-1]
	latestHist := histogram[len(histogram)-1]
	bullCross, bearCross := crossovers(histogram)

	snapshot := &domain.IndicatorSnapshot{
		Symbol:           symbol,
		Interval:         interval,
		DataCount:        len(series),
		LatestPrice:      closes[len(closes)-1],
		MA20:             ma20,
		MA50:             ma50,
		Trend:            trend,
		RSI:              rsiValue,
		Overbought:       overbought,
		Oversold:         oversold,
		MACD:             latestMACD,
		MACDSignal:       latestSignal,
		MACDHistogram:    latestHist,
		BullishCrossover: bullCross,
		BearishCrossover: bearCross,
		Momentum:         classifyMomentum(bullCross, bearCross, overbought, oversold, latestHist),
	}

	e.logger.Debug(ctx, "Indicators calculated", map[string]interface{}{
		"symbol":   symbol,
		"trend":    string(snapshot.Trend),
		"momentum": string(snapshot.Momentum),
		"rsi":      snapshot.RSI,
		"price":    snapshot.LatestPrice,
	})
	return snapshot, nil
}

// ComputeMultiple evaluates several symbols independently; a failure for one
// symbol does not abort the rest.
func (e *Engine) ComputeMultiple(ctx context.Context, interval string, series map[string]domain.Series) (map[string]*domain.IndicatorSnapshot, map[string]error) {
	snapshots := make(map[string]*domain.IndicatorSnapshot, len(series))
	failures := make(map[string]error)
	for symbol, s := range series {
		snap, err := e.Compute(ctx, symbol, interval, s)
		if err != nil {
			e.logger.Error(ctx, err, "Indicator calculation failed", map[string]interface{}{"symbol": symbol})
			failures[symbol] = err
			continue
		}
		snapshots[symbol] = snap
	}
	return snapshots, failures
}

// sma returns the simple moving average of the last `period` values.
func sma(values []float64, period int) float64 {
	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// rsi computes the Relative Strength Index as the ratio of the rolling mean
// gain to the rolling mean loss over the trailing `period` deltas.
// A zero average loss maps to RSI 100.
func rsi(closes []float64, period int) float64 {
	deltas := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		deltas[i-1] = closes[i] - closes[i-1]
	}

	var gain, loss float64
	for _, d := range deltas[len(deltas)-period:] {
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// emaSeries computes the exponential moving average over the whole series
// using the recurrence ema = alpha*value + (1-alpha)*ema, seeded from the
// first value, with alpha = 2/(span+1).
func emaSeries(values []float64, span int) []float64 {
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// macd returns the MACD line, its signal line, and the histogram for the
// full series.
func macd(closes []float64, fast, slow, signalSpan int) (line, signal, histogram []float64) {
	emaFast := emaSeries(closes, fast)
	emaSlow := emaSeries(closes, slow)
	line = make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
	}
	signal = emaSeries(line, signalSpan)
	histogram = make([]float64, len(closes))
	for i := range closes {
		histogram[i] = line[i] - signal[i]
	}
	return line, signal, histogram
}

// crossovers detects a MACD histogram sign change between the last two points.
func crossovers(histogram []float64) (bullish, bearish bool) {
	if len(histogram) < 2 {
		return false, false
	}
	prev := histogram[len(histogram)-2]
	curr := histogram[len(histogram)-1]
	bullish = prev < 0 && curr > 0
	bearish = prev > 0 && curr < 0
	return bullish, bearish
}

// classifyMomentum applies the bullish-first classification: a bullish
// crossover, or an oversold RSI with a positive histogram, is bullish; the
// mirrored conditions are bearish; anything else is neutral.
func classifyMomentum(bullCross, bearCross, overbought, oversold bool, histogram float64) domain.Momentum {
	if bullCross || (oversold && histogram > 0) {
		return domain.MomentumBullish
	}
	if bearCross || (overbought && histogram < 0) {
		return domain.MomentumBearish
	}
	return domain.MomentumNeutral
}
