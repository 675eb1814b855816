package indicator

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
)

// nopLogger discards everything; indicator tests do not assert on log output.
type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{Logger: nopLogger{}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func makeSeries(closes []float64) domain.Series {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	series := make(domain.Series, len(closes))
	for i, c := range closes {
		series[i] = domain.Bar{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
		}
	}
	return series
}

func constantCloses(n int, price float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return closes
}

func TestComputeConstantSeries(t *testing.T) {
	e := newTestEngine(t)
	series := makeSeries(constantCloses(60, 150.0))

	snap, err := e.Compute(context.Background(), "USD_JPY", "1hour", series)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}

	if snap.RSI != 100 {
		t.Errorf("constant series RSI = %v, want 100 (zero average loss)", snap.RSI)
	}
	if snap.MA20 != snap.MA50 {
		t.Errorf("constant series MA20 = %v, MA50 = %v, want equal", snap.MA20, snap.MA50)
	}
	if snap.Trend != domain.TrendDown {
		t.Errorf("trend = %v, want down (strict-greater rule on equal MAs)", snap.Trend)
	}
	if snap.MACDHistogram != 0 {
		t.Errorf("constant series MACD histogram = %v, want 0", snap.MACDHistogram)
	}
	if snap.BullishCrossover || snap.BearishCrossover {
		t.Errorf("constant series reported a crossover: bull=%v bear=%v", snap.BullishCrossover, snap.BearishCrossover)
	}
	if snap.Momentum != domain.MomentumNeutral {
		t.Errorf("momentum = %v, want neutral", snap.Momentum)
	}
	if snap.DataCount != 60 || snap.LatestPrice != 150.0 {
		t.Errorf("snapshot metadata = (%d, %v), want (60, 150.0)", snap.DataCount, snap.LatestPrice)
	}
}

func TestComputeInsufficientData(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		name string
		bars int
	}{
		{name: "empty series", bars: 0},
		{name: "one below minimum", bars: 49},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Compute(context.Background(), "USD_JPY", "1hour", makeSeries(constantCloses(tt.bars, 150.0)))
			if !errors.Is(err, ports.ErrInsufficientData) {
				t.Errorf("err = %v, want ErrInsufficientData", err)
			}
		})
	}
}

func TestComputeIsPure(t *testing.T) {
	e := newTestEngine(t)
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 150.0 + math.Sin(float64(i)/3.0)
	}
	series := makeSeries(closes)

	first, err := e.Compute(context.Background(), "USD_JPY", "1hour", series)
	if err != nil {
		t.Fatalf("first Compute failed: %v", err)
	}
	second, err := e.Compute(context.Background(), "USD_JPY", "1hour", series)
	if err != nil {
		t.Fatalf("second Compute failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated Compute on the same series produced different snapshots:\n%+v\n%+v", first, second)
	}
}

func TestComputeRisingSeries(t *testing.T) {
	e := newTestEngine(t)
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 150.0 + 0.1*float64(i)
	}

	snap, err := e.Compute(context.Background(), "USD_JPY", "1hour", makeSeries(closes))
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if snap.Trend != domain.TrendUp {
		t.Errorf("trend = %v, want up for a monotonically rising series", snap.Trend)
	}
	if snap.RSI != 100 {
		t.Errorf("RSI = %v, want 100 for a series with no losses", snap.RSI)
	}
	if snap.MACD <= 0 {
		t.Errorf("MACD = %v, want > 0 for a rising series", snap.MACD)
	}
}

func TestSMA(t *testing.T) {
	got := sma([]float64{1, 2, 3, 4, 5}, 2)
	if got != 4.5 {
		t.Errorf("sma = %v, want 4.5", got)
	}
}

func TestEMASeries(t *testing.T) {
	// span 3 gives alpha 0.5, seeded from the first value.
	got := emaSeries([]float64{2, 4, 4}, 3)
	want := []float64{2, 3, 3.5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("emaSeries = %v, want %v", got, want)
	}
}

func TestRSIBalancedGainsAndLosses(t *testing.T) {
	// 14 deltas alternating +1/-1: average gain equals average loss, RS = 1.
	closes := []float64{100}
	for i := 0; i < 7; i++ {
		closes = append(closes, closes[len(closes)-1]+1)
		closes = append(closes, closes[len(closes)-1]-1)
	}
	got := rsi(closes, 14)
	if math.Abs(got-50) > 1e-9 {
		t.Errorf("rsi = %v, want 50", got)
	}
}

func TestCrossovers(t *testing.T) {
	tests := []struct {
		name      string
		histogram []float64
		wantBull  bool
		wantBear  bool
	}{
		{name: "bullish sign flip", histogram: []float64{-0.2, 0.1}, wantBull: true},
		{name: "bearish sign flip", histogram: []float64{0.2, -0.1}, wantBear: true},
		{name: "no flip positive", histogram: []float64{0.2, 0.3}},
		{name: "no flip negative", histogram: []float64{-0.2, -0.3}},
		{name: "zero to positive is not a flip", histogram: []float64{0, 0.3}},
		{name: "too short", histogram: []float64{0.3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bull, bear := crossovers(tt.histogram)
			if bull != tt.wantBull || bear != tt.wantBear {
				t.Errorf("crossovers(%v) = (%v, %v), want (%v, %v)",
					tt.histogram, bull, bear, tt.wantBull, tt.wantBear)
			}
		})
	}
}

func TestClassifyMomentum(t *testing.T) {
	tests := []struct {
		name       string
		bullCross  bool
		bearCross  bool
		overbought bool
		oversold   bool
		histogram  float64
		want       domain.Momentum
	}{
		{name: "bullish crossover", bullCross: true, want: domain.MomentumBullish},
		{name: "oversold with positive histogram", oversold: true, histogram: 0.1, want: domain.MomentumBullish},
		{name: "oversold with zero histogram", oversold: true, want: domain.MomentumNeutral},
		{name: "bearish crossover", bearCross: true, want: domain.MomentumBearish},
		{name: "overbought with negative histogram", overbought: true, histogram: -0.1, want: domain.MomentumBearish},
		{name: "bullish wins when both crossovers fire", bullCross: true, bearCross: true, want: domain.MomentumBullish},
		{name: "nothing set", want: domain.MomentumNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyMomentum(tt.bullCross, tt.bearCross, tt.overbought, tt.oversold, tt.histogram)
			if got != tt.want {
				t.Errorf("classifyMomentum = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeMultipleIsolatesFailures(t *testing.T) {
	e := newTestEngine(t)
	series := map[string]domain.Series{
		"USD_JPY": makeSeries(constantCloses(60, 150.0)),
		"EUR_JPY": makeSeries(constantCloses(10, 170.0)),
	}

	snapshots, failures := e.ComputeMultiple(context.Background(), "1hour", series)
	if _, ok := snapshots["USD_JPY"]; !ok {
		t.Error("expected a snapshot for USD_JPY")
	}
	if err := failures["EUR_JPY"]; !errors.Is(err, ports.ErrInsufficientData) {
		t.Errorf("EUR_JPY failure = %v, want ErrInsufficientData", err)
	}
}
