package domain

// IndicatorSnapshot is the full technical picture computed from one bar series.
// All values are raw float64; rounding happens only at presentation boundaries.
type IndicatorSnapshot struct {
	Symbol      string
	Interval    string
	DataCount   int
	LatestPrice float64

	MA20  float64
	MA50  float64
	Trend Trend

	RSI        float64
	Overbought bool
	Oversold   bool

	MACD             float64
	MACDSignal       float64
	MACDHistogram    float64
	BullishCrossover bool
	BearishCrossover bool

	Momentum Momentum
}
