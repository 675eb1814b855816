package domain

import "time"

// Bar is a single OHLC candlestick for a symbol/interval.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
}

// Series is a chronologically ordered sequence of bars.
type Series []Bar

// Closes returns the close prices of the series in order.
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, b := range s {
		closes[i] = b.Close
	}
	return closes
}

// LatestClose returns the close of the most recent bar, or 0 for an empty series.
func (s Series) LatestClose() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Close
}
