package domain

import "time"

// Signal is the outcome of one signal evaluation for a symbol.
type Signal struct {
	Symbol      string
	Type        SignalType
	Confidence  float64
	Reason      string
	Technical   *IndicatorSnapshot
	News        NewsSummary
	RuleVersion string
	Timestamp   time.Time
}
