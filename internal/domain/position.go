package domain

import "time"

// Position is an open position as reported by the broker.
type Position struct {
	PositionID string
	Symbol     string
	Side       OrderSide
	Size       int
	EntryPrice float64
	ProfitLoss float64
	OpenedAt   time.Time
}

// IsValid reports whether the position carries enough data to evaluate exits.
func (p *Position) IsValid() bool {
	return p != nil && p.EntryPrice > 0 && p.Side.IsValid()
}

// AccountAssets is the broker account snapshot used for margin checks.
type AccountAssets struct {
	AvailableAmount    float64
	Balance            float64
	Margin             float64
	ProfitLoss         float64
	TransferableAmount float64
}
