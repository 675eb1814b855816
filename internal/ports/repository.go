package ports

import (
	"context"

	"fxSignalBot/internal/domain"
)

// SignalRepository persists generated signals for auditing.
type SignalRepository interface {
	// SaveSignal stores the signal and returns its assigned document ID.
	SaveSignal(ctx context.Context, sig *domain.Signal) (string, error)
	// RecentSignals returns the latest signals for a symbol, newest first.
	RecentSignals(ctx context.Context, symbol string, limit int) ([]*domain.Signal, error)
}

// TradeResultRepository persists executor outcomes.
type TradeResultRepository interface {
	// SaveTradeResult stores the result and returns its assigned row ID.
	SaveTradeResult(ctx context.Context, res *domain.TradeResult) (int64, error)
	// RecentTradeResults returns the latest results for a symbol, newest first.
	RecentTradeResults(ctx context.Context, symbol string, limit int) ([]*domain.TradeResult, error)
}

// IndicatorEngine computes a technical snapshot from a bar series.
type IndicatorEngine interface {
	Compute(ctx context.Context, symbol, interval string, series domain.Series) (*domain.IndicatorSnapshot, error)
}

// SignalEngine turns a technical snapshot plus recent news into a signal.
type SignalEngine interface {
	Generate(ctx context.Context, symbol string, tech *domain.IndicatorSnapshot) (*domain.Signal, error)
}
