package domain

import "strings"

// OrderSide represents the direction of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// Invert returns the opposite side, used when closing a position.
func (s OrderSide) Invert() OrderSide {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s OrderSide) IsValid() bool {
	return s == Buy || s == Sell
}

// SignalType is the outcome of a signal evaluation cycle.
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
	SignalHold SignalType = "hold"
)

// TradeAction is what the executor actually did for a symbol in one cycle.
type TradeAction string

const (
	ActionBuy   TradeAction = "BUY"
	ActionSell  TradeAction = "SELL"
	ActionHold  TradeAction = "HOLD"
	ActionClose TradeAction = "CLOSE"
	ActionSkip  TradeAction = "SKIP"
)

// Trend is the moving-average trend direction.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
)

// Momentum is the MACD/RSI momentum classification.
type Momentum string

const (
	MomentumBullish Momentum = "bullish"
	MomentumBearish Momentum = "bearish"
	MomentumNeutral Momentum = "neutral"
)

// ExecutionType is the broker order execution type.
type ExecutionType string

const (
	ExecMarket ExecutionType = "MARKET"
	ExecLimit  ExecutionType = "LIMIT"
	ExecStop   ExecutionType = "STOP"
)

// TimeInForce values supported by the broker.
type TimeInForce string

const (
	TIFFak TimeInForce = "FAK"
	TIFFas TimeInForce = "FAS"
	TIFFok TimeInForce = "FOK"
)

// PipValue returns the price value of one pip for the given symbol.
// JPY-quoted pairs use 0.01, everything else 0.0001.
func PipValue(symbol string) float64 {
	if strings.HasSuffix(symbol, "_JPY") {
		return 0.01
	}
	return 0.0001
}
