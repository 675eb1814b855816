package domain

import "time"

// TradeResult records what the executor did for one symbol in one cycle.
// Success=false with ActionSkip means the cycle failed before any order;
// Success=false with ActionBuy/ActionSell means the order itself was refused.
type TradeResult struct {
	Success   bool
	Action    TradeAction
	Symbol    string
	Size      int
	OrderID   string
	Reason    string
	Timestamp time.Time
	DryRun    bool
}
