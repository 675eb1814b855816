package ports

import (
	"context"
	"time"

	"fxSignalBot/internal/domain"
)

// OrderRecord is one broker order as acknowledged or listed by the API.
// Composite orders (IFD, IFDOCO) produce several records sharing a RootOrderID.
type OrderRecord struct {
	RootOrderID   string
	OrderID       string
	Symbol        string
	Side          domain.OrderSide
	OrderType     string // NORMAL, IFD, IFDOCO
	ExecutionType domain.ExecutionType
	SettleType    string // OPEN or CLOSE
	Size          int
	Price         string
	Status        string
	Timestamp     time.Time
	DryRun        bool
}

// OrderAck is the acknowledgement of a simple (single-legged) order.
type OrderAck struct {
	OrderRecord
}

// IFDOrder is an If-Done order: an entry leg and one exit leg placed together.
type IFDOrder struct {
	Entry OrderRecord
	Exit  OrderRecord
}

// RootOrderID returns the shared root identifier of the composite order.
func (o *IFDOrder) RootOrderID() string { return o.Entry.RootOrderID }

// Records returns the legs in placement order.
func (o *IFDOrder) Records() []OrderRecord { return []OrderRecord{o.Entry, o.Exit} }

// IFDOCOOrder is an entry leg plus an OCO pair of exits (take-profit limit and
// stop-loss stop), all sharing one root order ID.
type IFDOCOOrder struct {
	Entry      OrderRecord
	TakeProfit OrderRecord
	StopLoss   OrderRecord
}

// RootOrderID returns the shared root identifier of the composite order.
func (o *IFDOCOOrder) RootOrderID() string { return o.Entry.RootOrderID }

// Records returns the legs in placement order.
func (o *IFDOCOOrder) Records() []OrderRecord {
	return []OrderRecord{o.Entry, o.TakeProfit, o.StopLoss}
}

// OrderRequest describes a simple order to place.
type OrderRequest struct {
	Symbol        string
	Side          domain.OrderSide
	Size          int
	ExecutionType domain.ExecutionType
	Price         string // required for LIMIT/STOP
	TimeInForce   domain.TimeInForce
}

// IFDRequest describes an If-Done order: entry plus a single exit.
type IFDRequest struct {
	Symbol     string
	Side       domain.OrderSide
	Size       int
	EntryType  domain.ExecutionType
	EntryPrice string
	ExitPrice  string
}

// IFDOCORequest describes an entry with a protective take-profit/stop-loss pair.
type IFDOCORequest struct {
	Symbol          string
	Side            domain.OrderSide
	Size            int
	EntryType       domain.ExecutionType
	EntryPrice      string
	TakeProfitPrice string
	StopLossPrice   string
}

// CloseRequest closes (part of) a single open position.
type CloseRequest struct {
	Symbol        string
	Side          domain.OrderSide // side of the closing order, opposite the position
	Size          int
	PositionID    string
	ExecutionType domain.ExecutionType
}

// OrderGateway is the broker-facing port for account and order operations.
type OrderGateway interface {
	// GetAccountAssets returns the account snapshot used for margin checks.
	GetAccountAssets(ctx context.Context) (*domain.AccountAssets, error)
	// PlaceOrder places a simple order and returns its acknowledgement.
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderAck, error)
	// PlaceIFDOrder places an entry with one attached exit.
	PlaceIFDOrder(ctx context.Context, req IFDRequest) (*IFDOrder, error)
	// PlaceIFDOCOOrder places an entry with an attached TP/SL pair.
	PlaceIFDOCOOrder(ctx context.Context, req IFDOCORequest) (*IFDOCOOrder, error)
	// GetOrders lists active orders, optionally filtered by symbol or order ID.
	GetOrders(ctx context.Context, symbol, orderID string) ([]OrderRecord, error)
	// CancelOrder cancels an active order.
	CancelOrder(ctx context.Context, orderID string) (*OrderAck, error)
	// GetPositions lists open positions, optionally filtered by symbol.
	GetPositions(ctx context.Context, symbol string) ([]*domain.Position, error)
	// ClosePosition closes a single position.
	ClosePosition(ctx context.Context, req CloseRequest) (*OrderAck, error)
	// CloseAllPositions closes every open position for a symbol and side.
	CloseAllPositions(ctx context.Context, symbol string, side domain.OrderSide) (*OrderAck, error)
	// DryRun reports whether order placement is simulated.
	DryRun() bool
}

// MarketDataSource provides historical bars from the broker's public API.
type MarketDataSource interface {
	// GetKlines fetches one day of bars. Date format is YYYYMMDD.
	GetKlines(ctx context.Context, symbol, interval, date string) (domain.Series, error)
	// GetKlinesRange fetches the last `days` days of bars, oldest first.
	GetKlinesRange(ctx context.Context, symbol, interval string, days int) (domain.Series, error)
}
