package gmoclient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
)

// simTransport fabricates order acknowledgements in the shape the live API
// would return, without any network traffic. Every record is flagged DryRun
// and carries a DRY_-prefixed order ID.
type simTransport struct {
	logger ports.Logger
	now    func() time.Time
}

func newSimTransport(logger ports.Logger, now func() time.Time) *simTransport {
	return &simTransport{logger: logger, now: now}
}

func dryOrderID() string {
	return "DRY_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (t *simTransport) placeOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderAck, error) {
	t.logger.Info(ctx, "[DRY-RUN] Order simulated", map[string]interface{}{
		"symbol": req.Symbol,
		"side":   string(req.Side),
		"size":   req.Size,
		"type":   string(req.ExecutionType),
	})
	price := req.Price
	if price == "" {
		price = string(domain.ExecMarket)
	}
	return &ports.OrderAck{OrderRecord: ports.OrderRecord{
		OrderID:       dryOrderID(),
		Symbol:        req.Symbol,
		Side:          req.Side,
		OrderType:     "NORMAL",
		ExecutionType: req.ExecutionType,
		SettleType:    "OPEN",
		Size:          req.Size,
		Price:         price,
		Status:        "ORDERED",
		Timestamp:     t.now(),
		DryRun:        true,
	}}, nil
}

func (t *simTransport) placeIFD(ctx context.Context, req ports.IFDRequest) (*ports.IFDOrder, error) {
	t.logger.Info(ctx, "[DRY-RUN] IFD order simulated", map[string]interface{}{
		"symbol": req.Symbol,
		"side":   string(req.Side),
		"entry":  req.EntryPrice,
		"exit":   req.ExitPrice,
	})
	root := dryOrderID()
	base := ports.OrderRecord{
		RootOrderID: root,
		Symbol:      req.Symbol,
		OrderType:   "IFD",
		Size:        req.Size,
		Status:      "WAITING",
		Timestamp:   t.now(),
		DryRun:      true,
	}

	entry := base
	entry.OrderID = dryOrderID()
	entry.Side = req.Side
	entry.ExecutionType = req.EntryType
	entry.SettleType = "OPEN"
	entry.Price = req.EntryPrice

	exit := base
	exit.OrderID = dryOrderID()
	exit.Side = req.Side.Invert()
	exit.ExecutionType = domain.ExecLimit
	exit.SettleType = "CLOSE"
	exit.Price = req.ExitPrice

	return &ports.IFDOrder{Entry: entry, Exit: exit}, nil
}

func (t *simTransport) placeIFDOCO(ctx context.Context, req ports.IFDOCORequest) (*ports.IFDOCOOrder, error) {
	t.logger.Info(ctx, "[DRY-RUN] IFDOCO order simulated", map[string]interface{}{
		"symbol":      req.Symbol,
		"side":        string(req.Side),
		"entry":       req.EntryPrice,
		"take_profit": req.TakeProfitPrice,
		"stop_loss":   req.StopLossPrice,
	})
	root := dryOrderID()
	base := ports.OrderRecord{
		RootOrderID: root,
		Symbol:      req.Symbol,
		OrderType:   "IFDOCO",
		Size:        req.Size,
		Status:      "WAITING",
		Timestamp:   t.now(),
		DryRun:      true,
	}

	entry := base
	entry.OrderID = dryOrderID()
	entry.Side = req.Side
	entry.ExecutionType = req.EntryType
	entry.SettleType = "OPEN"
	entry.Price = req.EntryPrice

	takeProfit := base
	takeProfit.OrderID = dryOrderID()
	takeProfit.Side = req.Side.Invert()
	takeProfit.ExecutionType = domain.ExecLimit
	takeProfit.SettleType = "CLOSE"
	takeProfit.Price = req.TakeProfitPrice

	stopLoss := base
	stopLoss.OrderID = dryOrderID()
	stopLoss.Side = req.Side.Invert()
	stopLoss.ExecutionType = domain.ExecStop
	stopLoss.SettleType = "CLOSE"
	stopLoss.Price = req.StopLossPrice

	return &ports.IFDOCOOrder{Entry: entry, TakeProfit: takeProfit, StopLoss: stopLoss}, nil
}

func (t *simTransport) cancelOrder(ctx context.Context, orderID string) (*ports.OrderAck, error) {
	t.logger.Info(ctx, "[DRY-RUN] Cancel simulated", map[string]interface{}{"order_id": orderID})
	return &ports.OrderAck{OrderRecord: ports.OrderRecord{
		OrderID:   orderID,
		Status:    "CANCELED",
		Timestamp: t.now(),
		DryRun:    true,
	}}, nil
}

func (t *simTransport) closePosition(ctx context.Context, req ports.CloseRequest) (*ports.OrderAck, error) {
	t.logger.Info(ctx, "[DRY-RUN] Close simulated", map[string]interface{}{
		"position_id": req.PositionID,
		"symbol":      req.Symbol,
		"side":        string(req.Side),
		"size":        req.Size,
	})
	return &ports.OrderAck{OrderRecord: ports.OrderRecord{
		OrderID:    dryOrderID(),
		Symbol:     req.Symbol,
		Side:       req.Side,
		SettleType: "CLOSE",
		Size:       req.Size,
		Status:     "ORDERED",
		Timestamp:  t.now(),
		DryRun:     true,
	}}, nil
}

func (t *simTransport) closeAll(ctx context.Context, symbol string, side domain.OrderSide) (*ports.OrderAck, error) {
	t.logger.Info(ctx, "[DRY-RUN] Bulk close simulated", map[string]interface{}{
		"symbol": symbol,
		"side":   string(side),
	})
	return &ports.OrderAck{OrderRecord: ports.OrderRecord{
		OrderID:    dryOrderID(),
		Symbol:     symbol,
		Side:       side,
		SettleType: "CLOSE",
		Status:     "ORDERED",
		Timestamp:  t.now(),
		DryRun:     true,
	}}, nil
}
