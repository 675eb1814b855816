package gmoclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
)

// orderTransport is the seam between the gateway API and order placement.
// The live implementation talks to the broker; the simulator fabricates
// deterministic acknowledgements without touching the network.
type orderTransport interface {
	placeOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderAck, error)
	placeIFD(ctx context.Context, req ports.IFDRequest) (*ports.IFDOrder, error)
	placeIFDOCO(ctx context.Context, req ports.IFDOCORequest) (*ports.IFDOCOOrder, error)
	cancelOrder(ctx context.Context, orderID string) (*ports.OrderAck, error)
	closePosition(ctx context.Context, req ports.CloseRequest) (*ports.OrderAck, error)
	closeAll(ctx context.Context, symbol string, side domain.OrderSide) (*ports.OrderAck, error)
}

type liveTransport struct {
	rest *restClient
}

// rejectionError turns an API-level fault on an order endpoint into an order
// rejection; transport-level failures pass through unchanged.
func rejectionError(op string, err error) error {
	if errors.Is(err, ports.ErrAPIFault) {
		return fmt.Errorf("%w: %s: %w", ports.ErrOrderRejected, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (t *liveTransport) placeOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderAck, error) {
	body := map[string]string{
		"symbol":        req.Symbol,
		"side":          string(req.Side),
		"size":          strconv.Itoa(req.Size),
		"executionType": string(req.ExecutionType),
		"timeInForce":   string(req.TimeInForce),
	}
	switch req.ExecutionType {
	case domain.ExecLimit:
		body["price"] = req.Price
	case domain.ExecStop:
		body["stopPrice"] = req.Price
	}

	data, err := t.rest.post(ctx, "/order", body)
	if err != nil {
		return nil, rejectionError("place order", err)
	}
	var wire orderData
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding order response: %w", ports.ErrAPIFault, err)
	}
	return &ports.OrderAck{OrderRecord: translateOrderRecord(wire)}, nil
}

func (t *liveTransport) placeIFD(ctx context.Context, req ports.IFDRequest) (*ports.IFDOrder, error) {
	body := map[string]string{
		"symbol":              req.Symbol,
		"firstSide":           string(req.Side),
		"firstExecutionType":  string(req.EntryType),
		"firstSize":           strconv.Itoa(req.Size),
		"firstPrice":          req.EntryPrice,
		"secondExecutionType": string(domain.ExecLimit),
		"secondSize":          strconv.Itoa(req.Size),
		"secondPrice":         req.ExitPrice,
	}

	data, err := t.rest.post(ctx, "/ifdOrder", body)
	if err != nil {
		return nil, rejectionError("place IFD order", err)
	}
	records, err := decodeOrderRecords(data)
	if err != nil {
		return nil, err
	}
	if len(records) != 2 {
		return nil, fmt.Errorf("%w: IFD order returned %d records, want 2", ports.ErrAPIFault, len(records))
	}
	return &ports.IFDOrder{Entry: records[0], Exit: records[1]}, nil
}

func (t *liveTransport) placeIFDOCO(ctx context.Context, req ports.IFDOCORequest) (*ports.IFDOCOOrder, error) {
	body := map[string]string{
		"symbol":             req.Symbol,
		"firstSide":          string(req.Side),
		"firstExecutionType": string(req.EntryType),
		"firstSize":          strconv.Itoa(req.Size),
		"firstPrice":         req.EntryPrice,
		"secondSize":         strconv.Itoa(req.Size),
		"secondLimitPrice":   req.TakeProfitPrice,
		"secondStopPrice":    req.StopLossPrice,
	}

	data, err := t.rest.post(ctx, "/ifoOrder", body)
	if err != nil {
		return nil, rejectionError("place IFDOCO order", err)
	}
	records, err := decodeOrderRecords(data)
	if err != nil {
		return nil, err
	}
	if len(records) != 3 {
		return nil, fmt.Errorf("%w: IFDOCO order returned %d records, want 3", ports.ErrAPIFault, len(records))
	}
	return &ports.IFDOCOOrder{Entry: records[0], TakeProfit: records[1], StopLoss: records[2]}, nil
}

func (t *liveTransport) cancelOrder(ctx context.Context, orderID string) (*ports.OrderAck, error) {
	data, err := t.rest.post(ctx, "/cancelOrder", map[string]string{"orderId": orderID})
	if err != nil {
		return nil, rejectionError("cancel order", err)
	}
	var wire orderData
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding cancel response: %w", ports.ErrAPIFault, err)
	}
	ack := &ports.OrderAck{OrderRecord: translateOrderRecord(wire)}
	if ack.OrderID == "" {
		ack.OrderID = orderID
	}
	return ack, nil
}

func (t *liveTransport) closePosition(ctx context.Context, req ports.CloseRequest) (*ports.OrderAck, error) {
	executionType := req.ExecutionType
	if executionType == "" {
		executionType = domain.ExecMarket
	}
	body := map[string]string{
		"positionId":    req.PositionID,
		"symbol":        req.Symbol,
		"side":          string(req.Side),
		"size":          strconv.Itoa(req.Size),
		"executionType": string(executionType),
		"timeInForce":   string(domain.TIFFak),
	}

	data, err := t.rest.post(ctx, "/closeOrder", body)
	if err != nil {
		return nil, rejectionError("close position", err)
	}
	var wire orderData
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding close response: %w", ports.ErrAPIFault, err)
	}
	return &ports.OrderAck{OrderRecord: translateOrderRecord(wire)}, nil
}

func (t *liveTransport) closeAll(ctx context.Context, symbol string, side domain.OrderSide) (*ports.OrderAck, error) {
	body := map[string]string{
		"symbol":        symbol,
		"side":          string(side),
		"executionType": string(domain.ExecMarket),
		"timeInForce":   string(domain.TIFFak),
	}

	data, err := t.rest.post(ctx, "/closeBulkOrder", body)
	if err != nil {
		return nil, rejectionError("close all positions", err)
	}
	var wire orderData
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding bulk close response: %w", ports.ErrAPIFault, err)
	}
	ack := &ports.OrderAck{OrderRecord: translateOrderRecord(wire)}
	ack.Symbol = symbol
	ack.Side = side
	return ack, nil
}

func decodeOrderRecords(data json.RawMessage) ([]ports.OrderRecord, error) {
	var wires []orderData
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("%w: decoding order records: %w", ports.ErrAPIFault, err)
	}
	records := make([]ports.OrderRecord, len(wires))
	for i, w := range wires {
		records[i] = translateOrderRecord(w)
	}
	return records, nil
}
