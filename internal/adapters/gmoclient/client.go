// Package gmoclient implements the broker gateway and market data ports
// against the GMO Coin FX REST API, with a dry-run simulator for order
// placement.
package gmoclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
)

const defaultBaseURL = "https://forex-api.coin.z.com"

// Config holds the client configuration.
type Config struct {
	APIKey     string
	APISecret  string
	BaseURL    string        // default defaultBaseURL
	Timeout    time.Duration // default 30s
	MaxRetries int           // default 3
	RetryDelay time.Duration // default 1s
	DryRun     bool          // simulate order placement
	Logger     ports.Logger
}

// Client talks to the broker. Reads (klines, assets, positions, orders)
// always go to the API; order placement goes through the transport chosen at
// construction, so a dry-run client never places real orders.
type Client struct {
	rest   *restClient
	orders orderTransport
	logger ports.Logger
	dryRun bool
}

var _ ports.OrderGateway = (*Client)(nil)
var _ ports.MarketDataSource = (*Client)(nil)

// New creates a Client, applying defaults and validating the configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	rest := &restClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		now:        time.Now,
	}

	client := &Client{
		rest:   rest,
		logger: cfg.Logger,
		dryRun: cfg.DryRun,
	}
	if cfg.DryRun {
		client.orders = newSimTransport(cfg.Logger, time.Now)
	} else {
		client.orders = &liveTransport{rest: rest}
	}

	mode := "public"
	switch {
	case cfg.DryRun:
		mode = "dry-run"
	case rest.hasCredentials():
		mode = "private"
	}
	cfg.Logger.Info(context.Background(), "Broker client initialized", map[string]interface{}{"mode": mode})
	return client, nil
}

// DryRun reports whether order placement is simulated.
func (c *Client) DryRun() bool { return c.dryRun }

// GetKlines fetches one day of bars from the public kline endpoint.
// An empty date means today.
func (c *Client) GetKlines(ctx context.Context, symbol, interval, date string) (domain.Series, error) {
	if date == "" {
		date = time.Now().Format("20060102")
	}
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("priceType", "ASK")
	query.Set("interval", interval)
	query.Set("date", date)

	data, err := c.rest.get(ctx, "/klines", query, false)
	if err != nil {
		return nil, fmt.Errorf("fetching klines for %s %s: %w", symbol, date, err)
	}
	var wires []klineData
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("%w: decoding klines: %w", ports.ErrAPIFault, err)
	}
	return translateKlines(wires)
}

// GetKlinesRange fetches the last `days` days of bars, oldest first.
// A failed day is skipped; the remaining days are still returned.
func (c *Client) GetKlinesRange(ctx context.Context, symbol, interval string, days int) (domain.Series, error) {
	var all domain.Series
	today := time.Now()
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, -i).Format("20060102")
		series, err := c.GetKlines(ctx, symbol, interval, date)
		if err != nil {
			if errors.Is(err, ports.ErrContextCanceled) || ctx.Err() != nil {
				return nil, err
			}
			c.logger.Warn(ctx, "Skipping failed kline day", map[string]interface{}{
				"symbol": symbol,
				"date":   date,
				"error":  err.Error(),
			})
			continue
		}
		all = append(all, series...)
	}
	sortSeries(all)
	return all, nil
}

// GetAccountAssets fetches the account snapshot used for margin checks.
func (c *Client) GetAccountAssets(ctx context.Context) (*domain.AccountAssets, error) {
	data, err := c.rest.get(ctx, "/account/assets", nil, true)
	if err != nil {
		return nil, fmt.Errorf("fetching account assets: %w", err)
	}
	var wire assetsData
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding account assets: %w", ports.ErrAPIFault, err)
	}
	return translateAssets(wire)
}

// GetPositions lists open positions, optionally filtered by symbol.
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]*domain.Position, error) {
	query := url.Values{}
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	data, err := c.rest.get(ctx, "/openPositions", query, true)
	if err != nil {
		return nil, fmt.Errorf("fetching positions: %w", err)
	}
	var wire positionList
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding positions: %w", ports.ErrAPIFault, err)
	}
	positions := make([]*domain.Position, 0, len(wire.List))
	for _, p := range wire.List {
		pos, err := translatePosition(p)
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// GetOrders lists active orders, optionally filtered by symbol or order ID.
func (c *Client) GetOrders(ctx context.Context, symbol, orderID string) ([]ports.OrderRecord, error) {
	query := url.Values{}
	if symbol != "" {
		query.Set("symbol", symbol)
	}
	if orderID != "" {
		query.Set("orderId", orderID)
	}
	data, err := c.rest.get(ctx, "/activeOrders", query, true)
	if err != nil {
		return nil, fmt.Errorf("fetching active orders: %w", err)
	}
	var wire orderList
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: decoding active orders: %w", ports.ErrAPIFault, err)
	}
	records := make([]ports.OrderRecord, len(wire.List))
	for i, w := range wire.List {
		records[i] = translateOrderRecord(w)
	}
	return records, nil
}

// PlaceOrder places a simple order.
func (c *Client) PlaceOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderAck, error) {
	if err := validateOrderRequest(req.Symbol, req.Side, req.Size); err != nil {
		return nil, err
	}
	if req.ExecutionType == "" {
		req.ExecutionType = domain.ExecMarket
	}
	if req.TimeInForce == "" {
		req.TimeInForce = domain.TIFFak
	}
	if req.ExecutionType != domain.ExecMarket && req.Price == "" {
		return nil, fmt.Errorf("%w: %s orders require a price", ports.ErrInvalidRequest, req.ExecutionType)
	}
	c.logger.Info(ctx, "Placing order", map[string]interface{}{
		"symbol": req.Symbol,
		"side":   string(req.Side),
		"size":   req.Size,
		"type":   string(req.ExecutionType),
	})
	return c.orders.placeOrder(ctx, req)
}

// PlaceIFDOrder places an entry with one attached exit.
func (c *Client) PlaceIFDOrder(ctx context.Context, req ports.IFDRequest) (*ports.IFDOrder, error) {
	if err := validateOrderRequest(req.Symbol, req.Side, req.Size); err != nil {
		return nil, err
	}
	if req.EntryPrice == "" || req.ExitPrice == "" {
		return nil, fmt.Errorf("%w: IFD orders require entry and exit prices", ports.ErrInvalidRequest)
	}
	if req.EntryType == "" {
		req.EntryType = domain.ExecLimit
	}
	return c.orders.placeIFD(ctx, req)
}

// PlaceIFDOCOOrder places an entry with an attached take-profit/stop-loss pair.
func (c *Client) PlaceIFDOCOOrder(ctx context.Context, req ports.IFDOCORequest) (*ports.IFDOCOOrder, error) {
	if err := validateOrderRequest(req.Symbol, req.Side, req.Size); err != nil {
		return nil, err
	}
	if req.EntryPrice == "" || req.TakeProfitPrice == "" || req.StopLossPrice == "" {
		return nil, fmt.Errorf("%w: IFDOCO orders require entry, take-profit and stop-loss prices", ports.ErrInvalidRequest)
	}
	if req.EntryType == "" {
		req.EntryType = domain.ExecLimit
	}
	c.logger.Info(ctx, "Placing IFDOCO order", map[string]interface{}{
		"symbol":      req.Symbol,
		"side":        string(req.Side),
		"entry":       req.EntryPrice,
		"take_profit": req.TakeProfitPrice,
		"stop_loss":   req.StopLossPrice,
	})
	return c.orders.placeIFDOCO(ctx, req)
}

// CancelOrder cancels an active order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) (*ports.OrderAck, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order ID is required", ports.ErrInvalidRequest)
	}
	return c.orders.cancelOrder(ctx, orderID)
}

// ClosePosition closes a single position.
func (c *Client) ClosePosition(ctx context.Context, req ports.CloseRequest) (*ports.OrderAck, error) {
	if err := validateOrderRequest(req.Symbol, req.Side, req.Size); err != nil {
		return nil, err
	}
	if req.PositionID == "" {
		return nil, fmt.Errorf("%w: position ID is required", ports.ErrInvalidRequest)
	}
	c.logger.Info(ctx, "Closing position", map[string]interface{}{
		"position_id": req.PositionID,
		"symbol":      req.Symbol,
		"side":        string(req.Side),
		"size":        req.Size,
	})
	return c.orders.closePosition(ctx, req)
}

// CloseAllPositions closes every open position for a symbol and side.
func (c *Client) CloseAllPositions(ctx context.Context, symbol string, side domain.OrderSide) (*ports.OrderAck, error) {
	if symbol == "" || !side.IsValid() {
		return nil, fmt.Errorf("%w: symbol and side are required", ports.ErrInvalidRequest)
	}
	c.logger.Info(ctx, "Closing all positions", map[string]interface{}{
		"symbol": symbol,
		"side":   string(side),
	})
	return c.orders.closeAll(ctx, symbol, side)
}

func validateOrderRequest(symbol string, side domain.OrderSide, size int) error {
	var errs []error
	if symbol == "" {
		errs = append(errs, errors.New("symbol is required"))
	}
	if !side.IsValid() {
		errs = append(errs, fmt.Errorf("invalid side %q", side))
	}
	if size <= 0 {
		errs = append(errs, fmt.Errorf("size must be positive, got %d", size))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ports.ErrInvalidRequest, errors.Join(errs...))
	}
	return nil
}
