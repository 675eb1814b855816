package gmoclient

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"fxSignalBot/internal/domain"
	"fxSignalBot/internal/ports"
)

// Wire types. The broker encodes every numeric field as a string; IDs come
// back as JSON numbers on some endpoints, so they are decoded as json.Number.

type klineData struct {
	OpenTime string `json:"openTime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
}

type assetsData struct {
	AvailableAmount    string `json:"availableAmount"`
	Balance            string `json:"balance"`
	Margin             string `json:"margin"`
	ProfitLoss         string `json:"profitLoss"`
	TransferableAmount string `json:"transferableAmount"`
}

type positionData struct {
	PositionID json.Number `json:"positionId"`
	Symbol     string      `json:"symbol"`
	Side       string      `json:"side"`
	Size       string      `json:"size"`
	Price      string      `json:"price"`
	LossGain   string      `json:"lossGain"`
	Timestamp  string      `json:"timestamp"`
}

type positionList struct {
	List []positionData `json:"list"`
}

type orderData struct {
	RootOrderID   json.Number `json:"rootOrderId"`
	OrderID       json.Number `json:"orderId"`
	Symbol        string      `json:"symbol"`
	Side          string      `json:"side"`
	OrderType     string      `json:"orderType"`
	ExecutionType string      `json:"executionType"`
	SettleType    string      `json:"settleType"`
	Size          string      `json:"size"`
	Price         string      `json:"price"`
	Status        string      `json:"status"`
	Timestamp     string      `json:"timestamp"`
}

type orderList struct {
	List []orderData `json:"list"`
}

func translateKline(k klineData) (domain.Bar, error) {
	openMillis, err := strconv.ParseInt(k.OpenTime, 10, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing openTime %q: %w", k.OpenTime, err)
	}
	bar := domain.Bar{Timestamp: time.UnixMilli(openMillis).UTC()}
	for _, f := range []struct {
		raw  string
		dest *float64
	}{
		{k.Open, &bar.Open},
		{k.High, &bar.High},
		{k.Low, &bar.Low},
		{k.Close, &bar.Close},
	} {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("parsing price %q: %w", f.raw, err)
		}
		*f.dest = v
	}
	return bar, nil
}

func translateKlines(data []klineData) (domain.Series, error) {
	series := make(domain.Series, 0, len(data))
	for _, k := range data {
		bar, err := translateKline(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ports.ErrAPIFault, err)
		}
		series = append(series, bar)
	}
	sortSeries(series)
	return series, nil
}

func sortSeries(series domain.Series) {
	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})
}

func translateAssets(data assetsData) (*domain.AccountAssets, error) {
	assets := &domain.AccountAssets{}
	for _, f := range []struct {
		raw  string
		dest *float64
	}{
		{data.AvailableAmount, &assets.AvailableAmount},
		{data.Balance, &assets.Balance},
		{data.Margin, &assets.Margin},
		{data.ProfitLoss, &assets.ProfitLoss},
		{data.TransferableAmount, &assets.TransferableAmount},
	} {
		if f.raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing asset amount %q: %w", ports.ErrAPIFault, f.raw, err)
		}
		*f.dest = v
	}
	return assets, nil
}

func translatePosition(data positionData) (*domain.Position, error) {
	pos := &domain.Position{
		PositionID: data.PositionID.String(),
		Symbol:     data.Symbol,
		Side:       domain.OrderSide(data.Side),
	}
	if data.Size != "" {
		size, err := strconv.Atoi(data.Size)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing position size %q: %w", ports.ErrAPIFault, data.Size, err)
		}
		pos.Size = size
	}
	if data.Price != "" {
		price, err := strconv.ParseFloat(data.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing position price %q: %w", ports.ErrAPIFault, data.Price, err)
		}
		pos.EntryPrice = price
	}
	if data.LossGain != "" {
		pl, err := strconv.ParseFloat(data.LossGain, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing position lossGain %q: %w", ports.ErrAPIFault, data.LossGain, err)
		}
		pos.ProfitLoss = pl
	}
	if data.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, data.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing position timestamp %q: %w", ports.ErrAPIFault, data.Timestamp, err)
		}
		pos.OpenedAt = ts
	}
	return pos, nil
}

func translateOrderRecord(data orderData) ports.OrderRecord {
	rec := ports.OrderRecord{
		RootOrderID:   data.RootOrderID.String(),
		OrderID:       data.OrderID.String(),
		Symbol:        data.Symbol,
		Side:          domain.OrderSide(data.Side),
		OrderType:     data.OrderType,
		ExecutionType: domain.ExecutionType(data.ExecutionType),
		SettleType:    data.SettleType,
		Price:         data.Price,
		Status:        data.Status,
	}
	if data.Size != "" {
		if size, err := strconv.Atoi(data.Size); err == nil {
			rec.Size = size
		}
	}
	if data.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, data.Timestamp); err == nil {
			rec.Timestamp = ts
		}
	}
	return rec
}
