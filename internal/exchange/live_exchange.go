package exchange

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"binance-signal-bot-go/internal/models"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"go.uber.org/zap"
)

// LiveExchange talks to Binance spot through the official REST client and
// serves both venue surfaces: market data and order execution.
type LiveExchange struct {
	client *binance.Client
	logger *zap.Logger
}

var (
	_ MarketDataProvider = (*LiveExchange)(nil)
	_ ExecutionGateway   = (*LiveExchange)(nil)
)

// NewLiveExchange builds a client for the given credentials. A non-empty
// baseURL overrides the production endpoint, which is how the testnet is
// selected.
func NewLiveExchange(apiKey, secretKey, baseURL string, logger *zap.Logger) *LiveExchange {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := binance.NewClient(apiKey, secretKey)
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &LiveExchange{client: client, logger: logger}
}

// GetPrice returns the latest traded price for the symbol.
func (e *LiveExchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := e.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch price for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price returned for %s", symbol)
	}
	p, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", prices[0].Price, err)
	}
	return p, nil
}

// GetBalance returns the free balance of the asset. An asset missing from
// the account reads as zero, not as an error.
func (e *LiveExchange) GetBalance(ctx context.Context, asset string) (float64, error) {
	account, err := e.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch account: %w", err)
	}
	for _, b := range account.Balances {
		if b.Asset != asset {
			continue
		}
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %s balance %q: %w", asset, b.Free, err)
		}
		return free, nil
	}
	return 0, nil
}

// GetOrderBookStats sums the resting volume across the top limit levels of
// each side of the book.
func (e *LiveExchange) GetOrderBookStats(ctx context.Context, symbol string, limit int) (models.OrderBookStats, error) {
	depth, err := e.client.NewDepthService().Symbol(symbol).Limit(limit).Do(ctx)
	if err != nil {
		return models.OrderBookStats{}, fmt.Errorf("fetch depth for %s: %w", symbol, err)
	}

	var stats models.OrderBookStats
	for _, bid := range depth.Bids {
		q, err := strconv.ParseFloat(bid.Quantity, 64)
		if err != nil {
			return models.OrderBookStats{}, fmt.Errorf("parse bid quantity %q: %w", bid.Quantity, err)
		}
		stats.BidVolume += q
	}
	for _, ask := range depth.Asks {
		q, err := strconv.ParseFloat(ask.Quantity, 64)
		if err != nil {
			return models.OrderBookStats{}, fmt.Errorf("parse ask quantity %q: %w", ask.Quantity, err)
		}
		stats.AskVolume += q
	}
	return stats, nil
}

// GetHistoricalBars fetches the most recent limit candles of the interval,
// oldest first. The last bar may still be forming.
func (e *LiveExchange) GetHistoricalBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	klines, err := e.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch klines for %s: %w", symbol, err)
	}

	bars := make([]models.Bar, 0, len(klines))
	for _, k := range klines {
		bar, err := barFromKline(k)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func barFromKline(k *binance.Kline) (models.Bar, error) {
	open, errO := strconv.ParseFloat(k.Open, 64)
	high, errH := strconv.ParseFloat(k.High, 64)
	low, errL := strconv.ParseFloat(k.Low, 64)
	closePrice, errC := strconv.ParseFloat(k.Close, 64)
	volume, errV := strconv.ParseFloat(k.Volume, 64)
	if err := errors.Join(errO, errH, errL, errC, errV); err != nil {
		return models.Bar{}, fmt.Errorf("parse kline at %d: %w", k.OpenTime, err)
	}
	return models.Bar{
		OpenTime: k.OpenTime,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePrice,
		Volume:   volume,
	}, nil
}

// SubmitOrder sends a market order. BUY orders are sized by quote amount,
// SELL orders by base quantity. Venue rejections and transport failures both
// come back as *ExecutionError.
func (e *LiveExchange) SubmitOrder(ctx context.Context, req models.OrderRequest) (*models.OrderReceipt, error) {
	svc := e.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(binance.SideType(req.Side)).
		Type(binance.OrderTypeMarket)
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}
	switch {
	case req.QuoteAmount != "":
		svc = svc.QuoteOrderQty(req.QuoteAmount)
	case req.Quantity != "":
		svc = svc.Quantity(req.Quantity)
	default:
		return nil, &ExecutionError{Msg: "order request carries neither quote amount nor quantity"}
	}

	res, err := svc.Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			return nil, &ExecutionError{Code: int(apiErr.Code), Msg: apiErr.Message, Err: err}
		}
		return nil, &ExecutionError{Err: err}
	}

	receipt := &models.OrderReceipt{
		OrderID:       res.OrderID,
		ClientOrderID: res.ClientOrderID,
		Symbol:        res.Symbol,
		Side:          models.Side(res.Side),
		Status:        string(res.Status),
		ExecutedQty:   res.ExecutedQuantity,
		CumQuoteQty:   res.CummulativeQuoteQuantity,
		TransactTime:  res.TransactTime,
	}
	e.logger.Info("order filled",
		zap.String("symbol", receipt.Symbol),
		zap.String("side", string(receipt.Side)),
		zap.Int64("order_id", receipt.OrderID),
		zap.String("client_order_id", receipt.ClientOrderID),
		zap.String("status", receipt.Status),
		zap.String("executed_qty", receipt.ExecutedQty),
		zap.String("cum_quote_qty", receipt.CumQuoteQty),
	)
	return receipt, nil
}
