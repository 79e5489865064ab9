package exchange

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"binance-signal-bot-go/internal/models"

	"go.uber.org/zap"
)

// PaperExchange simulates order execution while delegating every market
// read to a real provider. Fills are instant at the current market price and
// balances live in memory only. It is not a backtester: the clock, the data
// and the loop cadence stay real.
type PaperExchange struct {
	market MarketDataProvider
	logger *zap.Logger

	mu          sync.Mutex
	cash        float64
	baseQty     float64
	nextOrderID int64
}

var (
	_ MarketDataProvider = (*PaperExchange)(nil)
	_ ExecutionGateway   = (*PaperExchange)(nil)
)

// NewPaperExchange wraps a market data provider with a simulated account
// holding startingCash of the quote asset.
func NewPaperExchange(market MarketDataProvider, startingCash float64, logger *zap.Logger) *PaperExchange {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaperExchange{
		market:      market,
		logger:      logger,
		cash:        startingCash,
		nextOrderID: 1,
	}
}

func (e *PaperExchange) GetPrice(ctx context.Context, symbol string) (float64, error) {
	return e.market.GetPrice(ctx, symbol)
}

// GetBalance reports the simulated cash for any asset. The paper account
// tracks a single quote currency.
func (e *PaperExchange) GetBalance(ctx context.Context, asset string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cash, nil
}

func (e *PaperExchange) GetOrderBookStats(ctx context.Context, symbol string, limit int) (models.OrderBookStats, error) {
	return e.market.GetOrderBookStats(ctx, symbol, limit)
}

func (e *PaperExchange) GetHistoricalBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error) {
	return e.market.GetHistoricalBars(ctx, symbol, interval, limit)
}

// SubmitOrder fills the request against the live price. Overdrawing the
// simulated account fails with the same code the venue uses so the engine
// exercises its real rejection path.
func (e *PaperExchange) SubmitOrder(ctx context.Context, req models.OrderRequest) (*models.OrderReceipt, error) {
	price, err := e.market.GetPrice(ctx, req.Symbol)
	if err != nil {
		return nil, &ExecutionError{Msg: "paper fill needs a market price", Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var executedQty, cumQuote float64
	switch req.Side {
	case models.Buy:
		quote, err := strconv.ParseFloat(req.QuoteAmount, 64)
		if err != nil || quote <= 0 {
			return nil, &ExecutionError{Code: -1013, Msg: fmt.Sprintf("invalid quote amount %q", req.QuoteAmount)}
		}
		if quote > e.cash {
			return nil, &ExecutionError{Code: -2010, Msg: "insufficient balance for requested action"}
		}
		executedQty = quote / price
		cumQuote = quote
		e.cash -= quote
		e.baseQty += executedQty
	case models.Sell:
		qty, err := strconv.ParseFloat(req.Quantity, 64)
		if err != nil || qty <= 0 {
			return nil, &ExecutionError{Code: -1013, Msg: fmt.Sprintf("invalid quantity %q", req.Quantity)}
		}
		if qty > e.baseQty+1e-9 {
			return nil, &ExecutionError{Code: -2010, Msg: "insufficient balance for requested action"}
		}
		executedQty = qty
		cumQuote = qty * price
		e.baseQty -= qty
		e.cash += cumQuote
	default:
		return nil, &ExecutionError{Msg: fmt.Sprintf("unsupported side %q", req.Side)}
	}

	receipt := &models.OrderReceipt{
		OrderID:       e.nextOrderID,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Status:        "FILLED",
		ExecutedQty:   strconv.FormatFloat(executedQty, 'f', 8, 64),
		CumQuoteQty:   strconv.FormatFloat(cumQuote, 'f', 8, 64),
		TransactTime:  time.Now().UnixMilli(),
	}
	e.nextOrderID++

	e.logger.Info("paper fill",
		zap.String("symbol", req.Symbol),
		zap.String("side", string(req.Side)),
		zap.Float64("price", price),
		zap.Float64("executed_qty", executedQty),
		zap.Float64("cash", e.cash),
		zap.Float64("base_qty", e.baseQty),
	)
	return receipt, nil
}
