// Package exchange holds the venue-facing surfaces: the read-only market
// data provider, the order-submitting execution gateway, and their live and
// paper implementations.
package exchange

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"binance-signal-bot-go/internal/models"

	"github.com/jxskiss/base62"
)

// MarketDataProvider is the read-only venue surface one decision cycle
// consumes.
type MarketDataProvider interface {
	GetPrice(ctx context.Context, symbol string) (float64, error)
	GetBalance(ctx context.Context, asset string) (float64, error)
	GetOrderBookStats(ctx context.Context, symbol string, limit int) (models.OrderBookStats, error)
	GetHistoricalBars(ctx context.Context, symbol, interval string, limit int) ([]models.Bar, error)
}

// ExecutionGateway accepts market order requests and reports fills.
type ExecutionGateway interface {
	SubmitOrder(ctx context.Context, req models.OrderRequest) (*models.OrderReceipt, error)
}

// ExecutionError is returned when the venue rejects an order or the
// transport fails. It is terminal for the current cycle only: the engine
// logs it, leaves the position untouched and carries on next cycle.
type ExecutionError struct {
	Code int    // venue error code, zero for transport failures
	Msg  string // venue message
	Err  error  // transport cause, when any
}

func (e *ExecutionError) Error() string {
	if e.Msg == "" && e.Err != nil {
		return fmt.Sprintf("order submission failed: %v", e.Err)
	}
	return fmt.Sprintf("order rejected: code=%d, msg=%s", e.Code, e.Msg)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

var orderSeq atomic.Uint32

// NewClientOrderID returns a short venue-safe identifier, unique within this
// process, that ties receipts and log lines back to the submitting cycle.
func NewClientOrderID() string {
	n := orderSeq.Add(1)
	return fmt.Sprintf("sig-%s-%s",
		base62.FormatInt(time.Now().UnixMilli()),
		base62.FormatInt(int64(n)))
}
