package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"binance-signal-bot-go/internal/models"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamReadTimeout  = 3 * time.Minute
	streamRedialDelay  = 5 * time.Second
	streamHeartbeatGap = 30 * time.Second
)

// PriceStream keeps an aggregate-trade subscription open so the log shows
// the market moving between decision cycles. It never feeds the decision
// path: every cycle fetches its own snapshot over REST.
type PriceStream struct {
	baseURL string
	symbol  string
	logger  *zap.Logger
}

// NewPriceStream subscribes to the aggTrade stream for symbol on the given
// websocket endpoint.
func NewPriceStream(wsBaseURL, symbol string, logger *zap.Logger) *PriceStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriceStream{baseURL: wsBaseURL, symbol: symbol, logger: logger}
}

// Run blocks, holding the subscription until ctx is canceled and redialing
// with a fixed delay after any disconnect.
func (s *PriceStream) Run(ctx context.Context) {
	for {
		if err := s.streamOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("price stream disconnected", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(streamRedialDelay):
		}
	}
}

func (s *PriceStream) streamOnce(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/ws/%s@aggTrade", s.baseURL, strings.ToLower(s.symbol))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()
	s.logger.Info("price stream connected", zap.String("endpoint", endpoint))

	// Closing the connection is the only way to unblock ReadJSON when the
	// context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	var lastLogged time.Time
	for {
		if err := conn.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			return err
		}
		var ev models.TradeEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if time.Since(lastLogged) < streamHeartbeatGap {
			continue
		}
		lastLogged = time.Now()
		s.logger.Info("market heartbeat",
			zap.String("symbol", ev.Symbol),
			zap.String("price", ev.Price),
			zap.String("qty", ev.Quantity),
		)
	}
}
