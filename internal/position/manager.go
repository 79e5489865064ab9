// Package position tracks the single long exposure the bot may hold,
// together with its take-profit/stop-loss envelope.
package position

import (
	"errors"
	"sync"
	"time"

	"binance-signal-bot-go/internal/models"

	"go.uber.org/zap"
)

// State is the manager's exposure tag.
type State int

const (
	Flat State = iota
	Long
)

func (s State) String() string {
	if s == Long {
		return "LONG"
	}
	return "FLAT"
}

// ExitReason says which threshold an exit check tripped.
type ExitReason string

const (
	ExitTakeProfit ExitReason = "take_profit"
	ExitStopLoss   ExitReason = "stop_loss"
)

var (
	// ErrAlreadyOpen reports an Open or Restore while a position exists.
	// The decision engine must never trigger it.
	ErrAlreadyOpen = errors.New("a position is already open")
	// ErrNoPosition reports a Close while flat.
	ErrNoPosition = errors.New("no open position")
)

// LongPosition is the payload of the Long variant.
type LongPosition struct {
	EntryPrice float64
	Quantity   float64
	TakeProfit float64
	StopLoss   float64
	OpenedAt   time.Time
}

// Manager is the risk state machine: Flat, or Long carrying exactly one
// exposure. The tagged encoding makes more than one open position
// unrepresentable.
type Manager struct {
	mu     sync.Mutex
	state  State
	long   LongPosition
	logger *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{state: Flat, logger: logger}
}

// State returns the current variant tag.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Open transitions Flat to Long, deriving the exit envelope from the entry
// price: take-profit at price*tpMultiplier, stop-loss at price*slMultiplier.
func (m *Manager) Open(price, quantity, tpMultiplier, slMultiplier float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Long {
		return ErrAlreadyOpen
	}
	m.state = Long
	m.long = LongPosition{
		EntryPrice: price,
		Quantity:   quantity,
		TakeProfit: price * tpMultiplier,
		StopLoss:   price * slMultiplier,
		OpenedAt:   at,
	}
	m.logger.Info("position opened",
		zap.Float64("entry_price", price),
		zap.Float64("quantity", quantity),
		zap.Float64("take_profit", m.long.TakeProfit),
		zap.Float64("stop_loss", m.long.StopLoss),
	)
	return nil
}

// CheckExit reports whether the price has crossed the exit envelope and on
// which side. The threshold hit is logged so take-profit and stop-loss exits
// stay distinguishable in the event stream. Always false while flat.
func (m *Manager) CheckExit(price float64) (ExitReason, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Long {
		return "", false
	}
	switch {
	case price >= m.long.TakeProfit:
		m.logger.Info("take-profit threshold reached",
			zap.Float64("price", price),
			zap.Float64("take_profit", m.long.TakeProfit),
		)
		return ExitTakeProfit, true
	case price <= m.long.StopLoss:
		m.logger.Info("stop-loss threshold reached",
			zap.Float64("price", price),
			zap.Float64("stop_loss", m.long.StopLoss),
		)
		return ExitStopLoss, true
	}
	return "", false
}

// Close transitions Long to Flat and returns the completed trade record for
// the session report.
func (m *Manager) Close(symbol string, price float64, reason ExitReason, at time.Time) (models.CompletedTrade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Long {
		return models.CompletedTrade{}, ErrNoPosition
	}
	trade := models.CompletedTrade{
		Symbol:       symbol,
		Quantity:     m.long.Quantity,
		EntryTime:    m.long.OpenedAt,
		ExitTime:     at,
		HoldDuration: at.Sub(m.long.OpenedAt),
		EntryPrice:   m.long.EntryPrice,
		ExitPrice:    price,
		Profit:       (price - m.long.EntryPrice) * m.long.Quantity,
		Reason:       string(reason),
	}
	m.logger.Info("position closed",
		zap.Float64("exit_price", price),
		zap.Float64("entry_price", m.long.EntryPrice),
		zap.Float64("quantity", m.long.Quantity),
		zap.Float64("profit", trade.Profit),
		zap.String("reason", string(reason)),
	)
	m.state = Flat
	m.long = LongPosition{}
	return trade, nil
}

// Snapshot returns a copy of the open position and whether one exists.
func (m *Manager) Snapshot() (LongPosition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.long, m.state == Long
}

// ToState converts the variant into its persisted form, nil while flat.
func (m *Manager) ToState() *models.PositionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Long {
		return nil
	}
	return &models.PositionState{
		EntryPrice: m.long.EntryPrice,
		Quantity:   m.long.Quantity,
		TakeProfit: m.long.TakeProfit,
		StopLoss:   m.long.StopLoss,
		OpenedAt:   m.long.OpenedAt,
	}
}

// Restore rehydrates the manager from a persisted snapshot. A nil snapshot
// leaves it flat.
func (m *Manager) Restore(p *models.PositionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == nil {
		return nil
	}
	if m.state == Long {
		return ErrAlreadyOpen
	}
	m.state = Long
	m.long = LongPosition{
		EntryPrice: p.EntryPrice,
		Quantity:   p.Quantity,
		TakeProfit: p.TakeProfit,
		StopLoss:   p.StopLoss,
		OpenedAt:   p.OpenedAt,
	}
	m.logger.Info("position restored from saved state",
		zap.Float64("entry_price", p.EntryPrice),
		zap.Float64("quantity", p.Quantity),
		zap.Float64("take_profit", p.TakeProfit),
		zap.Float64("stop_loss", p.StopLoss),
	)
	return nil
}
