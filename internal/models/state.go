package models

import "time"

// StateVersion is bumped whenever the persisted layout changes.
const StateVersion = 1

// BotState is the durable snapshot of everything that must survive a
// restart: the open position, if any, and the cooldown stamp.
type BotState struct {
	Version        int            `json:"version"`
	Symbol         string         `json:"symbol"`
	Position       *PositionState `json:"position,omitempty"` // nil while flat
	LastTradeTime  time.Time      `json:"last_trade_time"`    // zero when no cycle was ever admitted
	LastUpdateTime time.Time      `json:"last_update_time"`
}

// PositionState is the serialized form of an open long position.
type PositionState struct {
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	TakeProfit float64   `json:"take_profit"`
	StopLoss   float64   `json:"stop_loss"`
	OpenedAt   time.Time `json:"opened_at"`
}
