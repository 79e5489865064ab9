package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config holds every runtime parameter of the bot, loaded from a JSON file.
type Config struct {
	Symbol       string `json:"symbol"`        // trading pair, e.g. "BTCUSDT"
	QuoteAsset   string `json:"quote_asset"`   // balance asset, e.g. "USDT"
	Interval     string `json:"interval"`      // bar interval, e.g. "5m"
	LookbackBars int    `json:"lookback_bars"` // historical bars fetched per cycle
	DepthLimit   int    `json:"depth_limit"`   // order book levels aggregated per side

	// Rolling windows of the feature pipeline.
	SMAShortWindow  int     `json:"sma_short_window"`
	SMALongWindow   int     `json:"sma_long_window"`
	RSIWindow       int     `json:"rsi_window"`
	MACDFastWindow  int     `json:"macd_fast_window"`
	MACDSlowWindow  int     `json:"macd_slow_window"`
	BollingerWindow int     `json:"bollinger_window"`
	BollingerWidth  float64 `json:"bollinger_width"` // band distance in standard deviations
	ATRWindow       int     `json:"atr_window"`
	StochKWindow    int     `json:"stoch_k_window"`
	StochDWindow    int     `json:"stoch_d_window"`
	VolumeZWindow   int     `json:"volume_z_window"`

	// Labeling and model training.
	LabelHorizon   int     `json:"label_horizon"`   // forward-return lookahead in bars
	LabelThreshold float64 `json:"label_threshold"` // return magnitude separating the classes
	ForestTrees    int     `json:"forest_trees"`
	ForestSeed     int64   `json:"forest_seed"`
	ModelPath      string  `json:"model_path"`

	// Decision policy.
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	TPMultiplier        float64 `json:"tp_multiplier"`
	SLMultiplier        float64 `json:"sl_multiplier"`
	TradeFraction       float64 `json:"trade_fraction"` // share of the quote balance per entry
	CooldownSec         int     `json:"cooldown_sec"`
	PollIntervalSec     int     `json:"poll_interval_sec"`
	QuotePrecision      int32   `json:"quote_precision"` // decimals of the quote order amount
	QtyPrecision        int32   `json:"qty_precision"`   // decimals of the base quantity

	// Venue and persistence.
	BaseURL           string  `json:"base_url,omitempty"`    // REST endpoint override, empty for production
	WSBaseURL         string  `json:"ws_base_url,omitempty"` // websocket endpoint for the price stream
	PaperMode         bool    `json:"paper_mode"`            // simulate fills instead of sending real orders
	PaperBalance      float64 `json:"paper_balance,omitempty"`
	EnablePriceStream bool    `json:"enable_price_stream"`
	DBPath            string  `json:"db_path"` // state database directory

	LogConfig LogConfig `json:"log"`
}

// LogConfig controls log level, destinations and file rotation.
type LogConfig struct {
	Level      string `json:"level"`       // "debug", "info", "warn", "error"
	Output     string `json:"output"`      // "console", "file", "both"
	File       string `json:"file"`        // log file path
	MaxSize    int    `json:"max_size"`    // max size of a single log file (MB)
	MaxBackups int    `json:"max_backups"` // number of rotated files kept
	MaxAge     int    `json:"max_age"`     // max age of rotated files (days)
	Compress   bool   `json:"compress"`    // gzip rotated files
}

// Bar is one OHLCV record for a fixed interval.
type Bar struct {
	OpenTime int64   `json:"open_time"` // bar open, milliseconds since epoch
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// OrderBookStats aggregates the resting volume on each side of the book.
type OrderBookStats struct {
	BidVolume float64 `json:"bid_volume"`
	AskVolume float64 `json:"ask_volume"`
}

// MarketSnapshot is everything a single decision cycle observes.
type MarketSnapshot struct {
	Price        float64
	QuoteBalance float64
	Book         OrderBookStats
	Bars         []Bar
}

// Signal classes produced by the oracle.
const (
	ClassSell    = -1
	ClassNeutral = 0
	ClassBuy     = 1
)

// Signal is the oracle's verdict for one feature row: a discrete class and
// the probability mass of that class.
type Signal struct {
	Class      int     `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Side is the direction of an order, or None when no order is wanted.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
	None Side = "NONE"
)

// OrderRequest describes one market order. BUY orders are sized in quote
// currency (QuoteAmount), SELL orders in base quantity; the unused field
// stays empty.
type OrderRequest struct {
	Symbol        string
	Side          Side
	QuoteAmount   string
	Quantity      string
	ClientOrderID string
}

// OrderReceipt is the venue's acknowledgement of a filled market order.
type OrderReceipt struct {
	OrderID       int64
	ClientOrderID string
	Symbol        string
	Side          Side
	Status        string
	ExecutedQty   string
	CumQuoteQty   string
	TransactTime  int64
}

// TradeDecision is the outcome of one decision cycle. Derived fresh every
// cycle and logged, never persisted.
type TradeDecision struct {
	Action      Side
	QuoteAmount decimal.Decimal // set for BUY
	Quantity    decimal.Decimal // set for SELL
	Signal      Signal
	Reason      string
}

// CompletedTrade records one closed position for the session report.
type CompletedTrade struct {
	Symbol       string
	Quantity     float64
	EntryTime    time.Time
	ExitTime     time.Time
	HoldDuration time.Duration
	EntryPrice   float64
	ExitPrice    float64
	Profit       float64
	Reason       string
}

// TradeEvent is an aggregate trade pushed over the market websocket stream.
type TradeEvent struct {
	EventType string `json:"e"` // event type
	EventTime int64  `json:"E"` // event time
	Symbol    string `json:"s"` // symbol
	Price     string `json:"p"` // price
	Quantity  string `json:"q"` // quantity
	TradeTime int64  `json:"T"` // trade time
	IsMaker   bool   `json:"m"` // is the buyer the market maker?
}

