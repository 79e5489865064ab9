// Package engine runs the decision loop: one pass per poll interval that
// gates on the cooldown, snapshots the market, computes features, asks the
// oracle and routes the verdict through the position state machine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"binance-signal-bot-go/internal/exchange"
	"binance-signal-bot-go/internal/features"
	"binance-signal-bot-go/internal/models"
	"binance-signal-bot-go/internal/oracle"
	"binance-signal-bot-go/internal/position"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TradeRecorder receives every completed round trip.
type TradeRecorder interface {
	RecordTrade(trade models.CompletedTrade)
}

// StateStore persists the bot state snapshot at the end of each admitted
// cycle.
type StateStore interface {
	SaveState(state *models.BotState) error
}

// Deps collects everything the engine consumes. Market, Gateway, Oracle,
// Position, Cooldown and Pipeline are required; the rest default to no-ops.
type Deps struct {
	Market   exchange.MarketDataProvider
	Gateway  exchange.ExecutionGateway
	Oracle   oracle.Oracle
	Position *position.Manager
	Cooldown *Cooldown
	Pipeline *features.Pipeline
	Recorder TradeRecorder
	Store    StateStore
	Clock    Clock
	Logger   *zap.Logger
}

// Engine is the single-threaded decision loop. All trading state lives in
// the injected collaborators; the engine itself only orchestrates.
type Engine struct {
	cfg      *models.Config
	market   exchange.MarketDataProvider
	gateway  exchange.ExecutionGateway
	oracle   oracle.Oracle
	position *position.Manager
	cooldown *Cooldown
	pipeline *features.Pipeline
	recorder TradeRecorder
	store    StateStore
	clock    Clock
	logger   *zap.Logger
}

// New wires an engine from its dependencies.
func New(cfg *models.Config, deps Deps) (*Engine, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("engine: config is required")
	case deps.Market == nil:
		return nil, errors.New("engine: market data provider is required")
	case deps.Gateway == nil:
		return nil, errors.New("engine: execution gateway is required")
	case deps.Oracle == nil:
		return nil, errors.New("engine: oracle is required")
	case deps.Position == nil:
		return nil, errors.New("engine: position manager is required")
	case deps.Cooldown == nil:
		return nil, errors.New("engine: cooldown gate is required")
	case deps.Pipeline == nil:
		return nil, errors.New("engine: feature pipeline is required")
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		market:   deps.Market,
		gateway:  deps.Gateway,
		oracle:   deps.Oracle,
		position: deps.Position,
		cooldown: deps.Cooldown,
		pipeline: deps.Pipeline,
		recorder: deps.Recorder,
		store:    deps.Store,
		clock:    deps.Clock,
		logger:   deps.Logger,
	}, nil
}

// Run executes cycles until ctx is canceled. Cycle errors are logged and
// swallowed; a failed cycle never stops the loop.
func (e *Engine) Run(ctx context.Context) error {
	interval := time.Duration(e.cfg.PollIntervalSec) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("decision loop started",
		zap.String("symbol", e.cfg.Symbol),
		zap.Duration("poll_interval", interval),
	)
	for {
		if err := e.RunCycle(ctx); err != nil {
			e.logger.Error("cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			e.logger.Info("decision loop stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle executes one pass of the decision loop. Errors are cycle-scoped:
// the caller logs them and the next tick starts clean.
func (e *Engine) RunCycle(ctx context.Context) error {
	log := e.logger.With(zap.String("cycle_id", uuid.NewString()))

	// The gate is consulted exactly once per cycle, before any venue call.
	// A denied cycle does no work at all.
	if !e.cooldown.CanTrade() {
		log.Debug("cooldown active, skipping cycle")
		return nil
	}

	snapshot, err := e.fetchSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetch market snapshot: %w", err)
	}

	vectors, err := e.pipeline.Compute(snapshot.Bars, snapshot.Book)
	if err != nil {
		return fmt.Errorf("compute features: %w", err)
	}
	latest := vectors[len(vectors)-1]

	signal, err := e.oracle.Predict(latest.Values)
	if err != nil {
		return fmt.Errorf("predict signal: %w", err)
	}
	log.Info("signal",
		zap.Int("class", signal.Class),
		zap.Float64("confidence", signal.Confidence),
		zap.Float64("price", snapshot.Price),
		zap.Float64("quote_balance", snapshot.QuoteBalance),
		zap.String("position", e.position.State().String()),
	)

	decision := e.decide(snapshot, signal)
	switch decision.Action {
	case models.Buy:
		err = e.openLong(ctx, log, snapshot, decision)
	case models.Sell:
		err = e.closeLong(ctx, log, snapshot, decision)
	default:
		log.Info("hold", zap.String("reason", decision.Reason))
	}
	if err != nil {
		var execErr *exchange.ExecutionError
		if errors.As(err, &execErr) {
			// The order never happened, so the position must not move.
			log.Error("order failed, position unchanged", zap.Error(execErr))
		} else {
			return err
		}
	}

	if err := e.saveState(); err != nil {
		log.Warn("persist state", zap.Error(err))
	}
	return nil
}

// fetchSnapshot gathers price, balance, book depth and history in one pass.
// Any failure aborts the cycle before a decision is formed.
func (e *Engine) fetchSnapshot(ctx context.Context) (*models.MarketSnapshot, error) {
	price, err := e.market.GetPrice(ctx, e.cfg.Symbol)
	if err != nil {
		return nil, err
	}
	balance, err := e.market.GetBalance(ctx, e.cfg.QuoteAsset)
	if err != nil {
		return nil, err
	}
	book, err := e.market.GetOrderBookStats(ctx, e.cfg.Symbol, e.cfg.DepthLimit)
	if err != nil {
		return nil, err
	}
	bars, err := e.market.GetHistoricalBars(ctx, e.cfg.Symbol, e.cfg.Interval, e.cfg.LookbackBars)
	if err != nil {
		return nil, err
	}
	return &models.MarketSnapshot{
		Price:        price,
		QuoteBalance: balance,
		Book:         book,
		Bars:         bars,
	}, nil
}

// decide maps (position state, signal) to an action per the trading policy:
// low confidence always holds, a flat book buys on an up verdict, a long
// book sells on a down verdict only once take-profit or stop-loss is
// breached.
func (e *Engine) decide(snapshot *models.MarketSnapshot, signal models.Signal) models.TradeDecision {
	decision := models.TradeDecision{Action: models.None, Signal: signal}

	if signal.Confidence < e.cfg.ConfidenceThreshold {
		decision.Reason = "confidence below threshold"
		return decision
	}

	switch e.position.State() {
	case position.Flat:
		if signal.Class != models.ClassBuy {
			decision.Reason = "no entry signal while flat"
			return decision
		}
		quote := buyQuoteAmount(snapshot.QuoteBalance, e.cfg.TradeFraction, e.cfg.QuotePrecision)
		if !quote.IsPositive() {
			decision.Reason = "quote balance too small to size an entry"
			return decision
		}
		decision.Action = models.Buy
		decision.QuoteAmount = quote
		decision.Reason = "entry signal while flat"

	case position.Long:
		if signal.Class != models.ClassSell {
			decision.Reason = "no exit signal while long"
			return decision
		}
		reason, breached := e.position.CheckExit(snapshot.Price)
		if !breached {
			decision.Reason = "exit signal without threshold breach"
			return decision
		}
		held, _ := e.position.Snapshot()
		decision.Action = models.Sell
		decision.Quantity = sellQuantity(held.Quantity, e.cfg.QtyPrecision)
		decision.Reason = string(reason)
	}
	return decision
}

func (e *Engine) openLong(ctx context.Context, log *zap.Logger, snapshot *models.MarketSnapshot, decision models.TradeDecision) error {
	req := models.OrderRequest{
		Symbol:        e.cfg.Symbol,
		Side:          models.Buy,
		QuoteAmount:   decision.QuoteAmount.String(),
		ClientOrderID: exchange.NewClientOrderID(),
	}
	receipt, err := e.gateway.SubmitOrder(ctx, req)
	if err != nil {
		return err
	}

	qty := executedQuantity(receipt, decision.QuoteAmount, snapshot.Price, e.cfg.QtyPrecision)
	if err := e.position.Open(snapshot.Price, qty, e.cfg.TPMultiplier, e.cfg.SLMultiplier, e.clock.Now()); err != nil {
		return fmt.Errorf("record opened position: %w", err)
	}
	log.Info("entry filled",
		zap.Int64("order_id", receipt.OrderID),
		zap.String("client_order_id", receipt.ClientOrderID),
		zap.String("quote_amount", decision.QuoteAmount.String()),
		zap.Float64("quantity", qty),
	)
	return nil
}

func (e *Engine) closeLong(ctx context.Context, log *zap.Logger, snapshot *models.MarketSnapshot, decision models.TradeDecision) error {
	req := models.OrderRequest{
		Symbol:        e.cfg.Symbol,
		Side:          models.Sell,
		Quantity:      decision.Quantity.String(),
		ClientOrderID: exchange.NewClientOrderID(),
	}
	receipt, err := e.gateway.SubmitOrder(ctx, req)
	if err != nil {
		return err
	}

	trade, err := e.position.Close(e.cfg.Symbol, snapshot.Price, position.ExitReason(decision.Reason), e.clock.Now())
	if err != nil {
		return fmt.Errorf("record closed position: %w", err)
	}
	if e.recorder != nil {
		e.recorder.RecordTrade(trade)
	}
	log.Info("exit filled",
		zap.Int64("order_id", receipt.OrderID),
		zap.String("client_order_id", receipt.ClientOrderID),
		zap.String("quantity", decision.Quantity.String()),
		zap.Float64("profit", trade.Profit),
		zap.String("reason", trade.Reason),
	)
	return nil
}

// executedQuantity prefers the venue-reported fill and falls back to the
// requested notional at the snapshot price when the receipt is unusable.
func executedQuantity(receipt *models.OrderReceipt, quote decimal.Decimal, price float64, precision int32) float64 {
	if qty, err := strconv.ParseFloat(receipt.ExecutedQty, 64); err == nil && qty > 0 {
		return qty
	}
	qty, _ := baseQuantity(quote, price, precision).Float64()
	return qty
}

func (e *Engine) saveState() error {
	if e.store == nil {
		return nil
	}
	return e.store.SaveState(&models.BotState{
		Version:        models.StateVersion,
		Symbol:         e.cfg.Symbol,
		Position:       e.position.ToState(),
		LastTradeTime:  e.cooldown.Last(),
		LastUpdateTime: e.clock.Now(),
	})
}
