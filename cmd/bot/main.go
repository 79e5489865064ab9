package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"binance-signal-bot-go/internal/config"
	"binance-signal-bot-go/internal/engine"
	"binance-signal-bot-go/internal/exchange"
	"binance-signal-bot-go/internal/features"
	"binance-signal-bot-go/internal/logger"
	"binance-signal-bot-go/internal/models"
	"binance-signal-bot-go/internal/oracle"
	"binance-signal-bot-go/internal/persistence"
	"binance-signal-bot-go/internal/position"
	"binance-signal-bot-go/internal/reporter"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	retrain := flag.Bool("retrain", false, "discard the saved model artifact and train a fresh one")
	flag.Parse()

	// A default logger covers everything that happens before the config is
	// read; it is rebuilt from the file right after.
	logger.InitLogger(models.LogConfig{Level: "info", Output: "console"})

	if err := godotenv.Load(); err != nil {
		logger.S().Info("no .env file found, reading credentials from the environment")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.S().Fatalf("load config: %v", err)
	}

	logger.InitLogger(cfg.LogConfig)
	defer logger.S().Sync()

	if err := run(cfg, *retrain); err != nil {
		logger.S().Fatalf("bot stopped with error: %v", err)
	}
}

func run(cfg *models.Config, retrain bool) error {
	log := logger.L()

	apiKey := os.Getenv("BINANCE_API_KEY")
	secretKey := os.Getenv("BINANCE_SECRET_KEY")
	if !cfg.PaperMode && (apiKey == "" || secretKey == "") {
		return errors.New("BINANCE_API_KEY and BINANCE_SECRET_KEY must be set for live trading")
	}

	live := exchange.NewLiveExchange(apiKey, secretKey, cfg.BaseURL, log)
	var (
		market  exchange.MarketDataProvider = live
		gateway exchange.ExecutionGateway   = live
	)
	if cfg.PaperMode {
		paper := exchange.NewPaperExchange(live, cfg.PaperBalance, log)
		market, gateway = paper, paper
		logger.S().Infow("paper mode: orders are simulated", "starting_balance", cfg.PaperBalance)
	}

	pipe := features.NewPipeline(features.ConfigFrom(cfg))

	clf, err := buildOracle(cfg, pipe, market, retrain)
	if err != nil {
		return err
	}

	repo, err := persistence.NewBadgerRepository(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer repo.Close()

	pos := position.NewManager(log)
	cooldown := engine.NewCooldown(time.Duration(cfg.CooldownSec)*time.Second, nil)

	if saved, err := repo.LoadState(); err != nil {
		logger.S().Warnf("saved state unreadable, starting clean: %v", err)
	} else if saved != nil {
		if saved.Symbol != cfg.Symbol {
			logger.S().Warnw("saved state belongs to another symbol, ignoring it",
				"saved", saved.Symbol, "configured", cfg.Symbol)
		} else {
			if err := pos.Restore(saved.Position); err != nil {
				return fmt.Errorf("restore position: %w", err)
			}
			cooldown.Seed(saved.LastTradeTime)
		}
	}

	session := reporter.NewSession(cfg.Symbol, time.Now())

	eng, err := engine.New(cfg, engine.Deps{
		Market:   market,
		Gateway:  gateway,
		Oracle:   clf,
		Position: pos,
		Cooldown: cooldown,
		Pipeline: pipe,
		Recorder: session,
		Store:    repo,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.EnablePriceStream {
		stream := exchange.NewPriceStream(cfg.WSBaseURL, cfg.Symbol, log)
		go stream.Run(ctx)
	}

	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.S().Infow("shutdown signal received", "signal", sig.String())
		cancel()
		<-done
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	if err := repo.SaveState(&models.BotState{
		Version:        models.StateVersion,
		Symbol:         cfg.Symbol,
		Position:       pos.ToState(),
		LastTradeTime:  cooldown.Last(),
		LastUpdateTime: time.Now(),
	}); err != nil {
		logger.S().Warnf("final state save failed: %v", err)
	}

	session.Render(os.Stdout)
	logger.S().Info("bot stopped, state saved")
	return nil
}

// buildOracle loads the persisted model artifact, training a fresh one when
// it is missing, unusable or explicitly discarded. Training and inference
// share one feature pipeline so the model never sees a layout it was not
// fitted on.
func buildOracle(cfg *models.Config, pipe *features.Pipeline, market exchange.MarketDataProvider, retrain bool) (oracle.Oracle, error) {
	if !retrain {
		forest, err := oracle.Load(cfg.ModelPath, features.Names)
		switch {
		case err == nil:
			logger.S().Infow("loaded model artifact", "path", cfg.ModelPath, "trees", len(forest.Trees))
			return forest, nil
		case errors.Is(err, fs.ErrNotExist):
			logger.S().Infow("no model artifact yet, training one", "path", cfg.ModelPath)
		default:
			logger.S().Warnf("model artifact unusable, retraining: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	bars, err := market.GetHistoricalBars(ctx, cfg.Symbol, cfg.Interval, cfg.LookbackBars)
	if err != nil {
		return nil, fmt.Errorf("fetch training history: %w", err)
	}
	book, err := market.GetOrderBookStats(ctx, cfg.Symbol, cfg.DepthLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch order book for training: %w", err)
	}
	vectors, err := pipe.Compute(bars, book)
	if err != nil {
		return nil, fmt.Errorf("compute training features: %w", err)
	}

	forest, err := oracle.TrainFromHistory(vectors, oracle.OptionsFrom(cfg), logger.L())
	if err != nil {
		return nil, err
	}
	return forest, nil
}
