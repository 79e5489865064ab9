package config

import (
	"encoding/json"
	"fmt"
	"os"

	"binance-signal-bot-go/internal/models"
)

// LoadConfig reads the JSON config at path, fills in defaults for omitted
// fields and validates the result.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	config := &models.Config{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}

	applyDefaults(config)
	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return config, nil
}

// Default returns a config with every field at its default value.
func Default() *models.Config {
	cfg := &models.Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *models.Config) {
	if cfg.Symbol == "" {
		cfg.Symbol = "BTCUSDT"
	}
	if cfg.QuoteAsset == "" {
		cfg.QuoteAsset = "USDT"
	}
	if cfg.Interval == "" {
		cfg.Interval = "5m"
	}
	if cfg.LookbackBars == 0 {
		cfg.LookbackBars = 864 // three days of 5m bars
	}
	if cfg.DepthLimit == 0 {
		cfg.DepthLimit = 20
	}

	if cfg.SMAShortWindow == 0 {
		cfg.SMAShortWindow = 20
	}
	if cfg.SMALongWindow == 0 {
		cfg.SMALongWindow = 50
	}
	if cfg.RSIWindow == 0 {
		cfg.RSIWindow = 14
	}
	if cfg.MACDFastWindow == 0 {
		cfg.MACDFastWindow = 12
	}
	if cfg.MACDSlowWindow == 0 {
		cfg.MACDSlowWindow = 26
	}
	if cfg.BollingerWindow == 0 {
		cfg.BollingerWindow = 20
	}
	if cfg.BollingerWidth == 0 {
		cfg.BollingerWidth = 2.0
	}
	if cfg.ATRWindow == 0 {
		cfg.ATRWindow = 14
	}
	if cfg.StochKWindow == 0 {
		cfg.StochKWindow = 14
	}
	if cfg.StochDWindow == 0 {
		cfg.StochDWindow = 3
	}
	if cfg.VolumeZWindow == 0 {
		cfg.VolumeZWindow = 20
	}

	if cfg.LabelHorizon == 0 {
		cfg.LabelHorizon = 3
	}
	if cfg.LabelThreshold == 0 {
		cfg.LabelThreshold = 0.002
	}
	if cfg.ForestTrees == 0 {
		cfg.ForestTrees = 100
	}
	if cfg.ForestSeed == 0 {
		cfg.ForestSeed = 42
	}
	if cfg.ModelPath == "" {
		cfg.ModelPath = "model_aggressive.json"
	}

	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.6
	}
	if cfg.TPMultiplier == 0 {
		cfg.TPMultiplier = 1.007
	}
	if cfg.SLMultiplier == 0 {
		cfg.SLMultiplier = 0.985
	}
	if cfg.TradeFraction == 0 {
		cfg.TradeFraction = 0.20
	}
	if cfg.CooldownSec == 0 {
		cfg.CooldownSec = 60
	}
	if cfg.PollIntervalSec == 0 {
		cfg.PollIntervalSec = 60
	}
	if cfg.QuotePrecision == 0 {
		cfg.QuotePrecision = 2
	}
	if cfg.QtyPrecision == 0 {
		cfg.QtyPrecision = 6
	}

	if cfg.PaperMode && cfg.PaperBalance == 0 {
		cfg.PaperBalance = 10000
	}
	if cfg.WSBaseURL == "" {
		cfg.WSBaseURL = "wss://stream.binance.com:9443"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "data/state"
	}

	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.LogConfig.Output == "" {
		cfg.LogConfig.Output = "both"
	}
	if cfg.LogConfig.File == "" {
		cfg.LogConfig.File = "signal_bot.log"
	}
	if cfg.LogConfig.MaxSize == 0 {
		cfg.LogConfig.MaxSize = 10
	}
	if cfg.LogConfig.MaxBackups == 0 {
		cfg.LogConfig.MaxBackups = 5
	}
	if cfg.LogConfig.MaxAge == 0 {
		cfg.LogConfig.MaxAge = 30
	}
}

func validate(cfg *models.Config) error {
	if cfg.TPMultiplier <= 1 {
		return fmt.Errorf("tp_multiplier must be greater than 1, got %v", cfg.TPMultiplier)
	}
	if cfg.SLMultiplier <= 0 || cfg.SLMultiplier >= 1 {
		return fmt.Errorf("sl_multiplier must be in (0, 1), got %v", cfg.SLMultiplier)
	}
	if cfg.TradeFraction <= 0 || cfg.TradeFraction > 1 {
		return fmt.Errorf("trade_fraction must be in (0, 1], got %v", cfg.TradeFraction)
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0, 1], got %v", cfg.ConfidenceThreshold)
	}
	if cfg.MACDFastWindow >= cfg.MACDSlowWindow {
		return fmt.Errorf("macd_fast_window (%d) must be smaller than macd_slow_window (%d)",
			cfg.MACDFastWindow, cfg.MACDSlowWindow)
	}
	for name, w := range map[string]int{
		"sma_short_window": cfg.SMAShortWindow,
		"sma_long_window":  cfg.SMALongWindow,
		"rsi_window":       cfg.RSIWindow,
		"bollinger_window": cfg.BollingerWindow,
		"atr_window":       cfg.ATRWindow,
		"stoch_k_window":   cfg.StochKWindow,
		"stoch_d_window":   cfg.StochDWindow,
		"volume_z_window":  cfg.VolumeZWindow,
	} {
		if w <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, w)
		}
	}
	if cfg.SMAShortWindow >= cfg.SMALongWindow {
		return fmt.Errorf("sma_short_window (%d) must be smaller than sma_long_window (%d)",
			cfg.SMAShortWindow, cfg.SMALongWindow)
	}
	if cfg.LabelHorizon <= 0 {
		return fmt.Errorf("label_horizon must be positive, got %d", cfg.LabelHorizon)
	}
	if cfg.LabelThreshold <= 0 {
		return fmt.Errorf("label_threshold must be positive, got %v", cfg.LabelThreshold)
	}
	if cfg.LookbackBars <= cfg.SMALongWindow+cfg.LabelHorizon {
		return fmt.Errorf("lookback_bars (%d) must exceed sma_long_window plus label_horizon (%d)",
			cfg.LookbackBars, cfg.SMALongWindow+cfg.LabelHorizon)
	}
	if cfg.CooldownSec <= 0 {
		return fmt.Errorf("cooldown_sec must be positive, got %d", cfg.CooldownSec)
	}
	if cfg.PollIntervalSec <= 0 {
		return fmt.Errorf("poll_interval_sec must be positive, got %d", cfg.PollIntervalSec)
	}
	if cfg.QuotePrecision < 0 || cfg.QtyPrecision < 0 {
		return fmt.Errorf("precision values must not be negative")
	}
	return nil
}
