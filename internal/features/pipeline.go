// Package features derives the fixed-width indicator vectors the oracle is
// trained on and queried with. All computations are deterministic and
// side-effect-free: the same bars and book stats always produce the same
// vectors.
package features

import (
	"errors"
	"fmt"

	"binance-signal-bot-go/internal/models"
)

var (
	// ErrInsufficientHistory reports that the series is too short to fill
	// every rolling window.
	ErrInsufficientHistory = errors.New("insufficient history to fill every rolling window")
	// ErrDegenerateDepth reports an order book with zero volume on both
	// sides, leaving the imbalance undefined.
	ErrDegenerateDepth = errors.New("order book is degenerate: bid and ask volume are both zero")
)

// Names lists the vector fields in the exact order Compute emits them. The
// oracle artifact stores this schema and refuses to load against a different
// one.
var Names = []string{
	"sma_short", "sma_long", "rsi", "macd", "bb_upper", "bb_lower",
	"atr", "stoch_k", "stoch_d", "vwap", "obi", "volume_zscore",
}

// Vector is one complete feature row for a single bar. Close is carried
// along so the label generator can compute forward returns on the surviving
// rows without going back to the raw series.
type Vector struct {
	OpenTime int64
	Close    float64
	Values   []float64
}

// Config fixes every rolling window of the pipeline.
type Config struct {
	SMAShort       int
	SMALong        int
	RSI            int
	MACDFast       int
	MACDSlow       int
	Bollinger      int
	BollingerWidth float64
	ATR            int
	StochK         int
	StochD         int
	VolumeZ        int
}

// ConfigFrom extracts the pipeline windows from the bot config.
func ConfigFrom(cfg *models.Config) Config {
	return Config{
		SMAShort:       cfg.SMAShortWindow,
		SMALong:        cfg.SMALongWindow,
		RSI:            cfg.RSIWindow,
		MACDFast:       cfg.MACDFastWindow,
		MACDSlow:       cfg.MACDSlowWindow,
		Bollinger:      cfg.BollingerWindow,
		BollingerWidth: cfg.BollingerWidth,
		ATR:            cfg.ATRWindow,
		StochK:         cfg.StochKWindow,
		StochD:         cfg.StochDWindow,
		VolumeZ:        cfg.VolumeZWindow,
	}
}

// Pipeline turns OHLCV history plus current book depth into feature vectors.
type Pipeline struct {
	cfg Config
}

func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// MinBars is the shortest series that can produce at least one vector: the
// slowest warmup among the configured windows.
func (p *Pipeline) MinBars() int {
	min := p.cfg.SMALong
	for _, w := range []int{
		p.cfg.Bollinger,
		p.cfg.VolumeZ,
		p.cfg.MACDSlow,
		p.cfg.RSI + 1,
		p.cfg.ATR + 1,
		p.cfg.StochK + p.cfg.StochD - 1,
	} {
		if w > min {
			min = w
		}
	}
	return min
}

// Compute derives one Vector per bar, dropping every leading or interior row
// where any rolling computation lacks full history. The order-book imbalance
// is a property of the current book and is replicated across all rows, which
// is how the training matrix sees it too.
func (p *Pipeline) Compute(bars []models.Bar, book models.OrderBookStats) ([]Vector, error) {
	if len(bars) < p.MinBars() {
		return nil, fmt.Errorf("%w: have %d bars, need at least %d", ErrInsufficientHistory, len(bars), p.MinBars())
	}
	obi, err := OrderBookImbalance(book)
	if err != nil {
		return nil, err
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	smaShort := sma(closes, p.cfg.SMAShort)
	smaLong := sma(closes, p.cfg.SMALong)
	rsis := rsi(closes, p.cfg.RSI)
	macds := macdLine(closes, p.cfg.MACDFast, p.cfg.MACDSlow)
	bbUpper, bbLower := p.bollingerBands(closes)
	atrs := atr(highs, lows, closes, p.cfg.ATR)
	stochK := stochasticK(highs, lows, closes, p.cfg.StochK)
	stochD := sma(stochK, p.cfg.StochD)
	vwaps := vwap(highs, lows, closes, volumes)
	volZ := rollingZScore(volumes, p.cfg.VolumeZ)

	vectors := make([]Vector, 0, len(bars))
	for i := range bars {
		row := []float64{
			smaShort[i], smaLong[i], rsis[i], macds[i], bbUpper[i], bbLower[i],
			atrs[i], stochK[i], stochD[i], vwaps[i], obi, volZ[i],
		}
		if hasNaN(row) {
			continue
		}
		vectors = append(vectors, Vector{OpenTime: bars[i].OpenTime, Close: bars[i].Close, Values: row})
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("%w: no bar had every feature defined", ErrInsufficientHistory)
	}
	return vectors, nil
}

func (p *Pipeline) bollingerBands(closes []float64) (upper, lower []float64) {
	mid := sma(closes, p.cfg.Bollinger)
	stds := rollingStd(closes, p.cfg.Bollinger, false)
	upper = nanSlice(len(closes))
	lower = nanSlice(len(closes))
	for i := range closes {
		if hasNaN([]float64{mid[i], stds[i]}) {
			continue
		}
		upper[i] = mid[i] + p.cfg.BollingerWidth*stds[i]
		lower[i] = mid[i] - p.cfg.BollingerWidth*stds[i]
	}
	return upper, lower
}
