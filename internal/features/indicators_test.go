package features

import (
	"math"
	"testing"

	"binance-signal-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSMAWarmupAndValues verifies the warmup rows stay NaN and the filled
// windows average correctly.
func TestSMAWarmupAndValues(t *testing.T) {
	out := sma([]float64{1, 2, 3, 4, 5}, 3)

	require.Len(t, out, 5)
	assert.True(t, math.IsNaN(out[0]), "index 0 has no full window yet")
	assert.True(t, math.IsNaN(out[1]), "index 1 has no full window yet")
	assert.InDelta(t, 2.0, out[2], 1e-12)
	assert.InDelta(t, 3.0, out[3], 1e-12)
	assert.InDelta(t, 4.0, out[4], 1e-12)
}

// TestSMAPoisonedByNaN verifies that a NaN inside the window keeps the
// output NaN instead of silently averaging fewer samples.
func TestSMAPoisonedByNaN(t *testing.T) {
	out := sma([]float64{1, math.NaN(), 3, 4, 5}, 3)

	assert.True(t, math.IsNaN(out[2]), "window [1, NaN, 3] must stay undefined")
	assert.True(t, math.IsNaN(out[3]), "window [NaN, 3, 4] must stay undefined")
	assert.InDelta(t, 4.0, out[4], 1e-12, "window [3, 4, 5] is clean again")
}

// TestRollingStdDenominators checks the population and sample variants
// against a hand-computed series.
func TestRollingStdDenominators(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9} // mean 5, squared deviations sum 32

	pop := rollingStd(xs, 8, false)
	smp := rollingStd(xs, 8, true)

	assert.InDelta(t, 2.0, pop[7], 1e-12, "population std = sqrt(32/8)")
	assert.InDelta(t, math.Sqrt(32.0/7.0), smp[7], 1e-12, "sample std = sqrt(32/7)")
	assert.True(t, math.IsNaN(pop[6]), "window not full yet")
}

// TestEMARecursion verifies the seed-from-first-sample recursion and the
// minPeriods withholding.
func TestEMARecursion(t *testing.T) {
	out := ema([]float64{1, 2, 3}, 2, 2) // alpha = 2/3

	assert.True(t, math.IsNaN(out[0]), "withheld until minPeriods samples")
	assert.InDelta(t, 5.0/3.0, out[1], 1e-12)
	assert.InDelta(t, 23.0/9.0, out[2], 1e-12)
}

// TestMACDLineWarmup checks that the MACD appears only once the slow EMA is
// defined.
func TestMACDLineWarmup(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	out := macdLine(closes, 12, 26)

	assert.True(t, math.IsNaN(out[24]), "slow window not full at index 24")
	assert.False(t, math.IsNaN(out[25]), "slow window full at index 25")
	assert.Greater(t, out[29], 0.0, "rising closes put the fast EMA above the slow one")
}

// TestRSIExtremes pins the Wilder RSI at its boundary values: all gains read
// 100, a flat series reads 50.
func TestRSIExtremes(t *testing.T) {
	rising := make([]float64, 16)
	flat := make([]float64, 16)
	for i := range rising {
		rising[i] = 100 + float64(i)
		flat[i] = 100
	}

	up := rsi(rising, 14)
	mid := rsi(flat, 14)

	assert.True(t, math.IsNaN(up[13]), "warmup row")
	assert.InDelta(t, 100.0, up[14], 1e-12, "gains only")
	assert.InDelta(t, 100.0, up[15], 1e-12)
	assert.InDelta(t, 50.0, mid[14], 1e-12, "no movement at all")
}

// TestATRConstantRange verifies the Wilder ATR on bars with a fixed
// high-low spread and mid-range closes.
func TestATRConstantRange(t *testing.T) {
	n := 20
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		closes[i] = 100
		highs[i] = 101
		lows[i] = 99
	}

	out := atr(highs, lows, closes, 14)

	assert.True(t, math.IsNaN(out[13]), "seed not complete at index 13")
	assert.InDelta(t, 2.0, out[14], 1e-12, "every true range is 2")
	assert.InDelta(t, 2.0, out[19], 1e-12, "smoothing a constant stays constant")
}

// TestStochasticK places the close inside the window range and checks the
// flat-window hole.
func TestStochasticK(t *testing.T) {
	highs := []float64{10, 10, 10}
	lows := []float64{0, 0, 0}
	closes := []float64{5, 5, 7.5}

	out := stochasticK(highs, lows, closes, 3)
	assert.True(t, math.IsNaN(out[1]), "window not full")
	assert.InDelta(t, 75.0, out[2], 1e-12)

	flat := stochasticK([]float64{5, 5, 5}, []float64{5, 5, 5}, []float64{5, 5, 5}, 3)
	assert.True(t, math.IsNaN(flat[2]), "a flat window leaves %K undefined")
}

// TestVWAPAccumulates verifies the anchored volume weighting.
func TestVWAPAccumulates(t *testing.T) {
	highs := []float64{10, 16}
	lows := []float64{10, 16}
	closes := []float64{10, 16}
	volumes := []float64{2, 1}

	out := vwap(highs, lows, closes, volumes)

	assert.InDelta(t, 10.0, out[0], 1e-12)
	assert.InDelta(t, 12.0, out[1], 1e-12, "(10*2 + 16*1) / 3")
}

// TestRollingZScore checks the sample-std z-score and the zero-variance
// hole.
func TestRollingZScore(t *testing.T) {
	out := rollingZScore([]float64{1, 2, 3}, 3)
	assert.InDelta(t, 1.0, out[2], 1e-12, "(3 - mean 2) / sample std 1")

	constant := rollingZScore([]float64{4, 4, 4, 4}, 3)
	assert.True(t, math.IsNaN(constant[2]), "zero variance leaves the score undefined")
	assert.True(t, math.IsNaN(constant[3]), "zero variance leaves the score undefined")
}

// TestOrderBookImbalance covers the balanced, one-sided and degenerate
// books.
func TestOrderBookImbalance(t *testing.T) {
	obi, err := OrderBookImbalance(models.OrderBookStats{BidVolume: 30, AskVolume: 10})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, obi, 1e-12)

	allBid, err := OrderBookImbalance(models.OrderBookStats{BidVolume: 5})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, allBid, 1e-12)

	allAsk, err := OrderBookImbalance(models.OrderBookStats{AskVolume: 5})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, allAsk, 1e-12)

	_, err = OrderBookImbalance(models.OrderBookStats{})
	assert.ErrorIs(t, err, ErrDegenerateDepth, "an empty book has no imbalance")
}
