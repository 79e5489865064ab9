package features

import (
	"math"
	"testing"

	"binance-signal-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPipelineConfig() Config {
	return Config{
		SMAShort:       20,
		SMALong:        50,
		RSI:            14,
		MACDFast:       12,
		MACDSlow:       26,
		Bollinger:      20,
		BollingerWidth: 2.0,
		ATR:            14,
		StochK:         14,
		StochD:         3,
		VolumeZ:        20,
	}
}

// syntheticBars produces a smooth but non-degenerate series: the price
// oscillates with a drift and the volume varies enough that no rolling
// window ever has zero variance.
func syntheticBars(n int) []models.Bar {
	bars := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		price := 100 + 10*math.Sin(float64(i)/7) + 0.05*float64(i)
		bars[i] = models.Bar{
			OpenTime: int64(i) * 300_000,
			Open:     price - 0.2,
			High:     price + 1.0 + 0.3*math.Sin(float64(i)/3),
			Low:      price - 1.0 - 0.2*math.Cos(float64(i)/5),
			Close:    price,
			Volume:   1000 + 300*math.Sin(float64(i)/4) + 10*float64(i%7),
		}
	}
	return bars
}

var testBook = models.OrderBookStats{BidVolume: 30, AskVolume: 10}

// TestComputeDropsWarmupRows verifies that exactly the rows where some
// window is still filling are dropped: with these settings the 50-bar SMA
// has the slowest warmup, so the first surviving bar is index 49.
func TestComputeDropsWarmupRows(t *testing.T) {
	p := NewPipeline(testPipelineConfig())
	bars := syntheticBars(120)

	vectors, err := p.Compute(bars, testBook)
	require.NoError(t, err)

	assert.Len(t, vectors, 120-49, "every bar from index 49 onward survives")
	assert.Equal(t, bars[49].OpenTime, vectors[0].OpenTime, "first surviving bar")
	assert.Equal(t, bars[119].OpenTime, vectors[len(vectors)-1].OpenTime, "last bar always survives")

	for _, v := range vectors {
		require.Len(t, v.Values, len(Names), "vector width matches the schema")
		assert.False(t, hasNaN(v.Values), "no NaN may leave the pipeline")
	}
}

// TestComputeIsDeterministic runs the pipeline twice on the same input and
// expects identical output.
func TestComputeIsDeterministic(t *testing.T) {
	p := NewPipeline(testPipelineConfig())
	bars := syntheticBars(120)

	first, err := p.Compute(bars, testBook)
	require.NoError(t, err)
	second, err := p.Compute(bars, testBook)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// TestComputeInsufficientHistory checks the short-series error.
func TestComputeInsufficientHistory(t *testing.T) {
	p := NewPipeline(testPipelineConfig())

	vectors, err := p.Compute(syntheticBars(30), testBook)

	assert.Nil(t, vectors)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

// TestComputeDegenerateBook checks that an empty order book aborts the
// computation instead of emitting a NaN column.
func TestComputeDegenerateBook(t *testing.T) {
	p := NewPipeline(testPipelineConfig())

	vectors, err := p.Compute(syntheticBars(120), models.OrderBookStats{})

	assert.Nil(t, vectors)
	assert.ErrorIs(t, err, ErrDegenerateDepth)
}

// TestComputeReplicatesImbalance verifies the book imbalance is a property
// of the current book, copied into every row.
func TestComputeReplicatesImbalance(t *testing.T) {
	p := NewPipeline(testPipelineConfig())

	vectors, err := p.Compute(syntheticBars(120), testBook)
	require.NoError(t, err)

	obiIdx := -1
	for i, name := range Names {
		if name == "obi" {
			obiIdx = i
		}
	}
	require.GreaterOrEqual(t, obiIdx, 0, "schema carries the imbalance column")
	for _, v := range vectors {
		assert.InDelta(t, 0.5, v.Values[obiIdx], 1e-12)
	}
}

// TestMinBars checks the warmup bound follows the slowest window.
func TestMinBars(t *testing.T) {
	cfg := testPipelineConfig()
	assert.Equal(t, 50, NewPipeline(cfg).MinBars(), "the long SMA dominates the defaults")

	cfg.StochK = 60
	cfg.StochD = 5
	assert.Equal(t, 64, NewPipeline(cfg).MinBars(), "%K window plus %D smoothing minus one")
}
