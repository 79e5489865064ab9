package oracle

import (
	"encoding/json"
	"math"
	"path/filepath"
	"testing"

	"binance-signal-bot-go/internal/features"
	"binance-signal-bot-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// trainingVectors synthesizes feature rows with a drifting sine close, so
// the labeler sees all three classes.
func trainingVectors(n int) []features.Vector {
	out := make([]features.Vector, n)
	for i := 0; i < n; i++ {
		phase := float64(i) / 5
		values := make([]float64, len(features.Names))
		for j := range values {
			values[j] = math.Sin(phase + float64(j))
		}
		out[i] = features.Vector{
			OpenTime: int64(i) * 300_000,
			Close:    100 + 5*math.Sin(phase),
			Values:   values,
		}
	}
	return out
}

// TestTrainFromHistoryFitsAndPersists runs the full startup training path
// and verifies the saved artifact serves the same predictions as the fitted
// model.
func TestTrainFromHistoryFitsAndPersists(t *testing.T) {
	vectors := trainingVectors(80)
	path := filepath.Join(t.TempDir(), "model.json")
	opts := TrainOptions{
		Trees:           15,
		Seed:            42,
		Horizon:         3,
		LabelThreshold:  0.002,
		HoldoutFraction: 0.2,
		ModelPath:       path,
	}

	forest, err := TrainFromHistory(vectors, opts, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, forest)
	assert.Len(t, forest.Trees, 15)

	loaded, err := Load(path, features.Names)
	require.NoError(t, err)

	probe := vectors[len(vectors)-1].Values
	want, err := forest.Predict(probe)
	require.NoError(t, err)
	got, err := loaded.Predict(probe)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// TestTrainFromHistoryIsReproducible fits twice from the same history and
// seed and expects identical models.
func TestTrainFromHistoryIsReproducible(t *testing.T) {
	vectors := trainingVectors(80)
	opts := TrainOptions{Trees: 10, Seed: 42, Horizon: 3, LabelThreshold: 0.002, HoldoutFraction: 0.2}

	first, err := TrainFromHistory(vectors, opts, zap.NewNop())
	require.NoError(t, err)
	second, err := TrainFromHistory(vectors, opts, zap.NewNop())
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// TestTrainFromHistoryTooShort verifies a history shorter than the label
// horizon cannot be fitted.
func TestTrainFromHistoryTooShort(t *testing.T) {
	_, err := TrainFromHistory(trainingVectors(3), TrainOptions{Trees: 5, Seed: 1, Horizon: 3, LabelThreshold: 0.002}, zap.NewNop())
	assert.ErrorContains(t, err, "not enough history")
}

// TestOptionsFrom maps the config fields onto training options.
func TestOptionsFrom(t *testing.T) {
	cfg := &models.Config{
		ForestTrees:    100,
		ForestSeed:     42,
		LabelHorizon:   3,
		LabelThreshold: 0.002,
		ModelPath:      "m.json",
	}

	opts := OptionsFrom(cfg)

	assert.Equal(t, 100, opts.Trees)
	assert.Equal(t, int64(42), opts.Seed)
	assert.Equal(t, 3, opts.Horizon)
	assert.InDelta(t, 0.002, opts.LabelThreshold, 1e-12)
	assert.InDelta(t, 0.2, opts.HoldoutFraction, 1e-12)
	assert.Equal(t, "m.json", opts.ModelPath)
}
