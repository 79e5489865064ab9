package oracle

import (
	"fmt"
	"math/rand"

	"binance-signal-bot-go/internal/features"
	"binance-signal-bot-go/internal/models"

	"go.uber.org/zap"
)

// TrainOptions drives the startup fit of a fresh model.
type TrainOptions struct {
	Trees           int
	Seed            int64
	MaxDepth        int
	MinLeafSize     int
	Horizon         int
	LabelThreshold  float64
	HoldoutFraction float64 // rows kept out of the fit for the accuracy log
	ModelPath       string  // empty skips persisting
}

// OptionsFrom fills TrainOptions from the bot config.
func OptionsFrom(cfg *models.Config) TrainOptions {
	return TrainOptions{
		Trees:           cfg.ForestTrees,
		Seed:            cfg.ForestSeed,
		Horizon:         cfg.LabelHorizon,
		LabelThreshold:  cfg.LabelThreshold,
		HoldoutFraction: 0.2,
		ModelPath:       cfg.ModelPath,
	}
}

// TrainFromHistory labels the historical vectors, fits a forest on a
// deterministic train split, logs class balance and holdout accuracy, and
// persists the artifact. The tail rows without a forward return never reach
// the fit.
func TrainFromHistory(vectors []features.Vector, opts TrainOptions, logger *zap.Logger) (*Forest, error) {
	y := features.Labels(vectors, opts.Horizon, opts.LabelThreshold)
	if len(y) == 0 {
		return nil, fmt.Errorf("not enough history to label: %d vectors, horizon %d", len(vectors), opts.Horizon)
	}
	x := make([][]float64, len(y))
	for i := range y {
		x[i] = vectors[i].Values
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	perm := rng.Perm(len(y))
	holdout := int(float64(len(y)) * opts.HoldoutFraction)
	if holdout >= len(y) {
		holdout = 0
	}
	testIdx := perm[:holdout]
	trainIdx := perm[holdout:]

	trainX := make([][]float64, len(trainIdx))
	trainY := make([]int, len(trainIdx))
	for i, j := range trainIdx {
		trainX[i] = x[j]
		trainY[i] = y[j]
	}

	forest, err := Train(trainX, trainY, features.Names, TrainConfig{
		Trees:       opts.Trees,
		Seed:        opts.Seed,
		MaxDepth:    opts.MaxDepth,
		MinLeafSize: opts.MinLeafSize,
	})
	if err != nil {
		return nil, err
	}

	var buyLabels, sellLabels, neutralLabels int
	for _, c := range y {
		switch c {
		case models.ClassBuy:
			buyLabels++
		case models.ClassSell:
			sellLabels++
		default:
			neutralLabels++
		}
	}
	accuracy := holdoutAccuracy(forest, x, y, testIdx)

	logger.Info("trained signal model",
		zap.Int("rows", len(y)),
		zap.Int("train_rows", len(trainIdx)),
		zap.Int("holdout_rows", len(testIdx)),
		zap.Int("buy_labels", buyLabels),
		zap.Int("sell_labels", sellLabels),
		zap.Int("neutral_labels", neutralLabels),
		zap.Float64("holdout_accuracy", accuracy),
	)

	if opts.ModelPath != "" {
		if err := forest.Save(opts.ModelPath); err != nil {
			return nil, fmt.Errorf("persist model artifact: %w", err)
		}
		logger.Info("saved model artifact", zap.String("path", opts.ModelPath))
	}
	return forest, nil
}

func holdoutAccuracy(f *Forest, x [][]float64, y []int, testIdx []int) float64 {
	if len(testIdx) == 0 {
		return 0
	}
	correct := 0
	for _, i := range testIdx {
		sig, err := f.Predict(x[i])
		if err == nil && sig.Class == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(testIdx))
}
