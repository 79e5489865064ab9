package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"slices"
	"sort"

	"binance-signal-bot-go/internal/models"
)

// ErrSchemaMismatch reports an artifact trained on a different feature
// schema than the one the pipeline currently produces.
var ErrSchemaMismatch = errors.New("model artifact was trained on a different feature schema")

const leafFeature = -1

// node is one binary split in a decision tree. Leaves have Feature == -1 and
// carry Class, an index into Forest.Classes.
type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Class     int     `json:"c"`
	Left      *node   `json:"l,omitempty"`
	Right     *node   `json:"r,omitempty"`
}

func (n *node) classify(features []float64) int {
	for n.Feature != leafFeature {
		if features[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Class
}

// Forest is a bootstrap-aggregated ensemble of gini-split decision trees.
// Growing it twice from the same rows and seed yields the same ensemble, so
// a persisted artifact is reproducible from its training set.
type Forest struct {
	Schema  []string `json:"schema"`
	Classes []int    `json:"classes"`
	Seed    int64    `json:"seed"`
	Trees   []*node  `json:"trees"`
}

var _ Oracle = (*Forest)(nil)

// TrainConfig tunes the forest fit. Zero values fall back to defaults.
type TrainConfig struct {
	Trees       int
	Seed        int64
	MaxDepth    int
	MinLeafSize int
}

// Train fits a forest on the feature matrix x and classes y. Every source of
// randomness (bootstrap draws, feature subsampling) comes from one seeded
// generator.
func Train(x [][]float64, y []int, schema []string, cfg TrainConfig) (*Forest, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("training set is empty or misaligned: %d rows, %d labels", len(x), len(y))
	}
	if len(schema) == 0 {
		return nil, errors.New("feature schema is empty")
	}
	for i, row := range x {
		if len(row) != len(schema) {
			return nil, fmt.Errorf("row %d has width %d, schema has %d", i, len(row), len(schema))
		}
	}
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 12
	}
	if cfg.MinLeafSize <= 0 {
		cfg.MinLeafSize = 2
	}

	classes := distinctSorted(y)
	classIndex := make(map[int]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}
	yi := make([]int, len(y))
	for i, c := range y {
		yi[i] = classIndex[c]
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	mtry := int(math.Sqrt(float64(len(schema))))
	if mtry < 1 {
		mtry = 1
	}

	forest := &Forest{
		Schema:  slices.Clone(schema),
		Classes: classes,
		Seed:    cfg.Seed,
		Trees:   make([]*node, 0, cfg.Trees),
	}
	for t := 0; t < cfg.Trees; t++ {
		sample := make([]int, len(x))
		for i := range sample {
			sample[i] = rng.Intn(len(x))
		}
		forest.Trees = append(forest.Trees,
			grow(x, yi, sample, len(classes), mtry, cfg.MaxDepth, cfg.MinLeafSize, rng))
	}
	return forest, nil
}

// Predict returns the winning class across the ensemble's votes and the
// share of trees that voted for it.
func (f *Forest) Predict(features []float64) (models.Signal, error) {
	if len(features) != len(f.Schema) {
		return models.Signal{}, fmt.Errorf("feature width %d does not match model schema width %d",
			len(features), len(f.Schema))
	}
	if len(f.Trees) == 0 {
		return models.Signal{}, errors.New("model has no trees")
	}
	votes := make([]int, len(f.Classes))
	for _, t := range f.Trees {
		votes[t.classify(features)]++
	}
	best := 0
	for i, v := range votes {
		if v > votes[best] {
			best = i
		}
	}
	return models.Signal{
		Class:      f.Classes[best],
		Confidence: float64(votes[best]) / float64(len(f.Trees)),
	}, nil
}

// Save writes the artifact as JSON, atomically via a temp file rename.
func (f *Forest) Save(path string) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a persisted forest and verifies it was trained on the given
// feature schema. A missing file surfaces as fs.ErrNotExist; anything
// unreadable or schema-incompatible is an error the caller may answer with a
// retrain.
func Load(path string, schema []string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("corrupt model artifact %s: %w", path, err)
	}
	if len(f.Trees) == 0 || len(f.Classes) == 0 {
		return nil, fmt.Errorf("corrupt model artifact %s: empty ensemble", path)
	}
	if !slices.Equal(f.Schema, schema) {
		return nil, fmt.Errorf("%w: artifact has %v, pipeline produces %v", ErrSchemaMismatch, f.Schema, schema)
	}
	return &f, nil
}

func grow(x [][]float64, y, idx []int, nClasses, mtry, depthLeft, minLeaf int, rng *rand.Rand) *node {
	counts := classCounts(y, idx, nClasses)
	if depthLeft <= 0 || len(idx) < 2*minLeaf || isPure(counts) {
		return &node{Feature: leafFeature, Class: majority(counts)}
	}
	feat, thr, ok := bestSplit(x, y, idx, nClasses, mtry, minLeaf, rng)
	if !ok {
		return &node{Feature: leafFeature, Class: majority(counts)}
	}
	var left, right []int
	for _, i := range idx {
		if x[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		Feature:   feat,
		Threshold: thr,
		Left:      grow(x, y, left, nClasses, mtry, depthLeft-1, minLeaf, rng),
		Right:     grow(x, y, right, nClasses, mtry, depthLeft-1, minLeaf, rng),
	}
}

// bestSplit scans mtry subsampled features for the threshold with the lowest
// weighted gini impurity. Ties keep the first candidate so the result does
// not depend on map or sort internals.
func bestSplit(x [][]float64, y, idx []int, nClasses, mtry, minLeaf int, rng *rand.Rand) (int, float64, bool) {
	bestGini := math.Inf(1)
	bestFeat := -1
	bestThr := 0.0

	features := rng.Perm(len(x[idx[0]]))[:mtry]
	order := make([]int, len(idx))
	for _, f := range features {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			va, vb := x[order[a]][f], x[order[b]][f]
			if va != vb {
				return va < vb
			}
			return order[a] < order[b]
		})

		leftCounts := make([]int, nClasses)
		rightCounts := classCounts(y, idx, nClasses)
		for k := 0; k < len(order)-1; k++ {
			c := y[order[k]]
			leftCounts[c]++
			rightCounts[c]--
			if k+1 < minLeaf || len(order)-k-1 < minLeaf {
				continue
			}
			v, next := x[order[k]][f], x[order[k+1]][f]
			if v == next {
				continue
			}
			g := weightedGini(leftCounts, k+1, rightCounts, len(order)-k-1)
			if g < bestGini {
				bestGini = g
				bestFeat = f
				bestThr = (v + next) / 2
			}
		}
	}
	if bestFeat < 0 {
		return 0, 0, false
	}
	return bestFeat, bestThr, true
}

func classCounts(y, idx []int, nClasses int) []int {
	counts := make([]int, nClasses)
	for _, i := range idx {
		counts[y[i]]++
	}
	return counts
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

// majority picks the most populated class; ties go to the lowest class
// index, which keeps the fit deterministic.
func majority(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}

func gini(counts []int, total int) float64 {
	if total == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := float64(c) / float64(total)
		g -= p * p
	}
	return g
}

func weightedGini(left []int, leftN int, right []int, rightN int) float64 {
	n := float64(leftN + rightN)
	return float64(leftN)/n*gini(left, leftN) + float64(rightN)/n*gini(right, rightN)
}

func distinctSorted(y []int) []int {
	seen := make(map[int]bool)
	var out []int
	for _, c := range y {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Ints(out)
	return out
}
