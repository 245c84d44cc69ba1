// Package iforest implements the Isolation Forest algorithm for anomaly detection.
package iforest

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/detectors"
)

var (
	ErrNotTrained      = errors.New("model not trained")
	ErrTooFewSamples   = errors.New("at least 2 samples are required")
	ErrNoFeatures      = errors.New("samples have no features")
	ErrRaggedData      = errors.New("samples have different widths")
	ErrWidthMismatch   = errors.New("sample width does not match the trained width")
	ErrInvalidSnapshot = errors.New("invalid model snapshot")
)

var _ detectors.Detector = (*IsolationForest)(nil)

const eulerGamma = 0.5772156649

// IsolationForest implements unsupervised anomaly detection using isolation trees.
type IsolationForest struct {
	mu sync.RWMutex

	// Configuration
	nTrees        int
	sampleSize    int
	contamination float64
	threshold     float64
	rng           *rand.Rand

	// Trained model
	trees     []*iTree
	nFeatures int
	maxDepth  int
	trained   bool

	// Statistics from training
	avgPathLength float64
}

// iTree represents a single isolation tree.
type iTree struct {
	Root *node
}

// node is a node in the isolation tree. Fields are exported for gob.
type node struct {
	// Split parameters (for internal nodes)
	Feature int
	Split   float64

	// Children
	Left  *node
	Right *node

	// Leaf information
	Size int // number of samples that reached this leaf
}

func (n *node) leaf() bool {
	return n.Left == nil && n.Right == nil
}

// Option configures an IsolationForest.
type Option func(*IsolationForest)

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(f *IsolationForest) {
		if n > 0 {
			f.nTrees = n
		}
	}
}

// WithSampleSize sets the subsample size for each tree.
func WithSampleSize(n int) Option {
	return func(f *IsolationForest) {
		if n > 1 {
			f.sampleSize = n
		}
	}
}

// WithContamination sets the expected proportion of anomalies.
func WithContamination(c float64) Option {
	return func(f *IsolationForest) {
		if c >= 0 && c < 0.5 {
			f.contamination = c
		}
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(f *IsolationForest) {
		f.rng = rand.New(rand.NewSource(seed))
	}
}

// WithConfig applies a detectors.Config. Zero fields keep the defaults; use WithSeed
// for a literal seed of 0.
func WithConfig(cfg detectors.Config) Option {
	return func(f *IsolationForest) {
		WithTrees(cfg.Trees)(f)
		WithSampleSize(cfg.SampleSize)(f)
		WithContamination(cfg.Contamination)(f)
		if cfg.Threshold > 0 {
			f.threshold = cfg.Threshold
		}
		if cfg.RandomSeed != 0 {
			WithSeed(cfg.RandomSeed)(f)
		}
	}
}

// New creates a new IsolationForest with the given options.
func New(opts ...Option) *IsolationForest {
	def := detectors.DefaultConfig()
	f := &IsolationForest{
		nTrees:        def.Trees,
		sampleSize:    def.SampleSize,
		contamination: def.Contamination,
		threshold:     def.Threshold,
		rng:           rand.New(rand.NewSource(def.RandomSeed)),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fit trains the Isolation Forest on the provided data.
func (f *IsolationForest) Fit(data [][]float64) error {
	return f.FitContext(context.Background(), data)
}

// FitContext trains the forest, checking ctx between trees. A cancelled fit leaves the
// previously trained state untouched.
func (f *IsolationForest) FitContext(ctx context.Context, data [][]float64) error {
	if err := validate(data); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	nSamples := len(data)
	nFeatures := len(data[0])

	// Adjust sample size if needed
	sampleSize := f.sampleSize
	if sampleSize > nSamples {
		sampleSize = nSamples
	}

	// Max depth based on the effective sample size
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	// Build trees
	trees := make([]*iTree, f.nTrees)
	for i := range trees {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Sample without replacement
		indices := f.rng.Perm(nSamples)[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}

		trees[i] = &iTree{Root: f.buildNode(sample, nFeatures, 0, maxDepth)}
	}

	f.trees = trees
	f.nFeatures = nFeatures
	f.maxDepth = maxDepth
	// Calculate average path length for normalization
	f.avgPathLength = averagePathLength(float64(sampleSize))
	f.trained = true

	// Set threshold based on contamination
	if f.contamination > 0 {
		scores, err := f.predict(data)
		if err != nil {
			return err
		}
		f.threshold = percentile(scores, 100*(1-f.contamination))
	}

	return nil
}

func validate(data [][]float64) error {
	if len(data) < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewSamples, len(data))
	}
	width := len(data[0])
	if width == 0 {
		return ErrNoFeatures
	}
	for i, row := range data {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, row 0 has %d", ErrRaggedData, i, len(row), width)
		}
	}
	return nil
}

func (f *IsolationForest) buildNode(data [][]float64, nFeatures, depth, maxDepth int) *node {
	n := len(data)

	// Terminal conditions
	if depth >= maxDepth || n <= 1 {
		return &node{Size: n}
	}

	// Random feature and split value
	feature := f.rng.Intn(nFeatures)

	// Find min/max for this feature
	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		if row[feature] < minVal {
			minVal = row[feature]
		}
		if row[feature] > maxVal {
			maxVal = row[feature]
		}
	}

	// If all values are the same, return leaf
	if minVal == maxVal {
		return &node{Size: n}
	}

	// Random split value
	splitValue := minVal + f.rng.Float64()*(maxVal-minVal)

	// Partition data
	var leftData, rightData [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			leftData = append(leftData, row)
		} else {
			rightData = append(rightData, row)
		}
	}

	return &node{
		Feature: feature,
		Split:   splitValue,
		Left:    f.buildNode(leftData, nFeatures, depth+1, maxDepth),
		Right:   f.buildNode(rightData, nFeatures, depth+1, maxDepth),
	}
}

// Predict returns anomaly scores for the given samples.
func (f *IsolationForest) Predict(data [][]float64) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, ErrNotTrained
	}

	return f.predict(data)
}

func (f *IsolationForest) predict(data [][]float64) ([]float64, error) {
	scores := make([]float64, len(data))

	for i, sample := range data {
		score, err := f.predictOne(sample)
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		scores[i] = score
	}

	return scores, nil
}

// PredictOne returns the anomaly score for a single sample.
func (f *IsolationForest) PredictOne(sample []float64) (float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return 0, ErrNotTrained
	}

	return f.predictOne(sample)
}

func (f *IsolationForest) predictOne(sample []float64) (float64, error) {
	if len(sample) != f.nFeatures {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrWidthMismatch, len(sample), f.nFeatures)
	}

	// Average path length across all trees
	var totalPath float64
	for _, tree := range f.trees {
		totalPath += pathLength(sample, tree.Root, 0)
	}
	avgPath := totalPath / float64(len(f.trees))

	// Anomaly score: 2^(-avgPath / c(n))
	// Higher score = more anomalous
	return math.Pow(2, -avgPath/f.avgPathLength), nil
}

// pathLength calculates the path length for a sample in a tree.
func pathLength(sample []float64, n *node, currentDepth int) float64 {
	if n.leaf() {
		// Leaf node: add expected path length for remaining isolation
		return float64(currentDepth) + averagePathLength(float64(n.Size))
	}

	if sample[n.Feature] < n.Split {
		return pathLength(sample, n.Left, currentDepth+1)
	}
	return pathLength(sample, n.Right, currentDepth+1)
}

// averagePathLength returns the average path length of unsuccessful search in BST.
func averagePathLength(n float64) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	// c(n) = 2*H(n-1) - 2*(n-1)/n, where H(i) ~ ln(i) + Euler-Mascheroni constant
	return 2*(math.Log(n-1)+eulerGamma) - 2*(n-1)/n
}

// snapshot is the gob form of a trained forest.
type snapshot struct {
	Trees         int
	SampleSize    int
	Contamination float64
	Threshold     float64
	AvgPathLength float64
	NFeatures     int
	MaxDepth      int
	Forest        []*iTree
}

// Save serializes the trained model.
func (f *IsolationForest) Save() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.trained {
		return nil, ErrNotTrained
	}

	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(snapshot{
		Trees:         f.nTrees,
		SampleSize:    f.sampleSize,
		Contamination: f.contamination,
		Threshold:     f.threshold,
		AvgPathLength: f.avgPathLength,
		NFeatures:     f.nFeatures,
		MaxDepth:      f.maxDepth,
		Forest:        f.trees,
	})
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Load deserializes a trained model.
func (f *IsolationForest) Load(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return err
	}
	if s.NFeatures <= 0 || len(s.Forest) == 0 || s.AvgPathLength <= 0 {
		return ErrInvalidSnapshot
	}
	for i, t := range s.Forest {
		if t == nil || t.Root == nil {
			return fmt.Errorf("%w: tree %d is empty", ErrInvalidSnapshot, i)
		}
		if err := checkNode(t.Root, s.NFeatures, 0, s.MaxDepth); err != nil {
			return fmt.Errorf("%w: tree %d: %w", ErrInvalidSnapshot, i, err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nTrees = s.Trees
	f.sampleSize = s.SampleSize
	f.contamination = s.Contamination
	f.threshold = s.Threshold
	f.avgPathLength = s.AvgPathLength
	f.nFeatures = s.NFeatures
	f.maxDepth = s.MaxDepth
	f.trees = s.Forest
	f.trained = true

	return nil
}

// checkNode verifies a decoded subtree can be walked by pathLength.
func checkNode(n *node, nFeatures, depth, maxDepth int) error {
	if depth > maxDepth {
		return fmt.Errorf("depth %d exceeds %d", depth, maxDepth)
	}
	if n.leaf() {
		if n.Size < 0 {
			return fmt.Errorf("negative leaf size %d", n.Size)
		}
		return nil
	}
	if n.Left == nil || n.Right == nil {
		return errors.New("split node with one child")
	}
	if n.Feature < 0 || n.Feature >= nFeatures {
		return fmt.Errorf("split feature %d out of range [0, %d)", n.Feature, nFeatures)
	}
	if err := checkNode(n.Left, nFeatures, depth+1, maxDepth); err != nil {
		return err
	}
	return checkNode(n.Right, nFeatures, depth+1, maxDepth)
}

// Threshold returns the current anomaly threshold.
func (f *IsolationForest) Threshold() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.threshold
}

// Width returns the number of features the forest was trained on.
func (f *IsolationForest) Width() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.nFeatures
}

// percentile calculates the p-th percentile of the data.
func percentile(data []float64, p float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := make([]float64, len(data))
	copy(sorted, data)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)-1) * p / 100)
	return sorted[idx]
}
