// Package detectors provides unsupervised anomaly detection algorithms.
package detectors

import (
	"context"
	"fmt"
)

// Detector is the common interface for all anomaly detection algorithms.
type Detector interface {
	// Fit trains the detector on historical data.
	// data is a 2D slice where each row is a sample and each column is a feature.
	Fit(data [][]float64) error

	// FitContext is Fit with cancellation.
	FitContext(ctx context.Context, data [][]float64) error

	// Predict returns anomaly scores for the given samples.
	// Scores are normalized to [0, 1] where higher values indicate anomalies.
	Predict(data [][]float64) ([]float64, error)

	// PredictOne returns the anomaly score for a single sample.
	PredictOne(sample []float64) (float64, error)

	// Threshold returns the score above which a sample is an outlier.
	Threshold() float64

	// Save serializes the trained model to bytes.
	Save() ([]byte, error)

	// Load deserializes a trained model from bytes.
	Load(data []byte) error
}

// Label is the decision for a single sample.
// Values follow the usual outlier-detector convention: 1 normal, -1 outlier.
type Label int8

const (
	Normal  Label = 1
	Outlier Label = -1
)

// LabelFor classifies a score against a threshold.
func LabelFor(score, threshold float64) Label {
	if score > threshold {
		return Outlier
	}
	return Normal
}

func (l Label) String() string {
	switch l {
	case Normal:
		return "normal"
	case Outlier:
		return "outlier"
	default:
		return fmt.Sprintf("Label(%d)", int8(l))
	}
}

// MarshalText encodes the label as "normal" or "outlier".
func (l Label) MarshalText() ([]byte, error) {
	switch l {
	case Normal, Outlier:
		return []byte(l.String()), nil
	default:
		return nil, fmt.Errorf("invalid label %d", int8(l))
	}
}

// UnmarshalText decodes "normal" or "outlier".
func (l *Label) UnmarshalText(text []byte) error {
	switch string(text) {
	case "normal":
		*l = Normal
	case "outlier":
		*l = Outlier
	default:
		return fmt.Errorf("invalid label %q", text)
	}
	return nil
}

// Score represents an anomaly detection result.
type Score struct {
	// Value is the anomaly score in [0, 1].
	Value float64 `json:"score"`
	// Label is Outlier when Value exceeds the detector threshold.
	Label Label `json:"anomaly"`
}

// IsOutlier reports whether the sample was flagged.
func (s Score) IsOutlier() bool {
	return s.Label == Outlier
}

// Config holds common configuration for detectors.
type Config struct {
	// Trees is the ensemble size.
	Trees int
	// SampleSize is the subsample drawn for each tree.
	SampleSize int
	// Contamination is the expected proportion of anomalies in training data.
	Contamination float64
	// Threshold is the score threshold used when Contamination is 0.
	Threshold float64
	// RandomSeed for reproducibility.
	RandomSeed int64
}

// DefaultConfig returns sensible defaults for detector configuration.
func DefaultConfig() Config {
	return Config{
		Trees:         100,
		SampleSize:    256,
		Contamination: 0.05,
		Threshold:     0.5,
		RandomSeed:    42,
	}
}
