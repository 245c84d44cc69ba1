// Package anomaly pairs the feature encoder with an outlier detector: it fits models
// from encoded batches, checks column layouts at predict time and persists the trained
// codebook and forest together.
package anomaly

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/detectors"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/detectors/iforest"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/features"
)

var (
	// ErrFitFailure wraps violated fit preconditions.
	ErrFitFailure = errors.New("model fit failed")
	// ErrColumnMismatch is returned when a matrix layout differs from the trained one.
	ErrColumnMismatch = errors.New("feature columns do not match the trained model")
)

// Model is a fitted detector together with the column layout it was trained on.
// It has no mutating methods; create one with Fit or by loading an Artifact.
type Model struct {
	columns  []string
	detector detectors.Detector
}

// Fit trains an isolation forest on m.
func Fit(ctx context.Context, m features.Matrix, opts ...iforest.Option) (*Model, error) {
	if m.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 records, got %d", ErrFitFailure, m.Len())
	}
	if m.Width() == 0 {
		return nil, fmt.Errorf("%w: zero-width feature matrix", ErrFitFailure)
	}

	forest := iforest.New(opts...)
	if err := forest.FitContext(ctx, m.Rows); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrFitFailure, err)
	}

	return &Model{columns: slices.Clone(m.Columns), detector: forest}, nil
}

// Columns returns the trained column layout.
func (m *Model) Columns() []string {
	return slices.Clone(m.columns)
}

// Threshold returns the score above which a record is an outlier.
func (m *Model) Threshold() float64 {
	return m.detector.Threshold()
}

// Predict scores and labels every row of x. The layout of x must equal the trained
// layout: same columns in the same order.
func (m *Model) Predict(x features.Matrix) ([]detectors.Score, error) {
	if x.Len() == 0 {
		return []detectors.Score{}, nil
	}
	if !slices.Equal(x.Columns, m.columns) {
		return nil, fmt.Errorf("%w: got %v, trained on %v", ErrColumnMismatch, x.Columns, m.columns)
	}

	values, err := m.detector.Predict(x.Rows)
	if err != nil {
		if errors.Is(err, iforest.ErrWidthMismatch) {
			return nil, fmt.Errorf("%w: %w", ErrColumnMismatch, err)
		}
		return nil, err
	}

	threshold := m.detector.Threshold()
	scores := make([]detectors.Score, len(values))
	for i, v := range values {
		scores[i] = detectors.Score{Value: v, Label: detectors.LabelFor(v, threshold)}
	}
	return scores, nil
}
