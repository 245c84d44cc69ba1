// Package service implements the detection grid's use cases on top of a record data
// source: ad-hoc batch anomaly detection, scoring with a persisted model, and log
// browsing.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/logger"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/metrics"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/anomaly"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/detectors"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/detectors/iforest"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/features"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

var (
	// ErrDataUnavailable wraps data source failures.
	ErrDataUnavailable = errors.New("log data unavailable")
	// ErrModelUnavailable is returned when scoring is requested before a model is loaded.
	ErrModelUnavailable = errors.New("no trained model loaded")
)

// DataSource yields the full record set for batch detection.
type DataSource interface {
	FetchAll(ctx context.Context) ([]logs.Record, error)
}

// Report is the outcome of a batch detection run.
type Report struct {
	TotalLogs         int            `json:"total_logs"`
	AnomaliesDetected int            `json:"anomalies_detected"`
	Anomalies         []logs.Display `json:"anomalies"`
}

// Prediction is a scored record as returned to clients.
type Prediction struct {
	logs.Display
	Anomaly detectors.Label `json:"anomaly"`
	Score   float64         `json:"score"`
}

// AnomalyService runs detection over records from a DataSource.
type AnomalyService struct {
	source  DataSource
	encoder *features.Encoder
	config  detectors.Config
	logger  *zap.Logger
	model   atomic.Pointer[anomaly.Artifact]
}

// Option configures an AnomalyService.
type Option func(*AnomalyService)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *AnomalyService) {
		s.logger = logger.OrNop(l)
	}
}

// WithDetectorConfig sets the forest parameters used for every fit.
func WithDetectorConfig(cfg detectors.Config) Option {
	return func(s *AnomalyService) {
		s.config = cfg
	}
}

// WithEncoder replaces the default-schema encoder.
func WithEncoder(enc *features.Encoder) Option {
	return func(s *AnomalyService) {
		if enc != nil {
			s.encoder = enc
		}
	}
}

// WithModel preloads the artifact used by Predict and PredictOne.
func WithModel(a *anomaly.Artifact) Option {
	return func(s *AnomalyService) {
		s.model.Store(a)
	}
}

// NewAnomalyService creates the service. source may be nil for scoring-only use.
func NewAnomalyService(source DataSource, opts ...Option) *AnomalyService {
	s := &AnomalyService{
		source:  source,
		encoder: features.NewEncoder(nil),
		config:  detectors.DefaultConfig(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetModel replaces the loaded artifact.
func (s *AnomalyService) SetModel(a *anomaly.Artifact) {
	s.model.Store(a)
}

// Model returns the loaded artifact, if any.
func (s *AnomalyService) Model() (*anomaly.Artifact, bool) {
	a := s.model.Load()
	return a, a != nil
}

// DetectBatch fetches every record and runs DetectRecords on it.
func (s *AnomalyService) DetectBatch(ctx context.Context) (*Report, error) {
	records, err := s.fetch(ctx)
	if err != nil {
		metrics.DetectRunsTotal.WithLabelValues(metrics.ResultUnavailable).Inc()
		return nil, err
	}
	return s.DetectRecords(ctx, records)
}

// DetectRecords fits a fresh forest and codebook on records and reports the records it
// flags, in input order. Nothing is cached between calls.
func (s *AnomalyService) DetectRecords(ctx context.Context, records []logs.Record) (*Report, error) {
	if len(records) == 0 {
		metrics.DetectRunsTotal.WithLabelValues(metrics.ResultEmpty).Inc()
		return &Report{Anomalies: []logs.Display{}}, nil
	}

	m, _, err := s.encoder.Encode(records, nil)
	if err != nil {
		metrics.DetectRunsTotal.WithLabelValues(metrics.ResultNoFeatures).Inc()
		s.logger.Warn("no usable features in batch", zap.Int("records", len(records)), zap.Error(err))
		return nil, err
	}
	s.logDefaulted(m)

	start := time.Now()
	model, err := anomaly.Fit(ctx, m, iforest.WithConfig(s.config))
	metrics.ModelFitDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		result := metrics.ResultFitFailed
		if ctx.Err() != nil {
			result = metrics.ResultCanceled
		}
		metrics.DetectRunsTotal.WithLabelValues(result).Inc()
		return nil, err
	}

	scores, err := model.Predict(m)
	if err != nil {
		metrics.DetectRunsTotal.WithLabelValues(metrics.ResultFitFailed).Inc()
		return nil, err
	}

	report := &Report{TotalLogs: len(records), Anomalies: []logs.Display{}}
	for i, score := range scores {
		if score.IsOutlier() {
			report.Anomalies = append(report.Anomalies, logs.ToDisplay(records[i]))
		}
	}
	report.AnomaliesDetected = len(report.Anomalies)

	metrics.DetectRunsTotal.WithLabelValues(metrics.ResultOK).Inc()
	metrics.AnomaliesFlaggedTotal.Add(float64(report.AnomaliesDetected))
	s.logger.Info("batch detection finished",
		zap.Int("total_logs", report.TotalLogs),
		zap.Int("anomalies_detected", report.AnomaliesDetected),
		zap.Strings("columns", m.Columns),
		zap.Float64("threshold", model.Threshold()),
		zap.Duration("fit_duration", time.Since(start)),
	)
	return report, nil
}

// PredictOne scores a single record with the loaded model.
func (s *AnomalyService) PredictOne(ctx context.Context, record logs.Record) (*Prediction, error) {
	predictions, err := s.Predict(ctx, []logs.Record{record})
	if err != nil {
		return nil, err
	}
	return &predictions[0], nil
}

// Predict scores records with the loaded model. The model is never refit.
func (s *AnomalyService) Predict(ctx context.Context, records []logs.Record) ([]Prediction, error) {
	a, ok := s.Model()
	if !ok {
		return nil, ErrModelUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []Prediction{}, nil
	}

	scores, err := a.Score(records)
	if err != nil {
		return nil, err
	}

	predictions := make([]Prediction, len(records))
	for i, score := range scores {
		predictions[i] = Prediction{
			Display: logs.ToDisplay(records[i]),
			Anomaly: score.Label,
			Score:   score.Value,
		}
		metrics.PredictionsTotal.WithLabelValues(score.Label.String()).Inc()
	}
	return predictions, nil
}

// Train fits an artifact on every record of the data source.
func (s *AnomalyService) Train(ctx context.Context) (*anomaly.Artifact, error) {
	records, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return s.TrainRecords(ctx, records)
}

// TrainRecords fits an artifact on records.
func (s *AnomalyService) TrainRecords(ctx context.Context, records []logs.Record) (*anomaly.Artifact, error) {
	start := time.Now()
	a, err := anomaly.Train(ctx, s.encoder, records, iforest.WithConfig(s.config))
	metrics.ModelFitDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	s.logger.Info("model trained",
		zap.Int("records", len(records)),
		zap.Strings("columns", a.Model.Columns()),
		zap.Float64("threshold", a.Model.Threshold()),
	)
	return a, nil
}

func (s *AnomalyService) fetch(ctx context.Context) ([]logs.Record, error) {
	if s.source == nil {
		return nil, fmt.Errorf("%w: no data source configured", ErrDataUnavailable)
	}
	records, err := s.source.FetchAll(ctx)
	if err != nil {
		s.logger.Error("fetch records failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	return records, nil
}

// logDefaulted reports cells that fell back to the default substitution.
func (s *AnomalyService) logDefaulted(m features.Matrix) {
	for col, n := range m.Defaulted {
		if n > 0 {
			s.logger.Debug("feature values defaulted", zap.String("column", col), zap.Int("count", n))
		}
	}
}
