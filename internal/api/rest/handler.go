// Package rest exposes the detection grid over HTTP.
package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/api/middleware"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/logger"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/service"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/logs"
)

// Detector runs batch detection and scores records with the loaded model.
type Detector interface {
	DetectBatch(ctx context.Context) (*service.Report, error)
	Predict(ctx context.Context, records []logs.Record) ([]service.Prediction, error)
}

// LogBrowser serves stored records and aggregates.
type LogBrowser interface {
	Recent(ctx context.Context, limit int) ([]logs.Display, error)
	Stats(ctx context.Context) (*service.Stats, error)
}

// Pinger reports database reachability for readiness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	detector Detector
	browser  LogBrowser
	pinger   Pinger
	limiter  *middleware.RateLimiter
	timeout  time.Duration
	maxBody  int64
	logger   *zap.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.logger = logger.OrNop(l) }
}

// WithRateLimiter limits GET /anomalies per client.
func WithRateLimiter(l *middleware.RateLimiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithTimeout bounds each request's context. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

// WithMaxBodyBytes caps POST bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// NewHandler creates the handler set. pinger may be nil.
func NewHandler(detector Detector, browser LogBrowser, pinger Pinger, opts ...Option) *Handler {
	h := &Handler{
		detector: detector,
		browser:  browser,
		pinger:   pinger,
		maxBody:  8 << 20,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetupRoutes registers every route and the common middleware on router.
func (h *Handler) SetupRoutes(router *mux.Router) {
	router.Use(middleware.RequestID, middleware.StructuredLog(h.logger), middleware.Recover(h.logger))

	anomalies := http.Handler(http.HandlerFunc(h.GetAnomalies))
	if h.limiter != nil {
		anomalies = h.limiter.Middleware(anomalies)
	}
	router.Handle("/anomalies", anomalies).Methods(http.MethodGet)
	router.HandleFunc("/predict", h.Predict).Methods(http.MethodPost)
	router.HandleFunc("/logs", h.GetLogs).Methods(http.MethodGet)
	router.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)

	router.HandleFunc("/healthz/live", h.Live).Methods(http.MethodGet)
	router.HandleFunc("/healthz/ready", h.Ready).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

// requestContext applies the configured timeout to the request context.
func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(r.Context(), h.timeout)
	}
	return context.WithCancel(r.Context())
}

func (h *Handler) logError(r *http.Request, err error, status int) {
	fields := []zap.Field{
		zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= 500 {
		h.logger.Error("request failed", fields...)
		return
	}
	h.logger.Warn("request rejected", fields...)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
