package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/api/middleware"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/api/rest"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/internal/service"
	"github.com/tsar0705/Global-Cyber-Attack-Detection-Grid/pkg/anomaly"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the detection API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}
}

func (a *app) serve(cmd *cobra.Command) error {
	cfg := a.cfg
	a.logger.Info("starting detection grid",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	repo, err := a.openRepository(cmd)
	if err != nil {
		return err
	}
	defer repo.Close()
	a.logger.Info("database ready")

	anomalies := service.NewAnomalyService(repo,
		service.WithLogger(a.logger.Named("anomaly")),
		service.WithDetectorConfig(cfg.DetectorConfig()),
	)
	a.loadModel(anomalies)
	logsService := service.NewLogsService(repo, cfg.RecentLogsLimit, a.logger.Named("logs"))

	timeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	handler := rest.NewHandler(anomalies, logsService, repo,
		rest.WithLogger(a.logger.Named("http")),
		rest.WithRateLimiter(middleware.NewRateLimiter(cfg.RateLimit.AnomaliesPerMinute,
			middleware.WithTrustedProxy(cfg.RateLimit.TrustForwardedFor))),
		rest.WithTimeout(timeout),
	)
	router := mux.NewRouter()
	handler.SetupRoutes(router)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.ResponseRequestIDHeader},
		ExposedHeaders: []string{middleware.ResponseRequestIDHeader},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           c.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("server forced to shutdown", zap.Error(err))
		return err
	}
	a.logger.Info("server exited gracefully")
	return nil
}

// loadModel installs the configured artifact. A missing file only disables /predict.
func (a *app) loadModel(svc *service.AnomalyService) {
	path := a.cfg.Model.Path
	artifact, err := anomaly.LoadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		a.logger.Warn("no model artifact, /predict disabled until one is trained", zap.String("path", path))
	case err != nil:
		a.logger.Error("failed to load model artifact", zap.String("path", path), zap.Error(err))
	default:
		svc.SetModel(artifact)
		a.logger.Info("model loaded",
			zap.String("path", path),
			zap.Strings("columns", artifact.Model.Columns()),
			zap.Float64("threshold", artifact.Model.Threshold()),
		)
	}
}
