// Package server wires the HTTP surface and runs it.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/crsfinder/internal/core/config"
	"github.com/mohammed-shakir/crsfinder/internal/core/health"
	middleware "github.com/mohammed-shakir/crsfinder/internal/core/middleware"
	"github.com/mohammed-shakir/crsfinder/internal/core/router"
)

// NewRouter mounts the probes, the query API and, when metrics is non-nil,
// the metrics endpoint at metricsPath.
func NewRouter(cfg config.Config, logger *slog.Logger, api *router.Handler, metrics http.Handler, checks ...health.Check) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(checks...))
	if metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, metrics)
	}
	api.Routes(r)
	return r
}

// Run serves h on cfg.Addr until ctx is done, then drains in-flight requests.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, h http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
