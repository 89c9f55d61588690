package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/config"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/health"
	middleware "github.com/mohammed-shakir/flight-fare-estimator/internal/core/middleware"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/router"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/reference"
)

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Pipeline router.Pipeline
	Cities   router.CityIndex
	Bounds   *reference.Bounds
	Metrics  http.Handler // nil when metrics are disabled
}

func NewHandler(cfg config.Config, logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(d.Cities))
	if d.Metrics != nil {
		r.Get("/metrics", d.Metrics.ServeHTTP)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/reference", router.HandleReference(d.Bounds))
		r.Get("/cities", router.HandleCities(logger, d.Bounds, d.Cities, cfg.H3Res))
		r.Get("/derive", router.HandleDerive(logger, d.Pipeline))
		r.Get("/estimate", router.HandleEstimate(logger, d.Pipeline))
	})
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, d Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg, logger, d),
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
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
