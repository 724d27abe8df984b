package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pagewise/bookstore/backend/internal/api/handlers"
	"github.com/pagewise/bookstore/backend/internal/api/middleware"
	"github.com/pagewise/bookstore/backend/internal/api/routes"
	"github.com/pagewise/bookstore/backend/internal/app"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"github.com/pagewise/bookstore/backend/pkg/config"
	"github.com/pagewise/bookstore/backend/pkg/secrets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if res, err := secrets.Apply(ctx, secrets.VaultConfigFromEnv(), nil); err != nil {
		log.Fatal().Err(err).Msg("failed to load secrets from vault")
	} else if res.Loaded > 0 {
		log.Info().Int("loaded", res.Loaded).Int("skipped", res.Skipped).Msg("secrets loaded from vault")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Env, cfg.Log.Level)

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	container, err := app.Build(ctx, cfg, metrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dependencies")
	}

	// reports left generating by a previous process can never finish
	if n, err := container.Insights.CleanupStuckReports(ctx, cfg.Reports.JanitorStaleAfter); err != nil {
		log.Warn().Err(err).Msg("startup report cleanup failed")
	} else if n > 0 {
		log.Info().Int("failed_reports", n).Msg("failed stuck reports at startup")
	}

	var cacheMiddleware *middleware.CacheMiddleware
	if container.Cache != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(container.Cache, nil, metrics)
	}

	router := routes.NewRouter(
		handlers.NewSearchHandler(container.Search, container.Agent, container.Personas),
		handlers.NewCompareHandler(container.Comparison),
		handlers.NewReportHandler(container.Insights, cfg.Reports.JanitorStaleAfter),
		handlers.NewSSEHandler(container.Insights, container.EventBus, 0),
		cacheMiddleware,
		metrics,
		container.Ready,
	)
	router.SetAnalyticsHandler(handlers.NewAnalyticsHandler(container.Analytics))

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: report streams stay open until the report finishes
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
	if err := container.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error releasing dependencies")
	}

	log.Info().Msg("server stopped")
}
