package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pagewise/bookstore/backend/internal/api/handlers"
	"github.com/pagewise/bookstore/backend/internal/api/middleware"
	"github.com/pagewise/bookstore/backend/internal/app"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"github.com/pagewise/bookstore/backend/pkg/config"
	"github.com/pagewise/bookstore/backend/pkg/secrets"
)

// Standalone report stream server. It shares the Redis event bus with the API
// process, so progress published there reaches clients connected here.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := secrets.Apply(ctx, secrets.VaultConfigFromEnv(), nil); err != nil {
		log.Fatal().Err(err).Msg("failed to load secrets from vault")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-sse", cfg.Log.Env, cfg.Log.Level)

	container, err := app.Build(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dependencies")
	}
	if container.Redis == nil {
		log.Warn().Msg("redis unavailable, only reports generated by this process will stream events")
	}

	sseHandler := handlers.NewSSEHandler(container.Insights, container.EventBus, 0)
	reportHandler := handlers.NewReportHandler(container.Insights, cfg.Reports.JanitorStaleAfter)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /api/reports/{id}/stream", sseHandler.StreamReport)
	mux.HandleFunc("GET /api/reports/{id}/progress", reportHandler.GetProgress)

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)

	port := cfg.Server.Port
	if v, err := strconv.Atoi(os.Getenv("SSE_PORT")); err == nil && v > 0 {
		port = v
	}
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("sse server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("sse server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("sse server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}
	if err := container.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error releasing dependencies")
	}
	log.Info().Msg("sse server stopped")
}
