package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pagewise/bookstore/backend/internal/app"
	"github.com/pagewise/bookstore/backend/internal/evaluation"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"github.com/pagewise/bookstore/backend/pkg/config"
	"github.com/pagewise/bookstore/backend/pkg/secrets"
)

func main() {
	goldenPath := flag.String("golden", "config/golden_queries.json", "path to the golden query file")
	minRouting := flag.Float64("min-routing", 0, "fail when routing accuracy is below this value")
	minFilter := flag.Float64("min-filter", 0, "fail when filter accuracy is below this value")
	minRecall := flag.Float64("min-recall", 0, "fail when average recall@10 is below this value")
	maxFailed := flag.Int("max-failed", 0, "fail when more searches than this error out")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := secrets.Apply(ctx, secrets.VaultConfigFromEnv(), nil); err != nil {
		log.Fatal().Err(err).Msg("failed to load secrets from vault")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-evaluate", cfg.Log.Env, cfg.Log.Level)

	path := *goldenPath
	if _, err := os.Stat("backend/" + path); err == nil {
		path = "backend/" + path
	}

	queries, err := evaluation.LoadGoldenQueries(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("failed to load golden queries")
	}
	if err := evaluation.ValidateGoldenQueries(queries); err != nil {
		log.Fatal().Err(err).Msg("invalid golden queries")
	}

	container, err := app.Build(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown incomplete")
		}
	}()

	summary, err := evaluation.NewRunner(container.Search).Run(ctx, queries)
	if err != nil {
		log.Fatal().Err(err).Msg("evaluation failed")
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))

	violations := evaluation.NewGuardrails(evaluation.GuardrailConfig{
		MinRoutingAccuracy: *minRouting,
		MinFilterAccuracy:  *minFilter,
		MinRecallAt10:      *minRecall,
		MaxFailed:          *maxFailed,
	}).Violations(summary)
	for _, v := range violations {
		log.Error().Msg(v)
	}
	if len(violations) > 0 {
		// deferred Close is skipped by os.Exit
		stop()
		os.Exit(1)
	}
}
