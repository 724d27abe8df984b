package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pagewise/bookstore/backend/internal/app"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/typesense"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"github.com/pagewise/bookstore/backend/pkg/config"
	"github.com/pagewise/bookstore/backend/pkg/secrets"
)

func main() {
	var reset bool
	var intervalFlag string
	var batch int
	flag.BoolVar(&reset, "reset", false, "drop the Typesense collections before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.IntVar(&batch, "batch", 200, "books and comments fetched per page")
	flag.Parse()

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		d, err := time.ParseDuration(intervalValue)
		if err != nil || d <= 0 {
			log.Fatal().Str("interval", intervalValue).Msg("interval must be a positive duration")
		}
		interval = d
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := secrets.Apply(ctx, secrets.VaultConfigFromEnv(), nil); err != nil {
		log.Fatal().Err(err).Msg("failed to load secrets from vault")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-indexer", cfg.Log.Env, cfg.Log.Level)

	for {
		if err := indexOnce(ctx, cfg, reset, batch); err != nil {
			log.Error().Err(err).Msg("reindex failed")
		}
		if interval <= 0 {
			return
		}
		reset = false

		log.Info().Dur("next_run_in", interval).Msg("reindex complete")
		select {
		case <-ctx.Done():
			log.Info().Msg("indexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool, batch int) error {
	container, err := app.Build(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		container.Close(closeCtx)
	}()

	if container.Typesense == nil {
		return errors.New("typesense is not reachable, nothing to index")
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		for _, name := range []string{typesense.BooksCollection, typesense.CommentsCollection} {
			if _, err := container.Typesense.Client().Collection(name).Delete(ctx); err != nil {
				log.Warn().Err(err).Str("collection", name).Msg("failed to drop collection")
			}
		}
		if err := container.Typesense.InitSchema(ctx, cfg.OpenAI.EmbeddingDimensions); err != nil {
			return err
		}
	}

	start := time.Now()
	stats, err := container.Indexing.IndexAll(ctx, batch)
	if err != nil {
		return err
	}

	log.Info().
		Int("books", stats.Books).
		Int("comments", stats.Comments).
		Int("without_embedding", stats.WithoutEmbedding).
		Dur("took", time.Since(start)).
		Msg("catalog indexed")

	// the API process shares the Redis cache, so its cached search responses are stale now
	if err := container.Invalidate.InvalidateCatalog(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate catalog caches")
	}
	return nil
}
