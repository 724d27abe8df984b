// Package app wires configuration, infrastructure clients, adapters and services
// into one container shared by the binaries under cmd/.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/pagewise/bookstore/backend/internal/adapters/cache"
	"github.com/pagewise/bookstore/backend/internal/adapters/database"
	"github.com/pagewise/bookstore/backend/internal/adapters/events"
	"github.com/pagewise/bookstore/backend/internal/adapters/search"
	"github.com/pagewise/bookstore/backend/internal/analysis"
	"github.com/pagewise/bookstore/backend/internal/application/services"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/openai"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/postgres"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/redis"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/typesense"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"github.com/pagewise/bookstore/backend/pkg/config"
	"github.com/pagewise/bookstore/backend/pkg/retry"
	"github.com/pagewise/bookstore/backend/pkg/tasks"
)

// Container holds every long-lived dependency. Redis, Typesense and OpenAI are
// optional; the corresponding fields are nil (or a disabled stand-in) without them.
type Container struct {
	Config  *config.Config
	Metrics *observability.Metrics

	Postgres  *postgres.Client
	Redis     *redis.Client
	Typesense *typesense.Client

	Cache     providers.CacheProvider
	EventBus  providers.EventBus
	Generator providers.TextGenerator
	Embedder  providers.EmbeddingProvider
	Runner    *tasks.Runner

	Books    repositories.BookRepository
	Comments repositories.CommentRepository
	Users    repositories.UserRepository
	Orders   repositories.OrderRepository
	Reports  repositories.InsightReportRepository
	Searches repositories.SearchAnalyticsRepository

	BookSearch  providers.BookSearchProvider
	VectorIndex providers.VectorIndex

	Classifier *services.QueryClassifier
	Embeddings *services.EmbeddingService
	Agent      *services.ConversationalSearchAgent
	Evidence   *services.EvidenceRetriever
	Personas   *services.PersonaService
	Comparison *services.ComparisonService
	Search     *services.CatalogSearchService
	Indexing   *services.CatalogIndexingService
	Insights   *services.InsightReportService
	Analytics  *services.SearchAnalyticsService
	Invalidate *services.CacheInvalidationService
}

// Build connects to the configured backends and assembles the services. Postgres is
// required; the other backends degrade with a warning.
func Build(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*Container, error) {
	c := &Container{Config: cfg, Metrics: metrics}

	pg, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	c.Postgres = pg
	if err := pg.EnsureSchema(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}

	if rc, err := redis.NewClient(ctx, &cfg.Redis); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, running without cache and with in-process events")
	} else {
		c.Redis = rc
		c.Cache = cache.NewRedisAdapter(rc, "bookstore:")
		c.EventBus = events.NewRedisEventBus(rc)
	}
	if c.EventBus == nil {
		c.EventBus = events.NewMemoryEventBus()
	}

	if ts, err := typesense.NewClient(ctx, &cfg.Typesense); err != nil {
		log.Warn().Err(err).Msg("typesense unavailable, using postgres keyword search without vectors")
	} else if err := ts.InitSchema(ctx, cfg.OpenAI.EmbeddingDimensions); err != nil {
		log.Warn().Err(err).Msg("typesense schema init failed, using postgres keyword search without vectors")
	} else {
		c.Typesense = ts
	}

	if client, err := openai.NewClient(&cfg.OpenAI); err != nil {
		log.Warn().Err(err).Msg("generative model disabled, all model-backed features use their fallbacks")
		c.Generator = openai.Disabled{}
	} else {
		c.Generator = client
		c.Embedder = client
	}

	c.Runner = tasks.NewRunner(cfg.Reports.Workers, tasks.WithLogger(log.Logger))

	c.wireRepositories()
	c.wireServices()
	return c, nil
}

func (c *Container) wireRepositories() {
	books := database.NewBookAdapter(c.Postgres)
	if c.Cache != nil {
		books = database.NewCachedBookAdapter(books, c.Cache, c.Config.Search.CategoryCacheTTL)
	}
	c.Books = books
	c.Comments = database.NewCommentAdapter(c.Postgres)
	c.Users = database.NewUserAdapter(c.Postgres)
	c.Orders = database.NewOrderAdapter(c.Postgres)
	c.Reports = database.NewInsightReportAdapter(c.Postgres)
	c.Searches = database.NewSearchAnalyticsAdapter(c.Postgres)

	if c.Typesense != nil {
		c.BookSearch = search.NewTypesenseBookSearch(c.Typesense)
		c.VectorIndex = search.NewTypesenseVectorIndex(c.Typesense)
	} else {
		c.BookSearch = database.NewBookKeywordSearch(c.Postgres)
	}
}

func (c *Container) wireServices() {
	cfg := c.Config

	var embedder services.QueryEmbedder
	if c.Embedder != nil {
		policy := retry.EmbeddingPolicy()
		if cfg.OpenAI.EmbeddingAttempts > 0 {
			policy.MaxAttempts = cfg.OpenAI.EmbeddingAttempts
		}
		if cfg.OpenAI.EmbeddingMaxDelay > 0 {
			policy.MaxDelay = cfg.OpenAI.EmbeddingMaxDelay
		}
		c.Embeddings = services.NewEmbeddingService(c.Embedder, policy, c.Metrics)
		embedder = c.Embeddings
	}

	c.Classifier = services.NewQueryClassifier(c.Generator, c.Cache, cfg.Search.ClassificationCacheTTL, c.Metrics)
	c.Agent = services.NewConversationalSearchAgent(c.Generator, c.Metrics)
	c.Evidence = services.NewEvidenceRetriever(embedder, c.VectorIndex, c.Comments, c.Metrics)
	c.Personas = services.NewPersonaService(c.Users, c.Generator, c.Runner)
	c.Comparison = services.NewComparisonService(c.Books, c.Evidence, c.Generator, c.Personas, cfg.Search.ComparisonCommentLimit, c.Metrics)
	c.Search = services.NewCatalogSearchService(c.Classifier, embedder, c.VectorIndex, c.BookSearch, c.Books, cfg.Search.DefaultResultLimit, c.Metrics)
	c.Analytics = services.NewSearchAnalyticsService(c.Searches, c.Runner)
	c.Search.SetAnalytics(c.Analytics)
	c.Indexing = services.NewCatalogIndexingService(c.Books, c.Comments, c.BookSearch, embedder)
	c.Invalidate = services.NewCacheInvalidationService(c.Cache)
	c.Insights = services.NewInsightReportService(
		c.Reports, c.Orders, c.Books, c.Generator,
		analysis.NewDefault(), c.EventBus, c.Runner, c.Metrics,
		ReportServiceConfig(cfg.Reports),
	)
}

// ReportServiceConfig maps environment settings onto the report pipeline config
func ReportServiceConfig(rc config.ReportsConfig) services.ReportServiceConfig {
	out := services.DefaultReportServiceConfig()
	if rc.StaleAfter > 0 {
		out.StaleAfter = rc.StaleAfter
	}
	if rc.DefaultWindowDays > 0 {
		out.DefaultWindowDays = rc.DefaultWindowDays
	}
	if rc.TopBooks > 0 {
		out.TopBooks = rc.TopBooks
	}
	if rc.GenerationAttempts > 0 {
		out.GenerationPolicy.MaxAttempts = rc.GenerationAttempts
	}
	if rc.GenerationBaseDelay > 0 {
		out.GenerationPolicy.InitialDelay = rc.GenerationBaseDelay
	}
	if rc.GenerationMaxJitter > 0 {
		out.GenerationPolicy.MaxJitter = rc.GenerationMaxJitter
	}
	return out
}

// Ready pings Postgres and, when configured, Redis
func (c *Container) Ready(ctx context.Context) error {
	if err := c.Postgres.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(ctx); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Close drains background tasks until ctx expires, then releases connections
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.Runner != nil {
		if err := c.Runner.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("background tasks: %w", err))
		}
	}
	if c.EventBus != nil {
		if err := c.EventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event bus: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	return errors.Join(errs...)
}
