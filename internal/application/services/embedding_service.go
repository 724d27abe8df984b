package services

import (
	"context"
	"strings"
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"github.com/pagewise/bookstore/backend/pkg/retry"
)

const embeddingComponent = "embedding"

// QueryEmbedder embeds text, reporting false when no embedding is available.
type QueryEmbedder interface {
	EmbedWithRetry(ctx context.Context, text string) ([]float32, bool)
}

// EmbeddingService wraps an embedding provider in a bounded retry policy.
type EmbeddingService struct {
	provider providers.EmbeddingProvider
	policy   retry.Config
	metrics  *observability.Metrics
}

// NewEmbeddingService creates a new retrying embedder
func NewEmbeddingService(provider providers.EmbeddingProvider, policy retry.Config, metrics *observability.Metrics) *EmbeddingService {
	return &EmbeddingService{provider: provider, policy: policy, metrics: metrics}
}

// EmbedWithRetry returns (nil, false) once the retry budget is exhausted
func (s *EmbeddingService) EmbedWithRetry(ctx context.Context, text string) ([]float32, bool) {
	if s == nil || s.provider == nil || strings.TrimSpace(text) == "" {
		return nil, false
	}
	logger := observability.LoggerFromContext(ctx)

	var vector []float32
	err := retry.DoWithLog(ctx, s.policy, "embedding",
		func() error {
			v, err := s.provider.Embed(ctx, text)
			if err != nil {
				return err
			}
			vector = v
			return nil
		},
		func(attempt int, err error, nextDelay time.Duration) {
			logger.Debug().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("embedding attempt failed")
		},
	)
	if err != nil {
		logger.Warn().Err(err).Str("component", embeddingComponent).Msg("no embedding available")
		observability.RecordFallback(ctx, s.metrics, embeddingComponent, "retries_exhausted")
		return nil, false
	}
	return vector, true
}
