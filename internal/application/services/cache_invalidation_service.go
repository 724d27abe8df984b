package services

import (
	"context"
	"fmt"

	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
)

// Patterns for the cache entries derived from catalog data
var (
	searchCachePatterns  = []string{"http:cache:/api/search*"}
	catalogCachePatterns = []string{"categories:*", "book:*"}
)

// CacheInvalidationService drops cached catalog data after the catalog changes
type CacheInvalidationService struct {
	cache providers.CacheProvider
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider) *CacheInvalidationService {
	return &CacheInvalidationService{cache: cache}
}

// InvalidateSearchCaches drops cached search responses.
// Classification entries stay: their keys already include the category vocabulary.
func (s *CacheInvalidationService) InvalidateSearchCaches(ctx context.Context) error {
	return s.deletePatterns(ctx, searchCachePatterns)
}

// InvalidateCatalog drops cached books, categories and search responses
func (s *CacheInvalidationService) InvalidateCatalog(ctx context.Context) error {
	if err := s.deletePatterns(ctx, catalogCachePatterns); err != nil {
		return err
	}
	return s.InvalidateSearchCaches(ctx)
}

func (s *CacheInvalidationService) deletePatterns(ctx context.Context, patterns []string) error {
	if s == nil || s.cache == nil {
		return nil
	}
	logger := observability.LoggerFromContext(ctx)
	for _, pattern := range patterns {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to invalidate pattern %s: %w", pattern, err)
		}
		logger.Debug().Str("pattern", pattern).Msg("invalidated cache pattern")
	}
	return nil
}
