package services

import (
	"context"
	"strings"
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
)

const (
	catalogSearchComponent = "catalog_search"
	maxSearchLimit         = 100
)

// SearchOptions pages a catalog search
type SearchOptions struct {
	Limit  int
	Offset int
}

// CatalogSearchService is the catalog search endpoint: it classifies the query and runs
// either a vector or a keyword search. Vector failures fall back to keyword search.
type CatalogSearchService struct {
	classifier   *QueryClassifier
	embedder     QueryEmbedder
	index        providers.VectorIndex
	search       providers.BookSearchProvider
	books        repositories.BookRepository
	defaultLimit int
	metrics      *observability.Metrics
	analytics    *SearchAnalyticsService
}

// NewCatalogSearchService creates a new catalog search service
func NewCatalogSearchService(
	classifier *QueryClassifier,
	embedder QueryEmbedder,
	index providers.VectorIndex,
	search providers.BookSearchProvider,
	books repositories.BookRepository,
	defaultLimit int,
	metrics *observability.Metrics,
) *CatalogSearchService {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	return &CatalogSearchService{
		classifier:   classifier,
		embedder:     embedder,
		index:        index,
		search:       search,
		books:        books,
		defaultLimit: defaultLimit,
		metrics:      metrics,
	}
}

// Classify classifies query against the current category vocabulary
func (s *CatalogSearchService) Classify(ctx context.Context, query string) entities.Classification {
	return s.classifier.Classify(ctx, query, s.categories(ctx))
}

// SetAnalytics records every successful search
func (s *CatalogSearchService) SetAnalytics(analytics *SearchAnalyticsService) {
	s.analytics = analytics
}

// Search runs the full search flow for query
func (s *CatalogSearchService) Search(ctx context.Context, query string, opts SearchOptions) (*entities.SearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "CatalogSearchService.Search")
	defer span.End()

	start := time.Now()
	result, err := s.run(ctx, query, opts)
	if err == nil {
		s.analytics.TrackSearch(newSearchEvent(strings.TrimSpace(query), result, time.Since(start)))
	}
	return result, err
}

func (s *CatalogSearchService) run(ctx context.Context, query string, opts SearchOptions) (*entities.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("query is required")
	}
	if !s.classifier.IsMeaningful(ctx, query) {
		return nil, apperrors.NewValidationError("query does not describe a book search")
	}

	if opts.Limit <= 0 {
		opts.Limit = s.defaultLimit
	}
	if opts.Limit > maxSearchLimit {
		opts.Limit = maxSearchLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	classification := s.Classify(ctx, query)
	result := &entities.SearchResult{Classification: classification}

	if classification.QueryType == entities.QueryTypeVector {
		ids, ok := s.vectorSearch(ctx, classification.CleanedQuery, opts.Limit)
		if ok {
			books, err := s.books.GetByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			result.Books = books
			result.Mode = entities.SearchModeVector
			result.TotalCount = len(books)
			return result, nil
		}
		result.Mode = entities.SearchModeVectorFallback
	} else {
		result.Mode = entities.SearchModeKeyword
	}

	ids, total, err := s.search.Search(ctx, providers.BookSearchQuery{
		Text:    classification.CleanedQuery,
		Filters: classification.Filters,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
	if err != nil {
		return nil, apperrors.NewExternalError("catalog search failed", err)
	}

	books, err := s.books.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	result.Books = books
	result.TotalCount = total
	return result, nil
}

// vectorSearch reports false when the keyword path must be used instead
func (s *CatalogSearchService) vectorSearch(ctx context.Context, text string, limit int) ([]string, bool) {
	logger := observability.LoggerFromContext(ctx)

	if s.embedder == nil || s.index == nil {
		return nil, false
	}
	vector, ok := s.embedder.EmbedWithRetry(ctx, text)
	if !ok {
		logger.Warn().Str("component", catalogSearchComponent).Str("cause", "no_embedding").Msg("vector search unavailable, using keyword search")
		observability.RecordFallback(ctx, s.metrics, catalogSearchComponent, "no_embedding")
		return nil, false
	}

	hits, err := s.index.Search(ctx, providers.CollectionBooks, vector, providers.VectorFilter{"is_active": true}, limit)
	if err != nil {
		logger.Warn().Err(err).Str("component", catalogSearchComponent).Str("cause", "vector_error").Msg("vector search failed, using keyword search")
		observability.RecordFallback(ctx, s.metrics, catalogSearchComponent, "vector_error")
		return nil, false
	}
	if len(hits) == 0 {
		logger.Warn().Str("component", catalogSearchComponent).Str("cause", "no_hits").Msg("vector search returned nothing, using keyword search")
		observability.RecordFallback(ctx, s.metrics, catalogSearchComponent, "no_hits")
		return nil, false
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if id := stringField(h.Document, "id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, len(ids) > 0
}

func (s *CatalogSearchService) categories(ctx context.Context) []*entities.Category {
	cats, err := s.books.ListCategories(ctx)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("category vocabulary unavailable")
		return nil
	}
	return cats
}
