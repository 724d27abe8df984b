package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
)

const defaultIndexBatchSize = 100

// IndexStats counts the documents written by one indexing run
type IndexStats struct {
	Books            int
	Comments         int
	WithoutEmbedding int
}

// CatalogIndexingService copies books and comments, with embeddings, into the search index
type CatalogIndexingService struct {
	books    repositories.BookRepository
	comments repositories.CommentRepository
	search   providers.BookSearchProvider
	embedder QueryEmbedder
}

// NewCatalogIndexingService creates a new indexing service. embedder may be nil.
func NewCatalogIndexingService(
	books repositories.BookRepository,
	comments repositories.CommentRepository,
	search providers.BookSearchProvider,
	embedder QueryEmbedder,
) *CatalogIndexingService {
	return &CatalogIndexingService{books: books, comments: comments, search: search, embedder: embedder}
}

// IndexAll indexes every active book and comment. Documents whose embedding could not be
// computed are indexed for keyword search only.
func (s *CatalogIndexingService) IndexAll(ctx context.Context, batchSize int) (IndexStats, error) {
	if batchSize <= 0 {
		batchSize = defaultIndexBatchSize
	}
	logger := observability.LoggerFromContext(ctx)
	var stats IndexStats

	for offset := 0; ; offset += batchSize {
		books, err := s.books.List(ctx, batchSize, offset)
		if err != nil {
			return stats, fmt.Errorf("list books: %w", err)
		}
		for _, b := range books {
			vector := s.embed(ctx, BookEmbeddingText(b))
			if vector == nil {
				stats.WithoutEmbedding++
			}
			if err := s.search.IndexBook(ctx, b, vector); err != nil {
				return stats, fmt.Errorf("index book %s: %w", b.ID, err)
			}
			stats.Books++
		}
		if len(books) < batchSize {
			break
		}
	}
	logger.Info().Int("books", stats.Books).Msg("books indexed")

	for offset := 0; ; offset += batchSize {
		comments, err := s.comments.ListActive(ctx, batchSize, offset)
		if err != nil {
			return stats, fmt.Errorf("list comments: %w", err)
		}
		for _, c := range comments {
			vector := s.embed(ctx, c.Text)
			if vector == nil {
				stats.WithoutEmbedding++
			}
			if err := s.search.IndexComment(ctx, c, vector); err != nil {
				return stats, fmt.Errorf("index comment %s: %w", c.ID, err)
			}
			stats.Comments++
		}
		if len(comments) < batchSize {
			break
		}
	}
	logger.Info().Int("comments", stats.Comments).Int("without_embedding", stats.WithoutEmbedding).Msg("comments indexed")

	return stats, nil
}

func (s *CatalogIndexingService) embed(ctx context.Context, text string) []float32 {
	if s.embedder == nil {
		return nil
	}
	vector, ok := s.embedder.EmbedWithRetry(ctx, text)
	if !ok {
		return nil
	}
	return vector
}

// BookEmbeddingText is the text embedded for a book document
func BookEmbeddingText(b *entities.Book) string {
	parts := []string{b.Title}
	if b.Author != "" {
		parts = append(parts, "by "+b.Author)
	}
	if b.CategoryName != "" {
		parts = append(parts, "category: "+b.CategoryName)
	}
	if b.Description != "" {
		parts = append(parts, b.Description)
	}
	return strings.Join(parts, ". ")
}
