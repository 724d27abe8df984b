package providers

import (
	"context"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// BookSearchQuery is a keyword search over the catalog.
type BookSearchQuery struct {
	Text    string
	Filters entities.SearchFilters
	Limit   int
	Offset  int
}

// BookSearchProvider runs keyword search and maintains the search index
type BookSearchProvider interface {
	// Search returns matching book IDs in relevance order plus the total hit count
	Search(ctx context.Context, query BookSearchQuery) ([]string, int, error)

	// IndexBook upserts a book document, with its embedding when present
	IndexBook(ctx context.Context, book *entities.Book, embedding []float32) error

	// IndexComment upserts a comment document, with its embedding when present
	IndexComment(ctx context.Context, comment *entities.Comment, embedding []float32) error
}
