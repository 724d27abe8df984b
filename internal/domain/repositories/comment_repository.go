package repositories

import (
	"context"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// CommentRepository defines read access to book comments
type CommentRepository interface {
	// TopRated returns enabled, non-empty comments of a book ordered by rating then recency
	TopRated(ctx context.Context, bookID string, limit int) ([]*entities.Comment, error)

	// ListActive pages through enabled, non-empty comments for indexing
	ListActive(ctx context.Context, limit, offset int) ([]*entities.Comment, error)
}
