package repositories

import (
	"context"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

// BookRepository defines read access to the catalog
type BookRepository interface {
	// GetByID retrieves a book by ID
	GetByID(ctx context.Context, id string) (*entities.Book, error)

	// GetByIDs retrieves books by ID, in the order of ids. Unknown ids are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]*entities.Book, error)

	// Sample returns up to n active books
	Sample(ctx context.Context, n int) ([]*entities.Book, error)

	// List pages through active books ordered by ID
	List(ctx context.Context, limit, offset int) ([]*entities.Book, error)

	// ListCategories returns the category vocabulary
	ListCategories(ctx context.Context) ([]*entities.Category, error)
}
