package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/rs/zerolog/log"
)

// CachedBookAdapter wraps a BookRepository with caching of lookups by ID and of the
// category vocabulary. Sample and List always hit the database.
type CachedBookAdapter struct {
	adapter     repositories.BookRepository
	cache       providers.CacheProvider
	categoryTTL int
}

// Cache TTLs (in seconds)
const (
	bookByIDTTL        = 300
	defaultCategoryTTL = 600

	categoriesCacheKey = "categories:all"
)

// NewCachedBookAdapter creates a new cached book adapter
func NewCachedBookAdapter(adapter repositories.BookRepository, cache providers.CacheProvider, categoryTTL time.Duration) repositories.BookRepository {
	ttl := int(categoryTTL / time.Second)
	if ttl <= 0 {
		ttl = defaultCategoryTTL
	}
	return &CachedBookAdapter{
		adapter:     adapter,
		cache:       cache,
		categoryTTL: ttl,
	}
}

func bookCacheKey(id string) string {
	return fmt.Sprintf("book:%s", id)
}

func (a *CachedBookAdapter) cachedBook(ctx context.Context, id string) (*entities.Book, bool) {
	data, err := a.cache.Get(ctx, bookCacheKey(id))
	if err != nil {
		return nil, false
	}
	var book entities.Book
	if err := json.Unmarshal(data, &book); err != nil {
		log.Warn().Err(err).Str("book_id", id).Msg("failed to unmarshal cached book")
		return nil, false
	}
	return &book, true
}

func (a *CachedBookAdapter) store(ctx context.Context, key string, value interface{}, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to write cache")
	}
}

// GetByID retrieves a book by ID with caching
func (a *CachedBookAdapter) GetByID(ctx context.Context, id string) (*entities.Book, error) {
	if book, ok := a.cachedBook(ctx, id); ok {
		return book, nil
	}

	book, err := a.adapter.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	a.store(ctx, bookCacheKey(id), book, bookByIDTTL)
	return book, nil
}

// GetByIDs serves cached books and loads the rest in one query, keeping the order of ids
func (a *CachedBookAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Book, error) {
	if len(ids) == 0 {
		return []*entities.Book{}, nil
	}

	found := make([]*entities.Book, 0, len(ids))
	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if book, ok := a.cachedBook(ctx, id); ok {
			found = append(found, book)
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		loaded, err := a.adapter.GetByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, book := range loaded {
			a.store(ctx, bookCacheKey(book.ID), book, bookByIDTTL)
		}
		found = append(found, loaded...)
	}

	return orderByIDs(found, ids), nil
}

// Sample returns up to n random active books
func (a *CachedBookAdapter) Sample(ctx context.Context, n int) ([]*entities.Book, error) {
	return a.adapter.Sample(ctx, n)
}

// List pages through active books
func (a *CachedBookAdapter) List(ctx context.Context, limit, offset int) ([]*entities.Book, error) {
	return a.adapter.List(ctx, limit, offset)
}

// ListCategories returns the category vocabulary with caching
func (a *CachedBookAdapter) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	if data, err := a.cache.Get(ctx, categoriesCacheKey); err == nil {
		var categories []*entities.Category
		if err := json.Unmarshal(data, &categories); err == nil {
			return categories, nil
		}
	}

	categories, err := a.adapter.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	a.store(ctx, categoriesCacheKey, categories, a.categoryTTL)
	return categories, nil
}
