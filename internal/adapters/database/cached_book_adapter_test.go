package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if v := args.Get(0); v != nil {
		return v.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	return m.Called(ctx, key, value, expirationSeconds).Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCache) DeletePattern(ctx context.Context, pattern string) error {
	return m.Called(ctx, pattern).Error(0)
}

type MockBookRepository struct {
	mock.Mock
}

func (m *MockBookRepository) GetByID(ctx context.Context, id string) (*entities.Book, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*entities.Book), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Book, error) {
	args := m.Called(ctx, ids)
	if v := args.Get(0); v != nil {
		return v.([]*entities.Book), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookRepository) Sample(ctx context.Context, n int) ([]*entities.Book, error) {
	args := m.Called(ctx, n)
	return args.Get(0).([]*entities.Book), args.Error(1)
}

func (m *MockBookRepository) List(ctx context.Context, limit, offset int) ([]*entities.Book, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*entities.Book), args.Error(1)
}

func (m *MockBookRepository) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*entities.Category), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestCachedBookAdapter_GetByIDsMixesCacheAndDatabase(t *testing.T) {
	ctx := context.Background()
	cache := new(MockCache)
	repo := new(MockBookRepository)

	cached, _ := json.Marshal(&entities.Book{ID: "b2", Title: "Cached"})
	cache.On("Get", ctx, "book:b1").Return(nil, providers.ErrCacheMiss)
	cache.On("Get", ctx, "book:b2").Return(cached, nil)
	cache.On("Set", ctx, "book:b1", mock.Anything, bookByIDTTL).Return(nil)
	repo.On("GetByIDs", ctx, []string{"b1"}).Return([]*entities.Book{{ID: "b1", Title: "Loaded"}}, nil)

	adapter := NewCachedBookAdapter(repo, cache, time.Minute)
	books, err := adapter.GetByIDs(ctx, []string{"b1", "b2"})

	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Loaded", books[0].Title)
	assert.Equal(t, "Cached", books[1].Title)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestCachedBookAdapter_ListCategoriesUsesConfiguredTTL(t *testing.T) {
	ctx := context.Background()
	cache := new(MockCache)
	repo := new(MockBookRepository)

	categories := []*entities.Category{{ID: "c1", Name: "Fantasy"}}
	cache.On("Get", ctx, categoriesCacheKey).Return(nil, providers.ErrCacheMiss)
	cache.On("Set", ctx, categoriesCacheKey, mock.Anything, 120).Return(nil)
	repo.On("ListCategories", ctx).Return(categories, nil)

	got, err := NewCachedBookAdapter(repo, cache, 2*time.Minute).ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, categories, got)
	cache.AssertExpectations(t)
}
