package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pagewise/bookstore/backend/internal/application/services"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

var testCategories = []*entities.Category{
	{ID: "cat-fantasy", Name: "Fantasy"},
	{ID: "cat-business", Name: "Business"},
}

func TestQueryClassifier_BlankQuerySkipsModel(t *testing.T) {
	gen := new(MockTextGenerator)
	c := services.NewQueryClassifier(gen, nil, 0, nil)

	got := c.Classify(context.Background(), "   ", testCategories)

	assert.Equal(t, entities.QueryTypeKeyword, got.QueryType)
	assert.True(t, got.Fallback)
	assert.True(t, got.Filters.IsEmpty())
	gen.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
}

func TestQueryClassifier_ModelErrorFallsBackToKeyword(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateText", mock.Anything, promptWith(classifyPrompt)).Return("", errors.New("timeout"))
	c := services.NewQueryClassifier(gen, nil, 0, nil)

	got := c.Classify(context.Background(), "sách kinh doanh dưới 200k", testCategories)

	assert.Equal(t, services.FallbackClassification("sách kinh doanh dưới 200k"), got)
}

func TestQueryClassifier_KeywordFilters(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantCat  *string
		wantMin  *int64
		wantMax  *int64
	}{
		{
			name:     "known category and price range",
			response: `{"queryType":"KEYWORD_SEARCH","cleanedQuery":"startup","filters":{"categoryId":"cat-business","minPrice":null,"maxPrice":200000}}`,
			wantCat:  strPtr("cat-business"),
			wantMax:  int64Ptr(200000),
		},
		{
			name:     "unknown category dropped",
			response: `{"queryType":"KEYWORD_SEARCH","cleanedQuery":"startup","filters":{"categoryId":"cat-cooking","minPrice":null,"maxPrice":null}}`,
		},
		{
			name:     "inverted range swapped",
			response: `{"queryType":"KEYWORD_SEARCH","cleanedQuery":"startup","filters":{"categoryId":null,"minPrice":300000,"maxPrice":"100000"}}`,
			wantMin:  int64Ptr(100000),
			wantMax:  int64Ptr(300000),
		},
		{
			name:     "negative price dropped",
			response: "```json\n{\"queryType\":\"KEYWORD_SEARCH\",\"cleanedQuery\":\"startup\",\"filters\":{\"minPrice\":-5}}\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := new(MockTextGenerator)
			gen.On("GenerateText", mock.Anything, promptWith(classifyPrompt)).Return(tt.response, nil)
			c := services.NewQueryClassifier(gen, nil, 0, nil)

			got := c.Classify(context.Background(), "sách startup", testCategories)

			assert.Equal(t, entities.QueryTypeKeyword, got.QueryType)
			assert.Equal(t, "startup", got.CleanedQuery)
			assert.False(t, got.Fallback)
			assert.Equal(t, tt.wantCat, got.Filters.CategoryID)
			assert.Equal(t, tt.wantMin, got.Filters.MinPrice)
			assert.Equal(t, tt.wantMax, got.Filters.MaxPrice)
		})
	}
}

func TestQueryClassifier_VectorCarriesNoFilters(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateText", mock.Anything, promptWith(classifyPrompt)).
		Return(`Here you go: {"queryType":"VECTOR_SEARCH","cleanedQuery":"","filters":{"categoryId":"cat-fantasy","minPrice":1}}`, nil)
	c := services.NewQueryClassifier(gen, nil, 0, nil)

	got := c.Classify(context.Background(), "a book that makes me feel hopeful", testCategories)

	assert.Equal(t, entities.QueryTypeVector, got.QueryType)
	assert.Equal(t, "a book that makes me feel hopeful", got.CleanedQuery)
	assert.True(t, got.Filters.IsEmpty())
}

func TestQueryClassifier_InvalidTypeFallsBack(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateText", mock.Anything, promptWith(classifyPrompt)).Return(`{"queryType":"SQL","cleanedQuery":"x"}`, nil)
	cache := NewMockCache()
	c := services.NewQueryClassifier(gen, cache, time.Hour, nil)

	got := c.Classify(context.Background(), "harry potter", testCategories)

	assert.True(t, got.Fallback)
	assert.Equal(t, 0, cache.Sets(), "fallbacks are not cached")
}

func TestQueryClassifier_CachesSuccessfulClassification(t *testing.T) {
	gen := new(MockTextGenerator)
	gen.On("GenerateText", mock.Anything, promptWith(classifyPrompt)).
		Return(`{"queryType":"KEYWORD_SEARCH","cleanedQuery":"harry potter","filters":{}}`, nil).Once()
	cache := NewMockCache()
	c := services.NewQueryClassifier(gen, cache, time.Hour, nil)

	first := c.Classify(context.Background(), "Harry Potter", testCategories)
	second := c.Classify(context.Background(), "harry potter", testCategories)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.Sets())
	gen.AssertNumberOfCalls(t, "GenerateText", 1)
}

func TestQueryClassifier_IsMeaningful(t *testing.T) {
	t.Run("blank", func(t *testing.T) {
		gen := new(MockTextGenerator)
		c := services.NewQueryClassifier(gen, nil, 0, nil)
		assert.False(t, c.IsMeaningful(context.Background(), " "))
		gen.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
	})

	t.Run("rejected", func(t *testing.T) {
		gen := new(MockTextGenerator)
		gen.On("GenerateText", mock.Anything, promptWith(meaningfulPrompt)).Return(`{"meaningful":false}`, nil)
		c := services.NewQueryClassifier(gen, nil, 0, nil)
		assert.False(t, c.IsMeaningful(context.Background(), "asdfgh"))
	})

	t.Run("fails open", func(t *testing.T) {
		gen := new(MockTextGenerator)
		gen.On("GenerateText", mock.Anything, promptWith(meaningfulPrompt)).Return("", errors.New("down"))
		c := services.NewQueryClassifier(gen, nil, 0, nil)
		assert.True(t, c.IsMeaningful(context.Background(), "asdfgh"))
	})

	t.Run("garbage fails open", func(t *testing.T) {
		gen := new(MockTextGenerator)
		gen.On("GenerateText", mock.Anything, promptWith(meaningfulPrompt)).Return("maybe?", nil)
		c := services.NewQueryClassifier(gen, nil, 0, nil)
		require.True(t, c.IsMeaningful(context.Background(), "asdfgh"))
	})
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }
