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
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/pkg/retry"
)

func commentHit(text string, rating int, similarity float64) providers.VectorHit {
	return providers.VectorHit{
		Document: map[string]interface{}{
			"text":        text,
			"rating":      float64(rating),
			"author_name": "reader",
			"created_at":  float64(1700000000),
		},
		Similarity: similarity,
	}
}

func TestEvidenceRetriever_SemanticHits(t *testing.T) {
	embedder := new(MockEmbedder)
	index := new(MockVectorIndex)
	comments := new(MockCommentRepository)
	vector := []float32{0.1, 0.2}

	embedder.On("EmbedWithRetry", mock.Anything, "good for beginners").Return(vector, true).Once()
	index.On("Search", mock.Anything, providers.CollectionComments, vector, providers.VectorFilter{
		"book_id": "b1", "is_disabled": false, "has_text": true,
	}, 2).Return([]providers.VectorHit{commentHit("clear intro", 5, 0.9), commentHit("easy", 4, 0.8)}, nil)
	index.On("Search", mock.Anything, providers.CollectionComments, vector, providers.VectorFilter{
		"book_id": "b2", "is_disabled": false, "has_text": true,
	}, 2).Return([]providers.VectorHit{commentHit("too dense", 2, 0.7)}, nil)

	r := services.NewEvidenceRetriever(embedder, index, comments, nil)
	got, err := r.RetrieveEvidence(context.Background(), []string{"b1", "b2"}, "good for beginners", 2)

	require.NoError(t, err)
	require.Len(t, got["b1"], 2)
	require.Len(t, got["b2"], 1)
	require.NotNil(t, got["b1"][0].RelevanceScore)
	assert.InDelta(t, 0.9, *got["b1"][0].RelevanceScore, 1e-9)
	assert.Equal(t, "clear intro", got["b1"][0].Text)
	assert.Equal(t, 5, got["b1"][0].Rating)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got["b1"][0].Date)
	comments.AssertNotCalled(t, "TopRated", mock.Anything, mock.Anything, mock.Anything)
	embedder.AssertNumberOfCalls(t, "EmbedWithRetry", 1)
}

func TestEvidenceRetriever_PerItemFallback(t *testing.T) {
	embedder := new(MockEmbedder)
	index := new(MockVectorIndex)
	comments := new(MockCommentRepository)
	vector := []float32{1}

	embedder.On("EmbedWithRetry", mock.Anything, "plot").Return(vector, true)
	index.On("Search", mock.Anything, providers.CollectionComments, vector, mock.MatchedBy(func(f providers.VectorFilter) bool {
		return f["book_id"] == "b1"
	}), 3).Return(nil, errors.New("index down"))
	index.On("Search", mock.Anything, providers.CollectionComments, vector, mock.MatchedBy(func(f providers.VectorFilter) bool {
		return f["book_id"] == "b2"
	}), 3).Return([]providers.VectorHit{}, nil)
	index.On("Search", mock.Anything, providers.CollectionComments, vector, mock.MatchedBy(func(f providers.VectorFilter) bool {
		return f["book_id"] == "b3"
	}), 3).Return([]providers.VectorHit{commentHit("great twist", 5, 0.6)}, nil)

	comments.On("TopRated", mock.Anything, "b1", 3).Return([]*entities.Comment{{ID: "c1", Text: "loved it", Rating: 5}}, nil)
	comments.On("TopRated", mock.Anything, "b2", 3).Return([]*entities.Comment{}, nil)

	r := services.NewEvidenceRetriever(embedder, index, comments, nil)
	got, err := r.RetrieveEvidence(context.Background(), []string{"b1", "b2", "b3"}, "plot", 3)

	require.NoError(t, err)
	require.Len(t, got["b1"], 1)
	assert.Nil(t, got["b1"][0].RelevanceScore)
	assert.Empty(t, got["b2"])
	require.Len(t, got["b3"], 1)
	assert.NotNil(t, got["b3"][0].RelevanceScore)
}

func TestEvidenceRetriever_NoQueryUsesRatingRanking(t *testing.T) {
	embedder := new(MockEmbedder)
	index := new(MockVectorIndex)
	comments := new(MockCommentRepository)
	comments.On("TopRated", mock.Anything, "b1", services.DefaultEvidenceLimit).Return([]*entities.Comment{{Text: "a", Rating: 5}, {Text: "b", Rating: 4}}, nil)

	r := services.NewEvidenceRetriever(embedder, index, comments, nil)
	got, err := r.RetrieveEvidence(context.Background(), []string{"b1", "b1"}, "", 0)

	require.NoError(t, err)
	assert.Len(t, got["b1"], 2)
	embedder.AssertNotCalled(t, "EmbedWithRetry", mock.Anything, mock.Anything)
	comments.AssertNumberOfCalls(t, "TopRated", 1)
}

func TestEvidenceRetriever_FallbackStorageErrorPropagates(t *testing.T) {
	comments := new(MockCommentRepository)
	comments.On("TopRated", mock.Anything, "b1", 5).Return(nil, errors.New("db down"))

	r := services.NewEvidenceRetriever(nil, nil, comments, nil)
	_, err := r.RetrieveEvidence(context.Background(), []string{"b1"}, "anything", 5)

	assert.Error(t, err)
}

func TestEmbeddingService_ExhaustionMeansNoEmbedding(t *testing.T) {
	provider := new(MockEmbeddingProvider)
	provider.On("Embed", mock.Anything, "text").Return(nil, errors.New("503"))
	svc := services.NewEmbeddingService(provider, retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 2}, nil)

	v, ok := svc.EmbedWithRetry(context.Background(), "text")

	assert.False(t, ok)
	assert.Nil(t, v)
	provider.AssertNumberOfCalls(t, "Embed", 3)
}

func TestEmbeddingService_RecoversAfterTransientError(t *testing.T) {
	provider := new(MockEmbeddingProvider)
	provider.On("Embed", mock.Anything, "text").Return(nil, errors.New("503")).Once()
	provider.On("Embed", mock.Anything, "text").Return([]float32{0.5}, nil).Once()
	svc := services.NewEmbeddingService(provider, retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond}, nil)

	v, ok := svc.EmbedWithRetry(context.Background(), "text")

	assert.True(t, ok)
	assert.Equal(t, []float32{0.5}, v)
}

func TestEmbeddingService_BlankTextSkipsProvider(t *testing.T) {
	provider := new(MockEmbeddingProvider)
	svc := services.NewEmbeddingService(provider, retry.EmbeddingPolicy(), nil)

	_, ok := svc.EmbedWithRetry(context.Background(), "  ")

	assert.False(t, ok)
	provider.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}
