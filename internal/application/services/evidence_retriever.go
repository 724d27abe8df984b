package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"golang.org/x/sync/errgroup"
)

const (
	retrieverComponent = "rag_retriever"

	// DefaultEvidenceLimit is the number of snippets retrieved per book
	DefaultEvidenceLimit = 5

	maxConcurrentLookups = 5
)

// EvidenceSource retrieves supporting comments per book
type EvidenceSource interface {
	RetrieveEvidence(ctx context.Context, bookIDs []string, query string, perItemLimit int) (map[string][]entities.EvidenceSnippet, error)
}

// EvidenceRetriever prefers semantic comment retrieval and falls back to the
// rating/recency ranking per book. Vector search is never retried.
type EvidenceRetriever struct {
	embedder QueryEmbedder
	index    providers.VectorIndex
	comments repositories.CommentRepository
	metrics  *observability.Metrics
}

// NewEvidenceRetriever creates a new retriever. embedder and index may be nil, which
// disables semantic retrieval.
func NewEvidenceRetriever(embedder QueryEmbedder, index providers.VectorIndex, comments repositories.CommentRepository, metrics *observability.Metrics) *EvidenceRetriever {
	return &EvidenceRetriever{
		embedder: embedder,
		index:    index,
		comments: comments,
		metrics:  metrics,
	}
}

// RetrieveEvidence returns up to perItemLimit snippets for every book id. Only a
// failure of the fallback ranking itself is returned as an error.
func (r *EvidenceRetriever) RetrieveEvidence(ctx context.Context, bookIDs []string, query string, perItemLimit int) (map[string][]entities.EvidenceSnippet, error) {
	if perItemLimit <= 0 {
		perItemLimit = DefaultEvidenceLimit
	}

	var vector []float32
	if strings.TrimSpace(query) != "" && r.embedder != nil && r.index != nil {
		if v, ok := r.embedder.EmbedWithRetry(ctx, query); ok {
			vector = v
		}
	}

	var mu sync.Mutex
	result := make(map[string][]entities.EvidenceSnippet, len(bookIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)

	seen := make(map[string]struct{}, len(bookIDs))
	for _, id := range bookIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		g.Go(func() error {
			snippets, err := r.retrieveOne(gctx, id, vector, perItemLimit)
			if err != nil {
				return err
			}
			mu.Lock()
			result[id] = snippets
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *EvidenceRetriever) retrieveOne(ctx context.Context, bookID string, vector []float32, limit int) ([]entities.EvidenceSnippet, error) {
	if vector != nil {
		filter := providers.VectorFilter{
			"book_id":     bookID,
			"is_disabled": false,
			"has_text":    true,
		}
		hits, err := r.index.Search(ctx, providers.CollectionComments, vector, filter, limit)
		switch {
		case err != nil:
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("component", retrieverComponent).Str("book_id", bookID).Msg("vector search failed, using rating ranking")
			observability.RecordFallback(ctx, r.metrics, retrieverComponent, "vector_error")
		case len(hits) == 0:
			observability.RecordFallback(ctx, r.metrics, retrieverComponent, "no_hits")
		default:
			return snippetsFromHits(hits, limit), nil
		}
	}

	comments, err := r.comments.TopRated(ctx, bookID, limit)
	if err != nil {
		return nil, fmt.Errorf("fallback evidence for book %s: %w", bookID, err)
	}
	snippets := make([]entities.EvidenceSnippet, 0, len(comments))
	for _, c := range comments {
		snippets = append(snippets, entities.SnippetFromComment(c))
	}
	if len(snippets) > limit {
		snippets = snippets[:limit]
	}
	return snippets, nil
}

func snippetsFromHits(hits []providers.VectorHit, limit int) []entities.EvidenceSnippet {
	if len(hits) > limit {
		hits = hits[:limit]
	}
	snippets := make([]entities.EvidenceSnippet, 0, len(hits))
	for _, h := range hits {
		score := h.Similarity
		snippets = append(snippets, entities.EvidenceSnippet{
			Rating:         int(numberField(h.Document, "rating")),
			Text:           stringField(h.Document, "text"),
			Author:         stringField(h.Document, "author_name"),
			Date:           time.Unix(int64(numberField(h.Document, "created_at")), 0).UTC(),
			RelevanceScore: &score,
		})
	}
	return snippets
}

func stringField(doc map[string]interface{}, key string) string {
	s, _ := doc[key].(string)
	return s
}

func numberField(doc map[string]interface{}, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
