package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	tsclient "github.com/pagewise/bookstore/backend/internal/infrastructure/clients/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

// TypesenseVectorIndex implements nearest-neighbour search over the embedding field
type TypesenseVectorIndex struct {
	client *tsclient.Client
}

// Ensure TypesenseVectorIndex implements VectorIndex
var _ providers.VectorIndex = (*TypesenseVectorIndex)(nil)

// NewTypesenseVectorIndex creates a new vector index backed by Typesense
func NewTypesenseVectorIndex(client *tsclient.Client) *TypesenseVectorIndex {
	return &TypesenseVectorIndex{client: client}
}

// Search returns up to k documents of collection closest to vector that satisfy filter.
func (v *TypesenseVectorIndex) Search(ctx context.Context, collection string, vector []float32, filter providers.VectorFilter, k int) ([]providers.VectorHit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector search on %s: empty query vector", collection)
	}
	if k <= 0 {
		k = 10
	}

	params := &api.SearchCollectionParams{
		Q:             pointer.String("*"),
		VectorQuery:   pointer.String(buildVectorQuery(vector, k)),
		ExcludeFields: pointer.String(tsclient.EmbeddingField),
		PerPage:       pointer.Int(k),
	}
	if filterBy := buildFilterBy(filter); filterBy != "" {
		params.FilterBy = pointer.String(filterBy)
	}

	result, err := v.client.Client().Collection(collection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("vector search on %s failed: %w", collection, err)
	}
	if result.Hits == nil {
		return nil, nil
	}

	hits := make([]providers.VectorHit, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		similarity := 0.0
		if hit.VectorDistance != nil {
			similarity = 1 - float64(*hit.VectorDistance)
		}
		hits = append(hits, providers.VectorHit{Document: *hit.Document, Similarity: similarity})
	}
	return hits, nil
}

// buildVectorQuery renders the vector_query parameter, e.g. embedding:([0.1,0.2], k:5)
func buildVectorQuery(vector []float32, k int) string {
	var b strings.Builder
	b.Grow(len(vector)*10 + 32)
	b.WriteString(tsclient.EmbeddingField)
	b.WriteString(":([")
	for i, x := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', 7, 32))
	}
	fmt.Fprintf(&b, "], k:%d)", k)
	return b.String()
}

// buildFilterBy joins equality predicates with && in key order so the same filter
// always renders the same string.
func buildFilterBy(filter providers.VectorFilter) string {
	if len(filter) == 0 {
		return ""
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":="+filterValue(filter[k]))
	}
	return strings.Join(parts, " && ")
}

func filterValue(v any) string {
	switch val := v.(type) {
	case string:
		return "`" + strings.ReplaceAll(val, "`", "") + "`"
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
