package providers

import (
	"context"
)

// Collection names of the search index
const (
	CollectionBooks    = "books"
	CollectionComments = "comments"
)

// VectorFilter is a conjunction of equality predicates on indexed fields.
type VectorFilter map[string]any

// VectorHit is one nearest-neighbour result. Similarity is 1 - vector distance.
type VectorHit struct {
	Document   map[string]interface{}
	Similarity float64
}

// VectorIndex performs nearest-neighbour lookups over embedded documents.
type VectorIndex interface {
	Search(ctx context.Context, collection string, vector []float32, filter VectorFilter, k int) ([]VectorHit, error)
}
