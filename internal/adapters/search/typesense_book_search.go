package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	tsclient "github.com/pagewise/bookstore/backend/internal/infrastructure/clients/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const bookQueryBy = "title,author,description,category_name"

// TypesenseBookSearch implements keyword search and indexing of books and comments
type TypesenseBookSearch struct {
	client *tsclient.Client
}

// Ensure TypesenseBookSearch implements BookSearchProvider
var _ providers.BookSearchProvider = (*TypesenseBookSearch)(nil)

// NewTypesenseBookSearch creates a new Typesense book search adapter
func NewTypesenseBookSearch(client *tsclient.Client) *TypesenseBookSearch {
	return &TypesenseBookSearch{client: client}
}

// Search runs a keyword query over active books and returns matching IDs in rank order
func (s *TypesenseBookSearch) Search(ctx context.Context, query providers.BookSearchQuery) ([]string, int, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	q := strings.TrimSpace(query.Text)
	if q == "" {
		q = "*"
	}

	params := &api.SearchCollectionParams{
		Q:             pointer.String(q),
		QueryBy:       pointer.String(bookQueryBy),
		FilterBy:      pointer.String(bookFilterBy(query.Filters)),
		IncludeFields: pointer.String("id"),
		Page:          pointer.Int(query.Offset/limit + 1),
		PerPage:       pointer.Int(limit),
	}

	result, err := s.client.Client().Collection(tsclient.BooksCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search books: %w", err)
	}

	total := 0
	if result.Found != nil {
		total = *result.Found
	}
	if result.Hits == nil {
		return []string{}, total, nil
	}

	ids := make([]string, 0, len(*result.Hits))
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := (*hit.Document)["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, total, nil
}

// bookFilterBy always restricts to active books and adds the extracted filters
func bookFilterBy(f entities.SearchFilters) string {
	parts := []string{"is_active:=true"}
	if f.CategoryID != nil && *f.CategoryID != "" {
		parts = append(parts, "category_id:="+filterValue(*f.CategoryID))
	}
	if f.MinPrice != nil {
		parts = append(parts, fmt.Sprintf("price:>=%d", *f.MinPrice))
	}
	if f.MaxPrice != nil {
		parts = append(parts, fmt.Sprintf("price:<=%d", *f.MaxPrice))
	}
	return strings.Join(parts, " && ")
}

// IndexBook upserts a book document
func (s *TypesenseBookSearch) IndexBook(ctx context.Context, book *entities.Book, embedding []float32) error {
	document := map[string]interface{}{
		"id":            book.ID,
		"title":         book.Title,
		"author":        book.Author,
		"description":   book.Description,
		"category_id":   book.CategoryID,
		"category_name": book.CategoryName,
		"price":         book.Price,
		"rating":        book.Rating,
		"sales_count":   book.SalesCount,
		"is_active":     book.IsActive,
	}
	if len(embedding) > 0 {
		document[tsclient.EmbeddingField] = embedding
	}

	if err := s.client.Upsert(ctx, tsclient.BooksCollection, document); err != nil {
		return fmt.Errorf("failed to index book %s: %w", book.ID, err)
	}
	return nil
}

// IndexComment upserts a comment document used as comparison evidence
func (s *TypesenseBookSearch) IndexComment(ctx context.Context, comment *entities.Comment, embedding []float32) error {
	document := map[string]interface{}{
		"id":          comment.ID,
		"book_id":     comment.BookID,
		"author_name": comment.AuthorName,
		"text":        comment.Text,
		"rating":      comment.Rating,
		"is_disabled": comment.IsDisabled,
		"has_text":    strings.TrimSpace(comment.Text) != "",
		"created_at":  comment.CreatedAt.Unix(),
	}
	if len(embedding) > 0 {
		document[tsclient.EmbeddingField] = embedding
	}

	if err := s.client.Upsert(ctx, tsclient.CommentsCollection, document); err != nil {
		return fmt.Errorf("failed to index comment %s: %w", comment.ID, err)
	}
	return nil
}
