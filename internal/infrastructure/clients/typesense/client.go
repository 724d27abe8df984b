package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/pagewise/bookstore/backend/pkg/config"
	"github.com/pagewise/bookstore/backend/pkg/retry"
	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const (
	BooksCollection    = "books"
	CommentsCollection = "comments"

	// EmbeddingField holds the document vector in both collections
	EmbeddingField = "embedding"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(ctx context.Context, cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	retryConfig := retry.DefaultConfig()
	err := retry.DoWithLog(
		ctx,
		retryConfig,
		"Typesense",
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_, err := client.Health(pingCtx, 2*time.Second)
			return err
		},
		func(attempt int, err error, nextDelay time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("typesense connection attempt failed")
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("connected to typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema ensures the books and comments collections exist. dims is the
// embedding dimensionality and must match the embedding model.
func (c *Client) InitSchema(ctx context.Context, dims int) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	existing := make(map[string]bool, len(collections))
	for _, col := range collections {
		existing[col.Name] = true
	}

	for _, schema := range []*api.CollectionSchema{BookSchema(dims), CommentSchema(dims)} {
		if existing[schema.Name] {
			log.Debug().Str("collection", schema.Name).Msg("typesense collection already exists")
			continue
		}
		if _, err := c.client.Collections().Create(ctx, schema); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", schema.Name, err)
		}
		log.Info().Str("collection", schema.Name).Msg("created typesense collection")
	}
	return nil
}

// BookSchema describes the catalog collection
func BookSchema(dims int) *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: BooksCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "title", Type: "string"},
			{Name: "author", Type: "string"},
			{Name: "description", Type: "string", Optional: pointer.True()},
			{Name: "category_id", Type: "string", Facet: pointer.True()},
			{Name: "category_name", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "price", Type: "int64", Facet: pointer.True()},
			{Name: "rating", Type: "float", Facet: pointer.True()},
			{Name: "sales_count", Type: "int32"},
			{Name: "is_active", Type: "bool"},
			{Name: EmbeddingField, Type: "float[]", NumDim: pointer.Int(dims), Optional: pointer.True()},
		},
		DefaultSortingField: pointer.String("sales_count"),
	}
}

// CommentSchema describes the comment evidence collection
func CommentSchema(dims int) *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: CommentsCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "book_id", Type: "string", Facet: pointer.True()},
			{Name: "author_name", Type: "string", Optional: pointer.True()},
			{Name: "text", Type: "string"},
			{Name: "rating", Type: "int32"},
			{Name: "is_disabled", Type: "bool"},
			{Name: "has_text", Type: "bool"},
			{Name: "created_at", Type: "int64"},
			{Name: EmbeddingField, Type: "float[]", NumDim: pointer.Int(dims), Optional: pointer.True()},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}

// Upsert indexes a document in a collection
func (c *Client) Upsert(ctx context.Context, collection string, document map[string]interface{}) error {
	_, err := c.client.Collection(collection).Documents().Upsert(ctx, document)
	return err
}
