package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
)

// CommentAdapter implements CommentRepository
type CommentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCommentAdapter creates a new comment adapter
func NewCommentAdapter(client *postgres.Client) repositories.CommentRepository {
	return &CommentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func (a *CommentAdapter) selectEvidence() *goqu.SelectDataset {
	return a.db.From("comments").
		Select("id", "book_id", "user_id", goqu.COALESCE(goqu.C("author_name"), ""), "rating", "text", "is_disabled", "created_at").
		Where(
			goqu.C("is_disabled").IsFalse(),
			goqu.L("TRIM(COALESCE(text, '')) <> ''"),
		)
}

// TopRated returns enabled, non-empty comments ordered by rating then recency
func (a *CommentAdapter) TopRated(ctx context.Context, bookID string, limit int) ([]*entities.Comment, error) {
	if limit <= 0 {
		limit = 5
	}
	ds := a.selectEvidence().
		Where(goqu.C("book_id").Eq(bookID)).
		Order(goqu.C("rating").Desc(), goqu.C("created_at").Desc()).
		Limit(uint(limit))
	return a.queryComments(ctx, ds, "get top rated comments")
}

// ListActive pages through enabled, non-empty comments
func (a *CommentAdapter) ListActive(ctx context.Context, limit, offset int) ([]*entities.Comment, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	ds := a.selectEvidence().
		Order(goqu.C("id").Asc()).
		Limit(uint(limit)).
		Offset(uint(offset))
	return a.queryComments(ctx, ds, "list comments")
}

func (a *CommentAdapter) queryComments(ctx context.Context, ds *goqu.SelectDataset, op string) ([]*entities.Comment, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to "+op, err)
	}
	defer rows.Close()

	comments := []*entities.Comment{}
	for rows.Next() {
		c := &entities.Comment{}
		if err := rows.Scan(&c.ID, &c.BookID, &c.UserID, &c.AuthorName, &c.Rating, &c.Text, &c.IsDisabled, &c.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("failed to scan comment", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate comments", err)
	}
	return comments, nil
}
