package database

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
)

// BookKeywordSearch is a Postgres ILIKE keyword search used when Typesense is not
// configured. Indexing is a no-op since the books table is the index.
type BookKeywordSearch struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBookKeywordSearch creates a new Postgres keyword search
func NewBookKeywordSearch(client *postgres.Client) providers.BookSearchProvider {
	return &BookKeywordSearch{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

func keywordConditions(q providers.BookSearchQuery) []exp.Expression {
	conds := []exp.Expression{goqu.I("is_active").IsTrue()}

	for _, term := range strings.Fields(q.Text) {
		pattern := "%" + escapeLike(term) + "%"
		conds = append(conds, goqu.Or(
			goqu.I("title").ILike(pattern),
			goqu.I("author").ILike(pattern),
			goqu.I("description").ILike(pattern),
		))
	}

	f := q.Filters
	if f.CategoryID != nil {
		conds = append(conds, goqu.I("category_id").Eq(*f.CategoryID))
	}
	if f.MinPrice != nil {
		conds = append(conds, goqu.I("price").Gte(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		conds = append(conds, goqu.I("price").Lte(*f.MaxPrice))
	}
	return conds
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(s)
}

// Search returns matching ids ordered by sales then rating, plus the total match count
func (s *BookKeywordSearch) Search(ctx context.Context, q providers.BookSearchQuery) ([]string, int, error) {
	conds := keywordConditions(q)

	countSQL, countArgs, err := s.db.From("books").Select(goqu.COUNT("*")).Where(conds...).ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build query", err)
	}
	var total int
	if err := s.client.DB().QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewInternalError("failed to count books", err)
	}
	if total == 0 {
		return []string{}, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	pageSQL, pageArgs, err := s.db.From("books").
		Select("id").
		Where(conds...).
		Order(goqu.I("sales_count").Desc(), goqu.I("rating").Desc(), goqu.I("id").Asc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := s.client.DB().QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to search books", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, 0, apperrors.NewInternalError("failed to scan book id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewInternalError("failed to iterate books", err)
	}
	return ids, total, nil
}

func (s *BookKeywordSearch) IndexBook(ctx context.Context, book *entities.Book, embedding []float32) error {
	return nil
}

func (s *BookKeywordSearch) IndexComment(ctx context.Context, comment *entities.Comment, embedding []float32) error {
	return nil
}
