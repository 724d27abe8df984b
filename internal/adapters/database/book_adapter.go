package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
)

// BookAdapter implements BookRepository
type BookAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBookAdapter creates a new book adapter
func NewBookAdapter(client *postgres.Client) repositories.BookRepository {
	return &BookAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// numeric columns are coalesced so a NULL never reaches the statistics
var bookColumns = []interface{}{
	goqu.I("b.id"),
	goqu.I("b.title"),
	goqu.COALESCE(goqu.I("b.author"), ""),
	goqu.COALESCE(goqu.I("b.description"), ""),
	goqu.COALESCE(goqu.I("b.category_id"), ""),
	goqu.COALESCE(goqu.I("c.name"), ""),
	goqu.COALESCE(goqu.I("b.price"), 0),
	goqu.COALESCE(goqu.I("b.rating"), 0),
	goqu.COALESCE(goqu.I("b.sales_count"), 0),
	goqu.I("b.is_active"),
	goqu.I("b.created_at"),
	goqu.I("b.updated_at"),
}

func (a *BookAdapter) selectBooks() *goqu.SelectDataset {
	return a.db.From(goqu.T("books").As("b")).
		LeftJoin(goqu.T("categories").As("c"), goqu.On(goqu.I("b.category_id").Eq(goqu.I("c.id")))).
		Select(bookColumns...)
}

func scanBook(row rowScanner) (*entities.Book, error) {
	book := &entities.Book{}
	err := row.Scan(
		&book.ID,
		&book.Title,
		&book.Author,
		&book.Description,
		&book.CategoryID,
		&book.CategoryName,
		&book.Price,
		&book.Rating,
		&book.SalesCount,
		&book.IsActive,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return book, nil
}

func (a *BookAdapter) queryBooks(ctx context.Context, ds *goqu.SelectDataset, op string) ([]*entities.Book, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to "+op, err)
	}
	defer rows.Close()

	books := []*entities.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan book", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate books", err)
	}
	return books, nil
}

// GetByID retrieves a book by ID
func (a *BookAdapter) GetByID(ctx context.Context, id string) (*entities.Book, error) {
	query, args, err := a.selectBooks().Where(goqu.I("b.id").Eq(id)).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	book, err := scanBook(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("book with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get book", err)
	}
	return book, nil
}

// GetByIDs retrieves books in the order of ids
func (a *BookAdapter) GetByIDs(ctx context.Context, ids []string) ([]*entities.Book, error) {
	if len(ids) == 0 {
		return []*entities.Book{}, nil
	}

	books, err := a.queryBooks(ctx, a.selectBooks().Where(goqu.I("b.id").In(ids)), "get books by ids")
	if err != nil {
		return nil, err
	}
	return orderByIDs(books, ids), nil
}

// orderByIDs reorders books to follow ids, dropping unknown and duplicate ids
func orderByIDs(books []*entities.Book, ids []string) []*entities.Book {
	byID := make(map[string]*entities.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}

	ordered := make([]*entities.Book, 0, len(books))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
			delete(byID, id)
		}
	}
	return ordered
}

// Sample returns up to n random active books
func (a *BookAdapter) Sample(ctx context.Context, n int) ([]*entities.Book, error) {
	if n <= 0 {
		return []*entities.Book{}, nil
	}
	ds := a.selectBooks().
		Where(goqu.I("b.is_active").IsTrue()).
		Order(goqu.L("RANDOM()").Asc()).
		Limit(uint(n))
	return a.queryBooks(ctx, ds, "sample books")
}

// List pages through active books ordered by ID
func (a *BookAdapter) List(ctx context.Context, limit, offset int) ([]*entities.Book, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	ds := a.selectBooks().
		Where(goqu.I("b.is_active").IsTrue()).
		Order(goqu.I("b.id").Asc()).
		Limit(uint(limit)).
		Offset(uint(offset))
	return a.queryBooks(ctx, ds, "list books")
}

// ListCategories returns the category vocabulary ordered by name
func (a *BookAdapter) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	query, args, err := a.db.From("categories").
		Select("id", "name").
		Order(goqu.I("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list categories", err)
	}
	defer rows.Close()

	categories := []*entities.Category{}
	for rows.Next() {
		c := &entities.Category{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, apperrors.NewInternalError("failed to scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate categories", err)
	}
	return categories, nil
}
