package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookKeywordSearch_Search(t *testing.T) {
	client, mock := newMockClient(t)
	search := NewBookKeywordSearch(client)

	maxPrice := int64(150000)
	category := "fantasy"

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "books" WHERE .*"title" ILIKE .*"category_id" = .*"price" <=`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT "id" FROM "books" WHERE .* ORDER BY "sales_count" DESC, "rating" DESC, "id" ASC LIMIT 2`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("b1").AddRow("b7"))

	ids, total, err := search.Search(context.Background(), providers.BookSearchQuery{
		Text:    "dragon",
		Filters: entities.SearchFilters{CategoryID: &category, MaxPrice: &maxPrice},
		Limit:   2,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b7"}, ids)
	assert.Equal(t, 3, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookKeywordSearch_NoMatchesSkipsPageQuery(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`SELECT COUNT`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ids, total, err := NewBookKeywordSearch(client).Search(context.Background(), providers.BookSearchQuery{Text: "zzz"})

	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookKeywordSearch_DatabaseError(t *testing.T) {
	client, mock := newMockClient(t)
	mock.ExpectQuery(`SELECT COUNT`).WillReturnError(errors.New("conn refused"))

	_, _, err := NewBookKeywordSearch(client).Search(context.Background(), providers.BookSearchQuery{Text: "x"})

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% cotton\_wool`, escapeLike("100% cotton_wool"))
}
