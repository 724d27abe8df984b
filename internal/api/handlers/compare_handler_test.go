package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewise/bookstore/backend/internal/api/handlers"
	"github.com/pagewise/bookstore/backend/internal/application/services"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
)

type compareBody struct {
	Success bool                       `json:"success"`
	Data    *entities.ComparisonResult `json:"data"`
	Message string                     `json:"message"`
}

func postCompare(t *testing.T, c *stubComparer, body string) (*httptest.ResponseRecorder, compareBody) {
	t.Helper()
	h := handlers.NewCompareHandler(c)
	req := httptest.NewRequest("POST", "/api/compare", strings.NewReader(body))
	req.Header.Set(handlers.UserIDHeader, "u-1")
	w := httptest.NewRecorder()
	h.Compare(w, req)

	var out compareBody
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestCompareHandler_Success(t *testing.T) {
	c := &stubComparer{result: &entities.ComparisonResult{RecommendedIndex: 1, Reasons: []string{"cheaper"}}}

	w, out := postCompare(t, c, `{"book_ids":["a","b"],"query":"gift for my dad"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Data.RecommendedIndex)
	assert.Equal(t, "u-1", c.got.UserID)
	assert.Equal(t, []string{"a", "b"}, c.got.BookIDs)
}

func TestCompareHandler_UnparseableIsSoftFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"model failure", apperrors.NewExternalError("comparison model call failed", services.ErrComparisonUnparseable)},
		{"index out of range", apperrors.NewInternalError("recommended index 7 with 2 books", services.ErrRecommendedIndexOutOfRange)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, out := postCompare(t, &stubComparer{err: tt.err}, `{"book_ids":["a","b"],"query":"q"}`)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.False(t, out.Success)
			assert.Equal(t, services.ErrComparisonUnparseable.Error(), out.Message)
		})
	}
}

func TestCompareHandler_InvalidSize(t *testing.T) {
	err := apperrors.NewValidationErrorWrap("comparison needs 2 to 5 books", services.ErrInvalidComparisonSize)

	w, _ := postCompare(t, &stubComparer{err: err}, `{"book_ids":["a"]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompareHandler_MissingBook(t *testing.T) {
	w, _ := postCompare(t, &stubComparer{err: apperrors.NewNotFoundError("book not found")}, `{"book_ids":["a","zz"]}`)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompareHandler_BadJSON(t *testing.T) {
	w, _ := postCompare(t, &stubComparer{err: fmt.Errorf("unreachable")}, `{"book_ids":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
