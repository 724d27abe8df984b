package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewise/bookstore/backend/internal/api/handlers"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

type stubZeroResults struct {
	events    []*entities.SearchEvent
	err       error
	lastLimit int
}

func (s *stubZeroResults) GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	s.lastLimit = limit
	return s.events, s.err
}

func TestAnalyticsHandler_ZeroResultQueries(t *testing.T) {
	src := &stubZeroResults{events: []*entities.SearchEvent{{ID: "e1", Query: "sách ma"}}}
	h := handlers.NewAnalyticsHandler(src)

	w := httptest.NewRecorder()
	h.ZeroResultQueries(w, httptest.NewRequest(http.MethodGet, "/api/admin/search/zero-results?limit=20", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, src.lastLimit)

	var body struct {
		Queries []entities.SearchEvent `json:"queries"`
		Count   int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "sách ma", body.Queries[0].Query)
}

func TestAnalyticsHandler_EmptyListIsArray(t *testing.T) {
	h := handlers.NewAnalyticsHandler(&stubZeroResults{})

	w := httptest.NewRecorder()
	h.ZeroResultQueries(w, httptest.NewRequest(http.MethodGet, "/api/admin/search/zero-results", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"queries":[]`)
}

func TestAnalyticsHandler_BadLimitAndErrors(t *testing.T) {
	h := handlers.NewAnalyticsHandler(&stubZeroResults{})
	w := httptest.NewRecorder()
	h.ZeroResultQueries(w, httptest.NewRequest(http.MethodGet, "/api/admin/search/zero-results?limit=9000", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	h = handlers.NewAnalyticsHandler(&stubZeroResults{err: errors.New("db down")})
	w = httptest.NewRecorder()
	h.ZeroResultQueries(w, httptest.NewRequest(http.MethodGet, "/api/admin/search/zero-results", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
